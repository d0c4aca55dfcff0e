package rhi

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// depthFormat backs every depth attachment. The stencil aspect of FormatDepth24Stencil8 is never
// sampled or tested, so the device allocates depth-only storage.
const depthFormat = wgpu.TextureFormatDepth24Plus

var meshVertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: VertexStride * 4,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
	},
}

type wgpuDevice struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	forceFallback bool
	surfaceFormat wgpu.TextureFormat
	surfaceSize   common.Size
	surfaceDepth  *wgpuRenderBuffer
	presentMode   wgpu.PresentMode
	sampleCounts  []int

	library   *shader.Library
	modules   map[string]*wgpu.ShaderModule
	pipelines map[pipelineKey]*wgpuPipeline
	sampler   *wgpu.Sampler
	white     *wgpuTexture

	frame *wgpuCommandBuffer
}

var _ Device = &wgpuDevice{}

// NewWGPUDevice creates a WebGPU device. A nil surfaceDescriptor creates an offscreen device whose
// surface passes are dropped.
//
// Parameters:
//   - surfaceDescriptor: the native window surface, or nil
//   - options: optional device configuration
//
// Returns:
//   - Device: the new device
//   - error: ErrNoDevice wrapping the adapter or device failure
func NewWGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...DeviceBuilderOption) (Device, error) {
	runtime.LockOSThread()
	d := &wgpuDevice{
		mu:           &sync.Mutex{},
		instance:     wgpu.CreateInstance(nil),
		presentMode:  wgpu.PresentModeFifo,
		sampleCounts: []int{1, 4},
		library:      shader.NewLibrary(),
		modules:      make(map[string]*wgpu.ShaderModule),
		pipelines:    make(map[pipelineKey]*wgpuPipeline),
	}
	for _, opt := range options {
		opt(d)
	}
	if surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallback,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("%w: failed to request adapter: %v", ErrNoDevice, err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Scene Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("%w: failed to request device: %v", ErrNoDevice, err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	if err := d.initDefaults(); err != nil {
		d.Release()
		return nil, err
	}
	return d, nil
}

func (d *wgpuDevice) initDefaults() error {
	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Linear Clamp Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create default sampler: %w", err)
	}
	d.sampler = samp

	white := &wgpuTexture{d: d, label: "White Texture", format: FormatRGBA8, size: common.Size{Width: 1, Height: 1}}
	if err := white.Build(); err != nil {
		return err
	}
	if err := d.UploadTexture(white, []byte{255, 255, 255, 255}); err != nil {
		return err
	}
	d.white = white
	return nil
}

func (d *wgpuDevice) Backend() Backend { return BackendWGPU }

func (d *wgpuDevice) SupportedSampleCounts() []int {
	return append([]int(nil), d.sampleCounts...)
}

func (d *wgpuDevice) IsFeatureSupported(f Feature) bool {
	return f == FeatureMultisampleRenderBuffer
}

// RGBA32F is not filterable without an optional feature, so it is reported unsupported and
// callers fall back to RGBA16F.
func (d *wgpuDevice) IsTextureFormatSupported(f Format) bool {
	return f != FormatRGBA32F
}

func (d *wgpuDevice) NewTexture(desc TextureDesc) (Texture, error) {
	if desc.Format == FormatDepth24Stencil8 {
		return nil, fmt.Errorf("rhi: texture %q cannot use a depth format", desc.Label)
	}
	return &wgpuTexture{d: d, label: desc.Label, format: desc.Format, size: desc.Size}, nil
}

func (d *wgpuDevice) NewRenderBuffer(desc RenderBufferDesc) (RenderBuffer, error) {
	return &wgpuRenderBuffer{
		d:       d,
		label:   desc.Label,
		format:  desc.Format,
		size:    desc.Size,
		samples: max(1, desc.SampleCount),
	}, nil
}

func (d *wgpuDevice) NewRenderTarget(desc RenderTargetDesc) (RenderTarget, error) {
	color, ok := desc.Color.(*wgpuTexture)
	if !ok || color == nil {
		return nil, fmt.Errorf("rhi: render target %q needs a WebGPU color texture", desc.Label)
	}
	rt := &wgpuRenderTarget{label: desc.Label, color: color, size: color.Size()}
	if desc.ColorBuffer != nil {
		if rt.colorBuffer, ok = desc.ColorBuffer.(*wgpuRenderBuffer); !ok {
			return nil, fmt.Errorf("rhi: render target %q color buffer is not a WebGPU buffer", desc.Label)
		}
	}
	if desc.Depth != nil {
		if rt.depth, ok = desc.Depth.(*wgpuRenderBuffer); !ok {
			return nil, fmt.Errorf("rhi: render target %q depth buffer is not a WebGPU buffer", desc.Label)
		}
	}
	return rt, nil
}

func (d *wgpuDevice) UploadTexture(t Texture, pixels []byte) error {
	tex, ok := t.(*wgpuTexture)
	if !ok || tex.tex == nil {
		return errors.New("rhi: upload target is not a built WebGPU texture")
	}
	w, h := uint32(tex.built.Width), uint32(tex.built.Height)
	if len(pixels) < int(w*h*4) {
		return fmt.Errorf("rhi: texture %q needs %d bytes, got %d", tex.label, w*h*4, len(pixels))
	}
	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: h,
		},
		&wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return nil
}

func (d *wgpuDevice) NewMesh(desc MeshDesc) (Mesh, error) {
	if len(desc.Vertices) == 0 || len(desc.Indices) == 0 {
		return nil, fmt.Errorf("rhi: mesh %q is empty", desc.Label)
	}
	vb, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label + " Vertex Buffer",
		Size:  uint64(len(desc.Vertices) * 4),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex buffer for %q: %w", desc.Label, err)
	}
	d.queue.WriteBuffer(vb, 0, common.SliceToBytes(desc.Vertices))

	ib, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label + " Index Buffer",
		Size:  uint64(len(desc.Indices) * 4),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vb.Release()
		return nil, fmt.Errorf("failed to create index buffer for %q: %w", desc.Label, err)
	}
	d.queue.WriteBuffer(ib, 0, common.SliceToBytes(desc.Indices))

	return &wgpuMesh{vertex: vb, index: ib, count: len(desc.Indices)}, nil
}

func (d *wgpuDevice) ConfigureSurface(size common.Size) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.surfaceSize = size
	if d.surface == nil || size.Empty() {
		return
	}

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = capabilities.Formats[0]
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(size.Width),
		Height:      uint32(size.Height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	if d.surfaceDepth == nil {
		d.surfaceDepth = &wgpuRenderBuffer{d: d, label: "Surface Depth", format: FormatDepth24Stencil8, samples: 1}
	}
	d.surfaceDepth.SetPixelSize(size)
	if err := d.surfaceDepth.Build(); err != nil {
		common.Logger().Error("failed to build surface depth buffer", "error", err)
	}
}

func (d *wgpuDevice) SetPresentMode(mode PresentMode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presentMode = toWGPUPresentMode(mode)
}

func toWGPUPresentMode(mode PresentMode) wgpu.PresentMode {
	switch mode {
	case PresentModeUncapped:
		return wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		return wgpu.PresentModeFifo
	}
}

func (d *wgpuDevice) BeginFrame() (CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return nil, ErrNoDevice
	}
	// a held surface texture means the last frame was never presented
	if d.frame != nil {
		return nil, errors.New("rhi: previous frame not yet ended")
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create command encoder: %w", err)
	}
	cb := &wgpuCommandBuffer{d: d, encoder: encoder}

	if d.surface != nil && !d.surfaceSize.Empty() {
		surfaceTexture, err := d.surface.GetCurrentTexture()
		if err != nil {
			encoder.Release()
			return nil, fmt.Errorf("failed to acquire surface texture: %w", err)
		}
		view, err := surfaceTexture.CreateView(nil)
		if err != nil {
			surfaceTexture.Release()
			encoder.Release()
			return nil, fmt.Errorf("failed to create surface view: %w", err)
		}
		cb.surfaceTexture = surfaceTexture
		cb.surfaceView = view
	}

	d.frame = cb
	return cb, nil
}

func (d *wgpuDevice) EndFrame() error {
	d.mu.Lock()
	cb := d.frame
	d.frame = nil
	d.mu.Unlock()

	if cb == nil {
		return errors.New("rhi: EndFrame without BeginFrame")
	}
	defer cb.release()

	cb.endPass()
	commandBuffer, err := cb.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish frame: %w", err)
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()

	if cb.surfaceTexture != nil {
		d.surface.Present()
	}
	return cb.err
}

func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, p := range d.pipelines {
		p.release()
		delete(d.pipelines, key)
	}
	for key, m := range d.modules {
		m.Release()
		delete(d.modules, key)
	}
	if d.white != nil {
		d.white.Release()
		d.white = nil
	}
	if d.surfaceDepth != nil {
		d.surfaceDepth.Release()
		d.surfaceDepth = nil
	}
	if d.sampler != nil {
		d.sampler.Release()
		d.sampler = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

func (d *wgpuDevice) createTexture(label string, size common.Size, format Format, samples int, usage wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView, error) {
	if d.device == nil {
		return nil, nil, ErrNoDevice
	}
	if size.Empty() {
		return nil, nil, fmt.Errorf("rhi: %q has an empty size", label)
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(size.Width),
			Height:             uint32(size.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   uint32(samples),
		Dimension:     wgpu.TextureDimension2D,
		Format:        toWGPUFormat(format),
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create texture %q: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("failed to create view for %q: %w", label, err)
	}
	return tex, view, nil
}

func toWGPUFormat(f Format) wgpu.TextureFormat {
	switch f {
	case FormatRGBA16F:
		return wgpu.TextureFormatRGBA16Float
	case FormatRGBA32F:
		return wgpu.TextureFormatRGBA32Float
	case FormatDepth24Stencil8:
		return depthFormat
	}
	return wgpu.TextureFormatRGBA8Unorm
}

func toWGPUCullMode(c CullMode) wgpu.CullMode {
	switch c {
	case CullFront:
		return wgpu.CullModeFront
	case CullNone:
		return wgpu.CullModeNone
	}
	return wgpu.CullModeBack
}

// shaderModule compiles sh once per shader key.
func (d *wgpuDevice) shaderModule(sh shader.Shader) (*wgpu.ShaderModule, error) {
	if m, ok := d.modules[sh.Key()]; ok {
		return m, nil
	}
	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: sh.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: sh.Source(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader %q: %w", sh.Path(), err)
	}
	d.modules[sh.Key()] = m
	return m, nil
}

type wgpuTexture struct {
	d      *wgpuDevice
	label  string
	format Format
	size   common.Size
	built  common.Size
	tex    *wgpu.Texture
	view   *wgpu.TextureView
}

var _ Texture = &wgpuTexture{}

func (t *wgpuTexture) Size() common.Size          { return t.size }
func (t *wgpuTexture) SetPixelSize(s common.Size) { t.size = s }
func (t *wgpuTexture) Format() Format             { return t.format }
func (t *wgpuTexture) Label() string              { return t.label }

func (t *wgpuTexture) Build() error {
	if t.tex != nil && t.built == t.size {
		return nil
	}
	tex, view, err := t.d.createTexture(t.label, t.size, t.format, 1,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopySrc|wgpu.TextureUsageCopyDst)
	if err != nil {
		return err
	}
	t.Release()
	t.tex, t.view, t.built = tex, view, t.size
	return nil
}

func (t *wgpuTexture) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
	t.built = common.Size{}
}

type wgpuRenderBuffer struct {
	d       *wgpuDevice
	label   string
	format  Format
	size    common.Size
	built   common.Size
	samples int
	tex     *wgpu.Texture
	view    *wgpu.TextureView
}

var _ RenderBuffer = &wgpuRenderBuffer{}

func (b *wgpuRenderBuffer) Size() common.Size          { return b.size }
func (b *wgpuRenderBuffer) SetPixelSize(s common.Size) { b.size = s }
func (b *wgpuRenderBuffer) Format() Format             { return b.format }
func (b *wgpuRenderBuffer) SampleCount() int           { return b.samples }

func (b *wgpuRenderBuffer) Build() error {
	if b.tex != nil && b.built == b.size {
		return nil
	}
	tex, view, err := b.d.createTexture(b.label, b.size, b.format, b.samples, wgpu.TextureUsageRenderAttachment)
	if err != nil {
		return err
	}
	b.Release()
	b.tex, b.view, b.built = tex, view, b.size
	return nil
}

func (b *wgpuRenderBuffer) Release() {
	if b.view != nil {
		b.view.Release()
		b.view = nil
	}
	if b.tex != nil {
		b.tex.Release()
		b.tex = nil
	}
	b.built = common.Size{}
}

type wgpuRenderTarget struct {
	label       string
	size        common.Size
	color       *wgpuTexture
	colorBuffer *wgpuRenderBuffer
	depth       *wgpuRenderBuffer
	valid       bool
}

var _ RenderTarget = &wgpuRenderTarget{}

func (r *wgpuRenderTarget) Size() common.Size          { return r.size }
func (r *wgpuRenderTarget) SetPixelSize(s common.Size) { r.size = s }
func (r *wgpuRenderTarget) Color() Texture             { return r.color }

func (r *wgpuRenderTarget) SampleCount() int {
	if r.colorBuffer != nil {
		return r.colorBuffer.samples
	}
	return 1
}

// Build checks that every attachment is built at the target size. The attachments are owned by the caller.
func (r *wgpuRenderTarget) Build() error {
	r.valid = false
	if r.color.tex == nil || r.color.built != r.size {
		return fmt.Errorf("rhi: render target %q color is not built at %v", r.label, r.size)
	}
	if r.colorBuffer != nil && (r.colorBuffer.tex == nil || r.colorBuffer.built != r.size) {
		return fmt.Errorf("rhi: render target %q color buffer is not built at %v", r.label, r.size)
	}
	if r.depth != nil && (r.depth.tex == nil || r.depth.built != r.size) {
		return fmt.Errorf("rhi: render target %q depth is not built at %v", r.label, r.size)
	}
	r.valid = true
	return nil
}

func (r *wgpuRenderTarget) Release() { r.valid = false }

type wgpuMesh struct {
	vertex *wgpu.Buffer
	index  *wgpu.Buffer
	count  int
}

var _ Mesh = &wgpuMesh{}

func (m *wgpuMesh) IndexCount() int { return m.count }

func (m *wgpuMesh) Release() {
	if m.vertex != nil {
		m.vertex.Release()
		m.vertex = nil
	}
	if m.index != nil {
		m.index.Release()
		m.index = nil
	}
}
