// Package rhitest provides a recording rhi.Device. Every texture holds one uniform color, so
// tests can follow clear, draw, blend and copy results without a GPU.
package rhitest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
)

// SurfaceLabel is the target name recorded for passes into the window surface.
const SurfaceLabel = "surface"

// OpKind is the kind of a recorded command.
type OpKind int

const (
	OpBeginFrame OpKind = iota
	OpBeginPass
	OpDraw
	OpEndPass
	OpBlend
	OpCopy
	OpDownsample
	OpEffect
	OpEndFrame
)

func (k OpKind) String() string {
	return [...]string{"BeginFrame", "BeginPass", "Draw", "EndPass", "Blend", "Copy", "Downsample", "Effect", "EndFrame"}[k]
}

// Op is one recorded command.
type Op struct {
	Kind    OpKind
	Target  string
	Source  string
	Label   string
	Clear   common.Color
	Factors [2]float32
	Samples int
	Item    rhi.DrawItem
}

// Device is a recording rhi.Device.
type Device struct {
	mu *sync.Mutex

	sampleCounts []int
	features     map[rhi.Feature]bool
	unsupported  map[rhi.Format]bool
	lost         bool

	surface     *Texture
	presentMode rhi.PresentMode

	ops     []Op
	frames  int
	inFrame bool
	live    map[any]struct{}
}

var _ rhi.Device = &Device{}

// Option configures a Device.
type Option func(*Device)

// WithSampleCounts sets the supported MSAA sample counts.
func WithSampleCounts(counts ...int) Option {
	return func(d *Device) { d.sampleCounts = append([]int(nil), counts...) }
}

// WithoutFeature disables an optional feature.
func WithoutFeature(f rhi.Feature) Option {
	return func(d *Device) { d.features[f] = false }
}

// WithUnsupportedFormat reports f as unsupported.
func WithUnsupportedFormat(f rhi.Format) Option {
	return func(d *Device) { d.unsupported[f] = true }
}

// NewDevice creates a recording device supporting 1, 2, 4 and 8 samples and every feature.
func NewDevice(options ...Option) *Device {
	d := &Device{
		mu:           &sync.Mutex{},
		sampleCounts: []int{1, 2, 4, 8},
		features:     map[rhi.Feature]bool{rhi.FeatureMultisampleRenderBuffer: true},
		unsupported:  make(map[rhi.Format]bool),
		live:         make(map[any]struct{}),
	}
	d.surface = &Texture{d: d, label: SurfaceLabel, format: rhi.FormatRGBA8}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Lose makes every following BeginFrame fail with rhi.ErrNoDevice.
func (d *Device) Lose() {
	d.mu.Lock()
	d.lost = true
	d.mu.Unlock()
}

// Ops returns the recorded commands.
func (d *Device) Ops() []Op {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Op(nil), d.ops...)
}

// OpsOf returns the recorded commands of one kind.
func (d *Device) OpsOf(kind OpKind) []Op {
	var out []Op
	for _, op := range d.Ops() {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// ResetOps clears the command log.
func (d *Device) ResetOps() {
	d.mu.Lock()
	d.ops = nil
	d.mu.Unlock()
}

// Frames returns the number of ended frames.
func (d *Device) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// Surface returns the simulated window surface.
func (d *Device) Surface() *Texture { return d.surface }

// PresentMode returns the last present mode set.
func (d *Device) PresentMode() rhi.PresentMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presentMode
}

// LiveResources returns the number of built resources not yet released.
func (d *Device) LiveResources() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

func (d *Device) record(op Op) {
	d.mu.Lock()
	d.ops = append(d.ops, op)
	d.mu.Unlock()
}

func (d *Device) track(r any, alive bool) {
	d.mu.Lock()
	if alive {
		d.live[r] = struct{}{}
	} else {
		delete(d.live, r)
	}
	d.mu.Unlock()
}

func (d *Device) Backend() rhi.Backend { return rhi.BackendNull }

func (d *Device) SupportedSampleCounts() []int {
	return append([]int(nil), d.sampleCounts...)
}

func (d *Device) IsFeatureSupported(f rhi.Feature) bool { return d.features[f] }

func (d *Device) IsTextureFormatSupported(f rhi.Format) bool { return !d.unsupported[f] }

func (d *Device) NewTexture(desc rhi.TextureDesc) (rhi.Texture, error) {
	if desc.Format == rhi.FormatDepth24Stencil8 {
		return nil, fmt.Errorf("rhitest: texture %q cannot use a depth format", desc.Label)
	}
	return &Texture{d: d, label: desc.Label, format: desc.Format, size: desc.Size}, nil
}

func (d *Device) NewRenderBuffer(desc rhi.RenderBufferDesc) (rhi.RenderBuffer, error) {
	return &RenderBuffer{d: d, label: desc.Label, format: desc.Format, size: desc.Size, samples: max(1, desc.SampleCount)}, nil
}

func (d *Device) NewRenderTarget(desc rhi.RenderTargetDesc) (rhi.RenderTarget, error) {
	color, ok := desc.Color.(*Texture)
	if !ok || color == nil {
		return nil, fmt.Errorf("rhitest: render target %q needs a color texture", desc.Label)
	}
	rt := &RenderTarget{label: desc.Label, color: color, size: color.Size()}
	if desc.ColorBuffer != nil {
		rt.colorBuffer = desc.ColorBuffer.(*RenderBuffer)
	}
	if desc.Depth != nil {
		rt.depth = desc.Depth.(*RenderBuffer)
	}
	return rt, nil
}

// UploadTexture sets the texture color to the first pixel.
func (d *Device) UploadTexture(t rhi.Texture, pixels []byte) error {
	tex, ok := t.(*Texture)
	if !ok || !tex.alive {
		return errors.New("rhitest: upload target is not a built texture")
	}
	if len(pixels) < tex.built.Width*tex.built.Height*4 {
		return fmt.Errorf("rhitest: texture %q needs %d bytes, got %d", tex.label, tex.built.Width*tex.built.Height*4, len(pixels))
	}
	tex.Color = common.Color{
		R: float32(pixels[0]) / 255,
		G: float32(pixels[1]) / 255,
		B: float32(pixels[2]) / 255,
		A: float32(pixels[3]) / 255,
	}
	tex.Uploads++
	return nil
}

func (d *Device) NewMesh(desc rhi.MeshDesc) (rhi.Mesh, error) {
	if len(desc.Vertices) == 0 || len(desc.Indices) == 0 {
		return nil, fmt.Errorf("rhitest: mesh %q is empty", desc.Label)
	}
	m := &Mesh{d: d, Label: desc.Label, count: len(desc.Indices)}
	d.track(m, true)
	return m, nil
}

func (d *Device) ConfigureSurface(size common.Size) {
	d.surface.size = size
	d.surface.built = size
	d.surface.alive = !size.Empty()
}

func (d *Device) SetPresentMode(mode rhi.PresentMode) {
	d.mu.Lock()
	d.presentMode = mode
	d.mu.Unlock()
}

func (d *Device) BeginFrame() (rhi.CommandBuffer, error) {
	d.mu.Lock()
	if d.lost {
		d.mu.Unlock()
		return nil, rhi.ErrNoDevice
	}
	if d.inFrame {
		d.mu.Unlock()
		return nil, errors.New("rhitest: previous frame not yet ended")
	}
	d.inFrame = true
	d.mu.Unlock()

	d.record(Op{Kind: OpBeginFrame})
	return &CommandBuffer{d: d}, nil
}

func (d *Device) EndFrame() error {
	d.mu.Lock()
	if !d.inFrame {
		d.mu.Unlock()
		return errors.New("rhitest: EndFrame without BeginFrame")
	}
	d.inFrame = false
	d.frames++
	d.mu.Unlock()

	d.record(Op{Kind: OpEndFrame})
	return nil
}

func (d *Device) Release() {
	d.mu.Lock()
	d.lost = true
	d.mu.Unlock()
}

// Texture is a simulated texture holding one color.
type Texture struct {
	d      *Device
	label  string
	format rhi.Format
	size   common.Size
	built  common.Size
	alive  bool

	// Color is the uniform content of the texture.
	Color common.Color
	// Builds counts device allocations.
	Builds  int
	Uploads int
}

var _ rhi.Texture = &Texture{}

func (t *Texture) Size() common.Size          { return t.size }
func (t *Texture) SetPixelSize(s common.Size) { t.size = s }
func (t *Texture) Format() rhi.Format         { return t.format }
func (t *Texture) Label() string              { return t.label }

// Built reports whether the texture holds a live allocation.
func (t *Texture) Built() bool { return t.alive }

func (t *Texture) Build() error {
	if t.alive && t.built == t.size {
		return nil
	}
	if t.size.Empty() {
		return fmt.Errorf("rhitest: %q has an empty size", t.label)
	}
	t.built, t.alive = t.size, true
	t.Builds++
	t.d.track(t, true)
	return nil
}

func (t *Texture) Release() {
	t.alive = false
	t.built = common.Size{}
	t.d.track(t, false)
}

// RenderBuffer is a simulated render buffer.
type RenderBuffer struct {
	d       *Device
	label   string
	format  rhi.Format
	size    common.Size
	built   common.Size
	samples int
	alive   bool
}

var _ rhi.RenderBuffer = &RenderBuffer{}

func (b *RenderBuffer) Size() common.Size          { return b.size }
func (b *RenderBuffer) SetPixelSize(s common.Size) { b.size = s }
func (b *RenderBuffer) Format() rhi.Format         { return b.format }
func (b *RenderBuffer) SampleCount() int           { return b.samples }

func (b *RenderBuffer) Build() error {
	if b.alive && b.built == b.size {
		return nil
	}
	if b.size.Empty() {
		return fmt.Errorf("rhitest: %q has an empty size", b.label)
	}
	b.built, b.alive = b.size, true
	b.d.track(b, true)
	return nil
}

func (b *RenderBuffer) Release() {
	b.alive = false
	b.built = common.Size{}
	b.d.track(b, false)
}

// RenderTarget is a simulated render target.
type RenderTarget struct {
	label       string
	size        common.Size
	color       *Texture
	colorBuffer *RenderBuffer
	depth       *RenderBuffer
	valid       bool
}

var _ rhi.RenderTarget = &RenderTarget{}

func (r *RenderTarget) Size() common.Size          { return r.size }
func (r *RenderTarget) SetPixelSize(s common.Size) { r.size = s }
func (r *RenderTarget) Color() rhi.Texture         { return r.color }
func (r *RenderTarget) Release()                   { r.valid = false }

func (r *RenderTarget) SampleCount() int {
	if r.colorBuffer != nil {
		return r.colorBuffer.samples
	}
	return 1
}

func (r *RenderTarget) Build() error {
	r.valid = false
	if !r.color.alive || r.color.built != r.size {
		return fmt.Errorf("rhitest: render target %q color is not built at %v", r.label, r.size)
	}
	if r.colorBuffer != nil && (!r.colorBuffer.alive || r.colorBuffer.built != r.size) {
		return fmt.Errorf("rhitest: render target %q color buffer is not built at %v", r.label, r.size)
	}
	if r.depth != nil && (!r.depth.alive || r.depth.built != r.size) {
		return fmt.Errorf("rhitest: render target %q depth is not built at %v", r.label, r.size)
	}
	r.valid = true
	return nil
}

// Mesh is a simulated mesh.
type Mesh struct {
	d        *Device
	Label    string
	count    int
	Released bool
}

var _ rhi.Mesh = &Mesh{}

func (m *Mesh) IndexCount() int { return m.count }

func (m *Mesh) Release() {
	if m.Released {
		return
	}
	m.Released = true
	m.d.track(m, false)
}

// CommandBuffer simulates command execution as it records.
type CommandBuffer struct {
	d      *Device
	target *Texture
}

var _ rhi.CommandBuffer = &CommandBuffer{}

func (c *CommandBuffer) resolve(rt rhi.RenderTarget) (*Texture, int) {
	if rt == nil {
		return c.d.surface, 1
	}
	target := rt.(*RenderTarget)
	return target.color, target.SampleCount()
}

func (c *CommandBuffer) BeginPass(rt rhi.RenderTarget, clear common.Color, depth float32) {
	tex, samples := c.resolve(rt)
	c.target = tex
	tex.Color = clear
	c.d.record(Op{Kind: OpBeginPass, Target: tex.label, Clear: clear, Samples: samples})
}

// Draw composites the item color over the target, source-over when Blend is set.
func (c *CommandBuffer) Draw(item rhi.DrawItem) {
	c.d.record(Op{Kind: OpDraw, Label: item.Label, Item: item})
	if c.target == nil || len(item.Instances) == 0 {
		return
	}
	src := item.Color
	if tex, ok := item.Texture.(*Texture); ok && tex != nil {
		src = common.Color{R: src.R * tex.Color.R, G: src.G * tex.Color.G, B: src.B * tex.Color.B, A: src.A * tex.Color.A}
	}
	if !item.Blend {
		c.target.Color = src
		return
	}
	dst := c.target.Color
	c.target.Color = common.Color{
		R: src.R*src.A + dst.R*(1-src.A),
		G: src.G*src.A + dst.G*(1-src.A),
		B: src.B*src.A + dst.B*(1-src.A),
		A: src.A + dst.A*(1-src.A),
	}
}

func (c *CommandBuffer) EndPass() {
	if c.target != nil {
		c.d.record(Op{Kind: OpEndPass, Target: c.target.label})
	}
	c.target = nil
}

func (c *CommandBuffer) Blend(dst rhi.RenderTarget, frame, accum rhi.Texture, factors [2]float32) {
	c.EndPass()
	out, _ := c.resolve(dst)
	f, a := frame.(*Texture), accum.(*Texture)
	out.Color = f.Color.Scale(factors[0]).Add(a.Color.Scale(factors[1]))
	c.d.record(Op{Kind: OpBlend, Target: out.label, Source: f.label, Label: a.label, Factors: factors})
}

func (c *CommandBuffer) CopyTexture(dst, src rhi.Texture) {
	c.EndPass()
	to, from := dst.(*Texture), src.(*Texture)
	to.Color = from.Color
	c.d.record(Op{Kind: OpCopy, Target: to.label, Source: from.label})
}

func (c *CommandBuffer) Downsample(dst rhi.RenderTarget, src rhi.Texture) {
	c.EndPass()
	out, _ := c.resolve(dst)
	from := src.(*Texture)
	out.Color = from.Color
	c.d.record(Op{Kind: OpDownsample, Target: out.label, Source: from.label})
}

func (c *CommandBuffer) RunEffectPass(dst rhi.RenderTarget, src rhi.Texture, pass rhi.EffectPassDesc) {
	c.EndPass()
	out, _ := c.resolve(dst)
	from := src.(*Texture)
	color := from.Color
	if pass.Reference != nil {
		color = pass.Reference(color)
	}
	out.Color = color
	c.d.record(Op{Kind: OpEffect, Target: out.label, Source: from.label, Label: pass.ShaderKey})
}
