package rhi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-scene/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipelineKey identifies a render pipeline variant. Pipelines are created lazily on first use
// and cached for the lifetime of the device.
type pipelineKey struct {
	shaderKey  string
	format     wgpu.TextureFormat
	samples    uint32
	cull       CullMode
	depthTest  bool
	depthWrite bool
	blend      bool
	hasDepth   bool
	fullscreen bool
}

type wgpuPipeline struct {
	pipeline *wgpu.RenderPipeline
	layouts  []*wgpu.BindGroupLayout
	bindings []shader.Binding
}

func (p *wgpuPipeline) release() {
	if p.pipeline != nil {
		p.pipeline.Release()
	}
	for _, l := range p.layouts {
		if l != nil {
			l.Release()
		}
	}
}

// pipelineFor returns the cached pipeline for key, creating it from sh on first use.
func (d *wgpuDevice) pipelineFor(sh shader.Shader, key pipelineKey) (*wgpuPipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pipelines[key]; ok {
		return p, nil
	}
	if d.device == nil {
		return nil, ErrNoDevice
	}

	module, err := d.shaderModule(sh)
	if err != nil {
		return nil, err
	}

	descriptors := bindGroupLayoutDescriptors(sh.Key(), sh.Bindings())
	maxGroup := -1
	for g := range descriptors {
		maxGroup = max(maxGroup, g)
	}
	p := &wgpuPipeline{
		layouts:  make([]*wgpu.BindGroupLayout, maxGroup+1),
		bindings: sh.Bindings(),
	}
	for g := 0; g <= maxGroup; g++ {
		desc := descriptors[g]
		layout, layoutErr := d.device.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			p.release()
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		p.layouts[g] = layout
	}

	pipelineLayout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            sh.Key(),
		BindGroupLayouts: p.layouts,
	})
	if err != nil {
		p.release()
		return nil, err
	}
	defer pipelineLayout.Release()

	var buffers []wgpu.VertexBufferLayout
	if !key.fullscreen {
		buffers = []wgpu.VertexBufferLayout{meshVertexLayout}
	}

	target := wgpu.ColorTargetState{
		Format:    key.format,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	if key.blend {
		target.Blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  sh.Key() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: sh.EntryPoint(shader.StageVertex),
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: sh.EntryPoint(shader.StageFragment),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  toWGPUCullMode(key.cull),
		},
		Multisample: wgpu.MultisampleState{
			Count: key.samples,
			Mask:  0xFFFFFFFF,
		},
	}
	if key.hasDepth {
		compare := wgpu.CompareFunctionLess
		if !key.depthTest {
			compare = wgpu.CompareFunctionAlways
		}
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: key.depthWrite,
			DepthCompare:      compare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	created, err := d.device.CreateRenderPipeline(desc)
	if err != nil {
		p.release()
		return nil, fmt.Errorf("failed to create pipeline for %q: %w", sh.Path(), err)
	}
	p.pipeline = created
	d.pipelines[key] = p
	return p, nil
}

// bindGroupLayoutDescriptors groups the declared bindings into one layout descriptor per group.
// Every binding is visible to both the vertex and fragment stage.
func bindGroupLayoutDescriptors(label string, bindings []shader.Binding) map[int]wgpu.BindGroupLayoutDescriptor {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	for _, b := range bindings {
		groups[b.Group] = append(groups[b.Group], layoutEntry(b, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment))
	}

	out := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
		out[g] = wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", label, g),
			Entries: entries,
		}
	}
	return out
}

// layoutEntry classifies a binding into a layout entry.
func layoutEntry(b shader.Binding, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    uint32(b.Binding),
		Visibility: visibility,
	}
	switch b.Kind {
	case shader.BindingUniform:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case shader.BindingStorage:
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	case shader.BindingSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case shader.BindingTexture:
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
		entry.Texture.Multisampled = strings.HasPrefix(b.Type, "texture_multisampled")
	}
	return entry
}
