package rhi

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/camera"
	"github.com/Carmen-Shannon/oxy-scene/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuCommandBuffer struct {
	d       *wgpuDevice
	encoder *wgpu.CommandEncoder

	surfaceTexture *wgpu.Texture
	surfaceView    *wgpu.TextureView

	pass        *wgpu.RenderPassEncoder
	passFormat  wgpu.TextureFormat
	passSamples uint32
	passDepth   bool

	// per-draw buffers and bind groups live until the frame is submitted
	buffers []*wgpu.Buffer
	groups  []*wgpu.BindGroup

	err error
}

var _ CommandBuffer = &wgpuCommandBuffer{}

// passAttachment is the resolved color and depth state of a pass.
type passAttachment struct {
	view    *wgpu.TextureView
	resolve *wgpu.TextureView
	depth   *wgpu.TextureView
	format  wgpu.TextureFormat
	samples uint32
}

func (c *wgpuCommandBuffer) fail(err error) {
	common.Logger().Error("rhi: frame command failed", "error", err)
	if c.err == nil {
		c.err = err
	}
}

// attachment resolves rt, or the surface when rt is nil. ok is false when the target cannot be drawn to.
func (c *wgpuCommandBuffer) attachment(rt RenderTarget, withDepth bool) (passAttachment, bool) {
	if rt == nil {
		if c.surfaceView == nil {
			return passAttachment{}, false
		}
		a := passAttachment{view: c.surfaceView, format: c.d.surfaceFormat, samples: 1}
		if withDepth && c.d.surfaceDepth != nil && c.d.surfaceDepth.view != nil {
			a.depth = c.d.surfaceDepth.view
		}
		return a, true
	}

	target, ok := rt.(*wgpuRenderTarget)
	if !ok || !target.valid || target.color.view == nil {
		c.fail(fmt.Errorf("rhi: render target is not a built WebGPU target"))
		return passAttachment{}, false
	}
	a := passAttachment{
		view:    target.color.view,
		format:  toWGPUFormat(target.color.format),
		samples: 1,
	}
	if target.colorBuffer != nil {
		a.view = target.colorBuffer.view
		a.resolve = target.color.view
		a.samples = uint32(target.colorBuffer.samples)
	}
	if withDepth && target.depth != nil {
		a.depth = target.depth.view
	}
	return a, true
}

func (c *wgpuCommandBuffer) beginPass(a passAttachment, clear common.Color, depth float32) {
	c.endPass()

	storeOp := wgpu.StoreOpStore
	if a.resolve != nil {
		storeOp = wgpu.StoreOpDiscard
	}
	desc := &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          a.view,
				ResolveTarget: a.resolve,
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       storeOp,
				ClearValue:    clear.ToWGPU(),
			},
		},
	}
	if a.depth != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            a.depth,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: depth,
		}
	}
	c.pass = c.encoder.BeginRenderPass(desc)
	c.passFormat = a.format
	c.passSamples = a.samples
	c.passDepth = a.depth != nil
}

func (c *wgpuCommandBuffer) BeginPass(rt RenderTarget, clear common.Color, depth float32) {
	a, ok := c.attachment(rt, true)
	if !ok {
		c.endPass()
		return
	}
	c.beginPass(a, clear, depth)
}

func (c *wgpuCommandBuffer) EndPass() { c.endPass() }

func (c *wgpuCommandBuffer) endPass() {
	if c.pass == nil {
		return
	}
	c.pass.End()
	c.pass.Release()
	c.pass = nil
}

func (c *wgpuCommandBuffer) Draw(item DrawItem) {
	if c.pass == nil || len(item.Instances) == 0 {
		return
	}
	mesh, ok := item.Mesh.(*wgpuMesh)
	if !ok || mesh.vertex == nil {
		return
	}

	sh, err := c.modelShader(item)
	if err != nil {
		if common.WarnOnce("rhi.shader."+item.ShaderKey, "falling back to the unlit shader", "shader", item.ShaderKey, "error", err) {
			c.fail(err)
		}
		sh, _ = c.d.library.Lookup(shader.BuiltinUnlit)
	}
	p, err := c.d.pipelineFor(sh, pipelineKey{
		shaderKey:  sh.Key(),
		format:     c.passFormat,
		samples:    c.passSamples,
		cull:       item.CullMode,
		depthTest:  item.DepthTest,
		depthWrite: item.DepthWrite,
		blend:      item.Blend,
		hasDepth:   c.passDepth,
	})
	if err != nil {
		c.fail(err)
		return
	}

	textured := false
	view := c.d.white.view
	if tex, ok := item.Texture.(*wgpuTexture); ok && tex.view != nil {
		view, textured = tex.view, true
	}
	frame := camera.NewGPUFrameUniform(item.ViewProjection, item.Color, textured)

	uniform, err := c.transientBuffer(item.Label+" Frame", frame.Marshal(), wgpu.BufferUsageUniform)
	if err != nil {
		c.fail(err)
		return
	}
	instances, err := c.transientBuffer(item.Label+" Instances", common.SliceToBytes(item.Instances), wgpu.BufferUsageStorage)
	if err != nil {
		c.fail(err)
		return
	}

	groups, err := c.bindGroups(p, item.Label, map[[2]int]wgpu.BindGroupEntry{
		{0, 0}: {Binding: 0, Buffer: uniform, Offset: 0, Size: wgpu.WholeSize},
		{0, 1}: {Binding: 1, Buffer: instances, Offset: 0, Size: wgpu.WholeSize},
		{1, 0}: {Binding: 0, TextureView: view},
		{1, 1}: {Binding: 1, Sampler: c.d.sampler},
	})
	if err != nil {
		c.fail(err)
		return
	}

	c.pass.SetPipeline(p.pipeline)
	for i, bg := range groups {
		c.pass.SetBindGroup(uint32(i), bg, nil)
	}
	c.pass.SetVertexBuffer(0, mesh.vertex, 0, wgpu.WholeSize)
	c.pass.SetIndexBuffer(mesh.index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	c.pass.DrawIndexed(uint32(mesh.count), uint32(len(item.Instances)), 0, 0, 0)
}

func (c *wgpuCommandBuffer) modelShader(item DrawItem) (shader.Shader, error) {
	if item.ShaderKey == "" {
		sh, _ := c.d.library.Lookup(shader.BuiltinUnlit)
		return sh, nil
	}
	if item.ShaderSource != "" {
		return c.d.library.Register(item.ShaderKey, shader.ModelPrelude+item.ShaderSource)
	}
	if sh, ok := c.d.library.Lookup(item.ShaderKey); ok {
		return sh, nil
	}
	return nil, fmt.Errorf("rhi: shader %q is not registered", item.ShaderKey)
}

func (c *wgpuCommandBuffer) Blend(dst RenderTarget, frame, accum Texture, factors [2]float32) {
	acc, ok := accum.(*wgpuTexture)
	if !ok || acc.view == nil {
		c.fail(fmt.Errorf("rhi: blend accumulator is not a built WebGPU texture"))
		return
	}
	sh, _ := c.d.library.Lookup(shader.BuiltinBlend)
	c.fullscreen(dst, sh, frame, acc, []float32{factors[0], factors[1]})
}

func (c *wgpuCommandBuffer) CopyTexture(dst, src Texture) {
	to, ok := dst.(*wgpuTexture)
	if !ok || to.view == nil {
		c.fail(fmt.Errorf("rhi: copy destination is not a built WebGPU texture"))
		return
	}
	rt := &wgpuRenderTarget{label: to.label, color: to, size: to.size, valid: true}
	sh, _ := c.d.library.Lookup(shader.BuiltinBlit)
	c.fullscreen(rt, sh, src, nil, nil)
}

func (c *wgpuCommandBuffer) Downsample(dst RenderTarget, src Texture) {
	sh, _ := c.d.library.Lookup(shader.BuiltinDownsample)
	c.fullscreen(dst, sh, src, nil, nil)
}

func (c *wgpuCommandBuffer) RunEffectPass(dst RenderTarget, src Texture, pass EffectPassDesc) {
	var (
		sh  shader.Shader
		err error
	)
	if pass.Source != "" {
		sh, err = c.d.library.Register(pass.ShaderKey, shader.FullscreenPrelude+pass.Source)
	} else if found, ok := c.d.library.Lookup(pass.ShaderKey); ok {
		sh = found
	} else {
		err = fmt.Errorf("rhi: effect shader %q is not registered", pass.ShaderKey)
	}
	if err != nil {
		if common.WarnOnce("rhi.effect."+pass.ShaderKey, "skipping effect pass", "shader", pass.ShaderKey, "error", err) {
			c.fail(err)
		}
		sh, _ = c.d.library.Lookup(shader.BuiltinBlit)
		c.fullscreen(dst, sh, src, nil, nil)
		return
	}
	c.fullscreen(dst, sh, src, nil, pass.Uniforms)
}

// fullscreen draws one full-screen triangle sampling src into dst in its own pass.
func (c *wgpuCommandBuffer) fullscreen(dst RenderTarget, sh shader.Shader, src Texture, accum *wgpuTexture, params []float32) {
	from, ok := src.(*wgpuTexture)
	if !ok || from.view == nil {
		c.fail(fmt.Errorf("rhi: full-screen source is not a built WebGPU texture"))
		return
	}
	a, ok := c.attachment(dst, false)
	if !ok {
		return
	}
	c.beginPass(a, common.Transparent, 1)
	defer c.endPass()

	p, err := c.d.pipelineFor(sh, pipelineKey{
		shaderKey:  sh.Key(),
		format:     a.format,
		samples:    a.samples,
		cull:       CullNone,
		fullscreen: true,
	})
	if err != nil {
		c.fail(err)
		return
	}

	var values [16]float32
	copy(values[:], params)
	uniform, err := c.transientBuffer(sh.Path()+" Params", common.SliceToBytes(values[:]), wgpu.BufferUsageUniform)
	if err != nil {
		c.fail(err)
		return
	}
	entries := map[[2]int]wgpu.BindGroupEntry{
		{0, 0}: {Binding: 0, TextureView: from.view},
		{0, 1}: {Binding: 1, Sampler: c.d.sampler},
		{0, 2}: {Binding: 2, Buffer: uniform, Offset: 0, Size: wgpu.WholeSize},
	}
	if accum != nil {
		entries[[2]int{0, 3}] = wgpu.BindGroupEntry{Binding: 3, TextureView: accum.view}
	}
	groups, err := c.bindGroups(p, sh.Path(), entries)
	if err != nil {
		c.fail(err)
		return
	}

	c.pass.SetPipeline(p.pipeline)
	for i, bg := range groups {
		c.pass.SetBindGroup(uint32(i), bg, nil)
	}
	c.pass.Draw(3, 1, 0, 0)
}

func (c *wgpuCommandBuffer) transientBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := c.d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %q: %w", label, err)
	}
	c.d.queue.WriteBuffer(buf, 0, data)
	c.buffers = append(c.buffers, buf)
	return buf, nil
}

// bindGroups creates one bind group per layout of p from resources keyed by group and binding.
// A binding the shader declares but resources lacks is an error.
func (c *wgpuCommandBuffer) bindGroups(p *wgpuPipeline, label string, resources map[[2]int]wgpu.BindGroupEntry) ([]*wgpu.BindGroup, error) {
	entries := make([][]wgpu.BindGroupEntry, len(p.layouts))
	for _, b := range p.bindings {
		e, ok := resources[[2]int{b.Group, b.Binding}]
		if !ok {
			return nil, fmt.Errorf("rhi: %s declares unsupported binding %s at group %d binding %d", label, b.Name, b.Group, b.Binding)
		}
		entries[b.Group] = append(entries[b.Group], e)
	}

	groups := make([]*wgpu.BindGroup, len(p.layouts))
	for g, layout := range p.layouts {
		bg, err := c.d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s group %d", label, g),
			Layout:  layout,
			Entries: entries[g],
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bind group %d for %s: %w", g, label, err)
		}
		c.groups = append(c.groups, bg)
		groups[g] = bg
	}
	return groups, nil
}

func (c *wgpuCommandBuffer) release() {
	c.endPass()
	for _, bg := range c.groups {
		bg.Release()
	}
	for _, buf := range c.buffers {
		buf.Release()
	}
	c.groups, c.buffers = nil, nil
	c.encoder.Release()
	if c.surfaceView != nil {
		c.surfaceView.Release()
		c.surfaceView = nil
	}
	if c.surfaceTexture != nil {
		c.surfaceTexture.Release()
		c.surfaceTexture = nil
	}
}
