package renderer

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/buffer_manager"
	"github.com/Carmen-Shannon/oxy-scene/engine/camera"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/light"
	"github.com/Carmen-Shannon/oxy-scene/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/Carmen-Shannon/oxy-scene/engine/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// renderable is one draw with its sort key.
type renderable struct {
	item  rhi.DrawItem
	depth float32
}

// renderList is the prepared content of one frame.
type renderList struct {
	opaque      []renderable
	transparent []renderable
}

// Draws returns the draws in submission order: opaque front to back, then transparent back to front.
func (l *renderList) Draws() []rhi.DrawItem {
	out := make([]rhi.DrawItem, 0, len(l.opaque)+len(l.transparent))
	for _, r := range l.opaque {
		out = append(out, r.item)
	}
	for _, r := range l.transparent {
		out = append(out, r.item)
	}
	return out
}

// listBuilder collects the draws of a layer.
type listBuilder struct {
	arena   *graph.Arena
	layer   *graph.Layer
	buffers *buffer_manager.BufferManager
	library *shader.Library
	proj    camera.Projection
	cull    bool
	// tonemap is applied to draw colors when no effect chain runs.
	tonemap Tonemapper

	frustum common.Frustum
	list    renderList
}

// discover walks the layer and returns the first visible camera and every visible light.
func discover(arena *graph.Arena, layerH graph.Handle) (graph.Handle, []graph.Handle) {
	var (
		cam    graph.Handle
		lights []graph.Handle
	)
	arena.Walk(layerH, func(h graph.Handle, n graph.Spatial) bool {
		if !n.SpatialNode().Visible {
			return false
		}
		switch n.(type) {
		case *graph.Camera:
			if !cam.IsValid() {
				cam = h
			}
		case *graph.Light:
			lights = append(lights, h)
		}
		return true
	})
	return cam, lights
}

func (b *listBuilder) build(layerH graph.Handle) renderList {
	b.frustum = b.proj.Frustum()
	b.arena.Walk(layerH, func(h graph.Handle, n graph.Spatial) bool {
		if !n.SpatialNode().Visible {
			return false
		}
		switch obj := n.(type) {
		case *graph.Model:
			b.addModel(h, obj)
		case *graph.Item2D:
			b.addItem2D(obj)
		}
		return true
	})

	sort.SliceStable(b.list.opaque, func(i, j int) bool {
		return b.list.opaque[i].depth < b.list.opaque[j].depth
	})
	sort.SliceStable(b.list.transparent, func(i, j int) bool {
		return b.list.transparent[i].depth > b.list.transparent[j].depth
	})
	return b.list
}

func (b *listBuilder) addModel(h graph.Handle, model *graph.Model) {
	mesh, ok := b.buffers.ModelMesh(b.arena, model)
	if !ok {
		common.WarnOnce("renderer.mesh."+model.MeshKey(), "Model mesh is unknown, skipping draw", "model", h, "mesh", model.MeshKey())
		return
	}
	instances := b.arena.WorldInstances(model)
	bounds := common.EmptyAABB()
	for _, inst := range instances {
		bounds = bounds.Union(mesh.Bounds.Transform(inst))
	}
	if b.cull && !b.frustum.IntersectsAABB(bounds) {
		return
	}

	var mat *graph.Material
	if len(model.Materials) > 0 {
		mat, _ = graph.Lookup[*graph.Material](b.arena, model.Materials[0])
	}
	settings, ok := material.Prepare(b.library, mat)
	if !ok {
		return
	}
	gpuMesh, err := b.buffers.RenderMesh(mesh.Key)
	if err != nil {
		common.WarnOnce("renderer.upload."+mesh.Key, "Failed to upload model mesh", "mesh", mesh.Key, "error", err)
		return
	}

	center := bounds.Center()
	color := settings.Color
	if mat == nil || !mat.Unlit {
		color = b.shade(h, model, color, center, bounds)
	}
	color.A *= common.Clamp(model.Opacity, 0, 1)
	color = b.fog(color, center)
	if b.tonemap != nil {
		color = b.tonemap(color)
	}

	transparent := settings.Transparent || color.A < 1
	item := rhi.DrawItem{
		Label:          model.Name,
		Mesh:           gpuMesh,
		Instances:      instances,
		ViewProjection: b.proj.ViewProjection,
		Color:          color,
		ShaderKey:      settings.ShaderKey,
		ShaderSource:   settings.ShaderSource,
		CullMode:       settings.CullMode,
		DepthTest:      b.layer.DepthTestEnabled,
		DepthWrite:     b.layer.DepthTestEnabled && !transparent,
		Blend:          transparent,
	}
	if settings.BaseColorMap.IsValid() {
		item.Texture = b.texture(settings.BaseColorMap)
	}
	b.push(item, center, transparent)
}

func (b *listBuilder) addItem2D(it *graph.Item2D) {
	if !it.Texture.IsValid() || it.Size.Empty() {
		return
	}
	tex := b.texture(it.Texture)
	if tex == nil {
		return
	}
	gpuMesh, err := b.buffers.RenderMesh(buffer_manager.MeshRectangle)
	if err != nil {
		common.WarnOnce("renderer.upload."+buffer_manager.MeshRectangle, "Failed to upload subscene rectangle", "error", err)
		return
	}
	world := it.Transform()
	item := rhi.DrawItem{
		Label:          it.Name,
		Mesh:           gpuMesh,
		Instances:      []mgl32.Mat4{world},
		ViewProjection: b.proj.ViewProjection,
		Color:          common.Color{R: 1, G: 1, B: 1, A: 1},
		Texture:        tex,
		CullMode:       rhi.CullNone,
		DepthTest:      b.layer.DepthTestEnabled,
		Blend:          true,
	}
	b.push(item, world.Col(3).Vec3(), true)
}

func (b *listBuilder) push(item rhi.DrawItem, center mgl32.Vec3, transparent bool) {
	r := renderable{item: item, depth: center.Sub(b.proj.Position).Len()}
	if transparent {
		b.list.transparent = append(b.list.transparent, r)
	} else {
		b.list.opaque = append(b.list.opaque, r)
	}
}

func (b *listBuilder) texture(h graph.Handle) rhi.Texture {
	tex, err := b.buffers.LoadRenderImage(b.arena, h)
	if err != nil {
		common.WarnOnce("renderer.image."+h.String(), "Failed to load image, drawing without it", "image", h, "error", err)
		return nil
	}
	return tex
}

// shade modulates a color by the direct light reaching the model center, facing the camera, plus
// any baked lighting. Fully baked lights are skipped for models that carry baked lighting. Models
// without lights in scope are left unlit.
func (b *listBuilder) shade(h graph.Handle, model *graph.Model, base common.Color, center mgl32.Vec3, bounds common.AABB) common.Color {
	lights := light.Collect(b.arena, b.layer.Lights, h)
	if len(lights) == 0 && len(model.Lighting) == 0 {
		return base
	}
	normal := b.proj.Position.Sub(center)
	if normal.Len() > 0 {
		normal = normal.Normalize()
	}
	baked := len(model.Lighting) > 0
	var lit common.Color
	for _, l := range lights {
		if l.Baked && baked {
			continue
		}
		if l.Affects(bounds) {
			lit = lit.Add(l.Lambert(center, normal))
		}
	}
	if baked {
		var sum common.Color
		for _, c := range model.Lighting {
			sum = sum.Add(c)
		}
		lit = lit.Add(sum.Scale(1 / float32(len(model.Lighting))))
	}
	return common.Color{R: base.R * lit.R, G: base.G * lit.G, B: base.B * lit.B, A: base.A}
}

// fog blends a color toward the fog color by the linear fog factor at p.
func (b *listBuilder) fog(c common.Color, p mgl32.Vec3) common.Color {
	f := b.layer.Fog
	if !f.Enabled || f.Far <= f.Near {
		return c
	}
	t := common.Clamp((p.Sub(b.proj.Position).Len()-f.Near)/(f.Far-f.Near), 0, 1) * common.Clamp(f.Density, 0, 1)
	a := c.A
	out := c.Scale(1 - t).Add(f.Color.Scale(t))
	out.A = a
	return out
}
