package object

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
)

// TextureData is raw RGBA8 pixel content that Textures sample.
type TextureData struct {
	ObjectBase

	width   int
	height  int
	pixels  []byte
	version uint64
}

// NewTextureData creates texture data from RGBA8 pixels.
//
// Parameters:
//   - width, height: the pixel size
//   - pixels: width*height*4 bytes
//
// Returns:
//   - *TextureData: the new texture data
func NewTextureData(width, height int, pixels []byte) *TextureData {
	td := &TextureData{width: width, height: height, pixels: pixels, version: 1}
	td.ObjectBase = newBase(td, graph.TypeTextureData)
	return td
}

// SetPixels replaces the content.
func (td *TextureData) SetPixels(width, height int, pixels []byte) {
	td.mu.Lock()
	td.width, td.height, td.pixels = width, height, pixels
	td.version++
	td.mu.Unlock()
	td.MarkDirty(DirtyContent)
}

func (td *TextureData) UpdateGraphObject(ctx *UpdateContext, existing graph.Object) graph.Object {
	if !ctx.Ready() {
		return nil
	}
	g, ok := existing.(*graph.TextureData)
	if !ok {
		g = graph.NewTextureData()
	}
	td.mu.Lock()
	defer td.mu.Unlock()
	g.Width, g.Height, g.Pixels, g.Version = td.width, td.height, td.pixels, td.version
	return g
}

// Texture is a sampled image. Its pixels come from TextureData or from a 2D subscene.
type Texture struct {
	ObjectBase

	source     *TextureData
	sourceItem *Item2D
	sampler    common.SamplerStagingData
	mipmaps    bool
	flipV      bool
}

var _ Referencer = &Texture{}

// NewTexture creates a texture.
//
// Parameters:
//   - options: functional options applied in order
//
// Returns:
//   - *Texture: the new texture
func NewTexture(options ...TextureBuilderOption) *Texture {
	t := &Texture{}
	t.ObjectBase = newBase(t, graph.TypeImage)
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *Texture) SetSource(td *TextureData) {
	t.mu.Lock()
	t.source = td
	mgr := t.manager
	t.mu.Unlock()
	if td != nil {
		td.addDependent(t)
		if mgr != nil {
			td.AttachTo(mgr)
		}
	}
	t.MarkDirty(DirtySource)
}

// SetSourceItem makes a 2D subscene the content of this texture.
func (t *Texture) SetSourceItem(item *Item2D) {
	t.mu.Lock()
	t.sourceItem = item
	t.mu.Unlock()
	if item != nil {
		item.addDependent(t)
	}
	t.MarkDirty(DirtySource)
}

func (t *Texture) SetSampler(s common.SamplerStagingData) {
	t.mu.Lock()
	t.sampler = s
	t.mu.Unlock()
	t.MarkDirty(DirtyContent)
}

func (t *Texture) References() []Object {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.source == nil {
		return nil
	}
	return []Object{t.source}
}

// UpdateGraphObject returns nil while a source subscene has no backend node yet. The subscene notifies
// this texture once its node exists.
func (t *Texture) UpdateGraphObject(ctx *UpdateContext, existing graph.Object) graph.Object {
	if !ctx.Ready() {
		return nil
	}
	t.mu.Lock()
	source, item := t.source, t.sourceItem
	sampler, mipmaps, flipV := t.sampler, t.mipmaps, t.flipV
	t.mu.Unlock()

	var itemHandle graph.Handle
	if item != nil {
		itemHandle = item.Handle()
		if !ctx.Arena.Contains(itemHandle) {
			return nil
		}
	}

	img, ok := existing.(*graph.Image)
	if !ok {
		img = graph.NewImage()
	}
	img.Source = graph.Handle{}
	if source != nil {
		img.Source = source.Handle()
	}
	img.Subscene = itemHandle
	img.Sampler = sampler
	img.Mipmaps = mipmaps
	img.FlipV = flipV
	return img
}

// Material describes surface shading.
type Material struct {
	ObjectBase

	kind         graph.MaterialKind
	baseColor    common.Color
	opacity      float32
	metalness    float32
	roughness    float32
	baseColorMap *Texture
	cull         graph.CullMode
	unlit        bool
	shaderPath   string
	shaderSource string
}

var _ Referencer = &Material{}

// NewMaterial creates an opaque white material.
//
// Parameters:
//   - kind: default, principled or custom shading
//   - options: functional options applied in order
//
// Returns:
//   - *Material: the new material
func NewMaterial(kind graph.MaterialKind, options ...MaterialBuilderOption) *Material {
	m := &Material{
		kind:      kind,
		baseColor: common.Color{R: 1, G: 1, B: 1, A: 1},
		opacity:   1,
		roughness: 0.5,
	}
	m.ObjectBase = newBase(m, graph.TypeMaterial)
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *Material) SetBaseColor(c common.Color) {
	m.mu.Lock()
	m.baseColor = c
	m.mu.Unlock()
	m.MarkDirty(DirtyContent)
}

func (m *Material) SetOpacity(o float32) {
	m.mu.Lock()
	m.opacity = o
	m.mu.Unlock()
	m.MarkDirty(DirtyContent)
}

func (m *Material) SetBaseColorMap(t *Texture) {
	m.mu.Lock()
	m.baseColorMap = t
	mgr := m.manager
	m.mu.Unlock()
	if t != nil {
		t.addDependent(m)
		if mgr != nil {
			t.AttachTo(mgr)
		}
	}
	m.MarkDirty(DirtyMaterial)
}

func (m *Material) BaseColorMap() *Texture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseColorMap
}

// SetShader sets the fragment snippet of a custom material.
func (m *Material) SetShader(path, source string) {
	m.mu.Lock()
	m.shaderPath, m.shaderSource = path, source
	m.mu.Unlock()
	m.MarkDirty(DirtyContent)
}

func (m *Material) References() []Object {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.baseColorMap == nil {
		return nil
	}
	return []Object{m.baseColorMap}
}

func (m *Material) UpdateGraphObject(ctx *UpdateContext, existing graph.Object) graph.Object {
	if !ctx.Ready() {
		return nil
	}
	gm, ok := existing.(*graph.Material)
	if !ok {
		gm = graph.NewMaterial(m.kind)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	gm.MaterialKind = m.kind
	gm.BaseColor = m.baseColor
	gm.Opacity = m.opacity
	gm.Metalness = m.metalness
	gm.Roughness = m.roughness
	gm.BaseColorMap = graph.Handle{}
	if m.baseColorMap != nil {
		gm.BaseColorMap = m.baseColorMap.Handle()
	}
	gm.Cull = m.cull
	gm.Unlit = m.unlit
	gm.ShaderPath = m.shaderPath
	gm.ShaderSource = m.shaderSource
	return gm
}

// Effect is a post-processing step made of full-screen passes.
type Effect struct {
	ObjectBase

	name          string
	passes        []graph.EffectPass
	requiresDepth bool
}

// NewEffect creates an effect from its passes.
//
// Parameters:
//   - name: a debug label
//   - passes: the passes in execution order
//
// Returns:
//   - *Effect: the new effect
func NewEffect(name string, passes ...graph.EffectPass) *Effect {
	e := &Effect{name: name, passes: passes}
	e.ObjectBase = newBase(e, graph.TypeEffect)
	return e
}

func (e *Effect) SetPasses(passes ...graph.EffectPass) {
	e.mu.Lock()
	e.passes = passes
	e.mu.Unlock()
	e.MarkDirty(DirtyContent)
}

func (e *Effect) SetRequiresDepth(v bool) {
	e.mu.Lock()
	e.requiresDepth = v
	e.mu.Unlock()
	e.MarkDirty(DirtyContent)
}

// UpdateGraphObject leaves NextEffect alone; the chain belongs to the layer.
func (e *Effect) UpdateGraphObject(ctx *UpdateContext, existing graph.Object) graph.Object {
	if !ctx.Ready() {
		return nil
	}
	ge, ok := existing.(*graph.Effect)
	if !ok {
		ge = graph.NewEffect()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ge.Name = e.name
	ge.Passes = append(ge.Passes[:0], e.passes...)
	ge.RequiresDepth = e.requiresDepth
	return ge
}

// Geometry is custom mesh data.
type Geometry struct {
	ObjectBase

	positions []float32
	normals   []float32
	uvs       []float32
	indices   []uint32
	version   uint64
}

// NewGeometry creates geometry from flat attribute arrays.
//
// Parameters:
//   - positions: xyz triples
//   - normals: xyz triples, may be nil
//   - uvs: uv pairs, may be nil
//   - indices: triangle list indices
//
// Returns:
//   - *Geometry: the new geometry
func NewGeometry(positions, normals, uvs []float32, indices []uint32) *Geometry {
	g := &Geometry{positions: positions, normals: normals, uvs: uvs, indices: indices, version: 1}
	g.ObjectBase = newBase(g, graph.TypeGeometry)
	return g
}

func (g *Geometry) SetData(positions, normals, uvs []float32, indices []uint32) {
	g.mu.Lock()
	g.positions, g.normals, g.uvs, g.indices = positions, normals, uvs, indices
	g.version++
	g.mu.Unlock()
	g.MarkDirty(DirtyGeometry)
}

func (g *Geometry) UpdateGraphObject(ctx *UpdateContext, existing graph.Object) graph.Object {
	if !ctx.Ready() {
		return nil
	}
	gg, ok := existing.(*graph.Geometry)
	if !ok {
		gg = graph.NewGeometry()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	gg.Positions, gg.Normals, gg.UVs, gg.Indices = g.positions, g.normals, g.uvs, g.indices
	gg.Version = g.version
	return gg
}

// ResourceLoader asks for its resources to be made resident before they are first drawn.
type ResourceLoader struct {
	ObjectBase

	resources []Object
}

var _ Referencer = &ResourceLoader{}

// NewResourceLoader creates a loader for the given textures, texture data and geometries.
//
// Parameters:
//   - resources: the resources to keep resident
//
// Returns:
//   - *ResourceLoader: the new loader
func NewResourceLoader(resources ...Object) *ResourceLoader {
	rl := &ResourceLoader{}
	rl.ObjectBase = newBase(rl, graph.TypeResourceLoader)
	rl.SetResources(resources...)
	return rl
}

func (rl *ResourceLoader) SetResources(resources ...Object) {
	rl.mu.Lock()
	rl.resources = append([]Object(nil), resources...)
	mgr := rl.manager
	rl.mu.Unlock()
	for _, r := range resources {
		if r == nil {
			continue
		}
		r.Base().addDependent(rl)
		if mgr != nil {
			r.Base().AttachTo(mgr)
		}
	}
	rl.MarkDirty(DirtyContent)
}

func (rl *ResourceLoader) References() []Object {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	out := make([]Object, len(rl.resources))
	copy(out, rl.resources)
	return out
}

// UpdateGraphObject lists only resources that already have a backend object. Resources produced
// later notify the loader, which then runs again.
func (rl *ResourceLoader) UpdateGraphObject(ctx *UpdateContext, existing graph.Object) graph.Object {
	if !ctx.Ready() {
		return nil
	}
	g, ok := existing.(*graph.ResourceLoader)
	if !ok {
		g = graph.NewResourceLoader()
	}
	g.Resources = g.Resources[:0]
	for _, r := range rl.References() {
		if r == nil || r.Base().Destroyed() {
			continue
		}
		if h := handleOf(r); ctx.Arena.Contains(h) {
			g.Resources = append(g.Resources, h)
		}
	}
	return g
}
