package graph

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ProjectionKind selects a camera's projection.
type ProjectionKind uint8

const (
	ProjectionPerspective ProjectionKind = iota
	ProjectionOrthographic
)

// Camera is a view into the scene. The view matrix is the inverse of the node's Global transform.
type Camera struct {
	Node

	Projection ProjectionKind
	// FieldOfView is the vertical field of view in degrees for perspective cameras.
	FieldOfView float32
	// Magnification scales the orthographic view volume; 1 maps one unit to one pixel.
	Magnification float32
	ClipNear      float32
	ClipFar       float32
	// FrustumCulling enables per-model culling against this camera.
	FrustumCulling bool
}

// NewCamera creates a perspective camera with a 60 degree field of view.
func NewCamera() *Camera {
	c := &Camera{
		FieldOfView:   60,
		Magnification: 1,
		ClipNear:      0.1,
		ClipFar:       10000,
	}
	initNode(&c.Node, TypeCamera)
	return c
}

// LightKind is the kind of light source.
type LightKind uint8

const (
	LightDirectional LightKind = iota
	LightPoint
	LightSpot
)

// Light is a light source. A valid Scope limits the light to that node's subtree.
type Light struct {
	Node

	LightKind  LightKind
	Color      common.Color
	Brightness float32
	// Scope restricts the light to a subtree, or lights everything when zero.
	Scope        Handle
	CastsShadow  bool
	ConeAngle    float32
	InnerCone    float32
	Range        float32
	BakeMode     BakeMode
	ShadowFactor float32
}

// BakeMode controls whether a light contributes to baked lightmaps.
type BakeMode uint8

const (
	BakeDisabled BakeMode = iota
	BakeIndirect
	BakeAll
)

// NewLight creates a white light of the given kind.
func NewLight(kind LightKind) *Light {
	l := &Light{
		LightKind:    kind,
		Color:        common.Color{R: 1, G: 1, B: 1, A: 1},
		Brightness:   1,
		ConeAngle:    40,
		InnerCone:    30,
		Range:        1000,
		ShadowFactor: 75,
	}
	initNode(&l.Node, TypeLight)
	return l
}

// Direction returns the world-space direction the light points along (its local -Z axis).
func (l *Light) Direction() mgl32.Vec3 {
	d := l.Global.Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3()
	if d.Len() == 0 {
		return mgl32.Vec3{0, 0, -1}
	}
	return d.Normalize()
}

// Model is a drawable mesh with materials.
type Model struct {
	Node

	// Geometry is a custom mesh resource. When zero, Source names a built-in mesh such as "#Cube".
	Geometry Handle
	Source   string
	// Materials are applied per submesh; the last one repeats.
	Materials []Handle
	// Instances are per-instance transforms in InstanceRoot space. An empty list draws a single instance.
	Instances []mgl32.Mat4
	// Bounds is the local-space bounding box, filled in by the buffer manager.
	Bounds common.AABB

	Opacity             float32
	CastsShadows        bool
	ReceivesShadows     bool
	UsedInBakedLighting bool
	// Lighting receives the per-vertex lighting produced by the lightmap baker.
	Lighting []common.Color
}

// NewModel creates an empty model.
func NewModel() *Model {
	m := &Model{
		Opacity:         1,
		CastsShadows:    true,
		ReceivesShadows: true,
		Bounds:          common.EmptyAABB(),
	}
	initNode(&m.Node, TypeModel)
	m.Pickable = false
	return m
}

// MeshKey returns the key the buffer manager stores the model's mesh under.
// Custom geometry is keyed by its handle so two models sharing a Geometry share the mesh.
func (m *Model) MeshKey() string {
	if m.Geometry.IsValid() {
		return m.Geometry.String()
	}
	return m.Source
}

// InstanceCount returns how many times the model is drawn.
func (m *Model) InstanceCount() int {
	if len(m.Instances) == 0 {
		return 1
	}
	return len(m.Instances)
}

// WorldInstances returns the world transform of every drawn instance. Instance transforms are
// composed with the Global of the model's InstanceRoot, or with the model's own Global when it
// is its own root or has none.
//
// Parameters:
//   - m: the model
//
// Returns:
//   - []mgl32.Mat4: one transform per instance, never empty
func (a *Arena) WorldInstances(m *Model) []mgl32.Mat4 {
	if len(m.Instances) == 0 {
		return []mgl32.Mat4{m.Global}
	}
	base := m.Global
	if m.InstanceRoot.IsValid() && m.InstanceRoot != m.Handle() {
		if root := SpatialOf(a, m.InstanceRoot); root != nil {
			base = root.Global
		}
	}
	out := make([]mgl32.Mat4, len(m.Instances))
	for i, inst := range m.Instances {
		out[i] = base.Mul4(inst)
	}
	return out
}

// Transform returns the world transform of the item's rectangle: Global scaled so the 100 unit
// built-in rectangle spans Size units.
func (it *Item2D) Transform() mgl32.Mat4 {
	return it.Global.Mul4(mgl32.Scale3D(float32(it.Size.Width)/100, float32(it.Size.Height)/100, 1))
}

// Item2D is a 2D subscene placed in 3D space. It is drawn as a rectangle of Size units centered
// on the node origin, and picking it yields a position in the subscene's own pixel space.
type Item2D struct {
	Node

	// Size is the subscene size in pixels.
	Size common.Size
	// Texture is the image the subscene renders into, or the zero Handle.
	Texture Handle
}

// NewItem2D creates a 2D subscene proxy.
func NewItem2D(size common.Size) *Item2D {
	it := &Item2D{Size: size}
	initNode(&it.Node, TypeItem2D)
	return it
}
