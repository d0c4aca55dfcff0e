package buffer_manager

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Keys of the built-in primitive meshes. Every primitive spans 100 units.
const (
	MeshCube      = "#Cube"
	MeshSphere    = "#Sphere"
	MeshRectangle = "#Rectangle"
	MeshCone      = "#Cone"
	MeshCylinder  = "#Cylinder"
)

const (
	primitiveExtent   = 100
	primitiveSegments = 32
	sphereRings       = 16
)

// Mesh is CPU-side triangle data with its local bounding box. Positions and Normals hold three
// floats per vertex and UVs two.
type Mesh struct {
	Key       string
	Positions []float32
	Normals   []float32
	UVs       []float32
	Indices   []uint32
	Bounds    common.AABB
	// Version is the Geometry version the mesh was built from, zero for primitives.
	Version uint64
}

// NewMesh builds a mesh and computes its bounds. Missing normals and UVs are zero filled.
//
// Parameters:
//   - key: the buffer manager key
//   - positions: xyz per vertex
//   - normals: xyz per vertex, or nil
//   - uvs: uv per vertex, or nil
//   - indices: triangle list indices
//
// Returns:
//   - *Mesh: the new mesh
func NewMesh(key string, positions, normals, uvs []float32, indices []uint32) *Mesh {
	n := len(positions) / 3
	m := &Mesh{
		Key:       key,
		Positions: positions,
		Normals:   normals,
		UVs:       uvs,
		Indices:   indices,
		Bounds:    common.EmptyAABB(),
	}
	if len(m.Normals) < n*3 {
		m.Normals = append(m.Normals, make([]float32, n*3-len(m.Normals))...)
	}
	if len(m.UVs) < n*2 {
		m.UVs = append(m.UVs, make([]float32, n*2-len(m.UVs))...)
	}
	for i := 0; i < n; i++ {
		m.Bounds = m.Bounds.Expand(m.Vertex(i))
	}
	return m
}

// Validate checks that the indices form whole triangles over existing vertices.
//
// Returns:
//   - error: an ErrInvalidMesh wrap describing the first problem, or nil
func (m *Mesh) Validate() error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: %q has %d indices, not a multiple of 3", ErrInvalidMesh, m.Key, len(m.Indices))
	}
	n := uint32(m.VertexCount())
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("%w: %q index %d is %d, vertex count %d", ErrInvalidMesh, m.Key, i, idx, n)
		}
	}
	return nil
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i int) mgl32.Vec3 {
	return mgl32.Vec3{m.Positions[i*3], m.Positions[i*3+1], m.Positions[i*3+2]}
}

// UV returns the texture coordinate of vertex i.
func (m *Mesh) UV(i int) mgl32.Vec2 {
	return mgl32.Vec2{m.UVs[i*2], m.UVs[i*2+1]}
}

// Triangle returns the vertex indices of triangle t.
func (m *Mesh) Triangle(t int) (uint32, uint32, uint32) {
	return m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Interleaved returns the device vertex layout: position, normal, uv.
func (m *Mesh) Interleaved() rhi.MeshDesc {
	n := m.VertexCount()
	out := make([]float32, 0, n*rhi.VertexStride)
	for i := 0; i < n; i++ {
		out = append(out, m.Positions[i*3:i*3+3]...)
		out = append(out, m.Normals[i*3:i*3+3]...)
		out = append(out, m.UVs[i*2:i*2+2]...)
	}
	return rhi.MeshDesc{Label: m.Key, Vertices: out, Indices: m.Indices}
}

// meshBuilder accumulates vertices for the primitive generators.
type meshBuilder struct {
	positions []float32
	normals   []float32
	uvs       []float32
	indices   []uint32
}

func (b *meshBuilder) vertex(p, n mgl32.Vec3, u, v float32) uint32 {
	idx := uint32(len(b.positions) / 3)
	b.positions = append(b.positions, p[0], p[1], p[2])
	b.normals = append(b.normals, n[0], n[1], n[2])
	b.uvs = append(b.uvs, u, v)
	return idx
}

func (b *meshBuilder) triangle(a, c, d uint32) {
	b.indices = append(b.indices, a, c, d)
}

func (b *meshBuilder) build(key string) *Mesh {
	return NewMesh(key, b.positions, b.normals, b.uvs, b.indices)
}

// quad adds a square face centered at center facing n, spanned by u and v where u x v = n.
func (b *meshBuilder) quad(center, n, u, v mgl32.Vec3, half float32) {
	corner := func(su, sv float32) mgl32.Vec3 {
		return center.Add(u.Mul(su * half)).Add(v.Mul(sv * half))
	}
	i0 := b.vertex(corner(-1, -1), n, 0, 1)
	i1 := b.vertex(corner(1, -1), n, 1, 1)
	i2 := b.vertex(corner(1, 1), n, 1, 0)
	i3 := b.vertex(corner(-1, 1), n, 0, 0)
	b.triangle(i0, i1, i2)
	b.triangle(i0, i2, i3)
}

func cubeMesh() *Mesh {
	const half = primitiveExtent / 2
	b := &meshBuilder{}
	faces := []struct{ n, u, v mgl32.Vec3 }{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}
	for _, f := range faces {
		b.quad(f.n.Mul(half), f.n, f.u, f.v, half)
	}
	return b.build(MeshCube)
}

func rectangleMesh() *Mesh {
	b := &meshBuilder{}
	b.quad(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}, primitiveExtent/2)
	return b.build(MeshRectangle)
}

func sphereMesh() *Mesh {
	const radius = primitiveExtent / 2
	b := &meshBuilder{}
	for ring := 0; ring <= sphereRings; ring++ {
		phi := float32(ring) * math32.Pi / sphereRings
		sinPhi, cosPhi := math32.Sincos(phi)
		for seg := 0; seg <= primitiveSegments; seg++ {
			theta := float32(seg) * 2 * math32.Pi / primitiveSegments
			sinTheta, cosTheta := math32.Sincos(theta)
			n := mgl32.Vec3{sinPhi * cosTheta, cosPhi, sinPhi * sinTheta}
			b.vertex(n.Mul(radius), n, float32(seg)/primitiveSegments, float32(ring)/sphereRings)
		}
	}
	for ring := 0; ring < sphereRings; ring++ {
		for seg := 0; seg < primitiveSegments; seg++ {
			current := uint32(ring*(primitiveSegments+1) + seg)
			next := current + primitiveSegments + 1
			b.triangle(current, current+1, next)
			b.triangle(current+1, next+1, next)
		}
	}
	return b.build(MeshSphere)
}

// disc adds a disc at height y facing up or down.
func (b *meshBuilder) disc(radius, y float32, up bool) {
	n := mgl32.Vec3{0, -1, 0}
	if up {
		n = mgl32.Vec3{0, 1, 0}
	}
	center := b.vertex(mgl32.Vec3{0, y, 0}, n, 0.5, 0.5)
	first := uint32(len(b.positions) / 3)
	for i := 0; i <= primitiveSegments; i++ {
		sinT, cosT := math32.Sincos(float32(i) * 2 * math32.Pi / primitiveSegments)
		b.vertex(mgl32.Vec3{cosT * radius, y, sinT * radius}, n, 0.5+cosT*0.5, 0.5+sinT*0.5)
	}
	for i := uint32(0); i < primitiveSegments; i++ {
		if up {
			b.triangle(center, first+i+1, first+i)
		} else {
			b.triangle(center, first+i, first+i+1)
		}
	}
}

func cylinderMesh() *Mesh {
	const radius, half = primitiveExtent / 2, primitiveExtent / 2
	b := &meshBuilder{}
	for i := 0; i <= primitiveSegments; i++ {
		sinT, cosT := math32.Sincos(float32(i) * 2 * math32.Pi / primitiveSegments)
		n := mgl32.Vec3{cosT, 0, sinT}
		u := float32(i) / primitiveSegments
		b.vertex(mgl32.Vec3{cosT * radius, -half, sinT * radius}, n, u, 1)
		b.vertex(mgl32.Vec3{cosT * radius, half, sinT * radius}, n, u, 0)
	}
	for i := uint32(0); i < primitiveSegments; i++ {
		b0, t0 := i*2, i*2+1
		b1, t1 := b0+2, t0+2
		b.triangle(b0, t0, b1)
		b.triangle(b1, t0, t1)
	}
	b.disc(radius, half, true)
	b.disc(radius, -half, false)
	return b.build(MeshCylinder)
}

func coneMesh() *Mesh {
	const radius, half = primitiveExtent / 2, primitiveExtent / 2
	b := &meshBuilder{}
	for i := 0; i <= primitiveSegments; i++ {
		sinT, cosT := math32.Sincos(float32(i) * 2 * math32.Pi / primitiveSegments)
		n := mgl32.Vec3{cosT * primitiveExtent, radius, sinT * primitiveExtent}.Normalize()
		u := float32(i) / primitiveSegments
		b.vertex(mgl32.Vec3{cosT * radius, -half, sinT * radius}, n, u, 1)
		b.vertex(mgl32.Vec3{0, half, 0}, n, u, 0)
	}
	for i := uint32(0); i < primitiveSegments; i++ {
		base, apex := i*2, i*2+1
		b.triangle(base, apex, base+2)
	}
	b.disc(radius, -half, false)
	return b.build(MeshCone)
}

func primitiveMeshes() []*Mesh {
	return []*Mesh{cubeMesh(), sphereMesh(), rectangleMesh(), coneMesh(), cylinderMesh()}
}
