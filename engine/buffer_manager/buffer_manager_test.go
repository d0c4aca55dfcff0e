package buffer_manager

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi/rhitest"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveBoundsSpanHundredUnits(t *testing.T) {
	bm := NewBufferManager(nil)
	for _, key := range []string{MeshCube, MeshSphere, MeshCone, MeshCylinder} {
		m, ok := bm.Mesh(key)
		require.True(t, ok, key)
		assert.True(t, m.Bounds.Min.ApproxEqualThreshold(mgl32.Vec3{-50, -50, -50}, 1e-3), "%s min %v", key, m.Bounds.Min)
		assert.True(t, m.Bounds.Max.ApproxEqualThreshold(mgl32.Vec3{50, 50, 50}, 1e-3), "%s max %v", key, m.Bounds.Max)
	}

	rect, ok := bm.Mesh(MeshRectangle)
	require.True(t, ok)
	assert.Equal(t, float32(0), rect.Bounds.Min.Z())
	assert.Equal(t, float32(0), rect.Bounds.Max.Z())
	assert.Equal(t, 2, rect.TriangleCount())
}

func TestPrimitiveWindingFacesOutward(t *testing.T) {
	bm := NewBufferManager(nil)
	for _, key := range []string{MeshCube, MeshSphere, MeshCylinder} {
		m, _ := bm.Mesh(key)
		center := m.Bounds.Center()
		for tri := 0; tri < m.TriangleCount(); tri++ {
			i0, i1, i2 := m.Triangle(tri)
			a, b, c := m.Vertex(int(i0)), m.Vertex(int(i1)), m.Vertex(int(i2))
			n := b.Sub(a).Cross(c.Sub(a))
			if n.Len() < 1e-6 {
				continue
			}
			centroid := a.Add(b).Add(c).Mul(1.0 / 3)
			assert.Greater(t, n.Dot(centroid.Sub(center)), float32(0), "%s triangle %d faces inward", key, tri)
		}
	}
}

func TestModelBoundsUsesGeometry(t *testing.T) {
	arena := graph.NewArena()
	geo := graph.NewGeometry()
	geo.Positions = []float32{0, 0, 0, 10, 0, 0, 0, 20, -5}
	geo.Indices = []uint32{0, 1, 2}
	geoH := arena.Insert(geo)

	model := graph.NewModel()
	model.Geometry = geoH
	modelH := arena.Insert(model)

	bm := NewBufferManager(nil)
	lo, hi, ok := bm.ModelBounds(arena, modelH)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{0, 0, -5}, lo)
	assert.Equal(t, mgl32.Vec3{10, 20, 0}, hi)
	assert.Contains(t, bm.RegisteredMeshes(), geoH.String())

	geo.Positions = []float32{0, 0, 0, 1, 1, 1, 2, 2, 2}
	geo.Version++
	_, hi, ok = bm.ModelBounds(arena, modelH)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, hi)

	assert.True(t, bm.ReleaseMesh(geoH))
	assert.False(t, bm.ReleaseMesh(geoH))
	assert.NotContains(t, bm.RegisteredMeshes(), geoH.String())
}

func TestModelBoundsUnknownSource(t *testing.T) {
	arena := graph.NewArena()
	model := graph.NewModel()
	model.Source = "#Teapot"
	h := arena.Insert(model)

	_, _, ok := NewBufferManager(nil).ModelBounds(arena, h)
	assert.False(t, ok)
}

func TestLoadGeometryRejectsBadIndices(t *testing.T) {
	arena := graph.NewArena()
	geo := graph.NewGeometry()
	geo.Positions = []float32{0, 0, 0, 10, 0, 0, 0, 10, 0}
	geo.Indices = []uint32{0, 1, 2}
	geoH := arena.Insert(geo)
	model := graph.NewModel()
	model.Geometry = geoH

	bm := NewBufferManager(nil)
	_, ok := bm.ModelMesh(arena, model)
	require.True(t, ok)

	geo.Indices = []uint32{0, 1, 5}
	geo.Version++
	_, err := bm.LoadGeometry(arena, geoH)
	assert.ErrorIs(t, err, ErrInvalidMesh)
	_, ok = bm.ModelMesh(arena, model)
	assert.False(t, ok)
	assert.NotContains(t, bm.RegisteredMeshes(), geoH.String(), "the previous version is dropped")

	geo.Indices = []uint32{0, 1}
	geo.Version++
	_, err = bm.LoadGeometry(arena, geoH)
	assert.ErrorIs(t, err, ErrInvalidMesh)

	geo.Indices = []uint32{2, 1, 0}
	geo.Version++
	_, err = bm.LoadGeometry(arena, geoH)
	assert.NoError(t, err)
}

func TestRegisterMeshRejectsBadIndices(t *testing.T) {
	bm := NewBufferManager(nil)
	good := NewMesh("", []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, nil, nil, []uint32{0, 1, 2})
	require.NoError(t, bm.RegisterMesh("tri", good))
	_, ok := bm.Mesh("tri")
	require.True(t, ok)

	bad := NewMesh("", []float32{0, 0, 0}, nil, nil, []uint32{0, 0, 3})
	assert.ErrorIs(t, bm.RegisterMesh("tri", bad), ErrInvalidMesh)
	_, ok = bm.Mesh("tri")
	assert.False(t, ok)
}

func TestRenderMeshUploadsOnce(t *testing.T) {
	bm := NewBufferManager(nil)
	_, err := bm.RenderMesh(MeshCube)
	assert.ErrorIs(t, err, rhi.ErrNoDevice)

	d := rhitest.NewDevice()
	bm.SetDevice(d)
	m1, err := bm.RenderMesh(MeshCube)
	require.NoError(t, err)
	m2, err := bm.RenderMesh(MeshCube)
	require.NoError(t, err)
	assert.Same(t, m1, m2)
	assert.Equal(t, 36, m1.IndexCount())
	assert.Equal(t, 1, d.LiveResources())

	_, err = bm.RenderMesh("#Teapot")
	assert.ErrorIs(t, err, ErrUnknownMesh)

	bm.Release()
	assert.Equal(t, 0, d.LiveResources())
}

func newImage(t *testing.T, arena *graph.Arena, pixels []byte, w, h int) (graph.Handle, *graph.TextureData) {
	t.Helper()
	td := graph.NewTextureData()
	td.Width, td.Height, td.Pixels = w, h, pixels
	img := graph.NewImage()
	img.Source = arena.Insert(td)
	return arena.Insert(img), td
}

func TestLoadRenderImageWithoutDeviceRecordsResidency(t *testing.T) {
	arena := graph.NewArena()
	h, _ := newImage(t, arena, []byte{255, 255, 255, 255}, 1, 1)

	bm := NewBufferManager(nil)
	tex, err := bm.LoadRenderImage(arena, h)
	require.NoError(t, err)
	assert.Nil(t, tex)
	assert.Equal(t, []graph.Handle{h}, bm.RegisteredImages())

	assert.True(t, bm.ReleaseImage(h))
	assert.False(t, bm.ReleaseImage(h))
	assert.Empty(t, bm.RegisteredImages())
}

func TestLoadRenderImageReuploadsOnVersionChange(t *testing.T) {
	arena := graph.NewArena()
	h, td := newImage(t, arena, []byte{255, 0, 0, 255}, 1, 1)

	d := rhitest.NewDevice()
	bm := NewBufferManager(d)
	tex, err := bm.LoadRenderImage(arena, h)
	require.NoError(t, err)
	sim := tex.(*rhitest.Texture)
	assert.Equal(t, common.Color{R: 1, A: 1}, sim.Color)
	assert.Equal(t, 1, sim.Uploads)

	_, err = bm.LoadRenderImage(arena, h)
	require.NoError(t, err)
	assert.Equal(t, 1, sim.Uploads)

	td.Pixels = []byte{0, 255, 0, 255}
	td.Version++
	again, err := bm.LoadRenderImage(arena, h)
	require.NoError(t, err)
	assert.Same(t, tex, again)
	assert.Equal(t, 2, sim.Uploads)
	assert.Equal(t, common.Color{G: 1, A: 1}, sim.Color)

	got, ok := bm.ImageTexture(h)
	require.True(t, ok)
	assert.Same(t, tex, got)

	bm.ReleaseImage(h)
	assert.False(t, sim.Built())
	assert.Equal(t, 0, d.LiveResources())
}

func TestLoadRenderImageForSubscene(t *testing.T) {
	arena := graph.NewArena()
	item := graph.NewItem2D(common.Size{Width: 64, Height: 32})
	img := graph.NewImage()
	img.Subscene = arena.Insert(item)
	h := arena.Insert(img)

	bm := NewBufferManager(rhitest.NewDevice())
	tex, err := bm.LoadRenderImage(arena, h)
	require.NoError(t, err)
	assert.Equal(t, common.Size{Width: 64, Height: 32}, tex.Size())
	assert.Equal(t, 0, tex.(*rhitest.Texture).Uploads)

	item.Size = common.Size{Width: 128, Height: 32}
	tex, err = bm.LoadRenderImage(arena, h)
	require.NoError(t, err)
	assert.Equal(t, common.Size{Width: 128, Height: 32}, tex.Size())
}

func TestLoadRenderImageRejectsSourcelessImage(t *testing.T) {
	arena := graph.NewArena()
	h := arena.Insert(graph.NewImage())
	_, err := NewBufferManager(nil).LoadRenderImage(arena, h)
	assert.Error(t, err)
}

func TestFlipRows(t *testing.T) {
	pixels := []byte{1, 1, 1, 1, 2, 2, 2, 2}
	assert.Equal(t, []byte{2, 2, 2, 2, 1, 1, 1, 1}, flipRows(pixels, 1, 2))
}
