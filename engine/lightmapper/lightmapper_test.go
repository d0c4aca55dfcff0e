package lightmapper

import (
	"runtime"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/buffer_manager"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scene struct {
	arena *graph.Arena
	layer graph.Handle
	bm    *buffer_manager.BufferManager
}

func newScene() *scene {
	a := graph.NewArena()
	return &scene{arena: a, layer: a.Insert(graph.NewLayer()), bm: buffer_manager.NewBufferManager(nil)}
}

func (s *scene) add(t *testing.T, parent graph.Handle, obj graph.Object) graph.Handle {
	t.Helper()
	h := s.arena.Insert(obj)
	require.True(t, s.arena.AddChild(parent, h))
	return h
}

func (s *scene) cube(t *testing.T, parent graph.Handle, local mgl32.Mat4, baked bool) (graph.Handle, *graph.Model) {
	t.Helper()
	m := graph.NewModel()
	m.Source = buffer_manager.MeshCube
	m.Local = local
	m.UsedInBakedLighting = baked
	return s.add(t, parent, m), m
}

// sun points down -Z, lighting faces whose normal is +Z.
func (s *scene) sun(t *testing.T, shadows bool, mode graph.BakeMode) *graph.Light {
	t.Helper()
	l := graph.NewLight(graph.LightDirectional)
	l.CastsShadow = shadows
	l.BakeMode = mode
	s.add(t, s.layer, l)
	return l
}

func (s *scene) bake(t *testing.T, lm Lightmapper, progress func(Progress)) (Result, error) {
	t.Helper()
	return lm.Bake(s.arena, s.layer, graph.LightmapperSettings{Opacity: 1}, progress)
}

// topLighting returns the red channel of every vertex whose mesh normal is +Z.
func topLighting(t *testing.T, bm *buffer_manager.BufferManager, m *graph.Model) []float32 {
	t.Helper()
	mesh, ok := bm.Mesh(m.Source)
	require.True(t, ok)
	require.Len(t, m.Lighting, mesh.VertexCount())
	var out []float32
	for i := range mesh.VertexCount() {
		if mesh.Normals[i*3+2] > 0.99 {
			out = append(out, m.Lighting[i].R)
		}
	}
	require.NotEmpty(t, out)
	return out
}

func TestBakeLightsFacingVertices(t *testing.T) {
	s := newScene()
	s.sun(t, false, graph.BakeAll)
	h, m := s.cube(t, s.layer, mgl32.Ident4(), true)

	res, err := s.bake(t, NewLightmapper(s.bm, WithWorkerCount(2)), nil)
	require.NoError(t, err)
	assert.Equal(t, []graph.Handle{h}, res.Models)
	assert.Equal(t, 1, res.Lights)
	assert.Equal(t, len(m.Lighting), res.Vertices)

	for _, r := range topLighting(t, s.bm, m) {
		assert.InDelta(t, 1, r, 1e-4)
	}
	mesh, _ := s.bm.Mesh(m.Source)
	for i := range mesh.VertexCount() {
		assert.Equal(t, float32(1), m.Lighting[i].A)
		if mesh.Normals[i*3+2] < -0.99 {
			assert.Zero(t, m.Lighting[i].R, "back face vertex %d", i)
		}
	}
}

func TestBakeTracesShadows(t *testing.T) {
	s := newScene()
	s.sun(t, true, graph.BakeAll)
	_, receiver := s.cube(t, s.layer, mgl32.Ident4(), true)
	_, occluder := s.cube(t, s.layer, mgl32.Translate3D(0, 0, 200).Mul4(mgl32.Scale3D(3, 3, 1)), false)

	_, err := s.bake(t, NewLightmapper(s.bm), nil)
	require.NoError(t, err)
	for _, r := range topLighting(t, s.bm, receiver) {
		assert.Zero(t, r)
	}
	assert.Nil(t, occluder.Lighting)

	// Hidden or transparent occluders do not cast.
	occluder.Opacity = 0.5
	_, err = s.bake(t, NewLightmapper(s.bm), nil)
	require.NoError(t, err)
	for _, r := range topLighting(t, s.bm, receiver) {
		assert.InDelta(t, 1, r, 1e-4)
	}

	occluder.Opacity = 1
	occluder.Visible = false
	_, err = s.bake(t, NewLightmapper(s.bm), nil)
	require.NoError(t, err)
	for _, r := range topLighting(t, s.bm, receiver) {
		assert.InDelta(t, 1, r, 1e-4)
	}
}

func TestBakeRespectsReceivesShadows(t *testing.T) {
	s := newScene()
	s.sun(t, true, graph.BakeAll)
	_, receiver := s.cube(t, s.layer, mgl32.Ident4(), true)
	receiver.ReceivesShadows = false
	s.cube(t, s.layer, mgl32.Translate3D(0, 0, 200).Mul4(mgl32.Scale3D(3, 3, 1)), false)

	_, err := s.bake(t, NewLightmapper(s.bm), nil)
	require.NoError(t, err)
	for _, r := range topLighting(t, s.bm, receiver) {
		assert.InDelta(t, 1, r, 1e-4)
	}
}

func TestBakeSkipsUnbakedLightsAndScopes(t *testing.T) {
	s := newScene()
	s.sun(t, false, graph.BakeDisabled)
	group := s.add(t, s.layer, graph.NewNode())
	scoped := graph.NewLight(graph.LightDirectional)
	scoped.BakeMode = graph.BakeIndirect
	scoped.Scope = group
	s.add(t, s.layer, scoped)

	_, inside := s.cube(t, group, mgl32.Ident4(), true)
	_, outside := s.cube(t, s.layer, mgl32.Translate3D(300, 0, 0), true)

	res, err := s.bake(t, NewLightmapper(s.bm), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Lights)
	for _, r := range topLighting(t, s.bm, inside) {
		assert.InDelta(t, 1, r, 1e-4)
	}
	for _, r := range topLighting(t, s.bm, outside) {
		assert.Zero(t, r)
	}
}

func TestBakeReportsProgress(t *testing.T) {
	s := newScene()
	s.sun(t, false, graph.BakeAll)
	var want []graph.Handle
	for i := range 3 {
		h, _ := s.cube(t, s.layer, mgl32.Translate3D(float32(i)*200, 0, 0), true)
		want = append(want, h)
	}
	s.cube(t, s.layer, mgl32.Translate3D(0, 300, 0), false)

	var got []Progress
	res, err := s.bake(t, NewLightmapper(s.bm, WithWorkerCount(3)), func(p Progress) {
		got = append(got, p)
	})
	require.NoError(t, err)
	assert.Equal(t, want, res.Models)
	require.Len(t, got, 3)
	seen := map[graph.Handle]bool{}
	for i, p := range got {
		assert.Equal(t, i+1, p.Done)
		assert.Equal(t, 3, p.Total)
		seen[p.Model] = true
	}
	assert.Len(t, seen, 3)

	mesh, _ := s.bm.Mesh(buffer_manager.MeshCube)
	assert.Equal(t, 3*mesh.VertexCount(), res.Vertices)
}

func TestBakeCancelKeepsPreviousLighting(t *testing.T) {
	s := newScene()
	s.sun(t, false, graph.BakeAll)
	_, first := s.cube(t, s.layer, mgl32.Ident4(), true)
	_, second := s.cube(t, s.layer, mgl32.Translate3D(200, 0, 0), true)
	previous := []common.Color{{R: 0.25, A: 1}}
	first.Lighting = previous

	lm := NewLightmapper(s.bm)
	rev := s.arena.Revision()
	calls := 0
	_, err := s.bake(t, lm, func(Progress) {
		calls++
		lm.Cancel()
	})
	require.ErrorIs(t, err, ErrBakeCancelled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, previous, first.Lighting)
	assert.Nil(t, second.Lighting)
	assert.Equal(t, rev, s.arena.Revision())
	assert.False(t, lm.Running())

	// A later bake starts fresh.
	res, err := s.bake(t, lm, nil)
	require.NoError(t, err)
	assert.Len(t, res.Models, 2)
	assert.NotEqual(t, previous, first.Lighting)
	assert.Greater(t, s.arena.Revision(), rev)
}

func TestBakeRejectsConcurrentBake(t *testing.T) {
	s := newScene()
	s.sun(t, false, graph.BakeAll)
	s.cube(t, s.layer, mgl32.Ident4(), true)

	lm := NewLightmapper(s.bm)
	var nested error
	_, err := s.bake(t, lm, func(Progress) {
		assert.True(t, lm.Running())
		_, nested = s.bake(t, lm, nil)
	})
	require.NoError(t, err)
	assert.ErrorIs(t, nested, ErrBakeRunning)
}

func TestBakeWithoutModels(t *testing.T) {
	s := newScene()
	s.sun(t, false, graph.BakeAll)
	s.cube(t, s.layer, mgl32.Ident4(), false)

	called := false
	res, err := s.bake(t, NewLightmapper(s.bm), func(Progress) { called = true })
	require.NoError(t, err)
	assert.Empty(t, res.Models)
	assert.False(t, called)

	_, err = NewLightmapper(s.bm).Bake(s.arena, graph.Handle{}, graph.LightmapperSettings{}, nil)
	assert.Error(t, err)
}

func TestCloseStopsWorkersAndLaterBakesStillRun(t *testing.T) {
	s := newScene()
	s.sun(t, true, graph.BakeAll)
	_, m := s.cube(t, s.layer, mgl32.Ident4(), true)

	before := runtime.NumGoroutine()
	for range 5 {
		lm := NewLightmapper(s.bm, WithWorkerCount(4))
		_, err := s.bake(t, lm, nil)
		require.NoError(t, err)
		lm.Close()
	}
	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= before },
		2*time.Second, 10*time.Millisecond)

	lm := NewLightmapper(s.bm)
	lm.Close()
	m.Lighting = nil
	res, err := s.bake(t, lm, nil)
	require.NoError(t, err)
	assert.Len(t, res.Models, 1)
	assert.NotNil(t, m.Lighting)
}

func TestNewLightmapperRequiresBufferManager(t *testing.T) {
	assert.PanicsWithValue(t, "lightmapper: NewLightmapper requires a buffer manager", func() {
		NewLightmapper(nil)
	})
}
