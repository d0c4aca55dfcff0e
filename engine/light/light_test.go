package light

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInScopeFollowsHierarchy(t *testing.T) {
	arena := graph.NewArena()
	root := arena.Insert(graph.NewNode())
	group := arena.Insert(graph.NewNode())
	inside := arena.Insert(graph.NewModel())
	outside := arena.Insert(graph.NewModel())
	require.True(t, arena.AddChild(root, group))
	require.True(t, arena.AddChild(group, inside))
	require.True(t, arena.AddChild(root, outside))

	global := arena.Insert(graph.NewLight(graph.LightDirectional))
	scoped := graph.NewLight(graph.LightPoint)
	scoped.Scope = group
	scopedH := arena.Insert(scoped)

	assert.True(t, InScope(arena, global, outside))
	assert.True(t, InScope(arena, scopedH, inside))
	assert.True(t, InScope(arena, scopedH, group))
	assert.False(t, InScope(arena, scopedH, outside))
	assert.False(t, InScope(arena, graph.Handle{}, inside))

	got := Collect(arena, []graph.Handle{global, scopedH}, outside)
	require.Len(t, got, 1)
	assert.Equal(t, global, got[0].Handle)
	assert.Len(t, Collect(arena, []graph.Handle{global, scopedH}, inside), 2)
}

func TestResolveUsesGlobalTransform(t *testing.T) {
	arena := graph.NewArena()
	l := graph.NewLight(graph.LightSpot)
	l.Global = mgl32.Translate3D(0, 10, 0).Mul4(mgl32.HomogRotate3DX(-mgl32.DegToRad(90)))
	h := arena.Insert(l)

	r, ok := Resolve(arena, h)
	require.True(t, ok)
	assert.Equal(t, TypeSpot, r.Type)
	assert.Equal(t, "Spot", r.Type.String())
	assert.True(t, r.Position.ApproxEqual(mgl32.Vec3{0, 10, 0}))
	assert.True(t, r.Direction.ApproxEqualThreshold(mgl32.Vec3{0, -1, 0}, 1e-5), "dir %v", r.Direction)
	assert.Greater(t, r.InnerCone, r.OuterCone)

	_, ok = Resolve(arena, arena.Insert(graph.NewNode()))
	assert.False(t, ok)
}

func TestIncidenceAttenuation(t *testing.T) {
	point := Resolved{Type: TypePoint, Position: mgl32.Vec3{0, 10, 0}, Intensity: 1, Range: 20, Color: common.Color{R: 1, G: 1, B: 1, A: 1}}
	dir, dist, intensity := point.Incidence(mgl32.Vec3{})
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, dir)
	assert.Equal(t, float32(10), dist)
	assert.InDelta(t, 0.25, intensity, 1e-6)

	_, _, intensity = point.Incidence(mgl32.Vec3{0, -15, 0})
	assert.Zero(t, intensity)

	lit := point.Lambert(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	assert.InDelta(t, 0.25, lit.R, 1e-6)
	assert.Equal(t, common.Color{}, point.Lambert(mgl32.Vec3{}, mgl32.Vec3{0, -1, 0}))

	sun := Resolved{Type: TypeDirectional, Direction: mgl32.Vec3{0, -1, 0}, Intensity: 2}
	dir, _, intensity = sun.Incidence(mgl32.Vec3{1000, 0, 0})
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, dir)
	assert.Equal(t, float32(2), intensity)
}

func TestSpotConeCutsOff(t *testing.T) {
	arena := graph.NewArena()
	l := graph.NewLight(graph.LightSpot)
	l.ConeAngle, l.InnerCone = 30, 10
	l.Global = mgl32.Translate3D(0, 10, 0).Mul4(mgl32.HomogRotate3DX(-mgl32.DegToRad(90)))
	r, _ := Resolve(arena, arena.Insert(l))

	_, _, straight := r.Incidence(mgl32.Vec3{})
	_, _, edge := r.Incidence(mgl32.Vec3{4, 0, 0})
	_, _, outside := r.Incidence(mgl32.Vec3{10, 0, 0})
	assert.Greater(t, straight, edge)
	assert.Greater(t, edge, float32(0))
	assert.Zero(t, outside)
}

func TestAffectsUsesRange(t *testing.T) {
	box := common.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}
	near := Resolved{Type: TypePoint, Position: mgl32.Vec3{5, 0, 0}, Range: 5}
	far := Resolved{Type: TypePoint, Position: mgl32.Vec3{10, 0, 0}, Range: 5}
	assert.True(t, near.Affects(box))
	assert.False(t, far.Affects(box))
	assert.True(t, Resolved{Type: TypeDirectional}.Affects(box))
}
