package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func unitBox(center mgl32.Vec3) AABB {
	return AABB{Min: center.Sub(mgl32.Vec3{1, 1, 1}), Max: center.Add(mgl32.Vec3{1, 1, 1})}
}

func TestAABBExpandAndUnion(t *testing.T) {
	b := EmptyAABB()
	assert.True(t, b.IsEmpty())

	b = b.Expand(mgl32.Vec3{1, 2, 3}).Expand(mgl32.Vec3{-1, 0, 5})
	assert.False(t, b.IsEmpty())
	assert.Equal(t, mgl32.Vec3{-1, 0, 3}, b.Min)
	assert.Equal(t, mgl32.Vec3{1, 2, 5}, b.Max)
	assert.Equal(t, mgl32.Vec3{0, 1, 4}, b.Center())

	assert.Equal(t, b, b.Union(EmptyAABB()))
	u := b.Union(unitBox(mgl32.Vec3{10, 0, 0}))
	assert.Equal(t, mgl32.Vec3{-1, -1, -1}, u.Min)
	assert.Equal(t, mgl32.Vec3{11, 2, 5}, u.Max)
}

func TestAABBTransformEnclosesRotatedCorners(t *testing.T) {
	rot := mgl32.HomogRotate3DZ(mgl32.DegToRad(45))
	out := unitBox(mgl32.Vec3{}).Transform(rot)
	assert.InDelta(t, math32.Sqrt(2), out.Max.X(), 1e-5)
	assert.InDelta(t, math32.Sqrt(2), out.Max.Y(), 1e-5)
	assert.InDelta(t, 1, out.Max.Z(), 1e-5)
	assert.InDelta(t, -math32.Sqrt(2), out.Min.X(), 1e-5)

	assert.True(t, EmptyAABB().Transform(rot).IsEmpty())
}

func TestFrustumIntersectsAABB(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100)
	f := ExtractFrustum(proj)

	for i, p := range f.Planes {
		assert.InDelta(t, 1, p.Normal.Len(), 1e-5, "plane %d", i)
	}
	assert.True(t, f.IntersectsAABB(unitBox(mgl32.Vec3{0, 0, -10})))
	assert.False(t, f.IntersectsAABB(unitBox(mgl32.Vec3{0, 0, 10})), "behind the camera")
	assert.False(t, f.IntersectsAABB(unitBox(mgl32.Vec3{100, 0, -10})), "outside the right plane")
	assert.False(t, f.IntersectsAABB(unitBox(mgl32.Vec3{0, 0, -200})), "beyond the far plane")
	assert.True(t, f.IntersectsAABB(unitBox(mgl32.Vec3{4.5, 0, -10})), "straddling the right plane")
	assert.False(t, f.IntersectsAABB(EmptyAABB()))
}

func TestRectContainsIsHalfOpen(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}
	assert.True(t, r.Contains(10, 20))
	assert.True(t, r.Contains(39.9, 59.9))
	assert.False(t, r.Contains(40, 30))
	assert.False(t, r.Contains(20, 60))
	assert.True(t, Rect{}.Empty())
	assert.Equal(t, Size{Width: 1, Height: 1}, Size{Width: 1, Height: 1}.Scaled(0.25))
	assert.True(t, Size{Width: 0, Height: 5}.Scaled(2).Empty())
}

func TestClampAndCoalesce(t *testing.T) {
	assert.Equal(t, 5, Clamp(9, 0, 5))
	assert.Equal(t, 0, Clamp(-3, 0, 5))
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, []string{"a", "b"}, SortedKeys(map[string]int{"b": 1, "a": 2}))
}
