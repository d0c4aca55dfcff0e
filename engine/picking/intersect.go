package picking

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const triangleEpsilon = 1e-7

// rayHitsBox is the slab test. A ray starting inside the box hits it.
func rayHitsBox(ray Ray, box common.AABB) bool {
	if box.IsEmpty() {
		return false
	}
	tmin, tmax := math32.Inf(-1), math32.Inf(1)
	for axis := 0; axis < 3; axis++ {
		o, d := ray.Origin[axis], ray.Direction[axis]
		if math32.Abs(d) < triangleEpsilon {
			if o < box.Min[axis] || o > box.Max[axis] {
				return false
			}
			continue
		}
		inv := 1 / d
		t0 := (box.Min[axis] - o) * inv
		t1 := (box.Max[axis] - o) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = math32.Max(tmin, t0)
		tmax = math32.Min(tmax, t1)
		if tmin > tmax {
			return false
		}
	}
	return tmax >= 0
}

// intersectTriangle is the Möller–Trumbore test. Both faces count. It returns the ray parameter
// and the barycentric weights of b and c.
func intersectTriangle(ray Ray, a, b, c mgl32.Vec3) (t, u, v float32, ok bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := ray.Direction.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < triangleEpsilon {
		return 0, 0, 0, false
	}
	invDet := 1 / det
	s := ray.Origin.Sub(a)
	u = s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}
	q := s.Cross(e1)
	v = ray.Direction.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}
	t = e2.Dot(q) * invDet
	if t <= triangleEpsilon {
		return 0, 0, 0, false
	}
	return t, u, v, true
}
