// Package light resolves backend lights into world space and answers which nodes they affect.
package light

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Type identifies the kind of light source.
type Type int

const (
	// TypeDirectional has no position, only direction. Affects every fragment with no attenuation.
	TypeDirectional Type = iota
	// TypePoint emits in all directions from a position and attenuates to zero at its range.
	TypePoint
	// TypeSpot emits in a cone along its direction, attenuating with distance and cone angle.
	TypeSpot
)

func (t Type) String() string {
	switch t {
	case TypePoint:
		return "Point"
	case TypeSpot:
		return "Spot"
	}
	return "Directional"
}

// TypeOf maps a backend light kind to its Type.
func TypeOf(kind graph.LightKind) Type {
	switch kind {
	case graph.LightPoint:
		return TypePoint
	case graph.LightSpot:
		return TypeSpot
	}
	return TypeDirectional
}

// ShadowBias offsets shadow ray origins along the surface normal to avoid self intersection.
const ShadowBias float32 = 0.001

// Resolved is a light in world space for one frame.
type Resolved struct {
	Handle    graph.Handle
	Type      Type
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Color     common.Color
	Intensity float32
	Range     float32
	// InnerCone and OuterCone are cosines of the spot half angles.
	InnerCone    float32
	OuterCone    float32
	CastsShadows bool
	Scope        graph.Handle
	Baked        bool
}

// Resolve reads a light from the arena using its current global transform.
//
// Parameters:
//   - arena: the backend arena
//   - h: the light handle
//
// Returns:
//   - Resolved: the world-space light
//   - bool: false if h is not a live light
func Resolve(arena *graph.Arena, h graph.Handle) (Resolved, bool) {
	l, ok := graph.Lookup[*graph.Light](arena, h)
	if !ok {
		return Resolved{}, false
	}
	outer := common.Clamp(l.ConeAngle, 0, 180)
	inner := common.Clamp(l.InnerCone, 0, outer)
	return Resolved{
		Handle:       h,
		Type:         TypeOf(l.LightKind),
		Position:     l.GlobalPosition(),
		Direction:    l.Direction(),
		Color:        l.Color,
		Intensity:    l.Brightness,
		Range:        l.Range,
		InnerCone:    math32.Cos(mgl32.DegToRad(inner)),
		OuterCone:    math32.Cos(mgl32.DegToRad(outer)),
		CastsShadows: l.CastsShadow,
		Scope:        l.Scope,
		Baked:        l.BakeMode != graph.BakeDisabled,
	}, true
}

// InScope reports whether a light illuminates a node. An unscoped light reaches every node; a
// scoped one only reaches its scope node and that node's descendants. The answer depends on the
// final hierarchy, which is why lights are synchronized after every other spatial node.
//
// Parameters:
//   - arena: the backend arena
//   - lightH: the light
//   - nodeH: the node being lit
//
// Returns:
//   - bool: true if the light affects the node
func InScope(arena *graph.Arena, lightH, nodeH graph.Handle) bool {
	l, ok := graph.Lookup[*graph.Light](arena, lightH)
	if !ok {
		return false
	}
	if !l.Scope.IsValid() {
		return true
	}
	return arena.IsAncestor(l.Scope, nodeH)
}

// Affects reports whether the light can reach a world-space box. Directional lights reach
// everything; point and spot lights are limited to their range sphere.
func (r Resolved) Affects(box common.AABB) bool {
	if r.Type == TypeDirectional || r.Range <= 0 {
		return r.Type == TypeDirectional
	}
	closest := mgl32.Vec3{
		common.Clamp(r.Position[0], box.Min[0], box.Max[0]),
		common.Clamp(r.Position[1], box.Min[1], box.Max[1]),
		common.Clamp(r.Position[2], box.Min[2], box.Max[2]),
	}
	return closest.Sub(r.Position).Len() <= r.Range
}

// Incidence returns the unit direction from a surface point toward the light, the distance to
// the light and the light's attenuated intensity at that point.
//
// Parameters:
//   - p: the surface point in world space
//
// Returns:
//   - mgl32.Vec3: the direction toward the light
//   - float32: the distance, +Inf for directional lights
//   - float32: the attenuated intensity, zero when out of range or outside the cone
func (r Resolved) Incidence(p mgl32.Vec3) (mgl32.Vec3, float32, float32) {
	if r.Type == TypeDirectional {
		return r.Direction.Mul(-1), math32.Inf(1), r.Intensity
	}
	toLight := r.Position.Sub(p)
	dist := toLight.Len()
	if dist < 1e-6 {
		return mgl32.Vec3{0, 1, 0}, 0, r.Intensity
	}
	dir := toLight.Mul(1 / dist)
	if r.Range > 0 && dist >= r.Range {
		return dir, dist, 0
	}
	atten := float32(1)
	if r.Range > 0 {
		falloff := 1 - dist/r.Range
		atten = falloff * falloff
	}
	if r.Type == TypeSpot {
		cosAngle := dir.Mul(-1).Dot(r.Direction)
		if cosAngle <= r.OuterCone {
			return dir, dist, 0
		}
		if r.InnerCone > r.OuterCone && cosAngle < r.InnerCone {
			atten *= (cosAngle - r.OuterCone) / (r.InnerCone - r.OuterCone)
		}
	}
	return dir, dist, r.Intensity * atten
}

// Lambert returns the diffuse contribution of the light at a surface point, ignoring occlusion.
//
// Parameters:
//   - p: the surface point in world space
//   - n: the unit surface normal
//
// Returns:
//   - common.Color: the light color scaled by intensity and the cosine term
func (r Resolved) Lambert(p, n mgl32.Vec3) common.Color {
	dir, _, intensity := r.Incidence(p)
	if intensity <= 0 {
		return common.Color{}
	}
	cos := n.Dot(dir)
	if cos <= 0 {
		return common.Color{}
	}
	c := r.Color.Scale(intensity * cos)
	c.A = 1
	return c
}

// Collect resolves every light that affects a node, in the given order.
//
// Parameters:
//   - arena: the backend arena
//   - lights: candidate light handles
//   - nodeH: the node being lit
//
// Returns:
//   - []Resolved: the lights in scope of the node
func Collect(arena *graph.Arena, lights []graph.Handle, nodeH graph.Handle) []Resolved {
	var out []Resolved
	for _, h := range lights {
		if !InScope(arena, h, nodeH) {
			continue
		}
		if r, ok := Resolve(arena, h); ok {
			out = append(out, r)
		}
	}
	return out
}
