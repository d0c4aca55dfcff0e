// Package camera computes per-frame camera matrices for a layer and turns viewport pixels into rays.
package camera

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// clipCorrection maps OpenGL clip depth [-1, 1] to the [0, 1] range WebGPU uses.
var clipCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Projection is the camera state of one frame. All matrices are column-major.
type Projection struct {
	Kind     graph.ProjectionKind
	Viewport common.Rect
	Near     float32
	Far      float32
	// Position is the camera origin in world space.
	Position mgl32.Vec3

	View                  mgl32.Mat4
	Projection            mgl32.Mat4
	ViewProjection        mgl32.Mat4
	InverseView           mgl32.Mat4
	InverseProjection     mgl32.Mat4
	InverseViewProjection mgl32.Mat4
}

// Compute builds the projection of cam for a viewport. The camera looks down its local -Z axis.
//
// Parameters:
//   - cam: the backend camera
//   - global: the camera's world transform
//   - viewport: the viewport rectangle in pixels
//
// Returns:
//   - Projection: the camera matrices
//   - bool: false if the viewport is empty or the clip planes are degenerate
func Compute(cam *graph.Camera, global mgl32.Mat4, viewport common.Rect) (Projection, bool) {
	if cam == nil || viewport.Empty() || cam.ClipFar <= cam.ClipNear {
		return Projection{}, false
	}
	p := Projection{
		Kind:        cam.Projection,
		Viewport:    viewport,
		Near:        cam.ClipNear,
		Far:         cam.ClipFar,
		Position:    global.Col(3).Vec3(),
		InverseView: global,
		View:        global.Inv(),
	}

	aspect := viewport.Width / viewport.Height
	switch cam.Projection {
	case graph.ProjectionOrthographic:
		mag := cam.Magnification
		if mag <= 0 {
			mag = 1
		}
		hw, hh := viewport.Width/(2*mag), viewport.Height/(2*mag)
		p.Projection = clipCorrection.Mul4(mgl32.Ortho(-hw, hw, -hh, hh, cam.ClipNear, cam.ClipFar))
	default:
		fov := common.Clamp(cam.FieldOfView, 1, 179)
		p.Projection = clipCorrection.Mul4(mgl32.Perspective(mgl32.DegToRad(fov), aspect, cam.ClipNear, cam.ClipFar))
	}
	p.refresh()
	return p, true
}

func (p *Projection) refresh() {
	p.ViewProjection = p.Projection.Mul4(p.View)
	p.InverseProjection = p.Projection.Inv()
	p.InverseViewProjection = p.ViewProjection.Inv()
}

// WithJitter returns a copy whose image is moved by (-dx, -dy) in NDC. Perspective projections add
// the offset to the depth column and orthographic projections subtract it from the translation.
//
// Parameters:
//   - dx, dy: the offset in NDC units
//
// Returns:
//   - Projection: the jittered projection
func (p Projection) WithJitter(dx, dy float32) Projection {
	if dx == 0 && dy == 0 {
		return p
	}
	if p.Kind == graph.ProjectionOrthographic {
		p.Projection[12] -= dx
		p.Projection[13] -= dy
	} else {
		p.Projection[8] += dx
		p.Projection[9] += dy
	}
	p.refresh()
	return p
}

// Frustum returns the world-space view frustum.
func (p Projection) Frustum() common.Frustum {
	return common.ExtractFrustum(p.ViewProjection)
}

// Unproject builds a world-space ray through a pixel.
//
// Parameters:
//   - x, y: the pixel position in the same space as viewport
//   - viewport: the viewport rectangle
//
// Returns:
//   - mgl32.Vec3: the ray origin on the near plane
//   - mgl32.Vec3: the normalized ray direction
//   - bool: false if the point lies outside the viewport
func (p Projection) Unproject(x, y float32, viewport common.Rect) (mgl32.Vec3, mgl32.Vec3, bool) {
	if viewport.Empty() || !viewport.Contains(x, y) {
		return mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	ndcX := (x-viewport.X)/viewport.Width*2 - 1
	ndcY := 1 - (y-viewport.Y)/viewport.Height*2

	near := p.unprojectNDC(ndcX, ndcY, 0)
	far := p.unprojectNDC(ndcX, ndcY, 1)
	dir := far.Sub(near)
	if dir.Len() < 1e-12 {
		return mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	return near, dir.Normalize(), true
}

func (p Projection) unprojectNDC(x, y, z float32) mgl32.Vec3 {
	v := p.InverseViewProjection.Mul4x1(mgl32.Vec4{x, y, z, 1})
	if math32.Abs(v.W()) < 1e-12 {
		return v.Vec3()
	}
	return v.Vec3().Mul(1 / v.W())
}

// Project maps a world position to viewport pixels.
//
// Parameters:
//   - world: the world-space point
//
// Returns:
//   - float32, float32: the pixel position
//   - bool: false if the point is behind the camera
func (p Projection) Project(world mgl32.Vec3) (float32, float32, bool) {
	clip := p.ViewProjection.Mul4x1(world.Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	x := p.Viewport.X + (ndc.X()+1)/2*p.Viewport.Width
	y := p.Viewport.Y + (1-ndc.Y())/2*p.Viewport.Height
	return x, y, true
}
