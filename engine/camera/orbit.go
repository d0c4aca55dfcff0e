package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/object"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// OrbitController moves a camera node on a sphere around a target point. Orbit steps change the
// spherical coordinates; pans translate target and camera together along the camera's local axes.
type OrbitController interface {
	// Target returns the orbit pivot.
	//
	// Returns:
	//   - mgl32.Vec3: the pivot in world space
	Target() mgl32.Vec3

	// SetTarget moves the pivot and recomputes the camera position.
	//
	// Parameters:
	//   - target: the new pivot in world space
	SetTarget(target mgl32.Vec3)

	// Position returns the camera position derived from the spherical coordinates.
	//
	// Returns:
	//   - mgl32.Vec3: the camera position
	Position() mgl32.Vec3

	// Rotation returns the camera rotation that looks at the target.
	//
	// Returns:
	//   - mgl32.Quat: the camera rotation
	Rotation() mgl32.Quat

	// Radius returns the distance from the target.
	//
	// Returns:
	//   - float32: the orbit radius
	Radius() float32

	// SetRadius sets the distance from the target, clamped to the radius limits.
	//
	// Parameters:
	//   - radius: the requested radius
	SetRadius(radius float32)

	// Zoom moves the camera toward the target by delta zoom steps.
	//
	// Parameters:
	//   - delta: positive values move closer
	Zoom(delta float32)

	// Orbit rotates around the target by the given angles in radians. Elevation is clamped.
	//
	// Parameters:
	//   - dAzimuth: the horizontal angle change
	//   - dElevation: the vertical angle change
	Orbit(dAzimuth, dElevation float32)

	// OrbitLeft, OrbitRight, OrbitUp and OrbitDown take one orbit-speed step.
	OrbitLeft()
	OrbitRight()
	OrbitUp()
	OrbitDown()

	// Pan translates target and camera along the camera's right and up axes.
	//
	// Parameters:
	//   - dx: units along the right axis
	//   - dy: units along the up axis
	Pan(dx, dy float32)

	// Drag orbits by a pointer movement in pixels scaled by the mouse sensitivity.
	//
	// Parameters:
	//   - dx, dy: the pointer delta in pixels
	Drag(dx, dy float32)

	// Attach makes the controller drive a spatial object. The current pose is applied immediately
	// and after every change.
	//
	// Parameters:
	//   - node: the camera node, or nil to detach
	Attach(node object.Spatial)
}

type orbitController struct {
	mu *sync.Mutex

	node object.Spatial

	target   mgl32.Vec3
	position mgl32.Vec3

	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed       float32
	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32
}

var _ OrbitController = &orbitController{}

// NewOrbitController creates an orbit controller looking at the origin from 250 units away.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - OrbitController: the new controller
func NewOrbitController(options ...OrbitControllerOption) OrbitController {
	oc := &orbitController{
		mu: &sync.Mutex{},

		radius:    250,
		elevation: math32.Pi / 6,

		minRadius:    20,
		maxRadius:    2000,
		minElevation: 0.05,
		maxElevation: math32.Pi/2 - 0.1,

		orbitSpeed:       0.03,
		mouseSensitivity: 0.005,
		zoomSpeed:        15,
		panSpeed:         1,
	}
	for _, option := range options {
		option(oc)
	}
	oc.radius = common.Clamp(oc.radius, oc.minRadius, oc.maxRadius)
	oc.elevation = common.Clamp(oc.elevation, oc.minElevation, oc.maxElevation)
	oc.updatePosition()
	return oc
}

// updatePosition recomputes the position from the spherical coordinates and pushes the pose to the
// attached node. Caller must hold the mutex.
func (oc *orbitController) updatePosition() {
	sinE, cosE := math32.Sincos(oc.elevation)
	sinA, cosA := math32.Sincos(oc.azimuth)
	oc.position = oc.target.Add(mgl32.Vec3{cosE * sinA, sinE, cosE * cosA}.Mul(oc.radius))
	if oc.node != nil {
		n := oc.node.SpatialNode()
		n.SetPosition(oc.position)
		n.SetRotation(oc.rotation())
	}
}

func (oc *orbitController) rotation() mgl32.Quat {
	if oc.position.Sub(oc.target).Len() < 1e-6 {
		return mgl32.QuatIdent()
	}
	return mgl32.Mat4ToQuat(mgl32.LookAtV(oc.position, oc.target, mgl32.Vec3{0, 1, 0})).Inverse()
}

func (oc *orbitController) Target() mgl32.Vec3 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.target
}

func (oc *orbitController) SetTarget(target mgl32.Vec3) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.target = target
	oc.updatePosition()
}

func (oc *orbitController) Position() mgl32.Vec3 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.position
}

func (oc *orbitController) Rotation() mgl32.Quat {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.rotation()
}

func (oc *orbitController) Radius() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.radius
}

func (oc *orbitController) SetRadius(radius float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.radius = common.Clamp(radius, oc.minRadius, oc.maxRadius)
	oc.updatePosition()
}

func (oc *orbitController) Zoom(delta float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.radius = common.Clamp(oc.radius-delta*oc.zoomSpeed, oc.minRadius, oc.maxRadius)
	oc.updatePosition()
}

func (oc *orbitController) Orbit(dAzimuth, dElevation float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.azimuth += dAzimuth
	oc.elevation = common.Clamp(oc.elevation+dElevation, oc.minElevation, oc.maxElevation)
	oc.updatePosition()
}

func (oc *orbitController) OrbitLeft()  { oc.Orbit(-oc.orbitSpeed, 0) }
func (oc *orbitController) OrbitRight() { oc.Orbit(oc.orbitSpeed, 0) }
func (oc *orbitController) OrbitUp()    { oc.Orbit(0, oc.orbitSpeed) }
func (oc *orbitController) OrbitDown()  { oc.Orbit(0, -oc.orbitSpeed) }

func (oc *orbitController) Drag(dx, dy float32) {
	oc.Orbit(-dx*oc.mouseSensitivity, dy*oc.mouseSensitivity)
}

func (oc *orbitController) Pan(dx, dy float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	backward := oc.position.Sub(oc.target)
	if backward.Len() < 1e-6 {
		return
	}
	backward = backward.Normalize()
	right := mgl32.Vec3{0, 1, 0}.Cross(backward)
	if right.Len() < 1e-6 {
		return
	}
	right = right.Normalize()
	up := backward.Cross(right)
	oc.target = oc.target.Add(right.Mul(dx * oc.panSpeed)).Add(up.Mul(dy * oc.panSpeed))
	oc.updatePosition()
}

func (oc *orbitController) Attach(node object.Spatial) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.node = node
	oc.updatePosition()
}
