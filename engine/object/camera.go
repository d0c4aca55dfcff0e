package object

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
)

// Camera is a perspective or orthographic view into the scene. It looks down its local -Z axis.
type Camera struct {
	Node

	projection     graph.ProjectionKind
	fieldOfView    float32
	magnification  float32
	clipNear       float32
	clipFar        float32
	frustumCulling bool
}

var _ Spatial = &Camera{}

// NewCamera creates a perspective camera with a 60 degree vertical field of view.
//
// Parameters:
//   - options: functional options applied in order
//
// Returns:
//   - *Camera: the new camera
func NewCamera(options ...CameraBuilderOption) *Camera {
	c := &Camera{
		projection:    graph.ProjectionPerspective,
		fieldOfView:   60,
		magnification: 1,
		clipNear:      0.1,
		clipFar:       10000,
	}
	c.initNode(c, graph.TypeCamera)
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Camera) FieldOfView() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fieldOfView
}

func (c *Camera) SetFieldOfView(deg float32) {
	c.mu.Lock()
	c.fieldOfView = deg
	c.mu.Unlock()
	c.MarkDirty(DirtyCamera)
}

func (c *Camera) SetProjection(kind graph.ProjectionKind) {
	c.mu.Lock()
	c.projection = kind
	c.mu.Unlock()
	c.MarkDirty(DirtyCamera)
}

func (c *Camera) SetMagnification(m float32) {
	c.mu.Lock()
	c.magnification = m
	c.mu.Unlock()
	c.MarkDirty(DirtyCamera)
}

func (c *Camera) SetClipPlanes(near, far float32) {
	c.mu.Lock()
	c.clipNear, c.clipFar = near, far
	c.mu.Unlock()
	c.MarkDirty(DirtyCamera)
}

func (c *Camera) SetFrustumCulling(v bool) {
	c.mu.Lock()
	c.frustumCulling = v
	c.mu.Unlock()
	c.MarkDirty(DirtyCamera)
}

func (c *Camera) UpdateGraphObject(ctx *UpdateContext, existing graph.Object) graph.Object {
	if !ctx.Ready() {
		return nil
	}
	gc, ok := existing.(*graph.Camera)
	if !ok {
		gc = graph.NewCamera()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySpatial(&gc.Node)
	gc.Projection = c.projection
	gc.FieldOfView = c.fieldOfView
	gc.Magnification = c.magnification
	gc.ClipNear = c.clipNear
	gc.ClipFar = c.clipFar
	gc.FrustumCulling = c.frustumCulling
	return gc
}
