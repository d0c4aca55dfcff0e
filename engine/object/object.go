// Package object contains the front-end scene description: property-bearing objects that record
// which of their attributes changed and produce or update their backend graph objects on request.
package object

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
)

// DirtyFlag is one bit of an object's dirty attribute mask.
type DirtyFlag uint32

const (
	DirtyTransform DirtyFlag = 1 << iota
	// DirtyParent marks a front-end parent change; the backend node must be re-parented.
	DirtyParent
	DirtyContent
	DirtyMaterial
	DirtyVisibility
	DirtyInstances
	DirtyGeometry
	DirtySource
	DirtyEffects
	// DirtyBounds asks the scene manager to read model bounds back from the buffer manager.
	DirtyBounds
	DirtyCamera
	DirtyLight

	// DirtyAll is set on new objects so their first synchronization builds everything.
	DirtyAll DirtyFlag = 1<<iota - 1
)

// Category selects which dirty queue an object is linked into.
type Category uint8

const (
	CategoryTextureData Category = iota
	CategoryImage
	CategoryResource
	CategorySpatial
	CategoryLight

	CategoryCount
)

// CategoryOf returns the dirty queue for objects of type t.
//
// Parameters:
//   - t: the graph type of the object
//
// Returns:
//   - Category: the queue the object is drained from
func CategoryOf(t graph.Type) Category {
	switch {
	case t == graph.TypeTextureData:
		return CategoryTextureData
	case t == graph.TypeImage:
		return CategoryImage
	case t == graph.TypeLight:
		return CategoryLight
	case t.IsNodeType():
		return CategorySpatial
	}
	return CategoryResource
}

// Manager is the owning scene manager as seen by a front-end object.
type Manager interface {
	// MarkDirty links obj into its dirty queue and schedules a frame. Linking an already queued object does nothing.
	//
	// Parameters:
	//   - obj: the object whose dirty mask changed
	MarkDirty(obj Object)

	// Unlink removes obj from its dirty queue, if queued.
	//
	// Parameters:
	//   - obj: the object to unlink
	Unlink(obj Object)

	// Cleanup queues the backend object of a destroyed front end for deferred release.
	//
	// Parameters:
	//   - h: the backend handle of the destroyed object
	Cleanup(h graph.Handle)

	// RequestUpdate schedules a new frame without linking anything.
	RequestUpdate()
}

// UpdateContext is passed to UpdateGraphObject during synchronization.
type UpdateContext struct {
	// Arena is the window's graph arena. A nil arena means no render context is available yet.
	Arena *graph.Arena
}

// Ready reports whether backend objects can be produced.
func (c *UpdateContext) Ready() bool {
	return c != nil && c.Arena != nil
}

// Object is a front-end scene object.
type Object interface {
	// Type returns the graph type this object produces.
	//
	// Returns:
	//   - graph.Type: the backend type tag
	Type() graph.Type

	// Base returns the shared bookkeeping state.
	//
	// Returns:
	//   - *ObjectBase: the embedded base
	Base() *ObjectBase

	// UpdateGraphObject produces or updates the backend object.
	// Given nil it allocates a new object. Given an object of the right concrete type it mutates it in place
	// and returns the same pointer. It returns nil when the object cannot be produced yet; the caller keeps
	// the dirty bits and retries after the next change.
	//
	// Parameters:
	//   - ctx: the synchronization context
	//   - existing: the current backend object, or nil
	//
	// Returns:
	//   - graph.Object: the produced object, or nil
	UpdateGraphObject(ctx *UpdateContext, existing graph.Object) graph.Object
}

// Spatial is implemented by every front-end object with a place in the hierarchy.
type Spatial interface {
	Object

	// SpatialNode returns the embedded spatial node.
	//
	// Returns:
	//   - *Node: the node state
	SpatialNode() *Node
}

// Referencer is implemented by objects that point at resources. Attaching the object to a manager
// also attaches the resources it references.
type Referencer interface {
	// References returns the resources this object uses.
	//
	// Returns:
	//   - []Object: the referenced resources, nil entries allowed
	References() []Object
}

// InstanceRooted is implemented by objects whose instance transforms are expressed relative to another node.
type InstanceRooted interface {
	// InstanceRoot returns the node whose space instance transforms are in, or nil for the object itself.
	InstanceRoot() Spatial
}

// InputReceiver receives pointer events forwarded into a 2D subscene.
type InputReceiver interface {
	// HandlePointer delivers an event in subscene pixel coordinates.
	//
	// Parameters:
	//   - ev: the remapped event
	//
	// Returns:
	//   - bool: true if the subscene accepted the event
	HandlePointer(ev common.PointerEvent) bool
}
