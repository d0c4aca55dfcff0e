package object

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/go-gl/mathgl/mgl32"
)

// Node is a transform node. Model, Camera, Light and Item2D embed it.
type Node struct {
	ObjectBase

	name     string
	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3
	pivot    mgl32.Vec3
	visible  bool
	pickable bool
}

var _ Spatial = &Node{}

// NewNode creates a transform node at the origin.
//
// Parameters:
//   - options: functional options applied in order
//
// Returns:
//   - *Node: the new node
func NewNode(options ...NodeBuilderOption) *Node {
	n := &Node{}
	n.initNode(n, graph.TypeNode)
	for _, opt := range options {
		opt(n)
	}
	return n
}

func (n *Node) initNode(self Spatial, t graph.Type) {
	n.ObjectBase = newBase(self, t)
	n.rotation = mgl32.QuatIdent()
	n.scale = mgl32.Vec3{1, 1, 1}
	n.visible = true
}

func (n *Node) SpatialNode() *Node {
	return n
}

func (n *Node) Name() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.name
}

func (n *Node) Position() mgl32.Vec3 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.position
}

func (n *Node) Rotation() mgl32.Quat {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rotation
}

func (n *Node) Scale() mgl32.Vec3 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.scale
}

func (n *Node) Visible() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.visible
}

func (n *Node) Pickable() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pickable
}

func (n *Node) SetPosition(p mgl32.Vec3) {
	n.mu.Lock()
	changed := n.position != p
	n.position = p
	n.mu.Unlock()
	if changed {
		n.MarkDirty(DirtyTransform)
	}
}

func (n *Node) SetRotation(q mgl32.Quat) {
	n.mu.Lock()
	changed := n.rotation != q
	n.rotation = q
	n.mu.Unlock()
	if changed {
		n.MarkDirty(DirtyTransform)
	}
}

// SetEulerRotation sets the rotation from angles in degrees, applied Y * X * Z.
func (n *Node) SetEulerRotation(x, y, z float32) {
	q := mgl32.AnglesToQuat(mgl32.DegToRad(y), mgl32.DegToRad(x), mgl32.DegToRad(z), mgl32.YXZ)
	n.SetRotation(q)
}

func (n *Node) SetScale(s mgl32.Vec3) {
	n.mu.Lock()
	changed := n.scale != s
	n.scale = s
	n.mu.Unlock()
	if changed {
		n.MarkDirty(DirtyTransform)
	}
}

func (n *Node) SetPivot(p mgl32.Vec3) {
	n.mu.Lock()
	changed := n.pivot != p
	n.pivot = p
	n.mu.Unlock()
	if changed {
		n.MarkDirty(DirtyTransform)
	}
}

func (n *Node) SetVisible(v bool) {
	n.mu.Lock()
	changed := n.visible != v
	n.visible = v
	n.mu.Unlock()
	if changed {
		n.MarkDirty(DirtyVisibility)
	}
}

func (n *Node) SetPickable(v bool) {
	n.mu.Lock()
	changed := n.pickable != v
	n.pickable = v
	n.mu.Unlock()
	if changed {
		n.MarkDirty(DirtyContent)
	}
}

// SetParent moves the node under parent, or detaches it when parent is nil. A parent owned by a
// manager passes ownership down to this node's subtree.
//
// Parameters:
//   - parent: the new front-end parent
func (n *Node) SetParent(parent Spatial) {
	self := n.self.(Spatial)
	old := n.Parent()
	if old == parent {
		return
	}
	if old != nil {
		old.Base().removeChild(self)
	}
	n.mu.Lock()
	n.parent = parent
	n.mu.Unlock()
	if parent != nil {
		parent.Base().addChild(self)
	}
	n.MarkDirty(DirtyParent)
	if parent != nil {
		if m := parent.Base().Manager(); m != nil {
			n.AttachTo(m)
		}
	}
}

// applySpatial copies the node properties into dst. The caller holds n.mu.
func (n *Node) applySpatial(dst *graph.Node) {
	dst.Name = n.name
	dst.SetTransform(n.position, n.rotation, n.scale, n.pivot)
	dst.Visible = n.visible
	dst.Pickable = n.pickable
}

func (n *Node) UpdateGraphObject(ctx *UpdateContext, existing graph.Object) graph.Object {
	if !ctx.Ready() {
		return nil
	}
	gn, ok := existing.(*graph.Node)
	if !ok {
		gn = graph.NewNode()
	}
	n.mu.Lock()
	n.applySpatial(gn)
	n.mu.Unlock()
	return gn
}
