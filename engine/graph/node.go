package graph

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Node is the spatial part of every node-kind object: its place in the hierarchy and its transforms.
type Node struct {
	header

	// Name is an optional debug label.
	Name string

	// Parent is the handle of the parent node, or the zero Handle for a detached node.
	Parent Handle
	// Children are the child handles in declaration order.
	Children []Handle

	// Position, Rotation, Scale and Pivot are the decomposed local transform.
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Pivot    mgl32.Vec3

	// Local is the composed local transform. Global is Local multiplied by every ancestor's Local.
	Local  mgl32.Mat4
	Global mgl32.Mat4

	// Visible hides the node and its subtree when false.
	Visible bool
	// Pickable excludes the node from picking when false.
	Pickable bool
	// InstanceRoot is the node whose space instance transforms of this subtree are expressed in.
	InstanceRoot Handle
}

// NewNode creates a plain transform node.
func NewNode() *Node {
	n := &Node{}
	initNode(n, TypeNode)
	return n
}

func initNode(n *Node, t Type) {
	n.typ = t
	n.Rotation = mgl32.QuatIdent()
	n.Scale = mgl32.Vec3{1, 1, 1}
	n.Local = mgl32.Ident4()
	n.Global = mgl32.Ident4()
	n.Visible = true
}

// SpatialNode returns n itself. Node kinds that embed Node inherit it.
func (n *Node) SpatialNode() *Node {
	return n
}

// SetTransform stores the decomposed transform and recomposes Local.
//
// Parameters:
//   - position: translation in parent space
//   - rotation: orientation quaternion
//   - scale: per-axis scale
//   - pivot: local pivot point
func (n *Node) SetTransform(position mgl32.Vec3, rotation mgl32.Quat, scale, pivot mgl32.Vec3) {
	n.Position = position
	n.Rotation = rotation
	n.Scale = scale
	n.Pivot = pivot
	n.Local = common.ComposeTransform(position, rotation, scale, pivot)
}

// GlobalPosition returns the world-space origin of the node.
func (n *Node) GlobalPosition() mgl32.Vec3 {
	return n.Global.Col(3).Vec3()
}

// SpatialOf resolves h to its embedded Node.
//
// Parameters:
//   - a: the arena to search
//   - h: the handle to resolve
//
// Returns:
//   - *Node: the node, or nil if h is not a live node-kind object
func SpatialOf(a *Arena, h Handle) *Node {
	obj, ok := a.Get(h)
	if !ok {
		return nil
	}
	sp, ok := obj.(Spatial)
	if !ok {
		return nil
	}
	return sp.SpatialNode()
}

// AddChild appends child to parent's children. A child that already has a different parent is
// removed from it first, so a node is never reachable from two parents.
//
// Parameters:
//   - parent: the new parent
//   - child: the node to attach
//
// Returns:
//   - bool: false if either handle is not a live node
func (a *Arena) AddChild(parent, child Handle) bool {
	p := SpatialOf(a, parent)
	c := SpatialOf(a, child)
	if p == nil || c == nil || parent == child {
		return false
	}
	if c.Parent == parent {
		return true
	}
	if c.Parent.IsValid() {
		a.RemoveChild(c.Parent, child)
	}
	p.Children = append(p.Children, child)
	c.Parent = parent
	a.Touch()
	return true
}

// RemoveChild detaches child from parent. It does nothing if child is not parent's child.
//
// Parameters:
//   - parent: the current parent
//   - child: the node to detach
func (a *Arena) RemoveChild(parent, child Handle) {
	p := SpatialOf(a, parent)
	if p != nil {
		for i, h := range p.Children {
			if h == child {
				p.Children = append(p.Children[:i], p.Children[i+1:]...)
				break
			}
		}
	}
	if c := SpatialOf(a, child); c != nil && c.Parent == parent {
		c.Parent = Handle{}
	}
	a.Touch()
}

// RemoveFromGraph detaches h from its parent and orphans its children.
// Orphans stay in the arena; their front ends re-attach them on the next synchronization.
//
// Parameters:
//   - h: the node to remove
func (a *Arena) RemoveFromGraph(h Handle) {
	n := SpatialOf(a, h)
	if n == nil {
		return
	}
	if n.Parent.IsValid() {
		a.RemoveChild(n.Parent, h)
	}
	for _, ch := range n.Children {
		if c := SpatialOf(a, ch); c != nil && c.Parent == h {
			c.Parent = Handle{}
		}
	}
	n.Children = nil
	n.Parent = Handle{}
	a.Touch()
}

// Walk visits root and its descendants in pre-order, children in declaration order.
// Returning false from fn skips the subtree below the visited node.
//
// Parameters:
//   - root: the node to start from
//   - fn: called for every visited node
func (a *Arena) Walk(root Handle, fn func(h Handle, n Spatial) bool) {
	obj, ok := a.Get(root)
	if !ok {
		return
	}
	sp, ok := obj.(Spatial)
	if !ok {
		return
	}
	if !fn(root, sp) {
		return
	}
	for _, ch := range sp.SpatialNode().Children {
		a.Walk(ch, fn)
	}
}

// CalculateGlobalTransforms recomputes Global for root and its subtree. Root's parent transform is used
// when it has one so subtrees can be refreshed independently.
//
// Parameters:
//   - root: the subtree to refresh
func (a *Arena) CalculateGlobalTransforms(root Handle) {
	n := SpatialOf(a, root)
	if n == nil {
		return
	}
	parentGlobal := mgl32.Ident4()
	if p := SpatialOf(a, n.Parent); p != nil {
		parentGlobal = p.Global
	}
	a.calculateGlobals(n, parentGlobal)
}

func (a *Arena) calculateGlobals(n *Node, parentGlobal mgl32.Mat4) {
	n.Global = parentGlobal.Mul4(n.Local)
	for _, ch := range n.Children {
		if c := SpatialOf(a, ch); c != nil {
			a.calculateGlobals(c, n.Global)
		}
	}
}

// EffectivelyVisible reports whether h and every ancestor are visible.
func (a *Arena) EffectivelyVisible(h Handle) bool {
	for n := SpatialOf(a, h); n != nil; n = SpatialOf(a, n.Parent) {
		if !n.Visible {
			return false
		}
	}
	return true
}

// IsAncestor reports whether ancestor is h or one of h's ancestors.
func (a *Arena) IsAncestor(ancestor, h Handle) bool {
	for cur := h; cur.IsValid(); {
		if cur == ancestor {
			return true
		}
		n := SpatialOf(a, cur)
		if n == nil {
			return false
		}
		cur = n.Parent
	}
	return false
}
