package object

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
)

// ObjectBase is the bookkeeping shared by every front-end object: its dirty mask, owning manager,
// backend handle and front-end hierarchy.
type ObjectBase struct {
	mu *sync.Mutex

	self Object
	typ  graph.Type

	dirty   DirtyFlag
	manager Manager
	handle  graph.Handle

	parent   Spatial
	children []Spatial

	// dependents are re-marked dirty once this object first gets a backend handle.
	dependents []Object

	queueTicket uint64
	destroyed   bool
}

func newBase(self Object, t graph.Type) ObjectBase {
	return ObjectBase{
		mu:    &sync.Mutex{},
		self:  self,
		typ:   t,
		dirty: DirtyAll,
	}
}

func (b *ObjectBase) Type() graph.Type {
	return b.typ
}

func (b *ObjectBase) Base() *ObjectBase {
	return b
}

// Dirty returns the current dirty mask.
func (b *ObjectBase) Dirty() DirtyFlag {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

// HasDirty reports whether any bit of f is set.
func (b *ObjectBase) HasDirty(f DirtyFlag) bool {
	return b.Dirty()&f != 0
}

// ClearDirty clears the bits in mask.
func (b *ObjectBase) ClearDirty(mask DirtyFlag) {
	b.mu.Lock()
	b.dirty &^= mask
	b.mu.Unlock()
}

// MarkDirty sets f and links the object into its manager's dirty queue.
//
// Parameters:
//   - f: the attributes that changed
func (b *ObjectBase) MarkDirty(f DirtyFlag) {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.dirty |= f
	m := b.manager
	b.mu.Unlock()

	if m != nil {
		m.MarkDirty(b.self)
	}
}

// Manager returns the owning manager, or nil.
func (b *ObjectBase) Manager() Manager {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.manager
}

// Handle returns the backend handle, or the zero Handle before the first successful synchronization.
func (b *ObjectBase) Handle() graph.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle
}

// SetHandle records the backend handle. Only the scene manager calls it.
func (b *ObjectBase) SetHandle(h graph.Handle) {
	b.mu.Lock()
	b.handle = h
	b.mu.Unlock()
}

// QueueTicket returns the dirty-queue ticket, or zero when the object is not queued.
func (b *ObjectBase) QueueTicket() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queueTicket
}

// SetQueueTicket records the dirty-queue ticket. Only the scene manager calls it.
func (b *ObjectBase) SetQueueTicket(ticket uint64) {
	b.mu.Lock()
	b.queueTicket = ticket
	b.mu.Unlock()
}

// Destroyed reports whether Destroy has been called.
func (b *ObjectBase) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

// Parent returns the front-end parent, or nil.
func (b *ObjectBase) Parent() Spatial {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parent
}

// Children returns a copy of the front-end children in declaration order.
func (b *ObjectBase) Children() []Spatial {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Spatial, len(b.children))
	copy(out, b.children)
	return out
}

// AttachTo makes m the owner of this object, its descendants and every resource they reference.
// Objects already owned by a manager keep their owner. Dirty objects are linked into m's queues.
//
// Parameters:
//   - m: the new owner
func (b *ObjectBase) AttachTo(m Manager) {
	b.attachTo(m, make(map[*ObjectBase]struct{}))
}

func (b *ObjectBase) attachTo(m Manager, seen map[*ObjectBase]struct{}) {
	if m == nil {
		return
	}
	if _, ok := seen[b]; ok {
		return
	}
	seen[b] = struct{}{}

	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	adopted := false
	if b.manager == nil {
		b.manager = m
		adopted = true
	}
	dirty := b.dirty
	children := make([]Spatial, len(b.children))
	copy(children, b.children)
	b.mu.Unlock()

	if adopted && dirty != 0 {
		m.MarkDirty(b.self)
	}
	if r, ok := b.self.(Referencer); ok {
		for _, ref := range r.References() {
			if ref != nil {
				ref.Base().attachTo(m, seen)
			}
		}
	}
	for _, c := range children {
		c.Base().attachTo(m, seen)
	}
}

// Detach drops the owning manager from this object and its subtree without destroying anything.
// The backend objects are handed to the old manager for cleanup and will be rebuilt on the next attach.
func (b *ObjectBase) Detach() {
	b.mu.Lock()
	m := b.manager
	h := b.handle
	b.manager = nil
	b.handle = graph.Handle{}
	b.dirty = DirtyAll
	children := make([]Spatial, len(b.children))
	copy(children, b.children)
	b.mu.Unlock()

	if m != nil {
		m.Unlink(b.self)
		if h.IsValid() {
			m.Cleanup(h)
		}
	}
	for _, c := range children {
		c.Base().Detach()
	}
}

// Destroy ends the object's life. Its backend object is handed to the manager's cleanup list,
// it leaves its parent, and its children become orphans that re-attach at the scene root on the
// next synchronization. Destroy is idempotent.
func (b *ObjectBase) Destroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	m := b.manager
	h := b.handle
	parent := b.parent
	children := b.children
	b.handle = graph.Handle{}
	b.parent = nil
	b.children = nil
	b.mu.Unlock()

	if parent != nil {
		parent.Base().removeChild(b.self)
	}
	for _, c := range children {
		cb := c.Base()
		cb.mu.Lock()
		cb.parent = nil
		cb.mu.Unlock()
		cb.MarkDirty(DirtyParent)
	}
	if m != nil {
		m.Unlink(b.self)
		if h.IsValid() {
			m.Cleanup(h)
		}
		m.RequestUpdate()
	}
}

func (b *ObjectBase) addDependent(obj Object) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.dependents {
		if d == obj {
			return
		}
	}
	b.dependents = append(b.dependents, obj)
}

// NotifyDependents marks every object that resolves this object's handle as dirty. The scene manager
// calls it when the object gets its first backend handle.
func (b *ObjectBase) NotifyDependents() {
	b.mu.Lock()
	deps := make([]Object, len(b.dependents))
	copy(deps, b.dependents)
	b.mu.Unlock()
	for _, d := range deps {
		d.Base().MarkDirty(DirtyContent)
	}
}

func (b *ObjectBase) removeChild(child Object) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, c := range b.children {
		if Object(c) == child {
			b.children = append(b.children[:i], b.children[i+1:]...)
			return
		}
	}
}

func (b *ObjectBase) addChild(child Spatial) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.children = append(b.children, child)
}

// handleOf returns the backend handle of obj, or the zero Handle for nil.
func handleOf(obj Object) graph.Handle {
	if obj == nil {
		return graph.Handle{}
	}
	return obj.Base().Handle()
}
