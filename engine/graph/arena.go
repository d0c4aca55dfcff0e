package graph

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Handle addresses an object in an Arena. A handle becomes stale once its object is freed,
// and lookups through a stale handle report "not found" instead of reaching a reused slot.
// The zero Handle is never valid.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsValid reports whether the handle was ever issued by an arena.
func (h Handle) IsValid() bool {
	return h.Generation != 0
}

func (h Handle) String() string {
	if !h.IsValid() {
		return "graph.Handle(nil)"
	}
	return fmt.Sprintf("graph.Handle(%d:%d)", h.Index, h.Generation)
}

type slot struct {
	obj        Object
	generation uint32
	// retired objects are queued for release and hidden from lookups until freed.
	retired bool
}

// Arena owns every graph object of one window. It is shared by all scene managers attached to that window.
type Arena struct {
	mu       *sync.RWMutex
	slots    []slot
	free     []uint32
	live     int
	revision atomic.Uint64
}

// NewArena creates an empty arena.
//
// Returns:
//   - *Arena: the new arena
func NewArena() *Arena {
	return &Arena{
		mu: &sync.RWMutex{},
	}
}

// Insert stores obj and returns its handle. The object's own Handle() reports the same value afterwards.
// Inserting an object that already lives in an arena panics.
//
// Parameters:
//   - obj: the object to store
//
// Returns:
//   - Handle: the handle addressing obj
func (a *Arena) Insert(obj Object) Handle {
	if obj == nil {
		panic("graph: Arena.Insert requires a non-nil Object")
	}
	hdr := obj.graphHeader()
	if hdr.handle.IsValid() {
		panic(fmt.Sprintf("graph: %s already inserted as %s", hdr.typ, hdr.handle))
	}

	a.mu.Lock()
	var h Handle
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx].obj = obj
		a.slots[idx].retired = false
		h = Handle{Index: idx, Generation: a.slots[idx].generation}
	} else {
		a.slots = append(a.slots, slot{obj: obj, generation: 1})
		h = Handle{Index: uint32(len(a.slots) - 1), Generation: 1}
	}
	a.live++
	a.mu.Unlock()

	hdr.handle = h
	a.Touch()
	return h
}

// Get returns the object addressed by h.
//
// Parameters:
//   - h: the handle to resolve
//
// Returns:
//   - Object: the live object, or nil
//   - bool: false if h is invalid, stale, or already freed
func (a *Arena) Get(h Handle) (Object, bool) {
	if !h.IsValid() {
		return nil, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if int(h.Index) >= len(a.slots) {
		return nil, false
	}
	s := a.slots[h.Index]
	if s.generation != h.Generation || s.obj == nil || s.retired {
		return nil, false
	}
	return s.obj, true
}

// Contains reports whether h addresses a live object.
func (a *Arena) Contains(h Handle) bool {
	_, ok := a.Get(h)
	return ok
}

// Retire hides the object addressed by h from Get, Contains and Each while it waits in a release
// queue. Free still releases it later.
//
// Parameters:
//   - h: the handle to retire
//
// Returns:
//   - bool: true if h was live and is now retired
func (a *Arena) Retire(h Handle) bool {
	if !h.IsValid() {
		return false
	}
	a.mu.Lock()
	if int(h.Index) >= len(a.slots) {
		a.mu.Unlock()
		return false
	}
	s := &a.slots[h.Index]
	if s.generation != h.Generation || s.obj == nil || s.retired {
		a.mu.Unlock()
		return false
	}
	s.retired = true
	a.mu.Unlock()
	a.Touch()
	return true
}

// Free removes the object addressed by h and invalidates every copy of h.
// Freeing a stale or already freed handle does nothing, so a resource observed by two scenes
// is released exactly once.
//
// Parameters:
//   - h: the handle to free
//
// Returns:
//   - bool: true if an object was removed by this call
func (a *Arena) Free(h Handle) bool {
	_, ok := a.Take(h)
	return ok
}

// Take is Free that also returns the removed object, so the caller can release what it owned.
// Retired objects can be taken.
//
// Parameters:
//   - h: the handle to free
//
// Returns:
//   - Object: the removed object, or nil
//   - bool: true if an object was removed by this call
func (a *Arena) Take(h Handle) (Object, bool) {
	if !h.IsValid() {
		return nil, false
	}
	a.mu.Lock()
	if int(h.Index) >= len(a.slots) {
		a.mu.Unlock()
		return nil, false
	}
	s := &a.slots[h.Index]
	if s.generation != h.Generation || s.obj == nil {
		a.mu.Unlock()
		return nil, false
	}
	obj := s.obj
	s.obj = nil
	s.retired = false
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	a.free = append(a.free, h.Index)
	a.live--
	a.mu.Unlock()

	obj.graphHeader().handle = Handle{}
	a.Touch()
	return obj, true
}

// Len returns the number of live objects.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.live
}

// Revision returns a counter that increases on every structural or content change.
// Renderers compare it across frames to tell whether the layer changed.
func (a *Arena) Revision() uint64 {
	return a.revision.Load()
}

// Touch records a content change made to an object in place.
func (a *Arena) Touch() {
	a.revision.Add(1)
}

// Each calls fn for every live object in slot order until fn returns false.
func (a *Arena) Each(fn func(Handle, Object) bool) {
	a.mu.RLock()
	type entry struct {
		h   Handle
		obj Object
	}
	entries := make([]entry, 0, a.live)
	for i, s := range a.slots {
		if s.obj != nil && !s.retired {
			entries = append(entries, entry{h: Handle{Index: uint32(i), Generation: s.generation}, obj: s.obj})
		}
	}
	a.mu.RUnlock()

	for _, e := range entries {
		if !fn(e.h, e.obj) {
			return
		}
	}
}

// Lookup resolves h and asserts the object's concrete type.
//
// Parameters:
//   - a: the arena to search
//   - h: the handle to resolve
//
// Returns:
//   - T: the typed object, or the zero value
//   - bool: false if h is not live or addresses a different type
func Lookup[T Object](a *Arena, h Handle) (T, bool) {
	var zero T
	obj, ok := a.Get(h)
	if !ok {
		return zero, false
	}
	t, ok := obj.(T)
	return t, ok
}
