package window_attachment

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene_manager"
)

// Registry maps windows to their attachments. An attachment lives from the first scene manager
// attached to its window until the last one detaches.
type Registry struct {
	mu          *sync.Mutex
	attachments map[common.WindowHandle]WindowAttachment
}

// NewRegistry creates an empty registry.
//
// Returns:
//   - *Registry: the new registry
func NewRegistry() *Registry {
	return &Registry{
		mu:          &sync.Mutex{},
		attachments: make(map[common.WindowHandle]WindowAttachment),
	}
}

// Acquire returns the attachment of window, creating it on first use.
//
// Parameters:
//   - window: the window handle
//
// Returns:
//   - WindowAttachment: the window's attachment
func (r *Registry) Acquire(window common.WindowHandle) WindowAttachment {
	r.mu.Lock()
	defer r.mu.Unlock()
	wa, ok := r.attachments[window]
	if !ok {
		wa = NewWindowAttachment(window)
		r.attachments[window] = wa
	}
	return wa
}

// Lookup returns the attachment of window without creating one.
func (r *Registry) Lookup(window common.WindowHandle) (WindowAttachment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wa, ok := r.attachments[window]
	return wa, ok
}

// Attach adds sm to the attachment of window.
//
// Parameters:
//   - window: the window handle
//   - sm: the scene manager
//
// Returns:
//   - WindowAttachment: the window's attachment
func (r *Registry) Attach(window common.WindowHandle, sm scene_manager.SceneManager) WindowAttachment {
	wa := r.Acquire(window)
	wa.Attach(sm)
	return wa
}

// Detach removes sm from the attachment of window. Detaching the last manager flushes the release
// queue through the manager's render context and removes the attachment.
//
// Parameters:
//   - window: the window handle
//   - sm: the scene manager
func (r *Registry) Detach(window common.WindowHandle, sm scene_manager.SceneManager) {
	r.mu.Lock()
	wa, ok := r.attachments[window]
	if !ok {
		r.mu.Unlock()
		return
	}
	empty := wa.Detach(sm)
	if empty {
		delete(r.attachments, window)
	}
	r.mu.Unlock()

	sm.SetReleaseSink(nil)
	if empty {
		wa.ReleaseCachedResources(sm.RenderContext())
	}
}

// Len returns the number of live attachments.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attachments)
}
