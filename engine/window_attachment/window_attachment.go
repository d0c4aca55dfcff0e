// Package window_attachment coordinates every scene manager that renders into one window: it runs
// their synchronization phases in a fixed global order and owns the deferred resource release queue.
package window_attachment

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/render_context"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene_manager"
)

// WindowAttachment is the per-window hub shared by the scene managers rendering into that window.
type WindowAttachment interface {
	// Window returns the handle of the window this attachment belongs to.
	//
	// Returns:
	//   - common.WindowHandle: the window handle
	Window() common.WindowHandle

	// Attach adds sm to the attachment and routes its device-resource releases into this attachment.
	// Attaching a manager twice does nothing.
	//
	// Parameters:
	//   - sm: the scene manager
	Attach(sm scene_manager.SceneManager)

	// Detach removes sm from the attachment.
	//
	// Parameters:
	//   - sm: the scene manager
	//
	// Returns:
	//   - bool: true if no scene manager is left
	Detach(sm scene_manager.SceneManager) bool

	// Synchronize runs the synchronization phases across every attached manager: cleanup, resources,
	// spatial nodes, bounding boxes, then resource loaders. Managers are asked for a new frame when a
	// resource shared between scenes changed.
	//
	// Parameters:
	//   - rc: the window's render context
	//   - out: receives the resources that must be resident this frame
	//
	// Returns:
	//   - bool: true if a shared resource was touched
	Synchronize(rc render_context.RenderContext, out map[graph.Handle]struct{}) bool

	// QueueResourceRelease queues a retired backend object for release at the next GPU-safe point.
	// Each handle is released once no matter how often it is queued.
	//
	// Parameters:
	//   - h: the retired backend handle
	QueueResourceRelease(h graph.Handle)

	// ReleaseCachedResources frees every queued backend object and drops its device residency.
	// Call it only after the frame that last used them has been submitted.
	//
	// Parameters:
	//   - rc: the window's render context
	//
	// Returns:
	//   - int: the number of objects freed
	ReleaseCachedResources(rc render_context.RenderContext) int

	// PendingReleases returns the number of queued handles.
	//
	// Returns:
	//   - int: the queue length
	PendingReleases() int

	// SceneManagers returns the attached managers in attach order.
	//
	// Returns:
	//   - []scene_manager.SceneManager: the managers
	SceneManagers() []scene_manager.SceneManager
}

type windowAttachment struct {
	mu       *sync.Mutex
	window   common.WindowHandle
	managers []scene_manager.SceneManager

	releaseQueue []graph.Handle
	releaseSet   map[graph.Handle]struct{}
}

var _ WindowAttachment = &windowAttachment{}

// NewWindowAttachment creates an empty attachment. Most callers go through Registry.Acquire instead.
//
// Parameters:
//   - window: the window handle
//
// Returns:
//   - WindowAttachment: the new attachment
func NewWindowAttachment(window common.WindowHandle) WindowAttachment {
	return &windowAttachment{
		mu:         &sync.Mutex{},
		window:     window,
		releaseSet: make(map[graph.Handle]struct{}),
	}
}

func (wa *windowAttachment) Window() common.WindowHandle {
	return wa.window
}

func (wa *windowAttachment) Attach(sm scene_manager.SceneManager) {
	wa.mu.Lock()
	for _, m := range wa.managers {
		if m == sm {
			wa.mu.Unlock()
			return
		}
	}
	wa.managers = append(wa.managers, sm)
	wa.mu.Unlock()
	sm.SetReleaseSink(wa.QueueResourceRelease)
}

func (wa *windowAttachment) Detach(sm scene_manager.SceneManager) bool {
	wa.mu.Lock()
	defer wa.mu.Unlock()
	for i, m := range wa.managers {
		if m == sm {
			wa.managers = append(wa.managers[:i], wa.managers[i+1:]...)
			break
		}
	}
	return len(wa.managers) == 0
}

func (wa *windowAttachment) SceneManagers() []scene_manager.SceneManager {
	wa.mu.Lock()
	defer wa.mu.Unlock()
	out := make([]scene_manager.SceneManager, len(wa.managers))
	copy(out, wa.managers)
	return out
}

func (wa *windowAttachment) Synchronize(rc render_context.RenderContext, out map[graph.Handle]struct{}) bool {
	if rc == nil {
		return false
	}
	managers := wa.SceneManagers()

	for _, sm := range managers {
		sm.SetRenderContext(rc)
		sm.CleanupNodes()
	}

	shared := false
	for _, sm := range managers {
		if sm.UpdateDirtyResourceNodes() {
			shared = true
		}
	}

	for _, sm := range managers {
		sm.UpdateDirtySpatialNodes()
	}

	bm := rc.BufferManager()
	for _, sm := range managers {
		sm.UpdateBoundingBoxes(bm)
	}

	if out != nil {
		for _, sm := range managers {
			for _, h := range sm.ResourceLoaders() {
				out[h] = struct{}{}
			}
		}
	}

	// Another scene may sample what changed; let every scene render a fresh frame.
	if shared {
		for _, sm := range managers {
			sm.RequestUpdate()
		}
	}
	return shared
}

func (wa *windowAttachment) QueueResourceRelease(h graph.Handle) {
	if !h.IsValid() {
		return
	}
	wa.mu.Lock()
	defer wa.mu.Unlock()
	if _, queued := wa.releaseSet[h]; queued {
		return
	}
	wa.releaseSet[h] = struct{}{}
	wa.releaseQueue = append(wa.releaseQueue, h)
}

func (wa *windowAttachment) PendingReleases() int {
	wa.mu.Lock()
	defer wa.mu.Unlock()
	return len(wa.releaseQueue)
}

func (wa *windowAttachment) ReleaseCachedResources(rc render_context.RenderContext) int {
	wa.mu.Lock()
	queue := wa.releaseQueue
	wa.releaseQueue = nil
	wa.releaseSet = make(map[graph.Handle]struct{})
	wa.mu.Unlock()

	if len(queue) == 0 || rc == nil {
		return 0
	}
	rc.CheckThread("window_attachment.ReleaseCachedResources")
	arena := rc.Arena()
	bm := rc.BufferManager()

	freed := 0
	for _, h := range queue {
		obj, ok := arena.Take(h)
		if !ok {
			continue
		}
		switch obj.Type() {
		case graph.TypeImage:
			bm.ReleaseImage(h)
		case graph.TypeGeometry:
			bm.ReleaseMesh(h)
		}
		freed++
	}
	if freed > 0 {
		common.Logger().Debug("released cached resources", "window", wa.window, "count", freed)
	}
	return freed
}
