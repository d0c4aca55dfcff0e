// Package render_context bundles the state shared by every scene manager attached to one window.
package render_context

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/buffer_manager"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/Carmen-Shannon/oxy-scene/engine/shader"
)

// RenderContext is the per-window render state: the device, residency, shaders and the graph arena.
type RenderContext interface {
	// Device returns the graphics device.
	//
	// Returns:
	//   - rhi.Device: the device, or nil while no device is available
	Device() rhi.Device

	// SetDevice replaces the graphics device. Device objects held by the buffer manager are rebuilt lazily.
	//
	// Parameters:
	//   - d: the new device, or nil
	SetDevice(d rhi.Device)

	// BufferManager returns the mesh and texture residency tracker.
	//
	// Returns:
	//   - *buffer_manager.BufferManager: the buffer manager
	BufferManager() *buffer_manager.BufferManager

	// Library returns the shader library.
	//
	// Returns:
	//   - *shader.Library: the shader library
	Library() *shader.Library

	// Arena returns the graph arena shared by every scene on the window.
	//
	// Returns:
	//   - *graph.Arena: the arena
	Arena() *graph.Arena

	// BindThread records the calling OS thread as the render thread. The caller should have locked
	// the goroutine to its thread.
	BindThread()

	// CheckThread reports whether the caller runs on the render thread. A mismatch is logged once.
	// The check passes while no thread is bound or the platform cannot identify threads.
	//
	// Parameters:
	//   - op: names the operation for the warning
	//
	// Returns:
	//   - bool: false if called off the render thread
	CheckThread(op string) bool
}

type renderContext struct {
	mu      *sync.Mutex
	device  rhi.Device
	buffers *buffer_manager.BufferManager
	library *shader.Library
	arena   *graph.Arena
	thread  atomic.Int64
}

var _ RenderContext = &renderContext{}

// NewRenderContext creates a render context.
//
// Parameters:
//   - device: the graphics device, or nil to track residency without uploading
//   - options: optional RenderContextBuilderOption functions
//
// Returns:
//   - RenderContext: the new render context
func NewRenderContext(device rhi.Device, options ...RenderContextBuilderOption) RenderContext {
	rc := &renderContext{
		mu:     &sync.Mutex{},
		device: device,
	}
	for _, opt := range options {
		opt(rc)
	}
	if rc.arena == nil {
		rc.arena = graph.NewArena()
	}
	if rc.library == nil {
		rc.library = shader.NewLibrary()
	}
	if rc.buffers == nil {
		rc.buffers = buffer_manager.NewBufferManager(device)
	} else {
		rc.buffers.SetDevice(device)
	}
	return rc
}

func (rc *renderContext) Device() rhi.Device {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.device
}

func (rc *renderContext) SetDevice(d rhi.Device) {
	rc.mu.Lock()
	rc.device = d
	rc.mu.Unlock()
	rc.buffers.SetDevice(d)
}

func (rc *renderContext) BufferManager() *buffer_manager.BufferManager { return rc.buffers }
func (rc *renderContext) Library() *shader.Library                     { return rc.library }
func (rc *renderContext) Arena() *graph.Arena                          { return rc.arena }

func (rc *renderContext) BindThread() {
	rc.thread.Store(currentThreadID())
}

func (rc *renderContext) CheckThread(op string) bool {
	owner := rc.thread.Load()
	if owner == 0 {
		return true
	}
	current := currentThreadID()
	if current == 0 || current == owner {
		return true
	}
	common.WarnOnce("render_context.thread."+op, "shared render resources touched off the render thread",
		"op", op, "render_thread", owner, "thread", current)
	return false
}
