package render_context

import (
	"runtime"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/buffer_manager"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi/rhitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderContextDefaults(t *testing.T) {
	rc := NewRenderContext(nil)
	assert.Nil(t, rc.Device())
	require.NotNil(t, rc.Arena())
	require.NotNil(t, rc.Library())
	require.NotNil(t, rc.BufferManager())
	assert.Nil(t, rc.BufferManager().Device())
}

func TestSetDeviceReachesBufferManager(t *testing.T) {
	arena := graph.NewArena()
	bm := buffer_manager.NewBufferManager(nil)
	rc := NewRenderContext(nil, WithArena(arena), WithBufferManager(bm))
	assert.Same(t, arena, rc.Arena())
	assert.Same(t, bm, rc.BufferManager())

	d := rhitest.NewDevice()
	rc.SetDevice(d)
	assert.Same(t, d, rc.Device())
	assert.Same(t, d, bm.Device())
}

func TestCheckThread(t *testing.T) {
	common.ResetWarnings()
	rc := NewRenderContext(nil)
	assert.True(t, rc.CheckThread("unbound"))

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	rc.BindThread()
	assert.True(t, rc.CheckThread("same"))

	if runtime.GOOS != "linux" {
		return
	}
	done := make(chan bool)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		done <- rc.CheckThread("other")
	}()
	assert.False(t, <-done)
}
