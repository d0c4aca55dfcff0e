package picking

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-scene/engine/buffer_manager"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsTasksAndCloses(t *testing.T) {
	p := NewPool(3, 8)
	var ran atomic.Int32
	done := make(chan struct{}, 10)
	for i := range 10 {
		p.SubmitTask(worker.Task{ID: i, Do: func() (any, error) {
			ran.Add(1)
			done <- struct{}{}
			return nil, nil
		}})
	}
	for range 10 {
		<-done
	}
	assert.Equal(t, int32(10), ran.Load())

	p.Close()
	p.Close()
	p.SubmitTask(worker.Task{ID: 11, Do: func() (any, error) {
		ran.Add(1)
		return nil, nil
	}})
	assert.Equal(t, int32(11), ran.Load(), "tasks after Close run on the caller")
}

func TestClosedPickersLeaveNoWorkers(t *testing.T) {
	before := runtime.NumGoroutine()
	bm := buffer_manager.NewBufferManager(nil)
	for range 10 {
		p := NewPicker(bm, WithWorkerCount(4))
		s := newScene()
		s.cube(t, mgl32.Vec3{})
		s.refresh()
		_, ok := p.Pick(downZ, s.arena, s.layer)
		require.True(t, ok)
		p.Close()

		_, ok = p.Pick(downZ, s.arena, s.layer)
		assert.True(t, ok, "a closed picker still answers")
	}
	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= before },
		2*time.Second, 10*time.Millisecond)
}

func TestCloseLeavesSharedPoolRunning(t *testing.T) {
	shared := NewPool(2, 8)
	defer shared.Close()
	p := NewPicker(buffer_manager.NewBufferManager(nil), WithWorkerPool(shared))
	p.Close()

	shared.mu.Lock()
	closed := shared.closed
	shared.mu.Unlock()
	assert.False(t, closed)
}
