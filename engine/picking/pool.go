package picking

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// TaskRunner runs worker tasks. worker.DynamicWorkerPool and *Pool satisfy it.
type TaskRunner interface {
	SubmitTask(t worker.Task)
}

// Pool is a fixed set of automation workers sharing one task queue. Close ends every worker by
// closing the queue; tasks submitted after Close run on the caller.
type Pool struct {
	mu      *sync.Mutex
	tasks   chan worker.Task
	stop    chan int
	workers []worker.Worker
	closed  bool
}

var _ TaskRunner = &Pool{}

// NewPool starts n workers.
//
// Parameters:
//   - n: the worker count, at least 1
//   - queueSize: the task queue capacity
//
// Returns:
//   - *Pool: the running pool
func NewPool(n, queueSize int) *Pool {
	p := &Pool{
		mu:    &sync.Mutex{},
		tasks: make(chan worker.Task, max(1, queueSize)),
		stop:  make(chan int),
	}
	for i := range max(1, n) {
		w := worker.NewWorker(i, p.tasks, p.stop, 1*time.Second, func(int) {})
		w.Start()
		p.workers = append(p.workers, w)
	}
	return p
}

// SubmitTask queues t, blocking while the queue is full.
func (p *Pool) SubmitTask(t worker.Task) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		t.Do()
		return
	}
	defer p.mu.Unlock()
	p.tasks <- t
}

// Close stops the workers once the queued tasks have been taken. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.tasks)
}
