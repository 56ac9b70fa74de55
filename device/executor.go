package device

import (
	"sync"

	"k8s.io/klog/v2"
)

// Executor runs submitted tasks in submission order on its own goroutine.
//
// Submit never blocks: tasks are queued without bound. This is what allows the scheduler of the virtual
// machine to hand work to devices without ever waiting on them.
type Executor struct {
	name string

	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []func()
	closed  bool
	stopped chan struct{}
}

// NewExecutor creates and starts an Executor. Call Close to stop it.
func NewExecutor(name string) *Executor {
	e := &Executor{
		name:    name,
		stopped: make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	go e.worker()
	return e
}

// Name of the executor, for debugging.
func (e *Executor) Name() string {
	return e.name
}

// Submit queues task for execution. It panics if the executor has been closed.
func (e *Executor) Submit(task func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		panic("device.Executor.Submit called after Close for executor " + e.name)
	}
	e.tasks = append(e.tasks, task)
	e.cond.Signal()
}

// worker processes tasks until the executor is closed and its queue drained.
func (e *Executor) worker() {
	defer close(e.stopped)
	for {
		e.mu.Lock()
		for len(e.tasks) == 0 && !e.closed {
			e.cond.Wait()
		}
		if len(e.tasks) == 0 {
			e.mu.Unlock()
			return
		}
		task := e.tasks[0]
		e.tasks[0] = nil
		e.tasks = e.tasks[1:]
		e.mu.Unlock()
		task()
	}
}

// Close stops the executor after the already submitted tasks finish, and waits for it.
// It is a no-op if already closed.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		<-e.stopped
		return
	}
	e.closed = true
	e.cond.Broadcast()
	e.mu.Unlock()
	<-e.stopped
	klog.V(1).Infof("device executor %q stopped", e.name)
}
