package serialtask

import (
	"sync"

	"github.com/joeycumines/go-serialtask/internal/fifo"
)

// SerialTaskQueue runs pushed tasks one at a time, in push order, on an
// [Executor]. At most one task from the queue is in flight at any instant,
// though which worker it runs on is up to the executor.
//
// A panic in a pushed task is recovered and discarded; the queue remains
// consistent, and surfacing the failure is the caller's responsibility,
// typically via [WaitingTaskHolder.DoneWaiting].
//
// Instances must be initialized using the NewSerialTaskQueue factory, and
// must not be copied. All methods are safe for concurrent use, including from
// within a running task (a task may push back into its own queue).
type SerialTaskQueue struct {
	executor   Executor
	mu         sync.Mutex
	tasks      *fifo.Queue[func()]
	pauseCount int
	running    bool
}

// NewSerialTaskQueue initializes a new SerialTaskQueue on the given executor.
// A panic will occur if executor is nil.
func NewSerialTaskQueue(executor Executor) *SerialTaskQueue {
	if executor == nil {
		panic(`serialtask: new serial task queue: nil executor`)
	}
	return &SerialTaskQueue{
		executor: executor,
		tasks:    fifo.New[func()](8),
	}
}

// Push enqueues task, dispatching it to the executor immediately if the
// queue is neither paused nor already running a task. On return, task is
// either queued or handed to the executor. A panic will occur if task is nil.
func (x *SerialTaskQueue) Push(task func()) {
	if task == nil {
		panic(`serialtask: push: nil task`)
	}
	x.mu.Lock()
	x.tasks.Push(task)
	next, _ := x.pickNextLocked()
	x.mu.Unlock()
	x.spawn(next)
}

// Pause prevents any queued task from being dispatched, until a matching
// Resume. Pause/resume pairs nest. Returns true iff this call transitioned
// the queue from unpaused to paused. The task currently in flight, if any, is
// unaffected.
func (x *SerialTaskQueue) Pause() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.pauseCount++
	return x.pauseCount == 1
}

// Resume undoes one Pause, dispatching the next queued task if this call
// unpaused the queue. Returns true iff it did. A panic will occur on a Resume
// without a matching Pause.
func (x *SerialTaskQueue) Resume() bool {
	x.mu.Lock()
	if x.pauseCount == 0 {
		x.mu.Unlock()
		panic(`serialtask: resume: resume without matching pause`)
	}
	x.pauseCount--
	if x.pauseCount != 0 {
		x.mu.Unlock()
		return false
	}
	next, _ := x.pickNextLocked()
	x.mu.Unlock()
	x.spawn(next)
	return true
}

// pickNextLocked implements the dispatch rule. It must be called with mu
// held, and marks the queue running if it returns a task.
func (x *SerialTaskQueue) pickNextLocked() (func(), bool) {
	if x.pauseCount == 0 && !x.running {
		if task, ok := x.tasks.Pop(); ok {
			x.running = true
			return task, true
		}
	}
	return nil, false
}

// notifyAndRun marks the in-flight task finished and dispatches the next
// eligible task, if any. Called only by the queue's own task wrapper.
func (x *SerialTaskQueue) notifyAndRun() {
	x.mu.Lock()
	x.running = false
	next, _ := x.pickNextLocked()
	x.mu.Unlock()
	x.spawn(next)
}

// spawn hands task to the executor, wrapped so that completion (normal or
// panicking) releases the queue's in-flight slot. The task is spawned outside
// the queue's lock.
func (x *SerialTaskQueue) spawn(task func()) {
	if task == nil {
		return
	}
	x.executor.Spawn(func() {
		defer x.notifyAndRun()
		defer func() {
			_ = recover()
		}()
		task()
	})
}
