package serialtask

import (
	"sync"

	"github.com/joeycumines/go-serialtask/internal/fifo"
)

// WaitingTaskList buffers [WaitingTask] continuations until an explicit
// "done waiting" edge, then runs them. The list starts in the waiting state:
// Add enqueues. DoneWaiting fires the list, recording the producer's error
// and draining the queue; from then on, Add releases the added task
// immediately, propagating the recorded error. Reset rearms a quiescent list
// for another cycle.
//
// Released tasks are spawned on the executor (not invoked inline), so
// continuation code never runs under the list's lock.
//
// Instances must be initialized using the NewWaitingTaskList factory, and
// must not be copied.
type WaitingTaskList struct {
	executor Executor
	mu       sync.Mutex
	tasks    *fifo.Queue[*WaitingTask]
	waiting  bool
	err      error
}

// NewWaitingTaskList initializes a list, in the waiting state, spawning
// released tasks on executor. A panic will occur if executor is nil.
func NewWaitingTaskList(executor Executor) *WaitingTaskList {
	if executor == nil {
		panic(`serialtask: new waiting task list: nil executor`)
	}
	return &WaitingTaskList{
		executor: executor,
		tasks:    fifo.New[*WaitingTask](8),
		waiting:  true,
	}
}

// Add registers task with the list, taking a reference. While waiting, the
// task is buffered until DoneWaiting. On a fired list, the task is released
// immediately: any recorded error is offered to it, and it is spawned if this
// release dropped its reference count to zero. A panic will occur if task is
// nil.
func (x *WaitingTaskList) Add(task *WaitingTask) {
	if task == nil {
		panic(`serialtask: add: nil task`)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	task.addRef()
	if x.waiting {
		x.tasks.Push(task)
		return
	}
	x.releaseLocked(task)
}

// DoneWaiting fires the list, recording err and releasing every buffered
// task. It must be called at most once per cycle; a panic will occur if the
// list has already fired.
func (x *WaitingTaskList) DoneWaiting(err error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.waiting {
		panic(`serialtask: done waiting: list already fired`)
	}
	x.waiting = false
	x.err = err
	for {
		task, ok := x.tasks.Pop()
		if !ok {
			break
		}
		x.releaseLocked(task)
	}
}

// Reset returns a fired list to the waiting state, clearing the recorded
// error. The caller must ensure the list is quiescent: a panic will occur if
// tasks are still buffered, and concurrent Add calls are a caller bug, not a
// defended race.
func (x *WaitingTaskList) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.tasks.Len() != 0 {
		panic(`serialtask: reset: tasks still queued`)
	}
	x.waiting = true
	x.err = nil
}

// releaseLocked drops the list's reference on task, propagating any recorded
// error first. The task is spawned only if this was the last reference; if
// not, the task is assumed to be held elsewhere (another list or holder),
// and whichever release hits zero spawns it.
func (x *WaitingTaskList) releaseLocked(task *WaitingTask) {
	if x.err != nil {
		task.DependentTaskFailed(x.err)
	}
	if task.release() == 0 {
		x.executor.Spawn(task.Run)
	}
}
