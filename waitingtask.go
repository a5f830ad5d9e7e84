package serialtask

import (
	"sync/atomic"
)

// WaitingTask is a continuation run exactly once, after every dependent that
// holds it has reported done. The continuation receives the first error
// reported by any dependent, or nil if all succeeded; later errors are
// discarded.
//
// A WaitingTask is pinned by [WaitingTaskHolder] values and by
// [WaitingTaskList] membership, each of which holds one reference. Whichever
// release drops the reference count to zero spawns the task, so a task may
// safely be held by multiple holders and sit on multiple lists at once.
//
// Instances must be initialized using the NewWaitingTask or NewWaitingTaskN
// factories.
type WaitingTask struct {
	fn      func(error)
	refs    atomic.Int32
	signals atomic.Int32
	err     atomic.Pointer[error]
}

// NewWaitingTask initializes a WaitingTask wrapping fn, expecting a single
// completion signal. A panic will occur if fn is nil.
func NewWaitingTask(fn func(error)) *WaitingTask {
	return NewWaitingTaskN(fn, 1)
}

// NewWaitingTaskN initializes a WaitingTask wrapping fn, expecting nSignals
// completion signals, see [WaitingTask.DecrementDoneCount]. A panic will
// occur if fn is nil, or nSignals is not positive.
func NewWaitingTaskN(fn func(error), nSignals int) *WaitingTask {
	if fn == nil {
		panic(`serialtask: new waiting task: nil func`)
	}
	if nSignals <= 0 {
		panic(`serialtask: new waiting task: signal count must be positive`)
	}
	task := &WaitingTask{fn: fn}
	task.signals.Store(int32(nSignals))
	return task
}

// Run invokes the continuation with the aggregated error. It is exported for
// use by [Executor] implementations; holders and lists arrange for it to be
// called exactly once.
func (x *WaitingTask) Run() {
	x.fn(x.Err())
}

// Err returns the first error reported via DependentTaskFailed, or nil.
func (x *WaitingTask) Err() error {
	if p := x.err.Load(); p != nil {
		return *p
	}
	return nil
}

// DependentTaskFailed records err as the task's aggregated error, if err is
// non-nil and no error has been recorded yet. First writer wins; losers are
// discarded. Safe for concurrent use.
func (x *WaitingTask) DependentTaskFailed(err error) {
	if err != nil && x.err.Load() == nil {
		x.err.CompareAndSwap(nil, &err)
	}
}

// DecrementDoneCount decrements the expected completion-signal count,
// returning the new value. The count is bookkeeping for continuations that
// gather several logical completions through a single holder; the task's
// lifecycle is driven solely by its holders and lists.
func (x *WaitingTask) DecrementDoneCount() int {
	return int(x.signals.Add(-1))
}

// addRef pins the task against being run.
func (x *WaitingTask) addRef() {
	x.refs.Add(1)
}

// release drops one pin, returning the remaining count.
func (x *WaitingTask) release() int32 {
	return x.refs.Add(-1)
}
