package serialtask

// WaitingTaskHolder is a single-owner handle pinning one [WaitingTask]. The
// holder increments the task's reference count on construction, and
// decrements it exactly once, on [WaitingTaskHolder.DoneWaiting]; if that
// decrement drops the count to zero, the task is spawned on the holder's
// executor.
//
// A holder is either non-empty (it refers to a task it has pinned) or empty
// (released). Individual holders are not safe for concurrent use; hand each
// dependent its own holder.
type WaitingTaskHolder struct {
	executor Executor
	task     *WaitingTask
}

// NewWaitingTaskHolder initializes a holder pinning task, which will be
// spawned on executor once every holder and list has released it. A panic
// will occur if executor or task is nil.
func NewWaitingTaskHolder(executor Executor, task *WaitingTask) *WaitingTaskHolder {
	if executor == nil {
		panic(`serialtask: new waiting task holder: nil executor`)
	}
	if task == nil {
		panic(`serialtask: new waiting task holder: nil task`)
	}
	task.addRef()
	return &WaitingTaskHolder{executor: executor, task: task}
}

// Empty returns true if the holder has already released its task.
func (x *WaitingTaskHolder) Empty() bool {
	return x.task == nil
}

// DoneWaiting reports this dependent done, releasing the task. A non-nil err
// is offered to the task's first-error slot, see
// [WaitingTask.DependentTaskFailed]. If this was the last outstanding
// reference, the task is spawned. Calling DoneWaiting on an empty holder is a
// no-op, so releasing with nil is a safe default on every exit path.
func (x *WaitingTaskHolder) DoneWaiting(err error) {
	if x.task == nil {
		return
	}
	if err != nil {
		x.task.DependentTaskFailed(err)
	}
	if x.task.release() == 0 {
		task := x.task
		x.executor.Spawn(task.Run)
	}
	x.task = nil
}
