package serialtask

import "sync"

// SerialTaskQueueChain composes one or more serial task queues into a single
// composite serial resource: a pushed task runs only once it holds every
// member queue, acquired in the order given at construction.
//
// The construction-time ordering is also the lock order. Callers sharing
// queues between chains must use a consistent ordering across all chains, or
// risk deadlock.
//
// Instances must be initialized using the NewSerialTaskQueueChain factory,
// and must not be copied.
type SerialTaskQueueChain struct {
	mu     sync.Mutex
	queues []*SerialTaskQueue
}

// NewSerialTaskQueueChain initializes a chain over the given queues. A panic
// will occur if no queues are provided, or if any queue is nil.
func NewSerialTaskQueueChain(queues []*SerialTaskQueue) *SerialTaskQueueChain {
	if len(queues) == 0 {
		panic(`serialtask: new serial task queue chain: no queues`)
	}
	for _, queue := range queues {
		if queue == nil {
			panic(`serialtask: new serial task queue chain: nil queue`)
		}
	}
	return &SerialTaskQueueChain{queues: append([]*SerialTaskQueue(nil), queues...)}
}

// Push enqueues task to run while holding every queue in the chain. Tasks
// pushed to the same chain run one at a time, in push order. A panic will
// occur if task is nil.
//
// Push may be called from within a running chained task; the inner task is
// simply enqueued.
func (x *SerialTaskQueueChain) Push(task func()) {
	if task == nil {
		panic(`serialtask: push: nil task`)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.queues) == 1 {
		x.queues[0].Push(func() { x.runFunc(task) })
	} else {
		x.queues[0].Push(func() { x.passDown(1, task) })
	}
}

// passDown runs inside queue idx-1's in-flight task. It pauses queue idx-1,
// so that its in-flight slot is not released to another task until the
// chained task returns, then forwards task to queue idx.
func (x *SerialTaskQueueChain) passDown(idx int, task func()) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.queues[idx-1].Pause()
	if idx+1 == len(x.queues) {
		x.queues[idx].Push(func() { x.runFunc(task) })
	} else {
		next := idx + 1
		x.queues[idx].Push(func() { x.passDown(next, task) })
	}
}

// runFunc runs inside the last queue's in-flight task, holding every queue in
// the chain. The upstream queues are resumed, in reverse order, whether task
// returns or panics; a panic propagates after the resumes.
func (x *SerialTaskQueueChain) runFunc(task func()) {
	defer func() {
		x.mu.Lock()
		defer x.mu.Unlock()
		for i := len(x.queues) - 2; i >= 0; i-- {
			x.queues[i].Resume()
		}
	}()
	task()
}
