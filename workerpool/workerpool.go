// Package workerpool implements a parallel task executor: a fixed set of
// worker goroutines draining an unbounded FIFO of tasks, with a quiescence
// barrier.
//
// It satisfies the serialtask.Executor interface, and is the intended
// executor for the serial task queue and waiting task primitives, which
// require that spawned tasks may themselves spawn tasks without blocking.
package workerpool

import (
	"runtime"
	"sync"

	"github.com/joeycumines/go-serialtask/internal/fifo"
	"github.com/joeycumines/logiface"
)

type (
	// Config models optional configuration, for New.
	Config struct {
		// Workers is the number of worker goroutines.
		// **Defaults to runtime.NumCPU(), if 0.**
		//
		// WARNING: New will panic if Workers is negative.
		Workers int

		// Logger receives structured logs, currently limited to recovered
		// task panics, at error level. May be nil, disabling logging.
		Logger *logiface.Logger[logiface.Event]
	}

	// Pool is a parallel task executor. Instances must be initialized using
	// the New factory.
	//
	// All methods are safe for concurrent use. Spawned tasks run to
	// completion on some worker; a panicking task is recovered and logged,
	// and never kills its worker.
	Pool struct {
		logger  *logiface.Logger[logiface.Event]
		mu      sync.Mutex
		work    sync.Cond // signaled on task arrival and close
		idle    sync.Cond // broadcast when pending drops to zero
		tasks   *fifo.Queue[func()]
		pending int // queued + running
		closed  bool
		workers sync.WaitGroup
	}
)

// New initializes a new Pool, using the provided Config, which may be nil,
// and starts its workers. A panic will occur if config specifies a negative
// worker count.
//
// The Pool.Close method should be called when the Pool is no longer needed.
func New(config *Config) *Pool {
	pool := Pool{tasks: fifo.New[func()](16)}
	pool.work.L = &pool.mu
	pool.idle.L = &pool.mu

	workers := 0
	if config != nil {
		if config.Workers < 0 {
			panic(`workerpool: worker count must not be negative`)
		}
		workers = config.Workers
		pool.logger = config.Logger
	}
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	pool.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.worker()
	}

	return &pool
}

// Spawn schedules task to run on some worker. The task is never run inline;
// Spawn only enqueues, and returns immediately. A panic will occur if task is
// nil, or the pool is closed.
//
// The queue is unbounded, so tasks may spawn further tasks freely.
func (x *Pool) Spawn(task func()) {
	if task == nil {
		panic(`workerpool: spawn: nil task`)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		panic(`workerpool: spawn: pool is closed`)
	}
	x.tasks.Push(task)
	x.pending++
	x.work.Signal()
}

// WaitForIdle blocks until every task spawned so far has returned and the
// queue is empty, including tasks spawned by other tasks in the interim.
// Each completed task's effects happen before WaitForIdle returns.
func (x *Pool) WaitForIdle() {
	x.mu.Lock()
	defer x.mu.Unlock()
	for x.pending != 0 {
		x.idle.Wait()
	}
}

// Close prevents further Spawn calls, runs any tasks still queued, and waits
// for the workers to exit. Close is idempotent.
//
// This method is unsafe to call from within a task.
func (x *Pool) Close() {
	x.mu.Lock()
	x.closed = true
	x.work.Broadcast()
	x.mu.Unlock()
	x.workers.Wait()
}

func (x *Pool) worker() {
	defer x.workers.Done()
	x.mu.Lock()
	for {
		task, ok := x.tasks.Pop()
		if !ok {
			if x.closed {
				x.mu.Unlock()
				return
			}
			x.work.Wait()
			continue
		}
		x.mu.Unlock()

		x.run(task)

		x.mu.Lock()
		x.pending--
		if x.pending == 0 {
			x.idle.Broadcast()
		}
	}
}

func (x *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Err().
				Interface(`recovered`, r).
				Log(`workerpool: recovered from panic in task`)
		}
	}()
	task()
}
