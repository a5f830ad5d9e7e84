// Package serialtask provides serialization primitives for dispatching many
// short tasks onto a shared worker pool: FIFO serial task queues with
// pause/resume backpressure, chains composing multiple queues into a single
// serial resource, and waiting tasks (continuations run exactly once after
// all of their dependents have reported done, aggregating the first error).
//
// Tasks are nullary funcs, run to completion on whatever worker they are
// spawned onto, and there are no suspension points. The underlying executor
// is abstracted by the [Executor] interface; see the workerpool subpackage
// for a concrete implementation.
package serialtask
