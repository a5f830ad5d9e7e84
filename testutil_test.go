package serialtask_test

import (
	"runtime"
	"sync"
	"testing"
	"time"
)

// simultaneously runs every fn on its own goroutine, holding them all at a
// barrier until the last is ready, then waits for all of them to return.
func simultaneously(fns ...func()) {
	var ready, done sync.WaitGroup
	ready.Add(len(fns))
	done.Add(len(fns))
	start := make(chan struct{})
	for _, fn := range fns {
		go func(fn func()) {
			defer done.Done()
			ready.Done()
			<-start
			fn()
		}(fn)
	}
	ready.Wait()
	close(start)
	done.Wait()
}

// checkNumGoroutines returns a func that waits for the goroutine count to
// drop back to its level at call time, for use as a leak check.
func checkNumGoroutines(wait time.Duration) func(t *testing.T) {
	count := runtime.NumGoroutine()
	return func(t *testing.T) {
		t.Helper()
		deadline := time.Now().Add(wait)
		for runtime.NumGoroutine() > count {
			if time.Now().After(deadline) {
				t.Errorf(`goroutine leak: started with %d, now %d`, count, runtime.NumGoroutine())
				return
			}
			time.Sleep(time.Millisecond)
		}
	}
}
