package engine

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/roach88/folio/internal/site"
)

// taskState is the lifecycle of a task.
type taskState int

const (
	taskPending taskState = iota
	taskRunning
	taskSuspended
	taskDone
	taskFailed
)

func (s taskState) String() string {
	switch s {
	case taskPending:
		return "pending"
	case taskRunning:
		return "running"
	case taskSuspended:
		return "suspended"
	case taskDone:
		return "done"
	case taskFailed:
		return "failed"
	default:
		return fmt.Sprintf("taskState(%d)", int(s))
	}
}

// unmetDependency names the snapshot a suspended task waits for.
type unmetDependency struct {
	rep      *site.ItemRep
	snapshot string
}

type signalKind int

const (
	signalSuspended signalKind = iota + 1
	signalDone
	signalFailed
)

// signal is what a task yields back to the scheduler.
type signal struct {
	kind signalKind
	wait unmetDependency
	err  error
}

// task compiles one rep. Its body runs on a dedicated goroutine that only
// executes between a send on resume and the next receive on yield.
type task struct {
	rep   *site.ItemRep
	state taskState

	// wait is set while suspended. suspendedAt orders waiters.
	wait        unmetDependency
	suspendedAt uint64

	// suspended is the total time spent waiting for other reps.
	suspended time.Duration

	err error

	resume  chan bool // true aborts
	yield   chan signal
	started bool
	aborted bool
}

func newTask(rep *site.ItemRep) *task {
	return &task{
		rep:    rep,
		state:  taskPending,
		resume: make(chan bool),
		yield:  make(chan signal),
	}
}

// start launches the goroutine running body. The goroutine blocks until
// the first resume.
func (t *task) start(body func(*task) error) {
	t.started = true
	go func() {
		if abort := <-t.resume; abort {
			t.yield <- signal{kind: signalFailed, err: errAborted}
			return
		}
		err := t.runBody(body)
		if err != nil {
			t.yield <- signal{kind: signalFailed, err: err}
			return
		}
		t.yield <- signal{kind: signalDone}
	}()
}

func (t *task) runBody(body func(*task) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return body(t)
}

// step hands control to the task and waits for it to yield.
func (t *task) step() signal {
	t.state = taskRunning
	t.resume <- false
	return <-t.yield
}

// suspend is called on the task's goroutine. It yields w to the scheduler
// and blocks until resumed.
func (t *task) suspend(w unmetDependency) error {
	if t.aborted {
		return errAborted
	}
	since := time.Now()
	t.yield <- signal{kind: signalSuspended, wait: w}
	abort := <-t.resume
	t.suspended += time.Since(since)
	if abort {
		return errAborted
	}
	return nil
}

// abort tears down a task that is not finished and waits for its goroutine
// to exit. A running task here is one woken but not yet stepped.
func (t *task) abort() {
	switch t.state {
	case taskPending, taskRunning, taskSuspended:
	default:
		return
	}
	t.aborted = true
	t.state = taskFailed
	t.err = errAborted
	if !t.started {
		return
	}
	t.resume <- true
	for {
		sig := <-t.yield
		if sig.kind != signalSuspended {
			break
		}
		t.resume <- true
	}
}
