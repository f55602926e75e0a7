// Package task provides a cancellable unit of background work and the
// single-goroutine sequences that run it.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// State is the lifecycle of a Task.
type State int32

const (
	Pending State = iota
	Running
	Done
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

var errRunTwice = errors.New("task already run")

// Outcome is the result of running a Task. Exactly one of Value (with a
// nil Err), Err or Cancelled is meaningful.
type Outcome[R any] struct {
	Gen       uint64
	Value     R
	Err       error
	Cancelled bool
}

// OK reports whether the task produced a value.
func (o Outcome[R]) OK() bool { return !o.Cancelled && o.Err == nil }

// Task is a unit of background work. The run function polls its context
// for cancellation. The cleanup function releases whatever run owned and
// is called exactly once, after run returns, whether it succeeded, failed,
// panicked or never ran because the task was cancelled first.
type Task[R any] struct {
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc
	run     func(context.Context) (R, error)
	cleanup func()
	state   atomic.Int32
	done    chan struct{}
	once    sync.Once
}

// New makes a pending task tagged with generation gen. Cleanup may be nil.
func New[R any](gen uint64, run func(context.Context) (R, error), cleanup func()) *Task[R] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Task[R]{
		gen:     gen,
		ctx:     ctx,
		cancel:  cancel,
		run:     run,
		cleanup: cleanup,
		done:    make(chan struct{}),
	}
}

// Gen returns the generation the task was created with.
func (t *Task[R]) Gen() uint64 { return t.gen }

// State returns the current lifecycle state.
func (t *Task[R]) State() State { return State(t.state.Load()) }

// Done is closed once cleanup has run.
func (t *Task[R]) Done() <-chan struct{} { return t.done }

// Cancel asks the running work to stop. Cancelling a finished task does
// nothing.
func (t *Task[R]) Cancel() {
	if t.State() == Done {
		return
	}
	t.cancel()
}

// Run executes the task on the calling goroutine. A task runs at most once;
// later calls report an error without calling run or cleanup again.
func (t *Task[R]) Run() (out Outcome[R]) {
	out.Gen = t.gen
	if !t.state.CompareAndSwap(int32(Pending), int32(Running)) {
		out.Err = errRunTwice
		return out
	}
	defer t.finish()

	if t.ctx.Err() != nil {
		out.Cancelled = true
		return out
	}
	v, err := t.protect()
	switch {
	case err == nil:
		out.Value = v
	case t.ctx.Err() != nil || errors.Is(err, context.Canceled):
		out.Cancelled = true
	default:
		out.Err = err
	}
	return out
}

func (t *Task[R]) protect() (v R, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			v, err = zero, fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t.run(t.ctx)
}

func (t *Task[R]) finish() {
	t.once.Do(func() {
		defer func() {
			t.state.Store(int32(Done))
			t.cancel()
			close(t.done)
		}()
		if t.cleanup != nil {
			t.cleanup()
		}
	})
}

// Submit queues t on seq and hands its outcome to deliver on the sequence
// goroutine.
func Submit[R any](seq *Sequence, t *Task[R], deliver func(Outcome[R])) {
	seq.Go(func() {
		out := t.Run()
		if deliver != nil {
			deliver(out)
		}
	})
}
