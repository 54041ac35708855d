package cbscope

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Task hosts a scope body that is driven cooperatively instead of run to
// completion in one call. The exit sweep runs in the task goroutine on
// every exit path: normal return, error, cancellation, or panic.
type Task struct {
	s      *Scope
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	firstErr error
	err      error
}

// Go starts body on its own goroutine with a scope whose context is a
// cancellable child of parent. The caller drives the task through Cancel
// and Wait; abandoning the task with Cancel still runs the sweep before
// Wait returns.
func Go(parent context.Context, body func(context.Context, *Scope) error, optFns ...Option) *Task {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	s := newScope(ctx, optFns...)
	t := &Task{s: s, cancel: cancel, done: make(chan struct{})}
	go t.run(body)
	return t
}

func (t *Task) run(body func(context.Context, *Scope) error) {
	defer close(t.done)
	defer t.cancel()

	var panicked bool
	var pv any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				pv = r
			}
		}()
		t.fail(body(t.s.ctx, t.s))
	}()

	leaked, sweepErr := t.s.sweep()
	if panicked {
		if !t.s.opts.PanicAsError {
			panic(pv)
		}
		t.fail(fmt.Errorf("panic: %v", pv))
	}

	t.mu.Lock()
	t.err = errors.Join(t.firstErr, sweepErr)
	final := t.err
	t.mu.Unlock()
	if t.s.obs != nil {
		t.s.obs.ScopeExited(t.s.ctx, leaked, final)
	}
}

func (t *Task) fail(err error) {
	if err == nil {
		return
	}
	t.mu.Lock()
	if t.firstErr == nil {
		t.firstErr = err
	}
	t.mu.Unlock()
}

// Cancel asks the body to stop. The first non-nil error recorded, whether
// by Cancel or by the body, becomes the task's error.
func (t *Task) Cancel(err error) {
	t.fail(err)
	t.cancel()
}

// Wait blocks until the body has returned and the exit sweep has run. It
// returns the first recorded error joined with any deregistration errors
// from the sweep.
func (t *Task) Wait() error {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) Context() context.Context { return t.s.ctx }
