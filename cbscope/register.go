package cbscope

import (
	"fmt"
	"sync/atomic"
)

// entry is one registration: the validity flag that gates invocation, the
// handle-bound deregister function, and a consumed bit shared by guard
// release and the exit sweep.
type entry struct {
	valid    atomic.Bool
	released atomic.Bool
	dereg    func() error
}

// Guard is the caller-held handle for one registration. Releasing it is
// the only way to deregister before the scope ends; a guard that is never
// released is handled by the exit sweep.
type Guard struct {
	s *Scope
	e *entry
}

// Register wraps callback behind a validity gate, hands the gated form to
// register, and records the registration with the scope. The register
// function is called exactly once; the handle it returns is passed to
// deregister when the guard is released or the scope sweeps. A nil
// deregister is treated as a no-op.
//
// The gated callback panics with ErrInvalidated if the external API
// invokes it after the registration has been invalidated. The flag read
// is atomic, so the gate holds even when invocations arrive from other
// goroutines.
//
// Register must be called while the scope body is still executing;
// calling it after the exit sweep has begun is a programming error and
// panics. With WithMaxRegistrations set, Register blocks until a slot is
// free, giving up if the scope's context is cancelled first.
func Register[A, R, H any](s *Scope, callback func(A) R, register func(func(A) R) H, deregister func(H) error) *Guard {
	if callback == nil || register == nil {
		panic("cbscope: Register needs a callback and a register function")
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		panic("cbscope: Register called after scope exit")
	}
	if s.lim != nil {
		if err := s.lim.Acquire(s.ctx); err != nil {
			panic(fmt.Errorf("cbscope: registration slot wait aborted: %w", err))
		}
	}

	e := &entry{}
	e.valid.Store(true)
	gated := func(a A) R {
		if !e.valid.Load() {
			if s.obs != nil {
				s.obs.InvokeBlocked(s.ctx)
			}
			panic(ErrInvalidated)
		}
		return callback(a)
	}
	handle := register(gated)
	if deregister != nil {
		e.dereg = func() error { return deregister(handle) }
	} else {
		e.dereg = func() error { return nil }
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		e.valid.Store(false)
		_ = e.dereg()
		panic("cbscope: Register raced with scope exit")
	}
	s.entries = append(s.entries, e)
	s.mu.Unlock()

	if s.obs != nil {
		s.obs.CallbackRegistered(s.ctx)
	}
	return &Guard{s: s, e: e}
}

// Release deregisters the callback, invalidates the registration, and
// removes it from the scope so the exit sweep skips it. Only the first
// call has any effect; later calls return nil. The returned error is
// whatever the deregister function reported.
func (g *Guard) Release() error {
	if g == nil || g.e == nil {
		return nil
	}
	if !g.e.released.CompareAndSwap(false, true) {
		return nil
	}
	g.e.valid.Store(false)
	err := g.e.dereg()
	g.s.remove(g.e)
	if g.s.lim != nil {
		g.s.lim.Release()
	}
	if g.s.obs != nil {
		g.s.obs.GuardReleased(g.s.ctx)
	}
	return err
}
