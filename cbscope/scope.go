package cbscope

import (
	"context"
	"errors"
	"sync"
)

// ErrInvalidated is the panic value raised when a registered callback is
// invoked after its registration was deregistered or its scope exited.
var ErrInvalidated = errors.New("cbscope: callback invoked after invalidation")

type Option func(*Options)

type Options struct {
	PanicAsError     bool
	Observer         Observer
	MaxRegistrations int
}

func defaultOptions() Options { return Options{PanicAsError: true} }

func WithPanicAsError(v bool) Option { return func(o *Options) { o.PanicAsError = v } }

func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

func WithMaxRegistrations(n int) Option { return func(o *Options) { o.MaxRegistrations = n } }

type Observer interface {
	ScopeEntered(ctx context.Context)
	ScopeExited(ctx context.Context, leaked int, err error)
	CallbackRegistered(ctx context.Context)
	GuardReleased(ctx context.Context)
	InvokeBlocked(ctx context.Context)
}

// Scope owns the registrations made during one body invocation. The
// entries collection is mutated by Register, guard release, and the exit
// sweep; all three go through mu.
type Scope struct {
	ctx     context.Context
	mu      sync.Mutex
	entries []*entry
	closed  bool

	opts Options
	obs  Observer
	lim  Limiter
}

func newScope(ctx context.Context, optFns ...Option) *Scope {
	s := &Scope{ctx: ctx, opts: defaultOptions()}
	for _, fn := range optFns {
		fn(&s.opts)
	}
	s.obs = s.opts.Observer
	if s.opts.MaxRegistrations > 0 {
		s.lim = newSemaphoreLimiter(s.opts.MaxRegistrations)
	}
	if s.obs != nil {
		s.obs.ScopeEntered(ctx)
	}
	return s
}

func (s *Scope) Context() context.Context { return s.ctx }

// Run executes body with a fresh Scope on the calling goroutine.
func Run(body func(*Scope) error, optFns ...Option) error {
	return RunContext(context.Background(), body, optFns...)
}

// RunContext executes body with a fresh Scope bound to ctx. Before it
// returns, through any exit path including a body panic, every
// registration made through the Scope has been deregistered and had its
// validity flag forced false. Entries whose guard was never released are
// swept in registration order; their deregistration errors are joined
// with the body's error.
func RunContext(ctx context.Context, body func(*Scope) error, optFns ...Option) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := newScope(ctx, optFns...)
	defer func() {
		leaked, sweepErr := s.sweep()
		err = errors.Join(err, sweepErr)
		if s.obs != nil {
			s.obs.ScopeExited(s.ctx, leaked, err)
		}
	}()
	return body(s)
}

// sweep deregisters and invalidates every entry whose guard was never
// released, in registration order. Deregistration runs before the flag
// flip, so a deregister function that fails to suppress future
// invocations still leaves the gate closed.
func (s *Scope) sweep() (int, error) {
	s.mu.Lock()
	s.closed = true
	leaked := s.entries
	s.entries = nil
	s.mu.Unlock()

	var errs []error
	for _, e := range leaked {
		if !e.released.CompareAndSwap(false, true) {
			continue
		}
		if err := e.dereg(); err != nil {
			errs = append(errs, err)
		}
		e.valid.Store(false)
		if s.lim != nil {
			s.lim.Release()
		}
	}
	return len(leaked), errors.Join(errs...)
}

func (s *Scope) remove(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.entries {
		if cur == e {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}
