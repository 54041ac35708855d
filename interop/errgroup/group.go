// Package errgroup runs callback scopes as tasks of a
// golang.org/x/sync/errgroup.Group. The first scope to fail cancels the
// group context, which the sibling scope bodies observe cooperatively;
// every scope still runs its exit sweep before Wait returns.
package errgroup

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/NetPo4ki/go-cbscope/cbscope"
)

// Group hosts one cooperative callback scope per Go call.
type Group struct {
	g   *errgroup.Group
	ctx context.Context
}

// WithContext creates a Group bound to ctx. The returned context is
// cancelled when any scope finishes with a non-nil error.
func WithContext(ctx context.Context) (*Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	return &Group{g: g, ctx: gctx}, gctx
}

// Go starts body as a cooperative callback scope. A non-nil error from
// the body, a deregistration failure during its sweep, or a recovered
// body panic all fail the group.
func (g *Group) Go(body func(context.Context, *cbscope.Scope) error, opts ...cbscope.Option) {
	if body == nil {
		return
	}
	g.g.Go(func() error {
		return cbscope.Go(g.ctx, body, opts...).Wait()
	})
}

// Wait blocks until every scope has returned and swept. It returns the
// first non-nil error.
func (g *Group) Wait() error {
	return g.g.Wait()
}
