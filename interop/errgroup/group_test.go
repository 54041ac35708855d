package errgroup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NetPo4ki/go-cbscope/cbscope"
)

func TestGroupSweepsEveryScope(t *testing.T) {
	t.Parallel()
	var deregs atomic.Int32
	g, _ := WithContext(context.Background())
	for i := 0; i < 3; i++ {
		g.Go(func(_ context.Context, s *cbscope.Scope) error {
			cbscope.Register(s, func(x int) int { return x },
				func(func(int) int) int { return 0 },
				func(int) error { deregs.Add(1); return nil })
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(3), deregs.Load())
}

func TestGroupErrorCancelsSiblings(t *testing.T) {
	t.Parallel()
	var deregs atomic.Int32
	g, gctx := WithContext(context.Background())

	g.Go(func(ctx context.Context, s *cbscope.Scope) error {
		cbscope.Register(s, func(x int) int { return x },
			func(func(int) int) int { return 0 },
			func(int) error { deregs.Add(1); return nil })
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
			t.Error("sibling was not cancelled")
			return nil
		}
	})
	g.Go(func(_ context.Context, _ *cbscope.Scope) error {
		time.Sleep(20 * time.Millisecond)
		return errors.New("boom")
	})

	err := g.Wait()
	require.Error(t, err)
	assert.Equal(t, int32(1), deregs.Load())
	select {
	case <-gctx.Done():
	default:
		t.Fatal("group context should be cancelled after failure")
	}
}

func TestGroupSweepErrorFailsGroup(t *testing.T) {
	t.Parallel()
	boom := errors.New("deregister failed")
	g, _ := WithContext(context.Background())
	g.Go(func(_ context.Context, s *cbscope.Scope) error {
		cbscope.Register(s, func(x int) int { return x },
			func(func(int) int) int { return 0 },
			func(int) error { return boom })
		return nil
	})
	require.ErrorIs(t, g.Wait(), boom)
}
