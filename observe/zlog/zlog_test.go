package zlog

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NetPo4ki/go-cbscope/cbscope"
)

func TestObserverLogsLifecycle(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	obs := New(zerolog.New(&buf))

	err := cbscope.Run(func(s *cbscope.Scope) error {
		g := cbscope.Register(s, func(x int) int { return x },
			func(func(int) int) int { return 0 },
			func(int) error { return nil })
		return g.Release()
	}, cbscope.WithObserver(obs))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"component":"cbscope"`)
	assert.Contains(t, out, "scope entered")
	assert.Contains(t, out, "callback registered")
	assert.Contains(t, out, "guard released")
	assert.Contains(t, out, "scope exited")
	assert.Contains(t, out, `"leaked":0`)
}

func TestLeakedScopeLogsWarn(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	obs := New(zerolog.New(&buf))

	err := cbscope.Run(func(s *cbscope.Scope) error {
		cbscope.Register(s, func(x int) int { return x },
			func(func(int) int) int { return 0 },
			func(int) error { return nil })
		return nil
	}, cbscope.WithObserver(obs))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"leaked":1`)
}

func TestBlockedInvocationLogsError(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	obs := New(zerolog.New(&buf))

	var erased func(int) int
	err := cbscope.Run(func(s *cbscope.Scope) error {
		g := cbscope.Register(s, func(x int) int { return x },
			func(cb func(int) int) int { erased = cb; return 0 },
			func(int) error { return nil })
		return g.Release()
	}, cbscope.WithObserver(obs))
	require.NoError(t, err)

	func() {
		defer func() { _ = recover() }()
		erased(1)
	}()

	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, "invocation blocked")
}
