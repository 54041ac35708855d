// Package zlog provides a zerolog-backed observer for the cbscope
// library. Lifecycle events log at debug level; a scope that exits with
// unreleased registrations logs at warn, and an invocation refused by the
// validity gate logs at error since it means the external API called back
// after deregistration.
package zlog

import (
	"context"

	"github.com/rs/zerolog"
)

// Observer implements cbscope.Observer by logging every hook.
type Observer struct {
	log zerolog.Logger
}

// New returns an observer logging through logger with a component field.
func New(logger zerolog.Logger) *Observer {
	return &Observer{log: logger.With().Str("component", "cbscope").Logger()}
}

func (o *Observer) ScopeEntered(_ context.Context) {
	o.log.Debug().Msg("scope entered")
}

func (o *Observer) ScopeExited(_ context.Context, leaked int, err error) {
	evt := o.log.Debug()
	if leaked > 0 {
		evt = o.log.Warn()
	}
	evt.Int("leaked", leaked).Err(err).Msg("scope exited")
}

func (o *Observer) CallbackRegistered(_ context.Context) {
	o.log.Debug().Msg("callback registered")
}

func (o *Observer) GuardReleased(_ context.Context) {
	o.log.Debug().Msg("guard released")
}

func (o *Observer) InvokeBlocked(_ context.Context) {
	o.log.Error().Msg("invocation blocked: callback called after deregistration")
}
