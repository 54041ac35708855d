// Package prom provides a Prometheus-backed observer for the cbscope
// library. Counters cover scope lifecycle, registrations, releases,
// leaked entries swept at exit, and invocations blocked by the gate.
package prom

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Observer implements cbscope.Observer on top of Prometheus counters.
type Observer struct {
	scopesEntered  prometheus.Counter
	scopesExited   prometheus.Counter
	scopeErrors    prometheus.Counter
	registrations  prometheus.Counter
	releases       prometheus.Counter
	leakedSwept    prometheus.Counter
	blockedInvokes prometheus.Counter
}

// New creates the observer and registers its metrics with reg.
func New(reg prometheus.Registerer) *Observer {
	factory := promauto.With(reg)
	return &Observer{
		scopesEntered: factory.NewCounter(prometheus.CounterOpts{
			Name: "cbscope_scopes_entered_total",
			Help: "Total number of callback scopes entered.",
		}),
		scopesExited: factory.NewCounter(prometheus.CounterOpts{
			Name: "cbscope_scopes_exited_total",
			Help: "Total number of callback scopes exited.",
		}),
		scopeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "cbscope_scope_errors_total",
			Help: "Total number of scopes that exited with an error.",
		}),
		registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "cbscope_registrations_total",
			Help: "Total number of callbacks registered.",
		}),
		releases: factory.NewCounter(prometheus.CounterOpts{
			Name: "cbscope_guard_releases_total",
			Help: "Total number of guards released before scope exit.",
		}),
		leakedSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "cbscope_leaked_entries_swept_total",
			Help: "Total number of unreleased registrations swept at scope exit.",
		}),
		blockedInvokes: factory.NewCounter(prometheus.CounterOpts{
			Name: "cbscope_blocked_invocations_total",
			Help: "Total number of callback invocations refused by the validity gate.",
		}),
	}
}

func (o *Observer) ScopeEntered(_ context.Context) { o.scopesEntered.Inc() }

func (o *Observer) ScopeExited(_ context.Context, leaked int, err error) {
	o.scopesExited.Inc()
	o.leakedSwept.Add(float64(leaked))
	if err != nil {
		o.scopeErrors.Inc()
	}
}

func (o *Observer) CallbackRegistered(_ context.Context) { o.registrations.Inc() }

func (o *Observer) GuardReleased(_ context.Context) { o.releases.Inc() }

func (o *Observer) InvokeBlocked(_ context.Context) { o.blockedInvokes.Inc() }
