// Package metrics provides Prometheus metrics for portal session
// operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the session core.
type Metrics struct {
	enabled bool

	// Auth flow metrics
	loginsTotal   *prometheus.CounterVec
	loginDuration prometheus.Histogram
	logoutsTotal  *prometheus.CounterVec

	// Profile fetch metrics
	profileFetchesTotal *prometheus.CounterVec

	// Navigation metrics
	guardDecisionsTotal *prometheus.CounterVec

	// Outbound request metrics
	authedRequestsTotal *prometheus.CounterVec
}

// New creates and registers metrics on the default registry.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool) *Metrics {
	return NewWith(prometheus.DefaultRegisterer, enabled)
}

// NewWith creates and registers metrics on the given registerer.
func NewWith(reg prometheus.Registerer, enabled bool) *Metrics {
	m := &Metrics{enabled: enabled}

	if !enabled {
		return m
	}

	factory := promauto.With(reg)

	m.loginsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_logins_total",
		Help: "Total login attempts",
	}, []string{"result"})

	m.loginDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "portal_login_duration_seconds",
		Help:    "Login round-trip duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	m.logoutsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_logouts_total",
		Help: "Total logouts by cause",
	}, []string{"cause"})

	m.profileFetchesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_profile_fetches_total",
		Help: "Total profile fetches",
	}, []string{"result"})

	m.guardDecisionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_guard_decisions_total",
		Help: "Total route guard decisions",
	}, []string{"outcome", "reason"})

	m.authedRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_outbound_requests_total",
		Help: "Total outbound requests by credential attachment",
	}, []string{"authenticated"})

	return m
}

// RecordLogin records a login attempt and its duration.
func (m *Metrics) RecordLogin(result string, d time.Duration) {
	if m == nil || !m.enabled {
		return
	}
	m.loginsTotal.WithLabelValues(result).Inc()
	m.loginDuration.Observe(d.Seconds())
}

// RecordLogout records a logout and its cause.
func (m *Metrics) RecordLogout(cause string) {
	if m == nil || !m.enabled {
		return
	}
	m.logoutsTotal.WithLabelValues(cause).Inc()
}

// RecordProfileFetch records a profile fetch outcome.
func (m *Metrics) RecordProfileFetch(result string) {
	if m == nil || !m.enabled {
		return
	}
	m.profileFetchesTotal.WithLabelValues(result).Inc()
}

// RecordGuardDecision records a navigation decision.
func (m *Metrics) RecordGuardDecision(outcome, reason string) {
	if m == nil || !m.enabled {
		return
	}
	m.guardDecisionsTotal.WithLabelValues(outcome, reason).Inc()
}

// RecordOutboundRequest records whether an outgoing request carried the
// bearer credential.
func (m *Metrics) RecordOutboundRequest(authenticated bool) {
	if m == nil || !m.enabled {
		return
	}
	label := "false"
	if authenticated {
		label = "true"
	}
	m.authedRequestsTotal.WithLabelValues(label).Inc()
}
