// Package metrics holds the Prometheus instrumentation for the
// authentication service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the auth counters behind one registry so tests can
// build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	// AuthRequests counts auth endpoint outcomes by endpoint and result
	// (ok, invalid_credentials, invalid_refresh_token, rate_limited,
	// storage_unavailable, invalid_request).
	AuthRequests *prometheus.CounterVec

	// RateLimited counts requests rejected by the auth rate limiter.
	RateLimited prometheus.Counter

	// RefreshReuse counts refresh tokens presented after rotation,
	// i.e. suspected token theft events.
	RefreshReuse prometheus.Counter
}

// New builds a Metrics instance with its own registry, including the
// standard Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		AuthRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freemonitor_auth_requests_total",
			Help: "Authentication endpoint requests by endpoint and result.",
		}, []string{"endpoint", "result"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freemonitor_auth_rate_limited_total",
			Help: "Requests rejected by the auth rate limiter.",
		}),
		RefreshReuse: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freemonitor_refresh_reuse_detected_total",
			Help: "Refresh tokens presented again after rotation.",
		}),
	}
	reg.MustRegister(m.AuthRequests, m.RateLimited, m.RefreshReuse)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
