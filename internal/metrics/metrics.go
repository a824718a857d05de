// Package metrics holds the Prometheus collectors of the bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is passed to the components that record something.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	Logins           *prometheus.CounterVec

	// ActiveSessions is nil until TrackSessions is called.
	ActiveSessions prometheus.GaugeFunc

	reg prometheus.Registerer
}

// New creates and registers all collectors with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		reg: reg,
		UpstreamRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "exam_bridge",
				Name:      "upstream_requests_total",
				Help:      "Upstream calls by operation and outcome",
			},
			[]string{"op", "outcome"}, // outcome=ok/http_error/transport_error/too_large
		),
		UpstreamDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "exam_bridge",
				Name:      "upstream_request_duration_seconds",
				Help:      "Upstream call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		Logins: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "exam_bridge",
				Name:      "logins_total",
				Help:      "Login attempts by result",
			},
			[]string{"result"},
		),
	}
}

// TrackSessions exports count as the active-session gauge. The value is read
// at scrape time, so it is never behind the store. Call it once per registry.
func (m *Metrics) TrackSessions(count func() int) {
	m.ActiveSessions = promauto.With(m.reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "exam_bridge",
			Name:      "active_sessions",
			Help:      "Number of sessions in the store",
		},
		func() float64 { return float64(count()) },
	)
}

// Discard returns collectors bound to a private registry, for tests and tools.
func Discard() *Metrics {
	return New(prometheus.NewRegistry())
}
