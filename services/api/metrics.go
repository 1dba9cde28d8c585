package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the dashboard API
type Metrics struct {
	registry *prometheus.Registry

	Refreshes       *prometheus.CounterVec
	Insights        *prometheus.CounterVec
	InsightDuration prometheus.Histogram
	SnapshotSeq     prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "investpro_refreshes_total",
				Help: "Refresh triggers by outcome (applied, skipped, error)",
			},
			[]string{"outcome"},
		),

		Insights: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "investpro_insights_total",
				Help: "Insight requests by result kind",
			},
			[]string{"kind"},
		),

		InsightDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "investpro_insight_duration_seconds",
				Help:    "Time spent producing an insight",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),

		SnapshotSeq: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "investpro_snapshot_seq",
				Help: "Sequence number of the current catalog snapshot",
			},
		),
	}

	m.registry.MustRegister(m.Refreshes, m.Insights, m.InsightDuration, m.SnapshotSeq)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
