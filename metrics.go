package pgsess

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStats is a StatsSink exposing the Executor's counters
// through a prometheus registry, for loaders that already run a metrics
// endpoint. Rows are a gauge, not a counter — a failed batch retracts
// its count, so the net value can move down.
type PrometheusStats struct {
	attempted *prometheus.CounterVec
	rows      *prometheus.GaugeVec
	errors    *prometheus.CounterVec
	seconds   *prometheus.CounterVec
}

// NewPrometheusStats creates the metric vectors and registers them with
// reg. Panics on registration conflicts, like all MustRegister use.
func NewPrometheusStats(reg prometheus.Registerer, namespace string) *PrometheusStats {
	labels := []string{"section", "label"}
	p := &PrometheusStats{
		attempted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_attempted_total",
			Help:      "Logical items attempted per section/label.",
		}, labels),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_affected",
			Help:      "Net rows affected per section/label.",
		}, labels),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statement_errors_total",
			Help:      "Failed statement batches per section/label.",
		}, labels),
		seconds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statement_seconds_total",
			Help:      "Wall time spent executing per section/label.",
		}, labels),
	}
	reg.MustRegister(p.attempted, p.rows, p.errors, p.seconds)
	return p
}

// Update implements StatsSink.
func (p *PrometheusStats) Update(section, label string, attempted, rows, errs int64, seconds float64) {
	l := prometheus.Labels{"section": section, "label": label}
	p.attempted.With(l).Add(float64(attempted))
	p.rows.With(l).Add(float64(rows))
	p.errors.With(l).Add(float64(errs))
	p.seconds.With(l).Add(seconds)
}
