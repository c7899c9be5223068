package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for settings reconciliation.
type Metrics struct {
	Reconciliations   *prometheus.CounterVec
	ReconcileDuration prometheus.Histogram
	PersistFailures   prometheus.Counter
	EventsPublished   *prometheus.CounterVec
	InvalidAuth       prometheus.Counter
}

// New registers every metric with reg. Pass prometheus.DefaultRegisterer in production
// and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Reconciliations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edsync_reconciliations_total",
			Help: "Reconciliations by outcome",
		}, []string{"outcome"}),
		ReconcileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "edsync_reconcile_duration_seconds",
			Help:    "Duration of one reconciliation including the network fetch",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "edsync_persist_failures_total",
			Help: "Settings cache reads or writes that failed",
		}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edsync_change_events_total",
			Help: "Change events published by kind (cached, fresh, error)",
		}, []string{"kind"}),
		InvalidAuth: f.NewCounter(prometheus.CounterOpts{
			Name: "edsync_invalid_auth_total",
			Help: "Invalid authentication signals delivered",
		}),
	}
}

// ObserveReconcile records one reconciliation outcome.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveReconcile(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(outcome).Inc()
	m.ReconcileDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncPersistFailure() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) IncEvent(kind string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(kind).Inc()
}

// OnRequestedWithInvalidAuthentication lets Metrics listen on the invalid-auth registry.
func (m *Metrics) OnRequestedWithInvalidAuthentication(string) {
	if m == nil {
		return
	}
	m.InvalidAuth.Inc()
}
