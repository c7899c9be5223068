package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveReconcile("unchanged", time.Now())
	m.ObserveReconcile("unchanged", time.Now())
	m.IncPersistFailure()
	m.IncEvent("cached")
	m.OnRequestedWithInvalidAuthentication("https://example.org")

	require.Equal(t, 2.0, testutil.ToFloat64(m.Reconciliations.WithLabelValues("unchanged")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.PersistFailures))
	require.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("cached")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("fresh")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.InvalidAuth))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveReconcile("emitted_fresh", time.Now())
		m.IncPersistFailure()
		m.IncEvent("fresh")
		m.OnRequestedWithInvalidAuthentication("https://example.org")
	})
}
