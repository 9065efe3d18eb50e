package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics("appointments_test")

	m.RecordRequest("/appointments/:id", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/appointments/:id", "GET", 200, 5*time.Millisecond)
	m.RecordError("/appointments/:id/transitions", "POST", "INVALID_TRANSITION")
	m.RecordTransition("pending", "confirmed", "provider_confirms")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestCount.WithLabelValues("/appointments/:id", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorCount.WithLabelValues("/appointments/:id/transitions", "POST", "INVALID_TRANSITION")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitionCount.WithLabelValues("pending", "confirmed", "provider_confirms")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordTransition("a", "b", "c")
	})
}
