package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObservePass(PassCompleted, time.Second)
	m.ObservePass(PassSkipped, 0)
	m.LeadEvaluated(true)
	m.LeadEvaluated(false)
	m.EmailSent()
	m.DeliveryFailed()
	m.UpdateFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes.WithLabelValues(PassCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes.WithLabelValues(PassSkipped)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.leadsEvaluated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.leadsDue))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emailsSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveryFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.updateFailures))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObservePass(PassFailed, time.Second)
		m.LeadEvaluated(true)
		m.EmailSent()
		m.DeliveryFailed()
		m.UpdateFailed()
	})
}

func TestParseLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLevel("debug").String())
	assert.Equal(t, "WARN", ParseLevel("WARN").String())
	assert.Equal(t, "INFO", ParseLevel("").String())
}
