package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRun("listing", "ok")
	m.ObserveStep("extract_text", "ok", 10*time.Millisecond)
	m.ObserveStep("extract_text", "ok", 20*time.Millisecond)
	m.ObserveStep("navigate", "failed", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("listing", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StepsTotal.WithLabelValues("extract_text", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepsTotal.WithLabelValues("navigate", "failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.StepDuration))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun("detail", "ok")
		m.ObserveStep("navigate", "ok", time.Millisecond)
	})
}
