package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRecordForward(t *testing.T) {
	RecordForward("metrics-test", 512, 0.001, nil)
	RecordForward("metrics-test", 512, 0.001, errors.New("boom"))

	assert.Equal(t, float64(512), counterValue(t, SamplesTotal.WithLabelValues("metrics-test")))
	assert.Equal(t, float64(1), counterValue(t, ForwardErrorsTotal.WithLabelValues("metrics-test")))
}

func TestRecordLifecycle(t *testing.T) {
	RecordLifecycle("metrics-test", "flush", true)
	RecordLifecycle("metrics-test", "flush", false)
	RecordLifecycle("metrics-test", "flush", false)

	assert.Equal(t, float64(1), counterValue(t, LifecycleCallsTotal.WithLabelValues("metrics-test", "flush", "true")))
	assert.Equal(t, float64(2), counterValue(t, LifecycleCallsTotal.WithLabelValues("metrics-test", "flush", "false")))
}

func TestRecordRequest(t *testing.T) {
	RecordRequest("GET", "/metrics-test", "200", 0.01)
	assert.Equal(t, float64(1), counterValue(t, RequestsTotal.WithLabelValues("GET", "/metrics-test", "200")))
}
