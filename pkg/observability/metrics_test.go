package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.MutationStarted()
	m.MutationStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueDepth))

	m.MutationFinished(ResultCommitted, time.Now())
	m.MutationFinished(ResultAborted, time.Now())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.QueueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues(ResultCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues(ResultAborted)))

	m.Generated(12)
	m.Graded("pass")
	m.Request("POST", "/runs", 201, time.Millisecond)
	m.Request("POST", "/runs", 422, time.Millisecond)
	assert.Equal(t, 12.0, testutil.ToFloat64(m.VariantsGenerated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QCSubmissions.WithLabelValues("pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/runs", "4xx")))

	m.BackendOp("read", time.Millisecond, nil)
	m.BackendOp("write", time.Millisecond, errors.New("disk full"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BackendErrors.WithLabelValues("read")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendErrors.WithLabelValues("write")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(nil)
	})
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.MutationStarted()
		m.MutationFinished(ResultFailed, time.Now())
		m.Generated(1)
		m.Graded("fail")
		m.Request("GET", "/health", 200, 0)
		m.BackendOp("read", 0, nil)
	})
}
