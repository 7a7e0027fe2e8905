package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewSyncMetrics(registry)
	require.NoError(t, err)

	m.RecordOperation("sync", "posts", "success")
	m.RecordOperation("sync", "posts", "success")
	m.RecordConflict("posts")
	m.RecordResolution("posts", "remote-wins")
	m.ObserveSourceCall("api", "fetch", 5*time.Millisecond, nil)
	m.ObserveSourceCall("api", "fetch", time.Millisecond, errors.New("x"))
	m.SetQueueDepth(3)
	m.RecordCheck(false, map[string]int{"error": 2})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("sync", "posts", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflictsTotal.WithLabelValues("posts")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sourceErrorsTotal.WithLabelValues("api", "fetch")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.violations.WithLabelValues("error")))

	_, err = NewSyncMetrics(registry)
	assert.Error(t, err, "duplicate registration must fail")
}

func TestSyncMetrics_NilReceiver(t *testing.T) {
	var m *SyncMetrics
	assert.NotPanics(t, func() {
		m.RecordOperation("sync", "posts", "success")
		m.ObserveSourceCall("api", "fetch", time.Second, nil)
		m.SetQueueDepth(1)
		m.RecordCheck(true, nil)
	})
}
