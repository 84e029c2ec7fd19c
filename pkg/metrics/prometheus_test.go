package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordDecision(models.RegimeBull, "boosted")
	r.RecordDecision(models.RegimeBull, "boosted")
	r.RecordDecision(models.RegimeBear, "vetoed")
	r.RecordVeto("risk")
	r.RecordBoost(5)
	r.RecordError("fetch")
	r.RecordLatency("run", 0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.decisions.WithLabelValues("bull", "boosted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.vetoes.WithLabelValues("risk")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errors.WithLabelValues("fetch")))

	n, err := testutil.GatherAndCount(reg, "rebound_boost_points", "rebound_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
