package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew_ReturnsSingleton(t *testing.T) {
	assert.Same(t, New(), New())
}

func TestMetrics_Record(t *testing.T) {
	m := New()

	before := testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("disease_overview", "ok"))
	m.Generation("disease_overview", "ok")
	assert.Equal(t, before+1, testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("disease_overview", "ok")))

	m.Reindexed("metrics_test_tenant", 12, nil)
	assert.Equal(t, 12.0, testutil.ToFloat64(m.IndexedChunks.WithLabelValues("metrics_test_tenant")))

	errBefore := testutil.ToFloat64(m.ReindexTotal.WithLabelValues("error"))
	m.Reindexed("metrics_test_tenant", 0, errors.New("boom"))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(m.ReindexTotal.WithLabelValues("error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.IndexedChunks.WithLabelValues("metrics_test_tenant")), "failed builds keep the old gauge")

	m.GenerationTime("template", 5*time.Millisecond)
	m.Retrieved("health_suggestions", 3)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Generation("x", "ok")
	m.GenerationTime("openai", time.Second)
	m.BackendRetry()
	m.Violation("medication_dosage")
	m.Retrieved("x", 1)
	m.Reindexed("t", 1, nil)
	m.Stored()
}
