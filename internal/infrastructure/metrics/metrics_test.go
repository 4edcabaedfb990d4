package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.TransitionAccepted(workflow.DomainClearance, "under_review")
	m.TransitionAccepted(workflow.DomainClearance, "under_review")
	m.TransitionRejected(workflow.DomainHousingBeneficiary, "not_ready")
	m.EligibilityDetermined("eligible")
	m.WaitlistInsert("prog-1", true)
	m.WaitlistInsert("prog-1", false)
	m.ConflictRetry("record_decision")
	m.RankingRecomputed("prog-1", 12)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("clearance", "under_review")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("housing_beneficiary", "not_ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Determinations.WithLabelValues("eligible")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WaitlistInserts.WithLabelValues("prog-1", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConflictRetries.WithLabelValues("record_decision")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.WaitlistSize.WithLabelValues("prog-1")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RankingSize))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	// each instance owns its registry, so constructing twice must not panic
	first := New()
	second := New()
	first.ConflictRetry("x")

	assert.Equal(t, 0.0, testutil.ToFloat64(second.ConflictRetries.WithLabelValues("x")))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TransitionAccepted(workflow.DomainClearance, "approved")
		m.RankingRecomputed("p", 1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.EligibilityDetermined("conditional")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `lifecycle_eligibility_determinations_total{determination="conditional"} 1`)
}
