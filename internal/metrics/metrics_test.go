package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordGeneration(t *testing.T) {
	m := NewNoopMetrics()
	m.RecordGeneration(3, 2)
	m.RecordGeneration(1, 0)

	assert.Equal(t, float64(4), testutil.ToFloat64(m.InvoicesGenerated))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.InvoicesSkipped))
}

func TestRecordReconciliation(t *testing.T) {
	m := NewNoopMetrics()
	m.RecordReconciliation("paid")
	m.RecordReconciliation("amount_mismatch")
	m.RecordReconciliation("paid")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Reconciliations.WithLabelValues("paid")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Reconciliations.WithLabelValues("amount_mismatch")))
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordGeneration(1, 1)
		m.RecordOverdue(1, 1)
		m.RecordReconciliation("paid")
		m.RecordEntityFailure("overdue")
	})
}

func TestHandler(t *testing.T) {
	m := NewNoopMetrics()
	m.RecordOverdue(2, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "netbill_late_fees_applied_total 2"))
	assert.True(t, strings.Contains(body, "netbill_subscriptions_suspended_total 1"))
}
