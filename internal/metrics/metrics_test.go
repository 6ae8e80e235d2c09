package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordsAndExposes(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "/v1/cards/:id", "200", 0.01)
	m.CardMoved()
	m.CardMoved()
	m.ImportFinished("completed", 42)
	m.ClientConnected(1)

	if got := testutil.ToFloat64(m.CardsMoved); got != 2 {
		t.Errorf("Expected 2 card moves, got %v", got)
	}
	if got := testutil.ToFloat64(m.ContactsImported); got != 42 {
		t.Errorf("Expected 42 imported contacts, got %v", got)
	}
	if got := testutil.ToFloat64(m.ImportJobs.WithLabelValues("completed")); got != 1 {
		t.Errorf("Expected 1 completed job, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "funnel_crm_http_requests_total") {
		t.Error("Expected request counter in exposition output")
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/", "200", 0)
	m.CardMoved()
	m.ImportFinished("failed", 0)
	m.ClientConnected(-1)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	// two instances must not collide on registration
	New()
	New()
}
