package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read exposition: %v", err)
	}
	return string(body)
}

func TestCollectorsAreExported(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/v1/orders", "POST", 201, 15*time.Millisecond)
	m.InvoiceOp("create", nil)
	m.InvoiceOp("create", errors.New("boom"))
	m.SummaryWriteFailed("create")
	m.SetDivergences([]string{"missing_summary", "total_mismatch"}, map[string]int{"total_mismatch": 2})
	m.AuditRun(nil)

	body := scrape(t, m)
	for _, line := range []string{
		`sales_http_requests_total{code="201",method="POST",route="/api/v1/orders"} 1`,
		`sales_invoice_operations_total{op="create",outcome="error"} 1`,
		`sales_invoice_operations_total{op="create",outcome="ok"} 1`,
		`sales_summary_write_failures_total{op="create"} 1`,
		`sales_reconciliation_divergences{kind="missing_summary"} 0`,
		`sales_reconciliation_divergences{kind="total_mismatch"} 2`,
		`sales_reconciliation_audit_runs_total{outcome="ok"} 1`,
	} {
		if !strings.Contains(body, line) {
			t.Fatalf("expected %q in exposition:\n%s", line, body)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("/", "GET", 200, time.Millisecond)
	m.InvoiceOp("delete", nil)
	m.SummaryWriteFailed("create")
	m.SetDivergences([]string{"x"}, nil)
	m.AuditRun(nil)
}
