package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/domain"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/invoice"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/logging"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/metrics"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store/cached"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store/memory"
)

func newTestService(st store.TabularStore) *Service {
	return New(st, Options{
		Logger:  logging.Discard(),
		Metrics: metrics.New(),
		Now:     func() time.Time { return time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC) },
	})
}

func twoLineInvoice(date string) domain.InvoiceCreateRequest {
	return domain.InvoiceCreateRequest{
		Date:   date,
		Branch: "Quận 1",
		Note:   "giao sáng",
		Items: []domain.LineItemRequest{
			{Name: "Trà đào", Unit: "ly", Quantity: "2", Price: "15.000"},
			{Name: "Nước suối", Unit: "chai", Quantity: "1", Price: "5", Note: "lạnh"},
		},
	}
}

func readTable(t *testing.T, st store.TabularStore, table string) [][]string {
	t.Helper()
	rows, err := st.ReadTable(context.Background(), table)
	if err != nil {
		t.Fatalf("read %s: %v", table, err)
	}
	return rows
}

func TestCreateInvoiceWritesLinesAndSummary(t *testing.T) {
	st := memory.NewSeeded()
	svc := newTestService(st)

	resp, err := svc.CreateInvoice(context.Background(), twoLineInvoice("2024-01-10"))
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if resp.InvoiceID != "20240110-001" || resp.Total != "35.000" || !resp.SummaryWritten {
		t.Fatalf("unexpected response %+v", resp)
	}

	orders := readTable(t, st, "banhang")
	if len(orders) != 3 {
		t.Fatalf("expected header + 2 lines, got %v", orders)
	}
	want := [][]string{
		{"20240110-001", "2024-01-10", "Quận 1", "Trà đào", "ly", "2", "15.000", "30.000", "giao sáng"},
		{"20240110-001", "2024-01-10", "Quận 1", "Nước suối", "chai", "1", "5", "5", "lạnh"},
	}
	if !reflect.DeepEqual(orders[1:], want) {
		t.Fatalf("expected order rows %v, got %v", want, orders[1:])
	}

	summaries := readTable(t, st, "dshoadon")
	if len(summaries) != 2 || !reflect.DeepEqual(summaries[1], []string{"20240110-001", "Quận 1", "2024-01-10", "35.000"}) {
		t.Fatalf("unexpected summary table %v", summaries)
	}
}

func TestNextInvoiceIDCountsLinesForDate(t *testing.T) {
	svc := newTestService(memory.NewSeeded())
	ctx := context.Background()

	if id, err := svc.NextInvoiceID(ctx, ""); err != nil || id != nil {
		t.Fatalf("expected nil id without date, got %v, %v", id, err)
	}

	if _, err := svc.CreateInvoice(ctx, twoLineInvoice("2024-01-10")); err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	id, err := svc.NextInvoiceID(ctx, "2024-01-10")
	if err != nil || id == nil || *id != "20240110-003" {
		t.Fatalf("expected 20240110-003, got %v, %v", id, err)
	}
	other, err := svc.NextInvoiceID(ctx, "2024-01-11")
	if err != nil || other == nil || *other != "20240111-001" {
		t.Fatalf("expected 20240111-001, got %v, %v", other, err)
	}

	resp, err := svc.CreateInvoice(ctx, twoLineInvoice("2024-01-10"))
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if resp.InvoiceID != *id {
		t.Fatalf("expected create to allocate previewed id %s, got %s", *id, resp.InvoiceID)
	}
}

func TestNextInvoiceIDPinnedLegacySchema(t *testing.T) {
	st := memory.New()
	legacy := [][]string{
		{"Ngày", "Chi nhánh", "Tên", "ĐVT", "SL", "Giá", "Thành tiền", "Ghi chú"},
		{"2024-05-01", "Quận 1", "Trà đào", "ly", "1", "30000", "30000", ""},
		{"2024-05-01", "Quận 1", "Nước suối", "chai", "1", "8000", "8000", ""},
	}
	if err := st.WriteTable(context.Background(), "banhang", legacy); err != nil {
		t.Fatalf("seed: %v", err)
	}

	for _, version := range []int{0, 1} {
		svc := New(st, Options{Logger: logging.Discard(), SchemaVersion: version})
		id, err := svc.NextInvoiceID(context.Background(), "2024-05-01")
		if err != nil || id == nil || *id != "20240501-003" {
			t.Fatalf("schema %d: expected 20240501-003, got %v, %v", version, id, err)
		}
	}
}

func TestCreateInvoiceOnLegacyTableNeverReusesIDs(t *testing.T) {
	legacy := [][]string{
		{"Ngày", "Chi nhánh", "Tên", "ĐVT", "SL", "Giá", "Thành tiền", "Ghi chú"},
		{"2024-04-30", "Quận 1", "Trà đào", "ly", "1", "30000", "30000", ""},
	}
	oneLine := domain.InvoiceCreateRequest{
		Date:   "2024-06-01",
		Branch: "Quận 1",
		Items:  []domain.LineItemRequest{{Name: "Nước suối", Unit: "chai", Quantity: "1", Price: "5"}},
	}

	for _, version := range []int{0, 1} {
		ctx := context.Background()
		st := memory.New()
		if err := st.WriteTable(ctx, "banhang", legacy); err != nil {
			t.Fatalf("seed: %v", err)
		}
		svc := New(st, Options{Logger: logging.Discard(), SchemaVersion: version})

		first, err := svc.CreateInvoice(ctx, oneLine)
		if err != nil {
			t.Fatalf("schema %d: first create: %v", version, err)
		}
		second, err := svc.CreateInvoice(ctx, oneLine)
		if err != nil {
			t.Fatalf("schema %d: second create: %v", version, err)
		}
		if first.InvoiceID != "20240601-001" || second.InvoiceID != "20240601-002" {
			t.Fatalf("schema %d: expected -001 then -002, got %s then %s", version, first.InvoiceID, second.InvoiceID)
		}

		orders, err := svc.ListOrders(ctx)
		if err != nil {
			t.Fatalf("schema %d: list orders: %v", version, err)
		}
		if len(orders.Orders) != 3 {
			t.Fatalf("schema %d: expected 3 lines, got %+v", version, orders.Orders)
		}
		if old := orders.Orders[0]; old.InvoiceID != "" || old.Date != "2024-04-30" || old.Branch != "Quận 1" {
			t.Fatalf("schema %d: legacy line misread: %+v", version, old)
		}
		if added := orders.Orders[2]; added.InvoiceID != "20240601-002" || added.Date != "2024-06-01" || added.Branch != "Quận 1" || added.Total != "5" {
			t.Fatalf("schema %d: new line misread: %+v", version, added)
		}

		report, err := svc.AuditReconciliation(ctx)
		if err != nil {
			t.Fatalf("schema %d: audit: %v", version, err)
		}
		if report.CheckedInvoices != 2 || len(report.Divergences) != 0 {
			t.Fatalf("schema %d: unexpected audit %+v", version, report)
		}

		if err := svc.DeleteInvoice(ctx, first.InvoiceID); err != nil {
			t.Fatalf("schema %d: delete: %v", version, err)
		}
		rows := readTable(t, st, "banhang")
		if len(rows) != 3 || rows[1][0] != "2024-04-30" || rows[2][0] != "20240601-002" {
			t.Fatalf("schema %d: unexpected table after delete %v", version, rows)
		}
	}
}

// frozenCache keeps serving the snapshot it was built with, like a cache
// entry written by a read that lost a race with a write.
type frozenCache struct {
	rows map[string][][]string
}

func (c frozenCache) Get(_ context.Context, key string) ([][]string, bool, error) {
	rows, ok := c.rows[key]
	return rows, ok, nil
}

func (c frozenCache) Set(context.Context, string, [][]string, time.Duration) error { return nil }

func (c frozenCache) Delete(context.Context, string) error { return nil }

func TestMutationsReadPastStaleCache(t *testing.T) {
	ctx := context.Background()
	backing := memory.NewSeeded()
	snapshot := readTable(t, backing, "banhang")
	summaries := readTable(t, backing, "dshoadon")
	st := cached.New(backing, frozenCache{rows: map[string][][]string{"banhang": snapshot, "dshoadon": summaries}}, time.Minute, logging.Discard())
	svc := newTestService(st)

	first, err := svc.CreateInvoice(ctx, twoLineInvoice("2024-01-10"))
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.CreateInvoice(ctx, twoLineInvoice("2024-01-10"))
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.InvoiceID == second.InvoiceID || second.InvoiceID != "20240110-003" {
		t.Fatalf("expected distinct ids, got %s and %s", first.InvoiceID, second.InvoiceID)
	}

	if err := svc.DeleteInvoice(ctx, first.InvoiceID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	orders := readTable(t, backing, "banhang")
	if len(orders) != 3 || orders[1][0] != second.InvoiceID {
		t.Fatalf("expected delete to keep the second invoice, got %v", orders)
	}
	sums := readTable(t, backing, "dshoadon")
	if len(sums) != 2 || sums[1][0] != second.InvoiceID {
		t.Fatalf("expected one remaining summary, got %v", sums)
	}
}

func TestCreateInvoiceValidation(t *testing.T) {
	svc := newTestService(memory.NewSeeded())

	cases := []domain.InvoiceCreateRequest{
		{Date: "2024-01-10"},
		{Date: "10/01/2024", Items: []domain.LineItemRequest{{Name: "x", Quantity: "1", Price: "1"}}},
		{Date: "2024-01-10", Items: []domain.LineItemRequest{{Quantity: "1", Price: "1"}}},
	}
	for i, req := range cases {
		if _, err := svc.CreateInvoice(context.Background(), req); !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

type failingSummaryStore struct {
	store.TabularStore
	table string
}

func (f failingSummaryStore) AppendRows(ctx context.Context, table string, rows [][]string) error {
	if table == f.table {
		return errors.New("quota exceeded")
	}
	return f.TabularStore.AppendRows(ctx, table, rows)
}

func (f failingSummaryStore) WriteTable(ctx context.Context, table string, rows [][]string) error {
	if table == f.table {
		return errors.New("quota exceeded")
	}
	return f.TabularStore.WriteTable(ctx, table, rows)
}

func TestCreateInvoiceKeepsLinesWhenSummaryFails(t *testing.T) {
	backing := memory.NewSeeded()
	svc := newTestService(failingSummaryStore{TabularStore: backing, table: "dshoadon"})

	resp, err := svc.CreateInvoice(context.Background(), twoLineInvoice("2024-01-10"))
	if err != nil {
		t.Fatalf("expected summary failure to be swallowed, got %v", err)
	}
	if !resp.Success || resp.SummaryWritten {
		t.Fatalf("expected success without summary, got %+v", resp)
	}
	if got := len(readTable(t, backing, "banhang")); got != 3 {
		t.Fatalf("expected order lines to stay, got %d rows", got)
	}
	if got := len(readTable(t, backing, "dshoadon")); got != 1 {
		t.Fatalf("expected no summary row, got %d rows", got)
	}

	report, err := svc.AuditReconciliation(context.Background())
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(report.Divergences) != 1 || report.Divergences[0].Kind != invoice.DivergenceMissingSummary {
		t.Fatalf("expected missing summary divergence, got %+v", report.Divergences)
	}
}

func TestUpdateInvoicePropagatesSummaryFailure(t *testing.T) {
	backing := memory.NewSeeded()
	ctx := context.Background()
	created, err := newTestService(backing).CreateInvoice(ctx, twoLineInvoice("2024-01-10"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	svc := newTestService(failingSummaryStore{TabularStore: backing, table: "dshoadon"})
	_, err = svc.UpdateInvoice(ctx, created.InvoiceID, domain.InvoiceUpdateRequest{
		Date:  "2024-01-10",
		Items: []domain.LineItemRequest{{Name: "Trà đào", Quantity: "1", Price: "15.000"}},
	})
	if err == nil {
		t.Fatalf("expected update to report the summary failure")
	}
}

func TestUpdateInvoiceMovesRowsToEnd(t *testing.T) {
	st := memory.NewSeeded()
	svc := newTestService(st)
	ctx := context.Background()

	first, err := svc.CreateInvoice(ctx, twoLineInvoice("2024-01-10"))
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.CreateInvoice(ctx, twoLineInvoice("2024-01-11"))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	detail, err := svc.UpdateInvoice(ctx, first.InvoiceID, domain.InvoiceUpdateRequest{
		Date:   "2024-01-10",
		Branch: "Thủ Đức",
		Items:  []domain.LineItemRequest{{Name: "Đường cát", Unit: "kg", Quantity: "3", Price: "19.50"}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if detail.Summary == nil || detail.Summary.Total != "58.50" {
		t.Fatalf("unexpected detail %+v", detail)
	}

	orders := readTable(t, st, "banhang")
	ids := make([]string, 0, len(orders)-1)
	for _, row := range orders[1:] {
		ids = append(ids, row[0])
	}
	wantIDs := []string{second.InvoiceID, second.InvoiceID, first.InvoiceID}
	if !reflect.DeepEqual(ids, wantIDs) {
		t.Fatalf("expected order ids %v, got %v", wantIDs, ids)
	}
	if last := orders[len(orders)-1]; last[7] != "58.50" || last[2] != "Thủ Đức" {
		t.Fatalf("unexpected updated row %v", last)
	}

	summaries := readTable(t, st, "dshoadon")
	if len(summaries) != 3 {
		t.Fatalf("expected one summary per invoice, got %v", summaries)
	}
	if !reflect.DeepEqual(summaries[2], []string{first.InvoiceID, "Thủ Đức", "2024-01-10", "58.50"}) {
		t.Fatalf("expected updated summary at the end, got %v", summaries)
	}

	report, err := svc.AuditReconciliation(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if report.CheckedInvoices != 2 || len(report.Divergences) != 0 {
		t.Fatalf("expected consistent tables, got %+v", report)
	}
}

func TestDeleteInvoice(t *testing.T) {
	st := memory.NewSeeded()
	svc := newTestService(st)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, twoLineInvoice("2024-01-10"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	kept, err := svc.CreateInvoice(ctx, twoLineInvoice("2024-01-12"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.DeleteInvoice(ctx, "20991231-001"); err != nil {
		t.Fatalf("expected unknown id delete to succeed, got %v", err)
	}
	if err := svc.DeleteInvoice(ctx, created.InvoiceID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.GetInvoice(ctx, created.InvoiceID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected deleted invoice to be gone, got %v", err)
	}
	detail, err := svc.GetInvoice(ctx, kept.InvoiceID)
	if err != nil {
		t.Fatalf("get kept invoice: %v", err)
	}
	if len(detail.Lines) != 2 || detail.Summary == nil {
		t.Fatalf("unexpected kept invoice %+v", detail)
	}
	if got := len(readTable(t, st, "dshoadon")); got != 2 {
		t.Fatalf("expected header + one summary, got %d rows", got)
	}
}

func TestListViewsFormatForDisplay(t *testing.T) {
	svc := newTestService(memory.NewSeeded())
	ctx := context.Background()
	if _, err := svc.CreateInvoice(ctx, twoLineInvoice("2024-01-10")); err != nil {
		t.Fatalf("create: %v", err)
	}

	orders, err := svc.ListOrders(ctx)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders.Orders) != 2 || orders.GrandTotal != "35.000" || orders.GrandTotalDisplay != "35.000" {
		t.Fatalf("unexpected order list %+v", orders)
	}

	summaries, err := svc.ListInvoiceSummaries(ctx)
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected one summary, got %+v", summaries)
	}
	if summaries[0].Date != "10/01/2024" || summaries[0].Total != "35.000" || summaries[0].DisplayTotal != "35,000" {
		t.Fatalf("unexpected summary view %+v", summaries[0])
	}

	branches, err := svc.ListBranches(ctx)
	if err != nil {
		t.Fatalf("branches: %v", err)
	}
	if !reflect.DeepEqual(branches, []string{"Quận 1", "Thủ Đức"}) {
		t.Fatalf("unexpected branches %v", branches)
	}
}

func TestCreateInvoiceOnEmptyStoreWritesHeaders(t *testing.T) {
	st := memory.New()
	svc := newTestService(st)

	if _, err := svc.CreateInvoice(context.Background(), twoLineInvoice("2024-01-10")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if orders := readTable(t, st, "banhang"); !reflect.DeepEqual(orders[0], domain.OrderHeader) || len(orders) != 3 {
		t.Fatalf("unexpected order table %v", orders)
	}
	if sums := readTable(t, st, "dshoadon"); !reflect.DeepEqual(sums[0], domain.SummaryHeader) || len(sums) != 2 {
		t.Fatalf("unexpected summary table %v", sums)
	}
}

func TestAuditFlagsTamperedTotal(t *testing.T) {
	st := memory.NewSeeded()
	svc := newTestService(st)
	ctx := context.Background()

	if _, err := svc.CreateInvoice(ctx, twoLineInvoice("2024-01-10")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.UpdateCell(ctx, "dshoadon", 1, 3, "35"); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	report, err := svc.AuditReconciliation(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(report.Divergences) != 1 {
		t.Fatalf("expected one divergence, got %+v", report.Divergences)
	}
	d := report.Divergences[0]
	if d.Kind != invoice.DivergenceTotalMismatch || d.Expected != "35.000" || d.Actual != "35" {
		t.Fatalf("unexpected divergence %+v", d)
	}
	if !report.RanAt.Equal(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected audit time %v", report.RanAt)
	}

	// The audit only reports; the stored total is untouched.
	if sums := readTable(t, st, "dshoadon"); sums[1][3] != "35" {
		t.Fatalf("expected audit not to repair, got %v", sums[1])
	}
}

func TestProductLifecycle(t *testing.T) {
	st := memory.NewSeeded()
	svc := newTestService(st)
	ctx := context.Background()

	products, err := svc.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 6 || products[5].Name != "Gạo ST25" || products[5].Status != domain.ProductStatusLocked {
		t.Fatalf("unexpected seeded catalog %+v", products)
	}

	created, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{Name: " Bánh flan ", Unit: "hũ", Price: "12000"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 7 || created.Name != "Bánh flan" {
		t.Fatalf("unexpected created product %+v", created)
	}

	updated, err := svc.UpdateProduct(ctx, domain.ProductUpdateRequest{ID: 6, Name: "Gạo ST25 túi", Unit: "túi", Price: "165.000"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.ProductStatusLocked {
		t.Fatalf("expected update to preserve status, got %+v", updated)
	}
	if row := readTable(t, st, "sanpham")[6]; !reflect.DeepEqual(row, []string{"Gạo ST25 túi", "túi", "165.000", "locked"}) {
		t.Fatalf("unexpected stored row %v", row)
	}

	if err := svc.DeleteProduct(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	products, err = svc.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 6 || products[1].ID != 3 {
		t.Fatalf("expected positional ids to survive delete, got %+v", products)
	}
	if err := svc.DeleteProduct(ctx, 2); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected deleted product to be not found, got %v", err)
	}

	if _, err := svc.SetProductStatus(ctx, domain.ProductStatusRequest{ID: 6}); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := svc.SetProductStatus(ctx, domain.ProductStatusRequest{ID: 1, Status: "archived"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected unknown status to be rejected, got %v", err)
	}

	found, err := svc.SearchProducts(ctx, "gao", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || !strings.HasPrefix(found[0].Name, "Gạo") {
		t.Fatalf("expected unlocked rice to be found, got %+v", found)
	}
}

func TestLocalLockSerializesCreates(t *testing.T) {
	svc := newTestService(memory.NewSeeded())
	ctx := context.Background()

	const n = 8
	ids := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			resp, err := svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{
				Date:  "2024-02-01",
				Items: []domain.LineItemRequest{{Name: "Trà đào", Quantity: "1", Price: "30000"}},
			})
			if err != nil {
				errs <- err
				return
			}
			ids <- resp.InvoiceID
		}()
	}

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		select {
		case err := <-errs:
			t.Fatalf("create: %v", err)
		case id := <-ids:
			if seen[id] {
				t.Fatalf("duplicate invoice id %s", id)
			}
			seen[id] = true
		}
	}
}

func TestCreateProductAfterDeletingLastKeepsID(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewSeeded())

	if err := svc.DeleteProduct(ctx, 6); err != nil {
		t.Fatalf("delete last product: %v", err)
	}
	created, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{Name: "Bánh flan", Unit: "hũ", Price: "12000"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := svc.UpdateProduct(ctx, domain.ProductUpdateRequest{ID: created.ID, Name: "Bánh flan dừa", Unit: "hũ", Price: "14000"})
	if err != nil {
		t.Fatalf("update created product %d: %v", created.ID, err)
	}
	if updated.Name != "Bánh flan dừa" {
		t.Fatalf("unexpected product %+v", updated)
	}
}
