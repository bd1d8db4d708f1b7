package xlsx

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s, path
}

func TestMissingSheetReadsEmpty(t *testing.T) {
	s, _ := openTemp(t)

	rows, err := s.ReadTable(context.Background(), "banhang")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty table, got %v", rows)
	}
}

func TestWriteTableOverwritesAndShrinks(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	initial := [][]string{
		{"Mã phiếu", "Tổng tiền", "Ghi chú"},
		{"20240110-001", "58.50", "giao sáng"},
		{"20240110-002", "60"},
		{"20240110-003", "5"},
	}
	if err := s.WriteTable(ctx, "dshoadon", initial); err != nil {
		t.Fatalf("write: %v", err)
	}

	next := [][]string{
		{"Mã phiếu", "Tổng tiền"},
		{"20240110-002", "60"},
	}
	if err := s.WriteTable(ctx, "dshoadon", next); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	rows, err := s.ReadTable(ctx, "dshoadon")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(rows, next) {
		t.Fatalf("expected %v, got %v", next, rows)
	}
}

func TestAppendClearAndUpdatePersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()

	if err := s.WriteTable(ctx, "sanpham", [][]string{{"Tên", "Đơn vị", "Giá", "Trạng thái"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.AppendRows(ctx, "sanpham", [][]string{{"Trà đào", "ly", "30000"}, {"Đường cát", "kg", "19.50"}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.UpdateCell(ctx, "sanpham", 2, 3, "locked"); err != nil {
		t.Fatalf("update cell: %v", err)
	}
	if err := s.ClearRow(ctx, "sanpham", 1); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	rows, err := reopened.ReadTable(ctx, "sanpham")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := [][]string{
		{"Tên", "Đơn vị", "Giá", "Trạng thái"},
		{},
		{"Đường cát", "kg", "19.50", "locked"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("expected %v, got %v", want, rows)
	}
}

func TestRejectsNegativeIndexes(t *testing.T) {
	s, _ := openTemp(t)

	if err := s.ClearRow(context.Background(), "banhang", -1); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if err := s.UpdateCell(context.Background(), "banhang", 0, -1, "x"); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
