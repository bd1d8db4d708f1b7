package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/domain"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store"
)

type Store struct {
	mu     sync.RWMutex
	tables map[string][][]string
}

func New() *Store {
	return &Store{tables: make(map[string][][]string)}
}

// NewSeeded returns a store with a small catalog and two branches for
// dev/demo mode. Table names are the defaults of the config package.
func NewSeeded() *Store {
	s := New()
	s.tables["sanpham"] = [][]string{
		append([]string(nil), domain.ProductHeader...),
		{"Cà phê sữa", "ly", "25000", ""},
		{"Trà đào", "ly", "30000", ""},
		{"Bánh mì thịt", "ổ", "20000", ""},
		{"Nước suối", "chai", "8000", ""},
		{"Đường cát", "kg", "19.50", ""},
		{"Gạo ST25", "kg", "32.000", "locked"},
	}
	s.tables["chinhanh"] = [][]string{
		{"STT", "Chi nhánh"},
		{"1", "Quận 1"},
		{"2", "Thủ Đức"},
	}
	s.tables["banhang"] = [][]string{append([]string(nil), domain.OrderHeader...)}
	s.tables["dshoadon"] = [][]string{append([]string(nil), domain.SummaryHeader...)}
	return s
}

func (s *Store) ReadTable(_ context.Context, table string) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.CloneRows(s.tables[table]), nil
}

func (s *Store) WriteTable(_ context.Context, table string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = store.CloneRows(rows)
	return nil
}

func (s *Store) AppendRows(_ context.Context, table string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], store.CloneRows(rows)...)
	return nil
}

func (s *Store) ClearRow(_ context.Context, table string, rowIndex int) error {
	if rowIndex < 0 {
		return fmt.Errorf("clear row %d: %w", rowIndex, store.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	if rowIndex >= len(rows) {
		return nil
	}
	rows[rowIndex] = []string{}
	return nil
}

func (s *Store) UpdateCell(_ context.Context, table string, rowIndex int, colIndex int, value string) error {
	if rowIndex < 0 || colIndex < 0 {
		return fmt.Errorf("update cell (%d,%d): %w", rowIndex, colIndex, store.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	for len(rows) <= rowIndex {
		rows = append(rows, []string{})
	}
	row := rows[rowIndex]
	for len(row) <= colIndex {
		row = append(row, "")
	}
	row[colIndex] = value
	rows[rowIndex] = row
	s.tables[table] = rows
	return nil
}
