package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// TabularStore is a spreadsheet-like store: named tables of string rows,
// first row conventionally a header. Row and column indexes are zero-based
// and count the header, so the first data row is row 1.
type TabularStore interface {
	ReadTable(ctx context.Context, table string) ([][]string, error)
	// WriteTable replaces the whole table; rows past the new end are removed.
	WriteTable(ctx context.Context, table string, rows [][]string) error
	AppendRows(ctx context.Context, table string, rows [][]string) error
	// ClearRow blanks a row in place without shifting the rows below it.
	ClearRow(ctx context.Context, table string, rowIndex int) error
	UpdateCell(ctx context.Context, table string, rowIndex int, colIndex int, value string) error
}

// FreshReader is implemented by stores that can serve reads from a copy
// which may lag behind the backend. ReadTableFresh always asks the backend.
type FreshReader interface {
	ReadTableFresh(ctx context.Context, table string) ([][]string, error)
}

// ReadFresh reads table from the backend itself, skipping any cache in
// front of it. Read-modify-write callers use it.
func ReadFresh(ctx context.Context, st TabularStore, table string) ([][]string, error) {
	if fr, ok := st.(FreshReader); ok {
		return fr.ReadTableFresh(ctx, table)
	}
	return st.ReadTable(ctx, table)
}

// CloneRows deep-copies rows so callers never share backing arrays with a store.
func CloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
		if out[i] == nil {
			out[i] = []string{}
		}
	}
	return out
}

// TrimRows drops trailing empty cells of every row and trailing blank rows,
// which is how spreadsheet backends report a table.
func TrimRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		end := len(row)
		for end > 0 && row[end-1] == "" {
			end--
		}
		if end == 0 {
			out = append(out, []string{})
			continue
		}
		out = append(out, row[:end])
	}
	end := len(out)
	for end > 0 && len(out[end-1]) == 0 {
		end--
	}
	return out[:end]
}

// IsBlankRow reports whether every cell of row is empty.
func IsBlankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
