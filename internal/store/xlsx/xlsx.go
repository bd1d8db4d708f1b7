// Package xlsx stores tables as worksheets of a local workbook, one sheet
// per table. It is the offline counterpart of the sheets backend.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store"
)

type Store struct {
	mu   sync.Mutex
	path string
	file *excelize.File
}

// Open loads the workbook at path, creating an empty one when it does not exist.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("xlsx path: %w", store.ErrInvalidInput)
	}

	var (
		f   *excelize.File
		err error
	)
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		f = excelize.NewFile()
		if err = f.SaveAs(path); err != nil {
			_ = f.Close()
			return nil, err
		}
	} else {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, err
		}
	}

	return &Store{path: path, file: f}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func (s *Store) ReadTable(_ context.Context, table string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(table)
}

func (s *Store) WriteTable(_ context.Context, table string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readLocked(table)
	if err != nil {
		return err
	}
	if err := s.ensureSheet(table); err != nil {
		return err
	}

	for i, row := range rows {
		width := len(row)
		if i < len(existing) && len(existing[i]) > width {
			width = len(existing[i])
		}
		if err := s.setRow(table, i, padded(row, width)); err != nil {
			return err
		}
	}
	for r := len(existing); r > len(rows); r-- {
		if err := s.file.RemoveRow(table, r); err != nil {
			return err
		}
	}
	return s.file.Save()
}

func (s *Store) AppendRows(_ context.Context, table string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readLocked(table)
	if err != nil {
		return err
	}
	if err := s.ensureSheet(table); err != nil {
		return err
	}
	for i, row := range rows {
		if err := s.setRow(table, len(existing)+i, row); err != nil {
			return err
		}
	}
	return s.file.Save()
}

func (s *Store) ClearRow(_ context.Context, table string, rowIndex int) error {
	if rowIndex < 0 {
		return fmt.Errorf("clear row %d: %w", rowIndex, store.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readLocked(table)
	if err != nil {
		return err
	}
	if rowIndex >= len(existing) {
		return nil
	}
	if err := s.setRow(table, rowIndex, padded(nil, len(existing[rowIndex]))); err != nil {
		return err
	}
	return s.file.Save()
}

func (s *Store) UpdateCell(_ context.Context, table string, rowIndex int, colIndex int, value string) error {
	if rowIndex < 0 || colIndex < 0 {
		return fmt.Errorf("update cell (%d,%d): %w", rowIndex, colIndex, store.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSheet(table); err != nil {
		return err
	}
	cell, err := excelize.CoordinatesToCellName(colIndex+1, rowIndex+1)
	if err != nil {
		return err
	}
	if err := s.file.SetCellStr(table, cell, value); err != nil {
		return err
	}
	return s.file.Save()
}

func (s *Store) readLocked(table string) ([][]string, error) {
	idx, err := s.file.GetSheetIndex(table)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return [][]string{}, nil
	}
	rows, err := s.file.GetRows(table)
	if err != nil {
		return nil, err
	}
	return store.TrimRows(rows), nil
}

func (s *Store) ensureSheet(table string) error {
	idx, err := s.file.GetSheetIndex(table)
	if err != nil {
		return err
	}
	if idx >= 0 {
		return nil
	}
	_, err = s.file.NewSheet(table)
	return err
}

func (s *Store) setRow(table string, rowIndex int, row []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowIndex+1)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	return s.file.SetSheetRow(table, cell, &values)
}

func padded(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}
