// Package sheets is the Google Sheets backend: each table is a tab of one
// spreadsheet. Values are written RAW so text like "58.50" is kept verbatim.
package sheets

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store"
)

const (
	lastColumn       = "Z"
	valueInputOption = "RAW"
)

type Store struct {
	spreadsheetID string
	values        *gsheets.SpreadsheetsValuesService
}

// New builds a client for spreadsheetID. Callers pass credentials through
// opts, typically option.WithCredentialsJSON.
func New(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Store, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id: %w", store.ErrInvalidInput)
	}
	opts = append([]option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}, opts...)
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &Store{spreadsheetID: spreadsheetID, values: svc.Spreadsheets.Values}, nil
}

func (s *Store) ReadTable(ctx context.Context, table string) ([][]string, error) {
	resp, err := s.values.Get(s.spreadsheetID, tableRange(table)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		row := make([]string, len(raw))
		for j, v := range raw {
			if v != nil {
				row[j] = fmt.Sprint(v)
			}
		}
		rows[i] = row
	}
	return store.TrimRows(rows), nil
}

func (s *Store) WriteTable(ctx context.Context, table string, rows [][]string) error {
	if _, err := s.values.Clear(s.spreadsheetID, tableRange(table), &gsheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil
	}
	_, err := s.values.Update(s.spreadsheetID, table+"!A1", valueRange(rows)).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	return nil
}

func (s *Store) AppendRows(ctx context.Context, table string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := s.values.Append(s.spreadsheetID, tableRange(table), valueRange(rows)).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", table, err)
	}
	return nil
}

func (s *Store) ClearRow(ctx context.Context, table string, rowIndex int) error {
	if rowIndex < 0 {
		return fmt.Errorf("clear row %d: %w", rowIndex, store.ErrInvalidInput)
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", table, rowIndex+1, lastColumn, rowIndex+1)
	if _, err := s.values.Clear(s.spreadsheetID, rng, &gsheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (s *Store) UpdateCell(ctx context.Context, table string, rowIndex int, colIndex int, value string) error {
	if rowIndex < 0 || colIndex < 0 {
		return fmt.Errorf("update cell (%d,%d): %w", rowIndex, colIndex, store.ErrInvalidInput)
	}
	cell, err := excelize.CoordinatesToCellName(colIndex+1, rowIndex+1)
	if err != nil {
		return err
	}
	_, err = s.values.Update(s.spreadsheetID, table+"!"+cell, valueRange([][]string{{value}})).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s!%s: %w", table, cell, err)
	}
	return nil
}

func tableRange(table string) string {
	return table + "!A1:" + lastColumn
}

func valueRange(rows [][]string) *gsheets.ValueRange {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		values[i] = cells
	}
	return &gsheets.ValueRange{MajorDimension: "ROWS", Values: values}
}
