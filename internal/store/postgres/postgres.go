package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS tabular_rows (
	table_name TEXT NOT NULL,
	row_index  INTEGER NOT NULL,
	cells      JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (table_name, row_index)
)`

// Store keeps every table row as one jsonb array keyed by (table, row index).
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure tabular_rows: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ReadTable(ctx context.Context, table string) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT row_index, cells
		FROM tabular_rows
		WHERE table_name = $1
		ORDER BY row_index
	`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([][]string, 0, 64)
	for rows.Next() {
		var (
			idx   int
			cells []byte
		)
		if err := rows.Scan(&idx, &cells); err != nil {
			return nil, err
		}
		row, err := decodeCells(cells)
		if err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", table, idx, err)
		}
		for len(out) < idx {
			out = append(out, []string{})
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return store.TrimRows(out), nil
}

func (s *Store) WriteTable(ctx context.Context, table string, rows [][]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tabular_rows WHERE table_name = $1`, table); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, table, 0, rows); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) AppendRows(ctx context.Context, table string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Append right after the last non-blank row, which is where ReadTable
	// ends the table; trailing cleared rows are overwritten.
	var next int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(row_index) + 1, 0)
		FROM tabular_rows
		WHERE table_name = $1
		  AND EXISTS (SELECT 1 FROM jsonb_array_elements_text(cells) AS c WHERE c <> '')
	`, table).Scan(&next); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM tabular_rows
		WHERE table_name = $1 AND row_index >= $2
	`, table, next); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, table, next, rows); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("append to %s raced with another writer: %w", table, err)
		}
		return err
	}
	return tx.Commit()
}

func (s *Store) ClearRow(ctx context.Context, table string, rowIndex int) error {
	if rowIndex < 0 {
		return fmt.Errorf("clear row %d: %w", rowIndex, store.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE tabular_rows
		SET cells = '[]'::jsonb, updated_at = now()
		WHERE table_name = $1 AND row_index = $2
	`, table, rowIndex)
	return err
}

func (s *Store) UpdateCell(ctx context.Context, table string, rowIndex int, colIndex int, value string) error {
	if rowIndex < 0 || colIndex < 0 {
		return fmt.Errorf("update cell (%d,%d): %w", rowIndex, colIndex, store.ErrInvalidInput)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var raw []byte
	err = tx.QueryRowContext(ctx, `
		SELECT cells
		FROM tabular_rows
		WHERE table_name = $1 AND row_index = $2
		FOR UPDATE
	`, table, rowIndex).Scan(&raw)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	row, err := decodeCells(raw)
	if err != nil {
		return err
	}
	for len(row) <= colIndex {
		row = append(row, "")
	}
	row[colIndex] = value

	payload, err := json.Marshal(row)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tabular_rows (table_name, row_index, cells, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (table_name, row_index)
		DO UPDATE SET cells = EXCLUDED.cells, updated_at = now()
	`, table, rowIndex, payload); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRows(ctx context.Context, tx *sql.Tx, table string, start int, rows [][]string) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tabular_rows (table_name, row_index, cells, updated_at)
		VALUES ($1, $2, $3, now())
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range rows {
		if row == nil {
			row = []string{}
		}
		payload, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, table, start+i, payload); err != nil {
			return err
		}
	}
	return nil
}

func decodeCells(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var row []string
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	if row == nil {
		row = []string{}
	}
	return row, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
