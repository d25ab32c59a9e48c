package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/region23/hotelbot/internal/rowstore"
	apperrors "github.com/region23/hotelbot/pkg/errors"

	_ "modernc.org/sqlite"
)

// SQLiteStore реализует RowStore поверх SQLite: каждая вкладка хранится
// как набор строк (sheet, row_num, cells JSON).
type SQLiteStore struct {
	db *sql.DB
}

// New создает новое подключение к SQLite базе данных
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка подключения
	db.SetMaxOpenConns(1) // SQLite поддерживает только одно write-подключение
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

// migrate выполняет миграции базы данных
func (s *SQLiteStore) migrate() error {
	// Включаем WAL mode для лучшей конкурентности
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("failed to set WAL mode: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS sheets (
			name TEXT PRIMARY KEY,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sheet_rows (
			sheet TEXT NOT NULL,
			row_num INTEGER NOT NULL,
			cells TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY(sheet, row_num),
			FOREIGN KEY(sheet) REFERENCES sheets(name) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet ON sheet_rows(sheet)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration query: %w", err)
		}
	}

	return nil
}

// Close закрывает подключение к базе данных
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping проверяет подключение к базе данных
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateSheet создает пустую вкладку, если ее нет
func (s *SQLiteStore) CreateSheet(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO sheets (name) VALUES (?)`, name)
	if err != nil {
		return apperrors.ErrStoreUnavailable.WithError(fmt.Errorf("failed to create sheet %q: %w", name, err))
	}
	return nil
}

// Seed создает вкладку и заполняет ее строками, начиная с первой
func (s *SQLiteStore) Seed(ctx context.Context, name string, rows [][]string) error {
	if err := s.CreateSheet(ctx, name); err != nil {
		return err
	}
	return s.Update(ctx, name, "A1", rows)
}

// Get читает значения диапазона
func (s *SQLiteStore) Get(ctx context.Context, sheet, a1 string) (values [][]string, err error) {
	defer func(start time.Time) { rowstore.Observe("get", start, err) }(time.Now())

	rng, err := rowstore.ParseA1(a1)
	if err != nil {
		return nil, apperrors.ErrValidation.WithError(err)
	}
	if err := s.ensureSheet(ctx, sheet); err != nil {
		return nil, err
	}

	query := `SELECT row_num, cells FROM sheet_rows WHERE sheet = ? AND row_num >= ?`
	args := []interface{}{sheet, rng.StartRow}
	if rng.EndRow > 0 {
		query += ` AND row_num <= ?`
		args = append(args, rng.EndRow)
	}
	query += ` ORDER BY row_num`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable.WithError(fmt.Errorf("failed to read %s!%s: %w", sheet, a1, err))
	}
	defer rows.Close()

	next := rng.StartRow
	for rows.Next() {
		var rowNum int
		var raw string
		if err := rows.Scan(&rowNum, &raw); err != nil {
			return nil, apperrors.ErrStoreUnavailable.WithError(fmt.Errorf("failed to scan row: %w", err))
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return nil, apperrors.ErrStoreUnavailable.WithError(err)
		}
		// пропуски между строками возвращаются пустыми строками, как в Sheets API
		for ; next < rowNum; next++ {
			values = append(values, []string{})
		}
		values = append(values, sliceColumns(cells, rng))
		next = rowNum + 1
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}

	return trimTrailingEmpty(values), nil
}

// Update перезаписывает ячейки, начиная с левого верхнего угла диапазона
func (s *SQLiteStore) Update(ctx context.Context, sheet, a1 string, values [][]string) (err error) {
	defer func(start time.Time) { rowstore.Observe("update", start, err) }(time.Now())

	rng, err := rowstore.ParseA1(a1)
	if err != nil {
		return apperrors.ErrValidation.WithError(err)
	}
	if err := s.ensureSheet(ctx, sheet); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for i, vals := range values {
			if err := writeCells(ctx, tx, sheet, rng.StartRow+i, rng.StartCol, vals); err != nil {
				return err
			}
		}
		return nil
	})
}

// Append добавляет строки после последней заполненной строки вкладки
func (s *SQLiteStore) Append(ctx context.Context, sheet, a1 string, values [][]string) (err error) {
	defer func(start time.Time) { rowstore.Observe("append", start, err) }(time.Now())

	rng, err := rowstore.ParseA1(a1)
	if err != nil {
		return apperrors.ErrValidation.WithError(err)
	}
	if err := s.ensureSheet(ctx, sheet); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var last sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			`SELECT MAX(row_num) FROM sheet_rows WHERE sheet = ?`, sheet).Scan(&last); err != nil {
			return fmt.Errorf("failed to find last row: %w", err)
		}
		start := int(last.Int64) + 1
		if start < rng.StartRow {
			start = rng.StartRow
		}
		for i, vals := range values {
			if err := writeCells(ctx, tx, sheet, start+i, rng.StartCol, vals); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) ensureSheet(ctx context.Context, sheet string) error {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sheets WHERE name = ?`, sheet).Scan(&count)
	if err != nil {
		return apperrors.ErrStoreUnavailable.WithError(fmt.Errorf("failed to check sheet: %w", err))
	}
	if count == 0 {
		return apperrors.ErrSheetNotFound.WithContext(sheet)
	}
	return nil
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.ErrStoreUnavailable.WithError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return apperrors.ErrStoreUnavailable.WithError(err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.ErrStoreUnavailable.WithError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func writeCells(ctx context.Context, tx *sql.Tx, sheet string, rowNum, startCol int, vals []string) error {
	var raw string
	err := tx.QueryRowContext(ctx,
		`SELECT cells FROM sheet_rows WHERE sheet = ? AND row_num = ?`, sheet, rowNum).Scan(&raw)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to load row %d: %w", rowNum, err)
	}

	var cells []string
	if raw != "" {
		if cells, err = decodeCells(raw); err != nil {
			return err
		}
	}
	for len(cells) < startCol+len(vals) {
		cells = append(cells, "")
	}
	copy(cells[startCol:], vals)

	encoded, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}

	query := `INSERT INTO sheet_rows (sheet, row_num, cells, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			  ON CONFLICT(sheet, row_num) DO UPDATE SET cells = excluded.cells, updated_at = CURRENT_TIMESTAMP`
	if _, err := tx.ExecContext(ctx, query, sheet, rowNum, string(encoded)); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("failed to decode row: %w", err)
	}
	return cells, nil
}

func sliceColumns(cells []string, rng rowstore.Range) []string {
	if rng.StartCol >= len(cells) {
		return []string{}
	}
	end := len(cells)
	if rng.EndCol >= 0 && rng.EndCol+1 < end {
		end = rng.EndCol + 1
	}
	out := append([]string(nil), cells[rng.StartCol:end]...)
	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func trimTrailingEmpty(values [][]string) [][]string {
	for len(values) > 0 && len(values[len(values)-1]) == 0 {
		values = values[:len(values)-1]
	}
	return values
}
