// Package rowstore описывает табличное хранилище, адресуемое вкладкой и
// диапазоном A1 (Google Sheets или локальный SQLite).
package rowstore

import (
	"context"
	"time"

	apperrors "github.com/region23/hotelbot/pkg/errors"
	"github.com/region23/hotelbot/pkg/metrics"
)

// RowStore определяет операции чтения и записи диапазонов
type RowStore interface {
	// Get читает значения диапазона. Для несуществующей вкладки возвращает ErrSheetNotFound.
	Get(ctx context.Context, sheet, a1 string) ([][]string, error)

	// Update перезаписывает значения, начиная с левого верхнего угла диапазона
	Update(ctx context.Context, sheet, a1 string, values [][]string) error

	// Append добавляет строки после последней заполненной строки
	Append(ctx context.Context, sheet, a1 string, values [][]string) error
}

// Pinger реализуется хранилищами, умеющими проверять соединение
type Pinger interface {
	Ping(ctx context.Context) error
}

// IsSheetNotFound проверяет, что вкладка отсутствует
func IsSheetNotFound(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrSheetNotFound)
}

// Observe записывает метрики операции с хранилищем
func Observe(op string, start time.Time, err error) {
	status := "ok"
	switch {
	case err == nil:
	case IsSheetNotFound(err):
		status = "not_found"
	default:
		status = "error"
	}
	metrics.RecordStoreOperation(op, status, time.Since(start).Seconds())
}

// Cell безопасно возвращает значение колонки idx
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// FirstWithData читает вкладки по очереди и возвращает первую, где больше одной строки.
// Отсутствующие вкладки пропускаются, прочие ошибки возвращаются сразу.
func FirstWithData(ctx context.Context, store RowStore, candidates []string, a1 string) (string, [][]string, error) {
	for _, sheet := range candidates {
		if sheet == "" {
			continue
		}
		rows, err := store.Get(ctx, sheet, a1)
		if err != nil {
			if IsSheetNotFound(err) {
				continue
			}
			return "", nil, err
		}
		if len(rows) > 1 {
			return sheet, rows, nil
		}
	}
	return "", nil, nil
}
