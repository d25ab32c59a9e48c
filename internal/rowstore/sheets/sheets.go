// Package sheets реализует RowStore поверх Google Sheets API v4.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/region23/hotelbot/internal/rowstore"
	apperrors "github.com/region23/hotelbot/pkg/errors"
)

const (
	valueInputOption = "USER_ENTERED"
	insertDataOption = "INSERT_ROWS"
)

// Options задает параметры подключения к таблице
type Options struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
	Timeout         time.Duration

	// ClientOptions добавляются к опциям клиента (используется в тестах)
	ClientOptions []option.ClientOption
}

// Store читает и пишет диапазоны одной таблицы
type Store struct {
	srv           *sheets.Service
	spreadsheetID string
	timeout       time.Duration
}

// New создает клиент Sheets API
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.SpreadsheetID == "" {
		return nil, apperrors.ErrConfig.WithContext("spreadsheet id is empty")
	}

	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	switch {
	case opts.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(opts.CredentialsJSON)))
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	srv, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable.WithError(fmt.Errorf("failed to create sheets service: %w", err))
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Store{srv: srv, spreadsheetID: opts.SpreadsheetID, timeout: timeout}, nil
}

// Get читает значения диапазона
func (s *Store) Get(ctx context.Context, sheet, a1 string) (values [][]string, err error) {
	defer func(start time.Time) { rowstore.Observe("get", start, err) }(time.Now())

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, quoteRange(sheet, a1)).Context(ctx).Do()
	if err != nil {
		return nil, mapError(sheet, err)
	}

	values = make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		values = append(values, cells)
	}
	return values, nil
}

// Update перезаписывает значения диапазона
func (s *Store) Update(ctx context.Context, sheet, a1 string, values [][]string) (err error) {
	defer func(start time.Time) { rowstore.Observe("update", start, err) }(time.Now())

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body := &sheets.ValueRange{Values: toInterfaces(values)}
	_, err = s.srv.Spreadsheets.Values.Update(s.spreadsheetID, quoteRange(sheet, a1), body).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return mapError(sheet, err)
	}
	return nil
}

// Append добавляет строки в конец таблицы
func (s *Store) Append(ctx context.Context, sheet, a1 string, values [][]string) (err error) {
	defer func(start time.Time) { rowstore.Observe("append", start, err) }(time.Now())

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body := &sheets.ValueRange{Values: toInterfaces(values)}
	_, err = s.srv.Spreadsheets.Values.Append(s.spreadsheetID, quoteRange(sheet, a1), body).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).
		Do()
	if err != nil {
		return mapError(sheet, err)
	}
	return nil
}

// Ping проверяет доступ к таблице
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.srv.Spreadsheets.Get(s.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return apperrors.ErrStoreUnavailable.WithError(err)
	}
	return nil
}

// quoteRange строит диапазон вида 'Имя вкладки'!A:Z
func quoteRange(sheet, a1 string) string {
	name := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	if a1 == "" {
		return name
	}
	return name + "!" + a1
}

func mapError(sheet string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) &&
		gerr.Code == http.StatusBadRequest &&
		strings.Contains(gerr.Message, "Unable to parse range") {
		return apperrors.ErrSheetNotFound.WithContext(sheet).WithError(err)
	}
	return apperrors.ErrStoreUnavailable.WithContext(sheet).WithError(err)
}

func toInterfaces(values [][]string) [][]interface{} {
	out := make([][]interface{}, len(values))
	for i, row := range values {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}
