package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError представляет ошибку приложения с кодом и контекстом
type AppError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
	Context interface{} `json:"context,omitempty"`
}

// Error реализует интерфейс error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap позволяет использовать errors.Is и errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по коду
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithContext добавляет контекст к ошибке
func (e *AppError) WithContext(ctx interface{}) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Context: ctx,
	}
}

// WithError добавляет underlying ошибку
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
		Context: e.Context,
	}
}

// Предопределенные ошибки
var (
	// Ошибки запуска
	ErrConfig = &AppError{
		Code:    "CONFIG",
		Message: "некорректная конфигурация",
	}

	// Ошибки хранилища
	ErrStoreUnavailable = &AppError{
		Code:    "STORE_UNAVAILABLE",
		Message: "хранилище недоступно",
	}

	ErrSheetNotFound = &AppError{
		Code:    "SHEET_NOT_FOUND",
		Message: "вкладка не найдена",
	}

	// Ошибки каталога
	ErrCatalogEmpty = &AppError{
		Code:    "CATALOG_EMPTY",
		Message: "ни одна вкладка каталога не содержит данных",
	}

	ErrCatalogNoValidRows = &AppError{
		Code:    "CATALOG_NO_VALID_ROWS",
		Message: "в каталоге нет строк с id или названием",
	}

	// Ошибки бронирования
	ErrConflict = &AppError{
		Code:    "CONFLICT",
		Message: "номер уже занят на эти даты",
	}

	ErrReservationNotFound = &AppError{
		Code:    "RESERVATION_NOT_FOUND",
		Message: "бронь не найдена",
	}

	ErrValidation = &AppError{
		Code:    "VALIDATION",
		Message: "некорректные входные данные",
	}

	// Ошибки релея
	ErrTokenNotFound = &AppError{
		Code:    "TOKEN_NOT_FOUND",
		Message: "token_not_found",
	}

	// Ошибки уведомлений
	ErrNotification = &AppError{
		Code:    "NOTIFICATION",
		Message: "не удалось отправить уведомление",
	}
)

// New создает новую ошибку приложения
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap оборачивает обычную ошибку в AppError
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsAppError проверяет, является ли ошибка AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError извлекает AppError из цепочки ошибок
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode проверяет, что в цепочке есть ошибка с кодом sentinel
func HasCode(err error, sentinel *AppError) bool {
	if err == nil || sentinel == nil {
		return false
	}
	return stderrors.Is(err, sentinel)
}
