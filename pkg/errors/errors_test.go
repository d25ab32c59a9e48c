package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := ErrStoreUnavailable.WithError(fmt.Errorf("dial tcp: timeout"))
	assert.Equal(t, "STORE_UNAVAILABLE: хранилище недоступно: dial tcp: timeout", err.Error())
	assert.Equal(t, "CONFLICT: номер уже занят на эти даты", ErrConflict.Error())
}

func TestHasCode_ThroughWrapping(t *testing.T) {
	inner := ErrTokenNotFound.WithContext("tok_1")
	wrapped := fmt.Errorf("relay answer: %w", inner)

	assert.True(t, HasCode(wrapped, ErrTokenNotFound))
	assert.False(t, HasCode(wrapped, ErrConflict))
	assert.False(t, HasCode(nil, ErrConflict))
}

func TestWithError_KeepsUnderlying(t *testing.T) {
	cause := stderrors.New("boom")
	err := ErrNotification.WithError(cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Same(t, cause, err.Unwrap())
}

func TestGetAppError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Wrap(stderrors.New("x"), "CUSTOM", "custom"))

	appErr, ok := GetAppError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "CUSTOM", appErr.Code)
	assert.True(t, IsAppError(wrapped))

	_, ok = GetAppError(stderrors.New("plain"))
	assert.False(t, ok)
}
