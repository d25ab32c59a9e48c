package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/region23/hotelbot/pkg/errors"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", "test.db")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "USD", cfg.Booking.DefaultCurrency)
	assert.Equal(t, 0.7, cfg.Booking.PriceSanityThreshold)
	assert.Equal(t, "RESERVAS", cfg.Booking.ReservationsTab)
	assert.Contains(t, cfg.Booking.OccupancyStates, "pendiente")
	assert.Equal(t, 55*time.Second, cfg.Relay.WaitTimeout)
	assert.Equal(t, time.Second, cfg.Relay.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Store.CacheTTL)
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DEFAULT_CURRENCY", "ars")
	t.Setenv("PRICE_SANITY_THRESHOLD", "0.5")
	t.Setenv("OCCUPANCY_STATES", "confirmada, pendiente")
	t.Setenv("ADMIN_USER_IDS", "11, 22,bad")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "33")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "ARS", cfg.Booking.DefaultCurrency)
	assert.Equal(t, 0.5, cfg.Booking.PriceSanityThreshold)
	assert.Equal(t, []string{"confirmada", "pendiente"}, cfg.Booking.OccupancyStates)
	assert.Equal(t, []int64{11, 22}, cfg.AdminIDs())
}

func TestLoad_AdminFallsBackToChat(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ADMIN_USER_IDS", "")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "33")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []int64{33}, cfg.AdminIDs())
}

func TestLoad_FailsFast(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing bot token",
			env:  map[string]string{"TELEGRAM_BOT_TOKEN": "", "TELEGRAM_TOKEN": ""},
		},
		{
			name: "sheets without spreadsheet id",
			env: map[string]string{
				"STORE_BACKEND":                  "sheets",
				"SHEETS_SPREADSHEET_ID":          "",
				"GOOGLE_SHEETS_ID":               "",
				"GOOGLE_APPLICATION_CREDENTIALS": "/tmp/creds.json",
			},
		},
		{
			name: "sheets without credentials",
			env: map[string]string{
				"STORE_BACKEND":                  "sheets",
				"SHEETS_SPREADSHEET_ID":          "sheet-id",
				"GOOGLE_APPLICATION_CREDENTIALS": "",
				"GOOGLE_CREDENTIALS_JSON":        "",
			},
		},
		{
			name: "unknown backend",
			env:  map[string]string{"STORE_BACKEND": "postgres"},
		},
		{
			name: "zero threshold",
			env:  map[string]string{"PRICE_SANITY_THRESHOLD": "0"},
		},
		{
			name: "threshold above one",
			env:  map[string]string{"PRICE_SANITY_THRESHOLD": "1.5"},
		},
		{
			name: "llm fallback without key",
			env:  map[string]string{"RELAY_LLM_FALLBACK": "true", "OPENAI_API_KEY": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrConfig), "expected config error, got %v", err)
		})
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "123*****789", Mask("12345678789"))
	assert.Equal(t, "****", Mask("abcd"))
}
