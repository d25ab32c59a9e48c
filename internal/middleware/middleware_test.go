package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/region23/hotelbot/pkg/logger"
)

func TestRateLimiter_PerKeyBurst(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, logger.Nop())
	defer rl.Close()

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"), "other clients keep their own bucket")
}

func TestRateLimiter_CleanupIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1, logger.Nop())
	defer rl.Close()

	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("old")

	now = now.Add(time.Hour)
	rl.Allow("fresh")

	assert.Equal(t, 1, rl.cleanup())
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, logger.Nop())
	defer rl.Close()

	var limited []string
	h := RateLimitMiddleware(rl, func(_ *http.Request, ip string) { limited = append(limited, ip) })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	req := httptest.NewRequest(http.MethodGet, "/api/web/rooms", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"rate_limited"}`, rec.Body.String())
	assert.Equal(t, []string{"203.0.113.9"}, limited)
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	assert.Equal(t, "198.51.100.7", RealIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.44")
	assert.Equal(t, "192.0.2.44", RealIP(req))

	req.Header.Set("CF-Connecting-IP", "192.0.2.1")
	assert.Equal(t, "192.0.2.1", RealIP(req))
}

func TestStatusRecorder_KeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &StatusRecorder{ResponseWriter: rec, Status: http.StatusOK}

	_, _ = sr.Write([]byte("ok"))
	sr.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusOK, sr.Status)
}
