package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/region23/hotelbot/internal/rowstore"
	"github.com/region23/hotelbot/pkg/metrics"
)

// HealthResponse представляет ответ health check
type HealthResponse struct {
	OK        bool              `json:"ok"`
	Status    string            `json:"status"`
	Timestamp int64             `json:"ts"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks"`
}

// HealthChecker проверяет состояние системы
type HealthChecker struct {
	store     rowstore.Pinger
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewHealthChecker создает health checker. store может быть nil.
func NewHealthChecker(store rowstore.Pinger, version string) *HealthChecker {
	return &HealthChecker{
		store:     store,
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// HealthHandler обрабатывает запросы health check
func (h *HealthChecker) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]string)
	status := "healthy"

	if err := h.checkStore(ctx); err != nil {
		checks["store"] = "unhealthy: " + err.Error()
		status = "unhealthy"
	} else {
		checks["store"] = "healthy"
	}

	for name, check := range map[string]func() string{
		"memory":     h.checkMemory,
		"goroutines": h.checkGoroutines,
	} {
		result := check()
		checks[name] = result
		if result != "healthy" && status == "healthy" {
			status = "warning"
		}
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{
		OK:        status != "unhealthy",
		Status:    status,
		Timestamp: time.Now().UnixMilli(),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    checks,
	})
}

func (h *HealthChecker) checkStore(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	return h.store.Ping(ctx)
}

// checkMemory проверяет использование памяти
func (h *HealthChecker) checkMemory() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.MemoryUsage.Set(float64(m.Alloc))

	const warningLimit = 500 * 1024 * 1024

	if m.Alloc > warningLimit {
		return "warning: memory usage > 500MB"
	}
	return "healthy"
}

// checkGoroutines проверяет количество горутин.
// Каждое ожидание ответа на консультацию держит горутину, поэтому порог выше обычного.
func (h *HealthChecker) checkGoroutines() string {
	count := runtime.NumGoroutine()
	metrics.GoroutinesCount.Set(float64(count))

	if count > 2000 {
		return "warning: high goroutine count"
	}
	return "healthy"
}
