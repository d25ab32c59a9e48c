package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/region23/hotelbot/pkg/metrics"
)

// PrometheusMiddleware записывает количество и длительность HTTP запросов.
// В метку endpoint попадает шаблон маршрута ServeMux, а не сырой путь.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(wrapped.Status))
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// StatusRecorder оборачивает http.ResponseWriter для захвата статус-кода
type StatusRecorder struct {
	http.ResponseWriter
	Status      int
	wroteHeader bool
}

// WriteHeader захватывает статус-код ответа
func (rw *StatusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.Status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *StatusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Flush пробрасывает сброс буфера, если он поддерживается
func (rw *StatusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
