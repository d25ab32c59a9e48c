package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/region23/hotelbot/internal/middleware"
	"github.com/region23/hotelbot/pkg/logger"
	"github.com/region23/hotelbot/pkg/metrics"
)

// loggingMiddleware логирует HTTP запросы
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &middleware.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		fields := []logger.Field{
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status_code", wrapped.Status),
			logger.Int64("duration_ms", time.Since(start).Milliseconds()),
			logger.String("ip", middleware.RealIP(r)),
		}
		if wrapped.Status >= http.StatusInternalServerError {
			s.logger.Warn("HTTP request failed", fields...)
			return
		}
		s.logger.Debug("HTTP request completed", fields...)
	})
}

// securityHeadersMiddleware добавляет заголовки безопасности
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// Форма /relay использует встроенные стили и скрипт
		h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'")

		next.ServeHTTP(w, r)
	})
}

// corsMiddleware разрешает запросы сайта с CORS_ORIGIN и отвечает на preflight
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	origin := s.config.Server.CORSOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware превращает панику обработчика в 500 {ok:false}
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil || rec == http.ErrAbortHandler {
				if rec != nil {
					panic(rec)
				}
				return
			}
			metrics.RecordError("http", "panic")
			s.logger.Error("Handler panic recovered",
				logger.String("path", r.URL.Path),
				logger.String("panic", fmt.Sprint(rec)),
				logger.String("stack", string(debug.Stack())))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal_error"))
		}()
		next.ServeHTTP(w, r)
	})
}
