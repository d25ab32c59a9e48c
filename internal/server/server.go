// Package server содержит HTTP API сайта, webhook Telegram и служебные эндпоинты.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/region23/hotelbot/internal/booking"
	"github.com/region23/hotelbot/internal/catalog"
	"github.com/region23/hotelbot/internal/config"
	"github.com/region23/hotelbot/internal/middleware"
	"github.com/region23/hotelbot/internal/relay"
	"github.com/region23/hotelbot/pkg/logger"
)

// Bookings описывает операции бронирования, нужные API
type Bookings interface {
	CheckAvailability(ctx context.Context, room string, stay booking.Stay) (booking.Availability, error)
	Quote(ctx context.Context, room string, stay booking.Stay, storedTotal float64) (booking.Quote, error)
	CommitCheckout(ctx context.Context, in booking.CheckoutInput) (booking.CheckoutResult, error)
	Today() string
}

// Rooms возвращает каталог номеров
type Rooms interface {
	ListRooms(ctx context.Context) ([]catalog.Room, error)
}

// Relay описывает мост вопросов посетителей
type Relay interface {
	Ask(ctx context.Context, question string) (relay.AskResult, error)
	Answer(ctx context.Context, token, text string) error
	Wait(ctx context.Context, token string) (string, bool, error)
}

// UpdateHandler обрабатывает обновления Telegram
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, b *tgbot.Bot, update *tgmodels.Update)
}

// Deps содержит зависимости обработчиков. Dispatcher и Bot могут быть nil,
// тогда /webhook не регистрируется.
type Deps struct {
	Bookings   Bookings
	Rooms      Rooms
	Relay      Relay
	Dispatcher UpdateHandler
	Bot        *tgbot.Bot
	Health     *HealthChecker
}

// Server представляет HTTP сервер с middleware
type Server struct {
	httpServer     *http.Server
	config         *config.Config
	logger         *logger.Logger
	rateLimiter    *middleware.RateLimiter
	securityLogger *SecurityLogger
	deps           Deps
}

// New создает новый HTTP сервер
func New(cfg *config.Config, deps Deps, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	log = log.WithComponent("http")
	if deps.Health == nil {
		deps.Health = NewHealthChecker(nil, "dev")
	}

	s := &Server{
		config:         cfg,
		logger:         log,
		rateLimiter:    middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, log),
		securityLogger: NewSecurityLogger(log),
		deps:           deps,
	}

	s.httpServer = &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        s.Handler(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}
	return s
}

// Handler возвращает корневой обработчик со всеми маршрутами и middleware
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.setupRoutes())
}

// setupRoutes настраивает маршруты
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/web/rooms", s.handleRooms)
	mux.HandleFunc("POST /api/web/availability", s.handleAvailability)
	mux.HandleFunc("POST /api/checkout", s.handleCheckout)

	mux.HandleFunc("POST /api/web/consulta", s.handleConsulta)
	mux.HandleFunc("GET /api/web/consulta/wait", s.handleConsultaWait)
	mux.HandleFunc("POST /api/web/relay", s.handleRelayAnswer)
	mux.HandleFunc("GET /relay", s.handleRelayForm)

	if s.deps.Dispatcher != nil {
		mux.Handle("POST /webhook", s.webhookAuth(http.HandlerFunc(s.handleWebhook)))
	}

	mux.HandleFunc("GET /health", s.deps.Health.HealthHandler)
	mux.HandleFunc("GET /healthz", s.deps.Health.HealthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// applyMiddleware оборачивает обработчик; внешний слой применяется последним
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	h := handler

	// 5. Логирование запросов
	h = s.loggingMiddleware(h)

	// 4. Prometheus метрики
	h = middleware.PrometheusMiddleware(h)

	// 3. Ограничение частоты по IP
	h = middleware.RateLimitMiddleware(s.rateLimiter, func(r *http.Request, ip string) {
		s.securityLogger.LogRateLimitExceeded(r, "ip", ip)
	})(h)

	// 2. Заголовки безопасности и CORS
	h = s.corsMiddleware(h)
	h = s.securityHeadersMiddleware(h)

	// 1. Перехват паник
	h = s.recoverMiddleware(h)

	return h
}

// Start запускает сервер и блокируется до отмены ctx или ошибки
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", logger.String("addr", s.httpServer.Addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown корректно завершает работу сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	// Длинные ожидания ответа держат соединение до RELAY_WAIT_TIMEOUT
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Relay.WaitTimeout+5*time.Second)
	defer cancel()

	s.rateLimiter.Close()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error during server shutdown", logger.Error(err))
		return err
	}

	s.logger.Info("HTTP server shut down successfully")
	return nil
}
