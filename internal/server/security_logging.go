package server

import (
	"net/http"
	"time"

	tgmodels "github.com/go-telegram/bot/models"

	"github.com/region23/hotelbot/internal/middleware"
	"github.com/region23/hotelbot/pkg/logger"
	"github.com/region23/hotelbot/pkg/metrics"
)

// SecurityLogger логирует события безопасности
type SecurityLogger struct {
	logger *logger.Logger
}

// NewSecurityLogger создает новый логгер безопасности
func NewSecurityLogger(log *logger.Logger) *SecurityLogger {
	return &SecurityLogger{logger: log.WithComponent("security")}
}

func requestFields(r *http.Request) []logger.Field {
	return []logger.Field{
		logger.String("ip", middleware.RealIP(r)),
		logger.String("user_agent", r.UserAgent()),
		logger.String("path", r.URL.Path),
		logger.String("method", r.Method),
	}
}

// LogFailedAuth логирует неудачную попытку аутентификации
func (sl *SecurityLogger) LogFailedAuth(r *http.Request, reason string) {
	metrics.RecordError("security", "auth")
	sl.logger.Warn("Authentication failed", append(requestFields(r), logger.String("reason", reason))...)
}

// LogRateLimitExceeded логирует превышение rate limit
func (sl *SecurityLogger) LogRateLimitExceeded(r *http.Request, limitType, identifier string) {
	metrics.RecordError("security", "rate_limit")
	sl.logger.Warn("Rate limit exceeded", append(requestFields(r),
		logger.String("limit_type", limitType),
		logger.String("identifier", identifier))...)
}

// LogBlockedRequest логирует заблокированные запросы
func (sl *SecurityLogger) LogBlockedRequest(r *http.Request, reason, action string) {
	sl.logger.Warn("Request blocked", append(requestFields(r),
		logger.String("reason", reason),
		logger.String("action", action),
		logger.Int64("content_length", r.ContentLength))...)
}

// LogTelegramUpdate логирует обработку Telegram update
func (sl *SecurityLogger) LogTelegramUpdate(update *tgmodels.Update, processingTime time.Duration) {
	var chatID, userID int64
	updateType := "other"

	switch {
	case update.Message != nil:
		updateType = "message"
		chatID = update.Message.Chat.ID
		if update.Message.From != nil {
			userID = update.Message.From.ID
		}
	case update.CallbackQuery != nil:
		updateType = "callback_query"
		userID = update.CallbackQuery.From.ID
		if m := update.CallbackQuery.Message.Message; m != nil {
			chatID = m.Chat.ID
		}
	}

	sl.logger.Info("Telegram update processed",
		logger.Int64("update_id", update.ID),
		logger.String("type", updateType),
		logger.Int64("chat_id", chatID),
		logger.Int64("user_id", userID),
		logger.Int64("processing_time_ms", processingTime.Milliseconds()))
}
