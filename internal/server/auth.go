package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"time"

	tgmodels "github.com/go-telegram/bot/models"

	"github.com/region23/hotelbot/pkg/logger"
)

// SecretTokenHeader передается Telegram с каждым webhook запросом
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// webhookAuth сверяет секрет webhook, если он задан в TELEGRAM_SECRET_TOKEN
func (s *Server) webhookAuth(next http.Handler) http.Handler {
	secret := []byte(s.config.Telegram.SecretToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(secret) > 0 {
			got := []byte(r.Header.Get(SecretTokenHeader))
			if subtle.ConstantTimeCompare(got, secret) != 1 {
				s.securityLogger.LogFailedAuth(r, "invalid_webhook_secret")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// handleWebhook обрабатывает Telegram webhook
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var update tgmodels.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&update); err != nil {
		s.securityLogger.LogBlockedRequest(r, "invalid_update_json", "rejected")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	// Обработка не привязана к соединению: Telegram не ждет результата
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 30*time.Second)
	defer cancel()

	s.deps.Dispatcher.HandleUpdate(ctx, s.deps.Bot, &update)

	s.securityLogger.LogTelegramUpdate(&update, time.Since(start))
	s.logger.Debug("Webhook processed", logger.Int64("update_id", update.ID))

	w.WriteHeader(http.StatusOK)
}
