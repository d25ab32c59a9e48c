package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/region23/hotelbot/internal/booking"
	"github.com/region23/hotelbot/internal/normalize"
	"github.com/region23/hotelbot/pkg/logger"
)

// Messenger отправляет сообщения Telegram, реализуется *bot.Bot
type Messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// BookingAdmin содержит операции администратора над бронями
type BookingAdmin interface {
	Summary(ctx context.Context, month time.Time) booking.Summary
	Next7DaysPanel(ctx context.Context, from string, days int) (booking.Panel, error)
	RecomputeTotals(ctx context.Context) (int, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// Relay принимает ответы администратора на вопросы с сайта
type Relay interface {
	Answer(ctx context.Context, token, text string) error
}

// Service представляет основной сервис Telegram бота
type Service struct {
	messenger Messenger
	booking   BookingAdmin
	relay     Relay
	admins    map[int64]bool
	now       func() time.Time
	logger    *logger.Logger
}

// NewService создает новый экземпляр сервиса бота
func NewService(messenger Messenger, bookings BookingAdmin, relay Relay, adminIDs []int64, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	if len(admins) == 0 {
		log.Warn("No bot admins configured, all commands will be refused")
	}
	return &Service{
		messenger: messenger,
		booking:   bookings,
		relay:     relay,
		admins:    admins,
		now:       time.Now,
		logger:    log.WithComponent("bot"),
	}
}

// Logger возвращает логгер бота
func (s *Service) Logger() *logger.Logger {
	return s.logger
}

// IsAdmin проверяет, что пользователь или чат администратора
func (s *Service) IsAdmin(ids ...int64) bool {
	for _, id := range ids {
		if id != 0 && s.admins[id] {
			return true
		}
	}
	return false
}

// SendMessage отправляет сообщение пользователю
func (s *Service) SendMessage(ctx context.Context, chatID int64, text string, replyMarkup tgmodels.ReplyMarkup) error {
	params := &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: replyMarkup,
	}

	_, err := s.messenger.SendMessage(ctx, params)
	return err
}

// SendHTML отправляет сообщение с HTML разметкой
func (s *Service) SendHTML(ctx context.Context, chatID int64, text string, replyMarkup tgmodels.ReplyMarkup) error {
	params := &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   tgmodels.ParseModeHTML,
		ReplyMarkup: replyMarkup,
	}

	_, err := s.messenger.SendMessage(ctx, params)
	return err
}

// SendSimpleMessage отправляет простое текстовое сообщение
func (s *Service) SendSimpleMessage(ctx context.Context, chatID int64, text string) {
	if err := s.SendMessage(ctx, chatID, text, nil); err != nil {
		s.logger.Warn("Failed to send message", logger.Int64("chat_id", chatID), logger.Error(err))
	}
}

// SendError отправляет сообщение об ошибке пользователю
func (s *Service) SendError(ctx context.Context, chatID int64, message string) {
	s.SendSimpleMessage(ctx, chatID, "⚠️ "+message)
}

// AnswerCallbackQuery отвечает на callback query
func (s *Service) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) {
	params := &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackQueryID,
		Text:            text,
	}

	if _, err := s.messenger.AnswerCallbackQuery(ctx, params); err != nil {
		s.logger.Debug("Failed to answer callback query", logger.Error(err))
	}
}

// SummaryText возвращает сводку по броням за текущий месяц
func (s *Service) SummaryText(ctx context.Context) string {
	sum := s.booking.Summary(ctx, s.now())

	var b strings.Builder
	b.WriteString("📊 Resumen de reservas\n\n")
	fmt.Fprintf(&b, "Total: %d\n", sum.Total)
	fmt.Fprintf(&b, "Confirmadas: %d\n", sum.Confirmed)
	fmt.Fprintf(&b, "Pendientes: %d\n", sum.Pending)
	fmt.Fprintf(&b, "Canceladas: %d\n", sum.Canceled)
	fmt.Fprintf(&b, "Ingresos confirmados: %s\n\n", normalize.FormatAmount(sum.Revenue))
	fmt.Fprintf(&b, "Mes %s: %d reservas, %d noches, %s de ingresos",
		sum.Month, sum.MonthBookings, sum.MonthNights, normalize.FormatAmount(sum.MonthRevenue))
	return b.String()
}

// PanelText возвращает занятость номеров на 7 дней моноширинным блоком
func (s *Service) PanelText(ctx context.Context) (string, error) {
	panel, err := s.booking.Next7DaysPanel(ctx, "", 7)
	if err != nil {
		return "", err
	}
	return "🗓️ Próximos 7 días\n<pre>" + html.EscapeString(panel.String()) + "</pre>", nil
}

// RecomputeTotals пересчитывает суммы броней
func (s *Service) RecomputeTotals(ctx context.Context) (int, error) {
	return s.booking.RecomputeTotals(ctx)
}

// UpdateStatus меняет статус брони
func (s *Service) UpdateStatus(ctx context.Context, id, status string) error {
	return s.booking.UpdateStatus(ctx, id, status)
}

// AnswerQuestion передает ответ администратора посетителю сайта
func (s *Service) AnswerQuestion(ctx context.Context, token, text string) error {
	return s.relay.Answer(ctx, token, text)
}
