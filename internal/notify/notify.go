// Package notify отправляет уведомления администратору отеля.
package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	apperrors "github.com/region23/hotelbot/pkg/errors"
	"github.com/region23/hotelbot/pkg/logger"
	"github.com/region23/hotelbot/pkg/metrics"
)

// Button описывает inline кнопку. Заполняется CallbackData или URL.
type Button struct {
	Text         string
	CallbackData string
	URL          string
}

// Message описывает уведомление администратору
type Message struct {
	// Kind используется как метка метрики: booking, consulta, ...
	Kind    string
	Text    string
	HTML    bool
	Buttons [][]Button
}

// Notifier определяет канал уведомлений администратора
type Notifier interface {
	NotifyAdmin(ctx context.Context, msg Message) error
}

// Sender отправляет сообщения Telegram, реализуется *bot.Bot
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier отправляет уведомления в админский чат Telegram
type TelegramNotifier struct {
	sender Sender
	chatID int64
	logger *logger.Logger
}

// NewTelegramNotifier создает notifier для чата chatID
func NewTelegramNotifier(sender Sender, chatID int64, log *logger.Logger) *TelegramNotifier {
	if log == nil {
		log = logger.Default()
	}
	return &TelegramNotifier{
		sender: sender,
		chatID: chatID,
		logger: log.WithComponent("notify"),
	}
}

// NotifyAdmin отправляет сообщение администратору
func (n *TelegramNotifier) NotifyAdmin(ctx context.Context, msg Message) error {
	params := &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   msg.Text,
	}
	if msg.HTML {
		params.ParseMode = models.ParseModeHTML
	}
	if markup := Keyboard(msg.Buttons); markup != nil {
		params.ReplyMarkup = markup
	}

	kind := msg.Kind
	if kind == "" {
		kind = "generic"
	}

	if _, err := n.sender.SendMessage(ctx, params); err != nil {
		metrics.RecordNotification(kind, "error")
		return apperrors.ErrNotification.WithError(fmt.Errorf("failed to send %s notification: %w", kind, err))
	}

	metrics.RecordNotification(kind, "sent")
	n.logger.Debug("Admin notified", logger.String("kind", kind), logger.Int64("chat_id", n.chatID))
	return nil
}

// Keyboard строит inline клавиатуру из кнопок. Пустой набор дает nil.
func Keyboard(rows [][]Button) *models.InlineKeyboardMarkup {
	var keyboard [][]models.InlineKeyboardButton
	for _, row := range rows {
		var line []models.InlineKeyboardButton
		for _, b := range row {
			btn := models.InlineKeyboardButton{Text: b.Text}
			if b.URL != "" {
				btn.URL = b.URL
			} else {
				btn.CallbackData = b.CallbackData
			}
			line = append(line, btn)
		}
		if len(line) > 0 {
			keyboard = append(keyboard, line)
		}
	}
	if len(keyboard) == 0 {
		return nil
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

// Noop используется, когда админский чат не настроен
type Noop struct {
	logger *logger.Logger
}

// NewNoop создает notifier, который только пишет в лог
func NewNoop(log *logger.Logger) *Noop {
	if log == nil {
		log = logger.Default()
	}
	return &Noop{logger: log.WithComponent("notify")}
}

// NotifyAdmin пишет предупреждение вместо отправки
func (n *Noop) NotifyAdmin(_ context.Context, msg Message) error {
	metrics.RecordNotification(msg.Kind, "skipped")
	n.logger.Warn("Admin chat is not configured, notification dropped", logger.String("kind", msg.Kind))
	return nil
}
