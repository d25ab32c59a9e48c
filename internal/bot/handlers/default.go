package handlers

import (
	"context"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	botservice "github.com/region23/hotelbot/internal/bot/service"
)

// DefaultHandler обрабатывает сообщения без команды: ответы на запрос
// ответа посетителю и короткую форму смены статуса.
type DefaultHandler struct {
	service  *botservice.Service
	commands *CommandHandler
}

// NewDefaultHandler создает новый обработчик по умолчанию
func NewDefaultHandler(service *botservice.Service, commands *CommandHandler) *DefaultHandler {
	return &DefaultHandler{service: service, commands: commands}
}

// Handle обрабатывает все остальные типы сообщений
func (h *DefaultHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if msg.ReplyToMessage != nil {
		if token := TokenFromPrompt(msg.ReplyToMessage.Text); token != "" {
			if text == "" {
				h.service.SendSimpleMessage(ctx, chatID, "No encontré texto para enviar.")
				return
			}
			h.commands.Relay(ctx, chatID, token, text)
			return
		}
	}

	if id, status, ok := ParseStatusText(text); ok {
		h.commands.UpdateStatus(ctx, chatID, id, status)
		return
	}

	h.service.SendSimpleMessage(ctx, chatID, "No entendí. Escribí /menu para ver las opciones.")
}
