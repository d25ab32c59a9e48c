package handlers

import (
	"context"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/region23/hotelbot/internal/bot/keyboard"
	botservice "github.com/region23/hotelbot/internal/bot/service"
	"github.com/region23/hotelbot/pkg/logger"
)

// ReplyPrompt начинает сообщение-запрос ответа на вопрос с сайта
const ReplyPrompt = "✍️ Escribí tu respuesta para el huésped (se enviará al chat de la web)."

// CallbackHandler обрабатывает callback query от inline кнопок
type CallbackHandler struct {
	service  *botservice.Service
	commands *CommandHandler
}

// NewCallbackHandler создает новый обработчик callback query
func NewCallbackHandler(service *botservice.Service, commands *CommandHandler) *CallbackHandler {
	return &CallbackHandler{service: service, commands: commands}
}

// CallbackChatID возвращает чат сообщения с кнопкой или, если оно недоступно, пользователя
func CallbackChatID(cb *models.CallbackQuery) int64 {
	switch {
	case cb.Message.Message != nil:
		return cb.Message.Message.Chat.ID
	case cb.Message.InaccessibleMessage != nil:
		return cb.Message.InaccessibleMessage.Chat.ID
	}
	return cb.From.ID
}

// Handle обрабатывает callback query
func (h *CallbackHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	cb := update.CallbackQuery
	chatID := CallbackChatID(cb)
	data := cb.Data

	switch {
	case strings.HasPrefix(data, "reply:"):
		h.handleReply(ctx, cb, chatID, data)
	case strings.HasPrefix(data, "status:"):
		h.handleStatus(ctx, cb, chatID, data)
	case strings.HasPrefix(data, "MENU:"):
		h.handleMenu(ctx, cb, chatID, data)
	default:
		h.service.AnswerCallbackQuery(ctx, cb.ID, "Opción inválida")
	}
}

func (h *CallbackHandler) handleReply(ctx context.Context, cb *models.CallbackQuery, chatID int64, data string) {
	token, ok := ParseReplyCallback(data)
	if !ok {
		h.service.AnswerCallbackQuery(ctx, cb.ID, "Token inválido")
		return
	}
	h.service.AnswerCallbackQuery(ctx, cb.ID, "")

	text := ReplyPrompt + "\nToken: " + token
	if err := h.service.SendMessage(ctx, chatID, text, keyboard.CreateForceReply("Respuesta para el huésped")); err != nil {
		h.service.Logger().Warn("Failed to send reply prompt", logger.String("token", token), logger.Error(err))
	}
}

func (h *CallbackHandler) handleStatus(ctx context.Context, cb *models.CallbackQuery, chatID int64, data string) {
	id, status, ok := ParseStatusCallback(data)
	if !ok {
		h.service.AnswerCallbackQuery(ctx, cb.ID, "Datos inválidos")
		return
	}
	h.service.AnswerCallbackQuery(ctx, cb.ID, "Actualizando…")
	h.commands.UpdateStatus(ctx, chatID, id, status)
}

func (h *CallbackHandler) handleMenu(ctx context.Context, cb *models.CallbackQuery, chatID int64, data string) {
	h.service.AnswerCallbackQuery(ctx, cb.ID, "")

	switch data {
	case keyboard.MenuSummary:
		h.commands.SendSummary(ctx, chatID)
	case keyboard.MenuAvailability:
		h.commands.SendPanel(ctx, chatID)
	case keyboard.MenuFix:
		h.commands.RecomputeTotals(ctx, chatID)
	default:
		h.commands.ShowMenu(ctx, chatID)
	}
}
