package handlers

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/region23/hotelbot/internal/bot/keyboard"
	botservice "github.com/region23/hotelbot/internal/bot/service"
	apperrors "github.com/region23/hotelbot/pkg/errors"
	"github.com/region23/hotelbot/pkg/logger"
)

// HelpText перечисляет команды администратора
const HelpText = "🏨 Panel de administración\n\n" +
	"/resumen - resumen de reservas\n" +
	"/disponibilidad - ocupación de los próximos 7 días\n" +
	"/fix o /recalcular - recalcular totales\n" +
	"/estado <ID> <estado> - cambiar estado (approved, pending, canceled)\n" +
	"/responder <token> <texto> - responder una consulta web\n\n" +
	"También podés escribir \"<ID> approved\" directamente."

// CommandHandler обрабатывает команды администратора
type CommandHandler struct {
	service *botservice.Service
}

// NewCommandHandler создает новый обработчик команд
func NewCommandHandler(service *botservice.Service) *CommandHandler {
	return &CommandHandler{service: service}
}

// Handle выполняет команду. Возвращает false, если команда неизвестна.
func (h *CommandHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) bool {
	if update.Message == nil {
		return false
	}
	chatID := update.Message.Chat.ID
	cmd, args := ParseCommand(update.Message.Text)

	switch cmd {
	case "start", "menu", "ayuda", "help":
		h.ShowMenu(ctx, chatID)
	case "resumen":
		h.SendSummary(ctx, chatID)
	case "disponibilidad":
		h.SendPanel(ctx, chatID)
	case "fix", "recalcular":
		h.RecomputeTotals(ctx, chatID)
	case "estado":
		id, status, ok := ParseStatusArgs(args)
		if !ok {
			h.service.SendSimpleMessage(ctx, chatID, "Uso: /estado <ID> <approved|pending|canceled>")
			return true
		}
		h.UpdateStatus(ctx, chatID, id, status)
	case "responder":
		token, answer, ok := ParseResponderArgs(args)
		if !ok {
			h.service.SendSimpleMessage(ctx, chatID, "Formato inválido. Ejemplo: /responder tok_1234 Tu respuesta aquí")
			return true
		}
		h.Relay(ctx, chatID, token, answer)
	default:
		return false
	}
	return true
}

// ShowMenu отправляет справку с inline меню
func (h *CommandHandler) ShowMenu(ctx context.Context, chatID int64) {
	if err := h.service.SendMessage(ctx, chatID, HelpText, keyboard.CreateMainMenuKeyboard()); err != nil {
		h.service.Logger().Warn("Failed to send menu", logger.Int64("chat_id", chatID), logger.Error(err))
	}
}

// SendSummary отправляет сводку по броням
func (h *CommandHandler) SendSummary(ctx context.Context, chatID int64) {
	h.service.SendSimpleMessage(ctx, chatID, h.service.SummaryText(ctx))
}

// SendPanel отправляет панель занятости
func (h *CommandHandler) SendPanel(ctx context.Context, chatID int64) {
	text, err := h.service.PanelText(ctx)
	if err != nil {
		h.service.Logger().Error("Failed to build availability panel", logger.Error(err))
		h.service.SendError(ctx, chatID, "No pude leer la disponibilidad.")
		return
	}
	if err := h.service.SendHTML(ctx, chatID, text, nil); err != nil {
		h.service.Logger().Warn("Failed to send panel", logger.Error(err))
	}
}

// RecomputeTotals пересчитывает суммы и сообщает результат
func (h *CommandHandler) RecomputeTotals(ctx context.Context, chatID int64) {
	fixed, err := h.service.RecomputeTotals(ctx)
	if err != nil {
		h.service.Logger().Error("Failed to recompute totals", logger.Error(err))
		h.service.SendError(ctx, chatID, "No pude recalcular los totales.")
		return
	}
	h.service.SendSimpleMessage(ctx, chatID, fmt.Sprintf("🧮 Totales recalculados: %d filas corregidas.", fixed))
}

// UpdateStatus меняет статус брони и сообщает результат
func (h *CommandHandler) UpdateStatus(ctx context.Context, chatID int64, id, status string) {
	err := h.service.UpdateStatus(ctx, id, status)
	switch {
	case err == nil:
		h.service.SendSimpleMessage(ctx, chatID, fmt.Sprintf("✅ Reserva %s: %s", id, status))
	case apperrors.HasCode(err, apperrors.ErrReservationNotFound):
		h.service.SendError(ctx, chatID, fmt.Sprintf("No encontré la reserva %s.", id))
	default:
		h.service.Logger().Error("Failed to update status", logger.String("id", id), logger.Error(err))
		h.service.SendError(ctx, chatID, "No pude actualizar el estado.")
	}
}

// Relay передает ответ администратора посетителю сайта
func (h *CommandHandler) Relay(ctx context.Context, chatID int64, token, answer string) {
	err := h.service.AnswerQuestion(ctx, token, answer)
	switch {
	case err == nil:
		h.service.SendSimpleMessage(ctx, chatID, "✅ Enviado al huésped.")
	case apperrors.HasCode(err, apperrors.ErrTokenNotFound):
		h.service.SendError(ctx, chatID, "La consulta ya no existe o expiró.")
	default:
		h.service.Logger().Error("Failed to relay answer", logger.String("token", token), logger.Error(err))
		h.service.SendError(ctx, chatID, "No se pudo enviar la respuesta al huésped.")
	}
}
