package bot

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/region23/hotelbot/internal/bot/handlers"
	"github.com/region23/hotelbot/internal/bot/service"
	"github.com/region23/hotelbot/pkg/logger"
	"github.com/region23/hotelbot/pkg/metrics"
)

// RefusalText отправляется пользователям без прав администратора
const RefusalText = "Este bot es solo para la administración del hotel."

// Dispatcher управляет обработкой входящих обновлений от Telegram
type Dispatcher struct {
	service         *service.Service
	commandHandler  *handlers.CommandHandler
	callbackHandler *handlers.CallbackHandler
	defaultHandler  *handlers.DefaultHandler
}

// NewDispatcher создает новый диспетчер обновлений
func NewDispatcher(svc *service.Service) *Dispatcher {
	commands := handlers.NewCommandHandler(svc)
	return &Dispatcher{
		service:         svc,
		commandHandler:  commands,
		callbackHandler: handlers.NewCallbackHandler(svc, commands),
		defaultHandler:  handlers.NewDefaultHandler(svc, commands),
	}
}

// HandleUpdate обрабатывает входящее обновление от Telegram
func (d *Dispatcher) HandleUpdate(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	log := d.service.Logger()

	if cb := update.CallbackQuery; cb != nil {
		chatID := handlers.CallbackChatID(cb)
		log.Debug("Callback query received", logger.Int64("chat_id", chatID), logger.String("data", cb.Data))

		if !d.service.IsAdmin(cb.From.ID, chatID) {
			metrics.RecordBotUpdate("refused")
			d.service.AnswerCallbackQuery(ctx, cb.ID, RefusalText)
			return
		}
		metrics.RecordBotUpdate("callback")
		d.callbackHandler.Handle(ctx, b, update)
		return
	}

	if msg := update.Message; msg != nil {
		var userID int64
		if msg.From != nil {
			userID = msg.From.ID
		}
		log.Debug("Message received", logger.Int64("chat_id", msg.Chat.ID), logger.Int64("user_id", userID))

		if !d.service.IsAdmin(userID, msg.Chat.ID) {
			metrics.RecordBotUpdate("refused")
			d.service.SendSimpleMessage(ctx, msg.Chat.ID, RefusalText)
			return
		}

		if d.commandHandler.Handle(ctx, b, update) {
			metrics.RecordBotUpdate("command")
			return
		}
		metrics.RecordBotUpdate("message")
		d.defaultHandler.Handle(ctx, b, update)
		return
	}

	metrics.RecordBotUpdate("ignored")
	log.Debug("Unsupported update type", logger.Int64("update_id", update.ID))
}
