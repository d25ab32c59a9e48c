package keyboard

import (
	"github.com/go-telegram/bot/models"
)

// Callback данные кнопок меню
const (
	MenuSummary      = "MENU:resumen"
	MenuAvailability = "MENU:disponibilidad"
	MenuFix          = "MENU:fix"
)

// CreateMainMenuKeyboard создает inline меню администратора
func CreateMainMenuKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "📊 Resumen", CallbackData: MenuSummary},
				{Text: "🗓️ Disponibilidad", CallbackData: MenuAvailability},
			},
			{
				{Text: "🧮 Recalcular totales", CallbackData: MenuFix},
			},
		},
	}
}

// CreateForceReply создает запрос ответа на сообщение бота
func CreateForceReply(placeholder string) *models.ForceReply {
	return &models.ForceReply{
		ForceReply:            true,
		InputFieldPlaceholder: placeholder,
	}
}

// CreateRemoveKeyboard создает объект для удаления клавиатуры
func CreateRemoveKeyboard() *models.ReplyKeyboardRemove {
	return &models.ReplyKeyboardRemove{
		RemoveKeyboard: true,
	}
}
