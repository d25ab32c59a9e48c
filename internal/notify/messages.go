package notify

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/region23/hotelbot/internal/normalize"
)

// BookingDetails содержит данные новой брони для уведомления
type BookingDetails struct {
	ID       string
	Name     string
	Room     string
	Nights   int
	Checkin  string
	Checkout string
	Total    float64
	Currency string
	Email    string
	Phone    string
}

// StatusCallback формирует callback_data кнопки смены статуса
func StatusCallback(id, status string) string {
	return "status:" + id + ":" + status
}

// ReplyCallback формирует callback_data кнопки ответа на консультацию
func ReplyCallback(token string) string {
	return "reply:" + token
}

// BookingMessage строит уведомление о новой брони с web
func BookingMessage(d BookingDetails) Message {
	lines := []string{
		"🛎️ <b>Nueva reserva (web)</b>",
		"• <b>Huésped:</b> " + html.EscapeString(d.Name),
		"• <b>Habitación:</b> " + html.EscapeString(d.Room),
		fmt.Sprintf("• <b>Total de noches:</b> %d", d.Nights),
		"• <b>Check-in:</b> " + normalize.ISOToDMY(d.Checkin),
		"• <b>Check-out:</b> " + normalize.ISOToDMY(d.Checkout),
		fmt.Sprintf("• <b>Total:</b> %s $ %s", html.EscapeString(d.Currency), normalize.FormatAmount(d.Total)),
	}
	if d.Email != "" {
		lines = append(lines, "• <b>Email:</b> "+html.EscapeString(d.Email))
	}
	if d.Phone != "" {
		lines = append(lines, "• <b>Tel:</b> "+html.EscapeString(d.Phone))
	}
	lines = append(lines, "• <b>ID:</b> <code>"+html.EscapeString(d.ID)+"</code>")

	return Message{
		Kind: "booking",
		Text: strings.Join(lines, "\n"),
		HTML: true,
		Buttons: [][]Button{{
			{Text: "✅ Confirmar", CallbackData: StatusCallback(d.ID, "confirmada")},
			{Text: "❌ Cancelar", CallbackData: StatusCallback(d.ID, "cancelada")},
		}},
	}
}

// ConsultaMessage строит уведомление о вопросе с сайта.
// Кнопка формы добавляется только для https origin.
func ConsultaMessage(token, question, publicOrigin string) Message {
	text := "🧩 <b>Consulta web</b>\n\n" +
		"• <b>Pregunta:</b> " + html.EscapeString(question) + "\n" +
		"• <b>Token:</b> <code>" + html.EscapeString(token) + "</code>"

	row := []Button{{Text: "Responder al cliente", CallbackData: ReplyCallback(token)}}
	if IsHTTPS(publicOrigin) {
		row = append(row, Button{
			Text: "Formulario",
			URL:  strings.TrimRight(publicOrigin, "/") + "/relay?token=" + url.QueryEscape(token),
		})
	}

	return Message{
		Kind:    "consulta",
		Text:    text,
		HTML:    true,
		Buttons: [][]Button{row},
	}
}

// IsHTTPS проверяет, что origin публичный и доступен по https
func IsHTTPS(origin string) bool {
	u, err := url.Parse(strings.TrimSpace(origin))
	return err == nil && u.Scheme == "https" && u.Host != ""
}
