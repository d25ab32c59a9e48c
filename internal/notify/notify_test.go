package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/region23/hotelbot/pkg/errors"
	"github.com/region23/hotelbot/pkg/logger"
)

type fakeSender struct {
	params []*bot.SendMessageParams
	err    error
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Message{ID: len(f.params)}, nil
}

func TestTelegramNotifier_SendsHTMLWithKeyboard(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegramNotifier(sender, 42, logger.Nop())

	err := n.NotifyAdmin(context.Background(), ConsultaMessage("tok_1_abc", "¿Hay <cochera>?", "https://hotel.example"))
	require.NoError(t, err)
	require.Len(t, sender.params, 1)

	p := sender.params[0]
	assert.Equal(t, int64(42), p.ChatID)
	assert.Equal(t, models.ParseModeHTML, p.ParseMode)
	assert.Contains(t, p.Text, "&lt;cochera&gt;")
	assert.Contains(t, p.Text, "<code>tok_1_abc</code>")

	markup, ok := p.ReplyMarkup.(*models.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	row := markup.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Equal(t, "reply:tok_1_abc", row[0].CallbackData)
	assert.Equal(t, "https://hotel.example/relay?token=tok_1_abc", row[1].URL)
}

func TestTelegramNotifier_WrapsSendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram down")}
	n := NewTelegramNotifier(sender, 42, logger.Nop())

	err := n.NotifyAdmin(context.Background(), Message{Kind: "booking", Text: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotification))
}

func TestConsultaMessage_NoFormButtonWithoutHTTPS(t *testing.T) {
	msg := ConsultaMessage("tok_1", "hola", "http://localhost:3000")
	require.Len(t, msg.Buttons, 1)
	assert.Len(t, msg.Buttons[0], 1)
	assert.Equal(t, "consulta", msg.Kind)
}

func TestBookingMessage(t *testing.T) {
	msg := BookingMessage(BookingDetails{
		ID:       "ord_0123456789abcdef",
		Name:     "Ana & Luis",
		Room:     "Doble estándar",
		Nights:   2,
		Checkin:  "2025-11-10",
		Checkout: "2025-11-12",
		Total:    200,
		Currency: "USD",
		Email:    "ana@example.com",
	})

	assert.True(t, msg.HTML)
	assert.Contains(t, msg.Text, "🛎️ <b>Nueva reserva (web)</b>")
	assert.Contains(t, msg.Text, "Ana &amp; Luis")
	assert.Contains(t, msg.Text, "<b>Check-in:</b> 10/11/2025")
	assert.Contains(t, msg.Text, "<b>Check-out:</b> 12/11/2025")
	assert.Contains(t, msg.Text, "<b>Total:</b> USD $ 200")
	assert.Contains(t, msg.Text, "<b>Email:</b> ana@example.com")
	assert.NotContains(t, msg.Text, "Tel:")
	assert.Equal(t, "status:ord_0123456789abcdef:confirmada", msg.Buttons[0][0].CallbackData)
}

func TestKeyboard_Empty(t *testing.T) {
	assert.Nil(t, Keyboard(nil))
	assert.Nil(t, Keyboard([][]Button{{}}))
}

func TestNoop(t *testing.T) {
	assert.NoError(t, NewNoop(logger.Nop()).NotifyAdmin(context.Background(), Message{Kind: "booking"}))
}
