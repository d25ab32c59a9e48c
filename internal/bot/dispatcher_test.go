package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/region23/hotelbot/internal/booking"
	"github.com/region23/hotelbot/internal/bot/handlers"
	"github.com/region23/hotelbot/internal/bot/service"
	"github.com/region23/hotelbot/internal/catalog"
	apperrors "github.com/region23/hotelbot/pkg/errors"
	"github.com/region23/hotelbot/pkg/logger"
)

const adminID int64 = 42

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []*tgbot.SendMessageParams
	answered []*tgbot.AnswerCallbackQueryParams
}

func (m *fakeMessenger) SendMessage(_ context.Context, p *tgbot.SendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, p)
	return &models.Message{}, nil
}

func (m *fakeMessenger) AnswerCallbackQuery(_ context.Context, p *tgbot.AnswerCallbackQueryParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answered = append(m.answered, p)
	return true, nil
}

func (m *fakeMessenger) last(t *testing.T) *tgbot.SendMessageParams {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

type fakeBooking struct {
	statusCalls [][2]string
	statusErr   error
	fixed       int
}

func (f *fakeBooking) Summary(context.Context, time.Time) booking.Summary {
	return booking.Summary{Total: 3, Confirmed: 2, Pending: 1, Revenue: 500, Month: "2025-11", MonthBookings: 2, MonthRevenue: 500, MonthNights: 5}
}

func (f *fakeBooking) Next7DaysPanel(context.Context, string, int) (booking.Panel, error) {
	return booking.Panel{
		Days: []string{"2025-11-01", "2025-11-02"},
		Rows: []booking.PanelRow{{Room: catalog.Room{ID: "DBL", Name: "Doble"}, Occupied: []bool{true, false}}},
	}, nil
}

func (f *fakeBooking) RecomputeTotals(context.Context) (int, error) {
	return f.fixed, nil
}

func (f *fakeBooking) UpdateStatus(_ context.Context, id, status string) error {
	f.statusCalls = append(f.statusCalls, [2]string{id, status})
	return f.statusErr
}

type fakeRelay struct {
	answers map[string]string
}

func (f *fakeRelay) Answer(_ context.Context, token, text string) error {
	if !strings.HasPrefix(token, "tok_") {
		return apperrors.ErrTokenNotFound
	}
	f.answers[token] = text
	return nil
}

type fixture struct {
	messenger  *fakeMessenger
	bookings   *fakeBooking
	relay      *fakeRelay
	dispatcher *Dispatcher
}

func newFixture() *fixture {
	f := &fixture{
		messenger: &fakeMessenger{},
		bookings:  &fakeBooking{fixed: 4},
		relay:     &fakeRelay{answers: map[string]string{}},
	}
	svc := service.NewService(f.messenger, f.bookings, f.relay, []int64{adminID}, logger.Nop())
	f.dispatcher = NewDispatcher(svc)
	return f
}

func textUpdate(from int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{
		From: &models.User{ID: from},
		Chat: models.Chat{ID: from},
		Text: text,
	}}
}

func callbackUpdate(from int64, data string) *models.Update {
	return &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   "cb1",
		From: models.User{ID: from},
		Data: data,
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{Chat: models.Chat{ID: from}},
		},
	}}
}

func TestDispatcher_RefusesNonAdmins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.dispatcher.HandleUpdate(ctx, nil, textUpdate(7, "/resumen"))
	assert.Equal(t, RefusalText, f.messenger.last(t).Text)

	f.dispatcher.HandleUpdate(ctx, nil, callbackUpdate(7, "status:ord_1:confirmada"))
	require.Len(t, f.messenger.answered, 1)
	assert.Equal(t, RefusalText, f.messenger.answered[0].Text)
	assert.Empty(t, f.bookings.statusCalls)
}

func TestDispatcher_MenuAndSummary(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.dispatcher.HandleUpdate(ctx, nil, textUpdate(adminID, "/menu"))
	menu := f.messenger.last(t)
	assert.Equal(t, handlers.HelpText, menu.Text)
	assert.IsType(t, &models.InlineKeyboardMarkup{}, menu.ReplyMarkup)

	f.dispatcher.HandleUpdate(ctx, nil, textUpdate(adminID, "/resumen"))
	assert.Contains(t, f.messenger.last(t).Text, "Confirmadas: 2")

	f.dispatcher.HandleUpdate(ctx, nil, callbackUpdate(adminID, "MENU:disponibilidad"))
	panel := f.messenger.last(t)
	assert.Equal(t, models.ParseModeHTML, panel.ParseMode)
	assert.Contains(t, panel.Text, "<pre>")
	assert.Contains(t, panel.Text, "Doble")

	f.dispatcher.HandleUpdate(ctx, nil, textUpdate(adminID, "/recalcular"))
	assert.Contains(t, f.messenger.last(t).Text, "4 filas")
}

func TestDispatcher_StatusUpdates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.dispatcher.HandleUpdate(ctx, nil, textUpdate(adminID, "/estado ord_1 approved"))
	f.dispatcher.HandleUpdate(ctx, nil, textUpdate(adminID, "ord_2 canceled"))
	f.dispatcher.HandleUpdate(ctx, nil, callbackUpdate(adminID, "status:ord_3:confirmada"))

	assert.Equal(t, [][2]string{
		{"ord_1", "approved"},
		{"ord_2", "canceled"},
		{"ord_3", "confirmada"},
	}, f.bookings.statusCalls)

	f.bookings.statusErr = apperrors.ErrReservationNotFound
	f.dispatcher.HandleUpdate(ctx, nil, textUpdate(adminID, "ord_9 pending"))
	assert.Contains(t, f.messenger.last(t).Text, "No encontré la reserva ord_9")
}

func TestDispatcher_ReplyFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.dispatcher.HandleUpdate(ctx, nil, callbackUpdate(adminID, "reply:tok_17_ab"))
	prompt := f.messenger.last(t)
	assert.Contains(t, prompt.Text, "Token: tok_17_ab")
	assert.IsType(t, &models.ForceReply{}, prompt.ReplyMarkup)

	reply := textUpdate(adminID, "Sí, tenemos cuna")
	reply.Message.ReplyToMessage = &models.Message{Text: prompt.Text}
	f.dispatcher.HandleUpdate(ctx, nil, reply)

	assert.Equal(t, "Sí, tenemos cuna", f.relay.answers["tok_17_ab"])
	assert.Equal(t, "✅ Enviado al huésped.", f.messenger.last(t).Text)
}

func TestDispatcher_ResponderCommand(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.dispatcher.HandleUpdate(ctx, nil, textUpdate(adminID, "/responder tok_1_x Desde las 14 hs"))
	assert.Equal(t, "Desde las 14 hs", f.relay.answers["tok_1_x"])

	f.dispatcher.HandleUpdate(ctx, nil, textUpdate(adminID, "/responder tok_1_x"))
	assert.Contains(t, f.messenger.last(t).Text, "Formato inválido")
}

func TestDispatcher_UnknownText(t *testing.T) {
	f := newFixture()
	f.dispatcher.HandleUpdate(context.Background(), nil, textUpdate(adminID, "hola"))
	assert.Contains(t, f.messenger.last(t).Text, "/menu")
}
