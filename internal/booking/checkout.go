package booking

import (
	"context"
	"strings"

	"github.com/region23/hotelbot/internal/notify"
	apperrors "github.com/region23/hotelbot/pkg/errors"
	"github.com/region23/hotelbot/pkg/logger"
	"github.com/region23/hotelbot/pkg/metrics"
)

// Значения по умолчанию для web checkout
const (
	DefaultGuestName = "Huésped"
	DefaultRoom      = "doble estandar"
	DefaultPax       = 2
)

// ConflictMessage показывается гостю при пересечении дат
const ConflictMessage = "La habitación ya no está disponible para esas fechas."

// CheckoutInput содержит данные формы бронирования с сайта
type CheckoutInput struct {
	Name     string
	Email    string
	Phone    string
	Checkin  string
	Checkout string
	Nights   int
	Room     string
	Pax      int
	Total    float64
	Currency string
}

// CheckoutResult содержит итог бронирования
type CheckoutResult struct {
	OK       bool    `json:"ok"`
	Ref      string  `json:"ref,omitempty"`
	Reason   string  `json:"reason,omitempty"`
	Message  string  `json:"message,omitempty"`
	Room     string  `json:"room,omitempty"`
	Stay     Stay    `json:"stay"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency,omitempty"`
}

// CommitCheckout проверяет данные, пересчитывает сумму по каталогу и создает холд.
// Уведомление администратору отправляется асинхронно и не влияет на результат.
func (e *Engine) CommitCheckout(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = DefaultGuestName
	}
	roomRef := strings.TrimSpace(in.Room)
	if roomRef == "" {
		roomRef = DefaultRoom
	}
	pax := in.Pax
	if pax <= 0 {
		pax = DefaultPax
	}
	email := strings.TrimSpace(in.Email)
	if email != "" {
		if err := e.validate.Var(email, "email"); err != nil {
			e.logger.Warn("Checkout email looks invalid, keeping as entered", logger.String("email", email))
		}
	}

	stay := ResolveStay(in.Checkin, in.Nights, in.Checkout, e.Today())

	quote, err := e.Quote(ctx, roomRef, stay, in.Total)
	if err != nil {
		metrics.RecordCheckout("error")
		return CheckoutResult{OK: false, Reason: ReasonUnavailable}, apperrors.ErrStoreUnavailable.WithError(err)
	}
	if quote.Total != in.Total && in.Total > 0 {
		metrics.RecordTotalSanitized()
		e.logger.Info("Checkout total replaced by catalog price",
			logger.Float64("client_total", in.Total),
			logger.Float64("total", quote.Total))
	}

	currency := quote.Currency
	if cur := strings.ToUpper(strings.TrimSpace(in.Currency)); !quote.Matched && cur != "" {
		currency = cur
	}

	hold := e.CreateHold(ctx, HoldInput{
		Room:          quote.RoomID,
		Stay:          stay,
		Guest:         Guest{Name: name, Email: email, Phone: strings.TrimSpace(in.Phone)},
		Pax:           pax,
		PricePerNight: quote.Nightly,
		Total:         quote.Total,
		Currency:      currency,
		Source:        "web",
	})

	result := CheckoutResult{
		Room:     quote.RoomID,
		Stay:     stay,
		Total:    quote.Total,
		Currency: currency,
	}

	if !hold.OK {
		if hold.Reason == ReasonConflict {
			metrics.RecordCheckout(ReasonConflict)
			result.Reason = ReasonConflict
			result.Message = ConflictMessage
			return result, nil
		}
		metrics.RecordCheckout("error")
		result.Reason = ReasonUnavailable
		return result, apperrors.ErrStoreUnavailable.WithError(hold.Err)
	}

	result.OK = true
	result.Ref = hold.ID
	metrics.RecordCheckout("ok")

	e.notifyBooking(notify.BookingDetails{
		ID:       hold.ID,
		Name:     name,
		Room:     quote.RoomName,
		Nights:   stay.Nights,
		Checkin:  stay.Checkin,
		Checkout: stay.Checkout,
		Total:    quote.Total,
		Currency: currency,
		Email:    email,
		Phone:    strings.TrimSpace(in.Phone),
	})

	return result, nil
}

// notifyBooking отправляет уведомление в фоне с собственным таймаутом
func (e *Engine) notifyBooking(details notify.BookingDetails) {
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.opts.NotifyTimeout)
		defer cancel()

		if err := e.notifier.NotifyAdmin(ctx, notify.BookingMessage(details)); err != nil {
			e.logger.Warn("Failed to notify admin about booking",
				logger.String("id", details.ID), logger.Error(err))
		}
	}()
}
