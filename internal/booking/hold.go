package booking

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/region23/hotelbot/internal/normalize"
	"github.com/region23/hotelbot/internal/rowstore"
	"github.com/region23/hotelbot/pkg/logger"
	"github.com/region23/hotelbot/pkg/metrics"
)

// Причины отказа в холде
const (
	ReasonConflict    = "conflict"
	ReasonUnavailable = "unavailable"
)

// HoldInput содержит данные предварительной брони
type HoldInput struct {
	Room          string
	Stay          Stay
	Guest         Guest
	Pax           int
	PricePerNight float64
	Total         float64
	Currency      string
	Source        string
}

// HoldResult содержит результат создания холда
type HoldResult struct {
	OK     bool   `json:"ok"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason,omitempty"`

	// Err заполняется при отказе из-за ошибки хранилища
	Err error `json:"-"`
}

// NewReservationID генерирует идентификатор вида ord_<16 hex>
func NewReservationID() string {
	return "ord_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// CreateHold повторно проверяет доступность по свежим данным и добавляет бронь
// в статусе pendiente. Если проверку выполнить не удалось, холд отклоняется.
func (e *Engine) CreateHold(ctx context.Context, in HoldInput) HoldResult {
	log := e.logger.WithFields(logger.String("room", in.Room),
		logger.String("checkin", in.Stay.Checkin),
		logger.String("checkout", in.Stay.Checkout))

	avail, s, err := e.checkAvailability(ctx, e.strictStore(), in.Room, in.Stay, true)
	if err != nil {
		log.Error("Availability re-check failed, rejecting hold", logger.Error(err))
		metrics.RecordHold(ReasonUnavailable)
		return HoldResult{Reason: ReasonUnavailable, Err: err}
	}
	if !avail.Available {
		log.Info("Hold rejected by conflict", logger.Int("conflicts", len(avail.Conflicts)))
		metrics.RecordHold(ReasonConflict)
		return HoldResult{Reason: ReasonConflict}
	}

	header := s.header
	if header == nil {
		if err := e.store.Update(ctx, s.tab, "A1", [][]string{DefaultHeader}); err != nil {
			log.Error("Failed to write reservations header", logger.Error(err))
			metrics.RecordHold(ReasonUnavailable)
			return HoldResult{Reason: ReasonUnavailable, Err: err}
		}
		header = rowstore.NewHeaderIndex(DefaultHeader)
	}

	id := NewReservationID()
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = e.opts.DefaultCurrency
	}
	source := in.Source
	if source == "" {
		source = "web"
	}

	values := rowstore.Row{
		"id":         id,
		"created_at": e.clock().UTC().Format(time.RFC3339),
		"status":     StatusPending,
		"room":       in.Room,
		"checkin":    in.Stay.Checkin,
		"checkout":   in.Stay.Checkout,
		"nights":     strconv.Itoa(in.Stay.Nights),
		"name":       in.Guest.Name,
		"email":      in.Guest.Email,
		"phone":      in.Guest.Phone,
		"currency":   currency,
		"source":     source,
	}
	if in.Pax > 0 {
		values["pax"] = strconv.Itoa(in.Pax)
	}
	if normalize.PositiveFinite(in.PricePerNight) {
		values["price_per_night"] = normalize.FormatAmount(in.PricePerNight)
	}
	if normalize.PositiveFinite(in.Total) {
		values["total"] = normalize.FormatAmount(in.Total)
	}

	row := header.Build(values, ReservationFields)
	if err := e.store.Append(ctx, s.tab, reservationRange, [][]string{row}); err != nil {
		log.Error("Failed to append reservation", logger.Error(err))
		metrics.RecordHold(ReasonUnavailable)
		return HoldResult{Reason: ReasonUnavailable, Err: err}
	}

	log.Info("Hold created", logger.String("id", id), logger.String("sheet", s.tab))
	metrics.RecordHold("ok")
	return HoldResult{OK: true, ID: id}
}
