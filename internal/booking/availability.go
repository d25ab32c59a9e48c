package booking

import (
	"context"
	"strings"

	"github.com/region23/hotelbot/internal/catalog"
	"github.com/region23/hotelbot/internal/normalize"
	"github.com/region23/hotelbot/internal/rowstore"
	apperrors "github.com/region23/hotelbot/pkg/errors"
	"github.com/region23/hotelbot/pkg/logger"
	"github.com/region23/hotelbot/pkg/metrics"
)

// Availability содержит результат проверки доступности
type Availability struct {
	Available bool          `json:"available"`
	Conflicts []Reservation `json:"conflicts,omitempty"`
}

// roomRef содержит ключи, по которым бронь относится к номеру
type roomRef struct {
	keys []string
}

func (r roomRef) matches(reservationRoom string) bool {
	got := normalize.Key(reservationRoom)
	if got == "" {
		return false
	}
	for _, k := range r.keys {
		if k == got || strings.Contains(got, k) || strings.Contains(k, got) {
			return true
		}
	}
	return false
}

// resolveRoom строит ключи сравнения из запроса и найденного номера каталога.
// В strict режиме ошибка хранилища при чтении каталога возвращается.
func (e *Engine) resolveRoom(ctx context.Context, ref string, strict bool) (roomRef, error) {
	out := roomRef{}
	if k := normalize.Key(ref); k != "" {
		out.keys = append(out.keys, k)
	}
	if e.catalog == nil {
		return out, nil
	}

	rooms, err := e.catalog.ListRooms(ctx)
	if err != nil {
		if isCatalogMissing(err) || !strict {
			e.logger.Warn("Catalog unavailable, matching by reference only",
				logger.String("room", ref), logger.Error(err))
			return out, nil
		}
		return out, err
	}

	if room, ok := catalog.FindRoom(rooms, ref); ok {
		for _, k := range []string{normalize.Key(room.ID), normalize.Key(room.Name)} {
			if k != "" {
				out.keys = append(out.keys, k)
			}
		}
	}
	return out, nil
}

func isCatalogMissing(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCatalogEmpty) || apperrors.HasCode(err, apperrors.ErrCatalogNoValidRows)
}

// CheckAvailability проверяет, свободен ли номер на период stay.
// Брони с неразборчивыми датами пропускаются и конфликтом не считаются.
func (e *Engine) CheckAvailability(ctx context.Context, room string, stay Stay) (Availability, error) {
	avail, _, err := e.checkAvailability(ctx, e.store, room, stay, false)
	return avail, err
}

func (e *Engine) checkAvailability(ctx context.Context, store rowstore.RowStore, room string, stay Stay, strict bool) (Availability, *sheet, error) {
	ref, err := e.resolveRoom(ctx, room, strict)
	if err != nil {
		metrics.RecordAvailability("error")
		return Availability{}, nil, err
	}

	s, err := e.loadSheet(ctx, store)
	if err != nil {
		metrics.RecordAvailability("error")
		return Availability{}, nil, err
	}

	from, okFrom := normalize.ParseDate(stay.Checkin)
	to, okTo := normalize.ParseDate(stay.Checkout)
	if !okFrom || !okTo || !to.After(from) {
		metrics.RecordAvailability("error")
		return Availability{}, s, apperrors.ErrValidation.WithContext("invalid stay dates")
	}

	avail := Availability{Available: true}
	for _, r := range s.reservations {
		if !e.isBlocking(r.Status) || !ref.matches(r.Room) {
			continue
		}
		if !r.HasDates() {
			e.logger.Debug("Reservation with unparseable dates skipped",
				logger.String("id", r.ID), logger.Int("row", r.Row))
			continue
		}
		rFrom, _ := normalize.ParseDate(r.Checkin)
		rTo, _ := normalize.ParseDate(r.Checkout)
		if normalize.Overlaps(from, to, rFrom, rTo) {
			avail.Conflicts = append(avail.Conflicts, r)
		}
	}
	avail.Available = len(avail.Conflicts) == 0

	if avail.Available {
		metrics.RecordAvailability("available")
	} else {
		metrics.RecordAvailability("conflict")
	}
	return avail, s, nil
}

// QuoteLookup возвращает цену за ночь для номера на дату заезда
type QuoteLookup interface {
	NightlyRate(ctx context.Context, room catalog.Room, checkin string) (float64, bool, error)
}

// Quote содержит расчет стоимости проживания
type Quote struct {
	RoomID   string  `json:"roomId"`
	RoomName string  `json:"roomName"`
	Nightly  float64 `json:"nightly"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
	Nights   int     `json:"nights"`

	// Matched сообщает, что номер найден в каталоге
	Matched bool `json:"-"`
}

// nightlyFields перечисляет поля номера, из которых берется цена за ночь
var nightlyFields = []string{
	"pricePerNight", "price_per_night", "precio por noche", "price", "precio",
	"basePrice", "base", "nightly", "tarifa", "rate",
}

// SanitizeTotal возвращает сохраненную сумму, если она конечна, положительна и
// не меньше threshold от nightly*nights. Иначе возвращает nightly*nights.
func SanitizeTotal(total, nightly float64, nights int, threshold float64) float64 {
	expected := nightly * float64(nights)
	if normalize.PositiveFinite(total) && total >= threshold*expected {
		return total
	}
	return expected
}

// Quote считает цену за ночь и итоговую сумму. storedTotal <= 0 означает отсутствие суммы.
func (e *Engine) Quote(ctx context.Context, room string, stay Stay, storedTotal float64) (Quote, error) {
	q := Quote{RoomID: room, RoomName: room, Nights: stay.Nights, Currency: e.opts.DefaultCurrency}

	var found *catalog.Room
	if e.catalog != nil {
		rooms, err := e.catalog.ListRooms(ctx)
		switch {
		case err == nil:
			if r, ok := catalog.FindRoom(rooms, room); ok {
				found = &r
			}
		case isCatalogMissing(err):
			e.logger.Warn("Catalog is empty, quoting without room data", logger.Error(err))
		default:
			return Quote{}, err
		}
	}

	if found != nil {
		q.Matched = true
		q.RoomID = found.ID
		q.RoomName = found.Name
		if found.Currency != "" {
			q.Currency = strings.ToUpper(found.Currency)
		}
		q.Nightly = e.nightlyRate(ctx, *found, stay.Checkin)
	}

	q.Total = SanitizeTotal(storedTotal, q.Nightly, stay.Nights, e.opts.PriceSanityThreshold)
	return q, nil
}

func (e *Engine) nightlyRate(ctx context.Context, room catalog.Room, checkin string) float64 {
	if e.quotes != nil {
		rate, ok, err := e.quotes.NightlyRate(ctx, room, checkin)
		if err != nil {
			e.logger.Warn("Rate lookup failed", logger.String("room", room.ID), logger.Error(err))
		} else if ok && normalize.PositiveFinite(rate) {
			return rate
		}
	}

	for _, field := range nightlyFields {
		if raw, ok := room.Extra[normalize.Key(field)]; ok {
			if v, ok := normalize.ParseMoney(raw); ok && normalize.PositiveFinite(v) {
				return v
			}
		}
	}

	if normalize.PositiveFinite(room.BasePrice) {
		return room.BasePrice
	}
	return 0
}

// RateTable читает сезонные тарифы из вкладки с колонками номер, desde, hasta, precio
type RateTable struct {
	store rowstore.RowStore
	tab   string
}

// NewRateTable создает поиск тарифов по вкладке tab
func NewRateTable(store rowstore.RowStore, tab string) *RateTable {
	return &RateTable{store: store, tab: tab}
}

// NightlyRate возвращает первый тариф номера, период которого содержит дату заезда.
// Пустые границы периода считаются открытыми. Отсутствие вкладки не ошибка.
func (t *RateTable) NightlyRate(ctx context.Context, room catalog.Room, checkin string) (float64, bool, error) {
	if t.tab == "" {
		return 0, false, nil
	}
	rows, err := t.store.Get(ctx, t.tab, "A:Z")
	if err != nil {
		if rowstore.IsSheetNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if len(rows) < 2 {
		return 0, false, nil
	}

	h := rowstore.NewHeaderIndex(rows[0])
	roomCol := h.Resolve("habitacion", "room", "recurso", "id recurso", "id")
	fromCol := h.Resolve("desde", "from", "inicio", "fecha desde")
	toCol := h.Resolve("hasta", "to", "fin", "fecha hasta")
	priceCol := h.Resolve("precio", "precio por noche", "tarifa", "rate", "price")
	if roomCol < 0 || priceCol < 0 {
		return 0, false, nil
	}

	day, ok := normalize.ParseDate(checkin)
	if !ok {
		return 0, false, nil
	}

	for _, row := range rows[1:] {
		if !catalog.Matches(room, rowstore.Cell(row, roomCol)) {
			continue
		}
		if from, ok := normalize.ParseDate(rowstore.Cell(row, fromCol)); ok && day.Before(from) {
			continue
		}
		if to, ok := normalize.ParseDate(rowstore.Cell(row, toCol)); ok && day.After(to) {
			continue
		}
		if price, ok := normalize.ParseMoney(rowstore.Cell(row, priceCol)); ok && normalize.PositiveFinite(price) {
			return price, true, nil
		}
	}
	return 0, false, nil
}
