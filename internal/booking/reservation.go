package booking

import (
	"context"
	"strings"

	"github.com/region23/hotelbot/internal/normalize"
	"github.com/region23/hotelbot/internal/rowstore"
	"github.com/region23/hotelbot/pkg/logger"
)

// reservationRange покрывает все колонки вкладки броней
const reservationRange = "A:ZZ"

// ReservationFields сопоставляет поля брони с возможными заголовками
var ReservationFields = rowstore.FieldAliases{
	"id":              {"id"},
	"created_at":      {"created_at", "creado", "fecha alta"},
	"status":          {"estado", "status"},
	"room":            {"habitacion", "hab", "room"},
	"checkin":         {"check-in", "check in", "entrada", "fecha entrada", "fecha"},
	"checkout":        {"check-out", "check out", "salida", "fecha salida"},
	"nights":          {"noches", "nights"},
	"name":            {"nombre titular", "titular", "nombre"},
	"email":           {"email", "e-mail", "correo"},
	"phone":           {"telefono", "phone"},
	"pax":             {"personas", "pax", "huespedes"},
	"price_per_night": {"precio_por_noche", "precio por noche", "precio", "rate", "tarifa"},
	"total":           {"total", "importe", "monto"},
	"currency":        {"moneda", "currency"},
	"source":          {"origen", "source", "fuente"},
}

// DefaultHeader записывается в пустую вкладку перед первой бронью
var DefaultHeader = []string{
	"ID", "CREADO", "ESTADO", "HABITACION", "CHECK-IN", "CHECK-OUT", "NOCHES",
	"NOMBRE", "EMAIL", "TELEFONO", "PERSONAS", "PRECIO POR NOCHE", "TOTAL", "MONEDA", "ORIGEN",
}

// Статусы брони после нормализации
const (
	StatusConfirmed = "confirmada"
	StatusCanceled  = "cancelada"
	StatusPending   = "pendiente"
)

// DefaultOccupancyStates перечисляет статусы, занимающие номер
var DefaultOccupancyStates = []string{"confirmada", "approved", "pagado", "pendiente", "pending", "pending_payment", "web"}

// Guest описывает гостя
type Guest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Reservation описывает строку брони
type Reservation struct {
	ID            string  `json:"id"`
	Room          string  `json:"room"`
	Checkin       string  `json:"checkin"`
	Checkout      string  `json:"checkout"`
	Nights        int     `json:"nights"`
	Status        string  `json:"status"`
	Guest         Guest   `json:"guest"`
	Pax           int     `json:"pax"`
	PricePerNight float64 `json:"pricePerNight"`
	Total         float64 `json:"total"`
	Currency      string  `json:"currency"`
	Source        string  `json:"source"`
	CreatedAt     string  `json:"createdAt"`

	// Row номер строки во вкладке, с 1
	Row int `json:"-"`
}

// HasDates сообщает, что обе даты брони разобраны
func (r Reservation) HasDates() bool {
	return r.Checkin != "" && r.Checkout != ""
}

// NormalizeStatus приводит статус к одному из confirmada, cancelada, pendiente.
// Неизвестные статусы возвращаются в нижнем регистре.
func NormalizeStatus(s string) string {
	key := normalize.Key(s)
	switch key {
	case "pagado", "approved", "paid", "confirmed", "confirmada", "confirmado":
		return StatusConfirmed
	case "canceled", "cancelled", "cancelado", "cancelada":
		return StatusCanceled
	case "pending", "pending payment", "pendiente":
		return StatusPending
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// sheet содержит прочитанную вкладку броней
type sheet struct {
	tab string
	// header nil, если вкладка пуста
	header       *rowstore.HeaderIndex
	reservations []Reservation
}

func (e *Engine) reservationTabs() []string {
	tabs := make([]string, 0, len(e.opts.ReservationsFallbacks)+1)
	tabs = append(tabs, e.opts.ReservationsTab)
	for _, tab := range e.opts.ReservationsFallbacks {
		if tab != "" && tab != e.opts.ReservationsTab {
			tabs = append(tabs, tab)
		}
	}
	return tabs
}

// loadSheet читает первую вкладку броней с данными. Если данных нет нигде,
// возвращает первую существующую вкладку, а при ее отсутствии основную.
func (e *Engine) loadSheet(ctx context.Context, store rowstore.RowStore) (*sheet, error) {
	var firstExisting *sheet
	for _, tab := range e.reservationTabs() {
		rows, err := store.Get(ctx, tab, reservationRange)
		if err != nil {
			if rowstore.IsSheetNotFound(err) {
				continue
			}
			return nil, err
		}

		s := parseSheet(tab, rows)
		if len(rows) > 1 {
			return s, nil
		}
		if firstExisting == nil {
			firstExisting = s
		}
	}
	if firstExisting != nil {
		return firstExisting, nil
	}
	return &sheet{tab: e.opts.ReservationsTab}, nil
}

func parseSheet(tab string, rows [][]string) *sheet {
	s := &sheet{tab: tab}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return s
	}

	s.header = rowstore.NewHeaderIndex(rows[0])
	for i, row := range rows[1:] {
		rec := s.header.Record(row, ReservationFields)
		res, ok := reservationFromRow(rec)
		if !ok {
			continue
		}
		res.Row = i + 2
		s.reservations = append(s.reservations, res)
	}
	return s
}

func reservationFromRow(rec rowstore.Row) (Reservation, bool) {
	res := Reservation{
		ID:        strings.TrimSpace(rec["id"]),
		Room:      strings.TrimSpace(rec["room"]),
		Checkin:   normalize.ToISO(rec["checkin"]),
		Checkout:  normalize.ToISO(rec["checkout"]),
		Status:    strings.TrimSpace(rec["status"]),
		Currency:  strings.ToUpper(strings.TrimSpace(rec["currency"])),
		Source:    strings.TrimSpace(rec["source"]),
		CreatedAt: strings.TrimSpace(rec["created_at"]),
		Guest: Guest{
			Name:  strings.TrimSpace(rec["name"]),
			Email: strings.TrimSpace(rec["email"]),
			Phone: strings.TrimSpace(rec["phone"]),
		},
	}
	if res.ID == "" && res.Room == "" && strings.TrimSpace(rec["checkin"]) == "" {
		return Reservation{}, false
	}

	if n, ok := normalize.ParseInt(rec["nights"]); ok && n > 0 {
		res.Nights = n
	}
	if n, ok := normalize.ParseInt(rec["pax"]); ok && n > 0 {
		res.Pax = n
	}
	if p, ok := normalize.ParseMoney(rec["price_per_night"]); ok {
		res.PricePerNight = p
	}
	if t, ok := normalize.ParseMoney(rec["total"]); ok {
		res.Total = t
	}

	// дата выезда не позже заезда считается отсутствующей,
	// недостающие даты и ночи выводятся из двух известных значений
	if res.Checkout != "" && normalize.NightsBetween(res.Checkin, res.Checkout) == 0 {
		res.Checkout = ""
	}
	if res.Checkin != "" && res.Checkout == "" && res.Nights > 0 {
		res.Checkout = normalize.AddDays(res.Checkin, res.Nights)
	}
	if res.Checkin != "" && res.Checkout != "" && res.Nights == 0 {
		res.Nights = normalize.NightsBetween(res.Checkin, res.Checkout)
	}

	return res, true
}

// ReadReservations возвращает все брони. Ошибка хранилища дает пустой
// список и предупреждение в логе.
func (e *Engine) ReadReservations(ctx context.Context) []Reservation {
	s, err := e.loadSheet(ctx, e.store)
	if err != nil {
		e.logger.Warn("Failed to read reservations, returning empty list", logger.Error(err))
		return nil
	}
	return s.reservations
}

// isBlocking сообщает, занимает ли статус номер
func (e *Engine) isBlocking(status string) bool {
	if strings.TrimSpace(status) == "" {
		return false
	}
	if e.blocking[normalize.Key(status)] {
		return true
	}
	return e.blocking[normalize.Key(NormalizeStatus(status))]
}
