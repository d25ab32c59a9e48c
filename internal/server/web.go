package server

import (
	"net/http"
	"strings"

	"github.com/region23/hotelbot/internal/booking"
	"github.com/region23/hotelbot/internal/catalog"
	apperrors "github.com/region23/hotelbot/pkg/errors"
	"github.com/region23/hotelbot/pkg/logger"
	"github.com/region23/hotelbot/pkg/metrics"
)

// availabilityFailure показывается сайту, когда проверить даты не удалось
const availabilityFailure = "No fue posible comprobar la disponibilidad (datos de fecha inválidos)."

// roomView является публичным представлением номера в ответе availability
type roomView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Currency string `json:"currency"`
}

// handleRooms отдает каталог; при ошибке хранилища отдает пустой список
func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.deps.Rooms.ListRooms(r.Context())
	if err != nil {
		s.logger.Warn("Rooms catalog unavailable, returning empty list", logger.Error(err))
		metrics.RecordError("http", "rooms")
		rooms = nil
	}
	if rooms == nil {
		rooms = []catalog.Room{}
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "rooms": rooms})
}

// pickRoom находит номер по ссылке из формы. Без совпадения берется первый номер каталога.
func (s *Server) pickRoom(r *http.Request, ref string) (catalog.Room, bool) {
	rooms, err := s.deps.Rooms.ListRooms(r.Context())
	if err != nil {
		s.logger.Warn("Rooms catalog unavailable", logger.Error(err))
		return catalog.Room{}, false
	}
	if room, ok := catalog.FindRoom(rooms, ref); ok {
		return room, true
	}
	if len(rooms) > 0 {
		return rooms[0], true
	}
	return catalog.Room{}, false
}

// handleAvailability проверяет доступность и считает стоимость.
// Любая ошибка отдается как 200 {ok:false, error, message}.
func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)
	ref := field(body, "habitacion", "room", "roomId")

	room, found := s.pickRoom(r, ref)
	if found {
		ref = room.ID
		if ref == "" {
			ref = room.Name
		}
	}
	if ref == "" {
		s.availabilityError(w, "missing_room")
		return
	}

	stay := booking.ResolveStay(
		field(body, "fechaEntrada", "checkin"),
		intField(body, "noches", "nights"),
		field(body, "fechaSalida", "checkout"),
		s.deps.Bookings.Today(),
	)

	avail, err := s.deps.Bookings.CheckAvailability(r.Context(), ref, stay)
	if err != nil {
		s.logger.Warn("Availability check failed", logger.String("room", ref), logger.Error(err))
		s.availabilityError(w, errorCode(err, "availability_error"))
		return
	}

	quote, err := s.deps.Bookings.Quote(r.Context(), ref, stay, 0)
	if err != nil {
		s.logger.Warn("Quote failed", logger.String("room", ref), logger.Error(err))
		s.availabilityError(w, errorCode(err, "availability_error"))
		return
	}

	view := roomView{ID: quote.RoomID, Name: quote.RoomName, Currency: quote.Currency}
	if found {
		view = roomView{ID: room.ID, Name: room.Name, Capacity: room.Capacity, Currency: strings.ToUpper(room.Currency)}
		if view.Currency == "" {
			view.Currency = quote.Currency
		}
	}

	writeJSON(w, http.StatusOK, envelope{
		"ok":         true,
		"disponible": avail.Available,
		"total":      quote.Total,
		"moneda":     quote.Currency,
		"nightly":    quote.Nightly,
		"room":       view,
		"nights":     stay.Nights,
		"checkin":    stay.Checkin,
		"checkout":   stay.Checkout,
	})
}

func (s *Server) availabilityError(w http.ResponseWriter, code string) {
	writeJSON(w, http.StatusOK, envelope{"ok": false, "error": code, "message": availabilityFailure})
}

// handleCheckout создает предварительную бронь из формы сайта
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)
	in := booking.CheckoutInput{
		Name:     field(body, "nombre", "name"),
		Email:    field(body, "email"),
		Phone:    field(body, "telefono", "phone"),
		Checkin:  field(body, "checkin", "fechaEntrada"),
		Checkout: field(body, "checkout", "fechaSalida"),
		Nights:   intField(body, "noches", "nights"),
		Room:     field(body, "habitacion", "room"),
		Pax:      intField(body, "pax", "huespedes"),
		Total:    moneyField(body, "total"),
		Currency: field(body, "moneda", "currency"),
	}

	res, err := s.deps.Bookings.CommitCheckout(r.Context(), in)
	if err != nil {
		s.logger.Error("Checkout failed", logger.String("room", in.Room), logger.Error(err))
		if apperrors.HasCode(err, apperrors.ErrStoreUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, envelope{
				"ok":      false,
				"error":   "store_unavailable",
				"message": "No pudimos registrar la reserva en este momento. Intentá nuevamente en unos minutos.",
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody("checkout_error"))
		return
	}

	if !res.OK {
		writeJSON(w, http.StatusOK, envelope{"ok": false, "reason": res.Reason, "message": res.Message})
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "ref": res.Ref})
}

// errorCode возвращает код ошибки приложения в нижнем регистре
func errorCode(err error, fallback string) string {
	if appErr, ok := apperrors.GetAppError(err); ok {
		return strings.ToLower(appErr.Code)
	}
	return fallback
}
