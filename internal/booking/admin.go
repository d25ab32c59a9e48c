package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/region23/hotelbot/internal/catalog"
	"github.com/region23/hotelbot/internal/normalize"
	"github.com/region23/hotelbot/internal/rowstore"
	apperrors "github.com/region23/hotelbot/pkg/errors"
	"github.com/region23/hotelbot/pkg/logger"
)

// UpdateStatus меняет статус брони id. Пишется только ячейка статуса.
func (e *Engine) UpdateStatus(ctx context.Context, id, status string) error {
	id = strings.TrimSpace(id)
	status = NormalizeStatus(status)
	if id == "" || status == "" {
		return apperrors.ErrValidation.WithContext("id and status are required")
	}

	s, err := e.loadSheet(ctx, e.strictStore())
	if err != nil {
		return err
	}
	if s.header == nil {
		return apperrors.ErrReservationNotFound.WithContext(id)
	}

	col := s.header.Resolve(ReservationFields["status"]...)
	if col < 0 {
		return apperrors.ErrValidation.WithContext("status column not found in " + s.tab)
	}

	for _, r := range s.reservations {
		if !strings.EqualFold(r.ID, id) {
			continue
		}
		if err := e.store.Update(ctx, s.tab, rowstore.CellRef(col, r.Row), [][]string{{status}}); err != nil {
			return err
		}
		e.logger.Info("Reservation status updated",
			logger.String("id", r.ID),
			logger.String("status", status))
		return nil
	}

	return apperrors.ErrReservationNotFound.WithContext(id)
}

// RecomputeTotals записывает noches × precio в колонку total там, где сумма
// отсутствует или не проходит проверку. Возвращает число исправленных строк.
func (e *Engine) RecomputeTotals(ctx context.Context) (int, error) {
	s, err := e.loadSheet(ctx, e.strictStore())
	if err != nil {
		return 0, err
	}
	if s.header == nil {
		return 0, nil
	}

	totalCol := s.header.Resolve(ReservationFields["total"]...)
	if totalCol < 0 {
		return 0, apperrors.ErrValidation.WithContext("total column not found in " + s.tab)
	}

	fixed := 0
	for _, r := range s.reservations {
		if r.Nights <= 0 || !normalize.PositiveFinite(r.PricePerNight) {
			continue
		}
		want := SanitizeTotal(r.Total, r.PricePerNight, r.Nights, e.opts.PriceSanityThreshold)
		if want == r.Total {
			continue
		}
		value := normalize.FormatAmount(want)
		if err := e.store.Update(ctx, s.tab, rowstore.CellRef(totalCol, r.Row), [][]string{{value}}); err != nil {
			return fixed, err
		}
		fixed++
	}

	e.logger.Info("Totals recomputed", logger.Int("fixed", fixed), logger.String("sheet", s.tab))
	return fixed, nil
}

// Summary содержит сводку по броням
type Summary struct {
	Total         int     `json:"total"`
	Confirmed     int     `json:"confirmed"`
	Pending       int     `json:"pending"`
	Canceled      int     `json:"canceled"`
	Revenue       float64 `json:"revenue"`
	Month         string  `json:"month"`
	MonthBookings int     `json:"monthBookings"`
	MonthRevenue  float64 `json:"monthRevenue"`
	MonthNights   int     `json:"monthNights"`
}

// Summary считает брони по статусам и выручку подтвержденных броней,
// отдельно за месяц, в который попадает month.
func (e *Engine) Summary(ctx context.Context, month time.Time) Summary {
	prefix := month.UTC().Format("2006-01")
	sum := Summary{Month: prefix}

	for _, r := range e.ReadReservations(ctx) {
		sum.Total++
		status := NormalizeStatus(r.Status)
		switch {
		case status == StatusConfirmed:
			sum.Confirmed++
			sum.Revenue += r.Total
		case status == StatusCanceled:
			sum.Canceled++
		case status == StatusPending || e.isBlocking(status):
			sum.Pending++
		}

		if strings.HasPrefix(r.Checkin, prefix) {
			sum.MonthBookings++
			if status == StatusConfirmed {
				sum.MonthRevenue += r.Total
				sum.MonthNights += r.Nights
			}
		}
	}
	return sum
}

// PanelRow содержит занятость номера по дням
type PanelRow struct {
	Room     catalog.Room `json:"room"`
	Occupied []bool       `json:"occupied"`
}

// Panel описывает занятость номеров на несколько дней
type Panel struct {
	Days []string   `json:"days"`
	Rows []PanelRow `json:"rows"`
}

// Next7DaysPanel строит матрицу номер × день начиная с from
func (e *Engine) Next7DaysPanel(ctx context.Context, from string, days int) (Panel, error) {
	if days <= 0 {
		days = 7
	}
	if normalize.ToISO(from) == "" {
		from = e.Today()
	}

	var rooms []catalog.Room
	if e.catalog != nil {
		list, err := e.catalog.ListRooms(ctx)
		if err != nil && !isCatalogMissing(err) {
			return Panel{}, err
		}
		rooms = list
	}

	panel := Panel{Days: normalize.Days(normalize.ToISO(from), days)}
	reservations := e.ReadReservations(ctx)

	for _, room := range rooms {
		row := PanelRow{Room: room, Occupied: make([]bool, len(panel.Days))}
		for _, r := range reservations {
			if !r.HasDates() || !e.isBlocking(r.Status) || !catalog.Matches(room, r.Room) {
				continue
			}
			for i, day := range panel.Days {
				// ночь day занята, если r.Checkin <= day < r.Checkout
				if r.Checkin <= day && day < r.Checkout {
					row.Occupied[i] = true
				}
			}
		}
		panel.Rows = append(panel.Rows, row)
	}
	return panel, nil
}

// String рисует панель моноширинным текстом
func (p Panel) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-14s", "Habitación"))
	for _, day := range p.Days {
		b.WriteString(" " + normalize.ISOToDMY(day)[:5])
	}
	b.WriteString("\n")

	if len(p.Rows) == 0 {
		b.WriteString("(sin habitaciones configuradas)\n")
		return b.String()
	}

	for _, row := range p.Rows {
		name := []rune(row.Room.Name)
		if len(name) > 14 {
			name = name[:14]
		}
		b.WriteString(fmt.Sprintf("%-14s", string(name)))
		for _, busy := range row.Occupied {
			if busy {
				b.WriteString("   x  ")
			} else {
				b.WriteString("   .  ")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
