// Package catalog читает каталог номеров из табличного хранилища.
package catalog

import (
	"context"
	"regexp"
	"strings"

	"github.com/region23/hotelbot/internal/normalize"
	"github.com/region23/hotelbot/internal/rowstore"
	apperrors "github.com/region23/hotelbot/pkg/errors"
	"github.com/region23/hotelbot/pkg/logger"
)

// DefaultTabs перечисляет вкладки каталога в порядке проверки
var DefaultTabs = []string{"Recursos", "RECURSOS", "Habitaciones", "HABITACIONES", "Rooms", "rooms"}

// Room описывает номер из каталога
type Room struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Capacity  int               `json:"capacity"`
	BasePrice float64           `json:"basePrice"`
	Currency  string            `json:"currency"`
	ImageURL  string            `json:"imageUrl,omitempty"`
	Amenities []string          `json:"amenities,omitempty"`
	Extra     map[string]string `json:"-"`
}

// Колонки каталога в порядке приоритета; выражения применяются к normalize.Key заголовка
var (
	idPatterns        = []*regexp.Regexp{regexp.MustCompile(`id\s*recurso`), regexp.MustCompile(`^id$`)}
	capacityPatterns  = []*regexp.Regexp{regexp.MustCompile(`cap(\.|acidad)?\s*max|capacidad|capacity`)}
	pricePatterns     = []*regexp.Regexp{regexp.MustCompile(`precio|base|price|tarifa`)}
	currencyPatterns  = []*regexp.Regexp{regexp.MustCompile(`moneda|currency`)}
	imagePatterns     = []*regexp.Regexp{regexp.MustCompile(`imagen|foto|photo|image`)}
	amenitiesPatterns = []*regexp.Regexp{regexp.MustCompile(`servicios|amenities|caracteristicas|features`)}

	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`nombre`),
		regexp.MustCompile(`habitacion`),
		regexp.MustCompile(`^recurso$`),
		regexp.MustCompile(`room`),
	}
)

// Catalog предоставляет список номеров
type Catalog struct {
	store           rowstore.RowStore
	tabs            []string
	defaultCurrency string
	logger          *logger.Logger
}

// New создает каталог. roomsTab, если задан, проверяется первым.
func New(store rowstore.RowStore, roomsTab, defaultCurrency string, log *logger.Logger) *Catalog {
	tabs := make([]string, 0, len(DefaultTabs)+1)
	if roomsTab != "" {
		tabs = append(tabs, roomsTab)
	}
	tabs = append(tabs, DefaultTabs...)

	if log == nil {
		log = logger.Default()
	}

	return &Catalog{
		store:           store,
		tabs:            tabs,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		logger:          log.WithComponent("catalog"),
	}
}

// ListRooms читает первую вкладку каталога с данными
func (c *Catalog) ListRooms(ctx context.Context) ([]Room, error) {
	sheet, rows, err := rowstore.FirstWithData(ctx, c.store, c.tabs, "A:Z")
	if err != nil {
		return nil, err
	}
	if sheet == "" {
		return nil, apperrors.ErrCatalogEmpty.WithContext(c.tabs)
	}

	rooms := c.parse(rows)
	if len(rooms) == 0 {
		return nil, apperrors.ErrCatalogNoValidRows.WithContext(sheet)
	}

	c.logger.Debug("Catalog loaded",
		logger.String("sheet", sheet),
		logger.Int("rooms", len(rooms)))

	return rooms, nil
}

func (c *Catalog) parse(rows [][]string) []Room {
	h := rowstore.NewHeaderIndex(rows[0])

	idCol := h.Match(0, idPatterns...)
	nameCol := h.Match(1, namePatterns...)
	capCol := h.Match(2, capacityPatterns...)
	priceCol := h.Match(3, pricePatterns...)
	curCol := h.Match(4, currencyPatterns...)
	imgCol := h.Match(-1, imagePatterns...)
	amenCol := h.Match(-1, amenitiesPatterns...)

	known := map[int]bool{idCol: true, nameCol: true, capCol: true, priceCol: true, curCol: true, imgCol: true, amenCol: true}

	rooms := make([]Room, 0, len(rows)-1)
	for _, row := range rows[1:] {
		id := strings.TrimSpace(rowstore.Cell(row, idCol))
		name := strings.TrimSpace(rowstore.Cell(row, nameCol))
		if id == "" && name == "" {
			continue
		}
		if id == "" {
			// строки без идентификатора получают slug названия, поиск по названию сохраняется
			if id = normalize.Slug(name); id == "" {
				id = name
			}
		}
		if name == "" {
			name = id
		}

		room := Room{
			ID:       id,
			Name:     name,
			Capacity: 1,
			Currency: c.defaultCurrency,
			ImageURL: strings.TrimSpace(rowstore.Cell(row, imgCol)),
			Extra:    make(map[string]string),
		}
		if n, ok := normalize.ParseInt(rowstore.Cell(row, capCol)); ok && n > 0 {
			room.Capacity = n
		}
		if p, ok := normalize.ParseMoney(rowstore.Cell(row, priceCol)); ok && p > 0 {
			room.BasePrice = p
		}
		if cur := strings.TrimSpace(rowstore.Cell(row, curCol)); cur != "" {
			room.Currency = strings.ToUpper(cur)
		}
		room.Amenities = splitList(rowstore.Cell(row, amenCol))

		for i := 0; i < h.Width(); i++ {
			if known[i] {
				continue
			}
			if key, value := h.Key(i), strings.TrimSpace(rowstore.Cell(row, i)); key != "" && value != "" {
				room.Extra[key] = value
			}
		}

		rooms = append(rooms, room)
	}
	return rooms
}

func splitList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' || r == '\n' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// FindRoom ищет номер по id или названию: сначала точное совпадение ключей,
// затем вхождение подстроки в любую сторону.
func FindRoom(rooms []Room, ref string) (Room, bool) {
	q := normalize.Key(ref)
	if q == "" {
		return Room{}, false
	}
	for _, r := range rooms {
		if normalize.Key(r.ID) == q || normalize.Key(r.Name) == q {
			return r, true
		}
	}
	for _, r := range rooms {
		if Matches(r, ref) {
			return r, true
		}
	}
	return Room{}, false
}

// Matches сообщает, относится ли ссылка на номер к данному номеру
func Matches(r Room, ref string) bool {
	q := normalize.Key(ref)
	if q == "" {
		return false
	}
	for _, candidate := range []string{normalize.Key(r.ID), normalize.Key(r.Name)} {
		if candidate == "" {
			continue
		}
		if candidate == q || strings.Contains(candidate, q) || strings.Contains(q, candidate) {
			return true
		}
	}
	return false
}
