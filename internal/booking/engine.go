// Package booking реализует проверку доступности, расчет цены и создание броней
// поверх табличного хранилища.
//
// Хранилище не поддерживает транзакций, поэтому между повторной проверкой
// доступности и записью брони остается окно гонки. Две параллельные брони
// одного номера на одни даты могут обе пройти проверку; такие пересечения
// разбирает администратор по уведомлениям.
package booking

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/region23/hotelbot/internal/catalog"
	"github.com/region23/hotelbot/internal/normalize"
	"github.com/region23/hotelbot/internal/notify"
	"github.com/region23/hotelbot/internal/rowstore"
	"github.com/region23/hotelbot/pkg/logger"
)

// RoomLister возвращает каталог номеров
type RoomLister interface {
	ListRooms(ctx context.Context) ([]catalog.Room, error)
}

// Options задает параметры движка бронирования
type Options struct {
	ReservationsTab       string
	ReservationsFallbacks []string
	OccupancyStates       []string
	PriceSanityThreshold  float64
	DefaultCurrency       string
	NotifyTimeout         time.Duration
}

// Engine проверяет доступность, считает цены и создает брони
type Engine struct {
	store    rowstore.RowStore
	catalog  RoomLister
	quotes   QuoteLookup
	notifier notify.Notifier
	clock    normalize.Clock
	opts     Options
	blocking map[string]bool
	validate *validator.Validate
	logger   *logger.Logger

	// pending отслеживает асинхронные уведомления
	pending sync.WaitGroup
}

// New создает движок. quotes и notifier могут быть nil.
func New(store rowstore.RowStore, rooms RoomLister, quotes QuoteLookup, notifier notify.Notifier, opts Options, log *logger.Logger) *Engine {
	if opts.ReservationsTab == "" {
		opts.ReservationsTab = "RESERVAS"
	}
	if len(opts.OccupancyStates) == 0 {
		opts.OccupancyStates = DefaultOccupancyStates
	}
	if opts.PriceSanityThreshold <= 0 {
		opts.PriceSanityThreshold = 0.7
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "USD"
	}
	opts.DefaultCurrency = strings.ToUpper(opts.DefaultCurrency)
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}
	if log == nil {
		log = logger.Default()
	}
	if notifier == nil {
		notifier = notify.NewNoop(log)
	}

	blocking := make(map[string]bool, len(opts.OccupancyStates)*2)
	for _, state := range opts.OccupancyStates {
		blocking[normalize.Key(state)] = true
		blocking[normalize.Key(NormalizeStatus(state))] = true
	}

	return &Engine{
		store:    store,
		catalog:  rooms,
		quotes:   quotes,
		notifier: notifier,
		clock:    normalize.SystemClock,
		opts:     opts,
		blocking: blocking,
		validate: validator.New(),
		logger:   log.WithComponent("booking"),
	}
}

// SetClock подменяет источник времени
func (e *Engine) SetClock(clock normalize.Clock) {
	e.clock = clock
}

// Today возвращает сегодняшнюю дату в ISO
func (e *Engine) Today() string {
	return normalize.Today(e.clock)
}

// Threshold возвращает порог проверки сохраненной суммы
func (e *Engine) Threshold() float64 {
	return e.opts.PriceSanityThreshold
}

// WaitNotifications ждет отправки асинхронных уведомлений
func (e *Engine) WaitNotifications() {
	e.pending.Wait()
}

// strictStore возвращает хранилище без кэша для проверок перед записью
func (e *Engine) strictStore() rowstore.RowStore {
	if u, ok := e.store.(interface{ Uncached() rowstore.RowStore }); ok {
		return u.Uncached()
	}
	return e.store
}

// Stay описывает период проживания [Checkin, Checkout)
type Stay struct {
	Checkin  string `json:"checkin"`
	Checkout string `json:"checkout"`
	Nights   int    `json:"nights"`
}

// ResolveStay выводит недостающие значения из двух известных.
// Без даты заезда используется today, без ночей и выезда одна ночь.
// Если заданы и ночи, и выезд, выезд пересчитывается по ночам.
// Выезд не позже заезда считается отсутствующим.
func ResolveStay(checkin string, nights int, checkout string, today string) Stay {
	ci := normalize.ToISO(checkin)
	co := normalize.ToISO(checkout)

	if ci == "" && co != "" && nights > 0 {
		ci = normalize.AddDays(co, -nights)
	}
	if ci == "" {
		ci = normalize.ToISO(today)
	}

	switch {
	case nights > 0:
		co = normalize.AddDays(ci, nights)
	case co != "" && normalize.NightsBetween(ci, co) > 0:
		nights = normalize.NightsBetween(ci, co)
	default:
		nights = 1
		co = normalize.AddDays(ci, 1)
	}

	return Stay{Checkin: ci, Checkout: co, Nights: nights}
}
