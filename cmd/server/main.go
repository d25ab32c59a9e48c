package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/region23/hotelbot/internal/booking"
	"github.com/region23/hotelbot/internal/bot"
	"github.com/region23/hotelbot/internal/bot/service"
	"github.com/region23/hotelbot/internal/catalog"
	"github.com/region23/hotelbot/internal/config"
	"github.com/region23/hotelbot/internal/notify"
	"github.com/region23/hotelbot/internal/relay"
	"github.com/region23/hotelbot/internal/rowstore"
	"github.com/region23/hotelbot/internal/rowstore/sheets"
	"github.com/region23/hotelbot/internal/rowstore/sqlite"
	"github.com/region23/hotelbot/internal/scheduler"
	"github.com/region23/hotelbot/internal/server"
	"github.com/region23/hotelbot/pkg/logger"
)

// version задается при сборке через -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", logger.Error(err))
	}

	log := newLogger(cfg.Log)
	logger.SetDefault(log)
	log.Info("Configuration loaded",
		logger.String("version", version),
		logger.String("store_backend", cfg.Store.Backend),
		logger.String("bot_token", config.Mask(cfg.Telegram.Token)),
		logger.Bool("webhook", cfg.Telegram.WebhookURL != ""),
		logger.Bool("redis", cfg.Relay.RedisURL != ""),
		logger.Bool("llm_fallback", cfg.Relay.LLMFallback))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Application stopped with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("Application stopped gracefully")
}

func newLogger(cfg config.LogConfig) *logger.Logger {
	level := logger.ParseLevel(cfg.Level)
	if cfg.Format == "console" {
		return logger.NewConsole(level)
	}
	return logger.New(level)
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	backend, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()
	store := rowstore.NewCached(backend, cfg.Store.CacheTTL)
	log.Info("Row store initialized", logger.String("backend", cfg.Store.Backend))

	relayStore, closeRelay, err := openRelayStore(ctx, cfg.Relay, log)
	if err != nil {
		return err
	}
	defer closeRelay()

	// Обработчик по умолчанию ссылается на диспетчер, который создается после бота
	var dispatcher *bot.Dispatcher
	telegramBot, err := tgbot.New(cfg.Telegram.Token, tgbot.WithDefaultHandler(
		func(ctx context.Context, b *tgbot.Bot, update *tgmodels.Update) {
			dispatcher.HandleUpdate(ctx, b, update)
		}))
	if err != nil {
		return err
	}

	var notifier notify.Notifier = notify.NewNoop(log)
	if cfg.Telegram.AdminChatID != 0 {
		notifier = notify.NewTelegramNotifier(telegramBot, cfg.Telegram.AdminChatID, log)
	}

	cat := catalog.New(store, cfg.Booking.RoomsTab, cfg.Booking.DefaultCurrency, log)
	engine := booking.New(store, cat, booking.NewRateTable(store, cfg.Booking.RatesTab), notifier, booking.Options{
		ReservationsTab:       cfg.Booking.ReservationsTab,
		ReservationsFallbacks: cfg.Booking.ReservationsFallbacks,
		OccupancyStates:       cfg.Booking.OccupancyStates,
		PriceSanityThreshold:  cfg.Booking.PriceSanityThreshold,
		DefaultCurrency:       cfg.Booking.DefaultCurrency,
	}, log)
	defer engine.WaitNotifications()

	bridge := relay.NewBridge(relayStore, notifier, relay.Options{
		WaitTimeout:  cfg.Relay.WaitTimeout,
		PollInterval: cfg.Relay.PollInterval,
		TTL:          cfg.Relay.TTL,
		PublicOrigin: cfg.Server.PublicWebOrigin,
	}, log)
	faq := relay.NewFAQMatcher(store, relay.DefaultFAQThreshold)
	bridge.Use(relay.ModeFAQ, faq)
	if cfg.Relay.LLMFallback && cfg.Relay.OpenAIKey != "" {
		bridge.Use(relay.ModeLLM, relay.NewOpenAIAnswerer(cfg.Relay.OpenAIKey, cfg.Relay.OpenAIModel, faq))
		log.Info("LLM fallback enabled", logger.String("model", cfg.Relay.OpenAIModel))
	}

	botService := service.NewService(telegramBot, engine, bridge, cfg.AdminIDs(), log)
	dispatcher = bot.NewDispatcher(botService)

	jobs, err := scheduler.New(time.Minute, log)
	if err != nil {
		return err
	}
	if err := jobs.Every("relay-sweep", cfg.Relay.SweepInterval, scheduler.SweepJob(bridge)); err != nil {
		return err
	}
	if cfg.Store.CacheTTL > 0 {
		err := jobs.Every("catalog-warm", cfg.Store.CacheTTL, func(ctx context.Context) error {
			_, err := cat.ListRooms(ctx)
			return err
		})
		if err != nil {
			return err
		}
	}
	if err := jobs.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := jobs.Stop(); err != nil {
			log.Warn("Scheduler stop failed", logger.Error(err))
		}
	}()

	deps := server.Deps{
		Bookings: engine,
		Rooms:    cat,
		Relay:    bridge,
		Health:   server.NewHealthChecker(store, version),
	}
	if cfg.Telegram.WebhookURL != "" {
		if err := setupWebhook(ctx, telegramBot, cfg.Telegram); err != nil {
			return err
		}
		deps.Dispatcher = dispatcher
		deps.Bot = telegramBot
		log.Info("Telegram webhook configured", logger.String("url", cfg.Telegram.WebhookURL))
	} else {
		if _, err := telegramBot.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{}); err != nil {
			log.Warn("Failed to delete webhook before polling", logger.Error(err))
		}
		go telegramBot.Start(ctx)
		log.Info("Telegram long polling started")
	}

	srv := server.New(cfg, deps, log)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openStore открывает табличное хранилище выбранного типа
func openStore(ctx context.Context, cfg config.StoreConfig) (rowstore.RowStore, func(), error) {
	if cfg.Backend == "sqlite" {
		db, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	}

	store, err := sheets.New(ctx, sheets.Options{
		SpreadsheetID:   cfg.SpreadsheetID,
		CredentialsFile: cfg.CredentialsFile,
		CredentialsJSON: cfg.CredentialsJSON,
		Timeout:         cfg.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, func() {}, nil
}

// openRelayStore выбирает Redis при заданном REDIS_URL, иначе локальный файл
func openRelayStore(ctx context.Context, cfg config.RelayConfig, log *logger.Logger) (relay.Store, func(), error) {
	if cfg.RedisURL != "" {
		rs, err := relay.NewRedisStoreFromURL(ctx, cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Relay state stored in Redis")
		return rs, func() { _ = rs.Close() }, nil
	}

	fs, err := relay.NewFileStore(cfg.StateFile)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Relay state stored in file", logger.String("path", cfg.StateFile))
	return fs, func() {}, nil
}

// setupWebhook регистрирует webhook с секретом для заголовка X-Telegram-Bot-Api-Secret-Token
func setupWebhook(ctx context.Context, b *tgbot.Bot, cfg config.TelegramConfig) error {
	_, err := b.SetWebhook(ctx, &tgbot.SetWebhookParams{
		URL:         cfg.WebhookURL,
		SecretToken: cfg.SecretToken,
		AllowedUpdates: []string{
			"message",
			"callback_query",
		},
	})
	return err
}
