package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	apperrors "github.com/region23/hotelbot/pkg/errors"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Server   ServerConfig   `json:"server"`
	Store    StoreConfig    `json:"store"`
	Booking  BookingConfig  `json:"booking"`
	Relay    RelayConfig    `json:"relay"`
	Log      LogConfig      `json:"log"`
}

// TelegramConfig содержит настройки Telegram бота
type TelegramConfig struct {
	Token        string  `json:"-" validate:"required"`
	WebhookURL   string  `json:"webhook_url" validate:"omitempty,url"`
	SecretToken  string  `json:"-"`
	AdminChatID  int64   `json:"admin_chat_id"`
	AdminUserIDs []int64 `json:"admin_user_ids"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port            string        `json:"port" validate:"required,numeric"`
	ReadTimeout     time.Duration `json:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `json:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `json:"idle_timeout" validate:"gt=0"`
	PublicWebOrigin string        `json:"public_web_origin" validate:"omitempty,url"`
	CORSOrigin      string        `json:"cors_origin"`
	RateLimitRPS    float64       `json:"rate_limit_rps" validate:"gt=0"`
	RateLimitBurst  int           `json:"rate_limit_burst" validate:"gt=0"`
}

// StoreConfig содержит настройки табличного хранилища
type StoreConfig struct {
	Backend         string        `json:"backend" validate:"oneof=sheets sqlite"`
	SpreadsheetID   string        `json:"spreadsheet_id" validate:"required_if=Backend sheets"`
	CredentialsFile string        `json:"credentials_file"`
	CredentialsJSON string        `json:"-"`
	SQLitePath      string        `json:"sqlite_path" validate:"required_if=Backend sqlite"`
	CacheTTL        time.Duration `json:"cache_ttl" validate:"gte=0"`
	Timeout         time.Duration `json:"timeout" validate:"gt=0"`
}

// BookingConfig содержит настройки бронирования
type BookingConfig struct {
	ReservationsTab       string   `json:"reservations_tab" validate:"required"`
	ReservationsFallbacks []string `json:"reservations_fallbacks"`
	RoomsTab              string   `json:"rooms_tab"`
	RatesTab              string   `json:"rates_tab"`
	DefaultCurrency       string   `json:"default_currency" validate:"required,len=3,alpha"`
	OccupancyStates       []string `json:"occupancy_states" validate:"min=1"`
	PriceSanityThreshold  float64  `json:"price_sanity_threshold" validate:"gt=0,lte=1"`
}

// RelayConfig содержит настройки релея вопросов с сайта
type RelayConfig struct {
	StateFile     string        `json:"state_file" validate:"required"`
	RedisURL      string        `json:"-"`
	WaitTimeout   time.Duration `json:"wait_timeout" validate:"gt=0"`
	PollInterval  time.Duration `json:"poll_interval" validate:"gt=0"`
	TTL           time.Duration `json:"ttl" validate:"gt=0"`
	SweepInterval time.Duration `json:"sweep_interval" validate:"gt=0"`
	OpenAIKey     string        `json:"-"`
	OpenAIModel   string        `json:"openai_model"`
	LLMFallback   bool          `json:"llm_fallback"`
}

// LogConfig содержит настройки логирования
type LogConfig struct {
	Level  string `json:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" validate:"oneof=json console"`
}

// Load загружает конфигурацию из .env и переменных окружения
func Load() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	cfg := &Config{
		Telegram: TelegramConfig{
			Token:        getEnv("TELEGRAM_BOT_TOKEN", os.Getenv("TELEGRAM_TOKEN")),
			WebhookURL:   os.Getenv("TELEGRAM_WEBHOOK_URL"),
			SecretToken:  os.Getenv("TELEGRAM_SECRET_TOKEN"),
			AdminChatID:  getEnvAsInt64("TELEGRAM_ADMIN_CHAT_ID", 0),
			AdminUserIDs: getEnvAsInt64List("ADMIN_USER_IDS"),
		},
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 75*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			PublicWebOrigin: strings.TrimRight(os.Getenv("PUBLIC_WEB_ORIGIN"), "/"),
			CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
			RateLimitRPS:    getEnvAsFloat("RATE_LIMIT_RPS", 5),
			RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Store: StoreConfig{
			Backend:         strings.ToLower(getEnv("STORE_BACKEND", "sheets")),
			SpreadsheetID:   getEnv("SHEETS_SPREADSHEET_ID", os.Getenv("GOOGLE_SHEETS_ID")),
			CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			CredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),
			SQLitePath:      getEnv("SQLITE_PATH", "hotel.db"),
			CacheTTL:        getEnvAsDuration("CACHE_TTL", 30*time.Second),
			Timeout:         getEnvAsDuration("STORE_TIMEOUT", 10*time.Second),
		},
		Booking: BookingConfig{
			ReservationsTab:       getEnv("RESERVAS_TAB", "RESERVAS"),
			ReservationsFallbacks: getEnvAsList("RESERVAS_FALLBACK_TABS", []string{"RESERVAS PROCESADAS", "Reservas", "reservas"}),
			RoomsTab:              os.Getenv("ROOMS_TAB_NAME"),
			RatesTab:              getEnv("RATES_TAB", "TARIFAS"),
			DefaultCurrency:       strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
			OccupancyStates: getEnvAsList("OCCUPANCY_STATES", []string{
				"confirmada", "approved", "pagado", "pendiente", "pending", "pending_payment", "web",
			}),
			PriceSanityThreshold: getEnvAsFloat("PRICE_SANITY_THRESHOLD", 0.7),
		},
		Relay: RelayConfig{
			StateFile:     getEnv("RELAY_STATE_FILE", ".notif-state.json"),
			RedisURL:      os.Getenv("REDIS_URL"),
			WaitTimeout:   getEnvAsDuration("RELAY_WAIT_TIMEOUT", 55*time.Second),
			PollInterval:  getEnvAsDuration("RELAY_POLL_INTERVAL", time.Second),
			TTL:           getEnvAsDuration("RELAY_TTL", 24*time.Hour),
			SweepInterval: getEnvAsDuration("RELAY_SWEEP_INTERVAL", 10*time.Minute),
			OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			LLMFallback:   getEnvAsBool("RELAY_LLM_FALLBACK", false),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

var validate = validator.New()

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.ErrConfig.WithError(err)
	}

	if c.Store.Backend == "sheets" && c.Store.CredentialsFile == "" && c.Store.CredentialsJSON == "" {
		return apperrors.ErrConfig.WithError(
			fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS_JSON is required for sheets backend"))
	}
	if c.Relay.PollInterval > c.Relay.WaitTimeout {
		return apperrors.ErrConfig.WithError(fmt.Errorf("RELAY_POLL_INTERVAL must not exceed RELAY_WAIT_TIMEOUT"))
	}
	if c.Relay.LLMFallback && c.Relay.OpenAIKey == "" {
		return apperrors.ErrConfig.WithError(fmt.Errorf("OPENAI_API_KEY is required when RELAY_LLM_FALLBACK is enabled"))
	}

	return nil
}

// AdminIDs возвращает список администраторов бота
func (c *Config) AdminIDs() []int64 {
	if len(c.Telegram.AdminUserIDs) > 0 {
		return c.Telegram.AdminUserIDs
	}
	if c.Telegram.AdminChatID != 0 {
		return []int64{c.Telegram.AdminChatID}
	}
	return nil
}

// Mask скрывает секрет для логов
func Mask(secret string) string {
	if len(secret) <= 6 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:3] + strings.Repeat("*", len(secret)-6) + secret[len(secret)-3:]
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// getEnvAsInt получает переменную окружения как число
func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvAsDuration получает переменную окружения как duration
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvAsList разбирает список через запятую
func getEnvAsList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvAsInt64List(key string) []int64 {
	var out []int64
	for _, part := range getEnvAsList(key, nil) {
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}
