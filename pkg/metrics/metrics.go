package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики сервиса бронирования
var (
	// Метрики доступности и бронирования
	AvailabilityChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotelbot_availability_checks_total",
			Help: "Количество проверок доступности номеров",
		},
		[]string{"result"}, // available, conflict, error
	)

	HoldsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotelbot_holds_total",
			Help: "Количество попыток создать предварительную бронь",
		},
		[]string{"result"}, // ok, conflict, unavailable
	)

	CheckoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotelbot_checkouts_total",
			Help: "Количество оформлений бронирования с сайта",
		},
		[]string{"result"},
	)

	TotalsSanitized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hotelbot_totals_sanitized_total",
			Help: "Сколько раз подозрительно низкая сумма была пересчитана",
		},
	)

	// Метрики релея вопросов
	RelayQuestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotelbot_relay_questions_total",
			Help: "Количество вопросов посетителей",
		},
		[]string{"mode"}, // faq, llm, human
	)

	RelayAnswers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotelbot_relay_answers_total",
			Help: "Количество ответов администратора",
		},
		[]string{"status"},
	)

	RelayWaits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotelbot_relay_waits_total",
			Help: "Результаты long-poll ожидания ответа",
		},
		[]string{"outcome"}, // answered, timeout, error
	)

	RelayPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hotelbot_relay_pending",
			Help: "Количество вопросов без ответа",
		},
	)

	// Метрики уведомлений
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotelbot_notifications_sent_total",
			Help: "Общее количество отправленных уведомлений",
		},
		[]string{"type", "status"},
	)

	// Метрики хранилища
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotelbot_store_operations_total",
			Help: "Операции с табличным хранилищем",
		},
		[]string{"operation", "status"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hotelbot_store_operation_duration_seconds",
			Help:    "Время операций с табличным хранилищем",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotelbot_cache_lookups_total",
			Help: "Обращения к кэшу чтений",
		},
		[]string{"result"}, // hit, miss
	)

	// Метрики производительности
	MemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hotelbot_memory_usage_bytes",
			Help: "Использование памяти в байтах",
		},
	)

	GoroutinesCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hotelbot_goroutines_count",
			Help: "Количество активных горутин",
		},
	)

	// Метрики ошибок
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotelbot_errors_total",
			Help: "Общее количество ошибок",
		},
		[]string{"component", "error_type"},
	)

	// Метрики HTTP сервера
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotelbot_http_requests_total",
			Help: "Общее количество HTTP запросов",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hotelbot_http_request_duration_seconds",
			Help:    "Время обработки HTTP запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Метрики Telegram
	BotUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotelbot_bot_updates_total",
			Help: "Обработанные обновления Telegram",
		},
		[]string{"kind"},
	)
)

// RecordAvailability записывает результат проверки доступности
func RecordAvailability(result string) {
	AvailabilityChecks.WithLabelValues(result).Inc()
}

// RecordHold записывает результат создания брони
func RecordHold(result string) {
	HoldsTotal.WithLabelValues(result).Inc()
}

// RecordCheckout записывает результат оформления
func RecordCheckout(result string) {
	CheckoutsTotal.WithLabelValues(result).Inc()
}

// RecordTotalSanitized отмечает пересчет суммы
func RecordTotalSanitized() {
	TotalsSanitized.Inc()
}

// RecordRelayQuestion записывает вопрос посетителя
func RecordRelayQuestion(mode string) {
	RelayQuestions.WithLabelValues(mode).Inc()
}

// RecordRelayAnswer записывает ответ администратора
func RecordRelayAnswer(status string) {
	RelayAnswers.WithLabelValues(status).Inc()
}

// RecordRelayWait записывает исход ожидания
func RecordRelayWait(outcome string) {
	RelayWaits.WithLabelValues(outcome).Inc()
}

// SetRelayPending устанавливает количество вопросов без ответа
func SetRelayPending(count float64) {
	RelayPending.Set(count)
}

// RecordNotification записывает метрику отправки уведомления
func RecordNotification(notificationType, status string) {
	NotificationsSent.WithLabelValues(notificationType, status).Inc()
}

// RecordStoreOperation записывает метрику операции с хранилищем
func RecordStoreOperation(operation, status string, seconds float64) {
	StoreOperations.WithLabelValues(operation, status).Inc()
	StoreOperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordCacheLookup записывает попадание или промах кэша
func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}

// RecordError записывает метрику ошибки
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordHTTPRequest записывает метрику HTTP запроса
func RecordHTTPRequest(method, endpoint, status string) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}

// RecordBotUpdate записывает обработанное обновление Telegram
func RecordBotUpdate(kind string) {
	BotUpdates.WithLabelValues(kind).Inc()
}
