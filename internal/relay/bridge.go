package relay

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/region23/hotelbot/internal/notify"
	apperrors "github.com/region23/hotelbot/pkg/errors"
	"github.com/region23/hotelbot/pkg/logger"
	"github.com/region23/hotelbot/pkg/metrics"
)

// Режимы ответа на вопрос
const (
	ModeFAQ   = "faq"
	ModeLLM   = "llm"
	ModeRelay = "relay"
)

// SourceAdmin помечает ответы администратора
const SourceAdmin = "admin"

// Options задает параметры моста
type Options struct {
	WaitTimeout  time.Duration
	PollInterval time.Duration
	TTL          time.Duration
	PublicOrigin string
}

// AskResult содержит токен вопроса и способ ответа
type AskResult struct {
	Token string `json:"token"`
	Mode  string `json:"mode,omitempty"`
}

type modeAnswerer struct {
	mode string
	Answerer
}

// Bridge связывает вопросы с сайта, автоответы и ответы администратора
type Bridge struct {
	store     Store
	notifier  notify.Notifier
	answerers []modeAnswerer
	opts      Options
	logger    *logger.Logger
	now       func() time.Time

	mu      sync.Mutex
	waiters map[string][]chan struct{}
}

// NewBridge создает мост. notifier может быть nil.
func NewBridge(store Store, notifier notify.Notifier, opts Options, log *logger.Logger) *Bridge {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 55 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if log == nil {
		log = logger.Default()
	}
	if notifier == nil {
		notifier = notify.NewNoop(log)
	}
	return &Bridge{
		store:    store,
		notifier: notifier,
		opts:     opts,
		logger:   log.WithComponent("relay"),
		now:      time.Now,
		waiters:  make(map[string][]chan struct{}),
	}
}

// Use добавляет автоответчик. Ответчики опрашиваются в порядке добавления.
func (b *Bridge) Use(mode string, a Answerer) {
	b.answerers = append(b.answerers, modeAnswerer{mode: mode, Answerer: a})
}

// NewToken генерирует токен вида tok_<unixms>_<random>
func NewToken(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return fmt.Sprintf("tok_%d_%s", now.UnixMilli(), random)
}

// Ask регистрирует вопрос. Если автоответчик нашел ответ, администратор
// не уведомляется, иначе ему уходит сообщение с токеном.
func (b *Bridge) Ask(ctx context.Context, question string) (AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return AskResult{}, apperrors.ErrValidation.WithContext("missing question")
	}

	now := b.now()
	entry := Entry{Token: NewToken(now), AskedAt: now.UnixMilli(), Question: question}

	for _, a := range b.answerers {
		answer, ok, err := a.Answer(ctx, question)
		if err != nil {
			b.logger.Warn("Auto answer failed, trying next",
				logger.String("mode", a.mode), logger.Error(err))
			continue
		}
		if !ok {
			continue
		}

		entry.Answer = answer
		entry.Source = a.mode
		if err := b.store.Put(ctx, entry); err != nil {
			return AskResult{}, err
		}
		metrics.RecordRelayQuestion(a.mode)
		b.logger.Info("Question answered automatically",
			logger.String("token", entry.Token), logger.String("mode", a.mode))
		return AskResult{Token: entry.Token, Mode: a.mode}, nil
	}

	if err := b.store.Put(ctx, entry); err != nil {
		return AskResult{}, err
	}
	metrics.RecordRelayQuestion(ModeRelay)

	msg := notify.ConsultaMessage(entry.Token, question, b.opts.PublicOrigin)
	if err := b.notifier.NotifyAdmin(ctx, msg); err != nil {
		b.logger.Warn("Failed to notify admin about question",
			logger.String("token", entry.Token), logger.Error(err))
	}

	b.logger.Info("Question relayed to admin", logger.String("token", entry.Token))
	return AskResult{Token: entry.Token}, nil
}

// Answer сохраняет ответ администратора и будит ожидающих
func (b *Bridge) Answer(ctx context.Context, token, text string) error {
	token = strings.TrimSpace(token)
	text = strings.TrimSpace(text)
	if token == "" || text == "" {
		return apperrors.ErrValidation.WithContext("token and answer are required")
	}

	if err := b.store.SetAnswer(ctx, token, text, SourceAdmin); err != nil {
		if apperrors.HasCode(err, apperrors.ErrTokenNotFound) {
			metrics.RecordRelayAnswer("not_found")
		} else {
			metrics.RecordRelayAnswer("error")
		}
		return err
	}

	metrics.RecordRelayAnswer("ok")
	b.wake(token)
	b.logger.Info("Question answered by admin", logger.String("token", token))
	return nil
}

// Wait ждет ответ не дольше WaitTimeout и выдает его один раз.
// ok=false без ошибки означает, что ответа пока нет или токен неизвестен.
func (b *Bridge) Wait(ctx context.Context, token string) (string, bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false, apperrors.ErrValidation.WithContext("missing token")
	}

	timeout := time.NewTimer(b.opts.WaitTimeout)
	defer timeout.Stop()
	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()

	for {
		wake, cancel := b.subscribe(token)

		entry, ok, err := b.store.Take(ctx, token)
		if err != nil {
			cancel()
			metrics.RecordRelayWait("error")
			return "", false, err
		}
		if ok {
			cancel()
			metrics.RecordRelayWait("answered")
			return entry.Answer, true, nil
		}
		if _, exists, err := b.store.Get(ctx, token); err == nil && !exists {
			cancel()
			metrics.RecordRelayWait("unknown")
			return "", false, nil
		}

		select {
		case <-wake:
		case <-ticker.C:
		case <-timeout.C:
			cancel()
			metrics.RecordRelayWait("timeout")
			return "", false, nil
		case <-ctx.Done():
			cancel()
			metrics.RecordRelayWait("canceled")
			return "", false, ctx.Err()
		}
		cancel()
	}
}

// Sweep удаляет вопросы старше TTL и обновляет метрику ожидающих
func (b *Bridge) Sweep(ctx context.Context) (int, error) {
	removed, err := b.store.Sweep(ctx, b.now().Add(-b.opts.TTL))
	if err != nil {
		return 0, err
	}
	if pending, err := b.store.Pending(ctx); err == nil {
		metrics.SetRelayPending(float64(pending))
	}
	if removed > 0 {
		b.logger.Info("Expired questions removed", logger.Int("count", removed))
	}
	return removed, nil
}

func (b *Bridge) subscribe(token string) (<-chan struct{}, func()) {
	ch := make(chan struct{})

	b.mu.Lock()
	b.waiters[token] = append(b.waiters[token], ch)
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.waiters[token]
		for i, c := range list {
			if c == ch {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(b.waiters, token)
		} else {
			b.waiters[token] = list
		}
	}
}

func (b *Bridge) wake(token string) {
	b.mu.Lock()
	list := b.waiters[token]
	delete(b.waiters, token)
	b.mu.Unlock()

	for _, ch := range list {
		close(ch)
	}
}
