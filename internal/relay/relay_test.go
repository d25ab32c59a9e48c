package relay

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/region23/hotelbot/internal/notify"
	"github.com/region23/hotelbot/internal/rowstore/sqlite"
	apperrors "github.com/region23/hotelbot/pkg/errors"
	"github.com/region23/hotelbot/pkg/logger"
)

func seededStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Seed(ctx, "CONFIG", [][]string{
		{"Clave", "Valor", "Palabras clave"},
		{"wifi", "Sí, wifi gratis en todo el hotel", "internet, wi-fi"},
		{"tiene pileta", "Sí, pileta climatizada", ""},
		{"check in hora", "Desde las 14 hs", ""},
	}))
	require.NoError(t, db.Seed(ctx, "FAQ", [][]string{
		{"Pregunta", "Respuesta", "Keywords"},
		{"¿Aceptan mascotas?", "Sí, mascotas pequeñas", "perro; gato"},
		{"¿Cuál es el horario del desayuno buffet?", "De 7 a 10 hs", ""},
	}))
	return db
}

func TestFAQMatcher(t *testing.T) {
	m := NewFAQMatcher(seededStore(t), 0)
	ctx := context.Background()

	tests := []struct {
		name     string
		question string
		want     string
		ok       bool
	}{
		{"config key", "¿Tienen WIFI?", "Sí, wifi gratis en todo el hotel", true},
		{"config keyword", "hay internet en las habitaciones", "Sí, wifi gratis en todo el hotel", true},
		{"shortcut", "¿La piscina está abierta?", "Sí, pileta climatizada", true},
		{"check in shortcut", "a qué hora es el check-in", "Desde las 14 hs", true},
		{"faq keyword", "puedo ir con mi perro", "Sí, mascotas pequeñas", true},
		{"faq similarity", "horario desayuno buffet", "De 7 a 10 hs", true},
		{"no match", "¿Dónde queda la estación de tren?", "", false},
		{"key inside word", "wifiless", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := m.Answer(ctx, tt.question)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFAQMatcher_NoTabs(t *testing.T) {
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, ok, err := NewFAQMatcher(db, 0).Answer(context.Background(), "¿wifi?")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard([]string{"a", "b"}, []string{"b", "a", "a"}))
	assert.Equal(t, 0.0, Jaccard(nil, nil))
	assert.InDelta(t, 1.0/3, Jaccard([]string{"a", "b"}, []string{"b", "c"}), 1e-9)
}

type fakeChat struct {
	reply string
	err   error
	req   openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.reply}},
	}}, nil
}

func TestLLMAnswerer(t *testing.T) {
	ctx := context.Background()
	chat := &fakeChat{reply: "  El estacionamiento es gratuito.  "}
	a := NewLLMAnswerer(chat, "", NewFAQMatcher(seededStore(t), 0))

	answer, ok, err := a.Answer(ctx, "¿Tienen estacionamiento?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "El estacionamiento es gratuito.", answer)
	assert.Equal(t, "gpt-4o-mini", chat.req.Model)
	require.Len(t, chat.req.Messages, 2)
	assert.Contains(t, chat.req.Messages[0].Content, "¿Aceptan mascotas?")

	chat.reply = "NO_SE"
	_, ok, err = a.Answer(ctx, "¿Tienen helipuerto?")
	require.NoError(t, err)
	assert.False(t, ok)

	chat.err = errors.New("rate limited")
	_, ok, err = a.Answer(ctx, "¿Tienen helipuerto?")
	assert.Error(t, err)
	assert.False(t, ok)
}

type captureNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (n *captureNotifier) NotifyAdmin(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type staticAnswerer struct {
	answer string
	err    error
}

func (s staticAnswerer) Answer(context.Context, string) (string, bool, error) {
	return s.answer, s.answer != "", s.err
}

func newBridge(t *testing.T, opts Options) (*Bridge, *captureNotifier) {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	n := &captureNotifier{}
	return NewBridge(store, n, opts, logger.Nop()), n
}

func TestBridge_AutoAnswerSkipsAdmin(t *testing.T) {
	ctx := context.Background()
	b, n := newBridge(t, Options{WaitTimeout: time.Second, PollInterval: 10 * time.Millisecond})
	b.Use(ModeFAQ, staticAnswerer{err: errors.New("sheet down")})
	b.Use(ModeLLM, staticAnswerer{answer: "Check-out a las 10"})

	res, err := b.Ask(ctx, "¿A qué hora es el check-out?")
	require.NoError(t, err)
	assert.Equal(t, ModeLLM, res.Mode)
	assert.Regexp(t, `^tok_\d+_[0-9a-f]{10}$`, res.Token)
	assert.Equal(t, 0, n.count())

	answer, ok, err := b.Wait(ctx, res.Token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Check-out a las 10", answer)
}

func TestBridge_RelayToAdminAndWake(t *testing.T) {
	ctx := context.Background()
	// длинный интервал опроса: ответ должен прийти через сигнал
	b, n := newBridge(t, Options{WaitTimeout: 5 * time.Second, PollInterval: time.Hour, PublicOrigin: "https://hotel.example"})

	res, err := b.Ask(ctx, "¿Puedo llegar a las 3 am?")
	require.NoError(t, err)
	assert.Empty(t, res.Mode)
	require.Equal(t, 1, n.count())
	msg := n.messages[0]
	assert.Contains(t, msg.Text, res.Token)
	require.Len(t, msg.Buttons, 1)
	require.Len(t, msg.Buttons[0], 2)
	assert.Equal(t, "reply:"+res.Token, msg.Buttons[0][0].CallbackData)
	assert.Equal(t, "https://hotel.example/relay?token="+res.Token, msg.Buttons[0][1].URL)

	type result struct {
		answer string
		ok     bool
		err    error
	}
	done := make(chan result, 1)
	go func() {
		answer, ok, err := b.Wait(ctx, res.Token)
		done <- result{answer, ok, err}
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, b.Answer(ctx, res.Token, "Sí, hay recepción 24 hs"))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.True(t, r.ok)
		assert.Equal(t, "Sí, hay recepción 24 hs", r.answer)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not woken by the answer")
	}

	// ответ выдается один раз
	_, ok, err := b.Wait(ctx, res.Token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBridge_WaitTimeout(t *testing.T) {
	b, _ := newBridge(t, Options{WaitTimeout: 50 * time.Millisecond, PollInterval: 10 * time.Millisecond})

	res, err := b.Ask(context.Background(), "¿Hay cuna?")
	require.NoError(t, err)

	start := time.Now()
	_, ok, err := b.Wait(context.Background(), res.Token)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestBridge_WaitUnknownTokenReturnsAtOnce(t *testing.T) {
	b, _ := newBridge(t, Options{WaitTimeout: time.Minute})

	_, ok, err := b.Wait(context.Background(), "tok_0_missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBridge_WaitCanceled(t *testing.T) {
	b, _ := newBridge(t, Options{WaitTimeout: time.Minute, PollInterval: time.Hour})
	res, err := b.Ask(context.Background(), "¿Hay cuna?")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, ok, err := b.Wait(ctx, res.Token)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBridge_ConcurrentWaitersGetAnswerOnce(t *testing.T) {
	ctx := context.Background()
	b, _ := newBridge(t, Options{WaitTimeout: 2 * time.Second, PollInterval: 5 * time.Millisecond})
	res, err := b.Ask(ctx, "¿Hay cuna?")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	delivered := 0
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, err := b.Wait(ctx, res.Token); err == nil && ok {
				mu.Lock()
				delivered++
				mu.Unlock()
			}
		}()
	}
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, b.Answer(ctx, res.Token, "Sí"))
	wg.Wait()

	assert.Equal(t, 1, delivered)
}

func TestBridge_Validation(t *testing.T) {
	ctx := context.Background()
	b, _ := newBridge(t, Options{})

	_, err := b.Ask(ctx, "   ")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrValidation))

	err = b.Answer(ctx, "tok_0_missing", "hola")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrTokenNotFound))

	err = b.Answer(ctx, "", "hola")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrValidation))
}

func TestBridge_Sweep(t *testing.T) {
	ctx := context.Background()
	b, _ := newBridge(t, Options{TTL: time.Hour})

	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now.Add(-2 * time.Hour) }
	_, err := b.Ask(ctx, "viejo")
	require.NoError(t, err)

	b.now = func() time.Time { return now }
	fresh, err := b.Ask(ctx, "nuevo")
	require.NoError(t, err)

	removed, err := b.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok, err := b.store.Get(ctx, fresh.Token)
	require.NoError(t, err)
	assert.True(t, ok)
}
