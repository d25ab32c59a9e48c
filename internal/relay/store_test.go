package relay

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/region23/hotelbot/pkg/errors"
)

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".notif-state.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, Entry{Token: "tok_1", AskedAt: 1000, Question: "¿Hay cochera?"}))
	require.NoError(t, s.SetAnswer(ctx, "tok_1", "Sí, gratuita", SourceAdmin))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "¿Hay cochera?", raw["tok_1"]["question"])
	assert.Equal(t, "Sí, gratuita", raw["tok_1"]["answer"])
	assert.Equal(t, float64(1000), raw["tok_1"]["askedAt"])

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	e, ok, err := reopened.Get(ctx, "tok_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok_1", e.Token)
	assert.Equal(t, "Sí, gratuita", e.Answer)
	assert.Equal(t, SourceAdmin, e.Source)
}

func TestFileStore_TakeOnlyAnsweredOnce(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, Entry{Token: "tok_1", AskedAt: 1, Question: "q"}))

	_, ok, err := s.Take(ctx, "tok_1")
	require.NoError(t, err)
	assert.False(t, ok, "unanswered entry is not consumed")

	require.NoError(t, s.SetAnswer(ctx, "tok_1", "a", SourceAdmin))
	e, ok, err := s.Take(ctx, "tok_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", e.Answer)

	_, ok, err = s.Take(ctx, "tok_1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_SetAnswerUnknownToken(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	err = s.SetAnswer(context.Background(), "tok_missing", "a", SourceAdmin)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrTokenNotFound))
}

func TestFileStore_SweepAndPending(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Put(ctx, Entry{Token: "old", AskedAt: now.Add(-48 * time.Hour).UnixMilli(), Question: "q"}))
	require.NoError(t, s.Put(ctx, Entry{Token: "new", AskedAt: now.Add(-time.Hour).UnixMilli(), Question: "q"}))
	require.NoError(t, s.Put(ctx, Entry{Token: "done", AskedAt: now.UnixMilli(), Question: "q", Answer: "a"}))

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)

	removed, err := s.Sweep(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok, _ := s.Get(ctx, "old")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "new")
	assert.True(t, ok)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrStoreUnavailable))
}

func mustJSON(t *testing.T, e Entry) string {
	t.Helper()
	data, err := json.Marshal(e)
	require.NoError(t, err)
	return string(data)
}

func TestRedisStore_PutAnswerTake(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := NewRedisStore(client, 24*time.Hour)

	asked := Entry{Token: "tok_1", AskedAt: 1000, Question: "¿Hay cochera?"}
	answered := asked
	answered.Answer = "Sí"
	answered.Source = SourceAdmin

	mock.ExpectSet("relay:tok_1", mustJSON(t, asked), 24*time.Hour).SetVal("OK")
	mock.ExpectGet("relay:tok_1").SetVal(mustJSON(t, asked))
	mock.ExpectSet("relay:tok_1", mustJSON(t, answered), redis.KeepTTL).SetVal("OK")
	mock.ExpectGet("relay:tok_1").SetVal(mustJSON(t, answered))
	mock.ExpectDel("relay:tok_1").SetVal(1)

	require.NoError(t, s.Put(ctx, asked))
	require.NoError(t, s.SetAnswer(ctx, "tok_1", "Sí", SourceAdmin))

	e, ok, err := s.Take(ctx, "tok_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Sí", e.Answer)
	assert.Equal(t, "tok_1", e.Token)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_TakeLosesRace(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := NewRedisStore(client, time.Hour)

	mock.ExpectGet("relay:tok_1").SetVal(mustJSON(t, Entry{AskedAt: 1, Question: "q", Answer: "a"}))
	mock.ExpectDel("relay:tok_1").SetVal(0)

	_, ok, err := s.Take(ctx, "tok_1")
	require.NoError(t, err)
	assert.False(t, ok, "another waiter deleted the key first")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_UnknownToken(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := NewRedisStore(client, time.Hour)

	mock.ExpectGet("relay:tok_x").RedisNil()
	mock.ExpectGet("relay:tok_x").RedisNil()

	err := s.SetAnswer(ctx, "tok_x", "a", SourceAdmin)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrTokenNotFound))

	_, ok, err := s.Take(ctx, "tok_x")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
