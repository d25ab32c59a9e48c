package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/region23/hotelbot/pkg/errors"
)

const keyPrefix = "relay:"

// RedisStore хранит вопросы в Redis под ключами relay:<token> с TTL.
// Истечение записей выполняет сам Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore создает хранилище поверх готового клиента
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisStoreFromURL подключается к Redis по URL вида redis://host:port/db
func NewRedisStoreFromURL(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.ErrConfig.WithError(err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, apperrors.ErrStoreUnavailable.WithError(err)
	}
	return NewRedisStore(client, ttl), nil
}

func redisKey(token string) string {
	return keyPrefix + token
}

// Put сохраняет запись с TTL
func (s *RedisStore) Put(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return apperrors.ErrStoreUnavailable.WithError(err)
	}
	if err := s.client.Set(ctx, redisKey(entry.Token), string(data), s.ttl).Err(); err != nil {
		return apperrors.ErrStoreUnavailable.WithError(err)
	}
	return nil
}

// Get возвращает запись по токену
func (s *RedisStore) Get(ctx context.Context, token string) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, redisKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, apperrors.ErrStoreUnavailable.WithError(err)
	}

	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, false, apperrors.ErrStoreUnavailable.WithError(err)
	}
	e.Token = token
	return e, true, nil
}

// SetAnswer сохраняет ответ, не меняя оставшийся TTL
func (s *RedisStore) SetAnswer(ctx context.Context, token, answer, source string) error {
	e, ok, err := s.Get(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrTokenNotFound.WithContext(token)
	}
	e.Answer = answer
	e.Source = source

	data, err := json.Marshal(e)
	if err != nil {
		return apperrors.ErrStoreUnavailable.WithError(err)
	}
	if err := s.client.Set(ctx, redisKey(token), string(data), redis.KeepTTL).Err(); err != nil {
		return apperrors.ErrStoreUnavailable.WithError(err)
	}
	return nil
}

// Take выдает ответ один раз: побеждает тот, чей Del удалил ключ
func (s *RedisStore) Take(ctx context.Context, token string) (Entry, bool, error) {
	e, ok, err := s.Get(ctx, token)
	if err != nil || !ok || !e.Answered() {
		return Entry{}, false, err
	}

	n, err := s.client.Del(ctx, redisKey(token)).Result()
	if err != nil {
		return Entry{}, false, apperrors.ErrStoreUnavailable.WithError(err)
	}
	if n == 0 {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Sweep ничего не делает: записи истекают по TTL
func (s *RedisStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

// Pending считает вопросы без ответа
func (s *RedisStore) Pending(ctx context.Context) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var e Entry
		if json.Unmarshal([]byte(raw), &e) == nil && !e.Answered() {
			n++
		}
	}
	if err := iter.Err(); err != nil {
		return n, apperrors.ErrStoreUnavailable.WithError(err)
	}
	return n, nil
}

// Close закрывает соединение
func (s *RedisStore) Close() error {
	return s.client.Close()
}
