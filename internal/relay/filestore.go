package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/region23/hotelbot/pkg/errors"
)

// FileStore хранит вопросы в JSON файле вида token -> запись.
// Файл перезаписывается целиком через временный файл и rename.
type FileStore struct {
	path    string
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewFileStore открывает файл состояния. Отсутствующий файл дает пустое состояние.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, apperrors.ErrStoreUnavailable.WithError(fmt.Errorf("read relay state: %w", err))
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, apperrors.ErrStoreUnavailable.WithError(fmt.Errorf("parse relay state %s: %w", path, err))
		}
	}
	for token, e := range s.entries {
		e.Token = token
		s.entries[token] = e
	}
	return s, nil
}

// Put сохраняет запись
func (s *FileStore) Put(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.Token] = entry
	return s.save()
}

// Get возвращает запись по токену
func (s *FileStore) Get(_ context.Context, token string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[token]
	return e, ok, nil
}

// SetAnswer сохраняет ответ на вопрос
func (s *FileStore) SetAnswer(_ context.Context, token, answer, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok {
		return apperrors.ErrTokenNotFound.WithContext(token)
	}
	e.Answer = answer
	e.Source = source
	s.entries[token] = e
	return s.save()
}

// Take выдает ответ и удаляет запись
func (s *FileStore) Take(_ context.Context, token string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok || !e.Answered() {
		return Entry{}, false, nil
	}
	delete(s.entries, token)
	if err := s.save(); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// Sweep удаляет старые записи
func (s *FileStore) Sweep(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := olderThan.UnixMilli()
	removed := 0
	for token, e := range s.entries {
		if e.AskedAt < cutoff {
			delete(s.entries, token)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.save()
}

// Pending возвращает количество вопросов без ответа
func (s *FileStore) Pending(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entries {
		if !e.Answered() {
			n++
		}
	}
	return n, nil
}

// save вызывается под блокировкой записи
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return apperrors.ErrStoreUnavailable.WithError(err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return apperrors.ErrStoreUnavailable.WithError(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.ErrStoreUnavailable.WithError(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.ErrStoreUnavailable.WithError(err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return apperrors.ErrStoreUnavailable.WithError(err)
	}
	return nil
}
