// Package relay передает вопросы посетителей сайта администратору и
// возвращает ответы через long-poll.
package relay

import (
	"context"
	"time"
)

// Entry описывает вопрос посетителя и ответ на него
type Entry struct {
	Token    string `json:"-"`
	AskedAt  int64  `json:"askedAt"`
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Answered сообщает, что на вопрос уже есть ответ
func (e Entry) Answered() bool {
	return e.Answer != ""
}

// Asked возвращает время вопроса
func (e Entry) Asked() time.Time {
	return time.UnixMilli(e.AskedAt)
}

// Store хранит вопросы по токену
type Store interface {
	// Put сохраняет запись, перезаписывая существующую
	Put(ctx context.Context, entry Entry) error

	// Get возвращает запись. false означает, что токен неизвестен.
	Get(ctx context.Context, token string) (Entry, bool, error)

	// SetAnswer сохраняет ответ. Для неизвестного токена возвращает ErrTokenNotFound.
	SetAnswer(ctx context.Context, token, answer, source string) error

	// Take удаляет и возвращает запись, только если на нее есть ответ.
	// Ответ выдается не более одного раза.
	Take(ctx context.Context, token string) (Entry, bool, error)

	// Sweep удаляет записи, заданные раньше olderThan, и возвращает их количество
	Sweep(ctx context.Context, olderThan time.Time) (int, error)

	// Pending возвращает количество вопросов без ответа
	Pending(ctx context.Context) (int, error)
}
