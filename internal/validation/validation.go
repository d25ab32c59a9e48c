// Package validation проверяет пользовательский ввод с сайта и из бота.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/region23/hotelbot/pkg/errors"
)

// Ограничения длины пользовательского ввода в символах
const (
	MaxQuestionLength = 1000
	MaxAnswerLength   = 4000
	MaxTokenLength    = 64
)

var tokenRegex = regexp.MustCompile(`^tok_[\w.\-]+$`)

// IsToken сообщает, похожа ли строка на токен консультации
func IsToken(s string) bool {
	return len(s) <= MaxTokenLength && tokenRegex.MatchString(s)
}

// ValidateToken валидирует токен консультации
func ValidateToken(token string) error {
	if token == "" {
		return errors.ErrValidation.WithContext("токен не может быть пустым")
	}
	if !IsToken(token) {
		return errors.ErrValidation.WithContext(map[string]interface{}{
			"token":  token,
			"reason": "ожидается формат tok_<время>_<суффикс>",
		})
	}
	return nil
}

// ValidateQuestion валидирует вопрос посетителя
func ValidateQuestion(question string) error {
	return validateText("вопрос", question, MaxQuestionLength)
}

// ValidateAnswer валидирует ответ администратора
func ValidateAnswer(answer string) error {
	return validateText("ответ", answer, MaxAnswerLength)
}

func validateText(what, text string, limit int) error {
	if strings.TrimSpace(text) == "" {
		return errors.ErrValidation.WithContext(what + " не может быть пустым")
	}
	if n := utf8.RuneCountInString(text); n > limit {
		return errors.ErrValidation.WithContext(map[string]interface{}{
			"field":  what,
			"length": n,
			"limit":  limit,
		})
	}
	return nil
}
