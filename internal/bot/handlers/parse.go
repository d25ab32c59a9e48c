package handlers

import (
	"regexp"
	"strings"

	"github.com/region23/hotelbot/internal/validation"
)

var (
	statusTextRe  = regexp.MustCompile(`(?i)^(\S+)\s+(approved|aprobada|confirmada|confirmado|pagado|paid|pending|pendiente|canceled|cancelled|cancelada|cancelado)$`)
	promptTokenRe = regexp.MustCompile(`Token:\s*(tok_[\w.\-]+)`)
)

// ParseCommand разбирает "/cmd@bot аргументы" на имя команды в нижнем регистре и аргументы.
// Для текста без "/" возвращает пустую команду.
func ParseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	head, args, _ := strings.Cut(text, " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(strings.TrimPrefix(head, "/")), strings.TrimSpace(args)
}

// ParseStatusText разбирает свободный текст "<ID> <estado>"
func ParseStatusText(text string) (id, status string, ok bool) {
	m := statusTextRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.ToLower(m[2]), true
}

// ParseStatusArgs разбирает аргументы /estado <ID> <estado>
func ParseStatusArgs(args string) (id, status string, ok bool) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", "", false
	}
	return fields[0], strings.ToLower(fields[1]), true
}

// ParseResponderArgs разбирает аргументы /responder <token> <текст>
func ParseResponderArgs(args string) (token, answer string, ok bool) {
	token, answer, _ = strings.Cut(strings.TrimSpace(args), " ")
	answer = strings.TrimSpace(answer)
	if !validation.IsToken(token) || answer == "" {
		return "", "", false
	}
	return token, answer, true
}

// TokenFromPrompt извлекает токен из текста сообщения-запроса ответа
func TokenFromPrompt(text string) string {
	if m := promptTokenRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// ParseStatusCallback разбирает callback "status:<id>:<estado>"
func ParseStatusCallback(data string) (id, status string, ok bool) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || parts[0] != "status" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// ParseReplyCallback разбирает callback "reply:<token>"
func ParseReplyCallback(data string) (string, bool) {
	token, found := strings.CutPrefix(data, "reply:")
	if !found || !validation.IsToken(token) {
		return "", false
	}
	return token, true
}
