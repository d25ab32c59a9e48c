package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/region23/hotelbot/internal/normalize"
)

// maxBodyBytes ограничивает размер JSON тела запроса
const maxBodyBytes = 1 << 20

// envelope является JSON ответом API
type envelope map[string]any

func errorBody(code string) envelope {
	return envelope{"ok": false, "error": code}
}

// writeJSON сериализует ответ; ошибка записи уже не может быть передана клиенту
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// readBody читает тело запроса для разбора через gjson.
// Пустое или невалидное тело считается пустым объектом.
func readBody(r *http.Request) gjson.Result {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || !gjson.ValidBytes(raw) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(raw)
}

// field возвращает строковое значение первого найденного поля
func field(body gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := body.Get(p); v.Exists() && v.Type != gjson.Null {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

// intField принимает и числа, и строки вида "3"
func intField(body gjson.Result, paths ...string) int {
	n, _ := normalize.ParseInt(field(body, paths...))
	return n
}

// moneyField принимает числа и строки вида "1.200,50"
func moneyField(body gjson.Result, paths ...string) float64 {
	v, _ := normalize.ParseMoney(field(body, paths...))
	return v
}
