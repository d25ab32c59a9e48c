package normalize

import (
	"math"
	"strconv"
	"strings"
)

// ParseMoney разбирает денежную строку ("USD 1.234,50", "$ 300", "95,5").
// Запятая считается десятичным разделителем; если есть и точка и запятая,
// точки считаются разделителями тысяч.
func ParseMoney(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseInt разбирает целое число, допуская денежный формат
func ParseInt(raw string) (int, bool) {
	f, ok := ParseMoney(raw)
	if !ok {
		return 0, false
	}
	return int(math.Round(f)), true
}

// PositiveFinite проверяет, что значение можно использовать как цену
func PositiveFinite(f float64) bool {
	return f > 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// FormatAmount форматирует сумму без лишних нулей
func FormatAmount(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
