package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	isoLayout = "2006-01-02"
	dmyLayout = "02/01/2006"
)

var (
	ymdRe = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})$`)
	dmyRe = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})$`)

	// Форматы, которые пробуем последними
	generalLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.000Z",
		"02 Jan 2006",
		"2 Jan 2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 January 2006",
	}
)

// ParseDate разбирает дату в одном из поддерживаемых форматов.
// Результат нормализован на полдень UTC. false означает "дата неизвестна".
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if m := ymdRe.FindStringSubmatch(s); m != nil {
		return build(m[1], m[2], m[3])
	}
	if m := dmyRe.FindStringSubmatch(s); m != nil {
		return build(m[3], m[2], m[1])
	}

	for _, layout := range generalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return noonUTC(t.Year(), t.Month(), t.Day()), true
		}
	}

	return time.Time{}, false
}

func build(ys, ms, ds string) (time.Time, bool) {
	y, _ := strconv.Atoi(ys)
	m, _ := strconv.Atoi(ms)
	d, _ := strconv.Atoi(ds)
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := noonUTC(y, time.Month(m), d)
	// 31/02 и подобные нормализуются time.Date в другой месяц
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}

func noonUTC(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// FormatISO форматирует дату как YYYY-MM-DD
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// FormatDMY форматирует дату как DD/MM/YYYY
func FormatDMY(t time.Time) string {
	return t.UTC().Format(dmyLayout)
}

// ToISO возвращает ISO представление или пустую строку
func ToISO(raw string) string {
	t, ok := ParseDate(raw)
	if !ok {
		return ""
	}
	return FormatISO(t)
}

// ISOToDMY переводит ISO дату в формат для сообщений
func ISOToDMY(iso string) string {
	t, ok := ParseDate(iso)
	if !ok {
		return iso
	}
	return FormatDMY(t)
}

// AddDays прибавляет n дней. Для некорректной даты возвращает пустую строку.
func AddDays(iso string, n int) string {
	t, ok := ParseDate(iso)
	if !ok {
		return ""
	}
	return FormatISO(t.AddDate(0, 0, n))
}

// NightsBetween считает ночи между двумя датами, 0 если даты некорректны или b <= a
func NightsBetween(a, b string) int {
	ta, okA := ParseDate(a)
	tb, okB := ParseDate(b)
	if !okA || !okB || !tb.After(ta) {
		return 0
	}
	n := math.Round(tb.Sub(ta).Hours() / 24)
	if n < 0 {
		return 0
	}
	return int(n)
}

// Clock абстрагирует текущее время
type Clock func() time.Time

// SystemClock возвращает текущее время
func SystemClock() time.Time {
	return time.Now()
}

// Today возвращает сегодняшнюю дату в ISO
func Today(clock Clock) string {
	if clock == nil {
		clock = SystemClock
	}
	now := clock().UTC()
	return FormatISO(noonUTC(now.Year(), now.Month(), now.Day()))
}

// Overlaps проверяет пересечение полуоткрытых интервалов [aStart, aEnd) и [bStart, bEnd)
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Days возвращает n последовательных ISO дат начиная с from
func Days(from string, n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if d := AddDays(from, i); d != "" {
			out = append(out, d)
		}
	}
	return out
}
