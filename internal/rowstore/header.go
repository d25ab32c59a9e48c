package rowstore

import (
	"regexp"

	"github.com/region23/hotelbot/internal/normalize"
)

// Row представляет строку таблицы как поле -> значение
type Row map[string]string

// FieldAliases сопоставляет логическое поле со списком возможных заголовков по приоритету
type FieldAliases map[string][]string

// HeaderIndex разрешает колонки по заголовкам, допуская разный регистр,
// диакритику и разделители. При дублях заголовка побеждает самая правая колонка.
type HeaderIndex struct {
	header []string
	keys   []string
	cols   map[string]int
}

// NewHeaderIndex строит индекс по строке заголовков
func NewHeaderIndex(header []string) *HeaderIndex {
	h := &HeaderIndex{
		header: header,
		keys:   make([]string, len(header)),
		cols:   make(map[string]int, len(header)),
	}
	for i, name := range header {
		key := normalize.Key(name)
		h.keys[i] = key
		if key != "" {
			h.cols[key] = i
		}
	}
	return h
}

// Width возвращает количество колонок заголовка
func (h *HeaderIndex) Width() int {
	return len(h.header)
}

// Header возвращает исходные заголовки
func (h *HeaderIndex) Header() []string {
	return h.header
}

// Key возвращает нормализованный заголовок колонки
func (h *HeaderIndex) Key(idx int) string {
	if idx < 0 || idx >= len(h.keys) {
		return ""
	}
	return h.keys[idx]
}

// Resolve возвращает колонку первого найденного псевдонима или -1
func (h *HeaderIndex) Resolve(aliases ...string) int {
	for _, alias := range aliases {
		if idx, ok := h.cols[normalize.Key(alias)]; ok {
			return idx
		}
	}
	return -1
}

// Match ищет колонку по регулярным выражениям в порядке приоритета.
// Выражения применяются к нормализованному заголовку. Если ничего не найдено, возвращает fallback.
func (h *HeaderIndex) Match(fallback int, patterns ...*regexp.Regexp) int {
	for _, re := range patterns {
		for i, key := range h.keys {
			if key != "" && re.MatchString(key) {
				return i
			}
		}
	}
	if fallback >= len(h.header) {
		return -1
	}
	return fallback
}

// Columns разрешает все поля таблицы псевдонимов
func (h *HeaderIndex) Columns(aliases FieldAliases) map[string]int {
	out := make(map[string]int, len(aliases))
	for field, names := range aliases {
		out[field] = h.Resolve(names...)
	}
	return out
}

// Record строит Row для строки данных. Неразрешенные поля отсутствуют в результате.
func (h *HeaderIndex) Record(row []string, aliases FieldAliases) Row {
	rec := make(Row, len(aliases))
	for field, idx := range h.Columns(aliases) {
		if idx >= 0 {
			rec[field] = Cell(row, idx)
		}
	}
	return rec
}

// Build раскладывает значения полей по позициям заголовка для записи
func (h *HeaderIndex) Build(values Row, aliases FieldAliases) []string {
	out := make([]string, len(h.header))
	for field, value := range values {
		if idx := h.Resolve(aliases[field]...); idx >= 0 {
			out[idx] = value
		}
	}
	return out
}
