package normalize

import (
	"strings"
	"unicode"

	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
)

// Key приводит строку к ключу сравнения: без диакритики, в нижнем регистре,
// разделители `_`/`-` и повторные пробелы сжаты в один пробел.
func Key(s string) string {
	s = strings.ToLower(unidecode.Unidecode(s))
	s = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Tokens разбивает текст на нормализованные слова длиннее minLen
func Tokens(s string, minLen int) []string {
	fields := strings.FieldsFunc(Key(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > minLen {
			out = append(out, f)
		}
	}
	return out
}

// Slug строит идентификатор из названия
func Slug(s string) string {
	return slug.Make(s)
}
