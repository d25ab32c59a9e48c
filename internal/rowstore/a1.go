package rowstore

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var a1Re = regexp.MustCompile(`^([A-Za-z]*)(\d*)(?::([A-Za-z]*)(\d*))?$`)

// Range описывает разобранный диапазон A1.
// Колонки с 0, строки с 1. EndCol = -1 и EndRow = 0 означают "без границы".
type Range struct {
	StartCol int
	EndCol   int
	StartRow int
	EndRow   int
}

// ParseA1 разбирает диапазоны вида "A:Z", "A2:Q", "B3:D10", "M5" и пустую строку
func ParseA1(a1 string) (Range, error) {
	s := strings.TrimSpace(a1)
	if i := strings.LastIndex(s, "!"); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return Range{StartCol: 0, EndCol: -1, StartRow: 1, EndRow: 0}, nil
	}

	m := a1Re.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[2] == "") {
		return Range{}, fmt.Errorf("invalid A1 range %q", a1)
	}

	r := Range{StartCol: 0, EndCol: -1, StartRow: 1, EndRow: 0}
	if m[1] != "" {
		r.StartCol = ColumnIndex(m[1])
	}
	if m[2] != "" {
		r.StartRow, _ = strconv.Atoi(m[2])
		if r.StartRow < 1 {
			return Range{}, fmt.Errorf("invalid A1 row in %q", a1)
		}
	}

	single := !strings.Contains(s, ":")
	switch {
	case single && m[1] != "" && m[2] != "":
		r.EndCol, r.EndRow = r.StartCol, r.StartRow
	case single && m[1] != "":
		r.EndCol = r.StartCol
	case single:
		r.EndRow = r.StartRow
	default:
		if m[3] != "" {
			r.EndCol = ColumnIndex(m[3])
		}
		if m[4] != "" {
			r.EndRow, _ = strconv.Atoi(m[4])
		}
	}

	if r.EndCol >= 0 && r.EndCol < r.StartCol {
		return Range{}, fmt.Errorf("invalid A1 columns in %q", a1)
	}
	if r.EndRow > 0 && r.EndRow < r.StartRow {
		return Range{}, fmt.Errorf("invalid A1 rows in %q", a1)
	}
	return r, nil
}

// ColumnIndex переводит буквы колонки в индекс с 0 (A=0, Z=25, AA=26)
func ColumnIndex(letters string) int {
	idx := 0
	for _, r := range strings.ToUpper(letters) {
		idx = idx*26 + int(r-'A'+1)
	}
	return idx - 1
}

// ColumnLetter переводит индекс с 0 в буквы колонки
func ColumnLetter(idx int) string {
	if idx < 0 {
		return ""
	}
	var out []byte
	for n := idx + 1; n > 0; n = (n - 1) / 26 {
		out = append([]byte{byte('A' + (n-1)%26)}, out...)
	}
	return string(out)
}

// CellRef возвращает адрес ячейки, row с 1
func CellRef(col, row int) string {
	return ColumnLetter(col) + strconv.Itoa(row)
}
