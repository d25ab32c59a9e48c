package relay

import (
	"context"
	"regexp"
	"strings"

	"github.com/region23/hotelbot/internal/normalize"
	"github.com/region23/hotelbot/internal/rowstore"
)

// Answerer пытается ответить на вопрос автоматически.
// ok=false означает, что ответа нет и вопрос уходит администратору.
type Answerer interface {
	Answer(ctx context.Context, question string) (answer string, ok bool, err error)
}

// Вкладки с настройками и частыми вопросами в порядке проверки
var (
	ConfigTabs = []string{"CONFIG", "Config", "config", "Ajustes", "Parámetros", "Parametros"}
	FAQTabs    = []string{"FAQ", "FAQs", "faq", "Preguntas", "F.A.Q."}
)

// DefaultFAQThreshold минимальное сходство вопроса с FAQ по Жаккару
const DefaultFAQThreshold = 0.35

var (
	configKeyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^clave$`), regexp.MustCompile(`^key$`),
		regexp.MustCompile(`^nombre$`), regexp.MustCompile(`^titulo$`),
	}
	configValuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^valor$`), regexp.MustCompile(`^value$`), regexp.MustCompile(`^respuesta$`),
	}
	keywordPatterns = []*regexp.Regexp{
		regexp.MustCompile(`palabras.*clave`), regexp.MustCompile(`^keywords?$`),
		regexp.MustCompile(`^alias$`), regexp.MustCompile(`^sinonimos$`),
	}
	questionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^pregun(ta)?$`), regexp.MustCompile(`^question$`),
		regexp.MustCompile(`^q$`), regexp.MustCompile(`^titulo$`),
	}
	answerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^respuesta$`), regexp.MustCompile(`^answer$`), regexp.MustCompile(`^a$`),
	}
)

// shortcuts сопоставляет слова вопроса с типичными ключами настроек
var shortcuts = []struct {
	trigger string
	keys    []string
}{
	{"pileta", []string{"tiene pileta", "pileta", "piscina"}},
	{"piscina", []string{"tiene pileta", "pileta", "piscina"}},
	{"check in", []string{"check in hora", "check in", "ingreso", "hora de check in"}},
	{"check out", []string{"check out hora", "check out", "salida", "hora de check out"}},
	{"mascotas", []string{"pet friendly", "mascotas", "aceptan mascotas"}},
	{"pet friendly", []string{"pet friendly", "mascotas", "aceptan mascotas"}},
	{"desayuno", []string{"desayuno", "incluye desayuno", "desayuno incluido"}},
}

type configPair struct {
	key   string
	value string
}

type faqItem struct {
	question string
	answer   string
	keywords []string
}

// FAQMatcher отвечает на вопросы по вкладкам настроек и FAQ
type FAQMatcher struct {
	store     rowstore.RowStore
	threshold float64
}

// NewFAQMatcher создает матчер. threshold <= 0 заменяется DefaultFAQThreshold.
func NewFAQMatcher(store rowstore.RowStore, threshold float64) *FAQMatcher {
	if threshold <= 0 {
		threshold = DefaultFAQThreshold
	}
	return &FAQMatcher{store: store, threshold: threshold}
}

// Answer ищет ответ в порядке: ключ настройки, ключевые слова настроек,
// ключевые слова FAQ, сходство с вопросами FAQ.
func (m *FAQMatcher) Answer(ctx context.Context, question string) (string, bool, error) {
	norm := normalize.Key(question)
	if norm == "" {
		return "", false, nil
	}

	pairs, err := m.readConfig(ctx)
	if err != nil {
		return "", false, err
	}
	if answer, ok := matchConfig(norm, pairs); ok {
		return answer, true, nil
	}

	items, err := m.readFAQ(ctx)
	if err != nil {
		return "", false, err
	}
	if answer, ok := matchFAQ(norm, items, m.threshold); ok {
		return answer, true, nil
	}
	return "", false, nil
}

// Context собирает FAQ в текст для подсказки языковой модели
func (m *FAQMatcher) Context(ctx context.Context, limit int) string {
	items, err := m.readFAQ(ctx)
	if err != nil || len(items) == 0 {
		return ""
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	var b strings.Builder
	for _, it := range items {
		b.WriteString("P: " + it.question + "\nR: " + it.answer + "\n")
	}
	return b.String()
}

func (m *FAQMatcher) readConfig(ctx context.Context) ([]configPair, error) {
	_, rows, err := rowstore.FirstWithData(ctx, m.store, ConfigTabs, "A:Z")
	if err != nil || len(rows) < 2 {
		return nil, err
	}

	h := rowstore.NewHeaderIndex(rows[0])
	keyCol := h.Match(-1, configKeyPatterns...)
	valCol := h.Match(-1, configValuePatterns...)
	kwCol := h.Match(-1, keywordPatterns...)
	if keyCol < 0 {
		return nil, nil
	}

	var pairs []configPair
	for _, row := range rows[1:] {
		key := normalize.Key(rowstore.Cell(row, keyCol))
		if key == "" {
			continue
		}
		value := strings.TrimSpace(rowstore.Cell(row, valCol))
		pairs = append(pairs, configPair{key: key, value: value})
		for _, kw := range splitKeywords(rowstore.Cell(row, kwCol)) {
			pairs = append(pairs, configPair{key: kw, value: value})
		}
	}
	return pairs, nil
}

func (m *FAQMatcher) readFAQ(ctx context.Context) ([]faqItem, error) {
	_, rows, err := rowstore.FirstWithData(ctx, m.store, FAQTabs, "A:Z")
	if err != nil || len(rows) < 2 {
		return nil, err
	}

	h := rowstore.NewHeaderIndex(rows[0])
	qCol := h.Match(-1, questionPatterns...)
	aCol := h.Match(-1, answerPatterns...)
	kwCol := h.Match(-1, keywordPatterns...)
	if qCol < 0 || aCol < 0 {
		return nil, nil
	}

	var items []faqItem
	for _, row := range rows[1:] {
		q := strings.TrimSpace(rowstore.Cell(row, qCol))
		a := strings.TrimSpace(rowstore.Cell(row, aCol))
		if q == "" || a == "" {
			continue
		}
		items = append(items, faqItem{question: q, answer: a, keywords: splitKeywords(rowstore.Cell(row, kwCol))})
	}
	return items, nil
}

func matchConfig(norm string, pairs []configPair) (string, bool) {
	if len(pairs) == 0 {
		return "", false
	}
	for _, p := range pairs {
		if p.value != "" && containsWord(norm, p.key) {
			return p.value, true
		}
	}

	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if _, seen := values[p.key]; !seen {
			values[p.key] = p.value
		}
	}
	for _, sc := range shortcuts {
		if !containsWord(norm, sc.trigger) {
			continue
		}
		for _, key := range sc.keys {
			if v := values[key]; v != "" {
				return v, true
			}
		}
	}
	return "", false
}

func matchFAQ(norm string, items []faqItem, threshold float64) (string, bool) {
	for _, it := range items {
		for _, kw := range it.keywords {
			if containsWord(norm, kw) {
				return it.answer, true
			}
		}
	}

	tokens := normalize.Tokens(norm, 2)
	best, bestScore := "", 0.0
	for _, it := range items {
		if score := Jaccard(tokens, normalize.Tokens(it.question, 2)); score > bestScore {
			best, bestScore = it.answer, score
		}
	}
	if best != "" && bestScore >= threshold {
		return best, true
	}
	return "", false
}

// Jaccard считает сходство двух наборов слов
func Jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, w := range a {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, w := range b {
		setB[w] = struct{}{}
	}

	inter := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// containsWord ищет фразу phrase в text по границам слов
func containsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

func splitKeywords(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		if kw := normalize.Key(part); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
