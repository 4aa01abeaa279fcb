package lookup

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ShortKeyword is the longest keyword, in runes, that only matches as a
// whole word. Tokens like "it", "ai" and "cto" occur inside too many
// unrelated words ("hospitality", "director") to match as substrings.
const ShortKeyword = 3

// Words splits s into lower-cased runs of letters and digits.
func Words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Text is input prepared once for keyword matching.
type Text struct {
	words  []string
	joined string
}

// NewText lower-cases s and splits it into words.
func NewText(s string) Text {
	words := Words(s)
	return Text{words: words, joined: strings.Join(words, " ")}
}

// Empty reports whether the text has no words.
func (t Text) Empty() bool { return len(t.words) == 0 }

// Phrase is a keyword pre-split into words.
type Phrase struct {
	Text   string
	words  []string
	joined string
}

// NewPhrase prepares keyword for matching.
func NewPhrase(keyword string) Phrase {
	words := Words(keyword)
	return Phrase{Text: keyword, words: words, joined: strings.Join(words, " ")}
}

// In reports whether the phrase occurs as a contiguous run of whole words.
func (p Phrase) In(words []string) bool {
	n := len(p.words)
	if n == 0 || n > len(words) {
		return false
	}
	for i := 0; i+n <= len(words); i++ {
		match := true
		for j := range n {
			if words[i+j] != p.words[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Within reports whether the phrase is contained in t. Keywords longer than
// ShortKeyword match anywhere, so "director" finds "Directors" and "tech"
// finds "TechCorp"; shorter ones must be whole words.
func (p Phrase) Within(t Text) bool {
	if p.joined == "" {
		return false
	}
	if utf8.RuneCountInString(p.joined) <= ShortKeyword {
		return p.In(t.words)
	}
	return strings.Contains(t.joined, p.joined)
}

// CategoryMatcher resolves text to the first category whose keywords occur in it.
type CategoryMatcher struct {
	categories []string
	phrases    [][]Phrase
}

// NewCategoryMatcher compiles categories in table order.
func NewCategoryMatcher(categories []Category) *CategoryMatcher {
	m := &CategoryMatcher{
		categories: make([]string, len(categories)),
		phrases:    make([][]Phrase, len(categories)),
	}
	for i, c := range categories {
		m.categories[i] = c.Category
		for _, kw := range c.Keywords {
			m.phrases[i] = append(m.phrases[i], NewPhrase(kw))
		}
	}
	return m
}

// Match returns the first category with a keyword contained in text, or
// ok=false.
func (m *CategoryMatcher) Match(text string) (category, keyword string, ok bool) {
	t := NewText(text)
	return m.first(t, func(p Phrase) bool { return p.Within(t) })
}

// MatchWords is Match restricted to whole-word occurrences.
func (m *CategoryMatcher) MatchWords(text string) (category, keyword string, ok bool) {
	t := NewText(text)
	return m.first(t, func(p Phrase) bool { return p.In(t.words) })
}

func (m *CategoryMatcher) first(t Text, hit func(Phrase) bool) (string, string, bool) {
	if t.Empty() {
		return "", "", false
	}
	for i, phrases := range m.phrases {
		for _, p := range phrases {
			if hit(p) {
				return m.categories[i], p.Text, true
			}
		}
	}
	return "", "", false
}
