// Package clean normalises validated records field by field and removes
// duplicate identities. Every cleaner is a fixed point: cleaning already
// clean text returns it unchanged.
package clean

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/emailaddr"
	"github.com/sells-group/leadscore/internal/lookup"
	"github.com/sells-group/leadscore/internal/model"
)

const (
	leadingJunk  = ".,;:!?*#~|-_\"'`"
	trailingJunk = ",;:!?*#~|-_\"'`"
	emailJunk    = ".,;:<>\"'()[]"
)

var minorWords = map[string]struct{}{
	"of": {}, "and": {}, "the": {}, "for": {}, "in": {}, "on": {}, "at": {}, "de": {},
}

// Cleaner holds the compiled lookup tables used by the field cleaners.
type Cleaner struct {
	workers       int
	maxLengths    map[string]int
	honorifics    map[string]struct{}
	suffixes      map[string]string
	abbreviations map[string]string
	acronyms      map[string]struct{}
	states        map[string]string
	stateAbbrevs  map[string]string
	countries     map[string]string
	industries    *lookup.CategoryMatcher
}

// New builds a Cleaner.
func New(cfg config.PipelineConfig, tables *lookup.Tables) *Cleaner {
	abbrevs := make(map[string]string, len(tables.States))
	for _, abbr := range tables.States {
		abbrevs[strings.ToLower(abbr)] = abbr
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Cleaner{
		workers:       workers,
		maxLengths:    cfg.MaxFieldLengths,
		honorifics:    lookup.Set(tables.Honorifics),
		suffixes:      tables.CompanySuffixes,
		abbreviations: tables.JobTitleAbbreviations,
		acronyms:      lookup.Set(tables.JobTitleAcronyms),
		states:        tables.States,
		stateAbbrevs:  abbrevs,
		countries:     tables.Countries,
		industries:    lookup.NewCategoryMatcher(tables.IndustryCategories),
	}
}

// Clean normalises every record and drops later records whose email repeats
// an earlier one. Output order follows input order.
func (c *Cleaner) Clean(ctx context.Context, records []model.Record) ([]model.Record, []model.RowIssue, error) {
	cleaned := make([]model.Record, len(records))
	truncated := make([][]string, len(records))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := range records {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			cleaned[i], truncated[i] = c.Record(records[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, eris.Wrap(err, "clean: records")
	}

	var issues []model.RowIssue
	for i, fields := range truncated {
		for _, f := range fields {
			issues = append(issues, model.RowIssue{
				Stage:    model.StageCleaning,
				Severity: model.SeverityWarning,
				RowIndex: cleaned[i].Index,
				Reason:   fmt.Sprintf("%s truncated to %d characters", f, c.maxLengths[f]),
			})
		}
	}

	out := make([]model.Record, 0, len(cleaned))
	seen := make(map[string]struct{}, len(cleaned))
	for _, r := range cleaned {
		key := emailaddr.Normalize(r.Email)
		if _, dup := seen[key]; dup {
			issues = append(issues, model.RowIssue{
				Stage:    model.StageCleaning,
				Severity: model.SeverityError,
				RowIndex: r.Index,
				Reason:   "duplicate email",
			})
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}

	if removed := len(cleaned) - len(out); removed > 0 {
		zap.L().Warn("clean: removed duplicate rows",
			zap.String("stage", string(model.StageCleaning)),
			zap.Int("removed", removed),
		)
	}
	return out, issues, nil
}

// Record cleans one record and reports which fields were truncated.
func (c *Cleaner) Record(r model.Record) (model.Record, []string) {
	var truncated []string
	apply := func(field, value string, fn func(string) string) string {
		v := safely(value, fn)
		limit := c.maxLengths[field]
		if limit <= 0 || utf8.RuneCountInString(v) <= limit {
			return v
		}
		truncated = append(truncated, field)
		for range 3 {
			v = safely(truncate(v, limit), fn)
			if utf8.RuneCountInString(v) <= limit {
				break
			}
		}
		return v
	}

	out := model.Record{Index: r.Index}
	out.Name = apply(model.ColumnName, r.Name, c.Name)
	out.Email = apply(model.ColumnEmail, r.Email, Email)
	out.Company = apply(model.ColumnCompany, r.Company, c.Company)
	out.JobTitle = apply(model.ColumnJobTitle, r.JobTitle, c.JobTitle)
	out.Location = apply(model.ColumnLocation, r.Location, c.Location)
	out.Industry = apply(model.ColumnIndustry, r.Industry, c.Industry)
	out.CompanySize = Text(r.CompanySize)
	return out, truncated
}

// safely runs fn, passing value through unchanged if fn panics.
func safely(value string, fn func(string) string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("clean: field passed through", zap.Any("panic", r))
			out = value
		}
	}()
	return fn(value)
}

// Text removes control characters, collapses whitespace and strips stray
// punctuation from both ends.
func Text(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case unicode.IsControl(r) || r == utf8.RuneError:
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	for {
		next := strings.TrimSpace(strings.TrimRight(strings.TrimLeft(s, leadingJunk), trailingJunk))
		if next == s {
			return s
		}
		s = next
	}
}

// Name strips leading honorifics and title-cases the rest.
func (c *Cleaner) Name(s string) string {
	words := strings.Fields(Text(s))
	for len(words) > 1 {
		if _, ok := c.honorifics[strings.TrimRight(strings.ToLower(words[0]), ".")]; !ok {
			break
		}
		words = words[1:]
	}
	caser := cases.Title(language.English)
	for i, w := range words {
		words[i] = nameWord(caser, w, i)
	}
	return strings.Join(words, " ")
}

// nameWord recases each hyphenated part of a name on its own, so "McKay"
// keeps its casing while "SMITH" becomes "Smith", and capitalises after an
// elided prefix as in O'Neil or D'Angelo.
func nameWord(caser cases.Caser, w string, pos int) string {
	parts := strings.Split(w, "-")
	for j, part := range parts {
		recased := recase(caser, part, pos+j)
		if recased != part || strings.ToLower(part) == part {
			recased = afterElision(recased)
		}
		parts[j] = recased
	}
	return strings.Join(parts, "-")
}

// afterElision upper-cases the letter following a one-letter prefix and an
// apostrophe.
func afterElision(w string) string {
	r := []rune(w)
	if len(r) > 2 && unicode.IsLetter(r[0]) && (r[1] == '\'' || r[1] == '’') {
		r[2] = unicode.ToUpper(r[2])
	}
	return string(r)
}

// Email lowercases the address, removes embedded whitespace and collapses
// doubled @ and . characters.
func Email(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	s = strings.TrimPrefix(s, "mailto:")
	for strings.Contains(s, "@@") || strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "@@", "@")
		s = strings.ReplaceAll(s, "..", ".")
	}
	return strings.Trim(s, emailJunk)
}

// Company canonicalises a trailing legal suffix and title-cases words that
// carry no deliberate casing. Short all-caps words are kept as acronyms.
func (c *Cleaner) Company(s string) string {
	words := strings.Fields(Text(s))
	if len(words) == 0 {
		return ""
	}
	caser := cases.Title(language.English)
	for i, w := range words {
		if i == len(words)-1 && i > 0 {
			key := strings.TrimRight(strings.ToLower(w), ".")
			if canon, ok := c.suffixes[key]; ok {
				words[i] = canon
				continue
			}
		}
		if isAcronym(w) {
			continue
		}
		words[i] = recase(caser, w, i)
	}
	return strings.Join(words, " ")
}

// JobTitle expands abbreviations and upper-cases executive acronyms.
func (c *Cleaner) JobTitle(s string) string {
	words := strings.Fields(Text(s))
	caser := cases.Title(language.English)
	for i, w := range words {
		core := strings.TrimRight(w, ",;:")
		tail := w[len(core):]
		words[i] = c.titleToken(caser, core, i) + tail
	}
	return strings.Join(words, " ")
}

func (c *Cleaner) titleToken(caser cases.Caser, token string, pos int) string {
	key := strings.TrimRight(strings.ToLower(token), ".")
	if canon, ok := c.abbreviations[key]; ok {
		return canon
	}
	if _, ok := c.acronyms[key]; ok {
		return strings.ToUpper(key)
	}
	if i := strings.IndexAny(token, "/-&"); i > 0 && i < len(token)-1 {
		return c.titleToken(caser, token[:i], pos) + token[i:i+1] + c.titleToken(caser, token[i+1:], 1)
	}
	return recase(caser, token, pos)
}

// Location normalises each comma-separated part: US states become their
// two-letter code and known countries their canonical name. A full state
// name leading a multi-part location is a city ("New York, NY") and is kept.
func (c *Cleaner) Location(s string) string {
	caser := cases.Title(language.English)
	var raw []string
	for _, p := range strings.Split(Text(s), ",") {
		if p = strings.TrimSpace(p); p != "" {
			raw = append(raw, p)
		}
	}
	parts := make([]string, 0, len(raw))
	for i, p := range raw {
		key := strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(p, ".", ""))), " ")
		switch {
		case c.states[key] != "" && (i > 0 || len(raw) == 1):
			p = c.states[key]
		case c.stateAbbrevs[key] != "":
			p = c.stateAbbrevs[key]
		case c.countries[key] != "":
			p = c.countries[key]
		default:
			words := strings.Fields(p)
			for j, w := range words {
				if !isAcronym(w) {
					words[j] = recase(caser, w, j)
				}
			}
			p = strings.Join(words, " ")
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}

// Industry folds free text onto a canonical category by whole keywords, so
// "Hospitality" is not read as "hospital". Unmatched text is kept.
func (c *Cleaner) Industry(s string) string {
	s = Text(s)
	if cat, _, ok := c.industries.MatchWords(s); ok {
		return cat
	}
	return s
}

// recase title-cases words written entirely in one case and keeps words
// with deliberate mixed casing. Minor words stay lowercase after the first.
func recase(caser cases.Caser, w string, pos int) string {
	lower := strings.ToLower(w)
	if pos > 0 && w == lower {
		if _, ok := minorWords[lower]; ok {
			return w
		}
	}
	if w != lower && w != strings.ToUpper(w) {
		return w
	}
	return caser.String(w)
}

// isAcronym reports whether w is an all-caps token of 2 to 5 letters,
// allowing digits, & and dots (IBM, AT&T, 3M).
func isAcronym(w string) bool {
	letters := 0
	for _, r := range w {
		switch {
		case unicode.IsUpper(r):
			letters++
		case unicode.IsDigit(r) || r == '&' || r == '.':
		default:
			return false
		}
	}
	return letters >= 1 && utf8.RuneCountInString(w) >= 2 && letters <= 5
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:limit]))
}
