// Package enrich derives company size, industry, profile URL and email
// validity for each lead from static lookup tables. Nothing here touches the
// network.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscore/internal/emailaddr"
	"github.com/sells-group/leadscore/internal/lookup"
	"github.com/sells-group/leadscore/internal/model"
)

// LinkedInBase is the prefix of every generated profile URL.
const LinkedInBase = "https://www.linkedin.com/in/"

type sizeEntry struct {
	phrase lookup.Phrase
	bucket string
}

// Enricher augments leads. It is safe for concurrent use.
type Enricher struct {
	workers  int
	sizes    map[string]string
	ordered  []sizeEntry
	suffixes map[string]string
	industry *lookup.CategoryMatcher
	emails   *emailaddr.Checker
}

// New builds an Enricher from the lookup tables.
func New(tables *lookup.Tables, workers int) *Enricher {
	if workers < 1 {
		workers = 1
	}
	e := &Enricher{
		workers:  workers,
		sizes:    make(map[string]string, len(tables.CompanySizes)),
		suffixes: tables.CompanySuffixes,
		industry: lookup.NewCategoryMatcher(tables.CompanyIndustryKeywords),
		emails:   emailaddr.FromTables(tables),
	}
	for _, k := range tables.CompanySizeKeys() {
		key := strings.Join(lookup.Words(k), " ")
		e.sizes[key] = tables.CompanySizes[k]
		e.ordered = append(e.ordered, sizeEntry{phrase: lookup.NewPhrase(k), bucket: tables.CompanySizes[k]})
	}
	return e
}

// EnrichAll enriches every lead in parallel, preserving order. Sub-step
// fallbacks are returned as warning issues; no lead is ever dropped.
func (e *Enricher) EnrichAll(ctx context.Context, leads []model.Lead) ([]model.Lead, []model.RowIssue, error) {
	out := make([]model.Lead, len(leads))
	warnings := make([][]string, len(leads))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range leads {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			out[i], warnings[i] = e.Enrich(leads[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, eris.Wrap(err, "enrich: leads")
	}

	var issues []model.RowIssue
	for i, ws := range warnings {
		for _, w := range ws {
			issues = append(issues, model.RowIssue{
				Stage:    model.StageEnrichment,
				Severity: model.SeverityWarning,
				RowIndex: out[i].RowIndex,
				Reason:   w,
			})
		}
	}
	return out, issues, nil
}

// Enrich returns an enriched copy of lead and any fallback warnings.
func (e *Enricher) Enrich(lead model.Lead) (model.Lead, []string) {
	var warnings []string
	step := func(name, fallback string, fn func() string) string {
		v, err := guard(fn)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s fell back to %q", name, fallback))
			zap.L().Warn("enrich: step failed",
				zap.String("step", name), zap.Int("lead_id", lead.ID), zap.Error(err))
			return fallback
		}
		return v
	}

	if lead.CompanySize == "" {
		lead.CompanySize = step("company_size", model.SizeUnknown, func() string { return e.CompanySize(lead.Company) })
	}
	if strings.TrimSpace(lead.Industry) == "" {
		lead.Industry = step("industry", model.IndustryUnspecified, func() string { return e.Industry(lead.Company) })
	}
	lead.LinkedInURL = step("linkedin_url", LinkedInBase+"unknown", func() string {
		url, ok := LinkedInURL(lead.Name)
		if !ok {
			warnings = append(warnings, "name yields no profile slug")
		}
		return url
	})
	lead.EmailValid = model.BoolPtr(e.emails.Valid(lead.Email))
	lead.Enriched = true
	return lead, warnings
}

// CompanySize looks company up in the size table. An exact match on the
// normalised name wins; otherwise the longest known organisation name
// contained in it as whole words. Misses return "unknown".
func (e *Enricher) CompanySize(company string) string {
	words := e.normalizeCompany(company)
	if len(words) == 0 {
		return model.SizeUnknown
	}
	if b, ok := e.sizes[strings.Join(words, " ")]; ok {
		return b
	}
	for _, entry := range e.ordered {
		if entry.phrase.In(words) {
			return entry.bucket
		}
	}
	return model.SizeUnknown
}

// Industry classifies a company name by the keywords it contains, so
// compound names like "TechCorp" match. Misses return "unspecified".
func (e *Enricher) Industry(company string) string {
	if cat, _, ok := e.industry.Match(company); ok {
		return cat
	}
	return model.IndustryUnspecified
}

// normalizeCompany lowercases, strips punctuation and drops trailing legal
// suffixes.
func (e *Enricher) normalizeCompany(company string) []string {
	words := strings.Fields(strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			return unicode.ToLower(r)
		case r == '&' || r == '.':
			return r
		}
		return ' '
	}, company))
	for len(words) > 1 {
		key := strings.TrimRight(words[len(words)-1], ".")
		if _, ok := e.suffixes[key]; !ok {
			break
		}
		words = words[:len(words)-1]
	}
	for i, w := range words {
		words[i] = strings.Trim(w, ".")
	}
	return lookup.Words(strings.Join(words, " "))
}

// LinkedInURL builds the deterministic profile URL for name. ok is false
// when the name has no usable characters and the "unknown" slug was used.
func LinkedInURL(name string) (url string, ok bool) {
	slug := strings.Join(strings.Fields(strings.ToLower(name)), "-")
	if slug == "" {
		return LinkedInBase + "unknown", false
	}
	return LinkedInBase + slug, true
}

func guard(fn func() string) (v string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("enrich: recovered: %v", r)
		}
	}()
	return fn(), nil
}
