// Package lookup holds the static reference tables used by cleaning,
// enrichment and scoring. Tables are plain data: an embedded YAML document
// parsed once per process, optionally replaced by a file at startup.
package lookup

import (
	_ "embed"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var embeddedTables []byte

// Category maps a canonical category name to the keywords that select it.
type Category struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// TitleRule awards Points to a job title containing any of Keywords.
type TitleRule struct {
	Points   float64  `yaml:"points"`
	Keywords []string `yaml:"keywords"`
}

// Tables is the full set of reference data.
type Tables struct {
	Honorifics              []string           `yaml:"honorifics"`
	CompanySuffixes         map[string]string  `yaml:"company_suffixes"`
	JobTitleAbbreviations   map[string]string  `yaml:"job_title_abbreviations"`
	JobTitleAcronyms        []string           `yaml:"job_title_acronyms"`
	States                  map[string]string  `yaml:"states"`
	Countries               map[string]string  `yaml:"countries"`
	IndustryCategories      []Category         `yaml:"industry_categories"`
	CompanyIndustryKeywords []Category         `yaml:"company_industry_keywords"`
	CompanySizes            map[string]string  `yaml:"company_sizes"`
	JobTitleRules           []TitleRule        `yaml:"job_title_rules"`
	CompanySizePoints       map[string]float64 `yaml:"company_size_points"`
	PersonalEmailDomains    []string           `yaml:"personal_email_domains"`
	TypoEmailDomains        []string           `yaml:"typo_email_domains"`
	FakeEmailDomains        []string           `yaml:"fake_email_domains"`
	PlaceholderValues       []string           `yaml:"placeholder_values"`
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
	defaultErr    error
)

// Default returns the embedded tables. The document is parsed once.
func Default() (*Tables, error) {
	defaultOnce.Do(func() {
		defaultTables, defaultErr = Parse(embeddedTables)
	})
	return defaultTables, defaultErr
}

// MustDefault is Default for callers that cannot recover from a broken build.
func MustDefault() *Tables {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// Load reads tables from path. An empty path returns the embedded tables.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "lookup: read tables %s", path)
	}
	return Parse(data)
}

// Parse decodes a tables document. Keys are lower-cased so lookups can be
// done on normalised input.
func Parse(data []byte) (*Tables, error) {
	var wrapper struct {
		Tables Tables `yaml:"tables"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "lookup: parse tables")
	}

	t := &wrapper.Tables
	t.CompanySuffixes = lowerKeys(t.CompanySuffixes)
	t.JobTitleAbbreviations = lowerKeys(t.JobTitleAbbreviations)
	t.States = lowerKeys(t.States)
	t.Countries = lowerKeys(t.Countries)
	t.CompanySizes = lowerKeys(t.CompanySizes)
	t.Honorifics = lowerAll(t.Honorifics)
	t.JobTitleAcronyms = lowerAll(t.JobTitleAcronyms)
	t.PersonalEmailDomains = lowerAll(t.PersonalEmailDomains)
	t.TypoEmailDomains = lowerAll(t.TypoEmailDomains)
	t.FakeEmailDomains = lowerAll(t.FakeEmailDomains)
	t.PlaceholderValues = lowerAll(t.PlaceholderValues)

	if len(t.JobTitleRules) == 0 {
		return nil, eris.New("lookup: job_title_rules must not be empty")
	}
	sort.SliceStable(t.JobTitleRules, func(i, j int) bool {
		return t.JobTitleRules[i].Points > t.JobTitleRules[j].Points
	})
	return t, nil
}

// CompanySizeKeys returns the company-size table keys, longest first, so
// multi-word organisations win over shorter names they contain.
func (t *Tables) CompanySizeKeys() []string {
	keys := make([]string, 0, len(t.CompanySizes))
	for k := range t.CompanySizes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Set builds a membership set from a list of lower-cased values.
func Set(values []string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}
