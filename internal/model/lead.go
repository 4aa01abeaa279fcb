package model

import "errors"

// Column names recognised in an uploaded dataset.
const (
	ColumnName        = "name"
	ColumnEmail       = "email"
	ColumnCompany     = "company"
	ColumnJobTitle    = "job_title"
	ColumnLocation    = "location"
	ColumnIndustry    = "industry"
	ColumnCompanySize = "company_size"
)

// RequiredColumns lists the columns every dataset must declare.
var RequiredColumns = []string{ColumnName, ColumnEmail, ColumnCompany, ColumnJobTitle}

// OptionalColumns lists the columns the pipeline reads when present.
var OptionalColumns = []string{ColumnLocation, ColumnIndustry, ColumnCompanySize}

// ErrEmptyDataset is returned when the uploaded dataset has no columns or no rows.
var ErrEmptyDataset = errors.New("dataset is empty: no data rows found")

// Company size buckets.
const (
	SizeEnterprise = "5000+"
	SizeLarge      = "1000-5000"
	SizeMid        = "200-1000"
	SizeSmall      = "50-200"
	SizeMicro      = "<50"
	SizeUnknown    = "unknown"
)

// IndustryUnspecified is assigned when no industry can be inferred.
const IndustryUnspecified = "unspecified"

// RawRow is one decoded row of the uploaded dataset.
type RawRow struct {
	Index  int               `json:"index"`
	Fields map[string]string `json:"fields"`
}

// Get returns the value stored under column, or "" when absent.
func (r RawRow) Get(column string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[column]
}

// Dataset is the caller-decoded tabular input handed to the pipeline.
type Dataset struct {
	Columns []string `json:"columns"`
	Rows    []RawRow `json:"rows"`
}

// Record is a validated row with the recognised columns lifted into typed
// fields. Columns outside RequiredColumns and OptionalColumns are dropped.
type Record struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Company     string `json:"company"`
	JobTitle    string `json:"job_title"`
	Location    string `json:"location,omitempty"`
	Industry    string `json:"industry,omitempty"`
	CompanySize string `json:"company_size,omitempty"`
}

// RecordFromRow lifts the recognised columns of a raw row into a Record.
func RecordFromRow(r RawRow) Record {
	return Record{
		Index:       r.Index,
		Name:        r.Get(ColumnName),
		Email:       r.Get(ColumnEmail),
		Company:     r.Get(ColumnCompany),
		JobTitle:    r.Get(ColumnJobTitle),
		Location:    r.Get(ColumnLocation),
		Industry:    r.Get(ColumnIndustry),
		CompanySize: r.Get(ColumnCompanySize),
	}
}

// Lead is the canonical typed contact created by feature extraction.
type Lead struct {
	ID          int    `json:"id"`
	RowIndex    int    `json:"-"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Company     string `json:"company"`
	JobTitle    string `json:"job_title"`
	Location    string `json:"location,omitempty"`
	Industry    string `json:"industry,omitempty"`
	CompanySize string `json:"company_size,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
	EmailValid  *bool  `json:"email_valid,omitempty"`
	Enriched    bool   `json:"enriched"`
}

// ScoreFactor is one contribution to a lead score.
type ScoreFactor struct {
	Points float64 `json:"points"`
	Reason string  `json:"reason"`
}

// Score factor names.
const (
	FactorJobTitle    = "job_title"
	FactorCompanySize = "company_size"
	FactorIndustry    = "industry"
	FactorEmail       = "email"
)

// ScoreBreakdown explains how a score was computed.
type ScoreBreakdown struct {
	Factors    map[string]ScoreFactor `json:"factors"`
	RawTotal   float64                `json:"raw_total"`
	TotalScore float64                `json:"total_score"`
}

// ScoredLead is the terminal, externally visible entity.
type ScoredLead struct {
	Lead
	Score          float64        `json:"score"`
	ScoreBreakdown ScoreBreakdown `json:"score_breakdown"`
}

// EmailValidity reports the tri-state email flag as "true", "false" or "".
func (l Lead) EmailValidity() string {
	switch {
	case l.EmailValid == nil:
		return ""
	case *l.EmailValid:
		return "true"
	default:
		return "false"
	}
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }
