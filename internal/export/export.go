// Package export writes scored leads as CSV, XLSX or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadscore/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	case "":
		return FormatCSV, nil
	}
	return "", eris.Errorf("export: unknown format %q (csv, xlsx, json)", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/csv"
	}
}

// Row is the flat export shape of a scored lead.
type Row struct {
	ID          int    `csv:"id"`
	Name        string `csv:"name"`
	Email       string `csv:"email"`
	Company     string `csv:"company"`
	JobTitle    string `csv:"job_title"`
	Industry    string `csv:"industry"`
	Location    string `csv:"location"`
	CompanySize string `csv:"company_size"`
	LinkedInURL string `csv:"linkedin_url"`
	EmailValid  string `csv:"email_valid"`
	Score       string `csv:"score"`
}

// Columns lists the export header in order.
var Columns = []string{
	"id", "name", "email", "company", "job_title", "industry",
	"location", "company_size", "linkedin_url", "email_valid", "score",
}

// Rows flattens leads in order.
func Rows(leads []model.ScoredLead) []Row {
	out := make([]Row, len(leads))
	for i, sl := range leads {
		out[i] = Row{
			ID:          sl.ID,
			Name:        sl.Name,
			Email:       sl.Email,
			Company:     sl.Company,
			JobTitle:    sl.JobTitle,
			Industry:    sl.Industry,
			Location:    sl.Location,
			CompanySize: sl.CompanySize,
			LinkedInURL: sl.LinkedInURL,
			EmailValid:  sl.EmailValidity(),
			Score:       FormatScore(sl.Score),
		}
	}
	return out
}

// Write encodes leads to w in format f.
func Write(w io.Writer, f Format, leads []model.ScoredLead) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, leads)
	case FormatJSON:
		return WriteJSON(w, leads)
	default:
		return WriteCSV(w, leads)
	}
}

// WriteCSV writes a header row followed by one row per lead.
func WriteCSV(w io.Writer, leads []model.ScoredLead) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(Row{}); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range Rows(leads) {
		if err := enc.Encode(r); err != nil {
			return eris.Wrapf(err, "export: write csv row %d", r.ID)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

// WriteXLSX writes a single "Leads" sheet.
func WriteXLSX(w io.Writer, leads []model.ScoredLead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range Columns {
		header.AddCell().SetString(c)
	}

	for i, r := range Rows(leads) {
		row := sheet.AddRow()
		row.AddCell().SetInt(r.ID)
		for _, v := range []string{r.Name, r.Email, r.Company, r.JobTitle, r.Industry, r.Location, r.CompanySize, r.LinkedInURL, r.EmailValid} {
			row.AddCell().SetString(v)
		}
		row.AddCell().SetFloat(leads[i].Score)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

// WriteJSON writes the full scored leads, breakdown included, as an
// indented JSON array.
func WriteJSON(w io.Writer, leads []model.ScoredLead) error {
	if leads == nil {
		leads = []model.ScoredLead{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(leads); err != nil {
		return eris.Wrap(err, "export: write json")
	}
	return nil
}

// FileName is the download name for an export of run in format f.
func FileName(runID string, f Format) string {
	if runID == "" {
		return "scored_leads." + string(f)
	}
	if len(runID) > 8 {
		runID = runID[:8]
	}
	return "scored_leads_" + runID + "." + string(f)
}

// FormatScore renders a score without trailing zeros.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
