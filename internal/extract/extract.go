// Package extract turns cleaned records into typed leads.
package extract

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/model"
)

var sizeLabels = map[string]string{
	"5000+":     model.SizeEnterprise,
	"1000-5000": model.SizeLarge,
	"200-1000":  model.SizeMid,
	"50-200":    model.SizeSmall,
	"<50":       model.SizeMicro,
	"1000+":     model.SizeLarge,
	"10-50":     model.SizeMicro,
}

// Extract builds one Lead per record that carries every required field.
// Ids are assigned sequentially from 1 over the surviving records. Rows
// that cannot be built are reported as error issues and skipped.
func Extract(records []model.Record) ([]model.Lead, []model.RowIssue) {
	leads := make([]model.Lead, 0, len(records))
	var issues []model.RowIssue

	for _, r := range records {
		if missing := missingFields(r); len(missing) > 0 {
			issues = append(issues, model.RowIssue{
				Stage:    model.StageFeatureExtraction,
				Severity: model.SeverityError,
				RowIndex: r.Index,
				Reason:   "missing " + strings.Join(missing, ", "),
			})
			continue
		}

		lead := model.Lead{
			ID:       len(leads) + 1,
			RowIndex: r.Index,
			Name:     strings.TrimSpace(r.Name),
			Email:    strings.ToLower(strings.TrimSpace(r.Email)),
			Company:  strings.TrimSpace(r.Company),
			JobTitle: strings.TrimSpace(r.JobTitle),
			Location: strings.TrimSpace(r.Location),
			Industry: strings.TrimSpace(r.Industry),
		}

		if raw := strings.TrimSpace(r.CompanySize); raw != "" {
			size, ok := ParseCompanySize(raw)
			if ok {
				lead.CompanySize = size
			} else {
				issues = append(issues, model.RowIssue{
					Stage:    model.StageFeatureExtraction,
					Severity: model.SeverityWarning,
					RowIndex: r.Index,
					Reason:   "unparseable company_size",
				})
				zap.L().Debug("extract: dropping company size",
					zap.Int("row", r.Index), zap.String("value", raw))
			}
		}

		leads = append(leads, lead)
	}
	return leads, issues
}

func missingFields(r model.Record) []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{model.ColumnName, r.Name},
		{model.ColumnEmail, r.Email},
		{model.ColumnCompany, r.Company},
		{model.ColumnJobTitle, r.JobTitle},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// ParseCompanySize maps a bucket label, a head-count or a head-count range
// ("51-200", "1,200 employees") onto a size bucket. "unknown" parses to ""
// without error.
func ParseCompanySize(raw string) (string, bool) {
	s := strings.ToLower(strings.Join(strings.Fields(raw), ""))
	if s == model.SizeUnknown {
		return "", true
	}
	if b, ok := sizeLabels[s]; ok {
		return b, true
	}

	s = strings.TrimSuffix(s, "employees")
	s = strings.TrimSuffix(s, "+")
	s = strings.ReplaceAll(s, ",", "")
	if lo, _, ok := strings.Cut(s, "-"); ok {
		s = lo
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return "", false
	}
	return Bucket(n), true
}

// Bucket returns the size bucket for a head-count.
func Bucket(headcount int) string {
	switch {
	case headcount >= 5000:
		return model.SizeEnterprise
	case headcount >= 1000:
		return model.SizeLarge
	case headcount >= 200:
		return model.SizeMid
	case headcount >= 50:
		return model.SizeSmall
	default:
		return model.SizeMicro
	}
}

// Summary formats the outcome of an extraction for logs and stage messages.
func Summary(in, out int) string {
	return fmt.Sprintf("extracted %d leads from %d rows", out, in)
}
