// Package validate checks an uploaded dataset before any normalisation runs.
package validate

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/emailaddr"
	"github.com/sells-group/leadscore/internal/lookup"
	"github.com/sells-group/leadscore/internal/model"
)

// Outcome is everything validation hands to the rest of the pipeline.
type Outcome struct {
	Result *model.ValidationResult
	// Records holds the accepted rows in input order, duplicates included.
	Records []model.Record
	Issues  []model.RowIssue
	// DatasetWarnings counts the column- and batch-level entries of
	// Result.Warnings; the rest summarise Issues.
	DatasetWarnings int
}

// Validator applies the column, row and batch checks.
type Validator struct {
	cfg          config.PipelineConfig
	emails       *emailaddr.Checker
	personal     map[string]struct{}
	placeholders map[string]struct{}
}

// New builds a Validator from pipeline policy and the lookup tables.
func New(cfg config.PipelineConfig, tables *lookup.Tables) *Validator {
	return &Validator{
		cfg:          cfg,
		emails:       emailaddr.FromTables(tables),
		personal:     lookup.Set(tables.PersonalEmailDomains),
		placeholders: lookup.Set(tables.PlaceholderValues),
	}
}

type rowVerdict struct {
	rejected    bool
	countsValid bool
	badEmail    bool
	missing     bool
	placeholder bool
	personal    bool
	issues      []model.RowIssue
}

// Validate checks rows against the declared columns. A dataset with no
// columns or no rows returns model.ErrEmptyDataset; every other problem is
// reported through the returned ValidationResult.
func (v *Validator) Validate(rows []model.RawRow, columns []string) (*Outcome, error) {
	if len(columns) == 0 || len(rows) == 0 {
		return nil, model.ErrEmptyDataset
	}

	log := zap.L().With(zap.String("stage", string(model.StageValidation)))

	result := &model.ValidationResult{
		IsValid:  true,
		Errors:   []string{},
		Warnings: []string{},
		Stats: map[string]int{
			model.StatTotalRows:       len(rows),
			model.StatValidRows:       0,
			model.StatInvalidRows:     0,
			model.StatRejectedRows:    0,
			model.StatDuplicateEmails: 0,
			model.StatInvalidEmails:   0,
			model.StatMissingRequired: 0,
			model.StatRowsWithWarning: 0,
		},
	}
	out := &Outcome{Result: result}

	declared := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		declared[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}

	var missing []string
	for _, c := range model.RequiredColumns {
		if _, ok := declared[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		result.IsValid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Missing required columns: %s", strings.Join(missing, ", ")))
		result.Stats[model.StatInvalidRows] = len(rows)
		log.Warn("validate: missing required columns", zap.Strings("columns", missing))
		return out, nil
	}

	if extra := extraColumns(declared); len(extra) > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Ignoring unrecognised columns: %s", strings.Join(extra, ", ")))
	}

	for _, c := range model.RequiredColumns {
		if columnEmpty(rows, c) {
			result.Errors = append(result.Errors, fmt.Sprintf("Required column '%s' is empty in every row", c))
			result.IsValid = false
		}
	}
	for _, c := range model.OptionalColumns {
		if _, ok := declared[c]; !ok {
			continue
		}
		if ratio := emptyRatio(rows, c); ratio > v.cfg.SparseColumnRatio {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Optional column '%s' is %.0f%% empty", c, ratio*100))
		}
	}

	issues := model.NewIssueLog(v.cfg.IssueSamples)
	seen := make(map[string]int, len(rows))
	var placeholderRows, personalRows, emailRows int

	for _, row := range rows {
		verdict := v.checkRow(row)
		issues.Add(verdict.issues...)
		out.Issues = append(out.Issues, verdict.issues...)

		if verdict.missing {
			result.Stats[model.StatMissingRequired]++
		}
		if verdict.badEmail {
			result.Stats[model.StatInvalidEmails]++
		}
		if verdict.placeholder {
			placeholderRows++
		}
		if verdict.personal {
			personalRows++
		}
		if emailaddr.Structural(row.Get(model.ColumnEmail)) {
			emailRows++
		}
		if len(verdict.issues) > 0 && !verdict.rejected {
			result.Stats[model.StatRowsWithWarning]++
		}

		if verdict.rejected {
			result.Stats[model.StatRejectedRows]++
			result.Stats[model.StatInvalidRows]++
			continue
		}

		key := emailaddr.Normalize(row.Get(model.ColumnEmail))
		first, dup := seen[key]
		switch {
		case !verdict.countsValid:
			result.Stats[model.StatInvalidRows]++
		case !dup:
			// Repeats of an email only count toward duplicate_emails.
			result.Stats[model.StatValidRows]++
		}

		if dup {
			result.Stats[model.StatDuplicateEmails]++
			dupIssue := model.RowIssue{
				Stage:    model.StageValidation,
				Severity: model.SeverityWarning,
				RowIndex: row.Index,
				Reason:   "duplicate email",
			}
			issues.Add(dupIssue)
			out.Issues = append(out.Issues, dupIssue)
			log.Debug("validate: duplicate email", zap.Int("row", row.Index), zap.Int("first_row", first))
		} else {
			seen[key] = row.Index
		}
		out.Records = append(out.Records, model.RecordFromRow(row))
	}

	result.Warnings = append(result.Warnings, issues.Messages()...)

	total := len(rows)
	if ratio := float64(placeholderRows) / float64(total); ratio > v.cfg.PlaceholderWarnRatio {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%.0f%% of rows contain placeholder values such as 'test' or 'n/a'", ratio*100))
	}
	if emailRows > 0 {
		if ratio := float64(personalRows) / float64(emailRows); ratio > v.cfg.PersonalEmailWarnRatio {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%.0f%% of emails use personal domains; this dataset may not be B2B", ratio*100))
		}
	}

	valid := result.Stats[model.StatValidRows]
	if float64(valid)/float64(total) < v.cfg.MinValidRatio {
		result.IsValid = false
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Insufficient valid rows: only %d of %d rows (%.1f%%) passed required-field and email checks; at least %.0f%% required",
			valid, total, float64(valid)/float64(total)*100, v.cfg.MinValidRatio*100))
	}

	out.DatasetWarnings = len(result.Warnings) - issues.Len()

	log.Info("validate: complete",
		zap.Int("total_rows", total),
		zap.Int("valid_rows", valid),
		zap.Int("invalid_rows", result.Stats[model.StatInvalidRows]),
		zap.Int("duplicate_emails", result.Stats[model.StatDuplicateEmails]),
		zap.Bool("is_valid", result.IsValid),
	)
	return out, nil
}

func (v *Validator) checkRow(row model.RawRow) rowVerdict {
	var vd rowVerdict
	issue := func(severity, reason string) {
		vd.issues = append(vd.issues, model.RowIssue{
			Stage:    model.StageValidation,
			Severity: severity,
			RowIndex: row.Index,
			Reason:   reason,
		})
	}

	for _, c := range model.RequiredColumns {
		if strings.TrimSpace(row.Get(c)) == "" {
			issue(model.SeverityError, "missing "+c)
			vd.rejected = true
			vd.missing = true
		}
	}

	if name := strings.TrimSpace(row.Get(model.ColumnName)); name != "" && !plausibleName(name) {
		issue(model.SeverityError, "name must be at least 2 characters and contain a letter")
		vd.rejected = true
	}

	email := strings.TrimSpace(row.Get(model.ColumnEmail))
	if email != "" {
		if !emailaddr.Structural(email) {
			issue(model.SeverityError, "email is not an address")
			vd.rejected = true
			vd.badEmail = true
		} else if ok, reason := v.emails.Check(email); !ok {
			issue(model.SeverityWarning, reason)
			vd.badEmail = true
		}
		if _, ok := v.personal[emailaddr.Domain(email)]; ok {
			vd.personal = true
		}
	}

	for _, c := range append(append([]string{}, model.RequiredColumns...), model.OptionalColumns...) {
		limit, ok := v.cfg.MaxFieldLengths[c]
		if !ok || limit <= 0 {
			continue
		}
		if utf8.RuneCountInString(strings.TrimSpace(row.Get(c))) > limit {
			issue(model.SeverityWarning, fmt.Sprintf("%s exceeds %d characters", c, limit))
		}
	}

	for _, c := range model.RequiredColumns {
		if _, ok := v.placeholders[strings.ToLower(strings.TrimSpace(row.Get(c)))]; ok {
			vd.placeholder = true
			issue(model.SeverityWarning, "placeholder value in "+c)
			break
		}
	}

	vd.countsValid = !vd.rejected && !vd.badEmail
	return vd
}

func plausibleName(name string) bool {
	if utf8.RuneCountInString(name) < 2 {
		return false
	}
	for _, r := range name {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func extraColumns(declared map[string]struct{}) []string {
	known := make(map[string]struct{})
	for _, c := range model.RequiredColumns {
		known[c] = struct{}{}
	}
	for _, c := range model.OptionalColumns {
		known[c] = struct{}{}
	}
	var extra []string
	for c := range declared {
		if _, ok := known[c]; !ok && c != "" {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return extra
}

func columnEmpty(rows []model.RawRow, column string) bool {
	for _, r := range rows {
		if strings.TrimSpace(r.Get(column)) != "" {
			return false
		}
	}
	return true
}

func emptyRatio(rows []model.RawRow, column string) float64 {
	empty := 0
	for _, r := range rows {
		if strings.TrimSpace(r.Get(column)) == "" {
			empty++
		}
	}
	return float64(empty) / float64(len(rows))
}
