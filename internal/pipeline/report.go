package pipeline

import (
	"fmt"
	"strings"

	"github.com/sells-group/leadscore/internal/model"
)

// FormatReport generates a human-readable markdown quality report.
func FormatReport(result *model.PipelineResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Lead Scoring Report: %s\n", result.RunID)
	fmt.Fprintf(&b, "Status: %s\n", result.Status)
	if result.PipelineError != "" {
		fmt.Fprintf(&b, "Error: %s\n", result.PipelineError)
	}
	b.WriteString("\n")

	rep := result.QualityReport
	if rep == nil {
		return b.String()
	}

	// Summary.
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Total records: %d\n", rep.TotalRecords)
	fmt.Fprintf(&b, "- Processed records: %d\n", rep.ProcessedRecords)
	fmt.Fprintf(&b, "- Successful records: %d\n", rep.SuccessfulRecords)
	fmt.Fprintf(&b, "- Failed records: %d\n", rep.FailedRecords)
	fmt.Fprintf(&b, "- Success rate: %.1f%%\n", rep.SuccessRate)
	fmt.Fprintf(&b, "- Warnings: %d, errors: %d\n\n", rep.TotalWarnings, rep.TotalErrors)

	// Stage results.
	b.WriteString("## Stages\n")
	for _, sr := range rep.StageResults {
		fmt.Fprintf(&b, "- %s: %s (%.3fs, %d records, %.1f%% ok)\n",
			sr.Stage, sr.Status, sr.Duration, sr.RecordsProcessed, sr.SuccessRate())
		if sr.Message != "" {
			fmt.Fprintf(&b, "  %s\n", sr.Message)
		}
	}
	b.WriteString("\n")

	// Quality metrics.
	if result.Status == model.RunStatusSuccess {
		m := rep.QualityMetrics
		b.WriteString("## Quality\n")
		fmt.Fprintf(&b, "- Average score: %.1f\n", m.AverageScore)
		fmt.Fprintf(&b, "- High quality leads: %d (%.1f%%)\n", m.HighQualityCount, m.HighQualityPercentage)
		if m.DroppedInQualityCheck > 0 {
			fmt.Fprintf(&b, "- Dropped in quality check: %d\n", m.DroppedInQualityCheck)
		}
		b.WriteString("\n")
	}

	// Issues.
	if len(rep.Issues) > 0 {
		b.WriteString("## Issues\n")
		for _, is := range rep.Issues {
			fmt.Fprintf(&b, "- [%s] %s", is.Stage, is.Message)
			if len(is.SampleRows) > 0 {
				rows := make([]string, len(is.SampleRows))
				for i, r := range is.SampleRows {
					rows[i] = fmt.Sprint(r)
				}
				fmt.Fprintf(&b, " (rows %s)", strings.Join(rows, ", "))
			}
			b.WriteString("\n")
		}
	}

	if result.Validation != nil && len(result.Validation.Errors) > 0 {
		b.WriteString("\n## Validation Errors\n")
		for _, e := range result.Validation.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}

	return b.String()
}
