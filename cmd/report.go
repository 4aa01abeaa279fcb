package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/pipeline"
)

var (
	reportFormat string
	reportRuns   int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the quality report of the stored leads",
	Long:  "Prints the quality report of the current stored run. Useful with store.driver=sqlite and a file database.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		w := cmd.OutOrStdout()
		if reportRuns > 0 {
			runs, err := env.Store.Runs(ctx, reportRuns)
			if err != nil {
				return err
			}
			t := newTable(w)
			t.AppendHeader(table.Row{"Run", "Status", "Leads", "Success %", "Stored"})
			for _, rs := range runs {
				t.AppendRow(table.Row{rs.RunID, rs.Status, rs.LeadCount, fmt.Sprintf("%.1f", rs.SuccessRate), rs.StoredAt.Format("2006-01-02 15:04:05")})
			}
			t.Render()
			return nil
		}

		snap, err := env.Store.Get(ctx)
		if err != nil {
			return err
		}
		if snap == nil {
			_, _ = fmt.Fprintln(w, "No scored leads stored.")
			return nil
		}
		return renderResult(w, &model.PipelineResult{
			RunID:         snap.RunID,
			Status:        model.RunStatusSuccess,
			ScoredLeads:   snap.Leads,
			QualityReport: snap.Report,
		}, reportFormat)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "table", "report format: table, markdown or json")
	reportCmd.Flags().IntVar(&reportRuns, "runs", 0, "list the N most recent runs instead")
	rootCmd.AddCommand(reportCmd)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// renderResult writes the run's quality report in the given format.
func renderResult(w io.Writer, result *model.PipelineResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(result.QualityReport), "encode report")
	case "md", "markdown":
		_, err := io.WriteString(w, pipeline.FormatReport(result))
		return eris.Wrap(err, "write report")
	case "table", "":
		renderReportTables(w, result)
		return nil
	}
	return eris.Errorf("unknown report format %q (table, markdown, json)", format)
}

func renderReportTables(w io.Writer, result *model.PipelineResult) {
	_, _ = fmt.Fprintf(w, "Run %s: %s\n", result.RunID, result.Status)
	if result.PipelineError != "" {
		_, _ = fmt.Fprintf(w, "Error: %s\n", result.PipelineError)
	}
	if result.Validation != nil && !result.Validation.IsValid {
		renderValidation(w, result.Validation)
	}

	rep := result.QualityReport
	if rep == nil {
		return
	}

	summary := newTable(w)
	summary.SetTitle("Quality Report")
	summary.AppendRows([]table.Row{
		{"Total records", rep.TotalRecords},
		{"Processed records", rep.ProcessedRecords},
		{"Successful records", rep.SuccessfulRecords},
		{"Failed records", rep.FailedRecords},
		{"Success rate", fmt.Sprintf("%.1f%%", rep.SuccessRate)},
		{"Warnings", rep.TotalWarnings},
		{"Errors", rep.TotalErrors},
	})
	if result.Status == model.RunStatusSuccess {
		summary.AppendRows([]table.Row{
			{"Average score", fmt.Sprintf("%.1f", rep.QualityMetrics.AverageScore)},
			{"High quality leads", fmt.Sprintf("%d (%.1f%%)", rep.QualityMetrics.HighQualityCount, rep.QualityMetrics.HighQualityPercentage)},
		})
	}
	summary.Render()

	stages := newTable(w)
	stages.SetTitle("Stages")
	stages.AppendHeader(table.Row{"Stage", "Status", "Records", "Succeeded", "Failed", "Warnings", "Errors", "Seconds"})
	for _, sr := range rep.StageResults {
		stages.AppendRow(table.Row{
			sr.Stage, sr.Status, sr.RecordsProcessed, sr.RecordsSucceeded, sr.RecordsFailed,
			sr.Warnings, sr.Errors, fmt.Sprintf("%.3f", sr.Duration),
		})
	}
	stages.Render()

	if len(rep.Issues) > 0 {
		issues := newTable(w)
		issues.SetTitle("Issues")
		issues.AppendHeader(table.Row{"Stage", "Severity", "Issue", "Sample rows"})
		for _, is := range rep.Issues {
			issues.AppendRow(table.Row{is.Stage, is.Severity, is.Message, fmt.Sprint(is.SampleRows)})
		}
		issues.Render()
	}
}

// renderValidation writes validation stats, errors and warnings.
func renderValidation(w io.Writer, vr *model.ValidationResult) {
	stats := newTable(w)
	stats.SetTitle("Validation")
	keys := make([]string, 0, len(vr.Stats))
	for k := range vr.Stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	stats.AppendRow(table.Row{"valid", vr.IsValid})
	for _, k := range keys {
		stats.AppendRow(table.Row{k, vr.Stats[k]})
	}
	stats.Render()

	for _, e := range vr.Errors {
		_, _ = fmt.Fprintf(w, "ERROR: %s\n", e)
	}
	for _, warn := range vr.Warnings {
		_, _ = fmt.Fprintf(w, "WARNING: %s\n", warn)
	}
}
