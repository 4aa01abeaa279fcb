package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/export"
	"github.com/sells-group/leadscore/internal/pipeline"
	"github.com/sells-group/leadscore/internal/store"
)

var (
	runInput        string
	runOutput       string
	runFormat       string
	runSheet        int
	runSave         bool
	runReportFormat string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score a lead file and write the scored leads",
	Long: `Runs validation, cleaning, feature extraction, enrichment, scoring and the
quality check over a CSV, XLSX or JSON lead file.

Examples:
  # Score a CSV and print scored leads as CSV to stdout
  leadscore run --input leads.csv

  # Write an XLSX export and keep the leads in the configured store
  leadscore run --input leads.xlsx --output scored.xlsx --save`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, err := outputFormat(runFormat, runOutput)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		ds, err := readInput(ctx, runInput, runSheet)
		if err != nil {
			return err
		}

		result, runErr := env.Orchestrator.Run(ctx, ds)
		if err := renderResult(cmd.ErrOrStderr(), result, runReportFormat); err != nil {
			return err
		}
		if runErr != nil {
			return eris.New(pipeline.Describe(runErr))
		}

		var out io.Writer = cmd.OutOrStdout()
		if runOutput != "" {
			f, err := os.Create(runOutput)
			if err != nil {
				return eris.Wrapf(err, "run: create output %s", runOutput)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		if err := export.Write(out, format, result.ScoredLeads); err != nil {
			return err
		}

		if runSave {
			if err := env.Store.Set(ctx, store.SnapshotOf(result)); err != nil {
				return eris.Wrap(err, "run: save leads")
			}
		}

		zap.L().Info("run: complete",
			zap.String("run_id", result.RunID),
			zap.Int("scored_leads", len(result.ScoredLeads)),
			zap.String("output", runOutput),
		)
		return nil
	},
}

// outputFormat resolves --format, falling back to the output file extension
// and then to CSV.
func outputFormat(flag, output string) (export.Format, error) {
	if flag == "" && output != "" {
		flag = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
	}
	return export.ParseFormat(flag)
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "lead file to score (.csv, .xlsx or .json)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "write scored leads to this file instead of stdout")
	runCmd.Flags().StringVar(&runFormat, "format", "", "output format: csv, xlsx or json (default from --output extension, else csv)")
	runCmd.Flags().IntVar(&runSheet, "sheet", 0, "XLSX sheet index")
	runCmd.Flags().BoolVar(&runSave, "save", false, "store the scored leads as the current set")
	runCmd.Flags().StringVar(&runReportFormat, "report-format", "table", "quality report format on stderr: table, markdown or json")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
