package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscore/internal/lookup"
	"github.com/sells-group/leadscore/internal/validate"
)

var (
	validateInput string
	validateSheet int
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a lead file without scoring it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("run"); err != nil {
			return err
		}
		tables, err := lookup.Load(cfg.Lookup.TablesPath)
		if err != nil {
			return eris.Wrap(err, "load lookup tables")
		}

		ds, err := readInput(cmd.Context(), validateInput, validateSheet)
		if err != nil {
			return err
		}

		out, err := validate.New(cfg.Pipeline, tables).Validate(ds.Rows, ds.Columns)
		if err != nil {
			return err
		}
		renderValidation(cmd.OutOrStdout(), out.Result)

		if !out.Result.IsValid {
			return eris.New("dataset rejected")
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateInput, "input", "", "lead file to check (.csv, .xlsx or .json)")
	validateCmd.Flags().IntVar(&validateSheet, "sheet", 0, "XLSX sheet index")
	_ = validateCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(validateCmd)
}
