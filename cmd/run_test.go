package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/export"
	"github.com/sells-group/leadscore/internal/model"
)

func TestRun_WritesCSVToStdout(t *testing.T) {
	input := writeFile(t, "leads.csv", leadsCSV)

	stdout, stderr, err := executeCommand(t, "run", "--input", input)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(stdout)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, export.Columns, records[0])
	assert.Equal(t, "John Smith", records[1][1])
	assert.Equal(t, "false", records[3][9])

	assert.Contains(t, stderr, "Quality Report")
	assert.Contains(t, stderr, "feature_extraction")
}

func TestRun_WritesOutputFile(t *testing.T) {
	input := writeFile(t, "leads.csv", leadsCSV)
	output := filepath.Join(t.TempDir(), "scored.json")

	stdout, _, err := executeCommand(t, "run", "--input", input, "--output", output, "--report-format", "json")
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")))
	assert.Contains(t, string(data), `"score_breakdown"`)
}

func TestRun_ValidationFailure(t *testing.T) {
	input := writeFile(t, "leads.csv", "name,email,job_title\nJane,jane@acme.io,CEO\n")

	stdout, stderr, err := executeCommand(t, "run", "--input", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Dataset rejected")
	assert.Contains(t, err.Error(), "company")
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "failed")
}

func TestRun_RequiresInput(t *testing.T) {
	_, _, err := executeCommand(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
}

func TestRun_BadFormat(t *testing.T) {
	input := writeFile(t, "leads.csv", leadsCSV)

	_, _, err := executeCommand(t, "run", "--input", input, "--format", "pdf")
	assert.Error(t, err)
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		flag, output string
		want         export.Format
	}{
		{"", "", export.FormatCSV},
		{"", "out.XLSX", export.FormatXLSX},
		{"", "out.json", export.FormatJSON},
		{"json", "out.csv", export.FormatJSON},
	}
	for _, tt := range tests {
		got, err := outputFormat(tt.flag, tt.output)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := outputFormat("", "out.txt")
	assert.Error(t, err)
}

func TestValidate_Command(t *testing.T) {
	input := writeFile(t, "leads.csv", leadsCSV)

	stdout, _, err := executeCommand(t, "validate", "--input", input)
	require.NoError(t, err)
	assert.Contains(t, stdout, "valid_rows")
	assert.Contains(t, stdout, "invalid_emails")

	bad := writeFile(t, "bad.csv", "name,email,job_title\nJane,jane@acme.io,CEO\n")
	stdout, _, err = executeCommand(t, "validate", "--input", bad)
	require.Error(t, err)
	assert.Contains(t, stdout, "ERROR: Missing required columns: company")
}

func TestReport_EmptyStore(t *testing.T) {
	stdout, _, err := executeCommand(t, "report")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scored leads stored.")
}

func TestRenderResult_Formats(t *testing.T) {
	result := &model.PipelineResult{
		RunID:  "run-1",
		Status: model.RunStatusSuccess,
		QualityReport: &model.QualityReport{
			TotalRecords: 2, SuccessfulRecords: 2, SuccessRate: 100,
			StageResults: []model.StageResult{{Stage: model.StageValidation, Status: model.StageStatusCompleted, RecordsProcessed: 2}},
			Issues:       []model.IssueSummary{{Stage: model.StageCleaning, Severity: model.SeverityError, Message: "1 row skipped: duplicate email", SampleRows: []int{2}}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, result, "table"))
	assert.Contains(t, buf.String(), "Quality Report")
	assert.Contains(t, buf.String(), "1 row skipped: duplicate email")

	buf.Reset()
	require.NoError(t, renderResult(&buf, result, "markdown"))
	assert.Contains(t, buf.String(), "# Lead Scoring Report: run-1")

	buf.Reset()
	require.NoError(t, renderResult(&buf, result, "json"))
	assert.Contains(t, buf.String(), `"success_rate": 100`)

	assert.Error(t, renderResult(&buf, result, "xml"))
}
