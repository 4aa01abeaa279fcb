package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/lookup"
	"github.com/sells-group/leadscore/internal/model"
)

var leadColumns = []string{"name", "email", "company", "job_title"}

func newOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := New(config.Default(), lookup.MustDefault())
	require.NoError(t, err)
	return o
}

func leadRow(name, email, company, title string) model.RawRow {
	return model.RawRow{Fields: map[string]string{
		"name":      name,
		"email":     email,
		"company":   company,
		"job_title": title,
	}}
}

func dataset(rows ...model.RawRow) model.Dataset {
	return model.Dataset{Columns: leadColumns, Rows: rows}
}

// bulkDataset builds n distinct, valid rows followed by bad rows with an
// empty name.
func bulkDataset(n, bad int) model.Dataset {
	rows := make([]model.RawRow, 0, n+bad)
	for i := 0; i < n; i++ {
		rows = append(rows, leadRow(
			fmt.Sprintf("Lead Person %d", i),
			fmt.Sprintf("lead%d@initech.com", i),
			"Initech",
			"Software Engineer",
		))
	}
	for i := 0; i < bad; i++ {
		rows = append(rows, leadRow("", fmt.Sprintf("nobody%d@initech.com", i), "Initech", "Engineer"))
	}
	return dataset(rows...)
}

func scoredLead(id int, email string, score float64) model.ScoredLead {
	return model.ScoredLead{
		Lead:  model.Lead{ID: id, RowIndex: id, Name: "Jane Doe", Email: email, Company: "Acme", JobTitle: "CEO"},
		Score: score,
		ScoreBreakdown: model.ScoreBreakdown{
			Factors:    map[string]model.ScoreFactor{model.FactorJobTitle: {Points: 10, Reason: "x"}},
			TotalScore: score,
		},
	}
}
