package pipeline

import (
	"context"

	"github.com/sells-group/leadscore/internal/model"
)

// Batch is the per-run state handed from stage to stage. Each stage reads
// the previous stage's output field and writes its own.
type Batch struct {
	Columns []string
	Rows    []model.RawRow

	Validation *model.ValidationResult
	Records    []model.Record
	Leads      []model.Lead
	Scored     []model.ScoredLead
	Metrics    model.QualityMetrics

	// Accepted is the number of rows validation forwarded.
	Accepted int
	Issues   []model.RowIssue
}

// Telemetry is what a stage reports about its own work.
type Telemetry struct {
	Processed int
	Succeeded int
	Failed    int
	Warnings  int
	Errors    int
	Message   string
}

// Stage is one step of the pipeline.
type Stage interface {
	Name() model.StageName
	Process(ctx context.Context, b *Batch) (Telemetry, error)
}

// Enricher augments extracted leads without dropping any.
type Enricher interface {
	EnrichAll(ctx context.Context, leads []model.Lead) ([]model.Lead, []model.RowIssue, error)
}

// Scorer turns enriched leads into scored leads, preserving order.
type Scorer interface {
	ScoreAll(ctx context.Context, leads []model.Lead) ([]model.ScoredLead, error)
}

func countIssues(issues []model.RowIssue) (warnings, errs int) {
	for _, is := range issues {
		if is.Severity == model.SeverityError {
			errs++
		} else {
			warnings++
		}
	}
	return warnings, errs
}
