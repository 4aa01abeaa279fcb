package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/clean"
	"github.com/sells-group/leadscore/internal/emailaddr"
	"github.com/sells-group/leadscore/internal/extract"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/validate"
)

// ValidationStage runs the record validator and stops the run when the
// dataset is unusable.
type ValidationStage struct {
	Validator *validate.Validator
}

func (s *ValidationStage) Name() model.StageName { return model.StageValidation }

func (s *ValidationStage) Process(_ context.Context, b *Batch) (Telemetry, error) {
	out, err := s.Validator.Validate(b.Rows, b.Columns)
	if err != nil {
		return Telemetry{Processed: len(b.Rows), Failed: len(b.Rows), Errors: 1, Message: err.Error()}, err
	}

	b.Validation = out.Result
	b.Issues = append(b.Issues, out.Issues...)

	rowWarnings, rowErrors := countIssues(out.Issues)
	tel := Telemetry{
		Processed: len(b.Rows),
		Succeeded: len(out.Records),
		Failed:    len(b.Rows) - len(out.Records),
		Warnings:  rowWarnings + out.DatasetWarnings,
		Errors:    rowErrors + len(out.Result.Errors),
		Message: fmt.Sprintf("%d of %d rows valid, %d forwarded",
			out.Result.Stats[model.StatValidRows], len(b.Rows), len(out.Records)),
	}

	if !out.Result.IsValid {
		tel.Message = "dataset rejected"
		return tel, &ValidationError{Errors: out.Result.Errors}
	}

	b.Records = out.Records
	b.Accepted = len(out.Records)
	return tel, nil
}

// CleaningStage normalises records and removes duplicates.
type CleaningStage struct {
	Cleaner *clean.Cleaner
}

func (s *CleaningStage) Name() model.StageName { return model.StageCleaning }

func (s *CleaningStage) Process(ctx context.Context, b *Batch) (Telemetry, error) {
	in := len(b.Records)
	out, issues, err := s.Cleaner.Clean(ctx, b.Records)
	if err != nil {
		return Telemetry{Processed: in}, err
	}
	b.Issues = append(b.Issues, issues...)
	b.Records = out

	w, e := countIssues(issues)
	tel := Telemetry{
		Processed: in,
		Succeeded: len(out),
		Failed:    in - len(out),
		Warnings:  w,
		Errors:    e,
		Message:   fmt.Sprintf("cleaned %d records, removed %d duplicates", in, in-len(out)),
	}
	return tel, survivors(model.StageCleaning, len(out))
}

// ExtractionStage builds typed leads from cleaned records.
type ExtractionStage struct{}

func (s *ExtractionStage) Name() model.StageName { return model.StageFeatureExtraction }

func (s *ExtractionStage) Process(_ context.Context, b *Batch) (Telemetry, error) {
	in := len(b.Records)
	leads, issues := extract.Extract(b.Records)
	if len(leads) > in {
		return Telemetry{Processed: in}, eris.Errorf("extraction produced %d leads from %d records", len(leads), in)
	}
	b.Issues = append(b.Issues, issues...)
	b.Leads = leads

	w, e := countIssues(issues)
	tel := Telemetry{
		Processed: in,
		Succeeded: len(leads),
		Failed:    in - len(leads),
		Warnings:  w,
		Errors:    e,
		Message:   extract.Summary(in, len(leads)),
	}
	return tel, survivors(model.StageFeatureExtraction, len(leads))
}

// EnrichmentStage wraps an Enricher.
type EnrichmentStage struct {
	Enricher Enricher
}

func (s *EnrichmentStage) Name() model.StageName { return model.StageEnrichment }

func (s *EnrichmentStage) Process(ctx context.Context, b *Batch) (Telemetry, error) {
	in := len(b.Leads)
	leads, issues, err := s.Enricher.EnrichAll(ctx, b.Leads)
	if err != nil {
		return Telemetry{Processed: in}, err
	}
	if len(leads) != in {
		return Telemetry{Processed: in}, eris.Errorf("enricher returned %d leads for %d inputs", len(leads), in)
	}
	b.Issues = append(b.Issues, issues...)
	b.Leads = leads

	w, e := countIssues(issues)
	tel := Telemetry{
		Processed: in,
		Succeeded: len(leads),
		Warnings:  w,
		Errors:    e,
		Message:   fmt.Sprintf("enriched %d leads", len(leads)),
	}
	return tel, survivors(model.StageEnrichment, len(leads))
}

// ScoringStage wraps a Scorer.
type ScoringStage struct {
	Scorer Scorer
}

func (s *ScoringStage) Name() model.StageName { return model.StageScoring }

func (s *ScoringStage) Process(ctx context.Context, b *Batch) (Telemetry, error) {
	in := len(b.Leads)
	scored, err := s.Scorer.ScoreAll(ctx, b.Leads)
	if err != nil {
		return Telemetry{Processed: in}, err
	}
	if len(scored) != in {
		return Telemetry{Processed: in}, eris.Errorf("scorer returned %d leads for %d inputs", len(scored), in)
	}
	b.Scored = scored

	tel := Telemetry{
		Processed: in,
		Succeeded: len(scored),
		Message:   fmt.Sprintf("scored %d leads", len(scored)),
	}
	return tel, survivors(model.StageScoring, len(scored))
}

// QualityStage drops scored leads without a usable email or score and
// computes the score metrics.
type QualityStage struct {
	HighQualityThreshold float64
}

func (s *QualityStage) Name() model.StageName { return model.StageQualityCheck }

func (s *QualityStage) Process(_ context.Context, b *Batch) (Telemetry, error) {
	in := len(b.Scored)
	kept := make([]model.ScoredLead, 0, in)
	var issues []model.RowIssue
	for _, sl := range b.Scored {
		if reason := qualityDefect(sl); reason != "" {
			issues = append(issues, model.RowIssue{
				Stage:    model.StageQualityCheck,
				Severity: model.SeverityError,
				RowIndex: sl.RowIndex,
				Reason:   reason,
			})
			continue
		}
		kept = append(kept, sl)
	}
	b.Issues = append(b.Issues, issues...)
	b.Scored = kept
	b.Metrics = Metrics(kept, s.HighQualityThreshold)
	b.Metrics.DroppedInQualityCheck = in - len(kept)

	tel := Telemetry{
		Processed: in,
		Succeeded: len(kept),
		Failed:    in - len(kept),
		Errors:    len(issues),
		Message:   fmt.Sprintf("%d of %d leads passed quality check", len(kept), in),
	}
	return tel, survivors(model.StageQualityCheck, len(kept))
}

func qualityDefect(sl model.ScoredLead) string {
	switch {
	case sl.Email == "":
		return "empty email"
	case !emailaddr.Structural(sl.Email):
		return "email does not look like an address"
	case math.IsNaN(sl.Score) || sl.Score < 0 || sl.Score > 100:
		return "score out of range"
	case sl.ScoreBreakdown.Factors == nil:
		return "missing score breakdown"
	}
	return ""
}

// Metrics computes the score summary of leads.
func Metrics(leads []model.ScoredLead, highQuality float64) model.QualityMetrics {
	var m model.QualityMetrics
	if len(leads) == 0 {
		return m
	}
	var sum float64
	for _, sl := range leads {
		sum += sl.Score
		if sl.Score >= highQuality {
			m.HighQualityCount++
		}
	}
	m.AverageScore = round1(sum / float64(len(leads)))
	m.HighQualityPercentage = round1(float64(m.HighQualityCount) / float64(len(leads)) * 100)
	return m
}

func survivors(stage model.StageName, n int) error {
	if n == 0 {
		return eris.Errorf("no records survived %s", stage)
	}
	return nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
