// Package pipeline sequences validation, cleaning, feature extraction,
// enrichment, scoring and the quality check over one uploaded dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/clean"
	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/enrich"
	"github.com/sells-group/leadscore/internal/lookup"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/scorer"
	"github.com/sells-group/leadscore/internal/validate"
)

// Orchestrator holds the ordered stages. It keeps no per-run state, so one
// Orchestrator can serve concurrent runs.
type Orchestrator struct {
	stages       []Stage
	issueSamples int
}

// New builds the standard six-stage pipeline from configuration and tables.
func New(cfg *config.Config, tables *lookup.Tables) (*Orchestrator, error) {
	sc, err := scorer.New(cfg.Scoring, tables, cfg.Pipeline.Workers)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: build scorer")
	}
	return NewWithStages(cfg.Pipeline.IssueSamples,
		&ValidationStage{Validator: validate.New(cfg.Pipeline, tables)},
		&CleaningStage{Cleaner: clean.New(cfg.Pipeline, tables)},
		&ExtractionStage{},
		&EnrichmentStage{Enricher: enrich.New(tables, cfg.Pipeline.Workers)},
		&ScoringStage{Scorer: sc},
		&QualityStage{HighQualityThreshold: cfg.Scoring.HighQualityThreshold},
	), nil
}

// NewWithStages builds an Orchestrator over an explicit stage list.
func NewWithStages(issueSamples int, stages ...Stage) *Orchestrator {
	return &Orchestrator{stages: stages, issueSamples: issueSamples}
}

// Stages returns the stage names in execution order.
func (o *Orchestrator) Stages() []model.StageName {
	names := make([]model.StageName, len(o.stages))
	for i, s := range o.stages {
		names[i] = s.Name()
	}
	return names
}

// NewRun prepares a run whose progress can be polled while Execute works.
func (o *Orchestrator) NewRun() *Run {
	return &Run{
		o: o,
		progress: model.Progress{
			RunID:              uuid.New().String(),
			CurrentStage:       model.StageUpload,
			CurrentStageStatus: model.StageStatusCompleted,
			StageResults:       []model.StageResult{},
		},
	}
}

// Run is a convenience for NewRun().Execute.
func (o *Orchestrator) Run(ctx context.Context, ds model.Dataset) (*model.PipelineResult, error) {
	return o.NewRun().Execute(ctx, ds)
}

// Run is the state of a single pipeline execution.
type Run struct {
	o *Orchestrator

	mu       sync.RWMutex
	progress model.Progress
}

// ID returns the run identifier.
func (r *Run) ID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.progress.RunID
}

// Progress returns a snapshot of the run's progress.
func (r *Run) Progress() model.Progress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := r.progress
	p.StageResults = append([]model.StageResult(nil), r.progress.StageResults...)
	return p
}

// Execute runs every stage in order. The result is always non-nil; on
// failure it carries status "failed", no scored leads and the pipeline error,
// which is also returned.
func (r *Run) Execute(ctx context.Context, ds model.Dataset) (*model.PipelineResult, error) {
	start := time.Now()
	r.mu.Lock()
	r.progress.StartedAt = start
	r.mu.Unlock()

	log := zap.L().With(zap.String("run_id", r.ID()))
	log.Info("pipeline: starting run", zap.Int("rows", len(ds.Rows)), zap.Int("columns", len(ds.Columns)))

	b := &Batch{Columns: ds.Columns, Rows: indexRows(ds.Rows)}
	result := &model.PipelineResult{RunID: r.ID(), ScoredLeads: []model.ScoredLead{}}

	var runErr error
	for _, stage := range r.o.stages {
		if err := ctx.Err(); err != nil {
			runErr = eris.Wrap(err, "pipeline: run cancelled")
			break
		}
		if err := r.runStage(ctx, log, stage, b); err != nil {
			runErr = err
			break
		}
	}

	result.Validation = b.Validation
	result.Duration = time.Since(start).Seconds()
	result.QualityReport = r.report(b, runErr == nil)

	if runErr != nil {
		result.Status = model.RunStatusFailed
		result.PipelineError = runErr.Error()
		log.Error("pipeline: run failed",
			zap.Bool("validation_failure", IsValidationFailure(runErr)),
			zap.Error(runErr),
		)
		return result, runErr
	}

	result.Status = model.RunStatusSuccess
	result.ScoredLeads = b.Scored

	r.mu.Lock()
	r.progress.CurrentStage = model.StageComplete
	r.progress.CurrentStageStatus = model.StageStatusCompleted
	r.progress.ProgressPercentage = 100
	r.mu.Unlock()

	log.Info("pipeline: run complete",
		zap.Int("scored_leads", len(b.Scored)),
		zap.Float64("success_rate", result.QualityReport.SuccessRate),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return result, nil
}

// runStage executes one stage, records its StageResult and converts panics
// and unexpected errors into a StageError.
func (r *Run) runStage(ctx context.Context, log *zap.Logger, stage Stage, b *Batch) (err error) {
	name := stage.Name()
	r.mu.Lock()
	r.progress.CurrentStage = name
	r.progress.CurrentStageStatus = model.StageStatusRunning
	r.mu.Unlock()

	log.Debug("pipeline: stage started", zap.String("stage", string(name)))
	start := time.Now()

	var tel Telemetry
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = eris.Errorf("panic: %v", rec)
			}
		}()
		tel, err = stage.Process(ctx, b)
	}()

	duration := time.Since(start)
	sr := model.StageResult{
		Stage:            name,
		Status:           model.StageStatusCompleted,
		Message:          tel.Message,
		Duration:         duration.Seconds(),
		RecordsProcessed: tel.Processed,
		RecordsSucceeded: tel.Succeeded,
		RecordsFailed:    tel.Failed,
		Warnings:         tel.Warnings,
		Errors:           tel.Errors,
	}

	if err != nil {
		sr.Status = model.StageStatusFailed
		if sr.Message == "" {
			sr.Message = err.Error()
		}
		if !IsValidationFailure(err) {
			err = &StageError{Stage: name, Err: err}
		}
		log.Error("pipeline: stage failed",
			zap.String("stage", string(name)),
			zap.Int64("duration_ms", duration.Milliseconds()),
			zap.Error(err),
		)
	} else {
		log.Info("pipeline: stage complete",
			zap.String("stage", string(name)),
			zap.Int("records", tel.Processed),
			zap.Int("succeeded", tel.Succeeded),
			zap.Int64("duration_ms", duration.Milliseconds()),
		)
	}

	r.mu.Lock()
	r.progress.CurrentStageStatus = sr.Status
	r.progress.StageResults = append(r.progress.StageResults, sr)
	if sr.Status == model.StageStatusCompleted {
		r.progress.ProgressPercentage = completedPercentage(r.progress.StageResults, len(r.o.stages))
	}
	r.mu.Unlock()
	return err
}

func (r *Run) report(b *Batch, ok bool) *model.QualityReport {
	results := r.Progress().StageResults
	issues := model.NewIssueLog(r.o.issueSamples)
	issues.Add(b.Issues...)

	rep := &model.QualityReport{
		Timestamp:        time.Now().UTC(),
		TotalRecords:     len(b.Rows),
		ProcessedRecords: b.Accepted,
		StageResults:     results,
		StageSummary:     make([]model.StageSummary, 0, len(results)),
		Issues:           issues.Summaries(),
	}
	if ok {
		rep.SuccessfulRecords = len(b.Scored)
		rep.QualityMetrics = b.Metrics
	}
	rep.FailedRecords = rep.TotalRecords - rep.SuccessfulRecords
	if rep.TotalRecords > 0 {
		rep.SuccessRate = round1(float64(rep.SuccessfulRecords) / float64(rep.TotalRecords) * 100)
	}
	for _, sr := range results {
		rep.TotalWarnings += sr.Warnings
		rep.TotalErrors += sr.Errors
		rep.StageSummary = append(rep.StageSummary, model.StageSummary{
			Stage:            sr.Stage,
			Status:           sr.Status,
			Duration:         sr.Duration,
			RecordsProcessed: sr.RecordsProcessed,
			SuccessRate:      round1(sr.SuccessRate()),
		})
	}
	return rep
}

func completedPercentage(results []model.StageResult, total int) int {
	if total == 0 {
		return 100
	}
	done := 0
	for _, sr := range results {
		if sr.Status == model.StageStatusCompleted {
			done++
		}
	}
	return done * 100 / total
}

// indexRows numbers rows 1..n in input order and folds field names to the
// lower-case column names the stages look up.
func indexRows(rows []model.RawRow) []model.RawRow {
	out := make([]model.RawRow, len(rows))
	for i, r := range rows {
		fields := make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			fields[strings.ToLower(strings.TrimSpace(k))] = v
		}
		out[i] = model.RawRow{Index: i + 1, Fields: fields}
	}
	return out
}

// Describe formats a pipeline error for a user.
func Describe(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return fmt.Sprintf("Dataset rejected: %s", ve.Error())
	case errors.Is(err, model.ErrEmptyDataset):
		return "Dataset rejected: " + model.ErrEmptyDataset.Error()
	default:
		return "Pipeline error: " + err.Error()
	}
}
