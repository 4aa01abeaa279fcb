package model

import "time"

// StageName identifies a pipeline stage.
type StageName string

const (
	StageUpload            StageName = "upload"
	StageValidation        StageName = "validation"
	StageCleaning          StageName = "cleaning"
	StageFeatureExtraction StageName = "feature_extraction"
	StageEnrichment        StageName = "enrichment"
	StageScoring           StageName = "scoring"
	StageQualityCheck      StageName = "quality_check"
	StageComplete          StageName = "complete"
)

// StageStatus represents the current state of a pipeline stage.
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusRunning   StageStatus = "running"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
)

// RunStatus is the overall outcome of a pipeline run.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// ValidationResult is the aggregate outcome of the validation stage.
type ValidationResult struct {
	IsValid  bool           `json:"is_valid"`
	Errors   []string       `json:"errors"`
	Warnings []string       `json:"warnings"`
	Stats    map[string]int `json:"stats"`
}

// Validation stat keys.
const (
	StatTotalRows       = "total_rows"
	StatValidRows       = "valid_rows"
	StatInvalidRows     = "invalid_rows"
	StatRejectedRows    = "rejected_rows"
	StatDuplicateEmails = "duplicate_emails"
	StatInvalidEmails   = "invalid_emails"
	StatMissingRequired = "missing_required_fields"
	StatRowsWithWarning = "rows_with_warnings"
)

// Issue severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// RowIssue ties a per-row problem to the stage that found it. Rows with an
// error-severity issue were dropped by that stage.
type RowIssue struct {
	Stage    StageName `json:"stage"`
	Severity string    `json:"severity"`
	RowIndex int       `json:"row_index"`
	Reason   string    `json:"reason"`
}

// StageResult is the telemetry recorded for one stage.
type StageResult struct {
	Stage            StageName   `json:"stage"`
	Status           StageStatus `json:"status"`
	Message          string      `json:"message"`
	Duration         float64     `json:"duration"`
	RecordsProcessed int         `json:"records_processed"`
	RecordsSucceeded int         `json:"records_succeeded"`
	RecordsFailed    int         `json:"records_failed"`
	Warnings         int         `json:"warnings"`
	Errors           int         `json:"errors"`
}

// SuccessRate returns the percentage of processed records that succeeded.
func (s StageResult) SuccessRate() float64 {
	if s.RecordsProcessed == 0 {
		return 0
	}
	return float64(s.RecordsSucceeded) / float64(s.RecordsProcessed) * 100
}

// Progress is a point-in-time view of a run.
type Progress struct {
	RunID              string        `json:"run_id"`
	CurrentStage       StageName     `json:"current_stage"`
	CurrentStageStatus StageStatus   `json:"current_stage_status"`
	ProgressPercentage int           `json:"progress_percentage"`
	StageResults       []StageResult `json:"stage_results"`
	StartedAt          time.Time     `json:"started_at"`
}

// IssueSummary aggregates repeated per-record problems into one line.
type IssueSummary struct {
	Stage      StageName `json:"stage"`
	Severity   string    `json:"severity"`
	Reason     string    `json:"reason"`
	Count      int       `json:"count"`
	SampleRows []int     `json:"sample_rows,omitempty"`
	Message    string    `json:"message"`
}

// StageSummary is the per-stage line of a quality report.
type StageSummary struct {
	Stage            StageName   `json:"stage"`
	Status           StageStatus `json:"status"`
	Duration         float64     `json:"duration"`
	RecordsProcessed int         `json:"records_processed"`
	SuccessRate      float64     `json:"success_rate"`
}

// QualityMetrics summarises the scores of the surviving leads.
type QualityMetrics struct {
	AverageScore          float64 `json:"average_score"`
	HighQualityCount      int     `json:"high_quality_count"`
	HighQualityPercentage float64 `json:"high_quality_percentage"`
	DroppedInQualityCheck int     `json:"dropped_in_quality_check"`
}

// QualityReport is the end-of-pipeline summary.
type QualityReport struct {
	Timestamp         time.Time      `json:"timestamp"`
	TotalRecords      int            `json:"total_records"`
	ProcessedRecords  int            `json:"processed_records"`
	SuccessfulRecords int            `json:"successful_records"`
	FailedRecords     int            `json:"failed_records"`
	SuccessRate       float64        `json:"success_rate"`
	TotalWarnings     int            `json:"total_warnings"`
	TotalErrors       int            `json:"total_errors"`
	StageResults      []StageResult  `json:"stage_results"`
	StageSummary      []StageSummary `json:"stage_summary"`
	QualityMetrics    QualityMetrics `json:"quality_metrics"`
	Issues            []IssueSummary `json:"issues,omitempty"`
}

// PipelineResult is returned to the caller of a run.
type PipelineResult struct {
	RunID         string            `json:"run_id"`
	Status        RunStatus         `json:"status"`
	ScoredLeads   []ScoredLead      `json:"scored_leads"`
	QualityReport *QualityReport    `json:"quality_report"`
	Validation    *ValidationResult `json:"validation,omitempty"`
	PipelineError string            `json:"pipeline_error,omitempty"`
	Duration      float64           `json:"duration"`
}
