// Package store holds the most recent run's scored leads for the caller
// layer, plus a short history of completed runs.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/model"
)

// Snapshot is the current set of scored leads and the report of the run that
// produced them.
type Snapshot struct {
	RunID    string               `json:"run_id"`
	StoredAt time.Time            `json:"stored_at"`
	Leads    []model.ScoredLead   `json:"leads"`
	Report   *model.QualityReport `json:"report,omitempty"`
}

// RunSummary is one entry of the run history.
type RunSummary struct {
	RunID       string          `json:"run_id"`
	Status      model.RunStatus `json:"status"`
	LeadCount   int             `json:"lead_count"`
	SuccessRate float64         `json:"success_rate"`
	StoredAt    time.Time       `json:"stored_at"`
}

// Store defines the current-leads store consumed by the CLI and HTTP layers.
// The pipeline never writes to it; callers store a run's result explicitly.
type Store interface {
	// Set replaces the current snapshot and records the run in history.
	Set(ctx context.Context, snap Snapshot) error
	// Get returns the current snapshot, or nil when nothing is stored.
	Get(ctx context.Context) (*Snapshot, error)
	// Clear drops the current snapshot. History is kept.
	Clear(ctx context.Context) error
	// Runs lists recorded runs, newest first.
	Runs(ctx context.Context, limit int) ([]RunSummary, error)

	Close() error
}

// Drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// New opens the store selected by cfg.Driver and prepares its schema.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverSQLite:
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = ":memory:"
		}
		st, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	}
	return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
}

// SnapshotOf builds the snapshot to store for a successful run.
func SnapshotOf(result *model.PipelineResult) Snapshot {
	return Snapshot{
		RunID:    result.RunID,
		StoredAt: time.Now().UTC(),
		Leads:    result.ScoredLeads,
		Report:   result.QualityReport,
	}
}

func summarize(snap Snapshot) RunSummary {
	rs := RunSummary{
		RunID:     snap.RunID,
		Status:    model.RunStatusSuccess,
		LeadCount: len(snap.Leads),
		StoredAt:  snap.StoredAt,
	}
	if snap.Report != nil {
		rs.SuccessRate = snap.Report.SuccessRate
	}
	return rs
}

const defaultRunLimit = 100
