package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/leadscore/internal/model"
)

// --- Enricher Mock ---

type mockEnricher struct {
	mock.Mock
}

func (m *mockEnricher) EnrichAll(ctx context.Context, leads []model.Lead) ([]model.Lead, []model.RowIssue, error) {
	args := m.Called(ctx, leads)
	var out []model.Lead
	if v := args.Get(0); v != nil {
		out = v.([]model.Lead)
	}
	var issues []model.RowIssue
	if v := args.Get(1); v != nil {
		issues = v.([]model.RowIssue)
	}
	return out, issues, args.Error(2)
}

// --- Scorer Mock ---

type mockScorer struct {
	mock.Mock
}

func (m *mockScorer) ScoreAll(ctx context.Context, leads []model.Lead) ([]model.ScoredLead, error) {
	args := m.Called(ctx, leads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ScoredLead), args.Error(1)
}

// --- Stage fakes ---

// funcStage adapts a function into a Stage.
type funcStage struct {
	name model.StageName
	fn   func(ctx context.Context, b *Batch) (Telemetry, error)
}

func (s *funcStage) Name() model.StageName { return s.name }

func (s *funcStage) Process(ctx context.Context, b *Batch) (Telemetry, error) {
	return s.fn(ctx, b)
}
