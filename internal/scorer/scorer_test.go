package scorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/lookup"
	"github.com/sells-group/leadscore/internal/model"
)

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := New(DefaultScoringConfig(), lookup.MustDefault(), 4)
	require.NoError(t, err)
	return s
}

func lead(title, size, industry string, emailValid *bool) model.Lead {
	return model.Lead{
		ID: 1, Name: "Jane Doe", Email: "jane@acme.io", Company: "Acme",
		JobTitle: title, CompanySize: size, Industry: industry, EmailValid: emailValid, Enriched: true,
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.RawMax = cfg.RawMin

	_, err := New(cfg, lookup.MustDefault(), 1)
	assert.Error(t, err)
}

func TestScore_Scenarios(t *testing.T) {
	s := newScorer(t)

	tests := []struct {
		name  string
		lead  model.Lead
		raw   float64
		score float64
	}{
		{"ceo at large tech", lead("CEO", model.SizeEnterprise, "technology", model.BoolPtr(true)), 35, 100},
		{"manager at unknown company", lead("Manager", model.SizeUnknown, model.IndustryUnspecified, model.BoolPtr(true)), 13, 51.1},
		{"analyst with invalid email", lead("Analyst", model.SizeUnknown, model.IndustryUnspecified, model.BoolPtr(false)), -5, 11.1},
		{"intern worst case", lead("Intern", model.SizeMicro, "", model.BoolPtr(false)), -6, 8.9},
		{"adjacent industry", lead("Director", model.SizeMid, "E-Commerce", nil), 19, 64.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.lead)
			assert.InDelta(t, tt.raw, got.ScoreBreakdown.RawTotal, 0.001)
			assert.InDelta(t, tt.score, got.Score, 0.001)
			assert.Equal(t, got.Score, got.ScoreBreakdown.TotalScore)
			assert.Len(t, got.ScoreBreakdown.Factors, 4)
		})
	}
}

func TestScore_JobTitleRules(t *testing.T) {
	s := newScorer(t)

	tests := []struct {
		title  string
		points float64
	}{
		{"Chief Revenue Officer", 10},
		{"Co-Founder", 10},
		{"President", 9},
		{"VP of Sales", 7},
		{"Director of Sales", 7},
		{"Head of Engineering", 6},
		{"Senior Manager", 5},
		{"Team Lead", 4},
		{"Software Engineer", 3},
		{"Marketing Coordinator", 2},
		{"Executive Assistant", 1},
		{"Barista", 2},
		{"", 2},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			f := s.Score(lead(tt.title, "", "", nil)).ScoreBreakdown.Factors[model.FactorJobTitle]
			assert.InDelta(t, tt.points, f.Points, 0.001)
			assert.NotEmpty(t, f.Reason)
		})
	}
}

func TestScore_JobTitleWordForms(t *testing.T) {
	s := newScorer(t)

	tests := []struct {
		title  string
		points float64
	}{
		{"Directors of Sales", 7},
		{"Team Leader", 4},
		{"Senior Managers", 5},
		{"Founders Office", 10},
		{"Engineering Leadership", 4},
		{"Managing Director", 7},
		{"Coordinator", 2},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			f := s.Score(lead(tt.title, "", "", nil)).ScoreBreakdown.Factors[model.FactorJobTitle]
			assert.InDelta(t, tt.points, f.Points, 0.001)
		})
	}
}

func TestScore_Reasons(t *testing.T) {
	s := newScorer(t)

	got := s.Score(lead("CEO", model.SizeEnterprise, "technology", model.BoolPtr(true)))
	assert.Equal(t, "Job title 'CEO' matches 'ceo' pattern", got.ScoreBreakdown.Factors[model.FactorJobTitle].Reason)

	fallback := s.Score(lead("Barista", "", "", nil))
	assert.Contains(t, fallback.ScoreBreakdown.Factors[model.FactorJobTitle].Reason, "baseline")
	assert.Equal(t, "Company size unknown", fallback.ScoreBreakdown.Factors[model.FactorCompanySize].Reason)
	assert.Equal(t, "Industry unspecified", fallback.ScoreBreakdown.Factors[model.FactorIndustry].Reason)
	assert.Equal(t, "Email validity undetermined", fallback.ScoreBreakdown.Factors[model.FactorEmail].Reason)

	odd := s.Score(lead("CEO", "huge", "Hospitality", nil))
	assert.Contains(t, odd.ScoreBreakdown.Factors[model.FactorCompanySize].Reason, "not recognised")
	assert.Contains(t, odd.ScoreBreakdown.Factors[model.FactorIndustry].Reason, "outside target")
}

func TestScore_Bounds(t *testing.T) {
	s := newScorer(t)

	titles := []string{"CEO", "Intern", "Barista", ""}
	sizes := []string{model.SizeEnterprise, model.SizeMicro, model.SizeUnknown, "", "weird"}
	industries := []string{"technology", "media", "Hospitality", ""}
	emails := []*bool{model.BoolPtr(true), model.BoolPtr(false), nil}

	for _, ti := range titles {
		for _, sz := range sizes {
			for _, in := range industries {
				for _, em := range emails {
					got := s.Score(lead(ti, sz, in, em))
					assert.GreaterOrEqual(t, got.Score, 0.0)
					assert.LessOrEqual(t, got.Score, 100.0)
				}
			}
		}
	}
}

func TestScore_Monotonic(t *testing.T) {
	s := newScorer(t)

	for _, sz := range []string{model.SizeEnterprise, model.SizeUnknown} {
		for _, em := range []*bool{model.BoolPtr(true), model.BoolPtr(false), nil} {
			ceo := s.Score(lead("CEO", sz, "technology", em))
			analyst := s.Score(lead("Analyst", sz, "technology", em))
			assert.GreaterOrEqual(t, ceo.Score, analyst.Score)
		}
	}
}

func TestNormalize_Clamps(t *testing.T) {
	s := newScorer(t)

	assert.InDelta(t, 0.0, s.Normalize(-50), 0.001)
	assert.InDelta(t, 100.0, s.Normalize(80), 0.001)
	assert.InDelta(t, 50.0, s.Normalize(12.5), 0.001)
}

func TestScoreAll_PreservesOrder(t *testing.T) {
	s := newScorer(t)

	leads := make([]model.Lead, 50)
	for i := range leads {
		leads[i] = lead("Manager", "", "", nil)
		leads[i].ID = i + 1
	}

	out, err := s.ScoreAll(context.Background(), leads)
	require.NoError(t, err)
	require.Len(t, out, 50)
	for i, sl := range out {
		assert.Equal(t, i+1, sl.ID)
	}
}
