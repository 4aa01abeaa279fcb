package scorer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/lookup"
	"github.com/sells-group/leadscore/internal/model"
)

type titleRule struct {
	points  float64
	phrases []lookup.Phrase
}

// Scorer evaluates leads against the scoring policy. It holds no mutable
// state and is safe for concurrent use.
type Scorer struct {
	cfg        config.ScoringConfig
	workers    int
	titleRules []titleRule
	sizePoints map[string]float64
	target     map[string]struct{}
	adjacent   map[string]struct{}
}

// New validates cfg and compiles the title and size tables.
func New(cfg config.ScoringConfig, tables *lookup.Tables, workers int) (*Scorer, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	s := &Scorer{
		cfg:        cfg,
		workers:    workers,
		sizePoints: tables.CompanySizePoints,
		target:     lookup.Set(lowered(cfg.TargetIndustries)),
		adjacent:   lookup.Set(lowered(cfg.AdjacentIndustries)),
	}
	for _, r := range tables.JobTitleRules {
		tr := titleRule{points: r.Points}
		for _, kw := range r.Keywords {
			tr.phrases = append(tr.phrases, lookup.NewPhrase(kw))
		}
		s.titleRules = append(s.titleRules, tr)
	}
	return s, nil
}

// ScoreAll scores leads in parallel. Output order matches input order.
func (s *Scorer) ScoreAll(ctx context.Context, leads []model.Lead) ([]model.ScoredLead, error) {
	out := make([]model.ScoredLead, len(leads))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range leads {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			out[i] = s.Score(leads[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "scorer: score leads")
	}
	return out, nil
}

// Score computes the score and breakdown for one lead.
func (s *Scorer) Score(lead model.Lead) model.ScoredLead {
	factors := map[string]model.ScoreFactor{
		model.FactorJobTitle:    s.jobTitle(lead.JobTitle),
		model.FactorCompanySize: s.companySize(lead.CompanySize),
		model.FactorIndustry:    s.industry(lead.Industry),
		model.FactorEmail:       s.email(lead.EmailValid),
	}

	var raw float64
	for _, f := range factors {
		raw += f.Points
	}
	score := s.Normalize(raw)

	return model.ScoredLead{
		Lead:  lead,
		Score: score,
		ScoreBreakdown: model.ScoreBreakdown{
			Factors:    factors,
			RawTotal:   raw,
			TotalScore: score,
		},
	}
}

// Normalize maps a raw total onto 0-100 and rounds half away from zero.
func (s *Scorer) Normalize(raw float64) float64 {
	score := (raw - s.cfg.RawMin) / RawSpan(s.cfg) * 100
	score = math.Max(0, math.Min(100, score))
	p := math.Pow(10, float64(s.cfg.Decimals))
	return math.Round(score*p) / p
}

func (s *Scorer) jobTitle(title string) model.ScoreFactor {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.ScoreFactor{
			Points: s.cfg.JobTitleBaseline,
			Reason: "Job title missing; baseline applied",
		}
	}
	text := lookup.NewText(title)
	for _, rule := range s.titleRules {
		for _, p := range rule.phrases {
			if p.Within(text) {
				return model.ScoreFactor{
					Points: rule.points,
					Reason: fmt.Sprintf("Job title '%s' matches '%s' pattern", title, p.Text),
				}
			}
		}
	}
	return model.ScoreFactor{
		Points: s.cfg.JobTitleBaseline,
		Reason: fmt.Sprintf("Job title '%s' matches no pattern; baseline applied", title),
	}
}

func (s *Scorer) companySize(size string) model.ScoreFactor {
	size = strings.TrimSpace(size)
	if size == "" || size == model.SizeUnknown {
		return model.ScoreFactor{
			Points: s.cfg.UnknownSizePoints,
			Reason: "Company size unknown",
		}
	}
	if p, ok := s.sizePoints[size]; ok {
		return model.ScoreFactor{
			Points: p,
			Reason: fmt.Sprintf("Company size %s employees", size),
		}
	}
	return model.ScoreFactor{
		Points: s.cfg.UnknownSizePoints,
		Reason: fmt.Sprintf("Company size '%s' not recognised; treated as unknown", size),
	}
}

func (s *Scorer) industry(industry string) model.ScoreFactor {
	key := strings.ToLower(strings.TrimSpace(industry))
	if _, ok := s.target[key]; ok {
		return model.ScoreFactor{
			Points: s.cfg.TargetPoints,
			Reason: fmt.Sprintf("Industry '%s' is a target industry", key),
		}
	}
	if _, ok := s.adjacent[key]; ok {
		return model.ScoreFactor{
			Points: s.cfg.AdjacentPoints,
			Reason: fmt.Sprintf("Industry '%s' is adjacent to target industries", key),
		}
	}
	if key == "" || key == model.IndustryUnspecified {
		return model.ScoreFactor{
			Points: s.cfg.OtherIndustryPoints,
			Reason: "Industry unspecified",
		}
	}
	return model.ScoreFactor{
		Points: s.cfg.OtherIndustryPoints,
		Reason: fmt.Sprintf("Industry '%s' is outside target industries", industry),
	}
}

func (s *Scorer) email(valid *bool) model.ScoreFactor {
	switch {
	case valid == nil:
		return model.ScoreFactor{Points: s.cfg.EmailUnknownPoints, Reason: "Email validity undetermined"}
	case *valid:
		return model.ScoreFactor{Points: s.cfg.EmailValidPoints, Reason: "Email address is valid"}
	default:
		return model.ScoreFactor{Points: s.cfg.EmailInvalidPoints, Reason: "Email address is invalid"}
	}
}

func lowered(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}
