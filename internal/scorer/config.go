// Package scorer computes the 0-100 priority score of an enriched lead from
// four independent rule-based factors.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/config"
)

// DefaultScoringConfig returns a config.ScoringConfig with the standard policy.
// Factor maxima sum to RawMax; the email penalty sets RawMin.
func DefaultScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		JobTitleBaseline:  2,
		UnknownSizePoints: 3,

		TargetIndustries:    []string{"technology", "financial-services", "healthcare"},
		AdjacentIndustries:  []string{"consulting", "e-commerce", "media"},
		TargetPoints:        10,
		AdjacentPoints:      5,
		OtherIndustryPoints: 0,

		EmailValidPoints:   5,
		EmailInvalidPoints: -10,
		EmailUnknownPoints: 0,

		// Normalisation range.
		RawMin:   -10,
		RawMax:   35,
		Decimals: 1,

		HighQualityThreshold: 70,
	}
}

// RawSpan returns the width of the raw score range.
func RawSpan(c config.ScoringConfig) float64 {
	return c.RawMax - c.RawMin
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	// Factor points must sit inside the raw range.
	points := map[string]float64{
		"job_title_baseline":    c.JobTitleBaseline,
		"unknown_size_points":   c.UnknownSizePoints,
		"target_points":         c.TargetPoints,
		"adjacent_points":       c.AdjacentPoints,
		"other_industry_points": c.OtherIndustryPoints,
		"email_valid_points":    c.EmailValidPoints,
		"email_invalid_points":  c.EmailInvalidPoints,
		"email_unknown_points":  c.EmailUnknownPoints,
	}
	for name, p := range points {
		if p < c.RawMin || p > c.RawMax {
			errs = append(errs, fmt.Sprintf("%s must be within [raw_min, raw_max], got %.1f", name, p))
		}
	}

	if RawSpan(c) <= 0 {
		errs = append(errs, "raw_max must be > raw_min")
	}
	if c.EmailInvalidPoints > c.EmailValidPoints {
		errs = append(errs, "email_invalid_points must be <= email_valid_points")
	}
	if c.AdjacentPoints > c.TargetPoints {
		errs = append(errs, "adjacent_points must be <= target_points")
	}
	if c.Decimals < 0 || c.Decimals > 6 {
		errs = append(errs, "decimals must be between 0 and 6")
	}
	if c.HighQualityThreshold < 0 || c.HighQualityThreshold > 100 {
		errs = append(errs, "high_quality_threshold must be between 0 and 100")
	}
	if math.IsNaN(c.RawMin) || math.IsNaN(c.RawMax) {
		errs = append(errs, "raw bounds must be numbers")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
