package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/config"
)

func TestDefaultScoringConfig_MatchesViperDefaults(t *testing.T) {
	assert.Equal(t, config.Default().Scoring, DefaultScoringConfig())
}

func TestRawSpan(t *testing.T) {
	assert.InDelta(t, 45.0, RawSpan(DefaultScoringConfig()), 0.001)
}

func TestValidateConfig(t *testing.T) {
	t.Run("valid default config", func(t *testing.T) {
		cfg := DefaultScoringConfig()
		err := ValidateConfig(cfg)
		require.NoError(t, err)
	})

	t.Run("inverted raw range", func(t *testing.T) {
		cfg := DefaultScoringConfig()
		cfg.RawMin = 40
		err := ValidateConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "raw_max must be > raw_min")
	})

	t.Run("points outside raw range", func(t *testing.T) {
		cfg := DefaultScoringConfig()
		cfg.TargetPoints = 50
		err := ValidateConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "target_points must be within [raw_min, raw_max]")
	})

	t.Run("penalty above reward", func(t *testing.T) {
		cfg := DefaultScoringConfig()
		cfg.EmailInvalidPoints = 6
		err := ValidateConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email_invalid_points must be <= email_valid_points")
	})

	t.Run("adjacent above target", func(t *testing.T) {
		cfg := DefaultScoringConfig()
		cfg.AdjacentPoints = 11
		err := ValidateConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "adjacent_points must be <= target_points")
	})

	t.Run("threshold out of range", func(t *testing.T) {
		cfg := DefaultScoringConfig()
		cfg.HighQualityThreshold = 150
		err := ValidateConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "high_quality_threshold must be between 0 and 100")
	})

	t.Run("negative decimals", func(t *testing.T) {
		cfg := DefaultScoringConfig()
		cfg.Decimals = -1
		err := ValidateConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decimals must be between 0 and 6")
	})
}
