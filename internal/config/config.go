package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Intake   IntakeConfig   `yaml:"intake" mapstructure:"intake"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Lookup   LookupConfig   `yaml:"lookup" mapstructure:"lookup"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	UploadsPerSecond float64  `yaml:"uploads_per_second" mapstructure:"uploads_per_second"`
	UploadBurst      int      `yaml:"upload_burst" mapstructure:"upload_burst"`
	PageSize         int      `yaml:"page_size" mapstructure:"page_size"`
}

// IntakeConfig bounds what the caller layer hands to the pipeline.
type IntakeConfig struct {
	MaxRows  int   `yaml:"max_rows" mapstructure:"max_rows"`
	MaxBytes int64 `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// PipelineConfig configures validation policy and stage execution.
type PipelineConfig struct {
	Workers                int            `yaml:"workers" mapstructure:"workers"`
	MinValidRatio          float64        `yaml:"min_valid_ratio" mapstructure:"min_valid_ratio"`
	PersonalEmailWarnRatio float64        `yaml:"personal_email_warn_ratio" mapstructure:"personal_email_warn_ratio"`
	PlaceholderWarnRatio   float64        `yaml:"placeholder_warn_ratio" mapstructure:"placeholder_warn_ratio"`
	SparseColumnRatio      float64        `yaml:"sparse_column_ratio" mapstructure:"sparse_column_ratio"`
	MaxFieldLengths        map[string]int `yaml:"max_field_lengths" mapstructure:"max_field_lengths"`
	IssueSamples           int            `yaml:"issue_samples" mapstructure:"issue_samples"`
}

// ScoringConfig holds the numeric scoring policy. Keyword and bucket tables
// live in the lookup package.
type ScoringConfig struct {
	JobTitleBaseline     float64  `yaml:"job_title_baseline" mapstructure:"job_title_baseline"`
	UnknownSizePoints    float64  `yaml:"unknown_size_points" mapstructure:"unknown_size_points"`
	TargetIndustries     []string `yaml:"target_industries" mapstructure:"target_industries"`
	AdjacentIndustries   []string `yaml:"adjacent_industries" mapstructure:"adjacent_industries"`
	TargetPoints         float64  `yaml:"target_points" mapstructure:"target_points"`
	AdjacentPoints       float64  `yaml:"adjacent_points" mapstructure:"adjacent_points"`
	OtherIndustryPoints  float64  `yaml:"other_industry_points" mapstructure:"other_industry_points"`
	EmailValidPoints     float64  `yaml:"email_valid_points" mapstructure:"email_valid_points"`
	EmailInvalidPoints   float64  `yaml:"email_invalid_points" mapstructure:"email_invalid_points"`
	EmailUnknownPoints   float64  `yaml:"email_unknown_points" mapstructure:"email_unknown_points"`
	RawMin               float64  `yaml:"raw_min" mapstructure:"raw_min"`
	RawMax               float64  `yaml:"raw_max" mapstructure:"raw_max"`
	Decimals             int      `yaml:"decimals" mapstructure:"decimals"`
	HighQualityThreshold float64  `yaml:"high_quality_threshold" mapstructure:"high_quality_threshold"`
}

// StoreConfig configures the current-leads store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LookupConfig points at an alternative lookup tables document.
type LookupConfig struct {
	TablesPath string `yaml:"tables_path" mapstructure:"tables_path"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.uploads_per_second", 2.0)
	v.SetDefault("server.upload_burst", 4)
	v.SetDefault("server.page_size", 50)

	v.SetDefault("intake.max_rows", 10000)
	v.SetDefault("intake.max_bytes", 10<<20)

	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.min_valid_ratio", 0.5)
	v.SetDefault("pipeline.personal_email_warn_ratio", 0.5)
	v.SetDefault("pipeline.placeholder_warn_ratio", 0.1)
	v.SetDefault("pipeline.sparse_column_ratio", 0.8)
	v.SetDefault("pipeline.max_field_lengths", map[string]int{
		"name":      100,
		"email":     150,
		"company":   200,
		"job_title": 150,
		"location":  200,
		"industry":  100,
	})
	v.SetDefault("pipeline.issue_samples", 5)

	v.SetDefault("scoring.job_title_baseline", 2)
	v.SetDefault("scoring.unknown_size_points", 3)
	v.SetDefault("scoring.target_industries", []string{"technology", "financial-services", "healthcare"})
	v.SetDefault("scoring.adjacent_industries", []string{"consulting", "e-commerce", "media"})
	v.SetDefault("scoring.target_points", 10)
	v.SetDefault("scoring.adjacent_points", 5)
	v.SetDefault("scoring.other_industry_points", 0)
	v.SetDefault("scoring.email_valid_points", 5)
	v.SetDefault("scoring.email_invalid_points", -10)
	v.SetDefault("scoring.email_unknown_points", 0)
	v.SetDefault("scoring.raw_min", -10)
	v.SetDefault("scoring.raw_max", 35)
	v.SetDefault("scoring.decimals", 1)
	v.SetDefault("scoring.high_quality_threshold", 70)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.database_url", "")
}

// Default returns a Config populated with defaults only.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks the settings needed by the given mode ("run" or "serve").
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.UploadsPerSecond <= 0 {
			errs = append(errs, "server.uploads_per_second must be > 0")
		}
		if c.Server.PageSize <= 0 {
			errs = append(errs, "server.page_size must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Pipeline.Workers < 1 || c.Pipeline.Workers > 64 {
		errs = append(errs, "pipeline.workers must be between 1 and 64")
	}
	if c.Pipeline.MinValidRatio < 0 || c.Pipeline.MinValidRatio > 1 {
		errs = append(errs, "pipeline.min_valid_ratio must be between 0 and 1")
	}
	if c.Intake.MaxRows <= 0 {
		errs = append(errs, "intake.max_rows must be > 0")
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported (memory, sqlite)", c.Store.Driver))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
