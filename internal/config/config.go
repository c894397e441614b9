package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Readiness ReadinessConfig `yaml:"readiness" mapstructure:"readiness"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	DefaultModel   string  `yaml:"default_model" mapstructure:"default_model"`
	RequestTimeout int     `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	RatePerSecond  float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst      int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// PipelineConfig configures stage behavior.
type PipelineConfig struct {
	MaxSourceChars      int `yaml:"max_source_chars" mapstructure:"max_source_chars"`
	DefaultMaxQuestions int `yaml:"default_max_questions" mapstructure:"default_max_questions"`
	MaxQuestions        int `yaml:"max_questions" mapstructure:"max_questions"`
	RetryAttempts       int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// ReadinessConfig holds the documented thresholds for downstream readiness
// evaluation. Completion values are percentages in [0,100].
type ReadinessConfig struct {
	MarketCompletionPct   float64  `yaml:"market_completion_pct" mapstructure:"market_completion_pct"`
	PersonaCompletionPct  float64  `yaml:"persona_completion_pct" mapstructure:"persona_completion_pct"`
	ProposalCompletionPct float64  `yaml:"proposal_completion_pct" mapstructure:"proposal_completion_pct"`
	ProposalMinConfidence float64  `yaml:"proposal_min_confidence" mapstructure:"proposal_min_confidence"`
	MarketCategories      []string `yaml:"market_categories" mapstructure:"market_categories"`
	PersonaCategories     []string `yaml:"persona_categories" mapstructure:"persona_categories"`
}

// IngestConfig configures the bounded ingestion worker pool.
type IngestConfig struct {
	Workers   int `yaml:"workers" mapstructure:"workers"`
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `yaml:"port" mapstructure:"port"`
	APIToken string `yaml:"api_token" mapstructure:"api_token"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RFP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.default_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.request_timeout_secs", 120)
	v.SetDefault("anthropic.rate_per_second", 2)
	v.SetDefault("anthropic.rate_burst", 4)
	v.SetDefault("pipeline.max_source_chars", 60000)
	v.SetDefault("pipeline.default_max_questions", 8)
	v.SetDefault("pipeline.max_questions", 20)
	v.SetDefault("pipeline.retry_attempts", 3)
	v.SetDefault("readiness.market_completion_pct", 50)
	v.SetDefault("readiness.persona_completion_pct", 60)
	v.SetDefault("readiness.proposal_completion_pct", 75)
	v.SetDefault("readiness.proposal_min_confidence", 0.6)
	v.SetDefault("readiness.market_categories", []string{"market", "competition", "business"})
	v.SetDefault("readiness.persona_categories", []string{"persona", "target_audience", "users"})
	v.SetDefault("ingest.workers", 2)
	v.SetDefault("ingest.queue_size", 32)

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
