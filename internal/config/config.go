package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/linkscope/audit-cli/internal/alert"
	"github.com/linkscope/audit-cli/internal/health"
	"github.com/linkscope/audit-cli/internal/integrity"
	"github.com/linkscope/audit-cli/internal/runner"
	"github.com/linkscope/audit-cli/internal/scoring"
	"github.com/linkscope/audit-cli/internal/trend"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig      `yaml:"store" mapstructure:"store"`
	Profiles  ProfilesConfig   `yaml:"profiles" mapstructure:"profiles"`
	Fixtures  FixturesConfig   `yaml:"fixtures" mapstructure:"fixtures"`
	Runner    runner.Config    `yaml:"runner" mapstructure:"runner"`
	Scoring   scoring.Config   `yaml:"scoring" mapstructure:"scoring"`
	Integrity integrity.Config `yaml:"integrity" mapstructure:"integrity"`
	Health    health.Config    `yaml:"health" mapstructure:"health"`
	Trend     trend.Config     `yaml:"trend" mapstructure:"trend"`
	Alert     alert.Config     `yaml:"alert" mapstructure:"alert"`
	Server    ServerConfig     `yaml:"server" mapstructure:"server"`
	Log       LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ProfilesConfig locates the expectation oracle.
type ProfilesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// FixturesConfig locates the optional scripted extractor fixtures.
type FixturesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the status API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("AUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "audit.db")
	v.SetDefault("profiles.path", "profiles.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)

	v.SetDefault("runner.max_retries", 3)
	v.SetDefault("runner.attempt_timeout", "30s")
	v.SetDefault("runner.initial_backoff", "1s")
	v.SetDefault("runner.max_backoff", "30s")
	v.SetDefault("runner.multiplier", 2.0)
	v.SetDefault("runner.jitter_fraction", 0.25)
	v.SetDefault("runner.pace_interval", "2s")
	v.SetDefault("runner.concurrency", 1)
	v.SetDefault("runner.run_budget", "0s")

	v.SetDefault("scoring.keyword_overlap_threshold", 0.8)
	v.SetDefault("scoring.follower_pass_credit", 0.5)

	v.SetDefault("integrity.penalty_critical", 50)
	v.SetDefault("integrity.penalty_high", 30)
	v.SetDefault("integrity.penalty_medium", 15)
	v.SetDefault("integrity.penalty_low", 5)
	v.SetDefault("integrity.keyword_mismatch_critical", 0.8)
	v.SetDefault("integrity.follower_low_fraction", 0.5)
	v.SetDefault("integrity.follower_high_fraction", 3.0)

	v.SetDefault("health.weight_success_rate", 0.4)
	v.SetDefault("health.weight_accuracy", 0.3)
	v.SetDefault("health.weight_completeness", 0.2)
	v.SetDefault("health.weight_response_time", 0.1)
	v.SetDefault("health.response_time_divisor_ms", 100)

	v.SetDefault("trend.retention_days", 30)
	v.SetDefault("trend.window_days", 7)
	v.SetDefault("trend.degrade_delta_points", 10)
	v.SetDefault("trend.critical_delta_points", 20)
	v.SetDefault("trend.degrade_response_ms", 5000)
	v.SetDefault("trend.improve_delta_points", 10)

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
