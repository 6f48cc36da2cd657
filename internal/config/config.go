// Package config loads application configuration from file and environment.
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
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	EDGAR   EDGARConfig   `yaml:"edgar" mapstructure:"edgar"`
	Ingest  IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "postgres" or "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// EDGARConfig configures the disclosure-source fetch client.
type EDGARConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec    int    `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst         int    `yaml:"burst" mapstructure:"burst"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries    int    `yaml:"max_retries" mapstructure:"max_retries"`
	LookbackYears int    `yaml:"lookback_years" mapstructure:"lookback_years"`
}

// IngestConfig configures the batch ingestion pass.
type IngestConfig struct {
	UniverseFile           string `yaml:"universe_file" mapstructure:"universe_file"`
	MaxConcurrentCompanies int    `yaml:"max_concurrent_companies" mapstructure:"max_concurrent_companies"`
}

// ScoringConfig configures the composite prospect scoring model.
type ScoringConfig struct {
	PainWeight     float64 `yaml:"pain_weight" mapstructure:"pain_weight"`
	AbilityWeight  float64 `yaml:"ability_weight" mapstructure:"ability_weight"`
	UrgencyWeight  float64 `yaml:"urgency_weight" mapstructure:"urgency_weight"`
	RevenueCeiling float64 `yaml:"revenue_ceiling" mapstructure:"revenue_ceiling"`
	TrendYears     int     `yaml:"trend_years" mapstructure:"trend_years"`
}

// ServerConfig configures the read-only scores API server.
type ServerConfig struct {
	Port         int    `yaml:"port" mapstructure:"port"`
	CronSchedule string `yaml:"cron_schedule" mapstructure:"cron_schedule"` // empty disables scheduled ingest
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and the environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INSURINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("edgar.base_url", "https://data.sec.gov")
	v.SetDefault("edgar.user_agent", "insurintel admin@insurintel.example.com")
	v.SetDefault("edgar.rate_per_sec", 8)
	v.SetDefault("edgar.burst", 8)
	v.SetDefault("edgar.timeout_secs", 30)
	v.SetDefault("edgar.max_retries", 3)
	v.SetDefault("edgar.lookback_years", 5)
	v.SetDefault("ingest.universe_file", "companies.yaml")
	v.SetDefault("ingest.max_concurrent_companies", 1)
	v.SetDefault("scoring.pain_weight", 0.5)
	v.SetDefault("scoring.ability_weight", 0.2)
	v.SetDefault("scoring.urgency_weight", 0.3)
	v.SetDefault("scoring.revenue_ceiling", 10_000_000_000)
	v.SetDefault("scoring.trend_years", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
