// Package config defines all configuration structures for the
// CashFlow-Sentinel platform. No I/O or parsing logic lives here, only
// plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the action
// audit store. The database is optional: CLI workflows run entirely from
// CSV files with an in-memory repository when Enabled is false.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters. Redis guards the
// training mutex and caches scoring results; optional like the database.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Apache Kafka producer parameters for risk-scored and
// plan-generated event publication. Optional.
type KafkaConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Brokers         []string `mapstructure:"brokers"`
	TopicPrefix     string   `mapstructure:"topic_prefix"`
	ProducerRetries int      `mapstructure:"producer_retries"`
	BatchSize       int      `mapstructure:"batch_size"`
	TimeoutMS       int      `mapstructure:"timeout_ms"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string `mapstructure:"format"` // "json" | "text"
	Output           string `mapstructure:"output"`
	EnableCaller     bool   `mapstructure:"enable_caller"`
	EnableStacktrace bool   `mapstructure:"enable_stacktrace"`
}

// ModelConfig holds risk-model training and persistence parameters.
type ModelConfig struct {
	Kind              string  `mapstructure:"kind"` // "gradient_boost" | "logistic"
	ArtifactPath      string  `mapstructure:"artifact_path"`
	LateThresholdDays int     `mapstructure:"late_threshold_days"`
	TestSize          float64 `mapstructure:"test_size"`
	CVFolds           int     `mapstructure:"cv_folds"`
	MinTrainingRows   int     `mapstructure:"min_training_rows"`
	Seed              int64   `mapstructure:"seed"`
}

// SchedulerConfig holds collections-scheduler parameters.
type SchedulerConfig struct {
	HorizonDays  int      `mapstructure:"horizon_days"`
	MaxAttempts  int      `mapstructure:"max_attempts"`
	Holidays     []string `mapstructure:"holidays"` // YYYY-MM-DD
	HighValueUSD float64  `mapstructure:"high_value_usd"`
}

// AnalyticsConfig holds cash-forecast parameters.
type AnalyticsConfig struct {
	ForecastPayProbability float64 `mapstructure:"forecast_pay_probability"`
	ForecastSlipDays       int     `mapstructure:"forecast_slip_days"`
	MonteCarloRuns         int     `mapstructure:"monte_carlo_runs"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the entire platform.
// Every infrastructure component and application service reads its
// settings from the relevant sub-struct.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Log       LogConfig       `mapstructure:"log"`
	Model     ModelConfig     `mapstructure:"model"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error
// as fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Database (only when enabled)
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required when database is enabled")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("config: database.user is required when database is enabled")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required when database is enabled")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
		}
	}

	// Redis (only when enabled)
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required when redis is enabled")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
		}
	}

	// Kafka (only when enabled)
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|text", c.Log.Format)
	}

	// Model
	switch c.Model.Kind {
	case "gradient_boost", "logistic":
	default:
		return fmt.Errorf("config: model.kind %q is invalid; expected gradient_boost|logistic", c.Model.Kind)
	}
	if c.Model.TestSize <= 0 || c.Model.TestSize >= 1 {
		return fmt.Errorf("config: model.test_size %.2f is out of range (0, 1)", c.Model.TestSize)
	}
	if c.Model.CVFolds < 2 {
		return fmt.Errorf("config: model.cv_folds must be ≥ 2, got %d", c.Model.CVFolds)
	}
	if c.Model.LateThresholdDays < 0 {
		return fmt.Errorf("config: model.late_threshold_days must be ≥ 0, got %d", c.Model.LateThresholdDays)
	}
	if c.Model.MinTrainingRows < 1 {
		return fmt.Errorf("config: model.min_training_rows must be ≥ 1, got %d", c.Model.MinTrainingRows)
	}

	// Scheduler
	if c.Scheduler.HorizonDays < 1 {
		return fmt.Errorf("config: scheduler.horizon_days must be ≥ 1, got %d", c.Scheduler.HorizonDays)
	}
	if c.Scheduler.MaxAttempts < 1 {
		return fmt.Errorf("config: scheduler.max_attempts must be ≥ 1, got %d", c.Scheduler.MaxAttempts)
	}
	for _, h := range c.Scheduler.Holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return fmt.Errorf("config: scheduler.holidays entry %q is not YYYY-MM-DD", h)
		}
	}

	// Analytics
	if c.Analytics.ForecastPayProbability <= 0 || c.Analytics.ForecastPayProbability > 1 {
		return fmt.Errorf("config: analytics.forecast_pay_probability %.2f is out of range (0, 1]",
			c.Analytics.ForecastPayProbability)
	}
	if c.Analytics.MonteCarloRuns < 1 {
		return fmt.Errorf("config: analytics.monte_carlo_runs must be ≥ 1, got %d", c.Analytics.MonteCarloRuns)
	}

	return nil
}

// HolidaySet parses the configured holiday dates into the lookup form used
// by the scheduler's business-day arithmetic. Entries are validated by
// Validate, so parse failures here are skipped silently.
func (c *Config) HolidaySet() map[time.Time]struct{} {
	set := make(map[time.Time]struct{}, len(c.Scheduler.Holidays))
	for _, h := range c.Scheduler.Holidays {
		if t, err := time.Parse("2006-01-02", h); err == nil {
			set[t.UTC()] = struct{}{}
		}
	}
	return set
}
