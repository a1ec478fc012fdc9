// Package config provides configuration loading, defaults, and validation
// for the CashFlow-Sentinel platform.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "cfsentinel"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisDB        = 0
	DefaultRedisKeyPrefix = "cfs:"

	DefaultKafkaBroker      = "localhost:9092"
	DefaultKafkaTopicPrefix = "cfs"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultModelKind         = "gradient_boost"
	DefaultModelArtifactPath = "models/risk_model.json"
	DefaultLateThresholdDays = 7
	DefaultTestSize          = 0.25
	DefaultCVFolds           = 5
	DefaultMinTrainingRows   = 50
	DefaultModelSeed         = 42

	DefaultSchedulerHorizonDays = 30
	DefaultSchedulerMaxAttempts = 7
	DefaultHighValueUSD         = 10000

	DefaultForecastPayProbability = 0.8
	DefaultForecastSlipDays       = 7
	DefaultMonteCarloRuns         = 1000

	DefaultMetricsPath = "/metrics"
)

// ApplyDefaults fills every zero-value field in cfg with the platform
// default. Fields already set by the caller are left unchanged so that
// explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ──────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 8 << 20
	}

	// ── Database ────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30 * time.Minute
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "migrations"
	}

	// ── Redis ───────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 15 * time.Minute
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Kafka ───────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.TopicPrefix == "" {
		cfg.Kafka.TopicPrefix = DefaultKafkaTopicPrefix
	}
	if cfg.Kafka.ProducerRetries == 0 {
		cfg.Kafka.ProducerRetries = 3
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = 100
	}
	if cfg.Kafka.TimeoutMS == 0 {
		cfg.Kafka.TimeoutMS = 10000
	}

	// ── Log ─────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	// ── Model ───────────────────────────────────────────────────────────────
	if cfg.Model.Kind == "" {
		cfg.Model.Kind = DefaultModelKind
	}
	if cfg.Model.ArtifactPath == "" {
		cfg.Model.ArtifactPath = DefaultModelArtifactPath
	}
	if cfg.Model.LateThresholdDays == 0 {
		cfg.Model.LateThresholdDays = DefaultLateThresholdDays
	}
	if cfg.Model.TestSize == 0 {
		cfg.Model.TestSize = DefaultTestSize
	}
	if cfg.Model.CVFolds == 0 {
		cfg.Model.CVFolds = DefaultCVFolds
	}
	if cfg.Model.MinTrainingRows == 0 {
		cfg.Model.MinTrainingRows = DefaultMinTrainingRows
	}
	if cfg.Model.Seed == 0 {
		cfg.Model.Seed = DefaultModelSeed
	}

	// ── Scheduler ───────────────────────────────────────────────────────────
	if cfg.Scheduler.HorizonDays == 0 {
		cfg.Scheduler.HorizonDays = DefaultSchedulerHorizonDays
	}
	if cfg.Scheduler.MaxAttempts == 0 {
		cfg.Scheduler.MaxAttempts = DefaultSchedulerMaxAttempts
	}
	if cfg.Scheduler.HighValueUSD == 0 {
		cfg.Scheduler.HighValueUSD = DefaultHighValueUSD
	}

	// ── Analytics ───────────────────────────────────────────────────────────
	if cfg.Analytics.ForecastPayProbability == 0 {
		cfg.Analytics.ForecastPayProbability = DefaultForecastPayProbability
	}
	if cfg.Analytics.ForecastSlipDays == 0 {
		cfg.Analytics.ForecastSlipDays = DefaultForecastSlipDays
	}
	if cfg.Analytics.MonteCarloRuns == 0 {
		cfg.Analytics.MonteCarloRuns = DefaultMonteCarloRuns
	}

	// ── Metrics ─────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}
