// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/assetwatch/assetwatch/internal/model"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL) for the alert archive; optional
	DatabaseURL string `env:"DATABASE_URL"`

	// Cache (Redis) for versions, purges and streams; optional
	RedisURL string `env:"REDIS_URL"`

	// Prefix for resolved asset URLs (e.g., https://cdn.example.com)
	AssetBaseURL string `env:"ASSET_BASE_URL" envDefault:""`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Monitoring
	MonitoringEnabled           bool          `env:"MONITORING_ENABLED" envDefault:"true"`
	MonitoringSampleRate        float64       `env:"MONITORING_SAMPLE_RATE" envDefault:"1.0"`
	MonitoringMaxMetrics        int           `env:"MONITORING_MAX_METRICS" envDefault:"1000"`
	MonitoringMaxAlerts         int           `env:"MONITORING_MAX_ALERTS" envDefault:"100"`
	MonitoringReportingInterval time.Duration `env:"MONITORING_REPORTING_INTERVAL" envDefault:"60s"`

	// Alert thresholds; zero disables a rule
	AlertMaxLoadTimeMs          float64 `env:"ALERT_MAX_LOAD_TIME_MS" envDefault:"3000"`
	AlertMaxErrorRatePercent    float64 `env:"ALERT_MAX_ERROR_RATE_PERCENT" envDefault:"5"`
	AlertMinAvailabilityPercent float64 `env:"ALERT_MIN_AVAILABILITY_PERCENT" envDefault:"95"`
	AlertDeduplicate            bool    `env:"ALERT_DEDUPLICATE" envDefault:"true"`

	// Signed alert webhook; disabled when the URL is empty
	AlertWebhookURL          string `env:"ALERT_WEBHOOK_URL" envDefault:""`
	AlertWebhookSecret       string `env:"ALERT_WEBHOOK_SECRET" envDefault:""`
	AlertWebhookAllowPrivate bool   `env:"ALERT_WEBHOOK_ALLOW_PRIVATE" envDefault:"false"`

	// Object storage (S3) purge target and ETag fingerprints
	S3Bucket       string `env:"S3_BUCKET" envDefault:""`
	S3Region       string `env:"S3_REGION" envDefault:"us-east-1"`
	S3CacheControl string `env:"S3_CACHE_CONTROL" envDefault:"public, max-age=31536000"`

	// Invalidation
	InvalidationConcurrency int           `env:"INVALIDATION_CONCURRENCY" envDefault:"8"`
	InvalidationRatePerSec  float64       `env:"INVALIDATION_RATE_PER_SEC" envDefault:"50"`
	InvalidationBurst       int           `env:"INVALIDATION_BURST" envDefault:"10"`
	InvalidationTimeout     time.Duration `env:"INVALIDATION_TIMEOUT" envDefault:"10s"`

	// Operator tokens for mutating routes as prefix=argon2id-hash entries;
	// empty leaves the routes open
	AdminTokens []string `env:"ADMIN_TOKENS" envSeparator:";"`

	// Run the Redis stream ingest worker; requires REDIS_URL
	IngestEnabled bool `env:"INGEST_ENABLED" envDefault:"false"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MonitoringConfig projects the monitoring variables into the engine config.
func (c *Config) MonitoringConfig() model.MonitoringConfig {
	return model.MonitoringConfig{
		Enabled:    c.MonitoringEnabled,
		SampleRate: c.MonitoringSampleRate,
		AlertThresholds: model.AlertThresholds{
			LoadTimeMs:          c.AlertMaxLoadTimeMs,
			ErrorRatePercent:    c.AlertMaxErrorRatePercent,
			AvailabilityPercent: c.AlertMinAvailabilityPercent,
		},
		ReportingInterval: c.MonitoringReportingInterval,
		MaxMetrics:        c.MonitoringMaxMetrics,
		MaxAlerts:         c.MonitoringMaxAlerts,
		DeduplicateAlerts: c.AlertDeduplicate,
	}.Sanitize()
}

// Validate rejects combinations that cannot start.
func (c *Config) Validate() error {
	if c.IngestEnabled && c.RedisURL == "" {
		return fmt.Errorf("INGEST_ENABLED requires REDIS_URL")
	}
	if c.AlertWebhookURL != "" && c.AlertWebhookSecret == "" {
		return fmt.Errorf("ALERT_WEBHOOK_URL requires ALERT_WEBHOOK_SECRET")
	}
	if c.InvalidationConcurrency < 1 {
		return fmt.Errorf("INVALIDATION_CONCURRENCY must be positive, got %d", c.InvalidationConcurrency)
	}
	if c.InvalidationRatePerSec < 0 {
		return fmt.Errorf("INVALIDATION_RATE_PER_SEC must not be negative")
	}
	return nil
}

// Load parses environment variables and returns a Config.
// Returns an error if a variable is malformed or the combination is invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
