// Package config defines the global configuration for the notification
// service. Configuration is loaded once at process initialization and is
// immutable thereafter, following 12-Factor principles: values come from
// the OS environment, with a dotenv file as a development convenience.
//
// Any missing required value or invalid format fails startup immediately.
package config

import (
	"time"

	"freightline/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only
// the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"freightline-notifier"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Realtime      RealtimeConfig
	Directory     DirectoryConfig
	Localization  LocalizationConfig
	Retention     RetentionConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	EventQueue string `envconfig:"SQS_NOTIFICATION_EVENTS" validate:"required,url"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// RealtimeConfig holds the NATS connection settings for realtime fan-out.
type RealtimeConfig struct {
	URL   string       `envconfig:"NATS_URL" validate:"required"`
	Token SecretString `envconfig:"NATS_TOKEN"`
}

// DirectoryConfig holds the platform directory GraphQL API settings.
type DirectoryConfig struct {
	Endpoint  string        `envconfig:"DIRECTORY_GRAPHQL_URL" validate:"required,url"`
	Timeout   time.Duration `envconfig:"DIRECTORY_TIMEOUT" default:"10s"`
	UserAgent string        `envconfig:"DIRECTORY_USER_AGENT" default:"Freightline-Notifier/1.0"`
}

// LocalizationConfig selects the server-side rendering locale for push.
type LocalizationConfig struct {
	Locale string `envconfig:"PUSH_LOCALE" default:"en"`
}

// RetentionConfig controls pruning of old notification records.
type RetentionConfig struct {
	// MaxAge is how long notification records are kept. The default keeps
	// 90 days of history.
	MaxAge time.Duration `envconfig:"NOTIFICATION_RETENTION" default:"2160h"`

	// SweepInterval is how often the retention sweep runs.
	SweepInterval time.Duration `envconfig:"RETENTION_SWEEP_INTERVAL" default:"1h"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"Freightline/Notifications"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
