package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all engine configuration, loaded once at startup.
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Messaging MessagingConfig
	Outbox    OutboxConfig
	Retry     RetryConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds process-wide settings.
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig selects and configures the outbox store backend.
type DatabaseConfig struct {
	Type        string // postgres | mysql | in-memory
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// MessagingConfig selects and configures the broker transport.
type MessagingConfig struct {
	Type             string // kafka | rabbit | in-memory | redis-streams
	Brokers          []string
	ConsumerEnabled  bool
	ProducerEnabled  bool
	ConsumerGroup    string
	InputChannel     string
	OutputChannel    string
}

// OutboxConfig controls the processor/janitor worker loops.
type OutboxConfig struct {
	BatchSize       int
	PollInterval    time.Duration
	Retention       time.Duration
	JanitorInterval time.Duration
}

// RetryConfig sets the engine-wide default ceiling for Try retry policies.
type RetryConfig struct {
	MaxAttempts   int
	MaxBackoff    time.Duration
	JitterEnabled bool
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	EnablePprof    bool
	PprofPort      int
	EnableTracing  bool
	EnableMetrics  bool
	MetricsPort    int
	TracingBackend string
}

// Load loads configuration from environment variables.
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Type:        getEnv("DATABASE_TYPE", "postgres"),
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "workflowkernel"),
			User:        getEnv("POSTGRES_USER", "workflowkernel"),
			Password:    getEnv("POSTGRES_PASSWORD", "workflowkernel"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Messaging: MessagingConfig{
			Type:            getEnv("MESSAGING_TYPE", "in-memory"),
			Brokers:         getEnvSlice("MESSAGING_BROKERS", []string{"localhost:9092"}),
			ConsumerEnabled: getEnvBool("MESSAGING_CONSUMER_ENABLED", true),
			ProducerEnabled: getEnvBool("MESSAGING_PRODUCER_ENABLED", true),
			ConsumerGroup:   getEnv("MESSAGING_CONSUMER_GROUP", "workflowkernel"),
			InputChannel:    getEnv("MESSAGING_INPUT_CHANNEL", "workflow.advance"),
			OutputChannel:   getEnv("MESSAGING_OUTPUT_CHANNEL", "workflow.advance"),
		},
		Outbox: OutboxConfig{
			BatchSize:       getEnvInt("OUTBOX_BATCH_SIZE", 100),
			PollInterval:    getEnvDuration("OUTBOX_POLL_INTERVAL", 1*time.Second),
			Retention:       getEnvDuration("OUTBOX_RETENTION", 24*time.Hour),
			JanitorInterval: getEnvDuration("OUTBOX_JANITOR_INTERVAL", 1*time.Minute),
		},
		Retry: RetryConfig{
			MaxAttempts:   getEnvInt("RETRY_MAX_ATTEMPTS", 10),
			MaxBackoff:    getEnvDuration("RETRY_MAX_BACKOFF", 1*time.Hour),
			JitterEnabled: getEnvBool("RETRY_JITTER_ENABLED", true),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:    getEnvBool("ENABLE_PPROF", false),
			PprofPort:      getEnvInt("PPROF_PORT", 6060),
			EnableTracing:  getEnvBool("ENABLE_TRACING", false),
			EnableMetrics:  getEnvBool("ENABLE_METRICS", true),
			MetricsPort:    getEnvInt("METRICS_PORT", 9090),
			TracingBackend: getEnv("TRACING_BACKEND", "stdout"),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks invariants a malformed configuration would violate.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	switch c.Database.Type {
	case "postgres", "mysql", "in-memory":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	switch c.Messaging.Type {
	case "kafka", "rabbit", "in-memory", "redis-streams":
	default:
		return fmt.Errorf("unsupported messaging type: %s", c.Messaging.Type)
	}

	if c.Database.Type != "in-memory" && c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("outbox batch size must be positive")
	}

	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry max attempts must be positive")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
