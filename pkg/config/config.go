package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/solidstack/podspace/pkg/observability"
)

// Config holds all application configuration. Backend selection
// (filesystem vs S3) and storage-space settings are read directly from
// the environment in cmd/solidstored's buildSpace/buildBackend, since
// they gate which object.Store and space.Space get constructed before
// any of this ambient config is needed.
type Config struct {
	// Server configuration
	Server ServerConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SPOKE_HOST", "0.0.0.0"),
		Port:            getEnv("SPOKE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SPOKE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SPOKE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SPOKE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SPOKE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("SPOKE_HEALTH_PORT", "9090"),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	cfg := ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("SPOKE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("SPOKE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("SPOKE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("SPOKE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("SPOKE_OTEL_SERVICE_NAME", "podspace"),
		OTelServiceVersion: getEnv("SPOKE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("SPOKE_OTEL_INSECURE", true),
	}

	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
