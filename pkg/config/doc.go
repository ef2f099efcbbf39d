// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates the ambient configuration this server
// needs before any storage space or object-store backend is constructed:
// the HTTP server's listener settings and the observability stack
// (logging, metrics, OpenTelemetry). Backend selection (filesystem vs S3)
// and storage-space settings (root URI, owner WebID, aux policy) are read
// directly from the environment in cmd/solidstored's buildSpace/
// buildBackend, since those gate which object.Store and space.Space get
// constructed before this package's settings are needed.
//
// # Configuration Structure
//
// Server settings:
//
//	SPOKE_HOST="0.0.0.0"
//	SPOKE_PORT="8080"
//	SPOKE_HEALTH_PORT="9090"
//	SPOKE_READ_TIMEOUT="15s"
//	SPOKE_WRITE_TIMEOUT="15s"
//	SPOKE_IDLE_TIMEOUT="60s"
//	SPOKE_SHUTDOWN_TIMEOUT="30s"
//
// Observability settings:
//
//	SPOKE_LOG_LEVEL="info"  # debug, info, warn, error
//	SPOKE_METRICS_ENABLED="true"
//	SPOKE_OTEL_ENABLED="false"
//	SPOKE_OTEL_ENDPOINT="localhost:4317"
//	SPOKE_OTEL_SERVICE_NAME="podspace"
//	SPOKE_OTEL_SERVICE_VERSION="1.0.0"
//	SPOKE_OTEL_INSECURE="true"
//
// Storage-space and backend settings (read in cmd/solidstored, not this
// package):
//
//	SOLID_ROOT_URI="http://localhost:8080/"
//	SOLID_OWNER_WEBID="http://localhost:8080/profile/card#me"
//	SOLID_BACKEND="filesystem"  # filesystem, s3
//	SOLID_FS_ROOT="./data"
//	SOLID_S3_BUCKET="..."
//	SOLID_DEV_MODE="false"
//	SOLID_REDIRECT_IF_MUTEX_EXISTS="false"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Log level: %v\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - cmd/solidstored: reads SOLID_* backend/storage-space settings and
//     wires this package's Config into the rest of the server
//   - pkg/observability: consumes ObservabilityConfig
package config
