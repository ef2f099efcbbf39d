// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes observability infrastructure for the storage
// server: JSON logging, HTTP/object-store/cache metrics, a health
// checker probing the object store backend, and OpenTelemetry tracing
// integration.
//
// # Structured Logging
//
// Create a logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.Info("starting solidstored")
//
// Context-aware logging:
//
//	logger.WithField("path", path).WithError(err).Error("object store write failed")
//
// # Prometheus Metrics
//
// Initialize metrics against a registry:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.StorageOperationsTotal.WithLabelValues("write", "filesystem", "success").Inc()
//
// Wrap the dispatcher to record HTTP metrics:
//
//	handler = observability.HTTPMetricsMiddleware(metrics)(dispatcher)
//
// # Health Checks
//
// Configure a health checker over the object store:
//
//	checker := observability.NewHealthChecker(storeProbe, rootRef)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # OpenTelemetry
//
// Initialize tracing:
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		ServiceName:    "podspace",
//		ServiceVersion: "1.0.0",
//		Endpoint:       "otel-collector:4317",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Related Packages
//
//   - pkg/config: observability configuration
//   - pkg/object: instruments reads/writes/lists through StorageOperationsTotal
//   - pkg/access: PRP ACR-chain cache metrics (CacheHitsTotal/CacheMissesTotal)
package observability
