// Package observability provides the operational surface of the service:
// structured JSON logging, Prometheus metrics, health probes, panic
// recovery, OpenTelemetry tracing, and graceful shutdown coordination.
//
// The logger wraps stdlib slog with a small chainable API:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("subject", id).Info("profile updated")
//
// Metrics are registered on a dedicated registry so tests can create
// isolated instances:
//
//	metrics := observability.NewMetrics()
//	mux.Handle("/metrics", metrics.Handler())
//
// Health checks probe the database and Redis dependencies and back the
// /healthz (liveness) and /readyz (readiness) endpoints.
package observability
