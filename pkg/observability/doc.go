// Package observability provides structured logging and Prometheus metrics.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("route", "Role").Info("endpoint seeded")
//
// Loggers travel through context so handlers and services share request
// scoped fields:
//
//	ctx = observability.WithLogger(ctx, logger)
//	observability.FromContext(ctx).WithError(err).Error("login failed")
//
// # Prometheus Metrics
//
// Initialize metrics against a registry and mount the endpoint:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	observability.RegisterMetricsEndpoint(mux, registry)
//
// # Related Packages
//
//   - pkg/config: observability configuration
//   - pkg/httputil: request logging middleware
package observability
