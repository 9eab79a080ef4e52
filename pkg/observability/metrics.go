package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authentication metrics
	LoginsTotal        *prometheus.CounterVec
	TokenRefreshTotal  *prometheus.CounterVec
	PasswordResetTotal *prometheus.CounterVec

	// Authorization metrics
	AuthzDecisionsTotal *prometheus.CounterVec
	AuthzCacheHitsTotal   prometheus.Counter
	AuthzCacheMissesTotal prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Maintenance metrics
	RefreshTokensPurged prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warden_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_logins_total",
				Help: "Total number of login attempts",
			},
			[]string{"method", "outcome"},
		),
		TokenRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_token_refresh_total",
				Help: "Total number of refresh-token exchanges",
			},
			[]string{"outcome"},
		),
		PasswordResetTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_password_reset_total",
				Help: "Total number of password reset requests",
			},
			[]string{"stage"},
		),

		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_authz_decisions_total",
				Help: "Total number of endpoint authorization decisions",
			},
			[]string{"decision"},
		),
		AuthzCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_authz_cache_hits_total",
				Help: "Total number of permitted-role cache hits",
			},
		),
		AuthzCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_authz_cache_misses_total",
				Help: "Total number of permitted-role cache misses",
			},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "warden_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "warden_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		RefreshTokensPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_refresh_tokens_purged_total",
				Help: "Total number of expired refresh tokens purged",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginsTotal,
		m.TokenRefreshTotal,
		m.PasswordResetTotal,
		m.AuthzDecisionsTotal,
		m.AuthzCacheHitsTotal,
		m.AuthzCacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.RefreshTokensPurged,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// CollectDBStats copies database pool statistics into gauges. Call it on a
// timer; database/sql has no hook for push-based updates.
func (m *Metrics) CollectDBStats(stats func() (inUse, idle int)) {
	inUse, idle := stats()
	m.DBConnectionsActive.Set(float64(inUse))
	m.DBConnectionsIdle.Set(float64(idle))
}
