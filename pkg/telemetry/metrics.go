package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openfroyo/goalnet/pkg/engine"
)

// Metrics provides Prometheus metrics for planning calls.
type Metrics struct {
	config MetricsConfig

	// Search metrics
	searches       *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	searchFrames   prometheus.Histogram
	searchDepth    prometheus.Histogram
	planLength     prometheus.Histogram

	// Capability metrics
	capabilityCalls *prometheus.CounterVec
	backtracks      prometheus.Counter
	satisfiedSkips  prometheus.Counter

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	// Policy metrics
	policyDecisions *prometheus.CounterVec

	activeSearches prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
// A disabled configuration yields a collector whose methods are no-ops.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DurationBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	sizeBuckets := prometheus.ExponentialBuckets(1, 4, 10)

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Total number of planning calls by outcome",
			},
			[]string{"status"},
		),
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Duration of planning calls in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),
		searchFrames: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_frames",
				Help:      "Number of search frames entered per planning call",
				Buckets:   sizeBuckets,
			},
		),
		searchDepth: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_depth",
				Help:      "Deepest search frame reached per planning call",
				Buckets:   sizeBuckets,
			},
		),
		planLength: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "plan_length",
				Help:      "Number of actions in found plans",
				Buckets:   prometheus.LinearBuckets(0, 5, 12),
			},
		),

		capabilityCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "capability_calls_total",
				Help:      "Operator and method invocations by outcome",
			},
			[]string{"kind", "outcome"},
		),
		backtracks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backtracks_total",
				Help:      "Total number of search frames that returned failure",
			},
		),
		satisfiedSkips: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "satisfied_skips_total",
				Help:      "Total number of goals skipped because they already held",
			},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of planning errors by class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of planning errors by code",
			},
			[]string{"code"},
		),

		policyDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_decisions_total",
				Help:      "Plan admission decisions",
			},
			[]string{"decision"},
		),

		activeSearches: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_searches",
				Help:      "Current number of planning calls in progress",
			},
		),
	}

	registry.MustRegister(
		m.searches,
		m.searchDuration,
		m.searchFrames,
		m.searchDepth,
		m.planLength,
		m.capabilityCalls,
		m.backtracks,
		m.satisfiedSkips,
		m.errorsByClass,
		m.errorsByCode,
		m.policyDecisions,
		m.activeSearches,
	)

	return m, nil
}

// Registry returns the underlying Prometheus registry, or nil when metrics
// are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Search Metrics

// SearchStarted marks a planning call as in progress.
func (m *Metrics) SearchStarted() {
	if m.activeSearches == nil {
		return
	}
	m.activeSearches.Inc()
}

// RecordSearch records a completed planning call and the work it did.
func (m *Metrics) RecordSearch(result *engine.Result) {
	if m.searches == nil || result == nil {
		return
	}
	status := string(result.Status)
	m.searches.WithLabelValues(status).Inc()
	m.searchDuration.WithLabelValues(status).Observe(result.Duration.Seconds())
	m.searchFrames.Observe(float64(result.Stats.Frames))
	m.searchDepth.Observe(float64(result.Stats.MaxDepth))
	if result.Found() {
		m.planLength.Observe(float64(len(result.Plan)))
	}

	st := result.Stats
	m.capabilityCalls.WithLabelValues("operator", "applied").Add(float64(st.OperatorsApplied))
	m.capabilityCalls.WithLabelValues("operator", "inapplicable").Add(float64(st.OperatorAttempts - st.OperatorsApplied))
	m.capabilityCalls.WithLabelValues("method", "expanded").Add(float64(st.MethodsExpanded))
	m.capabilityCalls.WithLabelValues("method", "inapplicable").Add(float64(st.MethodAttempts - st.MethodsExpanded))
	m.backtracks.Add(float64(st.Backtracks))
	m.satisfiedSkips.Add(float64(st.SatisfiedSkips))
}

// RecordSearchError records a planning call that ended with an error.
func (m *Metrics) RecordSearchError(err error, duration time.Duration) {
	if m.searches == nil || err == nil {
		return
	}
	m.searches.WithLabelValues("error").Inc()
	m.searchDuration.WithLabelValues("error").Observe(duration.Seconds())
	m.RecordError(string(engine.ClassOf(err)), engine.CodeOf(err))
}

// SearchFinished marks a planning call as no longer in progress.
func (m *Metrics) SearchFinished() {
	if m.activeSearches == nil {
		return
	}
	m.activeSearches.Dec()
}

// Error Metrics

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m.errorsByClass == nil {
		return
	}
	if errorClass == "" {
		errorClass = "unclassified"
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// Policy Metrics

// RecordPolicyDecision records a plan admission decision.
func (m *Metrics) RecordPolicyDecision(allowed bool) {
	if m.policyDecisions == nil {
		return
	}
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	m.policyDecisions.WithLabelValues(decision).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics. The returned
// server can be shut down by the caller; it is nil when metrics are disabled.
func (m *Metrics) StartMetricsServer(logger *Logger) (*http.Server, error) {
	if !m.config.Enabled {
		return nil, nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.WithError(err).Error("metrics server stopped")
				return
			}
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return server, nil
}
