package telemetry

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/goalnet/pkg/engine"
)

// Telemetry combines logging, tracing, metrics and the event journal.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Events  *EventLog
	Config  *Config

	metricsServer *http.Server
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	return newTelemetry(cfg, logger)
}

// NewTelemetryWithLogger creates a telemetry instance around an existing
// logger. cfg.Logging is ignored.
func NewTelemetryWithLogger(cfg *Config, logger *Logger) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newTelemetry(cfg, logger)
}

func newTelemetry(cfg *Config, logger *Logger) (*Telemetry, error) {
	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Events:  NewEventLog(cfg.Events),
		Config:  cfg,
	}, nil
}

// WithContext adds the telemetry instance to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	ctx = t.Logger.WithContext(ctx)
	return ctx
}

// FromTelemetryContext retrieves the telemetry instance from the context.
// If no telemetry is found, it returns nil.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Observer returns the planner observer feeding every enabled sink: the
// log, the span of the planning context and the event journal.
func (t *Telemetry) Observer() engine.Observer {
	obs := engine.MultiObserver{NewLogObserver(t.Logger)}
	if t.Tracer.SpanEvents() {
		obs = append(obs, SpanObserver{})
	}
	if t.Events.Enabled() {
		obs = append(obs, t.Events)
	}
	return obs
}

// SearchFunc performs one planning call.
type SearchFunc func(ctx context.Context) (*engine.Result, error)

// Search runs fn inside a search span, records metrics for the outcome and
// logs failures. problem and domain label the span and the log lines.
func (t *Telemetry) Search(ctx context.Context, problem, domain string, goals int, fn SearchFunc) (*engine.Result, error) {
	ctx, span := t.Tracer.StartSearchSpan(ctx, problem, domain, goals)
	defer span.End()

	logger := t.Logger.WithProblem(problem, domain)
	if span.SpanContext().IsValid() {
		logger = logger.WithFields(map[string]interface{}{
			"trace_id": span.SpanContext().TraceID().String(),
			"span_id":  span.SpanContext().SpanID().String(),
		})
	}
	ctx = logger.WithContext(ctx)

	timer := NewTimer()
	t.Metrics.SearchStarted()
	defer t.Metrics.SearchFinished()

	result, err := fn(ctx)
	if err != nil {
		RecordError(span, err)
		t.Metrics.RecordSearchError(err, timer.Duration())
		logger.WithError(err).Error("search aborted")
		return nil, err
	}

	RecordResult(span, result)
	RecordSuccess(span)
	t.Metrics.RecordSearch(result)
	if !result.Found() {
		logger.WithSearchID(result.ID).Warn("no plan found")
	}
	return result, nil
}

// StartOperation begins a span for a non-search operation such as loading a
// problem file or evaluating policy.
func (t *Telemetry) StartOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.Tracer.StartSpan(ctx, operation, attrs...)
}

// Shutdown gracefully shuts down all telemetry components.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.metricsServer != nil {
		if err := t.metricsServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	return t.Tracer.Shutdown(ctx)
}

// Flush forces all pending telemetry data to be exported.
func (t *Telemetry) Flush(ctx context.Context) error {
	return t.Tracer.ForceFlush(ctx)
}

// StartMetricsServer starts the metrics HTTP server if metrics are enabled.
func (t *Telemetry) StartMetricsServer() error {
	server, err := t.Metrics.StartMetricsServer(t.Logger)
	if err != nil {
		return err
	}
	t.metricsServer = server
	return nil
}
