package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/openfroyo/goalnet/pkg/engine"
)

// Tracer wraps the OpenTelemetry tracer for planning calls.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TracingConfig
}

// NewTracer creates a new tracer with the given configuration.
func NewTracer(cfg TracingConfig, serviceName, serviceVersion, environment string) (*Tracer, error) {
	if !cfg.Enabled {
		return &Tracer{
			provider: sdktrace.NewTracerProvider(),
			tracer:   otel.Tracer(serviceName),
			config:   cfg,
		}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
			attribute.String("environment", environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "otlp":
		exporter, err = createOTLPExporter(cfg)
	case "stdout":
		exporter, err = createStdoutExporter()
	case "none":
		// Spans are created and sampled but never exported.
		exporter = nil
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	sampler := sdktrace.ParentBased(
		sdktrace.TraceIDRatioBased(cfg.SamplingRate),
	)

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	}

	if exporter != nil {
		batch := []sdktrace.BatchSpanProcessorOption{}
		if cfg.MaxExportBatchSize > 0 {
			batch = append(batch, sdktrace.WithMaxExportBatchSize(cfg.MaxExportBatchSize))
		}
		if cfg.ExportTimeout > 0 {
			batch = append(batch, sdktrace.WithExportTimeout(cfg.ExportTimeout))
		}
		opts = append(opts, sdktrace.WithBatcher(exporter, batch...))
	}

	provider := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
		config:   cfg,
	}, nil
}

// createOTLPExporter creates an OTLP gRPC exporter.
func createOTLPExporter(cfg TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithUserAgent("goalnet")),
	}

	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}

	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	return otlptracegrpc.New(context.Background(), opts...)
}

// createStdoutExporter creates a stdout exporter for debugging.
func createStdoutExporter() (sdktrace.SpanExporter, error) {
	return stdouttrace.New(
		stdouttrace.WithPrettyPrint(),
	)
}

// Start begins a new span with the given name.
func (t *Tracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName, opts...)
}

// StartSpan is a convenience method that starts a span with common attributes.
func (t *Tracer) StartSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, operation, trace.WithAttributes(attrs...))
}

// StartSearchSpan starts a span covering one planning call.
func (t *Tracer) StartSearchSpan(ctx context.Context, problem, domain string, goals int) (context.Context, trace.Span) {
	return t.StartSpan(ctx, "goalnet.plan",
		AttrProblem.String(problem),
		AttrDomain.String(domain),
		AttrGoalCount.Int(goals),
	)
}

// SpanEvents reports whether trace events should be copied onto spans.
func (t *Tracer) SpanEvents() bool {
	return t.config.Enabled && t.config.SpanEvents
}

// RecordError records an error on the span along with its classification.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	if class := engine.ClassOf(err); class != "" {
		span.SetAttributes(
			AttrErrorClass.String(string(class)),
			AttrErrorCode.String(engine.CodeOf(err)),
		)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordSuccess marks the span as successful.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// RecordResult annotates the span with the outcome of a planning call.
func RecordResult(span trace.Span, result *engine.Result) {
	if result == nil {
		return
	}
	span.SetAttributes(
		AttrSearchID.String(result.ID),
		AttrSearchStatus.String(string(result.Status)),
		AttrFrames.Int(result.Stats.Frames),
		AttrMaxDepth.Int(result.Stats.MaxDepth),
		AttrBacktracks.Int(result.Stats.Backtracks),
	)
	if result.Found() {
		span.SetAttributes(AttrPlanLength.Int(len(result.Plan)))
	}
}

// AddEvent adds an event to the span.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SpanObserver copies planner trace events onto the span carried by the
// planning context.
type SpanObserver struct{}

// Observe implements engine.Observer.
func (SpanObserver) Observe(ctx context.Context, ev engine.TraceEvent) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{AttrDepth.Int(ev.Depth)}
	if ev.Goal != nil {
		attrs = append(attrs, AttrGoal.String(ev.Goal.String()))
	}
	if ev.Capability != "" {
		attrs = append(attrs, AttrCapability.String(ev.Capability))
	}
	if ev.Action != nil {
		attrs = append(attrs, AttrAction.String(ev.Action.String()))
	}
	AddEvent(span, string(ev.Type), attrs...)
}

// Shutdown gracefully shuts down the tracer, flushing any pending spans.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// ForceFlush forces all pending spans to be exported immediately.
func (t *Tracer) ForceFlush(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.ForceFlush(ctx)
}

// TraceID returns the trace ID of the current span in the context.
func TraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// SpanID returns the span ID of the current span in the context.
func SpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().SpanID().String()
}

// Attribute keys for planner spans.
var (
	AttrSearchID     = attribute.Key("goalnet.search.id")
	AttrSearchStatus = attribute.Key("goalnet.search.status")
	AttrProblem      = attribute.Key("goalnet.problem")
	AttrDomain       = attribute.Key("goalnet.domain")
	AttrGoalCount    = attribute.Key("goalnet.goals")
	AttrFrames       = attribute.Key("goalnet.search.frames")
	AttrMaxDepth     = attribute.Key("goalnet.search.max_depth")
	AttrBacktracks   = attribute.Key("goalnet.search.backtracks")
	AttrPlanLength   = attribute.Key("goalnet.plan.length")

	AttrDepth      = attribute.Key("goalnet.depth")
	AttrGoal       = attribute.Key("goalnet.goal")
	AttrCapability = attribute.Key("goalnet.capability")
	AttrAction     = attribute.Key("goalnet.action")

	AttrErrorClass = attribute.Key("error.class")
	AttrErrorCode  = attribute.Key("error.code")
)
