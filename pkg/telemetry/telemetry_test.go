package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/openfroyo/goalnet/pkg/engine"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"no service name", func(c *Config) { c.ServiceName = "" }, true},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"bad exporter", func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Exporter = "jaeger" }, true},
		{"bad sampling", func(c *Config) { c.Tracing.SamplingRate = 2 }, true},
		{"metrics without address", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.ListenAddress = "" }, true},
		{"negative journal", func(c *Config) { c.Events.MaxEvents = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}

	for _, cfg := range []*Config{ProductionConfig(), DevelopmentConfig()} {
		if err := cfg.Validate(); err != nil {
			t.Errorf("Expected preset %s to be valid, got %v", cfg.Environment, err)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("trace").String() != "trace" {
		t.Errorf("Expected trace level")
	}
	if ParseLevel("bogus").String() != "info" {
		t.Errorf("Expected unknown level to map to info")
	}
}

func jsonLogger(level string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLoggerWithWriter(LoggingConfig{Level: level, Format: "json"}, &buf), &buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("Expected JSON log line, got %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLoggerFields(t *testing.T) {
	logger, buf := jsonLogger("info")
	logger.NewComponentLogger("cli").WithProblem("p1", "satellite").WithSearchID("abc").Info("planned")
	logger.Debug("hidden")

	lines := logLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	line := lines[0]
	for k, want := range map[string]string{
		"component": "cli",
		"problem":   "p1",
		"domain":    "satellite",
		"search_id": "abc",
		"message":   "planned",
	} {
		if line[k] != want {
			t.Errorf("Expected %s=%q, got %v", k, want, line[k])
		}
	}
}

func TestLoggerContext(t *testing.T) {
	logger, _ := jsonLogger("info")
	ctx := logger.WithContext(context.Background())
	if FromContext(ctx) != logger {
		t.Errorf("Expected logger from context")
	}
	if FromContext(context.Background()) == nil {
		t.Errorf("Expected a fallback logger")
	}
}

// lampWorld has one operator that switches a lamp on.
func lampWorld() (*engine.Registry, *engine.State, []engine.Goal) {
	reg := engine.NewRegistry()
	reg.RegisterOperators("lit", engine.NewOperator("light", func(s *engine.State, lamp string, v engine.Value) (*engine.State, error) {
		s.Set("lit", lamp, v)
		return s, nil
	}))
	state := engine.NewState("room")
	state.Set("lit", "lamp", engine.Bool(false))
	return reg, state, []engine.Goal{engine.NewGoal("lit", "lamp", true)}
}

func TestLogObserverLevels(t *testing.T) {
	tests := []struct {
		logLevel string
		want     []string
	}{
		{"info", []string{"plan_started", "plan_finished"}},
		{"debug", []string{"plan_started", "frame_entered", "frame_entered", "plan_finished"}},
		{"trace", []string{"plan_started", "frame_entered", "operator_applied", "frame_entered", "plan_returned", "plan_finished"}},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			logger, buf := jsonLogger(tt.logLevel)
			reg, state, goals := lampWorld()
			p := engine.NewPlanner(reg,
				engine.WithObserver(NewLogObserver(logger)),
				engine.WithTraceLevel(engine.TraceDetail),
			)
			if _, err := p.Plan(context.Background(), state, goals); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}

			var got []string
			for _, line := range logLines(t, buf) {
				got = append(got, line["event"].(string))
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Expected events %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLogObserverFinishedFields(t *testing.T) {
	logger, buf := jsonLogger("info")
	reg, state, goals := lampWorld()
	p := engine.NewPlanner(reg, engine.WithObserver(NewLogObserver(logger)), engine.WithTraceLevel(engine.TraceSummary))
	if _, err := p.Plan(context.Background(), state, goals); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	lines := logLines(t, buf)
	last := lines[len(lines)-1]
	if last["status"] != "succeeded" {
		t.Errorf("Expected status succeeded, got %v", last["status"])
	}
	if last["plan"] != "[(light, lamp, true)]" {
		t.Errorf("Expected plan in log, got %v", last["plan"])
	}
	if last["plan_length"] != float64(1) {
		t.Errorf("Expected plan_length 1, got %v", last["plan_length"])
	}
}

func enabledMetrics(t *testing.T) *Metrics {
	t.Helper()
	cfg := DefaultConfig().Metrics
	cfg.Enabled = true
	m, err := NewMetrics(cfg)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return m
}

func TestMetricsRecordSearch(t *testing.T) {
	m := enabledMetrics(t)
	reg, state, goals := lampWorld()
	result, err := engine.NewPlanner(reg).Plan(context.Background(), state, goals)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	m.RecordSearch(result)

	if got := testutil.ToFloat64(m.searches.WithLabelValues("succeeded")); got != 1 {
		t.Errorf("Expected 1 succeeded search, got %v", got)
	}
	if got := testutil.ToFloat64(m.capabilityCalls.WithLabelValues("operator", "applied")); got != 1 {
		t.Errorf("Expected 1 applied operator, got %v", got)
	}
	if got := testutil.CollectAndCount(m.planLength); got != 1 {
		t.Errorf("Expected plan_length to be collected, got %d", got)
	}
}

func TestMetricsRecordSearchError(t *testing.T) {
	m := enabledMetrics(t)
	err := engine.NewResourceError("too deep", nil).WithCode(engine.ErrCodeDepthExceeded)

	m.RecordSearchError(err, time.Millisecond)
	m.RecordSearchError(errors.New("plain"), time.Millisecond)

	if got := testutil.ToFloat64(m.searches.WithLabelValues("error")); got != 2 {
		t.Errorf("Expected 2 errored searches, got %v", got)
	}
	if got := testutil.ToFloat64(m.errorsByCode.WithLabelValues(engine.ErrCodeDepthExceeded)); got != 1 {
		t.Errorf("Expected 1 depth error, got %v", got)
	}
	if got := testutil.ToFloat64(m.errorsByClass.WithLabelValues("unclassified")); got != 1 {
		t.Errorf("Expected 1 unclassified error, got %v", got)
	}
}

func TestMetricsDisabled(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	// All recorders are no-ops.
	m.SearchStarted()
	m.RecordSearch(&engine.Result{Status: engine.SearchStatusSucceeded})
	m.RecordSearchError(errors.New("x"), 0)
	m.RecordPolicyDecision(true)
	m.SearchFinished()

	server, err := m.StartMetricsServer(nil)
	if server != nil || err != nil {
		t.Errorf("Expected no server for disabled metrics")
	}
}

func TestEventLogJournal(t *testing.T) {
	log := NewEventLog(EventsConfig{Enabled: true})
	reg, state, goals := lampWorld()
	p := engine.NewPlanner(reg, engine.WithObserver(log), engine.WithTraceLevel(engine.TraceDetail))
	if _, err := p.Plan(context.Background(), state, goals); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	events := log.Events()
	if len(events) != 6 {
		t.Fatalf("Expected 6 events, got %d", len(events))
	}
	applied := events[2]
	if applied.Type != string(engine.EventOperatorApplied) || applied.Action != "(light, lamp, true)" || applied.Capability != "light" {
		t.Errorf("Unexpected operator event %+v", applied)
	}
	if events[5].Data["status"] != "succeeded" {
		t.Errorf("Expected finished event to carry status, got %v", events[5].Data)
	}
	for i, ev := range events {
		if ev.Sequence != i+1 || ev.ID == "" {
			t.Errorf("Expected sequence %d with an ID, got %d %q", i+1, ev.Sequence, ev.ID)
		}
	}

	var buf bytes.Buffer
	if err := log.WriteJSON(&buf); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 6 {
		t.Errorf("Expected 6 JSON lines, got %d", n)
	}
}

func TestEventLogCapAndFilters(t *testing.T) {
	log := NewEventLog(EventsConfig{Enabled: true, MaxEvents: 2})
	log.AddFilter(FilterByType(engine.EventFrameEntered, engine.EventOperatorApplied))

	var seen []string
	log.Subscribe(func(ev Event) { seen = append(seen, ev.Type) }, FilterByCapability("light"))

	reg, state, goals := lampWorld()
	p := engine.NewPlanner(reg, engine.WithObserver(log), engine.WithTraceLevel(engine.TraceDetail))
	if _, err := p.Plan(context.Background(), state, goals); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// frame, operator, frame pass the filter; the cap keeps the last two.
	events := log.Events()
	if len(events) != 2 || log.Dropped() != 1 {
		t.Fatalf("Expected 2 kept and 1 dropped, got %d and %d", len(events), log.Dropped())
	}
	if events[0].Sequence != 2 || events[1].Type != string(engine.EventFrameEntered) {
		t.Errorf("Unexpected journal %+v", events)
	}
	if len(seen) != 1 || seen[0] != string(engine.EventOperatorApplied) {
		t.Errorf("Expected subscriber to see only the operator event, got %v", seen)
	}

	log.Reset()
	if log.Len() != 0 || log.Dropped() != 0 {
		t.Errorf("Expected empty journal after reset")
	}
}

func TestEventLogDisabled(t *testing.T) {
	log := NewEventLog(EventsConfig{})
	log.Publish(Event{Type: "x"})
	if log.Len() != 0 {
		t.Errorf("Expected disabled journal to stay empty")
	}
}

func TestEventFilters(t *testing.T) {
	ev := Event{Type: "frame_entered", Level: 2, Depth: 5, Capability: "drive"}
	if !FilterByLevel(engine.TraceFrames)(ev) || FilterByLevel(engine.TraceSummary)(ev) {
		t.Errorf("FilterByLevel mismatch")
	}
	if !FilterByMaxDepth(5)(ev) || FilterByMaxDepth(4)(ev) {
		t.Errorf("FilterByMaxDepth mismatch")
	}
	if !FilterByCapability("drive")(ev) || FilterByCapability("fly")(ev) {
		t.Errorf("FilterByCapability mismatch")
	}
}

func TestSpanObserver(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := &Tracer{provider: provider, tracer: provider.Tracer("test"), config: TracingConfig{Enabled: true, SpanEvents: true}}

	ctx, span := tracer.StartSearchSpan(context.Background(), "room", "lights", 1)
	reg, state, goals := lampWorld()
	p := engine.NewPlanner(reg, engine.WithObserver(SpanObserver{}), engine.WithTraceLevel(engine.TraceDetail))
	result, err := p.Plan(ctx, state, goals)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	RecordResult(span, result)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	if n := len(spans[0].Events()); n != 6 {
		t.Errorf("Expected 6 span events, got %d", n)
	}
	if spans[0].Name() != "goalnet.plan" {
		t.Errorf("Expected span goalnet.plan, got %s", spans[0].Name())
	}
}

func TestTelemetrySearch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Events.Enabled = true
	logger, buf := jsonLogger("info")

	tel, err := NewTelemetryWithLogger(cfg, logger)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer tel.Shutdown(context.Background())

	reg, state, goals := lampWorld()
	p := engine.NewPlanner(reg, engine.WithObserver(tel.Observer()), engine.WithTraceLevel(engine.TraceSummary))

	result, err := tel.Search(context.Background(), "room", "lights", 1, func(ctx context.Context) (*engine.Result, error) {
		return p.Plan(ctx, state, goals)
	})
	if err != nil || !result.Found() {
		t.Fatalf("Expected a plan, got %v %v", result, err)
	}
	if tel.Events.Len() != 2 {
		t.Errorf("Expected 2 journaled events, got %d", tel.Events.Len())
	}
	if got := testutil.ToFloat64(tel.Metrics.searches.WithLabelValues("succeeded")); got != 1 {
		t.Errorf("Expected 1 succeeded search, got %v", got)
	}
	if got := testutil.ToFloat64(tel.Metrics.activeSearches); got != 0 {
		t.Errorf("Expected no active searches, got %v", got)
	}

	boom := engine.NewDomainError("operator failed", errors.New("boom"))
	_, err = tel.Search(context.Background(), "room", "lights", 1, func(context.Context) (*engine.Result, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected the search error back, got %v", err)
	}
	if !strings.Contains(buf.String(), "search aborted") {
		t.Errorf("Expected aborted search to be logged")
	}
	if got := testutil.ToFloat64(tel.Metrics.errorsByClass.WithLabelValues("domain")); got != 1 {
		t.Errorf("Expected 1 domain error, got %v", got)
	}
}

func TestTelemetryContext(t *testing.T) {
	tel, err := NewTelemetryWithLogger(DefaultConfig(), NewNopLogger())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	ctx := tel.WithContext(context.Background())
	if FromTelemetryContext(ctx) != tel {
		t.Errorf("Expected telemetry from context")
	}
	if FromTelemetryContext(context.Background()) != nil {
		t.Errorf("Expected nil telemetry for bare context")
	}
}
