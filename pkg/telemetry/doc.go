// Package telemetry provides observability for goalnet planning calls.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus) and an in-memory event journal, and
// connects all four to the planner through a single engine.Observer.
//
// # Usage
//
// Initialize telemetry at startup and hand its observer to the planner:
//
//	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	planner := engine.NewPlanner(reg,
//	    engine.WithObserver(tel.Observer()),
//	    engine.WithTraceLevel(engine.TraceFrames),
//	)
//
//	result, err := tel.Search(ctx, "within-city", "logistics", len(goals),
//	    func(ctx context.Context) (*engine.Result, error) {
//	        return planner.Plan(ctx, state, goals)
//	    })
//
// Search opens a span, counts the call in the metrics and logs an aborted
// search. Because the planner passes the search context to its observer,
// SpanObserver attaches trace events to the same span.
//
// # Structured Logging
//
// LogObserver maps planner trace levels onto log levels: summary events at
// info, frame events at debug and detailed events at trace. Raising the
// planner trace level without lowering the log level therefore has no
// visible effect.
//
//	logger := tel.Logger.NewComponentLogger("cli")
//	logger.WithProblem("p10", "satellite").Info("loaded problem")
//
// # Metrics
//
// Key metrics exposed:
//
//   - goalnet_searches_total{status}
//   - goalnet_search_duration_seconds{status}
//   - goalnet_search_frames
//   - goalnet_search_depth
//   - goalnet_plan_length
//   - goalnet_capability_calls_total{kind,outcome}
//   - goalnet_backtracks_total
//   - goalnet_errors_by_class_total{class}
//   - goalnet_policy_decisions_total{decision}
//   - goalnet_active_searches
//
// Metrics are exposed via HTTP at /metrics when enabled.
//
// # Event Journal
//
// EventLog keeps the trace events of recent searches in memory, capped at
// EventsConfig.MaxEvents, and can write them out as JSON lines:
//
//	tel.Events.AddFilter(telemetry.FilterByMaxDepth(20))
//	...
//	tel.Events.WriteJSON(os.Stdout)
//
// # Graceful Shutdown
//
// Always shut down telemetry to flush pending spans and stop the metrics
// server:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	_ = tel.Shutdown(ctx)
package telemetry
