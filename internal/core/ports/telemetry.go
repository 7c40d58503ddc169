package ports

import "context"

//go:generate mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Tracer is the entry point for creating spans.
type Tracer interface {
	// Start creates a new span.
	Start(ctx context.Context, name string) (context.Context, Span)
}

// Span represents a unit of work.
type Span interface {
	// End completes the span.
	End()
	// RecordError records an error for the span.
	RecordError(err error)
	// SetAttribute adds a key-value pair to the span.
	SetAttribute(key string, value any)
}

// Metrics records build and chain outcomes.
type Metrics interface {
	// ObserveBuild records one finished build run on a worker.
	ObserveBuild(outcome string, seconds float64)
	// ObserveTarget records one finished chain target on the orchestrator.
	ObserveTarget(target, result string, seconds float64)
	// ObserveRelay records one closed relay session on a worker.
	ObserveRelay(result string)
}
