package port

import "context"

// Instrumentation records application-level metrics.
type Instrumentation interface {
	RecordAnalysisDuration(ctx context.Context, ms float64)
	IncrementSimulationCount(ctx context.Context)
	IncrementSimulationFailures(ctx context.Context)
	RecordSimulationDuration(ctx context.Context, ms float64)
	RecordToolDuration(ctx context.Context, ms float64)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) RecordAnalysisDuration(context.Context, float64)   {}
func (NoopInstrumentation) IncrementSimulationCount(context.Context)          {}
func (NoopInstrumentation) IncrementSimulationFailures(context.Context)       {}
func (NoopInstrumentation) RecordSimulationDuration(context.Context, float64) {}
func (NoopInstrumentation) RecordToolDuration(context.Context, float64)       {}
