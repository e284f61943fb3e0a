package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/guillermoBallester/indexlens"

// Instruments holds pre-created OTel metric instruments. It implements
// port.Instrumentation.
type Instruments struct {
	AnalysisDuration   metric.Float64Histogram
	SimulationCount    metric.Int64Counter
	SimulationFailures metric.Int64Counter
	SimulationDuration metric.Float64Histogram
	ToolDuration       metric.Float64Histogram
}

// NewInstruments creates metric instruments from the global MeterProvider.
func NewInstruments() *Instruments {
	return newInstrumentsFromMeter(otel.Meter(meterName))
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return newInstrumentsFromMeter(noop.NewMeterProvider().Meter(meterName))
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	analysisDuration, _ := meter.Float64Histogram("indexlens.analysis.duration",
		metric.WithDescription("Time to fetch metadata and score one table in milliseconds"),
		metric.WithUnit("ms"),
	)
	simCount, _ := meter.Int64Counter("indexlens.simulation.count",
		metric.WithDescription("Total number of simulated index drops"),
	)
	simFailures, _ := meter.Int64Counter("indexlens.simulation.failures",
		metric.WithDescription("Simulated index drops that produced no usable result"),
	)
	simDuration, _ := meter.Float64Histogram("indexlens.simulation.duration",
		metric.WithDescription("Single index drop simulation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	toolDuration, _ := meter.Float64Histogram("indexlens.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		AnalysisDuration:   analysisDuration,
		SimulationCount:    simCount,
		SimulationFailures: simFailures,
		SimulationDuration: simDuration,
		ToolDuration:       toolDuration,
	}
}

func (i *Instruments) RecordAnalysisDuration(ctx context.Context, ms float64) {
	i.AnalysisDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementSimulationCount(ctx context.Context) {
	i.SimulationCount.Add(ctx, 1)
}

func (i *Instruments) IncrementSimulationFailures(ctx context.Context) {
	i.SimulationFailures.Add(ctx, 1)
}

func (i *Instruments) RecordSimulationDuration(ctx context.Context, ms float64) {
	i.SimulationDuration.Record(ctx, ms)
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
