package telemetry

import (
	"context"
	"testing"

	"github.com/guillermoBallester/indexlens/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var _ port.Instrumentation = (*Instruments)(nil)

func TestNoopTracer(t *testing.T) {
	tracer := NoopTracer()
	assert.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "test")
	assert.NotNil(t, span)
	span.End()
}

func TestNoopInstruments(t *testing.T) {
	inst := NoopInstruments()
	require.NotNil(t, inst)

	// Should not panic.
	ctx := context.Background()
	inst.RecordAnalysisDuration(ctx, 12)
	inst.IncrementSimulationCount(ctx)
	inst.IncrementSimulationFailures(ctx)
	inst.RecordSimulationDuration(ctx, 100)
	inst.RecordToolDuration(ctx, 3)
}

func TestProvider_Nil(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NotNil(t, p.Tracer())
	assert.NotNil(t, p.Instruments())
}

func TestSpanRecording(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	p := &Provider{tp: tp}
	ctx := context.Background()
	_, span := p.Tracer().Start(ctx, "AnalysisService.Snapshot")
	span.SetAttributes(attribute.String("db.system", "mysql"))
	span.End()

	require.NoError(t, tp.ForceFlush(ctx))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "AnalysisService.Snapshot", spans[0].Name)
	assert.Equal(t, meterName, spans[0].InstrumentationScope.Name)
}

func TestInstrumentsRecording(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	inst := newInstrumentsFromMeter(mp.Meter("test"))

	ctx := context.Background()
	inst.IncrementSimulationCount(ctx)
	inst.IncrementSimulationCount(ctx)
	inst.IncrementSimulationFailures(ctx)
	inst.RecordSimulationDuration(ctx, 250)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := make(map[string]metricdata.Metrics)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	count, ok := byName["indexlens.simulation.count"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, count.DataPoints, 1)
	assert.Equal(t, int64(2), count.DataPoints[0].Value)

	failures, ok := byName["indexlens.simulation.failures"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(1), failures.DataPoints[0].Value)

	assert.Contains(t, byName, "indexlens.simulation.duration")
	assert.NotContains(t, byName, "indexlens.analysis.duration", "unrecorded histograms are not exported")
}
