package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/guillermoBallester/indexlens/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type recordingInstruments struct {
	mu    sync.Mutex
	tools []float64
}

func (r *recordingInstruments) RecordAnalysisDuration(context.Context, float64)   {}
func (r *recordingInstruments) IncrementSimulationCount(context.Context)          {}
func (r *recordingInstruments) IncrementSimulationFailures(context.Context)       {}
func (r *recordingInstruments) RecordSimulationDuration(context.Context, float64) {}

func (r *recordingInstruments) RecordToolDuration(_ context.Context, ms float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = append(r.tools, ms)
}

func TestToolCallHooks(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	inst := &recordingInstruments{}

	kv := &mockKV{data: map[string]string{}}
	analysis := service.NewAnalysisService(ordersMetadata(), nil, service.NewCalibrationStore(kv, logger), logger, nil, nil)
	s := NewServer("test", analysis, nil, logger, tp.Tracer("test"), inst)

	ok := callTool(t, s, "analyze_indexes", map[string]any{"table_name": "orders"})
	require.False(t, ok.IsError, toolText(ok))
	bad := callTool(t, s, "analyze_indexes", map[string]any{})
	require.True(t, bad.IsError)

	var spans []tracetest.SpanStub
	for _, sp := range exporter.GetSpans() {
		if sp.Name == "mcp.tool.call" {
			spans = append(spans, sp)
		}
	}
	require.Len(t, spans, 2)

	assert.Contains(t, spans[0].Attributes, attribute.String("mcp.tool", "analyze_indexes"))
	assert.Contains(t, spans[0].Attributes, attribute.String("db.collection.name", "orders"))
	assert.Equal(t, codes.Unset, spans[0].Status.Code)

	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.NotContains(t, spans[1].Attributes, attribute.String("db.collection.name", ""))

	assert.Len(t, inst.tools, 2)

	type logLine struct {
		Msg   string `json:"msg"`
		Level string `json:"level"`
		Tool  string `json:"mcp.tool"`
		Table string `json:"db.collection.name"`
		Error bool   `json:"error"`
	}
	var toolLogs []logLine
	dec := json.NewDecoder(&logs)
	for dec.More() {
		var l logLine
		require.NoError(t, dec.Decode(&l))
		if l.Msg == "tool call" {
			toolLogs = append(toolLogs, l)
		}
	}
	require.Len(t, toolLogs, 2)
	assert.Equal(t, logLine{Msg: "tool call", Level: "INFO", Tool: "analyze_indexes", Table: "orders"}, toolLogs[0])
	assert.Equal(t, "ERROR", toolLogs[1].Level)
	assert.True(t, toolLogs[1].Error)
}

func TestToolCallHooks_UnknownIDIgnored(t *testing.T) {
	inst := &recordingInstruments{}
	tracker := &callTracker{logger: testLogger(), inst: inst}

	assert.NotPanics(t, func() { tracker.end(context.Background(), "never-started", nil) })
	assert.Empty(t, inst.tools)
}
