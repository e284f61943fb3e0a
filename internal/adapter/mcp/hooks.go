package mcp

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/port"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var errToolResult = errors.New("tool returned an error result")

// inflightCall is one tools/call between its before and after hooks.
type inflightCall struct {
	tool  string
	table string
	start time.Time
	span  trace.Span
}

// callTracker pairs before/after hook invocations by request id.
type callTracker struct {
	logger *slog.Logger
	tracer trace.Tracer
	inst   port.Instrumentation
	calls  sync.Map // request id -> *inflightCall
}

func (t *callTracker) begin(ctx context.Context, id any, req *mcp.CallToolRequest) {
	table, _ := req.GetArguments()["table_name"].(string)
	attrs := []attribute.KeyValue{attribute.String("mcp.tool", req.Params.Name)}
	if table != "" {
		attrs = append(attrs, attribute.String("db.collection.name", table))
	}
	_, span := t.tracer.Start(ctx, "mcp.tool.call", trace.WithAttributes(attrs...))
	t.calls.Store(id, &inflightCall{tool: req.Params.Name, table: table, start: time.Now(), span: span})
}

// end closes the call registered under id. callErr is nil for a successful
// result. Ids that never went through begin are ignored.
func (t *callTracker) end(ctx context.Context, id any, callErr error) {
	v, ok := t.calls.LoadAndDelete(id)
	if !ok {
		return
	}
	call := v.(*inflightCall)
	elapsed := time.Since(call.start)

	t.inst.RecordToolDuration(ctx, float64(elapsed.Microseconds())/1000)

	attrs := []slog.Attr{
		slog.String("rpc.method", "tools/call"),
		slog.String("mcp.tool", call.tool),
		slog.Duration("duration", elapsed),
		slog.Bool("error", callErr != nil),
	}
	if call.table != "" {
		attrs = append(attrs, slog.String("db.collection.name", call.table))
	}
	level := slog.LevelInfo
	if callErr != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.String("error.message", callErr.Error()))
		call.span.RecordError(callErr)
		call.span.SetStatus(codes.Error, callErr.Error())
	}
	t.logger.LogAttrs(ctx, level, "tool call", attrs...)
	call.span.End()
}

// ToolCallHooks logs every tool call and records a span and a duration
// sample for it. tracer and inst may be nil.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	t := &callTracker{logger: logger, tracer: tracer, inst: inst}

	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(t.begin)
	hooks.AddAfterCallTool(func(ctx context.Context, id any, _ *mcp.CallToolRequest, result any) {
		var callErr error
		if r, ok := result.(*mcp.CallToolResult); ok && r.IsError {
			callErr = errToolResult
		}
		t.end(ctx, id, callErr)
	})
	hooks.AddOnError(func(ctx context.Context, id any, _ mcp.MCPMethod, _ any, err error) {
		t.end(ctx, id, err)
	})
	return hooks
}
