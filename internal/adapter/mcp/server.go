package mcp

import (
	"log/slog"

	"github.com/guillermoBallester/indexlens/internal/core/port"
	"github.com/guillermoBallester/indexlens/internal/core/service"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

const instructions = "indexlens scores the indexes of one table and simulates dropping them. " +
	"Start with analyze_indexes, pick candidates with high impact and low risk, check them with " +
	"simulate_drop when available, then render the script with drop_plan. Nothing is ever executed."

// NewServer creates an MCPServer with tools and logging hooks. sim may be nil
// when no simulation backend is configured.
func NewServer(version string, analysis *service.AnalysisService, sim *service.SimulationOrchestrator, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithInstructions(instructions),
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
	)

	RegisterTools(s, analysis, sim, logger)

	return s
}
