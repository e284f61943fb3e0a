package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "indexlens"

// Tool descriptions
const (
	descAnalyzeIndexes = "Analyze every index of one table. For each index returns its columns, a signal " +
		"(protected, unused, low-utility, active or unknown) with a reason, an impact score and a risk score " +
		"(both 5..95), recorded operations, on-disk size (or an even-split estimate) and the DROP statement. " +
		"High impact with low risk marks a good drop candidate. Protected indexes can never be selected."

	descDropPlan = "Render a DROP INDEX script for the selected indexes of one table, in selection order. " +
		"Protected and unknown index names are skipped. The script is text only: nothing is executed. " +
		"Also returns the selection summary (storage reclaimed, estimated write-overhead reduction)."

	descSimulateDrop = "Run a what-if simulation for each selected index: the recorded workload is re-planned " +
		"as if the index were gone, without changing the schema. Returns one result per index " +
		"(regressions, confidence, rollback SQL) and a go/no-go verdict. A failing simulation yields a result " +
		"with mode \"failed\" instead of failing the batch. Starting a new simulation discards any batch still running."

	descSimulationStatus = "Report the simulation state (idle, running or settled) and the last settled batch " +
		"with its summary recomputed against the current table analysis."

	descClearSimulation = "Discard the current simulation batch. Batches still running are discarded when they finish."

	descGetCalibration = "Return the scoring weights. impact = {size, usage, width}, risk = {usage, unique, primary}, each in [0,1]."

	descSetCalibration = "Set one scoring weight. group is \"impact\" or \"risk\"; the value is clamped to [0,1]. " +
		"Scores of subsequent analyses use the new weights."

	descResetCalibration = "Restore the default scoring weights."

	descTableParam     = "Name of the table"
	descSchemaParam    = "Schema name (optional, resolves automatically if omitted)"
	descSelectionParam = "Index names to include, in order"
)

// calibrationResult reports weights plus a non-fatal persistence warning.
type calibrationResult struct {
	Scoring domain.ScoringConfig `json:"scoring"`
	Warning string               `json:"warning,omitempty"`
}

type dropPlanResult struct {
	Plan    string                  `json:"plan"`
	Indexes []string                `json:"indexes"`
	Summary domain.SelectionSummary `json:"summary"`
}

type simulationResult struct {
	State   service.BatchState       `json:"state"`
	Batch   *service.Batch           `json:"batch,omitempty"`
	Summary *domain.SelectionSummary `json:"summary,omitempty"`
}

// RegisterTools adds the analysis and calibration tools, plus the simulation
// tools when sim is non-nil.
func RegisterTools(s *server.MCPServer, analysis *service.AnalysisService, sim *service.SimulationOrchestrator, logger *slog.Logger) {
	s.AddTool(
		mcp.NewTool("analyze_indexes",
			mcp.WithDescription(descAnalyzeIndexes),
			mcp.WithString("table_name", mcp.Required(), mcp.Description(descTableParam)),
			mcp.WithString("schema", mcp.Description(descSchemaParam)),
		),
		analyzeIndexesHandler(analysis, logger),
	)

	s.AddTool(
		mcp.NewTool("drop_plan",
			mcp.WithDescription(descDropPlan),
			mcp.WithString("table_name", mcp.Required(), mcp.Description(descTableParam)),
			mcp.WithString("schema", mcp.Description(descSchemaParam)),
			mcp.WithArray("indexes",
				mcp.Required(),
				mcp.Description(descSelectionParam),
				mcp.WithStringItems(),
			),
		),
		dropPlanHandler(analysis, logger),
	)

	s.AddTool(
		mcp.NewTool("get_calibration", mcp.WithDescription(descGetCalibration)),
		getCalibrationHandler(analysis.Calibration()),
	)

	s.AddTool(
		mcp.NewTool("set_calibration",
			mcp.WithDescription(descSetCalibration),
			mcp.WithString("group", mcp.Required(), mcp.Enum("impact", "risk")),
			mcp.WithString("key", mcp.Required(), mcp.Description("size, usage or width for impact; usage, unique or primary for risk")),
			mcp.WithNumber("value", mcp.Required(), mcp.Min(0), mcp.Max(1)),
		),
		setCalibrationHandler(analysis.Calibration()),
	)

	s.AddTool(
		mcp.NewTool("reset_calibration", mcp.WithDescription(descResetCalibration)),
		resetCalibrationHandler(analysis.Calibration()),
	)

	if sim == nil {
		return
	}

	s.AddTool(
		mcp.NewTool("simulate_drop",
			mcp.WithDescription(descSimulateDrop),
			mcp.WithString("table_name", mcp.Required(), mcp.Description(descTableParam)),
			mcp.WithString("schema", mcp.Description(descSchemaParam)),
			mcp.WithArray("indexes",
				mcp.Required(),
				mcp.Description(descSelectionParam),
				mcp.WithStringItems(),
			),
			mcp.WithBoolean("wait",
				mcp.Description("Wait for the batch to settle (default true). When false, poll simulation_status."),
			),
		),
		simulateDropHandler(analysis, sim, logger),
	)

	s.AddTool(
		mcp.NewTool("simulation_status",
			mcp.WithDescription(descSimulationStatus),
			mcp.WithArray("indexes",
				mcp.Description("Selection to summarize (defaults to the batch selection)"),
				mcp.WithStringItems(),
			),
		),
		simulationStatusHandler(analysis, sim, logger),
	)

	s.AddTool(
		mcp.NewTool("clear_simulation", mcp.WithDescription(descClearSimulation)),
		clearSimulationHandler(sim),
	)
}

func analyzeIndexesHandler(analysis *service.AnalysisService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName, ok := request.GetArguments()["table_name"].(string)
		if !ok || tableName == "" {
			return mcp.NewToolResultError("table_name is required"), nil
		}
		schema, _ := request.GetArguments()["schema"].(string)

		_, view, err := analysis.Analyze(ctx, schema, tableName)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "analyze indexes")), nil
		}
		return jsonResult(view)
	}
}

func dropPlanHandler(analysis *service.AnalysisService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName, ok := request.GetArguments()["table_name"].(string)
		if !ok || tableName == "" {
			return mcp.NewToolResultError("table_name is required"), nil
		}
		schema, _ := request.GetArguments()["schema"].(string)
		selection := stringSlice(request.GetArguments()["indexes"])
		if len(selection) == 0 {
			return mcp.NewToolResultError("indexes is required"), nil
		}

		_, view, err := analysis.Analyze(ctx, schema, tableName)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "analyze indexes")), nil
		}

		plan, indexes, err := analysis.DropPlan(view, selection)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "build drop plan")), nil
		}
		return jsonResult(dropPlanResult{
			Plan:    plan,
			Indexes: indexes,
			Summary: domain.Summarize(view, indexes, nil),
		})
	}
}

func simulateDropHandler(analysis *service.AnalysisService, sim *service.SimulationOrchestrator, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName, ok := request.GetArguments()["table_name"].(string)
		if !ok || tableName == "" {
			return mcp.NewToolResultError("table_name is required"), nil
		}
		schema, _ := request.GetArguments()["schema"].(string)
		selection := stringSlice(request.GetArguments()["indexes"])
		wait := true
		if v, ok := request.GetArguments()["wait"].(bool); ok {
			wait = v
		}

		_, view, err := analysis.Analyze(ctx, schema, tableName)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "analyze indexes")), nil
		}
		if len(service.DroppableSelection(view, selection)) == 0 {
			return mcp.NewToolResultError(sanitizeError(logger, domain.ErrEmptySelection, "simulate drop")), nil
		}

		if !wait {
			go func() {
				bg := context.WithoutCancel(ctx)
				if _, err := sim.Run(bg, view, selection); err != nil {
					logger.WarnContext(bg, "background simulation ended without a batch",
						slog.String("db.collection.name", view.Table),
						slog.String("error.message", err.Error()),
					)
				}
			}()
			return jsonResult(simulationResult{State: service.BatchRunning})
		}

		batch, err := sim.Run(ctx, view, selection)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "simulate drop")), nil
		}
		summary := domain.Summarize(view, batch.Selection, batch.Results)
		return jsonResult(simulationResult{State: service.BatchSettled, Batch: batch, Summary: &summary})
	}
}

func simulationStatusHandler(analysis *service.AnalysisService, sim *service.SimulationOrchestrator, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := simulationResult{State: sim.State(), Batch: sim.Current()}
		if res.Batch == nil {
			return jsonResult(res)
		}

		selection := stringSlice(request.GetArguments()["indexes"])
		if len(selection) == 0 {
			selection = res.Batch.Selection
		}
		_, view, err := analysis.Analyze(ctx, res.Batch.Schema, res.Batch.Table)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "analyze indexes")), nil
		}
		summary := sim.Summary(view, selection)
		res.Summary = &summary
		return jsonResult(res)
	}
}

func clearSimulationHandler(sim *service.SimulationOrchestrator) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sim.Clear()
		return jsonResult(simulationResult{State: sim.State()})
	}
}

func getCalibrationHandler(store *service.CalibrationStore) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(calibrationResult{Scoring: store.Load(ctx)})
	}
}

func setCalibrationHandler(store *service.CalibrationStore) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		group, _ := request.GetArguments()["group"].(string)
		key, _ := request.GetArguments()["key"].(string)
		value, ok := request.GetArguments()["value"].(float64)
		if !ok {
			return mcp.NewToolResultError("value must be a number"), nil
		}

		cfg, err := store.SetWeight(ctx, strings.ToLower(group), strings.ToLower(key), value)
		if errors.Is(err, domain.ErrUnknownWeight) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(calibrationResult{Scoring: cfg, Warning: persistWarning(err)})
	}
}

func resetCalibrationHandler(store *service.CalibrationStore) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cfg, err := store.Reset(ctx)
		return jsonResult(calibrationResult{Scoring: cfg, Warning: persistWarning(err)})
	}
}

// persistWarning turns a calibration save error into a caller-visible note.
func persistWarning(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("weights were not persisted: %v", err)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// stringSlice accepts a JSON array of strings or a comma-separated string.
func stringSlice(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range t {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}
