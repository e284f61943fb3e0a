package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

var errNoResult = errors.New("provider returned no result")

// BatchState is the lifecycle state of the orchestrator.
type BatchState string

const (
	BatchIdle    BatchState = "idle"
	BatchRunning BatchState = "running"
	BatchSettled BatchState = "settled"
)

// Batch is a settled set of simulation results for one selection.
type Batch struct {
	ID         string                    `json:"id"`
	Generation uint64                    `json:"generation"`
	Schema     string                    `json:"schema"`
	Table      string                    `json:"table"`
	Selection  []string                  `json:"selection"`
	Results    []domain.SimulationResult `json:"results"`
	StartedAt  time.Time                 `json:"started_at"`
	SettledAt  time.Time                 `json:"settled_at"`
}

// SimulationOrchestrator fans one what-if call per selected index out to the
// provider and publishes the batch only once every call has resolved.
// Each run gets a generation number; a run that finishes after a newer run
// started (or after Clear) is discarded instead of published.
type SimulationOrchestrator struct {
	provider    port.SimulationProvider
	auditor     port.SimulationAuditor
	logger      *slog.Logger
	tracer      trace.Tracer
	inst        port.Instrumentation
	concurrency int

	mu         sync.Mutex
	generation uint64
	state      BatchState
	current    *Batch
}

// NewSimulationOrchestrator creates an idle orchestrator. concurrency <= 0
// issues every call at once.
func NewSimulationOrchestrator(provider port.SimulationProvider, auditor port.SimulationAuditor, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation, concurrency int) *SimulationOrchestrator {
	if auditor == nil {
		auditor = port.NoopAuditor{}
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &SimulationOrchestrator{
		provider:    provider,
		auditor:     auditor,
		logger:      logger,
		tracer:      tracer,
		inst:        inst,
		concurrency: concurrency,
		state:       BatchIdle,
	}
}

// State reports the orchestrator's current state.
func (o *SimulationOrchestrator) State() BatchState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Current returns the last published batch, or nil.
func (o *SimulationOrchestrator) Current() *Batch {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Clear discards the published batch and any run still in flight.
func (o *SimulationOrchestrator) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generation++
	o.current = nil
	o.state = BatchIdle
}

// Run simulates dropping every droppable index in selection. An empty
// droppable selection is a no-op reported as domain.ErrEmptySelection.
// Provider failures never fail the batch: each becomes a failed result.
func (o *SimulationOrchestrator) Run(ctx context.Context, view domain.AnalysisView, selection []string) (*Batch, error) {
	targets := DroppableSelection(view, selection)
	if len(targets) == 0 {
		return nil, domain.ErrEmptySelection
	}

	o.mu.Lock()
	o.generation++
	gen := o.generation
	o.state = BatchRunning
	o.mu.Unlock()

	batch := &Batch{
		ID:         uuid.NewString(),
		Generation: gen,
		Schema:     view.Schema,
		Table:      view.Table,
		Selection:  targets,
		Results:    make([]domain.SimulationResult, len(targets)),
		StartedAt:  time.Now().UTC(),
	}

	ctx, span := o.tracer.Start(ctx, "SimulationOrchestrator.Run",
		trace.WithAttributes(
			attribute.String("indexlens.batch.id", batch.ID),
			attribute.String("db.collection.name", view.Table),
			attribute.Int("indexlens.batch.size", len(targets)),
		),
	)
	defer span.End()

	o.logger.InfoContext(ctx, "simulation batch started",
		slog.String("batch.id", batch.ID),
		slog.Uint64("batch.generation", gen),
		slog.String("db.collection.name", view.Table),
		slog.Int("batch.size", len(targets)),
	)

	var g errgroup.Group
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for i, name := range targets {
		iv, _ := view.Find(name)
		g.Go(func() error {
			batch.Results[i] = o.simulateOne(ctx, batch.ID, view, iv)
			return nil
		})
	}
	_ = g.Wait() // every call resolves to a result

	batch.SettledAt = time.Now().UTC()

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		o.logger.InfoContext(ctx, "simulation batch discarded",
			slog.String("batch.id", batch.ID),
			slog.Uint64("batch.generation", gen),
			slog.Uint64("latest.generation", o.generation),
		)
		span.SetStatus(codes.Error, domain.ErrBatchSuperseded.Error())
		return nil, domain.ErrBatchSuperseded
	}
	o.current = batch
	o.state = BatchSettled

	failed := 0
	for _, r := range batch.Results {
		if r.Failed() {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("indexlens.batch.failed", failed))
	o.logger.InfoContext(ctx, "simulation batch settled",
		slog.String("batch.id", batch.ID),
		slog.Int("batch.size", len(batch.Results)),
		slog.Int("batch.failed", failed),
		slog.Duration("duration", batch.SettledAt.Sub(batch.StartedAt)),
	)
	return batch, nil
}

func (o *SimulationOrchestrator) simulateOne(ctx context.Context, batchID string, view domain.AnalysisView, iv domain.IndexView) domain.SimulationResult {
	start := time.Now()
	res, err := o.provider.Simulate(ctx, view.Schema, view.Table, iv.Name)
	durationMS := time.Since(start).Milliseconds()

	var result domain.SimulationResult
	switch {
	case err != nil:
		result = domain.FailedSimulation(iv.Name, iv.DropSQL, err)
	case res == nil:
		result = domain.FailedSimulation(iv.Name, iv.DropSQL, errNoResult)
	default:
		result = res.Normalized(iv.Name, iv.DropSQL)
	}

	o.inst.IncrementSimulationCount(ctx)
	o.inst.RecordSimulationDuration(ctx, float64(durationMS))
	if result.Failed() {
		o.inst.IncrementSimulationFailures(ctx)
		o.logger.WarnContext(ctx, "index simulation failed",
			slog.String("batch.id", batchID),
			slog.String("index.name", iv.Name),
			slog.Any("notes", result.Notes),
		)
	}

	o.auditor.Record(ctx, port.AuditEntry{
		BatchID:    batchID,
		Schema:     view.Schema,
		Table:      view.Table,
		Index:      iv.Name,
		Mode:       result.Mode,
		Confidence: result.ConfidenceScore,
		DurationMS: durationMS,
		Err:        err,
	})
	return result
}

// Summary aggregates the current batch against view. Without a batch (or
// when the batch belongs to another table) only the selection is summarized.
func (o *SimulationOrchestrator) Summary(view domain.AnalysisView, selection []string) domain.SelectionSummary {
	var results []domain.SimulationResult
	if b := o.Current(); b != nil && b.Table == view.Table && b.Schema == view.Schema {
		results = b.Results
	}
	return domain.Summarize(view, selection, results)
}
