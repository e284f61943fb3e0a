package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// AnalysisService loads index metadata for a table and derives the scored view.
type AnalysisService struct {
	provider    port.IndexMetadataProvider
	resolver    port.SchemaResolver
	calibration *CalibrationStore
	logger      *slog.Logger
	tracer      trace.Tracer
	inst        port.Instrumentation
}

func NewAnalysisService(provider port.IndexMetadataProvider, resolver port.SchemaResolver, calibration *CalibrationStore, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *AnalysisService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &AnalysisService{
		provider:    provider,
		resolver:    resolver,
		calibration: calibration,
		logger:      logger,
		tracer:      tracer,
		inst:        inst,
	}
}

// Dialect reports the dialect of the underlying metadata provider.
func (s *AnalysisService) Dialect() domain.Dialect {
	return s.provider.Dialect()
}

// Calibration exposes the store backing the scoring weights.
func (s *AnalysisService) Calibration() *CalibrationStore {
	return s.calibration
}

// Snapshot fetches all metadata for a table concurrently. Any failing call
// makes the whole analysis unavailable; the first failure is reported once.
func (s *AnalysisService) Snapshot(ctx context.Context, schema, table string) (domain.AnalysisSnapshot, error) {
	dialect := s.provider.Dialect()
	ctx, span := s.tracer.Start(ctx, "AnalysisService.Snapshot",
		trace.WithAttributes(
			attribute.String("db.system", string(dialect)),
			attribute.String("db.collection.name", table),
		),
	)
	defer span.End()

	start := time.Now()

	if schema == "" && s.resolver != nil {
		resolved, err := s.resolver.ResolveSchema(ctx, table)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return domain.AnalysisSnapshot{}, fmt.Errorf("%w: %w", domain.ErrMetadataUnavailable, err)
		}
		schema = resolved
	}

	var (
		rows        []domain.IndexRow
		suggestions []domain.Suggestion
		stats       domain.TableStats
		usage       []domain.UsageStat
		sizes       []domain.SizeStat
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rows, err = s.provider.IndexRows(gctx, schema, table)
		return wrapFetch("index rows", err)
	})
	g.Go(func() (err error) {
		suggestions, err = s.provider.Suggestions(gctx, schema, table)
		return wrapFetch("suggestions", err)
	})
	g.Go(func() (err error) {
		stats, err = s.provider.TableStats(gctx, schema, table)
		return wrapFetch("table stats", err)
	})
	g.Go(func() (err error) {
		usage, err = s.provider.IndexUsage(gctx, schema, table)
		return wrapFetch("index usage", err)
	})
	g.Go(func() (err error) {
		sizes, err = s.provider.IndexSizes(gctx, schema, table)
		return wrapFetch("index sizes", err)
	})

	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "index metadata load failed",
			slog.String("db.system", string(dialect)),
			slog.String("db.namespace", schema),
			slog.String("db.collection.name", table),
			slog.String("error.message", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.AnalysisSnapshot{}, fmt.Errorf("%w: %w", domain.ErrMetadataUnavailable, err)
	}

	snap := domain.NewAnalysisSnapshot(dialect, schema, table, rows, suggestions, stats, usage, sizes)

	s.inst.RecordAnalysisDuration(ctx, float64(time.Since(start).Milliseconds()))
	span.SetAttributes(attribute.Int("indexlens.index.count", len(snap.Groups)))
	s.logger.DebugContext(ctx, "index metadata loaded",
		slog.String("db.collection.name", table),
		slog.Int("indexes", len(snap.Groups)),
		slog.Int("usage_entries", len(usage)),
		slog.Int("size_entries", len(sizes)),
		slog.Int("suggestions", len(suggestions)),
	)
	return snap, nil
}

// Analyze loads a fresh snapshot and scores it under the current calibration.
func (s *AnalysisService) Analyze(ctx context.Context, schema, table string) (domain.AnalysisSnapshot, domain.AnalysisView, error) {
	snap, err := s.Snapshot(ctx, schema, table)
	if err != nil {
		return domain.AnalysisSnapshot{}, domain.AnalysisView{}, err
	}
	return snap, domain.BuildView(snap, s.calibration.Load(ctx)), nil
}

// DropPlan renders the drop script for the droppable indexes of selection,
// keeping selection order. Unknown and protected names are skipped.
func (s *AnalysisService) DropPlan(view domain.AnalysisView, selection []string) (string, []string, error) {
	candidates := DroppableSelection(view, selection)
	if len(candidates) == 0 {
		return "", nil, domain.ErrEmptySelection
	}
	return domain.BuildDropPlan(candidates, view.Table, view.Schema, view.Dialect), candidates, nil
}

// DroppableSelection filters selection down to distinct, known, non-protected
// index names, preserving order.
func DroppableSelection(view domain.AnalysisView, selection []string) []string {
	seen := make(map[string]bool, len(selection))
	out := make([]string, 0, len(selection))
	for _, name := range selection {
		if seen[name] {
			continue
		}
		iv, ok := view.Find(name)
		if !ok || !iv.Droppable() {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func wrapFetch(what string, err error) error {
	if err != nil {
		return fmt.Errorf("fetching %s: %w", what, err)
	}
	return nil
}
