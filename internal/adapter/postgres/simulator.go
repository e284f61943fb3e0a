package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HypoPGSimulator estimates the effect of dropping an index by hiding it with
// the hypopg extension and re-planning the recorded workload from
// pg_stat_statements. Nothing is executed and the schema is never changed.
type HypoPGSimulator struct {
	pool         *pgxpool.Pool
	filter       port.WorkloadFilter
	queryLimit   int
	queryTimeout time.Duration
	logger       *slog.Logger
}

func NewHypoPGSimulator(pool *pgxpool.Pool, filter port.WorkloadFilter, queryLimit int, queryTimeout time.Duration, logger *slog.Logger) *HypoPGSimulator {
	return &HypoPGSimulator{
		pool:         pool,
		filter:       filter,
		queryLimit:   queryLimit,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
}

type workloadQuery struct {
	sql         string
	fingerprint string
}

func (s *HypoPGSimulator) Simulate(ctx context.Context, schema, table, index string) (*domain.SimulationResult, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	// Hidden indexes are session state, not transactional, so they are
	// restored on the connection after the transaction has ended.
	defer func() {
		if _, err := conn.Exec(context.WithoutCancel(ctx), queryUnhideAll); err != nil {
			s.logger.WarnContext(ctx, "restoring hidden indexes failed",
				slog.String("index.name", index),
				slog.String("error.message", err.Error()),
			)
		}
	}()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SET LOCAL scopes the timeout to this transaction only.
	timeoutMS := s.queryTimeout.Milliseconds()
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%d'", timeoutMS)); err != nil {
		return nil, fmt.Errorf("setting statement timeout: %w", err)
	}

	var (
		oid      uint32
		indexDef string
	)
	if err := tx.QueryRow(ctx, queryIndexOID, schema, index).Scan(&oid, &indexDef); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("index %q %w in schema %q", index, domain.ErrNotFound, schema)
		}
		return nil, fmt.Errorf("resolving index %q: %w", index, err)
	}

	workload, skipped, err := s.loadWorkload(ctx, tx, table)
	if err != nil {
		return nil, err
	}

	diffs := make([]domain.QueryDiff, len(workload))
	used := make([]bool, len(workload))
	for i, q := range workload {
		diffs[i] = domain.QueryDiff{Fingerprint: q.fingerprint, Query: q.sql}
		cost, indexes, err := s.explain(ctx, tx, q.sql)
		if err != nil {
			diffs[i].Error = err.Error()
			continue
		}
		diffs[i].CostBefore = cost
		used[i] = indexes[index]
	}

	if _, err := tx.Exec(ctx, queryHideIndex, oid); err != nil {
		return nil, fmt.Errorf("hiding index with hypopg: %w", err)
	}

	for i, q := range workload {
		if diffs[i].Error != "" {
			continue
		}
		cost, _, err := s.explain(ctx, tx, q.sql)
		if err != nil {
			diffs[i].Error = err.Error()
			continue
		}
		diffs[i].CostAfter = cost
		diffs[i].UsedIndex = used[i]
		diffs[i].RegressionPct = regressionPct(diffs[i].CostBefore, cost)
	}

	s.logger.DebugContext(ctx, "hypopg simulation finished",
		slog.String("db.collection.name", table),
		slog.String("index.name", index),
		slog.Int("queries", len(workload)),
		slog.Int("skipped", skipped),
	)
	return buildResult(index, indexDef, diffs, skipped), nil
}

func (s *HypoPGSimulator) loadWorkload(ctx context.Context, tx pgx.Tx, table string) ([]workloadQuery, int, error) {
	rows, err := tx.Query(ctx, queryWorkload, table, s.queryLimit)
	if err != nil {
		return nil, 0, fmt.Errorf("reading pg_stat_statements: %w", err)
	}
	defer rows.Close()

	var (
		out     []workloadQuery
		skipped int
	)
	for rows.Next() {
		var (
			sql   string
			calls int64
		)
		if err := rows.Scan(&sql, &calls); err != nil {
			return nil, 0, fmt.Errorf("scanning workload row: %w", err)
		}
		if err := s.filter.Validate(sql); err != nil {
			skipped++
			continue
		}
		out = append(out, workloadQuery{sql: sql, fingerprint: s.filter.Fingerprint(sql)})
	}
	return out, skipped, rows.Err()
}

// explain plans one statement inside a savepoint so that a failing statement
// does not abort the surrounding transaction.
func (s *HypoPGSimulator) explain(ctx context.Context, tx pgx.Tx, sql string) (float64, map[string]bool, error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("creating savepoint: %w", err)
	}

	var raw []byte
	err = sp.QueryRow(ctx, "EXPLAIN (GENERIC_PLAN, FORMAT JSON) "+sql).Scan(&raw)
	if err != nil {
		_ = sp.Rollback(ctx)
		return 0, nil, fmt.Errorf("explaining query: %w", err)
	}
	if err := sp.Commit(ctx); err != nil {
		return 0, nil, fmt.Errorf("releasing savepoint: %w", err)
	}
	return parseExplainJSON(raw)
}
