package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MetadataProvider reads index catalog data and pg_stat telemetry.
type MetadataProvider struct {
	pool    *pgxpool.Pool
	schemas []string // empty means all non-system schemas
}

func NewMetadataProvider(pool *pgxpool.Pool, schemas []string) *MetadataProvider {
	return &MetadataProvider{pool: pool, schemas: schemas}
}

func (p *MetadataProvider) Dialect() domain.Dialect {
	return domain.DialectPostgres
}

func (p *MetadataProvider) ResolveSchema(ctx context.Context, tableName string) (string, error) {
	filter, filterArgs := schemaFilter(p.schemas, "n.nspname", 2) // $1 is tableName
	query := fmt.Sprintf(queryResolveSchema, filter)

	args := make([]any, 0, 1+len(filterArgs))
	args = append(args, tableName)
	args = append(args, filterArgs...)

	var schema string
	err := p.pool.QueryRow(ctx, query, args...).Scan(&schema)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("table %q %w", tableName, domain.ErrNotFound)
		}
		return "", fmt.Errorf("resolving schema for table %q: %w", tableName, err)
	}
	return schema, nil
}

func (p *MetadataProvider) IndexRows(ctx context.Context, schema, tableName string) ([]domain.IndexRow, error) {
	rows, err := p.pool.Query(ctx, queryIndexRows, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying index rows: %w", err)
	}
	defer rows.Close()

	var out []domain.IndexRow
	for rows.Next() {
		var r domain.IndexRow
		if err := rows.Scan(&r.Name, &r.IndexType, &r.NonUnique, &r.ColumnName, &r.Primary); err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *MetadataProvider) TableStats(ctx context.Context, schema, tableName string) (domain.TableStats, error) {
	var s domain.TableStats
	err := p.pool.QueryRow(ctx, queryTableStats, schema, tableName).
		Scan(&s.RowEstimate, &s.TableBytes, &s.IndexBytes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s, fmt.Errorf("table %q %w in schema %q", tableName, domain.ErrNotFound, schema)
		}
		return s, fmt.Errorf("querying table stats: %w", err)
	}
	return s, nil
}

func (p *MetadataProvider) IndexUsage(ctx context.Context, schema, tableName string) ([]domain.UsageStat, error) {
	rows, err := p.pool.Query(ctx, queryIndexUsage, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying index usage: %w", err)
	}
	defer rows.Close()

	var usage []domain.UsageStat
	for rows.Next() {
		var u domain.UsageStat
		if err := rows.Scan(&u.IndexName, &u.TotalOps); err != nil {
			return nil, fmt.Errorf("scanning index usage: %w", err)
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

func (p *MetadataProvider) IndexSizes(ctx context.Context, schema, tableName string) ([]domain.SizeStat, error) {
	rows, err := p.pool.Query(ctx, queryIndexSizes, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying index sizes: %w", err)
	}
	defer rows.Close()

	var sizes []domain.SizeStat
	for rows.Next() {
		var s domain.SizeStat
		if err := rows.Scan(&s.IndexName, &s.SizeBytes); err != nil {
			return nil, fmt.Errorf("scanning index size: %w", err)
		}
		sizes = append(sizes, s)
	}
	return sizes, rows.Err()
}

// Suggestions combines three heuristics: never-scanned indexes, indexes made
// redundant by a wider index with the same leading columns, and low-selectivity
// columns according to pg_stats.
func (p *MetadataProvider) Suggestions(ctx context.Context, schema, tableName string) ([]domain.Suggestion, error) {
	var out []domain.Suggestion

	unused, err := p.neverScanned(ctx, schema, tableName)
	if err != nil {
		return nil, err
	}
	out = append(out, unused...)

	idxRows, err := p.IndexRows(ctx, schema, tableName)
	if err != nil {
		return nil, err
	}
	out = append(out, redundantPrefixSuggestions(domain.GroupIndexRows(idxRows))...)

	lowSel, err := p.lowSelectivityColumns(ctx, schema, tableName)
	if err != nil {
		return nil, err
	}
	return append(out, lowSel...), nil
}

func (p *MetadataProvider) neverScanned(ctx context.Context, schema, tableName string) ([]domain.Suggestion, error) {
	rows, err := p.pool.Query(ctx, queryNeverScanned, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying unused indexes: %w", err)
	}
	defer rows.Close()

	var out []domain.Suggestion
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning unused index: %w", err)
		}
		out = append(out, domain.ByIndexName(name, "Never scanned since the last statistics reset."))
	}
	return out, rows.Err()
}

func (p *MetadataProvider) lowSelectivityColumns(ctx context.Context, schema, tableName string) ([]domain.Suggestion, error) {
	stats, err := p.TableStats(ctx, schema, tableName)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, queryColumnDistinct, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying column stats: %w", err)
	}
	defer rows.Close()

	var out []domain.Suggestion
	for rows.Next() {
		var (
			attname   string
			nDistinct float64
		)
		if err := rows.Scan(&attname, &nDistinct); err != nil {
			return nil, fmt.Errorf("scanning column stats: %w", err)
		}
		if s, ok := lowSelectivitySuggestion(attname, nDistinct, stats.RowEstimate); ok {
			out = append(out, s)
		}
	}
	return out, rows.Err()
}

func lowSelectivitySuggestion(column string, nDistinct float64, rowEstimate int64) (domain.Suggestion, bool) {
	return domain.LowSelectivitySuggestion(column, pgDistinctToAbsolute(nDistinct, rowEstimate), rowEstimate)
}

// redundantPrefixSuggestions flags non-unique, non-primary indexes whose
// columns are a strict leading prefix of another index on the same table.
func redundantPrefixSuggestions(groups []domain.IndexGroup) []domain.Suggestion {
	var out []domain.Suggestion
	for _, g := range groups {
		if g.Unique || g.Primary || len(g.Columns) == 0 {
			continue
		}
		for _, other := range groups {
			if other.Name == g.Name || !isStrictPrefix(g.Columns, other.Columns) {
				continue
			}
			out = append(out, domain.ByIndexName(g.Name,
				fmt.Sprintf("Redundant with %s (same leading columns).", other.Name)))
			break
		}
	}
	return out
}

func isStrictPrefix(prefix, cols []string) bool {
	if len(prefix) >= len(cols) {
		return false
	}
	for i := range prefix {
		if prefix[i] != cols[i] {
			return false
		}
	}
	return true
}

// pgDistinctToAbsolute converts pg_stats n_distinct to an absolute distinct count.
// pg_stats semantics:
//   - -1.0 = all values unique → returns rowEstimate
//   - negative = fraction of rows that are distinct (e.g., -0.5 = 50% unique)
//   - positive = estimated number of distinct values
func pgDistinctToAbsolute(nDistinct float64, rowEstimate int64) int64 {
	if nDistinct == -1 {
		return rowEstimate
	}
	if nDistinct < 0 {
		return int64(math.Round(-nDistinct * float64(rowEstimate)))
	}
	return int64(math.Round(nDistinct))
}
