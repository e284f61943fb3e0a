package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/guillermoBallester/indexlens/internal/core/domain"
)

// Server error numbers that mean "this telemetry source is not available to
// us" rather than "the analysis failed".
const (
	errTableAccessDenied = 1142
	errNoSuchTable       = 1146
	errUnknownDatabase   = 1049
)

// MetadataProvider reads index metadata from information_schema,
// performance_schema, the sys schema and InnoDB persistent statistics.
type MetadataProvider struct {
	db *sql.DB
}

func NewMetadataProvider(db *sql.DB) *MetadataProvider {
	return &MetadataProvider{db: db}
}

func (p *MetadataProvider) Dialect() domain.Dialect {
	return domain.DialectMySQL
}

func (p *MetadataProvider) ResolveSchema(ctx context.Context, tableName string) (string, error) {
	var schema string
	err := p.db.QueryRowContext(ctx, queryResolveSchema, tableName).Scan(&schema)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("table %q %w", tableName, domain.ErrNotFound)
		}
		return "", fmt.Errorf("resolving schema for table %q: %w", tableName, err)
	}
	return schema, nil
}

func (p *MetadataProvider) IndexRows(ctx context.Context, schema, tableName string) ([]domain.IndexRow, error) {
	rows, err := p.db.QueryContext(ctx, queryIndexRows, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying index rows: %w", err)
	}
	defer rows.Close()

	var out []domain.IndexRow
	for rows.Next() {
		var (
			r         domain.IndexRow
			nonUnique int
		)
		if err := rows.Scan(&r.Name, &r.IndexType, &nonUnique, &r.ColumnName); err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		r.NonUnique = nonUnique != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *MetadataProvider) TableStats(ctx context.Context, schema, tableName string) (domain.TableStats, error) {
	var s domain.TableStats
	err := p.db.QueryRowContext(ctx, queryTableStats, schema, tableName).
		Scan(&s.RowEstimate, &s.TableBytes, &s.IndexBytes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, fmt.Errorf("table %q %w in schema %q", tableName, domain.ErrNotFound, schema)
		}
		return s, fmt.Errorf("querying table stats: %w", err)
	}
	return s, nil
}

// IndexUsage returns no entries when performance_schema is off or not readable.
func (p *MetadataProvider) IndexUsage(ctx context.Context, schema, tableName string) ([]domain.UsageStat, error) {
	rows, err := p.db.QueryContext(ctx, queryIndexUsage, schema, tableName)
	if err != nil {
		if isUnavailable(err) {
			return nil, nil
		}
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

// IndexSizes returns no entries when persistent statistics are not readable.
func (p *MetadataProvider) IndexSizes(ctx context.Context, schema, tableName string) ([]domain.SizeStat, error) {
	rows, err := p.db.QueryContext(ctx, queryIndexSizes, schema, tableName)
	if err != nil {
		if isUnavailable(err) {
			return nil, nil
		}
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

// Suggestions combines sys.schema_unused_indexes with low-cardinality leading
// columns. Column suggestions also reach single-column indexes named after
// their column.
func (p *MetadataProvider) Suggestions(ctx context.Context, schema, tableName string) ([]domain.Suggestion, error) {
	out, err := p.unusedIndexes(ctx, schema, tableName)
	if err != nil {
		return nil, err
	}

	stats, err := p.TableStats(ctx, schema, tableName)
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, queryLeadingColumnCardinality, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying column cardinality: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			column      string
			cardinality int64
		)
		if err := rows.Scan(&column, &cardinality); err != nil {
			return nil, fmt.Errorf("scanning column cardinality: %w", err)
		}
		if s, ok := lowCardinalitySuggestion(column, cardinality, stats.RowEstimate); ok {
			out = append(out, s)
		}
	}
	return out, rows.Err()
}

func (p *MetadataProvider) unusedIndexes(ctx context.Context, schema, tableName string) ([]domain.Suggestion, error) {
	rows, err := p.db.QueryContext(ctx, queryUnusedIndexes, schema, tableName)
	if err != nil {
		if isUnavailable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying sys.schema_unused_indexes: %w", err)
	}
	defer rows.Close()

	var out []domain.Suggestion
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning unused index: %w", err)
		}
		out = append(out, domain.ByIndexName(name, "Listed by sys.schema_unused_indexes."))
	}
	return out, rows.Err()
}

// lowCardinalitySuggestion treats the InnoDB CARDINALITY estimate of a
// leading index column as its distinct count.
func lowCardinalitySuggestion(column string, cardinality, rowEstimate int64) (domain.Suggestion, bool) {
	return domain.LowSelectivitySuggestion(column, cardinality, rowEstimate)
}

func isUnavailable(err error) bool {
	var me *mysqldriver.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	switch me.Number {
	case errTableAccessDenied, errNoSuchTable, errUnknownDatabase:
		return true
	}
	return false
}
