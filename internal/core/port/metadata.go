package port

import (
	"context"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
)

// IndexMetadataProvider reads index catalog data and telemetry for one table.
// IndexUsage and IndexSizes may legitimately return empty slices: missing
// telemetry means "unknown", not an error.
type IndexMetadataProvider interface {
	Dialect() domain.Dialect
	IndexRows(ctx context.Context, schema, table string) ([]domain.IndexRow, error)
	Suggestions(ctx context.Context, schema, table string) ([]domain.Suggestion, error)
	TableStats(ctx context.Context, schema, table string) (domain.TableStats, error)
	IndexUsage(ctx context.Context, schema, table string) ([]domain.UsageStat, error)
	IndexSizes(ctx context.Context, schema, table string) ([]domain.SizeStat, error)
}

// SchemaResolver finds the schema of a table when the caller did not name one.
type SchemaResolver interface {
	ResolveSchema(ctx context.Context, table string) (string, error)
}
