package port

import (
	"context"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
)

// SimulationProvider estimates the effect of dropping one index without
// changing the schema. Implementations must be safe for concurrent use.
type SimulationProvider interface {
	Simulate(ctx context.Context, schema, table, index string) (*domain.SimulationResult, error)
}

// WorkloadFilter decides which recorded queries may be replayed through EXPLAIN.
type WorkloadFilter interface {
	Validate(sql string) error
	Fingerprint(sql string) string
}
