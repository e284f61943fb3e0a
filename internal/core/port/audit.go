package port

import "context"

// AuditEntry represents a single what-if simulation call.
type AuditEntry struct {
	BatchID    string
	Schema     string
	Table      string
	Index      string
	Mode       string
	Confidence float64
	DurationMS int64
	Err        error
}

// SimulationAuditor records simulation audit events.
type SimulationAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}

// NoopAuditor discards all audit entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, AuditEntry) {}
func (NoopAuditor) Close() error                       { return nil }
