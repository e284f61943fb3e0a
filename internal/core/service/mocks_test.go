package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- mock KeyValueStore ---

type mockKV struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	setErr error
}

func newMockKV() *mockKV {
	return &mockKV{data: map[string]string{}}
}

func (m *mockKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mockKV) Close() error { return nil }

// --- mock IndexMetadataProvider ---

type mockMetadata struct {
	dialect     domain.Dialect
	rows        []domain.IndexRow
	suggestions []domain.Suggestion
	stats       domain.TableStats
	usage       []domain.UsageStat
	sizes       []domain.SizeStat

	rowsErr  error
	usageErr error

	mu         sync.Mutex
	lastSchema string
}

func (m *mockMetadata) Dialect() domain.Dialect { return m.dialect }

func (m *mockMetadata) IndexRows(_ context.Context, schema, _ string) ([]domain.IndexRow, error) {
	m.mu.Lock()
	m.lastSchema = schema
	m.mu.Unlock()
	return m.rows, m.rowsErr
}

func (m *mockMetadata) Suggestions(context.Context, string, string) ([]domain.Suggestion, error) {
	return m.suggestions, nil
}

func (m *mockMetadata) TableStats(context.Context, string, string) (domain.TableStats, error) {
	return m.stats, nil
}

func (m *mockMetadata) IndexUsage(context.Context, string, string) ([]domain.UsageStat, error) {
	return m.usage, m.usageErr
}

func (m *mockMetadata) IndexSizes(context.Context, string, string) ([]domain.SizeStat, error) {
	return m.sizes, nil
}

func ordersMetadata() *mockMetadata {
	return &mockMetadata{
		dialect: domain.DialectMySQL,
		rows: []domain.IndexRow{
			{Name: "PRIMARY", IndexType: "BTREE", ColumnName: "id"},
			{Name: "idx_email", IndexType: "BTREE", NonUnique: true, ColumnName: "email"},
			{Name: "idx_status", IndexType: "BTREE", NonUnique: true, ColumnName: "status"},
		},
		stats: domain.TableStats{IndexBytes: 3 << 20},
		usage: []domain.UsageStat{
			{IndexName: "PRIMARY", TotalOps: 90000},
			{IndexName: "idx_email", TotalOps: 0},
			{IndexName: "idx_status", TotalOps: 5000},
		},
	}
}

type staticResolver struct {
	schema string
	err    error
}

func (r staticResolver) ResolveSchema(context.Context, string) (string, error) {
	return r.schema, r.err
}

// --- mock SimulationProvider ---

type mockSimulator struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, index string) (*domain.SimulationResult, error)
}

func (m *mockSimulator) Simulate(ctx context.Context, _, _, index string) (*domain.SimulationResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, index)
	m.mu.Unlock()
	return m.fn(ctx, index)
}

// --- recording auditor ---

type recordingAuditor struct {
	mu      sync.Mutex
	entries []port.AuditEntry
}

func (a *recordingAuditor) Record(_ context.Context, e port.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAuditor) Close() error { return nil }
