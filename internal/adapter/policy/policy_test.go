package policy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// --- LoadFromFile tests ---

func TestLoadFromFile(t *testing.T) {
	yaml := `
tables:
  shop.orders:
    keep: [idx_orders_customer]
    indexes:
      idx_orders_legacy: "Replaced by idx_orders_customer_created"
      idx_orders_tmp:
        reason: "Created for a one-off report"
    columns:
      status: ""
`
	pol, err := LoadFromFile(writeTempFile(t, yaml))
	require.NoError(t, err)

	tp, ok := pol.For("shop", "orders")
	require.True(t, ok)
	assert.Equal(t, []string{"idx_orders_customer"}, tp.Keep)
	assert.Equal(t, "Replaced by idx_orders_customer_created", tp.Indexes["idx_orders_legacy"].Reason)
	assert.Equal(t, "Created for a one-off report", tp.Indexes["idx_orders_tmp"].Reason)
	assert.Contains(t, tp.Columns, "status")

	_, ok = pol.For("shop", "customers")
	assert.False(t, ok)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad key", "tables:\n  orders:\n    keep: [a]\n", "schema.table"},
		{"empty keep", "tables:\n  shop.orders:\n    keep: ['']\n", "empty name"},
		{"kept and suggested", "tables:\n  shop.orders:\n    keep: [a]\n    indexes:\n      a: x\n", "both kept and suggested"},
		{"not yaml", "tables: [", "parsing policy YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeTempFile(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading policy file")
}

// --- decorator tests ---

type stubProvider struct {
	dialect     domain.Dialect
	suggestions []domain.Suggestion
	err         error
}

func (s stubProvider) Dialect() domain.Dialect {
	if s.dialect == "" {
		return domain.DialectPostgres
	}
	return s.dialect
}
func (s stubProvider) IndexRows(context.Context, string, string) ([]domain.IndexRow, error) {
	return []domain.IndexRow{{Name: "idx_a", ColumnName: "a", NonUnique: true}}, nil
}
func (s stubProvider) Suggestions(context.Context, string, string) ([]domain.Suggestion, error) {
	return s.suggestions, s.err
}
func (s stubProvider) TableStats(context.Context, string, string) (domain.TableStats, error) {
	return domain.TableStats{}, nil
}
func (s stubProvider) IndexUsage(context.Context, string, string) ([]domain.UsageStat, error) {
	return nil, nil
}
func (s stubProvider) IndexSizes(context.Context, string, string) ([]domain.SizeStat, error) {
	return nil, nil
}

func TestMetadataProvider_Suggestions(t *testing.T) {
	inner := stubProvider{suggestions: []domain.Suggestion{
		domain.ByIndexName("idx_orders_customer", "Never scanned."),
		domain.ByIndexName("idx_orders_legacy", "Never scanned."),
		domain.ByColumn("status", "Low selectivity."),
	}}
	pol := &Policy{Tables: map[string]TablePolicy{
		"public.orders": {
			Keep:    []string{"idx_orders_customer"},
			Indexes: map[string]Suggestion{"idx_orders_legacy": {Reason: "Superseded."}},
			Columns: map[string]Suggestion{"kind": {}},
		},
	}}
	p := NewMetadataProvider(inner, pol)

	got, err := p.Suggestions(context.Background(), "public", "orders")
	require.NoError(t, err)
	assert.Equal(t, []domain.Suggestion{
		domain.ByIndexName("idx_orders_legacy", "Superseded."),
		domain.ByColumn("kind", defaultReason),
		domain.ByIndexName("idx_orders_legacy", "Never scanned."),
		domain.ByColumn("status", "Low selectivity."),
	}, got)

	idx := domain.NewSuggestionIndex(got, domain.DialectPostgres)
	s, ok := idx.ForIndex("idx_orders_legacy")
	require.True(t, ok)
	assert.Equal(t, "Superseded.", s.Reason, "policy wins over heuristics")
	_, ok = idx.ForIndex("idx_orders_customer")
	assert.False(t, ok, "kept index loses its suggestion")
}

func TestMetadataProvider_KeepColumnNamedIndex(t *testing.T) {
	heuristics := []domain.Suggestion{
		domain.ByColumn("status", "Low selectivity: 3 values"),
		domain.ByColumn("kind", "Low selectivity: 2 values"),
	}
	pol := &Policy{Tables: map[string]TablePolicy{
		"shop.orders": {Keep: []string{"status"}},
	}}
	status := domain.IndexGroup{Name: "status", Type: "BTREE", Columns: []string{"status"}}

	tests := []struct {
		name        string
		dialect     domain.Dialect
		wantSignal  domain.SignalLabel
		wantColumns int
	}{
		{"mysql drops the column suggestion of a kept index", domain.DialectMySQL, domain.SignalUnknown, 1},
		{"postgres column suggestions name columns only", domain.DialectPostgres, domain.SignalLowUtility, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewMetadataProvider(stubProvider{dialect: tt.dialect, suggestions: heuristics}, pol)
			got, err := p.Suggestions(context.Background(), "shop", "orders")
			require.NoError(t, err)
			assert.Len(t, got, tt.wantColumns)

			idx := domain.NewSuggestionIndex(got, tt.dialect)
			sig := domain.Classify(status, tt.dialect, nil, idx)
			assert.Equal(t, tt.wantSignal, sig.Label)
			assert.NotEqual(t, domain.SignalUnused, sig.Label)
		})
	}
}

func TestMetadataProvider_PassThrough(t *testing.T) {
	inner := stubProvider{suggestions: []domain.Suggestion{domain.ByIndexName("idx_a", "x")}}

	got, err := NewMetadataProvider(inner, nil).Suggestions(context.Background(), "public", "orders")
	require.NoError(t, err)
	assert.Equal(t, inner.suggestions, got)

	rows, err := NewMetadataProvider(inner, nil).IndexRows(context.Background(), "public", "orders")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	failing := stubProvider{err: errors.New("boom")}
	_, err = NewMetadataProvider(failing, &Policy{}).Suggestions(context.Background(), "public", "orders")
	assert.EqualError(t, err, "boom")
}
