package policy

import (
	"context"
	"slices"
	"sort"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
)

const defaultReason = "Flagged by operator policy."

// MetadataProvider decorates an IndexMetadataProvider with policy-defined
// suggestions. Policy suggestions come first so they win over heuristics for
// the same target; suggestions naming a kept index are removed.
type MetadataProvider struct {
	port.IndexMetadataProvider
	policy *Policy
}

// NewMetadataProvider wraps inner. A nil policy passes everything through.
func NewMetadataProvider(inner port.IndexMetadataProvider, pol *Policy) *MetadataProvider {
	return &MetadataProvider{IndexMetadataProvider: inner, policy: pol}
}

func (p *MetadataProvider) Suggestions(ctx context.Context, schema, table string) ([]domain.Suggestion, error) {
	inner, err := p.IndexMetadataProvider.Suggestions(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	tp, ok := p.policy.For(schema, table)
	if !ok {
		return inner, nil
	}
	return merge(tp, inner, p.Dialect()), nil
}

// keeps reports whether s would flag a kept index. On MySQL a column
// suggestion also reaches the single-column index named after that column.
func keeps(tp TablePolicy, s domain.Suggestion, d domain.Dialect) bool {
	if !slices.Contains(tp.Keep, s.Target) {
		return false
	}
	return s.Kind == domain.SuggestionByIndexName ||
		(s.Kind == domain.SuggestionByColumn && d == domain.DialectMySQL)
}

func merge(tp TablePolicy, heuristics []domain.Suggestion, d domain.Dialect) []domain.Suggestion {
	out := make([]domain.Suggestion, 0, len(tp.Indexes)+len(tp.Columns)+len(heuristics))
	for _, name := range sortedKeys(tp.Indexes) {
		out = append(out, domain.ByIndexName(name, reasonOrDefault(tp.Indexes[name].Reason)))
	}
	for _, col := range sortedKeys(tp.Columns) {
		out = append(out, domain.ByColumn(col, reasonOrDefault(tp.Columns[col].Reason)))
	}
	for _, s := range heuristics {
		if keeps(tp, s, d) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func reasonOrDefault(r string) string {
	if r == "" {
		return defaultReason
	}
	return r
}

func sortedKeys(m map[string]Suggestion) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
