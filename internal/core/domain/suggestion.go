package domain

// SuggestionKind discriminates how a heuristic suggestion identifies its target.
type SuggestionKind string

const (
	SuggestionByIndexName SuggestionKind = "index"
	SuggestionByColumn    SuggestionKind = "column"
)

// Suggestion is a heuristic "possibly unused" hint. Construct it with
// ByIndexName or ByColumn so that exactly one target is set.
type Suggestion struct {
	Kind   SuggestionKind `json:"kind"`
	Target string         `json:"target"`
	Reason string         `json:"reason"`
}

// ByIndexName builds a suggestion that names an index.
func ByIndexName(name, reason string) Suggestion {
	return Suggestion{Kind: SuggestionByIndexName, Target: name, Reason: reason}
}

// ByColumn builds a suggestion that only names a column.
func ByColumn(column, reason string) Suggestion {
	return Suggestion{Kind: SuggestionByColumn, Target: column, Reason: reason}
}

// SuggestionIndex provides O(1) suggestion lookups by index name and by column name.
type SuggestionIndex struct {
	byIndexName  map[string]Suggestion
	byColumnName map[string]Suggestion
}

// NewSuggestionIndex builds the lookup maps. The first suggestion for a key wins.
// For dialects that name single-column indexes after the column, column
// suggestions are also reachable by index name.
func NewSuggestionIndex(suggestions []Suggestion, d Dialect) SuggestionIndex {
	idx := SuggestionIndex{
		byIndexName:  make(map[string]Suggestion),
		byColumnName: make(map[string]Suggestion),
	}
	put := func(m map[string]Suggestion, key string, s Suggestion) {
		if key == "" {
			return
		}
		if _, ok := m[key]; !ok {
			m[key] = s
		}
	}

	for _, s := range suggestions {
		switch s.Kind {
		case SuggestionByIndexName:
			put(idx.byIndexName, s.Target, s)
		case SuggestionByColumn:
			put(idx.byColumnName, s.Target, s)
			if d.NamesIndexesByColumn() {
				put(idx.byIndexName, s.Target, s)
			}
		}
	}
	return idx
}

// ForIndex returns the suggestion registered under an index name.
func (s SuggestionIndex) ForIndex(name string) (Suggestion, bool) {
	sg, ok := s.byIndexName[name]
	return sg, ok
}

// ForColumns returns the suggestion for the first column (in index order) that has one.
func (s SuggestionIndex) ForColumns(columns []string) (Suggestion, bool) {
	for _, c := range columns {
		if sg, ok := s.byColumnName[c]; ok {
			return sg, true
		}
	}
	return Suggestion{}, false
}

// Len reports the number of distinct keys across both maps.
func (s SuggestionIndex) Len() int {
	return len(s.byIndexName) + len(s.byColumnName)
}
