package domain

// UsageStat is the recorded operation count for one index. A missing entry
// means usage is unknown, not zero.
type UsageStat struct {
	IndexName string `json:"index_name"`
	TotalOps  int64  `json:"total_ops"`
}

// SizeStat is the on-disk size of one index.
type SizeStat struct {
	IndexName string `json:"index_name"`
	SizeBytes int64  `json:"size_bytes"`
}

// TableStats holds aggregate table figures; only IndexBytes feeds scoring,
// as the even-split size fallback.
type TableStats struct {
	RowEstimate int64 `json:"row_estimate"`
	TableBytes  int64 `json:"table_bytes"`
	IndexBytes  int64 `json:"index_bytes"`
}

// AnalysisSnapshot is an immutable capture of everything known about one
// table's indexes at refresh time. Views are derived from it on demand.
type AnalysisSnapshot struct {
	Dialect     Dialect
	Schema      string
	Table       string
	Groups      []IndexGroup
	Usage       map[string]UsageStat
	Sizes       map[string]SizeStat
	Stats       TableStats
	Suggestions SuggestionIndex
}

// NewAnalysisSnapshot groups the raw rows and indexes the telemetry. The
// first stat for a given index name wins.
func NewAnalysisSnapshot(d Dialect, schema, table string, rows []IndexRow, suggestions []Suggestion,
	stats TableStats, usage []UsageStat, sizes []SizeStat) AnalysisSnapshot {
	s := AnalysisSnapshot{
		Dialect:     d,
		Schema:      schema,
		Table:       table,
		Groups:      GroupIndexRows(rows),
		Usage:       make(map[string]UsageStat, len(usage)),
		Sizes:       make(map[string]SizeStat, len(sizes)),
		Stats:       stats,
		Suggestions: NewSuggestionIndex(suggestions, d),
	}
	for _, u := range usage {
		if _, ok := s.Usage[u.IndexName]; !ok {
			s.Usage[u.IndexName] = u
		}
	}
	for _, z := range sizes {
		if _, ok := s.Sizes[z.IndexName]; !ok {
			s.Sizes[z.IndexName] = z
		}
	}
	return s
}

// EvenSplitEstimate is total index storage divided evenly across the table's indexes.
func (s AnalysisSnapshot) EvenSplitEstimate() int64 {
	if len(s.Groups) == 0 || s.Stats.IndexBytes <= 0 {
		return 0
	}
	return s.Stats.IndexBytes / int64(len(s.Groups))
}

// IndexView is one index annotated with its derived signal, score and drop statement.
type IndexView struct {
	IndexGroup
	Signal        Signal     `json:"signal"`
	Score         IndexScore `json:"score"`
	Ops           int64      `json:"ops"`
	UsageKnown    bool       `json:"usage_known"`
	SizeBytes     int64      `json:"size_bytes"`
	SizeEstimated bool       `json:"size_estimated"`
	DropSQL       string     `json:"drop_sql,omitempty"`
}

// Droppable reports whether the index may be selected for a drop.
func (v IndexView) Droppable() bool {
	return v.Signal.Label != SignalProtected
}

// AnalysisView is the derived per-table view rendered to callers.
type AnalysisView struct {
	Dialect Dialect       `json:"dialect"`
	Schema  string        `json:"schema"`
	Table   string        `json:"table"`
	Config  ScoringConfig `json:"scoring"`
	Indexes []IndexView   `json:"indexes"`
}

// Find returns the view for an index name.
func (v AnalysisView) Find(name string) (IndexView, bool) {
	for _, iv := range v.Indexes {
		if iv.Name == name {
			return iv, true
		}
	}
	return IndexView{}, false
}

// BuildView classifies and scores every index of the snapshot under cfg.
// It is recomputed in full on every call.
func BuildView(s AnalysisSnapshot, cfg ScoringConfig) AnalysisView {
	cfg = cfg.Clamped()

	var maxOps, maxSize int64
	for _, u := range s.Usage {
		if u.TotalOps > maxOps {
			maxOps = u.TotalOps
		}
	}
	for _, z := range s.Sizes {
		if z.SizeBytes > maxSize {
			maxSize = z.SizeBytes
		}
	}
	estimate := s.EvenSplitEstimate()

	view := AnalysisView{
		Dialect: s.Dialect,
		Schema:  s.Schema,
		Table:   s.Table,
		Config:  cfg,
		Indexes: make([]IndexView, 0, len(s.Groups)),
	}
	for _, g := range s.Groups {
		u, usageKnown := s.Usage[g.Name]
		z, sizeKnown := s.Sizes[g.Name]

		iv := IndexView{
			IndexGroup: g,
			Signal:     Classify(g, s.Dialect, s.Usage, s.Suggestions),
			Ops:        u.TotalOps,
			UsageKnown: usageKnown,
			SizeBytes:  z.SizeBytes,
		}
		if !sizeKnown {
			iv.SizeBytes = estimate
			iv.SizeEstimated = true
		}
		iv.Score = ScoreIndex(ScoreInput{
			Ops:          u.TotalOps,
			UsageKnown:   usageKnown,
			MaxOps:       maxOps,
			SizeBytes:    z.SizeBytes,
			SizeKnown:    sizeKnown,
			SizeEstimate: estimate,
			MaxSize:      maxSize,
			ColumnCount:  len(g.Columns),
			Unique:       g.Unique,
			Primary:      IsPrimaryIndex(g, s.Dialect),
		}, cfg)
		if iv.Droppable() {
			iv.DropSQL = BuildDropStatement(g.Name, s.Table, s.Schema, s.Dialect)
		}
		view.Indexes = append(view.Indexes, iv)
	}
	return view
}
