package domain

// IndexRow is one (index, column) pair as returned by catalog introspection.
type IndexRow struct {
	Name       string `json:"name"`
	IndexType  string `json:"index_type"`
	NonUnique  bool   `json:"non_unique"`
	ColumnName string `json:"column_name"`
	Primary    bool   `json:"primary,omitempty"`
}

// IndexGroup is a logical index reconstructed from its per-column rows.
type IndexGroup struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Unique  bool     `json:"unique"`
	Primary bool     `json:"primary,omitempty"`
	Columns []string `json:"columns"`
}

// GroupIndexRows collapses flat catalog rows into index groups. Groups keep the
// order in which their name was first seen, and columns keep per-index
// first-seen order. Repeated (index, column) rows are folded.
func GroupIndexRows(rows []IndexRow) []IndexGroup {
	groups := make([]IndexGroup, 0)
	pos := make(map[string]int)
	seen := make(map[string]map[string]bool)

	for _, r := range rows {
		i, ok := pos[r.Name]
		if !ok {
			i = len(groups)
			pos[r.Name] = i
			seen[r.Name] = make(map[string]bool)
			groups = append(groups, IndexGroup{
				Name:    r.Name,
				Type:    r.IndexType,
				Unique:  !r.NonUnique,
				Columns: []string{},
			})
		}
		if r.Primary {
			groups[i].Primary = true
		}
		if r.ColumnName == "" || seen[r.Name][r.ColumnName] {
			continue
		}
		seen[r.Name][r.ColumnName] = true
		groups[i].Columns = append(groups[i].Columns, r.ColumnName)
	}
	return groups
}
