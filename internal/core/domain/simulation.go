package domain

import "math"

// ModeFailed marks a result synthesized locally after a provider error.
const ModeFailed = "failed"

// QueryDiff is the provider's per-query before/after plan comparison.
type QueryDiff struct {
	Fingerprint   string  `json:"fingerprint"`
	Query         string  `json:"query,omitempty"`
	CostBefore    float64 `json:"cost_before"`
	CostAfter     float64 `json:"cost_after"`
	RegressionPct float64 `json:"regression_pct"`
	UsedIndex     bool    `json:"used_index"`
	Error         string  `json:"error,omitempty"`
}

// SimulationResult is the what-if outcome of dropping one index.
type SimulationResult struct {
	IndexName          string      `json:"index_name"`
	Mode               string      `json:"mode"`
	DropSQL            string      `json:"drop_sql"`
	RollbackSQL        string      `json:"rollback_sql,omitempty"`
	AnalyzedQueries    int         `json:"analyzed_queries"`
	MatchedQueries     int         `json:"matched_queries"`
	FailedQueries      int         `json:"failed_queries"`
	Regressions        int         `json:"regressions"`
	AvgRegressionPct   float64     `json:"avg_regression_pct"`
	WorstRegressionPct float64     `json:"worst_regression_pct"`
	CoverageRatio      float64     `json:"coverage_ratio"`
	ConfidenceScore    float64     `json:"confidence_score"`
	QueryDiffs         []QueryDiff `json:"query_diffs"`
	Notes              []string    `json:"notes"`
}

// Failed reports whether the result was synthesized from a provider error.
func (r SimulationResult) Failed() bool {
	return r.Mode == ModeFailed
}

// FailedSimulation converts a provider error into a result that keeps the
// drop statement available and records the reason.
func FailedSimulation(index, dropSQL string, err error) SimulationResult {
	reason := "simulation failed"
	if err != nil {
		reason = "simulation failed: " + err.Error()
	}
	return SimulationResult{
		IndexName:  index,
		Mode:       ModeFailed,
		DropSQL:    dropSQL,
		QueryDiffs: []QueryDiff{},
		Notes:      []string{reason},
	}
}

// Normalized returns r with ranges enforced: coverage in [0,1], confidence in
// [0,100], non-nil slices, and a drop statement filled in when missing.
func (r SimulationResult) Normalized(index, dropSQL string) SimulationResult {
	if r.IndexName == "" {
		r.IndexName = index
	}
	if r.DropSQL == "" {
		r.DropSQL = dropSQL
	}
	r.CoverageRatio = clampUnit(r.CoverageRatio)
	r.ConfidenceScore = clampRange(r.ConfidenceScore, 0, 100)
	if r.QueryDiffs == nil {
		r.QueryDiffs = []QueryDiff{}
	}
	if r.Notes == nil {
		r.Notes = []string{}
	}
	return r
}

func clampRange(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
