package postgres

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
)

// ModeHypoPG marks results produced by hiding the index with hypopg.
const ModeHypoPG = "hypopg"

const (
	// regressionThresholdPct is the cost increase above which a query counts as regressed.
	regressionThresholdPct = 5.0
	// confidentSampleSize is the workload size at which sample size stops limiting confidence.
	confidentSampleSize = 20
)

type explainNode struct {
	NodeType  string        `json:"Node Type"`
	TotalCost float64       `json:"Total Cost"`
	IndexName string        `json:"Index Name"`
	Plans     []explainNode `json:"Plans"`
}

// parseExplainJSON extracts the root total cost and every index name
// referenced anywhere in an EXPLAIN (FORMAT JSON) document.
func parseExplainJSON(raw []byte) (float64, map[string]bool, error) {
	var doc []struct {
		Plan explainNode `json:"Plan"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, nil, fmt.Errorf("decoding plan: %w", err)
	}
	if len(doc) == 0 {
		return 0, nil, fmt.Errorf("decoding plan: empty document")
	}

	used := make(map[string]bool)
	var walk func(n explainNode)
	walk = func(n explainNode) {
		if n.IndexName != "" {
			used[n.IndexName] = true
		}
		for _, c := range n.Plans {
			walk(c)
		}
	}
	walk(doc[0].Plan)
	return doc[0].Plan.TotalCost, used, nil
}

func regressionPct(before, after float64) float64 {
	if before <= 0 {
		return 0
	}
	return (after - before) / before * 100
}

// buildResult aggregates per-query diffs into a SimulationResult. skipped is
// the number of recorded statements the workload filter rejected.
func buildResult(index, indexDef string, diffs []domain.QueryDiff, skipped int) *domain.SimulationResult {
	res := &domain.SimulationResult{
		IndexName:       index,
		Mode:            ModeHypoPG,
		AnalyzedQueries: len(diffs),
		QueryDiffs:      diffs,
		Notes:           []string{},
	}
	if indexDef != "" {
		res.RollbackSQL = indexDef + ";"
	}
	if res.QueryDiffs == nil {
		res.QueryDiffs = []domain.QueryDiff{}
	}

	var regTotal float64
	for _, d := range diffs {
		if d.Error != "" {
			res.FailedQueries++
			continue
		}
		if !d.UsedIndex {
			continue
		}
		res.MatchedQueries++
		pct := math.Max(d.RegressionPct, 0)
		regTotal += pct
		res.WorstRegressionPct = math.Max(res.WorstRegressionPct, pct)
		if pct > regressionThresholdPct {
			res.Regressions++
		}
	}
	if res.MatchedQueries > 0 {
		res.AvgRegressionPct = regTotal / float64(res.MatchedQueries)
	}

	if skipped > 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("%d recorded statement(s) skipped: not a single SELECT.", skipped))
	}
	if res.AnalyzedQueries == 0 {
		res.Notes = append(res.Notes, "No recorded workload references this table.")
		return res
	}

	res.CoverageRatio = float64(res.AnalyzedQueries-res.FailedQueries) / float64(res.AnalyzedQueries)
	sample := math.Min(1, float64(res.AnalyzedQueries)/confidentSampleSize)
	res.ConfidenceScore = math.Round(res.CoverageRatio * sample * 100)

	res.Notes = append(res.Notes, fmt.Sprintf("%d of %d statement(s) planned with this index.", res.MatchedQueries, res.AnalyzedQueries))
	if res.FailedQueries > 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("%d statement(s) could not be planned.", res.FailedQueries))
	}
	return res
}
