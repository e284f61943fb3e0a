package domain

// Write-overhead heuristic: dropping every index of a table is credited with
// at most this much write-path saving. It is a rough estimate, not a measurement.
const maxWriteReductionPct = 60.0

// Verdict thresholds.
const (
	noGoRegressionPct     = 25.0
	reviewConfidenceBelow = 50.0
)

// Verdict is the go/no-go reading of a settled selection.
type Verdict string

const (
	VerdictGo      Verdict = "go"
	VerdictReview  Verdict = "review"
	VerdictNoGo    Verdict = "no-go"
	VerdictPending Verdict = "pending"
)

// SelectionSummary aggregates a selection and, when present, its settled batch.
type SelectionSummary struct {
	Selected             int     `json:"selected"`
	TotalIndexes         int     `json:"total_indexes"`
	AvgRisk              float64 `json:"avg_risk"`
	AvgImpact            float64 `json:"avg_impact"`
	StorageReclaimed     int64   `json:"storage_reclaimed_bytes"`
	WriteReductionPct    float64 `json:"write_overhead_reduction_pct"`
	Simulated            int     `json:"simulated"`
	Failed               int     `json:"failed"`
	AvgConfidence        float64 `json:"avg_confidence"`
	AvgRegressionPct     float64 `json:"avg_regression_pct"`
	WorstRegressionPct   float64 `json:"worst_regression_pct"`
	TotalRegressions     int     `json:"total_regressions"`
	Verdict              Verdict `json:"verdict"`
	WriteReductionCaveat string  `json:"write_overhead_caveat"`
}

// Summarize aggregates the selection over view and, restricted to indexes
// still selected, over the batch results. Unknown or protected names in the
// selection are ignored.
func Summarize(view AnalysisView, selection []string, results []SimulationResult) SelectionSummary {
	sum := SelectionSummary{
		TotalIndexes:         len(view.Indexes),
		Verdict:              VerdictPending,
		WriteReductionCaveat: "crude heuristic: proportional share of indexes dropped, capped at 60%",
	}

	selected := make(map[string]bool, len(selection))
	var riskTotal, impactTotal int
	for _, name := range selection {
		iv, ok := view.Find(name)
		if !ok || !iv.Droppable() || selected[name] {
			continue
		}
		selected[name] = true
		sum.Selected++
		riskTotal += iv.Score.Risk
		impactTotal += iv.Score.Impact
		sum.StorageReclaimed += iv.SizeBytes
	}
	if sum.Selected == 0 {
		return sum
	}
	sum.AvgRisk = float64(riskTotal) / float64(sum.Selected)
	sum.AvgImpact = float64(impactTotal) / float64(sum.Selected)
	sum.WriteReductionPct = maxWriteReductionPct * float64(sum.Selected) / float64(sum.TotalIndexes)

	var confTotal, regTotal float64
	for _, r := range results {
		if !selected[r.IndexName] {
			continue
		}
		sum.Simulated++
		if r.Failed() {
			sum.Failed++
		}
		confTotal += r.ConfidenceScore
		regTotal += r.AvgRegressionPct
		sum.TotalRegressions += r.Regressions
		if sum.Simulated == 1 || r.WorstRegressionPct > sum.WorstRegressionPct {
			sum.WorstRegressionPct = r.WorstRegressionPct
		}
	}
	if sum.Simulated == 0 {
		return sum
	}
	sum.AvgConfidence = confTotal / float64(sum.Simulated)
	sum.AvgRegressionPct = regTotal / float64(sum.Simulated)

	switch {
	case sum.Failed > 0 || sum.WorstRegressionPct >= noGoRegressionPct:
		sum.Verdict = VerdictNoGo
	case sum.Simulated < sum.Selected, sum.AvgConfidence < reviewConfidenceBelow:
		sum.Verdict = VerdictReview
	default:
		sum.Verdict = VerdictGo
	}
	return sum
}
