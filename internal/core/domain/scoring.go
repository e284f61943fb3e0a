package domain

import (
	"fmt"
	"math"
)

// Scoring constants. The neutral prior stands in for telemetry that does not
// exist; the floor and span keep every reported score inside [5,95].
const (
	neutralPrior = 0.35
	scoreFloor   = 10
	scoreSpan    = 85
	scoreMin     = 5
	scoreMax     = 95
	widthSpan    = 4
)

// ImpactWeights weight the benefit-of-removal factors.
type ImpactWeights struct {
	Size  float64 `json:"size"`
	Usage float64 `json:"usage"`
	Width float64 `json:"width"`
}

// RiskWeights weight the harm-of-removal factors.
type RiskWeights struct {
	Usage   float64 `json:"usage"`
	Unique  float64 `json:"unique"`
	Primary float64 `json:"primary"`
}

// ScoringConfig holds the user-calibratable weights. Weights need not sum to 1.
type ScoringConfig struct {
	Impact ImpactWeights `json:"impact"`
	Risk   RiskWeights   `json:"risk"`
}

// DefaultScoringConfig returns the documented default weights.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Impact: ImpactWeights{Size: 0.5, Usage: 0.35, Width: 0.15},
		Risk:   RiskWeights{Usage: 0.6, Unique: 0.25, Primary: 0.15},
	}
}

// Clamped returns a copy with every weight forced into [0,1]. NaN becomes 0.
func (c ScoringConfig) Clamped() ScoringConfig {
	return ScoringConfig{
		Impact: ImpactWeights{
			Size:  clampUnit(c.Impact.Size),
			Usage: clampUnit(c.Impact.Usage),
			Width: clampUnit(c.Impact.Width),
		},
		Risk: RiskWeights{
			Usage:   clampUnit(c.Risk.Usage),
			Unique:  clampUnit(c.Risk.Unique),
			Primary: clampUnit(c.Risk.Primary),
		},
	}
}

// WithWeight returns a copy with one weight replaced (clamped). group is
// "impact" or "risk"; key names a field of that group.
func (c ScoringConfig) WithWeight(group, key string, v float64) (ScoringConfig, error) {
	v = clampUnit(v)
	switch group + "." + key {
	case "impact.size":
		c.Impact.Size = v
	case "impact.usage":
		c.Impact.Usage = v
	case "impact.width":
		c.Impact.Width = v
	case "risk.usage":
		c.Risk.Usage = v
	case "risk.unique":
		c.Risk.Unique = v
	case "risk.primary":
		c.Risk.Primary = v
	default:
		return c, fmt.Errorf("%w: %s.%s", ErrUnknownWeight, group, key)
	}
	return c, nil
}

// IndexScore is the derived impact/risk pair, each in [5,95].
type IndexScore struct {
	Impact int `json:"impact"`
	Risk   int `json:"risk"`
}

// WeightedPart is one factor of a weighted average.
type WeightedPart struct {
	Value  float64
	Weight float64
}

// NormalizeMetric log-compresses value against max into [0,1]. Returns 0 when max <= 0.
func NormalizeMetric(value, max float64) float64 {
	if max <= 0 {
		return 0
	}
	if value < 0 {
		value = 0
	}
	return clampUnit(math.Log1p(value) / math.Log1p(max))
}

// WeightedAvg returns sum(value*weight)/sum(weight) clamped to [0,1], or 0
// when there are no parts or the weights sum to 0.
func WeightedAvg(parts []WeightedPart) float64 {
	var num, den float64
	for _, p := range parts {
		num += p.Value * p.Weight
		den += p.Weight
	}
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return clampUnit(num / den)
}

// ScoreInput carries the per-index facts the scoring engine needs.
type ScoreInput struct {
	Ops          int64
	UsageKnown   bool
	MaxOps       int64
	SizeBytes    int64
	SizeKnown    bool
	SizeEstimate int64
	MaxSize      int64
	ColumnCount  int
	Unique       bool
	Primary      bool
}

// ScoreIndex computes impact and risk for one index under cfg.
func ScoreIndex(in ScoreInput, cfg ScoringConfig) IndexScore {
	usageNorm := neutralPrior
	if in.UsageKnown {
		usageNorm = NormalizeMetric(float64(in.Ops), float64(in.MaxOps))
	}

	sizeNorm := neutralPrior
	switch {
	case in.SizeKnown:
		sizeNorm = NormalizeMetric(float64(in.SizeBytes), float64(in.MaxSize))
	case in.SizeEstimate > 0:
		sizeNorm = 1
	}

	widthNorm := clampUnit(float64(in.ColumnCount-1) / widthSpan)

	impact := WeightedAvg([]WeightedPart{
		{Value: sizeNorm, Weight: cfg.Impact.Size},
		{Value: 1 - usageNorm, Weight: cfg.Impact.Usage},
		{Value: widthNorm, Weight: cfg.Impact.Width},
	})
	risk := WeightedAvg([]WeightedPart{
		{Value: usageNorm, Weight: cfg.Risk.Usage},
		{Value: boolUnit(in.Unique), Weight: cfg.Risk.Unique},
		{Value: boolUnit(in.Primary), Weight: cfg.Risk.Primary},
	})

	return IndexScore{Impact: toScore(impact), Risk: toScore(risk)}
}

func toScore(norm float64) int {
	s := int(math.Round(scoreFloor + norm*scoreSpan))
	if s < scoreMin {
		return scoreMin
	}
	if s > scoreMax {
		return scoreMax
	}
	return s
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func boolUnit(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
