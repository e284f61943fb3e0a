package domain

import (
	"fmt"
	"math"
)

// CardinalityClass buckets a column by how many distinct values it holds
// relative to the table.
type CardinalityClass string

const (
	CardinalityUnique          CardinalityClass = "unique"
	CardinalityNearUnique      CardinalityClass = "near_unique"
	CardinalityHighCardinality CardinalityClass = "high_cardinality"
	CardinalityLowCardinality  CardinalityClass = "low_cardinality"
	CardinalityEnumLike        CardinalityClass = "enum_like"
)

const (
	nearUniqueRatio    = 0.9
	enumLikeMaxValues  = 20
	lowCardinalityMaxV = 200
)

// ClassifyByDistinctCount buckets a column from absolute distinct and row
// counts. Engine statistics (pg_stats n_distinct, InnoDB CARDINALITY) are
// converted to absolute counts by the adapters first.
func ClassifyByDistinctCount(distinct, rows int64) CardinalityClass {
	switch {
	case rows > 0 && distinct == rows:
		return CardinalityUnique
	case rows > 0 && float64(distinct)/float64(rows) >= nearUniqueRatio:
		return CardinalityNearUnique
	case distinct <= enumLikeMaxValues:
		return CardinalityEnumLike
	case distinct <= lowCardinalityMaxV:
		return CardinalityLowCardinality
	default:
		return CardinalityHighCardinality
	}
}

// LowSelectivity reports whether a column of this class makes a poor leading
// index key: an equality lookup still touches a large share of the table.
func (c CardinalityClass) LowSelectivity() bool {
	return c == CardinalityEnumLike
}

// LowSelectivitySuggestion flags column as a weak leading key when its
// distinct count is enum-like. Unknown statistics (zero distinct or rows)
// never produce a suggestion.
func LowSelectivitySuggestion(column string, distinct, rows int64) (Suggestion, bool) {
	if distinct <= 0 || rows <= 0 {
		return Suggestion{}, false
	}
	if !ClassifyByDistinctCount(distinct, rows).LowSelectivity() {
		return Suggestion{}, false
	}
	perValue := int64(math.Round(float64(rows) / float64(distinct)))
	return ByColumn(column, fmt.Sprintf("Low selectivity: about %d distinct values, ~%d rows per value.", distinct, perValue)), true
}
