package domain

import "fmt"

// SignalLabel is the categorical removal-safety classification of an index.
type SignalLabel string

const (
	SignalProtected  SignalLabel = "protected"
	SignalUnused     SignalLabel = "unused"
	SignalLowUtility SignalLabel = "low-utility"
	SignalActive     SignalLabel = "active"
	SignalUnknown    SignalLabel = "unknown"
)

const (
	reasonPrimary        = "Primary index."
	reasonNoOps          = "No index operations recorded."
	reasonSuggested      = "Flagged as unused by heuristics."
	reasonLowSelectivity = "Low selectivity."
	reasonNoSignal       = "No usage signal."
)

// Signal pairs a label with a human-readable reason.
type Signal struct {
	Label  SignalLabel `json:"label"`
	Reason string      `json:"reason"`
}

// Classify assigns a signal to g. Rules are evaluated in strict priority
// order: identity indexes, measured zero usage, index-level suggestions,
// column-level suggestions, measured usage, then the unknown fallback.
func Classify(g IndexGroup, d Dialect, usage map[string]UsageStat, sugg SuggestionIndex) Signal {
	if IsPrimaryIndex(g, d) {
		return Signal{Label: SignalProtected, Reason: reasonPrimary}
	}

	u, hasUsage := usage[g.Name]
	if hasUsage && u.TotalOps == 0 {
		return Signal{Label: SignalUnused, Reason: reasonNoOps}
	}

	if !hasUsage {
		if s, ok := sugg.ForIndex(g.Name); ok {
			return Signal{Label: SignalUnused, Reason: orDefault(s.Reason, reasonSuggested)}
		}
	}

	if s, ok := sugg.ForColumns(g.Columns); ok {
		return Signal{Label: SignalLowUtility, Reason: orDefault(s.Reason, reasonLowSelectivity)}
	}

	if hasUsage {
		return Signal{Label: SignalActive, Reason: fmt.Sprintf("%d ops recorded", u.TotalOps)}
	}

	return Signal{Label: SignalUnknown, Reason: reasonNoSignal}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
