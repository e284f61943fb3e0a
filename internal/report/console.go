package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/guillermoBallester/indexlens/internal/core/domain"
)

// Report is everything one console run prints for a table.
type Report struct {
	View      domain.AnalysisView
	Selection []string
	Summary   domain.SelectionSummary
	Results   []domain.SimulationResult
	Plan      string
}

// ConsoleReporter renders a Report as aligned, colored text.
type ConsoleReporter struct {
	out io.Writer
}

func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

var (
	headerColor = color.New(color.Bold)
	dimColor    = color.New(color.Faint)
)

func signalColor(label domain.SignalLabel) *color.Color {
	switch label {
	case domain.SignalProtected:
		return color.New(color.FgBlue, color.Bold)
	case domain.SignalUnused:
		return color.New(color.FgGreen, color.Bold)
	case domain.SignalLowUtility:
		return color.New(color.FgYellow)
	case domain.SignalActive:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgWhite)
	}
}

func verdictColor(v domain.Verdict) *color.Color {
	switch v {
	case domain.VerdictGo:
		return color.New(color.FgGreen, color.Bold)
	case domain.VerdictReview:
		return color.New(color.FgYellow, color.Bold)
	case domain.VerdictNoGo:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.Faint)
	}
}

func (r *ConsoleReporter) Report(rep Report) error {
	w := &errWriter{w: r.out}
	v := rep.View

	target := v.Table
	if v.Schema != "" {
		target = v.Schema + "." + v.Table
	}
	w.printf("%s (%s): %d index(es)\n\n", headerColor.Sprint(target), v.Dialect, len(v.Indexes))

	if len(v.Indexes) == 0 {
		w.printf("%s\n", dimColor.Sprint("No indexes found."))
		return w.err
	}

	nameWidth := len("INDEX")
	for _, iv := range v.Indexes {
		nameWidth = max(nameWidth, len(iv.Name))
	}

	w.printf("%s\n", headerColor.Sprintf("%-*s  %-11s  %6s  %4s  %10s  %10s  %s",
		nameWidth, "INDEX", "SIGNAL", "IMPACT", "RISK", "SIZE", "OPS", "COLUMNS"))
	for _, iv := range v.Indexes {
		label := signalColor(iv.Signal.Label).Sprintf("%-11s", iv.Signal.Label)
		w.printf("%-*s  %s  %6d  %4d  %10s  %10s  %s\n",
			nameWidth, iv.Name, label, iv.Score.Impact, iv.Score.Risk,
			formatSize(iv.SizeBytes, iv.SizeEstimated), formatOps(iv.Ops, iv.UsageKnown),
			strings.Join(iv.Columns, ", "))
		w.printf("%-*s  %s\n", nameWidth, "", dimColor.Sprint(iv.Signal.Reason))
	}

	if len(rep.Selection) > 0 {
		r.summary(w, rep.Summary)
	}
	if len(rep.Results) > 0 {
		r.results(w, rep.Results)
	}
	if rep.Plan != "" {
		w.printf("\n%s\n%s", headerColor.Sprint("Drop plan"), rep.Plan)
	}
	return w.err
}

func (r *ConsoleReporter) summary(w *errWriter, s domain.SelectionSummary) {
	w.printf("\n%s\n", headerColor.Sprint("Selection"))
	w.printf("  selected            %d of %d\n", s.Selected, s.TotalIndexes)
	w.printf("  avg risk / impact   %.1f / %.1f\n", s.AvgRisk, s.AvgImpact)
	w.printf("  storage reclaimed   %s\n", formatSize(s.StorageReclaimed, false))
	w.printf("  write overhead      -%.1f%% %s\n", s.WriteReductionPct, dimColor.Sprintf("(%s)", s.WriteReductionCaveat))
	if s.Simulated == 0 {
		return
	}
	w.printf("  simulated           %d (%d failed)\n", s.Simulated, s.Failed)
	w.printf("  avg confidence      %.0f\n", s.AvgConfidence)
	w.printf("  regression avg/max  %.1f%% / %.1f%% (%d queries)\n", s.AvgRegressionPct, s.WorstRegressionPct, s.TotalRegressions)
	w.printf("  verdict             %s\n", verdictColor(s.Verdict).Sprint(s.Verdict))
}

func (r *ConsoleReporter) results(w *errWriter, results []domain.SimulationResult) {
	w.printf("\n%s\n", headerColor.Sprint("Simulation"))
	for _, res := range results {
		mode := res.Mode
		if res.Failed() {
			mode = color.RedString("%s", mode)
		}
		w.printf("  %s [%s] confidence %.0f, worst regression %.1f%%, %d/%d queries matched\n",
			res.IndexName, mode, res.ConfidenceScore, res.WorstRegressionPct, res.MatchedQueries, res.AnalyzedQueries)
		for _, n := range res.Notes {
			w.printf("    %s\n", dimColor.Sprint(n))
		}
	}
}

func formatOps(ops int64, known bool) string {
	if !known {
		return "?"
	}
	return fmt.Sprintf("%d", ops)
}

// formatSize renders bytes in binary units; estimates are prefixed with "~".
func formatSize(n int64, estimated bool) string {
	const unit = 1024
	prefix := ""
	if estimated {
		prefix = "~"
	}
	if n < unit {
		return fmt.Sprintf("%s%d B", prefix, n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%s%.1f %ciB", prefix, float64(n)/float64(div), "KMGTPE"[exp])
}

// errWriter keeps the first write error so rendering code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
