// internal/report/markdown.go
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mwiater/crossbench/internal/benchmark"
	"github.com/mwiater/crossbench/internal/regression"
)

// statusMarker maps a verdict status to its summary marker.
func statusMarker(status regression.Status) string {
	switch status {
	case regression.StatusHealthy:
		return "✅"
	case regression.StatusWarning:
		return "⚠️"
	case regression.StatusCritical:
		return "❌"
	default:
		return "❓"
	}
}

// RenderMarkdown produces the consolidated human-readable summary. Output is
// deterministic for a given report: section order, row order, and number
// formatting never depend on map iteration or wall-clock state.
func RenderMarkdown(report *Report) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# Benchmark Report: %s\n\n", report.Workload)
	if report.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", report.Description)
	}
	fmt.Fprintf(&b, "- Generated: %s\n", report.GeneratedAt)
	fmt.Fprintf(&b, "- Host: %s (%s/%s)\n", report.System.Hostname, report.System.OS, report.System.Arch)
	if report.System.CPUModel != "" {
		fmt.Fprintf(&b, "- CPU: %s (%d logical cores)\n", report.System.CPUModel, report.System.CPUCount)
	}
	writeIsolationLine(&b, report)
	b.WriteString("\n")

	writeResultsTable(&b, report.Results)
	writeRanking(&b, report.Results)
	writeMemoryTable(&b, report.Results)
	writeBinaryTable(&b, report.Results)
	writeVerdicts(&b, report.Verdicts)

	return []byte(b.String())
}

func writeIsolationLine(b *strings.Builder, report *Report) {
	if len(report.Results) == 0 {
		return
	}
	iso := report.Results[0].Isolation
	if !iso.Applied {
		fmt.Fprintf(b, "- Isolation: not applied\n")
		return
	}
	cores := make([]string, len(iso.RequestedCores))
	for i, core := range iso.RequestedCores {
		cores[i] = fmt.Sprintf("%d", core)
	}
	fmt.Fprintf(b, "- Isolation: cores=%s governor=%s\n", strings.Join(cores, ","), iso.GovernorMode)
	for _, warning := range iso.Warnings {
		fmt.Fprintf(b, "- Isolation warning: %s\n", warning)
	}
}

func writeResultsTable(b *strings.Builder, results []benchmark.Result) {
	b.WriteString("## Results\n\n")
	b.WriteString("| Language | Mean | Std Dev | P50 | P95 | P99 | CV | Outliers | Samples | Failed Iterations |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|\n")

	for _, result := range results {
		if result.Failed {
			fmt.Fprintf(b, "| %s | FAILED | — | — | — | — | — | — | — | %d |\n",
				result.Language, result.FailedIterations)
			continue
		}
		s := result.Statistics
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s | %.1f%% | %d (%.1f%%) | %d | %d |\n",
			result.Language,
			formatNs(s.MeanNs), formatNs(s.StdDevNs),
			formatNs(s.P50Ns), formatNs(s.P95Ns), formatNs(s.P99Ns),
			s.CoefficientOfVariation*100,
			s.OutlierCount, s.OutlierPercent,
			s.SampleCount, result.FailedIterations)
	}
	b.WriteString("\n")

	anyFailed := false
	for _, result := range results {
		if result.Failed {
			fmt.Fprintf(b, "> %s failed: %s\n", result.Language, result.FailureReason)
			anyFailed = true
		}
	}
	if anyFailed {
		b.WriteString("\n")
	}
}

// writeRanking orders successful languages by mean and shows the slowdown
// factor relative to the fastest.
func writeRanking(b *strings.Builder, results []benchmark.Result) {
	var ranked []benchmark.Result
	for _, result := range results {
		if !result.Failed && result.Statistics != nil {
			ranked = append(ranked, result)
		}
	}
	if len(ranked) < 2 {
		return
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Statistics.MeanNs < ranked[j].Statistics.MeanNs
	})

	b.WriteString("## Ranking\n\n")
	b.WriteString("| Rank | Language | Mean | Relative |\n")
	b.WriteString("|---|---|---|---|\n")
	fastest := ranked[0].Statistics.MeanNs
	for i, result := range ranked {
		relative := "1.00×"
		if fastest > 0 {
			relative = fmt.Sprintf("%.2f×", result.Statistics.MeanNs/fastest)
		}
		fmt.Fprintf(b, "| %d | %s | %s | %s |\n",
			i+1, result.Language, formatNs(result.Statistics.MeanNs), relative)
	}
	b.WriteString("\n")
}

func writeMemoryTable(b *strings.Builder, results []benchmark.Result) {
	present := false
	for _, result := range results {
		if result.MemoryProfile != nil {
			present = true
			break
		}
	}
	if !present {
		return
	}

	b.WriteString("## Memory\n\n")
	b.WriteString("| Language | Peak RSS | Average RSS | Samples |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, result := range results {
		profile := result.MemoryProfile
		if profile == nil {
			continue
		}
		fmt.Fprintf(b, "| %s | %s | %s | %d |\n",
			result.Language, formatBytes(profile.PeakRSSBytes), formatBytes(profile.AverageRSSBytes), profile.SampleCount)
	}
	b.WriteString("\n")
}

func writeBinaryTable(b *strings.Builder, results []benchmark.Result) {
	present := false
	for _, result := range results {
		if result.BinaryAnalysis != nil {
			present = true
			break
		}
	}
	if !present {
		return
	}

	b.WriteString("## Binary Size\n\n")
	b.WriteString("| Language | Total | Format | Stripped | Text | Data | Debug |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, result := range results {
		bin := result.BinaryAnalysis
		if bin == nil {
			continue
		}
		fmt.Fprintf(b, "| %s | %s | %s | %v | %s | %s | %s |\n",
			result.Language, formatBytes(uint64(bin.TotalSizeBytes)), bin.Format, bin.Stripped,
			formatBytes(bin.Sections.TextBytes), formatBytes(bin.Sections.DataBytes), formatBytes(bin.Sections.DebugBytes))
	}
	b.WriteString("\n")
}

func writeVerdicts(b *strings.Builder, verdicts []regression.Verdict) {
	if len(verdicts) == 0 {
		return
	}

	b.WriteString("## Regression Verdicts\n\n")
	b.WriteString("| Entry | Status | Δ Mean | Threshold | Note |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, verdict := range verdicts {
		delta := "—"
		note := ""
		if verdict.Comparison != nil {
			delta = fmt.Sprintf("%+.2f%%", verdict.DeltaPercent)
			note = string(verdict.Comparison.Significance)
		}
		if verdict.Improved {
			note = "improved"
		}
		if verdict.Status == regression.StatusInconclusive {
			note = "baseline established"
		}
		fmt.Fprintf(b, "| %s | %s %s | %s | %.1f%% | %s |\n",
			verdict.Key, statusMarker(verdict.Status), verdict.Status, delta, verdict.ThresholdPercent, note)
	}
	b.WriteString("\n")

	wrote := false
	for _, verdict := range verdicts {
		if rec := recommendation(verdict); rec != "" {
			fmt.Fprintf(b, "> %s: %s\n", verdict.Key, rec)
			wrote = true
		}
	}
	if wrote {
		b.WriteString("\n")
	}
}

// recommendation is the one-line operator guidance for a verdict.
func recommendation(verdict regression.Verdict) string {
	switch verdict.Status {
	case regression.StatusCritical:
		return fmt.Sprintf("critical regression of %.2f%% — investigate before merging; rerun with higher iteration counts to confirm", verdict.DeltaPercent)
	case regression.StatusWarning:
		return fmt.Sprintf("regression of %.2f%% exceeds the %.1f%% threshold — monitor the next runs for a trend", verdict.DeltaPercent, verdict.ThresholdPercent)
	case regression.StatusInconclusive:
		return "no baseline existed; this run's statistics were recorded as the new baseline"
	default:
		if verdict.Improved {
			return fmt.Sprintf("improved by %.2f%% — consider re-establishing the baseline to lock in the gain", -verdict.DeltaPercent)
		}
		return ""
	}
}

// formatNs renders a nanosecond quantity at a unit that keeps two to three
// significant decimals.
func formatNs(ns float64) string {
	switch {
	case ns < 0:
		return "-" + formatNs(-ns)
	case ns < 1_000:
		return fmt.Sprintf("%.0fns", ns)
	case ns < 1_000_000:
		return fmt.Sprintf("%.2fµs", ns/1_000)
	case ns < 1_000_000_000:
		return fmt.Sprintf("%.2fms", ns/1_000_000)
	default:
		return fmt.Sprintf("%.3fs", ns/1_000_000_000)
	}
}

func formatBytes(n uint64) string {
	switch {
	case n < 1<<10:
		return fmt.Sprintf("%dB", n)
	case n < 1<<20:
		return fmt.Sprintf("%.1fKiB", float64(n)/(1<<10))
	case n < 1<<30:
		return fmt.Sprintf("%.1fMiB", float64(n)/(1<<20))
	default:
		return fmt.Sprintf("%.2fGiB", float64(n)/(1<<30))
	}
}
