// internal/commands/compare.go
package crossbench

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mwiater/crossbench/internal/benchmark"
	"github.com/mwiater/crossbench/internal/stats"
)

// compareCmd compares stored result files: two files head to head, or every
// result in a directory as a cross-language table.
var compareCmd = &cobra.Command{
	Use:   "compare <results-dir> | compare <baseline-result.json> <current-result.json>",
	Short: "Compare stored result files",
	Long: `With a directory argument, load every result JSON file in it and print a
cross-language comparison table relative to the fastest. With two file
arguments, compare them head to head with significance testing.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return compareDirectory(cmd, args[0])
		}
		return compareHeadToHead(cmd, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func compareHeadToHead(cmd *cobra.Command, basePath, currentPath string) error {
	baseline, err := loadResult(basePath)
	if err != nil {
		return err
	}
	current, err := loadResult(currentPath)
	if err != nil {
		return err
	}

	comparison := stats.Compare(baseline.Statistics, current.Statistics)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Baseline: %s/%s  mean=%s\n",
		baseline.WorkloadID, baseline.Language, time.Duration(comparison.BaselineMeanNs).Round(time.Microsecond))
	fmt.Fprintf(out, "Current:  %s/%s  mean=%s\n",
		current.WorkloadID, current.Language, time.Duration(comparison.CurrentMeanNs).Round(time.Microsecond))
	fmt.Fprintf(out, "Change:   %+.2f%% (%s)\n",
		comparison.PercentChange, time.Duration(comparison.AbsoluteChangeNs).Round(time.Microsecond))

	switch comparison.Significance {
	case stats.SignificantRegression:
		color.New(color.FgRed).Fprintln(out, "Statistically significant regression")
	case stats.SignificantImprovement:
		color.New(color.FgGreen).Fprintln(out, "Statistically significant improvement")
	default:
		fmt.Fprintln(out, "No statistically significant difference (confidence intervals overlap)")
	}
	return nil
}

// compareDirectory ranks every successful result under dir by mean, slowest
// last, relative to the fastest entry.
func compareDirectory(cmd *cobra.Command, dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("scan results %s: %w", dir, err)
	}

	var results []*benchmark.Result
	for _, path := range paths {
		result, err := loadResult(path)
		if err != nil {
			// Directories mix result files with other artifacts; skip quietly.
			continue
		}
		results = append(results, result)
	}
	if len(results) == 0 {
		return fmt.Errorf("no result files with statistics found in %s", dir)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Statistics.MeanNs < results[j].Statistics.MeanNs
	})

	out := cmd.OutOrStdout()
	fastest := results[0].Statistics.MeanNs
	fmt.Fprintf(out, "%-14s %-14s %-14s %-12s %s\n", "Workload", "Language", "Mean", "P95", "Relative")
	for _, result := range results {
		s := result.Statistics
		relative := 1.0
		if fastest > 0 {
			relative = s.MeanNs / fastest
		}
		fmt.Fprintf(out, "%-14s %-14s %-14s %-12s %.2f×\n",
			result.WorkloadID, result.Language,
			time.Duration(s.MeanNs).Round(time.Microsecond),
			time.Duration(s.P95Ns).Round(time.Microsecond),
			relative)
	}
	return nil
}

// loadResult reads one per-language result file written by the report layer.
func loadResult(path string) (*benchmark.Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read result %s: %w", path, err)
	}
	var result benchmark.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("parse result %s: %w", path, err)
	}
	if result.Statistics == nil {
		return nil, fmt.Errorf("result %s carries no statistics (failed run?)", path)
	}
	return &result, nil
}
