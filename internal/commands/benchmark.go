// internal/commands/benchmark.go
package crossbench

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mwiater/crossbench/internal/appconfig"
	"github.com/mwiater/crossbench/internal/benchmark"
	"github.com/mwiater/crossbench/internal/isolation"
	"github.com/mwiater/crossbench/internal/logging"
	"github.com/mwiater/crossbench/internal/regression"
	"github.com/mwiater/crossbench/internal/report"
	"github.com/mwiater/crossbench/internal/stats"
	"github.com/mwiater/crossbench/internal/sysinfo"
	"github.com/mwiater/crossbench/internal/tui"
)

// benchmarkCmd runs a workload across its language targets and writes reports.
var benchmarkCmd = &cobra.Command{
	Use:   "benchmark <workload-dir> [input-size [iterations]] [languages...]",
	Short: "Run a workload across language implementations and report statistics",
	Long: `Run the workload described by <workload-dir>/workload.json across the
requested language implementations (all targets when none are named), compute
per-language statistics, compare against the stored baseline, and write JSON
and Markdown reports.

Bare integers after the workload directory are read as the input size and
iteration count; non-numeric input sizes go through --input.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := benchmarkConfig(cmd)
		input, _ := cmd.Flags().GetString("input")
		update, _ := cmd.Flags().GetBool("update-baseline")

		posInput, posIterations, languages := parseBenchmarkArgs(args[1:])
		if input == "" {
			input = posInput
		}
		if posIterations > 0 && !cmd.Flags().Changed("iterations") {
			cfg.Iterations = posIterations
		}

		outcome, err := runBenchmark(cmd.Context(), cfg, args[0], languages, input, update)
		if err != nil {
			return err
		}
		printSummary(cmd, outcome)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)

	benchmarkCmd.Flags().IntP("iterations", "i", 0, "measured iterations per language (0 = config default)")
	benchmarkCmd.Flags().IntP("warmup", "w", -1, "warm-up iterations (-1 = 10% of measured)")
	benchmarkCmd.Flags().Int("timeout", 0, "per-invocation timeout in seconds (0 = config default)")
	benchmarkCmd.Flags().String("input", "", "override the workload's input size")
	benchmarkCmd.Flags().IntSlice("cores", nil, "CPU cores to pin (default core 0)")
	benchmarkCmd.Flags().String("governor", "", "CPU frequency governor to request")
	benchmarkCmd.Flags().Bool("no-isolation", false, "skip CPU affinity and governor setup")
	benchmarkCmd.Flags().Bool("high-precision", false, "raise the iteration floor to 1000 samples")
	benchmarkCmd.Flags().Bool("no-memory-profile", false, "skip the memory profiling pass")
	benchmarkCmd.Flags().Bool("no-binary-analysis", false, "skip compiled artifact analysis")
	benchmarkCmd.Flags().String("report-dir", "", "directory for report artifacts")
	benchmarkCmd.Flags().String("baseline", "", "path to the baseline store")
	benchmarkCmd.Flags().Bool("update-baseline", false, "re-establish the baseline from this run")
}

// parseBenchmarkArgs splits the positionals after the workload directory:
// the first bare integer is the input size, the second the iteration count,
// and everything else names a language target.
func parseBenchmarkArgs(args []string) (input string, iterations int, languages []string) {
	for _, arg := range args {
		if _, err := strconv.Atoi(arg); err == nil {
			if input == "" {
				input = arg
				continue
			}
			if iterations == 0 {
				iterations, _ = strconv.Atoi(arg)
				continue
			}
		}
		languages = append(languages, arg)
	}
	return input, iterations, languages
}

// benchmarkConfig layers command flags over the loaded configuration.
func benchmarkConfig(cmd *cobra.Command) *appconfig.Config {
	cfg := *GetConfig()

	if v, _ := cmd.Flags().GetInt("iterations"); v > 0 {
		cfg.Iterations = v
	}
	if v, _ := cmd.Flags().GetInt("warmup"); v >= 0 {
		cfg.WarmupIterations = v
	}
	if v, _ := cmd.Flags().GetInt("timeout"); v > 0 {
		cfg.TimeoutSeconds = v
	}
	if v, _ := cmd.Flags().GetIntSlice("cores"); len(v) > 0 {
		cfg.Cores = v
	}
	if v, _ := cmd.Flags().GetString("governor"); v != "" {
		cfg.Governor = v
	}
	if v, _ := cmd.Flags().GetBool("no-isolation"); v {
		cfg.IsolationEnabled = false
	}
	if v, _ := cmd.Flags().GetBool("high-precision"); v {
		cfg.HighPrecision = true
	}
	if v, _ := cmd.Flags().GetBool("no-memory-profile"); v {
		cfg.MemoryProfiling = false
	}
	if v, _ := cmd.Flags().GetBool("no-binary-analysis"); v {
		cfg.BinaryAnalysis = false
	}
	if v, _ := cmd.Flags().GetString("report-dir"); v != "" {
		cfg.ReportDir = v
	}
	if v, _ := cmd.Flags().GetString("baseline"); v != "" {
		cfg.BaselinePath = v
	}
	return &cfg
}

// benchmarkOutcome bundles everything one benchmark invocation produced.
type benchmarkOutcome struct {
	Workload *benchmark.Workload
	Results  []benchmark.Result
	Verdicts []regression.Verdict
	Written  []string
}

// runBenchmark is the full pipeline: load, isolate, measure, detect, report.
func runBenchmark(ctx context.Context, cfg *appconfig.Config, dir string, languages []string, input string, updateBaseline bool) (*benchmarkOutcome, error) {
	workload, err := benchmark.LoadWorkload(dir, input)
	if err != nil {
		return nil, err
	}
	if len(languages) == 0 {
		languages = cfg.Languages
	}
	targets, err := workload.SelectTargets(languages)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	system := sysinfo.Collect()

	// Baseline history is read once before measurement starts and written at
	// most once after it; changes to the store mid-run are ignored.
	baselinePath := cfg.BaselineFile()
	baseline := regression.LoadBaseline(baselinePath)

	snapshot := isolation.Disabled()
	if cfg.IsolationEnabled {
		controller := isolation.New(cfg.IsolationCores(), cfg.TargetGovernor())
		controller.Apply()
		defer func() {
			if err := controller.Restore(); err != nil {
				logging.LogEvent("%v", err)
			}
		}()
		snapshot = controller.Snapshot()
	}

	runner := &benchmark.Runner{
		Iterations:       cfg.MeasuredIterations(),
		WarmupIterations: cfg.Warmup(),
		Timeout:          cfg.InvocationTimeout(),
		Analyzer:         &stats.Analyzer{MinSamples: cfg.MinSamples()},
		MemoryProfiling:  cfg.MemoryProfiling,
		BinaryAnalysis:   cfg.BinaryAnalysis,
		Isolation:        snapshot,
		SystemInfo:       system,
	}

	results, runErr := executeRun(ctx, cfg, runner, workload, targets)
	if len(results) == 0 {
		return nil, runErr
	}

	verdicts := detectAndReconcile(cfg, baseline, baselinePath, workload.ID, results, system, updateBaseline)

	writer := report.NewWriter(cfg.ReportDirectory())
	written := writer.Write(&report.Report{
		Workload:    workload.ID,
		Description: workload.Description,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		System:      system,
		Results:     results,
		Verdicts:    verdicts,
	})

	outcome := &benchmarkOutcome{Workload: workload, Results: results, Verdicts: verdicts, Written: written}
	return outcome, runErr
}

// useTUI reports whether the live progress view should drive this run: it
// needs a terminal on stdout and no opt-out via flag or config.
func useTUI(cfg *appconfig.Config) bool {
	return !cfg.NoTUI && !TUIDisabled() && stdoutIsTerminal()
}

// executeRun dispatches to the live progress view or a plain logged run.
func executeRun(ctx context.Context, cfg *appconfig.Config, runner *benchmark.Runner, workload *benchmark.Workload, targets []benchmark.Target) ([]benchmark.Result, error) {
	if !useTUI(cfg) {
		return runner.Run(ctx, workload, targets)
	}

	names := make([]string, len(targets))
	for i, target := range targets {
		names[i] = target.Name
	}

	var results []benchmark.Result
	err := tui.Run(ctx, workload.ID, names, func(runCtx context.Context, progress benchmark.ProgressFunc) error {
		runner.Progress = progress
		var runErr error
		results, runErr = runner.Run(runCtx, workload, targets)
		return runErr
	})
	return results, err
}

// detectAndReconcile classifies results against the baseline store and
// persists any newly established entries.
func detectAndReconcile(cfg *appconfig.Config, baseline *regression.Baseline, baselinePath string, workloadID string, results []benchmark.Result, system sysinfo.Info, updateBaseline bool) []regression.Verdict {
	var samples []regression.Sample
	for i := range results {
		if results[i].Failed || results[i].Statistics == nil {
			continue
		}
		samples = append(samples, regression.Sample{
			WorkloadID: workloadID,
			Language:   results[i].Language,
			Analysis:   results[i].Statistics,
		})
	}
	if len(samples) == 0 {
		return nil
	}

	verdicts := regression.NewDetector(cfg.Threshold()).Detect(samples, baseline)

	update := cfg.UpdateBaseline() || updateBaseline
	timestamp := time.Now().UTC().Format(time.RFC3339)
	if regression.Reconcile(baseline, samples, verdicts, update, system.Fingerprint(), timestamp) {
		if err := baseline.Save(baselinePath); err != nil {
			logging.LogEvent("%v", err)
		}
	}
	return verdicts
}

// printSummary renders the terminal summary with colored verdicts.
func printSummary(cmd *cobra.Command, outcome *benchmarkOutcome) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\nWorkload: %s\n", outcome.Workload.ID)
	for _, result := range outcome.Results {
		if result.Failed {
			color.New(color.FgRed).Fprintf(out, "  %-12s FAILED: %s\n", result.Language, result.FailureReason)
			continue
		}
		s := result.Statistics
		fmt.Fprintf(out, "  %-12s mean=%s  p95=%s  samples=%d\n",
			result.Language,
			time.Duration(s.MeanNs).Round(time.Microsecond),
			time.Duration(s.P95Ns).Round(time.Microsecond),
			s.SampleCount)
	}

	if len(outcome.Verdicts) > 0 {
		fmt.Fprintln(out, "\nRegression verdicts:")
		for _, verdict := range outcome.Verdicts {
			printVerdict(cmd, verdict)
		}
	}

	for _, path := range outcome.Written {
		fmt.Fprintf(out, "\nReport written: %s", path)
	}
	fmt.Fprintln(out)
}

func printVerdict(cmd *cobra.Command, verdict regression.Verdict) {
	out := cmd.OutOrStdout()
	label := fmt.Sprintf("  %-24s %-12s", verdict.Key, verdict.Status)

	switch verdict.Status {
	case regression.StatusHealthy:
		c := color.New(color.FgGreen)
		if verdict.Improved {
			c.Fprintf(out, "%s improved %.2f%%\n", label, -verdict.DeltaPercent)
		} else {
			c.Fprintf(out, "%s delta %+.2f%%\n", label, verdict.DeltaPercent)
		}
	case regression.StatusWarning:
		color.New(color.FgYellow).Fprintf(out, "%s delta %+.2f%% (threshold %.1f%%)\n",
			label, verdict.DeltaPercent, verdict.ThresholdPercent)
	case regression.StatusCritical:
		color.New(color.FgRed, color.Bold).Fprintf(out, "%s delta %+.2f%% (threshold %.1f%%)\n",
			label, verdict.DeltaPercent, verdict.ThresholdPercent)
	default:
		color.New(color.FgCyan).Fprintf(out, "%s baseline established\n", label)
	}
}
