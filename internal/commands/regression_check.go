// internal/commands/regression_check.go
package crossbench

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwiater/crossbench/internal/regression"
)

// regressionCheckCmd runs a workload and fails the process on any critical
// regression, the contract CI pipelines gate on.
var regressionCheckCmd = &cobra.Command{
	Use:   "regression-check <workload-dir> [input-size [iterations]] [languages...]",
	Short: "Run a workload and exit non-zero on critical regressions",
	Long: `Run the workload like the benchmark command, then inspect the verdicts:
any critical regression (delta at or beyond twice the threshold) makes the
command fail so CI can block the change.`,
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

		if regression.HasCritical(outcome.Verdicts) {
			return fmt.Errorf("critical regression detected in workload %s", outcome.Workload.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(regressionCheckCmd)
	regressionCheckCmd.Flags().AddFlagSet(benchmarkCmd.Flags())
}
