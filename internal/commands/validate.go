// internal/commands/validate.go
package crossbench

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mwiater/crossbench/internal/benchmark"
	"github.com/mwiater/crossbench/internal/isolation"
)

// validateCmd checks a workload descriptor and the host environment without
// running any measurement.
var validateCmd = &cobra.Command{
	Use:   "validate <workload-dir>",
	Short: "Validate a workload descriptor and probe the host environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workload, err := benchmark.LoadWorkload(args[0], "")
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintf(out, "✓ %s is valid\n\n", benchmark.DescriptorName)
		fmt.Fprintf(out, "Workload: %s\n", workload.ID)
		if workload.Description != "" {
			fmt.Fprintf(out, "Description: %s\n", workload.Description)
		}
		if workload.Input != "" {
			fmt.Fprintf(out, "Input: %s\n", workload.Input)
		}
		fmt.Fprintf(out, "Targets (%d):\n", len(workload.Targets))
		for _, target := range workload.Targets {
			fmt.Fprintf(out, "  %-12s run: %s\n", target.Name, strings.Join(target.Run, " "))
			if len(target.Build) > 0 {
				fmt.Fprintf(out, "  %-12s build: %s\n", "", strings.Join(target.Build, " "))
			}
		}

		printEnvironmentChecks(cmd)
		return nil
	},
}

// printEnvironmentChecks probes isolation capabilities without mutating the
// host, so operators can see before a run whether isolation will apply.
func printEnvironmentChecks(cmd *cobra.Command) {
	cfg := GetConfig()
	controller := isolation.New(cfg.IsolationCores(), cfg.TargetGovernor())

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nEnvironment:")
	for _, check := range controller.Probe() {
		if check.OK {
			color.New(color.FgGreen).Fprintf(out, "  ✓ %-18s %s\n", check.Name, check.Detail)
		} else {
			color.New(color.FgYellow).Fprintf(out, "  ! %-18s %s\n", check.Name, check.Detail)
		}
	}
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
