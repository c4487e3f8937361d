// internal/commands/show_baseline.go
package crossbench

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwiater/crossbench/internal/regression"
)

// showBaselineCmd lists the entries of the baseline store.
var showBaselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Show the stored baseline entries",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := GetConfig()
		baseline := regression.LoadBaseline(cfg.BaselineFile())

		out := cmd.OutOrStdout()
		if len(baseline.Entries) == 0 {
			fmt.Fprintf(out, "No baseline entries in %s\n", cfg.BaselineFile())
			return
		}

		fmt.Fprintf(out, "Baseline: %s\n", cfg.BaselineFile())
		if baseline.Fingerprint != "" {
			fmt.Fprintf(out, "Environment: %s\n", baseline.Fingerprint)
		}
		if baseline.EstablishedAt != "" {
			fmt.Fprintf(out, "Established: %s\n", baseline.EstablishedAt)
		}

		keys := make([]string, 0, len(baseline.Entries))
		for key := range baseline.Entries {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(out, "\nEntries (%d):\n", len(keys))
		for _, key := range keys {
			entry := baseline.Entries[key]
			fmt.Fprintf(out, "  %-24s mean=%s  samples=%d\n",
				key, time.Duration(entry.MeanNs).Round(time.Microsecond), entry.SampleCount)
		}
	},
}

func init() {
	showCmd.AddCommand(showBaselineCmd)
}
