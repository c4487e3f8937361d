// internal/commands/show.go
package crossbench

import (
	"github.com/spf13/cobra"
)

// showCmd groups read-only inspection subcommands.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show harness state (config, baseline)",
}

func init() {
	rootCmd.AddCommand(showCmd)
}
