// cmd/crossbench/main.go
package main

import (
	commands "github.com/mwiater/crossbench/internal/commands"
)

// Build-time variables injected via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// main starts the crossbench CLI by delegating to the cobra root command.
func main() {
	commands.SetVersionInfo(version, commit, date)
	commands.Execute()
}
