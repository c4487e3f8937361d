// internal/appconfig/show.go
package appconfig

import (
	"fmt"
	"io"
	"strings"
)

// ShowConfig prints the merged configuration (flags > config > defaults).
func ShowConfig(out io.Writer, file string, cfg *Config, fallback Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	if cfg == nil {
		cfg = &fallback
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Debug:                %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Languages:            %s\n", formatLanguages(cfg.Languages))
	fmt.Fprintf(out, "  Iterations:           %d\n", cfg.MeasuredIterations())
	fmt.Fprintf(out, "  Warmup Iterations:    %d\n", cfg.Warmup())
	fmt.Fprintf(out, "  High Precision:       %v\n", cfg.HighPrecision)
	fmt.Fprintf(out, "  Invocation Timeout:   %s\n", cfg.InvocationTimeout())
	fmt.Fprintf(out, "  Regression Threshold: %.1f%%\n", cfg.Threshold())
	fmt.Fprintf(out, "  Isolation:            %v\n", cfg.IsolationEnabled)
	fmt.Fprintf(out, "  Isolation Cores:      %v\n", cfg.IsolationCores())
	fmt.Fprintf(out, "  Governor:             %s\n", cfg.TargetGovernor())
	fmt.Fprintf(out, "  Memory Profiling:     %v\n", cfg.MemoryProfiling)
	fmt.Fprintf(out, "  Binary Analysis:      %v\n", cfg.BinaryAnalysis)
	fmt.Fprintf(out, "  Report Directory:     %s\n", cfg.ReportDirectory())
	fmt.Fprintf(out, "  Baseline File:        %s\n", cfg.BaselineFile())
	fmt.Fprintf(out, "  Log File:             %s\n", cfg.LogFilePath())
}

func formatLanguages(languages []string) string {
	if len(languages) == 0 {
		return "(all targets in workload)"
	}
	return strings.Join(languages, ", ")
}
