// internal/isolation/probe.go
package isolation

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Check is one environment capability probe result.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Probe inspects the host without mutating anything: core availability,
// affinity support, and governor writability for the requested setup.
func (c *Controller) Probe() []Check {
	var checks []Check

	available := c.availableCores()
	coresOK := true
	var missing []int
	for _, core := range c.Cores {
		if !containsInt(available, core) {
			coresOK = false
			missing = append(missing, core)
		}
	}
	detail := fmt.Sprintf("%d cores visible", len(available))
	if !coresOK {
		detail = fmt.Sprintf("requested cores %v not in visible set %v", missing, available)
	}
	checks = append(checks, Check{Name: "core availability", OK: coresOK, Detail: detail})

	var set unix.CPUSet
	affinityErr := schedGetaffinity(0, &set)
	checks = append(checks, Check{
		Name:   "cpu affinity",
		OK:     affinityErr == nil,
		Detail: errDetail(affinityErr, "sched_getaffinity supported"),
	})

	checks = append(checks, c.probeGovernor())
	return checks
}

func (c *Controller) probeGovernor() Check {
	check := Check{Name: "governor control"}
	for _, core := range c.Cores {
		path := c.governorPath(core)
		if _, err := os.Stat(path); err != nil {
			check.Detail = fmt.Sprintf("no cpufreq interface for core %d", core)
			return check
		}
		// Open for write without writing; the kernel enforces permissions.
		file, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			check.Detail = fmt.Sprintf("governor file for core %d not writable (root required): %v", core, err)
			return check
		}
		_ = file.Close()
		if err := c.checkGovernorAvailable(core); err != nil {
			check.Detail = err.Error()
			return check
		}
	}
	check.OK = true
	check.Detail = fmt.Sprintf("governor %q writable on cores %s", c.Governor, joinInts(c.Cores))
	return check
}

func errDetail(err error, okDetail string) string {
	if err == nil {
		return okDetail
	}
	return err.Error()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ",")
}
