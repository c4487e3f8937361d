// internal/isolation/isolation.go
// Package isolation applies and reverts OS-level performance isolation
// (CPU affinity, frequency governor) around a benchmark run.
package isolation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/mwiater/crossbench/internal/logging"
)

// Seams for tests; production code always goes through the real syscalls.
var (
	schedSetaffinity = unix.SchedSetaffinity
	schedGetaffinity = unix.SchedGetaffinity
)

// Result itemizes the outcome of an isolation attempt. Partial failure is
// deliberate: degraded isolation is preferable to no measurement, so callers
// get warnings and errors instead of an abort.
type Result struct {
	Applied         bool     `json:"applied"`
	IsolatedCores   []int    `json:"isolated_cores"`
	AppliedGovernor string   `json:"applied_governor,omitempty"`
	Warnings        []string `json:"warnings"`
	Errors          []string `json:"errors"`
}

// Snapshot is the environment state embedded in each benchmark result.
type Snapshot struct {
	RequestedCores []int    `json:"requested_cores"`
	GovernorMode   string   `json:"governor_mode"`
	Applied        bool     `json:"applied"`
	Warnings       []string `json:"warnings"`
	Errors         []string `json:"errors"`
}

// restoreState captures everything Apply mutates so Restore can undo it.
type restoreState struct {
	affinity     unix.CPUSet
	affinitySet  bool
	governors    map[int]string
	minFreqs     map[int]string
}

// Controller owns host-wide scheduling state for the duration of one run.
// Only one controller may be active per host at a time; it is not safe for
// concurrent runs.
type Controller struct {
	Cores         []int
	Governor      string
	LockFrequency bool

	// SysfsRoot and ProcRoot exist so tests can point the controller at a
	// scratch tree instead of the live kernel interfaces.
	SysfsRoot string
	ProcRoot  string

	lastResult *Result
	prior      *restoreState
	restored   bool
}

// New returns a controller targeting the given cores and governor.
func New(cores []int, governor string) *Controller {
	return &Controller{
		Cores:         cores,
		Governor:      governor,
		LockFrequency: true,
		SysfsRoot:     "/sys/devices/system/cpu",
		ProcRoot:      "/proc",
	}
}

// Apply pins the process to the configured cores and requests the configured
// governor. It never aborts: every failure lands in the result's Errors or
// Warnings and the run proceeds with whatever isolation was achieved.
func (c *Controller) Apply() *Result {
	result := &Result{Applied: true, Warnings: []string{}, Errors: []string{}}
	c.prior = &restoreState{governors: map[int]string{}, minFreqs: map[int]string{}}
	c.restored = false

	available := c.availableCores()
	for _, core := range c.Cores {
		if !containsInt(available, core) {
			result.Errors = append(result.Errors, fmt.Sprintf("core %d not available", core))
			result.Applied = false
		}
	}

	if result.Applied {
		if err := c.setAffinity(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("cpu affinity failed: %v", err))
			result.Applied = false
		} else {
			result.IsolatedCores = append([]int(nil), c.Cores...)
			logging.LogEvent("isolation: cpu affinity set to cores %v", c.Cores)
		}
	}

	c.applyGovernor(result)

	if c.LockFrequency {
		c.lockFrequencies(result)
	}

	c.assessNoise(result)

	if result.Applied {
		logging.LogEvent("isolation: applied (cores=%v governor=%s)", c.Cores, c.Governor)
	} else {
		logging.LogEvent("isolation: partially failed, measurements continue with reduced isolation: %v", result.Errors)
	}

	c.lastResult = result
	return result
}

// Restore undoes every mutation Apply recorded. It is idempotent so the
// caller can defer it unconditionally and still satisfy the exactly-once
// restoration guarantee on the error path.
func (c *Controller) Restore() error {
	if c.prior == nil || c.restored {
		return nil
	}
	c.restored = true

	var errs []string

	if c.prior.affinitySet {
		if err := schedSetaffinity(0, &c.prior.affinity); err != nil {
			errs = append(errs, fmt.Sprintf("restore affinity: %v", err))
		}
	}
	for core, governor := range c.prior.governors {
		path := c.governorPath(core)
		if err := os.WriteFile(path, []byte(governor), 0o644); err != nil {
			errs = append(errs, fmt.Sprintf("restore governor core %d: %v", core, err))
		}
	}
	for core, freq := range c.prior.minFreqs {
		path := c.minFreqPath(core)
		if err := os.WriteFile(path, []byte(freq), 0o644); err != nil {
			errs = append(errs, fmt.Sprintf("restore min_freq core %d: %v", core, err))
		}
	}

	logging.LogEvent("isolation: environment restored")
	if len(errs) > 0 {
		return fmt.Errorf("isolation restore: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Snapshot summarizes the last Apply outcome for embedding in results.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		RequestedCores: append([]int(nil), c.Cores...),
		GovernorMode:   c.Governor,
		Warnings:       []string{},
		Errors:         []string{},
	}
	if c.lastResult != nil {
		snap.Applied = c.lastResult.Applied
		snap.Warnings = append(snap.Warnings, c.lastResult.Warnings...)
		snap.Errors = append(snap.Errors, c.lastResult.Errors...)
	}
	return snap
}

// Disabled returns a snapshot representing a run with isolation turned off.
func Disabled() Snapshot {
	return Snapshot{RequestedCores: []int{}, GovernorMode: "", Applied: false, Warnings: []string{"isolation disabled"}, Errors: []string{}}
}

func (c *Controller) setAffinity() error {
	var prior unix.CPUSet
	if err := schedGetaffinity(0, &prior); err == nil {
		c.prior.affinity = prior
		c.prior.affinitySet = true
	}

	var set unix.CPUSet
	set.Zero()
	for _, core := range c.Cores {
		set.Set(core)
	}
	return schedSetaffinity(0, &set)
}

func (c *Controller) applyGovernor(result *Result) {
	applied := false
	for _, core := range c.Cores {
		path := c.governorPath(core)
		current, err := os.ReadFile(path)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("governor control not available for core %d", core))
			continue
		}
		if err := c.checkGovernorAvailable(core); err != nil {
			result.Warnings = append(result.Warnings, err.Error())
			continue
		}
		if err := os.WriteFile(path, []byte(c.Governor), 0o644); err != nil {
			// Almost always a permission problem on non-root runs.
			result.Warnings = append(result.Warnings, fmt.Sprintf("governor write failed for core %d (root required?): %v", core, err))
			continue
		}
		c.prior.governors[core] = strings.TrimSpace(string(current))
		applied = true
		logging.LogEvent("isolation: core %d governor set to %s", core, c.Governor)
	}
	if applied {
		result.AppliedGovernor = c.Governor
	}
}

func (c *Controller) checkGovernorAvailable(core int) error {
	path := filepath.Join(c.SysfsRoot, fmt.Sprintf("cpu%d", core), "cpufreq", "scaling_available_governors")
	data, err := os.ReadFile(path)
	if err != nil {
		// Absent file means the kernel does not enumerate governors; try anyway.
		return nil
	}
	if !strings.Contains(string(data), c.Governor) {
		return fmt.Errorf("governor %q not available for core %d (available: %s)", c.Governor, core, strings.TrimSpace(string(data)))
	}
	return nil
}

// lockFrequencies pins each core's minimum frequency to its maximum so the
// clock cannot ramp mid-measurement.
func (c *Controller) lockFrequencies(result *Result) {
	for _, core := range c.Cores {
		maxPath := filepath.Join(c.SysfsRoot, fmt.Sprintf("cpu%d", core), "cpufreq", "scaling_max_freq")
		minPath := c.minFreqPath(core)

		maxRaw, err := os.ReadFile(maxPath)
		if err != nil {
			continue
		}
		minRaw, err := os.ReadFile(minPath)
		if err != nil {
			continue
		}
		maxFreq := strings.TrimSpace(string(maxRaw))
		if _, err := strconv.Atoi(maxFreq); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unparsable max frequency for core %d: %q", core, maxFreq))
			continue
		}
		if err := os.WriteFile(minPath, []byte(maxFreq), 0o644); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("frequency lock failed for core %d: %v", core, err))
			continue
		}
		c.prior.minFreqs[core] = strings.TrimSpace(string(minRaw))
		logging.LogEvent("isolation: core %d frequency locked at %s kHz", core, maxFreq)
	}
}

// assessNoise flags ambient conditions that degrade measurement quality.
func (c *Controller) assessNoise(result *Result) {
	if load, ok := c.loadAverage(); ok && load > 0.5 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("high system load: %.2f", load))
	}
	if pct, ok := c.memoryUsagePercent(); ok && pct > 80.0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("high memory usage: %.1f%%", pct))
	}
}

func (c *Controller) loadAverage() (float64, bool) {
	data, err := os.ReadFile(filepath.Join(c.ProcRoot, "loadavg"))
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, false
	}
	load, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return load, true
}

func (c *Controller) memoryUsagePercent() (float64, bool) {
	data, err := os.ReadFile(filepath.Join(c.ProcRoot, "meminfo"))
	if err != nil {
		return 0, false
	}
	var totalKB, availKB float64
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalKB, _ = strconv.ParseFloat(fields[1], 64)
		case "MemAvailable:":
			availKB, _ = strconv.ParseFloat(fields[1], 64)
		}
	}
	if totalKB == 0 {
		return 0, false
	}
	return (totalKB - availKB) / totalKB * 100.0, true
}

// availableCores enumerates cpuN directories under the sysfs root, falling
// back to an affinity query when sysfs is absent (containers).
func (c *Controller) availableCores() []int {
	var cores []int
	entries, err := os.ReadDir(c.SysfsRoot)
	if err == nil {
		for _, entry := range entries {
			name := entry.Name()
			if !strings.HasPrefix(name, "cpu") {
				continue
			}
			if n, err := strconv.Atoi(name[3:]); err == nil {
				cores = append(cores, n)
			}
		}
	}
	if len(cores) == 0 {
		var set unix.CPUSet
		if err := schedGetaffinity(0, &set); err == nil {
			for i := 0; i < 1024; i++ {
				if set.IsSet(i) {
					cores = append(cores, i)
				}
			}
		}
	}
	sort.Ints(cores)
	return cores
}

func (c *Controller) governorPath(core int) string {
	return filepath.Join(c.SysfsRoot, fmt.Sprintf("cpu%d", core), "cpufreq", "scaling_governor")
}

func (c *Controller) minFreqPath(core int) string {
	return filepath.Join(c.SysfsRoot, fmt.Sprintf("cpu%d", core), "cpufreq", "scaling_min_freq")
}

func containsInt(haystack []int, needle int) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
