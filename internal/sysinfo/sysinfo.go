// internal/sysinfo/sysinfo.go
// Package sysinfo captures the host snapshot embedded in reports so a
// measurement can be tied back to the machine that produced it.
package sysinfo

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/mwiater/crossbench/internal/util"
)

// procRoot is overridable in tests.
var procRoot = "/proc"

// Info describes the benchmark host.
type Info struct {
	Hostname         string `json:"hostname"`
	OS               string `json:"os"`
	Arch             string `json:"arch"`
	CPUModel         string `json:"cpu_model"`
	CPUCount         int    `json:"cpu_count"`
	TotalMemoryBytes uint64 `json:"total_memory_bytes"`
	GoVersion        string `json:"go_version"`
	Timestamp        string `json:"timestamp"`
}

// Collect gathers the host snapshot. Fields that cannot be read stay at
// their zero value; a partial snapshot is still useful report metadata.
func Collect() Info {
	hostname, _ := os.Hostname()
	return Info{
		Hostname:         hostname,
		OS:               runtime.GOOS,
		Arch:             runtime.GOARCH,
		CPUModel:         cpuModel(),
		CPUCount:         runtime.NumCPU(),
		TotalMemoryBytes: totalMemory(),
		GoVersion:        runtime.Version(),
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}
}

// Fingerprint identifies the measurement environment for baseline validity
// checks: results from a different host/arch should not silently compare.
func (i Info) Fingerprint() string {
	model := i.CPUModel
	if model == "" {
		model = "unknown-cpu"
	}
	return i.OS + "-" + i.Arch + "-" + util.Slugify(model)
}

func cpuModel() string {
	data, err := os.ReadFile(filepath.Join(procRoot, "cpuinfo"))
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "model name") {
			continue
		}
		if idx := strings.IndexByte(line, ':'); idx >= 0 {
			return strings.TrimSpace(line[idx+1:])
		}
	}
	return ""
}

func totalMemory() uint64 {
	data, err := os.ReadFile(filepath.Join(procRoot, "meminfo"))
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "MemTotal:" {
			if kb, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
				return kb * 1024
			}
		}
	}
	return 0
}
