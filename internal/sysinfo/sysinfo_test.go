package sysinfo

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestCollectWithFakeProc(t *testing.T) {
	root := t.TempDir()
	cpuinfo := "processor\t: 0\nmodel name\t: Example CPU @ 3.60GHz\n"
	meminfo := "MemTotal:       16384000 kB\nMemFree:        8000000 kB\n"
	if err := os.WriteFile(filepath.Join(root, "cpuinfo"), []byte(cpuinfo), 0o644); err != nil {
		t.Fatalf("write cpuinfo: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "meminfo"), []byte(meminfo), 0o644); err != nil {
		t.Fatalf("write meminfo: %v", err)
	}

	prev := procRoot
	procRoot = root
	t.Cleanup(func() { procRoot = prev })

	info := Collect()
	if info.CPUModel != "Example CPU @ 3.60GHz" {
		t.Fatalf("cpu model: %q", info.CPUModel)
	}
	if info.TotalMemoryBytes != 16384000*1024 {
		t.Fatalf("total memory: %d", info.TotalMemoryBytes)
	}
	if info.OS != runtime.GOOS || info.Arch != runtime.GOARCH {
		t.Fatalf("os/arch: %s/%s", info.OS, info.Arch)
	}
	if info.GoVersion == "" || info.Timestamp == "" {
		t.Fatalf("missing metadata: %+v", info)
	}
}

func TestFingerprint(t *testing.T) {
	info := Info{OS: "linux", Arch: "amd64", CPUModel: "Example CPU @ 3.60GHz"}
	fp := info.Fingerprint()
	if !strings.HasPrefix(fp, "linux-amd64-") {
		t.Fatalf("fingerprint prefix: %q", fp)
	}
	if strings.ContainsAny(fp, " @") {
		t.Fatalf("fingerprint not slugified: %q", fp)
	}

	unknown := Info{OS: "linux", Arch: "arm64"}
	if got := unknown.Fingerprint(); got != "linux-arm64-unknown-cpu" {
		t.Fatalf("unknown cpu fingerprint: %q", got)
	}
}
