package appconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadReadsFile(t *testing.T) {
	path := writeConfig(t, `{
		"languages": ["rust", "python"],
		"iterations": 100,
		"warmup": 5,
		"timeout": 30,
		"regressionThreshold": 7.5,
		"isolation": true,
		"cores": [2, 3],
		"governor": "powersave"
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Languages) != 2 || cfg.Languages[0] != "rust" {
		t.Fatalf("languages: %v", cfg.Languages)
	}
	if cfg.MeasuredIterations() != 100 {
		t.Fatalf("iterations: %d", cfg.MeasuredIterations())
	}
	if cfg.Warmup() != 5 {
		t.Fatalf("warmup: %d", cfg.Warmup())
	}
	if cfg.InvocationTimeout() != 30*time.Second {
		t.Fatalf("timeout: %v", cfg.InvocationTimeout())
	}
	if cfg.Threshold() != 7.5 {
		t.Fatalf("threshold: %v", cfg.Threshold())
	}
	if got := cfg.IsolationCores(); len(got) != 2 || got[0] != 2 {
		t.Fatalf("cores: %v", got)
	}
	if cfg.TargetGovernor() != "powersave" {
		t.Fatalf("governor: %q", cfg.TargetGovernor())
	}
	if cfg.ConfigPath != path {
		t.Fatalf("config path: %q", cfg.ConfigPath)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	prevDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prevDir) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MeasuredIterations() != 30 {
		t.Fatalf("default iterations: %d", cfg.MeasuredIterations())
	}
	if !cfg.IsolationEnabled {
		t.Fatal("isolation should default on")
	}
	if cfg.TargetGovernor() != "performance" {
		t.Fatalf("default governor: %q", cfg.TargetGovernor())
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvIterations, "250")
	t.Setenv(EnvWarmup, "0")
	t.Setenv(EnvRegressionThreshold, "12.5")
	t.Setenv(EnvUpdateBaseline, "1")

	cfg := Defaults()
	if cfg.MeasuredIterations() != 250 {
		t.Fatalf("ITERATIONS override: %d", cfg.MeasuredIterations())
	}
	if cfg.Warmup() != 0 {
		t.Fatalf("WARMUP override: %d", cfg.Warmup())
	}
	if cfg.Threshold() != 12.5 {
		t.Fatalf("REGRESSION_THRESHOLD override: %v", cfg.Threshold())
	}
	if !cfg.UpdateBaseline() {
		t.Fatal("UPDATE_BASELINE override not honored")
	}
}

func TestHighPrecisionRaisesFloor(t *testing.T) {
	cfg := Config{Iterations: 50, HighPrecision: true}
	if cfg.MeasuredIterations() != 1000 {
		t.Fatalf("high precision floor: %d", cfg.MeasuredIterations())
	}
	if cfg.MinSamples() != 1000 {
		t.Fatalf("high precision min samples: %d", cfg.MinSamples())
	}
}

func TestWarmupDefaultsToTenPercent(t *testing.T) {
	cfg := Config{Iterations: 200}
	if cfg.Warmup() != 20 {
		t.Fatalf("warmup default: %d", cfg.Warmup())
	}
	small := Config{Iterations: 5}
	if small.Warmup() != 1 {
		t.Fatalf("warmup minimum: %d", small.Warmup())
	}
}
