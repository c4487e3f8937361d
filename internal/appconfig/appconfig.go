// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting harness configuration.
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultConfigPath is the default path to the harness configuration file.
	DefaultConfigPath = "config/config.json"
	// legacyConfigPath is the path to the configuration file used in previous versions.
	legacyConfigPath = "config.json"
	// defaultIterations is the measured iteration count when the config omits it.
	defaultIterations = 30
	// highPrecisionIterations is the iteration floor for high-precision runs.
	highPrecisionIterations = 1000
	// defaultInvocationTimeout bounds a single build or run subprocess.
	defaultInvocationTimeout = 120 * time.Second
	// defaultRegressionThreshold is the regression threshold percentage.
	defaultRegressionThreshold = 5.0
	// defaultGovernor is the CPU frequency governor requested during isolation.
	defaultGovernor = "performance"
)

// Environment variable names honored as overrides for CI workflows.
const (
	EnvIterations          = "ITERATIONS"
	EnvWarmup              = "WARMUP"
	EnvRegressionThreshold = "REGRESSION_THRESHOLD"
	EnvUpdateBaseline      = "UPDATE_BASELINE"
)

// Config represents the top-level harness configuration.
type Config struct {
	Languages           []string `json:"languages" mapstructure:"languages"`
	Iterations          int      `json:"iterations" mapstructure:"iterations"`
	WarmupIterations    int      `json:"warmup,omitempty" mapstructure:"warmup"`
	HighPrecision       bool     `json:"highPrecision" mapstructure:"highPrecision"`
	TimeoutSeconds      int      `json:"timeout,omitempty" mapstructure:"timeout"`
	RegressionThreshold float64  `json:"regressionThreshold,omitempty" mapstructure:"regressionThreshold"`
	IsolationEnabled    bool     `json:"isolation" mapstructure:"isolation"`
	Cores               []int    `json:"cores,omitempty" mapstructure:"cores"`
	Governor            string   `json:"governor,omitempty" mapstructure:"governor"`
	MemoryProfiling     bool     `json:"memoryProfiling" mapstructure:"memoryProfiling"`
	BinaryAnalysis      bool     `json:"binaryAnalysis" mapstructure:"binaryAnalysis"`
	ReportDir           string   `json:"reportDir,omitempty" mapstructure:"reportDir"`
	BaselinePath        string   `json:"baselinePath,omitempty" mapstructure:"baselinePath"`
	LogFile             string   `json:"logFile,omitempty" mapstructure:"logFile"`
	Debug               bool     `json:"debug" mapstructure:"debug"`
	NoTUI               bool     `json:"noTui" mapstructure:"noTui"`
	ConfigPath          string   `json:"-" mapstructure:"-"`
}

// MeasuredIterations returns the measured iteration count, honoring the
// ITERATIONS environment override and the high-precision floor.
func (c Config) MeasuredIterations() int {
	n := c.Iterations
	if v, ok := envInt(EnvIterations); ok {
		n = v
	}
	if n <= 0 {
		n = defaultIterations
	}
	if c.HighPrecision && n < highPrecisionIterations {
		n = highPrecisionIterations
	}
	return n
}

// Warmup returns the warm-up iteration count, honoring the WARMUP environment
// override. Defaults to 10% of the measured count, minimum 1.
func (c Config) Warmup() int {
	if v, ok := envInt(EnvWarmup); ok {
		if v < 0 {
			return 0
		}
		return v
	}
	if c.WarmupIterations > 0 {
		return c.WarmupIterations
	}
	warmup := c.MeasuredIterations() / 10
	if warmup < 1 {
		warmup = 1
	}
	return warmup
}

// MinSamples returns the sample count required before analysis results are
// flagged statistically significant.
func (c Config) MinSamples() int {
	if c.HighPrecision {
		return highPrecisionIterations
	}
	return defaultIterations
}

// InvocationTimeout bounds each build, warm-up, or measured subprocess.
func (c Config) InvocationTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultInvocationTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Threshold returns the regression threshold percentage, honoring the
// REGRESSION_THRESHOLD environment override.
func (c Config) Threshold() float64 {
	if raw := os.Getenv(EnvRegressionThreshold); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			return v
		}
	}
	if c.RegressionThreshold > 0 {
		return c.RegressionThreshold
	}
	return defaultRegressionThreshold
}

// UpdateBaseline reports whether the operator explicitly requested baseline
// re-establishment via UPDATE_BASELINE=1.
func (c Config) UpdateBaseline() bool {
	return os.Getenv(EnvUpdateBaseline) == "1"
}

// IsolationCores returns the cores to pin, defaulting to core 0.
func (c Config) IsolationCores() []int {
	if len(c.Cores) == 0 {
		return []int{0}
	}
	return c.Cores
}

// TargetGovernor returns the requested CPU governor.
func (c Config) TargetGovernor() string {
	if c.Governor == "" {
		return defaultGovernor
	}
	return c.Governor
}

// ReportDirectory returns the directory report artifacts are written to.
func (c Config) ReportDirectory() string {
	if c.ReportDir == "" {
		return "benchData/reports"
	}
	return c.ReportDir
}

// BaselineFile returns the path of the baseline store for this corpus.
func (c Config) BaselineFile() string {
	if c.BaselinePath == "" {
		return "benchData/baselines/baseline.json"
	}
	return c.BaselinePath
}

// LogFilePath returns the path to the harness log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return "crossbench.log"
}

// Load reads the harness configuration from the specified path, with fallback
// to a legacy path. A missing file is not fatal: the harness can run entirely
// from flags, so Load returns defaults in that case.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	config, err := loadFromPath(path)
	if err == nil {
		config.ConfigPath = path
		return config, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		if path == DefaultConfigPath {
			config, legacyErr := loadFromPath(legacyConfigPath)
			if legacyErr == nil {
				config.ConfigPath = legacyConfigPath
				return config, nil
			}
			if errors.Is(legacyErr, os.ErrNotExist) {
				return Defaults(), nil
			}
			return Config{}, fmt.Errorf("could not read config file %q: %w", legacyConfigPath, legacyErr)
		}
		return Config{}, fmt.Errorf("no configuration file found at %q", path)
	}

	return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
}

// Defaults returns the configuration used when no config file exists.
func Defaults() Config {
	return Config{
		Iterations:       defaultIterations,
		IsolationEnabled: true,
		MemoryProfiling:  true,
		BinaryAnalysis:   true,
	}
}

// loadFromPath is a helper function that loads the configuration from a specific file path.
func loadFromPath(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
