// Package logging wires the standard library logger to stdout plus an
// optional log file so every run leaves a reproducible trail.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	mu      sync.Mutex
	logFile *os.File
)

// Init points the global logger at stdout and, when logPath is non-empty,
// a log file created under its parent directory.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writers []io.Writer
	writers = append(writers, os.Stdout)

	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, logFile)
	}

	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// Close flushes and closes the log file, restoring stderr output.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

// LogEvent records a formatted message through the shared logger.
func LogEvent(format string, args ...any) {
	log.Printf(format, args...)
}

// LogRun records a benchmark lifecycle event with workload and language
// context so failed invocations can be reproduced from the log alone.
func LogRun(phase, workload, language string, payload any) {
	log.Println(buildRunMessage(phase, workload, language, payload))
}

func buildRunMessage(phase, workload, language string, payload any) string {
	p := strings.TrimSpace(phase)
	if p != "" {
		p = strings.ToUpper(p)
	}
	workloadValue := strings.TrimSpace(workload)
	if workloadValue == "" {
		workloadValue = "unknown"
	}
	languageValue := strings.TrimSpace(language)
	if languageValue == "" {
		languageValue = "unknown"
	}
	parts := []string{fmt.Sprintf("[%s]", p)}
	parts = append(parts, fmt.Sprintf("workload=%s", workloadValue))
	parts = append(parts, fmt.Sprintf("language=%s", languageValue))
	parts = append(parts, fmt.Sprintf("detail=%s", formatPayload(payload)))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
