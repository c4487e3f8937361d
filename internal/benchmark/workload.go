// internal/benchmark/workload.go
package benchmark

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// DescriptorName is the workload descriptor filename looked up in a
// workload directory.
const DescriptorName = "workload.json"

// workloadSchema validates descriptors before the harness trusts them: a
// malformed descriptor is a fatal input error, not a per-language failure.
const workloadSchema = `{
  "type": "object",
  "required": ["id", "targets"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "input": {"type": "string"},
    "targets": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "run"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "build": {"type": "array", "items": {"type": "string"}},
          "run": {"type": "array", "minItems": 1, "items": {"type": "string"}},
          "artifact": {"type": "string"}
        }
      }
    }
  }
}`

// inputPlaceholder is replaced in run arguments by the input size.
const inputPlaceholder = "{input}"

// LoadWorkload reads and validates the descriptor in dir. A non-empty
// inputSize overrides the descriptor's default input and is substituted
// into run arguments.
func LoadWorkload(dir, inputSize string) (*Workload, error) {
	path := filepath.Join(dir, DescriptorName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workload descriptor: %w", err)
	}

	if err := validateDescriptor(raw); err != nil {
		return nil, fmt.Errorf("workload descriptor %s: %w", path, err)
	}

	var workload Workload
	if err := json.Unmarshal(raw, &workload); err != nil {
		return nil, fmt.Errorf("workload descriptor %s: %w", path, err)
	}
	workload.Dir = dir

	if inputSize != "" {
		workload.Input = inputSize
	}
	for ti := range workload.Targets {
		for ai, arg := range workload.Targets[ti].Run {
			workload.Targets[ti].Run[ai] = strings.ReplaceAll(arg, inputPlaceholder, workload.Input)
		}
	}

	return &workload, nil
}

func validateDescriptor(raw []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(workloadSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		var issues []string
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return fmt.Errorf("invalid descriptor: %s", strings.Join(issues, "; "))
	}
	return nil
}

// SelectTargets filters the workload's targets down to the requested
// language names, in the order requested. An empty filter selects all
// targets in descriptor order. Unknown names are reported so a typo does
// not silently shrink the comparison set.
func (w *Workload) SelectTargets(languages []string) ([]Target, error) {
	if len(languages) == 0 {
		return w.Targets, nil
	}

	byName := make(map[string]Target, len(w.Targets))
	for _, target := range w.Targets {
		byName[target.Name] = target
	}

	var unknown []string
	selected := make([]Target, 0, len(languages))
	for _, name := range languages {
		target, ok := byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		selected = append(selected, target)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("workload %q has no targets named %s", w.ID, strings.Join(unknown, ", "))
	}
	return selected, nil
}
