package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: an ordered sequence of view
// operations executed against a fresh session with a pinned clock.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Steps is the operation sequence.
	Steps []Step `yaml:"steps"`
}

// Step is one operation. Op selects the operation; the other fields carry
// its arguments. Supported ops:
//
//	fs.write fs.read fs.ls fs.stat fs.mkdir fs.mkdir_all fs.rm fs.mv
//	kv.set kv.get kv.del kv.keys
//	tools.start tools.success tools.error tools.stats tools.recent
//	clock.advance
type Step struct {
	Op string `yaml:"op"`

	// Filesystem arguments.
	Path      string `yaml:"path,omitempty"`
	NewPath   string `yaml:"new_path,omitempty"`
	Content   string `yaml:"content,omitempty"`
	Recursive bool   `yaml:"recursive,omitempty"`

	// KV arguments.
	Key    string `yaml:"key,omitempty"`
	Value  any    `yaml:"value,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`

	// Ledger arguments.
	Name    string         `yaml:"name,omitempty"`
	ID      int64          `yaml:"id,omitempty"`
	Input   map[string]any `yaml:"input,omitempty"`
	Output  map[string]any `yaml:"output,omitempty"`
	Message string         `yaml:"message,omitempty"`
	Since   int64          `yaml:"since,omitempty"`

	// Clock arguments.
	Millis int64 `yaml:"millis,omitempty"`

	// ExpectError, when set, requires the step to fail with this error code
	// (e.g. "NOT_FOUND"). A step with no ExpectError must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// LoadScenario reads a scenario from a yaml file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s: at least one step is required", path)
	}
	return &s, nil
}
