package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/leadflow/internal/capability"
	"github.com/roach88/leadflow/internal/sequence"
)

// Scenario is one declarative conformance case loaded from YAML.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Sequences lists CUE files to compile, relative to the scenario file.
	Sequences []string `yaml:"sequences"`

	// Sequence optionally names the definition to start. Empty means
	// resolution by entity domain, then the registry default.
	Sequence string `yaml:"sequence,omitempty"`

	Entity ScenarioEntity `yaml:"entity"`

	// Failures scripts capability outages for the run.
	Failures []ScenarioFailure `yaml:"failures,omitempty"`

	// MaxRetries overrides the engine retry count when set.
	MaxRetries *int `yaml:"max_retries,omitempty"`

	// SimplifiedFallback toggles the simplified-action tier. Nil keeps the
	// engine default (enabled).
	SimplifiedFallback *bool `yaml:"simplified_fallback,omitempty"`

	// Steps is how many steps to process. Zero means run to a terminal
	// status under the runner quota.
	Steps int `yaml:"steps,omitempty"`

	Expect Expectations `yaml:"expect"`

	baseDir string
}

// ScenarioEntity describes the lead the scenario drives.
type ScenarioEntity struct {
	ID     string         `yaml:"id"`
	Domain string         `yaml:"domain,omitempty"`
	Data   map[string]any `yaml:"data,omitempty"`
}

// ScenarioFailure scripts one capability channel to fail.
// Times < 0 means fail every call.
type ScenarioFailure struct {
	Channel string `yaml:"channel"`
	Times   int    `yaml:"times"`
	Error   string `yaml:"error"`
}

// Expectations is the assertion block of a scenario. Every set field is
// checked; unset fields are ignored.
type Expectations struct {
	Status      string         `yaml:"status,omitempty"`
	CurrentStep *string        `yaml:"current_step,omitempty"`
	Path        []string       `yaml:"path,omitempty"`
	Context     map[string]any `yaml:"context,omitempty"`
	Simplified  []string       `yaml:"simplified,omitempty"`
	Escalations *int           `yaml:"escalations,omitempty"`
}

// scriptedChannels is the set FailNext accepts.
var scriptedChannels = map[string]bool{
	capability.ChannelEmail:    true,
	capability.ChannelSMS:      true,
	capability.ChannelCalendar: true,
	capability.ChannelCRM:      true,
	capability.ChannelAudit:    true,
}

// LoadScenario reads and validates a scenario file. Sequence paths in the
// file resolve relative to the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	sc.baseDir = filepath.Dir(path)

	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

func (sc *Scenario) validate() error {
	if strings.TrimSpace(sc.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(sc.Sequences) == 0 {
		return fmt.Errorf("at least one sequence file is required")
	}
	if strings.TrimSpace(sc.Entity.ID) == "" {
		return fmt.Errorf("entity.id is required")
	}
	if sc.Steps < 0 {
		return fmt.Errorf("steps must be >= 0, got %d", sc.Steps)
	}
	if sc.MaxRetries != nil && *sc.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", *sc.MaxRetries)
	}
	for i, f := range sc.Failures {
		if !scriptedChannels[f.Channel] {
			return fmt.Errorf("failures[%d]: unknown channel %q", i, f.Channel)
		}
		if strings.TrimSpace(f.Error) == "" {
			return fmt.Errorf("failures[%d]: error message is required", i)
		}
	}
	if sc.Expect.Status != "" {
		switch sequence.Status(sc.Expect.Status) {
		case sequence.StatusActive, sequence.StatusCompleted, sequence.StatusFailed:
		default:
			return fmt.Errorf("expect.status: unknown status %q", sc.Expect.Status)
		}
	}
	return nil
}

// LoadScenarioWithBasePath loads a scenario whose sequence paths resolve
// against baseDir instead of the scenario file's directory.
func LoadScenarioWithBasePath(path, baseDir string) (*Scenario, error) {
	sc, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	sc.baseDir = baseDir
	return sc, nil
}

// SequencePaths returns the scenario's CUE files resolved against the
// scenario file's directory.
func (sc *Scenario) SequencePaths() []string {
	paths := make([]string, len(sc.Sequences))
	for i, p := range sc.Sequences {
		if filepath.IsAbs(p) {
			paths[i] = p
			continue
		}
		paths[i] = filepath.Join(sc.baseDir, p)
	}
	return paths
}
