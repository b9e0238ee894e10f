package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/leadflow/internal/sequence"
)

// TriggerRule maps one external action name to engine semantics: start a
// specific sequence, force context fields, and optionally process one
// step immediately. The mapping is caller-defined configuration; the
// engine itself knows nothing about external action names.
type TriggerRule struct {
	// Sequence names the definition to initialize with. Empty resolves by
	// entity domain, then the registry default.
	Sequence string `yaml:"sequence,omitempty"`

	// Context fields forced into the execution context before processing.
	Context map[string]any `yaml:"context,omitempty"`

	// Step processes the current step after initialization.
	Step bool `yaml:"step,omitempty"`
}

// TriggerMap is the trigger configuration file: external action names to
// rules.
type TriggerMap struct {
	Triggers map[string]TriggerRule `yaml:"triggers"`
}

// TriggerOptions holds flags for the trigger command.
type TriggerOptions struct {
	*RootOptions
	App    AppOptions
	Map    string
	Domain string
	Data   string
}

// NewTriggerCommand creates the trigger command.
func NewTriggerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TriggerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trigger <action> <entity-id>",
		Short: "Handle an inbound action request",
		Long: `Handle an inbound request carrying an external action name and an
entity. The trigger map file translates action names into engine
semantics: which sequence to initialize, which context fields to
force, and whether to process one step immediately.

Example trigger map:

  triggers:
    qualify:
      sequence: lead_qualification
      step: true
    reply_received:
      context:
        replied: true
      step: true

Examples:
  leadflow trigger qualify lead-42 --map triggers.yaml
  leadflow trigger reply_received lead-42 --map triggers.yaml --data '{"email":"a@b.co"}'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrigger(opts, args[0], args[1], cmd)
		},
	}

	opts.App.AddFlags(cmd)
	cmd.Flags().StringVar(&opts.Map, "map", "triggers.yaml", "trigger map file")
	cmd.Flags().StringVar(&opts.Domain, "domain", "", "entity domain for sequence resolution")
	cmd.Flags().StringVar(&opts.Data, "data", "", "JSON object seeded into the execution context")

	return cmd
}

// loadTriggerMap reads and validates a trigger map file.
func loadTriggerMap(path string) (*TriggerMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trigger map: %w", err)
	}
	var tm TriggerMap
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tm); err != nil {
		return nil, fmt.Errorf("parse trigger map %s: %w", path, err)
	}
	if len(tm.Triggers) == 0 {
		return nil, fmt.Errorf("trigger map %s defines no triggers", path)
	}
	for name, rule := range tm.Triggers {
		if rule.Sequence == "" && len(rule.Context) == 0 && !rule.Step {
			return nil, fmt.Errorf("trigger %q maps to nothing (set sequence, context, or step)", name)
		}
	}
	return &tm, nil
}

func runTrigger(opts *TriggerOptions, action, entityID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	tm, err := loadTriggerMap(opts.Map)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "trigger map", err)
	}
	rule, ok := tm.Triggers[action]
	if !ok {
		msg := fmt.Sprintf("no trigger named %q in %s", action, opts.Map)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	var data map[string]any
	if opts.Data != "" {
		if err := json.Unmarshal([]byte(opts.Data), &data); err != nil {
			return WrapExitError(ExitCommandError, "--data must be a JSON object", err)
		}
	}

	app, err := openApp(opts.RootOptions, &opts.App, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	state, err := app.Engine.Initialize(ctx, sequence.Entity{
		ID:     entityID,
		Domain: opts.Domain,
		Data:   data,
	}, rule.Sequence)
	if err != nil {
		_ = formatter.Error(ErrCodeEngineFailed, err.Error(), nil)
		return exitErrorForEngine(err)
	}

	if len(rule.Context) > 0 {
		state.Context.Merge(rule.Context)
		if err := app.Store.Save(ctx, state); err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "save forced context", err)
		}
	}

	if rule.Step {
		state, err = app.Engine.ProcessCurrentStep(ctx, state)
		if err != nil {
			_ = formatter.Error(ErrCodeEngineFailed, err.Error(), nil)
			return exitErrorForEngine(err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(newStateView(state))
	}
	fmt.Fprintf(formatter.Writer, "✓ trigger %s handled for %s\n", action, entityID)
	printStateText(formatter.Writer, state)
	return nil
}
