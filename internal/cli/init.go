package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/leadflow/internal/sequence"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	App      AppOptions
	Sequence string
	Domain   string
	Data     string // JSON object seeded into the execution context
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init <entity-id>",
		Short: "Initialize or resume a sequence for an entity",
		Long: `Create the sequence state for an entity, or resume it if an active
state already exists. A completed or failed prior run is replaced by a
fresh one.

The sequence resolves from --sequence when given, else from the
entity's --domain, else the default sequence.

Examples:
  leadflow init lead-42 --specs ./sequences
  leadflow init lead-42 --sequence lead_qualification --data '{"email":"a@b.co"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, args[0], cmd)
		},
	}

	opts.App.AddFlags(cmd)
	cmd.Flags().StringVar(&opts.Sequence, "sequence", "", "sequence id to start (default: resolve by domain)")
	cmd.Flags().StringVar(&opts.Domain, "domain", "", "entity domain for sequence resolution")
	cmd.Flags().StringVar(&opts.Data, "data", "", "JSON object seeded into the execution context")

	return cmd
}

func runInit(opts *InitOptions, entityID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

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

	state, err := app.Engine.Initialize(cmd.Context(), sequence.Entity{
		ID:     entityID,
		Domain: opts.Domain,
		Data:   data,
	}, opts.Sequence)
	if err != nil {
		_ = formatter.Error(ErrCodeEngineFailed, err.Error(), nil)
		return exitErrorForEngine(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(newStateView(state))
	}
	fmt.Fprintf(formatter.Writer, "✓ sequence %s initialized for %s (next step: %s)\n",
		state.SequenceID, state.EntityID, state.CurrentStepID)
	return nil
}
