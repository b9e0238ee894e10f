package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/leadflow/internal/engine"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	App      AppOptions
	MaxSteps int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <entity-id>",
		Short: "Drive the entity's sequence to completion",
		Long: `Process steps until the sequence reaches a terminal status, bounded by
a step quota. Hitting the quota leaves the state active and resumable;
a later run picks up where this one stopped.

Exit codes:
  0 - Sequence reached a terminal status
  1 - Quota exhausted or the sequence failed
  2 - Command error (unknown entity, unknown sequence or step)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts, args[0], cmd)
		},
	}

	opts.App.AddFlags(cmd)
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "step quota for this run (default from LEADFLOW_MAX_STEPS)")
	return cmd
}

func runRun(opts *RunOptions, entityID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	app, err := openApp(opts.RootOptions, &opts.App, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	state, found, err := app.Store.Get(ctx, entityID)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read state", err)
	}
	if !found {
		msg := fmt.Sprintf("no sequence state for entity %q (run `leadflow init` first)", entityID)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	maxSteps := app.Config.MaxSteps
	if opts.MaxSteps > 0 {
		maxSteps = opts.MaxSteps
	}

	runner := engine.NewRunner(app.Engine, engine.WithMaxSteps(maxSteps))
	state, err = runner.Run(ctx, state)
	if err != nil {
		_ = formatter.Error(ErrCodeEngineFailed, err.Error(), nil)
		return exitErrorForEngine(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(newStateView(state))
	}
	fmt.Fprintf(formatter.Writer, "✓ sequence %s %s for %s after %d step(s)\n",
		state.SequenceID, state.Status, state.EntityID, len(state.History))
	return nil
}
