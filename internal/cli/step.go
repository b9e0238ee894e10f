package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStepCommand creates the step command.
func NewStepCommand(rootOpts *RootOptions) *cobra.Command {
	appOpts := &AppOptions{}

	cmd := &cobra.Command{
		Use:   "step <entity-id>",
		Short: "Process the entity's current step",
		Long: `Execute exactly one step of the entity's sequence: run the action
through the retry and fallback ladder, record the result, and advance
to the next step.

Exit codes:
  0 - Step processed
  1 - Sequence is terminal or the step failed past the fallback ladder
  2 - Command error (unknown entity, unknown sequence or step)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStep(rootOpts, appOpts, args[0], cmd)
		},
	}

	appOpts.AddFlags(cmd)
	return cmd
}

func runStep(rootOpts *RootOptions, appOpts *AppOptions, entityID string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	app, err := openApp(rootOpts, appOpts, cmd)
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

	state, err = app.Engine.ProcessCurrentStep(ctx, state)
	if err != nil {
		_ = formatter.Error(ErrCodeEngineFailed, err.Error(), nil)
		return exitErrorForEngine(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(newStateView(state))
	}
	last := state.History[len(state.History)-1]
	fmt.Fprintf(formatter.Writer, "✓ processed step %s (%s)\n", last.StepID, last.Action)
	printStateText(formatter.Writer, state)
	return nil
}
