package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/leadflow/internal/config"
	"github.com/roach88/leadflow/internal/store"
)

// openStore wires just the state store for read-only commands, which
// have no use for the compiled sequence registry.
func openStore(dbFlag string) (store.StateStore, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cfg, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if dbFlag != "" {
		cfg.DBPath = dbFlag
	}
	if cfg.DBPath == "" {
		return store.NewMemoryStore(), cfg, nil
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, cfg, WrapExitError(ExitCommandError, "open state store", err)
	}
	return st, cfg, nil
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var dbFlag string

	cmd := &cobra.Command{
		Use:   "status [entity-id]",
		Short: "Show sequence state for one entity or all entities",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			entityID := ""
			if len(args) == 1 {
				entityID = args[0]
			}
			return runStatus(rootOpts, dbFlag, entityID, cmd)
		},
	}

	cmd.Flags().StringVar(&dbFlag, "db", "", "SQLite database path (default from LEADFLOW_DB)")
	return cmd
}

func runStatus(opts *RootOptions, dbFlag, entityID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	st, _, err := openStore(dbFlag)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if entityID != "" {
		state, found, err := st.Get(ctx, entityID)
		if err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "read state", err)
		}
		if !found {
			msg := fmt.Sprintf("no sequence state for entity %q", entityID)
			_ = formatter.Error(ErrCodeNotFound, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		if formatter.Format == "json" {
			return formatter.Success(newStateView(state))
		}
		printStateText(formatter.Writer, state)
		return nil
	}

	states, err := st.All(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read states", err)
	}

	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if formatter.Format == "json" {
		views := make([]StateView, 0, len(ids))
		for _, id := range ids {
			views = append(views, newStateView(states[id]))
		}
		return formatter.Success(views)
	}

	if len(ids) == 0 {
		fmt.Fprintln(formatter.Writer, "No sequence states.")
		return nil
	}
	for _, id := range ids {
		state := states[id]
		fmt.Fprintf(formatter.Writer, "%s  %s  %s  (%d steps)\n",
			state.EntityID, state.SequenceID, state.Status, len(state.History))
	}
	return nil
}
