package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/leadflow/internal/sequence"
)

// TraceEntry is the JSON shape of one history entry in trace output.
type TraceEntry struct {
	Seq        int64             `json:"seq"`
	Step       string            `json:"step"`
	Action     string            `json:"action"`
	Timestamp  time.Time         `json:"timestamp"`
	Simplified bool              `json:"simplified,omitempty"`
	Result     map[string]any    `json:"result,omitempty"`
	Metrics    *sequence.Metrics `json:"metrics,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	var dbFlag string

	cmd := &cobra.Command{
		Use:   "trace <entity-id>",
		Short: "Show the entity's step execution history",
		Long: `Print the append-only execution history for an entity, one line per
processed step, including degraded (simplified fallback) executions.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(rootOpts, dbFlag, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&dbFlag, "db", "", "SQLite database path (default from LEADFLOW_DB)")
	return cmd
}

func runTrace(opts *RootOptions, dbFlag, entityID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	st, _, err := openStore(dbFlag)
	if err != nil {
		return err
	}
	defer st.Close()

	state, found, err := st.Get(cmd.Context(), entityID)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read state", err)
	}
	if !found {
		msg := fmt.Sprintf("no sequence state for entity %q", entityID)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	entries := make([]TraceEntry, 0, len(state.History))
	for i := range state.History {
		exec := &state.History[i]
		entries = append(entries, TraceEntry{
			Seq:        exec.Seq,
			Step:       exec.StepID,
			Action:     string(exec.Action),
			Timestamp:  exec.Timestamp,
			Simplified: exec.Simplified(),
			Result:     exec.Result,
			Metrics:    exec.Metrics,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintf(formatter.Writer, "No steps executed for %s.\n", entityID)
		return nil
	}
	for _, entry := range entries {
		marker := " "
		if entry.Simplified {
			marker = "~"
		}
		fmt.Fprintf(formatter.Writer, "%3d %s %-24s %-28s %s\n",
			entry.Seq, marker, entry.Step, entry.Action,
			entry.Timestamp.Format(time.RFC3339))
	}
	return nil
}
