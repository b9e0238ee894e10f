package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/leadflow/internal/sequence"
)

// NewEscalationsCommand creates the escalations command.
func NewEscalationsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dbFlag     string
		statusFlag string
	)

	cmd := &cobra.Command{
		Use:   "escalations",
		Short: "List human-escalation records",
		Long: `List escalation records created when an action exhausted the retry
and fallback ladder, newest first.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEscalations(rootOpts, dbFlag, statusFlag, cmd)
		},
	}

	cmd.Flags().StringVar(&dbFlag, "db", "", "SQLite database path (default from LEADFLOW_DB)")
	cmd.Flags().StringVar(&statusFlag, "status", "", "filter by status (pending|resolved)")
	return cmd
}

func runEscalations(opts *RootOptions, dbFlag, statusFlag string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	switch sequence.EscalationStatus(statusFlag) {
	case "", sequence.EscalationPending, sequence.EscalationResolved:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q: must be pending or resolved", statusFlag))
	}

	st, _, err := openStore(dbFlag)
	if err != nil {
		return err
	}
	defer st.Close()

	escalations, err := st.ListEscalations(cmd.Context(), sequence.EscalationStatus(statusFlag))
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "list escalations", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(escalations)
	}

	if len(escalations) == 0 {
		fmt.Fprintln(formatter.Writer, "No escalations.")
		return nil
	}
	for _, esc := range escalations {
		fmt.Fprintf(formatter.Writer, "%s  %-8s %-8s %s  %s (%s)\n",
			esc.CreatedAt.Format(time.RFC3339), esc.Priority, esc.Status,
			esc.EntityID, esc.FailedAction, esc.Category)
	}
	return nil
}
