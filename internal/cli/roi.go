package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/leadflow/internal/engine"
)

// ROIEntityView pairs an entity with its ROI report.
type ROIEntityView struct {
	EntityID string           `json:"entity_id"`
	Report   engine.ROIReport `json:"report"`
}

// ROISummary is the aggregate ROI output.
type ROISummary struct {
	Entities []ROIEntityView  `json:"entities,omitempty"`
	Total    engine.ROIReport `json:"total"`
}

// NewROICommand creates the roi command.
func NewROICommand(rootOpts *RootOptions) *cobra.Command {
	var dbFlag string

	cmd := &cobra.Command{
		Use:   "roi [entity-id]",
		Short: "Report time saved and revenue impact",
		Long: `Aggregate the business-impact metrics recorded on step executions:
minutes of manual work saved, revenue impact of closed deals, and
deals rescued from a cold status.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			entityID := ""
			if len(args) == 1 {
				entityID = args[0]
			}
			return runROI(rootOpts, dbFlag, entityID, cmd)
		},
	}

	cmd.Flags().StringVar(&dbFlag, "db", "", "SQLite database path (default from LEADFLOW_DB)")
	return cmd
}

func runROI(opts *RootOptions, dbFlag, entityID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	st, _, err := openStore(dbFlag)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	summary := ROISummary{}

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
		report := engine.CalculateROI(state)
		summary.Entities = append(summary.Entities, ROIEntityView{EntityID: entityID, Report: report})
		summary.Total = report
	} else {
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
		for _, id := range ids {
			report := engine.CalculateROI(states[id])
			summary.Entities = append(summary.Entities, ROIEntityView{EntityID: id, Report: report})
			summary.Total = addROI(summary.Total, report)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	for _, entry := range summary.Entities {
		fmt.Fprintf(formatter.Writer, "%s: %d step(s), %.0f min saved, %.2f revenue impact\n",
			entry.EntityID, entry.Report.StepsExecuted,
			entry.Report.TimeSavedMinutes, entry.Report.RevenueImpact)
	}
	fmt.Fprintf(formatter.Writer, "total: %.0f min saved, %.2f revenue impact, %d deal(s) rescued\n",
		summary.Total.TimeSavedMinutes, summary.Total.RevenueImpact, summary.Total.DealsRescued)
	return nil
}

func addROI(a, b engine.ROIReport) engine.ROIReport {
	return engine.ROIReport{
		TimeSavedMinutes: a.TimeSavedMinutes + b.TimeSavedMinutes,
		RevenueImpact:    a.RevenueImpact + b.RevenueImpact,
		StepsExecuted:    a.StepsExecuted + b.StepsExecuted,
		SuccessfulSteps:  a.SuccessfulSteps + b.SuccessfulSteps,
		SimplifiedSteps:  a.SimplifiedSteps + b.SimplifiedSteps,
		DealsRescued:     a.DealsRescued + b.DealsRescued,
	}
}
