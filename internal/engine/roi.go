package engine

import "github.com/roach88/leadflow/internal/sequence"

// ROIReport aggregates the business impact recorded across a state's
// step history.
type ROIReport struct {
	TimeSavedMinutes float64 `json:"time_saved_minutes"`
	RevenueImpact    float64 `json:"revenue_impact"`
	StepsExecuted    int     `json:"steps_executed"`
	SuccessfulSteps  int     `json:"successful_steps"`
	SimplifiedSteps  int     `json:"simplified_steps"`
	DealsRescued     int     `json:"deals_rescued"`
}

// CalculateROI is a pure aggregation over history metrics: summed
// time-saved and revenue impact, success and degradation counts, and
// cold-to-customer conversions counted as deal rescues. No side effects.
func CalculateROI(state *sequence.State) ROIReport {
	var report ROIReport
	for i := range state.History {
		exec := &state.History[i]
		report.StepsExecuted++

		failed, _ := exec.Result["failed"].(bool)
		switch {
		case exec.Simplified():
			report.SimplifiedSteps++
		case !failed:
			report.SuccessfulSteps++
		}

		if exec.Metrics != nil {
			report.TimeSavedMinutes += exec.Metrics.TimeSavedMinutes
			report.RevenueImpact += exec.Metrics.RevenueImpact
		}

		if isDealRescue(exec.Result) {
			report.DealsRescued++
		}
	}
	return report
}

// isDealRescue reports whether an execution reactivated a cold lead:
// the close handler records the prior and new lead status on its result.
func isDealRescue(result map[string]any) bool {
	prev, _ := result["previous_status"].(string)
	next, _ := result["new_status"].(string)
	return prev == "cold" && next == "customer"
}
