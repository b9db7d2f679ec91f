// Package aggregator folds per-suite results into one run-level summary.
package aggregator

import (
	"time"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

// Aggregate sums suiteResults into an AggregatedResult. successRate is
// successful/(total-skipped), or 0 when every suite was skipped.
func Aggregate(projectName string, start, end time.Time, suiteResults []model.SuiteResult) model.AggregatedResult {
	out := model.AggregatedResult{
		ProjectName: projectName,
		StartTime:   start,
		EndTime:     end,
		TotalDurationMs: end.Sub(start).Milliseconds(),
		Suites:      suiteResults,
		TotalTests:  len(suiteResults),
	}

	for _, r := range suiteResults {
		switch r.Status {
		case model.SuiteSuccess:
			out.Successful++
		case model.SuiteFailure:
			out.Failed++
		case model.SuiteSkipped:
			out.Skipped++
		}
	}

	denom := out.TotalTests - out.Skipped
	if denom > 0 {
		out.SuccessRate = float64(out.Successful) / float64(denom)
	}
	return out
}
