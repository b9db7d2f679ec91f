package aggregator

import (
	"testing"
	"time"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

func TestAggregateCountsAndSuccessRate(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Second)

	results := []model.SuiteResult{
		{NodeID: "a", Status: model.SuiteSuccess},
		{NodeID: "b", Status: model.SuiteSuccess},
		{NodeID: "c", Status: model.SuiteFailure},
		{NodeID: "d", Status: model.SuiteSkipped},
	}

	agg := Aggregate("proj", start, end, results)

	if agg.TotalTests != 4 {
		t.Errorf("TotalTests = %d, want 4", agg.TotalTests)
	}
	if agg.Successful != 2 || agg.Failed != 1 || agg.Skipped != 1 {
		t.Errorf("counts = %+v", agg)
	}
	if agg.SuccessRate != float64(2)/float64(3) {
		t.Errorf("SuccessRate = %v, want 2/3", agg.SuccessRate)
	}
	if agg.TotalDurationMs != 3000 {
		t.Errorf("TotalDurationMs = %d, want 3000", agg.TotalDurationMs)
	}
}

func TestAggregateAllSkippedYieldsZeroSuccessRate(t *testing.T) {
	results := []model.SuiteResult{
		{NodeID: "a", Status: model.SuiteSkipped},
		{NodeID: "b", Status: model.SuiteSkipped},
	}
	agg := Aggregate("proj", time.Now(), time.Now(), results)
	if agg.SuccessRate != 0 {
		t.Errorf("SuccessRate = %v, want 0", agg.SuccessRate)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	agg := Aggregate("proj", time.Now(), time.Now(), nil)
	if agg.TotalTests != 0 || agg.SuccessRate != 0 {
		t.Errorf("unexpected result for empty input: %+v", agg)
	}
}
