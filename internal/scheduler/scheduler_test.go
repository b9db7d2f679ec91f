package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/marcuspmd/flow-test-sub005/internal/dag"
	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

func buildGraph(t *testing.T, suites []*model.Suite) *dag.Graph {
	t.Helper()
	g, err := dag.Build(suites)
	if err != nil {
		t.Fatalf("dag.Build: %v", err)
	}
	return g
}

func TestRunExecutesEveryNodeInDependencyOrder(t *testing.T) {
	suites := []*model.Suite{
		{NodeID: "a", Priority: model.PriorityHigh, FilePath: "a.yaml"},
		{NodeID: "b", Priority: model.PriorityHigh, FilePath: "b.yaml", Depends: []model.DependencyRef{{NodeID: "a"}}},
	}
	g := buildGraph(t, suites)

	var mu sync.Mutex
	var started []string
	run := func(ctx context.Context, s *model.Suite) model.SuiteResult {
		mu.Lock()
		started = append(started, s.NodeID)
		mu.Unlock()
		return model.SuiteResult{NodeID: s.NodeID, Status: model.SuiteSuccess}
	}

	results, err := Run(context.Background(), g, Options{MaxParallel: 2}, run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if len(started) != 2 || started[0] != "a" {
		t.Errorf("expected a to start before b, got %v", started)
	}
	for _, r := range results {
		if r.Status != model.SuiteSuccess {
			t.Errorf("suite %s status = %s, want success", r.NodeID, r.Status)
		}
	}
}

func TestRunCancelsRemainingOnRequiredFailure(t *testing.T) {
	suites := []*model.Suite{
		{NodeID: "critical-fail", Priority: model.PriorityCritical, FilePath: "cf.yaml"},
		{NodeID: "dependent", Priority: model.PriorityCritical, FilePath: "d.yaml", Depends: []model.DependencyRef{{NodeID: "critical-fail"}}},
	}
	g := buildGraph(t, suites)

	run := func(ctx context.Context, s *model.Suite) model.SuiteResult {
		if s.NodeID == "critical-fail" {
			return model.SuiteResult{NodeID: s.NodeID, Status: model.SuiteFailure}
		}
		return model.SuiteResult{NodeID: s.NodeID, Status: model.SuiteSuccess}
	}

	results, err := Run(context.Background(), g, Options{
		MaxParallel:        2,
		RequiredPriorities: map[string]bool{"critical": true},
	}, run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := map[string]model.SuiteResult{}
	for _, r := range results {
		byID[r.NodeID] = r
	}
	if byID["critical-fail"].Status != model.SuiteFailure {
		t.Errorf("critical-fail status = %s", byID["critical-fail"].Status)
	}
	if byID["dependent"].Status != model.SuiteSkipped {
		t.Errorf("dependent status = %s, want skipped after fail-fast cancellation", byID["dependent"].Status)
	}
}

func TestRunNonRequiredDependencyFailurePropagatesSkipToDependent(t *testing.T) {
	suites := []*model.Suite{
		{NodeID: "low-fail", Priority: model.PriorityLow, FilePath: "lf.yaml"},
		{NodeID: "dependent", Priority: model.PriorityLow, FilePath: "d.yaml", Depends: []model.DependencyRef{{NodeID: "low-fail"}}},
	}
	g := buildGraph(t, suites)

	run := func(ctx context.Context, s *model.Suite) model.SuiteResult {
		if s.NodeID == "low-fail" {
			return model.SuiteResult{NodeID: s.NodeID, Status: model.SuiteFailure}
		}
		return model.SuiteResult{NodeID: s.NodeID, Status: model.SuiteSuccess}
	}

	results, err := Run(context.Background(), g, Options{
		MaxParallel:        2,
		RequiredPriorities: map[string]bool{"critical": true},
	}, run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := map[string]model.SuiteResult{}
	for _, r := range results {
		byID[r.NodeID] = r
	}
	if byID["low-fail"].Status != model.SuiteFailure {
		t.Errorf("low-fail status = %s", byID["low-fail"].Status)
	}
	if byID["dependent"].Status != model.SuiteSkipped {
		t.Errorf("dependent status = %s, want skipped: a failed non-required dependency must still skip its dependent", byID["dependent"].Status)
	}
}

func TestRunContinueOnFailureDispatchesDependentDespiteDependencyFailure(t *testing.T) {
	suites := []*model.Suite{
		{NodeID: "low-fail", Priority: model.PriorityLow, FilePath: "lf.yaml"},
		{NodeID: "dependent", Priority: model.PriorityLow, FilePath: "d.yaml", Depends: []model.DependencyRef{{NodeID: "low-fail"}}},
	}
	g := buildGraph(t, suites)

	run := func(ctx context.Context, s *model.Suite) model.SuiteResult {
		if s.NodeID == "low-fail" {
			return model.SuiteResult{NodeID: s.NodeID, Status: model.SuiteFailure}
		}
		return model.SuiteResult{NodeID: s.NodeID, Status: model.SuiteSuccess}
	}

	results, err := Run(context.Background(), g, Options{
		MaxParallel:       2,
		ContinueOnFailure: true,
	}, run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := map[string]model.SuiteResult{}
	for _, r := range results {
		byID[r.NodeID] = r
	}
	if byID["dependent"].Status != model.SuiteSuccess {
		t.Errorf("dependent status = %s, want success: continue_on_failure must dispatch dependents of a failed dependency", byID["dependent"].Status)
	}
}

func TestRunIndependentFailureDoesNotCancelOthers(t *testing.T) {
	suites := []*model.Suite{
		{NodeID: "low-fail", Priority: model.PriorityLow, FilePath: "lf.yaml"},
		{NodeID: "other", Priority: model.PriorityLow, FilePath: "o.yaml"},
	}
	g := buildGraph(t, suites)

	run := func(ctx context.Context, s *model.Suite) model.SuiteResult {
		if s.NodeID == "low-fail" {
			return model.SuiteResult{NodeID: s.NodeID, Status: model.SuiteFailure}
		}
		return model.SuiteResult{NodeID: s.NodeID, Status: model.SuiteSuccess}
	}

	results, err := Run(context.Background(), g, Options{
		MaxParallel:        2,
		RequiredPriorities: map[string]bool{"critical": true},
	}, run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range results {
		if r.NodeID == "other" && r.Status != model.SuiteSuccess {
			t.Errorf("other status = %s, want success (no fail-fast for non-required priority)", r.Status)
		}
	}
}
