// Package scheduler dispatches resolved suite nodes onto a bounded worker
// pool honoring the dependency graph's ready set, priority-tier ordering,
// and fail-fast-on-required cancellation.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/marcuspmd/flow-test-sub005/internal/dag"
	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

// RunFunc executes one suite to completion. Supplied by the caller
// (normally a suiterunner.Runner.Run closure) so this package stays free
// of any direct dependency on suiterunner.
type RunFunc func(ctx context.Context, suite *model.Suite) model.SuiteResult

// Options configures one scheduled run.
type Options struct {
	MaxParallel        int
	RequiredPriorities map[string]bool // priority names that trigger fail-fast cancellation on failure
	ContinueOnFailure  bool            // when false (default), a failed/skipped dependency skips its dependents instead of running them
	Log                *zap.Logger
}

// CancelledError wraps the reason a suite was skipped due to cooperative
// cancellation (fail-fast or an external signal).
type CancelledError struct{ Reason string }

func (e *CancelledError) Error() string { return fmt.Sprintf("cancelled: %s", e.Reason) }

// Run executes every node in g in dependency order, dispatching
// ready (indegree-zero) nodes onto up to opts.MaxParallel concurrent
// workers. A failure on a "required" priority node cancels every node not
// yet started; nodes already running are allowed to finish. ctx
// cancellation (SIGINT/SIGTERM upstream) has the same fail-fast effect.
func Run(ctx context.Context, g *dag.Graph, opts Options, run RunFunc) ([]model.SuiteResult, error) {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 1
	}

	order, err := g.Order()
	if err != nil {
		return nil, err
	}

	indegree := make(map[string]int, len(g.Nodes))
	dependents := make(map[string][]string)
	for id, n := range g.Nodes {
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for _, dep := range n.DependsOn {
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(opts.MaxParallel))
	var mu sync.Mutex
	results := make(map[string]model.SuiteResult, len(order))
	remaining := make(map[string]int, len(indegree))
	for k, v := range indegree {
		remaining[k] = v
	}

	var wg sync.WaitGroup
	var dispatch func(id string)

	dispatch = func(id string) {
		defer wg.Done()

		mu.Lock()
		depFailed := false
		for _, dep := range g.Nodes[id].DependsOn {
			if r, ok := results[dep]; ok && r.Status != model.SuiteSuccess {
				depFailed = true
				break
			}
		}
		mu.Unlock()

		if depFailed && !opts.ContinueOnFailure {
			mu.Lock()
			results[id] = skippedResult(g.Nodes[id].Suite, "a dependency ended in failure or was skipped")
			mu.Unlock()
			var newlyReady []string
			releaseDependents(id, dependents, remaining, &mu, &newlyReady)
			for _, next := range newlyReady {
				wg.Add(1)
				go dispatch(next)
			}
			return
		}

		if err := sem.Acquire(runCtx, 1); err != nil {
			mu.Lock()
			results[id] = skippedResult(g.Nodes[id].Suite, "cancelled before start")
			mu.Unlock()
			releaseDependents(id, dependents, remaining, &mu, nil)
			return
		}
		defer sem.Release(1)

		select {
		case <-runCtx.Done():
			mu.Lock()
			results[id] = skippedResult(g.Nodes[id].Suite, "run cancelled")
			mu.Unlock()
			releaseDependents(id, dependents, remaining, &mu, nil)
			return
		default:
		}

		suite := g.Nodes[id].Suite
		if opts.Log != nil {
			opts.Log.Info("suite_start", zap.String("node_id", id), zap.String("priority", string(suite.Priority)))
		}
		res := run(runCtx, suite)
		if opts.Log != nil {
			opts.Log.Info("suite_end", zap.String("node_id", id), zap.String("status", string(res.Status)))
		}

		mu.Lock()
		results[id] = res
		mu.Unlock()

		if res.Status == model.SuiteFailure && opts.RequiredPriorities[string(suite.Priority)] {
			cancel()
		}

		var newlyReady []string
		releaseDependents(id, dependents, remaining, &mu, &newlyReady)
		for _, next := range newlyReady {
			wg.Add(1)
			go dispatch(next)
		}
	}

	var initial []string
	for _, id := range order {
		if indegree[id] == 0 {
			initial = append(initial, id)
		}
	}
	sort.Slice(initial, func(i, j int) bool {
		return model.PriorityRank(g.Nodes[initial[i]].Suite.Priority) < model.PriorityRank(g.Nodes[initial[j]].Suite.Priority)
	})

	for _, id := range initial {
		wg.Add(1)
		go dispatch(id)
	}
	wg.Wait()

	out := make([]model.SuiteResult, 0, len(order))
	for _, id := range order {
		if r, ok := results[id]; ok {
			out = append(out, r)
		} else {
			out = append(out, skippedResult(g.Nodes[id].Suite, "never dispatched"))
		}
	}
	return out, nil
}

func releaseDependents(id string, dependents map[string][]string, remaining map[string]int, mu *sync.Mutex, newlyReady *[]string) {
	mu.Lock()
	defer mu.Unlock()
	for _, dep := range dependents[id] {
		remaining[dep]--
		if remaining[dep] == 0 && newlyReady != nil {
			*newlyReady = append(*newlyReady, dep)
		}
	}
}

func skippedResult(suite *model.Suite, reason string) model.SuiteResult {
	return model.SuiteResult{
		NodeID:       suite.NodeID,
		SuiteName:    suite.Name,
		Status:       model.SuiteSkipped,
		ErrorMessage: reason,
	}
}
