// Package suiterunner executes a suite's steps in order, applies hooks,
// and aggregates into a SuiteResult.
package suiterunner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/marcuspmd/flow-test-sub005/internal/auth"
	"github.com/marcuspmd/flow-test-sub005/internal/executor"
	"github.com/marcuspmd/flow-test-sub005/internal/httpclient"
	"github.com/marcuspmd/flow-test-sub005/internal/model"
	"github.com/marcuspmd/flow-test-sub005/internal/vars"
)

// CallCycleError is raised when `call` steps form a cycle at call time.
type CallCycleError struct{ Chain []string }

func (e *CallCycleError) Error() string {
	return fmt.Sprintf("call_cycle_error: %v", e.Chain)
}

// SuiteSource resolves a node-id to its parsed Suite, for `call` steps
// invoking another suite by id.
type SuiteSource interface {
	Suite(nodeID string) (*model.Suite, bool)
}

// ExecutorDeps are the components every step executor within a run shares.
type ExecutorDeps struct {
	HTTP             *httpclient.Client
	Interp           *vars.Interpolator
	Eval             vars.ExpressionEvaluator
	Log              *zap.Logger
	DefaultTimeoutMs int
}

// Runner executes one suite to completion.
type Runner struct {
	Deps              ExecutorDeps
	Registry          *vars.Registry
	Suites            SuiteSource
	Log               *zap.Logger
	ContinueOnFailure bool
	ConfigDefaults    map[string]model.Value
}

// Run executes suite against a fresh root scope seeded with r.ConfigDefaults,
// with callInputs merged into the call layer (non-nil only when this suite
// was itself invoked via `call`), and callChain tracking the nodeIDs
// currently being called into, to detect CallCycleError.
func (r *Runner) Run(suite *model.Suite, callInputs map[string]model.Value, callChain []string) model.SuiteResult {
	start := time.Now()
	result := model.SuiteResult{NodeID: suite.NodeID, SuiteName: suite.Name, StartTime: start}

	scope := vars.NewRootScope(suite.NodeID, r.Registry, r.ConfigDefaults)
	for k, v := range suite.Variables {
		scope.SetRuntime(vars.LayerSuite, k, model.NewValue(v))
	}
	for k, v := range callInputs {
		scope.SetRuntime(vars.LayerCall, k, v)
	}

	authHeaders, err := r.resolveAuth(suite, scope)
	if err != nil {
		result.Status = model.SuiteFailure
		result.ErrorMessage = err.Error()
		result.Steps = skipAll(suite.Steps, err.Error())
		result.EndTime = time.Now()
		result.DurationMs = result.EndTime.Sub(start).Milliseconds()
		return result
	}

	exec := &executor.Executor{
		HTTP:              r.Deps.HTTP,
		Interp:            r.Deps.Interp,
		Eval:              r.Deps.Eval,
		Log:               r.Deps.Log,
		DefaultTimeoutMs:  r.Deps.DefaultTimeoutMs,
		DefaultHeaders:    authHeaders,
		BaseURL:           suite.BaseURL,
		ContinueOnFailure: r.ContinueOnFailure,
		Call:              r.makeCallFunc(suite.NodeID, callChain),
	}

	if len(suite.BeforeAll) > 0 {
		for _, hookStep := range suite.BeforeAll {
			hr := exec.Run(hookStep, scope)
			if hr.Status == model.StatusFailure {
				result.Status = model.SuiteFailure
				result.ErrorMessage = fmt.Sprintf("before_all hook %q failed: %s", hookStep.Name, hr.ErrorMessage)
				result.Steps = skipAll(suite.Steps, hr.ErrorMessage)
				result.EndTime = time.Now()
				result.DurationMs = result.EndTime.Sub(start).Milliseconds()
				r.runAfterAll(suite, exec, scope, &result)
				return result
			}
		}
	}

	halted := false
	suiteFailed := false
	for _, step := range suite.Steps {
		if halted {
			result.Steps = append(result.Steps, model.StepResult{StepName: step.Name, Status: model.StatusSkipped})
			continue
		}
		sr := exec.Run(step, scope)
		result.Steps = append(result.Steps, sr)
		if sr.Status == model.StatusFailure {
			suiteFailed = true
			if !r.ContinueOnFailure && !step.ContinueOnFailure {
				halted = true
			}
		}
	}

	r.runAfterAll(suite, exec, scope, &result)

	result.CapturedPromoted = promotedFromScope(suite, scope)
	result.EndTime = time.Now()
	result.DurationMs = result.EndTime.Sub(start).Milliseconds()
	if suiteFailed {
		result.Status = model.SuiteFailure
	} else {
		result.Status = model.SuiteSuccess
	}
	return result
}

// makeCallFunc builds the CallFunc a step's `call` block invokes,
// detecting recursive cycles via callChain before recursing into Run.
func (r *Runner) makeCallFunc(callerNodeID string, callChain []string) executor.CallFunc {
	chain := append(append([]string{}, callChain...), callerNodeID)
	return func(nodeID string, rawInputs map[string]interface{}) (map[string]model.Value, error) {
		for _, seen := range chain {
			if seen == nodeID {
				return nil, &CallCycleError{Chain: append(chain, nodeID)}
			}
		}
		callee, ok := r.Suites.Suite(nodeID)
		if !ok {
			return nil, fmt.Errorf("missing_dependency_error: call target %q not found", nodeID)
		}
		inputs := make(map[string]model.Value, len(rawInputs))
		for k, v := range rawInputs {
			inputs[k] = model.NewValue(v)
		}
		calleeResult := r.Run(callee, inputs, chain)
		if calleeResult.Status == model.SuiteFailure {
			return calleeResult.CapturedPromoted, fmt.Errorf("called suite %q failed: %s", nodeID, calleeResult.ErrorMessage)
		}
		return calleeResult.CapturedPromoted, nil
	}
}

func (r *Runner) runAfterAll(suite *model.Suite, exec *executor.Executor, scope *vars.Scope, result *model.SuiteResult) {
	for _, hookStep := range suite.AfterAll {
		hr := exec.Run(hookStep, scope)
		if hr.Status == model.StatusFailure && result.ErrorMessage == "" {
			result.ErrorMessage = fmt.Sprintf("after_all hook %q failed: %s", hookStep.Name, hr.ErrorMessage)
		}
	}
}

func skipAll(steps []model.Step, reason string) []model.StepResult {
	out := make([]model.StepResult, len(steps))
	for i, s := range steps {
		out[i] = model.StepResult{StepName: s.Name, Status: model.StatusSkipped, ErrorMessage: reason}
	}
	return out
}

// resolveAuth interpolates suite.Auth's fields against scope (so a
// bearer token can reference `{{$env.API_TOKEN}}`) and resolves the
// resulting headers.
func (r *Runner) resolveAuth(suite *model.Suite, scope *vars.Scope) (map[string]string, error) {
	if suite.Auth == nil {
		return nil, nil
	}
	resolved := *suite.Auth
	interpField := func(s string) (string, error) {
		if s == "" {
			return "", nil
		}
		v, err := r.Deps.Interp.InterpolateString(s, scope)
		if err != nil {
			return "", err
		}
		return v.String(), nil
	}
	var err error
	if resolved.Token, err = interpField(resolved.Token); err != nil {
		return nil, err
	}
	if resolved.Username, err = interpField(resolved.Username); err != nil {
		return nil, err
	}
	if resolved.Password, err = interpField(resolved.Password); err != nil {
		return nil, err
	}
	if resolved.TokenURL, err = interpField(resolved.TokenURL); err != nil {
		return nil, err
	}
	if resolved.ClientID, err = interpField(resolved.ClientID); err != nil {
		return nil, err
	}
	if resolved.ClientSecret, err = interpField(resolved.ClientSecret); err != nil {
		return nil, err
	}
	return auth.Headers(context.Background(), &resolved)
}

func promotedFromScope(suite *model.Suite, scope *vars.Scope) map[string]model.Value {
	// suite-layer values that differ from the initial `variables:` block
	// are what Discovery/Aggregator call "captures promoted to suite".
	out := make(map[string]model.Value)
	snap := scope.Snapshot()
	for k, v := range snap {
		if _, declared := suite.Variables[k]; !declared {
			out[k] = v
		}
	}
	return out
}
