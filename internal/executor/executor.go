// Package executor implements the Step Executor state machine:
// pre_script -> interpolate -> request -> capture -> scenarios -> assert
// -> post_script -> done, including per-iteration expansion.
package executor

import (
	neturl "net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marcuspmd/flow-test-sub005/internal/assertspec"
	"github.com/marcuspmd/flow-test-sub005/internal/capture"
	"github.com/marcuspmd/flow-test-sub005/internal/httpclient"
	"github.com/marcuspmd/flow-test-sub005/internal/iterate"
	"github.com/marcuspmd/flow-test-sub005/internal/model"
	"github.com/marcuspmd/flow-test-sub005/internal/scenario"
	"github.com/marcuspmd/flow-test-sub005/internal/vars"
)

// CallFunc invokes another suite synchronously from a `call` step. Owned
// by the suite runner to avoid an import cycle; it returns the callee's
// promoted variables.
type CallFunc func(nodeID string, inputs map[string]interface{}) (map[string]model.Value, error)

// Executor runs one step to completion, including its iterations.
type Executor struct {
	HTTP              *httpclient.Client
	Interp            *vars.Interpolator
	Eval              vars.ExpressionEvaluator
	Log               *zap.Logger
	DefaultTimeoutMs  int
	DefaultHeaders    map[string]string // suite-level auth headers, overridden by a step's own headers
	BaseURL           string            // suite-level base_url, prefixed onto a relative request URL
	ContinueOnFailure bool
	Call              CallFunc
}

// Run executes step against scope (the suite's scope; the step body runs
// in a fresh step layer forked from it) and returns its StepResult.
func (e *Executor) Run(step model.Step, scope *vars.Scope) model.StepResult {
	start := time.Now()
	result := model.StepResult{StepName: step.Name}

	if step.Call != nil {
		return e.runCall(step, scope, start)
	}

	if step.Input != nil {
		return e.runInput(step, scope, start)
	}

	if step.Iterate != nil {
		return e.runIterated(step, scope, start)
	}

	result = e.runOnce(step, scope)
	result.DurationMs = time.Since(start).Milliseconds()
	return result
}

func (e *Executor) runCall(step model.Step, scope *vars.Scope, start time.Time) model.StepResult {
	result := model.StepResult{StepName: step.Name}
	if e.Call == nil {
		result.Status = model.StatusFailure
		result.ErrorKind = string(model.KindCallCycle)
		result.ErrorMessage = "call steps are not supported in this context"
		return result
	}
	promoted, err := e.Call(step.Call.NodeID, step.Call.Inputs)
	result.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Status = model.StatusFailure
		result.ErrorMessage = err.Error()
		return result
	}
	result.Status = model.StatusSuccess
	result.Captured = promoted
	return result
}

// runInput handles a step's `input` block. The engine only ever runs
// non-interactively (there is no terminal attached to a scheduled worker),
// so a prompt either falls back to its default or fails fast when no TTY
// is attached.
func (e *Executor) runInput(step model.Step, scope *vars.Scope, start time.Time) model.StepResult {
	result := model.StepResult{StepName: step.Name}
	if step.Input.Default != "" {
		scope.SetRuntime(vars.LayerStep, step.Input.SaveAs, model.NewValue(step.Input.Default))
		result.Status = model.StatusSuccess
		result.Captured = map[string]model.Value{step.Input.SaveAs: model.NewValue(step.Input.Default)}
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}
	result.Status = model.StatusFailure
	result.ErrorMessage = "input step requires a TTY and none is attached (non-interactive run)"
	result.DurationMs = time.Since(start).Milliseconds()
	return result
}

func (e *Executor) runIterated(step model.Step, scope *vars.Scope, start time.Time) model.StepResult {
	parent := model.StepResult{StepName: step.Name}

	values, err := iterate.Expand(step.Iterate, scope, e.Interp)
	if err != nil {
		parent.Status = model.StatusFailure
		parent.ErrorKind = string(model.KindIterationType)
		parent.ErrorMessage = err.Error()
		parent.DurationMs = time.Since(start).Milliseconds()
		return parent
	}

	allSuccess := true
	for _, val := range values {
		iterScope := scope.Fork(vars.LayerIteration)
		iterScope.SetRuntime(vars.LayerIteration, step.Iterate.As, val)

		ir := e.runOnce(step, iterScope)
		if ir.Status != model.StatusSuccess {
			allSuccess = false
		}
		parent.Iterations = append(parent.Iterations, ir)

		// captures from the iteration promote to the parent step scope and
		// the parent result too, so a step after an iterate can reference the
		// last iteration's captured values without digging into iterations[].
		for k, v := range ir.Captured {
			scope.SetRuntime(vars.LayerStep, k, v)
			if parent.Captured == nil {
				parent.Captured = map[string]model.Value{}
			}
			parent.Captured[k] = v
		}
	}

	parent.DurationMs = time.Since(start).Milliseconds()
	if allSuccess {
		parent.Status = model.StatusSuccess
	} else {
		parent.Status = model.StatusFailure
	}
	return parent
}

// runOnce executes the non-iterated body of a step: pre_script, request,
// capture, scenarios, assert, post_script.
func (e *Executor) runOnce(step model.Step, scope *vars.Scope) model.StepResult {
	result := model.StepResult{StepName: step.Name, Status: model.StatusSuccess}
	stepScope := scope.Fork(vars.LayerStep)

	if step.PreScript != "" {
		if _, err := e.Eval.Eval(step.PreScript, vars.EvalContext{Vars: stepScope.Snapshot()}); err != nil {
			return e.fail(result, model.KindExpressionSyntax, err)
		}
	}

	var resp *model.Response
	if step.Request != nil {
		r, exchanges, err := e.doRequest(step, stepScope)
		result.Attempts = exchanges
		if len(exchanges) > 0 {
			last := exchanges[len(exchanges)-1]
			result.Request = &last
		}
		if err != nil {
			return e.fail(result, model.KindHTTP, err)
		}
		resp = r
	} else {
		resp = &model.Response{}
	}

	var captureErr error
	if step.Capture != nil {
		specs := capture.ParseCaptureMap(step.Capture)
		written, err := capture.Run(specs, resp, stepScope, e.Interp, e.Eval)
		result.Captured = written
		if err != nil {
			captureErr = err
			if !e.ContinueOnFailure && !step.ContinueOnFailure {
				return e.fail(result, model.KindDuplicateCapture, err)
			}
		}
	}

	rules := assertspec.ParseAssertMap(step.Assert)

	if step.Scenarios != nil {
		outcomes, err := scenario.Evaluate(step.Scenarios, resp, stepScope, e.Interp, e.Eval)
		if err != nil {
			return e.fail(result, model.KindResolution, err)
		}
		for _, o := range outcomes {
			result.ScenariosMeta = append(result.ScenariosMeta, o.Meta)
			rules = append(rules, o.Rules...)
			if len(o.Capture) > 0 {
				written, err := capture.Run(o.Capture, resp, stepScope, e.Interp, e.Eval)
				for k, v := range written {
					if result.Captured == nil {
						result.Captured = map[string]model.Value{}
					}
					result.Captured[k] = v
				}
				if err != nil && captureErr == nil {
					captureErr = err
				}
			}
		}
	}

	// interpolate expected operands before comparison
	for i := range rules {
		if s, ok := rules[i].Expected.(string); ok {
			v, err := e.Interp.InterpolateString(s, stepScope)
			if err == nil {
				rules[i].Expected = v.Raw()
			}
		}
	}

	result.Assertions = assertspec.Evaluate(rules, resp)

	allPassed := true
	for _, a := range result.Assertions {
		if !a.Passed {
			allPassed = false
		}
	}

	if step.PostScript != "" {
		if _, err := e.Eval.Eval(step.PostScript, vars.EvalContext{Vars: stepScope.Snapshot(), Response: resp.AsValue()}); err != nil {
			return e.fail(result, model.KindExpressionSyntax, err)
		}
	}

	if captureErr != nil || !allPassed {
		result.Status = model.StatusFailure
		if captureErr != nil && result.ErrorMessage == "" {
			result.ErrorMessage = captureErr.Error()
		}
	}
	return result
}

func (e *Executor) doRequest(step model.Step, scope *vars.Scope) (*model.Response, []model.RawExchange, error) {
	methodV, err := e.Interp.InterpolateString(step.Request.Method, scope)
	if err != nil {
		return nil, nil, err
	}
	urlV, err := e.Interp.InterpolateString(step.Request.URL, scope)
	if err != nil {
		return nil, nil, err
	}
	url := urlV.String()
	if e.BaseURL != "" && !strings.Contains(url, "://") {
		url = strings.TrimRight(e.BaseURL, "/") + "/" + strings.TrimLeft(url, "/")
	}

	if len(step.Request.Query) > 0 {
		q := neturl.Values{}
		for k, v := range step.Request.Query {
			qv, err := e.Interp.InterpolateString(v, scope)
			if err != nil {
				return nil, nil, err
			}
			q.Set(k, qv.String())
		}
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + q.Encode()
	}

	headers := make(map[string]string, len(step.Request.Headers)+len(e.DefaultHeaders))
	for k, v := range e.DefaultHeaders {
		headers[k] = v
	}
	for k, v := range step.Request.Headers {
		hv, err := e.Interp.InterpolateString(v, scope)
		if err != nil {
			return nil, nil, err
		}
		headers[k] = hv.String()
	}

	var body interface{}
	if step.Request.Body != nil {
		bv, err := e.Interp.InterpolateValue(step.Request.Body, scope)
		if err != nil {
			return nil, nil, err
		}
		body = bv.Raw()
	}

	timeoutMs := step.Request.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = e.DefaultTimeoutMs
	}
	if timeoutMs <= 0 {
		timeoutMs = 30000
	}

	req := &model.Request{
		Method:  methodV.String(),
		URL:     url,
		Headers: headers,
		Body:    body,
	}

	resp, exchanges, err := e.HTTP.Execute(req, time.Duration(timeoutMs)*time.Millisecond)
	if e.Log != nil {
		e.Log.Debug("http_request", zap.String("method", req.Method), zap.String("url", req.URL), zap.Int("attempts", len(exchanges)))
	}
	return resp, exchanges, err
}

func (e *Executor) fail(result model.StepResult, kind model.ErrorKind, err error) model.StepResult {
	result.Status = model.StatusFailure
	result.ErrorKind = string(kind)
	result.ErrorMessage = err.Error()
	return result
}
