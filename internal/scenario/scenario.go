// Package scenario implements conditional then/else branches on a step
//, contributing additional assertions and captures.
package scenario

import (
	"strings"

	"github.com/marcuspmd/flow-test-sub005/internal/assertspec"
	"github.com/marcuspmd/flow-test-sub005/internal/capture"
	"github.com/marcuspmd/flow-test-sub005/internal/model"
	"github.com/marcuspmd/flow-test-sub005/internal/vars"
)

// Outcome bundles one scenario's evaluation result with the extra
// assertion rules and capture specs it contributed, so the Step Executor
// can fold them into the step's own assert/capture pass.
type Outcome struct {
	Meta    model.ScenarioEvaluation
	Rules   []assertspec.Rule
	Capture []capture.Spec
}

// Evaluate runs every scenario in declaration order. When multiple
// scenarios on the same step match, each contributes additively in
// declaration order (not "first match wins") — this mirrors how the base
// step's own assert/capture already accumulate unconditionally.
func Evaluate(specs []model.ScenarioSpec, resp *model.Response, scope *vars.Scope, interp *vars.Interpolator, eval vars.ExpressionEvaluator) ([]Outcome, error) {
	// bind response so a condition's `{{response.*}}` tokens resolve the
	// same way a capture's extractor does, instead of silently missing.
	if resp != nil {
		scope.SetRuntime(vars.LayerStep, "response", resp.AsValue())
	}

	out := make([]Outcome, 0, len(specs))
	for _, s := range specs {
		o, err := evalOne(s, resp, scope, interp, eval)
		if err != nil {
			return out, err
		}
		out = append(out, o)
	}
	return out, nil
}

func evalOne(s model.ScenarioSpec, resp *model.Response, scope *vars.Scope, interp *vars.Interpolator, eval vars.ExpressionEvaluator) (Outcome, error) {
	matched, err := evalCondition(s.Condition, resp, scope, interp, eval)
	if err != nil {
		return Outcome{}, err
	}

	meta := model.ScenarioEvaluation{Condition: s.Condition, Matched: matched}
	o := Outcome{Meta: meta}

	var branch *model.ScenarioBranch
	if matched {
		branch = s.Then
		o.Meta.Branch = "then"
	} else {
		branch = s.Else
		o.Meta.Branch = "else"
	}
	if branch == nil {
		o.Meta.Executed = false
		o.Meta.Branch = ""
		return o, nil
	}

	o.Meta.Executed = true
	if branch.Assert != nil {
		o.Rules = assertspec.ParseAssertMap(branch.Assert)
		o.Meta.AssertionsAdded = len(o.Rules)
	}
	if branch.Capture != nil {
		raw := make(map[string]interface{}, len(branch.Capture))
		for k, v := range branch.Capture {
			raw[k] = v
		}
		o.Capture = capture.ParseCaptureMap(raw)
		o.Meta.CapturesAdded = len(o.Capture)
	}
	return o, nil
}

// evalCondition resolves a condition that is either a bare truthy
// reference ("{{user.active}}") or a full expression
// ("{{response.body.role}} == \"admin\"").
func evalCondition(cond string, resp *model.Response, scope *vars.Scope, interp *vars.Interpolator, eval vars.ExpressionEvaluator) (bool, error) {
	trimmed := strings.TrimSpace(cond)
	if strings.HasPrefix(trimmed, "{{") && strings.HasSuffix(trimmed, "}}") && strings.Count(trimmed, "{{") == 1 {
		v, err := interp.InterpolateString(trimmed, scope)
		if err != nil {
			return false, err
		}
		return v.Truthy(), nil
	}

	exprSrc, err := interp.InterpolateForExpression(cond, scope)
	if err != nil {
		return false, err
	}
	if eval == nil {
		return model.NewValue(exprSrc).Truthy(), nil
	}
	v, err := eval.Eval(exprSrc, vars.EvalContext{
		Vars:     scope.Snapshot(),
		Response: resp.AsValue(),
	})
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}
