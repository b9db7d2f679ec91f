package executor

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marcuspmd/flow-test-sub005/internal/httpclient"
	"github.com/marcuspmd/flow-test-sub005/internal/model"
	"github.com/marcuspmd/flow-test-sub005/internal/vars"
)

type stubEvaluator struct {
	value model.Value
	err   error
}

func (e stubEvaluator) Eval(expr string, ctx vars.EvalContext) (model.Value, error) {
	return e.value, e.err
}

func newScope() *vars.Scope {
	registry := vars.NewRegistry()
	return vars.NewRootScope("suite-a", registry, nil)
}

func TestRunInputStepUsesDefaultWhenNonInteractive(t *testing.T) {
	e := &Executor{Interp: vars.NewInterpolator(nil, nil, false), Eval: stubEvaluator{}}
	step := model.Step{Name: "ask", Input: &model.InputSpec{Prompt: "name?", SaveAs: "name", Default: "anon"}}

	result := e.Run(step, newScope())
	if result.Status != model.StatusSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Captured["name"].String() != "anon" {
		t.Errorf("got %v", result.Captured)
	}
}

func TestRunInputStepWithoutDefaultFails(t *testing.T) {
	e := &Executor{Interp: vars.NewInterpolator(nil, nil, false), Eval: stubEvaluator{}}
	step := model.Step{Name: "ask", Input: &model.InputSpec{Prompt: "name?", SaveAs: "name"}}

	result := e.Run(step, newScope())
	if result.Status != model.StatusFailure {
		t.Fatalf("expected failure, got %+v", result)
	}
}

func TestRunCallStepWithoutCallFuncConfiguredFails(t *testing.T) {
	e := &Executor{Interp: vars.NewInterpolator(nil, nil, false), Eval: stubEvaluator{}}
	step := model.Step{Name: "invoke", Call: &model.CallSpec{NodeID: "other"}}

	result := e.Run(step, newScope())
	if result.Status != model.StatusFailure {
		t.Fatalf("expected failure, got %+v", result)
	}
	if result.ErrorKind != string(model.KindCallCycle) {
		t.Errorf("ErrorKind = %q", result.ErrorKind)
	}
}

func TestRunCallStepDelegatesToCallFunc(t *testing.T) {
	e := &Executor{
		Interp: vars.NewInterpolator(nil, nil, false),
		Eval:   stubEvaluator{},
		Call: func(nodeID string, inputs map[string]interface{}) (map[string]model.Value, error) {
			if nodeID != "other" {
				t.Errorf("nodeID = %q", nodeID)
			}
			return map[string]model.Value{"token": model.NewValue("xyz")}, nil
		},
	}
	step := model.Step{Name: "invoke", Call: &model.CallSpec{NodeID: "other"}}

	result := e.Run(step, newScope())
	if result.Status != model.StatusSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Captured["token"].String() != "xyz" {
		t.Errorf("got %v", result.Captured)
	}
}

func TestRunOnceWithoutRequestEvaluatesAssertions(t *testing.T) {
	e := &Executor{Interp: vars.NewInterpolator(nil, nil, false), Eval: stubEvaluator{}}
	scope := newScope()
	scope.SetRuntime(vars.LayerSuite, "expected_status", model.NewValue(int64(200)))

	step := model.Step{
		Name:   "noop",
		Assert: map[string]interface{}{"status_code": float64(0)},
	}
	result := e.Run(step, scope)
	if result.Status != model.StatusSuccess {
		t.Fatalf("expected pass (status_code of an empty response is 0), got %+v", result)
	}
}

func TestRunOnceFailsWhenAssertionDoesNotMatch(t *testing.T) {
	e := &Executor{Interp: vars.NewInterpolator(nil, nil, false), Eval: stubEvaluator{}}
	step := model.Step{
		Name:   "noop",
		Assert: map[string]interface{}{"status_code": float64(999)},
	}
	result := e.Run(step, newScope())
	if result.Status != model.StatusFailure {
		t.Fatalf("expected failure, got %+v", result)
	}
	if len(result.Assertions) != 1 || result.Assertions[0].Passed {
		t.Errorf("got %+v", result.Assertions)
	}
}

func TestRunOnceCapturesStatusCodeWithoutRequest(t *testing.T) {
	e := &Executor{Interp: vars.NewInterpolator(nil, nil, false), Eval: stubEvaluator{}}
	step := model.Step{
		Name:    "noop",
		Capture: map[string]interface{}{"code": "status_code"},
	}
	result := e.Run(step, newScope())
	if result.Status != model.StatusSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Captured["code"].Raw() != int64(0) {
		t.Errorf("got %v", result.Captured)
	}
}

func TestRunIteratedStepAggregatesPerIterationResults(t *testing.T) {
	e := &Executor{Interp: vars.NewInterpolator(nil, nil, false), Eval: stubEvaluator{}}
	scope := newScope()
	scope.SetRuntime(vars.LayerSuite, "items", model.NewValue([]interface{}{"a", "b"}))

	step := model.Step{
		Name:    "loop",
		Iterate: &model.IterateSpec{Over: "{{items}}", As: "item"},
		Capture: map[string]interface{}{"seen": "{{item}}"},
	}
	result := e.Run(step, scope)
	if result.Status != model.StatusSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	if len(result.Iterations) != 2 {
		t.Fatalf("expected 2 iterations, got %d", len(result.Iterations))
	}
	if result.Captured["seen"].String() != "b" {
		t.Errorf("expected the parent scope to hold the last iteration's capture, got %v", result.Captured)
	}
}

func TestRunIteratedStepFailsOnNonArrayOver(t *testing.T) {
	e := &Executor{Interp: vars.NewInterpolator(nil, nil, false), Eval: stubEvaluator{}}
	scope := newScope()
	scope.SetRuntime(vars.LayerSuite, "items", model.NewValue("not-an-array"))

	step := model.Step{Name: "loop", Iterate: &model.IterateSpec{Over: "{{items}}", As: "item"}}
	result := e.Run(step, scope)
	if result.Status != model.StatusFailure {
		t.Fatalf("expected failure, got %+v", result)
	}
	if result.ErrorKind != string(model.KindIterationType) {
		t.Errorf("ErrorKind = %q", result.ErrorKind)
	}
}

func TestRunPreScriptFailureShortCircuits(t *testing.T) {
	e := &Executor{
		Interp: vars.NewInterpolator(nil, nil, false),
		Eval:   stubEvaluator{err: errBoom{}},
	}
	step := model.Step{Name: "noop", PreScript: "whatever"}
	result := e.Run(step, newScope())
	if result.Status != model.StatusFailure {
		t.Fatalf("expected failure, got %+v", result)
	}
	if result.ErrorKind != string(model.KindExpressionSyntax) {
		t.Errorf("ErrorKind = %q", result.ErrorKind)
	}
}

func TestRunRequestAppendsInterpolatedQueryParams(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := &Executor{
		HTTP:   httpclient.New(httpclient.RetryPolicy{}, 0),
		Interp: vars.NewInterpolator(nil, nil, false),
		Eval:   stubEvaluator{},
	}
	scope := newScope()
	scope.SetRuntime(vars.LayerSuite, "page", model.NewValue("2"))

	step := model.Step{
		Name: "list",
		Request: &model.RequestSpec{
			Method: "GET",
			URL:    srv.URL + "/items",
			Query:  map[string]string{"page": "{{page}}", "limit": "10"},
		},
	}
	result := e.Run(step, scope)
	if result.Status != model.StatusSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	if gotQuery != "limit=10&page=2" {
		t.Errorf("query = %q, want %q", gotQuery, "limit=10&page=2")
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
