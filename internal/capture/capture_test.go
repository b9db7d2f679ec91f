package capture

import (
	"testing"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
	"github.com/marcuspmd/flow-test-sub005/internal/vars"
)

type stubEvaluator struct{ value model.Value }

func (e stubEvaluator) Eval(expr string, ctx vars.EvalContext) (model.Value, error) {
	return e.value, nil
}

func sampleResponse() *model.Response {
	return &model.Response{
		StatusCode: 200,
		Headers:    map[string]string{"X-Token": "abc123"},
		Body: map[string]interface{}{
			"token": "jwt-xyz",
			"user":  map[string]interface{}{"id": float64(9)},
		},
	}
}

func newScope() (*vars.Registry, *vars.Scope) {
	registry := vars.NewRegistry()
	return registry, vars.NewRootScope("suite-a", registry, nil)
}

func TestParseCaptureMapBareStringIsExtractor(t *testing.T) {
	specs := ParseCaptureMap(map[string]interface{}{"token": "body.token"})
	if len(specs) != 1 || specs[0].Extractor != "body.token" || specs[0].Promote != "" {
		t.Fatalf("got %+v", specs)
	}
}

func TestParseCaptureMapObjectNamesFieldsExplicitly(t *testing.T) {
	specs := ParseCaptureMap(map[string]interface{}{
		"token": map[string]interface{}{
			"extractor": "body.token",
			"promote":   "global",
			"overwrite": true,
		},
	})
	if len(specs) != 1 {
		t.Fatalf("got %+v", specs)
	}
	s := specs[0]
	if s.Extractor != "body.token" || s.Promote != "global" || !s.Overwrite {
		t.Errorf("got %+v", s)
	}
}

func TestParseCaptureMapExprAlias(t *testing.T) {
	specs := ParseCaptureMap(map[string]interface{}{
		"id": map[string]interface{}{"expr": "$js.1+1"},
	})
	if len(specs) != 1 || specs[0].Extractor != "$js.1+1" {
		t.Fatalf("got %+v", specs)
	}
}

func TestRunWritesStepLayer(t *testing.T) {
	_, scope := newScope()
	resp := sampleResponse()
	specs := []Spec{{Name: "token", Extractor: "body.token"}}

	written, err := Run(specs, resp, scope, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written["token"].String() != "jwt-xyz" {
		t.Errorf("got %v", written["token"].Raw())
	}
	v, ok := scope.Get("token")
	if !ok || v.String() != "jwt-xyz" {
		t.Errorf("expected step layer to hold captured value, got %v/%v", v.Raw(), ok)
	}
}

func TestRunStripsTemplateWrapper(t *testing.T) {
	_, scope := newScope()
	resp := sampleResponse()
	specs := []Spec{{Name: "token", Extractor: "{{ body.token }}"}}

	written, err := Run(specs, resp, scope, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written["token"].String() != "jwt-xyz" {
		t.Errorf("got %v", written["token"].Raw())
	}
}

func TestRunPromotesToSuiteAndGlobal(t *testing.T) {
	registry, scope := newScope()
	resp := sampleResponse()
	specs := []Spec{
		{Name: "suite_var", Extractor: "body.token", Promote: "suite"},
		{Name: "global_var", Extractor: "body.token", Promote: "global"},
	}

	if _, err := Run(specs, resp, scope, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v, ok := scope.Get("suite_var"); !ok || v.String() != "jwt-xyz" {
		t.Errorf("expected suite-layer promotion, got %v/%v", v.Raw(), ok)
	}
	if v, ok := registry.Get("global_var"); !ok || v.String() != "jwt-xyz" {
		t.Errorf("expected global registry write, got %v/%v", v.Raw(), ok)
	}
}

func TestRunDuplicateNameWithoutOverwriteErrors(t *testing.T) {
	_, scope := newScope()
	resp := sampleResponse()
	specs := []Spec{
		{Name: "token", Extractor: "body.token"},
		{Name: "token", Extractor: "user.id"},
	}

	_, err := Run(specs, resp, scope, nil, nil)
	if err == nil {
		t.Fatal("expected duplicate capture error")
	}
	if _, ok := err.(*DuplicateCaptureError); !ok {
		t.Errorf("expected *DuplicateCaptureError, got %T", err)
	}
}

func TestRunDuplicateNameWithOverwriteSucceeds(t *testing.T) {
	_, scope := newScope()
	resp := sampleResponse()
	specs := []Spec{
		{Name: "token", Extractor: "body.token"},
		{Name: "token", Extractor: "user.id", Overwrite: true},
	}

	written, err := Run(specs, resp, scope, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written["token"].Raw() != float64(9) {
		t.Errorf("expected overwritten value, got %v", written["token"].Raw())
	}
}

func TestRunJSExtractorUsesEvaluator(t *testing.T) {
	_, scope := newScope()
	resp := sampleResponse()
	specs := []Spec{{Name: "computed", Extractor: "$js.1+1"}}

	written, err := Run(specs, resp, scope, nil, stubEvaluator{value: model.NewValue(int64(2))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written["computed"].Raw() != int64(2) {
		t.Errorf("got %v", written["computed"].Raw())
	}
}

func TestRunJSExtractorWithoutEvaluatorErrors(t *testing.T) {
	_, scope := newScope()
	resp := sampleResponse()
	specs := []Spec{{Name: "computed", Extractor: "$js.1+1"}}

	if _, err := Run(specs, resp, scope, nil, nil); err == nil {
		t.Fatal("expected error for missing evaluator")
	}
}
