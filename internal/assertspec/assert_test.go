package assertspec

import (
	"testing"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

func sampleResponse() *model.Response {
	return &model.Response{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": "application/json"},
		DurationMs: 15,
		Body: map[string]interface{}{
			"id":    float64(7),
			"name":  "ada",
			"email": "ada@example.com",
			"tags":  []interface{}{"admin", "beta"},
		},
	}
}

func TestParseAssertMapBareScalarIsSugarForEquals(t *testing.T) {
	rules := ParseAssertMap(map[string]interface{}{"status_code": float64(200)})
	if len(rules) != 1 || rules[0].Name != "equals" || rules[0].FieldPath != "status_code" {
		t.Fatalf("got %+v", rules)
	}
}

func TestParseAssertMapNestedObjectNamesRuleExplicitly(t *testing.T) {
	rules := ParseAssertMap(map[string]interface{}{
		"body.id": map[string]interface{}{"greater_than": float64(0)},
	})
	if len(rules) != 1 || rules[0].Name != "greater_than" || rules[0].FieldPath != "body.id" {
		t.Fatalf("got %+v", rules)
	}
}

func TestEvaluateEqualsPassesAndFails(t *testing.T) {
	resp := sampleResponse()
	outcomes := Evaluate([]Rule{
		{FieldPath: "status_code", Name: "equals", Expected: float64(200)},
		{FieldPath: "body.name", Name: "equals", Expected: "bob"},
	}, resp)
	if !outcomes[0].Passed {
		t.Errorf("expected status_code equals to pass: %+v", outcomes[0])
	}
	if outcomes[1].Passed {
		t.Errorf("expected body.name equals to fail: %+v", outcomes[1])
	}
}

func TestEvaluateDoesNotShortCircuit(t *testing.T) {
	resp := sampleResponse()
	outcomes := Evaluate([]Rule{
		{FieldPath: "status_code", Name: "equals", Expected: float64(999)},
		{FieldPath: "body.name", Name: "equals", Expected: "ada"},
	}, resp)
	if len(outcomes) != 2 {
		t.Fatalf("expected both rules evaluated, got %d", len(outcomes))
	}
	if outcomes[0].Passed {
		t.Error("first rule should fail")
	}
	if !outcomes[1].Passed {
		t.Error("second rule should still be evaluated and pass")
	}
}

func TestEvaluateNotExistsPassesWhenFieldMissing(t *testing.T) {
	resp := sampleResponse()
	outcomes := Evaluate([]Rule{{FieldPath: "body.missing", Name: "not_exists"}}, resp)
	if !outcomes[0].Passed {
		t.Errorf("expected not_exists to pass for missing field: %+v", outcomes[0])
	}
}

func TestEvaluateExistsFailsWhenFieldMissing(t *testing.T) {
	resp := sampleResponse()
	outcomes := Evaluate([]Rule{{FieldPath: "body.missing", Name: "exists"}}, resp)
	if outcomes[0].Passed {
		t.Errorf("expected exists to fail for missing field: %+v", outcomes[0])
	}
}

func TestApplyRuleContains(t *testing.T) {
	resp := sampleResponse()
	outcomes := Evaluate([]Rule{
		{FieldPath: "body.email", Name: "contains", Expected: "@example.com"},
		{FieldPath: "body.tags", Name: "contains", Expected: "admin"},
	}, resp)
	if !outcomes[0].Passed || !outcomes[1].Passed {
		t.Errorf("got %+v", outcomes)
	}
}

func TestApplyRuleGreaterAndLessThan(t *testing.T) {
	resp := sampleResponse()
	outcomes := Evaluate([]Rule{
		{FieldPath: "body.id", Name: "greater_than", Expected: float64(5)},
		{FieldPath: "body.id", Name: "less_than", Expected: float64(5)},
	}, resp)
	if !outcomes[0].Passed {
		t.Error("expected greater_than to pass")
	}
	if outcomes[1].Passed {
		t.Error("expected less_than to fail")
	}
}

func TestApplyRuleBetween(t *testing.T) {
	resp := sampleResponse()
	outcomes := Evaluate([]Rule{
		{FieldPath: "body.id", Name: "between", Expected: []interface{}{float64(1), float64(10)}},
	}, resp)
	if !outcomes[0].Passed {
		t.Errorf("got %+v", outcomes[0])
	}
}

func TestApplyRuleMatchesRegex(t *testing.T) {
	resp := sampleResponse()
	outcomes := Evaluate([]Rule{
		{FieldPath: "body.email", Name: "matches", Expected: `^[a-z]+@example\.com$`},
	}, resp)
	if !outcomes[0].Passed {
		t.Errorf("got %+v", outcomes[0])
	}
}

func TestApplyRuleLength(t *testing.T) {
	resp := sampleResponse()
	outcomes := Evaluate([]Rule{
		{FieldPath: "body.tags", Name: "length", Expected: float64(2)},
	}, resp)
	if !outcomes[0].Passed {
		t.Errorf("got %+v", outcomes[0])
	}
}

func TestApplyRuleType(t *testing.T) {
	resp := sampleResponse()
	outcomes := Evaluate([]Rule{
		{FieldPath: "body.name", Name: "type", Expected: "string"},
		{FieldPath: "body.id", Name: "type", Expected: "integer"},
	}, resp)
	if !outcomes[0].Passed || !outcomes[1].Passed {
		t.Errorf("got %+v", outcomes)
	}
}

func TestApplyRuleOneOf(t *testing.T) {
	resp := sampleResponse()
	outcomes := Evaluate([]Rule{
		{FieldPath: "body.name", Name: "one_of", Expected: []interface{}{"ada", "bob"}},
	}, resp)
	if !outcomes[0].Passed {
		t.Errorf("got %+v", outcomes[0])
	}
}

func TestApplyRuleUnknownNameFails(t *testing.T) {
	resp := sampleResponse()
	outcomes := Evaluate([]Rule{{FieldPath: "status_code", Name: "frobnicate", Expected: nil}}, resp)
	if outcomes[0].Passed {
		t.Error("expected unknown rule to fail")
	}
}
