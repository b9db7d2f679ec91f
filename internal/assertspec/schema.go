package assertspec

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
	"github.com/marcuspmd/flow-test-sub005/internal/respath"
)

// EvaluateSchema implements the `schema` assertion rule, additive to
// the assertion rule set: the field path's value must validate against
// a JSON Schema document (object or string expected operand). Most useful
// on suites generated by the OpenAPI importer, whose operations carry
// response schemas naturally.
func EvaluateSchema(fieldPath string, schemaDoc interface{}, resp *model.Response) model.AssertionOutcome {
	outcome := model.AssertionOutcome{FieldPath: fieldPath, Rule: "schema", Expected: schemaDoc}

	actual, err := resolveForSchema(fieldPath, resp)
	if err != nil {
		outcome.Message = err.Error()
		return outcome
	}
	outcome.Actual = actual

	schemaBytes, err := json.Marshal(schemaDoc)
	if err != nil {
		outcome.Message = fmt.Sprintf("invalid schema document: %v", err)
		return outcome
	}
	docBytes, err := json.Marshal(actual)
	if err != nil {
		outcome.Message = fmt.Sprintf("cannot encode actual value: %v", err)
		return outcome
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(docBytes),
	)
	if err != nil {
		outcome.Message = fmt.Sprintf("schema validation error: %v", err)
		return outcome
	}
	if result.Valid() {
		outcome.Passed = true
		return outcome
	}
	for _, e := range result.Errors() {
		outcome.Message += e.String() + "; "
	}
	return outcome
}

func resolveForSchema(fieldPath string, resp *model.Response) (interface{}, error) {
	if fieldPath == "" || fieldPath == "body" {
		return resp.Body, nil
	}
	v, err := respath.Resolve(fieldPath, resp)
	if err != nil {
		return nil, err
	}
	return v.Raw(), nil
}
