// Package capture extracts values from a response into variable scopes
// after a successful request.
package capture

import (
	"fmt"
	"strings"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
	"github.com/marcuspmd/flow-test-sub005/internal/respath"
	"github.com/marcuspmd/flow-test-sub005/internal/vars"
)

// Spec is one parsed `capture` entry.
type Spec struct {
	Name      string
	Extractor string
	Promote   string // "" | "suite" | "global"
	Overwrite bool
}

// ParseCaptureMap turns a step's raw `capture` YAML map into Specs. A bare
// string value is the extractor with no promotion; an object value names
// `expr`/`extractor`, `promote`, and `overwrite` explicitly.
func ParseCaptureMap(raw map[string]interface{}) []Spec {
	var specs []Spec
	for name, v := range raw {
		switch t := v.(type) {
		case string:
			specs = append(specs, Spec{Name: name, Extractor: t})
		case map[string]interface{}:
			s := Spec{Name: name}
			if e, ok := t["extractor"].(string); ok {
				s.Extractor = e
			} else if e, ok := t["expr"].(string); ok {
				s.Extractor = e
			}
			if p, ok := t["promote"].(string); ok {
				s.Promote = p
			}
			if o, ok := t["overwrite"].(bool); ok {
				s.Overwrite = o
			}
			specs = append(specs, s)
		}
	}
	return specs
}

// DuplicateCaptureError is raised when two captures in the same step write
// the same step-scope name without `overwrite: true`.
type DuplicateCaptureError struct{ Name string }

func (e *DuplicateCaptureError) Error() string {
	return fmt.Sprintf("duplicate_capture_error: %q already captured this step", e.Name)
}

// Run evaluates every capture spec against resp and writes results into
// scope's step layer (and suite/global on promotion). Returns the
// name->Value map written, for the StepResult.
func Run(specs []Spec, resp *model.Response, scope *vars.Scope, interp *vars.Interpolator, eval vars.ExpressionEvaluator) (map[string]model.Value, error) {
	written := make(map[string]model.Value, len(specs))
	seen := make(map[string]bool, len(specs))

	for _, s := range specs {
		if seen[s.Name] && !s.Overwrite {
			return written, &DuplicateCaptureError{Name: s.Name}
		}
		seen[s.Name] = true

		v, err := extract(s.Extractor, resp, scope, eval)
		if err != nil {
			return written, fmt.Errorf("interpolation_error: capture %q: %w", s.Name, err)
		}

		scope.SetRuntime(vars.LayerStep, s.Name, v)
		written[s.Name] = v

		switch s.Promote {
		case "suite":
			scope.SetRuntime(vars.LayerSuite, s.Name, v)
		case "global":
			scope.SetRuntime(vars.LayerGlobal, s.Name, v)
		}
	}
	return written, nil
}

func extract(extractor string, resp *model.Response, scope *vars.Scope, eval vars.ExpressionEvaluator) (model.Value, error) {
	extractor = strings.TrimSpace(extractor)
	if strings.HasPrefix(extractor, "$js.") {
		if eval == nil {
			return model.Null, fmt.Errorf("no expression evaluator configured")
		}
		expr := strings.TrimPrefix(extractor, "$js.")
		v, err := eval.Eval(expr, vars.EvalContext{
			Vars:     scope.Snapshot(),
			Response: resp.AsValue(),
		})
		if err != nil {
			return model.Null, err
		}
		// an undefined $js capture result is stored as an explicit null rather
		// than omitted, keeping the variable name bound in its scope.
		return v, nil
	}

	// strip {{ }} wrapper if present, e.g. "{{body.token}}"
	inner := extractor
	if strings.HasPrefix(inner, "{{") && strings.HasSuffix(inner, "}}") {
		inner = strings.TrimSuffix(strings.TrimPrefix(inner, "{{"), "}}")
		inner = strings.TrimSpace(inner)
	}

	v, err := respath.Resolve(inner, resp)
	if err != nil && inner != extractor {
		// a wrapped extractor that names no response field reads the
		// variable of that name (a plain name only, no dotted path)
		if sv, ok := scope.Get(inner); ok {
			return sv, nil
		}
	}
	return v, err
}
