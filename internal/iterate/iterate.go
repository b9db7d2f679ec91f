// Package iterate expands a step into N iterations from a data array or
// range.
package iterate

import (
	"fmt"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
	"github.com/marcuspmd/flow-test-sub005/internal/vars"
)

// IterationTypeError is raised when `iterate.over` does not evaluate to an
// array.
type IterationTypeError struct{ Expr string }

func (e *IterationTypeError) Error() string {
	return fmt.Sprintf("iteration_type_error: %q did not evaluate to an array", e.Expr)
}

// Expand resolves an IterateSpec to the concrete slice of bound values a
// step must run once per element.
func Expand(spec *model.IterateSpec, scope *vars.Scope, interp *vars.Interpolator) ([]model.Value, error) {
	if spec.Count != "" {
		n, err := resolveCount(spec.Count, scope, interp)
		if err != nil {
			return nil, err
		}
		out := make([]model.Value, n)
		for i := 0; i < n; i++ {
			out[i] = model.NewValue(int64(i))
		}
		return out, nil
	}

	v, err := interp.InterpolateString(spec.Over, scope)
	if err != nil {
		return nil, err
	}
	arr, err := v.Array()
	if err != nil {
		return nil, &IterationTypeError{Expr: spec.Over}
	}
	return arr, nil
}

func resolveCount(expr string, scope *vars.Scope, interp *vars.Interpolator) (int, error) {
	v, err := interp.InterpolateString(expr, scope)
	if err != nil {
		return 0, err
	}
	switch t := v.Raw().(type) {
	case float64:
		return int(t), nil
	case int64:
		return int(t), nil
	case int:
		return t, nil
	default:
		return 0, &IterationTypeError{Expr: expr}
	}
}
