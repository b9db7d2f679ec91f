// Package sandbox evaluates `$js.<expression>` tokens and pre_script/
// post_script blocks inside a restricted goja VM with a bounded wall-clock
// budget and no I/O or Go-object access beyond the values explicitly
// injected.
package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
	"github.com/marcuspmd/flow-test-sub005/internal/vars"
)

// SyntaxError wraps a goja compile failure.
type SyntaxError struct{ Cause error }

func (e *SyntaxError) Error() string { return fmt.Sprintf("expression_syntax_error: %v", e.Cause) }
func (e *SyntaxError) Unwrap() error { return e.Cause }

// TimeoutError is raised when evaluation exceeds the wall-clock budget.
type TimeoutError struct{ Budget time.Duration }

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("expression_timeout_error: exceeded %s", e.Budget)
}

// ResourceError is raised when an evaluation ends in a goja interrupt
// outside the wall-clock timeout path, or when injecting vars/response/
// request into the VM fails. No step or memory budget is set on the VM,
// so memory use is not capped.
type ResourceError struct{ Cause error }

func (e *ResourceError) Error() string { return fmt.Sprintf("expression_resource_error: %v", e.Cause) }

// Sandbox evaluates expressions with a whitelisted environment: vars,
// response, request, and the read-only Math/Date/JSON/Array/Object/Number/
// String globals goja already exposes by default. No I/O, no require, no
// Go-object access beyond the plain values we explicitly inject.
type Sandbox struct {
	Timeout time.Duration // default 250ms
}

// New builds a Sandbox with the default 250ms wall-clock budget.
func New() *Sandbox {
	return &Sandbox{Timeout: 250 * time.Millisecond}
}

// Eval implements vars.ExpressionEvaluator.
func (s *Sandbox) Eval(expr string, ctx vars.EvalContext) (model.Value, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	varsObj := make(map[string]interface{}, len(ctx.Vars))
	for k, v := range ctx.Vars {
		varsObj[k] = v.Raw()
	}
	if err := vm.Set("vars", varsObj); err != nil {
		return model.Null, fmt.Errorf("expression_resource_error: %w", err)
	}
	if err := vm.Set("response", ctx.Response.Raw()); err != nil {
		return model.Null, fmt.Errorf("expression_resource_error: %w", err)
	}
	if err := vm.Set("request", ctx.Request.Raw()); err != nil {
		return model.Null, fmt.Errorf("expression_resource_error: %w", err)
	}

	prog, err := goja.Compile("expr", expr, false)
	if err != nil {
		return model.Null, &SyntaxError{Cause: err}
	}

	budget := s.Timeout
	if budget <= 0 {
		budget = 250 * time.Millisecond
	}
	ctxTimeout, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	done := make(chan struct{})
	var result goja.Value
	var runErr error
	go func() {
		defer close(done)
		result, runErr = vm.RunProgram(prog)
	}()

	select {
	case <-done:
		if runErr != nil {
			if ie, ok := runErr.(*goja.InterruptedError); ok {
				return model.Null, &ResourceError{Cause: ie}
			}
			return model.Null, &SyntaxError{Cause: runErr}
		}
		return model.NewValue(result.Export()), nil
	case <-ctxTimeout.Done():
		vm.Interrupt("expression_timeout_error")
		<-done
		return model.Null, &TimeoutError{Budget: budget}
	}
}
