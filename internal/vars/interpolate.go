package vars

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

// FakerProvider resolves `$faker.<namespace>.<method>` / `faker.<namespace>.
// <method>` directives. Implementations are selected at startup —
// see internal/faker.
type FakerProvider interface {
	Resolve(path string) (string, error)
}

// EvalContext is the pure value environment handed to an ExpressionEvaluator
// for `$js.<expr>` directives and pre/post scripts.
type EvalContext struct {
	Vars     map[string]model.Value
	Response model.Value
	Request  model.Value
}

// ExpressionEvaluator evaluates a sandboxed expression. See
// internal/sandbox for the goja-backed implementation.
type ExpressionEvaluator interface {
	Eval(expr string, ctx EvalContext) (model.Value, error)
}

// Interpolator evaluates the `{{ ... }}` token grammar over strings and
// object trees.
type Interpolator struct {
	Faker    FakerProvider
	Eval     ExpressionEvaluator
	MaxDepth int  // cycle bound, default 8
	Strict   bool // missing plain references become ResolutionError instead of ""
}

// NewInterpolator builds an Interpolator with the default recursion depth.
func NewInterpolator(faker FakerProvider, eval ExpressionEvaluator, strict bool) *Interpolator {
	return &Interpolator{Faker: faker, Eval: eval, MaxDepth: 8, Strict: strict}
}

var tokenRe = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)

// ResolutionError is raised in strict mode when a plain reference does not
// resolve to any known variable.
type ResolutionError struct {
	Name string
}

func (e *ResolutionError) Error() string { return fmt.Sprintf("resolution_error: unresolved reference %q", e.Name) }

// InterpolationCycleError is raised when a variable's resolved value
// recursively resolves back into itself past MaxDepth.
type InterpolationCycleError struct {
	Name string
}

func (e *InterpolationCycleError) Error() string {
	return fmt.Sprintf("interpolation_cycle_error: %q did not stabilize within depth bound", e.Name)
}

// InterpolateString resolves every `{{ token }}` in s against scope. A
// single-token string ("{{x}}" with no surrounding literal text) preserves
// the resolved value's native type; any literal text around tokens forces
// string coercion.
func (i *Interpolator) InterpolateString(s string, scope *Scope) (model.Value, error) {
	return i.interpolateStringDepth(s, scope, 0)
}

func (i *Interpolator) interpolateStringDepth(s string, scope *Scope, depth int) (model.Value, error) {
	if depth > i.MaxDepth {
		return model.Null, &InterpolationCycleError{Name: s}
	}

	matches := tokenRe.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return model.NewValue(s), nil
	}

	// Single-token whole-string case preserves native type.
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(s) {
		inner := s[matches[0][2]:matches[0][3]]
		v, err := i.resolveToken(inner, scope, depth)
		if err != nil {
			return model.Null, err
		}
		return v, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		inner := s[m[2]:m[3]]
		v, err := i.resolveToken(inner, scope, depth)
		if err != nil {
			return model.Null, err
		}
		b.WriteString(v.String())
		last = m[1]
	}
	b.WriteString(s[last:])
	return model.NewValue(b.String()), nil
}

func (i *Interpolator) resolveToken(inner string, scope *Scope, depth int) (model.Value, error) {
	switch {
	case strings.HasPrefix(inner, "$faker.") || strings.HasPrefix(inner, "faker."):
		path := strings.TrimPrefix(strings.TrimPrefix(inner, "$faker."), "faker.")
		if i.Faker == nil {
			return model.Null, fmt.Errorf("interpolation_error: no faker provider configured")
		}
		resolved, err := i.Faker.Resolve(path)
		if err != nil {
			return model.Null, fmt.Errorf("interpolation_error: faker %q: %w", path, err)
		}
		return model.NewValue(resolved), nil

	case strings.HasPrefix(inner, "$env."):
		return i.resolveEnv(strings.TrimPrefix(inner, "$env."))

	case strings.HasPrefix(inner, "$js."):
		if i.Eval == nil {
			return model.Null, fmt.Errorf("interpolation_error: no expression evaluator configured")
		}
		expr := strings.TrimPrefix(inner, "$js.")
		v, err := i.Eval.Eval(expr, EvalContext{Vars: scope.Snapshot()})
		if err != nil {
			return model.Null, err
		}
		return v, nil

	case inner == "$variables" || inner == "$all_variables":
		snap := scope.Snapshot()
		m := make(map[string]interface{}, len(snap))
		for k, v := range snap {
			m[k] = v.Raw()
		}
		return model.NewValue(m), nil

	case inner == "$environment_variables":
		return model.NewValue(envSnapshotPlaceholder()), nil

	default:
		return i.resolvePlainReference(inner, scope, depth)
	}
}

func envSnapshotPlaceholder() map[string]interface{} {
	// $environment_variables resolves to an empty object: the process
	// environment is not enumerated (single names resolve through $env).
	return map[string]interface{}{}
}

func (i *Interpolator) resolveEnv(spec string) (model.Value, error) {
	name := spec
	def := ""
	hasDefault := false
	if idx := strings.Index(spec, ":-"); idx >= 0 {
		name = spec[:idx]
		def = spec[idx+2:]
		hasDefault = true
	}
	v, ok := envLookup(name)
	if ok {
		return model.NewValue(v), nil
	}
	if hasDefault {
		return model.NewValue(def), nil
	}
	return model.NewValue(""), nil
}

// envLookup is overridable in tests.
var envLookup = os.LookupEnv

func (i *Interpolator) resolvePlainReference(path string, scope *Scope, depth int) (model.Value, error) {
	root, rest := splitFirstSegment(path)
	v, ok := scope.Get(root)
	if !ok {
		if i.Strict {
			return model.Null, &ResolutionError{Name: path}
		}
		return model.NewValue(""), nil
	}

	v, err := traverse(v, rest)
	if err != nil {
		if i.Strict {
			return model.Null, &ResolutionError{Name: path}
		}
		return model.NewValue(""), nil
	}

	// If the resolved value is itself an interpolatable string containing
	// further tokens, re-interpolate it against the same scope (cycle-bound).
	if s, isStr := v.Raw().(string); isStr && tokenRe.MatchString(s) {
		return i.interpolateStringDepth(s, scope, depth+1)
	}
	return v, nil
}

func splitFirstSegment(path string) (string, string) {
	idx := strings.IndexAny(path, ".[")
	if idx < 0 {
		return path, ""
	}
	return path[:idx], path[idx:]
}

// traverse walks dotted.path and [index] segments into objects/arrays.
func traverse(v model.Value, rest string) (model.Value, error) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return v, nil
	}
	cur := v.Raw()
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			seg, remainder := nextSegment(rest)
			rest = remainder
			m, ok := cur.(map[string]interface{})
			if !ok {
				return model.Null, fmt.Errorf("cannot index field %q into non-object", seg)
			}
			next, ok := m[seg]
			if !ok {
				return model.Null, fmt.Errorf("field %q not found", seg)
			}
			cur = next
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return model.Null, fmt.Errorf("malformed index expression %q", rest)
			}
			idxStr := rest[1:end]
			rest = rest[end+1:]
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return model.Null, fmt.Errorf("invalid array index %q", idxStr)
			}
			arr, ok := cur.([]interface{})
			if !ok {
				return model.Null, fmt.Errorf("cannot index [%d] into non-array", idx)
			}
			if idx < 0 || idx >= len(arr) {
				return model.Null, fmt.Errorf("array index %d out of bounds", idx)
			}
			cur = arr[idx]
		default:
			seg, remainder := nextSegment(rest)
			rest = remainder
			m, ok := cur.(map[string]interface{})
			if !ok {
				return model.Null, fmt.Errorf("cannot index field %q into non-object", seg)
			}
			next, ok := m[seg]
			if !ok {
				return model.Null, fmt.Errorf("field %q not found", seg)
			}
			cur = next
		}
	}
	return model.NewValue(cur), nil
}

func jsonLiteral(v model.Value) (string, error) {
	b, err := v.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nextSegment(s string) (string, string) {
	idx := strings.IndexAny(s, ".[")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx:]
}

// InterpolateForExpression substitutes `{{ }}` tokens with JSON-literal
// encodings of their resolved values rather than raw text, so the result
// is safe to feed to the expression sandbox as source (e.g. a scenario
// condition like `{{response.body.role}} == "admin"` becomes
// `"admin" == "admin"` instead of the syntactically invalid `admin ==
// "admin"`).
func (i *Interpolator) InterpolateForExpression(s string, scope *Scope) (string, error) {
	matches := tokenRe.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s, nil
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		inner := s[m[2]:m[3]]
		v, err := i.resolveToken(inner, scope, 0)
		if err != nil {
			return "", err
		}
		lit, err := jsonLiteral(v)
		if err != nil {
			return "", err
		}
		b.WriteString(lit)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

// InterpolateValue recursively interpolates strings found anywhere inside
// an arbitrary JSON-like tree (request bodies, headers), passing non-string
// scalars through unchanged.
func (i *Interpolator) InterpolateValue(v interface{}, scope *Scope) (model.Value, error) {
	switch t := v.(type) {
	case string:
		return i.InterpolateString(t, scope)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			rv, err := i.InterpolateValue(val, scope)
			if err != nil {
				return model.Null, err
			}
			out[k] = rv.Raw()
		}
		return model.NewValue(out), nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for idx, val := range t {
			rv, err := i.InterpolateValue(val, scope)
			if err != nil {
				return model.Null, err
			}
			out[idx] = rv.Raw()
		}
		return model.NewValue(out), nil
	default:
		return model.NewValue(t), nil
	}
}
