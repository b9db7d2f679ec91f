// Package assertspec evaluates per-step assertion rules against the
// response and variable state, covering the full
// equals/contains/ordering/regex/type/one_of rule vocabulary.
package assertspec

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
	"github.com/marcuspmd/flow-test-sub005/internal/respath"
)

const floatTolerance = 1e-9

// Rule is one parsed assertion: a field path plus the rule name and
// (already-interpolated) expected operand.
type Rule struct {
	FieldPath string
	Name      string
	Expected  interface{}
}

// ParseAssertMap turns a step's raw `assert` YAML map into an ordered list
// of Rules. A bare scalar under a field key (`status_code: 200`) is sugar
// for `equals`; a nested object (`body.count: {greater_than: 0}`) names
// the rule explicitly. Map iteration order is not guaranteed by Go, so
// callers needing stable StepResult ordering should sort by FieldPath
// upstream if required; assertion order is not otherwise mandated.
func ParseAssertMap(raw map[string]interface{}) []Rule {
	var rules []Rule
	for field, spec := range raw {
		switch t := spec.(type) {
		case map[string]interface{}:
			for ruleName, expected := range t {
				rules = append(rules, Rule{FieldPath: field, Name: ruleName, Expected: expected})
			}
		default:
			rules = append(rules, Rule{FieldPath: field, Name: "equals", Expected: spec})
		}
	}
	return rules
}

// Evaluate runs every rule against resp without short-circuiting — every
// assertion is always evaluated. expected operands must already be
// interpolated by the caller.
func Evaluate(rules []Rule, resp *model.Response) []model.AssertionOutcome {
	out := make([]model.AssertionOutcome, 0, len(rules))
	for _, r := range rules {
		out = append(out, evalOne(r, resp))
	}
	return out
}

func evalOne(r Rule, resp *model.Response) model.AssertionOutcome {
	actual, err := respath.Resolve(r.FieldPath, resp)
	outcome := model.AssertionOutcome{FieldPath: r.FieldPath, Rule: r.Name, Expected: r.Expected}

	if err != nil {
		if r.Name == "not_exists" {
			outcome.Passed = true
			return outcome
		}
		outcome.Actual = nil
		outcome.Passed = false
		outcome.Message = err.Error()
		return outcome
	}
	outcome.Actual = actual.Raw()

	passed, msg := applyRule(r.Name, r.Expected, actual)
	outcome.Passed = passed
	outcome.Message = msg
	return outcome
}

func applyRule(name string, expected interface{}, actual model.Value) (bool, string) {
	switch name {
	case "equals":
		return deepEqual(expected, actual.Raw()), mismatch(expected, actual)
	case "not_equals":
		return !deepEqual(expected, actual.Raw()), ""
	case "exists":
		return true, "" // resolution success already proves existence
	case "not_exists":
		return false, fmt.Sprintf("expected field to be absent, found %v", actual.Raw())
	case "contains":
		return containsCheck(actual, expected)
	case "not_contains":
		ok, _ := containsCheck(actual, expected)
		return !ok, ""
	case "greater_than":
		return numCompare(actual, expected, func(a, b float64) bool { return a > b })
	case "less_than":
		return numCompare(actual, expected, func(a, b float64) bool { return a < b })
	case "greater_or_equal":
		return numCompare(actual, expected, func(a, b float64) bool { return a > b || floatEq(a, b) })
	case "less_or_equal":
		return numCompare(actual, expected, func(a, b float64) bool { return a < b || floatEq(a, b) })
	case "between":
		return betweenCheck(actual, expected)
	case "matches":
		return matchesCheck(actual, expected)
	case "length":
		return lengthCheck(actual, expected)
	case "type":
		expStr, _ := expected.(string)
		return actual.TypeName() == expStr, fmt.Sprintf("expected type %q, got %q", expStr, actual.TypeName())
	case "one_of":
		return oneOfCheck(actual, expected)
	default:
		return false, fmt.Sprintf("unknown assertion rule %q", name)
	}
}

func mismatch(expected interface{}, actual model.Value) string {
	return fmt.Sprintf("expected %v, got %v", expected, actual.Raw())
}

func deepEqual(a, b interface{}) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return floatEq(af, bf)
	}
	return fmt.Sprintf("%#v", a) == fmt.Sprintf("%#v", b)
}

func floatEq(a, b float64) bool {
	tol := floatTolerance * math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= tol
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

func numCompare(actual model.Value, expected interface{}, cmp func(a, b float64) bool) (bool, string) {
	af, aok := toFloat(actual.Raw())
	bf, bok := toFloat(expected)
	if !aok || !bok {
		return false, fmt.Sprintf("cannot numerically compare %v and %v", actual.Raw(), expected)
	}
	return cmp(af, bf), fmt.Sprintf("%v failed comparison against %v", af, bf)
}

func betweenCheck(actual model.Value, expected interface{}) (bool, string) {
	pair, ok := expected.([]interface{})
	if !ok || len(pair) != 2 {
		return false, "between requires an inclusive [lo, hi] pair"
	}
	lo, loOK := toFloat(pair[0])
	hi, hiOK := toFloat(pair[1])
	af, aOK := toFloat(actual.Raw())
	if !loOK || !hiOK || !aOK {
		return false, "between operands must be numeric"
	}
	return af >= lo && af <= hi, fmt.Sprintf("%v not in [%v, %v]", af, lo, hi)
}

func matchesCheck(actual model.Value, expected interface{}) (bool, string) {
	pattern, ok := expected.(string)
	if !ok {
		return false, "matches requires a string pattern"
	}
	re, err := regexp.CompilePOSIX(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex: %v", err)
	}
	return re.MatchString(actual.String()), fmt.Sprintf("%q does not match /%s/", actual.String(), pattern)
}

func lengthCheck(actual model.Value, expected interface{}) (bool, string) {
	wantLen, ok := toFloat(expected)
	if !ok {
		return false, "length requires a numeric expected value"
	}
	var n int
	switch t := actual.Raw().(type) {
	case string:
		n = len(t)
	case []interface{}:
		n = len(t)
	default:
		return false, "length applies to strings and arrays only"
	}
	return float64(n) == wantLen, fmt.Sprintf("expected length %v, got %d", wantLen, n)
}

func oneOfCheck(actual model.Value, expected interface{}) (bool, string) {
	set, ok := expected.([]interface{})
	if !ok {
		return false, "one_of requires an array of candidates"
	}
	for _, c := range set {
		if deepEqual(c, actual.Raw()) {
			return true, ""
		}
	}
	return false, fmt.Sprintf("%v not found in %v", actual.Raw(), set)
}

func containsCheck(actual model.Value, expected interface{}) (bool, string) {
	switch t := actual.Raw().(type) {
	case string:
		needle := fmt.Sprintf("%v", expected)
		return strings.Contains(t, needle), fmt.Sprintf("%q does not contain %q", t, needle)
	case []interface{}:
		for _, e := range t {
			if deepEqual(e, expected) {
				return true, ""
			}
		}
		return false, fmt.Sprintf("%v not found in array", expected)
	default:
		return false, "contains applies to strings and arrays only"
	}
}
