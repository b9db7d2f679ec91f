// Package model defines the core data types shared across the execution
// engine: the dynamic Value sum type, suites, steps, and result records.
package model

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Value is the JSON-like value every variable, capture, and assertion
// operand is represented as: null | bool | int64 | float64 | string |
// []interface{} | map[string]interface{} (elements held as raw values of
// the same kinds).
type Value struct {
	v interface{}
}

// NewValue wraps a raw Go value (as produced by encoding/json or yaml.v3
// unmarshalling into interface{}) into a Value.
func NewValue(raw interface{}) Value {
	return Value{v: normalize(raw)}
}

// Null is the Value representing JSON null.
var Null = Value{v: nil}

func normalize(raw interface{}) interface{} {
	switch t := raw.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, v := range t {
			out[fmt.Sprintf("%v", k)] = normalize(v)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, v := range t {
			out[k] = normalize(v)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, v := range t {
			out[i] = normalize(v)
		}
		return out
	default:
		return raw
	}
}

// Raw returns the underlying Go value.
func (v Value) Raw() interface{} { return v.v }

// IsNull reports whether the value is JSON null (or an unset Value).
func (v Value) IsNull() bool { return v.v == nil }

// String renders the value the way it would appear interpolated into a
// literal-text string: numbers and bools use their natural textual form,
// objects/arrays are JSON-encoded, null becomes the empty string.
func (v Value) String() string {
	switch t := v.v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64, int64, int, json.Number:
		return fmt.Sprintf("%v", t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// Truthy mirrors loose-language truthiness: null, false, 0, "", empty
// array/object are falsy; everything else truthy. Used by scenario
// conditions.
func (v Value) Truthy() bool {
	switch t := v.v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int64:
		return t != 0
	case int:
		return t != 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}

// Array returns the value as a []Value, erroring if it is not a JSON array.
func (v Value) Array() ([]Value, error) {
	arr, ok := v.v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("value is not an array (got %T)", v.v)
	}
	out := make([]Value, len(arr))
	for i, e := range arr {
		out[i] = NewValue(e)
	}
	return out, nil
}

// TypeName reports the assertion-rule type name: string, number, integer,
// boolean, null, array, object.
func (v Value) TypeName() string {
	switch t := v.v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64:
		if t == float64(int64(t)) {
			return "integer"
		}
		return "number"
	case int64, int:
		return "integer"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", t)
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) { return json.Marshal(v.v) }

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v.v = normalize(raw)
	return nil
}

// UnmarshalYAML implements yaml.v3's Unmarshaler via a generic interface{}
// decode, so suite files can mix scalars, sequences, and mappings freely.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	v.v = normalize(raw)
	return nil
}
