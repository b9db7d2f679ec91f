// Package respath implements the JSON-path-style field addressing shared by
// the Capture Engine and Assertion Engine: body.<path>,
// headers.<name>, status_code, response_time_ms, and nested dotted/indexed
// paths into the body.
package respath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

// ErrNotFound is returned when a field path does not resolve; callers
// (assertions) treat this as `actual = undefined`.
type ErrNotFound struct {
	Path string
}

func (e *ErrNotFound) Error() string { return fmt.Sprintf("field path %q did not resolve", e.Path) }

// Resolve evaluates a field path against a response.
func Resolve(path string, resp *model.Response) (model.Value, error) {
	switch {
	case path == "status_code":
		return model.NewValue(int64(resp.StatusCode)), nil
	case path == "response_time_ms":
		return model.NewValue(resp.DurationMs), nil
	case strings.HasPrefix(path, "headers."):
		name := strings.TrimPrefix(path, "headers.")
		for k, v := range resp.Headers {
			if strings.EqualFold(k, name) {
				return model.NewValue(v), nil
			}
		}
		return model.Null, &ErrNotFound{Path: path}
	case path == "body":
		return model.NewValue(resp.Body), nil
	case strings.HasPrefix(path, "body."):
		return resolveBodyPath(strings.TrimPrefix(path, "body."), resp.Body)
	default:
		// bare path with no recognized prefix is treated as a body path,
		// stripping a leading "$." the way a JSONPath expression would.
		return resolveBodyPath(strings.TrimPrefix(path, "$."), resp.Body)
	}
}

func resolveBodyPath(path string, body interface{}) (model.Value, error) {
	cur := body
	if path == "" {
		return model.NewValue(cur), nil
	}
	for _, seg := range splitPath(path) {
		if seg.isIndex {
			arr, ok := cur.([]interface{})
			if !ok {
				return model.Null, &ErrNotFound{Path: path}
			}
			if seg.index < 0 || seg.index >= len(arr) {
				return model.Null, &ErrNotFound{Path: path}
			}
			cur = arr[seg.index]
			continue
		}
		m, ok := cur.(map[string]interface{})
		if !ok {
			return model.Null, &ErrNotFound{Path: path}
		}
		v, ok := m[seg.name]
		if !ok {
			return model.Null, &ErrNotFound{Path: path}
		}
		cur = v
	}
	return model.NewValue(cur), nil
}

type segment struct {
	name    string
	isIndex bool
	index   int
}

// splitPath parses "a.b[0].c" into [{a} {b} {0,isIndex} {c}].
func splitPath(path string) []segment {
	var out []segment
	for _, part := range strings.Split(path, ".") {
		for len(part) > 0 {
			if i := strings.IndexByte(part, '['); i >= 0 {
				if i > 0 {
					out = append(out, segment{name: part[:i]})
				}
				end := strings.IndexByte(part, ']')
				if end < 0 {
					break
				}
				idx, err := strconv.Atoi(part[i+1 : end])
				if err == nil {
					out = append(out, segment{isIndex: true, index: idx})
				}
				part = part[end+1:]
			} else {
				out = append(out, segment{name: part})
				part = ""
			}
		}
	}
	return out
}
