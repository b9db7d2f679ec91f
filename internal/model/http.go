package model

import "time"

// Request is the fully-interpolated, wire-ready HTTP request.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    interface{}
}

// Response is the outcome of one HTTP exchange. Body is parsed into
// a generic JSON value when the content-type is JSON, otherwise Raw holds
// the undecoded bytes and Body is null.
type Response struct {
	StatusCode   int
	Headers      map[string]string
	Body         interface{}
	Raw          []byte
	DurationMs   int64
	ResponseTime time.Duration
	RawRequest   string
	RawResponse  string
}

// AsValue renders the response the way field paths in capture/assert
// expressions address it: {status_code, response_time_ms, headers, body}.
func (r *Response) AsValue() Value {
	m := map[string]interface{}{
		"status_code":      int64(r.StatusCode),
		"response_time_ms": r.DurationMs,
	}
	headers := make(map[string]interface{}, len(r.Headers))
	for k, v := range r.Headers {
		headers[k] = v
	}
	m["headers"] = headers
	m["body"] = r.Body
	return NewValue(m)
}
