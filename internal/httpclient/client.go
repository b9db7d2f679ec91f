// Package httpclient issues interpolated HTTP requests with timeouts and a
// retry/backoff policy, built on fasthttp with retry delay computed by
// cenkalti/backoff.
package httpclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

// RetryPolicy mirrors execution.retry_failed.
type RetryPolicy struct {
	Enabled     bool
	MaxAttempts int
	DelayMs     int
}

var idempotentMethods = map[string]bool{"GET": true, "HEAD": true, "PUT": true, "DELETE": true}

// Client wraps a fasthttp.Client with the engine's retry classification.
type Client struct {
	fh      *fasthttp.Client
	Retry   RetryPolicy
	limiter *rate.Limiter
}

// New builds a Client. rateLimitRPS <= 0 disables client-side throttling.
func New(retry RetryPolicy, rateLimitRPS float64) *Client {
	c := &Client{
		fh: &fasthttp.Client{
			MaxConnsPerHost: 512,
		},
		Retry: retry,
	}
	if rateLimitRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rateLimitRPS), 1)
	}
	return c
}

// HTTPError wraps a network/transport failure after the
// retry budget is exhausted.
type HTTPError struct {
	Cause    error
	Attempts int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http_error: failed after %d attempt(s): %v", e.Attempts, e.Cause)
}
func (e *HTTPError) Unwrap() error { return e.Cause }

// Execute issues req, honoring retries for retryable failures: network
// timeout, connection refused, 5xx on an idempotent method, or an error
// response (4xx/5xx) carrying a Retry-After header. Returns the response plus the full set of
// attempt records (for reporting the cURL equivalent of each attempt).
func (c *Client) Execute(req *model.Request, timeout time.Duration) (*model.Response, []model.RawExchange, error) {
	maxAttempts := 1
	if c.Retry.Enabled && c.Retry.MaxAttempts > 1 {
		maxAttempts = c.Retry.MaxAttempts
	}

	bo := backoff.NewConstantBackOff(time.Duration(c.Retry.DelayMs) * time.Millisecond)

	var attempts []model.RawExchange
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.limiter != nil {
			_ = c.limiter.Wait(context.Background())
		}

		resp, exch, err := c.doOnce(req, timeout, attempt)
		attempts = append(attempts, exch)

		if err == nil {
			retryable := resp.StatusCode >= 500 && idempotentMethods[strings.ToUpper(req.Method)]
			if resp.StatusCode >= 400 {
				for k := range resp.Headers {
					if strings.EqualFold(k, "Retry-After") {
						retryable = true
					}
				}
			}
			if !retryable || attempt == maxAttempts || !c.Retry.Enabled {
				return resp, attempts, nil
			}
			lastErr = fmt.Errorf("retryable status %d", resp.StatusCode)
			time.Sleep(bo.NextBackOff())
			continue
		}

		lastErr = err
		if !c.Retry.Enabled || !isRetryable(err) || attempt == maxAttempts {
			return nil, attempts, &HTTPError{Cause: err, Attempts: attempt}
		}
		time.Sleep(bo.NextBackOff())
	}

	return nil, attempts, &HTTPError{Cause: lastErr, Attempts: maxAttempts}
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "reset by peer") ||
		strings.Contains(msg, "EOF")
}

func (c *Client) doOnce(req *model.Request, timeout time.Duration, attempt int) (*model.Response, model.RawExchange, error) {
	fr := fasthttp.AcquireRequest()
	fresp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(fr)
	defer fasthttp.ReleaseResponse(fresp)

	fr.SetRequestURI(req.URL)
	fr.Header.SetMethod(strings.ToUpper(req.Method))
	for k, v := range req.Headers {
		fr.Header.Set(k, v)
	}

	var bodyBytes []byte
	if req.Body != nil {
		bodyBytes = encodeBody(req.Body)
		fr.SetBody(bodyBytes)
		if fr.Header.ContentType() == nil || len(fr.Header.ContentType()) == 0 {
			fr.Header.SetContentType("application/json")
		}
	}

	exch := model.RawExchange{
		Method:    req.Method,
		URL:       req.URL,
		Headers:   req.Headers,
		Body:      string(bodyBytes),
		Attempt:   attempt,
		CurlEquiv: curlEquivalent(req, bodyBytes),
	}

	start := time.Now()
	err := c.fh.DoTimeout(fr, fresp, timeout)
	duration := time.Since(start)

	if err != nil {
		return nil, exch, err
	}

	headers := make(map[string]string)
	fresp.Header.VisitAll(func(k, v []byte) {
		headers[string(k)] = string(v)
	})

	raw := append([]byte(nil), fresp.Body()...)
	var parsedBody interface{}
	ct := string(fresp.Header.ContentType())
	if strings.Contains(ct, "application/json") {
		parsedBody = decodeJSON(raw)
	}

	resp := &model.Response{
		StatusCode:   fresp.StatusCode(),
		Headers:      headers,
		Body:         parsedBody,
		Raw:          raw,
		DurationMs:   duration.Milliseconds(),
		ResponseTime: duration,
	}

	exch.StatusCode = resp.StatusCode
	exch.RespHeaders = headers
	exch.RespBody = string(raw)
	return resp, exch, nil
}
