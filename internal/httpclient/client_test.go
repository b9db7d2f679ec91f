package httpclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marcuspmd/flow-test-sub005/internal/model"
)

func TestExecuteSuccessfulJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
	}))
	defer srv.Close()

	c := New(RetryPolicy{}, 0)
	req := &model.Request{Method: "GET", URL: srv.URL}
	resp, exchanges, err := c.Execute(req, 2*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	body, ok := resp.Body.(map[string]interface{})
	if !ok || body["ok"] != true {
		t.Errorf("Body = %v", resp.Body)
	}
	if len(exchanges) != 1 {
		t.Errorf("expected 1 attempt, got %d", len(exchanges))
	}
}

func TestExecuteRetriesOn5xxForIdempotentMethod(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&count, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(RetryPolicy{Enabled: true, MaxAttempts: 3, DelayMs: 1}, 0)
	req := &model.Request{Method: "GET", URL: srv.URL}
	resp, exchanges, err := c.Execute(req, 2*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if len(exchanges) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(exchanges))
	}
}

func TestExecuteDoesNotRetryNonIdempotentMethodOn5xx(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(RetryPolicy{Enabled: true, MaxAttempts: 3, DelayMs: 1}, 0)
	req := &model.Request{Method: "POST", URL: srv.URL}
	resp, _, err := c.Execute(req, 2*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 500 {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if atomic.LoadInt32(&count) != 1 {
		t.Errorf("expected exactly 1 attempt for a non-idempotent method, got %d", count)
	}
}

func TestExecuteSendsJSONBodyAndContentType(t *testing.T) {
	var gotContentType string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(RetryPolicy{}, 0)
	req := &model.Request{Method: "POST", URL: srv.URL, Body: map[string]interface{}{"name": "ana"}}
	resp, exchanges, err := c.Execute(req, 2*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if !strings.Contains(gotContentType, "application/json") {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody["name"] != "ana" {
		t.Errorf("gotBody = %v", gotBody)
	}
	if !strings.Contains(exchanges[0].CurlEquiv, "curl -X POST") {
		t.Errorf("CurlEquiv = %q", exchanges[0].CurlEquiv)
	}
}

func TestExecuteFailsAfterRetryBudgetExhausted(t *testing.T) {
	c := New(RetryPolicy{Enabled: true, MaxAttempts: 2, DelayMs: 1}, 0)
	req := &model.Request{Method: "GET", URL: "http://127.0.0.1:1/unreachable"}
	_, _, err := c.Execute(req, 200*time.Millisecond)
	if err == nil {
		t.Fatal("expected an HTTPError for an unreachable host")
	}
	if _, ok := err.(*HTTPError); !ok {
		t.Errorf("expected *HTTPError, got %T", err)
	}
}
