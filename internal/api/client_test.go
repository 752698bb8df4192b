package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	if !errors.Is(err, ErrMissingBaseURL) {
		t.Errorf("expected ErrMissingBaseURL, got %v", err)
	}

	if _, err := New("not a url"); err == nil {
		t.Error("expected error for invalid base URL")
	}
}

func TestNewClient_DefaultValues(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "https://example.com/"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if client.BaseURL() != "https://example.com" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", client.BaseURL())
	}
	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", client.httpClient.Timeout, DefaultTimeout)
	}
	if client.maxRetries != DefaultMaxRetries {
		t.Errorf("maxRetries = %d, want %d", client.maxRetries, DefaultMaxRetries)
	}
	if client.retryDelay != DefaultRetryDelay {
		t.Errorf("retryDelay = %v, want %v", client.retryDelay, DefaultRetryDelay)
	}
}

func TestNew_WithOptions(t *testing.T) {
	client, err := New("https://example.com",
		WithAPIKey("k"),
		WithRetries(5),
		WithRetryDelay(time.Millisecond),
		WithTimeout(time.Minute),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.apiKey != "k" {
		t.Errorf("apiKey = %q, want k", client.apiKey)
	}
	if client.maxRetries != 5 {
		t.Errorf("maxRetries = %d, want 5", client.maxRetries)
	}
	if client.httpClient.Timeout != time.Minute {
		t.Errorf("timeout = %v, want 1m", client.httpClient.Timeout)
	}
}

func TestClient_Do_Headers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("X-API-Key = %q, want test-key", r.Header.Get("X-API-Key"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer server.Close()

	client, _ := New(server.URL, WithAPIKey("test-key"))

	var result struct{ OK bool }
	if err := client.Do(context.Background(), http.MethodGet, "/ping", nil, &result); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !result.OK {
		t.Error("result.OK = false, want true")
	}
}

func TestClient_Do_OmitsAPIKeyWhenUnset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["X-Api-Key"]; ok {
			t.Error("X-API-Key sent without a configured key")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, _ := New(server.URL)
	if err := client.Do(context.Background(), http.MethodPost, "/x", map[string]string{"a": "b"}, nil); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
}

func TestClient_Do_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"value": "done"})
	}))
	defer server.Close()

	client, _ := New(server.URL, WithRetries(3), WithRetryDelay(time.Millisecond))

	var result struct{ Value string }
	if err := client.Do(context.Background(), http.MethodGet, "/", nil, &result); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if result.Value != "done" {
		t.Errorf("Value = %q, want done", result.Value)
	}
}

func TestClient_Do_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("X-Request-Id", "req-1")
		w.WriteHeader(http.StatusGone)
		w.Write([]byte(`{"error":"session expired"}`))
	}))
	defer server.Close()

	client, _ := New(server.URL, WithRetryDelay(time.Millisecond))

	err := client.Do(context.Background(), http.MethodPost, "/", nil, nil)
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusGone || apiErr.Message != "session expired" || apiErr.RequestID != "req-1" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
	if !errors.Is(err, ErrSessionExpired) {
		t.Error("410 should match ErrSessionExpired")
	}
}

func TestClient_Do_ExhaustedRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := New(server.URL, WithRetries(2), WithRetryDelay(time.Millisecond))
	err := client.Do(context.Background(), http.MethodGet, "/", nil, nil)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestClient_Do_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, _ := New(url, WithRetries(-1))
	err := client.Do(context.Background(), http.MethodGet, "/", nil, nil)

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %T: %v", err, err)
	}
	if netErr.Attempt != 1 {
		t.Errorf("Attempt = %d, want 1", netErr.Attempt)
	}
}

func TestClient_Do_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, _ := New(server.URL, WithRetryDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := client.Do(ctx, http.MethodGet, "/", nil, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestClient_Do_InvalidJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client, _ := New(server.URL)
	var result map[string]any
	if err := client.Do(context.Background(), http.MethodGet, "/", nil, &result); err == nil {
		t.Error("expected decode error")
	}
}
