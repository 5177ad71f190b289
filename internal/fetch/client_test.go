package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(url string, opts ...Option) *Client {
	base := []Option{
		WithRetries(4),
		WithBackoff(time.Millisecond, 20*time.Millisecond),
	}
	return NewClient("test", nil, append(base, opts...)...)
}

func TestGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	c := testClient(server.URL)
	body, err := c.Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("body = %q, want %q", body, "hello")
	}
}

func TestGet_RetriesServerErrorsThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := testClient(server.URL)
	body, err := c.Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("server saw %d requests, want 4 (3 retries)", got)
	}
}

func TestGet_ForbiddenFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := testClient(server.URL)
	_, err := c.Get(context.Background(), server.URL, nil)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", httpErr.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d requests, want 1 (no retry)", got)
	}
}

func TestGet_RateLimitHonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := testClient(server.URL)
	start := time.Now()
	_, err := c.Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("retried after %v, want >= 1s per Retry-After header", elapsed)
	}
}

func TestGet_ExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient("test", nil, WithRetries(2), WithBackoff(time.Millisecond, 5*time.Millisecond))
	_, err := c.Get(context.Background(), server.URL, nil)

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want *ExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadGateway {
		t.Errorf("ExhaustedError should wrap the last HTTP error, got %v", exhausted.Err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d requests, want 3", got)
	}
}

func TestGet_ReauthenticatesOnceOn401(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	var reauths atomic.Int32
	c := testClient(server.URL, WithAuthenticate(func(ctx context.Context) error {
		reauths.Add(1)
		return nil
	}))

	body, err := c.Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
	if got := reauths.Load(); got != 1 {
		t.Errorf("authenticate called %d times, want 1", got)
	}
}

func TestGet_TransportErrorRetried(t *testing.T) {
	// Server that closes immediately gives connection-level failures.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c := NewClient("test", nil, WithRetries(1), WithBackoff(time.Millisecond, 2*time.Millisecond))
	_, err := c.Get(context.Background(), server.URL, nil)

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want *ExhaustedError wrapping transport error", err)
	}
}

func TestGet_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testClient(server.URL)
	if _, err := c.Get(ctx, server.URL, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestBackoffDelay_Capped(t *testing.T) {
	c := NewClient("test", nil, WithBackoff(time.Second, 30*time.Second))

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{20, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := c.backoffDelay(tt.retry); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestHTTPError_Classification(t *testing.T) {
	tests := []struct {
		status      int
		retryable   bool
		rateLimited bool
	}{
		{http.StatusTooManyRequests, true, true},
		{http.StatusInternalServerError, true, false},
		{http.StatusServiceUnavailable, true, false},
		{http.StatusForbidden, false, false},
		{http.StatusNotFound, false, false},
	}
	for _, tt := range tests {
		e := &HTTPError{Provider: "p", StatusCode: tt.status}
		if e.Retryable() != tt.retryable {
			t.Errorf("status %d Retryable = %v, want %v", tt.status, e.Retryable(), tt.retryable)
		}
		if e.RateLimited() != tt.rateLimited {
			t.Errorf("status %d RateLimited = %v, want %v", tt.status, e.RateLimited(), tt.rateLimited)
		}
	}
}

func TestIsPermanent(t *testing.T) {
	if !IsPermanent(&HTTPError{StatusCode: http.StatusForbidden}) {
		t.Error("403 should be permanent")
	}
	if IsPermanent(&HTTPError{StatusCode: http.StatusBadGateway}) {
		t.Error("502 should not be permanent")
	}
	if !IsPermanent(&QuotaExhaustedError{Provider: "stooq", Message: "daily hits limit"}) {
		t.Error("quota exhaustion should be permanent")
	}
}
