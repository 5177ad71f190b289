package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNoData marks a response that carries a provider's "no data" page or
// placeholder instead of the requested series. Callers treat it as an empty
// result, not a failure.
var ErrNoData = errors.New("no data in response")

// HTTPError represents a non-2xx response from a provider.
type HTTPError struct {
	Provider   string
	StatusCode int
	RetryAfter time.Duration // From a numeric Retry-After header; 0 when absent
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode))
}

// Retryable reports whether the response should trigger a retry. 5xx and
// 429 are transient; everything else (403 in particular) is permanent.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// RateLimited reports whether the provider throttled the request.
func (e *HTTPError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// QuotaExhaustedError signals a provider-wide daily quota limit. Unlike a
// 429 it is not retried; the whole batch must stop to avoid burning quota.
type QuotaExhaustedError struct {
	Provider string
	Message  string
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("%s: quota exhausted: %s", e.Provider, e.Message)
}

// IsQuotaExhausted reports whether err carries a QuotaExhaustedError.
func IsQuotaExhausted(err error) bool {
	var q *QuotaExhaustedError
	return errors.As(err, &q)
}

// ExhaustedError wraps the last underlying error after the retry budget is
// spent.
type ExhaustedError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: fetch exhausted after %d attempts: %v", e.Provider, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsPermanent reports whether err should not be retried at any level: a
// non-retryable HTTP status or an exhausted quota.
func IsPermanent(err error) bool {
	if IsQuotaExhausted(err) {
		return true
	}
	var h *HTTPError
	return errors.As(err, &h) && !h.Retryable()
}
