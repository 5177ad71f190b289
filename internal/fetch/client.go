package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// AuthenticateFunc refreshes a provider session (cookies, crumbs). It is
// invoked once per Get when the provider answers 401.
type AuthenticateFunc func(ctx context.Context) error

// Client issues throttled, retried GET requests against one provider.
type Client struct {
	provider   string
	httpClient *http.Client
	gate       *Gate
	logger     *slog.Logger

	userAgent    string
	maxRetries   int
	backoffBase  time.Duration
	backoffCap   time.Duration
	authenticate AuthenticateFunc
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a fetch client for the named provider. The gate may be
// nil, which disables throttling.
func NewClient(provider string, gate *Gate, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		gate:        gate,
		logger:      slog.Default(),
		maxRetries:  4,
		backoffBase: time.Second,
		backoffCap:  30 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRetries sets the retry budget (attempts beyond the first).
func WithRetries(max int) Option {
	return func(c *Client) {
		c.maxRetries = max
	}
}

// WithBackoff sets the exponential backoff base and cap.
func WithBackoff(base, cap time.Duration) Option {
	return func(c *Client) {
		c.backoffBase = base
		c.backoffCap = cap
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client (cookie jars, test transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAuthenticate registers a session refresh hook for providers that
// answer 401 until a warm-up request has been made.
func WithAuthenticate(fn AuthenticateFunc) Option {
	return func(c *Client) {
		c.authenticate = fn
	}
}

// Get fetches url, blocking on the provider gate before every attempt and
// retrying transient failures with exponential backoff. It returns the
// response body, or an ExhaustedError wrapping the last failure once the
// retry budget is spent. 403 fails immediately: it means the provider is
// blocking us, and hammering it again only makes that worse.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	var lastErr error
	reauthed := false

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffDelay(attempt - 1)
			var httpErr *HTTPError
			if errors.As(lastErr, &httpErr) && httpErr.RetryAfter > 0 {
				delay = httpErr.RetryAfter
			}
			c.logger.Debug("retrying fetch",
				"provider", c.provider,
				"attempt", attempt,
				"delay", delay,
				"url", url,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.gate.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.do(ctx, url, header)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			if httpErr.StatusCode == http.StatusUnauthorized && c.authenticate != nil && !reauthed {
				reauthed = true
				if aerr := c.authenticate(ctx); aerr != nil {
					c.logger.Warn("re-authentication failed",
						"provider", c.provider,
						"err", aerr,
					)
				}
				continue
			}
			if !httpErr.Retryable() {
				return nil, err
			}
		}
		// Transport-level errors (timeout, connection reset, TLS) fall
		// through and are retried.
	}

	return nil, &ExhaustedError{
		Provider: c.provider,
		Attempts: c.maxRetries + 1,
		Err:      lastErr,
	}
}

// do performs a single attempt.
func (c *Client) do(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json,text/plain,*/*")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{
			Provider:   c.provider,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       body,
		}
	}

	return body, nil
}

// backoffDelay computes min(cap, base * 2^retry).
func (c *Client) backoffDelay(retry int) time.Duration {
	delay := c.backoffBase
	for i := 0; i < retry; i++ {
		delay *= 2
		if delay >= c.backoffCap {
			return c.backoffCap
		}
	}
	if delay > c.backoffCap {
		delay = c.backoffCap
	}
	return delay
}

// parseRetryAfter handles the numeric-seconds form of Retry-After. The
// HTTP-date form is ignored; backoff covers it.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
