// Package fetch implements the throttled, resilient HTTP layer shared by
// all provider clients.
//
// Each provider owns one Gate (a process-wide minimum-interval limiter)
// and one Client. The Client blocks on the gate before every attempt,
// retries 429/5xx/transport errors with capped exponential backoff, honours
// numeric Retry-After headers, fails immediately on 403, and reacts to 401
// by invoking the provider's re-authentication hook once.
package fetch
