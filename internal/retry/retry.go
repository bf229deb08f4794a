// Package retry implements the RetryEngine from spec §4.8: exponential
// backoff with error classification, wired to cenkalti/backoff/v4 the way
// the teacher's job bookkeeping in db/jobs.go tracks attempt counts, but
// with the actual wait/retry loop delegated to the library rather than
// hand-rolled.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/migerr"
)

// Classification is the outcome of classifying an error for retry purposes.
type Classification int

const (
	// Retryable errors are transient: network failures, 429s, 5xx.
	Retryable Classification = iota
	// NotRetryable errors are permanent: 401, 403, and other 4xx.
	NotRetryable
)

// Classify implements the spec §4.8 classification table. Unknown errors
// default to Retryable, matching the spec's "unknown errors treated as
// transient" rule.
func Classify(err error) Classification {
	if err == nil {
		return Retryable
	}

	var rle *migerr.RateLimitError
	if errors.As(err, &rle) {
		return Retryable
	}

	var me *migerr.Error
	if errors.As(err, &me) {
		switch me.Kind {
		case migerr.KindConnection, migerr.KindRateLimit, migerr.KindData:
			return Retryable
		case migerr.KindAuth, migerr.KindPermission, migerr.KindConfiguration, migerr.KindValidation:
			return NotRetryable
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Retryable
	}

	if code, ok := httpStatusOf(err); ok {
		switch {
		case code == 404, code == 429, code >= 500:
			return Retryable
		case code == 401, code == 403:
			return NotRetryable
		case code >= 400 && code < 500:
			return NotRetryable
		}
	}

	return Retryable
}

// httpStatusError is implemented by errors that carry an HTTP status code,
// e.g. source/target client errors.
type httpStatusError interface {
	StatusCode() int
}

func httpStatusOf(err error) (int, bool) {
	var hse httpStatusError
	if errors.As(err, &hse) {
		return hse.StatusCode(), true
	}
	return 0, false
}

// Engine runs operations with classification-aware exponential backoff.
type Engine struct {
	MaxDelay time.Duration
}

// NewEngine builds an Engine with the spec's default 60s cap on backoff delay.
func NewEngine() *Engine {
	return &Engine{MaxDelay: 60 * time.Second}
}

// Operation is a unit of work that may fail transiently.
type Operation func(ctx context.Context) error

// TryWith retries op up to maxAttempts times using exponential backoff
// starting at initialDelay and capped at e.MaxDelay (or 60s if e.MaxDelay is
// zero), per spec §4.8's `min(initial*2^(i-1), max)` formula. A
// NotRetryable classification aborts immediately without consuming further
// attempts, mirroring backoff.Permanent semantics.
func (e *Engine) TryWith(ctx context.Context, op Operation, maxAttempts int, initialDelay time.Duration) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	maxDelay := e.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 60 * time.Second
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialDelay
	b.MaxInterval = maxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0 // bounded by maxAttempts, not elapsed wall time

	bo := backoff.WithMaxRetries(b, uint64(maxAttempts-1))
	bo = backoff.WithContext(bo, ctx)

	wrapped := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if Classify(err) == NotRetryable {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(wrapped, bo)
}

// IsRetryable is a convenience wrapper over Classify for callers that only
// need the boolean.
func IsRetryable(err error) bool {
	return Classify(err) == Retryable
}

// IsTransientNetworkMessage does a last-resort substring check for error
// strings that don't implement net.Error but clearly describe a transport
// failure (e.g. wrapped by a lower-level library). Classify does not call
// it; Classify's default for an unrecognised error is Retryable.
func IsTransientNetworkMessage(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "eof")
}
