package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// Retries per call on transient failures, distinct from the
	// inter-request spacing the rate limiter enforces.
	maxRetries = 3

	// Responses are capped to keep a hostile source from exhausting
	// memory.
	maxBodySize = 10 << 20
)

// Response is the result of a single successful retrieval.
type Response struct {
	Status  int
	Body    []byte
	Latency time.Duration
}

// Fetcher performs a single HTTP retrieval with retry. The pipeline is
// agnostic to the transport behind it: a plain HTTP client or a
// browser-rendering proxy satisfy the same contract.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// Error is a terminal fetch failure. Permanent failures (403, 404,
// malformed URLs) were never retried; transient ones exhausted the retry
// budget first.
type Error struct {
	URL       string
	Status    int
	Permanent bool
	Err       error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether err is a fetch failure that retrying can
// not fix.
func IsPermanent(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Permanent
}

// StatusCode returns the HTTP status attached to a fetch failure, or 0
// when the failure happened below the HTTP layer.
func StatusCode(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}

// permanentStatus classifies response codes that must not be retried:
// hammering an active block only digs the hole deeper.
func permanentStatus(status int) bool {
	switch {
	case status == 429:
		return false
	case status >= 400 && status < 500:
		return true
	}
	return false
}

// withRetry runs attempt with exponential backoff on transient failures.
// Permanent failures surface immediately.
func withRetry(ctx context.Context, attempt func() (*Response, error)) (*Response, error) {
	operation := func() (*Response, error) {
		resp, err := attempt()
		if err != nil && IsPermanent(err) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	return backoff.RetryWithData(operation, policy)
}
