package frankfurter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/langowen/ratesconverter/internal/entities"
	"github.com/langowen/ratesconverter/internal/metrics"
	"github.com/pkg/errors"
)

// BackoffFunc returns the wait before retry number attempt (1-based).
type BackoffFunc func(attempt int) time.Duration

// Linear waits step, 2*step, 3*step...
func Linear(step time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

type attemptBackOff struct {
	fn      BackoffFunc
	attempt int
}

func (b *attemptBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.fn(b.attempt)
}

func (b *attemptBackOff) Reset() {
	b.attempt = 0
}

type transientStatusError struct {
	code int
}

func (e *transientStatusError) Error() string {
	return fmt.Sprintf("transient upstream status %d", e.code)
}

// Transient reports whether a status is worth another attempt.
func Transient(code int) bool {
	return code >= 500 || code == http.StatusRequestTimeout
}

// Retrying decorates a Fetcher with bounded retries on transport errors
// and transient statuses. Other responses, 429 included, return at once.
type Retrying struct {
	next        Fetcher
	maxAttempts int
	backoff     BackoffFunc
	metrics     *metrics.Metrics
}

func NewRetrying(next Fetcher, maxAttempts int, fn BackoffFunc, m *metrics.Metrics) *Retrying {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retrying{
		next:        next,
		maxAttempts: maxAttempts,
		backoff:     fn,
		metrics:     m,
	}
}

// Fetch returns the last transient response once attempts run out, so
// callers see the real status. Transport errors and cancellation come
// back as errors.
func (r *Retrying) Fetch(ctx context.Context, url string) (*entities.UpstreamResponse, error) {
	const op = "frankfurter.Retrying.Fetch"

	var last *entities.UpstreamResponse
	attempts := 0

	operation := func() error {
		attempts++
		resp, err := r.next.Fetch(ctx, url)
		if err != nil {
			last = nil
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		last = resp
		if Transient(resp.StatusCode) {
			return &transientStatusError{code: resp.StatusCode}
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		r.metrics.UpstreamRetry()
		slog.Warn("upstream attempt failed, retrying",
			"op", op,
			"url", url,
			"attempt", attempts,
			"wait", wait,
			"error", err,
		)
	}

	// WithMaxRetries treats zero as unlimited.
	var b backoff.BackOff = &backoff.StopBackOff{}
	if r.maxAttempts > 1 {
		b = backoff.WithMaxRetries(&attemptBackOff{fn: r.backoff}, uint64(r.maxAttempts-1))
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
	if err == nil {
		return last, nil
	}

	var tse *transientStatusError
	if errors.As(err, &tse) && last != nil {
		slog.Error("upstream attempts exhausted", "op", op, "url", url, "attempts", attempts, "status", last.StatusCode)
		return last, nil
	}

	return nil, errors.Wrapf(err, "%s: after %d attempt(s)", op, attempts)
}
