package sink

import (
	"context"
	"time"

	"github.com/avast/retry-go"
)

// retrySink retries failed publishes with a fixed backoff before giving up.
// The default policy (max_attempts: 1) bypasses this decorator entirely, so
// retry-vs-skip is an explicit configuration choice.
type retrySink struct {
	inner    Sink
	attempts uint
	backoff  time.Duration
}

// WithRetry wraps a sink with a bounded retry policy.
func WithRetry(inner Sink, maxAttempts int, backoff time.Duration) Sink {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &retrySink{
		inner:    inner,
		attempts: uint(maxAttempts),
		backoff:  backoff,
	}
}

// Publish implements Sink.
func (s *retrySink) Publish(ctx context.Context, key, value []byte) error {
	return retry.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return s.inner.Publish(ctx, key, value)
		},
		retry.Attempts(s.attempts),
		retry.Delay(s.backoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

// Close implements Sink.
func (s *retrySink) Close() error {
	return s.inner.Close()
}
