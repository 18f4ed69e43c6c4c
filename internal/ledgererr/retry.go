package ledgererr

import (
	"context"
	"time"
)

// RetryBackoff is the base delay between attempts; attempt n waits n*RetryBackoff.
var RetryBackoff = 20 * time.Millisecond

// Retry calls fn up to attempts times while it fails with a concurrency
// conflict. Any other outcome is returned immediately.
func Retry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		err = fn(ctx)
		if err == nil || KindOf(err) != KindConcurrency {
			return err
		}
		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i) * RetryBackoff):
		}
	}
	return err
}
