package watcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/sensor-ingest-service/pkg/common"
)

// Retrier runs an operation up to Attempts times with a fixed Delay between
// attempts.
type Retrier struct {
	Attempts int
	Delay    time.Duration
	// Retryable classifies errors. When nil every error is retried.
	Retryable func(error) bool
	Sleep     func(ctx context.Context, d time.Duration) error
}

func NewRetrier(attempts int, delay time.Duration, retryable func(error) bool) *Retrier {
	return &Retrier{
		Attempts:  attempts,
		Delay:     delay,
		Retryable: retryable,
		Sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do executes fn until it succeeds, returns a non-retryable error, or the
// attempts run out. A panic inside fn counts as a failed attempt.
func (r *Retrier) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	logger := common.GetLoggerWith(
		common.LoggerNameWatcher,
		zap.String(common.LoggerFieldIngestCategory, common.LoggerCategoryRetry),
		zap.String("operation", name),
	)

	attempts := max(r.Attempts, 1)
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = protect(ctx, fn)
		if lastErr == nil {
			return nil
		}

		if r.Retryable != nil && !r.Retryable(lastErr) {
			logger.Info("Not retrying", zap.Int("attempt", attempt), zap.Error(lastErr))
			return lastErr
		}

		if attempt < attempts {
			logger.Warn("Attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Duration("delay", r.Delay),
				zap.Error(lastErr),
			)
			if err := sleep(ctx, r.Delay); err != nil {
				return fmt.Errorf("%s interrupted after %d attempts: %w: %w", name, attempt, err, lastErr)
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, lastErr)
}

func protect(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}
