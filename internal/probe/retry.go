package probe

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/prototypedave/hybridTool/internal/config"
)

// RetryPolicy bounds the attempts of one probe operation.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Delay is the wait before the second attempt.
	Delay time.Duration
	// Strategy keeps Delay constant or doubles it after every attempt.
	Strategy config.RetryStrategy
}

// PolicyFromConfig builds the policy configured for performance sub-audits.
func PolicyFromConfig(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		Attempts: cfg.RetryAttempts,
		Delay:    cfg.RetryDelay,
		Strategy: cfg.RetryStrategy,
	}
}

func (p RetryPolicy) backoff() retry.Backoff {
	var b retry.Backoff
	if p.Strategy == config.RetryExponential && p.Delay > 0 {
		b = retry.NewExponential(p.Delay)
	} else {
		delay := max(p.Delay, 0)
		b = retry.BackoffFunc(func() (time.Duration, bool) {
			return delay, false
		})
	}

	retries := 0
	if p.Attempts > 1 {
		retries = p.Attempts - 1
	}
	return retry.WithMaxRetries(uint64(retries), b) //nolint:gosec // retries is non-negative
}

// Do calls fn until it succeeds, the attempts are exhausted, or ctx ends.
// fn receives the 1-based attempt number. It returns the number of attempts
// made and the last error.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	attempt := 0
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || errors.Is(err, ErrPermanent) {
			return err
		}
		return retry.RetryableError(err)
	})
	return attempt, err
}

// ErrPermanent marks an error that retrying cannot fix.
var ErrPermanent = errors.New("permanent failure")
