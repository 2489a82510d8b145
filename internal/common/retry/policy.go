// Package retry holds the single backoff policy shared by every external call site.
package retry

import (
	"context"
	"errors"
	"time"

	"meetup-workers/internal/common/config"
	apperrors "meetup-workers/internal/common/errors"

	"github.com/cenkalti/backoff/v4"
)

// Policy retries rate-limited calls with exponential backoff and gives any
// other failure a single extra attempt.
type Policy struct {
	RateLimitRetries int
	ErrorRetries     int
	InitialInterval  time.Duration
	Multiplier       float64
	MaxInterval      time.Duration
}

// Attempt describes one failed call. Wait is the delay before the next try,
// or zero when the policy gave up.
type Attempt struct {
	Number int
	Err    error
	Wait   time.Duration
}

// NotifyFunc observes failed attempts.
type NotifyFunc func(Attempt)

func DefaultPolicy() *Policy {
	return &Policy{
		RateLimitRetries: 2,
		ErrorRetries:     1,
		InitialInterval:  time.Second,
		Multiplier:       2,
		MaxInterval:      8 * time.Second,
	}
}

func NewPolicy(cfg config.RetryConfig) *Policy {
	return &Policy{
		RateLimitRetries: cfg.RateLimitRetries,
		ErrorRetries:     cfg.ErrorRetries,
		InitialInterval:  config.GetDuration(cfg.InitialInterval),
		Multiplier:       cfg.Multiplier,
		MaxInterval:      config.GetDuration(cfg.MaxInterval),
	}
}

func (p *Policy) newBackOff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.Multiplier = p.Multiplier
	bo.MaxInterval = p.MaxInterval
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()
	return backoff.WithContext(bo, ctx)
}

// Do runs op until it succeeds or the retry budget for its error kind is
// spent. It returns the number of attempts made and the last error.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error, notify NotifyFunc) (int, error) {
	var (
		attempts    int
		rateLimited int
		other       int
		lastErr     error
	)

	operation := func() error {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		switch {
		case ctx.Err() != nil, errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrInvalidRequest):
			return backoff.Permanent(err)
		case errors.Is(err, apperrors.ErrRateLimited):
			rateLimited++
			if rateLimited > p.RateLimitRetries {
				return backoff.Permanent(err)
			}
		default:
			other++
			if other > p.ErrorRetries {
				return backoff.Permanent(err)
			}
		}
		return err
	}

	err := backoff.RetryNotify(operation, p.newBackOff(ctx), func(err error, wait time.Duration) {
		if notify != nil {
			notify(Attempt{Number: attempts, Err: err, Wait: wait})
		}
	})
	if err == nil {
		return attempts, nil
	}
	if notify != nil {
		notify(Attempt{Number: attempts, Err: lastErr})
	}
	if lastErr != nil {
		return attempts, lastErr
	}
	return attempts, err
}
