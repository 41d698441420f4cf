// Package retry holds the one retry policy used for remote writes.
//
// Call sites never loop on their own: the tracker, the reconciler and the
// playback persistence all run their remote calls through a Policy, so the
// attempt budget and delay are configured in one place.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Kind selects the delay schedule between attempts.
type Kind string

const (
	// Fixed waits Delay between every attempt.
	Fixed Kind = "fixed"
	// Exponential starts at Delay and doubles, capped at MaxDelay.
	Exponential Kind = "exponential"
)

// DefaultDelay is the pause before the single retry of a remote write.
const DefaultDelay = time.Second

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	// MaxAttempts counts the first try; 2 means one retry.
	MaxAttempts int
	Delay       time.Duration
	Kind        Kind
	MaxDelay    time.Duration // Exponential only; 0 means 30s

	// Logger receives one warning per failed attempt. Nil uses slog.Default.
	Logger *slog.Logger
}

// Default returns one bounded retry after a fixed delay.
func Default() Policy {
	return Policy{MaxAttempts: 2, Delay: DefaultDelay, Kind: Fixed}
}

// None returns a policy that tries exactly once.
func None() Policy {
	return Policy{MaxAttempts: 1, Kind: Fixed}
}

// Validate checks the policy fields.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry: max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.Delay < 0 {
		return fmt.Errorf("retry: delay must be >= 0, got %s", p.Delay)
	}
	switch p.Kind {
	case Fixed, Exponential, "":
	default:
		return fmt.Errorf("retry: unknown kind %q", p.Kind)
	}
	return nil
}

func (p Policy) backOff() backoff.BackOff {
	if p.Kind == Exponential {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = p.Delay
		b.RandomizationFactor = 0
		b.Multiplier = 2
		b.MaxInterval = p.MaxDelay
		if b.MaxInterval <= 0 {
			b.MaxInterval = 30 * time.Second
		}
		return b
	}
	return backoff.NewConstantBackOff(p.Delay)
}

// Do runs op until it succeeds, returns a permanent error, the attempt
// budget is spent, or ctx is done. The last error is returned.
func (p Policy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, op(ctx)
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("remote call failed, retrying",
				"op", name,
				"attempt", attempt,
				"max_attempts", attempts,
				"retry_in", next,
				"error", err,
			)
		}),
	)
	return err
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
