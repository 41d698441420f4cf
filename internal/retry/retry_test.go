package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fast(attempts int) Policy {
	return Policy{MaxAttempts: attempts, Delay: time.Millisecond, Kind: Fixed, Logger: quiet()}
}

func TestDo_SucceedsOnRetry(t *testing.T) {
	calls := 0
	err := fast(2).Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	calls := 0
	boom := errors.New("down")
	err := fast(2).Do(context.Background(), "op", func(context.Context) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls, "one bounded retry")
}

func TestDo_NoneTriesOnce(t *testing.T) {
	p := None()
	p.Logger = quiet()
	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("unauthorized")
	err := fast(5).Do(context.Background(), "op", func(context.Context) error {
		calls++
		return Permanent(boom)
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 3, Delay: time.Hour, Kind: Fixed, Logger: quiet()}

	calls := 0
	err := p.Do(ctx, "op", func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_Exponential(t *testing.T) {
	p := Policy{MaxAttempts: 3, Delay: time.Millisecond, Kind: Exponential, Logger: quiet()}
	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, Default().Validate())
	assert.Error(t, Policy{MaxAttempts: 0}.Validate())
	assert.Error(t, Policy{MaxAttempts: 1, Delay: -time.Second}.Validate())
	assert.Error(t, Policy{MaxAttempts: 1, Kind: "jitter"}.Validate())
}
