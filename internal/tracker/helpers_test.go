package tracker

import (
	"io"
	"log/slog"
	"time"

	"github.com/roach88/hackpath/internal/retry"
	"github.com/roach88/hackpath/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testOptions uses the default attempt budget without the one-second pause.
func testOptions(clock *testutil.FakeClock) []Option {
	return []Option{
		WithClock(clock.Now),
		WithLogger(quietLogger()),
		WithRetryPolicy(retry.Policy{MaxAttempts: 2, Delay: time.Millisecond, Kind: retry.Fixed}),
	}
}
