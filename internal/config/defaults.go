package config

import (
	"github.com/roach88/hackpath/internal/playback"
	"github.com/roach88/hackpath/internal/retry"
)

// Default returns the built-in configuration.
func Default() Config {
	policy := retry.Default()
	return Config{
		Paths: Paths{
			DataDir: "~/.local/share/hackpath",
		},
		Retry: Retry{
			MaxAttempts: policy.MaxAttempts,
			DelayMS:     int(policy.Delay.Milliseconds()),
			Kind:        string(policy.Kind),
			MaxDelayMS:  30_000,
		},
		Playback: Playback{
			CountdownSeconds: playback.DefaultCountdown,
		},
		Sync: Sync{
			IntervalSeconds: 60,
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
		Telemetry: Telemetry{
			ServiceName: "hackpath",
		},
	}
}
