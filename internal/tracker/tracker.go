package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/hackpath/internal/content"
	"github.com/roach88/hackpath/internal/retry"
)

// Tracker is the single progress interface callers depend on.
type Tracker interface {
	// Identity returns the subject progress is keyed by.
	Identity() content.Identity

	// Snapshot returns a copy of the current progress.
	Snapshot(ctx context.Context) (content.Snapshot, error)

	// Completions returns the ids of every completed node.
	Completions(ctx context.Context) (content.Set, error)

	// RecordCompletion marks nodeID complete. The returned record reflects
	// the in-memory state even when persistence fails.
	RecordCompletion(ctx context.Context, nodeID string) (content.CompletionRecord, error)

	// Position returns the stored playback position of a routine.
	Position(ctx context.Context, routineID string) (content.RoutinePosition, bool, error)

	// UpdatePosition stores a routine position. Writes older than the
	// stored UpdatedAt are ignored (last write wins by timestamp).
	UpdatePosition(ctx context.Context, pos content.RoutinePosition) error
}

// Option configures trackers, the reconciler and the session.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger
	policy retry.Policy
}

func buildOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		logger: slog.Default(),
		policy: retry.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.policy.Logger == nil {
		o.policy.Logger = o.logger
	}
	return o
}

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRetryPolicy sets the policy applied to every remote write.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}
