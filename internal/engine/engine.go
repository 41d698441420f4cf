package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/hackpath/internal/content"
	"github.com/roach88/hackpath/internal/graph"
	"github.com/roach88/hackpath/internal/playback"
	"github.com/roach88/hackpath/internal/progress"
	"github.com/roach88/hackpath/internal/tracker"
	"github.com/roach88/hackpath/internal/unlock"
)

// Engine answers progression queries for one device session.
type Engine struct {
	catalog   *content.Catalog
	evaluator *unlock.Evaluator
	session   *tracker.Session
	layering  graph.Layering

	logger    *slog.Logger
	clock     playback.Clock
	countdown int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the clock players use for countdowns and timestamps.
func WithClock(c playback.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithCountdown sets the autoplay countdown length in seconds.
//
// Default: 5 (playback.DefaultCountdown)
func WithCountdown(seconds int) Option {
	return func(e *Engine) {
		e.countdown = seconds
	}
}

// New creates an Engine over catalog and session. The catalog graph is
// layered once; integrity problems are logged, never fatal.
func New(catalog *content.Catalog, session *tracker.Session, opts ...Option) *Engine {
	e := &Engine{
		catalog:   catalog,
		evaluator: unlock.NewEvaluator(catalog),
		session:   session,
		logger:    slog.Default(),
		clock:     playback.RealClock{},
		countdown: playback.DefaultCountdown,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.layering, _ = e.GetLayers(catalog.Nodes())
	return e
}

// Catalog returns the content catalog.
func (e *Engine) Catalog() *content.Catalog {
	return e.catalog
}

// Session returns the progress session.
func (e *Engine) Session() *tracker.Session {
	return e.session
}

// Layers returns the cached layering of the catalog.
func (e *Engine) Layers() graph.Layering {
	return e.layering
}

// GetLayers layers nodes. The Layering is always usable; the error is a
// *graph.IntegrityError when nodes had to be excluded.
func (e *Engine) GetLayers(nodes []content.Node) (graph.Layering, error) {
	l := graph.Build(nodes).Layers()
	for _, issue := range l.Issues {
		attrs := []any{"code", issue.Code, "node", issue.NodeID}
		if issue.Ref != "" {
			attrs = append(attrs, "ref", issue.Ref)
		}
		if len(issue.Path) > 0 {
			attrs = append(attrs, "path", issue.Path)
		}
		if issue.Level == "error" {
			e.logger.Error(issue.Message, attrs...)
		} else {
			e.logger.Warn(issue.Message, attrs...)
		}
	}
	err := l.Err()
	if err != nil {
		e.logger.Error("prerequisite graph excluded nodes from layering",
			"excluded", len(l.Unplaced),
			"placed", l.Placed(),
		)
	}
	return l, err
}

// IsUnlocked reports whether nodeID is accessible with the session's
// current completions.
func (e *Engine) IsUnlocked(ctx context.Context, nodeID string) (bool, error) {
	completed, err := e.session.Completions(ctx)
	if err != nil {
		return false, err
	}
	unlocked, known := e.evaluator.IsUnlocked(nodeID, completed)
	if !known {
		return false, fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	return unlocked, nil
}

// States returns the lock state of every catalog node.
func (e *Engine) States(ctx context.Context) (map[string]bool, error) {
	completed, err := e.session.Completions(ctx)
	if err != nil {
		return nil, err
	}
	return e.evaluator.States(completed), nil
}

// Unlocked returns the ids of every unlocked node.
func (e *Engine) Unlocked(ctx context.Context) (content.Set, error) {
	completed, err := e.session.Completions(ctx)
	if err != nil {
		return nil, err
	}
	return e.evaluator.UnlockedSet(completed), nil
}

// GetProgress returns the summary of a level or a routine.
func (e *Engine) GetProgress(ctx context.Context, id string) (progress.Summary, error) {
	id = content.NormalizeID(id)
	if node, ok := e.catalog.Node(id); ok && node.Kind == content.KindLevel {
		lp, err := e.LevelProgress(ctx, id)
		if err != nil {
			return progress.Summary{}, err
		}
		return progress.LevelSummary(lp), nil
	}
	if routine, ok := e.catalog.Routine(id); ok {
		completed, err := e.session.Completions(ctx)
		if err != nil {
			return progress.Summary{}, err
		}
		return progress.ComputeRoutineProgress(routine, completed), nil
	}
	return progress.Summary{}, fmt.Errorf("%w: %s is not a level or routine", ErrUnknownNode, id)
}

// LevelProgress returns the progress and lock state of a level.
func (e *Engine) LevelProgress(ctx context.Context, levelID string) (content.LevelProgress, error) {
	level, ok := e.catalog.Node(levelID)
	if !ok || level.Kind != content.KindLevel {
		return content.LevelProgress{}, fmt.Errorf("%w: level %s", ErrUnknownNode, levelID)
	}
	completed, err := e.session.Completions(ctx)
	if err != nil {
		return content.LevelProgress{}, err
	}
	lp := progress.ComputeLevelProgress(level, e.catalog.HacksOf(level.ID), completed)
	lp.IsUnlocked, _ = e.evaluator.IsUnlocked(level.ID, completed)
	return lp, nil
}

// RoutineProgress returns the playback view of a routine.
func (e *Engine) RoutineProgress(ctx context.Context, routineID string) (content.RoutineProgress, error) {
	routine, ok := e.catalog.Routine(routineID)
	if !ok {
		return content.RoutineProgress{}, fmt.Errorf("%w: routine %s", ErrUnknownNode, routineID)
	}
	completed, err := e.session.Completions(ctx)
	if err != nil {
		return content.RoutineProgress{}, err
	}
	pos, _, err := e.session.Position(ctx, routine.ID)
	if err != nil {
		return content.RoutineProgress{}, err
	}
	autoplay, err := e.session.Autoplay()
	if err != nil {
		e.logger.Warn("autoplay preference unreadable; using default", "error", err)
	}

	steps := content.NewSet()
	for _, step := range routine.Steps {
		if completed.Has(step) {
			steps.Add(step)
		}
	}
	return content.RoutineProgress{
		RoutineID:        routine.ID,
		CurrentPosition:  clampPosition(pos.Position, routine.TotalSteps()),
		TotalSteps:       routine.TotalSteps(),
		CompletedStepIDs: steps,
		AutoplayEnabled:  autoplay,
		LastPlayedAt:     pos.UpdatedAt,
	}, nil
}

// clampPosition keeps a stored position inside [0, total). Positions read
// back may come from another device or an older catalog.
func clampPosition(pos, total int) int {
	if total <= 0 {
		return 0
	}
	return min(max(pos, 0), total-1)
}

// RecordCompletion marks a hack complete for the active identity.
func (e *Engine) RecordCompletion(ctx context.Context, nodeID string) (content.CompletionRecord, error) {
	node, ok := e.catalog.Node(nodeID)
	if !ok {
		return content.CompletionRecord{}, fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	if node.Kind != content.KindHack {
		return content.CompletionRecord{}, fmt.Errorf("%w: %s is a %s", ErrNotCompletable, node.ID, node.Kind)
	}
	return e.session.RecordCompletion(ctx, nodeID)
}

// UpdatePosition stores the playback index of a routine.
func (e *Engine) UpdatePosition(ctx context.Context, routineID string, index int) error {
	routine, ok := e.catalog.Routine(routineID)
	if !ok {
		return fmt.Errorf("%w: routine %s", ErrUnknownNode, routineID)
	}
	if !routine.ValidPosition(index) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrPositionOutOfRange, index, routine.TotalSteps())
	}
	completed, err := e.session.Completions(ctx)
	if err != nil {
		return err
	}
	return e.session.UpdatePosition(ctx, content.RoutinePosition{
		RoutineID: routine.ID,
		Position:  index,
		Progress:  progress.ComputeRoutineProgress(routine, completed).Percentage,
		UpdatedAt: e.clock.Now(),
	})
}

// SetAutoplay stores the device autoplay preference. Open players keep
// their flag; call Player.SetAutoplay to change them.
func (e *Engine) SetAutoplay(enabled bool) error {
	return e.session.SetAutoplay(enabled)
}

// Autoplay returns the device autoplay preference.
func (e *Engine) Autoplay() (bool, error) {
	return e.session.Autoplay()
}

// ReconcileOnSignIn switches to userID and merges device progress into the
// account. See tracker.Session.SignIn.
func (e *Engine) ReconcileOnSignIn(ctx context.Context, userID string) (tracker.Outcome, error) {
	out, err := e.session.SignIn(ctx, userID)
	if tracker.IsRemoteSyncError(err) {
		e.logger.Warn("sign-in reconciliation pending", "user", userID, "error", err)
	}
	return out, err
}

// SignOut returns to the device's anonymous identity.
func (e *Engine) SignOut() error {
	return e.session.SignOut()
}

// RetryPending re-runs a failed sign-in reconciliation.
func (e *Engine) RetryPending(ctx context.Context) (tracker.Outcome, error) {
	return e.session.RetryPending(ctx)
}

// SavedLocally reports whether progress currently lives only on this
// device, which drives the "progress saved locally" indicator.
func (e *Engine) SavedLocally() bool {
	return e.session.SavedLocally()
}

// NewPlayer opens a player on routineID, resuming at the stored position
// with the device autoplay preference. onChange may be nil.
func (e *Engine) NewPlayer(ctx context.Context, routineID string, onChange func(playback.Status)) (*playback.Player, error) {
	rp, err := e.RoutineProgress(ctx, routineID)
	if err != nil {
		return nil, err
	}
	routine, _ := e.catalog.Routine(routineID)
	p, err := playback.New(playback.Config{
		Routine:   routine,
		Sink:      e.session,
		Start:     rp.CurrentPosition,
		Completed: rp.CompletedStepIDs,
		Autoplay:  rp.AutoplayEnabled,
		Countdown: e.countdown,
		Clock:     e.clock,
		Logger:    e.logger,
		OnChange:  onChange,
	})
	if errors.Is(err, playback.ErrEmptyRoutine) {
		return nil, fmt.Errorf("%w: routine %s has no steps", ErrPositionOutOfRange, routineID)
	}
	return p, err
}
