package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/hackpath/internal/catalog"
	"github.com/roach88/hackpath/internal/content"
	"github.com/roach88/hackpath/internal/engine"
	"github.com/roach88/hackpath/internal/playback"
	"github.com/roach88/hackpath/internal/retry"
	"github.com/roach88/hackpath/internal/testutil"
	"github.com/roach88/hackpath/internal/tracker"
)

// Error kinds reported in error events and matched against Step.Error.
const (
	KindUnknownNode      = "unknown_node"
	KindPositionRange    = "position_out_of_range"
	KindNotCompletable   = "not_completable"
	KindNoRemote         = "no_remote"
	KindRemoteSync       = "remote_sync"
	KindPersistenceWrite = "persistence_write"
	KindOther            = "error"
)

// Harness drives one device session through a scenario.
type Harness struct {
	catalog *content.Catalog
	engine  *engine.Engine
	remote  *testutil.MemoryRemote
	clock   *testutil.FakeClock

	player *playback.Player
	states map[string]bool
	result *Result
}

// Run executes a scenario and returns the result.
//
// Each run starts from an empty device: an in-memory KV, a fresh account
// service seeded from the scenario setup and a fake clock at testutil.Epoch.
// Remote calls are tried once. The returned error is reserved for scenarios
// that cannot run at all; step and assertion failures land in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	res, errs := catalog.Load(scenario.Catalog)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load catalog: %w", errors.Join(errs...))
	}

	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mem := testutil.NewMemoryRemote()
	for _, acct := range scenario.Setup.Accounts {
		mem.Seed(content.Authenticated(acct.User), accountSnapshot(acct, clock.Now()))
	}
	var remote tracker.Remote
	if !scenario.NoRemote {
		remote = mem
	}

	policy := retry.None()
	policy.Logger = logger
	session, err := tracker.NewSession(ctx, testutil.NewMemoryKV(), remote,
		tracker.WithClock(clock.Now),
		tracker.WithLogger(logger),
		tracker.WithRetryPolicy(policy),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	opts := []engine.Option{engine.WithLogger(logger), engine.WithClock(clock)}
	if scenario.Countdown > 0 {
		opts = append(opts, engine.WithCountdown(scenario.Countdown))
	}

	h := &Harness{
		catalog: res.Catalog,
		engine:  engine.New(res.Catalog, session, opts...),
		remote:  mem,
		clock:   clock,
		result:  NewResult(),
	}
	defer h.closePlayer()

	if h.states, err = h.engine.States(ctx); err != nil {
		return nil, fmt.Errorf("failed to read initial state: %w", err)
	}

	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Do, err)
		}
	}
	h.closePlayer()

	for _, msg := range EvaluateAssertions(ctx, h.result, scenario.Assertions, h.engine) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func accountSnapshot(acct Account, at time.Time) content.Snapshot {
	id := content.Authenticated(acct.User)
	snap := content.NewSnapshot()
	for _, node := range acct.Completions {
		snap.Complete(id.String(), node, at)
	}
	for routine, index := range acct.Positions {
		snap.SetPosition(content.RoutinePosition{RoutineID: routine, Position: index, UpdatedAt: at})
	}
	return snap
}

// execute runs one step and records its trace events.
func (h *Harness) execute(ctx context.Context, index int, step Step) error {
	h.result.add(TraceEvent{Type: EventStep, Op: step.Do, ID: stepTarget(step)})

	stepErr, err := h.apply(ctx, step)
	if err != nil {
		return err
	}
	if h.player != nil {
		h.player.Flush()
	}

	switch {
	case stepErr != nil:
		kind := errorKind(stepErr)
		h.result.add(TraceEvent{Type: EventError, Op: step.Do, Kind: kind})
		if step.Error != kind {
			h.result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error (%s): %v", index, step.Do, kind, stepErr))
		}
	case step.Error != "":
		h.result.AddError(fmt.Sprintf("steps[%d] %s: expected %s error, got none", index, step.Do, step.Error))
	}

	return h.recordStateChanges(ctx)
}

// apply performs the step. stepErr is the error of the operation under
// test; err means the scenario itself is broken.
func (h *Harness) apply(ctx context.Context, step Step) (stepErr, err error) {
	e := h.engine
	switch step.Do {
	case DoComplete:
		_, stepErr = e.RecordCompletion(ctx, step.Node)
	case DoPosition:
		stepErr = e.UpdatePosition(ctx, step.Routine, step.Index)
	case DoAutoplay:
		stepErr = e.SetAutoplay(*step.Enabled)
	case DoSignIn:
		_, stepErr = e.ReconcileOnSignIn(ctx, step.User)
	case DoSignOut:
		stepErr = e.SignOut()
	case DoRetry:
		_, stepErr = e.RetryPending(ctx)
	case DoRemoteFail:
		n := step.Count
		if n <= 0 {
			n = -1
		}
		h.remote.Fail(step.Op, n, nil)
	case DoRemoteHeal:
		h.remote.Heal()
	case DoAdvance:
		h.clock.Advance(time.Duration(step.Seconds) * time.Second)
	case DoOpen:
		return h.open(ctx, step)
	case DoClose:
		h.closePlayer()
	default:
		return nil, h.input(step)
	}
	return stepErr, nil
}

func (h *Harness) open(ctx context.Context, step Step) (stepErr, err error) {
	routineID := content.NormalizeID(step.Routine)
	if h.player == nil || h.player.Status().RoutineID != routineID {
		h.closePlayer()
		p, perr := h.engine.NewPlayer(ctx, routineID, h.onPlayerChange)
		if perr != nil {
			return perr, nil
		}
		h.player = p
	}
	h.player.Open(step.Index)
	return nil, nil
}

// input forwards a player step to the open player.
func (h *Harness) input(step Step) error {
	p := h.player
	if p == nil {
		return fmt.Errorf("no open player")
	}
	switch step.Do {
	case DoNext:
		p.GoNext()
	case DoPrevious:
		p.GoPrevious()
	case DoJump:
		p.JumpTo(step.Index)
	case DoVideoEnded:
		p.VideoEnded()
	case DoCancel:
		p.Cancel()
	case DoKey:
		p.KeyInput()
	case DoPause:
		p.Pause()
	case DoResume:
		p.Resume()
	case DoPlayerAutoplay:
		p.SetAutoplay(*step.Enabled)
	default:
		return fmt.Errorf("unknown step %q", step.Do)
	}
	return nil
}

func (h *Harness) onPlayerChange(s playback.Status) {
	h.result.add(TraceEvent{
		Type: EventPlayer,
		ID:   s.RoutineID,
		Player: &PlayerEvent{
			State:      s.State.String(),
			Index:      s.Index,
			Countdown:  s.Countdown,
			Percentage: s.Percentage,
		},
	})
}

func (h *Harness) closePlayer() {
	if h.player != nil {
		h.player.Close()
		h.player = nil
	}
}

// recordStateChanges appends an unlocked or locked event for every node
// whose state differs from the previous step.
func (h *Harness) recordStateChanges(ctx context.Context) error {
	after, err := h.engine.States(ctx)
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	for _, id := range h.catalog.IDs() {
		switch {
		case after[id] && !h.states[id]:
			h.result.add(TraceEvent{Type: EventUnlocked, ID: id})
		case !after[id] && h.states[id]:
			h.result.add(TraceEvent{Type: EventLocked, ID: id})
		}
	}
	h.states = after
	return nil
}

func stepTarget(s Step) string {
	switch {
	case s.Node != "":
		return s.Node
	case s.Routine != "":
		return s.Routine
	case s.User != "":
		return s.User
	default:
		return s.Op
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, engine.ErrUnknownNode):
		return KindUnknownNode
	case errors.Is(err, engine.ErrPositionOutOfRange):
		return KindPositionRange
	case errors.Is(err, engine.ErrNotCompletable):
		return KindNotCompletable
	case errors.Is(err, tracker.ErrNoRemote):
		return KindNoRemote
	case tracker.IsRemoteSyncError(err):
		return KindRemoteSync
	case tracker.IsPersistenceWriteError(err):
		return KindPersistenceWrite
	default:
		return KindOther
	}
}
