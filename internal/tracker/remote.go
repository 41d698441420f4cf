package tracker

import (
	"context"
	"sync"

	"github.com/roach88/hackpath/internal/content"
)

// RemoteTracker keeps account progress: optimistic in memory, then written
// to the remote service with retry.
type RemoteTracker struct {
	mu       sync.Mutex
	remote   Remote
	identity content.Identity
	snap     content.Snapshot
	opts     options

	// routineMu serializes position writes per routine.
	routineMu map[string]*sync.Mutex
}

var _ Tracker = (*RemoteTracker)(nil)

// NewRemoteTracker returns a tracker seeded with snap (no fetch).
func NewRemoteTracker(id content.Identity, remote Remote, seed content.Snapshot, opts ...Option) *RemoteTracker {
	return &RemoteTracker{
		remote:    remote,
		identity:  id,
		snap:      seed.Clone(),
		opts:      buildOptions(opts),
		routineMu: make(map[string]*sync.Mutex),
	}
}

// Identity implements Tracker.
func (t *RemoteTracker) Identity() content.Identity {
	return t.identity
}

// Snapshot implements Tracker.
func (t *RemoteTracker) Snapshot(context.Context) (content.Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap.Clone(), nil
}

// Completions implements Tracker.
func (t *RemoteTracker) Completions(context.Context) (content.Set, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap.CompletedSet(), nil
}

// Refresh merges the remote state into memory. Local optimistic updates
// survive because the merge never drops a completion.
func (t *RemoteTracker) Refresh(ctx context.Context) error {
	var fetched content.Snapshot
	err := t.opts.policy.Do(ctx, "fetch_snapshot", func(ctx context.Context) error {
		var err error
		fetched, err = FetchSnapshot(ctx, t.remote, t.identity)
		return err
	})
	if err != nil {
		return &RemoteSyncError{Op: "fetch_snapshot", Identity: t.identity.String(), Err: err}
	}

	t.mu.Lock()
	t.snap = content.Merge(t.snap, fetched)
	t.mu.Unlock()
	return nil
}

// RecordCompletion implements Tracker.
func (t *RemoteTracker) RecordCompletion(ctx context.Context, nodeID string) (content.CompletionRecord, error) {
	t.mu.Lock()
	rec := t.snap.Complete(t.identity.String(), nodeID, t.opts.now())
	t.mu.Unlock()

	err := t.opts.policy.Do(ctx, "upsert_completion", func(ctx context.Context) error {
		return t.remote.UpsertCompletion(ctx, t.identity, rec)
	})
	if err != nil {
		t.opts.logger.Error("remote completion write failed",
			"node", rec.NodeID,
			"identity", t.identity.String(),
			"error", err,
		)
		return rec, &RemoteSyncError{Op: "upsert_completion", Identity: t.identity.String(), Err: err}
	}
	return rec, nil
}

// Position implements Tracker.
func (t *RemoteTracker) Position(_ context.Context, routineID string) (content.RoutinePosition, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pos, ok := t.snap.Positions[content.NormalizeID(routineID)]
	return pos, ok, nil
}

// UpdatePosition implements Tracker. Writes for one routine are sent one at
// a time; a write that lost the timestamp race in memory is not sent.
func (t *RemoteTracker) UpdatePosition(ctx context.Context, pos content.RoutinePosition) error {
	if pos.UpdatedAt.IsZero() {
		pos.UpdatedAt = t.opts.now()
	}
	pos.RoutineID = content.NormalizeID(pos.RoutineID)

	t.mu.Lock()
	applied := t.snap.SetPosition(pos)
	rmu := t.routineLockLocked(pos.RoutineID)
	t.mu.Unlock()
	if !applied {
		return nil
	}

	rmu.Lock()
	defer rmu.Unlock()
	err := t.opts.policy.Do(ctx, "upsert_position", func(ctx context.Context) error {
		return t.remote.UpsertRoutinePosition(ctx, t.identity, pos)
	})
	if err != nil {
		t.opts.logger.Error("remote position write failed",
			"routine", pos.RoutineID,
			"position", pos.Position,
			"identity", t.identity.String(),
			"error", err,
		)
		return &RemoteSyncError{Op: "upsert_position", Identity: t.identity.String(), Err: err}
	}
	return nil
}

func (t *RemoteTracker) routineLockLocked(routineID string) *sync.Mutex {
	m, ok := t.routineMu[routineID]
	if !ok {
		m = &sync.Mutex{}
		t.routineMu[routineID] = m
	}
	return m
}

// absorb merges s into memory without touching the remote.
func (t *RemoteTracker) absorb(s content.Snapshot) {
	t.mu.Lock()
	t.snap = content.Merge(t.snap, s.Rekey(t.identity.String())).Rekey(t.identity.String())
	t.mu.Unlock()
}
