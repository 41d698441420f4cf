package tracker

import (
	"context"
	"sync"

	"github.com/roach88/hackpath/internal/content"
)

// LocalTracker keeps anonymous progress on the device.
type LocalTracker struct {
	mu       sync.Mutex
	kv       KV
	identity content.Identity
	key      string
	snap     content.Snapshot
	opts     options
}

var _ Tracker = (*LocalTracker)(nil)

// NewLocalTracker loads the device's anonymous snapshot from kv.
func NewLocalTracker(kv KV, deviceKey string, opts ...Option) (*LocalTracker, error) {
	id := content.Anonymous(deviceKey)
	key := AnonymousKey(id.Key)
	snap, err := loadSnapshot(kv, key)
	if err != nil {
		return nil, err
	}
	return &LocalTracker{
		kv:       kv,
		identity: id,
		key:      key,
		snap:     snap,
		opts:     buildOptions(opts),
	}, nil
}

// Identity implements Tracker.
func (t *LocalTracker) Identity() content.Identity {
	return t.identity
}

// Key returns the KV key holding the snapshot.
func (t *LocalTracker) Key() string {
	return t.key
}

// Snapshot implements Tracker.
func (t *LocalTracker) Snapshot(context.Context) (content.Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap.Clone(), nil
}

// Completions implements Tracker.
func (t *LocalTracker) Completions(context.Context) (content.Set, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap.CompletedSet(), nil
}

// RecordCompletion implements Tracker. The KV write is synchronous and
// happens under the lock so blobs land in the order updates were made.
func (t *LocalTracker) RecordCompletion(_ context.Context, nodeID string) (content.CompletionRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.snap.Complete(t.identity.String(), nodeID, t.opts.now())
	if err := t.persistLocked(); err != nil {
		t.opts.logger.Warn("local progress write failed; keeping in memory",
			"node", rec.NodeID,
			"identity", t.identity.String(),
			"error", err,
		)
		return rec, err
	}
	return rec, nil
}

// Position implements Tracker.
func (t *LocalTracker) Position(_ context.Context, routineID string) (content.RoutinePosition, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pos, ok := t.snap.Positions[content.NormalizeID(routineID)]
	return pos, ok, nil
}

// UpdatePosition implements Tracker.
func (t *LocalTracker) UpdatePosition(_ context.Context, pos content.RoutinePosition) error {
	if pos.UpdatedAt.IsZero() {
		pos.UpdatedAt = t.opts.now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.snap.SetPosition(pos) {
		return nil
	}
	if err := t.persistLocked(); err != nil {
		t.opts.logger.Warn("local position write failed; keeping in memory",
			"routine", pos.RoutineID,
			"position", pos.Position,
			"error", err,
		)
		return err
	}
	return nil
}

// Reload replaces the in-memory snapshot with the stored one.
func (t *LocalTracker) Reload() error {
	snap, err := loadSnapshot(t.kv, t.key)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.snap = snap
	t.mu.Unlock()
	return nil
}

func (t *LocalTracker) persistLocked() error {
	return setJSON(t.kv, t.key, t.snap)
}

// ClearIfUnchanged clears the stored snapshot only when its fingerprint
// still equals fingerprint. A completion recorded while a migration was in
// flight keeps the entry so the next reconciliation picks it up.
func (t *LocalTracker) ClearIfUnchanged(fingerprint string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, err := content.Fingerprint(t.snap)
	if err != nil {
		return false, err
	}
	if current != fingerprint {
		return false, nil
	}
	if err := t.kv.Remove(t.key); err != nil {
		return false, &PersistenceWriteError{Key: t.key, Err: err}
	}
	t.snap = content.NewSnapshot()
	return true, nil
}
