package tracker

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/hackpath/internal/content"
)

// Session is the Tracker the rest of the program holds. It delegates to the
// active backend and moves anonymous progress into an account on sign-in.
type Session struct {
	kv         KV
	remote     Remote
	deviceKey  string
	local      *LocalTracker
	reconciler *Reconciler
	opts       options

	group singleflight.Group

	mu     sync.Mutex
	active Tracker
	done   map[string]Outcome // finished transitions
	stale  bool               // remote snapshot could not be fetched
}

var _ Tracker = (*Session)(nil)

// NewSession opens the device's progress. When the KV remembers a signed-in
// user and a remote is configured, the session resumes as that user.
// remote may be nil for a device-only session.
func NewSession(ctx context.Context, kv KV, remote Remote, opts ...Option) (*Session, error) {
	o := buildOptions(opts)
	deviceKey, err := EnsureDeviceKey(kv)
	if err != nil {
		return nil, fmt.Errorf("device key: %w", err)
	}
	local, err := NewLocalTracker(kv, deviceKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("load anonymous progress: %w", err)
	}
	s := &Session{
		kv:        kv,
		remote:    remote,
		deviceKey: deviceKey,
		local:     local,
		opts:      o,
		active:    local,
		done:      make(map[string]Outcome),
	}
	if remote != nil {
		s.reconciler = NewReconciler(remote, opts...)
	}

	var user string
	ok, err := getJSON(kv, keySessionUser, &user)
	if err != nil {
		return nil, err
	}
	if ok && content.NormalizeID(user) != "" && remote != nil {
		if _, err := s.SignIn(ctx, user); err != nil {
			o.logger.Warn("resumed session is not fully synced", "user", user, "error", err)
		}
	}
	return s, nil
}

// DeviceKey returns the device key of the anonymous identity.
func (s *Session) DeviceKey() string {
	return s.deviceKey
}

// Local returns the device-local backend.
func (s *Session) Local() *LocalTracker {
	return s.local
}

func (s *Session) current() Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Identity implements Tracker.
func (s *Session) Identity() content.Identity {
	return s.current().Identity()
}

// Snapshot implements Tracker.
func (s *Session) Snapshot(ctx context.Context) (content.Snapshot, error) {
	return s.current().Snapshot(ctx)
}

// Completions implements Tracker.
func (s *Session) Completions(ctx context.Context) (content.Set, error) {
	return s.current().Completions(ctx)
}

// RecordCompletion implements Tracker.
func (s *Session) RecordCompletion(ctx context.Context, nodeID string) (content.CompletionRecord, error) {
	return s.current().RecordCompletion(ctx, nodeID)
}

// Position implements Tracker.
func (s *Session) Position(ctx context.Context, routineID string) (content.RoutinePosition, bool, error) {
	return s.current().Position(ctx, routineID)
}

// UpdatePosition implements Tracker.
func (s *Session) UpdatePosition(ctx context.Context, pos content.RoutinePosition) error {
	return s.current().UpdatePosition(ctx, pos)
}

// Autoplay returns the device autoplay preference.
func (s *Session) Autoplay() (bool, error) {
	return Autoplay(s.kv)
}

// SetAutoplay stores the device autoplay preference.
func (s *Session) SetAutoplay(enabled bool) error {
	return SetAutoplay(s.kv, enabled)
}

// Pending reports whether anonymous progress still waits to be merged into
// the signed-in account.
func (s *Session) Pending() bool {
	if s.Identity().IsAnonymous() {
		return false
	}
	snap, _ := s.local.Snapshot(context.Background())
	return !snap.IsEmpty()
}

// SavedLocally reports whether some progress currently lives only on this
// device.
func (s *Session) SavedLocally() bool {
	return s.Identity().IsAnonymous() || s.Pending()
}

// Stale reports whether the account snapshot could not be fetched at the
// last sign-in or retry.
func (s *Session) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

func transitionKey(from, to content.Identity) string {
	return from.String() + "->" + to.String()
}

// SignIn switches the session to userID and merges the device's anonymous
// progress into the account. Duplicate calls for the same transition share
// one reconciliation; a transition that already succeeded returns its
// cached Outcome.
//
// The session is authenticated after SignIn returns, even on error: the
// account view is then seeded optimistically and the anonymous entry stays
// in the KV until RetryPending succeeds.
func (s *Session) SignIn(ctx context.Context, userID string) (Outcome, error) {
	if s.remote == nil {
		return Outcome{}, ErrNoRemote
	}
	to := content.Authenticated(userID)
	if to.IsZero() {
		return Outcome{}, fmt.Errorf("sign in: empty user id")
	}
	key := transitionKey(s.local.Identity(), to)

	s.mu.Lock()
	if out, ok := s.done[key]; ok && s.active.Identity() == to {
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.reconcile(ctx, to, key)
	})
	out, _ := v.(Outcome)
	out.Shared = shared
	return out, err
}

// RetryPending re-runs a reconciliation that did not complete. It is a
// no-op when nothing is pending.
func (s *Session) RetryPending(ctx context.Context) (Outcome, error) {
	if !s.Pending() {
		return Outcome{}, nil
	}
	to := s.Identity()
	key := transitionKey(s.local.Identity(), to)
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.reconcile(ctx, to, key)
	})
	out, _ := v.(Outcome)
	out.Shared = shared
	return out, err
}

// SignOut returns to the device's anonymous identity.
func (s *Session) SignOut() error {
	s.mu.Lock()
	prev := s.active.Identity()
	s.active = s.local
	s.done = make(map[string]Outcome)
	s.stale = false
	s.mu.Unlock()

	if err := s.kv.Remove(keySessionUser); err != nil {
		return &PersistenceWriteError{Key: keySessionUser, Err: err}
	}
	s.opts.logger.Info("signed out", "from", prev.String(), "to", s.local.Identity().String())
	return nil
}

func (s *Session) reconcile(ctx context.Context, to content.Identity, key string) (Outcome, error) {
	var remoteSnap content.Snapshot
	fetchErr := s.opts.policy.Do(ctx, "fetch_snapshot", func(ctx context.Context) error {
		var err error
		remoteSnap, err = FetchSnapshot(ctx, s.remote, to)
		return err
	})
	if fetchErr != nil {
		anon, _ := s.local.Snapshot(ctx)
		seed := anon.Rekey(to.String())
		fp, _ := content.Fingerprint(seed)
		s.switchTo(to, seed, true)
		s.opts.logger.Error("account snapshot unavailable; continuing with local progress",
			"to", to.String(),
			"error", fetchErr,
		)
		out := Outcome{
			From:        s.local.Identity(),
			Identity:    to,
			Merged:      seed,
			Fingerprint: fp,
		}
		return out, &RemoteSyncError{Op: "fetch_snapshot", Identity: to.String(), Err: fetchErr}
	}

	out, err := s.reconciler.Reconcile(ctx, s.local, to, remoteSnap)
	if out.Identity.IsZero() {
		// Reconcile failed before merging anything.
		return out, err
	}
	s.switchTo(to, out.Merged, false)
	if err != nil {
		return out, err
	}

	s.mu.Lock()
	s.done[key] = out
	s.mu.Unlock()
	s.opts.logger.Info("signed in",
		"to", to.String(),
		"completions", len(out.Merged.Completions),
		"cleared", out.Cleared,
		"fingerprint", out.Fingerprint,
	)
	return out, nil
}

// switchTo makes to the active identity seeded with snap. An existing
// tracker for the same identity absorbs snap instead of being replaced, so
// writes made meanwhile are kept.
func (s *Session) switchTo(to content.Identity, snap content.Snapshot, stale bool) {
	s.mu.Lock()
	if rt, ok := s.active.(*RemoteTracker); ok && rt.Identity() == to {
		rt.absorb(snap)
	} else {
		s.active = NewRemoteTracker(to, s.remote, snap, s.optionList()...)
	}
	s.stale = stale
	s.mu.Unlock()

	if err := setJSON(s.kv, keySessionUser, to.Key); err != nil {
		s.opts.logger.Warn("could not remember signed-in user", "user", to.Key, "error", err)
	}
}

func (s *Session) optionList() []Option {
	o := s.opts
	return []Option{WithClock(o.now), WithLogger(o.logger), WithRetryPolicy(o.policy)}
}
