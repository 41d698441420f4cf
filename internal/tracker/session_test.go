package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hackpath/internal/content"
	"github.com/roach88/hackpath/internal/testutil"
)

func newSession(t *testing.T, clock *testutil.FakeClock, kv KV, remote Remote) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), kv, remote, testOptions(clock)...)
	require.NoError(t, err)
	return s
}

func TestSession_StartsAnonymous(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	s := newSession(t, clock, testutil.NewMemoryKV(), testutil.NewMemoryRemote())

	assert.True(t, s.Identity().IsAnonymous())
	assert.Equal(t, s.DeviceKey(), s.Identity().Key)
	assert.True(t, s.SavedLocally())
	assert.False(t, s.Pending())
}

func TestSession_SignInWithoutRemote(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	s := newSession(t, clock, testutil.NewMemoryKV(), nil)

	_, err := s.SignIn(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNoRemote)
}

func TestSession_SignInMigratesAndSwitches(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	kv := testutil.NewMemoryKV()
	remote := testutil.NewMemoryRemote()
	s := newSession(t, clock, kv, remote)

	_, err := s.RecordCompletion(ctx, "hackA")
	require.NoError(t, err)
	_, err = s.RecordCompletion(ctx, "hackB")
	require.NoError(t, err)

	out, err := s.SignIn(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.True(t, out.Cleared)
	assert.False(t, out.Shared)

	assert.Equal(t, content.Authenticated("u1"), s.Identity())
	assert.False(t, s.SavedLocally())
	assert.False(t, kv.Has(AnonymousKey(s.DeviceKey())))

	done, err := s.Completions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hackA", "hackB"}, done.Sorted())

	// New progress goes to the account.
	_, err = s.RecordCompletion(ctx, "hackC")
	require.NoError(t, err)
	assert.Contains(t, remote.Snapshot(content.Authenticated("u1")).Completions, "hackC")
}

func TestSession_FinishedTransitionNotRerun(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	remote := testutil.NewMemoryRemote()
	s := newSession(t, clock, testutil.NewMemoryKV(), remote)

	first, err := s.SignIn(ctx, "u1")
	require.NoError(t, err)
	second, err := s.SignIn(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, 1, remote.Calls(testutil.OpFetchCompletions))
}

func TestSession_ConcurrentDuplicateSignInMergesOnce(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	remote := testutil.NewMemoryRemote()
	s := newSession(t, clock, testutil.NewMemoryKV(), remote)
	_, err := s.RecordCompletion(ctx, "hackA")
	require.NoError(t, err)

	remote.Gate = make(chan struct{})
	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i], errs[i] = s.SignIn(ctx, "u1")
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(remote.Gate)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, remote.Calls(testutil.OpFetchCompletions))
	assert.Equal(t, 1, remote.Calls(testutil.OpUpsertCompletion))
	assert.Equal(t, outcomes[0].Fingerprint, outcomes[1].Fingerprint)
}

func TestSession_FailedSignInKeepsAnonymousAndRetries(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	kv := testutil.NewMemoryKV()
	remote := testutil.NewMemoryRemote()
	s := newSession(t, clock, kv, remote)
	_, err := s.RecordCompletion(ctx, "hackA")
	require.NoError(t, err)

	remote.Fail(testutil.OpUpsertCompletion, -1, nil)
	out, err := s.SignIn(ctx, "u1")
	require.Error(t, err)
	assert.True(t, IsRemoteSyncError(err))
	assert.False(t, out.Success)

	// Authenticated, seeded optimistically, anonymous entry retained.
	assert.Equal(t, content.Authenticated("u1"), s.Identity())
	assert.True(t, s.Pending())
	assert.True(t, s.SavedLocally())
	assert.True(t, kv.Has(AnonymousKey(s.DeviceKey())))
	done, err := s.Completions(ctx)
	require.NoError(t, err)
	assert.True(t, done.Has("hackA"))

	remote.Heal()
	out, err = s.RetryPending(ctx)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.True(t, out.Cleared)
	assert.False(t, s.Pending())
	assert.Contains(t, remote.Snapshot(content.Authenticated("u1")).Completions, "hackA")
}

func TestSession_FetchFailureMarksStale(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	remote := testutil.NewMemoryRemote()
	s := newSession(t, clock, testutil.NewMemoryKV(), remote)
	_, err := s.RecordCompletion(ctx, "hackA")
	require.NoError(t, err)

	remote.Fail(testutil.OpFetchCompletions, -1, nil)
	_, err = s.SignIn(ctx, "u1")
	require.Error(t, err)
	assert.True(t, s.Stale())
	assert.True(t, s.Pending())

	remote.Heal()
	_, err = s.RetryPending(ctx)
	require.NoError(t, err)
	assert.False(t, s.Stale())
	assert.False(t, s.Pending())
}

func TestSession_RetryPendingNoop(t *testing.T) {
	clock := testutil.NewFakeClock(time.Time{})
	remote := testutil.NewMemoryRemote()
	s := newSession(t, clock, testutil.NewMemoryKV(), remote)

	out, err := s.RetryPending(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, 0, remote.Calls(testutil.OpFetchCompletions))
}

func TestSession_ResumesSignedInUser(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	kv := testutil.NewMemoryKV()
	remote := testutil.NewMemoryRemote()

	s := newSession(t, clock, kv, remote)
	_, err := s.SignIn(ctx, "u1")
	require.NoError(t, err)
	_, err = s.RecordCompletion(ctx, "hackA")
	require.NoError(t, err)

	resumed := newSession(t, clock, kv, remote)
	assert.Equal(t, content.Authenticated("u1"), resumed.Identity())
	done, err := resumed.Completions(ctx)
	require.NoError(t, err)
	assert.True(t, done.Has("hackA"))
}

func TestSession_SignOutReturnsToDevice(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	kv := testutil.NewMemoryKV()
	remote := testutil.NewMemoryRemote()
	s := newSession(t, clock, kv, remote)

	_, err := s.SignIn(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, s.SignOut())

	assert.True(t, s.Identity().IsAnonymous())
	resumed := newSession(t, clock, kv, remote)
	assert.True(t, resumed.Identity().IsAnonymous())
}
