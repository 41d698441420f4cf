package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hackpath/internal/content"
	"github.com/roach88/hackpath/internal/testutil"
)

func newAnon(t *testing.T, clock *testutil.FakeClock, kv *testutil.MemoryKV, nodes ...string) *LocalTracker {
	t.Helper()
	lt, err := NewLocalTracker(kv, "dev-1", testOptions(clock)...)
	require.NoError(t, err)
	for _, id := range nodes {
		_, err := lt.RecordCompletion(context.Background(), id)
		require.NoError(t, err)
	}
	return lt
}

func TestReconcile_SignUpMigratesAnonymousProgress(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	kv := testutil.NewMemoryKV()
	remote := testutil.NewMemoryRemote()
	user := content.Authenticated("u1")

	lt := newAnon(t, clock, kv, "hackA", "hackB")

	out, err := NewReconciler(remote, testOptions(clock)...).Reconcile(ctx, lt, user, content.NewSnapshot())
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.True(t, out.Cleared)
	assert.Equal(t, []string{"hackA", "hackB"}, out.Merged.CompletedSet().Sorted())
	assert.Equal(t, []string{"hackA", "hackB"}, remote.Snapshot(user).CompletedSet().Sorted())
	for _, rec := range out.Merged.Completions {
		assert.Equal(t, "user:u1", rec.SubjectID)
	}
	assert.False(t, kv.Has(AnonymousKey("dev-1")))
}

func TestReconcile_UnionKeepsEarliestCompletion(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	remote := testutil.NewMemoryRemote()
	user := content.Authenticated("u1")

	existing := content.NewSnapshot()
	existing.Complete(user.String(), "hackB", testutil.Epoch.Add(-time.Hour))
	existing.Complete(user.String(), "hackC", testutil.Epoch.Add(-time.Hour))
	existing.SetPosition(content.RoutinePosition{RoutineID: "r1", Position: 1, UpdatedAt: testutil.Epoch.Add(-time.Hour)})
	remote.Seed(user, existing)

	lt := newAnon(t, clock, testutil.NewMemoryKV(), "hackA", "hackB")
	require.NoError(t, lt.UpdatePosition(ctx, content.RoutinePosition{RoutineID: "r1", Position: 3}))

	out, err := NewReconciler(remote, testOptions(clock)...).Reconcile(ctx, lt, user, remote.Snapshot(user))
	require.NoError(t, err)

	assert.Equal(t, []string{"hackA", "hackB", "hackC"}, out.Merged.CompletedSet().Sorted())
	assert.Equal(t, testutil.Epoch.Add(-time.Hour), out.Merged.Completions["hackB"].CompletedAt)
	assert.Equal(t, 3, out.Merged.Positions["r1"].Position)
	assert.Equal(t, 3, remote.Snapshot(user).Positions["r1"].Position)
}

func TestReconcile_FailureKeepsAnonymousSnapshot(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	kv := testutil.NewMemoryKV()
	remote := testutil.NewMemoryRemote()
	remote.Fail(testutil.OpUpsertCompletion, -1, nil)
	user := content.Authenticated("u1")

	lt := newAnon(t, clock, kv, "hackA", "hackB")

	out, err := NewReconciler(remote, testOptions(clock)...).Reconcile(ctx, lt, user, content.NewSnapshot())
	require.Error(t, err)
	assert.True(t, IsRemoteSyncError(err))
	assert.False(t, out.Success)
	assert.False(t, out.Cleared)
	assert.Equal(t, 2, remote.Calls(testutil.OpUpsertCompletion), "one bounded retry")
	assert.True(t, kv.Has(AnonymousKey("dev-1")))

	snap, err := lt.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hackA", "hackB"}, snap.CompletedSet().Sorted())
}

func TestReconcile_RetryOnlySendsRemainingWrites(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	remote := testutil.NewMemoryRemote()
	user := content.Authenticated("u1")
	lt := newAnon(t, clock, testutil.NewMemoryKV(), "hackA", "hackB", "hackC")

	remote.Fail(testutil.OpUpsertCompletion, 1, nil)
	out, err := NewReconciler(remote, testOptions(clock)...).Reconcile(ctx, lt, user, content.NewSnapshot())
	require.NoError(t, err)
	assert.True(t, out.Success)

	// One failed call plus three confirmed writes.
	assert.Equal(t, 4, remote.Calls(testutil.OpUpsertCompletion))
}

func TestReconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	user := content.Authenticated("u1")

	existing := content.NewSnapshot()
	existing.Complete(user.String(), "hackC", testutil.Epoch)

	// reconcile(A, B)
	remote1 := testutil.NewMemoryRemote()
	remote1.Seed(user, existing)
	lt1 := newAnon(t, clock, testutil.NewMemoryKV(), "hackA", "hackB")
	once, err := NewReconciler(remote1, testOptions(clock)...).Reconcile(ctx, lt1, user, existing)
	require.NoError(t, err)

	// reconcile(reconcile(A, B), B)
	kv2 := testutil.NewMemoryKV()
	lt2, err := NewLocalTracker(kv2, "dev-1", testOptions(clock)...)
	require.NoError(t, err)
	require.NoError(t, setJSON(kv2, lt2.Key(), once.Merged))
	require.NoError(t, lt2.Reload())

	remote2 := testutil.NewMemoryRemote()
	remote2.Seed(user, existing)
	twice, err := NewReconciler(remote2, testOptions(clock)...).Reconcile(ctx, lt2, user, existing)
	require.NoError(t, err)

	assert.Equal(t, once.Fingerprint, twice.Fingerprint)
}

func TestDiff_SkipsRecordsTheRemoteHolds(t *testing.T) {
	merged := content.NewSnapshot()
	merged.Complete("user:u1", "a", testutil.Epoch)
	merged.Complete("user:u1", "b", testutil.Epoch)
	merged.SetPosition(content.RoutinePosition{RoutineID: "r1", Position: 2, UpdatedAt: testutil.Epoch})

	remote := merged.Clone()
	delete(remote.Completions, "b")

	completions, positions := diff(merged, remote)
	require.Len(t, completions, 1)
	assert.Equal(t, "b", completions[0].NodeID)
	assert.Empty(t, positions)
}
