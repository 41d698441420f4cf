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

func TestEnsureDeviceKey_StableAcrossCalls(t *testing.T) {
	kv := testutil.NewMemoryKV()

	first, err := EnsureDeviceKey(kv)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := EnsureDeviceKey(kv)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAutoplay_DefaultsOn(t *testing.T) {
	kv := testutil.NewMemoryKV()

	enabled, err := Autoplay(kv)
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, SetAutoplay(kv, false))
	enabled, err = Autoplay(kv)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestLocalTracker_RecordCompletionPersists(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	kv := testutil.NewMemoryKV()

	lt, err := NewLocalTracker(kv, "dev-1", testOptions(clock)...)
	require.NoError(t, err)
	assert.Equal(t, "anon:dev-1", lt.Identity().String())

	rec, err := lt.RecordCompletion(ctx, " hackA ")
	require.NoError(t, err)
	assert.Equal(t, "hackA", rec.NodeID)
	assert.Equal(t, "anon:dev-1", rec.SubjectID)
	assert.Equal(t, 1, rec.ViewCount)
	assert.True(t, kv.Has(AnonymousKey("dev-1")))

	// A second tracker over the same KV sees the record.
	reopened, err := NewLocalTracker(kv, "dev-1", testOptions(clock)...)
	require.NoError(t, err)
	done, err := reopened.Completions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hackA"}, done.Sorted())
}

func TestLocalTracker_RepeatCompletionBumpsViewCount(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	lt, err := NewLocalTracker(testutil.NewMemoryKV(), "dev-1", testOptions(clock)...)
	require.NoError(t, err)

	first, err := lt.RecordCompletion(ctx, "hackA")
	require.NoError(t, err)
	clock.Advance(time.Hour)
	second, err := lt.RecordCompletion(ctx, "hackA")
	require.NoError(t, err)

	assert.Equal(t, 2, second.ViewCount)
	assert.Equal(t, first.CompletedAt, second.CompletedAt)
}

func TestLocalTracker_WriteFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	kv := testutil.NewMemoryKV()
	lt, err := NewLocalTracker(kv, "dev-1", testOptions(clock)...)
	require.NoError(t, err)

	kv.FailWrites(testutil.ErrInjected)
	rec, err := lt.RecordCompletion(ctx, "hackA")

	require.Error(t, err)
	assert.True(t, IsPersistenceWriteError(err))
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.Equal(t, "hackA", rec.NodeID)

	done, err := lt.Completions(ctx)
	require.NoError(t, err)
	assert.True(t, done.Has("hackA"), "memory stays authoritative")
	assert.False(t, kv.Has(AnonymousKey("dev-1")))
}

func TestLocalTracker_UpdatePositionLastWriteWins(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	lt, err := NewLocalTracker(testutil.NewMemoryKV(), "dev-1", testOptions(clock)...)
	require.NoError(t, err)

	newer := content.RoutinePosition{RoutineID: "r1", Position: 3, Progress: 60, UpdatedAt: testutil.Epoch.Add(time.Minute)}
	older := content.RoutinePosition{RoutineID: "r1", Position: 1, Progress: 20, UpdatedAt: testutil.Epoch}

	require.NoError(t, lt.UpdatePosition(ctx, newer))
	require.NoError(t, lt.UpdatePosition(ctx, older))

	got, ok, err := lt.Position(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got.Position)
	assert.Equal(t, 60, got.Progress)
}

func TestLocalTracker_UpdatePositionStampsZeroTime(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	lt, err := NewLocalTracker(testutil.NewMemoryKV(), "dev-1", testOptions(clock)...)
	require.NoError(t, err)

	require.NoError(t, lt.UpdatePosition(ctx, content.RoutinePosition{RoutineID: "r1", Position: 2}))

	got, ok, err := lt.Position(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testutil.Epoch, got.UpdatedAt)
}

func TestLocalTracker_ClearIfUnchanged(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Time{})
	kv := testutil.NewMemoryKV()
	lt, err := NewLocalTracker(kv, "dev-1", testOptions(clock)...)
	require.NoError(t, err)

	_, err = lt.RecordCompletion(ctx, "hackA")
	require.NoError(t, err)
	snap, err := lt.Snapshot(ctx)
	require.NoError(t, err)
	fp, err := content.Fingerprint(snap)
	require.NoError(t, err)

	_, err = lt.RecordCompletion(ctx, "hackB")
	require.NoError(t, err)

	cleared, err := lt.ClearIfUnchanged(fp)
	require.NoError(t, err)
	assert.False(t, cleared, "a newer completion must survive")
	assert.True(t, kv.Has(lt.Key()))

	snap, err = lt.Snapshot(ctx)
	require.NoError(t, err)
	fp, err = content.Fingerprint(snap)
	require.NoError(t, err)
	cleared, err = lt.ClearIfUnchanged(fp)
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.False(t, kv.Has(lt.Key()))
}
