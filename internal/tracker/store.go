package tracker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/hackpath/internal/content"
)

// KV is the device-scoped durable key-value store. Calls are synchronous.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
}

// Remote is the request/response progress service.
type Remote interface {
	FetchCompletionSet(ctx context.Context, id content.Identity) ([]content.CompletionRecord, error)
	UpsertCompletion(ctx context.Context, id content.Identity, rec content.CompletionRecord) error
	FetchRoutinePosition(ctx context.Context, id content.Identity, routineID string) (content.RoutinePosition, bool, error)
	FetchRoutinePositions(ctx context.Context, id content.Identity) ([]content.RoutinePosition, error)
	UpsertRoutinePosition(ctx context.Context, id content.Identity, pos content.RoutinePosition) error
}

// KV keys. Values are JSON.
const (
	keyDeviceKey   = "device/key"
	keySessionUser = "session/user"
	keyAutoplay    = "pref/autoplay"
)

// AnonymousKey returns the KV key of a device's anonymous snapshot.
func AnonymousKey(deviceKey string) string {
	return "progress/anon/" + deviceKey
}

// EnsureDeviceKey returns the device key, creating a UUIDv7 on first use.
func EnsureDeviceKey(kv KV) (string, error) {
	var key string
	ok, err := getJSON(kv, keyDeviceKey, &key)
	if err != nil {
		return "", err
	}
	if ok && content.NormalizeID(key) != "" {
		return content.NormalizeID(key), nil
	}
	key = uuid.Must(uuid.NewV7()).String()
	if err := setJSON(kv, keyDeviceKey, key); err != nil {
		return "", err
	}
	return key, nil
}

// Autoplay returns the device autoplay preference (default on).
func Autoplay(kv KV) (bool, error) {
	enabled := true
	if _, err := getJSON(kv, keyAutoplay, &enabled); err != nil {
		return true, err
	}
	return enabled, nil
}

// SetAutoplay stores the device autoplay preference.
func SetAutoplay(kv KV, enabled bool) error {
	return setJSON(kv, keyAutoplay, enabled)
}

// FetchSnapshot reads everything the remote holds for id.
func FetchSnapshot(ctx context.Context, r Remote, id content.Identity) (content.Snapshot, error) {
	snap := content.NewSnapshot()
	recs, err := r.FetchCompletionSet(ctx, id)
	if err != nil {
		return snap, fmt.Errorf("fetch completions: %w", err)
	}
	for _, rec := range recs {
		rec.NodeID = content.NormalizeID(rec.NodeID)
		snap.Completions[rec.NodeID] = rec
	}
	positions, err := r.FetchRoutinePositions(ctx, id)
	if err != nil {
		return snap, fmt.Errorf("fetch positions: %w", err)
	}
	for _, pos := range positions {
		snap.SetPosition(pos)
	}
	return snap, nil
}

func loadSnapshot(kv KV, key string) (content.Snapshot, error) {
	snap := content.NewSnapshot()
	if _, err := getJSON(kv, key, &snap); err != nil {
		return content.NewSnapshot(), err
	}
	if snap.Completions == nil {
		snap.Completions = make(map[string]content.CompletionRecord)
	}
	if snap.Positions == nil {
		snap.Positions = make(map[string]content.RoutinePosition)
	}
	return snap, nil
}

func getJSON(kv KV, key string, v any) (bool, error) {
	data, ok, err := kv.Get(key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func setJSON(kv KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(key, data); err != nil {
		return &PersistenceWriteError{Key: key, Err: err}
	}
	return nil
}
