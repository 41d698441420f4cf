package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/hackpath/internal/content"
)

// Remote operation names used for failure injection and call counts.
const (
	OpFetchCompletions = "fetch_completions"
	OpUpsertCompletion = "upsert_completion"
	OpFetchPosition    = "fetch_position"
	OpFetchPositions   = "fetch_positions"
	OpUpsertPosition   = "upsert_position"
)

// MemoryRemote is an in-memory progress service with the same upsert rules
// as the SQL service: completions keep the earliest CompletedAt and highest
// ViewCount, positions ignore writes older than the stored UpdatedAt.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MemoryRemote struct {
	mu          sync.Mutex
	completions map[string]map[string]content.CompletionRecord
	positions   map[string]map[string]content.RoutinePosition
	fail        map[string]failure
	calls       map[string]int

	// Gate, when set, blocks every fetch until it is closed.
	Gate chan struct{}
}

type failure struct {
	err       error
	remaining int // < 0 means forever
}

// NewMemoryRemote creates an empty service.
func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{
		completions: make(map[string]map[string]content.CompletionRecord),
		positions:   make(map[string]map[string]content.RoutinePosition),
		fail:        make(map[string]failure),
		calls:       make(map[string]int),
	}
}

// Fail makes the next n calls of op return err. n < 0 fails until Heal.
func (r *MemoryRemote) Fail(op string, n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	r.fail[op] = failure{err: err, remaining: n}
}

// FailAll makes every operation fail until Heal.
func (r *MemoryRemote) FailAll(err error) {
	for _, op := range []string{OpFetchCompletions, OpUpsertCompletion, OpFetchPosition, OpFetchPositions, OpUpsertPosition} {
		r.Fail(op, -1, err)
	}
}

// Heal clears every injected failure.
func (r *MemoryRemote) Heal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = make(map[string]failure)
}

// Calls returns how often op was invoked, failures included.
func (r *MemoryRemote) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// Seed stores records directly, bypassing failures and counters.
func (r *MemoryRemote) Seed(id content.Identity, snap content.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range snap.Completions {
		r.upsertCompletionLocked(id, rec)
	}
	for _, pos := range snap.Positions {
		r.upsertPositionLocked(id, pos)
	}
}

// Snapshot returns what the service holds for id.
func (r *MemoryRemote) Snapshot(id content.Identity) content.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := content.NewSnapshot()
	for k, v := range r.completions[id.String()] {
		snap.Completions[k] = v
	}
	for k, v := range r.positions[id.String()] {
		snap.Positions[k] = v
	}
	return snap
}

func (r *MemoryRemote) enter(ctx context.Context, op string, gated bool) error {
	if gated {
		r.mu.Lock()
		gate := r.Gate
		r.mu.Unlock()
		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[op]++
	f, ok := r.fail[op]
	if !ok || f.remaining == 0 {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		r.fail[op] = f
	}
	return f.err
}

// FetchCompletionSet returns every completion of id, ordered by node id.
func (r *MemoryRemote) FetchCompletionSet(ctx context.Context, id content.Identity) ([]content.CompletionRecord, error) {
	if err := r.enter(ctx, OpFetchCompletions, true); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]content.CompletionRecord, 0, len(r.completions[id.String()]))
	for _, rec := range r.completions[id.String()] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out, nil
}

// UpsertCompletion stores rec for id.
func (r *MemoryRemote) UpsertCompletion(ctx context.Context, id content.Identity, rec content.CompletionRecord) error {
	if err := r.enter(ctx, OpUpsertCompletion, false); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCompletionLocked(id, rec)
	return nil
}

// FetchRoutinePosition returns the stored position of one routine.
func (r *MemoryRemote) FetchRoutinePosition(ctx context.Context, id content.Identity, routineID string) (content.RoutinePosition, bool, error) {
	if err := r.enter(ctx, OpFetchPosition, true); err != nil {
		return content.RoutinePosition{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.positions[id.String()][content.NormalizeID(routineID)]
	return pos, ok, nil
}

// FetchRoutinePositions returns every stored position of id.
func (r *MemoryRemote) FetchRoutinePositions(ctx context.Context, id content.Identity) ([]content.RoutinePosition, error) {
	if err := r.enter(ctx, OpFetchPositions, true); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]content.RoutinePosition, 0, len(r.positions[id.String()]))
	for _, pos := range r.positions[id.String()] {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoutineID < out[j].RoutineID })
	return out, nil
}

// UpsertRoutinePosition stores pos unless a newer one is stored.
func (r *MemoryRemote) UpsertRoutinePosition(ctx context.Context, id content.Identity, pos content.RoutinePosition) error {
	if err := r.enter(ctx, OpUpsertPosition, false); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertPositionLocked(id, pos)
	return nil
}

func (r *MemoryRemote) upsertCompletionLocked(id content.Identity, rec content.CompletionRecord) {
	m, ok := r.completions[id.String()]
	if !ok {
		m = make(map[string]content.CompletionRecord)
		r.completions[id.String()] = m
	}
	rec.SubjectID = id.String()
	cur, ok := m[rec.NodeID]
	if ok {
		if cur.CompletedAt.Before(rec.CompletedAt) {
			rec.CompletedAt = cur.CompletedAt
		}
		rec.ViewCount = max(rec.ViewCount, cur.ViewCount)
	}
	m[rec.NodeID] = rec
}

func (r *MemoryRemote) upsertPositionLocked(id content.Identity, pos content.RoutinePosition) {
	m, ok := r.positions[id.String()]
	if !ok {
		m = make(map[string]content.RoutinePosition)
		r.positions[id.String()] = m
	}
	if cur, ok := m[pos.RoutineID]; ok && cur.UpdatedAt.After(pos.UpdatedAt) {
		return
	}
	m[pos.RoutineID] = pos
}
