package content

import "time"

// CompletionRecord records that a subject completed a node.
// One record exists per (identity, node); it is never deleted, only migrated.
type CompletionRecord struct {
	SubjectID   string    `json:"subject_id"`
	NodeID      string    `json:"node_id"`
	CompletedAt time.Time `json:"completed_at"`
	ViewCount   int       `json:"view_count"`
}

// RoutinePosition is the persisted playback state of one routine.
type RoutinePosition struct {
	RoutineID string    `json:"routine_id"`
	Position  int       `json:"position"`
	Progress  int       `json:"progress"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LevelProgress is derived on demand from the catalog and a completion set.
type LevelProgress struct {
	LevelID                string `json:"level_id"`
	CompletedRequiredCount int    `json:"completed_required_count"`
	TotalRequiredCount     int    `json:"total_required_count"`
	IsUnlocked             bool   `json:"is_unlocked"`
	IsCompleted            bool   `json:"is_completed"`
}

// RoutineProgress is the playback view of a routine for one identity.
type RoutineProgress struct {
	RoutineID        string    `json:"routine_id"`
	CurrentPosition  int       `json:"current_position"`
	TotalSteps       int       `json:"total_steps"`
	CompletedStepIDs Set       `json:"-"`
	AutoplayEnabled  bool      `json:"autoplay_enabled"`
	LastPlayedAt     time.Time `json:"last_played_at"`
}

// Snapshot is the full progress state of one identity.
type Snapshot struct {
	Completions map[string]CompletionRecord `json:"completions"`
	Positions   map[string]RoutinePosition  `json:"positions"`
}

// NewSnapshot returns an empty snapshot with allocated maps.
func NewSnapshot() Snapshot {
	return Snapshot{
		Completions: make(map[string]CompletionRecord),
		Positions:   make(map[string]RoutinePosition),
	}
}

// IsEmpty reports whether the snapshot records no progress at all.
func (s Snapshot) IsEmpty() bool {
	return len(s.Completions) == 0 && len(s.Positions) == 0
}

// CompletedSet returns the ids of every completed node.
func (s Snapshot) CompletedSet() Set {
	out := make(Set, len(s.Completions))
	for id := range s.Completions {
		out[id] = struct{}{}
	}
	return out
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := NewSnapshot()
	for k, v := range s.Completions {
		out.Completions[k] = v
	}
	for k, v := range s.Positions {
		out.Positions[k] = v
	}
	return out
}

// Complete records a completion of nodeID at time at. A repeated completion
// bumps ViewCount and keeps the original CompletedAt. It returns the stored
// record.
func (s *Snapshot) Complete(subjectID, nodeID string, at time.Time) CompletionRecord {
	if s.Completions == nil {
		s.Completions = make(map[string]CompletionRecord)
	}
	nodeID = NormalizeID(nodeID)
	rec, ok := s.Completions[nodeID]
	if ok {
		rec.ViewCount++
	} else {
		rec = CompletionRecord{
			SubjectID:   subjectID,
			NodeID:      nodeID,
			CompletedAt: at.UTC(),
			ViewCount:   1,
		}
	}
	s.Completions[nodeID] = rec
	return rec
}

// SetPosition stores pos unless an entry with a later UpdatedAt already
// exists (last write wins by timestamp). It reports whether pos was applied.
func (s *Snapshot) SetPosition(pos RoutinePosition) bool {
	if s.Positions == nil {
		s.Positions = make(map[string]RoutinePosition)
	}
	pos.RoutineID = NormalizeID(pos.RoutineID)
	if cur, ok := s.Positions[pos.RoutineID]; ok && cur.UpdatedAt.After(pos.UpdatedAt) {
		return false
	}
	pos.UpdatedAt = pos.UpdatedAt.UTC()
	s.Positions[pos.RoutineID] = pos
	return true
}

// Rekey returns a copy whose records are attributed to subjectID.
// Used when anonymous records migrate to an account.
func (s Snapshot) Rekey(subjectID string) Snapshot {
	out := s.Clone()
	for id, rec := range out.Completions {
		rec.SubjectID = subjectID
		out.Completions[id] = rec
	}
	return out
}

// Merge combines two snapshots without losing any progress:
//   - completions: union; for a node in both, earliest CompletedAt and
//     highest ViewCount
//   - positions: per routine the highest Position and Progress, latest
//     UpdatedAt
//
// Merge is commutative and idempotent. SubjectID is taken from a when the
// node exists there, otherwise from b; callers normally Rekey the result.
func Merge(a, b Snapshot) Snapshot {
	out := a.Clone()
	for id, rb := range b.Completions {
		ra, ok := out.Completions[id]
		if !ok {
			out.Completions[id] = rb
			continue
		}
		if rb.CompletedAt.Before(ra.CompletedAt) {
			ra.CompletedAt = rb.CompletedAt
		}
		if rb.ViewCount > ra.ViewCount {
			ra.ViewCount = rb.ViewCount
		}
		out.Completions[id] = ra
	}
	for id, pb := range b.Positions {
		pa, ok := out.Positions[id]
		if !ok {
			out.Positions[id] = pb
			continue
		}
		pa.Position = max(pa.Position, pb.Position)
		pa.Progress = max(pa.Progress, pb.Progress)
		if pb.UpdatedAt.After(pa.UpdatedAt) {
			pa.UpdatedAt = pb.UpdatedAt
		}
		out.Positions[id] = pa
	}
	return out
}
