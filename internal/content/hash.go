package content

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// DomainSnapshot separates snapshot fingerprints from any other hash.
const DomainSnapshot = "hackpath/snapshot/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

type fingerprintCompletion struct {
	NodeID      string `json:"node_id"`
	CompletedAt int64  `json:"completed_at"`
	ViewCount   int    `json:"view_count"`
}

type fingerprintPosition struct {
	RoutineID string `json:"routine_id"`
	Position  int    `json:"position"`
	Progress  int    `json:"progress"`
	UpdatedAt int64  `json:"updated_at"`
}

// Fingerprint returns a stable hash of the progress a snapshot carries.
//
// Subject ids are excluded: the same progress migrated to another identity
// has the same fingerprint. Times are compared at millisecond precision,
// the precision of both stores.
func Fingerprint(s Snapshot) (string, error) {
	completions := make([]fingerprintCompletion, 0, len(s.Completions))
	for _, rec := range s.Completions {
		completions = append(completions, fingerprintCompletion{
			NodeID:      rec.NodeID,
			CompletedAt: millis(rec.CompletedAt),
			ViewCount:   rec.ViewCount,
		})
	}
	sort.Slice(completions, func(i, j int) bool { return completions[i].NodeID < completions[j].NodeID })

	positions := make([]fingerprintPosition, 0, len(s.Positions))
	for _, pos := range s.Positions {
		positions = append(positions, fingerprintPosition{
			RoutineID: pos.RoutineID,
			Position:  pos.Position,
			Progress:  pos.Progress,
			UpdatedAt: millis(pos.UpdatedAt),
		})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].RoutineID < positions[j].RoutineID })

	data, err := json.Marshal(struct {
		Completions []fingerprintCompletion `json:"completions"`
		Positions   []fingerprintPosition   `json:"positions"`
	}{completions, positions})
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainSnapshot, data), nil
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
