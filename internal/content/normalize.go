package content

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeID trims surrounding whitespace and NFC-normalizes an id.
//
// Catalog files, stored snapshots and remote rows are all normalized at
// their boundary so set membership never depends on how an id was typed.
func NormalizeID(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}

// NormalizeIDs normalizes every id and drops empty ones, keeping order and
// removing duplicates.
func NormalizeIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		n := NormalizeID(id)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
