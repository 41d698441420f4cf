package content

import "sort"

// Set is a set of node ids.
//
// The zero value is not usable for Add; use NewSet.
type Set map[string]struct{}

// NewSet returns a set holding the normalized ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id (normalized). Empty ids are ignored.
func (s Set) Add(id string) {
	id = NormalizeID(id)
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Has reports whether id is in the set. Has is safe on a nil set.
func (s Set) Has(id string) bool {
	_, ok := s[NormalizeID(id)]
	return ok
}

// Len returns the number of ids.
func (s Set) Len() int {
	return len(s)
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Union returns a new set containing the ids of s and other.
func (s Set) Union(other Set) Set {
	out := s.Clone()
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// ContainsAll reports whether every id of other is in s.
func (s Set) ContainsAll(other Set) bool {
	for id := range other {
		if _, ok := s[id]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the ids in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
