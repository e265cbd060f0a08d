package processed

import "sort"

// Set is the record of match IDs a parse request has already been issued
// for. Keys are decimal match-ID strings; integer IDs from the provider are
// converted once at the boundary so every lookup uses one representation.
type Set struct {
	ids map[string]struct{}
}

func NewSet() Set {
	return Set{ids: make(map[string]struct{})}
}

// FromIDs builds a set from persisted IDs, skipping empty entries.
func FromIDs(ids []string) Set {
	set := Set{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id == "" {
			continue
		}
		set.ids[id] = struct{}{}
	}
	return set
}

func (s Set) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Add inserts the ID and reports whether the set changed.
func (s Set) Add(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s Set) Len() int {
	return len(s.ids)
}

// IDs returns the members sorted, so persisted snapshots are deterministic.
func (s Set) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s Set) Clone() Set {
	out := Set{ids: make(map[string]struct{}, len(s.ids))}
	for id := range s.ids {
		out.ids[id] = struct{}{}
	}
	return out
}
