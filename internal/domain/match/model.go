package match

import "time"

// Match is one recorded game from the provider's recent-matches feed.
// It is a value read out of a single API response and never mutated.
type Match struct {
	ID        int64
	StartTime int64
	Version   *int
}

// Parsed reports whether the provider has already finished detailed
// post-processing for this match. The provider marks that by attaching
// a replay-parse version to the row.
func (m Match) Parsed() bool {
	return m.Version != nil
}

// StartedAt returns the match start as wall-clock time in UTC.
func (m Match) StartedAt() time.Time {
	return time.Unix(m.StartTime, 0).UTC()
}

// IsRecent reports whether a match that started at startTime (epoch seconds)
// still falls inside the freshness window relative to now. The boundary is
// excluded: a match exactly window old is stale.
func IsRecent(startTime int64, window time.Duration, now time.Time) bool {
	if window <= 0 {
		return false
	}
	age := now.Sub(time.Unix(startTime, 0))
	return age < window
}
