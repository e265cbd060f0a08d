package match

import (
	"testing"
	"time"
)

func TestIsRecent_InsideWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	start := now.Add(-23 * time.Hour).Unix()

	if !IsRecent(start, 24*time.Hour, now) {
		t.Fatalf("expected match 23h old to be recent with a 24h window")
	}
}

func TestIsRecent_BoundaryIsExcluded(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	start := now.Add(-24 * time.Hour).Unix()

	if IsRecent(start, 24*time.Hour, now) {
		t.Fatalf("expected match exactly 24h old to be stale with a 24h window")
	}
}

func TestIsRecent_BeyondWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	start := now.Add(-30 * time.Hour).Unix()

	if IsRecent(start, 24*time.Hour, now) {
		t.Fatalf("expected match 30h old to be stale with a 24h window")
	}
}

func TestIsRecent_NonPositiveWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	if IsRecent(now.Unix(), 0, now) {
		t.Fatalf("expected zero window to reject everything")
	}
}

func TestMatchParsed(t *testing.T) {
	t.Parallel()

	version := 5
	if (Match{ID: 100}).Parsed() {
		t.Fatalf("expected match without version to be unparsed")
	}
	if !(Match{ID: 101, Version: &version}).Parsed() {
		t.Fatalf("expected match with version to be parsed")
	}
}

func TestMatchStartedAt(t *testing.T) {
	t.Parallel()

	m := Match{ID: 100, StartTime: 1700000000}
	want := time.Unix(1700000000, 0).UTC()
	if !m.StartedAt().Equal(want) {
		t.Fatalf("unexpected StartedAt: got=%s want=%s", m.StartedAt(), want)
	}
}
