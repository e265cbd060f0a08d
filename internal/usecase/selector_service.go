package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/riskibarqy/opendota-monitor/internal/domain/match"
	"github.com/riskibarqy/opendota-monitor/internal/domain/processed"
)

// MatchSource fetches the recent-matches feed for one player account.
type MatchSource interface {
	PlayerRecentMatches(ctx context.Context, accountID string) ([]match.Match, error)
}

// SelectorService narrows a player's recent matches down to the ones worth
// a parse request: recent, not yet parsed by the provider, and not already
// requested by us. Output keeps the source feed order.
type SelectorService struct {
	source MatchSource
	window time.Duration
	now    func() time.Time
}

func NewSelectorService(source MatchSource, window time.Duration) *SelectorService {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &SelectorService{
		source: source,
		window: window,
		now:    time.Now,
	}
}

func (s *SelectorService) SelectUnparsed(ctx context.Context, accountID string, set processed.Set) ([]string, error) {
	matches, err := s.source.PlayerRecentMatches(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("select unparsed account_id=%s: %w", accountID, err)
	}

	now := s.now().UTC()
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !match.IsRecent(m.StartTime, s.window, now) {
			continue
		}
		if m.Parsed() {
			continue
		}
		id := strconv.FormatInt(m.ID, 10)
		if set.Contains(id) {
			continue
		}
		out = append(out, id)
	}

	return out, nil
}
