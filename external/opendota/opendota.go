package opendota

import "github.com/riskibarqy/opendota-monitor/internal/domain/match"

// RecentMatchItem is one row of GET /players/{account_id}/recentMatches.
// Only the fields the monitor consumes are declared; the API returns many
// more per row.
type RecentMatchItem struct {
	MatchID    int64 `json:"match_id"`
	StartTime  int64 `json:"start_time"`
	Duration   int   `json:"duration"`
	GameMode   int   `json:"game_mode"`
	LobbyType  int   `json:"lobby_type"`
	HeroID     int   `json:"hero_id"`
	PlayerSlot int   `json:"player_slot"`
	Version    *int  `json:"version"` // null until a replay parse finished
}

// ParseJobResponse is the body of a successful POST /request/{match_id}.
type ParseJobResponse struct {
	Job struct {
		JobID int64 `json:"jobId"`
	} `json:"job"`
}

func mapRecentMatchItem(item RecentMatchItem) match.Match {
	return match.Match{
		ID:        item.MatchID,
		StartTime: item.StartTime,
		Version:   item.Version,
	}
}
