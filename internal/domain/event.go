package domain

import "time"

// Event types published on the signal bus and mirrored to the activity
// stream.
const (
	EventPickMade        = "pick_made"
	EventDraftComplete   = "draft_complete"
	EventMarketResolved  = "market_resolved"
	EventSessionComplete = "session_complete"
	EventMatchSettled    = "match_settled"
	EventPayoutSent      = "payout_sent"
)

// Event is the envelope for bus messages consumed by the WebSocket hub and
// the activity feed.
type Event struct {
	Type     string         `json:"type"`
	LeagueID int64          `json:"league_id,omitempty"`
	MarketID string         `json:"market_id,omitempty"`
	Player   string         `json:"player,omitempty"`
	Detail   map[string]any `json:"detail,omitempty"`
	At       time.Time      `json:"at"`
}
