package domain

import "time"

// PlayerStats is one participant's cumulative state within a league. A row is
// created on join and mutated only by settlement (points, streak).
type PlayerStats struct {
	ID       int64
	LeagueID int64
	Address  string
	Points   int64
	Streak   int
	Rank     int
	JoinedAt time.Time
}

// UserProfile carries cross-league identity state, primarily the head-to-head
// rating maintained by 1v1 match settlement.
type UserProfile struct {
	Address   string
	Elo       int
	Wins      int
	Losses    int
	UpdatedAt time.Time
}

// BaseElo is the rating assigned to a profile before its first rated match.
const BaseElo = 1000
