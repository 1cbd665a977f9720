package domain

import "time"

// LeagueStatus represents the lifecycle state of a league.
type LeagueStatus string

const (
	LeagueStatusSetup     LeagueStatus = "SETUP"
	LeagueStatusDrafting  LeagueStatus = "DRAFTING"
	LeagueStatusActive    LeagueStatus = "ACTIVE"
	LeagueStatusCompleted LeagueStatus = "COMPLETED"
)

// LeagueMode selects the competition format.
type LeagueMode string

const (
	LeagueModeStandard LeagueMode = "STANDARD"
	LeagueModeOneOnOne LeagueMode = "ONE_ON_ONE"
)

// League is a single competition instance. DraftOrder is empty until the
// creator starts the draft, at which point it is fixed for the rest of the
// season.
type League struct {
	ID                int64
	Name              string
	Creator           string
	BuyIn             float64
	Currency          string
	MaxPlayers        int
	Mode              LeagueMode
	TotalSessions     int
	MarketsPerSession int
	CurrentSession    int
	Status            LeagueStatus
	DraftOrder        []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SessionStatus represents the lifecycle state of a draft session.
type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "PENDING"
	SessionStatusDrafting SessionStatus = "DRAFTING"
	SessionStatusLive     SessionStatus = "LIVE"
	SessionStatusComplete SessionStatus = "COMPLETE"
)

// Session is one drafting window within a league. At most one row exists per
// (league, session index).
type Session struct {
	LeagueID  int64
	Index     int
	Status    SessionStatus
	StartTime time.Time
	EndTime   time.Time
}
