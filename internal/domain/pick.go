package domain

import "time"

// DraftPick is a participant's drafted position on a market within a session.
//
// PickIndex is server-assigned, 0-based and gapless per (league, session).
// SnapshotOdds is the market's YES probability at draft time in basis points
// (0-10000); it is fixed for the life of the pick and authoritative for
// scoring. Points is nil until the pick is resolved, and immutable after.
type DraftPick struct {
	ID           int64
	LeagueID     int64
	MarketID     string
	Player       string
	Prediction   Side
	Session      int
	PickIndex    int
	SnapshotOdds int // basis points, 0-10000
	IsResolved   bool
	Points       *int64
	CreatedAt    time.Time
}

// SnapshotProb returns the YES probability at draft time as a fraction.
func (p DraftPick) SnapshotProb() float64 {
	return float64(p.SnapshotOdds) / 10000
}

// TradeProposalStatus tracks a pick-swap proposal's lifecycle.
type TradeProposalStatus string

const (
	TradeProposalPending  TradeProposalStatus = "PENDING"
	TradeProposalAccepted TradeProposalStatus = "ACCEPTED"
	TradeProposalRejected TradeProposalStatus = "REJECTED"
	TradeProposalExpired  TradeProposalStatus = "EXPIRED"
)

// TradeProposal offers to transfer ownership of one pick to another
// participant in the same league, optionally in exchange for one of theirs.
type TradeProposal struct {
	ID            string
	LeagueID      int64
	Proposer      string
	Counterparty  string
	OfferedPickID int64
	WantedPickID  *int64
	Status        TradeProposalStatus
	CreatedAt     time.Time
	ExpiresAt     time.Time
	DecidedAt     *time.Time
}
