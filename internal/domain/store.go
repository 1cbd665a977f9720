package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// LeagueStore persists leagues.
type LeagueStore interface {
	Create(ctx context.Context, league League) (League, error)
	GetByID(ctx context.Context, id int64) (League, error)
	List(ctx context.Context, opts ListOpts) ([]League, error)
	// StartDraft transitions SETUP -> DRAFTING and fixes the draft order in a
	// single conditional update. It returns ErrConflict if the league has
	// already left SETUP.
	StartDraft(ctx context.Context, id int64, draftOrder []string) error
	UpdateStatus(ctx context.Context, id int64, status LeagueStatus) error
	SetCurrentSession(ctx context.Context, id int64, session int) error
	// Complete transitions the league to COMPLETED. It returns
	// ErrAlreadySettled if the league is already COMPLETED, making terminal
	// settlement one-shot.
	Complete(ctx context.Context, id int64) error
}

// SessionStore persists draft sessions.
type SessionStore interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, leagueID int64, index int) (Session, error)
	UpdateStatus(ctx context.Context, leagueID int64, index int, status SessionStatus) error
	// Complete transitions a session to COMPLETE in a single conditional
	// update. It returns ErrAlreadySettled if the session is already
	// COMPLETE, so two overlapping settlement runs cannot both finalize it.
	Complete(ctx context.Context, leagueID int64, index int) error
}

// PlayerStore persists per-league participant state.
type PlayerStore interface {
	Create(ctx context.Context, p PlayerStats) (PlayerStats, error)
	Get(ctx context.Context, leagueID int64, address string) (PlayerStats, error)
	ListByLeague(ctx context.Context, leagueID int64) ([]PlayerStats, error)
	Count(ctx context.Context, leagueID int64) (int, error)
	// AddPoints applies a point delta outside pick settlement (session
	// bonuses).
	AddPoints(ctx context.Context, leagueID int64, address string, delta int64) error
}

// MarketStore persists market metadata and prices.
type MarketStore interface {
	Upsert(ctx context.Context, m Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	UpdatePrices(ctx context.Context, id string, priceYes, priceNo float64) error
	// SetResolution records a terminal outcome exactly once; a second call for
	// the same market is a no-op returning ErrAlreadyResolved.
	SetResolution(ctx context.Context, id string, outcome Outcome, at time.Time) error
	// ListOpenMarketIDs returns ids of markets that still have unresolved
	// picks, across all leagues.
	ListOpenMarketIDs(ctx context.Context) ([]string, error)
}

// PickStore persists draft picks. Pick ordering and (market, side)
// exclusivity are enforced by database uniqueness, so a racing insert fails
// with ErrConflict rather than corrupting the order.
type PickStore interface {
	Create(ctx context.Context, p DraftPick) (DraftPick, error)
	GetByID(ctx context.Context, id int64) (DraftPick, error)
	ListByLeague(ctx context.Context, leagueID int64, session *int) ([]DraftPick, error)
	ListOpenByLeague(ctx context.Context, leagueID int64, session *int) ([]DraftPick, error)
	ListByMarket(ctx context.Context, marketID string) ([]DraftPick, error)
	CountBySession(ctx context.Context, leagueID int64, session int) (int, error)
	CountByPlayer(ctx context.Context, leagueID int64, session int, player string) (int, error)
	CountUnresolved(ctx context.Context, leagueID int64, session int) (int, error)
	// ResolveAndScore marks a pick resolved and applies the point delta and
	// streak update to the owner's stats in one transaction. The pick update
	// is conditional on is_resolved = FALSE; if the pick was already resolved
	// the call applies nothing and returns false.
	ResolveAndScore(ctx context.Context, pickID int64, points int64, correct bool) (bool, error)
	// UpdateOwner transfers an unresolved pick to a new owner (trade accept).
	UpdateOwner(ctx context.Context, pickID int64, newOwner string) error
}

// ProfileStore persists cross-league user profiles and ratings.
type ProfileStore interface {
	Get(ctx context.Context, address string) (UserProfile, error)
	// ApplyMatchResult upserts both profiles and moves k rating points from
	// loser to winner in one transaction.
	ApplyMatchResult(ctx context.Context, winner, loser string, k int) error
	Leaderboard(ctx context.Context, limit int) ([]UserProfile, error)
}

// PayoutStore persists payout records.
type PayoutStore interface {
	Create(ctx context.Context, p Payout) error
	ListByLeague(ctx context.Context, leagueID int64) ([]Payout, error)
}

// TradeProposalStore persists pick-swap proposals.
type TradeProposalStore interface {
	Create(ctx context.Context, t TradeProposal) error
	GetByID(ctx context.Context, id string) (TradeProposal, error)
	ListByLeague(ctx context.Context, leagueID int64) ([]TradeProposal, error)
	// Decide moves a PENDING proposal to a terminal status; deciding a
	// non-pending proposal returns ErrConflict.
	Decide(ctx context.Context, id string, status TradeProposalStatus, at time.Time) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
