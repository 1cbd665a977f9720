package domain

import "time"

// PayoutStatus records how a payout intent ended up.
type PayoutStatus string

const (
	// PayoutStatusSettled means the external ledger confirmed the transfer.
	PayoutStatusSettled PayoutStatus = "SETTLED"
	// PayoutStatusRecorded means the ledger attempt failed or was skipped and
	// only the DB row exists.
	PayoutStatusRecorded PayoutStatus = "RECORDED"
	PayoutStatusFailed   PayoutStatus = "FAILED"
)

// Payout is one participant's share of a league's prize pool.
type Payout struct {
	ID        string
	LeagueID  int64
	Player    string
	Points    int64
	Share     float64
	Amount    float64
	Currency  string
	Status    PayoutStatus
	TxRef     string
	CreatedAt time.Time
}

// PayoutIntent is handed to the external settlement ledger.
type PayoutIntent struct {
	LeagueID int64
	Player   string
	Amount   float64
	Currency string
}

// LedgerReceipt is the ledger's answer to an intent.
type LedgerReceipt struct {
	TxRef       string
	SubmittedAt time.Time
}

// SettlementReport summarizes one run of the resolution pipeline for a
// market: which picks scored, which failed, and whether the best-effort
// ledger write went through.
type SettlementReport struct {
	MarketID        string
	Outcome         Outcome
	PicksResolved   int
	PicksSkipped    int
	PlayersAffected int
	LedgerErr       error
	PickErrs        map[int64]error
}
