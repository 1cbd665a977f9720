package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebzhan/fflbot/internal/domain"
)

// TradeProposalStore implements domain.TradeProposalStore using PostgreSQL.
type TradeProposalStore struct {
	pool *pgxpool.Pool
}

// NewTradeProposalStore creates a new TradeProposalStore backed by the given
// connection pool.
func NewTradeProposalStore(pool *pgxpool.Pool) *TradeProposalStore {
	return &TradeProposalStore{pool: pool}
}

const tradeCols = `id, league_id, proposer, counterparty, offered_pick_id,
	wanted_pick_id, status, created_at, expires_at, decided_at`

func scanTrade(row pgx.Row) (domain.TradeProposal, error) {
	var t domain.TradeProposal
	var status string
	err := row.Scan(
		&t.ID, &t.LeagueID, &t.Proposer, &t.Counterparty, &t.OfferedPickID,
		&t.WantedPickID, &status, &t.CreatedAt, &t.ExpiresAt, &t.DecidedAt,
	)
	if err != nil {
		return domain.TradeProposal{}, err
	}
	t.Status = domain.TradeProposalStatus(status)
	return t, nil
}

// Create inserts a trade proposal.
func (s *TradeProposalStore) Create(ctx context.Context, t domain.TradeProposal) error {
	const query = `
		INSERT INTO trade_proposals (
			id, league_id, proposer, counterparty,
			offered_pick_id, wanted_pick_id, status, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.LeagueID, t.Proposer, t.Counterparty,
		t.OfferedPickID, t.WantedPickID, string(t.Status), t.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create trade proposal %s: %w", t.ID, err)
	}
	return nil
}

// GetByID retrieves a trade proposal by id.
func (s *TradeProposalStore) GetByID(ctx context.Context, id string) (domain.TradeProposal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tradeCols+` FROM trade_proposals WHERE id = $1`, id)
	t, err := scanTrade(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.TradeProposal{}, domain.ErrNotFound
		}
		return domain.TradeProposal{}, fmt.Errorf("postgres: get trade proposal %s: %w", id, err)
	}
	return t, nil
}

// ListByLeague returns all trade proposals for a league, newest first.
func (s *TradeProposalStore) ListByLeague(ctx context.Context, leagueID int64) ([]domain.TradeProposal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeCols+` FROM trade_proposals WHERE league_id = $1 ORDER BY created_at DESC`,
		leagueID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trade proposals for league %d: %w", leagueID, err)
	}
	defer rows.Close()

	var proposals []domain.TradeProposal
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan trade proposal: %w", err)
		}
		proposals = append(proposals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list trade proposals rows: %w", err)
	}
	return proposals, nil
}

// Decide moves a PENDING proposal to a terminal status. Deciding a proposal
// that already left PENDING returns ErrConflict, so accept/reject is one-shot.
func (s *TradeProposalStore) Decide(ctx context.Context, id string, status domain.TradeProposalStatus, at time.Time) error {
	const query = `
		UPDATE trade_proposals
		SET status = $2, decided_at = $3
		WHERE id = $1 AND status = 'PENDING'`

	tag, err := s.pool.Exec(ctx, query, id, string(status), at)
	if err != nil {
		return fmt.Errorf("postgres: decide trade proposal %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrConflict
	}
	return nil
}
