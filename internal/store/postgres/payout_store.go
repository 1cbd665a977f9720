package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebzhan/fflbot/internal/domain"
)

// PayoutStore implements domain.PayoutStore using PostgreSQL.
type PayoutStore struct {
	pool *pgxpool.Pool
}

// NewPayoutStore creates a new PayoutStore backed by the given connection pool.
func NewPayoutStore(pool *pgxpool.Pool) *PayoutStore {
	return &PayoutStore{pool: pool}
}

// Create inserts a payout record.
func (s *PayoutStore) Create(ctx context.Context, p domain.Payout) error {
	const query = `
		INSERT INTO payouts (id, league_id, player, points, share, amount, currency, status, tx_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.LeagueID, p.Player, p.Points, p.Share, p.Amount,
		p.Currency, string(p.Status), p.TxRef)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create payout %s: %w", p.ID, err)
	}
	return nil
}

// ListByLeague returns all payouts recorded for a league.
func (s *PayoutStore) ListByLeague(ctx context.Context, leagueID int64) ([]domain.Payout, error) {
	const query = `
		SELECT id, league_id, player, points, share, amount, currency, status, tx_ref, created_at
		FROM payouts WHERE league_id = $1 ORDER BY amount DESC, player`

	rows, err := s.pool.Query(ctx, query, leagueID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list payouts for league %d: %w", leagueID, err)
	}
	defer rows.Close()

	var payouts []domain.Payout
	for rows.Next() {
		var p domain.Payout
		var status string
		if err := rows.Scan(&p.ID, &p.LeagueID, &p.Player, &p.Points, &p.Share,
			&p.Amount, &p.Currency, &status, &p.TxRef, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan payout: %w", err)
		}
		p.Status = domain.PayoutStatus(status)
		payouts = append(payouts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list payouts rows: %w", err)
	}
	return payouts, nil
}
