package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebzhan/fflbot/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `id, title, category, end_date, current_price_yes,
	current_price_no, active, resolution, resolved_at, created_at, updated_at`

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var resolution *string
	err := row.Scan(
		&m.ID, &m.Title, &m.Category, &m.EndDate,
		&m.CurrentPriceYes, &m.CurrentPriceNo, &m.Active,
		&resolution, &m.ResolvedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	if resolution != nil {
		out := domain.Outcome(*resolution)
		m.Resolution = &out
	}
	return m, nil
}

// Upsert inserts or updates a market's metadata. Resolution fields are never
// touched here; SetResolution owns those.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			id, title, category, end_date,
			current_price_yes, current_price_no, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			title             = EXCLUDED.title,
			category          = EXCLUDED.category,
			end_date          = EXCLUDED.end_date,
			current_price_yes = EXCLUDED.current_price_yes,
			current_price_no  = EXCLUDED.current_price_no,
			active            = EXCLUDED.active,
			updated_at        = NOW()`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Title, m.Category, m.EndDate,
		m.CurrentPriceYes, m.CurrentPriceNo, m.Active,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.ID, err)
	}
	return nil
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// UpdatePrices refreshes the live YES/NO prices for a market.
func (s *MarketStore) UpdatePrices(ctx context.Context, id string, priceYes, priceNo float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets SET current_price_yes = $2, current_price_no = $3, updated_at = NOW()
		 WHERE id = $1`,
		id, priceYes, priceNo)
	if err != nil {
		return fmt.Errorf("postgres: update prices for market %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetResolution records a terminal outcome exactly once. The update is
// conditional on resolution being unset, so a second call returns
// ErrAlreadyResolved without touching the row.
func (s *MarketStore) SetResolution(ctx context.Context, id string, outcome domain.Outcome, at time.Time) error {
	const query = `
		UPDATE markets
		SET resolution = $2, resolved_at = $3, active = FALSE, updated_at = NOW()
		WHERE id = $1 AND resolution IS NULL`

	tag, err := s.pool.Exec(ctx, query, id, string(outcome), at)
	if err != nil {
		return fmt.Errorf("postgres: set resolution for market %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrAlreadyResolved
	}
	return nil
}

// ListOpenMarketIDs returns ids of markets that still carry unresolved picks,
// across all leagues. This drives the resolution poller.
func (s *MarketStore) ListOpenMarketIDs(ctx context.Context) ([]string, error) {
	const query = `
		SELECT DISTINCT market_id FROM draft_picks WHERE is_resolved = FALSE
		ORDER BY market_id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open market ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan open market id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list open market ids rows: %w", err)
	}
	return ids, nil
}
