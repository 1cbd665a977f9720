package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebzhan/fflbot/internal/domain"
)

// LeagueStore implements domain.LeagueStore using PostgreSQL.
type LeagueStore struct {
	pool *pgxpool.Pool
}

// NewLeagueStore creates a new LeagueStore backed by the given connection pool.
func NewLeagueStore(pool *pgxpool.Pool) *LeagueStore {
	return &LeagueStore{pool: pool}
}

const leagueCols = `id, name, creator, buy_in, currency, max_players, mode,
	total_sessions, markets_per_session, current_session, status, draft_order,
	created_at, updated_at`

func scanLeague(row pgx.Row) (domain.League, error) {
	var l domain.League
	var mode, status string
	err := row.Scan(
		&l.ID, &l.Name, &l.Creator, &l.BuyIn, &l.Currency, &l.MaxPlayers, &mode,
		&l.TotalSessions, &l.MarketsPerSession, &l.CurrentSession, &status,
		&l.DraftOrder, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return domain.League{}, err
	}
	l.Mode = domain.LeagueMode(mode)
	l.Status = domain.LeagueStatus(status)
	return l, nil
}

// Create inserts a new league and returns it with its assigned ID.
func (s *LeagueStore) Create(ctx context.Context, league domain.League) (domain.League, error) {
	const query = `
		INSERT INTO leagues (
			name, creator, buy_in, currency, max_players, mode,
			total_sessions, markets_per_session, current_session, status, draft_order
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + leagueCols

	row := s.pool.QueryRow(ctx, query,
		league.Name, league.Creator, league.BuyIn, league.Currency,
		league.MaxPlayers, string(league.Mode),
		league.TotalSessions, league.MarketsPerSession, league.CurrentSession,
		string(league.Status), league.DraftOrder,
	)
	created, err := scanLeague(row)
	if err != nil {
		return domain.League{}, fmt.Errorf("postgres: create league: %w", err)
	}
	return created, nil
}

// GetByID retrieves a league by its primary key.
func (s *LeagueStore) GetByID(ctx context.Context, id int64) (domain.League, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+leagueCols+` FROM leagues WHERE id = $1`, id)
	l, err := scanLeague(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.League{}, domain.ErrNotFound
		}
		return domain.League{}, fmt.Errorf("postgres: get league %d: %w", id, err)
	}
	return l, nil
}

// List returns leagues ordered by creation time, newest first.
func (s *LeagueStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.League, error) {
	query := `SELECT ` + leagueCols + ` FROM leagues ORDER BY created_at DESC`
	args := []any{}
	argIdx := 1

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list leagues: %w", err)
	}
	defer rows.Close()

	var leagues []domain.League
	for rows.Next() {
		l, err := scanLeague(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan league: %w", err)
		}
		leagues = append(leagues, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list leagues rows: %w", err)
	}
	return leagues, nil
}

// StartDraft transitions a league from SETUP to DRAFTING and records the
// shuffled draft order. The update is conditional on the current status, so a
// second caller racing the first gets ErrConflict.
func (s *LeagueStore) StartDraft(ctx context.Context, id int64, draftOrder []string) error {
	const query = `
		UPDATE leagues
		SET status = 'DRAFTING', draft_order = $2, current_session = 1, updated_at = NOW()
		WHERE id = $1 AND status = 'SETUP'`

	tag, err := s.pool.Exec(ctx, query, id, draftOrder)
	if err != nil {
		return fmt.Errorf("postgres: start draft for league %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the league is missing or it already left SETUP.
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrConflict
	}
	return nil
}

// UpdateStatus sets a league's lifecycle status.
func (s *LeagueStore) UpdateStatus(ctx context.Context, id int64, status domain.LeagueStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leagues SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("postgres: update league %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetCurrentSession advances a league's current session index.
func (s *LeagueStore) SetCurrentSession(ctx context.Context, id int64, session int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leagues SET current_session = $2, updated_at = NOW() WHERE id = $1`,
		id, session)
	if err != nil {
		return fmt.Errorf("postgres: set league %d session: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Complete transitions a league to COMPLETED. Completing an already completed
// league returns ErrAlreadySettled, which makes terminal settlement one-shot.
func (s *LeagueStore) Complete(ctx context.Context, id int64) error {
	const query = `
		UPDATE leagues
		SET status = 'COMPLETED', updated_at = NOW()
		WHERE id = $1 AND status <> 'COMPLETED'`

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: complete league %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrAlreadySettled
	}
	return nil
}
