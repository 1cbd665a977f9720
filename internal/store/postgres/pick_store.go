package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebzhan/fflbot/internal/domain"
)

// PickStore implements domain.PickStore using PostgreSQL.
type PickStore struct {
	pool *pgxpool.Pool
}

// NewPickStore creates a new PickStore backed by the given connection pool.
func NewPickStore(pool *pgxpool.Pool) *PickStore {
	return &PickStore{pool: pool}
}

const pickCols = `id, league_id, market_id, player, prediction, session_index,
	pick_index, snapshot_odds, is_resolved, points, created_at`

func scanPick(row pgx.Row) (domain.DraftPick, error) {
	var p domain.DraftPick
	var prediction string
	err := row.Scan(
		&p.ID, &p.LeagueID, &p.MarketID, &p.Player, &prediction,
		&p.Session, &p.PickIndex, &p.SnapshotOdds, &p.IsResolved,
		&p.Points, &p.CreatedAt,
	)
	if err != nil {
		return domain.DraftPick{}, err
	}
	p.Prediction = domain.Side(prediction)
	return p, nil
}

// Create inserts a pick. The table's unique constraints on
// (league, session, pick_index) and (league, session, market, prediction)
// reject racing submissions for the same turn or the same position; those
// surface as ErrConflict.
func (s *PickStore) Create(ctx context.Context, p domain.DraftPick) (domain.DraftPick, error) {
	const query = `
		INSERT INTO draft_picks (
			league_id, market_id, player, prediction,
			session_index, pick_index, snapshot_odds
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + pickCols

	row := s.pool.QueryRow(ctx, query,
		p.LeagueID, p.MarketID, p.Player, string(p.Prediction),
		p.Session, p.PickIndex, p.SnapshotOdds,
	)
	created, err := scanPick(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.DraftPick{}, domain.ErrConflict
		}
		return domain.DraftPick{}, fmt.Errorf("postgres: create pick: %w", err)
	}
	return created, nil
}

// GetByID retrieves a pick by its primary key.
func (s *PickStore) GetByID(ctx context.Context, id int64) (domain.DraftPick, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pickCols+` FROM draft_picks WHERE id = $1`, id)
	p, err := scanPick(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.DraftPick{}, domain.ErrNotFound
		}
		return domain.DraftPick{}, fmt.Errorf("postgres: get pick %d: %w", id, err)
	}
	return p, nil
}

func (s *PickStore) list(ctx context.Context, query string, args ...any) ([]domain.DraftPick, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list picks: %w", err)
	}
	defer rows.Close()

	var picks []domain.DraftPick
	for rows.Next() {
		p, err := scanPick(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan pick: %w", err)
		}
		picks = append(picks, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list picks rows: %w", err)
	}
	return picks, nil
}

// ListByLeague returns picks for a league in draft order, optionally filtered
// to one session.
func (s *PickStore) ListByLeague(ctx context.Context, leagueID int64, session *int) ([]domain.DraftPick, error) {
	query := `SELECT ` + pickCols + ` FROM draft_picks WHERE league_id = $1`
	args := []any{leagueID}
	if session != nil {
		query += ` AND session_index = $2`
		args = append(args, *session)
	}
	query += ` ORDER BY session_index, pick_index`
	return s.list(ctx, query, args...)
}

// ListOpenByLeague returns unresolved picks for a league.
func (s *PickStore) ListOpenByLeague(ctx context.Context, leagueID int64, session *int) ([]domain.DraftPick, error) {
	query := `SELECT ` + pickCols + ` FROM draft_picks WHERE league_id = $1 AND is_resolved = FALSE`
	args := []any{leagueID}
	if session != nil {
		query += ` AND session_index = $2`
		args = append(args, *session)
	}
	query += ` ORDER BY session_index, pick_index`
	return s.list(ctx, query, args...)
}

// ListByMarket returns every pick on one market across all leagues, resolved
// or not.
func (s *PickStore) ListByMarket(ctx context.Context, marketID string) ([]domain.DraftPick, error) {
	return s.list(ctx,
		`SELECT `+pickCols+` FROM draft_picks
		 WHERE market_id = $1
		 ORDER BY league_id, session_index, pick_index`,
		marketID)
}

// CountBySession returns the number of picks recorded for one session. This is
// the authoritative turn counter for the snake draft.
func (s *PickStore) CountBySession(ctx context.Context, leagueID int64, session int) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM draft_picks WHERE league_id = $1 AND session_index = $2`,
		leagueID, session).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count picks for league %d session %d: %w", leagueID, session, err)
	}
	return count, nil
}

// CountByPlayer returns how many picks one participant holds in a session.
func (s *PickStore) CountByPlayer(ctx context.Context, leagueID int64, session int, player string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM draft_picks
		 WHERE league_id = $1 AND session_index = $2 AND player = $3`,
		leagueID, session, player).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count picks for player %s: %w", player, err)
	}
	return count, nil
}

// CountUnresolved returns the number of unresolved picks in a session. Zero
// means the session can be finalized.
func (s *PickStore) CountUnresolved(ctx context.Context, leagueID int64, session int) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM draft_picks
		 WHERE league_id = $1 AND session_index = $2 AND is_resolved = FALSE`,
		leagueID, session).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count unresolved picks: %w", err)
	}
	return count, nil
}

// ResolveAndScore marks a pick resolved with its final points and applies the
// point delta and streak update to the owner's stats in a single transaction.
// The pick update is conditional on is_resolved = FALSE; when the pick was
// already resolved (by a concurrent poller run or a manual override) nothing
// is applied and the call returns false.
func (s *PickStore) ResolveAndScore(ctx context.Context, pickID int64, points int64, correct bool) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("postgres: begin resolve tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const resolvePick = `
		UPDATE draft_picks
		SET is_resolved = TRUE, points = $2
		WHERE id = $1 AND is_resolved = FALSE
		RETURNING league_id, player`

	var leagueID int64
	var player string
	err = tx.QueryRow(ctx, resolvePick, pickID, points).Scan(&leagueID, &player)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Already resolved, or the pick does not exist at all.
			var exists bool
			if chkErr := s.pool.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM draft_picks WHERE id = $1)`, pickID,
			).Scan(&exists); chkErr != nil {
				return false, fmt.Errorf("postgres: check pick %d: %w", pickID, chkErr)
			}
			if !exists {
				return false, domain.ErrNotFound
			}
			return false, nil
		}
		return false, fmt.Errorf("postgres: resolve pick %d: %w", pickID, err)
	}

	const applyStats = `
		UPDATE player_stats
		SET points = points + $3,
		    streak = CASE WHEN $4 THEN streak + 1 ELSE 0 END
		WHERE league_id = $1 AND address = $2`

	tag, err := tx.Exec(ctx, applyStats, leagueID, player, points, correct)
	if err != nil {
		return false, fmt.Errorf("postgres: apply score for pick %d: %w", pickID, err)
	}
	if tag.RowsAffected() == 0 {
		return false, fmt.Errorf("postgres: apply score for pick %d: %w", pickID, domain.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("postgres: commit resolve tx for pick %d: %w", pickID, err)
	}
	return true, nil
}

// UpdateOwner transfers an unresolved pick to a new owner. Resolved picks are
// frozen, so transferring one returns ErrConflict.
func (s *PickStore) UpdateOwner(ctx context.Context, pickID int64, newOwner string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE draft_picks SET player = $2 WHERE id = $1 AND is_resolved = FALSE`,
		pickID, newOwner)
	if err != nil {
		return fmt.Errorf("postgres: update owner for pick %d: %w", pickID, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, pickID); err != nil {
			return err
		}
		return domain.ErrConflict
	}
	return nil
}
