package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebzhan/fflbot/internal/domain"
)

// SessionStore implements domain.SessionStore using PostgreSQL.
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore creates a new SessionStore backed by the given connection pool.
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Create inserts a session row. Inserting a second row for the same
// (league, index) returns ErrAlreadyExists.
func (s *SessionStore) Create(ctx context.Context, sess domain.Session) error {
	const query = `
		INSERT INTO league_sessions (league_id, session_index, status, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		sess.LeagueID, sess.Index, string(sess.Status), sess.StartTime, sess.EndTime)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create session %d/%d: %w", sess.LeagueID, sess.Index, err)
	}
	return nil
}

// Get retrieves a session by league and index.
func (s *SessionStore) Get(ctx context.Context, leagueID int64, index int) (domain.Session, error) {
	const query = `
		SELECT league_id, session_index, status, start_time, end_time
		FROM league_sessions WHERE league_id = $1 AND session_index = $2`

	var sess domain.Session
	var status string
	err := s.pool.QueryRow(ctx, query, leagueID, index).Scan(
		&sess.LeagueID, &sess.Index, &status, &sess.StartTime, &sess.EndTime)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("postgres: get session %d/%d: %w", leagueID, index, err)
	}
	sess.Status = domain.SessionStatus(status)
	return sess, nil
}

// UpdateStatus moves a session to a new lifecycle status.
func (s *SessionStore) UpdateStatus(ctx context.Context, leagueID int64, index int, status domain.SessionStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE league_sessions SET status = $3 WHERE league_id = $1 AND session_index = $2`,
		leagueID, index, string(status))
	if err != nil {
		return fmt.Errorf("postgres: update session %d/%d status: %w", leagueID, index, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Complete transitions a session to COMPLETE exactly once. The conditional
// update is the gate that keeps two overlapping settlement runs from both
// finalizing the same session.
func (s *SessionStore) Complete(ctx context.Context, leagueID int64, index int) error {
	const query = `
		UPDATE league_sessions
		SET status = 'COMPLETE'
		WHERE league_id = $1 AND session_index = $2 AND status <> 'COMPLETE'`

	tag, err := s.pool.Exec(ctx, query, leagueID, index)
	if err != nil {
		return fmt.Errorf("postgres: complete session %d/%d: %w", leagueID, index, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, leagueID, index); err != nil {
			return err
		}
		return domain.ErrAlreadySettled
	}
	return nil
}
