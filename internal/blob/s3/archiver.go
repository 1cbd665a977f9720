package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/calebzhan/fflbot/internal/domain"
)

// leagueSnapshot is the JSON document written to cold storage when a league
// completes: final standings, every pick, and the payout table.
type leagueSnapshot struct {
	League     domain.League        `json:"league"`
	Standings  []domain.PlayerStats `json:"standings"`
	Picks      []domain.DraftPick   `json:"picks"`
	Payouts    []domain.Payout      `json:"payouts"`
	ArchivedAt time.Time            `json:"archived_at"`
}

// ArchiveImpl implements domain.Archiver by snapshotting a completed league
// from the domain stores and uploading the document to S3.
//
// Deletion of the archived records from the primary store is intentionally
// NOT performed here -- that is a separate, explicit step to be executed
// after the archive has been verified.
type ArchiveImpl struct {
	writer  domain.BlobWriter
	leagues domain.LeagueStore
	players domain.PlayerStore
	picks   domain.PickStore
	payouts domain.PayoutStore
	audit   domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	leagues domain.LeagueStore,
	players domain.PlayerStore,
	picks domain.PickStore,
	payouts domain.PayoutStore,
	audit domain.AuditStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:  writer,
		leagues: leagues,
		players: players,
		picks:   picks,
		payouts: payouts,
		audit:   audit,
	}
}

// ArchiveLeague snapshots a league's final state to S3 at
// archive/leagues/{id}.json and returns the object path. The archival event
// is recorded in the audit log.
func (a *ArchiveImpl) ArchiveLeague(ctx context.Context, leagueID int64) (string, error) {
	league, err := a.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive league %d: %w", leagueID, err)
	}
	standings, err := a.players.ListByLeague(ctx, leagueID)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive league %d standings: %w", leagueID, err)
	}
	picks, err := a.picks.ListByLeague(ctx, leagueID, nil)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive league %d picks: %w", leagueID, err)
	}
	payouts, err := a.payouts.ListByLeague(ctx, leagueID)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive league %d payouts: %w", leagueID, err)
	}

	snapshot := leagueSnapshot{
		League:     league,
		Standings:  standings,
		Picks:      picks,
		Payouts:    payouts,
		ArchivedAt: time.Now().UTC(),
	}

	buf, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: archive league %d marshal: %w", leagueID, err)
	}

	path := domain.LeagueArchivePath(leagueID)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive league %d upload: %w", leagueID, err)
	}

	if err := a.audit.Log(ctx, "archive.league", map[string]any{
		"path":      path,
		"league_id": leagueID,
		"picks":     len(picks),
		"players":   len(standings),
	}); err != nil {
		return path, fmt.Errorf("s3blob: archive league %d audit log: %w", leagueID, err)
	}

	return path, nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
