package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/calebzhan/fflbot/internal/domain"
)

// ArchiveService reads the season snapshots written to cold storage when
// leagues complete.
type ArchiveService struct {
	blobs  domain.BlobReader
	logger *slog.Logger
}

// NewArchiveService creates an ArchiveService over the given blob reader.
func NewArchiveService(blobs domain.BlobReader, logger *slog.Logger) *ArchiveService {
	return &ArchiveService{blobs: blobs, logger: logger}
}

// List returns metadata for every archived league snapshot.
func (s *ArchiveService) List(ctx context.Context) ([]domain.BlobInfo, error) {
	infos, err := s.blobs.List(ctx, domain.LeagueArchivePrefix)
	if err != nil {
		return nil, fmt.Errorf("archive_service: list: %w", err)
	}
	return infos, nil
}

// Fetch opens one league's archived snapshot. The caller closes the reader.
// Returns ErrNotFound when the league was never archived.
func (s *ArchiveService) Fetch(ctx context.Context, leagueID int64) (io.ReadCloser, error) {
	body, err := s.blobs.Get(ctx, domain.LeagueArchivePath(leagueID))
	if err != nil {
		return nil, fmt.Errorf("archive_service: fetch %d: %w", leagueID, err)
	}
	return body, nil
}
