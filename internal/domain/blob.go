package domain

import (
	"context"
	"fmt"
	"io"
	"time"
)

// LeagueArchivePrefix is the object-storage prefix under which completed
// league snapshots are written.
const LeagueArchivePrefix = "archive/leagues/"

// LeagueArchivePath returns the object path of a league's season snapshot.
func LeagueArchivePath(leagueID int64) string {
	return fmt.Sprintf("%s%d.json", LeagueArchivePrefix, leagueID)
}

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver snapshots completed leagues (picks, standings, payouts) to cold
// storage.
type Archiver interface {
	ArchiveLeague(ctx context.Context, leagueID int64) (string, error)
}
