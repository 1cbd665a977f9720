package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/calebzhan/fflbot/internal/domain"
)

// ArchiveService defines the methods that the archive handler requires from
// the service layer.
type ArchiveService interface {
	List(ctx context.Context) ([]domain.BlobInfo, error)
	Fetch(ctx context.Context, leagueID int64) (io.ReadCloser, error)
}

// ArchiveHandler serves the cold-storage season archive to operators.
type ArchiveHandler struct {
	archives ArchiveService
	logger   *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler with the given service and logger.
func NewArchiveHandler(archives ArchiveService, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		archives: archives,
		logger:   logger,
	}
}

// ListArchives returns metadata for every archived league snapshot.
// GET /api/admin/archives
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	infos, err := h.archives.List(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to list archives")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"archives": infos})
}

// GetArchive streams one completed league's season snapshot.
// GET /api/admin/leagues/{id}/archive
func (h *ArchiveHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}

	body, err := h.archives.Fetch(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to fetch archive")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "handler: archive stream interrupted",
			slog.String("error", err.Error()),
		)
	}
}
