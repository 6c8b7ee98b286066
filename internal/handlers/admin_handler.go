package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"lingoquest/internal/audiocache"
	"lingoquest/internal/logger"
)

// CacheAdmin is the operator view of the audio cache
type CacheAdmin interface {
	Stats(ctx context.Context) (audiocache.Stats, error)
	Clear(ctx context.Context) error
	PruneExpired(ctx context.Context) (int, error)
	Budget() int64
}

// Backup exports and restores learner data
type Backup interface {
	ExportToWriter(ctx context.Context, w io.Writer) error
	ImportFromReader(ctx context.Context, r io.Reader) error
}

// AdminHandler handles admin-specific routes
type AdminHandler struct {
	cache  CacheAdmin
	backup Backup
	log    *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(cache CacheAdmin, backup Backup, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		cache:  cache,
		backup: backup,
		log:    log.With("handler", "AdminHandler"),
	}
}

type cacheStatsResponse struct {
	audiocache.Stats
	BudgetBytes int64   `json:"budgetBytes"`
	TotalSize   string  `json:"totalSize"`
	Budget      string  `json:"budget"`
	UsedPercent float64 `json:"usedPercent"`
}

// CacheStats reports audio cache usage
func (h *AdminHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, "Failed to read cache stats", "Error reading cache stats", err)
		return
	}

	budget := h.cache.Budget()
	resp := cacheStatsResponse{
		Stats:       stats,
		BudgetBytes: budget,
		TotalSize:   humanize.IBytes(uint64(stats.TotalSizeBytes)),
		Budget:      humanize.IBytes(uint64(budget)),
	}
	if budget > 0 {
		resp.UsedPercent = float64(stats.TotalSizeBytes) * 100 / float64(budget)
	}
	respondJSON(w, http.StatusOK, resp)
}

// ClearCache removes every cached clip
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(r.Context()); err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, "Failed to clear cache", "Error clearing cache", err)
		return
	}
	h.log.Info("Audio cache cleared by admin", "subject", claimsSubject(r))
	w.WriteHeader(http.StatusNoContent)
}

// PruneCache removes expired clips now instead of waiting for the sweeper
func (h *AdminHandler) PruneCache(w http.ResponseWriter, r *http.Request) {
	removed, err := h.cache.PruneExpired(r.Context())
	if err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, "Failed to prune cache", "Error pruning cache", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// ExportDatabase exports learner data to JSON for download
func (h *AdminHandler) ExportDatabase(w http.ResponseWriter, r *http.Request) {
	// Set headers for file download
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("lingoquest_backup_%s.json", timestamp)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	// Export directly to response writer
	if err := h.backup.ExportToWriter(r.Context(), w); err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, "Failed to export database", "Error exporting database", err)
		return
	}

	h.log.Info("Database exported by admin", "subject", claimsSubject(r))
}

// ImportDatabase restores learner data from an uploaded backup_file form
// field or from a raw JSON body.
func (h *AdminHandler) ImportDatabase(w http.ResponseWriter, r *http.Request) {
	var body io.Reader = http.MaxBytesReader(w, r.Body, 10<<20)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		// Parse multipart form (10MB max)
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			respondWithError(w, h.log, http.StatusBadRequest, "Failed to parse form", "", err)
			return
		}
		file, _, err := r.FormFile("backup_file")
		if err != nil {
			respondWithError(w, h.log, http.StatusBadRequest, "Please select a backup file", "", err)
			return
		}
		defer file.Close()
		body = file
	}

	if err := h.backup.ImportFromReader(r.Context(), body); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, "Failed to import database: "+err.Error(), "Error importing database", err)
		return
	}

	h.log.Info("Database imported by admin", "subject", claimsSubject(r))
	respondJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

func claimsSubject(r *http.Request) string {
	if claims := GetClaimsFromContext(r.Context()); claims != nil {
		return claims.Subject
	}
	return ""
}
