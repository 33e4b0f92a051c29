package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/lehigh-university-libraries/beatbench/internal/beat"
	"github.com/lehigh-university-libraries/beatbench/internal/dataset"
	"github.com/lehigh-university-libraries/beatbench/internal/storage"
)

// Handler serves a dataset's tracks and the beat estimates computed for them.
type Handler struct {
	tracks    *dataset.Dataset
	estimates *storage.EstimateStore
	estimator *beat.Estimator
	uploadDir string
	maxUpload int64
}

func New(tracks *dataset.Dataset, estimator *beat.Estimator, uploadDir string) *Handler {
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	return &Handler{
		tracks:    tracks,
		estimates: storage.New(),
		estimator: estimator,
		uploadDir: uploadDir,
		maxUpload: maxUploadSize,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

func (h *Handler) getTrackOrError(w http.ResponseWriter, trackID string) (*dataset.Track, bool) {
	track, exists := h.tracks.Track(trackID)
	if !exists {
		h.writeError(w, "Track not found", http.StatusNotFound)
		return nil, false
	}
	return track, true
}

func (h *Handler) ensureUploadsDir() error {
	return os.MkdirAll(h.uploadDir, 0755)
}
