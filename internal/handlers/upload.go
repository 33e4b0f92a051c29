package handlers

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const maxUploadSize = 50 * 1024 * 1024

// UploadResult is the beat estimate of an uploaded audio file.
type UploadResult struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	SampleRate     int       `json:"sample_rate"`
	Duration       float64   `json:"duration"`
	EstimatedBeats []float64 `json:"estimated_beats"`
	Tempo          float64   `json:"tempo"`
}

// HandleUpload estimates the beats of an audio file posted as multipart form
// field "file" (or "files").
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("files")
	if err != nil {
		file, header, err = r.FormFile("file")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	if err := h.ensureUploadsDir(); err != nil {
		h.writeError(w, "Failed to create uploads directory: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// One byte past the limit tells an oversized file from one exactly at it
	fileData, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if int64(len(fileData)) > h.maxUpload {
		h.writeError(w, fmt.Sprintf("File too large (max %d bytes)", h.maxUpload), http.StatusBadRequest)
		return
	}

	audioPath, err := h.saveUpload(fileData, header.Filename)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	res, err := h.estimator.Estimate(audioPath)
	if err != nil {
		h.writeError(w, "Failed to estimate beats: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	// Use filename (without extension) as the estimate id, with timestamp for uniqueness
	baseFilename := strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	id := fmt.Sprintf("%s_%d", baseFilename, time.Now().Unix())
	h.estimates.Set(id, res)

	h.writeJSON(w, UploadResult{
		ID:             id,
		Filename:       header.Filename,
		SampleRate:     res.SampleRate,
		Duration:       res.Duration,
		EstimatedBeats: res.Beats,
		Tempo:          impliedTempo(res.Beats),
	})
}

func (h *Handler) saveUpload(fileData []byte, filename string) (string, error) {
	sum := md5.Sum(fileData)
	audioPath := filepath.Join(h.uploadDir, hex.EncodeToString(sum[:])+filepath.Ext(filename))

	if err := os.WriteFile(audioPath, fileData, 0644); err != nil {
		return "", fmt.Errorf("failed to save audio: %w", err)
	}
	slog.Info("Audio saved", "path", audioPath, "filename", filename)
	return audioPath, nil
}

// impliedTempo is the tempo in BPM implied by the median inter-beat interval.
func impliedTempo(beats []float64) float64 {
	if len(beats) < 2 {
		return 0
	}
	intervals := make([]float64, 0, len(beats)-1)
	for i := 1; i < len(beats); i++ {
		intervals = append(intervals, beats[i]-beats[i-1])
	}
	sort.Float64s(intervals)
	mid := len(intervals) / 2
	ibi := intervals[mid]
	if len(intervals)%2 == 0 {
		ibi = (intervals[mid-1] + intervals[mid]) / 2
	}
	if ibi <= 0 {
		return 0
	}
	return 60 / ibi
}
