package handlers

import (
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/beatbench/internal/eval/metrics"
)

// TrackSummary is the list view of a track.
type TrackSummary struct {
	ID        string  `json:"track_id"`
	Genre     string  `json:"genre"`
	Tempo     float64 `json:"tempo"`
	BeatCount int     `json:"beat_count"`
	Estimated bool    `json:"estimated"`
}

// TrackDetail is a track with its reference beats and, once estimated, its
// estimated beats and their evaluation.
type TrackDetail struct {
	ID             string              `json:"track_id"`
	Genre          string              `json:"genre"`
	Tempo          float64             `json:"tempo"`
	ReferenceBeats []float64           `json:"reference_beats"`
	EstimatedBeats []float64           `json:"estimated_beats,omitempty"`
	Evaluation     *metrics.Evaluation `json:"evaluation,omitempty"`
}

func (h *Handler) HandleTracks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		genre := r.URL.Query().Get("genre")
		tracks := h.tracks.Tracks()
		list := make([]TrackSummary, 0, len(tracks))
		for _, t := range tracks {
			if genre != "" && t.Genre != genre {
				continue
			}
			_, estimated := h.estimates.Get(t.ID)
			list = append(list, TrackSummary{
				ID:        t.ID,
				Genre:     t.Genre,
				Tempo:     t.Tempo,
				BeatCount: len(t.Beats),
				Estimated: estimated,
			})
		}
		h.writeJSON(w, list)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleTrackDetail serves /api/tracks/{id} (GET) and
// /api/tracks/{id}/estimate (POST).
func (h *Handler) HandleTrackDetail(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/tracks/")
	trackID, action, _ := strings.Cut(path, "/")

	track, ok := h.getTrackOrError(w, trackID)
	if !ok {
		return
	}

	switch {
	case action == "" && r.Method == "GET":
	case action == "estimate" && r.Method == "POST":
		res, err := h.estimator.Estimate(track.AudioPath)
		if err != nil {
			h.writeError(w, "Failed to estimate beats: "+err.Error(), http.StatusInternalServerError)
			return
		}
		h.estimates.Set(trackID, res)
	case action != "" && action != "estimate":
		h.writeError(w, "Not found", http.StatusNotFound)
		return
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	detail := TrackDetail{
		ID:             track.ID,
		Genre:          track.Genre,
		Tempo:          track.Tempo,
		ReferenceBeats: track.Beats,
	}
	if res, exists := h.estimates.Get(trackID); exists {
		detail.EstimatedBeats = res.Beats
		eval, err := metrics.CompareBeats(track.Beats, res.Beats)
		if err != nil {
			h.writeError(w, "Failed to evaluate beats: "+err.Error(), http.StatusUnprocessableEntity)
			return
		}
		detail.Evaluation = eval
	}
	h.writeJSON(w, detail)
}

// ScoresResponse is the evaluation of every track estimated so far.
type ScoresResponse struct {
	Tracks  int                    `json:"tracks"`
	Scores  map[string]float64     `json:"scores"`
	Overall metrics.Summary        `json:"overall"`
	Genres  []metrics.GenreSummary `json:"genres"`
}

func (h *Handler) HandleScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	estimated := h.estimates.Beats()
	scores := metrics.NewScores()
	for _, id := range h.tracks.IDs() {
		beats, ok := estimated[id]
		if !ok {
			continue
		}
		track, _ := h.tracks.Track(id)
		f, err := metrics.FMeasure(track.Beats, beats)
		if err != nil {
			h.writeError(w, "Failed to evaluate "+id+": "+err.Error(), http.StatusUnprocessableEntity)
			return
		}
		scores.Set(id, f)
	}

	genres, err := metrics.GenreSummaries(scores, h.tracks)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	byID := make(map[string]float64, scores.Len())
	for _, id := range scores.IDs() {
		byID[id], _ = scores.Get(id)
	}
	h.writeJSON(w, ScoresResponse{
		Tracks:  scores.Len(),
		Scores:  byID,
		Overall: metrics.Summarize(scores.Values()),
		Genres:  genres,
	})
}

func (h *Handler) HandleEstimates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, h.estimates.Beats())
	case "DELETE":
		trackID := r.URL.Query().Get("track_id")
		if trackID == "" {
			h.writeError(w, "track_id is required", http.StatusBadRequest)
			return
		}
		h.estimates.Delete(trackID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
