package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/lehigh-university-libraries/beatbench/internal/dataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrMissingEstimate is returned when a track has no estimated beats.
var ErrMissingEstimate = errors.New("no estimated beats for track")

// TrackSource is an ordered, id-keyed collection of annotated tracks.
// *dataset.Dataset satisfies it.
type TrackSource interface {
	IDs() []string
	Lookup(id string) (*dataset.Track, error)
}

// EvaluateEstimatedBeats scores every track of tracks, in order, against its
// entry in estimated. A track without an estimate fails the whole call.
func EvaluateEstimatedBeats(tracks TrackSource, estimated map[string][]float64) (*Scores, error) {
	scores := NewScores()
	for _, id := range tracks.IDs() {
		track, err := tracks.Lookup(id)
		if err != nil {
			return nil, err
		}
		est, ok := estimated[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingEstimate, id)
		}
		f, err := FMeasure(track.Beats, est)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate track %s: %w", id, err)
		}
		scores.Set(id, f)
	}
	return scores, nil
}

// Genres lists the genres of tracks in first-seen order.
func Genres(tracks TrackSource) ([]string, error) {
	var genres []string
	seen := make(map[string]bool)
	for _, id := range tracks.IDs() {
		track, err := tracks.Lookup(id)
		if err != nil {
			return nil, err
		}
		if !seen[track.Genre] {
			seen[track.Genre] = true
			genres = append(genres, track.Genre)
		}
	}
	return genres, nil
}

// SplitByGenre partitions scores into one mapping per genre of tracks. Every
// genre of tracks gets an entry, empty if none of its tracks were scored.
// Scored ids absent from tracks are an error.
func SplitByGenre(scores *Scores, tracks TrackSource) (map[string]*Scores, error) {
	genres, err := Genres(tracks)
	if err != nil {
		return nil, err
	}

	split := make(map[string]*Scores, len(genres))
	for _, genre := range genres {
		split[genre] = NewScores()
	}
	for _, id := range scores.IDs() {
		track, err := tracks.Lookup(id)
		if err != nil {
			return nil, err
		}
		v, _ := scores.Get(id)
		split[track.Genre].Set(id, v)
	}
	return split, nil
}

// TempoVsPerformance returns parallel tempo and score slices in score order.
func TempoVsPerformance(scores *Scores, tracks TrackSource) ([]float64, []float64, error) {
	tempo := make([]float64, 0, scores.Len())
	values := make([]float64, 0, scores.Len())
	for _, id := range scores.IDs() {
		track, err := tracks.Lookup(id)
		if err != nil {
			return nil, nil, err
		}
		v, _ := scores.Get(id)
		tempo = append(tempo, track.Tempo)
		values = append(values, v)
	}
	return tempo, values, nil
}

// Summary holds descriptive statistics of a set of scores
type Summary struct {
	Count   int     `json:"count"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	StdDev  float64 `json:"std_dev"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Perfect int     `json:"perfect"` // scores of 1
	Zero    int     `json:"zero"`
}

// Summarize computes descriptive statistics of values. An empty input gives a zero Summary.
func Summarize(values []float64) Summary {
	s := Summary{Count: len(values)}
	if len(values) == 0 {
		return s
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	s.Mean = stat.Mean(sorted, nil)
	s.Median = median(sorted)
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	s.Min = floats.Min(sorted)
	s.Max = floats.Max(sorted)
	for _, v := range sorted {
		switch v {
		case 1:
			s.Perfect++
		case 0:
			s.Zero++
		}
	}
	return s
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// GenreSummary is the Summary of one genre's scores
type GenreSummary struct {
	Genre string `json:"genre"`
	Summary
}

// GenreSummaries summarizes the scores of each genre of tracks, in first-seen genre order.
func GenreSummaries(scores *Scores, tracks TrackSource) ([]GenreSummary, error) {
	genres, err := Genres(tracks)
	if err != nil {
		return nil, err
	}
	split, err := SplitByGenre(scores, tracks)
	if err != nil {
		return nil, err
	}

	out := make([]GenreSummary, 0, len(genres))
	for _, genre := range genres {
		out = append(out, GenreSummary{
			Genre:   genre,
			Summary: Summarize(split[genre].Values()),
		})
	}
	return out, nil
}

// TempoCorrelation is the Pearson correlation between track tempo and score.
// It is 0 when fewer than two tracks are scored or either side is constant.
func TempoCorrelation(scores *Scores, tracks TrackSource) (float64, error) {
	tempo, values, err := TempoVsPerformance(scores, tracks)
	if err != nil {
		return 0, err
	}
	if len(values) < 2 {
		return 0, nil
	}
	r := stat.Correlation(tempo, values, nil)
	if math.IsNaN(r) {
		return 0, nil
	}
	return r, nil
}
