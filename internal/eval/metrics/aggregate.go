package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/beatbench/internal/dataset"
)

// EvaluationResult represents the results for a single track evaluation
type EvaluationResult struct {
	TrackID        string        `json:"track_id"`
	Genre          string        `json:"genre"`
	Tempo          float64       `json:"tempo"`
	EstimatedBeats []float64     `json:"estimated_beats,omitempty"`
	Evaluation     *Evaluation   `json:"evaluation,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
	Error          string        `json:"error,omitempty"` // If estimation failed
}

// AggregateResults represents aggregated evaluation metrics
type AggregateResults struct {
	TotalTracks  int `json:"total_tracks"`
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`

	// Score statistics over successful tracks
	FMeasure  Summary `json:"f_measure"`
	Precision Summary `json:"precision"`
	Recall    Summary `json:"recall"`

	Genres           []GenreSummary `json:"genres"`
	TempoCorrelation float64        `json:"tempo_correlation"`

	// Timing
	AverageProcessingTime time.Duration `json:"average_processing_time"`
	TotalProcessingTime   time.Duration `json:"total_processing_time"`

	// Detailed results
	Results []EvaluationResult `json:"results"`

	// Metadata
	EvaluationDate time.Time `json:"evaluation_date"`
	Dataset        string    `json:"dataset"`
	Version        string    `json:"version"`
	HopLength      int       `json:"hop_length"`
}

// resultTracks exposes every result row, failed or not, as a TrackSource.
type resultTracks struct {
	ids    []string
	tracks map[string]*dataset.Track
}

func newResultTracks(results []EvaluationResult) *resultTracks {
	rt := &resultTracks{tracks: make(map[string]*dataset.Track)}
	for _, r := range results {
		if _, dup := rt.tracks[r.TrackID]; dup {
			continue
		}
		rt.ids = append(rt.ids, r.TrackID)
		rt.tracks[r.TrackID] = &dataset.Track{ID: r.TrackID, Genre: r.Genre, Tempo: r.Tempo}
	}
	return rt
}

func (rt *resultTracks) IDs() []string {
	return rt.ids
}

func (rt *resultTracks) Lookup(id string) (*dataset.Track, error) {
	t, ok := rt.tracks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dataset.ErrTrackNotFound, id)
	}
	return t, nil
}

// ScoresFromResults collects the F-measure of every successful result in order.
func ScoresFromResults(results []EvaluationResult) *Scores {
	scores := NewScores()
	for _, r := range results {
		if r.Error != "" || r.Evaluation == nil {
			continue
		}
		scores.Set(r.TrackID, r.Evaluation.FMeasure)
	}
	return scores
}

// AggregateEvaluationResults aggregates multiple evaluation results
func AggregateEvaluationResults(results []EvaluationResult, datasetName, version string, hopLength int) *AggregateResults {
	agg := &AggregateResults{
		TotalTracks:    len(results),
		Results:        results,
		EvaluationDate: time.Now(),
		Dataset:        datasetName,
		Version:        version,
		HopLength:      hopLength,
	}

	var fmeasure, precision, recall []float64
	var totalDuration time.Duration
	var successDuration time.Duration

	for _, result := range results {
		totalDuration += result.ProcessingTime

		if result.Error != "" || result.Evaluation == nil {
			agg.FailureCount++
			continue
		}

		agg.SuccessCount++
		successDuration += result.ProcessingTime

		fmeasure = append(fmeasure, result.Evaluation.FMeasure)
		precision = append(precision, result.Evaluation.Precision)
		recall = append(recall, result.Evaluation.Recall)
	}

	agg.FMeasure = Summarize(fmeasure)
	agg.Precision = Summarize(precision)
	agg.Recall = Summarize(recall)

	tracks := newResultTracks(results)
	scores := ScoresFromResults(results)
	genres, err := GenreSummaries(scores, tracks)
	if err != nil {
		slog.Warn("Failed to summarize genres", "error", err)
	}
	agg.Genres = genres
	correlation, err := TempoCorrelation(scores, tracks)
	if err != nil {
		slog.Warn("Failed to correlate tempo and F-measure", "error", err)
	}
	agg.TempoCorrelation = correlation

	if agg.SuccessCount > 0 {
		agg.AverageProcessingTime = successDuration / time.Duration(agg.SuccessCount)
	}
	agg.TotalProcessingTime = totalDuration

	return agg
}

// PrintSummary prints a human-readable summary of the evaluation
func (a *AggregateResults) PrintSummary() {
	a.WriteSummary(os.Stdout)
}

// WriteSummary writes the PrintSummary text to w.
func (a *AggregateResults) WriteSummary(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "BEAT TRACKING EVALUATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Evaluation Date: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Dataset: %s (%s)\n", a.Dataset, a.Version)
	fmt.Fprintf(w, "Hop Length: %d samples\n", a.HopLength)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PROCESSING STATISTICS")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Total Tracks: %d\n", a.TotalTracks)
	fmt.Fprintf(w, "Successful: %d (%.1f%%)\n", a.SuccessCount, percent(a.SuccessCount, a.TotalTracks))
	fmt.Fprintf(w, "Failed: %d (%.1f%%)\n", a.FailureCount, percent(a.FailureCount, a.TotalTracks))
	fmt.Fprintf(w, "Average Processing Time: %s\n", a.AverageProcessingTime)
	fmt.Fprintf(w, "Total Processing Time: %s\n", a.TotalProcessingTime)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "SCORES")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	printSummary(w, "F-measure", a.FMeasure)
	printSummary(w, "Precision", a.Precision)
	printSummary(w, "Recall", a.Recall)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "BY GENRE")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, g := range a.Genres {
		fmt.Fprintf(w, "  %-12s n=%-4d mean=%.3f median=%.3f std=%.3f\n", g.Genre, g.Count, g.Mean, g.Median, g.StdDev)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "TEMPO")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Tempo/F-measure correlation: %.3f\n", a.TempoCorrelation)
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// printSummary prints statistics for a single score
func printSummary(w io.Writer, name string, s Summary) {
	fmt.Fprintf(w, "\n%s:\n", name)
	fmt.Fprintf(w, "  Mean: %.2f%% (%.3f)\n", s.Mean*100, s.Mean)
	fmt.Fprintf(w, "  Median: %.3f\n", s.Median)
	fmt.Fprintf(w, "  Std Dev: %.3f\n", s.StdDev)
	fmt.Fprintf(w, "  Range: %.3f - %.3f\n", s.Min, s.Max)
	fmt.Fprintf(w, "  Perfect: %d, Zero: %d\n", s.Perfect, s.Zero)
}

// SaveToJSON saves the aggregate results to a JSON file
func (a *AggregateResults) SaveToJSON(filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(a); err != nil {
		return fmt.Errorf("failed to encode results to JSON: %w", err)
	}

	return nil
}

// LoadFromJSON reads aggregate results written by SaveToJSON
func LoadFromJSON(filepath string) (*AggregateResults, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer file.Close()

	var agg AggregateResults
	if err := json.NewDecoder(file).Decode(&agg); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return &agg, nil
}

// SaveDetailedReport saves a detailed report with individual results
func (a *AggregateResults) SaveDetailedReport(filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	// Write header
	fmt.Fprintf(file, "BEAT TRACKING EVALUATION DETAILED REPORT\n")
	fmt.Fprintf(file, "Generated: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(file, "Dataset: %s, Version: %s, Hop Length: %d\n", a.Dataset, a.Version, a.HopLength)
	separator := strings.Repeat("=", 80)
	fmt.Fprintf(file, "%s\n\n", separator)

	// Write individual results
	dash := strings.Repeat("-", 80)
	for i, result := range a.Results {
		fmt.Fprintf(file, "TRACK %d: %s\n", i+1, result.TrackID)
		fmt.Fprintf(file, "%s\n", dash)
		fmt.Fprintf(file, "Genre: %s\n", result.Genre)
		fmt.Fprintf(file, "Tempo: %.1f BPM\n", result.Tempo)
		fmt.Fprintf(file, "Processing Time: %s\n", result.ProcessingTime)

		if result.Error != "" {
			fmt.Fprintf(file, "ERROR: %s\n", result.Error)
		} else if e := result.Evaluation; e != nil {
			fmt.Fprintf(file, "\nBeats: %d estimated, %d reference, %d matched\n", e.Estimated, e.Reference, e.Matched)
			fmt.Fprintf(file, "  Precision: %.3f\n", e.Precision)
			fmt.Fprintf(file, "  Recall:    %.3f\n", e.Recall)
			fmt.Fprintf(file, "\nF-measure: %.2f%%\n", e.FMeasure*100)
		}

		fmt.Fprintf(file, "\n%s\n\n", separator)
	}

	return nil
}
