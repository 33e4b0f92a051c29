package evalcmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/beatbench/internal/dataset"
	"github.com/lehigh-university-libraries/beatbench/internal/eval/metrics"
	resultsutil "github.com/lehigh-university-libraries/beatbench/internal/eval/results"
)

// executeScore evaluates precomputed beat estimates against the dataset.
// Every selected track must have an estimate; the first problem aborts.
func executeScore(w io.Writer, flags datasetFlags, estimatesPath, format string) error {
	ds, err := flags.open()
	if err != nil {
		return err
	}

	estimated, err := resultsutil.LoadEstimates(estimatesPath)
	if err != nil {
		return err
	}
	slog.Info("Estimates loaded", "path", estimatesPath, "tracks", len(estimated))

	scores, err := metrics.EvaluateEstimatedBeats(ds, estimated)
	if err != nil {
		return fmt.Errorf("failed to evaluate estimates: %w", err)
	}

	switch format {
	case "text":
		return printScoreText(w, scores, ds)
	case "csv":
		return printScoreCSV(w, scores, ds)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printScoreText(w io.Writer, scores *metrics.Scores, ds *dataset.Dataset) error {
	tempo, values, err := metrics.TempoVsPerformance(scores, ds)
	if err != nil {
		return err
	}
	split, err := metrics.SplitByGenre(scores, ds)
	if err != nil {
		return err
	}
	genres, err := metrics.Genres(ds)
	if err != nil {
		return err
	}
	r, err := metrics.TempoCorrelation(scores, ds)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintln(w, "BEAT F-MEASURE")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	for i, id := range scores.IDs() {
		fmt.Fprintf(w, "%-16s %7.1f BPM  %.3f\n", id, tempo[i], values[i])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "BY GENRE")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, genre := range genres {
		s := metrics.Summarize(split[genre].Values())
		fmt.Fprintf(w, "%-12s n=%-4d mean=%.3f median=%.3f\n", genre, s.Count, s.Mean, s.Median)
	}

	overall := metrics.Summarize(values)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Overall: n=%d mean=%.3f\n", overall.Count, overall.Mean)
	fmt.Fprintf(w, "Tempo/F-measure correlation: %.3f\n", r)
	return nil
}

func printScoreCSV(w io.Writer, scores *metrics.Scores, ds *dataset.Dataset) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"track_id", "genre", "tempo", "f_measure"}); err != nil {
		return err
	}
	for _, id := range scores.IDs() {
		track, err := ds.Lookup(id)
		if err != nil {
			return err
		}
		f, _ := scores.Get(id)
		row := []string{
			id,
			track.Genre,
			fmt.Sprintf("%.2f", track.Tempo),
			fmt.Sprintf("%.4f", f),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}
