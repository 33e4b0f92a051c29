package evalcmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/beatbench/internal/eval/metrics"
	resultsutil "github.com/lehigh-university-libraries/beatbench/internal/eval/results"
)

func executeReport(w io.Writer, resultsPath, format string) error {
	results, err := loadResults(resultsPath)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	switch format {
	case "text":
		return printTextReport(w, results)
	case "json":
		return printJSONReport(w, results)
	case "csv":
		return printCSVReport(w, results)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// loadResults reads results.json, or re-aggregates a parquet score table.
func loadResults(path string) (*metrics.AggregateResults, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		rows, err := resultsutil.LoadScoresParquet(path)
		if err != nil {
			return nil, err
		}
		return metrics.AggregateEvaluationResults(rows, "", "", 0), nil
	}
	return metrics.LoadFromJSON(path)
}

func printTextReport(w io.Writer, results *metrics.AggregateResults) error {
	results.WriteSummary(w)

	// Print detailed results
	fmt.Fprintln(w, "\nDetailed Results:")
	fmt.Fprintln(w, strings.Repeat("=", 70))

	for i, result := range results.Results {
		fmt.Fprintf(w, "\n[%d] Track: %s (%s, %.1f BPM)\n", i+1, result.TrackID, result.Genre, result.Tempo)

		if result.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", result.Error)
			continue
		}
		if result.Evaluation == nil {
			continue
		}

		e := result.Evaluation
		fmt.Fprintf(w, "  F-measure: %.2f%%\n", e.FMeasure*100)
		fmt.Fprintf(w, "  Precision: %.3f  Recall: %.3f\n", e.Precision, e.Recall)
		fmt.Fprintf(w, "  Beats: %d estimated, %d reference, %d matched\n", e.Estimated, e.Reference, e.Matched)
		if len(result.EstimatedBeats) > 0 {
			fmt.Fprintf(w, "  First beats: %s\n", formatBeats(result.EstimatedBeats, 8))
		}
	}

	return nil
}

func printJSONReport(w io.Writer, results *metrics.AggregateResults) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func printCSVReport(w io.Writer, results *metrics.AggregateResults) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"Track", "Genre", "Tempo", "F-measure", "Precision", "Recall", "Matched", "Reference", "Estimated", "Processing ms", "Error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, result := range results.Results {
		row := []string{
			result.TrackID,
			result.Genre,
			fmt.Sprintf("%.2f", result.Tempo),
		}

		if e := result.Evaluation; result.Error == "" && e != nil {
			row = append(row,
				fmt.Sprintf("%.4f", e.FMeasure),
				fmt.Sprintf("%.4f", e.Precision),
				fmt.Sprintf("%.4f", e.Recall),
				fmt.Sprint(e.Matched),
				fmt.Sprint(e.Reference),
				fmt.Sprint(e.Estimated),
			)
		} else {
			row = append(row, "0", "0", "0", "0", "0", "0")
		}
		row = append(row, fmt.Sprint(result.ProcessingTime.Milliseconds()), result.Error)

		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func formatBeats(beats []float64, maxLen int) string {
	parts := make([]string, 0, maxLen)
	for i, b := range beats {
		if i == maxLen {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, fmt.Sprintf("%.2f", b))
	}
	return strings.Join(parts, ", ")
}
