package results

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lehigh-university-libraries/beatbench/internal/eval/metrics"
	"github.com/parquet-go/parquet-go"
)

// ScoreRow is one track's row in a score table.
type ScoreRow struct {
	TrackID        string    `parquet:"track_id"`
	Genre          string    `parquet:"genre"`
	Tempo          float64   `parquet:"tempo"`
	FMeasure       float64   `parquet:"f_measure"`
	Precision      float64   `parquet:"precision"`
	Recall         float64   `parquet:"recall"`
	Matched        int64     `parquet:"matched"`
	ReferenceBeats int64     `parquet:"reference_beats"`
	EstimatedBeats []float64 `parquet:"estimated_beats,list"`
	ProcessingMS   int64     `parquet:"processing_ms"`
	Error          string    `parquet:"error,optional"`
}

// SaveScoresParquet writes one row per result, failures included.
func SaveScoresParquet(path string, results []metrics.EvaluationResult) error {
	rows := make([]ScoreRow, 0, len(results))
	for _, r := range results {
		row := ScoreRow{
			TrackID:        r.TrackID,
			Genre:          r.Genre,
			Tempo:          r.Tempo,
			EstimatedBeats: r.EstimatedBeats,
			ProcessingMS:   r.ProcessingTime.Milliseconds(),
			Error:          r.Error,
		}
		if e := r.Evaluation; e != nil {
			row.FMeasure = e.FMeasure
			row.Precision = e.Precision
			row.Recall = e.Recall
			row.Matched = int64(e.Matched)
			row.ReferenceBeats = int64(e.Reference)
		}
		rows = append(rows, row)
	}

	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to write score table: %w", err)
	}
	return nil
}

// LoadScoresParquet reads a score table back into evaluation results.
func LoadScoresParquet(path string) ([]metrics.EvaluationResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open score table: %w", err)
	}
	defer file.Close()

	reader := parquet.NewGenericReader[ScoreRow](file)
	defer reader.Close()

	var results []metrics.EvaluationResult
	batch := make([]ScoreRow, 128)
	for {
		n, err := reader.Read(batch)
		for _, row := range batch[:n] {
			results = append(results, rowToResult(row))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read score rows: %w", err)
		}
	}
	return results, nil
}

func rowToResult(row ScoreRow) metrics.EvaluationResult {
	r := metrics.EvaluationResult{
		TrackID:        row.TrackID,
		Genre:          row.Genre,
		Tempo:          row.Tempo,
		EstimatedBeats: row.EstimatedBeats,
		ProcessingTime: time.Duration(row.ProcessingMS) * time.Millisecond,
		Error:          row.Error,
	}
	if row.Error == "" {
		r.Evaluation = &metrics.Evaluation{
			FMeasure:  row.FMeasure,
			Precision: row.Precision,
			Recall:    row.Recall,
			Matched:   int(row.Matched),
			Reference: int(row.ReferenceBeats),
			Estimated: len(row.EstimatedBeats),
		}
	}
	return r
}
