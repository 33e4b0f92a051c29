package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleResults() []EvaluationResult {
	return []EvaluationResult{
		{
			TrackID:        "rock.00000",
			Genre:          "rock",
			Tempo:          120,
			EstimatedBeats: []float64{0.5, 1.0},
			ProcessingTime: 5 * time.Second,
			Evaluation:     &Evaluation{FMeasure: 1.0, Precision: 1.0, Recall: 1.0, Matched: 2, Reference: 2, Estimated: 2},
		},
		{
			TrackID:        "jazz.00000",
			Genre:          "jazz",
			Tempo:          90,
			ProcessingTime: 3 * time.Second,
			Evaluation:     &Evaluation{FMeasure: 0.5, Precision: 0.5, Recall: 0.5, Matched: 1, Reference: 2, Estimated: 2},
		},
		{
			TrackID:        "rock.00001",
			Genre:          "rock",
			Tempo:          130,
			Error:          "failed to decode audio",
			ProcessingTime: 1 * time.Second,
		},
	}
}

func TestAggregateEvaluationResults(t *testing.T) {
	agg := AggregateEvaluationResults(sampleResults(), "gtzan_genre", "mini", 512)

	// Check basic stats
	if agg.TotalTracks != 3 {
		t.Errorf("Expected TotalTracks=3, got %d", agg.TotalTracks)
	}

	if agg.SuccessCount != 2 {
		t.Errorf("Expected SuccessCount=2, got %d", agg.SuccessCount)
	}

	if agg.FailureCount != 1 {
		t.Errorf("Expected FailureCount=1, got %d", agg.FailureCount)
	}

	if agg.Dataset != "gtzan_genre" || agg.Version != "mini" || agg.HopLength != 512 {
		t.Errorf("Unexpected metadata %s %s %d", agg.Dataset, agg.Version, agg.HopLength)
	}

	// Check score stats
	if agg.FMeasure.Mean != 0.75 {
		t.Errorf("Expected FMeasure.Mean=0.75, got %.3f", agg.FMeasure.Mean)
	}
	if agg.FMeasure.Perfect != 1 {
		t.Errorf("Expected FMeasure.Perfect=1, got %d", agg.FMeasure.Perfect)
	}

	// Check genres, in first-seen order of successful tracks
	if len(agg.Genres) != 2 {
		t.Fatalf("Expected 2 genres, got %d", len(agg.Genres))
	}
	if agg.Genres[0].Genre != "rock" || agg.Genres[0].Count != 1 {
		t.Errorf("Unexpected first genre %+v", agg.Genres[0])
	}
	if agg.Genres[1].Genre != "jazz" || agg.Genres[1].Mean != 0.5 {
		t.Errorf("Unexpected second genre %+v", agg.Genres[1])
	}

	// two points on a rising line
	if agg.TempoCorrelation < 0.999 {
		t.Errorf("Expected TempoCorrelation=1, got %.3f", agg.TempoCorrelation)
	}

	// Check timing
	expectedTotal := 9 * time.Second
	if agg.TotalProcessingTime != expectedTotal {
		t.Errorf("Expected TotalProcessingTime=%s, got %s",
			expectedTotal, agg.TotalProcessingTime)
	}

	expectedAvg := 4 * time.Second // (5+3)/2 for successful ones
	if agg.AverageProcessingTime != expectedAvg {
		t.Errorf("Expected AverageProcessingTime=%s, got %s",
			expectedAvg, agg.AverageProcessingTime)
	}
}

func TestAggregateKeepsGenresWithOnlyFailures(t *testing.T) {
	results := []EvaluationResult{
		{
			TrackID:    "rock.00000",
			Genre:      "rock",
			Tempo:      120,
			Evaluation: &Evaluation{FMeasure: 1.0, Precision: 1.0, Recall: 1.0, Matched: 2, Reference: 2, Estimated: 2},
		},
		{TrackID: "jazz.00000", Genre: "jazz", Tempo: 90, Error: "failed to decode audio"},
	}

	agg := AggregateEvaluationResults(results, "gtzan_genre", "mini", 512)

	if len(agg.Genres) != 2 {
		t.Fatalf("Expected 2 genres, got %+v", agg.Genres)
	}
	if agg.Genres[1].Genre != "jazz" {
		t.Errorf("Expected second genre jazz, got %s", agg.Genres[1].Genre)
	}
	if agg.Genres[1].Count != 0 {
		t.Errorf("Expected no jazz scores, got %d", agg.Genres[1].Count)
	}
	if agg.Genres[0].Count != 1 {
		t.Errorf("Expected 1 rock score, got %d", agg.Genres[0].Count)
	}
}

func TestAggregateEmpty(t *testing.T) {
	agg := AggregateEvaluationResults(nil, "gtzan_genre", "mini", 512)

	if agg.TotalTracks != 0 || agg.SuccessCount != 0 {
		t.Errorf("Expected empty aggregate, got %+v", agg)
	}
	if agg.TempoCorrelation != 0 {
		t.Errorf("Expected zero correlation, got %f", agg.TempoCorrelation)
	}

	var buf bytes.Buffer
	agg.WriteSummary(&buf)
	if !strings.Contains(buf.String(), "Successful: 0 (0.0%)") {
		t.Errorf("Summary should handle zero tracks:\n%s", buf.String())
	}
}

func TestScoresFromResults(t *testing.T) {
	scores := ScoresFromResults(sampleResults())

	ids := scores.IDs()
	if len(ids) != 2 || ids[0] != "rock.00000" || ids[1] != "jazz.00000" {
		t.Errorf("Unexpected ids %v", ids)
	}
	if _, ok := scores.Get("rock.00001"); ok {
		t.Error("Failed track should not be scored")
	}
}

func TestSaveAndLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	jsonPath := filepath.Join(tmpDir, "test_results.json")

	agg := AggregateEvaluationResults(sampleResults(), "gtzan_genre", "mini", 512)

	err := agg.SaveToJSON(jsonPath)
	if err != nil {
		t.Fatalf("SaveToJSON failed: %v", err)
	}

	loaded, err := LoadFromJSON(jsonPath)
	if err != nil {
		t.Fatalf("LoadFromJSON failed: %v", err)
	}

	if loaded.SuccessCount != agg.SuccessCount {
		t.Errorf("Expected SuccessCount=%d, got %d", agg.SuccessCount, loaded.SuccessCount)
	}
	if len(loaded.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(loaded.Results))
	}
	if loaded.Results[0].Evaluation == nil || loaded.Results[0].Evaluation.Matched != 2 {
		t.Errorf("Evaluation not preserved: %+v", loaded.Results[0])
	}
	if loaded.Results[2].Error == "" {
		t.Error("Error not preserved")
	}
	if loaded.Genres[1].Genre != "jazz" {
		t.Errorf("Genre order not preserved: %+v", loaded.Genres)
	}

	if _, err := LoadFromJSON(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestSaveDetailedReport(t *testing.T) {
	tmpDir := t.TempDir()
	reportPath := filepath.Join(tmpDir, "test_report.txt")

	agg := AggregateEvaluationResults(sampleResults(), "gtzan_genre", "mini", 512)

	err := agg.SaveDetailedReport(reportPath)
	if err != nil {
		t.Fatalf("SaveDetailedReport failed: %v", err)
	}

	content, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("Failed to read report file: %v", err)
	}

	contentStr := string(content)

	expected := []string{
		"BEAT TRACKING EVALUATION DETAILED REPORT",
		"TRACK 1: rock.00000",
		"Beats: 2 estimated, 2 reference, 2 matched",
		"F-measure: 50.00%",
		"ERROR: failed to decode audio",
	}
	for _, want := range expected {
		if !strings.Contains(contentStr, want) {
			t.Errorf("Report missing %q", want)
		}
	}
}
