package evalcmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/beatbench/internal/audio"
	"github.com/lehigh-university-libraries/beatbench/internal/dataset"
	"github.com/lehigh-university-libraries/beatbench/internal/eval/metrics"
	resultsutil "github.com/lehigh-university-libraries/beatbench/internal/eval/results"
)

const testSampleRate = 22050

// writeClickTrain writes a WAV of decaying impulses every period seconds and
// returns the impulse times.
func writeClickTrain(t *testing.T, path string, period, duration float64) []float64 {
	t.Helper()
	samples := make([]float64, int(duration*testSampleRate))
	var beats []float64
	for ts := period; ts < duration; ts += period {
		start := int(ts * testSampleRate)
		for i := 0; i < 64 && start+i < len(samples); i++ {
			samples[start+i] = 0.9 * (1 - float64(i)/64)
		}
		beats = append(beats, ts)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := audio.WriteWAV(path, &audio.Signal{Samples: samples, SampleRate: testSampleRate}); err != nil {
		t.Fatalf("Failed to write WAV: %v", err)
	}
	return beats
}

// writeFile creates path and its parent directories with the given content.
func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
}

// writeTable writes a JSONL track table of two click tracks and one track
// whose audio is missing, returning the table path.
func writeTable(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	rockBeats := writeClickTrain(t, filepath.Join(dir, "audio", "rock.00000.wav"), 0.5, 6)
	jazzBeats := writeClickTrain(t, filepath.Join(dir, "audio", "jazz.00000.wav"), 0.75, 6)

	tracks := []*dataset.Track{
		{ID: "rock.00000", Tempo: 120, AudioPath: "audio/rock.00000.wav", Beats: rockBeats},
		{ID: "jazz.00000", Tempo: 80, AudioPath: "audio/jazz.00000.wav", Beats: jazzBeats},
		{ID: "rock.00001", Tempo: 110, AudioPath: "audio/missing.wav", Beats: []float64{0.5, 1.0}},
	}
	path := filepath.Join(dir, "tracks.jsonl")
	if err := dataset.SaveTable(path, tracks); err != nil {
		t.Fatalf("Failed to save table: %v", err)
	}
	return path
}

func referenceEstimates(t *testing.T, table string) map[string][]float64 {
	t.Helper()
	ds, err := dataset.NewLoader(table).Open(0)
	if err != nil {
		t.Fatalf("Failed to open table: %v", err)
	}
	estimates := make(map[string][]float64)
	for _, track := range ds.Tracks() {
		estimates[track.ID] = track.Beats
	}
	return estimates
}

func saveReferenceEstimates(t *testing.T, estimates map[string][]float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "estimates.json")
	if err := resultsutil.SaveEstimates(path, estimates); err != nil {
		t.Fatalf("Failed to save estimates: %v", err)
	}
	return path
}

// expectContains reports each want missing from out.
func expectContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("Expected output to contain %q, got:\n%s", w, out)
		}
	}
}

func TestExecuteRun(t *testing.T) {
	table := writeTable(t)
	outDir := filepath.Join(t.TempDir(), "evals")

	opts := runOptions{
		datasetFlags:  datasetFlags{DataHome: table},
		analysisFlags: analysisFlags{HopLength: 512},
		Concurrency:   2,
		OutputDir:     outDir,
	}

	agg, err := executeRun(context.Background(), opts)
	if err != nil {
		t.Fatalf("executeRun failed: %v", err)
	}

	if agg.TotalTracks != 3 || agg.SuccessCount != 2 || agg.FailureCount != 1 {
		t.Errorf("Expected 3 tracks with 2 successes and 1 failure, got %d, %d, %d",
			agg.TotalTracks, agg.SuccessCount, agg.FailureCount)
	}
	if agg.HopLength != 512 {
		t.Errorf("Expected hop length 512, got %d", agg.HopLength)
	}

	// Results keep dataset order regardless of worker scheduling
	if len(agg.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(agg.Results))
	}
	for i, id := range []string{"rock.00000", "jazz.00000", "rock.00001"} {
		if agg.Results[i].TrackID != id {
			t.Errorf("Expected result %d to be %s, got %s", i, id, agg.Results[i].TrackID)
		}
	}
	if agg.Results[0].Genre != "rock" {
		t.Errorf("Expected genre rock, got %s", agg.Results[0].Genre)
	}
	if !strings.Contains(agg.Results[2].Error, "Beat estimation failed") {
		t.Errorf("Expected estimation failure, got %q", agg.Results[2].Error)
	}
	if agg.Results[0].Evaluation == nil {
		t.Fatal("Expected an evaluation for rock.00000")
	}
	if n := agg.Results[0].Evaluation.Reference; n != 11 {
		t.Errorf("Expected 11 reference beats, got %d", n)
	}

	for _, name := range []string{resultsFile, reportFile, scoresFile, estimatesFile} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("Expected %s to be written: %v", name, err)
		}
	}
	specs, err := filepath.Glob(filepath.Join(outDir, "evals", "*.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 1 {
		t.Errorf("Expected 1 evaluation spec, got %d", len(specs))
	}

	estimates, err := resultsutil.LoadEstimates(filepath.Join(outDir, estimatesFile))
	if err != nil {
		t.Fatalf("LoadEstimates failed: %v", err)
	}
	if len(estimates) != 2 {
		t.Errorf("Expected 2 estimates, got %d", len(estimates))
	}
	if !slices.Equal(estimates["rock.00000"], agg.Results[0].EstimatedBeats) {
		t.Errorf("Expected saved estimate %v, got %v", agg.Results[0].EstimatedBeats, estimates["rock.00000"])
	}
}

func TestExecuteRunEmptyDataset(t *testing.T) {
	table := writeTable(t)
	opts := runOptions{
		datasetFlags: datasetFlags{DataHome: table, Genres: []string{"blues"}},
		OutputDir:    t.TempDir(),
	}

	if _, err := executeRun(context.Background(), opts); err == nil {
		t.Error("Expected error for a dataset with no tracks")
	}
}

func TestExecuteRunCancelled(t *testing.T) {
	table := writeTable(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := runOptions{
		datasetFlags: datasetFlags{DataHome: table},
		OutputDir:    t.TempDir(),
	}
	_, err := executeRun(ctx, opts)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestExecuteScore(t *testing.T) {
	table := writeTable(t)
	estimatesPath := saveReferenceEstimates(t, referenceEstimates(t, table))

	var buf bytes.Buffer
	if err := executeScore(&buf, datasetFlags{DataHome: table}, estimatesPath, "csv"); err != nil {
		t.Fatalf("executeScore failed: %v", err)
	}

	expected := "track_id,genre,tempo,f_measure\n" +
		"rock.00000,rock,120.00,1.0000\n" +
		"jazz.00000,jazz,80.00,1.0000\n" +
		"rock.00001,rock,110.00,1.0000\n"
	if buf.String() != expected {
		t.Errorf("Expected:\n%s\ngot:\n%s", expected, buf.String())
	}

	buf.Reset()
	if err := executeScore(&buf, datasetFlags{DataHome: table}, estimatesPath, "text"); err != nil {
		t.Fatalf("executeScore failed: %v", err)
	}
	expectContains(t, buf.String(),
		"BEAT F-MEASURE",
		"rock         n=2    mean=1.000",
		"Overall: n=3 mean=1.000")

	if err := executeScore(&buf, datasetFlags{DataHome: table}, estimatesPath, "xml"); err == nil {
		t.Error("Expected error for an unknown format")
	}
}

func TestExecuteScoreMissingEstimate(t *testing.T) {
	table := writeTable(t)
	estimates := referenceEstimates(t, table)
	delete(estimates, "jazz.00000")
	estimatesPath := saveReferenceEstimates(t, estimates)

	var buf bytes.Buffer
	err := executeScore(&buf, datasetFlags{DataHome: table}, estimatesPath, "csv")
	if !errors.Is(err, metrics.ErrMissingEstimate) {
		t.Errorf("Expected ErrMissingEstimate, got %v", err)
	}

	// Restricting to the estimated genre succeeds
	err = executeScore(&buf, datasetFlags{DataHome: table, Genres: []string{"rock"}}, estimatesPath, "csv")
	if err != nil {
		t.Errorf("Expected rock-only scoring to succeed, got %v", err)
	}
}

func TestExecuteReport(t *testing.T) {
	results := []metrics.EvaluationResult{
		{
			TrackID:        "rock.00000",
			Genre:          "rock",
			Tempo:          120,
			EstimatedBeats: []float64{0.5, 1.0},
			Evaluation:     &metrics.Evaluation{FMeasure: 1, Precision: 1, Recall: 1, Matched: 2, Reference: 2, Estimated: 2},
		},
		{TrackID: "rock.00001", Genre: "rock", Tempo: 110, Error: "Beat estimation failed: no audio"},
	}
	agg := metrics.AggregateEvaluationResults(results, "gtzan_genre", "mini", 512)

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "results.json")
	if err := agg.SaveToJSON(jsonPath); err != nil {
		t.Fatalf("SaveToJSON failed: %v", err)
	}
	parquetPath := filepath.Join(dir, "scores.parquet")
	if err := resultsutil.SaveScoresParquet(parquetPath, results); err != nil {
		t.Fatalf("SaveScoresParquet failed: %v", err)
	}

	var buf bytes.Buffer
	if err := executeReport(&buf, jsonPath, "text"); err != nil {
		t.Fatalf("text report failed: %v", err)
	}
	expectContains(t, buf.String(),
		"Detailed Results:",
		"[1] Track: rock.00000 (rock, 120.0 BPM)",
		"Error: Beat estimation failed: no audio",
		"First beats: 0.50, 1.00")

	buf.Reset()
	if err := executeReport(&buf, jsonPath, "json"); err != nil {
		t.Fatalf("json report failed: %v", err)
	}
	var decoded metrics.AggregateResults
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Failed to decode json report: %v", err)
	}
	if decoded.TotalTracks != 2 {
		t.Errorf("Expected 2 tracks, got %d", decoded.TotalTracks)
	}

	buf.Reset()
	if err := executeReport(&buf, parquetPath, "csv"); err != nil {
		t.Fatalf("csv report failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "rock.00000,rock,120.00,1.0000") {
		t.Errorf("Unexpected first row: %s", lines[1])
	}
	if !strings.HasPrefix(lines[2], "rock.00001,rock,110.00,0,0,0") {
		t.Errorf("Unexpected failed row: %s", lines[2])
	}

	if err := executeReport(&buf, jsonPath, "xml"); err == nil {
		t.Error("Expected error for an unknown format")
	}
	if err := executeReport(&buf, filepath.Join(dir, "missing.json"), "text"); err == nil {
		t.Error("Expected error for a missing results file")
	}
}

func TestExecuteInspect(t *testing.T) {
	table := writeTable(t)

	var buf bytes.Buffer
	err := executeInspect(context.Background(), &buf, strings.NewReader(""), datasetFlags{DataHome: table}, false, true)
	if err != nil {
		t.Fatalf("executeInspect failed: %v", err)
	}
	expectContains(t, buf.String(),
		"Loaded 3 tracks",
		"TRACK 1/3",
		"ID:             rock.00000",
		"Tempo:          120.00 BPM",
		"Beat count:     11",
		"(120.0 BPM implied)",
		"REFERENCE BEATS:")

	buf.Reset()
	err = executeInspect(context.Background(), &buf, strings.NewReader("\n\n\n"), datasetFlags{DataHome: table}, true, false)
	if err != nil {
		t.Fatalf("interactive executeInspect failed: %v", err)
	}
	if n := strings.Count(buf.String(), "Press Enter"); n != 3 {
		t.Errorf("Expected 3 prompts, got %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	buf.Reset()
	err = executeInspect(ctx, &buf, strings.NewReader(""), datasetFlags{DataHome: table}, true, false)
	if err != nil {
		t.Fatalf("cancelled executeInspect failed: %v", err)
	}
	expectContains(t, buf.String(), "Inspection interrupted.")
	if strings.Contains(buf.String(), "TRACK 1/3") {
		t.Error("Expected no tracks after cancellation")
	}
}

func TestExecuteNoveltyActivation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.act")
	writeFile(t, path, []byte("0.1\n# frame activations\n0.5\n\n3,0.2\n"))

	var buf bytes.Buffer
	if err := executeNovelty(&buf, datasetFlags{}, analysisFlags{}, "", path, 100); err != nil {
		t.Fatalf("executeNovelty failed: %v", err)
	}

	expected := "time,activation\n" +
		"0.000000,0.1\n" +
		"0.010000,0.5\n" +
		"0.020000,0.2\n"
	if buf.String() != expected {
		t.Errorf("Expected:\n%s\ngot:\n%s", expected, buf.String())
	}
}

func TestExecuteNoveltyTrack(t *testing.T) {
	table := writeTable(t)

	var buf bytes.Buffer
	err := executeNovelty(&buf, datasetFlags{DataHome: table}, analysisFlags{HopLength: 512}, "rock.00000", "", 0)
	if err != nil {
		t.Fatalf("executeNovelty failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "time,novelty,pulse" {
		t.Errorf("Expected CSV header, got %s", lines[0])
	}
	if len(lines) <= 200 {
		t.Fatalf("Expected more than 200 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], "0.000000,") {
		t.Errorf("Expected first frame at 0s, got %s", lines[1])
	}
	if !strings.HasPrefix(lines[2], "0.023220,") {
		t.Errorf("Expected second frame at hop/sr, got %s", lines[2])
	}

	err = executeNovelty(&buf, datasetFlags{DataHome: table}, analysisFlags{HopLength: 512}, "blues.00000", "", 0)
	if !errors.Is(err, dataset.ErrTrackNotFound) {
		t.Errorf("Expected ErrTrackNotFound, got %v", err)
	}
}

func TestReadActivationErrors(t *testing.T) {
	if _, err := readActivation(filepath.Join(t.TempDir(), "missing.act")); err == nil {
		t.Error("Expected error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.act")
	writeFile(t, path, []byte("0.1\nnot-a-number\n"))
	_, err := readActivation(path)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Expected error on line 2, got %v", err)
	}
}

func TestExecuteSonify(t *testing.T) {
	table := writeTable(t)
	estimatesPath := saveReferenceEstimates(t, referenceEstimates(t, table))
	outDir := t.TempDir()

	previews, err := executeSonify(datasetFlags{DataHome: table}, analysisFlags{}, "jazz.00000", estimatesPath, outDir)
	if err != nil {
		t.Fatalf("executeSonify failed: %v", err)
	}
	if expected := filepath.Join(outDir, "jazz.00000_estimated.wav"); previews.Estimated != expected {
		t.Errorf("Expected %s, got %s", expected, previews.Estimated)
	}

	sig, err := audio.Decode(previews.Reference)
	if err != nil {
		t.Fatalf("Failed to decode reference preview: %v", err)
	}
	if sig.SampleRate != testSampleRate {
		t.Errorf("Expected sample rate %d, got %d", testSampleRate, sig.SampleRate)
	}

	if _, err := executeSonify(datasetFlags{DataHome: table}, analysisFlags{}, "blues.00000", estimatesPath, outDir); err == nil {
		t.Error("Expected error for an unknown track")
	}
}

func TestExecuteIndexAndValidate(t *testing.T) {
	home := t.TempDir()
	writeClickTrain(t, filepath.Join(home, "genres", "rock", "rock.00000.wav"), 0.5, 2)
	writeClickTrain(t, filepath.Join(home, "genres", "jazz", "jazz.00000.wav"), 0.75, 2)
	annotations := map[string]string{
		"gtzan_tempo_beat-main/beats/gtzan_rock_00000.beats": "0.5\t1\n1.0\t2\n1.5\t3\n",
		"gtzan_tempo_beat-main/tempo/gtzan_rock_00000.bpm":   "120\n",
		"gtzan_tempo_beat-main/tempo/gtzan_jazz_00000.bpm":   "80\n",
	}
	for rel, content := range annotations {
		writeFile(t, filepath.Join(home, rel), []byte(content))
	}

	flags := datasetFlags{DataHome: home, Name: "gtzan_genre", Version: "1.0"}

	var buf bytes.Buffer
	if err := executeIndex(&buf, flags); err != nil {
		t.Fatalf("executeIndex failed: %v", err)
	}
	expectContains(t, buf.String(), "Indexed 2 tracks (1 with beat annotations)")

	buf.Reset()
	if err := executeValidate(&buf, flags); err != nil {
		t.Fatalf("executeValidate failed: %v", err)
	}
	expectContains(t, buf.String(), "is valid (2 tracks)")

	writeFile(t, filepath.Join(home, "genres", "jazz", "jazz.00000.wav"), []byte("changed"))
	buf.Reset()
	if err := executeValidate(&buf, flags); err == nil {
		t.Error("Expected validation to fail after a checksum change")
	}
	expectContains(t, buf.String(), "checksum mismatch")

	beatsPath := filepath.Join(home, "gtzan_tempo_beat-main/beats/gtzan_rock_00000.beats")
	if err := os.Remove(beatsPath); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	err := executeValidate(&buf, flags)
	if err == nil {
		t.Fatal("Expected validation to fail with a missing annotation")
	}
	expectContains(t, buf.String(), "missing: "+beatsPath)
	expectContains(t, err.Error(), "1 missing, 1 invalid")
}

func TestFormatBeats(t *testing.T) {
	tests := []struct {
		beats  []float64
		maxLen int
		want   string
	}{
		{nil, 4, ""},
		{[]float64{0.5, 1.0}, 4, "0.50, 1.00"},
		{[]float64{0.5, 1.0, 1.5}, 2, "0.50, 1.00, ..."},
	}

	for _, tt := range tests {
		got := formatBeats(tt.beats, tt.maxLen)
		if got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}
