package evalcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/beatbench/internal/beat"
	"github.com/lehigh-university-libraries/beatbench/internal/dataset"
	"github.com/lehigh-university-libraries/beatbench/internal/eval/metrics"
	resultsutil "github.com/lehigh-university-libraries/beatbench/internal/eval/results"
	"github.com/lehigh-university-libraries/beatbench/internal/storage"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

type runOptions struct {
	datasetFlags
	analysisFlags
	Concurrency int
	OutputDir   string
	Progress    bool
}

// Output files written by eval run.
const (
	resultsFile   = "results.json"
	reportFile    = "report.txt"
	scoresFile    = "scores.parquet"
	estimatesFile = "estimates.json"
)

// trackOutcome is one worker's estimation of a track.
type trackOutcome struct {
	id       string
	duration time.Duration
	err      error
}

func executeRun(ctx context.Context, opts runOptions) (*metrics.AggregateResults, error) {
	slog.Info("Starting evaluation run",
		"data_home", opts.DataHome,
		"dataset", opts.Name,
		"version", opts.Version,
		"hop_length", opts.HopLength)

	ds, err := opts.open()
	if err != nil {
		return nil, err
	}

	if ds.Len() == 0 {
		return nil, fmt.Errorf("no tracks to evaluate in %s", opts.DataHome)
	}
	// mpb refuses new bars once its context is done
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluation interrupted: %w", err)
	}

	estimator := opts.estimator()
	store := storage.New()

	concurrency := max(opts.Concurrency, 1)
	slog.Info("Estimating beats", "tracks", ds.Len(), "concurrency", concurrency)

	// a nil output discards the bar
	var output io.Writer
	if opts.Progress {
		output = os.Stderr
	}
	p := mpb.NewWithContext(ctx, mpb.WithWidth(64), mpb.WithOutput(output))
	bar := p.AddBar(int64(ds.Len()),
		mpb.PrependDecorators(
			decor.Name("Estimating: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)
	outcomes := make(chan trackOutcome, ds.Len())

	for _, track := range ds.Tracks() {
		wg.Add(1)
		go func(track *dataset.Track) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			outcomes <- estimateTrack(ctx, estimator, store, track)
		}(track)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	byID := make(map[string]trackOutcome, ds.Len())
	for o := range outcomes {
		bar.Increment()
		byID[o.id] = o
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluation interrupted: %w", err)
	}

	// Evaluate in dataset order
	results := make([]metrics.EvaluationResult, 0, ds.Len())
	for _, track := range ds.Tracks() {
		results = append(results, evaluateTrack(track, byID[track.ID], store))
	}

	slog.Info("Aggregating results")
	aggregated := metrics.AggregateEvaluationResults(results, ds.Name, ds.Version, estimator.HopLength)

	aggregated.PrintSummary()

	saveRunOutputs(opts.OutputDir, aggregated, store)

	slog.Info("Evaluation complete")
	return aggregated, nil
}

// estimateTrack runs the estimator on one track and stores the estimate.
func estimateTrack(ctx context.Context, estimator *beat.Estimator, store *storage.EstimateStore, track *dataset.Track) trackOutcome {
	startTime := time.Now()
	outcome := trackOutcome{id: track.ID}

	if err := ctx.Err(); err != nil {
		outcome.err = err
		return outcome
	}

	res, err := estimator.Estimate(track.AudioPath)
	outcome.duration = time.Since(startTime)
	if err != nil {
		slog.Warn("Beat estimation failed", "track", track.ID, "error", err)
		outcome.err = err
		return outcome
	}

	store.Set(track.ID, res)
	slog.Debug("Track estimated", "track", track.ID, "beats", len(res.Beats), "elapsed", outcome.duration)
	return outcome
}

// evaluateTrack scores a track's estimate against its reference beats.
func evaluateTrack(track *dataset.Track, outcome trackOutcome, store *storage.EstimateStore) metrics.EvaluationResult {
	result := metrics.EvaluationResult{
		TrackID:        track.ID,
		Genre:          track.Genre,
		Tempo:          track.Tempo,
		ProcessingTime: outcome.duration,
	}

	if outcome.err != nil {
		result.Error = fmt.Sprintf("Beat estimation failed: %v", outcome.err)
		return result
	}

	res, ok := store.Get(track.ID)
	if !ok {
		result.Error = "no estimate recorded"
		return result
	}
	result.EstimatedBeats = res.Beats

	eval, err := metrics.CompareBeats(track.Beats, res.Beats)
	if err != nil {
		result.Error = fmt.Sprintf("Evaluation failed: %v", err)
		return result
	}
	result.Evaluation = eval

	slog.Info("Comparison complete",
		"track", track.ID,
		"f_measure", eval.FMeasure,
		"precision", eval.Precision,
		"recall", eval.Recall)

	return result
}

// saveRunOutputs writes every run artifact, warning rather than failing on errors.
func saveRunOutputs(outputDir string, aggregated *metrics.AggregateResults, store *storage.EstimateStore) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Printf("Warning: Failed to create output directory: %v\n", err)
		return
	}

	jsonPath := filepath.Join(outputDir, resultsFile)
	if err := aggregated.SaveToJSON(jsonPath); err != nil {
		fmt.Printf("Warning: Failed to save JSON results: %v\n", err)
	} else {
		fmt.Printf("\nResults saved to: %s\n", jsonPath)
	}

	reportPath := filepath.Join(outputDir, reportFile)
	if err := aggregated.SaveDetailedReport(reportPath); err != nil {
		fmt.Printf("Warning: Failed to save detailed report: %v\n", err)
	} else {
		fmt.Printf("Detailed report saved to: %s\n", reportPath)
	}

	scoresPath := filepath.Join(outputDir, scoresFile)
	if err := resultsutil.SaveScoresParquet(scoresPath, aggregated.Results); err != nil {
		fmt.Printf("Warning: Failed to save score table: %v\n", err)
	} else {
		fmt.Printf("Score table saved to: %s\n", scoresPath)
	}

	estimatesPath := filepath.Join(outputDir, estimatesFile)
	if err := resultsutil.SaveEstimates(estimatesPath, store.Beats()); err != nil {
		fmt.Printf("Warning: Failed to save estimates: %v\n", err)
	} else {
		fmt.Printf("Estimates saved to: %s\n", estimatesPath)
	}

	yamlPath, err := resultsutil.SaveToYAML(filepath.Join(outputDir, "evals"), aggregated)
	if err != nil {
		fmt.Printf("Warning: Failed to save YAML results: %v\n", err)
	} else {
		fmt.Printf("Evaluation spec saved to: %s\n", yamlPath)
	}

	fmt.Printf("\nGenerate a report with:\n")
	fmt.Printf("  beatbench eval report --results %s\n", jsonPath)
}
