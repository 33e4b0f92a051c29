package evalcmd

import (
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/beatbench/internal/config"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command for estimating and scoring beats over a dataset
func NewRunCmd() *cobra.Command {
	var opts runOptions
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Estimate beats for a dataset and score them against the annotations",
		Long: `Estimate beat positions for every selected track with the spectral flux
novelty and predominant local pulse pipeline, then score each estimate against
the reference beats with the beat F-measure (70 ms window).

A track whose audio cannot be decoded is recorded as a failure and the run
continues. Results are written to the output directory as results.json,
report.txt, scores.parquet, estimates.json and an evals/*.yaml spec.`,
		Example: `  # Evaluate the mini version of GTZAN
  beatbench eval run --data-home ~/mir_datasets/gtzan_genre

  # Evaluate 20 rock and jazz tracks with 4 workers
  beatbench eval run --genre rock,jazz --sample 20 --concurrency 4 --verbose

  # Evaluate tracks listed in a table
  beatbench eval run --data-home ./tracks.parquet --hop 256`,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose)

			cfg := config.Load()
			opts.datasetFlags.applyDefaults(cfg)
			opts.analysisFlags.applyDefaults(cfg)
			if opts.Concurrency <= 0 {
				opts.Concurrency = cfg.Concurrency
			}
			if opts.OutputDir == "" {
				opts.OutputDir = cfg.OutputDir
			}

			_, err := executeRun(cmd.Context(), opts)
			return err
		},
	}

	opts.datasetFlags.register(cmd)
	opts.analysisFlags.register(cmd)
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Tracks to estimate in parallel (env BEATBENCH_CONCURRENCY, default 1)")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "", "Output directory (env BEATBENCH_OUTPUT, default evals)")
	cmd.Flags().BoolVar(&opts.Progress, "progress", true, "Show a progress bar")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	return cmd
}

// NewScoreCmd creates the score command for evaluating precomputed estimates
func NewScoreCmd() *cobra.Command {
	var flags datasetFlags
	var estimatesPath string
	var format string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score precomputed beat estimates against the annotations",
		Long: `Score a JSON file of estimated beat times keyed by track id, such as the
estimates.json written by eval run or the output of another beat tracker.

Every selected track must have an estimate. Scores are broken down by genre
and paired with the annotated tempo.`,
		Example: `  # Score the estimates of an earlier run
  beatbench eval score --estimates evals/estimates.json

  # Export per-track scores as CSV
  beatbench eval score --estimates madmom.json --format csv > scores.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose)
			flags.applyDefaults(config.Load())

			if _, err := os.Stat(estimatesPath); os.IsNotExist(err) {
				return fmt.Errorf("estimates file not found: %s", estimatesPath)
			}
			return executeScore(cmd.OutOrStdout(), flags, estimatesPath, format)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&estimatesPath, "estimates", "", "JSON file of estimated beats keyed by track id (required)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, csv)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	_ = cmd.MarkFlagRequired("estimates")
	return cmd
}

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	var resultsPath string
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a report of a previous evaluation run",
		Long: `Print a report from the results.json or scores.parquet written by eval run.

Formats: text (summary plus per-track details), json, csv.`,
		Example: `  beatbench eval report --results evals/results.json
  beatbench eval report --results evals/scores.parquet --format csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if resultsPath == "" {
				resultsPath = config.Load().OutputDir + "/" + resultsFile
			}
			return executeReport(cmd.OutOrStdout(), resultsPath, format)
		},
	}

	cmd.Flags().StringVar(&resultsPath, "results", "", "Path to results.json or scores.parquet")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, csv)")

	return cmd
}

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var flags datasetFlags
	var interactive bool
	var showBeats bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect dataset tracks and their annotations",
		Long: `List tracks with their genre, annotated tempo and reference beats.

Useful for checking that a data home or track table loads as expected before
running an evaluation.`,
		Example: `  # Inspect the first 5 tracks interactively
  beatbench eval inspect --sample 5 --interactive

  # Show reference beat times for jazz tracks
  beatbench eval inspect --genre jazz --beats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.applyDefaults(config.Load())
			return executeInspect(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), flags, interactive, showBeats)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Pause after each track (press Enter to continue)")
	cmd.Flags().BoolVar(&showBeats, "beats", false, "Show reference beat times")

	return cmd
}

// NewNoveltyCmd creates the novelty command
func NewNoveltyCmd() *cobra.Command {
	var flags datasetFlags
	var analysis analysisFlags
	var trackID string
	var activationPath string
	var rate float64

	cmd := &cobra.Command{
		Use:   "novelty",
		Short: "Write a track's novelty curve with its time axis as CSV",
		Long: `Compute the spectral flux novelty and pulse curves of one track and write
them with their time axis (frame * hop / sample rate) as CSV.

With --activation, read a frame-wise activation curve from a file instead and
give it a fixed-rate time axis (frame / rate).`,
		Example: `  beatbench eval novelty --track blues.00000 > blues.csv
  beatbench eval novelty --activation blues.00000.act --rate 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if trackID == "" && activationPath == "" {
				return fmt.Errorf("--track or --activation is required")
			}
			cfg := config.Load()
			flags.applyDefaults(cfg)
			analysis.applyDefaults(cfg)
			return executeNovelty(cmd.OutOrStdout(), flags, analysis, trackID, activationPath, rate)
		},
	}

	flags.register(cmd)
	analysis.register(cmd)
	cmd.Flags().StringVar(&trackID, "track", "", "Track id")
	cmd.Flags().StringVar(&activationPath, "activation", "", "Activation file, one value per frame")
	cmd.Flags().Float64Var(&rate, "rate", 100, "Frame rate of the activation file in Hz")

	return cmd
}

// NewSonifyCmd creates the sonify command
func NewSonifyCmd() *cobra.Command {
	var flags datasetFlags
	var analysis analysisFlags
	var trackID string
	var estimatesPath string
	var outputDir string

	cmd := &cobra.Command{
		Use:   "sonify",
		Short: "Render click tracks of estimated and reference beats over a track",
		Long: `Mix 1 kHz clicks into a track's audio at its estimated beats and, in a
second file, at its reference beats. Both files are 16-bit WAV at the track's
native sample rate and can be played with any audio player.`,
		Example: `  beatbench eval sonify --track rock.00003 --output previews
  beatbench eval sonify --track rock.00003 --estimates evals/estimates.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			flags.applyDefaults(cfg)
			analysis.applyDefaults(cfg)
			if outputDir == "" {
				outputDir = cfg.OutputDir + "/previews"
			}
			_, err := executeSonify(flags, analysis, trackID, estimatesPath, outputDir)
			return err
		},
	}

	flags.register(cmd)
	analysis.register(cmd)
	cmd.Flags().StringVar(&trackID, "track", "", "Track id (required)")
	cmd.Flags().StringVar(&estimatesPath, "estimates", "", "JSON file of estimated beats (estimates the track when empty)")
	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory for the previews")

	_ = cmd.MarkFlagRequired("track")
	return cmd
}

// NewIndexCmd creates the index command
func NewIndexCmd() *cobra.Command {
	var flags datasetFlags

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build a dataset index from a data home",
		Long: `Scan a data home laid out as genres/<genre>/*.wav with beat and tempo
annotations under gtzan_tempo_beat-main/, record every file with its md5
checksum, and write the index file for the selected version.`,
		Example: `  beatbench eval index --data-home ~/mir_datasets/gtzan_genre --dataset-version mini`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.applyDefaults(config.Load())
			return executeIndex(cmd.OutOrStdout(), flags)
		},
	}

	flags.register(cmd)
	return cmd
}

// NewValidateCmd creates the validate command
func NewValidateCmd() *cobra.Command {
	var flags datasetFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check dataset files against their index checksums",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.applyDefaults(config.Load())
			return executeValidate(cmd.OutOrStdout(), flags)
		},
	}

	flags.register(cmd)
	return cmd
}

// NewDownloadCmd creates the download command
func NewDownloadCmd() *cobra.Command {
	var flags datasetFlags
	var remotes []string
	var force bool
	var index bool

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download dataset files into the data home",
		Long: `Download the remote files of a dataset into the data home, unpacking
.zip and .tar.gz archives. Files already present are reused unless --force is
given.

For gtzan_genre the "audio" remote unpacks to genres/<genre>/*.wav and the
"annotations" remote to gtzan_tempo_beat-main/. With --index the index for the
selected version is written once both are in place.`,
		Example: `  # Fetch audio and annotations, then write the mini index
  beatbench eval download --data-home ~/mir_datasets/gtzan_genre --index

  # Refresh only the annotations
  beatbench eval download --remote annotations --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			flags.applyDefaults(cfg)
			return executeDownload(flags, cfg.DownloadToken, force, index, remotes)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringSliceVar(&remotes, "remote", nil, "Only download these remotes")
	cmd.Flags().BoolVar(&force, "force", false, "Download even if the file is cached")
	cmd.Flags().BoolVar(&index, "index", false, "Build the index after downloading")

	return cmd
}
