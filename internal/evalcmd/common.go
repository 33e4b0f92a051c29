package evalcmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/beatbench/internal/audio"
	"github.com/lehigh-university-libraries/beatbench/internal/beat"
	"github.com/lehigh-university-libraries/beatbench/internal/config"
	"github.com/lehigh-university-libraries/beatbench/internal/dataset"
	"github.com/spf13/cobra"
)

// datasetFlags selects the tracks a command works on. DataHome is either a
// data home holding an index, or a .jsonl/.parquet track table.
type datasetFlags struct {
	DataHome string
	Name     string
	Version  string
	Sample   int
	Genres   []string
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.DataHome, "data-home", "", "Dataset root or track table (.jsonl/.parquet) (env BEATBENCH_DATA_HOME)")
	cmd.Flags().StringVar(&f.Name, "dataset", "", "Dataset name (env BEATBENCH_DATASET, default gtzan_genre)")
	cmd.Flags().StringVar(&f.Version, "dataset-version", "", "Dataset version (env BEATBENCH_VERSION, default mini)")
	cmd.Flags().IntVar(&f.Sample, "sample", 0, "Number of tracks to use (0 for all)")
	cmd.Flags().StringSliceVar(&f.Genres, "genre", nil, "Only use tracks of these genres")
}

func (f *datasetFlags) applyDefaults(cfg config.Config) {
	if f.DataHome == "" {
		f.DataHome = cfg.DataHome
	}
	if f.Name == "" {
		f.Name = cfg.Dataset
	}
	if f.Version == "" {
		f.Version = cfg.Version
	}
}

// open loads the selected tracks.
func (f *datasetFlags) open() (*dataset.Dataset, error) {
	var ds *dataset.Dataset
	var err error
	if dataset.IsTable(f.DataHome) {
		slog.Info("Loading track table", "path", f.DataHome)
		ds, err = dataset.NewLoader(f.DataHome).Open(0)
	} else {
		slog.Info("Loading dataset", "dataset", f.Name, "version", f.Version, "data_home", f.DataHome)
		ds, err = dataset.Load(f.Name, f.DataHome, f.Version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	ds = ds.FilterGenres(f.Genres...).Sample(f.Sample)
	slog.Info("Dataset loaded", "tracks", ds.Len())
	return ds, nil
}

// analysisFlags configures the beat estimator.
type analysisFlags struct {
	HopLength  int
	FFmpegBin  string
	FFprobeBin string
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.HopLength, "hop", 0, "Analysis hop length in samples (env BEATBENCH_HOP_LENGTH, default 512)")
	cmd.Flags().StringVar(&f.FFmpegBin, "ffmpeg", "", "ffmpeg binary for non-WAV audio (env BEATBENCH_FFMPEG)")
	cmd.Flags().StringVar(&f.FFprobeBin, "ffprobe", "", "ffprobe binary for non-WAV audio (env BEATBENCH_FFPROBE)")
}

func (f *analysisFlags) applyDefaults(cfg config.Config) {
	if f.HopLength <= 0 {
		f.HopLength = cfg.HopLength
	}
	if f.FFmpegBin == "" {
		f.FFmpegBin = cfg.FFmpegBin
	}
	if f.FFprobeBin == "" {
		f.FFprobeBin = cfg.FFprobeBin
	}
}

func (f *analysisFlags) decoder() *audio.Decoder {
	return &audio.Decoder{
		FFmpegBin:  f.FFmpegBin,
		FFprobeBin: f.FFprobeBin,
	}
}

func (f *analysisFlags) estimator() *beat.Estimator {
	e := beat.NewEstimator(f.HopLength)
	e.Decoder = f.decoder()
	return e
}

func setupLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
