package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds runtime configuration, loaded from environment variables.
// A .env file in the working directory is loaded into the environment by the
// root command before Load runs.
type Config struct {
	// Dataset selection
	DataHome string
	Dataset  string
	Version  string

	// Analysis
	HopLength   int
	Concurrency int // tracks estimated in parallel

	// External decoders for non-WAV audio
	FFmpegBin  string
	FFprobeBin string

	// Output directory for results and previews
	OutputDir string

	// Bearer token sent when downloading dataset remotes
	DownloadToken string
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		DataHome: envStr("BEATBENCH_DATA_HOME", defaultDataHome()),
		Dataset:  envStr("BEATBENCH_DATASET", "gtzan_genre"),
		Version:  envStr("BEATBENCH_VERSION", "mini"),

		HopLength:   envInt("BEATBENCH_HOP_LENGTH", 512),
		Concurrency: envInt("BEATBENCH_CONCURRENCY", 1),

		FFmpegBin:  envStr("BEATBENCH_FFMPEG", "ffmpeg"),
		FFprobeBin: envStr("BEATBENCH_FFPROBE", "ffprobe"),

		OutputDir: envStr("BEATBENCH_OUTPUT", "evals"),

		DownloadToken: envStr("BEATBENCH_DOWNLOAD_TOKEN", ""),
	}
}

func defaultDataHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mir_datasets"
	}
	return filepath.Join(home, "mir_datasets", "gtzan_genre")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
