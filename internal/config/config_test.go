package config

import (
	"os"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might interfere
	envVars := []string{
		"BEATBENCH_DATA_HOME", "BEATBENCH_DATASET", "BEATBENCH_VERSION",
		"BEATBENCH_HOP_LENGTH", "BEATBENCH_CONCURRENCY",
		"BEATBENCH_FFMPEG", "BEATBENCH_FFPROBE", "BEATBENCH_OUTPUT",
		"BEATBENCH_DOWNLOAD_TOKEN",
	}
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg := Load()

	if !strings.HasSuffix(cfg.DataHome, "gtzan_genre") {
		t.Errorf("DataHome = %q, want default under mir_datasets", cfg.DataHome)
	}
	if cfg.Dataset != "gtzan_genre" {
		t.Errorf("Dataset = %q, want gtzan_genre", cfg.Dataset)
	}
	if cfg.Version != "mini" {
		t.Errorf("Version = %q, want mini", cfg.Version)
	}
	if cfg.HopLength != 512 {
		t.Errorf("HopLength = %d, want 512", cfg.HopLength)
	}
	if cfg.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", cfg.Concurrency)
	}
	if cfg.FFmpegBin != "ffmpeg" || cfg.FFprobeBin != "ffprobe" {
		t.Errorf("decoders = %q/%q, want ffmpeg/ffprobe", cfg.FFmpegBin, cfg.FFprobeBin)
	}
	if cfg.OutputDir != "evals" {
		t.Errorf("OutputDir = %q, want evals", cfg.OutputDir)
	}
	if cfg.DownloadToken != "" {
		t.Errorf("DownloadToken = %q, want empty default", cfg.DownloadToken)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BEATBENCH_DATA_HOME", "/data/gtzan")
	t.Setenv("BEATBENCH_DATASET", "other")
	t.Setenv("BEATBENCH_VERSION", "1.0")
	t.Setenv("BEATBENCH_HOP_LENGTH", "256")
	t.Setenv("BEATBENCH_CONCURRENCY", "8")
	t.Setenv("BEATBENCH_FFMPEG", "/opt/ffmpeg")
	t.Setenv("BEATBENCH_FFPROBE", "/opt/ffprobe")
	t.Setenv("BEATBENCH_OUTPUT", "/tmp/out")
	t.Setenv("BEATBENCH_DOWNLOAD_TOKEN", "secret")

	cfg := Load()

	if cfg.DataHome != "/data/gtzan" {
		t.Errorf("DataHome = %q, want /data/gtzan", cfg.DataHome)
	}
	if cfg.Dataset != "other" {
		t.Errorf("Dataset = %q, want other", cfg.Dataset)
	}
	if cfg.Version != "1.0" {
		t.Errorf("Version = %q, want 1.0", cfg.Version)
	}
	if cfg.HopLength != 256 {
		t.Errorf("HopLength = %d, want 256", cfg.HopLength)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Concurrency)
	}
	if cfg.FFmpegBin != "/opt/ffmpeg" || cfg.FFprobeBin != "/opt/ffprobe" {
		t.Errorf("decoders = %q/%q", cfg.FFmpegBin, cfg.FFprobeBin)
	}
	if cfg.OutputDir != "/tmp/out" {
		t.Errorf("OutputDir = %q, want /tmp/out", cfg.OutputDir)
	}
	if cfg.DownloadToken != "secret" {
		t.Errorf("DownloadToken = %q, want secret", cfg.DownloadToken)
	}
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("BEATBENCH_HOP_LENGTH", "lots")
	t.Setenv("BEATBENCH_CONCURRENCY", "")

	cfg := Load()

	if cfg.HopLength != 512 {
		t.Errorf("HopLength = %d, want fallback 512", cfg.HopLength)
	}
	if cfg.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want fallback 1", cfg.Concurrency)
	}
}
