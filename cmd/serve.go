package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/beatbench/internal/audio"
	"github.com/lehigh-university-libraries/beatbench/internal/beat"
	"github.com/lehigh-university-libraries/beatbench/internal/config"
	"github.com/lehigh-university-libraries/beatbench/internal/dataset"
	"github.com/lehigh-university-libraries/beatbench/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string
	var dataHome string
	var hopLength int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a web server for browsing tracks and estimating beats",
		Long: `Starts a JSON API over a dataset on the specified port.

Tracks can be listed and estimated one at a time, estimates are scored against
the reference beats as they accumulate, and arbitrary audio files can be
uploaded for beat estimation.

  GET    /api/tracks                 list tracks (?genre= filters)
  GET    /api/tracks/{id}            reference and estimated beats
  POST   /api/tracks/{id}/estimate   estimate and score a track
  GET    /api/scores                 F-measure summary of estimated tracks
  GET    /api/estimates              estimated beats by id
  POST   /api/upload                 estimate beats of an uploaded file`,
		Example: `  # Start server on default port 8888
  beatbench serve

  # Serve a track table on a custom port
  beatbench serve --data-home tracks.jsonl --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if dataHome == "" {
				dataHome = cfg.DataHome
			}
			if hopLength <= 0 {
				hopLength = cfg.HopLength
			}

			var ds *dataset.Dataset
			var err error
			if dataset.IsTable(dataHome) {
				ds, err = dataset.NewLoader(dataHome).Open(0)
			} else {
				ds, err = dataset.Load(cfg.Dataset, dataHome, cfg.Version)
			}
			if err != nil {
				return fmt.Errorf("failed to load dataset: %w", err)
			}

			estimator := beat.NewEstimator(hopLength)
			estimator.Decoder = &audio.Decoder{FFmpegBin: cfg.FFmpegBin, FFprobeBin: cfg.FFprobeBin}
			handler := handlers.New(ds, estimator, "uploads")

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/tracks", handler.HandleTracks)
			mux.HandleFunc("/api/tracks/", handler.HandleTrackDetail)
			mux.HandleFunc("/api/scores", handler.HandleScores)
			mux.HandleFunc("/api/estimates", handler.HandleEstimates)
			mux.HandleFunc("/api/upload", handler.HandleUpload)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Beatbench API available", "addr", addr, "tracks", ds.Len(), "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&dataHome, "data-home", "", "Dataset root or track table (env BEATBENCH_DATA_HOME)")
	cmd.Flags().IntVar(&hopLength, "hop", 0, "Analysis hop length in samples (env BEATBENCH_HOP_LENGTH)")

	return cmd
}
