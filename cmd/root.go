package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "beatbench",
		Short: "Beat tracking estimation and evaluation for annotated music datasets",
		Long: `Beatbench estimates beat positions in music recordings and scores them
against human beat annotations.

It loads annotated datasets such as GTZAN, estimates beats with a spectral flux
novelty curve and a predominant local pulse, scores estimates with the beat
F-measure, and breaks results down by genre and tempo.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newEvalCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
