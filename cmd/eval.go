package cmd

import (
	"github.com/lehigh-university-libraries/beatbench/internal/evalcmd"
	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Beat tracking evaluation tools",
		Long: `Evaluation tools for measuring beat tracking accuracy against annotated datasets.

Supports downloading and indexing datasets, running the beat estimator over a
dataset, scoring precomputed estimates, inspecting annotations, rendering click
track previews, and generating detailed reports.`,
	}

	// Add eval subcommands
	cmd.AddCommand(evalcmd.NewDownloadCmd())
	cmd.AddCommand(evalcmd.NewIndexCmd())
	cmd.AddCommand(evalcmd.NewValidateCmd())
	cmd.AddCommand(evalcmd.NewRunCmd())
	cmd.AddCommand(evalcmd.NewScoreCmd())
	cmd.AddCommand(evalcmd.NewReportCmd())
	cmd.AddCommand(evalcmd.NewInspectCmd())
	cmd.AddCommand(evalcmd.NewNoveltyCmd())
	cmd.AddCommand(evalcmd.NewSonifyCmd())

	return cmd
}
