package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-insight/internal/pipeline"
)

var (
	consolidateUser  string
	consolidateForce bool
	consolidateModel string
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate <analysis-id>",
	Short: "Consolidate answers into insights and readiness flags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, st, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		summary, err := p.Consolidate(ctx, args[0], consolidateUser, pipeline.ConsolidateOptions{
			Force: consolidateForce,
			Model: consolidateModel,
		})
		if err != nil {
			return err
		}

		zap.L().Info("consolidation complete",
			zap.String("analysis_id", args[0]),
			zap.Int("insights", len(summary.ConsolidatedInsights)),
			zap.Strings("next_steps_ready", summary.Readiness.ReadySteps()),
		)
		return printJSON(summary)
	},
}

func init() {
	consolidateCmd.Flags().StringVar(&consolidateUser, "user", "", "user ID whose answers to consolidate (required)")
	consolidateCmd.Flags().BoolVar(&consolidateForce, "force", false, "regenerate even when a cached summary exists")
	consolidateCmd.Flags().StringVar(&consolidateModel, "model", "", "model override")
	_ = consolidateCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(consolidateCmd)
}
