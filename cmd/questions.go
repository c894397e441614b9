package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-insight/internal/pipeline"
)

var (
	questionsMax       int
	questionsCats      []string
	questionsAIAnswers bool
	questionsModel     string
	questionsUser      string
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Manage follow-up questions for an analysis",
}

var questionsGenerateCmd = &cobra.Command{
	Use:   "generate <analysis-id>",
	Short: "Generate follow-up questions for a completed analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, st, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		questions, err := p.GenerateQuestions(ctx, args[0], pipeline.QuestionOptions{
			MaxQuestions:      questionsMax,
			Categories:        questionsCats,
			GenerateAIAnswers: questionsAIAnswers,
			Model:             questionsModel,
		})
		if err != nil {
			return err
		}

		zap.L().Info("questions generated",
			zap.String("analysis_id", args[0]),
			zap.Int("count", len(questions)),
		)
		return printJSON(questions)
	},
}

var questionsListCmd = &cobra.Command{
	Use:   "list <analysis-id>",
	Short: "List questions with answer statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, st, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		questions, stats, err := p.QuestionOverview(ctx, args[0], questionsUser)
		if err != nil {
			return err
		}

		return printJSON(map[string]any{
			"questions":  questions,
			"statistics": stats,
		})
	},
}

var questionsDeleteCmd = &cobra.Command{
	Use:   "delete <analysis-id>",
	Short: "Delete all questions for an analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, st, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		deleted, err := p.DeleteQuestions(ctx, args[0])
		if err != nil {
			return err
		}

		zap.L().Info("questions deleted",
			zap.String("analysis_id", args[0]),
			zap.Int("count", deleted),
		)
		return nil
	},
}

func init() {
	questionsGenerateCmd.Flags().IntVar(&questionsMax, "max", 0, "maximum questions to generate")
	questionsGenerateCmd.Flags().StringSliceVar(&questionsCats, "categories", nil, "category hints for generation")
	questionsGenerateCmd.Flags().BoolVar(&questionsAIAnswers, "ai-answers", true, "persist engine-suggested answers")
	questionsGenerateCmd.Flags().StringVar(&questionsModel, "model", "", "model override")
	questionsListCmd.Flags().StringVar(&questionsUser, "user", "", "user ID for answer statistics")
	questionsCmd.AddCommand(questionsGenerateCmd, questionsListCmd, questionsDeleteCmd)
	rootCmd.AddCommand(questionsCmd)
}
