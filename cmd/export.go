package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/rfp-insight/internal/model"
	"github.com/sells-group/rfp-insight/internal/report"
)

var (
	exportOut  string
	exportUser string
)

var exportCmd = &cobra.Command{
	Use:   "export <analysis-id>",
	Short: "Export an analysis workbook as XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		analysisID := args[0]

		// Export reads persisted data only, no engine needed.
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		rec, err := st.GetAnalysis(ctx, analysisID)
		if err != nil {
			return eris.Wrap(err, "load analysis")
		}
		if rec == nil {
			return eris.Errorf("analysis %s not found", analysisID)
		}

		var (
			questions []model.Question
			aiAnswers []model.AIAnswer
			responses []model.UserResponse
			summary   *model.AnalysisSummary
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			questions, err = st.ListQuestions(gctx, analysisID)
			return eris.Wrap(err, "list questions")
		})
		g.Go(func() error {
			var err error
			aiAnswers, err = st.ListAIAnswers(gctx, analysisID)
			return eris.Wrap(err, "list ai answers")
		})
		g.Go(func() error {
			var err error
			responses, err = st.ListUserResponses(gctx, analysisID, exportUser)
			return eris.Wrap(err, "list responses")
		})
		g.Go(func() error {
			var err error
			summary, err = st.GetSummary(gctx, analysisID)
			return eris.Wrap(err, "load summary")
		})
		if err := g.Wait(); err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = analysisID + ".xlsx"
		}

		err = report.Write(report.Input{
			Analysis:  rec,
			Questions: questions,
			AIAnswers: aiAnswers,
			Responses: responses,
			Summary:   summary,
		}, out)
		if err != nil {
			return err
		}

		zap.L().Info("report written",
			zap.String("analysis_id", analysisID),
			zap.String("path", out),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (defaults to <analysis-id>.xlsx)")
	exportCmd.Flags().StringVar(&exportUser, "user", "", "user ID whose answers to include (required)")
	_ = exportCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(exportCmd)
}
