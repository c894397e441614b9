package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-insight/internal/pipeline"
)

var (
	analyzeFile    string
	analyzeProject string
	analyzeModel   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Extract structured sections from an RFP document",
	Long:  "Reads the document from --file (or stdin), runs extraction synchronously, and prints the completed analysis record as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		source, err := readSource(analyzeFile)
		if err != nil {
			return err
		}

		p, st, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		req := pipeline.IngestRequest{
			SourceText: source,
			Model:      analyzeModel,
		}
		if analyzeProject != "" {
			req.ProjectID = &analyzeProject
		}

		rec, err := p.IngestAnalysis(ctx, req)
		if err != nil {
			return err
		}

		if err := p.RunExtraction(ctx, rec.ID); err != nil {
			return eris.Wrap(err, "run extraction")
		}

		rec, err = p.GetAnalysis(ctx, rec.ID)
		if err != nil {
			return err
		}

		zap.L().Info("extraction complete",
			zap.String("analysis_id", rec.ID),
			zap.Float64("confidence", rec.ConfidenceScore),
			zap.Bool("degraded", rec.Degraded),
		)

		rec.SourceText = ""
		return printJSON(rec)
	},
}

func readSource(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", eris.Wrap(err, "read stdin")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrap(err, "read source file")
	}
	return string(data), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "RFP document path (defaults to stdin)")
	analyzeCmd.Flags().StringVar(&analyzeProject, "project", "", "project ID to attach the analysis to")
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "model override for this analysis")
	rootCmd.AddCommand(analyzeCmd)
}
