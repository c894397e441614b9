package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/rfp-insight/internal/model"
)

var (
	secondaryPairsFile string
	secondaryModel     string
)

var secondaryCmd = &cobra.Command{
	Use:   "secondary <analysis-id>",
	Short: "Run market and persona analysis over supplied Q&A pairs",
	Long:  "Reads a JSON array of {question, answer} pairs from --pairs and writes the result into the analysis record's secondary slot.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(secondaryPairsFile)
		if err != nil {
			return eris.Wrap(err, "read pairs file")
		}
		var pairs []model.QAPair
		if err := json.Unmarshal(data, &pairs); err != nil {
			return eris.Wrap(err, "parse pairs file")
		}

		p, st, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sec, err := p.RunSecondary(ctx, args[0], pairs, secondaryModel)
		if err != nil {
			return err
		}
		return printJSON(sec)
	},
}

func init() {
	secondaryCmd.Flags().StringVar(&secondaryPairsFile, "pairs", "", "JSON file of question/answer pairs (required)")
	secondaryCmd.Flags().StringVar(&secondaryModel, "model", "", "model override")
	_ = secondaryCmd.MarkFlagRequired("pairs")
	rootCmd.AddCommand(secondaryCmd)
}
