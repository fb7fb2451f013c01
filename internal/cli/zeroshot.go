package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"textclf/internal/adapter/dataset"
	"textclf/internal/adapter/metrics"
	"textclf/internal/usecase"
)

var (
	zeroshotInput       string
	zeroshotPredictions string
	zeroshotAssign      string
	zeroshotJSON        bool
)

var zeroshotCmd = &cobra.Command{
	Use:   "zeroshot",
	Short: "Label records by similarity to label descriptions",
	Long: `Embed a description of every label (zeroshot.labels in the config) and
assign each record the label whose description is most similar to the
record's embedding. When records carry labels, a report is printed.
Embeddings already in the table must come from the configured model.
Predictions hold score_<label> cosine similarities, not probabilities.

Examples:
  textclf zeroshot
  textclf zeroshot --predictions data/zeroshot.csv
  textclf zeroshot --assign data/labelled.csv`,
	RunE: runZeroShot,
}

func init() {
	rootCmd.AddCommand(zeroshotCmd)
	zeroshotCmd.Flags().StringVarP(&zeroshotInput, "input", "i", "", "embedded table (default is dataset.output)")
	zeroshotCmd.Flags().StringVar(&zeroshotPredictions, "predictions", "", "write per-record label scores to this CSV")
	zeroshotCmd.Flags().StringVar(&zeroshotAssign, "assign", "", "write the table with predicted labels to this path")
	zeroshotCmd.Flags().BoolVar(&zeroshotJSON, "json", false, "output the report as JSON")
}

func runZeroShot(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	log := GetLogger().WithStage("zeroshot")
	ctx := cmd.Context()

	input := zeroshotInput
	if input == "" {
		input = cfg.Dataset.Output
	}
	input = resolvePath(input)

	source := newSource(cfg.Dataset)
	ds, err := source.Read(ctx, input, dataset.ColumnsFromConfig(cfg.Dataset))
	if err != nil {
		return err
	}

	embedder, closeCache, err := newCachedEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	zeroshotUC := usecase.NewZeroShotUseCase(embedder, cfg.ZeroShot.Labels, log)
	result, err := zeroshotUC.Run(ctx, ds)
	if err != nil {
		return err
	}

	if zeroshotPredictions != "" {
		path := resolvePath(zeroshotPredictions)
		if err := writePredictions(ctx, path, result.Predictions, result.Labels); err != nil {
			return err
		}
		fmt.Printf("Predictions written to: %s\n", path)
	}
	if zeroshotAssign != "" {
		path := resolvePath(zeroshotAssign)
		usecase.Assign(ds, cfg.Dataset.LabelColumn, result.Predictions)
		if err := source.Write(ctx, path, ds); err != nil {
			return err
		}
		fmt.Printf("Labelled table written to: %s\n", path)
	}

	if result.Report == nil {
		fmt.Printf("Scored %d records against %d labels (no labels to evaluate against)\n", ds.Len(), len(result.Labels))
		return nil
	}
	if zeroshotJSON {
		return printJSON(result.Report)
	}

	fmt.Printf("Zero-shot classification of %d records with %s\n\n", ds.Len(), embedder.ModelName())
	fmt.Print(metrics.Format(*result.Report, isTerminal()))
	stats := embedder.Stats()
	fmt.Printf("\nCache hits: %d  Provider calls: %d\n", stats.Hits, stats.ProviderCalls)
	return nil
}
