package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"textclf/internal/adapter/blob"
	"textclf/internal/adapter/classifier"
	"textclf/internal/adapter/dataset"
	"textclf/internal/adapter/metrics"
	"textclf/internal/domain"
	"textclf/internal/usecase"
)

var (
	trainInput       string
	trainTrees       int
	trainTestSize    float64
	trainSeed        int64
	trainPredictions string
	trainJSON        bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train and evaluate a random forest on embedded records",
	Long: `Load the embedded table, split it into train and test sets with a fixed
seed, fit a random forest on the embeddings and print precision, recall and
F1 per class.

Examples:
  textclf train
  textclf train --trees 200 --test-size 0.25 --seed 7
  textclf train --predictions data/predictions.csv --json`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().StringVarP(&trainInput, "input", "i", "", "embedded table (default is dataset.output)")
	trainCmd.Flags().IntVar(&trainTrees, "trees", 0, "number of trees (default from config)")
	trainCmd.Flags().Float64Var(&trainTestSize, "test-size", 0, "held-out fraction (default from config)")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", 0, "random seed for split and forest (default from config)")
	trainCmd.Flags().StringVar(&trainPredictions, "predictions", "", "write test-set predictions to this CSV")
	trainCmd.Flags().BoolVar(&trainJSON, "json", false, "output the report as JSON")
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	log := GetLogger().WithStage("train")
	ctx := cmd.Context()

	ccfg := cfg.Classifier
	if trainTrees > 0 {
		ccfg.Trees = trainTrees
	}
	if trainTestSize > 0 {
		ccfg.TestSize = trainTestSize
	}
	if cmd.Flags().Changed("seed") {
		ccfg.Seed = trainSeed
	}
	if trainPredictions != "" {
		ccfg.Predictions = trainPredictions
	}

	input := trainInput
	if input == "" {
		input = cfg.Dataset.Output
	}
	input = resolvePath(input)

	source := newSource(cfg.Dataset)
	ds, err := source.Read(ctx, input, dataset.ColumnsFromConfig(cfg.Dataset))
	if err != nil {
		return err
	}

	rf, err := classifier.NewRandomForest(classifier.OptionsFromConfig(ccfg))
	if err != nil {
		return err
	}

	classifyUC := usecase.NewClassifyUseCase(rf, ccfg.TestSize, ccfg.Seed, log)
	result, err := classifyUC.Run(ctx, ds)
	if err != nil {
		return err
	}

	if ccfg.Predictions != "" {
		if err := writePredictions(ctx, resolvePath(ccfg.Predictions), result.Predictions, result.Classes); err != nil {
			return err
		}
	}

	if trainJSON {
		return printJSON(result.Report)
	}

	fmt.Printf("Random forest (%d trees, seed %d) on %s\n", ccfg.Trees, ccfg.Seed, input)
	fmt.Printf("  Train: %d  Test: %d", result.Train, result.Test)
	if result.Skipped > 0 {
		fmt.Printf("  Skipped: %d", result.Skipped)
	}
	fmt.Printf("\n\n")
	fmt.Print(metrics.Format(result.Report, isTerminal()))
	fmt.Printf("\nConfusion matrix:\n%s", result.Confusion.Format())
	if ccfg.Predictions != "" {
		fmt.Printf("\nPredictions written to: %s\n", ccfg.Predictions)
	}
	return nil
}

func writePredictions(ctx context.Context, path string, preds []domain.Prediction, classes []string) error {
	w, err := blob.NewOpener().Create(ctx, path)
	if err != nil {
		return err
	}
	if err := dataset.WritePredictions(w, preds, classes); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
