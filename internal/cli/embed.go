package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"textclf/internal/adapter/analyzer"
	"textclf/internal/usecase"
)

var (
	embedInput     string
	embedOutput    string
	embedTopN      int
	embedMaxTokens int
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Combine text fields, embed them and write the augmented table",
	Long: `Read the input table, drop incomplete rows, keep the most recent top_n
records under the token limit, embed the combined text and write the table
with combined, n_tokens and embedding columns appended.

Vectors are cached in .textclf/embeddings.db, so re-running on unchanged
text makes no provider calls.

Examples:
  textclf embed
  textclf embed --input "data/**/*.csv.gz" --output s3://bucket/embedded.csv
  textclf embed --top-n 500 --max-tokens 4000`,
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)
	embedCmd.Flags().StringVarP(&embedInput, "input", "i", "", "input table, glob or s3:// URI (default from config)")
	embedCmd.Flags().StringVarP(&embedOutput, "output", "o", "", "output table (default from config)")
	embedCmd.Flags().IntVar(&embedTopN, "top-n", -1, "keep the most recent N records, 0 for all (default from config)")
	embedCmd.Flags().IntVar(&embedMaxTokens, "max-tokens", 0, "drop records above this many tokens (default from config)")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	log := GetLogger().WithStage("embed")
	ctx := cmd.Context()

	dcfg := cfg.Dataset
	if embedInput != "" {
		dcfg.Input = embedInput
	}
	if embedOutput != "" {
		dcfg.Output = embedOutput
	}
	if embedTopN >= 0 {
		dcfg.TopN = embedTopN
	}
	maxTokens := cfg.Embedding.MaxTokens
	if embedMaxTokens > 0 {
		maxTokens = embedMaxTokens
	}
	dcfg.Input = resolvePath(dcfg.Input)
	dcfg.Output = resolvePath(dcfg.Output)
	dcfg.Corrections = resolvePath(dcfg.Corrections)

	tokenizer, err := analyzer.NewTokenizer(cfg.Embedding.Encoding)
	if err != nil {
		return err
	}

	source := newSource(dcfg)
	loadUC := usecase.NewLoadUseCase(source, tokenizer, dcfg, maxTokens, log)

	fmt.Printf("Loading %s...\n", dcfg.Input)
	ds, loaded, err := loadUC.Load(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\nDataset:\n")
	fmt.Printf("  Rows read:         %d\n", loaded.Read)
	fmt.Printf("  Incomplete:        %d (dropped)\n", loaded.Incomplete)
	if len(dcfg.LabelMap) > 0 {
		fmt.Printf("  Unmapped labels:   %d (dropped)\n", loaded.Unmapped)
	}
	if dcfg.Corrections != "" {
		fmt.Printf("  Labels corrected:  %d\n", loaded.Corrected)
	}
	fmt.Printf("  Over %d tokens:  %d (dropped)\n", maxTokens, loaded.OverTokenLimit)
	fmt.Printf("  Records to embed:  %d\n\n", loaded.Kept)

	embedder, closeCache, err := newCachedEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	bar := progressbar.NewOptions(ds.Len(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	start := time.Now()
	embedUC := usecase.NewEmbedUseCase(embedder, cfg.Embedding.BatchSize, log)
	result, err := embedUC.Run(ctx, ds, bar)
	if err != nil {
		fmt.Printf("\nEmbedding stopped after %d of %d records\n", result.Embedded, result.Records)
		return err
	}

	if err := source.Write(ctx, dcfg.Output, ds); err != nil {
		return err
	}

	fmt.Printf("\nEmbedding complete in %s:\n", formatDuration(time.Since(start)))
	fmt.Printf("  Records:        %d\n", result.Embedded)
	fmt.Printf("  Cache hits:     %d\n", result.Cache.Hits)
	fmt.Printf("  Cache misses:   %d\n", result.Cache.Misses)
	fmt.Printf("  Provider calls: %d\n", result.Cache.ProviderCalls)
	fmt.Printf("  Model:          %s (%d dims)\n", embedder.ModelName(), embedder.Dimension())
	fmt.Printf("\nOutput written to: %s\n", dcfg.Output)
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
