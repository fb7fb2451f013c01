package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"textclf/config"
	"textclf/internal/adapter/analyzer"
	"textclf/internal/adapter/finetune"
	"textclf/internal/adapter/metrics"
	"textclf/internal/usecase"
)

var (
	finetuneInput    string
	finetuneWait     bool
	finetuneInterval time.Duration
	finetuneJSON     bool
)

var finetuneCmd = &cobra.Command{
	Use:   "finetune",
	Short: "Prepare, submit and evaluate a hosted fine-tuning job",
	Long: `Fine-tune a completion model to classify records.

  prepare   write prompt/completion JSONL train and validation files
  submit    upload the files and create a fine-tuning job
  status    show the state of a job
  evaluate  score a fine-tuned model on the validation file

Examples:
  textclf finetune prepare
  textclf finetune submit --wait
  textclf finetune status ftjob-abc123
  textclf finetune evaluate ft:babbage-002:acme:textclf-1a2b3c4d:xyz`,
}

var finetunePrepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Write fine-tuning JSONL files from the labelled table",
	RunE:  runFineTunePrepare,
}

var finetuneSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Upload the prepared files and create a fine-tuning job",
	RunE:  runFineTuneSubmit,
}

var finetuneStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the state of a fine-tuning job",
	Args:  cobra.ExactArgs(1),
	RunE:  runFineTuneStatus,
}

var finetuneEvaluateCmd = &cobra.Command{
	Use:   "evaluate <model>",
	Short: "Classify the validation file with a fine-tuned model",
	Args:  cobra.ExactArgs(1),
	RunE:  runFineTuneEvaluate,
}

func init() {
	rootCmd.AddCommand(finetuneCmd)
	finetuneCmd.AddCommand(finetunePrepareCmd, finetuneSubmitCmd, finetuneStatusCmd, finetuneEvaluateCmd)

	finetunePrepareCmd.Flags().StringVarP(&finetuneInput, "input", "i", "", "input table (default is dataset.input)")
	for _, c := range []*cobra.Command{finetuneSubmitCmd, finetuneStatusCmd} {
		c.Flags().BoolVar(&finetuneWait, "wait", false, "poll until the job finishes")
		c.Flags().DurationVar(&finetuneInterval, "interval", 30*time.Second, "polling interval with --wait")
	}
	finetuneEvaluateCmd.Flags().BoolVar(&finetuneJSON, "json", false, "output the report as JSON")
}

func fineTuneConfig(cfg *config.Config) config.FineTuneConfig {
	fcfg := cfg.FineTune
	fcfg.TrainFile = resolvePath(fcfg.TrainFile)
	fcfg.ValidFile = resolvePath(fcfg.ValidFile)
	return fcfg
}

func newFineTuneUseCase(cfg *config.Config) (*usecase.FineTuneUseCase, error) {
	fcfg := fineTuneConfig(cfg)
	client, err := finetune.NewClient(finetune.ClientOptions{
		BaseURL:   fcfg.BaseURL,
		APIKeyEnv: fcfg.APIKeyEnv,
		Timeout:   time.Duration(fcfg.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return usecase.NewFineTuneUseCase(client, fcfg, GetLogger().WithStage("finetune")), nil
}

func runFineTunePrepare(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	log := GetLogger().WithStage("finetune")

	dcfg := cfg.Dataset
	if finetuneInput != "" {
		dcfg.Input = finetuneInput
	}
	dcfg.Input = resolvePath(dcfg.Input)
	dcfg.Corrections = resolvePath(dcfg.Corrections)

	tokenizer, err := analyzer.NewTokenizer(cfg.Embedding.Encoding)
	if err != nil {
		return err
	}
	loadUC := usecase.NewLoadUseCase(newSource(dcfg), tokenizer, dcfg, cfg.Embedding.MaxTokens, log)
	ds, _, err := loadUC.Load(cmd.Context())
	if err != nil {
		return err
	}

	ftUC := usecase.NewFineTuneUseCase(nil, fineTuneConfig(cfg), log)
	result, err := ftUC.Prepare(ds, cfg.Classifier.Seed)
	if err != nil {
		return err
	}

	fmt.Printf("Fine-tuning files written:\n")
	fmt.Printf("  Train: %s (%d examples)\n", result.TrainFile, result.TrainCount)
	if result.ValidFile != "" {
		fmt.Printf("  Valid: %s (%d examples)\n", result.ValidFile, result.ValidCount)
	}
	return nil
}

func printJob(job *finetune.Job) {
	fmt.Printf("Job %s\n", job.ID)
	fmt.Printf("  Status: %s\n", job.Status)
	if job.Model != "" {
		fmt.Printf("  Base model: %s\n", job.Model)
	}
	if job.FineTunedModel != "" {
		fmt.Printf("  Fine-tuned model: %s\n", job.FineTunedModel)
	}
	if job.TrainedTokens > 0 {
		fmt.Printf("  Trained tokens: %d\n", job.TrainedTokens)
	}
	if job.Error != nil && job.Error.Message != "" {
		fmt.Printf("  Error: %s\n", job.Error.Message)
	}
}

func runFineTuneSubmit(cmd *cobra.Command, args []string) error {
	ftUC, err := newFineTuneUseCase(GetConfig())
	if err != nil {
		return err
	}

	job, err := ftUC.Submit(cmd.Context())
	if err != nil {
		return err
	}
	printJob(job)

	if finetuneWait {
		job, err = ftUC.Wait(cmd.Context(), job.ID, finetuneInterval)
		if err != nil {
			return err
		}
		fmt.Println()
		printJob(job)
	}
	return nil
}

func runFineTuneStatus(cmd *cobra.Command, args []string) error {
	ftUC, err := newFineTuneUseCase(GetConfig())
	if err != nil {
		return err
	}

	var job *finetune.Job
	if finetuneWait {
		job, err = ftUC.Wait(cmd.Context(), args[0], finetuneInterval)
	} else {
		job, err = ftUC.Status(cmd.Context(), args[0])
	}
	if err != nil {
		return err
	}
	printJob(job)
	return nil
}

func runFineTuneEvaluate(cmd *cobra.Command, args []string) error {
	ftUC, err := newFineTuneUseCase(GetConfig())
	if err != nil {
		return err
	}

	result, err := ftUC.Evaluate(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if finetuneJSON {
		return printJSON(result.Report)
	}

	fmt.Printf("Fine-tuned model %s on %d validation examples\n\n", args[0], result.Report.Total)
	fmt.Print(metrics.Format(result.Report, isTerminal()))
	return nil
}
