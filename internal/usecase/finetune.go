package usecase

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"textclf/config"
	"textclf/internal/adapter/finetune"
	"textclf/internal/adapter/metrics"
	"textclf/internal/domain"
	"textclf/internal/logging"
	"textclf/internal/port"
)

// FineTuneAPI is the hosted service the fine-tuning workflow talks to.
type FineTuneAPI interface {
	UploadFile(ctx context.Context, path string) (*finetune.File, error)
	CreateJob(ctx context.Context, req finetune.JobRequest) (*finetune.Job, error)
	GetJob(ctx context.Context, id string) (*finetune.Job, error)
	port.Completer
}

// FineTuneUseCase prepares training files, submits jobs and evaluates the
// resulting model. The API may be nil for Prepare.
type FineTuneUseCase struct {
	api FineTuneAPI
	cfg config.FineTuneConfig
	log *logging.Logger
}

func NewFineTuneUseCase(api FineTuneAPI, cfg config.FineTuneConfig, log *logging.Logger) *FineTuneUseCase {
	return &FineTuneUseCase{api: api, cfg: cfg, log: log}
}

// PrepareExamples turns labelled records into prompt/completion pairs split
// into train and validation sets. validFraction 0 keeps everything for training.
func PrepareExamples(records []domain.Record, separator string, validFraction float64, seed int64) (train, valid []finetune.Example, err error) {
	var labelled []domain.Record
	for _, rec := range records {
		if rec.Label != "" && rec.Combined != "" {
			labelled = append(labelled, rec)
		}
	}
	if len(labelled) == 0 {
		return nil, nil, fmt.Errorf("%w: no labelled records", ErrEmptyDataset)
	}

	if validFraction <= 0 {
		for _, rec := range labelled {
			train = append(train, finetune.NewExample(rec, separator))
		}
		return train, nil, nil
	}

	split, err := TrainTestSplit(labelled, validFraction, seed)
	if err != nil {
		return nil, nil, err
	}
	for _, rec := range split.Train {
		train = append(train, finetune.NewExample(rec, separator))
	}
	for _, rec := range split.Test {
		valid = append(valid, finetune.NewExample(rec, separator))
	}
	return train, valid, nil
}

// PrepareResult reports the files written by Prepare.
type PrepareResult struct {
	TrainFile  string
	ValidFile  string
	TrainCount int
	ValidCount int
}

// Prepare writes the train and validation JSONL files.
func (u *FineTuneUseCase) Prepare(ds *domain.Dataset, seed int64) (*PrepareResult, error) {
	train, valid, err := PrepareExamples(ds.Records, u.cfg.Separator, u.cfg.ValidFraction, seed)
	if err != nil {
		return nil, err
	}

	result := &PrepareResult{TrainFile: u.cfg.TrainFile, TrainCount: len(train)}
	if err := writeExamples(u.cfg.TrainFile, train); err != nil {
		return nil, err
	}
	if len(valid) > 0 {
		if err := writeExamples(u.cfg.ValidFile, valid); err != nil {
			return nil, err
		}
		result.ValidFile = u.cfg.ValidFile
		result.ValidCount = len(valid)
	} else if err := os.Remove(u.cfg.ValidFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale validation file: %w", err)
	}

	u.log.Info("fine-tuning files written", "train", result.TrainCount, "valid", result.ValidCount)
	return result, nil
}

func writeExamples(path string, examples []finetune.Example) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := finetune.WriteJSONL(f, examples); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func readExamples(path string) ([]finetune.Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return finetune.ReadJSONL(f)
}

// Submit uploads the prepared files and creates a fine-tuning job.
func (u *FineTuneUseCase) Submit(ctx context.Context) (*finetune.Job, error) {
	trainFile, err := u.api.UploadFile(ctx, u.cfg.TrainFile)
	if err != nil {
		return nil, err
	}
	u.log.Info("training file uploaded", "file_id", trainFile.ID)

	req := finetune.JobRequest{
		TrainingFile: trainFile.ID,
		Model:        u.cfg.Model,
		Suffix:       u.cfg.Suffix,
	}
	if req.Suffix == "" {
		req.Suffix = "textclf-" + uuid.NewString()[:8]
	}
	if u.cfg.Epochs > 0 {
		req.Hyperparameters = &finetune.Hyperparameters{NEpochs: u.cfg.Epochs}
	}

	if info, err := os.Stat(u.cfg.ValidFile); err == nil && info.Size() > 0 {
		validFile, err := u.api.UploadFile(ctx, u.cfg.ValidFile)
		if err != nil {
			return nil, err
		}
		req.ValidationFile = validFile.ID
		u.log.Info("validation file uploaded", "file_id", validFile.ID)
	}

	job, err := u.api.CreateJob(ctx, req)
	if err != nil {
		return nil, err
	}
	u.log.Info("fine-tuning job created", "job_id", job.ID, "status", job.Status)
	return job, nil
}

func (u *FineTuneUseCase) Status(ctx context.Context, id string) (*finetune.Job, error) {
	return u.api.GetJob(ctx, id)
}

// Wait polls the job every interval until it reaches a terminal state.
func (u *FineTuneUseCase) Wait(ctx context.Context, id string, interval time.Duration) (*finetune.Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := u.api.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Done() {
			return job, nil
		}
		u.log.Debug("fine-tuning job pending", "job_id", id, "status", job.Status)

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// EvaluateResult holds the report of a fine-tuned model on the validation file.
type EvaluateResult struct {
	Report      domain.Report
	Predictions []domain.Prediction
}

// Evaluate completes every validation prompt with model and scores the
// trimmed completion against the expected label.
func (u *FineTuneUseCase) Evaluate(ctx context.Context, model string) (*EvaluateResult, error) {
	examples, err := readExamples(u.cfg.ValidFile)
	if err != nil {
		return nil, fmt.Errorf("read validation file: %w", err)
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("%w: %s has no examples", ErrEmptyDataset, u.cfg.ValidFile)
	}

	actual := make([]string, len(examples))
	predicted := make([]string, len(examples))
	preds := make([]domain.Prediction, len(examples))
	for i, ex := range examples {
		comp, err := u.api.Complete(ctx, model, ex.Prompt)
		if err != nil {
			return nil, fmt.Errorf("example %d: %w", i, err)
		}
		actual[i] = finetune.Label(ex.Completion)
		predicted[i] = finetune.Label(comp.Text)
		preds[i] = domain.Prediction{
			RecordID:      fmt.Sprint(i),
			Actual:        actual[i],
			Predicted:     predicted[i],
			Probabilities: labelProbabilities(comp.TopLogprobs),
		}
	}

	report, err := metrics.ClassificationReport(actual, predicted)
	if err != nil {
		return nil, err
	}
	report.RunID = uuid.NewString()
	return &EvaluateResult{Report: report, Predictions: preds}, nil
}

// labelProbabilities turns first-token logprobs into probabilities keyed by
// the trimmed label. Tokens that trim to the same label are summed.
func labelProbabilities(logprobs map[string]float64) map[string]float64 {
	if len(logprobs) == 0 {
		return nil
	}
	out := make(map[string]float64, len(logprobs))
	for token, lp := range logprobs {
		if label := finetune.Label(token); label != "" {
			out[label] += math.Exp(lp)
		}
	}
	return out
}
