package usecase

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textclf/config"
	"textclf/internal/adapter/finetune"
	"textclf/internal/logging"
	"textclf/internal/port"
)

type fakeFineTuneAPI struct {
	uploads  []string
	job      finetune.JobRequest
	statuses []string
	polls    int
}

func (f *fakeFineTuneAPI) UploadFile(ctx context.Context, path string) (*finetune.File, error) {
	f.uploads = append(f.uploads, filepath.Base(path))
	return &finetune.File{ID: "file-" + filepath.Base(path)}, nil
}

func (f *fakeFineTuneAPI) CreateJob(ctx context.Context, req finetune.JobRequest) (*finetune.Job, error) {
	f.job = req
	return &finetune.Job{ID: "ftjob-1", Status: "validating_files", Model: req.Model}, nil
}

func (f *fakeFineTuneAPI) GetJob(ctx context.Context, id string) (*finetune.Job, error) {
	status := f.statuses[len(f.statuses)-1]
	if f.polls < len(f.statuses) {
		status = f.statuses[f.polls]
	}
	f.polls++
	return &finetune.Job{ID: id, Status: status}, nil
}

// Complete answers from the vocabulary in the prompt.
func (f *fakeFineTuneAPI) Complete(ctx context.Context, model, prompt string) (port.Completion, error) {
	for _, w := range positiveWords {
		if strings.Contains(prompt, w) {
			return port.Completion{Text: " positive", TopLogprobs: map[string]float64{
				" positive": math.Log(0.9),
				" negative": math.Log(0.1),
			}}, nil
		}
	}
	return port.Completion{Text: " negative", TopLogprobs: map[string]float64{
		" negative": math.Log(0.7),
		"negative":  math.Log(0.05),
		" positive": math.Log(0.25),
	}}, nil
}

func fineTuneConfig(t *testing.T) config.FineTuneConfig {
	cfg := config.DefaultConfig().FineTune
	dir := t.TempDir()
	cfg.TrainFile = filepath.Join(dir, "ft", "train.jsonl")
	cfg.ValidFile = filepath.Join(dir, "ft", "valid.jsonl")
	return cfg
}

func TestPrepareExamples(t *testing.T) {
	ds := reviews(10, 1)
	ds.Records[3].Label = ""

	train, valid, err := PrepareExamples(ds.Records, "\n\n###\n\n", 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, valid, 2)
	assert.Len(t, train, 7)
	for _, ex := range append(train, valid...) {
		assert.True(t, strings.HasSuffix(ex.Prompt, "\n\n###\n\n"))
		assert.True(t, strings.HasPrefix(ex.Completion, " "))
	}

	train, valid, err = PrepareExamples(ds.Records, "\n\n###\n\n", 0, 42)
	require.NoError(t, err)
	assert.Len(t, train, 9)
	assert.Empty(t, valid)
}

func TestFineTune_PrepareSubmitEvaluate(t *testing.T) {
	cfg := fineTuneConfig(t)
	cfg.Suffix = "reviews"
	api := &fakeFineTuneAPI{}
	uc := NewFineTuneUseCase(api, cfg, logging.Discard())
	ctx := context.Background()

	prep, err := uc.Prepare(reviews(20, 3), 42)
	require.NoError(t, err)
	assert.Equal(t, 16, prep.TrainCount)
	assert.Equal(t, 4, prep.ValidCount)
	_, err = os.Stat(cfg.ValidFile)
	require.NoError(t, err)

	job, err := uc.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ftjob-1", job.ID)
	assert.Equal(t, []string{"train.jsonl", "valid.jsonl"}, api.uploads)
	assert.Equal(t, "file-train.jsonl", api.job.TrainingFile)
	assert.Equal(t, "file-valid.jsonl", api.job.ValidationFile)
	assert.Equal(t, "reviews", api.job.Suffix)
	require.NotNil(t, api.job.Hyperparameters)
	assert.Equal(t, 4, api.job.Hyperparameters.NEpochs)

	result, err := uc.Evaluate(ctx, "ft:babbage-002:reviews")
	require.NoError(t, err)
	assert.Equal(t, 4, result.Report.Total)
	assert.Equal(t, 1.0, result.Report.Accuracy)

	for _, p := range result.Predictions {
		require.Len(t, p.Probabilities, 2)
		assert.InDelta(t, 1.0, p.Probabilities["positive"]+p.Probabilities["negative"], 1e-9)
		assert.Greater(t, p.Probabilities[p.Predicted], 0.5)
	}
}

func TestLabelProbabilities(t *testing.T) {
	got := labelProbabilities(map[string]float64{
		" positive": math.Log(0.6),
		"positive":  math.Log(0.1),
		" negative": math.Log(0.3),
		" ":         math.Log(0.01),
	})
	assert.Len(t, got, 2)
	assert.InDelta(t, 0.7, got["positive"], 1e-9)
	assert.InDelta(t, 0.3, got["negative"], 1e-9)
	assert.Nil(t, labelProbabilities(nil))
}

func TestFineTune_PrepareWithoutValidationRemovesStaleFile(t *testing.T) {
	cfg := fineTuneConfig(t)
	api := &fakeFineTuneAPI{}
	ctx := context.Background()

	_, err := NewFineTuneUseCase(api, cfg, logging.Discard()).Prepare(reviews(20, 3), 42)
	require.NoError(t, err)
	_, err = os.Stat(cfg.ValidFile)
	require.NoError(t, err)

	cfg.ValidFraction = 0
	uc := NewFineTuneUseCase(api, cfg, logging.Discard())
	prep, err := uc.Prepare(reviews(20, 3), 42)
	require.NoError(t, err)
	assert.Equal(t, 20, prep.TrainCount)
	assert.Empty(t, prep.ValidFile)
	_, err = os.Stat(cfg.ValidFile)
	assert.True(t, os.IsNotExist(err))

	_, err = uc.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"train.jsonl"}, api.uploads)
	assert.Empty(t, api.job.ValidationFile)
}

func TestFineTune_SubmitGeneratesSuffix(t *testing.T) {
	cfg := fineTuneConfig(t)
	api := &fakeFineTuneAPI{}
	uc := NewFineTuneUseCase(api, cfg, logging.Discard())

	_, err := uc.Prepare(reviews(6, 1), 1)
	require.NoError(t, err)
	_, err = uc.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(api.job.Suffix, "textclf-"))
}

func TestFineTune_Wait(t *testing.T) {
	api := &fakeFineTuneAPI{statuses: []string{"queued", "running", "succeeded"}}
	uc := NewFineTuneUseCase(api, fineTuneConfig(t), logging.Discard())

	job, err := uc.Wait(context.Background(), "ftjob-1", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "succeeded", job.Status)
	assert.Equal(t, 3, api.polls)
}

func TestFineTune_WaitCanceled(t *testing.T) {
	api := &fakeFineTuneAPI{statuses: []string{"running"}}
	uc := NewFineTuneUseCase(api, fineTuneConfig(t), logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := uc.Wait(ctx, "ftjob-1", 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFineTune_EvaluateMissingFile(t *testing.T) {
	uc := NewFineTuneUseCase(&fakeFineTuneAPI{}, fineTuneConfig(t), logging.Discard())
	_, err := uc.Evaluate(context.Background(), "model")
	assert.Error(t, err)
}
