package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"textclf/internal/adapter/metrics"
	"textclf/internal/domain"
	"textclf/internal/logging"
	"textclf/internal/port"
)

// ClassifyUseCase trains a classifier on the embedded table and evaluates it
// on a held-out split.
type ClassifyUseCase struct {
	classifier port.Classifier
	testSize   float64
	seed       int64
	log        *logging.Logger
}

func NewClassifyUseCase(classifier port.Classifier, testSize float64, seed int64, log *logging.Logger) *ClassifyUseCase {
	return &ClassifyUseCase{
		classifier: classifier,
		testSize:   testSize,
		seed:       seed,
		log:        log,
	}
}

// ClassifyResult holds the evaluation of one training run.
type ClassifyResult struct {
	Report      domain.Report
	Confusion   *metrics.ConfusionMatrix
	Predictions []domain.Prediction
	Classes     []string
	Skipped     int
	Train       int
	Test        int
}

// Usable returns the records carrying both a label and an embedding.
func Usable(records []domain.Record) (usable []domain.Record, skipped int) {
	for _, rec := range records {
		if rec.Label == "" || !rec.HasEmbedding() {
			skipped++
			continue
		}
		usable = append(usable, rec)
	}
	return usable, skipped
}

func features(records []domain.Record) ([][]float32, []string) {
	x := make([][]float32, len(records))
	y := make([]string, len(records))
	for i, rec := range records {
		x[i] = rec.Embedding
		y[i] = rec.Label
	}
	return x, y
}

func (u *ClassifyUseCase) Run(ctx context.Context, ds *domain.Dataset) (*ClassifyResult, error) {
	records, skipped := Usable(ds.Records)
	if skipped > 0 {
		u.log.Warn("records without label or embedding skipped", "count", skipped)
	}

	split, err := TrainTestSplit(records, u.testSize, u.seed)
	if err != nil {
		return nil, err
	}

	trainX, trainY := features(split.Train)
	if err := u.classifier.Fit(ctx, trainX, trainY); err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	testX, testY := features(split.Test)
	predicted, err := u.classifier.Predict(testX)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	probs, err := u.classifier.PredictProba(testX)
	if err != nil {
		return nil, fmt.Errorf("predict probabilities: %w", err)
	}

	report, err := metrics.ClassificationReport(testY, predicted)
	if err != nil {
		return nil, err
	}
	report.RunID = uuid.NewString()

	confusion, err := metrics.NewConfusionMatrix(testY, predicted)
	if err != nil {
		return nil, err
	}

	preds := make([]domain.Prediction, len(split.Test))
	for i, rec := range split.Test {
		preds[i] = domain.Prediction{
			RecordID:      rec.ID,
			Actual:        rec.Label,
			Predicted:     predicted[i],
			Probabilities: probs[i],
		}
	}

	u.log.WithRun(report.RunID).Info("classifier evaluated",
		"train", len(split.Train),
		"test", len(split.Test),
		"accuracy", report.Accuracy)

	return &ClassifyResult{
		Report:      report,
		Confusion:   confusion,
		Predictions: preds,
		Classes:     u.classifier.Classes(),
		Skipped:     skipped,
		Train:       len(split.Train),
		Test:        len(split.Test),
	}, nil
}
