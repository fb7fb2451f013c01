package usecase

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textclf/internal/adapter/classifier"
	"textclf/internal/adapter/dataset"
	"textclf/internal/adapter/embedding"
	"textclf/internal/domain"
	"textclf/internal/logging"
)

func embedded(t *testing.T, n int, seed int64) *domain.Dataset {
	t.Helper()
	ds := reviews(n, seed)
	_, err := NewEmbedUseCase(embedding.NewMockEmbedder(32), 50, logging.Discard()).Run(context.Background(), ds, nil)
	require.NoError(t, err)
	return ds
}

func newClassify(t *testing.T) *ClassifyUseCase {
	t.Helper()
	rf, err := classifier.NewRandomForest(classifier.Options{Trees: 30, MaxFeatures: "sqrt", Seed: 42})
	require.NoError(t, err)
	return NewClassifyUseCase(rf, 0.2, 42, logging.Discard())
}

func TestClassify_EndToEnd(t *testing.T) {
	ds := embedded(t, 100, 1)
	// One record without an embedding is skipped.
	ds.Records[0].Embedding = nil

	result, err := newClassify(t).Run(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 20, result.Test)
	assert.Equal(t, 79, result.Train)
	assert.Equal(t, []string{"negative", "positive"}, result.Classes)
	assert.GreaterOrEqual(t, result.Report.Accuracy, 0.8)
	assert.NotEmpty(t, result.Report.RunID)
	assert.Len(t, result.Predictions, 20)

	for _, p := range result.Predictions {
		sum := 0.0
		for _, v := range p.Probabilities {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}

	var buf bytes.Buffer
	require.NoError(t, dataset.WritePredictions(&buf, result.Predictions, result.Classes))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "id,actual,predicted,p_negative,p_positive", lines[0])
	assert.Len(t, lines, 21)
}

func TestClassify_Reproducible(t *testing.T) {
	a, err := newClassify(t).Run(context.Background(), embedded(t, 60, 5))
	require.NoError(t, err)
	b, err := newClassify(t).Run(context.Background(), embedded(t, 60, 5))
	require.NoError(t, err)

	a.Report.RunID, b.Report.RunID = "", ""
	assert.Equal(t, a.Report, b.Report)
	assert.Equal(t, a.Predictions, b.Predictions)
}

func TestClassify_TooFewRecords(t *testing.T) {
	ds := embedded(t, 1, 1)
	_, err := newClassify(t).Run(context.Background(), ds)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}
