package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textclf/internal/adapter/cache"
	"textclf/internal/adapter/embedding"
	"textclf/internal/domain"
	"textclf/internal/logging"
)

func zeroShotLabels() map[string]string {
	return map[string]string{
		"positive": strings.Join(positiveWords, " "),
		"negative": strings.Join(negativeWords, " "),
	}
}

func TestZeroShot_ScoresByCosine(t *testing.T) {
	mock := embedding.NewMockEmbedder(64)
	cached, err := cache.NewCachedEmbedder(mock, nil, 0)
	require.NoError(t, err)

	ds := reviews(40, 9)
	uc := NewZeroShotUseCase(cached, zeroShotLabels(), logging.Discard())

	result, err := uc.Run(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, []string{"negative", "positive"}, result.Labels)
	require.NotNil(t, result.Report)
	assert.GreaterOrEqual(t, result.Report.Accuracy, 0.9)

	for _, p := range result.Predictions {
		assert.Empty(t, p.Probabilities)
		assert.Len(t, p.Scores, 2)
		other := "negative"
		if p.Predicted == "negative" {
			other = "positive"
		}
		assert.GreaterOrEqual(t, p.Scores[p.Predicted], p.Scores[other])
	}

	// Records were embedded along the way.
	for _, rec := range ds.Records {
		assert.True(t, rec.HasEmbedding())
	}
}

func TestZeroShot_Unlabelled(t *testing.T) {
	ds := reviews(4, 2)
	for i := range ds.Records {
		ds.Records[i].Label = ""
	}

	result, err := NewZeroShotUseCase(embedding.NewMockEmbedder(32), zeroShotLabels(), logging.Discard()).
		Run(context.Background(), ds)
	require.NoError(t, err)
	assert.Nil(t, result.Report)

	Assign(ds, "Score", result.Predictions)
	for i, rec := range ds.Records {
		assert.Equal(t, result.Predictions[i].Predicted, rec.Label)
		assert.Equal(t, rec.Label, rec.Fields["Score"])
		assert.Equal(t, domain.LabelFromZeroShot, rec.LabelSource)
	}
}

func TestZeroShot_NeedsTwoLabels(t *testing.T) {
	uc := NewZeroShotUseCase(embedding.NewMockEmbedder(8), map[string]string{"only": "x"}, logging.Discard())
	_, err := uc.Run(context.Background(), reviews(2, 1))
	assert.Error(t, err)
}

func TestZeroShot_RejectsEmbeddingsFromAnotherModel(t *testing.T) {
	ds := reviews(3, 4)
	for i := range ds.Records {
		ds.Records[i].Embedding = make([]float32, 16)
		ds.Records[i].Embedding[0] = 1
	}

	uc := NewZeroShotUseCase(embedding.NewMockEmbedder(32), zeroShotLabels(), logging.Discard())
	_, err := uc.Run(context.Background(), ds)
	require.ErrorIs(t, err, ErrModelMismatch)
	assert.Contains(t, err.Error(), "16 dimensions")
	assert.Contains(t, err.Error(), embedding.NewMockEmbedder(32).ModelName())
}
