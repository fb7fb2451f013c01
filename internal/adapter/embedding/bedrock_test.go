package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBedrock struct {
	requests []titanEmbeddingRequest
	models   []string
	vector   []float32
	err      error
}

func (f *fakeBedrock) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	var req titanEmbeddingRequest
	if err := json.Unmarshal(params.Body, &req); err != nil {
		return nil, err
	}
	f.requests = append(f.requests, req)
	f.models = append(f.models, *params.ModelId)

	body, _ := json.Marshal(titanEmbeddingResponse{Embedding: f.vector, InputTextTokenCount: 3})
	return &bedrockruntime.InvokeModelOutput{Body: body}, nil
}

func TestBedrockEmbedder_OneRequestPerText(t *testing.T) {
	fake := &fakeBedrock{vector: []float32{0.1, 0.2, 0.3, 0.4}}
	e := newBedrockEmbedder(fake, "amazon.titan-embed-text-v2:0", 4, 0)

	out, err := e.Embed(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, fake.requests, 2)

	assert.Equal(t, "one", fake.requests[0].InputText)
	assert.Equal(t, 4, fake.requests[0].Dimensions)
	assert.Equal(t, "amazon.titan-embed-text-v2:0", fake.models[1])
	assert.Equal(t, "amazon.titan-embed-text-v2:0", e.ModelName())
}

func TestBedrockEmbedder_V1OmitsDimensions(t *testing.T) {
	fake := &fakeBedrock{vector: make([]float32, 1536)}
	e := newBedrockEmbedder(fake, "amazon.titan-embed-text-v1", 0, 0)

	_, err := e.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Zero(t, fake.requests[0].Dimensions)
	assert.Equal(t, 1536, e.Dimension())
}

func TestBedrockEmbedder_ErrorPropagates(t *testing.T) {
	boom := errors.New("AccessDeniedException")
	e := newBedrockEmbedder(&fakeBedrock{err: boom}, "", 0, 0)

	_, err := e.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, boom)
}
