package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"golang.org/x/time/rate"
)

// bedrockInvoker is the subset of the Bedrock runtime client used here.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockEmbedder calls Amazon Titan text embedding models through Bedrock.
// Titan accepts one text per request.
type BedrockEmbedder struct {
	client    bedrockInvoker
	model     string
	dimension int
	limiter   *rate.Limiter
}

type titanEmbeddingRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type titanEmbeddingResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// NewBedrockEmbedder builds a client from the default AWS credential chain.
func NewBedrockEmbedder(ctx context.Context, region, model string, dimension, requestsPerMinute int) (*BedrockEmbedder, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newBedrockEmbedder(bedrockruntime.NewFromConfig(awsCfg), model, dimension, requestsPerMinute), nil
}

func newBedrockEmbedder(client bedrockInvoker, model string, dimension, requestsPerMinute int) *BedrockEmbedder {
	if model == "" {
		model = "amazon.titan-embed-text-v2:0"
	}
	if dimension == 0 {
		dimension = KnownDimension(model)
	}
	var limiter *rate.Limiter
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)
	}
	return &BedrockEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
		limiter:   limiter,
	}
}

func (e *BedrockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := e.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, v)
	}
	return embeddings, nil
}

func (e *BedrockEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req := titanEmbeddingRequest{InputText: text}
	// Only Titan v2 accepts an output size.
	if strings.Contains(e.model, "v2") {
		req.Dimensions = e.dimension
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock invoke %s: %w", e.model, err)
	}

	var titanResp titanEmbeddingResponse
	if err := json.Unmarshal(resp.Body, &titanResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(titanResp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: bedrock returned no embedding", ErrIncompleteResponse)
	}
	if e.dimension == 0 {
		e.dimension = len(titanResp.Embedding)
	}
	if len(titanResp.Embedding) != e.dimension {
		return nil, &DimensionMismatchError{Expected: e.dimension, Actual: len(titanResp.Embedding)}
	}
	return titanResp.Embedding, nil
}

func (e *BedrockEmbedder) Dimension() int {
	return e.dimension
}

func (e *BedrockEmbedder) ModelName() string {
	return e.model
}
