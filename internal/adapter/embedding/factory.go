package embedding

import (
	"context"
	"fmt"
	"time"

	"textclf/config"
	"textclf/internal/port"
)

// New builds the embedder selected by cfg.Provider.
func New(ctx context.Context, cfg config.EmbeddingConfig) (port.Embedder, error) {
	opts := OpenAIOptions{
		APIKeyEnv:         cfg.APIKeyEnv,
		Model:             cfg.Model,
		BaseURL:           cfg.BaseURL,
		Dimension:         cfg.Dimension,
		BatchSize:         cfg.BatchSize,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Timeout:           time.Duration(cfg.TimeoutSecs) * time.Second,
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedder(opts)
	case "jina":
		return NewJinaEmbedder(opts)
	case "ollama":
		return NewOllamaEmbedder(opts)
	case "bedrock":
		return NewBedrockEmbedder(ctx, cfg.Region, cfg.Model, cfg.Dimension, cfg.RequestsPerMinute)
	case "mock":
		return NewMockEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
