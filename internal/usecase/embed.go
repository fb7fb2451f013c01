package usecase

import (
	"context"
	"fmt"

	"textclf/internal/domain"
	"textclf/internal/logging"
	"textclf/internal/port"
)

// ProgressReporter receives the number of records finished since the last call.
type ProgressReporter interface {
	Add(n int) error
}

type statsReporter interface {
	Stats() domain.CacheStats
}

// EmbedUseCase attaches an embedding to every record.
type EmbedUseCase struct {
	embedder  port.Embedder
	batchSize int
	log       *logging.Logger
}

func NewEmbedUseCase(embedder port.Embedder, batchSize int, log *logging.Logger) *EmbedUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &EmbedUseCase{
		embedder:  embedder,
		batchSize: batchSize,
		log:       log,
	}
}

// EmbedResult summarises an embed run.
type EmbedResult struct {
	Records  int
	Embedded int
	Cache    domain.CacheStats
}

// Run embeds Combined for every record in order, one batch at a time.
// The first failing batch stops the run; the result still reports how many
// records were embedded before it.
func (u *EmbedUseCase) Run(ctx context.Context, ds *domain.Dataset, progress ProgressReporter) (*EmbedResult, error) {
	result := &EmbedResult{Records: ds.Len()}
	defer func() {
		if sr, ok := u.embedder.(statsReporter); ok {
			result.Cache = sr.Stats()
		}
	}()

	for start := 0; start < ds.Len(); start += u.batchSize {
		end := start + u.batchSize
		if end > ds.Len() {
			end = ds.Len()
		}

		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = ds.Records[start+i].Combined
		}

		vectors, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return result, fmt.Errorf("embed records %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(texts) {
			return result, fmt.Errorf("embed records %d-%d: got %d vectors for %d texts", start, end-1, len(vectors), len(texts))
		}

		for i, vec := range vectors {
			if len(vec) == 0 {
				return result, fmt.Errorf("record %s: %w", ds.Records[start+i].ID, ErrEmptyEmbedding)
			}
			ds.Records[start+i].Embedding = vec
			result.Embedded++
		}

		u.log.Debug("batch embedded", "from", start, "to", end-1)
		if progress != nil {
			if err := progress.Add(len(texts)); err != nil {
				u.log.Debug("progress update failed", "error", err)
			}
		}
	}

	return result, nil
}
