package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"textclf/internal/domain"
	"textclf/internal/port"
)

// batchPutter is implemented by stores that can write many vectors in one transaction.
type batchPutter interface {
	PutBatch(model string, texts []string, vectors [][]float32) error
}

// CachedEmbedder serves embeddings from an in-memory LRU, then from a
// persistent VectorCache, and only sends misses to the wrapped provider.
type CachedEmbedder struct {
	embedder port.Embedder
	store    port.VectorCache
	memory   *lru.Cache[string, []float32]

	mu    sync.Mutex
	stats domain.CacheStats
}

// NewCachedEmbedder wraps embedder. store may be nil for a memory-only cache.
func NewCachedEmbedder(embedder port.Embedder, store port.VectorCache, memoryEntries int) (*CachedEmbedder, error) {
	if memoryEntries <= 0 {
		memoryEntries = 1024
	}
	memory, err := lru.New[string, []float32](memoryEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &CachedEmbedder{
		embedder: embedder,
		store:    store,
		memory:   memory,
	}, nil
}

func cacheKey(model, text string) string {
	hash := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(hash[:])
}

// Embed returns one vector per text in input order. Each distinct uncached
// text is sent to the provider once.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	model := c.embedder.ModelName()
	out := make([][]float32, len(texts))

	var missTexts []string
	missIndex := make(map[string][]int)
	hits := 0

	for i, text := range texts {
		key := cacheKey(model, text)
		if v, ok := c.memory.Get(key); ok {
			out[i] = v
			hits++
			continue
		}
		if idx, pending := missIndex[text]; pending {
			missIndex[text] = append(idx, i)
			continue
		}
		if c.store != nil {
			v, ok, err := c.store.Get(model, text)
			if err != nil {
				return nil, fmt.Errorf("cache lookup: %w", err)
			}
			if ok {
				c.memory.Add(key, v)
				out[i] = v
				hits++
				continue
			}
		}
		missIndex[text] = []int{i}
		missTexts = append(missTexts, text)
	}

	c.record(hits, len(texts)-hits, 0)
	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.embedder.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	c.record(0, 0, 1)
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missTexts))
	}

	if err := c.persist(model, missTexts, vectors); err != nil {
		return nil, err
	}

	for j, text := range missTexts {
		c.memory.Add(cacheKey(model, text), vectors[j])
		for _, i := range missIndex[text] {
			out[i] = vectors[j]
		}
	}
	return out, nil
}

func (c *CachedEmbedder) persist(model string, texts []string, vectors [][]float32) error {
	if c.store == nil {
		return nil
	}
	if bp, ok := c.store.(batchPutter); ok {
		if err := bp.PutBatch(model, texts, vectors); err != nil {
			return fmt.Errorf("cache write: %w", err)
		}
		return nil
	}
	for j, text := range texts {
		if err := c.store.Put(model, text, vectors[j]); err != nil {
			return fmt.Errorf("cache write: %w", err)
		}
	}
	return nil
}

func (c *CachedEmbedder) record(hits, misses, calls int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Hits += hits
	c.stats.Misses += misses
	c.stats.ProviderCalls += calls
}

// Stats returns the traffic counters since construction.
func (c *CachedEmbedder) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *CachedEmbedder) Dimension() int {
	return c.embedder.Dimension()
}

func (c *CachedEmbedder) ModelName() string {
	return c.embedder.ModelName()
}
