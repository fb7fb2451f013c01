package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension (0 when unknown until the first call).
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorCache persists embeddings keyed by model and text.
type VectorCache interface {
	Get(model, text string) ([]float32, bool, error)

	// Put stores a vector unless one is already cached for the key.
	Put(model, text string, vector []float32) error

	Count() (int, error)

	Clear() error
}

// VectorStore stores and searches embedding vectors in memory.
type VectorStore interface {
	Upsert(items []VectorItem) error

	Search(query []float32, k int) ([]VectorResult, error)

	Count() (int, error)
}

// VectorItem represents a vector to be stored.
type VectorItem struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// VectorResult represents a search result.
type VectorResult struct {
	ID       string
	Score    float64 // cosine similarity, higher is better
	Metadata map[string]string
}
