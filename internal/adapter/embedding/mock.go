package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"
	"unicode"
)

// MockEmbedder derives deterministic unit vectors from a hash of the text.
// Texts sharing words get correlated vectors, which is enough for tests of
// the classifiers to learn something.
type MockEmbedder struct {
	dimension int

	mu    sync.Mutex
	calls int
	texts int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 64
	}
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.calls++
	e.texts += len(texts)
	e.mu.Unlock()

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.vector(text)
	}
	return embeddings, nil
}

func (e *MockEmbedder) vector(text string) []float32 {
	v := make([]float64, e.dimension)
	for _, word := range splitWords(text) {
		sum := sha256.Sum256([]byte(word))
		for j := 0; j < 4; j++ {
			idx := binary.LittleEndian.Uint32(sum[j*4:]) % uint32(e.dimension)
			sign := 1.0
			if sum[16+j]&1 == 1 {
				sign = -1.0
			}
			v[idx] += sign
		}
	}

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	out := make([]float32, e.dimension)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}

// Calls returns how many Embed calls were made and how many texts they carried.
func (e *MockEmbedder) Calls() (calls, texts int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls, e.texts
}

func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}
