package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"textclf/internal/adapter/embedding"
	"textclf/internal/adapter/store"
)

type failingEmbedder struct{ err error }

func (f failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, f.err
}
func (f failingEmbedder) Dimension() int    { return 4 }
func (f failingEmbedder) ModelName() string { return "failing" }

func TestCachedEmbedder_OnlyMissesReachProvider(t *testing.T) {
	mock := embedding.NewMockEmbedder(8)
	ce, err := NewCachedEmbedder(mock, nil, 16)
	require.NoError(t, err)

	first, err := ce.Embed(context.Background(), []string{"a b", "c d", "a b"})
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, first[0], first[2])

	calls, texts := mock.Calls()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, texts, "duplicate text sent once")

	second, err := ce.Embed(context.Background(), []string{"c d", "a b"})
	require.NoError(t, err)
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[1])

	calls, _ = mock.Calls()
	assert.Equal(t, 1, calls, "second run served from memory")

	stats := ce.Stats()
	assert.Equal(t, 2, stats.Hits)
	assert.Equal(t, 3, stats.Misses)
	assert.Equal(t, 1, stats.ProviderCalls)
}

func TestCachedEmbedder_PersistentTierIsByteIdentical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	texts := []string{"Title: Great; Content: Loved it", "Title: Bad; Content: Stale"}

	st, err := store.NewBoltCache(path)
	require.NoError(t, err)
	ce, err := NewCachedEmbedder(embedding.NewMockEmbedder(8), st, 16)
	require.NoError(t, err)
	first, err := ce.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// A fresh process: new memory tier, same file, provider that must not be called.
	st, err = store.NewBoltCache(path)
	require.NoError(t, err)
	defer st.Close()
	mock := embedding.NewMockEmbedder(8)
	ce, err = NewCachedEmbedder(mock, st, 16)
	require.NoError(t, err)

	second, err := ce.Embed(context.Background(), texts)
	require.NoError(t, err)

	for i := range texts {
		assert.Equal(t, store.EncodeVector(first[i]), store.EncodeVector(second[i]))
	}
	calls, _ := mock.Calls()
	assert.Zero(t, calls)
}

func TestCachedEmbedder_ProviderErrorPropagates(t *testing.T) {
	boom := errors.New("provider down")
	ce, err := NewCachedEmbedder(failingEmbedder{err: boom}, nil, 4)
	require.NoError(t, err)

	_, err = ce.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "failing", ce.ModelName())
	assert.Equal(t, 4, ce.Dimension())
}
