package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"textclf/config"
	"textclf/internal/adapter/blob"
	"textclf/internal/adapter/cache"
	"textclf/internal/adapter/dataset"
	"textclf/internal/adapter/embedding"
	"textclf/internal/adapter/fs"
	"textclf/internal/adapter/store"
)

// resolvePath makes relative local paths relative to --dir. S3 URIs pass through.
func resolvePath(p string) string {
	if p == "" || blob.IsS3(p) || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GetRootDir(), p)
}

func newSource(cfg config.DatasetConfig) *dataset.Source {
	return dataset.NewSource(blob.NewOpener(), fs.NewWalker(cfg.Exclude))
}

// openCache opens the bolt cache and clears or migrates it when the
// embedding settings or schema changed.
func openCache(cfg *config.Config) (*store.BoltCache, error) {
	dir := GetRootDir()
	if err := config.EnsureWorkDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create .textclf directory: %w", err)
	}
	path := cfg.ResolveCachePath(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	st, err := store.NewBoltCache(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}

	result, err := st.Prepare(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to prepare embedding cache: %w", err)
	}
	if result.NeedsRebuild {
		fmt.Printf("Embedding cache cleared: %s\n", result.Reason)
	}
	return st, nil
}

// newCachedEmbedder builds the configured provider behind the memory and bolt caches.
// The returned close function releases the cache file.
func newCachedEmbedder(ctx context.Context, cfg *config.Config) (*cache.CachedEmbedder, func() error, error) {
	provider, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	st, err := openCache(cfg)
	if err != nil {
		return nil, nil, err
	}

	cached, err := cache.NewCachedEmbedder(provider, st, cfg.Cache.MemoryEntries)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return cached, st.Close, nil
}

// isTerminal reports whether stdout is an interactive terminal.
func isTerminal() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
