package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"textclf/config"
	"textclf/internal/adapter/cache"
	"textclf/internal/adapter/embedding"
	"textclf/internal/adapter/store"
	"textclf/internal/port"
)

func main() {
	dir := flag.String("dir", ".", "Path to the textclf working directory")
	text := flag.String("q", "", "Text to score against the zero-shot labels")
	flag.Parse()

	if *text == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -dir . -q \"review text\"")
		fmt.Println("\nTests:")
		fmt.Println("  1. Embedding provider (connection, latency, dimension)")
		fmt.Println("  2. Cache round trip (second lookup served without a provider call)")
		fmt.Println("  3. Label separation (text vs zero-shot label descriptions)")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	provider, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
		os.Exit(1)
	}

	// A scratch cache keeps the benchmark away from the real one.
	tmp, err := os.MkdirTemp("", "textclf-bench")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmp)

	st, err := store.NewBoltCache(tmp + "/bench.db")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	embedder, err := cache.NewCachedEmbedder(provider, st, 16)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating cache: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("EMBEDDING BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Model: %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)

	start := time.Now()
	cold, err := embedder.Embed(ctx, []string{*text})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding error: %v\n", err)
		os.Exit(1)
	}
	coldTime := time.Since(start)

	start = time.Now()
	if _, err := embedder.Embed(ctx, []string{*text}); err != nil {
		fmt.Fprintf(os.Stderr, "Embedding error: %v\n", err)
		os.Exit(1)
	}
	warmTime := time.Since(start)

	stats := embedder.Stats()
	fmt.Printf("Dimension: %d\n", len(cold[0]))
	fmt.Printf("Provider latency: %s\n", coldTime)
	fmt.Printf("Cached latency:   %s\n", warmTime)
	fmt.Printf("Provider calls:   %d (want 1)\n", stats.ProviderCalls)
	fmt.Println()

	results, err := scoreLabels(ctx, embedder, cfg.ZeroShot.Labels, cold[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Label scoring error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Text: \"%s\"\n", *text)
	fmt.Println(strings.Repeat("-", 70))
	for i, r := range results {
		rating := "LOW"
		if r.Score > 0.7 {
			rating = "HIGH"
		} else if r.Score > 0.5 {
			rating = "GOOD"
		} else if r.Score > 0.3 {
			rating = "OK"
		}
		fmt.Printf("%d. [%s %.3f] %s\n", i+1, rating, r.Score, r.ID)
		fmt.Printf("   %s\n\n", r.Metadata["description"])
	}

	fmt.Println(strings.Repeat("=", 70))
	if len(results) < 2 {
		return
	}
	margin := results[0].Score - results[1].Score
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Top-1 similarity: %.3f\n", results[0].Score)
	fmt.Printf("  Margin to next:   %.3f\n", margin)
	if margin > 0.05 {
		fmt.Println("  Status: GOOD - labels are well separated for this text")
	} else if margin > 0.01 {
		fmt.Println("  Status: OK - labels are close, consider sharper descriptions")
	} else {
		fmt.Println("  Status: POOR - descriptions are indistinguishable for this text")
	}
}

func scoreLabels(ctx context.Context, embedder port.Embedder, labels map[string]string, query []float32) ([]port.VectorResult, error) {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	descriptions := make([]string, len(names))
	for i, name := range names {
		descriptions[i] = labels[name]
	}
	vectors, err := embedder.Embed(ctx, descriptions)
	if err != nil {
		return nil, err
	}

	idx := store.NewMemoryVectorStore(len(query))
	items := make([]port.VectorItem, len(names))
	for i, name := range names {
		items[i] = port.VectorItem{ID: name, Vector: vectors[i], Metadata: map[string]string{"description": descriptions[i]}}
	}
	if err := idx.Upsert(items); err != nil {
		return nil, err
	}
	return idx.Search(query, 0)
}
