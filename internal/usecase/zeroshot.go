package usecase

import (
	"context"
	"fmt"
	"sort"

	"textclf/internal/adapter/metrics"
	"textclf/internal/adapter/store"
	"textclf/internal/domain"
	"textclf/internal/logging"
	"textclf/internal/port"
)

// ZeroShotUseCase labels records by cosine similarity to embedded label descriptions.
// Embeddings already present on records are assumed to come from the same
// model as the embedder; only a dimension mismatch can be detected.
type ZeroShotUseCase struct {
	embedder port.Embedder
	labels   map[string]string
	log      *logging.Logger
}

func NewZeroShotUseCase(embedder port.Embedder, labels map[string]string, log *logging.Logger) *ZeroShotUseCase {
	return &ZeroShotUseCase{
		embedder: embedder,
		labels:   labels,
		log:      log,
	}
}

// ZeroShotResult holds per-record predictions and, when records carry
// labels, a report against them.
type ZeroShotResult struct {
	Predictions []domain.Prediction
	Report      *domain.Report
	Labels      []string
}

// index embeds the label descriptions. It returns the store, the sorted
// label names and the vector dimension.
func (u *ZeroShotUseCase) index(ctx context.Context) (port.VectorStore, []string, int, error) {
	if len(u.labels) < 2 {
		return nil, nil, 0, fmt.Errorf("zero-shot needs at least 2 labels, have %d", len(u.labels))
	}

	names := make([]string, 0, len(u.labels))
	for name := range u.labels {
		names = append(names, name)
	}
	sort.Strings(names)

	descriptions := make([]string, len(names))
	for i, name := range names {
		descriptions[i] = u.labels[name]
	}

	vectors, err := u.embedder.Embed(ctx, descriptions)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("embed label descriptions: %w", err)
	}
	if len(vectors) != len(names) || len(vectors[0]) == 0 {
		return nil, nil, 0, fmt.Errorf("embed label descriptions: %w", ErrEmptyEmbedding)
	}
	dim := len(vectors[0])

	idx := store.NewMemoryVectorStore(dim)
	items := make([]port.VectorItem, len(names))
	for i, name := range names {
		items[i] = port.VectorItem{
			ID:       name,
			Vector:   vectors[i],
			Metadata: map[string]string{"description": descriptions[i]},
		}
	}
	if err := idx.Upsert(items); err != nil {
		return nil, nil, 0, err
	}
	return idx, names, dim, nil
}

// Run scores every record against every label. Records without an
// embedding are embedded first.
func (u *ZeroShotUseCase) Run(ctx context.Context, ds *domain.Dataset) (*ZeroShotResult, error) {
	if ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}

	idx, names, dim, err := u.index(ctx)
	if err != nil {
		return nil, err
	}

	for _, rec := range ds.Records {
		if rec.HasEmbedding() && len(rec.Embedding) != dim {
			return nil, fmt.Errorf("%w: record %s has %d dimensions, %s produces %d; re-run embed with this model",
				ErrModelMismatch, rec.ID, len(rec.Embedding), u.embedder.ModelName(), dim)
		}
	}
	if err := u.embedMissing(ctx, ds); err != nil {
		return nil, err
	}

	result := &ZeroShotResult{
		Predictions: make([]domain.Prediction, ds.Len()),
		Labels:      names,
	}
	var actual, predicted []string
	for i, rec := range ds.Records {
		hits, err := idx.Search(rec.Embedding, len(names))
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		if len(hits) == 0 {
			return nil, fmt.Errorf("record %s: no label scored", rec.ID)
		}

		scores := make(map[string]float64, len(hits))
		for _, h := range hits {
			scores[h.ID] = h.Score
		}
		result.Predictions[i] = domain.Prediction{
			RecordID:  rec.ID,
			Actual:    rec.Label,
			Predicted: hits[0].ID,
			Scores:    scores,
		}
		if rec.Label != "" {
			actual = append(actual, rec.Label)
			predicted = append(predicted, hits[0].ID)
		}
	}

	if len(actual) > 0 {
		report, err := metrics.ClassificationReport(actual, predicted)
		if err != nil {
			return nil, err
		}
		result.Report = &report
	}

	u.log.Info("zero-shot scored", "records", ds.Len(), "labels", len(names))
	return result, nil
}

func (u *ZeroShotUseCase) embedMissing(ctx context.Context, ds *domain.Dataset) error {
	var texts []string
	var positions []int
	for i, rec := range ds.Records {
		if !rec.HasEmbedding() {
			texts = append(texts, rec.Combined)
			positions = append(positions, i)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	u.log.Info("embedding records without vectors", "count", len(texts))
	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed records: %w", err)
	}
	for j, pos := range positions {
		ds.Records[pos].Embedding = vectors[j]
	}
	return nil
}

// Assign overwrites record labels with the zero-shot predictions.
func Assign(ds *domain.Dataset, labelColumn string, preds []domain.Prediction) {
	byID := make(map[string]string, len(preds))
	for _, p := range preds {
		byID[p.RecordID] = p.Predicted
	}
	for i := range ds.Records {
		rec := &ds.Records[i]
		label, ok := byID[rec.ID]
		if !ok {
			continue
		}
		rec.Label = label
		rec.LabelSource = domain.LabelFromZeroShot
		if labelColumn != "" {
			rec.Fields[labelColumn] = label
		}
	}
}
