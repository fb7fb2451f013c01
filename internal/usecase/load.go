package usecase

import (
	"context"
	"fmt"

	"textclf/config"
	"textclf/internal/adapter/dataset"
	"textclf/internal/domain"
	"textclf/internal/logging"
	"textclf/internal/port"
)

// LoadUseCase reads the raw table and turns it into records ready to embed.
type LoadUseCase struct {
	source    *dataset.Source
	tokenizer port.Tokenizer
	cfg       config.DatasetConfig
	maxTokens int
	log       *logging.Logger
}

func NewLoadUseCase(
	source *dataset.Source,
	tokenizer port.Tokenizer,
	cfg config.DatasetConfig,
	maxTokens int,
	log *logging.Logger,
) *LoadUseCase {
	return &LoadUseCase{
		source:    source,
		tokenizer: tokenizer,
		cfg:       cfg,
		maxTokens: maxTokens,
		log:       log,
	}
}

// LoadResult counts what each filtering step removed.
type LoadResult struct {
	Read           int
	Incomplete     int
	Unmapped       int
	Corrected      int
	OverTokenLimit int
	Kept           int
}

func (u *LoadUseCase) columns() dataset.Columns {
	return dataset.ColumnsFromConfig(u.cfg)
}

// Load reads the configured input and runs Prepare over it.
func (u *LoadUseCase) Load(ctx context.Context) (*domain.Dataset, *LoadResult, error) {
	ds, err := u.source.Read(ctx, u.cfg.Input, u.columns())
	if err != nil {
		return nil, nil, err
	}

	var corrections map[string]string
	if u.cfg.Corrections != "" {
		corrections, err = u.source.ReadCorrections(ctx, u.cfg.Corrections)
		if err != nil {
			return nil, nil, err
		}
	}

	result := u.Prepare(ds, corrections)
	u.log.Info("dataset loaded",
		"input", u.cfg.Input,
		"read", result.Read,
		"incomplete", result.Incomplete,
		"unmapped", result.Unmapped,
		"corrected", result.Corrected,
		"over_token_limit", result.OverTokenLimit,
		"kept", result.Kept)

	if ds.Len() == 0 {
		return nil, result, fmt.Errorf("%w: no rows left after filtering %s", ErrEmptyDataset, u.cfg.Input)
	}
	return ds, result, nil
}

// Prepare filters and truncates ds in place and fills Combined and Tokens.
// Order: incomplete rows, recency sort, tail of 2*top_n, label map,
// corrections, token limit, tail of top_n.
func (u *LoadUseCase) Prepare(ds *domain.Dataset, corrections map[string]string) *LoadResult {
	result := &LoadResult{Read: ds.Len()}

	required := make([]string, 0, len(u.cfg.TextFields)+1)
	for _, tf := range u.cfg.TextFields {
		required = append(required, tf.Column)
	}
	if u.cfg.LabelColumn != "" {
		required = append(required, u.cfg.LabelColumn)
	}
	result.Incomplete = dataset.DropIncomplete(ds, required)

	if u.cfg.TimeColumn != "" {
		dataset.SortByTime(ds)
	}
	if u.cfg.TopN > 0 {
		dataset.Tail(ds, u.cfg.TopN*2)
	}

	result.Unmapped = dataset.ApplyLabelMap(ds, u.cfg.LabelColumn, u.cfg.LabelMap)
	result.Corrected = dataset.ApplyCorrections(ds, u.cfg.LabelColumn, corrections)

	kept := ds.Records[:0]
	for _, rec := range ds.Records {
		rec.Combined = dataset.Combine(rec.Fields, u.cfg.TextFields, u.cfg.Separator)
		rec.Tokens = u.tokenizer.CountTokens(rec.Combined)
		if u.maxTokens > 0 && rec.Tokens > u.maxTokens {
			result.OverTokenLimit++
			u.log.Debug("record over token limit", "id", rec.ID, "tokens", rec.Tokens, "max", u.maxTokens)
			continue
		}
		kept = append(kept, rec)
	}
	ds.Records = kept

	dataset.Tail(ds, u.cfg.TopN)
	result.Kept = ds.Len()
	return result
}
