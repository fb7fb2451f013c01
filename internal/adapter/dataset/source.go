package dataset

import (
	"context"
	"fmt"
	"slices"

	"textclf/internal/adapter/blob"
	"textclf/internal/adapter/fs"
	"textclf/internal/domain"
)

// Source reads tables from local paths, globs or S3 and writes them back.
type Source struct {
	opener *blob.Opener
	walker *fs.Walker
}

func NewSource(opener *blob.Opener, walker *fs.Walker) *Source {
	return &Source{opener: opener, walker: walker}
}

// Read loads uri. A glob is expanded to files read in lexical order and
// concatenated; every file must have the same header.
func (s *Source) Read(ctx context.Context, uri string, cols Columns) (*domain.Dataset, error) {
	if blob.IsS3(uri) {
		return s.readOne(ctx, uri, cols, 0)
	}

	files, err := s.walker.Expand(uri)
	if err != nil {
		return nil, err
	}

	var out *domain.Dataset
	for _, path := range files {
		offset := 0
		if out != nil {
			offset = out.Len()
		}
		ds, err := s.readOne(ctx, path, cols, offset)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = ds
			continue
		}
		if !slices.Equal(out.Columns, ds.Columns) {
			return nil, fmt.Errorf("%w: %s has columns %v, want %v", ErrHeaderMismatch, path, ds.Columns, out.Columns)
		}
		out.Records = append(out.Records, ds.Records...)
	}
	return out, nil
}

func (s *Source) readOne(ctx context.Context, uri string, cols Columns, offset int) (*domain.Dataset, error) {
	r, err := s.opener.Open(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	defer r.Close()

	ds, err := readCSV(r, cols, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", uri, err)
	}
	return ds, nil
}

// Write stores ds at uri, compressed according to its extension.
func (s *Source) Write(ctx context.Context, uri string, ds *domain.Dataset) error {
	w, err := s.opener.Create(ctx, uri)
	if err != nil {
		return fmt.Errorf("create %s: %w", uri, err)
	}
	if err := WriteCSV(w, ds); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", uri, err)
	}
	return w.Close()
}

// ReadCorrections loads an id,label overrides file from any supported location.
func (s *Source) ReadCorrections(ctx context.Context, uri string) (map[string]string, error) {
	r, err := s.opener.Open(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("open corrections %s: %w", uri, err)
	}
	defer r.Close()
	return ReadCorrections(r)
}
