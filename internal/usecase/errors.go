package usecase

import "errors"

var (
	ErrEmptyDataset   = errors.New("empty dataset")
	ErrEmptyEmbedding = errors.New("provider returned an empty embedding")
	ErrModelMismatch  = errors.New("embedding dimension does not match the configured model")
)
