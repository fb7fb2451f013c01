package usecase

import (
	"fmt"
	"math"
	"math/rand"

	"textclf/internal/domain"
)

// SplitIndices shuffles 0..n-1 with seed and returns the train and test
// positions. The test side holds ceil(n*testSize) items, at least 1 and at
// most n-1.
func SplitIndices(n int, testSize float64, seed int64) (train, test []int, err error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2 records to split, have %d", ErrEmptyDataset, n)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}

	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest < 1 {
		nTest = 1
	}
	if nTest > n-1 {
		nTest = n - 1
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// TrainTestSplit partitions records into disjoint train and test sets whose
// union is the input. The same seed and input always give the same split.
func TrainTestSplit(records []domain.Record, testSize float64, seed int64) (domain.Split, error) {
	trainIdx, testIdx, err := SplitIndices(len(records), testSize, seed)
	if err != nil {
		return domain.Split{}, err
	}

	split := domain.Split{
		Train: make([]domain.Record, len(trainIdx)),
		Test:  make([]domain.Record, len(testIdx)),
	}
	for i, idx := range trainIdx {
		split.Train[i] = records[idx]
	}
	for i, idx := range testIdx {
		split.Test[i] = records[idx]
	}
	return split, nil
}
