package usecase

import (
	"math"
	"sort"
	"strconv"
	"testing"

	"textclf/internal/domain"
)

func makeRecords(n int) []domain.Record {
	records := make([]domain.Record, n)
	for i := range records {
		records[i] = domain.Record{ID: strconv.Itoa(i)}
	}
	return records
}

func TestTrainTestSplit_Properties(t *testing.T) {
	for _, n := range []int{2, 3, 10, 57, 1000} {
		for _, testSize := range []float64{0.01, 0.2, 0.5, 0.99} {
			for _, seed := range []int64{0, 1, 42} {
				split, err := TrainTestSplit(makeRecords(n), testSize, seed)
				if err != nil {
					t.Fatalf("n=%d size=%v seed=%d: %v", n, testSize, seed, err)
				}

				wantTest := int(math.Ceil(float64(n) * testSize))
				if wantTest < 1 {
					wantTest = 1
				}
				if wantTest > n-1 {
					wantTest = n - 1
				}
				if len(split.Test) != wantTest {
					t.Errorf("n=%d size=%v: test=%d, want %d", n, testSize, len(split.Test), wantTest)
				}

				seen := make(map[string]bool, n)
				for _, r := range append(append([]domain.Record{}, split.Train...), split.Test...) {
					if seen[r.ID] {
						t.Fatalf("n=%d size=%v seed=%d: record %s in both partitions", n, testSize, seed, r.ID)
					}
					seen[r.ID] = true
				}
				if len(seen) != n {
					t.Errorf("n=%d: union has %d records", n, len(seen))
				}
			}
		}
	}
}

func TestTrainTestSplit_Reproducible(t *testing.T) {
	records := makeRecords(100)

	a, _ := TrainTestSplit(records, 0.2, 42)
	b, _ := TrainTestSplit(records, 0.2, 42)
	c, _ := TrainTestSplit(records, 0.2, 7)

	if ids(a.Test) != ids(b.Test) {
		t.Error("same seed produced different splits")
	}
	if ids(a.Test) == ids(c.Test) {
		t.Error("different seeds produced the same split")
	}
}

func ids(records []domain.Record) string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	sort.Strings(out)
	s := ""
	for _, id := range out {
		s += id + ","
	}
	return s
}

func TestTrainTestSplit_Errors(t *testing.T) {
	if _, err := TrainTestSplit(makeRecords(1), 0.2, 1); err == nil {
		t.Error("expected error for a single record")
	}
	if _, err := TrainTestSplit(makeRecords(10), 0, 1); err == nil {
		t.Error("expected error for test size 0")
	}
	if _, err := TrainTestSplit(makeRecords(10), 1, 1); err == nil {
		t.Error("expected error for test size 1")
	}
}
