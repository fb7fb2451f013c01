// Package classifier implements a random forest over dense embedding vectors.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"textclf/config"
)

var (
	ErrNotFitted         = errors.New("classifier: predict before fit")
	ErrEmptyTrainingSet  = errors.New("classifier: empty training set")
	ErrLengthMismatch    = errors.New("classifier: feature and label counts differ")
	ErrDimensionMismatch = errors.New("classifier: vector dimension mismatch")
)

// Options configures a RandomForest.
type Options struct {
	Trees           int
	MaxDepth        int // 0 = unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string // "sqrt", "log2", "all" or an integer
	Seed            int64
	Workers         int // 0 = GOMAXPROCS
}

// OptionsFromConfig copies the forest settings out of the classifier section.
func OptionsFromConfig(cfg config.ClassifierConfig) Options {
	return Options{
		Trees:           cfg.Trees,
		MaxDepth:        cfg.MaxDepth,
		MinSamplesSplit: cfg.MinSamplesSplit,
		MinSamplesLeaf:  cfg.MinSamplesLeaf,
		MaxFeatures:     cfg.MaxFeatures,
		Seed:            cfg.Seed,
		Workers:         cfg.Workers,
	}
}

// RandomForest is an ensemble of bootstrap-sampled CART trees split on Gini impurity.
// Tree i is grown from seed+i, so a fitted forest does not depend on scheduling.
type RandomForest struct {
	opts    Options
	classes []string
	dim     int
	trees   []*tree
}

func NewRandomForest(opts Options) (*RandomForest, error) {
	if opts.Trees <= 0 {
		return nil, fmt.Errorf("classifier: trees must be positive, got %d", opts.Trees)
	}
	if opts.MinSamplesSplit < 2 {
		opts.MinSamplesSplit = 2
	}
	if opts.MinSamplesLeaf < 1 {
		opts.MinSamplesLeaf = 1
	}
	if _, err := resolveMaxFeatures(opts.MaxFeatures, 1); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &RandomForest{opts: opts}, nil
}

func resolveMaxFeatures(spec string, dim int) (int, error) {
	var n int
	switch spec {
	case "", "all":
		n = dim
	case "sqrt":
		n = int(math.Sqrt(float64(dim)))
	case "log2":
		n = int(math.Log2(float64(dim)))
	default:
		v, err := strconv.Atoi(spec)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("classifier: invalid max_features %q", spec)
		}
		n = v
	}
	if n < 1 {
		n = 1
	}
	if n > dim {
		n = dim
	}
	return n, nil
}

// Fit grows the forest on x (one row per sample) and labels y.
func (f *RandomForest) Fit(ctx context.Context, x [][]float32, y []string) error {
	if len(x) == 0 {
		return ErrEmptyTrainingSet
	}
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d vectors, %d labels", ErrLengthMismatch, len(x), len(y))
	}
	dim := len(x[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	for i, row := range x {
		if len(row) != dim {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrDimensionMismatch, i, len(row), dim)
		}
	}

	classes := uniqueSorted(y)
	classIndex := make(map[string]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}
	yi := make([]int, len(y))
	for i, label := range y {
		yi[i] = classIndex[label]
	}

	maxFeatures, err := resolveMaxFeatures(f.opts.MaxFeatures, dim)
	if err != nil {
		return err
	}

	trees := make([]*tree, f.opts.Trees)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Workers)
	for i := range trees {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(f.opts.Seed + int64(i)))
			b := &builder{
				x:           x,
				y:           yi,
				nClasses:    len(classes),
				dim:         dim,
				maxFeatures: maxFeatures,
				maxDepth:    f.opts.MaxDepth,
				minSplit:    f.opts.MinSamplesSplit,
				minLeaf:     f.opts.MinSamplesLeaf,
				rng:         rng,
			}
			trees[i] = b.grow(bootstrap(len(x), rng))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.classes = classes
	f.dim = dim
	f.trees = trees
	return nil
}

func bootstrap(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Classes returns the labels seen during Fit in sorted order.
func (f *RandomForest) Classes() []string {
	out := make([]string, len(f.classes))
	copy(out, f.classes)
	return out
}

func (f *RandomForest) proba(x [][]float32) ([][]float64, error) {
	if f.trees == nil {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(x))
	for i, row := range x {
		if len(row) != f.dim {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrDimensionMismatch, i, len(row), f.dim)
		}
		p := make([]float64, len(f.classes))
		for _, t := range f.trees {
			for c, v := range t.predict(row) {
				p[c] += v
			}
		}
		for c := range p {
			p[c] /= float64(len(f.trees))
		}
		out[i] = p
	}
	return out, nil
}

// PredictProba returns the mean leaf class distribution across trees for each row.
func (f *RandomForest) PredictProba(x [][]float32) ([]map[string]float64, error) {
	probs, err := f.proba(x)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]float64, len(probs))
	for i, p := range probs {
		m := make(map[string]float64, len(p))
		for c, v := range p {
			m[f.classes[c]] = v
		}
		out[i] = m
	}
	return out, nil
}

// Predict returns the most probable class per row; ties go to the class that sorts first.
func (f *RandomForest) Predict(x [][]float32) ([]string, error) {
	probs, err := f.proba(x)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(probs))
	for i, p := range probs {
		best := 0
		for c := 1; c < len(p); c++ {
			if p[c] > p[best] {
				best = c
			}
		}
		out[i] = f.classes[best]
	}
	return out, nil
}
