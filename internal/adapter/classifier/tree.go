package classifier

import (
	"math/rand"
	"sort"
)

type node struct {
	feature   int // -1 for leaves
	threshold float32
	left      int
	right     int
	dist      []float64
}

type tree struct {
	nodes []node
}

func (t *tree) predict(row []float32) []float64 {
	n := &t.nodes[0]
	for n.feature >= 0 {
		if row[n.feature] <= n.threshold {
			n = &t.nodes[n.left]
		} else {
			n = &t.nodes[n.right]
		}
	}
	return n.dist
}

type builder struct {
	x           [][]float32
	y           []int
	nClasses    int
	dim         int
	maxFeatures int
	maxDepth    int
	minSplit    int
	minLeaf     int
	rng         *rand.Rand
	nodes       []node
}

func (b *builder) grow(idx []int) *tree {
	b.nodes = b.nodes[:0]
	b.build(idx, 0)
	return &tree{nodes: b.nodes}
}

func (b *builder) counts(idx []int) []int {
	c := make([]int, b.nClasses)
	for _, i := range idx {
		c[b.y[i]]++
	}
	return c
}

func (b *builder) leaf(counts []int, n int) int {
	dist := make([]float64, len(counts))
	for c, v := range counts {
		dist[c] = float64(v) / float64(n)
	}
	b.nodes = append(b.nodes, node{feature: -1, dist: dist})
	return len(b.nodes) - 1
}

func (b *builder) build(idx []int, depth int) int {
	counts := b.counts(idx)
	if isPure(counts) || len(idx) < b.minSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return b.leaf(counts, len(idx))
	}

	feature, threshold, ok := b.bestSplit(idx, counts)
	if !ok {
		return b.leaf(counts, len(idx))
	}

	// Partition in place: left holds rows at or below the threshold.
	lo, hi := 0, len(idx)-1
	for lo <= hi {
		if b.x[idx[lo]][feature] <= threshold {
			lo++
		} else {
			idx[lo], idx[hi] = idx[hi], idx[lo]
			hi--
		}
	}

	self := len(b.nodes)
	b.nodes = append(b.nodes, node{feature: feature, threshold: threshold})
	left := b.build(idx[:lo], depth+1)
	right := b.build(idx[lo:], depth+1)
	b.nodes[self].left = left
	b.nodes[self].right = right
	return self
}

func isPure(counts []int) bool {
	nonzero := 0
	for _, c := range counts {
		if c > 0 {
			nonzero++
		}
	}
	return nonzero <= 1
}

// bestSplit searches maxFeatures random features for the threshold with the
// lowest weighted Gini impurity that leaves minLeaf samples on each side.
func (b *builder) bestSplit(idx []int, counts []int) (int, float32, bool) {
	n := len(idx)
	features := b.rng.Perm(b.dim)[:b.maxFeatures]

	sorted := make([]int, n)
	left := make([]int, b.nClasses)
	right := make([]int, b.nClasses)

	bestFeature, bestThreshold := -1, float32(0)
	bestScore := 0.0

	for _, f := range features {
		copy(sorted, idx)
		sort.Slice(sorted, func(i, j int) bool {
			return b.x[sorted[i]][f] < b.x[sorted[j]][f]
		})
		if b.x[sorted[0]][f] == b.x[sorted[n-1]][f] {
			continue
		}

		for c := range left {
			left[c] = 0
			right[c] = counts[c]
		}

		for i := 0; i < n-1; i++ {
			cls := b.y[sorted[i]]
			left[cls]++
			right[cls]--

			nl, nr := i+1, n-i-1
			if nl < b.minLeaf {
				continue
			}
			if nr < b.minLeaf {
				break
			}
			a, next := b.x[sorted[i]][f], b.x[sorted[i+1]][f]
			if a == next {
				continue
			}

			score := giniSum(left, nl) + giniSum(right, nr)
			if bestFeature < 0 || score < bestScore {
				bestFeature = f
				bestScore = score
				bestThreshold = midpoint(a, next)
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

// giniSum returns n * gini(counts), so sums over both sides weight by size.
func giniSum(counts []int, n int) float64 {
	sq := 0.0
	for _, c := range counts {
		sq += float64(c) * float64(c)
	}
	return float64(n) - sq/float64(n)
}

func midpoint(a, b float32) float32 {
	m := a + (b-a)/2
	if m >= b {
		return a
	}
	return m
}
