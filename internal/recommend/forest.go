package recommend

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ForestParams configures forest training.
type ForestParams struct {
	Trees           int   `json:"trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	Seed            int64 `json:"seed"`
}

// DefaultForestParams is 100 bootstrapped trees of depth at most 10, seeded with 42.
func DefaultForestParams() ForestParams {
	return ForestParams{Trees: 100, MaxDepth: 10, MinSamplesSplit: 2, Seed: 42}
}

// node is a flattened tree node. Leaves have Left == -1.
type node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

// Forest is an ensemble of regression trees whose prediction is the mean of its trees.
type Forest struct {
	Features int    `json:"features"`
	Trees    []tree `json:"trees"`
}

// FitForest trains a forest on bootstrap resamples of (X, y). Splits
// minimize the summed squared error of the two children.
func FitForest(X [][]float64, y []float64, p ForestParams) (*Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("forest: %d rows and %d labels", len(X), len(y))
	}
	if p.Trees <= 0 {
		return nil, errors.New("forest: tree count must be positive")
	}
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}

	rng := rand.New(rand.NewSource(p.Seed))
	f := &Forest{Features: len(X[0]), Trees: make([]tree, 0, p.Trees)}

	n := len(X)
	for k := 0; k < p.Trees; k++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		b := &treeBuilder{X: X, y: y, params: p}
		b.grow(idx, 0)
		f.Trees = append(f.Trees, tree{Nodes: b.nodes})
	}
	return f, nil
}

// Predict averages the tree outputs for x.
func (f *Forest) Predict(x []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, errors.New("forest: no trees")
	}
	if len(x) != f.Features {
		return 0, fmt.Errorf("forest: got %d features, want %d", len(x), f.Features)
	}

	var sum float64
	for _, t := range f.Trees {
		v, err := t.predict(x)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum / float64(len(f.Trees)), nil
}

// validate checks that every split references an existing feature and
// existing children.
func (f *Forest) validate() error {
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("forest: tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Left < 0 {
				continue
			}
			if n.Feature < 0 || n.Feature >= f.Features {
				return fmt.Errorf("forest: tree %d node %d splits on feature %d", ti, ni, n.Feature)
			}
			if n.Left >= len(t.Nodes) || n.Right < 0 || n.Right >= len(t.Nodes) {
				return fmt.Errorf("forest: tree %d node %d has children out of range", ti, ni)
			}
		}
	}
	return nil
}

func (t tree) predict(x []float64) (float64, error) {
	i := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		if i < 0 || i >= len(t.Nodes) {
			return 0, fmt.Errorf("forest: node %d out of range", i)
		}
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Value, nil
		}
		if n.Feature < 0 || n.Feature >= len(x) {
			return 0, fmt.Errorf("forest: node %d splits on feature %d of %d", i, n.Feature, len(x))
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return 0, errors.New("forest: cycle in tree")
}

type treeBuilder struct {
	X      [][]float64
	y      []float64
	params ForestParams
	nodes  []node
}

// grow appends the subtree for idx and returns its root position.
func (b *treeBuilder) grow(idx []int, depth int) int {
	labels := make([]float64, len(idx))
	for i, r := range idx {
		labels[i] = b.y[r]
	}
	pos := len(b.nodes)
	b.nodes = append(b.nodes, node{Left: -1, Right: -1, Value: stat.Mean(labels, nil)})

	if depth >= b.params.MaxDepth || len(idx) < b.params.MinSamplesSplit || pure(labels) {
		return pos
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return pos
	}

	var left, right []int
	for _, r := range idx {
		if b.X[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return pos
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[pos].Feature = feature
	b.nodes[pos].Threshold = threshold
	b.nodes[pos].Left = l
	b.nodes[pos].Right = r
	return pos
}

// bestSplit scans every feature for the threshold with the lowest child SSE.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	var total, totalSq float64
	for _, r := range idx {
		total += b.y[r]
		totalSq += b.y[r] * b.y[r]
	}
	bestSSE := totalSq - total*total/float64(n)
	bestFeature, bestThreshold, found := -1, 0.0, false

	sorted := make([]int, n)
	for f := 0; f < len(b.X[idx[0]]); f++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool { return b.X[sorted[i]][f] < b.X[sorted[j]][f] })

		var leftSum, leftSq float64
		for k := 1; k < n; k++ {
			v := b.y[sorted[k-1]]
			leftSum += v
			leftSq += v * v

			lo, hi := b.X[sorted[k-1]][f], b.X[sorted[k]][f]
			if lo == hi {
				continue
			}
			rightSum, rightSq := total-leftSum, totalSq-leftSq
			sse := leftSq - leftSum*leftSum/float64(k) + rightSq - rightSum*rightSum/float64(n-k)
			if sse < bestSSE-1e-12 {
				bestSSE = sse
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func pure(labels []float64) bool {
	if len(labels) < 2 {
		return true
	}
	for _, v := range labels[1:] {
		if math.Abs(v-labels[0]) > 1e-12 {
			return false
		}
	}
	return true
}
