package modeling

import (
	"math"
	"math/rand"
	"sort"
)

// ForestParams controls the bagged decision-tree classifier.
type ForestParams struct {
	Trees           int   `json:"trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	Seed            int64 `json:"seed"`
}

// DefaultForestParams mirrors a conventional random forest setup.
func DefaultForestParams() ForestParams {
	return ForestParams{Trees: 100, MaxDepth: 10, MinSamplesSplit: 5, Seed: 42}
}

// TreeNode is a split or a leaf. Leaves have Left == -1.
type TreeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Class     int     `json:"c"`
}

type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Forest is a majority-vote ensemble of Gini trees grown on bootstrap samples
// with a random feature subset at every split.
type Forest struct {
	Classes int    `json:"classes"`
	Trees   []Tree `json:"trees"`
}

// FitForest grows the ensemble. Identical inputs and seed give an identical forest.
func FitForest(x [][]float64, labels []int, classes int, params ForestParams) *Forest {
	def := DefaultForestParams()
	if params.Trees <= 0 {
		params.Trees = def.Trees
	}
	if params.MaxDepth <= 0 {
		params.MaxDepth = def.MaxDepth
	}
	if params.MinSamplesSplit < 2 {
		params.MinSamplesSplit = def.MinSamplesSplit
	}

	rng := rand.New(rand.NewSource(params.Seed))
	f := &Forest{Classes: classes, Trees: make([]Tree, 0, params.Trees)}
	if len(x) == 0 {
		return f
	}
	p := len(x[0])
	mtry := int(math.Max(1, math.Round(math.Sqrt(float64(p)))))

	for t := 0; t < params.Trees; t++ {
		idx := make([]int, len(x))
		for i := range idx {
			idx[i] = rng.Intn(len(x))
		}
		b := treeBuilder{x: x, y: labels, classes: classes, params: params, mtry: mtry, rng: rng}
		b.grow(idx, 0)
		f.Trees = append(f.Trees, Tree{Nodes: b.nodes})
	}
	return f
}

// Predict returns the majority class; ties go to the lower class.
func (f *Forest) Predict(x []float64) int {
	votes := make([]int, f.Classes)
	for _, t := range f.Trees {
		if c := t.predict(x); c >= 0 && c < f.Classes {
			votes[c]++
		}
	}
	return argmax(votes)
}

func (t Tree) predict(x []float64) int {
	if len(t.Nodes) == 0 {
		return -1
	}
	i := 0
	for t.Nodes[i].Left >= 0 {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Class
}

type treeBuilder struct {
	x       [][]float64
	y       []int
	classes int
	params  ForestParams
	mtry    int
	rng     *rand.Rand
	nodes   []TreeNode
}

// grow appends the subtree for idx and returns its root index.
func (b *treeBuilder) grow(idx []int, depth int) int {
	counts := b.count(idx)
	self := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Left: -1, Right: -1, Class: argmax(counts)})

	if depth >= b.params.MaxDepth || len(idx) < b.params.MinSamplesSplit || gini(counts, len(idx)) == 0 {
		return self
	}

	feature, threshold, ok := b.bestSplit(idx, counts)
	if !ok {
		return self
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self] = TreeNode{Feature: feature, Threshold: threshold, Left: l, Right: r, Class: b.nodes[self].Class}
	return self
}

func (b *treeBuilder) bestSplit(idx []int, parent []int) (int, float64, bool) {
	n := len(idx)
	bestScore := gini(parent, n)
	bestFeature, bestThreshold, found := -1, 0.0, false

	features := b.rng.Perm(len(b.x[0]))[:b.mtry]
	sorted := make([]int, n)
	for _, f := range features {
		copy(sorted, idx)
		sort.Slice(sorted, func(i, j int) bool { return b.x[sorted[i]][f] < b.x[sorted[j]][f] })

		left := make([]int, b.classes)
		right := append([]int(nil), parent...)
		for k := 0; k < n-1; k++ {
			c := b.y[sorted[k]]
			left[c]++
			right[c]--

			v, next := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if v == next {
				continue
			}
			nl, nr := k+1, n-k-1
			score := (float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)) / float64(n)
			if score < bestScore-1e-12 {
				bestScore, bestFeature, bestThreshold, found = score, f, (v+next)/2, true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func (b *treeBuilder) count(idx []int) []int {
	counts := make([]int, b.classes)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	return counts
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}

func argmax(v []int) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
