package tree

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/plantops/forgeml/core/random"
	"github.com/plantops/forgeml/pkg/errors"
)

// Node is one node of an extremely randomized regression tree.
// A leaf has neither child; an internal node has both, plus Feature and
// Threshold. Value is the mean target of the node's samples.
type Node struct {
	Value     float64  `json:"value"`
	Feature   *int     `json:"feature,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Left      *Node    `json:"left,omitempty"`
	Right     *Node    `json:"right,omitempty"`
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// PredictRow walks the tree for one feature vector.
func (n *Node) PredictRow(x []float64) float64 {
	node := n
	for !node.IsLeaf() {
		if x[*node.Feature] <= *node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// Depth returns the length of the longest root-to-leaf path.
func (n *Node) Depth() int {
	if n.IsLeaf() {
		return 0
	}
	return 1 + max(n.Left.Depth(), n.Right.Depth())
}

// Validate checks the structure of a decoded tree: every internal node has
// both children, a feature index below nFeatures and a finite threshold.
func (n *Node) Validate(nFeatures int) error {
	if n == nil {
		return errors.NewValidationError("node", "missing node", nil)
	}
	if !errors.IsFinite(n.Value) {
		return errors.NewValidationError("node.value", "non-finite value", n.Value)
	}
	if n.IsLeaf() {
		return nil
	}
	if n.Left == nil || n.Right == nil {
		return errors.NewValidationError("node", "internal node must have two children", nil)
	}
	if n.Feature == nil || *n.Feature < 0 || *n.Feature >= nFeatures {
		return errors.NewValidationError("node.feature", "missing or out of range", n.Feature)
	}
	if n.Threshold == nil || !errors.IsFinite(*n.Threshold) {
		return errors.NewValidationError("node.threshold", "missing or non-finite", n.Threshold)
	}
	if err := n.Left.Validate(nFeatures); err != nil {
		return err
	}
	return n.Right.Validate(nFeatures)
}

// ExtraTreeConfig holds the growth limits of one tree.
type ExtraTreeConfig struct {
	MaxDepth       int
	MinSamplesLeaf int
}

// extraTreeBuilder grows one tree over a fixed sample multiset and feature subset.
type extraTreeBuilder struct {
	X        mat.Matrix
	y        []float64
	features []int
	cfg      ExtraTreeConfig
	rng      *random.LCG
}

// BuildExtraTree grows an extremely randomized tree on the rows listed in
// samples (duplicates allowed, e.g. a bootstrap sample) using only the
// features in subset.
//
// A node becomes a leaf when depth >= MaxDepth or it holds fewer than
// 2·MinSamplesLeaf samples. Otherwise each subset feature draws one uniform
// threshold in [min, max) of the node's values; constant features are
// skipped. The split with the lowest SSE_left + SSE_right wins, where a side
// with fewer than MinSamplesLeaf samples is invalid. No valid split → leaf.
func BuildExtraTree(X mat.Matrix, y []float64, samples, subset []int, cfg ExtraTreeConfig, rng *random.LCG) *Node {
	b := &extraTreeBuilder{X: X, y: y, features: subset, cfg: cfg, rng: rng}
	return b.grow(samples, 0)
}

func (b *extraTreeBuilder) grow(samples []int, depth int) *Node {
	n := len(samples)
	sum := 0.0
	for _, i := range samples {
		sum += b.y[i]
	}
	node := &Node{Value: sum / float64(n)}

	minLeaf := b.cfg.MinSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}
	if depth >= b.cfg.MaxDepth || n < 2*minLeaf {
		return node
	}

	bestScore := math.Inf(1)
	bestFeature := -1
	bestThreshold := 0.0
	for _, f := range b.features {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, i := range samples {
			v := b.X.At(i, f)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if !(lo < hi) {
			continue
		}
		t := b.rng.Uniform(lo, hi)

		var nl, nr int
		var sumL, sqL, sumR, sqR float64
		for _, i := range samples {
			v := b.y[i]
			if b.X.At(i, f) <= t {
				nl++
				sumL += v
				sqL += v * v
			} else {
				nr++
				sumR += v
				sqR += v * v
			}
		}
		if nl < minLeaf || nr < minLeaf {
			continue
		}
		score := (sqL - sumL*sumL/float64(nl)) + (sqR - sumR*sumR/float64(nr))
		if score < bestScore {
			bestScore = score
			bestFeature = f
			bestThreshold = t
		}
	}
	if bestFeature < 0 {
		return node
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, i := range samples {
		if b.X.At(i, bestFeature) <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	feature, threshold := bestFeature, bestThreshold
	node.Feature = &feature
	node.Threshold = &threshold
	node.Left = b.grow(left, depth+1)
	node.Right = b.grow(right, depth+1)
	return node
}

// FeatureSubsetSize returns max(1, round(√p)).
func FeatureSubsetSize(p int) int {
	k := int(math.Round(math.Sqrt(float64(p))))
	if k < 1 {
		k = 1
	}
	if k > p {
		k = p
	}
	return k
}
