package ml

import (
	"math"
	"math/rand"
	"sort"
)

// TreeNode is one node of a CART-style decision tree. Leaves carry either
// a class label or a numeric value depending on the task.
type TreeNode struct {
	IsLeaf       bool      `json:"is_leaf"`
	Class        string    `json:"class,omitempty"`
	Value        float64   `json:"value,omitempty"`
	FeatureIndex int       `json:"feature_index,omitempty"`
	Threshold    float64   `json:"threshold,omitempty"`
	Left         *TreeNode `json:"left,omitempty"`
	Right        *TreeNode `json:"right,omitempty"`
	Samples      int       `json:"samples"`
}

// predictClass walks the tree for one sample and returns the leaf class.
func (n *TreeNode) predictClass(row []float64) string {
	node := n
	for !node.IsLeaf {
		if row[node.FeatureIndex] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Class
}

// predictValue walks the tree for one sample and returns the leaf value.
func (n *TreeNode) predictValue(row []float64) float64 {
	node := n
	for !node.IsLeaf {
		if row[node.FeatureIndex] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// treeBuilder grows a single tree. featuresPerSplit restricts each split to
// a random feature subset, which is what de-correlates forest members.
type treeBuilder struct {
	maxDepth         int
	minSamplesSplit  int
	minSamplesLeaf   int
	featuresPerSplit int
	regression       bool
	rng              *rand.Rand
	importance       []float64 // impurity decrease per feature, shared across a forest
}

func (b *treeBuilder) build(X [][]float64, yClass []string, yValue []float64, idx []int, depth int) *TreeNode {
	node := &TreeNode{Samples: len(idx)}

	if depth >= b.maxDepth || len(idx) < b.minSamplesSplit || b.isPure(yClass, yValue, idx) {
		b.makeLeaf(node, yClass, yValue, idx)
		return node
	}

	feature, threshold, gain, leftIdx, rightIdx := b.bestSplit(X, yClass, yValue, idx)
	if feature < 0 || len(leftIdx) < b.minSamplesLeaf || len(rightIdx) < b.minSamplesLeaf {
		b.makeLeaf(node, yClass, yValue, idx)
		return node
	}

	if b.importance != nil {
		b.importance[feature] += gain
	}

	node.FeatureIndex = feature
	node.Threshold = threshold
	node.Left = b.build(X, yClass, yValue, leftIdx, depth+1)
	node.Right = b.build(X, yClass, yValue, rightIdx, depth+1)
	return node
}

func (b *treeBuilder) isPure(yClass []string, yValue []float64, idx []int) bool {
	if b.regression {
		first := yValue[idx[0]]
		for _, i := range idx[1:] {
			if yValue[i] != first {
				return false
			}
		}
		return true
	}
	first := yClass[idx[0]]
	for _, i := range idx[1:] {
		if yClass[i] != first {
			return false
		}
	}
	return true
}

func (b *treeBuilder) makeLeaf(node *TreeNode, yClass []string, yValue []float64, idx []int) {
	node.IsLeaf = true
	if b.regression {
		var sum float64
		for _, i := range idx {
			sum += yValue[i]
		}
		node.Value = sum / float64(len(idx))
		return
	}

	counts := make(map[string]int)
	var order []string
	for _, i := range idx {
		if _, ok := counts[yClass[i]]; !ok {
			order = append(order, yClass[i])
		}
		counts[yClass[i]]++
	}
	best := order[0]
	for _, c := range order {
		if counts[c] > counts[best] {
			best = c
		}
	}
	node.Class = best
}

// bestSplit scans a random feature subset for the threshold with the
// largest weighted impurity decrease. Returns feature -1 when no split
// improves on the parent.
func (b *treeBuilder) bestSplit(X [][]float64, yClass []string, yValue []float64, idx []int) (int, float64, float64, []int, []int) {
	numFeatures := len(X[idx[0]])
	features := b.sampleFeatures(numFeatures)

	parentImpurity := b.impurity(yClass, yValue, idx)
	bestFeature := -1
	var bestThreshold, bestGain float64
	var bestLeft, bestRight []int

	for _, f := range features {
		values := make([]float64, len(idx))
		for k, i := range idx {
			values[k] = X[i][f]
		}
		sort.Float64s(values)

		for k := 1; k < len(values); k++ {
			if values[k] == values[k-1] {
				continue
			}
			threshold := (values[k] + values[k-1]) / 2

			var left, right []int
			for _, i := range idx {
				if X[i][f] <= threshold {
					left = append(left, i)
				} else {
					right = append(right, i)
				}
			}
			if len(left) == 0 || len(right) == 0 {
				continue
			}

			n := float64(len(idx))
			weighted := float64(len(left))/n*b.impurity(yClass, yValue, left) +
				float64(len(right))/n*b.impurity(yClass, yValue, right)
			gain := parentImpurity - weighted
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = threshold
				bestLeft = left
				bestRight = right
			}
		}
	}

	return bestFeature, bestThreshold, bestGain * float64(len(idx)), bestLeft, bestRight
}

func (b *treeBuilder) sampleFeatures(numFeatures int) []int {
	if b.featuresPerSplit <= 0 || b.featuresPerSplit >= numFeatures {
		all := make([]int, numFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	perm := b.rng.Perm(numFeatures)
	return perm[:b.featuresPerSplit]
}

// impurity is Gini for classification and variance for regression.
func (b *treeBuilder) impurity(yClass []string, yValue []float64, idx []int) float64 {
	if b.regression {
		var sum float64
		for _, i := range idx {
			sum += yValue[i]
		}
		mean := sum / float64(len(idx))
		var ss float64
		for _, i := range idx {
			d := yValue[i] - mean
			ss += d * d
		}
		return ss / float64(len(idx))
	}

	counts := make(map[string]int)
	for _, i := range idx {
		counts[yClass[i]]++
	}
	gini := 1.0
	n := float64(len(idx))
	for _, c := range counts {
		p := float64(c) / n
		gini -= p * p
	}
	return gini
}

func sqrtFeatures(numFeatures int) int {
	k := int(math.Sqrt(float64(numFeatures)))
	if k < 1 {
		k = 1
	}
	return k
}
