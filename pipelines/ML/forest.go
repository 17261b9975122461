package ml

import (
	"fmt"
	"math/rand"
	"sort"
)

const (
	defaultForestSize     = 50
	defaultForestMaxDepth = 10
)

// forestParams are shared by the classification and regression forests.
type forestParams struct {
	NumTrees        int   `json:"num_trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	Seed            int64 `json:"seed"`
}

func defaultForestParams(seed int64) forestParams {
	return forestParams{
		NumTrees:        defaultForestSize,
		MaxDepth:        defaultForestMaxDepth,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            seed,
	}
}

// FeatureImportance is one encoded feature's share of the forest's total
// impurity decrease.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// RandomForestClassifier is a bagged ensemble of Gini decision trees with
// per-split feature subsampling.
type RandomForestClassifier struct {
	forestParams
	Trees      []*TreeNode `json:"trees"`
	Classes    []string    `json:"classes"`
	Importance []float64   `json:"importance,omitempty"`
}

// NewRandomForestClassifier creates a forest with default hyperparameters.
func NewRandomForestClassifier(seed int64) *RandomForestClassifier {
	return &RandomForestClassifier{forestParams: defaultForestParams(seed)}
}

// Kind returns the model identifier used in summaries and bundles.
func (rf *RandomForestClassifier) Kind() string { return "random_forest" }

// Fit grows NumTrees trees on bootstrap samples of the training data.
func (rf *RandomForestClassifier) Fit(X [][]float64, y []string) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("training data must be non-empty with matching labels, got %d samples and %d labels", len(X), len(y))
	}

	rf.Classes = uniqueLabels(y)
	rf.Trees, rf.Importance = growForest(X, y, nil, rf.forestParams, false)
	return nil
}

// Predict returns the majority vote across trees; ties break toward the
// class seen first during training.
func (rf *RandomForestClassifier) Predict(X [][]float64) []string {
	classRank := make(map[string]int, len(rf.Classes))
	for i, c := range rf.Classes {
		classRank[c] = i
	}

	out := make([]string, len(X))
	for i, row := range X {
		votes := make(map[string]int)
		for _, tree := range rf.Trees {
			votes[tree.predictClass(row)]++
		}
		best := ""
		for class, n := range votes {
			if best == "" || n > votes[best] ||
				(n == votes[best] && classRank[class] < classRank[best]) {
				best = class
			}
		}
		out[i] = best
	}
	return out
}

// FeatureImportances reports normalized impurity-decrease importances in
// descending order, labeled with the given encoded feature names.
func (rf *RandomForestClassifier) FeatureImportances(names []string) []FeatureImportance {
	return rankImportances(rf.Importance, names)
}

// RandomForestRegressor is a bagged ensemble of variance-reduction trees.
type RandomForestRegressor struct {
	forestParams
	Trees      []*TreeNode `json:"trees"`
	Importance []float64   `json:"importance,omitempty"`
}

// NewRandomForestRegressor creates a forest with default hyperparameters.
func NewRandomForestRegressor(seed int64) *RandomForestRegressor {
	return &RandomForestRegressor{forestParams: defaultForestParams(seed)}
}

// Kind returns the model identifier used in summaries and bundles.
func (rf *RandomForestRegressor) Kind() string { return "random_forest" }

// Fit grows NumTrees trees on bootstrap samples of the training data.
func (rf *RandomForestRegressor) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("training data must be non-empty with matching targets, got %d samples and %d targets", len(X), len(y))
	}
	rf.Trees, rf.Importance = growForest(X, nil, y, rf.forestParams, true)
	return nil
}

// Predict averages the per-tree predictions.
func (rf *RandomForestRegressor) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		var sum float64
		for _, tree := range rf.Trees {
			sum += tree.predictValue(row)
		}
		out[i] = sum / float64(len(rf.Trees))
	}
	return out
}

// FeatureImportances reports normalized impurity-decrease importances in
// descending order, labeled with the given encoded feature names.
func (rf *RandomForestRegressor) FeatureImportances(names []string) []FeatureImportance {
	return rankImportances(rf.Importance, names)
}

func growForest(X [][]float64, yClass []string, yValue []float64, params forestParams, regression bool) ([]*TreeNode, []float64) {
	numFeatures := len(X[0])
	importance := make([]float64, numFeatures)
	rng := rand.New(rand.NewSource(params.Seed))

	trees := make([]*TreeNode, params.NumTrees)
	for t := range trees {
		sample := make([]int, len(X))
		for i := range sample {
			sample[i] = rng.Intn(len(X))
		}

		builder := &treeBuilder{
			maxDepth:         params.MaxDepth,
			minSamplesSplit:  params.MinSamplesSplit,
			minSamplesLeaf:   params.MinSamplesLeaf,
			featuresPerSplit: sqrtFeatures(numFeatures),
			regression:       regression,
			rng:              rng,
			importance:       importance,
		}
		trees[t] = builder.build(X, yClass, yValue, sample, 0)
	}

	var total float64
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}
	return trees, importance
}

func rankImportances(importance []float64, names []string) []FeatureImportance {
	if len(importance) == 0 {
		return nil
	}
	out := make([]FeatureImportance, 0, len(importance))
	for i, v := range importance {
		name := fmt.Sprintf("feature_%d", i)
		if i < len(names) {
			name = names[i]
		}
		out = append(out, FeatureImportance{Feature: name, Importance: v})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}
