package ml

import (
	"fmt"
	"math"
	"sort"
)

const defaultKNeighbors = 5

// KNNClassifier predicts by majority vote among the k nearest training
// samples under Euclidean distance. Inputs are assumed standardized.
type KNNClassifier struct {
	K      int         `json:"k"`
	Points [][]float64 `json:"points"`
	Labels []string    `json:"labels"`
}

// NewKNNClassifier creates a classifier with the default neighborhood size.
func NewKNNClassifier() *KNNClassifier {
	return &KNNClassifier{K: defaultKNeighbors}
}

// Kind returns the model identifier used in summaries and bundles.
func (knn *KNNClassifier) Kind() string { return "knn" }

// Fit memorizes the training set.
func (knn *KNNClassifier) Fit(X [][]float64, y []string) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("training data must be non-empty with matching labels, got %d samples and %d labels", len(X), len(y))
	}
	knn.Points = X
	knn.Labels = y
	return nil
}

// Predict votes among the nearest neighbors; ties break toward the class
// with the smaller summed distance.
func (knn *KNNClassifier) Predict(X [][]float64) []string {
	out := make([]string, len(X))
	for i, row := range X {
		neighbors := nearest(knn.Points, row, knn.K)

		votes := make(map[string]int)
		distSum := make(map[string]float64)
		var order []string
		for _, nb := range neighbors {
			label := knn.Labels[nb.index]
			if _, ok := votes[label]; !ok {
				order = append(order, label)
			}
			votes[label]++
			distSum[label] += nb.dist
		}

		best := order[0]
		for _, label := range order[1:] {
			if votes[label] > votes[best] ||
				(votes[label] == votes[best] && distSum[label] < distSum[best]) {
				best = label
			}
		}
		out[i] = best
	}
	return out
}

type neighbor struct {
	index int
	dist  float64
}

func nearest(points [][]float64, row []float64, k int) []neighbor {
	neighbors := make([]neighbor, len(points))
	for i, p := range points {
		neighbors[i] = neighbor{index: i, dist: euclidean(p, row)}
	}
	sort.Slice(neighbors, func(a, b int) bool {
		if neighbors[a].dist != neighbors[b].dist {
			return neighbors[a].dist < neighbors[b].dist
		}
		return neighbors[a].index < neighbors[b].index
	})
	if k > len(neighbors) {
		k = len(neighbors)
	}
	return neighbors[:k]
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for j := range a {
		d := a[j] - b[j]
		sum += d * d
	}
	return math.Sqrt(sum)
}
