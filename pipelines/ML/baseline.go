package ml

import "fmt"

// Classifier is the common interface of all classification candidates.
type Classifier interface {
	Fit(X [][]float64, y []string) error
	Predict(X [][]float64) []string
	Kind() string
}

// Regressor is the common interface of all regression candidates.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) []float64
	Kind() string
}

// MajorityClassifier always predicts the most frequent training class.
// It anchors the candidate set: anything that cannot beat it has learned
// nothing.
type MajorityClassifier struct {
	Class string `json:"class"`
}

// NewMajorityClassifier creates an unfitted majority baseline.
func NewMajorityClassifier() *MajorityClassifier {
	return &MajorityClassifier{}
}

// Kind returns the model identifier used in summaries and bundles.
func (m *MajorityClassifier) Kind() string { return "baseline_majority" }

// Fit picks the most frequent class; ties go to the first-seen class.
func (m *MajorityClassifier) Fit(X [][]float64, y []string) error {
	if len(y) == 0 {
		return fmt.Errorf("empty training labels")
	}
	counts := make(map[string]int)
	var order []string
	for _, label := range y {
		if _, ok := counts[label]; !ok {
			order = append(order, label)
		}
		counts[label]++
	}
	best := order[0]
	for _, label := range order {
		if counts[label] > counts[best] {
			best = label
		}
	}
	m.Class = best
	return nil
}

// Predict returns the majority class for every sample.
func (m *MajorityClassifier) Predict(X [][]float64) []string {
	out := make([]string, len(X))
	for i := range out {
		out[i] = m.Class
	}
	return out
}

// MeanRegressor always predicts the training target mean.
type MeanRegressor struct {
	Mean float64 `json:"mean"`
}

// NewMeanRegressor creates an unfitted mean baseline.
func NewMeanRegressor() *MeanRegressor {
	return &MeanRegressor{}
}

// Kind returns the model identifier used in summaries and bundles.
func (m *MeanRegressor) Kind() string { return "baseline_mean" }

// Fit stores the mean of the training targets.
func (m *MeanRegressor) Fit(X [][]float64, y []float64) error {
	if len(y) == 0 {
		return fmt.Errorf("empty training targets")
	}
	var sum float64
	for _, v := range y {
		sum += v
	}
	m.Mean = sum / float64(len(y))
	return nil
}

// Predict returns the training mean for every sample.
func (m *MeanRegressor) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i := range out {
		out[i] = m.Mean
	}
	return out
}
