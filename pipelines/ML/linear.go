package ml

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// LogisticRegression is a multinomial logistic classifier trained with
// full-batch gradient descent on the softmax cross-entropy loss.
type LogisticRegression struct {
	Classes      []string    `json:"classes"`
	Weights      [][]float64 `json:"weights"` // [class][feature], last entry is the bias
	LearningRate float64     `json:"learning_rate"`
	Epochs       int         `json:"epochs"`
	L2           float64     `json:"l2"`
}

// NewLogisticRegression creates a classifier with default hyperparameters.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{LearningRate: 0.1, Epochs: 200, L2: 1e-4}
}

// Kind returns the model identifier used in summaries and bundles.
func (lr *LogisticRegression) Kind() string { return "logistic_regression" }

// Fit trains one weight vector per class. Inputs are assumed standardized.
func (lr *LogisticRegression) Fit(X [][]float64, y []string) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("training data must be non-empty with matching labels, got %d samples and %d labels", len(X), len(y))
	}

	lr.Classes = uniqueLabels(y)
	numClasses := len(lr.Classes)
	numFeatures := len(X[0])
	classIdx := make(map[string]int, numClasses)
	for i, c := range lr.Classes {
		classIdx[c] = i
	}

	lr.Weights = make([][]float64, numClasses)
	for c := range lr.Weights {
		lr.Weights[c] = make([]float64, numFeatures+1)
	}

	n := float64(len(X))
	grads := make([][]float64, numClasses)
	for c := range grads {
		grads[c] = make([]float64, numFeatures+1)
	}

	for epoch := 0; epoch < lr.Epochs; epoch++ {
		for c := range grads {
			for j := range grads[c] {
				grads[c][j] = 0
			}
		}

		for i, row := range X {
			probs := lr.probabilities(row)
			for c := range lr.Classes {
				indicator := 0.0
				if classIdx[y[i]] == c {
					indicator = 1
				}
				delta := probs[c] - indicator
				for j, v := range row {
					grads[c][j] += delta * v
				}
				grads[c][numFeatures] += delta
			}
		}

		for c := range lr.Weights {
			for j := range lr.Weights[c] {
				g := grads[c][j] / n
				if j < numFeatures {
					g += lr.L2 * lr.Weights[c][j]
				}
				lr.Weights[c][j] -= lr.LearningRate * g
			}
		}
	}

	return nil
}

// Predict returns the argmax class for each sample.
func (lr *LogisticRegression) Predict(X [][]float64) []string {
	out := make([]string, len(X))
	for i, row := range X {
		probs := lr.probabilities(row)
		best := 0
		for c := 1; c < len(probs); c++ {
			if probs[c] > probs[best] {
				best = c
			}
		}
		out[i] = lr.Classes[best]
	}
	return out
}

func (lr *LogisticRegression) probabilities(row []float64) []float64 {
	scores := make([]float64, len(lr.Classes))
	maxScore := math.Inf(-1)
	for c, w := range lr.Weights {
		s := w[len(w)-1]
		for j, v := range row {
			s += w[j] * v
		}
		scores[c] = s
		if s > maxScore {
			maxScore = s
		}
	}
	var sum float64
	for c, s := range scores {
		scores[c] = math.Exp(s - maxScore)
		sum += scores[c]
	}
	for c := range scores {
		scores[c] /= sum
	}
	return scores
}

// LinearSVC is a one-vs-rest linear support vector classifier trained with
// stochastic subgradient descent on the L2-regularized hinge loss.
type LinearSVC struct {
	Classes []string    `json:"classes"`
	Weights [][]float64 `json:"weights"` // [class][feature], last entry is the bias
	Lambda  float64     `json:"lambda"`
	Epochs  int         `json:"epochs"`
	Seed    int64       `json:"seed"`
}

// NewLinearSVC creates a classifier with default hyperparameters.
func NewLinearSVC(seed int64) *LinearSVC {
	return &LinearSVC{Lambda: 1e-3, Epochs: 50, Seed: seed}
}

// Kind returns the model identifier used in summaries and bundles.
func (svc *LinearSVC) Kind() string { return "linear_svc" }

// Fit trains one binary hinge-loss separator per class against the rest.
func (svc *LinearSVC) Fit(X [][]float64, y []string) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("training data must be non-empty with matching labels, got %d samples and %d labels", len(X), len(y))
	}

	svc.Classes = uniqueLabels(y)
	numFeatures := len(X[0])
	svc.Weights = make([][]float64, len(svc.Classes))

	order := make([]int, len(X))
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(svc.Seed))

	for c, class := range svc.Classes {
		w := make([]float64, numFeatures+1)
		t := 0
		for epoch := 0; epoch < svc.Epochs; epoch++ {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
			for _, i := range order {
				t++
				eta := 1 / (svc.Lambda * float64(t))
				label := -1.0
				if y[i] == class {
					label = 1
				}
				score := w[numFeatures]
				for j, v := range X[i] {
					score += w[j] * v
				}
				for j := 0; j < numFeatures; j++ {
					w[j] -= eta * svc.Lambda * w[j]
				}
				if label*score < 1 {
					for j, v := range X[i] {
						w[j] += eta * label * v
					}
					w[numFeatures] += eta * label
				}
			}
		}
		svc.Weights[c] = w
	}

	return nil
}

// Predict returns the class whose separator scores highest.
func (svc *LinearSVC) Predict(X [][]float64) []string {
	out := make([]string, len(X))
	for i, row := range X {
		best := 0
		bestScore := math.Inf(-1)
		for c, w := range svc.Weights {
			s := w[len(w)-1]
			for j, v := range row {
				s += w[j] * v
			}
			if s > bestScore {
				bestScore = s
				best = c
			}
		}
		out[i] = svc.Classes[best]
	}
	return out
}

// LinearRegression is least squares with a small ridge term, solved through
// gonum's dense linear algebra. The regularization keeps the normal
// equations solvable when one-hot blocks are collinear with the intercept.
type LinearRegression struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	L2           float64   `json:"l2"`
}

// NewLinearRegression creates an unfitted model with the default ridge term.
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{L2: 1e-3}
}

// Kind returns the model identifier used in summaries and bundles.
func (lin *LinearRegression) Kind() string { return "linear_regression" }

// Fit solves the regularized normal equations with an explicit intercept
// column.
func (lin *LinearRegression) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("training data must be non-empty with matching targets, got %d samples and %d targets", len(X), len(y))
	}

	rows := len(X)
	cols := len(X[0]) + 1
	design := mat.NewDense(rows, cols, nil)
	for i, row := range X {
		for j, v := range row {
			design.Set(i, j, v)
		}
		design.Set(i, cols-1, 1)
	}
	target := mat.NewVecDense(rows, append([]float64(nil), y...))

	var gram mat.Dense
	gram.Mul(design.T(), design)
	for j := 0; j < cols; j++ {
		gram.Set(j, j, gram.At(j, j)+lin.L2)
	}
	var moment mat.VecDense
	moment.MulVec(design.T(), target)

	var solution mat.VecDense
	if err := solution.SolveVec(&gram, &moment); err != nil {
		return fmt.Errorf("solving regularized least squares: %w", err)
	}

	lin.Coefficients = make([]float64, cols-1)
	for j := range lin.Coefficients {
		lin.Coefficients[j] = solution.AtVec(j)
	}
	lin.Intercept = solution.AtVec(cols - 1)
	return nil
}

// Predict evaluates the fitted linear function for each sample.
func (lin *LinearRegression) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		s := lin.Intercept
		for j, v := range row {
			if j < len(lin.Coefficients) {
				s += lin.Coefficients[j] * v
			}
		}
		out[i] = s
	}
	return out
}

func uniqueLabels(y []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, label := range y {
		if !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}
	return out
}
