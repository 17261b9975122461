package ml

import (
	"fmt"
	"math"
)

// classCounts holds the per-class tallies needed for F1 computation.
type classCounts struct {
	truePositives  int
	falsePositives int
	falseNegatives int
	support        int
}

func perClassCounts(yTrue, yPred []string) (map[string]*classCounts, []string) {
	counts := make(map[string]*classCounts)
	var order []string
	touch := func(class string) *classCounts {
		c, ok := counts[class]
		if !ok {
			c = &classCounts{}
			counts[class] = c
			order = append(order, class)
		}
		return c
	}

	for i := range yTrue {
		actual := touch(yTrue[i])
		predicted := touch(yPred[i])
		actual.support++
		if yTrue[i] == yPred[i] {
			actual.truePositives++
		} else {
			predicted.falsePositives++
			actual.falseNegatives++
		}
	}
	return counts, order
}

func f1Score(c *classCounts) float64 {
	denom := 2*c.truePositives + c.falsePositives + c.falseNegatives
	if denom == 0 {
		return 0
	}
	return 2 * float64(c.truePositives) / float64(denom)
}

// F1Weighted averages per-class F1 scores weighted by class support.
func F1Weighted(yTrue, yPred []string) (float64, error) {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0, fmt.Errorf("label slices must be non-empty and equal length, got %d and %d", len(yTrue), len(yPred))
	}
	counts, order := perClassCounts(yTrue, yPred)
	var sum float64
	for _, class := range order {
		c := counts[class]
		sum += f1Score(c) * float64(c.support)
	}
	return sum / float64(len(yTrue)), nil
}

// F1Macro averages per-class F1 scores with equal class weight. Classes
// that never appear as true labels are excluded from the average.
func F1Macro(yTrue, yPred []string) (float64, error) {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0, fmt.Errorf("label slices must be non-empty and equal length, got %d and %d", len(yTrue), len(yPred))
	}
	counts, order := perClassCounts(yTrue, yPred)
	var sum float64
	n := 0
	for _, class := range order {
		c := counts[class]
		if c.support == 0 {
			continue
		}
		sum += f1Score(c)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

// R2 is the coefficient of determination. A constant true vector yields
// zero rather than an undefined score.
func R2(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0, fmt.Errorf("value slices must be non-empty and equal length, got %d and %d", len(yTrue), len(yPred))
	}

	var mean float64
	for _, v := range yTrue {
		mean += v
	}
	mean /= float64(len(yTrue))

	var ssRes, ssTot float64
	for i := range yTrue {
		r := yTrue[i] - yPred[i]
		ssRes += r * r
		t := yTrue[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0, nil
	}
	r2 := 1 - ssRes/ssTot
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		return 0, nil
	}
	return r2, nil
}
