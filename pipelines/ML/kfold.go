package ml

import (
	"math/rand"
)

// KFold partitions n row indices into k test folds after a seeded shuffle.
// Fold sizes differ by at most one row.
func KFold(n, k int, seed int64) [][]int {
	indices := shuffledIndices(n, seed)

	folds := make([][]int, k)
	for i, idx := range indices {
		f := i % k
		folds[f] = append(folds[f], idx)
	}
	return folds
}

// StratifiedKFold partitions row indices into k test folds so that each
// fold preserves the class proportions of labels. Rows are shuffled within
// each class before round-robin assignment.
func StratifiedKFold(labels []string, k int, seed int64) [][]int {
	byClass := make(map[string][]int)
	var order []string
	for i, label := range labels {
		if _, ok := byClass[label]; !ok {
			order = append(order, label)
		}
		byClass[label] = append(byClass[label], i)
	}

	rng := rand.New(rand.NewSource(seed))
	folds := make([][]int, k)
	next := 0
	for _, label := range order {
		rows := byClass[label]
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		for _, idx := range rows {
			folds[next%k] = append(folds[next%k], idx)
			next++
		}
	}
	return folds
}

// TrainRows returns all indices not present in the test fold.
func TrainRows(n int, test []int) []int {
	inTest := make(map[int]bool, len(test))
	for _, i := range test {
		inTest[i] = true
	}
	train := make([]int, 0, n-len(test))
	for i := 0; i < n; i++ {
		if !inTest[i] {
			train = append(train, i)
		}
	}
	return train
}

func shuffledIndices(n int, seed int64) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
	return indices
}
