package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dataset "github.com/datapilot-ml/datapilot-go/pipelines/Dataset"
	schema "github.com/datapilot-ml/datapilot-go/pipelines/Schema"
)

func frameFixture(t *testing.T) *Frame {
	t.Helper()
	ds, err := dataset.New([]*dataset.Column{
		{Name: "age", Kind: dataset.KindNumber, Cells: []dataset.Value{
			dataset.Number(20), dataset.Number(30), dataset.Number(40), dataset.Number(50),
		}},
		{Name: "city", Kind: dataset.KindString, Cells: []dataset.Value{
			dataset.String("oslo"), dataset.String("bergen"), dataset.String("oslo"), dataset.String("tromso"),
		}},
		{Name: "label", Kind: dataset.KindNumber, Cells: []dataset.Value{
			dataset.Number(0), dataset.Number(1), dataset.Number(0), dataset.Number(1),
		}},
	})
	require.NoError(t, err)

	sch := &schema.Schema{
		Target:      "label",
		TaskType:    schema.TaskClassification,
		Numeric:     []string{"age"},
		Categorical: []string{"city"},
	}
	frame, err := BuildFrame(ds, sch)
	require.NoError(t, err)
	return frame
}

func TestBuildFrame(t *testing.T) {
	frame := frameFixture(t)
	assert.Equal(t, 4, frame.Rows)
	assert.Equal(t, []string{"age"}, frame.NumericNames)
	assert.Equal(t, []string{"city"}, frame.CategoricalNames)
	assert.Equal(t, []string{"0", "1", "0", "1"}, frame.ClassLabels)
	assert.Equal(t, 2, frame.FeatureCount())
}

func TestPreprocessorStandardization(t *testing.T) {
	frame := frameFixture(t)
	prep := FitPreprocessor(frame, []int{0, 1, 2, 3})

	X := prep.Transform(frame, []int{0, 1, 2, 3})
	require.Len(t, X, 4)

	// standardized column has mean 0
	var sum float64
	for _, row := range X {
		sum += row[0]
	}
	assert.InDelta(t, 0.0, sum, 1e-9)
}

func TestPreprocessorOneHot(t *testing.T) {
	frame := frameFixture(t)
	prep := FitPreprocessor(frame, []int{0, 1, 2, 3})

	assert.Equal(t, []string{"age", "city=oslo", "city=bergen", "city=tromso"}, prep.EncodedNames)

	X := prep.Transform(frame, []int{0})
	require.Len(t, X[0], 4)
	assert.Equal(t, []float64{1, 0, 0}, X[0][1:], "oslo row sets only the oslo indicator")
}

func TestPreprocessorUnknownCategory(t *testing.T) {
	frame := frameFixture(t)
	// fit without row 3, so "tromso" is unseen
	prep := FitPreprocessor(frame, []int{0, 1, 2})

	X := prep.Transform(frame, []int{3})
	for _, v := range X[0][1:] {
		assert.Zero(t, v, "unknown category encodes as an all-zero block")
	}
}

func TestPreprocessorNoLeakage(t *testing.T) {
	frame := frameFixture(t)
	trainOnly := FitPreprocessor(frame, []int{0, 1})
	assert.InDelta(t, 25.0, trainOnly.Means[0], 1e-9, "statistics come from training rows only")
}

func TestPreprocessorConstantColumn(t *testing.T) {
	ds, err := dataset.New([]*dataset.Column{
		{Name: "flat", Kind: dataset.KindNumber, Cells: []dataset.Value{
			dataset.Number(3), dataset.Number(3), dataset.Number(3),
		}},
		{Name: "y", Kind: dataset.KindNumber, Cells: []dataset.Value{
			dataset.Number(1), dataset.Number(2), dataset.Number(3),
		}},
	})
	require.NoError(t, err)
	sch := &schema.Schema{Target: "y", TaskType: schema.TaskRegression, Numeric: []string{"flat"}}
	frame, err := BuildFrame(ds, sch)
	require.NoError(t, err)

	prep := FitPreprocessor(frame, []int{0, 1, 2})
	X := prep.Transform(frame, []int{0, 1, 2})
	for _, row := range X {
		assert.Zero(t, row[0], "zero-variance column standardizes to zero, not NaN")
	}
}

func TestEncodeRaw(t *testing.T) {
	frame := frameFixture(t)
	prep := FitPreprocessor(frame, []int{0, 1, 2, 3})

	row, err := prep.EncodeRaw([]float64{35}, []string{"bergen"})
	require.NoError(t, err)
	require.Len(t, row, 4)
	assert.Equal(t, 1.0, row[2])

	_, err = prep.EncodeRaw([]float64{35, 1}, []string{"bergen"})
	assert.Error(t, err, "arity mismatch is rejected")
}
