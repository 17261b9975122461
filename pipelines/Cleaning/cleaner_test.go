package cleaning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dataset "github.com/datapilot-ml/datapilot-go/pipelines/Dataset"
	schema "github.com/datapilot-ml/datapilot-go/pipelines/Schema"
)

func numberColumn(name string, values ...float64) *dataset.Column {
	cells := make([]dataset.Value, len(values))
	for i, v := range values {
		cells[i] = dataset.Number(v)
	}
	return &dataset.Column{Name: name, Kind: dataset.KindNumber, Cells: cells}
}

func stringColumn(name string, values ...string) *dataset.Column {
	cells := make([]dataset.Value, len(values))
	for i, v := range values {
		if v == "" {
			cells[i] = dataset.Missing()
		} else {
			cells[i] = dataset.String(v)
		}
	}
	return &dataset.Column{Name: name, Kind: dataset.KindString, Cells: cells}
}

func withMissing(col *dataset.Column, rows ...int) *dataset.Column {
	for _, r := range rows {
		col.Cells[r] = dataset.Missing()
	}
	return col
}

func testSchema() *schema.Schema {
	return &schema.Schema{
		Target:                 "y",
		TaskType:               schema.TaskClassification,
		Numeric:                []string{"amount"},
		Ordinal:                []string{"grade"},
		Categorical:            []string{"color"},
		Datetime:               []string{},
		IDColumns:              []string{"record_id"},
		HighCardinality:        []string{"comment"},
		HighMissingCategorical: []string{},
		Warnings:               []string{},
	}
}

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New([]*dataset.Column{
		numberColumn("record_id", 1, 2, 3, 4, 5, 6, 7, 8),
		withMissing(numberColumn("amount", 10, 12, 11, 13, 9, 1000, 10, 12), 3),
		withMissing(numberColumn("grade", 1, 2, 2, 3, 1, 2, 3, 1), 4),
		withMissing(stringColumn("color", "red", "blue", "red", "red", "blue", "red", "blue", "red"), 1),
		stringColumn("comment", "a1", "b2", "c3", "d4", "e5", "f6", "g7", "h8"),
		numberColumn("y", 0, 1, 0, 1, 0, 1, 0, 1),
	})
	require.NoError(t, err)
	return ds
}

func TestCleanDropsFlaggedColumns(t *testing.T) {
	ds := testDataset(t)
	cleaned, report, err := NewCleaner(ds, testSchema(), nil).Clean()
	require.NoError(t, err)

	assert.False(t, cleaned.Has("record_id"))
	assert.False(t, cleaned.Has("comment"))
	assert.Equal(t, []string{"record_id"}, report.RemovedColumns["id_columns"])
	assert.Equal(t, []string{"comment"}, report.RemovedColumns["high_cardinality"])

	// the input dataset is untouched
	assert.True(t, ds.Has("record_id"))
}

func TestCleanNeverTouchesTarget(t *testing.T) {
	ds := testDataset(t)
	before, _ := ds.Column("y")
	beforeCells := append([]dataset.Value{}, before.Cells...)

	cleaned, _, err := NewCleaner(ds, testSchema(), nil).Clean()
	require.NoError(t, err)

	after, ok := cleaned.Column("y")
	require.True(t, ok)
	assert.Equal(t, beforeCells, after.Cells, "target values must survive cleaning byte for byte")
}

func TestCleanTargetNeverDropped(t *testing.T) {
	// even a schema that misclassifies the target into a drop group must
	// not remove it
	sch := testSchema()
	sch.IDColumns = append(sch.IDColumns, "y")

	cleaned, _, err := NewCleaner(testDataset(t), sch, nil).Clean()
	require.NoError(t, err)
	assert.True(t, cleaned.Has("y"))
}

func TestImputation(t *testing.T) {
	ds := testDataset(t)
	cleaned, report, err := NewCleaner(ds, testSchema(), nil).Clean()
	require.NoError(t, err)

	t.Run("Numeric columns are median-filled", func(t *testing.T) {
		fix, ok := report.MissingValueFixes["amount"]
		require.True(t, ok)
		assert.Equal(t, "median", fix.Method)
		assert.Equal(t, 1, fix.Filled)
	})

	t.Run("Categorical columns are mode-filled", func(t *testing.T) {
		fix, ok := report.MissingValueFixes["color"]
		require.True(t, ok)
		assert.Equal(t, "mode", fix.Method)
		assert.Equal(t, "red", fix.FillValue)
	})

	t.Run("No feature column keeps missing values", func(t *testing.T) {
		for _, name := range testSchema().FeatureColumns() {
			col, ok := cleaned.Column(name)
			require.True(t, ok, name)
			assert.Zero(t, col.MissingCount(), "column %s still has missing values", name)
		}
	})
}

func TestFirstModeTieBreak(t *testing.T) {
	col := stringColumn("c", "b", "a", "b", "a")
	mode, ok := firstMode(col)
	require.True(t, ok)
	assert.Equal(t, "b", mode, "ties resolve to the first-seen value")
}

func TestOutlierCapping(t *testing.T) {
	ds := testDataset(t)
	cleaned, report, err := NewCleaner(ds, testSchema(), nil).Clean()
	require.NoError(t, err)

	t.Run("Extreme values are replaced", func(t *testing.T) {
		assert.Equal(t, 1, report.OutlierCounts["amount"])

		col, _ := cleaned.Column("amount")
		for _, v := range col.Floats() {
			assert.Less(t, v, 1000.0, "the 1000 outlier must be gone")
		}
	})

	t.Run("Zero-IQR columns are skipped", func(t *testing.T) {
		constant, err := dataset.New([]*dataset.Column{
			numberColumn("flat", 5, 5, 5, 5, 5, 100),
			numberColumn("y", 0, 1, 0, 1, 0, 1),
		})
		require.NoError(t, err)

		sch := &schema.Schema{
			Target:  "y",
			Numeric: []string{"flat"},
		}
		cleanedFlat, rep, err := NewCleaner(constant, sch, nil).Clean()
		require.NoError(t, err)
		assert.Zero(t, rep.OutlierCounts["flat"])

		col, _ := cleanedFlat.Column("flat")
		assert.Contains(t, col.Floats(), 100.0)
	})

	t.Run("Small columns follow the same IQR rule", func(t *testing.T) {
		small, err := dataset.New([]*dataset.Column{
			numberColumn("v", 1, 2, 100),
			numberColumn("y", 0, 1, 0),
		})
		require.NoError(t, err)

		sch := &schema.Schema{
			Target:  "y",
			Numeric: []string{"v"},
		}
		cleanedSmall, rep, err := NewCleaner(small, sch, nil).Clean()
		require.NoError(t, err)

		// with three values the empirical quartiles span the whole
		// range, so the fences cap nothing
		assert.Zero(t, rep.OutlierCounts["v"])
		col, _ := cleanedSmall.Column("v")
		assert.Equal(t, []float64{1, 2, 100}, col.Floats())
	})
}

func TestCleanMissingTargetFatal(t *testing.T) {
	ds, err := dataset.New([]*dataset.Column{
		numberColumn("x", 1, 2, 3),
	})
	require.NoError(t, err)

	sch := &schema.Schema{Target: "y", Numeric: []string{"x"}}
	_, _, err = NewCleaner(ds, sch, nil).Clean()
	assert.Error(t, err)
}

func TestTypeCoercion(t *testing.T) {
	// a numeric-role column stored as text is cast to numbers; unparseable
	// cells become missing and are refilled with the recorded median
	ds, err := dataset.New([]*dataset.Column{
		stringColumn("reading", "1", "2", "oops", "4", "3", "2"),
		numberColumn("y", 0, 1, 0, 1, 0, 1),
	})
	require.NoError(t, err)

	sch := &schema.Schema{Target: "y", Numeric: []string{"reading"}}
	cleaned, report, err := NewCleaner(ds, sch, nil).Clean()
	require.NoError(t, err)

	col, _ := cleaned.Column("reading")
	assert.Zero(t, col.MissingCount())
	assert.Len(t, col.Floats(), 6)
	assert.NotEmpty(t, report.TypeCasts["reading"])
}
