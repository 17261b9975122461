package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("Rejects duplicate column names", func(t *testing.T) {
		_, err := New([]*Column{
			{Name: "a", Kind: KindNumber, Cells: []Value{Number(1)}},
			{Name: "a", Kind: KindNumber, Cells: []Value{Number(2)}},
		})
		assert.Error(t, err)
	})

	t.Run("Rejects ragged columns", func(t *testing.T) {
		_, err := New([]*Column{
			{Name: "a", Kind: KindNumber, Cells: []Value{Number(1), Number(2)}},
			{Name: "b", Kind: KindNumber, Cells: []Value{Number(3)}},
		})
		assert.Error(t, err)
	})

	t.Run("Preserves column order", func(t *testing.T) {
		ds, err := New([]*Column{
			{Name: "b", Kind: KindNumber, Cells: []Value{Number(1)}},
			{Name: "a", Kind: KindString, Cells: []Value{String("x")}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, ds.Names())
		assert.Equal(t, 1, ds.RowCount())
		assert.Equal(t, 2, ds.ColumnCount())
	})
}

func TestCopyIndependence(t *testing.T) {
	ds, err := New([]*Column{
		{Name: "x", Kind: KindNumber, Cells: []Value{Number(1), Number(2)}},
	})
	require.NoError(t, err)

	cp := ds.Copy()
	col, _ := cp.Column("x")
	col.Cells[0] = Number(99)

	orig, _ := ds.Column("x")
	f, ok := orig.Cells[0].AsFloat()
	require.True(t, ok)
	assert.Equal(t, 1.0, f, "mutating a copy must not touch the original")
}

func TestDrop(t *testing.T) {
	ds, err := New([]*Column{
		{Name: "a", Kind: KindNumber, Cells: []Value{Number(1)}},
		{Name: "b", Kind: KindNumber, Cells: []Value{Number(2)}},
		{Name: "c", Kind: KindNumber, Cells: []Value{Number(3)}},
	})
	require.NoError(t, err)

	ds.Drop("b")
	assert.Equal(t, []string{"a", "c"}, ds.Names())
	assert.False(t, ds.Has("b"))

	// the index must still resolve the remaining columns
	col, ok := ds.Column("c")
	require.True(t, ok)
	f, _ := col.Cells[0].AsFloat()
	assert.Equal(t, 3.0, f)
}

func TestColumnStatistics(t *testing.T) {
	col := &Column{Name: "x", Kind: KindString, Cells: []Value{
		String("a"), String("b"), String("a"), Missing(), String("c"),
	}}

	assert.Equal(t, 1, col.MissingCount())
	assert.InDelta(t, 0.2, col.MissingRatio(), 1e-9)
	assert.Equal(t, 3, col.DistinctCount())
	assert.Equal(t, []string{"a", "b", "c"}, col.DistinctValues(), "distinct values keep first-seen order")
}

func TestValueConversions(t *testing.T) {
	t.Run("Numbers format compactly", func(t *testing.T) {
		assert.Equal(t, "1", Number(1).AsString())
		assert.Equal(t, "2.5", Number(2.5).AsString())
	})

	t.Run("Strings parse to floats when numeric", func(t *testing.T) {
		f, ok := String("3.5").AsFloat()
		require.True(t, ok)
		assert.Equal(t, 3.5, f)

		_, ok = String("hello").AsFloat()
		assert.False(t, ok)
	})

	t.Run("Missing is missing", func(t *testing.T) {
		assert.True(t, Missing().IsMissing())
		_, ok := Missing().AsFloat()
		assert.False(t, ok)
	})
}

func TestFloatsSkipsMissingAndText(t *testing.T) {
	col := &Column{Name: "x", Kind: KindNumber, Cells: []Value{
		Number(1), Missing(), Number(3), String("oops"),
	}}
	assert.Equal(t, []float64{1, 3}, col.Floats())
}
