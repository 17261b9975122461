package eda

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
		cells[i] = dataset.String(v)
	}
	return &dataset.Column{Name: name, Kind: dataset.KindString, Cells: cells}
}

func classificationFixture(t *testing.T) (*dataset.Dataset, *schema.Schema) {
	t.Helper()

	rows := 40
	x := make([]float64, rows)
	twiceX := make([]float64, rows)
	noise := make([]float64, rows)
	group := make([]string, rows)
	label := make([]float64, rows)
	for i := 0; i < rows; i++ {
		x[i] = float64(i)
		twiceX[i] = float64(2 * i)
		noise[i] = float64((i*37)%17) - 8
		if i%2 == 0 {
			group[i] = "alpha"
		} else {
			group[i] = "beta"
		}
		if i < 30 {
			label[i] = 0
		} else {
			label[i] = 1
		}
	}

	ds, err := dataset.New([]*dataset.Column{
		numberColumn("x", x...),
		numberColumn("twice_x", twiceX...),
		numberColumn("noise", noise...),
		stringColumn("group", group...),
		numberColumn("label", label...),
	})
	require.NoError(t, err)

	sch := &schema.Schema{
		Target:      "label",
		TaskType:    schema.TaskClassification,
		Numeric:     []string{"x", "twice_x", "noise"},
		Categorical: []string{"group"},
	}
	return ds, sch
}

func TestBasicStatistics(t *testing.T) {
	ds, sch := classificationFixture(t)
	report := NewProfiler(ds, sch, nil).Profile()

	bs := report.BasicStatistics
	require.NotNil(t, bs)
	assert.Equal(t, 40, bs.Rows)
	assert.Equal(t, 5, bs.Columns)
	assert.Equal(t, "numeric", bs.DataTypes["x"])
	assert.Equal(t, "string", bs.DataTypes["group"])
	assert.Equal(t, 2, bs.UniqueCounts["group"])

	summary, ok := bs.NumericSummary["x"]
	require.True(t, ok)
	assert.Equal(t, 0.0, summary.Min)
	assert.Equal(t, 39.0, summary.Max)
	assert.InDelta(t, 19.5, summary.Mean, 1e-9)
}

func TestTargetAnalysis(t *testing.T) {
	t.Run("Classification distribution", func(t *testing.T) {
		ds, sch := classificationFixture(t)
		report := NewProfiler(ds, sch, nil).Profile()

		ta := report.TargetAnalysis
		require.NotNil(t, ta)
		assert.Equal(t, schema.TaskClassification, ta.Type)
		assert.Equal(t, 30, ta.ClassDistribution["0"])
		assert.Equal(t, 10, ta.ClassDistribution["1"])
	})

	t.Run("Regression summary", func(t *testing.T) {
		ds, err := dataset.New([]*dataset.Column{
			numberColumn("size", 30, 45, 60, 75, 90),
			numberColumn("price", 100, 150, 200, 250, 300),
		})
		require.NoError(t, err)
		sch := &schema.Schema{Target: "price", TaskType: schema.TaskRegression, Numeric: []string{"size"}}

		report := NewProfiler(ds, sch, nil).Profile()
		require.NotNil(t, report.TargetAnalysis.Summary)
		assert.Equal(t, 100.0, report.TargetAnalysis.Summary.Min)
		assert.Equal(t, 300.0, report.TargetAnalysis.Summary.Max)
		assert.InDelta(t, 200.0, report.TargetAnalysis.Summary.Mean, 1e-9)
	})
}

func TestCorrelationMatrix(t *testing.T) {
	ds, sch := classificationFixture(t)
	report := NewProfiler(ds, sch, nil).Profile()

	m := report.CorrelationMatrix
	require.NotEmpty(t, m)

	t.Run("Symmetric with unit diagonal", func(t *testing.T) {
		for a := range m {
			assert.Equal(t, 1.0, m[a][a], "corr(%s,%s)", a, a)
			for b := range m[a] {
				assert.Equal(t, m[a][b], m[b][a], "corr(%s,%s) vs corr(%s,%s)", a, b, b, a)
			}
		}
	})

	t.Run("Perfectly correlated pair is flagged once", func(t *testing.T) {
		require.Len(t, report.HighCorrelationPairs, 1)
		pair := report.HighCorrelationPairs[0]
		assert.Equal(t, "x", pair.First)
		assert.Equal(t, "twice_x", pair.Second)
		assert.Equal(t, 1.0, pair.Correlation)
	})

	t.Run("Pair members get scatter suggestions", func(t *testing.T) {
		assert.Contains(t, report.NumericAnalysis["x"].SuggestPlots, "scatter_with:twice_x")
		assert.Contains(t, report.NumericAnalysis["twice_x"].SuggestPlots, "scatter_with:x")
	})

	t.Run("Target is excluded", func(t *testing.T) {
		_, ok := m["label"]
		assert.False(t, ok)
	})
}

func TestCorrelationNeedsTwoFeatures(t *testing.T) {
	ds, err := dataset.New([]*dataset.Column{
		numberColumn("only", 1, 2, 3, 4),
		numberColumn("y", 0, 1, 0, 1),
	})
	require.NoError(t, err)
	sch := &schema.Schema{Target: "y", TaskType: schema.TaskClassification, Numeric: []string{"only"}}

	report := NewProfiler(ds, sch, nil).Profile()
	assert.Empty(t, report.CorrelationMatrix)
	assert.Empty(t, report.HighCorrelationPairs)
}

func TestNumericAnalysisPlots(t *testing.T) {
	ds, sch := classificationFixture(t)
	report := NewProfiler(ds, sch, nil).Profile()

	profile, ok := report.NumericAnalysis["x"]
	require.True(t, ok)
	assert.Contains(t, profile.SuggestPlots, "hist")
	assert.Contains(t, profile.SuggestPlots, "box")
}

func TestSkewInsight(t *testing.T) {
	// a long right tail drives skewness above 1
	values := []float64{1, 1, 1, 2, 1, 2, 1, 1, 2, 1, 1, 2, 1, 1, 50, 80}
	target := make([]float64, len(values))
	other := make([]float64, len(values))
	for i := range target {
		target[i] = float64(i % 2)
		other[i] = float64(i)
	}

	ds, err := dataset.New([]*dataset.Column{
		numberColumn("amount", values...),
		numberColumn("other", other...),
		numberColumn("y", target...),
	})
	require.NoError(t, err)
	sch := &schema.Schema{Target: "y", TaskType: schema.TaskClassification, Numeric: []string{"amount", "other"}}

	report := NewProfiler(ds, sch, nil).Profile()
	profile := report.NumericAnalysis["amount"]
	require.NotNil(t, profile)
	assert.Greater(t, profile.Skewness, 1.0)
	assert.NotEmpty(t, profile.Insight)

	found := false
	for _, insight := range report.KeyInsights {
		if insight == "highly skewed numeric features: amount" {
			found = true
		}
	}
	assert.True(t, found, "key insights should name the skewed feature")
}

func TestBinaryOutcomeAnalysis(t *testing.T) {
	ds, sch := classificationFixture(t)
	report := NewProfiler(ds, sch, nil).Profile()

	require.NotNil(t, report.BinaryOutcomeAnalysis)
	rates, ok := report.BinaryOutcomeAnalysis["group"]
	require.True(t, ok)

	// rows 30..39 are positive: alpha holds the even ones, beta the odd
	assert.InDelta(t, 0.25, rates["alpha"], 1e-9)
	assert.InDelta(t, 0.25, rates["beta"], 1e-9)
}

func TestBinaryOutcomeSkippedForMulticlass(t *testing.T) {
	ds, err := dataset.New([]*dataset.Column{
		stringColumn("g", "a", "b", "a", "b", "a", "b"),
		numberColumn("y", 0, 1, 2, 0, 1, 2),
	})
	require.NoError(t, err)
	sch := &schema.Schema{Target: "y", TaskType: schema.TaskClassification, Categorical: []string{"g"}}

	report := NewProfiler(ds, sch, nil).Profile()
	assert.Nil(t, report.BinaryOutcomeAnalysis)
}

func TestKeyInsightsClassBalance(t *testing.T) {
	ds, sch := classificationFixture(t)
	report := NewProfiler(ds, sch, nil).Profile()

	require.NotEmpty(t, report.KeyInsights)
	assert.Contains(t, report.KeyInsights[0], "target class distribution")
	assert.Contains(t, report.KeyInsights[0], "0 75.0%")
}
