package ml

import (
	"fmt"
	"math"

	dataset "github.com/datapilot-ml/datapilot-go/pipelines/Dataset"
	schema "github.com/datapilot-ml/datapilot-go/pipelines/Schema"
)

// Frame is the model-ready view of a cleaned dataset: quantitative features
// as a float matrix, categorical features as raw labels, and the target in
// the representation the task type needs.
type Frame struct {
	NumericNames     []string
	CategoricalNames []string
	Numeric          [][]float64 // [row][numeric feature]
	Categorical      [][]string  // [row][categorical feature]
	ClassLabels      []string    // classification targets
	TargetValues     []float64   // regression targets
	TaskType         schema.TaskType
	Rows             int
}

// BuildFrame extracts the feature matrix and target vector from a cleaned
// dataset. Numeric and ordinal features share the quantitative matrix.
func BuildFrame(ds *dataset.Dataset, sch *schema.Schema) (*Frame, error) {
	target, ok := ds.Column(sch.Target)
	if !ok {
		return nil, fmt.Errorf("target column %q not found in dataset", sch.Target)
	}

	frame := &Frame{TaskType: sch.TaskType, Rows: ds.RowCount()}
	for _, name := range append(append([]string{}, sch.Numeric...), sch.Ordinal...) {
		if ds.Has(name) {
			frame.NumericNames = append(frame.NumericNames, name)
		}
	}
	for _, name := range sch.Categorical {
		if ds.Has(name) {
			frame.CategoricalNames = append(frame.CategoricalNames, name)
		}
	}

	frame.Numeric = make([][]float64, frame.Rows)
	frame.Categorical = make([][]string, frame.Rows)
	for i := 0; i < frame.Rows; i++ {
		frame.Numeric[i] = make([]float64, len(frame.NumericNames))
		frame.Categorical[i] = make([]string, len(frame.CategoricalNames))
	}

	for j, name := range frame.NumericNames {
		col, _ := ds.Column(name)
		for i, v := range col.Cells {
			f, ok := v.AsFloat()
			if !ok {
				return nil, fmt.Errorf("feature %q has a non-numeric cell at row %d", name, i)
			}
			frame.Numeric[i][j] = f
		}
	}
	for j, name := range frame.CategoricalNames {
		col, _ := ds.Column(name)
		for i, v := range col.Cells {
			frame.Categorical[i][j] = v.AsString()
		}
	}

	if sch.TaskType == schema.TaskClassification {
		frame.ClassLabels = make([]string, frame.Rows)
		for i, v := range target.Cells {
			if v.IsMissing() {
				return nil, fmt.Errorf("target column %q has a missing value at row %d", sch.Target, i)
			}
			frame.ClassLabels[i] = v.AsString()
		}
	} else {
		frame.TargetValues = make([]float64, frame.Rows)
		for i, v := range target.Cells {
			f, ok := v.AsFloat()
			if !ok {
				return nil, fmt.Errorf("target column %q has a non-numeric cell at row %d", sch.Target, i)
			}
			frame.TargetValues[i] = f
		}
	}

	return frame, nil
}

// FeatureCount is the raw (pre-encoding) number of feature columns.
func (f *Frame) FeatureCount() int {
	return len(f.NumericNames) + len(f.CategoricalNames)
}

// Preprocessor standardizes quantitative features and one-hot encodes
// categorical features. It is fitted on training rows only, so fold
// evaluation never leaks statistics from held-out rows.
type Preprocessor struct {
	NumericNames     []string   `json:"numeric_names"`
	CategoricalNames []string   `json:"categorical_names"`
	Means            []float64  `json:"means"`
	Stds             []float64  `json:"stds"`
	Categories       [][]string `json:"categories"` // per categorical column, in first-seen order
	EncodedNames     []string   `json:"encoded_names"`

	catIndex []map[string]int
}

// FitPreprocessor learns standardization statistics and category
// vocabularies from the given training rows.
func FitPreprocessor(frame *Frame, rows []int) *Preprocessor {
	p := &Preprocessor{
		NumericNames:     frame.NumericNames,
		CategoricalNames: frame.CategoricalNames,
		Means:            make([]float64, len(frame.NumericNames)),
		Stds:             make([]float64, len(frame.NumericNames)),
	}

	for j := range frame.NumericNames {
		var sum float64
		for _, i := range rows {
			sum += frame.Numeric[i][j]
		}
		mean := sum / float64(len(rows))
		var ss float64
		for _, i := range rows {
			d := frame.Numeric[i][j] - mean
			ss += d * d
		}
		std := math.Sqrt(ss / float64(len(rows)))
		if std == 0 {
			std = 1
		}
		p.Means[j] = mean
		p.Stds[j] = std
	}

	p.Categories = make([][]string, len(frame.CategoricalNames))
	p.catIndex = make([]map[string]int, len(frame.CategoricalNames))
	for j := range frame.CategoricalNames {
		seen := make(map[string]int)
		var order []string
		for _, i := range rows {
			v := frame.Categorical[i][j]
			if _, ok := seen[v]; !ok {
				seen[v] = len(order)
				order = append(order, v)
			}
		}
		p.Categories[j] = order
		p.catIndex[j] = seen
	}

	p.EncodedNames = append(p.EncodedNames, p.NumericNames...)
	for j, name := range p.CategoricalNames {
		for _, cat := range p.Categories[j] {
			p.EncodedNames = append(p.EncodedNames, name+"="+cat)
		}
	}

	return p
}

// Transform encodes the given frame rows into the fitted feature space.
// Categories unseen during fitting encode as all-zero indicator blocks.
func (p *Preprocessor) Transform(frame *Frame, rows []int) [][]float64 {
	p.ensureIndex()
	out := make([][]float64, len(rows))
	for k, i := range rows {
		out[k] = p.encodeRow(frame.Numeric[i], frame.Categorical[i])
	}
	return out
}

// EncodeRaw encodes a single raw observation given in column order.
func (p *Preprocessor) EncodeRaw(numeric []float64, categorical []string) ([]float64, error) {
	if len(numeric) != len(p.NumericNames) || len(categorical) != len(p.CategoricalNames) {
		return nil, fmt.Errorf("expected %d numeric and %d categorical values, got %d and %d",
			len(p.NumericNames), len(p.CategoricalNames), len(numeric), len(categorical))
	}
	p.ensureIndex()
	return p.encodeRow(numeric, categorical), nil
}

func (p *Preprocessor) encodeRow(numeric []float64, categorical []string) []float64 {
	row := make([]float64, 0, len(p.EncodedNames))
	for j, v := range numeric {
		row = append(row, (v-p.Means[j])/p.Stds[j])
	}
	for j, v := range categorical {
		block := make([]float64, len(p.Categories[j]))
		if idx, ok := p.catIndex[j][v]; ok {
			block[idx] = 1
		}
		row = append(row, block...)
	}
	return row
}

// ensureIndex rebuilds the lookup maps after JSON deserialization.
func (p *Preprocessor) ensureIndex() {
	if p.catIndex != nil {
		return
	}
	p.catIndex = make([]map[string]int, len(p.Categories))
	for j, cats := range p.Categories {
		p.catIndex[j] = make(map[string]int, len(cats))
		for idx, cat := range cats {
			p.catIndex[j][cat] = idx
		}
	}
}
