package cleaning

import (
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	dataset "github.com/datapilot-ml/datapilot-go/pipelines/Dataset"
	schema "github.com/datapilot-ml/datapilot-go/pipelines/Schema"
	"github.com/datapilot-ml/datapilot-go/utils"
)

// iqrFenceFactor is the classic Tukey fence multiplier for outlier capping.
const iqrFenceFactor = 1.5

// Imputation records how one column's missing values were filled.
type Imputation struct {
	Method    string `json:"method"`
	FillValue any    `json:"fill_value"`
	Filled    int    `json:"filled"`
}

// Report is the immutable record of one cleaning run.
type Report struct {
	RemovedColumns    map[string][]string   `json:"removed_columns"`
	MissingValueFixes map[string]Imputation `json:"missing_value_fixes"`
	TypeCasts         map[string]string     `json:"type_casts"`
	OutlierCounts     map[string]int        `json:"outlier_counts"`
	FinalRows         int                   `json:"final_rows"`
	FinalColumns      int                   `json:"final_columns"`
	Target            string                `json:"target"`
}

// Cleaner applies schema-directed cleaning: column pruning, imputation,
// type coercion and outlier capping. The target column is never touched.
type Cleaner struct {
	ds  *dataset.Dataset
	sch *schema.Schema
	log *utils.Logger
}

// NewCleaner binds a cleaner to a dataset and its schema.
func NewCleaner(ds *dataset.Dataset, sch *schema.Schema, logger *utils.Logger) *Cleaner {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Cleaner{ds: ds, sch: sch, log: logger.WithComponent("Cleaner")}
}

// Clean runs the fixed cleaning sequence on a copy of the input dataset and
// returns the cleaned copy plus the report. The only failure mode is a
// missing target column; every other schema-admissible input succeeds.
func (c *Cleaner) Clean() (*dataset.Dataset, *Report, error) {
	if !c.ds.Has(c.sch.Target) {
		return nil, nil, schema.NewValidationError("target column %q missing from dataset", c.sch.Target)
	}

	out := c.ds.Copy()
	report := &Report{
		RemovedColumns:    make(map[string][]string),
		MissingValueFixes: make(map[string]Imputation),
		TypeCasts:         make(map[string]string),
		OutlierCounts:     make(map[string]int),
		Target:            c.sch.Target,
	}

	c.dropColumns(out, report)
	c.imputeMissing(out, report)
	c.coerceTypes(out, report)
	c.capOutliers(out, report)

	report.FinalRows = out.RowCount()
	report.FinalColumns = out.ColumnCount()

	c.log.Info("cleaning complete",
		utils.F("rows", report.FinalRows),
		utils.F("columns", report.FinalColumns),
		utils.F("outlier_columns", len(report.OutlierCounts)))

	return out, report, nil
}

// dropColumns removes identifier, high-cardinality and high-missing
// columns. The target is re-checked here and never dropped, even if an
// upstream bug misclassified it.
func (c *Cleaner) dropColumns(out *dataset.Dataset, report *Report) {
	groups := []struct {
		reason string
		cols   []string
	}{
		{"id_columns", c.sch.IDColumns},
		{"high_cardinality", c.sch.HighCardinality},
		{"high_missing", c.sch.HighMissingCategorical},
	}

	for _, g := range groups {
		for _, name := range g.cols {
			if name == c.sch.Target || !out.Has(name) {
				continue
			}
			out.Drop(name)
			report.RemovedColumns[g.reason] = append(report.RemovedColumns[g.reason], name)
		}
	}
}

// imputeMissing fills numeric and ordinal columns with their median and
// categorical columns with their first mode.
func (c *Cleaner) imputeMissing(out *dataset.Dataset, report *Report) {
	for _, name := range append(append([]string{}, c.sch.Numeric...), c.sch.Ordinal...) {
		if name == c.sch.Target {
			continue
		}
		col, ok := out.Column(name)
		if !ok {
			continue
		}
		values := col.Floats()
		if len(values) == 0 {
			c.log.Warn("column has no numeric values to impute from", utils.F("column", name))
			continue
		}
		median, err := stats.Median(values)
		if err != nil {
			continue
		}
		filled := fillMissing(col, dataset.Number(median))
		if filled > 0 {
			report.MissingValueFixes[name] = Imputation{Method: "median", FillValue: median, Filled: filled}
		}
	}

	for _, name := range c.sch.Categorical {
		if name == c.sch.Target {
			continue
		}
		col, ok := out.Column(name)
		if !ok {
			continue
		}
		mode, ok := firstMode(col)
		if !ok {
			continue
		}
		filled := fillMissing(col, dataset.String(mode))
		if filled > 0 {
			report.MissingValueFixes[name] = Imputation{Method: "mode", FillValue: mode, Filled: filled}
		}
	}
}

func fillMissing(col *dataset.Column, fill dataset.Value) int {
	filled := 0
	for i, v := range col.Cells {
		if v.IsMissing() {
			col.Cells[i] = fill
			filled++
		}
	}
	return filled
}

// firstMode returns the most frequent non-missing value; ties resolve to
// the value that appears first in the column.
func firstMode(col *dataset.Column) (string, bool) {
	counts := make(map[string]int)
	for _, v := range col.Cells {
		if v.IsMissing() {
			continue
		}
		counts[v.AsString()]++
	}
	if len(counts) == 0 {
		return "", false
	}

	best := ""
	bestCount := 0
	for _, v := range col.Cells {
		if v.IsMissing() {
			continue
		}
		s := v.AsString()
		if counts[s] > bestCount {
			best = s
			bestCount = counts[s]
		}
	}
	return best, true
}

// coerceTypes casts each feature column to its role's storage type.
// Unparseable cells become missing rather than errors; a cell the coercion
// blanked is refilled with the column's recorded imputation value so no
// feature column leaves cleaning with holes.
func (c *Cleaner) coerceTypes(out *dataset.Dataset, report *Report) {
	for _, name := range append(append([]string{}, c.sch.Numeric...), c.sch.Ordinal...) {
		col, ok := out.Column(name)
		if !ok || name == c.sch.Target {
			continue
		}
		changed := col.Kind != dataset.KindNumber
		for i, v := range col.Cells {
			if v.IsMissing() || v.Kind == dataset.KindNumber {
				continue
			}
			if f, parses := v.AsFloat(); parses {
				col.Cells[i] = dataset.Number(f)
			} else {
				col.Cells[i] = dataset.Missing()
			}
			changed = true
		}
		col.Kind = dataset.KindNumber
		// cells the coercion blanked get the column median so no numeric
		// feature leaves cleaning with holes
		if col.MissingCount() > 0 {
			median, has := 0.0, false
			if fix, ok := report.MissingValueFixes[name]; ok {
				median, has = fix.FillValue.(float64)
			}
			if !has {
				if m, err := stats.Median(col.Floats()); err == nil {
					median, has = m, true
				}
			}
			if has {
				filled := fillMissing(col, dataset.Number(median))
				if _, ok := report.MissingValueFixes[name]; !ok {
					report.MissingValueFixes[name] = Imputation{Method: "median", FillValue: median, Filled: filled}
				}
			}
		}
		if changed {
			report.TypeCasts[name] = "numeric"
		}
	}

	for _, name := range c.sch.Categorical {
		col, ok := out.Column(name)
		if !ok || name == c.sch.Target {
			continue
		}
		changed := col.Kind != dataset.KindString
		for i, v := range col.Cells {
			if v.IsMissing() || v.Kind == dataset.KindString {
				continue
			}
			col.Cells[i] = dataset.String(v.AsString())
			changed = true
		}
		col.Kind = dataset.KindString
		if changed {
			report.TypeCasts[name] = "string"
		}
	}

	for _, name := range c.sch.Datetime {
		col, ok := out.Column(name)
		if !ok || name == c.sch.Target {
			continue
		}
		changed := col.Kind != dataset.KindTime
		for i, v := range col.Cells {
			if v.IsMissing() || v.Kind == dataset.KindTime {
				continue
			}
			if t, parses := schema.ParseDatetime(v.AsString()); parses {
				col.Cells[i] = dataset.Timestamp(t)
			} else {
				col.Cells[i] = dataset.Missing()
			}
			changed = true
		}
		col.Kind = dataset.KindTime
		if changed {
			report.TypeCasts[name] = "datetime"
		}
	}
}

// capOutliers replaces numeric feature values outside the IQR fences with
// the column median. Columns with zero IQR are skipped.
func (c *Cleaner) capOutliers(out *dataset.Dataset, report *Report) {
	for _, name := range c.sch.Numeric {
		if name == c.sch.Target {
			continue
		}
		col, ok := out.Column(name)
		if !ok {
			continue
		}

		values := col.Floats()
		if len(values) == 0 {
			continue
		}
		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)

		q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
		q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
		iqr := q3 - q1
		if iqr == 0 {
			continue
		}

		lower := q1 - iqrFenceFactor*iqr
		upper := q3 + iqrFenceFactor*iqr
		median, err := stats.Median(values)
		if err != nil {
			continue
		}

		capped := 0
		for i, v := range col.Cells {
			f, isNum := v.AsFloat()
			if !isNum {
				continue
			}
			if f < lower || f > upper {
				col.Cells[i] = dataset.Number(median)
				capped++
			}
		}
		if capped > 0 {
			report.OutlierCounts[name] = capped
		}
	}
}
