package eda

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	dataset "github.com/datapilot-ml/datapilot-go/pipelines/Dataset"
	schema "github.com/datapilot-ml/datapilot-go/pipelines/Schema"
	"github.com/datapilot-ml/datapilot-go/utils"
)

// highCorrelationThreshold flags feature pairs with |r| at or above it.
const highCorrelationThreshold = 0.8

// skewInsightThreshold marks a numeric feature as highly skewed.
const skewInsightThreshold = 1.0

// Describe is a describe()-style five-number-plus summary of one column.
type Describe struct {
	Min    float64 `json:"min"`
	Q25    float64 `json:"25%"`
	Median float64 `json:"50%"`
	Q75    float64 `json:"75%"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

// BasicStats covers dataset shape, dtypes, missingness and numeric
// summaries.
type BasicStats struct {
	Rows           int                 `json:"rows"`
	Columns        int                 `json:"columns"`
	DataTypes      map[string]string   `json:"data_types"`
	MissingCounts  map[string]int      `json:"missing_values"`
	UniqueCounts   map[string]int      `json:"unique_counts"`
	NumericSummary map[string]Describe `json:"numeric_summary"`
}

// RegressionSummary describes a continuous target.
type RegressionSummary struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Skewness float64 `json:"skewness"`
}

// TargetAnalysis describes the target distribution for either task type.
type TargetAnalysis struct {
	Column            string             `json:"target_column"`
	Type              schema.TaskType    `json:"type"`
	ClassDistribution map[string]int     `json:"class_distribution,omitempty"`
	Summary           *RegressionSummary `json:"summary,omitempty"`
}

// NumericProfile is the per-feature numeric analysis with plot suggestions.
type NumericProfile struct {
	Mean         float64  `json:"mean"`
	Median       float64  `json:"median"`
	Std          float64  `json:"std"`
	Min          float64  `json:"min"`
	Max          float64  `json:"max"`
	Skewness     float64  `json:"skewness"`
	SuggestPlots []string `json:"suggest_plots"`
	Insight      string   `json:"insight,omitempty"`
}

// OrdinalProfile is the per-feature ordinal analysis.
type OrdinalProfile struct {
	Distribution map[string]int `json:"distribution"`
	Min          float64        `json:"min"`
	Max          float64        `json:"max"`
}

// CorrelationPair is one high-correlation feature pair, reported once per
// unordered pair in column order.
type CorrelationPair struct {
	First       string  `json:"first"`
	Second      string  `json:"second"`
	Correlation float64 `json:"correlation"`
}

// Report is the full EDA output: nested statistics keyed by analysis type,
// purely derived from the cleaned dataset.
type Report struct {
	BasicStatistics       *BasicStats                   `json:"basic_statistics"`
	TargetAnalysis        *TargetAnalysis               `json:"target_analysis"`
	NumericAnalysis       map[string]*NumericProfile    `json:"numeric_analysis"`
	OrdinalAnalysis       map[string]*OrdinalProfile    `json:"ordinal_analysis"`
	CorrelationMatrix     map[string]map[string]float64 `json:"correlation_matrix"`
	HighCorrelationPairs  []CorrelationPair             `json:"high_correlation_pairs"`
	BinaryOutcomeAnalysis map[string]map[string]float64 `json:"binary_outcome_analysis,omitempty"`
	KeyInsights           []string                      `json:"key_insights"`
}

// Profiler computes the EDA report. It never mutates its inputs and never
// fails for a schema-admissible dataset: sections that cannot be computed
// come back empty.
type Profiler struct {
	ds  *dataset.Dataset
	sch *schema.Schema
	log *utils.Logger
}

// NewProfiler binds a profiler to a cleaned dataset and its schema.
func NewProfiler(ds *dataset.Dataset, sch *schema.Schema, logger *utils.Logger) *Profiler {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Profiler{ds: ds, sch: sch, log: logger.WithComponent("Profiler")}
}

// Profile runs every analysis and assembles the report.
func (p *Profiler) Profile() *Report {
	report := &Report{
		NumericAnalysis:      make(map[string]*NumericProfile),
		OrdinalAnalysis:      make(map[string]*OrdinalProfile),
		CorrelationMatrix:    make(map[string]map[string]float64),
		HighCorrelationPairs: []CorrelationPair{},
		KeyInsights:          []string{},
	}

	report.BasicStatistics = p.basicStatistics()
	report.TargetAnalysis = p.targetAnalysis()
	p.numericAnalysis(report)
	p.ordinalAnalysis(report)
	p.correlationAnalysis(report)
	p.binaryOutcomeAnalysis(report)
	p.keyInsights(report)

	p.log.Info("profiling complete",
		utils.F("numeric_features", len(report.NumericAnalysis)),
		utils.F("high_correlation_pairs", len(report.HighCorrelationPairs)),
		utils.F("insights", len(report.KeyInsights)))

	return report
}

// quantFeatures returns the numeric and ordinal feature columns present in
// the dataset, excluding the target.
func (p *Profiler) quantFeatures() []string {
	var out []string
	for _, name := range append(append([]string{}, p.sch.Numeric...), p.sch.Ordinal...) {
		if name != p.sch.Target && p.ds.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

func (p *Profiler) basicStatistics() *BasicStats {
	bs := &BasicStats{
		Rows:           p.ds.RowCount(),
		Columns:        p.ds.ColumnCount(),
		DataTypes:      make(map[string]string),
		MissingCounts:  make(map[string]int),
		UniqueCounts:   make(map[string]int),
		NumericSummary: make(map[string]Describe),
	}

	for _, col := range p.ds.Columns() {
		bs.DataTypes[col.Name] = col.Kind.String()
		bs.MissingCounts[col.Name] = col.MissingCount()
	}
	for _, name := range p.sch.Categorical {
		if col, ok := p.ds.Column(name); ok {
			bs.UniqueCounts[name] = col.DistinctCount()
		}
	}
	for _, name := range p.quantFeatures() {
		col, _ := p.ds.Column(name)
		if d, ok := describe(col.Floats()); ok {
			bs.NumericSummary[name] = d
		}
	}

	return bs
}

func describe(values []float64) (Describe, bool) {
	if len(values) == 0 {
		return Describe{}, false
	}
	quartiles, err := stats.Quartile(values)
	if err != nil {
		return Describe{}, false
	}
	minV, _ := stats.Min(values)
	maxV, _ := stats.Max(values)
	mean, _ := stats.Mean(values)
	std, err := stats.StandardDeviationSample(values)
	if err != nil {
		std = 0
	}
	return Describe{
		Min:    minV,
		Q25:    quartiles.Q1,
		Median: quartiles.Q2,
		Q75:    quartiles.Q3,
		Max:    maxV,
		Mean:   mean,
		Std:    std,
	}, true
}

func (p *Profiler) targetAnalysis() *TargetAnalysis {
	col, ok := p.ds.Column(p.sch.Target)
	if !ok {
		return nil
	}

	ta := &TargetAnalysis{Column: p.sch.Target, Type: p.sch.TaskType}
	if p.sch.TaskType == schema.TaskClassification {
		ta.ClassDistribution = valueCounts(col)
		return ta
	}

	values := col.Floats()
	if len(values) == 0 {
		return ta
	}
	minV, _ := stats.Min(values)
	maxV, _ := stats.Max(values)
	ta.Summary = &RegressionSummary{
		Min:      minV,
		Max:      maxV,
		Mean:     stat.Mean(values, nil),
		Std:      stat.StdDev(values, nil),
		Skewness: stat.Skew(values, nil),
	}
	return ta
}

func valueCounts(col *dataset.Column) map[string]int {
	counts := make(map[string]int)
	for _, v := range col.Cells {
		if v.IsMissing() {
			continue
		}
		counts[v.AsString()]++
	}
	return counts
}

func (p *Profiler) numericAnalysis(report *Report) {
	for _, name := range p.sch.Numeric {
		if name == p.sch.Target {
			continue
		}
		col, ok := p.ds.Column(name)
		if !ok {
			continue
		}
		values := col.Floats()
		if len(values) == 0 {
			continue
		}

		median, _ := stats.Median(values)
		minV, _ := stats.Min(values)
		maxV, _ := stats.Max(values)
		profile := &NumericProfile{
			Mean:         stat.Mean(values, nil),
			Median:       median,
			Std:          stat.StdDev(values, nil),
			Min:          minV,
			Max:          maxV,
			Skewness:     skewOrZero(values),
			SuggestPlots: []string{"hist", "box"},
		}
		if math.Abs(profile.Skewness) > skewInsightThreshold {
			profile.Insight = "highly skewed distribution, consider transformation"
			if !containsString(profile.SuggestPlots, "box") {
				profile.SuggestPlots = append(profile.SuggestPlots, "box")
			}
		}
		report.NumericAnalysis[name] = profile
	}
}

func skewOrZero(values []float64) float64 {
	s := stat.Skew(values, nil)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

func (p *Profiler) ordinalAnalysis(report *Report) {
	for _, name := range p.sch.Ordinal {
		if name == p.sch.Target {
			continue
		}
		col, ok := p.ds.Column(name)
		if !ok {
			continue
		}
		values := col.Floats()
		if len(values) == 0 {
			continue
		}
		minV, _ := stats.Min(values)
		maxV, _ := stats.Max(values)
		report.OrdinalAnalysis[name] = &OrdinalProfile{
			Distribution: valueCounts(col),
			Min:          minV,
			Max:          maxV,
		}
	}
}

// correlationAnalysis computes the Pearson matrix over numeric and ordinal
// features and flags highly correlated pairs once per unordered pair.
// Fewer than two usable features yields empty results, not an error.
func (p *Profiler) correlationAnalysis(report *Report) {
	features := p.quantFeatures()

	series := make(map[string][]float64, len(features))
	var usable []string
	rows := p.ds.RowCount()
	for _, name := range features {
		col, _ := p.ds.Column(name)
		values := col.Floats()
		if len(values) != rows {
			// correlation needs aligned complete columns; cleaned feature
			// columns have no holes, anything else is skipped
			continue
		}
		series[name] = values
		usable = append(usable, name)
	}

	if len(usable) < 2 {
		return
	}

	for _, a := range usable {
		report.CorrelationMatrix[a] = make(map[string]float64, len(usable))
		for _, b := range usable {
			r := stat.Correlation(series[a], series[b], nil)
			if math.IsNaN(r) {
				r = 0
			}
			report.CorrelationMatrix[a][b] = round3(r)
		}
	}

	for i := 0; i < len(usable); i++ {
		for j := i + 1; j < len(usable); j++ {
			r := report.CorrelationMatrix[usable[i]][usable[j]]
			if math.Abs(r) >= highCorrelationThreshold {
				report.HighCorrelationPairs = append(report.HighCorrelationPairs, CorrelationPair{
					First:       usable[i],
					Second:      usable[j],
					Correlation: r,
				})
				p.appendScatterSuggestion(report, usable[i], usable[j])
				p.appendScatterSuggestion(report, usable[j], usable[i])
			}
		}
	}
}

func (p *Profiler) appendScatterSuggestion(report *Report, col, other string) {
	profile, ok := report.NumericAnalysis[col]
	if !ok {
		return
	}
	suggestion := "scatter_with:" + other
	if !containsString(profile.SuggestPlots, suggestion) {
		profile.SuggestPlots = append(profile.SuggestPlots, suggestion)
	}
}

// binaryOutcomeAnalysis computes group-wise positive-class rates per
// categorical feature. Only runs for classification targets with exactly
// two classes; features with a single group are skipped.
func (p *Profiler) binaryOutcomeAnalysis(report *Report) {
	if p.sch.TaskType != schema.TaskClassification {
		return
	}
	target, ok := p.ds.Column(p.sch.Target)
	if !ok {
		return
	}
	classes := target.DistinctValues()
	if len(classes) != 2 {
		return
	}

	// positive class is the lexically larger label, so 0/1 and no/yes
	// encodings both read naturally
	positive := classes[0]
	if classes[1] > positive {
		positive = classes[1]
	}

	analysis := make(map[string]map[string]float64)
	for _, name := range p.sch.Categorical {
		if name == p.sch.Target {
			continue
		}
		col, ok := p.ds.Column(name)
		if !ok {
			continue
		}

		totals := make(map[string]int)
		positives := make(map[string]int)
		for i, v := range col.Cells {
			if v.IsMissing() || target.Cells[i].IsMissing() {
				continue
			}
			group := v.AsString()
			totals[group]++
			if target.Cells[i].AsString() == positive {
				positives[group]++
			}
		}
		if len(totals) <= 1 {
			continue
		}

		rates := make(map[string]float64, len(totals))
		for group, total := range totals {
			rates[group] = round3(float64(positives[group]) / float64(total))
		}
		analysis[name] = rates
	}

	if len(analysis) > 0 {
		report.BinaryOutcomeAnalysis = analysis
	}
}

// keyInsights distills the report into natural-language summary bullets.
func (p *Profiler) keyInsights(report *Report) {
	if ta := report.TargetAnalysis; ta != nil && ta.Type == schema.TaskClassification && len(ta.ClassDistribution) > 0 {
		total := 0
		for _, n := range ta.ClassDistribution {
			total += n
		}
		classes := make([]string, 0, len(ta.ClassDistribution))
		for class := range ta.ClassDistribution {
			classes = append(classes, class)
		}
		sort.Strings(classes)
		parts := make([]string, len(classes))
		for i, class := range classes {
			parts[i] = fmt.Sprintf("%s %.1f%%", class, 100*float64(ta.ClassDistribution[class])/float64(total))
		}
		report.KeyInsights = append(report.KeyInsights, "target class distribution: "+strings.Join(parts, ", "))
	}

	var skewed []string
	for _, name := range sortedKeys(report.NumericAnalysis) {
		if math.Abs(report.NumericAnalysis[name].Skewness) > skewInsightThreshold {
			skewed = append(skewed, name)
		}
	}
	if len(skewed) > 0 {
		report.KeyInsights = append(report.KeyInsights, "highly skewed numeric features: "+strings.Join(skewed, ", "))
	}

	var related []string
	for name, rates := range report.BinaryOutcomeAnalysis {
		if len(rates) > 0 {
			related = append(related, name)
		}
	}
	if len(related) > 0 {
		sort.Strings(related)
		report.KeyInsights = append(report.KeyInsights, "categorical features with a strong target relationship: "+strings.Join(related, ", "))
	}
}

func sortedKeys(m map[string]*NumericProfile) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
