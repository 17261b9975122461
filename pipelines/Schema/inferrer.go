package schema

import (
	"math"
	"regexp"
	"strings"
	"time"

	dataset "github.com/datapilot-ml/datapilot-go/pipelines/Dataset"
	"github.com/datapilot-ml/datapilot-go/utils"
)

const (
	// idUniquenessRatio marks a column as an identifier when its distinct
	// values nearly key every row.
	idUniquenessRatio = 0.98

	// datetimeParseRatio is the minimum fraction of non-missing values that
	// must parse as dates for a text column to be claimed as datetime.
	datetimeParseRatio = 0.5

	// ordinalMaxDistinct bounds how many distinct integral values a numeric
	// column may hold and still be treated as ordinal.
	ordinalMaxDistinct = 10

	// highMissingRatio splits categorical columns into normal vs
	// high-missing subsets.
	highMissingRatio = 0.4

	// classificationMaxDistinct is the cardinality ceiling under which a
	// numeric target is treated as a class label rather than a quantity.
	classificationMaxDistinct = 10
)

var idNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bid\b`),
	regexp.MustCompile(`\bidentifier\b`),
	regexp.MustCompile(`\buuid\b`),
	regexp.MustCompile(`\bserial\b`),
	regexp.MustCompile(`\bindex\b`),
	regexp.MustCompile(`\bsno\b`),
	regexp.MustCompile(`\bs no\b`),
}

var targetNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\btarget\b`),
	regexp.MustCompile(`\blabel\b`),
	regexp.MustCompile(`\bclass\b`),
	regexp.MustCompile(`\boutcome\b`),
	regexp.MustCompile(`\bresult\b`),
	regexp.MustCompile(`\by\b`),
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
	time.RFC3339,
	time.RFC822,
}

var nameSeparators = regexp.MustCompile(`[_\-./]+`)

// normalizeName lowercases a column name and flattens separators so
// word-boundary patterns match compound forms like user_id or s.no.
func normalizeName(name string) string {
	return nameSeparators.ReplaceAllString(strings.ToLower(name), " ")
}

func matchesAny(patterns []*regexp.Regexp, name string) bool {
	norm := normalizeName(name)
	for _, p := range patterns {
		if p.MatchString(norm) {
			return true
		}
	}
	return false
}

// Inferrer classifies every column of a dataset into exactly one role and
// resolves the target column. It is the decision engine of the pipeline;
// every later stage trusts the Schema it produces.
type Inferrer struct {
	ds  *dataset.Dataset
	log *utils.Logger
}

// NewInferrer binds an inferrer to one dataset.
func NewInferrer(ds *dataset.Dataset, logger *utils.Logger) *Inferrer {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Inferrer{ds: ds, log: logger.WithComponent("SchemaInferrer")}
}

// Infer classifies column roles and validates the target. An empty
// requestedTarget switches on the scoring heuristic. Role rules run in a
// fixed order over a shrinking unclaimed set, so precedence is auditable
// pass by pass.
func (inf *Inferrer) Infer(requestedTarget string) (*Schema, error) {
	if inf.ds.RowCount() == 0 || inf.ds.ColumnCount() == 0 {
		return nil, NewValidationError("dataset is empty")
	}

	s := &Schema{
		Numeric:                []string{},
		Ordinal:                []string{},
		Categorical:            []string{},
		Datetime:               []string{},
		IDColumns:              []string{},
		HighCardinality:        []string{},
		HighMissingCategorical: []string{},
		Warnings:               []string{},
	}

	target, err := inf.resolveTarget(requestedTarget, s)
	if err != nil {
		return nil, err
	}
	s.Target = target

	if err := inf.validateTarget(s); err != nil {
		return nil, err
	}
	s.TaskType = inf.deriveTaskType(target)

	inf.classifyRoles(s)

	if err := s.validate(inf.ds); err != nil {
		return nil, err
	}

	inf.log.Info("schema inference complete",
		utils.F("target", s.Target),
		utils.F("task_type", s.TaskType),
		utils.F("numeric", len(s.Numeric)),
		utils.F("ordinal", len(s.Ordinal)),
		utils.F("categorical", len(s.Categorical)),
		utils.F("id_columns", len(s.IDColumns)),
		utils.F("warnings", len(s.Warnings)))

	return s, nil
}

// isIdentifier applies the identifier heuristics to a column: an id-like
// name, or near-unique values. The uniqueness rule only considers integral
// and text columns; a continuous measurement is unique by nature, not a key.
func (inf *Inferrer) isIdentifier(col *dataset.Column) bool {
	if matchesAny(idNamePatterns, col.Name) {
		return true
	}
	return inf.isNearUnique(col)
}

func (inf *Inferrer) isNearUnique(col *dataset.Column) bool {
	if col.Kind == dataset.KindNumber && !allIntegral(col) {
		return false
	}
	ratio := float64(col.DistinctCount()) / float64(inf.ds.RowCount())
	return ratio > idUniquenessRatio
}

func allIntegral(col *dataset.Column) bool {
	for _, f := range col.Floats() {
		if f != math.Trunc(f) {
			return false
		}
	}
	return true
}

// resolveTarget returns the caller-supplied target after an existence check,
// or falls back to the scoring heuristic when none was supplied.
func (inf *Inferrer) resolveTarget(requested string, s *Schema) (string, error) {
	if requested != "" {
		if !inf.ds.Has(requested) {
			return "", NewValidationError("target column %q not found in dataset", requested)
		}
		return requested, nil
	}
	return inf.detectTarget(s)
}

// detectTarget scores every non-identifier column and picks the best
// candidate. Binary columns score highest, with numeric encodings preferred
// over categorical group-by columns; feature-like high-cardinality columns
// are penalized.
func (inf *Inferrer) detectTarget(s *Schema) (string, error) {
	type candidate struct {
		name  string
		score int
	}

	var candidates []candidate
	for _, col := range inf.ds.Columns() {
		if inf.isIdentifier(col) {
			continue
		}

		score := 0
		if matchesAny(targetNamePatterns, col.Name) {
			score += 3
		}

		distinct := col.DistinctCount()
		numeric := col.Kind == dataset.KindNumber
		switch {
		case distinct == 2:
			score += 6
			if numeric {
				score++
			} else {
				score -= 2
			}
		case distinct >= 3 && distinct <= 10:
			score += 2
			if numeric {
				score -= 2
			}
		}
		if distinct > 50 {
			score -= 3
		}

		candidates = append(candidates, candidate{name: col.Name, score: score})
	}

	if len(candidates) == 0 {
		return "", NewValidationError("no target column supplied and no non-identifier column is a plausible target")
	}

	best := candidates[0]
	runnerUp := math.MinInt
	for _, c := range candidates[1:] {
		if c.score > best.score {
			if best.score > runnerUp {
				runnerUp = best.score
			}
			best = c
		} else if c.score > runnerUp {
			runnerUp = c.score
		}
	}

	if len(candidates) > 1 && best.score-runnerUp <= 1 {
		s.Warnings = append(s.Warnings, "target detection is ambiguous: multiple columns scored within 1 point of "+best.name)
	}
	inf.log.Info("target detected via scoring heuristic", utils.F("target", best.name), utils.F("score", best.score))

	return best.name, nil
}

// validateTarget enforces the fatal identifier contradiction and records the
// non-fatal target caveats.
func (inf *Inferrer) validateTarget(s *Schema) error {
	col, _ := inf.ds.Column(s.Target)

	if inf.isNearUnique(col) {
		return &ContradictionError{Column: s.Target, Reason: "target values nearly key every row, which makes it an identifier, not a predictable outcome"}
	}
	if matchesAny(idNamePatterns, col.Name) {
		s.Warnings = append(s.Warnings, "target column "+s.Target+" matches identifier naming patterns")
	}
	if col.DistinctCount() <= 1 {
		s.Warnings = append(s.Warnings, "target column "+s.Target+" is constant (single distinct value)")
	}

	return nil
}

func (inf *Inferrer) deriveTaskType(target string) TaskType {
	col, _ := inf.ds.Column(target)
	if col.Kind != dataset.KindNumber || col.DistinctCount() <= classificationMaxDistinct {
		return TaskClassification
	}
	return TaskRegression
}

// classifyRoles runs the ordered rule passes. Each pass only sees columns no
// earlier pass has claimed; the target is never offered to any pass.
func (inf *Inferrer) classifyRoles(s *Schema) {
	var unclaimed []*dataset.Column
	for _, col := range inf.ds.Columns() {
		if col.Name == s.Target {
			continue
		}
		unclaimed = append(unclaimed, col)
	}

	unclaimed = inf.claimParsedDatetime(s, unclaimed)
	unclaimed = inf.claimTextDatetime(s, unclaimed)
	unclaimed = inf.claimIdentifiers(s, unclaimed)
	unclaimed = inf.claimHighCardinality(s, unclaimed)
	unclaimed = inf.claimOrdinal(s, unclaimed)
	unclaimed = inf.claimNumeric(s, unclaimed)
	inf.claimCategorical(s, unclaimed)
}

// claimParsedDatetime claims columns the ingestor already stored as dates.
func (inf *Inferrer) claimParsedDatetime(s *Schema, cols []*dataset.Column) []*dataset.Column {
	var rest []*dataset.Column
	for _, col := range cols {
		if col.Kind == dataset.KindTime {
			s.Datetime = append(s.Datetime, col.Name)
			continue
		}
		rest = append(rest, col)
	}
	return rest
}

// claimTextDatetime claims text columns whose values mostly parse as dates.
func (inf *Inferrer) claimTextDatetime(s *Schema, cols []*dataset.Column) []*dataset.Column {
	var rest []*dataset.Column
	for _, col := range cols {
		if col.Kind == dataset.KindString && datetimeRatio(col) >= datetimeParseRatio {
			s.Datetime = append(s.Datetime, col.Name)
			continue
		}
		rest = append(rest, col)
	}
	return rest
}

func datetimeRatio(col *dataset.Column) float64 {
	total := 0
	parsed := 0
	for _, v := range col.Cells {
		if v.IsMissing() {
			continue
		}
		total++
		if _, ok := ParseDatetime(v.Str); ok {
			parsed++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(parsed) / float64(total)
}

// ParseDatetime tries the supported date layouts in order.
func ParseDatetime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (inf *Inferrer) claimIdentifiers(s *Schema, cols []*dataset.Column) []*dataset.Column {
	var rest []*dataset.Column
	for _, col := range cols {
		if inf.isIdentifier(col) {
			s.IDColumns = append(s.IDColumns, col.Name)
			continue
		}
		rest = append(rest, col)
	}
	return rest
}

// claimHighCardinality claims text columns with too many distinct values to
// be useful categories. The threshold scales down for small datasets.
func (inf *Inferrer) claimHighCardinality(s *Schema, cols []*dataset.Column) []*dataset.Column {
	rows := float64(inf.ds.RowCount())
	threshold := math.Max(0.3, 10/rows)

	var rest []*dataset.Column
	for _, col := range cols {
		if col.Kind == dataset.KindString {
			ratio := float64(col.DistinctCount()) / rows
			if ratio > threshold {
				s.HighCardinality = append(s.HighCardinality, col.Name)
				continue
			}
		}
		rest = append(rest, col)
	}
	return rest
}

func (inf *Inferrer) claimOrdinal(s *Schema, cols []*dataset.Column) []*dataset.Column {
	var rest []*dataset.Column
	for _, col := range cols {
		if col.Kind == dataset.KindNumber && col.DistinctCount() <= ordinalMaxDistinct && allIntegral(col) {
			s.Ordinal = append(s.Ordinal, col.Name)
			continue
		}
		rest = append(rest, col)
	}
	return rest
}

func (inf *Inferrer) claimNumeric(s *Schema, cols []*dataset.Column) []*dataset.Column {
	var rest []*dataset.Column
	for _, col := range cols {
		if col.Kind == dataset.KindNumber {
			s.Numeric = append(s.Numeric, col.Name)
			continue
		}
		rest = append(rest, col)
	}
	return rest
}

func (inf *Inferrer) claimCategorical(s *Schema, cols []*dataset.Column) {
	for _, col := range cols {
		if col.MissingRatio() > highMissingRatio {
			s.HighMissingCategorical = append(s.HighMissingCategorical, col.Name)
			s.Warnings = append(s.Warnings, "column "+col.Name+" has a high missing ratio and will be dropped")
			continue
		}
		s.Categorical = append(s.Categorical, col.Name)
	}
}
