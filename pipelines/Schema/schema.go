package schema

import (
	"fmt"

	dataset "github.com/datapilot-ml/datapilot-go/pipelines/Dataset"
)

// TaskType identifies the prediction task derived from the target column.
type TaskType string

const (
	TaskClassification TaskType = "classification"
	TaskRegression     TaskType = "regression"
)

// Schema is the central contract object produced once by the Inferrer and
// consumed read-only by every later stage. All role groups are always
// present (possibly empty) and mutually exclusive; the target never appears
// in any of them.
type Schema struct {
	Target   string   `json:"target"`
	TaskType TaskType `json:"task_type"`

	Numeric                []string `json:"numeric"`
	Ordinal                []string `json:"ordinal"`
	Categorical            []string `json:"categorical"`
	Datetime               []string `json:"datetime"`
	IDColumns              []string `json:"id_columns"`
	HighCardinality        []string `json:"high_cardinality_columns"`
	HighMissingCategorical []string `json:"high_missing_categorical"`

	Warnings []string `json:"warnings"`
}

// RoleGroups returns the role groups in classification order, keyed by the
// JSON field name.
func (s *Schema) RoleGroups() map[string][]string {
	return map[string][]string{
		"numeric":                  s.Numeric,
		"ordinal":                  s.Ordinal,
		"categorical":              s.Categorical,
		"datetime":                 s.Datetime,
		"id_columns":               s.IDColumns,
		"high_cardinality_columns": s.HighCardinality,
		"high_missing_categorical": s.HighMissingCategorical,
	}
}

// FeatureColumns returns the columns eligible as model inputs: numeric,
// ordinal and categorical roles, which by construction exclude the target
// and identifier-like columns.
func (s *Schema) FeatureColumns() []string {
	out := make([]string, 0, len(s.Numeric)+len(s.Ordinal)+len(s.Categorical))
	out = append(out, s.Numeric...)
	out = append(out, s.Ordinal...)
	out = append(out, s.Categorical...)
	return out
}

// validate enforces the construction invariants: every referenced column
// exists in the dataset, no column carries two roles, and the target is
// outside every role group.
func (s *Schema) validate(ds *dataset.Dataset) error {
	if s.Target == "" {
		return NewValidationError("schema has no target column")
	}
	if !ds.Has(s.Target) {
		return NewValidationError("target column %q not found in dataset", s.Target)
	}

	claimed := make(map[string]string)
	for group, cols := range s.RoleGroups() {
		for _, col := range cols {
			if !ds.Has(col) {
				return NewValidationError("schema references unknown column %q in group %s", col, group)
			}
			if prev, dup := claimed[col]; dup {
				return fmt.Errorf("column %q claimed by both %s and %s role groups", col, prev, group)
			}
			claimed[col] = group
			if col == s.Target {
				return &ContradictionError{Column: s.Target, Reason: fmt.Sprintf("target assigned to %s role group", group)}
			}
		}
	}

	return nil
}
