package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the storage type of a cell or column.
type Kind int

const (
	KindMissing Kind = iota
	KindNumber
	KindString
	KindTime
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "numeric"
	case KindString:
		return "string"
	case KindTime:
		return "datetime"
	case KindMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// Value is a single typed cell. Missing values are explicit, never nil.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Time time.Time
}

// Missing returns the missing-cell marker.
func Missing() Value {
	return Value{Kind: KindMissing}
}

// Number wraps a float64 cell.
func Number(v float64) Value {
	return Value{Kind: KindNumber, Num: v}
}

// String wraps a text cell.
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Timestamp wraps a datetime cell.
func Timestamp(t time.Time) Value {
	return Value{Kind: KindTime, Time: t}
}

// IsMissing reports whether the cell holds no value.
func (v Value) IsMissing() bool {
	return v.Kind == KindMissing
}

// AsString renders the cell for display and for distinct-value counting.
// Numbers use the shortest round-trip representation so 1 and 1.0 compare
// equal.
func (v Value) AsString() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindTime:
		return v.Time.Format(time.RFC3339)
	default:
		return ""
	}
}

// AsFloat returns the numeric content of the cell. Strings are parsed;
// anything unparseable reports ok=false.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindString:
		f, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// MarshalJSON renders missing cells as null and typed cells as their
// natural JSON value, keeping the dataset fully JSON-serializable.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindMissing:
		return []byte("null"), nil
	case KindNumber:
		return json.Marshal(v.Num)
	case KindString:
		return json.Marshal(v.Str)
	case KindTime:
		return json.Marshal(v.Time.Format(time.RFC3339))
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.Kind)
	}
}

// Column is an ordered sequence of typed cells under one name.
type Column struct {
	Name  string  `json:"name"`
	Kind  Kind    `json:"-"`
	Cells []Value `json:"cells"`
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.Cells {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// MissingRatio returns the fraction of missing cells.
func (c *Column) MissingRatio() float64 {
	if len(c.Cells) == 0 {
		return 0
	}
	return float64(c.MissingCount()) / float64(len(c.Cells))
}

// DistinctCount returns the number of distinct non-missing values.
func (c *Column) DistinctCount() int {
	seen := make(map[string]struct{})
	for _, v := range c.Cells {
		if v.IsMissing() {
			continue
		}
		seen[v.AsString()] = struct{}{}
	}
	return len(seen)
}

// DistinctValues returns the distinct non-missing values in first-seen order.
func (c *Column) DistinctValues() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range c.Cells {
		if v.IsMissing() {
			continue
		}
		s := v.AsString()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Floats returns the non-missing cells that carry (or parse to) a number.
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Cells))
	for _, v := range c.Cells {
		if v.IsMissing() {
			continue
		}
		if f, ok := v.AsFloat(); ok {
			out = append(out, f)
		}
	}
	return out
}

// Copy returns a deep copy of the column.
func (c *Column) Copy() *Column {
	cells := make([]Value, len(c.Cells))
	copy(cells, c.Cells)
	return &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
}

// Dataset is an ordered collection of equal-length named columns. Each
// pipeline stage works on its own copy; no stage mutates its input as
// observed by callers.
type Dataset struct {
	columns []*Column
	index   map[string]int
}

// New builds a dataset from columns, rejecting duplicate names and ragged
// lengths.
func New(columns []*Column) (*Dataset, error) {
	ds := &Dataset{index: make(map[string]int, len(columns))}
	rows := -1
	for _, col := range columns {
		if _, dup := ds.index[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column name: %s", col.Name)
		}
		if rows == -1 {
			rows = len(col.Cells)
		} else if len(col.Cells) != rows {
			return nil, fmt.Errorf("column %s has %d rows, expected %d", col.Name, len(col.Cells), rows)
		}
		ds.index[col.Name] = len(ds.columns)
		ds.columns = append(ds.columns, col)
	}
	return ds, nil
}

// RowCount returns the number of rows.
func (ds *Dataset) RowCount() int {
	if len(ds.columns) == 0 {
		return 0
	}
	return len(ds.columns[0].Cells)
}

// ColumnCount returns the number of columns.
func (ds *Dataset) ColumnCount() int {
	return len(ds.columns)
}

// Names returns the column names in order.
func (ds *Dataset) Names() []string {
	names := make([]string, len(ds.columns))
	for i, col := range ds.columns {
		names[i] = col.Name
	}
	return names
}

// Column returns the named column, or nil,false when absent.
func (ds *Dataset) Column(name string) (*Column, bool) {
	i, ok := ds.index[name]
	if !ok {
		return nil, false
	}
	return ds.columns[i], true
}

// Columns returns the columns in order.
func (ds *Dataset) Columns() []*Column {
	return ds.columns
}

// Has reports whether the named column exists.
func (ds *Dataset) Has(name string) bool {
	_, ok := ds.index[name]
	return ok
}

// Drop removes the named column. Dropping an absent column is a no-op.
func (ds *Dataset) Drop(name string) {
	i, ok := ds.index[name]
	if !ok {
		return
	}
	ds.columns = append(ds.columns[:i], ds.columns[i+1:]...)
	delete(ds.index, name)
	for j := i; j < len(ds.columns); j++ {
		ds.index[ds.columns[j].Name] = j
	}
}

// Copy returns a deep copy of the dataset.
func (ds *Dataset) Copy() *Dataset {
	cols := make([]*Column, len(ds.columns))
	for i, col := range ds.columns {
		cols[i] = col.Copy()
	}
	out, _ := New(cols)
	return out
}

// MarshalJSON renders the dataset column-wise.
func (ds *Dataset) MarshalJSON() ([]byte, error) {
	type jsonColumn struct {
		Name  string  `json:"name"`
		Type  string  `json:"type"`
		Cells []Value `json:"cells"`
	}
	cols := make([]jsonColumn, len(ds.columns))
	for i, col := range ds.columns {
		cols[i] = jsonColumn{Name: col.Name, Type: col.Kind.String(), Cells: col.Cells}
	}
	return json.Marshal(struct {
		Rows    int          `json:"rows"`
		Columns []jsonColumn `json:"columns"`
	}{Rows: ds.RowCount(), Columns: cols})
}
