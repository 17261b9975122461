package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	dataset "github.com/datapilot-ml/datapilot-go/pipelines/Dataset"
	schema "github.com/datapilot-ml/datapilot-go/pipelines/Schema"
	"github.com/datapilot-ml/datapilot-go/utils"
)

// DefaultMaxFileSizeMB caps the input file size unless overridden.
const DefaultMaxFileSizeMB = 200

// sniffPrefixBytes is how much of the raw file the separator sniffer reads.
const sniffPrefixBytes = 2048

// separatorCandidates in sniffing order; the first listed wins exact ties.
var separatorCandidates = []rune{',', ';', '\t', '|'}

var allowedExtensions = map[string]bool{
	".csv": true,
	".tsv": true,
	".txt": true,
}

// missingMarkers are cell spellings treated as missing values.
var missingMarkers = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
}

// Metadata describes a loaded file.
type Metadata struct {
	FilePath   string  `json:"file_path"`
	FileSizeMB float64 `json:"file_size_mb"`
	Rows       int     `json:"rows"`
	Columns    int     `json:"columns"`
	Encoding   string  `json:"encoding_used"`
	Separator  string  `json:"separator_used"`
}

// Loader reads one delimited text file into a Dataset. Each Loader is bound
// to a single file and keeps no state between calls.
type Loader struct {
	filePath      string
	maxFileSizeMB int
	log           *utils.Logger
}

// NewLoader binds a loader to a file path. maxFileSizeMB <= 0 selects the
// default ceiling.
func NewLoader(filePath string, maxFileSizeMB int, logger *utils.Logger) *Loader {
	if maxFileSizeMB <= 0 {
		maxFileSizeMB = DefaultMaxFileSizeMB
	}
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Loader{
		filePath:      filePath,
		maxFileSizeMB: maxFileSizeMB,
		log:           logger.WithComponent("Ingest"),
	}
}

// Load validates the file, sniffs its separator, decodes it with encoding
// fallback and returns the dataset plus structural metadata.
func (l *Loader) Load() (*dataset.Dataset, *Metadata, error) {
	info, err := os.Stat(l.filePath)
	if err != nil {
		return nil, nil, schema.NewValidationError("file not found: %s", l.filePath)
	}

	ext := strings.ToLower(filepath.Ext(l.filePath))
	if !allowedExtensions[ext] {
		return nil, nil, schema.NewValidationError("input must be a delimited text file (.csv, .tsv or .txt), got %q", ext)
	}

	sizeMB := float64(info.Size()) / (1024 * 1024)
	if sizeMB > float64(l.maxFileSizeMB) {
		return nil, nil, schema.NewValidationError("file too large (%.2f MB), maximum allowed size is %d MB", sizeMB, l.maxFileSizeMB)
	}

	raw, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", l.filePath, err)
	}
	if len(raw) == 0 {
		return nil, nil, schema.NewValidationError("file is empty: %s", l.filePath)
	}

	sep := sniffSeparator(raw)
	l.log.Info("separator detected", utils.F("separator", string(sep)))

	records, encodingUsed, err := l.decodeAndParse(raw, sep)
	if err != nil {
		return nil, nil, err
	}

	ds, err := buildDataset(records)
	if err != nil {
		return nil, nil, err
	}

	meta := &Metadata{
		FilePath:   l.filePath,
		FileSizeMB: math.Round(sizeMB*100) / 100,
		Rows:       ds.RowCount(),
		Columns:    ds.ColumnCount(),
		Encoding:   encodingUsed,
		Separator:  string(sep),
	}

	l.log.Info("file loaded",
		utils.F("rows", meta.Rows),
		utils.F("columns", meta.Columns),
		utils.F("encoding", meta.Encoding))

	return ds, meta, nil
}

// sniffSeparator counts candidate delimiters over a fixed-size prefix and
// picks the most frequent one.
func sniffSeparator(raw []byte) rune {
	prefix := raw
	if len(prefix) > sniffPrefixBytes {
		prefix = prefix[:sniffPrefixBytes]
	}

	best := separatorCandidates[0]
	bestCount := -1
	for _, cand := range separatorCandidates {
		count := bytes.Count(prefix, []byte(string(cand)))
		if count > bestCount {
			best = cand
			bestCount = count
		}
	}
	return best
}

// decodeAndParse tries the prioritized encodings in order; the first one
// that yields both a clean decode and a clean CSV parse wins.
func (l *Loader) decodeAndParse(raw []byte, sep rune) ([][]string, string, error) {
	type attempt struct {
		name   string
		decode func([]byte) ([]byte, error)
	}

	attempts := []attempt{
		{"utf-8", func(b []byte) ([]byte, error) {
			if !utf8.Valid(b) {
				return nil, fmt.Errorf("invalid utf-8 byte sequence")
			}
			return b, nil
		}},
		{"iso-8859-1", func(b []byte) ([]byte, error) {
			return charmap.ISO8859_1.NewDecoder().Bytes(b)
		}},
		{"windows-1252", func(b []byte) ([]byte, error) {
			return charmap.Windows1252.NewDecoder().Bytes(b)
		}},
	}

	var lastErr error
	for _, a := range attempts {
		decoded, err := a.decode(raw)
		if err != nil {
			l.log.Warn("encoding attempt failed", utils.F("encoding", a.name))
			lastErr = err
			continue
		}

		records, err := parseRecords(decoded, sep)
		if err != nil {
			l.log.Warn("parse attempt failed", utils.F("encoding", a.name))
			lastErr = err
			continue
		}
		return records, a.name, nil
	}

	return nil, "", schema.NewValidationError("unable to decode file with supported encodings: %v", lastErr)
}

func parseRecords(decoded []byte, sep rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = sep
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv parse failed: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("file must contain a header row and at least one data row")
	}
	return records, nil
}

// buildDataset normalizes the parsed records: trimmed column names, a
// stripped synthetic index column if present, typed columns, and dense row
// numbering (implicit in the column-wise layout).
func buildDataset(records [][]string) (*dataset.Dataset, error) {
	header := records[0]
	rows := records[1:]

	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	width := len(names)
	cells := make([][]dataset.Value, width)
	for i := range cells {
		cells[i] = make([]dataset.Value, len(rows))
	}
	for r, row := range rows {
		for c := 0; c < width; c++ {
			if c < len(row) {
				cells[c][r] = parseCell(row[c])
			} else {
				cells[c][r] = dataset.Missing()
			}
		}
	}

	start := 0
	if width > 1 && names[0] == "" && isSyntheticIndex(cells[0]) {
		start = 1
	}

	var columns []*dataset.Column
	for c := start; c < width; c++ {
		name := names[c]
		if name == "" {
			name = fmt.Sprintf("column_%d", c)
		}
		columns = append(columns, typedColumn(name, cells[c]))
	}

	return dataset.New(columns)
}

func parseCell(field string) dataset.Value {
	trimmed := strings.TrimSpace(field)
	if missingMarkers[strings.ToLower(trimmed)] {
		return dataset.Missing()
	}
	return dataset.String(trimmed)
}

// isSyntheticIndex reports whether cells form a dense integer sequence
// starting at 0 or 1, the footprint of an exported row index.
func isSyntheticIndex(cells []dataset.Value) bool {
	if len(cells) == 0 {
		return false
	}
	first, ok := cells[0].AsFloat()
	if !ok || (first != 0 && first != 1) {
		return false
	}
	for i, v := range cells {
		f, ok := v.AsFloat()
		if !ok || f != first+float64(i) {
			return false
		}
	}
	return true
}

// typedColumn promotes a raw text column to numeric storage when every
// non-missing cell parses as a number.
func typedColumn(name string, cells []dataset.Value) *dataset.Column {
	numeric := false
	for _, v := range cells {
		if v.IsMissing() {
			continue
		}
		if _, ok := v.AsFloat(); !ok {
			numeric = false
			break
		}
		numeric = true
	}

	if !numeric {
		return &dataset.Column{Name: name, Kind: dataset.KindString, Cells: cells}
	}

	out := make([]dataset.Value, len(cells))
	for i, v := range cells {
		if v.IsMissing() {
			out[i] = dataset.Missing()
			continue
		}
		f, _ := v.AsFloat()
		out[i] = dataset.Number(f)
	}
	return &dataset.Column{Name: name, Kind: dataset.KindNumber, Cells: out}
}
