package omics

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/connect-the-dots/pkg/network"
)

// Table is a measurement table: one row per node, one column per sample.
// Values are z-scores for experimental and control data.
type Table struct {
	Nodes   []network.NodeID
	Samples []string
	Values  *mat.Dense // Values.At(row, col)

	rowIndex map[network.NodeID]int
	colIndex map[string]int
}

// NewTable builds a table from row labels, column labels and row-major values.
func NewTable(nodes []network.NodeID, samples []string, values []float64) (*Table, error) {
	if len(nodes) == 0 || len(samples) == 0 {
		return nil, fmt.Errorf("table needs at least one row and one column, got %dx%d", len(nodes), len(samples))
	}
	if len(values) != len(nodes)*len(samples) {
		return nil, fmt.Errorf("table has %d values, expected %d", len(values), len(nodes)*len(samples))
	}

	t := &Table{
		Nodes:    append([]network.NodeID(nil), nodes...),
		Samples:  append([]string(nil), samples...),
		Values:   mat.NewDense(len(nodes), len(samples), append([]float64(nil), values...)),
		rowIndex: make(map[network.NodeID]int, len(nodes)),
		colIndex: make(map[string]int, len(samples)),
	}
	for i, id := range t.Nodes {
		if _, dup := t.rowIndex[id]; dup {
			return nil, fmt.Errorf("duplicate row %q", id)
		}
		t.rowIndex[id] = i
	}
	for j, name := range t.Samples {
		if _, dup := t.colIndex[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		t.colIndex[name] = j
	}
	return t, nil
}

// Column returns a copy of the named sample's values in row order.
func (t *Table) Column(sample string) ([]float64, error) {
	j, ok := t.colIndex[sample]
	if !ok {
		return nil, fmt.Errorf("unknown sample %q", sample)
	}
	return mat.Col(nil, j, t.Values), nil
}

// Value returns the measurement of node in sample.
func (t *Table) Value(node network.NodeID, sample string) (float64, bool) {
	i, ok := t.rowIndex[node]
	if !ok {
		return 0, false
	}
	j, ok := t.colIndex[sample]
	if !ok {
		return 0, false
	}
	return t.Values.At(i, j), true
}

// HasRow reports whether node has a row in the table.
func (t *Table) HasRow(node network.NodeID) bool {
	_, ok := t.rowIndex[node]
	return ok
}

// ReadTableCSV loads a table whose first column is the row index and whose
// header row names the samples.
func ReadTableCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer file.Close()

	t, err := ParseTable(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse table %s: %w", path, err)
	}
	return t, nil
}

// ParseTable reads a CSV table with a row index column.
func ParseTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("table needs a header and at least one row")
	}

	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("table needs an index column and at least one sample column")
	}
	samples := make([]string, len(header)-1)
	for j, name := range header[1:] {
		samples[j] = strings.TrimSpace(name)
	}

	nodes := make([]network.NodeID, 0, len(records)-1)
	values := make([]float64, 0, (len(records)-1)*len(samples))
	for lineNum, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", lineNum+2, len(header), len(record))
		}
		nodes = append(nodes, network.NodeID(strings.TrimSpace(record[0])))
		for col, field := range record[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %d: invalid value %q: %w", lineNum+2, col+2, field, err)
			}
			values = append(values, v)
		}
	}

	return NewTable(nodes, samples, values)
}
