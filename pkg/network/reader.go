package network

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ReadAdjacencyCSV loads a square adjacency matrix whose header row holds
// the node ids. A leading index column (empty first header cell, or rows
// one field wider than the header) is tolerated and dropped.
// Non-zero diagonal entries are cleared with a warning.
func ReadAdjacencyCSV(path string, logger zerolog.Logger) (*Graph, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open adjacency file: %w", err)
	}
	defer file.Close()

	g, err := ParseAdjacency(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse adjacency file %s: %w", path, err)
	}

	if cleared := g.ZeroDiagonal(); cleared > 0 {
		logger.Warn().
			Str("file", path).
			Int("self_loops", cleared).
			Msg("Adjacency diagonal was not zero, cleared")
	}

	logger.Debug().
		Str("file", path).
		Int("nodes", g.NumNodes).
		Msg("Adjacency matrix loaded")

	return g, nil
}

// ParseAdjacency reads an adjacency matrix from CSV.
func ParseAdjacency(r io.Reader) (*Graph, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty adjacency file")
	}

	header := records[0]
	rows := records[1:]

	// Drop an index column when present.
	offset := 0
	if len(header) > 0 && strings.TrimSpace(header[0]) == "" {
		offset = 1
	} else if len(rows) > 0 && len(rows[0]) == len(header)+1 {
		offset = 1
		header = append([]string{""}, header...)
	}

	labels := header[offset:]
	n := len(labels)
	if len(rows) != n {
		return nil, fmt.Errorf("adjacency must be square: %d labels, %d rows", n, len(rows))
	}

	nodes := make([]NodeID, n)
	for i, label := range labels {
		nodes[i] = NodeID(strings.TrimSpace(label))
	}

	weights := make([]float64, 0, n*n)
	for lineNum, record := range rows {
		if len(record) != n+offset {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", lineNum+2, n+offset, len(record))
		}
		for col, field := range record[offset:] {
			w, err := parseWeight(field)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %d: %w", lineNum+2, col+offset+1, err)
			}
			weights = append(weights, w)
		}
	}

	return NewGraph(nodes, weights)
}

func parseWeight(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, nil
	}
	w, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid weight %q: %w", field, err)
	}
	return w, nil
}
