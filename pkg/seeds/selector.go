// Package seeds derives and validates the perturbed seed set S.
package seeds

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gilchrisn/connect-the-dots/pkg/models"
	"github.com/gilchrisn/connect-the-dots/pkg/network"
	"github.com/gilchrisn/connect-the-dots/pkg/omics"
)

// Mode records how a seed set was obtained.
type Mode string

const (
	ModeMeasurements Mode = "measurements"
	ModeFile         Mode = "file"
	ModeList         Mode = "list"
)

// Params controls derivation of S from measurements. Ignored when an
// explicit seed specification is given.
type Params struct {
	TopK          int     // highest-valued nodes taken per patient
	PresentInPerc float64 // fraction of patients a node must be top-ranked in
}

// Selection is the resolved seed set.
type Selection struct {
	Mode  Mode
	Nodes []network.NodeID
}

// Select resolves the seed set. An empty spec derives S from the
// experimental table; a spec naming an existing file reads the file's last
// column; anything else is a comma-separated list.
func Select(spec string, experimental *omics.Table, params Params) (*Selection, error) {
	spec = strings.TrimSpace(spec)

	switch {
	case spec == "":
		if experimental == nil {
			return nil, models.Configurationf("no seed set given and no experimental data to derive one from")
		}
		nodes, err := FromMeasurements(experimental, params)
		if err != nil {
			return nil, err
		}
		return &Selection{Mode: ModeMeasurements, Nodes: nodes}, nil

	case isFile(spec):
		nodes, err := FromFile(spec)
		if err != nil {
			return nil, err
		}
		return &Selection{Mode: ModeFile, Nodes: nodes}, nil

	default:
		return &Selection{Mode: ModeList, Nodes: FromList(spec)}, nil
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// FromMeasurements takes the TopK highest-valued nodes of every patient
// column and keeps those that occur in at least PresentInPerc of the
// patients. Output order is first occurrence.
func FromMeasurements(t *omics.Table, params Params) ([]network.NodeID, error) {
	if params.TopK <= 0 {
		return nil, models.Configurationf("top-k must be positive, got %d", params.TopK)
	}
	if params.PresentInPerc < 0 || params.PresentInPerc > 1 {
		return nil, models.Configurationf("presence fraction must be in [0,1], got %g", params.PresentInPerc)
	}

	counts := make(map[network.NodeID]int)
	var order []network.NodeID

	for _, patient := range t.Samples {
		col, err := t.Column(patient)
		if err != nil {
			return nil, err
		}

		rows := make([]int, len(col))
		for i := range rows {
			rows[i] = i
		}
		sort.SliceStable(rows, func(a, b int) bool {
			return col[rows[a]] > col[rows[b]]
		})

		top := params.TopK
		if top > len(rows) {
			top = len(rows)
		}
		for _, r := range rows[:top] {
			id := t.Nodes[r]
			if counts[id] == 0 {
				order = append(order, id)
			}
			counts[id]++
		}
	}

	required := float64(len(t.Samples)) * params.PresentInPerc
	selected := make([]network.NodeID, 0, len(order))
	for _, id := range order {
		if float64(counts[id]) >= required {
			selected = append(selected, id)
		}
	}
	return selected, nil
}

// FromFile reads a CSV with a header row and returns the last column of
// every data row.
func FromFile(path string) ([]network.NodeID, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, models.Configurationf("seed file %s has no data rows", path)
	}

	var nodes []network.NodeID
	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		id := strings.TrimSpace(record[len(record)-1])
		if id != "" {
			nodes = append(nodes, network.NodeID(id))
		}
	}
	return dedupe(nodes), nil
}

// FromList splits a comma-separated list and trims each entry.
func FromList(spec string) []network.NodeID {
	var nodes []network.NodeID
	for _, part := range strings.Split(spec, ",") {
		if id := strings.TrimSpace(part); id != "" {
			nodes = append(nodes, network.NodeID(id))
		}
	}
	return dedupe(nodes)
}

func dedupe(nodes []network.NodeID) []network.NodeID {
	seen := make(map[network.NodeID]bool, len(nodes))
	out := nodes[:0]
	for _, id := range nodes {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Validate checks that the seed set is non-empty and that every node is
// in the graph. All unknown nodes are reported together.
func Validate(g *network.Graph, nodes []network.NodeID) error {
	if len(nodes) == 0 {
		return models.ValidationError{Field: "seeds", Message: "seed set is empty"}
	}

	var errs models.ValidationErrors
	for _, id := range nodes {
		if !g.Has(id) {
			errs = append(errs, models.ValidationError{
				Field:   "seeds",
				Message: "node not in graph",
				Value:   string(id),
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Set returns S as a membership lookup.
func Set(nodes []network.NodeID) map[network.NodeID]bool {
	s := make(map[network.NodeID]bool, len(nodes))
	for _, id := range nodes {
		s[id] = true
	}
	return s
}
