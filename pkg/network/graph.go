package network

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/connect-the-dots/pkg/models"
)

// NodeID identifies a node of the network (a metabolite, gene, ...).
type NodeID string

// Graph is the patient network: an ordered node set, a dense symmetric
// weight matrix addressed through an id->index map, and one scalar
// accumulator per node.
type Graph struct {
	NumNodes  int
	Nodes     []NodeID       // header order of the adjacency matrix
	Index     map[NodeID]int // node id -> row/column
	Adjacency *mat.Dense     // Adjacency.At(i, j) = edge weight between i and j
	State     []float64      // per-node accumulator, starts at 0.0
	neighbors [][]int        // non-zero columns of each row, ascending
}

// NewGraph builds a graph from node ids and a row-major square weight
// matrix. The weights slice is copied.
func NewGraph(nodes []NodeID, weights []float64) (*Graph, error) {
	n := len(nodes)
	if n == 0 {
		return nil, models.Computationf("graph has no nodes")
	}
	if len(weights) != n*n {
		return nil, fmt.Errorf("adjacency has %d values, expected %d for %d nodes", len(weights), n*n, n)
	}

	g := &Graph{
		NumNodes:  n,
		Nodes:     make([]NodeID, n),
		Index:     make(map[NodeID]int, n),
		Adjacency: mat.NewDense(n, n, append([]float64(nil), weights...)),
		State:     make([]float64, n),
	}
	copy(g.Nodes, nodes)

	for i, id := range g.Nodes {
		if _, dup := g.Index[id]; dup {
			return nil, models.ValidationError{Field: "adjacency header", Message: "duplicate node", Value: string(id)}
		}
		g.Index[id] = i
	}

	g.buildNeighbors()
	return g, nil
}

func (g *Graph) buildNeighbors() {
	g.neighbors = make([][]int, g.NumNodes)
	for i := 0; i < g.NumNodes; i++ {
		for j := 0; j < g.NumNodes; j++ {
			if i != j && g.Adjacency.At(i, j) != 0 {
				g.neighbors[i] = append(g.neighbors[i], j)
			}
		}
	}
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id NodeID) bool {
	_, ok := g.Index[id]
	return ok
}

// Weight returns the edge weight between u and v, 0 when out of range.
func (g *Graph) Weight(u, v int) float64 {
	if u < 0 || u >= g.NumNodes || v < 0 || v >= g.NumNodes {
		return 0.0
	}
	return g.Adjacency.At(u, v)
}

// Neighbors returns the indices of nodes sharing a non-zero edge with node,
// in ascending index order. The returned slice must not be modified.
func (g *Graph) Neighbors(node int) []int {
	if node < 0 || node >= g.NumNodes {
		return nil
	}
	return g.neighbors[node]
}

// ZeroDiagonal clears self-loops and returns how many were non-zero.
func (g *Graph) ZeroDiagonal() int {
	cleared := 0
	for i := 0; i < g.NumNodes; i++ {
		if g.Adjacency.At(i, i) != 0 {
			g.Adjacency.Set(i, i, 0)
			cleared++
		}
	}
	return cleared
}

// Validate checks graph consistency
func (g *Graph) Validate() error {
	if g.NumNodes <= 0 {
		return models.Computationf("graph must have a positive number of nodes")
	}

	r, c := g.Adjacency.Dims()
	if r != g.NumNodes || c != g.NumNodes {
		return fmt.Errorf("adjacency is %dx%d, expected %dx%d", r, c, g.NumNodes, g.NumNodes)
	}
	if len(g.Nodes) != g.NumNodes || len(g.Index) != g.NumNodes || len(g.State) != g.NumNodes {
		return fmt.Errorf("node labels inconsistent with adjacency size %d", g.NumNodes)
	}

	var errs models.ValidationErrors
	for i, id := range g.Nodes {
		if g.Index[id] != i {
			errs = append(errs, models.ValidationError{Field: "nodes", Message: "index map out of sync", Value: string(id)})
		}
		if g.Adjacency.At(i, i) != 0 {
			errs = append(errs, models.ValidationError{Field: "adjacency", Message: "non-zero diagonal", Value: string(id)})
		}
		for j := 0; j < g.NumNodes; j++ {
			w := g.Adjacency.At(i, j)
			if math.IsNaN(w) || math.IsInf(w, 0) {
				errs = append(errs, models.ValidationError{
					Field:   "adjacency",
					Message: fmt.Sprintf("non-finite weight to %s", g.Nodes[j]),
					Value:   string(id),
				})
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// StateSnapshot returns a copy of the accumulator vector. Walks mutate
// the copy, so State itself is never written after construction.
func (g *Graph) StateSnapshot() []float64 {
	return append(make([]float64, 0, g.NumNodes), g.State...)
}
