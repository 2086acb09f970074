// Package ranking orders the nodes of a network by how cheaply a biased
// walk from a seed node reaches them.
package ranking

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/gilchrisn/connect-the-dots/pkg/models"
	"github.com/gilchrisn/connect-the-dots/pkg/network"
)

// Params controls the walk.
type Params struct {
	P1            float64 // probability mass diffused from the current node each step
	ThresholdDiff float64 // convergence threshold on probability mass
	MissBudget    float64 // consecutive non-seed visits allowed; <0 means log2(|G|)
}

// DefaultParams returns the walk parameters used by the command line tool.
func DefaultParams() Params {
	return Params{P1: 1.0, ThresholdDiff: 0.01, MissBudget: -1}
}

// Entry is one visited node and whether it belongs to the seed set.
type Entry struct {
	Node    network.NodeID `json:"node"`
	InSeeds bool           `json:"in_seeds"`
}

// Bit returns the membership bit of the entry.
func (e Entry) Bit() byte {
	if e.InSeeds {
		return 1
	}
	return 0
}

// RankList is the visitation order of a walk started at Seed. It is never
// modified after it has been produced.
type RankList struct {
	Seed    network.NodeID `json:"seed"`
	Entries []Entry        `json:"entries"`
}

// Len returns the number of visited nodes.
func (r RankList) Len() int { return len(r.Entries) }

// NodeIDs returns the visited node ids in order.
func (r RankList) NodeIDs() []string {
	ids := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		ids[i] = string(e.Node)
	}
	return ids
}

// Ranker produces the rank list of a single seed node.
type Ranker interface {
	Rank(seed network.NodeID) (RankList, error)
}

// Walker ranks nodes of a graph relative to a fixed seed set. A Walker only
// reads its graph and seed set, so one instance can serve many goroutines.
type Walker struct {
	graph     *network.Graph
	inSeeds   []bool
	seedCount int
	params    Params
}

// NewWalker prepares a walker over g for seed set s.
func NewWalker(g *network.Graph, s []network.NodeID, params Params) (*Walker, error) {
	if g == nil || g.NumNodes == 0 {
		return nil, models.Computationf("cannot rank on an empty graph")
	}
	if params.P1 < 0 || params.P1 > 1 || math.IsNaN(params.P1) {
		return nil, models.Configurationf("walk p1 must be in [0,1], got %g", params.P1)
	}
	if !(params.ThresholdDiff > 0) {
		return nil, models.Configurationf("walk threshold must be positive, got %g", params.ThresholdDiff)
	}
	if params.MissBudget < 0 {
		params.MissBudget = math.Log2(float64(g.NumNodes))
	}

	w := &Walker{
		graph:   g,
		inSeeds: make([]bool, g.NumNodes),
		params:  params,
	}
	for _, id := range s {
		i, ok := g.Index[id]
		if !ok {
			return nil, models.ValidationError{Field: "seeds", Message: "node not in graph", Value: string(id)}
		}
		if !w.inSeeds[i] {
			w.inSeeds[i] = true
			w.seedCount++
		}
	}
	return w, nil
}

// Params returns the resolved walk parameters.
func (w *Walker) Params() Params { return w.params }

// Rank walks from seed and returns the visitation order. At each step the
// walker diffuses probability mass from the current node and moves to the
// unvisited node holding the most mass, lowest index first on ties. The
// walk stops when the mass reaching unvisited nodes drops below the
// threshold, when the run of consecutive non-seed visits exceeds the miss
// budget, or when every node has been visited.
//
// It also stops as soon as every seed has been visited. This rule is not
// one of the convergence checks above: any longer prefix only appends
// zero bits, each costing one more bit, so it can never outscore the
// prefix ending at the last seed. Rank lists and the rank cache are
// correspondingly shorter.
func (w *Walker) Rank(seed network.NodeID) (RankList, error) {
	start, ok := w.graph.Index[seed]
	if !ok {
		return RankList{}, models.ValidationError{Field: "seed", Message: "node not in graph", Value: string(seed)}
	}

	n := w.graph.NumNodes
	visited := make([]bool, n)
	path := make([]bool, n)
	probs := w.graph.StateSnapshot()

	visited[start] = true
	order := []int{start}
	found := 0
	if w.inSeeds[start] {
		found++
	}
	misses := 0
	current := start

	for len(order) < n {
		if w.seedCount > 0 && found == w.seedCount {
			break
		}

		w.step(current, visited, path, probs)

		mass := 0.0
		for i, p := range probs {
			if !visited[i] {
				mass += p
			}
		}
		if mass < w.params.ThresholdDiff {
			break
		}

		for i := range probs {
			if visited[i] {
				probs[i] = -1
			}
		}
		next := floats.MaxIdx(probs)
		if visited[next] {
			return RankList{}, fmt.Errorf("walk from %s selected visited node %s", seed, w.graph.Nodes[next])
		}

		visited[next] = true
		order = append(order, next)
		current = next

		if w.inSeeds[next] {
			found++
			misses = 0
		} else {
			misses++
			if float64(misses) > w.params.MissBudget {
				break
			}
		}
	}

	entries := make([]Entry, len(order))
	for i, idx := range order {
		entries[i] = Entry{Node: w.graph.Nodes[idx], InSeeds: w.inSeeds[idx]}
	}
	return RankList{Seed: seed, Entries: entries}, nil
}

// step resets probs to the base mass and diffuses P1 from current.
func (w *Walker) step(current int, visited, path []bool, probs []float64) {
	unvisited := 0
	for _, v := range visited {
		if !v {
			unvisited++
		}
	}

	base := 0.0
	if unvisited > 0 {
		base = (1 - w.params.P1) / float64(unvisited)
	}
	for i := range probs {
		if visited[i] {
			probs[i] = 0
		} else {
			probs[i] = base
		}
	}

	path[current] = true
	w.diffuse(w.params.P1, current, visited, path, probs)
	path[current] = false
}

// diffuse hands mass from node `from` to its unvisited neighbours in
// proportion to |weight|. A node with only visited neighbours passes the
// mass on through them; nodes already on the current chain are skipped and
// shares below the threshold are dropped.
func (w *Walker) diffuse(mass float64, from int, visited, path []bool, probs []float64) {
	neighbors := w.graph.Neighbors(from)

	total := 0.0
	for _, v := range neighbors {
		if !visited[v] {
			total += math.Abs(w.graph.Weight(from, v))
		}
	}
	if total > 0 {
		for _, v := range neighbors {
			if !visited[v] {
				probs[v] += mass * math.Abs(w.graph.Weight(from, v)) / total
			}
		}
		return
	}

	for _, v := range neighbors {
		if !path[v] {
			total += math.Abs(w.graph.Weight(from, v))
		}
	}
	if total == 0 {
		return
	}

	for _, v := range neighbors {
		if path[v] {
			continue
		}
		share := mass * math.Abs(w.graph.Weight(from, v)) / total
		if share < w.params.ThresholdDiff {
			continue
		}
		path[v] = true
		w.diffuse(share, v, visited, path, probs)
		path[v] = false
	}
}
