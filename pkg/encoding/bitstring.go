// Package encoding scores rank lists by how many bits they save when
// describing the perturbed node set, and picks the winning description.
package encoding

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gilchrisn/connect-the-dots/pkg/network"
	"github.com/gilchrisn/connect-the-dots/pkg/ranking"
)

// Bitstring is the length-k prefix of a rank list. Bit i is 1 iff the
// i-th visited node is in the seed set.
type Bitstring struct {
	Seed    network.NodeID
	Entries []ranking.Entry
}

// K returns the prefix length.
func (b Bitstring) K() int { return len(b.Entries) }

// Ones returns the number of seed-set members in the prefix.
func (b Bitstring) Ones() int {
	ones := 0
	for _, e := range b.Entries {
		if e.InSeeds {
			ones++
		}
	}
	return ones
}

// String renders the bits, e.g. "1011".
func (b Bitstring) String() string {
	var sb strings.Builder
	sb.Grow(len(b.Entries))
	for _, e := range b.Entries {
		if e.InSeeds {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Nodes returns the node ids whose bit is 1, or every node of the prefix
// when includeNotInS is set.
func (b Bitstring) Nodes(includeNotInS bool) []string {
	nodes := make([]string, 0, len(b.Entries))
	for _, e := range b.Entries {
		if e.InSeeds || includeNotInS {
			nodes = append(nodes, string(e.Node))
		}
	}
	return nodes
}

// Family holds every prefix of one seed's rank list; Prefixes[k-1] has length k.
type Family struct {
	Seed     network.NodeID
	Prefixes []Bitstring
}

// BuildFamily materialises the prefixes of rl for k = 1..len(rl). Prefixes
// share rl's backing array with capped capacity, so none can grow into
// another.
func BuildFamily(rl ranking.RankList) Family {
	f := Family{Seed: rl.Seed, Prefixes: make([]Bitstring, len(rl.Entries))}
	for k := 1; k <= len(rl.Entries); k++ {
		f.Prefixes[k-1] = Bitstring{Seed: rl.Seed, Entries: rl.Entries[:k:k]}
	}
	return f
}

// BuildFamilies builds the families of every seed, sorted by seed id so
// that downstream tie-breaking is reproducible.
func BuildFamilies(ranks map[network.NodeID]ranking.RankList, seeds []network.NodeID) ([]Family, error) {
	ordered := append([]network.NodeID(nil), seeds...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	families := make([]Family, 0, len(ordered))
	for _, seed := range ordered {
		rl, ok := ranks[seed]
		if !ok {
			return nil, fmt.Errorf("no rank list for seed %s", seed)
		}
		families = append(families, BuildFamily(rl))
	}
	return families, nil
}
