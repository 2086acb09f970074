package ranking

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/connect-the-dots/pkg/network"
)

// pathGraph builds A-B-C-D with unit weights.
func pathGraph(t *testing.T) *network.Graph {
	t.Helper()
	g, err := network.NewGraph([]network.NodeID{"A", "B", "C", "D"}, []float64{
		0, 1, 0, 0,
		1, 0, 1, 0,
		0, 1, 0, 1,
		0, 0, 1, 0,
	})
	require.NoError(t, err)
	return g
}

// chainGraph builds n0-n1-...-n(size-1).
func chainGraph(t *testing.T, size int) *network.Graph {
	t.Helper()
	nodes := make([]network.NodeID, size)
	weights := make([]float64, size*size)
	for i := 0; i < size; i++ {
		nodes[i] = network.NodeID(fmt.Sprintf("n%d", i))
		if i+1 < size {
			weights[i*size+i+1] = 1
			weights[(i+1)*size+i] = 1
		}
	}
	g, err := network.NewGraph(nodes, weights)
	require.NoError(t, err)
	return g
}

// gridGraph builds a side x side lattice with varying weights.
func gridGraph(t *testing.T, side int) *network.Graph {
	t.Helper()
	n := side * side
	nodes := make([]network.NodeID, n)
	weights := make([]float64, n*n)
	link := func(u, v int, w float64) {
		weights[u*n+v] = w
		weights[v*n+u] = w
	}
	for r := 0; r < side; r++ {
		for c := 0; c < side; c++ {
			i := r*side + c
			nodes[i] = network.NodeID(fmt.Sprintf("g%02d", i))
			if c+1 < side {
				link(i, i+1, float64(1+(i%3)))
			}
			if r+1 < side {
				link(i, i+side, float64(1+(i%5))/2)
			}
		}
	}
	g, err := network.NewGraph(nodes, weights)
	require.NoError(t, err)
	return g
}

func ids(rl RankList) []string { return rl.NodeIDs() }

func bits(rl RankList) string {
	out := make([]byte, len(rl.Entries))
	for i, e := range rl.Entries {
		out[i] = '0' + e.Bit()
	}
	return string(out)
}
