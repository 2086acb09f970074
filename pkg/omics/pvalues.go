package omics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gilchrisn/connect-the-dots/pkg/network"
)

// TwoSidedPValue converts a z-score to the probability of a standard
// normal value at least as extreme in either direction.
func TwoSidedPValue(z float64) float64 {
	if math.IsNaN(z) {
		return 1.0
	}
	return 2 * distuv.UnitNormal.Survival(math.Abs(z))
}

// PValues returns the two-sided p-value of every node in the named sample.
// An empty sample name selects the first column.
func (t *Table) PValues(sample string) (map[network.NodeID]float64, error) {
	if sample == "" {
		sample = t.Samples[0]
	}
	col, err := t.Column(sample)
	if err != nil {
		return nil, fmt.Errorf("p-values: %w", err)
	}

	pvals := make(map[network.NodeID]float64, len(col))
	for i, z := range col {
		pvals[t.Nodes[i]] = TwoSidedPValue(z)
	}
	return pvals, nil
}
