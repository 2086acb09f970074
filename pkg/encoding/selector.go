package encoding

import (
	"math"

	"github.com/gilchrisn/connect-the-dots/pkg/models"
)

// scoreEpsilon absorbs floating point noise when comparing d-scores.
const scoreEpsilon = 1e-9

// Winner is the selected row and what is derived from it.
type Winner struct {
	Row             Row
	PValue          float64  // 2^-d.score, unbounded above for negative scores
	KMCMProbability float64  // 2^-len(optimal bitstring)
	Nodes           []string // discovered subset F
}

// Select picks the winning row: highest d-score, then longest bitstring,
// then largest subset size, then first in table order. Rows must already be in
// a reproducible order (Score emits them sorted by seed, then k).
func Select(rows []Row, includeNotInS bool) (*Winner, error) {
	if len(rows) == 0 {
		return nil, models.Computationf("empty result table")
	}

	candidates := keepMax(rows, func(r Row) float64 { return r.DScore })
	candidates = keepMax(candidates, func(r Row) float64 { return float64(len(r.OptimalBS)) })
	candidates = keepMax(candidates, func(r Row) float64 { return float64(r.SubsetSize) })

	best := candidates[0]
	return &Winner{
		Row:             best,
		PValue:          math.Pow(2, -best.DScore),
		KMCMProbability: math.Pow(2, -float64(len(best.OptimalBS))),
		Nodes:           best.Bitstring.Nodes(includeNotInS),
	}, nil
}

// keepMax returns the rows whose key equals the maximum key, in input order.
func keepMax(rows []Row, key func(Row) float64) []Row {
	top := math.Inf(-1)
	for _, r := range rows {
		if k := key(r); k > top {
			top = k
		}
	}

	kept := make([]Row, 0, len(rows))
	for _, r := range rows {
		if math.Abs(key(r)-top) <= scoreEpsilon {
			kept = append(kept, r)
		}
	}
	return kept
}
