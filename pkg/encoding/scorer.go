package encoding

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/gilchrisn/connect-the-dots/pkg/models"
	"github.com/gilchrisn/connect-the-dots/pkg/network"
)

// Row is the score of one (seed, k) prefix.
type Row struct {
	Seed       network.NodeID `json:"seed"`
	K          int            `json:"k"`
	OptimalBS  string         `json:"optimal_bs"`
	SubsetSize int            `json:"subset_size"` // size of the encoded prefix, equal to K
	Ones       int            `json:"ones"`        // seed-set members among the prefix
	NullBits   float64        `json:"null_bits"`
	ModelBits  float64        `json:"model_bits"`
	DataBits   float64        `json:"data_bits"`
	DScore     float64        `json:"d_score"`

	Bitstring Bitstring `json:"-"`
}

// Scorer computes two-part code lengths against a fixed-length null code
// for a graph of NumNodes nodes.
type Scorer struct {
	NumNodes int
	pvals    map[network.NodeID]float64
}

// NewScorer returns a scorer for a graph of numNodes nodes. pvals may be
// nil; nodes without a p-value cost one bit each.
func NewScorer(numNodes int, pvals map[network.NodeID]float64) (*Scorer, error) {
	if numNodes <= 0 {
		return nil, models.Computationf("cannot score against a graph with %d nodes", numNodes)
	}
	return &Scorer{NumNodes: numNodes, pvals: pvals}, nil
}

// Score returns one row per prefix that encodes at least one seed-set
// member, in family order then k order.
func (s *Scorer) Score(families []Family) ([]Row, error) {
	var rows []Row
	for _, f := range families {
		for _, b := range f.Prefixes {
			row, ok, err := s.ScoreBitstring(b)
			if err != nil {
				return nil, err
			}
			if ok {
				rows = append(rows, row)
			}
		}
	}
	if len(rows) == 0 {
		return nil, models.Computationf("no bitstring encodes a seed node")
	}
	return rows, nil
}

// ScoreBitstring scores a single prefix. ok is false when the prefix holds
// no seed-set member.
func (s *Scorer) ScoreBitstring(b Bitstring) (row Row, ok bool, err error) {
	m := b.Ones()
	if m == 0 {
		return Row{}, false, nil
	}
	if b.K() > s.NumNodes {
		return Row{}, false, models.Computationf("bitstring of length %d exceeds %d nodes", b.K(), s.NumNodes)
	}

	null := s.NullBits(m)
	model := s.ModelBits()
	data := s.DataBits(b)
	d := round3(null - model - data)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return Row{}, false, models.Computationf("non-finite d-score for %s k=%d", b.Seed, b.K())
	}

	return Row{
		Seed:       b.Seed,
		K:          b.K(),
		OptimalBS:  b.String(),
		SubsetSize: b.K(),
		Ones:       m,
		NullBits:   null,
		ModelBits:  model,
		DataBits:   data,
		DScore:     d,
		Bitstring:  b,
	}, true, nil
}

// NullBits is log2 C(N, m): naming an m-subset with a fixed-length code.
func (s *Scorer) NullBits(m int) float64 {
	if m <= 0 || m >= s.NumNodes {
		return 0
	}
	return combin.LogGeneralizedBinomial(float64(s.NumNodes), float64(m)) / math.Ln2
}

// ModelBits is the cost of naming the node the ranking starts from.
func (s *Scorer) ModelBits() float64 {
	return math.Log2(float64(s.NumNodes))
}

// DataBits is the cost of the bits after the first. A zero bit costs one
// bit; a one bit costs log2(1 + 2p) for a node with p-value p, which is
// one bit at p = 0.5 and falls towards zero as the evidence strengthens.
func (s *Scorer) DataBits(b Bitstring) float64 {
	bits := 0.0
	for _, e := range b.Entries[1:] {
		if !e.InSeeds {
			bits += 1
			continue
		}
		bits += s.evidenceBits(e.Node)
	}
	return bits
}

func (s *Scorer) evidenceBits(node network.NodeID) float64 {
	p, ok := s.pvals[node]
	if !ok || math.IsNaN(p) {
		return 1
	}
	p = math.Min(math.Max(p, 0), 1)
	return math.Log2(1 + 2*p)
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
