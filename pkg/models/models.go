package models

// Result is the record written at the end of a run. The first six fields
// keep the names downstream notebooks already parse.
type Result struct {
	SeedNodes        []string `json:"S_perturbed_nodes"`
	ConnectedNodes   []string `json:"F_most_connected_nodes"`
	PValue           float64  `json:"p_value"`
	KMCMProbability  float64  `json:"kmcm_probability"`
	OptimalBitstring string   `json:"optimal_bitstring"`
	NumNodes         int      `json:"number_of_nodes_in_G"`

	DScore   float64 `json:"d_score"`
	SeedNode string  `json:"seed_node"`
	RunID    string  `json:"run_id"`
}

// RankCache maps a seed node to the node ids its walk visited, in order.
// Membership bits are not stored; they are re-derived from the seed set
// the cache is loaded against.
type RankCache map[string][]string
