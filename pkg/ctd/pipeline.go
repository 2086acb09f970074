// Package ctd wires seed selection, node ranking and encoding into a
// single batch run that finds the most connected subset of perturbed nodes.
package ctd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/connect-the-dots/pkg/encoding"
	"github.com/gilchrisn/connect-the-dots/pkg/models"
	"github.com/gilchrisn/connect-the-dots/pkg/network"
	"github.com/gilchrisn/connect-the-dots/pkg/omics"
	"github.com/gilchrisn/connect-the-dots/pkg/ranking"
	"github.com/gilchrisn/connect-the-dots/pkg/seeds"
)

// Inputs names the files and seed specification of a run.
type Inputs struct {
	Experimental string // z-scores of disease samples, one column per patient
	Control      string // reference z-scores, required with Experimental
	Adjacency    string // square adjacency CSV
	SeedSpec     string // comma list or CSV path; empty derives S from Experimental
	Ranks        string // rank cache; skips ranking when set
}

// Output is everything a run produced.
type Output struct {
	Result         models.Result
	Ranks          map[network.NodeID]ranking.RankList
	Rows           []encoding.Row
	Winner         *encoding.Winner
	Seeds          *seeds.Selection
	Graph          *network.Graph
	RanksFromCache bool
	RuntimeMS      int64
}

// RankerFactory builds the ranker used for a validated graph and seed set.
type RankerFactory func(g *network.Graph, s []network.NodeID, params ranking.Params) (ranking.Ranker, error)

// Pipeline runs the full computation for one configuration.
type Pipeline struct {
	config    *Config
	logger    zerolog.Logger
	newRanker RankerFactory
}

// NewPipeline creates a pipeline; the logger is derived from config.
func NewPipeline(config *Config) *Pipeline {
	return &Pipeline{config: config, logger: config.CreateLogger(), newRanker: newWalker}
}

// WithLogger replaces the pipeline logger.
func (p *Pipeline) WithLogger(logger zerolog.Logger) *Pipeline {
	p.logger = logger
	return p
}

// WithRankerFactory replaces the biased walk with another ranker.
func (p *Pipeline) WithRankerFactory(factory RankerFactory) *Pipeline {
	p.newRanker = factory
	return p
}

func newWalker(g *network.Graph, s []network.NodeID, params ranking.Params) (ranking.Ranker, error) {
	w, err := ranking.NewWalker(g, s, params)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Run executes the pipeline. Every setup error aborts before ranking and
// any ranking failure aborts the whole run; nothing partial is returned.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Output, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With().Str("run_id", runID).Logger()

	if err := p.config.Validate(); err != nil {
		return nil, err
	}
	logger.Debug().Str("config", p.config.String()).Msg("Configuration resolved")

	// Step 1: measurements
	experimental, err := loadMeasurements(in, logger)
	if err != nil {
		return nil, err
	}

	// Step 2: network
	if in.Adjacency == "" {
		return nil, models.Configurationf("an adjacency matrix is required; network inference is not supported")
	}
	graph, err := network.ReadAdjacencyCSV(in.Adjacency, logger)
	if err != nil {
		return nil, models.WrapConfiguration(err, "adjacency")
	}
	if err := graph.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}

	// Step 3: seed set
	selection, err := seeds.Select(in.SeedSpec, experimental, p.config.SeedParams())
	if err != nil {
		return nil, err
	}
	if err := seeds.Validate(graph, selection.Nodes); err != nil {
		return nil, err
	}
	logger.Info().
		Str("mode", string(selection.Mode)).
		Strs("seeds", toStrings(selection.Nodes)).
		Msg("Selected perturbed nodes")

	// Step 4: ranks
	ranks, fromCache, err := p.rank(ctx, in, graph, selection.Nodes, logger)
	if err != nil {
		return nil, err
	}

	// Step 5: bitstrings and scores
	families, err := encoding.BuildFamilies(ranks, selection.Nodes)
	if err != nil {
		return nil, err
	}

	var pvals map[network.NodeID]float64
	if experimental != nil {
		pvals, err = experimental.PValues(p.config.Patient())
		if err != nil {
			return nil, models.WrapConfiguration(err, "scoring.patient")
		}
	}

	scorer, err := encoding.NewScorer(graph.NumNodes, pvals)
	if err != nil {
		return nil, err
	}
	rows, err := scorer.Score(families)
	if err != nil {
		return nil, err
	}

	// Step 6: winner
	winner, err := encoding.Select(rows, p.config.IncludeNotInS())
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Strs("bitstring_nodes", winner.Row.Bitstring.Nodes(true)).
		Str("bitstring", winner.Row.OptimalBS).
		Msg("Winning bitstring")

	out := &Output{
		Result: models.Result{
			SeedNodes:        toStrings(selection.Nodes),
			ConnectedNodes:   winner.Nodes,
			PValue:           winner.PValue,
			KMCMProbability:  winner.KMCMProbability,
			OptimalBitstring: winner.Row.OptimalBS,
			NumNodes:         graph.NumNodes,
			DScore:           winner.Row.DScore,
			SeedNode:         string(winner.Row.Seed),
			RunID:            runID,
		},
		Ranks:          ranks,
		Rows:           rows,
		Winner:         winner,
		Seeds:          selection,
		Graph:          graph,
		RanksFromCache: fromCache,
		RuntimeMS:      time.Since(startTime).Milliseconds(),
	}

	logger.Info().
		Strs("connected_nodes", winner.Nodes).
		Float64("d_score", winner.Row.DScore).
		Float64("p_value", winner.PValue).
		Int64("runtime_ms", out.RuntimeMS).
		Msg("Most connected subset found")

	return out, nil
}

func (p *Pipeline) rank(ctx context.Context, in Inputs, graph *network.Graph, s []network.NodeID, logger zerolog.Logger) (map[network.NodeID]ranking.RankList, bool, error) {
	if in.Ranks != "" {
		cache, err := ranking.LoadCache(in.Ranks)
		if err != nil {
			return nil, false, models.WrapConfiguration(err, "ranks")
		}
		ranks, err := ranking.FromCache(cache, graph, s)
		if err != nil {
			return nil, false, err
		}
		logger.Info().Str("file", in.Ranks).Int("seeds", len(ranks)).Msg("Loaded precomputed node ranks")
		return ranks, true, nil
	}

	ranker, err := p.newRanker(graph, s, p.config.WalkParams())
	if err != nil {
		return nil, false, err
	}
	if w, ok := ranker.(*ranking.Walker); ok {
		logger.Debug().
			Float64("miss_budget", w.Params().MissBudget).
			Msg("Ranking nodes from every seed")
	}

	ranks, err := ranking.RankAll(ctx, ranker, s, p.config.NumWorkers(), logger)
	if err != nil {
		return nil, false, err
	}
	return ranks, false, nil
}

// loadMeasurements reads the experimental table when one is given. The
// control table must then be present and cover every experimental row.
func loadMeasurements(in Inputs, logger zerolog.Logger) (*omics.Table, error) {
	if in.Experimental == "" {
		return nil, nil
	}

	experimental, err := omics.ReadTableCSV(in.Experimental)
	if err != nil {
		return nil, models.WrapConfiguration(err, "experimental data")
	}
	if in.Control == "" {
		return nil, models.Configurationf("control data must be provided with experimental data")
	}
	control, err := omics.ReadTableCSV(in.Control)
	if err != nil {
		return nil, models.WrapConfiguration(err, "control data")
	}

	var missing []string
	for _, id := range experimental.Nodes {
		if !control.HasRow(id) {
			missing = append(missing, string(id))
		}
	}
	if len(missing) > 0 {
		return nil, models.Configurationf("control data lacks %d experimental rows (first: %s)", len(missing), missing[0])
	}

	logger.Info().
		Int("nodes", len(experimental.Nodes)).
		Int("patients", len(experimental.Samples)).
		Int("controls", len(control.Samples)).
		Msg("Measurements loaded")

	return experimental, nil
}

func toStrings(ids []network.NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
