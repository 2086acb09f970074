package ctd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/connect-the-dots/pkg/models"
	"github.com/gilchrisn/connect-the-dots/pkg/network"
	"github.com/gilchrisn/connect-the-dots/pkg/ranking"
)

const (
	pathAdjacency = `,A,B,C,D
A,0,1,0,0
B,1,0,1,0
C,0,1,0,1
D,0,0,1,0
`
	experimentalData = `,P1
A,3.0
B,2.0
C,0.5
D,0.1
`
	controlData = `,C1,C2
A,0.1,0.2
B,-0.3,0.0
C,0.4,0.1
D,0.0,-0.2
`
)

type fixture struct {
	dir          string
	adjacency    string
	experimental string
	control      string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:          dir,
		adjacency:    filepath.Join(dir, "adj.csv"),
		experimental: filepath.Join(dir, "experimental.csv"),
		control:      filepath.Join(dir, "control.csv"),
	}
	require.NoError(t, os.WriteFile(f.adjacency, []byte(pathAdjacency), 0644))
	require.NoError(t, os.WriteFile(f.experimental, []byte(experimentalData), 0644))
	require.NoError(t, os.WriteFile(f.control, []byte(controlData), 0644))
	return f
}

func newTestPipeline(workers int) *Pipeline {
	c := NewConfig()
	c.Set("performance.num_workers", workers)
	return NewPipeline(c).WithLogger(zerolog.Nop())
}

// countingRanker wraps the walker and records how many walks were run.
type countingRanker struct {
	inner ranking.Ranker
	calls *atomic.Int64
}

func (r countingRanker) Rank(seed network.NodeID) (ranking.RankList, error) {
	r.calls.Add(1)
	return r.inner.Rank(seed)
}

func countingFactory(calls *atomic.Int64) RankerFactory {
	return func(g *network.Graph, s []network.NodeID, params ranking.Params) (ranking.Ranker, error) {
		w, err := ranking.NewWalker(g, s, params)
		if err != nil {
			return nil, err
		}
		return countingRanker{inner: w, calls: calls}, nil
	}
}

func TestPipelineWithoutEvidence(t *testing.T) {
	f := newFixture(t)

	out, err := newTestPipeline(2).Run(context.Background(), Inputs{Adjacency: f.adjacency, SeedSpec: "A,B"})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, out.Result.SeedNodes)
	assert.Equal(t, "A", out.Result.SeedNode)
	assert.Equal(t, "1", out.Result.OptimalBitstring)
	assert.Equal(t, []string{"A"}, out.Result.ConnectedNodes)
	assert.InDelta(t, 1.0, out.Result.PValue, 1e-12)
	assert.InDelta(t, 0.5, out.Result.KMCMProbability, 1e-12)
	assert.Equal(t, 4, out.Result.NumNodes)
	assert.NotEmpty(t, out.Result.RunID)
	assert.False(t, out.RanksFromCache)

	require.Len(t, out.Rows, 4)
	assert.Equal(t, -0.415, out.Rows[1].DScore)
}

func TestPipelineWithEvidence(t *testing.T) {
	f := newFixture(t)

	out, err := newTestPipeline(2).Run(context.Background(), Inputs{
		Experimental: f.experimental,
		Control:      f.control,
		Adjacency:    f.adjacency,
		SeedSpec:     "A,B",
	})
	require.NoError(t, err)

	assert.Equal(t, "B", out.Result.SeedNode)
	assert.Equal(t, "11", out.Result.OptimalBitstring)
	assert.Equal(t, []string{"B", "A"}, out.Result.ConnectedNodes)
	assert.Equal(t, 0.577, out.Result.DScore)
	assert.InDelta(t, math.Pow(2, -0.577), out.Result.PValue, 1e-12)
	assert.InDelta(t, 0.25, out.Result.KMCMProbability, 1e-12)

	scores := map[string]float64{}
	for _, r := range out.Rows {
		if r.K == 2 {
			scores[string(r.Seed)] = r.DScore
		}
	}
	assert.Equal(t, map[string]float64{"A": 0.459, "B": 0.577}, scores)
}

// writePath writes the adjacency of an unweighted path n0 - n1 - ... .
func writePath(t *testing.T, dir string, n int) string {
	t.Helper()
	var sb strings.Builder
	for j := 0; j < n; j++ {
		fmt.Fprintf(&sb, ",n%d", j)
	}
	sb.WriteString("\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "n%d", i)
		for j := 0; j < n; j++ {
			w := 0
			if i-j == 1 || j-i == 1 {
				w = 1
			}
			fmt.Fprintf(&sb, ",%d", w)
		}
		sb.WriteString("\n")
	}
	path := filepath.Join(dir, "path.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0644))
	return path
}

func TestPipelineIncludeNotInS(t *testing.T) {
	adjacency := writePath(t, t.TempDir(), 10)
	in := Inputs{Adjacency: adjacency, SeedSpec: "n0,n2"}

	out, err := newTestPipeline(1).Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "n0", out.Result.SeedNode)
	assert.Equal(t, "101", out.Result.OptimalBitstring)
	assert.Equal(t, 1.17, out.Result.DScore)
	assert.Equal(t, []string{"n0", "n2"}, out.Result.ConnectedNodes)

	p := newTestPipeline(1)
	p.config.Set("output.include_not_in_s", true)
	out, err = p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"n0", "n1", "n2"}, out.Result.ConnectedNodes)
}

func TestPipelineSeedsFromMeasurements(t *testing.T) {
	f := newFixture(t)

	p := newTestPipeline(1)
	p.config.Set("seeds.kmx", 2)
	p.config.Set("seeds.present_in_perc", 1.0)
	out, err := p.Run(context.Background(), Inputs{
		Experimental: f.experimental,
		Control:      f.control,
		Adjacency:    f.adjacency,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, out.Result.SeedNodes)
	assert.Equal(t, "11", out.Result.OptimalBitstring)
}

func TestPipelineErrors(t *testing.T) {
	f := newFixture(t)
	missing := filepath.Join(f.dir, "missing.csv")

	tests := []struct {
		name   string
		in     Inputs
		target error
	}{
		{"no adjacency", Inputs{SeedSpec: "A"}, models.ErrConfiguration},
		{"unreadable adjacency", Inputs{Adjacency: missing, SeedSpec: "A"}, models.ErrConfiguration},
		{"experimental without control", Inputs{Experimental: f.experimental, Adjacency: f.adjacency}, models.ErrConfiguration},
		{"unknown seed", Inputs{Adjacency: f.adjacency, SeedSpec: "A,Z"}, models.ErrValidation},
		{"no seeds", Inputs{Adjacency: f.adjacency}, models.ErrConfiguration},
		{"unreadable cache", Inputs{Adjacency: f.adjacency, SeedSpec: "A", Ranks: missing}, models.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int64
			p := newTestPipeline(1).WithRankerFactory(countingFactory(&calls))
			out, err := p.Run(context.Background(), tt.in)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
			assert.Zero(t, calls.Load(), "no walk may start after a setup error")
		})
	}
}

func TestPipelineRanksEverySeedOnce(t *testing.T) {
	f := newFixture(t)

	var calls atomic.Int64
	p := newTestPipeline(2).WithRankerFactory(countingFactory(&calls))
	out, err := p.Run(context.Background(), Inputs{Adjacency: f.adjacency, SeedSpec: "A,B,C,D"})
	require.NoError(t, err)
	assert.Len(t, out.Ranks, 4)
	assert.Equal(t, int64(4), calls.Load())
}

func TestPipelineControlMustCoverExperimental(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.control, []byte(",C1\nA,0.1\nB,0.2\n"), 0644))

	_, err := newTestPipeline(1).Run(context.Background(), Inputs{
		Experimental: f.experimental,
		Control:      f.control,
		Adjacency:    f.adjacency,
		SeedSpec:     "A",
	})
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestPipelineRejectsInvalidConfig(t *testing.T) {
	f := newFixture(t)

	p := newTestPipeline(1)
	p.config.Set("walk.p1", 2.0)
	_, err := p.Run(context.Background(), Inputs{Adjacency: f.adjacency, SeedSpec: "A"})
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestPipelineRankCacheRoundTrip(t *testing.T) {
	f := newFixture(t)
	in := Inputs{Experimental: f.experimental, Control: f.control, Adjacency: f.adjacency, SeedSpec: "A,B"}

	first, err := newTestPipeline(2).Run(context.Background(), in)
	require.NoError(t, err)

	cachePath := filepath.Join(f.dir, "ranks.json")
	require.NoError(t, ranking.SaveCache(cachePath, first.Ranks))

	in.Ranks = cachePath
	second, err := newTestPipeline(2).Run(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, second.RanksFromCache)
	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, first.Result.ConnectedNodes, second.Result.ConnectedNodes)
	assert.Equal(t, first.Result.PValue, second.Result.PValue)
	assert.NotEqual(t, first.Result.RunID, second.Result.RunID)
}

func TestPipelineWorkerCountDoesNotChangeResult(t *testing.T) {
	f := newFixture(t)
	in := Inputs{Experimental: f.experimental, Control: f.control, Adjacency: f.adjacency, SeedSpec: "A,B,C,D"}

	sequential, err := newTestPipeline(1).Run(context.Background(), in)
	require.NoError(t, err)
	parallel, err := newTestPipeline(4).Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, sequential.Rows, parallel.Rows)
	assert.Equal(t, sequential.Result.OptimalBitstring, parallel.Result.OptimalBitstring)
	assert.Equal(t, sequential.Result.SeedNode, parallel.Result.SeedNode)
}

func TestPipelineCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(1).Run(ctx, Inputs{Adjacency: f.adjacency, SeedSpec: "A,B"})
	assert.True(t, errors.Is(err, context.Canceled))
}
