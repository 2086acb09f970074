package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/connect-the-dots/pkg/network"
)

// ParallelMap applies fn to every item with at most fanout calls in flight
// and returns the results in item order. A fanout of 1 or less runs fn
// inline, in order, on the calling goroutine. The first error cancels the
// remaining work and is returned.
func ParallelMap[T, R any](ctx context.Context, items []T, fanout int, fn func(context.Context, T) (R, error)) ([]R, error) {
	out := make([]R, len(items))

	if fanout <= 1 {
		for i, item := range items {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r, err := fn(ctx, item)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(fanout)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			r, err := fn(gCtx, item)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// RankAll ranks every seed with up to workers concurrent walks. Results are
// keyed by the seed each rank list echoes, so completion order is irrelevant.
func RankAll(ctx context.Context, ranker Ranker, seeds []network.NodeID, workers int, logger zerolog.Logger) (map[network.NodeID]RankList, error) {
	start := time.Now()

	lists, err := ParallelMap(ctx, seeds, workers, func(_ context.Context, seed network.NodeID) (RankList, error) {
		rl, err := ranker.Rank(seed)
		if err != nil {
			return RankList{}, fmt.Errorf("ranking from %s: %w", seed, err)
		}
		logger.Debug().
			Str("seed", string(seed)).
			Int("visited", rl.Len()).
			Msg("Walk completed")
		return rl, nil
	})
	if err != nil {
		return nil, err
	}

	ranks := make(map[network.NodeID]RankList, len(lists))
	for _, rl := range lists {
		ranks[rl.Seed] = rl
	}

	logger.Info().
		Int("seeds", len(seeds)).
		Int("workers", workers).
		Int64("runtime_ms", time.Since(start).Milliseconds()).
		Msg("Node ranking completed")

	return ranks, nil
}
