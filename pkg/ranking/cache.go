package ranking

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gilchrisn/connect-the-dots/pkg/models"
	"github.com/gilchrisn/connect-the-dots/pkg/network"
	"github.com/gilchrisn/connect-the-dots/pkg/seeds"
)

// ToCache converts rank lists to the on-disk cache record.
func ToCache(ranks map[network.NodeID]RankList) models.RankCache {
	cache := make(models.RankCache, len(ranks))
	for seed, rl := range ranks {
		cache[string(seed)] = rl.NodeIDs()
	}
	return cache
}

// FromCache rebuilds rank lists for every node of s from a cache record,
// tagging membership against s. Every seed must have an entry, every
// cached node must be in g and no node may appear twice in one list.
func FromCache(cache models.RankCache, g *network.Graph, s []network.NodeID) (map[network.NodeID]RankList, error) {
	inSeeds := seeds.Set(s)

	var errs models.ValidationErrors
	ranks := make(map[network.NodeID]RankList, len(s))
	for _, seed := range s {
		ids, ok := cache[string(seed)]
		if !ok {
			errs = append(errs, models.ValidationError{Field: "ranks", Message: "no rank list for seed", Value: string(seed)})
			continue
		}

		entries := make([]Entry, 0, len(ids))
		seen := make(map[network.NodeID]bool, len(ids))
		for _, raw := range ids {
			id := network.NodeID(raw)
			if !g.Has(id) {
				errs = append(errs, models.ValidationError{
					Field:   "ranks",
					Message: fmt.Sprintf("node in rank list of %s not in graph", seed),
					Value:   raw,
				})
				continue
			}
			if seen[id] {
				errs = append(errs, models.ValidationError{
					Field:   "ranks",
					Message: fmt.Sprintf("node repeated in rank list of %s", seed),
					Value:   raw,
				})
				continue
			}
			seen[id] = true
			entries = append(entries, Entry{Node: id, InSeeds: inSeeds[id]})
		}
		ranks[seed] = RankList{Seed: seed, Entries: entries}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return ranks, nil
}

// LoadCache reads a rank cache record from a JSON file.
func LoadCache(path string) (models.RankCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rank cache: %w", err)
	}

	var cache models.RankCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("failed to parse rank cache %s: %w", path, err)
	}
	return cache, nil
}

// SaveCache writes rank lists as a JSON cache record.
func SaveCache(path string, ranks map[network.NodeID]RankList) error {
	data, err := json.MarshalIndent(ToCache(ranks), "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode rank cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write rank cache: %w", err)
	}
	return nil
}
