package engine

import (
	"math"
	"time"
)

// Rand is the slice of math/rand/v2 the spawner needs.
type Rand interface {
	Float64() float64
}

// PickTier maps a uniform draw u in [0,1) onto TierBands.
func PickTier(u float64) Tier {
	for _, b := range TierBands {
		if u < b.Upper {
			return b.Tier
		}
	}
	return TierNormal
}

// BatchSize is ceil(players/5) clamped to [1,4].
func BatchSize(players int) int {
	n := (players + playersPerSpawn - 1) / playersPerSpawn
	return min(max(n, 1), maxBatch)
}

// PlaceX draws a horizontal spawn coordinate that keeps MinSeparation from
// every x in recent. After PlacementAttempts misses the last draw is used.
func PlaceX(r Rand, rules Rules, recent []float64) float64 {
	span := rules.FieldMaxX - rules.FieldMinX
	attempts := max(rules.PlacementAttempts, 1)

	var x float64
	for range attempts {
		x = rules.FieldMinX + r.Float64()*span
		if separated(x, recent, rules.MinSeparation) {
			return x
		}
	}
	return x
}

func separated(x float64, recent []float64, minDist float64) bool {
	for _, o := range recent {
		if math.Abs(x-o) < minDist {
			return false
		}
	}
	return true
}

// SpawnDelay draws the jittered pause before the next batch.
func SpawnDelay(r Rand, rules Rules) time.Duration {
	lo, hi := rules.SpawnDelayMin, rules.SpawnDelayMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.Float64()*float64(hi-lo))
}

// RecentFree returns the x of the last window items that are still free,
// newest first.
func (s *State) RecentFree(window int) []float64 {
	out := make([]float64, 0, window)
	for i := len(s.ItemOrder) - 1; i >= 0 && len(out) < window; i-- {
		if it := s.Items[s.ItemOrder[i]]; it != nil && it.State == ItemFree {
			out = append(out, it.X)
		}
	}
	return out
}

// SpawnBatch creates the next batch of items. Nothing spawns unless the match
// is running with at least one faction member.
func (s *State) SpawnBatch(r Rand, nextID func() string) []DataItem {
	players := s.Players()
	if s.Phase != PhaseRunning || players == 0 {
		return nil
	}

	n := BatchSize(players)
	out := make([]DataItem, 0, n)
	for range n {
		it := &DataItem{
			ID:    nextID(),
			Tier:  PickTier(r.Float64()),
			X:     PlaceX(r, s.Rules, s.RecentFree(s.Rules.RecentWindow)),
			Y:     s.Rules.SpawnY,
			State: ItemFree,
		}
		s.Items[it.ID] = it
		s.ItemOrder = append(s.ItemOrder, it.ID)
		out = append(out, *it)
	}
	return out
}
