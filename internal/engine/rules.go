package engine

import "time"

// Rules are the tunables of one room. Times are wall-clock durations; the
// countdown itself is counted in ticks of TickInterval.
type Rules struct {
	Capacity      int // per faction
	MatchDuration int // ticks
	TickInterval  time.Duration

	SpawnDelayMin time.Duration
	SpawnDelayMax time.Duration
	RestartDelay  time.Duration

	FieldMinX float64
	FieldMaxX float64
	SpawnY    float64 // above the visible field

	MinSeparation     float64
	RecentWindow      int
	PlacementAttempts int
}

func DefaultRules() Rules {
	return Rules{
		Capacity:      5,
		MatchDuration: 90,
		TickInterval:  time.Second,

		SpawnDelayMin: 700 * time.Millisecond,
		SpawnDelayMax: 1300 * time.Millisecond,
		RestartDelay:  10 * time.Second,

		FieldMinX: 20,
		FieldMaxX: 780,
		SpawnY:    -30,

		MinSeparation:     80,
		RecentWindow:      8,
		PlacementAttempts: 10,
	}
}

// TierBands are cumulative upper bounds over [0,1).
var TierBands = []struct {
	Tier  Tier
	Upper float64
}{
	{Tier: TierCritical, Upper: 0.15},
	{Tier: TierConfidential, Upper: 0.50},
	{Tier: TierNormal, Upper: 1.0},
}

const (
	playersPerSpawn = 5
	maxBatch        = 4
)
