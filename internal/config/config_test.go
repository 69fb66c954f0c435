package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	c, err := FromEnv(envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	r := c.Rules()
	assert.Equal(t, 5, r.Capacity)
	assert.Equal(t, 90, r.MatchDuration)
	assert.Equal(t, time.Second, r.TickInterval)
}

func TestFromEnv_Overrides(t *testing.T) {
	c, err := FromEnv(envOf(map[string]string{
		"LISTEN_ADDR":      "127.0.0.1:9000",
		"FACTION_CAPACITY": "2",
		"MATCH_DURATION":   " 30 ",
		"TICK_INTERVAL":    "250ms",
		"SPAWN_DELAY_MIN":  "100ms",
		"SPAWN_DELAY_MAX":  "200ms",
		"ABANDON_POLICY":   "END",
		"ORIGIN_PATTERNS":  "localhost:*, example.com ,",
		"SPAWN_SEED":       "42",
	}))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", c.ListenAddr)
	assert.Equal(t, 2, c.Capacity)
	assert.Equal(t, 30, c.MatchDuration)
	assert.Equal(t, 250*time.Millisecond, c.TickInterval)
	assert.Equal(t, AbandonEnd, c.AbandonPolicy)
	assert.Equal(t, []string{"localhost:*", "example.com"}, c.OriginPatterns)
	assert.Equal(t, uint64(42), c.SpawnSeed)

	r := c.Rules()
	assert.Equal(t, 100*time.Millisecond, r.SpawnDelayMin)
	assert.Equal(t, 780.0, r.FieldMaxX, "field geometry stays at engine defaults")
}

func TestFromEnv_ReportsEveryProblem(t *testing.T) {
	_, err := FromEnv(envOf(map[string]string{
		"FACTION_CAPACITY": "five",
		"TICK_INTERVAL":    "soon",
		"ABANDON_POLICY":   "maybe",
		"SPAWN_DELAY_MIN":  "2s",
		"SPAWN_DELAY_MAX":  "1s",
	}))
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 4)
	assert.Contains(t, err.Error(), "FACTION_CAPACITY")
	assert.Contains(t, err.Error(), "TICK_INTERVAL")
	assert.Contains(t, err.Error(), "ABANDON_POLICY")
}
