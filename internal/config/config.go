// Package config loads server settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/cyberwar-backend/internal/engine"
)

type AbandonPolicy string

const (
	// AbandonSilent stops the match without a final snapshot.
	AbandonSilent AbandonPolicy = "silent"
	// AbandonEnd emits match-end before resetting.
	AbandonEnd AbandonPolicy = "end"
)

type Config struct {
	ListenAddr     string
	RoomID         string
	OriginPatterns []string

	Capacity      int
	MatchDuration int
	TickInterval  time.Duration
	SpawnDelayMin time.Duration
	SpawnDelayMax time.Duration
	RestartDelay  time.Duration
	AbandonPolicy AbandonPolicy
	SpawnSeed     uint64

	RateLimit float64
	RateBurst int

	LogLevel  string
	LogFormat string
}

func Default() Config {
	r := engine.DefaultRules()
	return Config{
		ListenAddr:    ":3000",
		RoomID:        "5123",
		Capacity:      r.Capacity,
		MatchDuration: r.MatchDuration,
		TickInterval:  r.TickInterval,
		SpawnDelayMin: r.SpawnDelayMin,
		SpawnDelayMax: r.SpawnDelayMax,
		RestartDelay:  r.RestartDelay,
		AbandonPolicy: AbandonSilent,
		RateLimit:     20,
		RateBurst:     10,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// Load reads .env (if present) and the process environment on top of Default.
// Every invalid variable is reported, not just the first.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup. Split out from Load for tests.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	p := parser{lookup: lookup}

	p.strVar("LISTEN_ADDR", &c.ListenAddr)
	p.strVar("ROOM_ID", &c.RoomID)
	p.listVar("ORIGIN_PATTERNS", &c.OriginPatterns)
	p.intVar("FACTION_CAPACITY", &c.Capacity)
	p.intVar("MATCH_DURATION", &c.MatchDuration)
	p.durationVar("TICK_INTERVAL", &c.TickInterval)
	p.durationVar("SPAWN_DELAY_MIN", &c.SpawnDelayMin)
	p.durationVar("SPAWN_DELAY_MAX", &c.SpawnDelayMax)
	p.durationVar("RESTART_DELAY", &c.RestartDelay)
	p.uintVar("SPAWN_SEED", &c.SpawnSeed)
	p.floatVar("RATE_LIMIT", &c.RateLimit)
	p.intVar("RATE_BURST", &c.RateBurst)
	p.strVar("LOG_LEVEL", &c.LogLevel)
	p.strVar("LOG_FORMAT", &c.LogFormat)

	var policy string
	if p.strVar("ABANDON_POLICY", &policy) {
		c.AbandonPolicy = AbandonPolicy(strings.ToLower(policy))
	}

	return c, multierr.Append(p.err, c.Validate())
}

func (c Config) Validate() error {
	var err error
	if c.RoomID == "" {
		err = multierr.Append(err, errors.New("ROOM_ID must not be empty"))
	}
	if c.Capacity < 1 {
		err = multierr.Append(err, fmt.Errorf("FACTION_CAPACITY must be positive, got %d", c.Capacity))
	}
	if c.MatchDuration < 1 {
		err = multierr.Append(err, fmt.Errorf("MATCH_DURATION must be positive, got %d", c.MatchDuration))
	}
	if c.TickInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval))
	}
	if c.SpawnDelayMin <= 0 || c.SpawnDelayMax < c.SpawnDelayMin {
		err = multierr.Append(err, fmt.Errorf("spawn delay range [%s, %s] is invalid", c.SpawnDelayMin, c.SpawnDelayMax))
	}
	if c.RestartDelay < 0 {
		err = multierr.Append(err, fmt.Errorf("RESTART_DELAY must not be negative, got %s", c.RestartDelay))
	}
	if c.AbandonPolicy != AbandonSilent && c.AbandonPolicy != AbandonEnd {
		err = multierr.Append(err, fmt.Errorf("ABANDON_POLICY must be %q or %q, got %q", AbandonSilent, AbandonEnd, c.AbandonPolicy))
	}
	if c.RateLimit <= 0 || c.RateBurst < 1 {
		err = multierr.Append(err, fmt.Errorf("rate limit %v/s burst %d is invalid", c.RateLimit, c.RateBurst))
	}
	return err
}

// Rules projects the game settings onto the engine defaults.
func (c Config) Rules() engine.Rules {
	r := engine.DefaultRules()
	r.Capacity = c.Capacity
	r.MatchDuration = c.MatchDuration
	r.TickInterval = c.TickInterval
	r.SpawnDelayMin = c.SpawnDelayMin
	r.SpawnDelayMax = c.SpawnDelayMax
	r.RestartDelay = c.RestartDelay
	return r
}

type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) strVar(key string, dst *string) bool {
	v, ok := p.get(key)
	if ok {
		*dst = v
	}
	return ok
}

func (p *parser) listVar(key string, dst *[]string) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*dst = append(*dst, s)
		}
	}
}

func (p *parser) intVar(key string, dst *int) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.err = multierr.Append(p.err, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (p *parser) uintVar(key string, dst *uint64) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.err = multierr.Append(p.err, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (p *parser) floatVar(key string, dst *float64) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.err = multierr.Append(p.err, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = f
}

func (p *parser) durationVar(key string, dst *time.Duration) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.err = multierr.Append(p.err, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}
