package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqRand replays vals and counts draws.
type seqRand struct {
	vals  []float64
	draws int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.draws%len(r.vals)]
	r.draws++
	return v
}

func newRunningState(capacity int) *State {
	rules := DefaultRules()
	rules.Capacity = capacity
	s := NewState(rules)
	for i := range capacity {
		s.Admit(fmt.Sprintf("a%d", i), "A", RoleFactionA)
		s.Admit(fmt.Sprintf("b%d", i), "B", RoleFactionB)
	}
	s.StartMatch()
	return s
}

func addItem(s *State, id string, tier Tier) *DataItem {
	it := &DataItem{ID: id, Tier: tier, State: ItemFree, X: 100}
	s.Items[id] = it
	s.ItemOrder = append(s.ItemOrder, id)
	return it
}

func TestAdmit(t *testing.T) {
	cases := []struct {
		name    string
		setup   []Role
		role    Role
		wantErr error
	}{
		{name: "free faction slot", setup: []Role{RoleFactionA}, role: RoleFactionA},
		{name: "faction at capacity", setup: []Role{RoleFactionA, RoleFactionA}, role: RoleFactionA, wantErr: ErrFactionFull},
		{name: "other faction still open", setup: []Role{RoleFactionA, RoleFactionA}, role: RoleFactionB},
		{name: "observer ignores capacity", setup: []Role{RoleFactionA, RoleFactionA, RoleFactionB, RoleFactionB}, role: RoleObserver},
		{name: "unknown role", role: Role("referee"), wantErr: ErrInvalidRole},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rules := DefaultRules()
			rules.Capacity = 2
			s := NewState(rules)
			for i, r := range tc.setup {
				_, err := s.Admit(fmt.Sprintf("c%d", i), "x", r)
				require.NoError(t, err)
			}

			got, err := s.Admit("new", "n", tc.role)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				assert.Nil(t, s.Find("new"))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.role, got)
		})
	}
}

func TestAdmit_RepeatJoinKeepsFirstRole(t *testing.T) {
	s := NewState(DefaultRules())
	_, err := s.Admit("c1", "x", RoleFactionA)
	require.NoError(t, err)

	role, err := s.Admit("c1", "x", RoleFactionB)
	require.NoError(t, err)
	assert.Equal(t, RoleFactionA, role)
	assert.Equal(t, 1, s.Count(RoleFactionA))
	assert.Equal(t, 0, s.Count(RoleFactionB))
}

func TestAdmit_CapacityNeverExceeded(t *testing.T) {
	rules := DefaultRules()
	rules.Capacity = 3
	s := NewState(rules)
	r := rand.New(rand.NewPCG(1, 2))

	for i := range 200 {
		role := []Role{RoleFactionA, RoleFactionB, RoleObserver}[r.IntN(3)]
		s.Admit(fmt.Sprintf("c%d", i), "x", role)
		if i%7 == 0 && len(s.Participants) > 0 {
			s.Remove(s.Participants[r.IntN(len(s.Participants))].ConnID)
		}
		require.LessOrEqual(t, s.Count(RoleFactionA), 3)
		require.LessOrEqual(t, s.Count(RoleFactionB), 3)
	}
}

func TestReadyToStart(t *testing.T) {
	rules := DefaultRules()
	rules.Capacity = 1
	s := NewState(rules)
	s.Admit("a", "a", RoleFactionA)
	assert.False(t, s.ReadyToStart())

	s.Admit("b", "b", RoleFactionB)
	assert.True(t, s.ReadyToStart())

	require.True(t, s.StartMatch())
	assert.False(t, s.ReadyToStart(), "must not re-trigger while running")
	assert.False(t, s.StartMatch())
}

func TestStartMatch_OnlyFromWaiting(t *testing.T) {
	s := newRunningState(1)
	s.Remaining = 7
	s.End()

	assert.False(t, s.StartMatch(), "ended must reset before the next start")
	assert.Equal(t, PhaseEnded, s.Phase)
	assert.Equal(t, 7, s.Remaining)

	s.Reset()
	assert.True(t, s.StartMatch())
	assert.Equal(t, PhaseRunning, s.Phase)
}

func TestStartMatch_ResetsScoresAndItems(t *testing.T) {
	s := newRunningState(1)
	addItem(s, "i1", TierCritical)
	_, ok := s.Capture("i1", "a0")
	require.True(t, ok)
	s.End()
	s.Reset()

	require.True(t, s.StartMatch())
	assert.Zero(t, s.Find("a0").Score)
	assert.Empty(t, s.Items)
	assert.Equal(t, s.Rules.MatchDuration, s.Remaining)
}

func TestTick_StrictlyDecreasingToZero(t *testing.T) {
	s := newRunningState(1)
	s.Remaining = 3

	var got []int
	for {
		rem, ok := s.Tick()
		require.True(t, ok)
		got = append(got, rem)
		if rem == 0 {
			break
		}
	}
	assert.Equal(t, []int{2, 1, 0}, got)

	rem, ok := s.Tick()
	assert.True(t, ok)
	assert.Zero(t, rem, "floor at zero")

	s.End()
	_, ok = s.Tick()
	assert.False(t, ok)
}

func TestCaptureFreeItemCreditsTierPoints(t *testing.T) {
	cases := []struct {
		tier Tier
		want int
	}{
		{TierCritical, 5},
		{TierConfidential, 3},
		{TierNormal, 1},
	}

	for _, tc := range cases {
		t.Run(string(tc.tier), func(t *testing.T) {
			s := newRunningState(1)
			addItem(s, "i", tc.tier)

			res, ok := s.Capture("i", "b0")
			require.True(t, ok)
			assert.Equal(t, tc.want, res.Points)
			assert.Equal(t, RoleFactionB, res.Role)
			assert.Equal(t, ItemCaptured, res.Item.State)
			assert.Equal(t, tc.want, s.Find("b0").Score)
		})
	}
}

func TestCaptureIsIdempotent(t *testing.T) {
	s := newRunningState(1)
	addItem(s, "i", TierConfidential)

	_, ok := s.Capture("i", "a0")
	require.True(t, ok)

	_, ok = s.Capture("i", "a0")
	assert.False(t, ok)
	_, ok = s.Capture("i", "b0")
	assert.False(t, ok)

	assert.Equal(t, 3, s.Find("a0").Score)
	assert.Zero(t, s.Find("b0").Score)
	assert.Equal(t, "a0", s.Items["i"].By)
}

func TestLockThenCapture(t *testing.T) {
	s := newRunningState(1)
	addItem(s, "i", TierCritical)

	require.True(t, s.Lock("i", "a0"))
	assert.False(t, s.Lock("i", "b0"), "already locked")
	assert.False(t, s.Lock("i", "a0"), "lock is not re-entrant")

	_, ok := s.Capture("i", "b0")
	assert.False(t, ok, "locked by someone else")
	assert.Equal(t, ItemLocked, s.Items["i"].State)

	res, ok := s.Capture("i", "a0")
	require.True(t, ok)
	assert.Equal(t, 5, res.Points)
	assert.Equal(t, 5, s.Find("a0").Score)
	assert.Zero(t, s.Find("b0").Score)
}

func TestCaptureRejects(t *testing.T) {
	s := newRunningState(1)
	s.Admit("obs", "o", RoleObserver)
	addItem(s, "i", TierNormal)

	_, ok := s.Capture("missing", "a0")
	assert.False(t, ok, "unknown item")

	_, ok = s.Capture("i", "stranger")
	assert.False(t, ok, "not in the room")
	assert.False(t, s.Lock("i", "stranger"))

	s.End()
	_, ok = s.Capture("i", "a0")
	assert.False(t, ok, "match over")
	assert.Equal(t, ItemFree, s.Items["i"].State)
}

func TestObserverCaptureResolvesWithoutScoring(t *testing.T) {
	s := newRunningState(1)
	s.Admit("obs", "o", RoleObserver)
	addItem(s, "free", TierConfidential)
	addItem(s, "held", TierCritical)

	res, ok := s.Capture("free", "obs")
	require.True(t, ok)
	assert.Equal(t, RoleObserver, res.Role)
	assert.Equal(t, 3, res.Points)
	assert.Equal(t, ItemCaptured, s.Items["free"].State)
	assert.Equal(t, "obs", s.Items["free"].By)
	assert.Zero(t, s.Find("obs").Score)

	require.True(t, s.Lock("held", "obs"))
	_, ok = s.Capture("held", "a0")
	assert.False(t, ok, "locked by the observer")
	_, ok = s.Capture("held", "obs")
	assert.True(t, ok)
	assert.Zero(t, s.Find("obs").Score)
	assert.Zero(t, s.Find("a0").Score)
}

func TestPickTierBands(t *testing.T) {
	cases := []struct {
		u    float64
		want Tier
	}{
		{0, TierCritical},
		{0.1499, TierCritical},
		{0.15, TierConfidential},
		{0.4999, TierConfidential},
		{0.5, TierNormal},
		{0.9999, TierNormal},
	}
	for _, tc := range cases {
		if got := PickTier(tc.u); got != tc.want {
			t.Fatalf("PickTier(%v): got %s, want %s", tc.u, got, tc.want)
		}
	}
}

func TestPickTierDistribution(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 7))
	const n = 10000
	counts := map[Tier]int{}
	for range n {
		counts[PickTier(r.Float64())]++
	}

	want := map[Tier]float64{TierCritical: 0.15, TierConfidential: 0.35, TierNormal: 0.50}
	for tier, p := range want {
		got := float64(counts[tier]) / n
		assert.InDelta(t, p, got, 0.02, "tier %s", tier)
	}
}

func TestBatchSize(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 5: 1, 6: 2, 10: 2, 15: 3, 16: 4, 20: 4, 100: 4}
	for players, want := range cases {
		assert.Equal(t, want, BatchSize(players), "players=%d", players)
	}
}

func TestPlaceX_RespectsSeparation(t *testing.T) {
	rules := DefaultRules()
	// first draw lands at 400 (blocked), second at 20 (clear)
	r := &seqRand{vals: []float64{380.0 / 760.0, 0}}

	x := PlaceX(r, rules, []float64{400})
	assert.Equal(t, 20.0, x)
	assert.Equal(t, 2, r.draws)
}

func TestPlaceX_GivesUpAfterTenAttempts(t *testing.T) {
	rules := DefaultRules()
	r := &seqRand{vals: []float64{0.5}}

	x := PlaceX(r, rules, []float64{400})
	assert.Equal(t, 10, r.draws)
	assert.InDelta(t, 400.0, x, 1e-9, "last draw is accepted")
}

func TestSpawnBatch(t *testing.T) {
	s := newRunningState(5)
	r := rand.New(rand.NewPCG(3, 4))
	n := 0
	next := func() string { n++; return fmt.Sprintf("item-%d", n) }

	batch := s.SpawnBatch(r, next)
	require.Len(t, batch, 2)
	for _, it := range batch {
		assert.GreaterOrEqual(t, it.X, s.Rules.FieldMinX)
		assert.LessOrEqual(t, it.X, s.Rules.FieldMaxX)
		assert.Equal(t, s.Rules.SpawnY, it.Y)
		assert.Equal(t, ItemFree, it.State)
	}
	assert.Len(t, s.Items, 2)

	s.End()
	assert.Nil(t, s.SpawnBatch(r, next))
}

func TestSpawnBatch_NoPlayersNoItems(t *testing.T) {
	s := newRunningState(1)
	s.Remove("a0")
	s.Remove("b0")
	s.Admit("obs", "o", RoleObserver)

	assert.Nil(t, s.SpawnBatch(rand.New(rand.NewPCG(1, 1)), func() string { return "x" }))
}

func TestRecentFreeSkipsResolved(t *testing.T) {
	s := newRunningState(1)
	for i := range 12 {
		it := addItem(s, fmt.Sprintf("i%d", i), TierNormal)
		it.X = float64(i)
	}
	s.Lock("i11", "a0")
	s.Capture("i10", "b0")

	got := s.RecentFree(8)
	assert.Equal(t, []float64{9, 8, 7, 6, 5, 4, 3, 2}, got)
}

func TestSpawnDelayWithinRange(t *testing.T) {
	rules := DefaultRules()
	r := rand.New(rand.NewPCG(9, 9))
	for range 1000 {
		d := SpawnDelay(r, rules)
		require.GreaterOrEqual(t, d, rules.SpawnDelayMin)
		require.Less(t, d, rules.SpawnDelayMax)
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  Neo  ", "Neo"},
		{"", "Observer"},
		{"\t\n", "Observer"},
		{"tri\x00nity", "trinity"},
		{"é", "é"},
		{"abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnopqrstuvwx"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeName(tc.in, "Observer"), "in=%q", tc.in)
	}
}

func TestTierPointsAreTheOnlyScoreSteps(t *testing.T) {
	allowed := map[int]bool{1: true, 3: true, 5: true}
	for _, b := range TierBands {
		if !allowed[b.Tier.Points()] {
			t.Fatalf("tier %s awards %d", b.Tier, b.Tier.Points())
		}
	}
	assert.Equal(t, 1.0, TierBands[len(TierBands)-1].Upper)
}
