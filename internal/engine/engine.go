package engine

import (
	"errors"
	"slices"
)

var ErrFactionFull = errors.New("faction full")
var ErrRoomFull = errors.New("room full")
var ErrInvalidRole = errors.New("invalid role")

type Role string

const (
	RoleFactionA Role = "factionA"
	RoleFactionB Role = "factionB"
	RoleObserver Role = "observer"
)

// Scores reports whether the role belongs to a faction and can earn points.
func (r Role) Scores() bool {
	return r == RoleFactionA || r == RoleFactionB
}

type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseRunning Phase = "running"
	PhaseEnded   Phase = "ended"
)

type Tier string

const (
	TierCritical     Tier = "critical"
	TierConfidential Tier = "confidential"
	TierNormal       Tier = "normal"
)

// Points is the fixed value of capturing an item of tier t.
func (t Tier) Points() int {
	switch t {
	case TierCritical:
		return 5
	case TierConfidential:
		return 3
	default:
		return 1
	}
}

type CaptureState string

const (
	ItemFree     CaptureState = "free"
	ItemLocked   CaptureState = "locked"
	ItemCaptured CaptureState = "captured"
)

type Participant struct {
	ConnID      string
	DisplayName string
	Role        Role
	Score       int
}

type DataItem struct {
	ID    string
	X, Y  float64
	Tier  Tier
	State CaptureState
	By    string // conn id of the lock holder or capturer
}

// CaptureResult describes a successful capture.
type CaptureResult struct {
	Item   DataItem
	Role   Role
	Points int
}

type Summary struct {
	ParticipantCount int
	FactionACount    int
	FactionBCount    int
	Capacity         int
}

// State is the authoritative room state. It is not safe for concurrent use;
// the session actor is its only writer.
type State struct {
	Phase        Phase
	Remaining    int
	Participants []*Participant
	Items        map[string]*DataItem
	ItemOrder    []string
	Rules        Rules
}

// Admit adds connID with the requested role. Observers are always admitted.
// Faction joins need a free slot on the requested side.
func (s *State) Admit(connID, name string, role Role) (Role, error) {
	if p := s.Find(connID); p != nil {
		return p.Role, nil
	}

	switch role {
	case RoleObserver:
	case RoleFactionA, RoleFactionB:
		if s.Count(role) >= s.Rules.Capacity {
			return "", ErrFactionFull
		}
		if s.Players() >= 2*s.Rules.Capacity {
			return "", ErrRoomFull
		}
	default:
		return "", ErrInvalidRole
	}

	s.Participants = append(s.Participants, &Participant{ConnID: connID, DisplayName: name, Role: role})
	return role, nil
}

// Remove drops connID from the roster. The bool is false if it was not present.
func (s *State) Remove(connID string) (Participant, bool) {
	i := slices.IndexFunc(s.Participants, func(p *Participant) bool { return p.ConnID == connID })
	if i < 0 {
		return Participant{}, false
	}
	p := *s.Participants[i]
	s.Participants = slices.Delete(s.Participants, i, i+1)
	return p, true
}

func (s *State) Find(connID string) *Participant {
	for _, p := range s.Participants {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// Count returns how many participants hold role.
func (s *State) Count(role Role) int {
	n := 0
	for _, p := range s.Participants {
		if p.Role == role {
			n++
		}
	}
	return n
}

// Players is the number of faction members, observers excluded.
func (s *State) Players() int {
	return s.Count(RoleFactionA) + s.Count(RoleFactionB)
}

// ReadyToStart is true when both factions are at capacity and no match is live.
func (s *State) ReadyToStart() bool {
	return s.Phase == PhaseWaiting &&
		s.Count(RoleFactionA) == s.Rules.Capacity &&
		s.Count(RoleFactionB) == s.Rules.Capacity
}

// StartMatch resets scores and items and enters Running. It only leaves
// Waiting; from any other phase it returns false without touching anything.
func (s *State) StartMatch() bool {
	if s.Phase != PhaseWaiting {
		return false
	}
	for _, p := range s.Participants {
		p.Score = 0
	}
	s.clearItems()
	s.Remaining = s.Rules.MatchDuration
	s.Phase = PhaseRunning
	return true
}

// Tick advances the countdown by one unit and returns the new remaining time.
// ok is false when the match is not running.
func (s *State) Tick() (remaining int, ok bool) {
	if s.Phase != PhaseRunning {
		return s.Remaining, false
	}
	if s.Remaining > 0 {
		s.Remaining--
	}
	return s.Remaining, true
}

func (s *State) End() {
	s.Phase = PhaseEnded
}

// Reset returns the room to Waiting for the next cycle. Scores stay visible
// until the next StartMatch.
func (s *State) Reset() {
	s.Phase = PhaseWaiting
	s.Remaining = 0
	s.clearItems()
}

// Lock reserves a free item for any participant, observers included. Anything
// else is a lost race and reports false.
func (s *State) Lock(itemID, requester string) bool {
	if s.Phase != PhaseRunning {
		return false
	}
	if s.Find(requester) == nil {
		return false
	}
	it, ok := s.Items[itemID]
	if !ok || it.State != ItemFree {
		return false
	}
	it.State = ItemLocked
	it.By = requester
	return true
}

// Capture resolves an item for any participant and credits its tier value to
// faction members only. An item locked by someone else, already captured, or
// unknown reports false.
func (s *State) Capture(itemID, requester string) (CaptureResult, bool) {
	if s.Phase != PhaseRunning {
		return CaptureResult{}, false
	}
	p := s.Find(requester)
	if p == nil {
		return CaptureResult{}, false
	}
	it, ok := s.Items[itemID]
	if !ok {
		return CaptureResult{}, false
	}
	switch it.State {
	case ItemCaptured:
		return CaptureResult{}, false
	case ItemLocked:
		if it.By != requester {
			return CaptureResult{}, false
		}
	}

	it.State = ItemCaptured
	it.By = requester
	points := it.Tier.Points()
	if p.Role.Scores() {
		p.Score += points
	}
	return CaptureResult{Item: *it, Role: p.Role, Points: points}, true
}

func (s *State) Summary() Summary {
	a, b := s.Count(RoleFactionA), s.Count(RoleFactionB)
	return Summary{
		ParticipantCount: a + b,
		FactionACount:    a,
		FactionBCount:    b,
		Capacity:         s.Rules.Capacity,
	}
}

// Roster copies the current participants in join order.
func (s *State) Roster() []Participant {
	out := make([]Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		out = append(out, *p)
	}
	return out
}

// Scoreboard is Roster without observers.
func (s *State) Scoreboard() []Participant {
	out := make([]Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		if p.Role.Scores() {
			out = append(out, *p)
		}
	}
	return out
}

func (s *State) clearItems() {
	clear(s.Items)
	s.ItemOrder = s.ItemOrder[:0]
}
