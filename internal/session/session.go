package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/DoyleJ11/cyberwar-backend/internal/engine"
)

var ErrClosed = errors.New("session closed")

// Publisher delivers encoded frames. The hub implements it; every call is
// fire-and-forget and must not block the session for long.
type Publisher interface {
	Attach(connID string)
	Detach(connID string)
	SendTo(connID string, frame []byte)
	Broadcast(frame []byte)
	BroadcastLobby(frame []byte)
}

type Msg interface{ isSessionMsg() }

type Join struct {
	ConnID      string
	DisplayName string
	Role        engine.Role
	Reply       chan JoinResult // optional
}

type JoinResult struct {
	Role engine.Role
	Err  error
}

type Leave struct{ ConnID string }

type Lock struct{ ConnID, ItemID string }

type Capture struct{ ConnID, ItemID string }

type GetSummary struct {
	Reply chan engine.Summary
}

// GetState reflects internal state without data races.
type GetState struct {
	Reply chan View
}

type Shutdown struct{}

// Scheduled deliveries carry the match number they were armed for so a fire
// that outlives its match can be recognised and dropped.
type clockTick struct{ match uint64 }
type spawnDue struct{ match uint64 }
type resetDue struct{ match uint64 }

func (Join) isSessionMsg()       {}
func (Leave) isSessionMsg()      {}
func (Lock) isSessionMsg()       {}
func (Capture) isSessionMsg()    {}
func (GetSummary) isSessionMsg() {}
func (GetState) isSessionMsg()   {}
func (Shutdown) isSessionMsg()   {}
func (clockTick) isSessionMsg()  {}
func (spawnDue) isSessionMsg()   {}
func (resetDue) isSessionMsg()   {}

type View struct {
	Phase      engine.Phase
	Remaining  int
	Match      uint64
	Capacity   int
	Roster     []engine.Participant
	Items      []engine.DataItem
	ClockArmed bool
	SpawnArmed bool
	ResetArmed bool
}

type Options struct {
	Rules engine.Rules
	// EndOnAbandon emits match-end when the last faction member leaves a
	// running match. Otherwise the match is dropped silently.
	EndOnAbandon bool
	// Seed fixes the spawn random source; zero picks a random seed.
	Seed uint64
	Log  *zap.Logger
}

// Session is the single writer of one room's state. Every operation is a
// message processed in arrival order by loop.
type Session struct {
	inbox chan Msg
	state *engine.State
	pub   Publisher
	opts  Options
	log   *zap.Logger
	rng   *rand.Rand

	match    uint64
	nextItem uint64
	clock    *task
	spawner  *task
	resetter *task

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, pub Publisher, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	s := &Session{
		inbox:  make(chan Msg, 256),
		state:  engine.NewState(opts.Rules),
		pub:    pub,
		opts:   opts,
		log:    log,
		rng:    rand.New(rand.NewPCG(seed, seed>>1|1)),
		ctx:    ctx,
		cancel: cancel,
	}
	go s.loop()
	return s
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.stopTasks()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				role, err := s.join(msg.ConnID, msg.DisplayName, msg.Role)
				if msg.Reply != nil {
					msg.Reply <- JoinResult{Role: role, Err: err}
				}

			case Leave:
				s.leave(msg.ConnID)

			case Lock:
				s.lock(msg.ItemID, msg.ConnID)

			case Capture:
				s.capture(msg.ItemID, msg.ConnID)

			case clockTick:
				s.tick(msg.match)

			case spawnDue:
				s.spawn(msg.match)

			case resetDue:
				s.reset(msg.match)

			case GetSummary:
				msg.Reply <- s.state.Summary()

			case GetState:
				msg.Reply <- s.view()

			case Shutdown:
				s.stopTasks()
				s.cancel()
				return
			}
		}
	}
}

func (s *Session) view() View {
	v := View{
		Phase:      s.state.Phase,
		Remaining:  s.state.Remaining,
		Match:      s.match,
		Capacity:   s.state.Rules.Capacity,
		Roster:     s.state.Roster(),
		Items:      make([]engine.DataItem, 0, len(s.state.ItemOrder)),
		ClockArmed: s.clock != nil,
		SpawnArmed: s.spawner != nil,
		ResetArmed: s.resetter != nil,
	}
	for _, id := range s.state.ItemOrder {
		v.Items = append(v.Items, *s.state.Items[id])
	}
	return v
}

func (s *Session) nextItemID() string {
	s.nextItem++
	return fmt.Sprintf("item-%d", s.nextItem)
}

// Expose the inbox so tests or the transport can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) post(m Msg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-s.ctx.Done():
		return ErrClosed
	}
}

// Join asks for a slot and waits for the verdict.
func (s *Session) Join(ctx context.Context, connID, name string, role engine.Role) (engine.Role, error) {
	reply := make(chan JoinResult, 1)
	if err := s.post(Join{ConnID: connID, DisplayName: name, Role: role, Reply: reply}); err != nil {
		return "", err
	}
	select {
	case r := <-reply:
		return r.Role, r.Err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.ctx.Done():
		return "", ErrClosed
	}
}

func (s *Session) Leave(connID string) { _ = s.post(Leave{ConnID: connID}) }

func (s *Session) Lock(connID, itemID string) {
	_ = s.post(Lock{ConnID: connID, ItemID: itemID})
}

func (s *Session) Capture(connID, itemID string) {
	_ = s.post(Capture{ConnID: connID, ItemID: itemID})
}

func (s *Session) Summary(ctx context.Context) (engine.Summary, error) {
	reply := make(chan engine.Summary, 1)
	if err := s.post(GetSummary{Reply: reply}); err != nil {
		return engine.Summary{}, err
	}
	select {
	case sum := <-reply:
		return sum, nil
	case <-ctx.Done():
		return engine.Summary{}, ctx.Err()
	case <-s.ctx.Done():
		return engine.Summary{}, ErrClosed
	}
}

func (s *Session) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.post(GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-s.ctx.Done():
		return View{}, ErrClosed
	}
}

func (s *Session) Shutdown() { _ = s.post(Shutdown{}) }
