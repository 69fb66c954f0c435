package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/fatih/color"

	"github.com/DoyleJ11/cyberwar-backend/pkg/types"
)

var errRejected = errors.New("join rejected")

type bot struct {
	name   string
	role   string
	rng    *rand.Rand
	chance float64

	mu    sync.Mutex
	items map[string]struct{}
}

func (b *bot) color() *color.Color {
	if b.role == types.RoleFactionA {
		return aColor
	}
	return bColor
}

func (b *bot) logf(format string, args ...any) {
	b.color().Printf("[%s] %-8s %s\n", time.Now().Format("15:04:05"), b.name, fmt.Sprintf(format, args...))
}

func (b *bot) run(ctx context.Context, url string, every time.Duration) error {
	dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	conn, _, err := websocket.Dial(dctx, url, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("%s dial: %w", b.name, err)
	}
	defer conn.CloseNow()

	join := outgoing{Type: types.MsgJoin, Payload: types.JoinRequest{DisplayName: b.name, Role: b.role}}
	if err := wsjson.Write(ctx, conn, join); err != nil {
		return fmt.Errorf("%s join: %w", b.name, err)
	}

	cctx, stopClicks := context.WithCancel(ctx)
	defer stopClicks()
	go b.clicker(cctx, conn, every)

	for {
		var env types.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%s read: %w", b.name, err)
		}

		done, err := b.handle(env)
		if err != nil {
			errorColor.Printf("%s: %v\n", b.name, err)
			return nil
		}
		if done {
			conn.Close(websocket.StatusNormalClosure, "match over")
			return nil
		}
	}
}

// handle applies one server frame. done reports the end of the match.
func (b *bot) handle(env types.Envelope) (done bool, err error) {
	switch env.Type {
	case types.MsgRoleAssigned:
		ra, err := types.DecodePayload[types.RoleAssigned](env)
		if err != nil {
			return false, err
		}
		if ra.Error != "" {
			return false, fmt.Errorf("%w: %s", errRejected, ra.Error)
		}
		b.logf("=> %s", ra.Role)

	case types.MsgMatchStart:
		b.mu.Lock()
		clear(b.items)
		b.mu.Unlock()
		b.logf("match started")

	case types.MsgItemSpawned:
		it, err := types.DecodePayload[types.ItemSpawned](env)
		if err != nil {
			return false, err
		}
		b.mu.Lock()
		b.items[it.ItemID] = struct{}{}
		b.mu.Unlock()

	case types.MsgItemCaptured:
		it, err := types.DecodePayload[types.ItemCaptured](env)
		if err != nil {
			return false, err
		}
		b.mu.Lock()
		delete(b.items, it.ItemID)
		b.mu.Unlock()

	case types.MsgMatchEnd:
		end, err := types.DecodePayload[types.MatchEnd](env)
		if err != nil {
			return false, err
		}
		if b.name == "Bot_1" {
			printScores(end.Participants)
		}
		return true, nil
	}
	return false, nil
}

// clicker tries to capture a random live item every tick with probability chance.
func (b *bot) clicker(ctx context.Context, conn *websocket.Conn, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if b.rng.Float64() >= b.chance {
			continue
		}
		id, ok := b.pick()
		if !ok {
			continue
		}
		req := outgoing{Type: types.MsgCaptureItem, Payload: types.ItemRequest{ItemID: id}}
		if err := wsjson.Write(ctx, conn, req); err != nil {
			return
		}
	}
}

func (b *bot) pick() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return "", false
	}
	ids := make([]string, 0, len(b.items))
	for id := range b.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[b.rng.IntN(len(ids))], true
}

func printScores(ps []types.ParticipantSnapshot) {
	totals := map[string]int{}
	for _, p := range ps {
		totals[p.Role] += p.Score
	}
	gameColor.Printf("match over: factionA %d, factionB %d\n", totals[types.RoleFactionA], totals[types.RoleFactionB])
	for _, p := range ps {
		gameColor.Printf("  %-24s %-9s %d\n", p.DisplayName, p.Role, p.Score)
	}
}
