// Command simbot fills the open faction slots of a running server with bots
// that capture random falling items until the match ends.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/cyberwar-backend/pkg/types"
)

var (
	serverURL = flag.String("url", "ws://localhost:3000/ws", "Server websocket URL")
	interval  = flag.Duration("interval", 2*time.Second, "Time between capture attempts")
	chance    = flag.Float64("p", 0.5, "Probability of attempting a capture each interval")
	stagger   = flag.Duration("stagger", 300*time.Millisecond, "Delay between bot joins")
	maxBots   = flag.Int("max", 0, "Upper bound on bots started (0 fills every open slot)")
)

var (
	infoColor  = color.New(color.FgWhite)
	aColor     = color.New(color.FgCyan)
	bColor     = color.New(color.FgMagenta)
	gameColor  = color.New(color.FgYellow, color.Bold)
	errorColor = color.New(color.FgRed, color.Bold)
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx); err != nil {
		errorColor.Fprintln(os.Stderr, "simbot:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	sum, err := readSummary(ctx, *serverURL)
	if err != nil {
		return err
	}
	infoColor.Printf("room: %d/%d factionA, %d/%d factionB\n",
		sum.FactionACount, sum.Capacity, sum.FactionBCount, sum.Capacity)

	roles := openSlots(sum)
	if *maxBots > 0 && len(roles) > *maxBots {
		roles = roles[:*maxBots]
	}
	if len(roles) == 0 {
		infoColor.Println("no open slots")
		return nil
	}
	infoColor.Printf("starting %d bots\n", len(roles))

	g, gctx := errgroup.WithContext(ctx)
	for i, role := range roles {
		b := &bot{
			name:   fmt.Sprintf("Bot_%d", i+1),
			role:   role,
			rng:    rand.New(rand.NewPCG(rand.Uint64(), uint64(i))),
			items:  map[string]struct{}{},
			chance: *chance,
		}
		g.Go(func() error { return b.run(gctx, *serverURL, *interval) })

		select {
		case <-gctx.Done():
			return g.Wait()
		case <-time.After(*stagger):
		}
	}
	return g.Wait()
}

// readSummary reads the room summary every new connection receives first.
func readSummary(ctx context.Context, url string) (types.RoomSummary, error) {
	dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dctx, url, nil)
	if err != nil {
		return types.RoomSummary{}, fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "summary read")

	for {
		var env types.Envelope
		if err := wsjson.Read(dctx, conn, &env); err != nil {
			return types.RoomSummary{}, fmt.Errorf("read summary: %w", err)
		}
		if env.Type == types.MsgRoomSummary {
			return types.DecodePayload[types.RoomSummary](env)
		}
	}
}

func openSlots(sum types.RoomSummary) []string {
	var roles []string
	for range max(0, sum.Capacity-sum.FactionACount) {
		roles = append(roles, types.RoleFactionA)
	}
	for range max(0, sum.Capacity-sum.FactionBCount) {
		roles = append(roles, types.RoleFactionB)
	}
	return roles
}

// outgoing mirrors types.Envelope with an unencoded payload for wsjson.
type outgoing struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}
