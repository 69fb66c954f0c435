package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/cyberwar-backend/internal/engine"
	"github.com/DoyleJ11/cyberwar-backend/internal/registry"
	"github.com/DoyleJ11/cyberwar-backend/internal/session"
	"github.com/DoyleJ11/cyberwar-backend/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	pingInterval = 25 * time.Second
	pingTimeout  = 10 * time.Second
	readLimit    = 4096
)

// Room is the session surface the transport forwards client requests to.
type Room interface {
	Join(ctx context.Context, connID, name string, role engine.Role) (engine.Role, error)
	Leave(connID string)
	Lock(connID, itemID string)
	Capture(connID, itemID string)
}

type Options struct {
	OriginPatterns []string
	RateLimit      float64 // requests per second per connection
	RateBurst      int
	Log            *zap.Logger
}

func Handler(reg *registry.Registry, room Room, opts Options) http.HandlerFunc {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("accept", zap.Error(err))
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(readLimit)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		c, out, err := reg.Connect(ctx)
		if err != nil {
			conn.Close(websocket.StatusTryAgainLater, "room unavailable")
			return
		}
		defer reg.Disconnect(c.ID)

		cl := &client{
			id:   c.ID,
			reg:  reg,
			room: room,
			lim:  rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
			log:  log.With(zap.String("conn", c.ID)),
		}

		// Writer goroutine. The hub closes out on unregister or when this
		// connection fell too far behind.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case frame, ok := <-out:
					if !ok {
						conn.Close(websocket.StatusGoingAway, "closing")
						return
					}
					wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
					err := conn.Write(wctx, websocket.MessageText, frame)
					wcancel()
					if err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Keepalive
		go func() {
			t := time.NewTicker(pingInterval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					pctx, pcancel := context.WithTimeout(ctx, pingTimeout)
					err := conn.Ping(pctx)
					pcancel()
					if err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if !errors.Is(err, context.Canceled) {
						cl.log.Debug("read", zap.Error(err))
					}
				}
				return
			}
			cl.handle(ctx, data)
		}
	}
}

type client struct {
	id   string
	reg  *registry.Registry
	room Room
	lim  *rate.Limiter
	log  *zap.Logger
}

func (c *client) handle(ctx context.Context, data []byte) {
	if !c.lim.Allow() {
		c.fail("rate limited")
		return
	}

	env, err := types.DecodeEnvelope(data)
	if err != nil {
		c.fail("bad json")
		return
	}

	switch env.Type {
	case types.MsgJoin:
		req, err := types.DecodePayload[types.JoinRequest](env)
		if err != nil {
			c.fail("bad json")
			return
		}
		role, ok := engine.ParseRole(req.Role)
		if !ok {
			c.fail("unknown role")
			return
		}
		// Bound before asking so a disconnect during the join still leaves.
		if cur, ok := c.reg.Lookup(c.id); ok && cur.Role == "" {
			c.reg.Bind(c.id, role)
		}
		assigned, err := c.room.Join(ctx, c.id, req.DisplayName, role)
		switch {
		case errors.Is(err, engine.ErrFactionFull), errors.Is(err, engine.ErrRoomFull), errors.Is(err, engine.ErrInvalidRole):
			// Already reported to the client as role-assigned.
			c.log.Debug("join rejected", zap.String("role", req.Role), zap.Error(err))
			if cur, ok := c.reg.Lookup(c.id); ok && cur.Role == role {
				c.reg.Unbind(c.id)
			}
		case err != nil:
			c.log.Debug("join", zap.Error(err))
		default:
			c.reg.Bind(c.id, assigned)
		}

	case types.MsgLeave:
		c.room.Leave(c.id)
		c.reg.Unbind(c.id)

	case types.MsgLockItem, types.MsgCaptureItem:
		req, err := types.DecodePayload[types.ItemRequest](env)
		if err != nil || req.ItemID == "" {
			c.fail("missing itemId")
			return
		}
		if env.Type == types.MsgLockItem {
			c.room.Lock(c.id, req.ItemID)
		} else {
			c.room.Capture(c.id, req.ItemID)
		}

	default:
		c.fail("unknown type")
	}
}

func (c *client) fail(msg string) {
	frame, err := types.Encode(types.MsgError, types.Error{Message: msg})
	if err != nil {
		return
	}
	c.reg.Send(c.id, frame)
}

var _ Room = (*session.Session)(nil)
