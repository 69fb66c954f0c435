package hub

import (
	"context"

	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

// Register hands the hub a connection's outbox. The hub owns the channel
// from here on and is the only one that closes it.
type Register struct {
	ConnID string
	Outbox chan []byte
}

type Unregister struct {
	ConnID string
}

// Attach marks a connection as a session member (participant or observer).
type Attach struct {
	ConnID string
}

type Detach struct {
	ConnID string
}

type Direct struct {
	ConnID string
	Frame  []byte
}

// SessionCast goes to session members only.
type SessionCast struct {
	Frame []byte
}

// LobbyCast goes to every registered connection.
type LobbyCast struct {
	Frame []byte
}

type GetStats struct {
	Reply chan Stats
}

type ShutdownHub struct{}

func (Register) isHubMsg()    {}
func (Unregister) isHubMsg()  {}
func (Attach) isHubMsg()      {}
func (Detach) isHubMsg()      {}
func (Direct) isHubMsg()      {}
func (SessionCast) isHubMsg() {}
func (LobbyCast) isHubMsg()   {}
func (GetStats) isHubMsg()    {}
func (ShutdownHub) isHubMsg() {}

type Stats struct {
	Connections int
	Members     int
	Dropped     int
}

type client struct {
	out    chan []byte
	member bool
}

type Hub struct {
	inbox   chan HubMsg
	clients map[string]*client
	dropped int
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 256),
		clients: make(map[string]*client),
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
	}
	go h.loop()
	return h
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Register:
				if old, ok := h.clients[msg.ConnID]; ok {
					close(old.out)
				}
				h.clients[msg.ConnID] = &client{out: msg.Outbox}

			case Unregister:
				if c, ok := h.clients[msg.ConnID]; ok {
					close(c.out)
					delete(h.clients, msg.ConnID)
				}

			case Attach:
				if c, ok := h.clients[msg.ConnID]; ok {
					c.member = true
				}

			case Detach:
				if c, ok := h.clients[msg.ConnID]; ok {
					c.member = false
				}

			case Direct:
				if c, ok := h.clients[msg.ConnID]; ok {
					h.deliver(msg.ConnID, c, msg.Frame)
				}

			case SessionCast:
				for id, c := range h.clients {
					if c.member {
						h.deliver(id, c, msg.Frame)
					}
				}

			case LobbyCast:
				for id, c := range h.clients {
					h.deliver(id, c, msg.Frame)
				}

			case GetStats:
				st := Stats{Connections: len(h.clients), Dropped: h.dropped}
				for _, c := range h.clients {
					if c.member {
						st.Members++
					}
				}
				msg.Reply <- st

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

// deliver never blocks the hub. A connection whose outbox is full is dropped;
// closing its outbox tells the transport to hang up.
func (h *Hub) deliver(id string, c *client, frame []byte) {
	select {
	case c.out <- frame:
	default:
		close(c.out)
		delete(h.clients, id)
		h.dropped++
		h.log.Warn("dropped slow connection", zap.String("conn", id))
	}
}

func (h *Hub) shutdown() {
	for id, c := range h.clients {
		close(c.out)
		delete(h.clients, id)
	}
	h.cancel()
}

func (h *Hub) post(m HubMsg) {
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Register(connID string, outbox chan []byte) {
	h.post(Register{ConnID: connID, Outbox: outbox})
}

func (h *Hub) Unregister(connID string) { h.post(Unregister{ConnID: connID}) }
func (h *Hub) Attach(connID string)     { h.post(Attach{ConnID: connID}) }
func (h *Hub) Detach(connID string)     { h.post(Detach{ConnID: connID}) }

func (h *Hub) SendTo(connID string, frame []byte) {
	h.post(Direct{ConnID: connID, Frame: frame})
}

func (h *Hub) Broadcast(frame []byte)      { h.post(SessionCast{Frame: frame}) }
func (h *Hub) BroadcastLobby(frame []byte) { h.post(LobbyCast{Frame: frame}) }

// Stats asks the loop for current counts.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.inbox <- GetStats{Reply: reply}:
	case <-h.ctx.Done():
		return Stats{}, context.Canceled
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

func (h *Hub) Shutdown() { h.post(ShutdownHub{}) }
