// Package registry tracks live transport connections and the role each one
// holds in the room.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/cyberwar-backend/internal/engine"
	"github.com/DoyleJ11/cyberwar-backend/internal/session"
)

const outboxSize = 64

// Hub is the part of the broadcast hub the registry drives.
type Hub interface {
	Register(connID string, outbox chan []byte)
	Unregister(connID string)
	SendTo(connID string, frame []byte)
}

// Room is the part of the session the registry drives.
type Room interface {
	Summary(ctx context.Context) (engine.Summary, error)
	Leave(connID string)
}

type Conn struct {
	ID          string
	ConnectedAt time.Time
	Role        engine.Role // empty until a join is attempted
}

type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn

	hub  Hub
	room Room
	log  *zap.Logger
}

func New(hub Hub, room Room, log *zap.Logger) *Registry {
	return &Registry{
		conns: make(map[string]*Conn),
		hub:   hub,
		room:  room,
		log:   log,
	}
}

// Connect assigns an id to a new transport connection and registers its
// outbox with the hub. The current room summary is queued on the outbox
// before registration so no broadcast can overtake it.
func (r *Registry) Connect(ctx context.Context) (Conn, <-chan []byte, error) {
	sum, err := r.room.Summary(ctx)
	if err != nil {
		return Conn{}, nil, err
	}
	frame, err := session.SummaryFrame(sum)
	if err != nil {
		return Conn{}, nil, err
	}

	c := &Conn{ID: uuid.NewString(), ConnectedAt: time.Now()}
	out := make(chan []byte, outboxSize)
	out <- frame

	r.mu.Lock()
	r.conns[c.ID] = c
	r.mu.Unlock()
	r.hub.Register(c.ID, out)

	r.log.Debug("connected", zap.String("conn", c.ID), zap.Int("conns", r.Len()))
	return *c, out, nil
}

// Bind records the role a connection asked for or was admitted with. Only
// bound connections are removed from the session on disconnect.
func (r *Registry) Bind(connID string, role engine.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[connID]; ok {
		c.Role = role
	}
}

// Unbind clears the role after an explicit leave; the connection stays.
func (r *Registry) Unbind(connID string) {
	r.Bind(connID, "")
}

// Disconnect removes the connection everywhere. Safe to call twice.
func (r *Registry) Disconnect(connID string) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	delete(r.conns, connID)
	r.mu.Unlock()
	if !ok {
		return
	}

	if c.Role != "" {
		r.room.Leave(connID)
	}
	r.hub.Unregister(connID)
	r.log.Debug("disconnected", zap.String("conn", connID), zap.Duration("age", time.Since(c.ConnectedAt)))
}

func (r *Registry) Lookup(connID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok {
		return Conn{}, false
	}
	return *c, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Send queues frame for a single connection.
func (r *Registry) Send(connID string, frame []byte) {
	r.hub.SendTo(connID, frame)
}
