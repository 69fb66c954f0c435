package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/cyberwar-backend/internal/engine"
	"github.com/DoyleJ11/cyberwar-backend/internal/hub"
	"github.com/DoyleJ11/cyberwar-backend/internal/session"
)

// Viewer reads the room's current state.
type Viewer interface {
	View(ctx context.Context) (session.View, error)
}

type roomInfo struct {
	RoomID           string `json:"roomId"`
	Phase            string `json:"phase"`
	RemainingTime    int    `json:"remainingTime"`
	ParticipantCount int    `json:"participantCount"`
	FactionACount    int    `json:"factionACount"`
	FactionBCount    int    `json:"factionBCount"`
	ObserverCount    int    `json:"observerCount"`
	Capacity         int    `json:"capacity"`
	Connections      int    `json:"connections"`
}

// RoomInfo reports occupancy and phase for lobby pages and load balancers.
func RoomInfo(roomID string, room Viewer, conns func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		v, err := room.View(ctx)
		if err != nil {
			http.Error(w, "room unavailable", http.StatusServiceUnavailable)
			return
		}

		info := roomInfo{
			RoomID:        roomID,
			Phase:         string(v.Phase),
			RemainingTime: v.Remaining,
			Capacity:      v.Capacity,
			Connections:   conns(),
		}
		for _, p := range v.Roster {
			switch p.Role {
			case engine.RoleFactionA:
				info.FactionACount++
			case engine.RoleFactionB:
				info.FactionBCount++
			default:
				info.ObserverCount++
			}
		}
		info.ParticipantCount = info.FactionACount + info.FactionBCount

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	}
}

// StatsSource reports broadcast hub counters.
type StatsSource interface {
	Stats(ctx context.Context) (hub.Stats, error)
}

type health struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Members     int    `json:"members"`
	Dropped     int    `json:"dropped"`
}

// Healthz answers 200 while the hub loop is alive.
func Healthz(src StatsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()

		st, err := src.Stats(ctx)
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(health{
			Status:      "ok",
			Connections: st.Connections,
			Members:     st.Members,
			Dropped:     st.Dropped,
		})
	}
}
