package session

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/cyberwar-backend/internal/engine"
	"github.com/DoyleJ11/cyberwar-backend/pkg/types"
)

func (s *Session) encode(t string, payload any) []byte {
	b, err := types.Encode(t, payload)
	if err != nil {
		s.log.Error("encode frame", zap.String("type", t), zap.Error(err))
		return nil
	}
	return b
}

func (s *Session) broadcast(t string, payload any) {
	if b := s.encode(t, payload); b != nil {
		s.pub.Broadcast(b)
	}
}

func (s *Session) sendTo(connID, t string, payload any) {
	if b := s.encode(t, payload); b != nil {
		s.pub.SendTo(connID, b)
	}
}

// publishRoster sends the scoreboard to the session and the occupancy
// summary to every connection.
func (s *Session) publishRoster() {
	s.broadcast(types.MsgParticipantsUpdate, snapshot(s.state.Scoreboard()))
	if b := s.encode(types.MsgRoomSummary, summary(s.state.Summary())); b != nil {
		s.pub.BroadcastLobby(b)
	}
}

func snapshot(ps []engine.Participant) []types.ParticipantSnapshot {
	out := make([]types.ParticipantSnapshot, 0, len(ps))
	for _, p := range ps {
		out = append(out, types.ParticipantSnapshot{
			ID:          p.ConnID,
			DisplayName: p.DisplayName,
			Role:        string(p.Role),
			Score:       p.Score,
		})
	}
	return out
}

func summary(sum engine.Summary) types.RoomSummary {
	return types.RoomSummary{
		ParticipantCount: sum.ParticipantCount,
		FactionACount:    sum.FactionACount,
		FactionBCount:    sum.FactionBCount,
		Capacity:         sum.Capacity,
	}
}

// SummaryFrame encodes sum as a room-summary frame for a single connection.
func SummaryFrame(sum engine.Summary) ([]byte, error) {
	return types.Encode(types.MsgRoomSummary, summary(sum))
}

func spawned(it engine.DataItem) types.ItemSpawned {
	return types.ItemSpawned{ItemID: it.ID, X: it.X, Y: it.Y, Tier: string(it.Tier)}
}

func captured(res engine.CaptureResult) types.ItemCaptured {
	return types.ItemCaptured{
		ItemID:         res.Item.ID,
		X:              res.Item.X,
		Y:              res.Item.Y,
		Tier:           string(res.Item.Tier),
		CapturedByRole: string(res.Role),
		Points:         res.Points,
	}
}
