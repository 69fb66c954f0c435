package session

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/cyberwar-backend/internal/engine"
	"github.com/DoyleJ11/cyberwar-backend/pkg/types"
)

// tick is one MatchClock beat. Beats armed for an earlier match, or arriving
// after the match left Running, are dropped.
func (s *Session) tick(match uint64) {
	if match != s.match || s.state.Phase != engine.PhaseRunning {
		s.log.Debug("stale tick dropped", zap.Uint64("match", match))
		return
	}

	remaining, _ := s.state.Tick()
	s.broadcast(types.MsgTimeUpdate, types.TimeUpdate{RemainingTime: remaining})
	if remaining == 0 {
		s.finish()
	}
}

func (s *Session) finish() {
	s.stopTasks()
	s.state.End()

	board := s.state.Scoreboard()
	s.broadcast(types.MsgMatchEnd, types.MatchEnd{Participants: snapshot(board)})
	s.log.Info("match ended", zap.Uint64("match", s.match), zap.Int("participants", len(board)))

	s.resetter = s.after(s.state.Rules.RestartDelay, resetDue{match: s.match})
}
