package session

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/cyberwar-backend/internal/engine"
	"github.com/DoyleJ11/cyberwar-backend/pkg/types"
)

func (s *Session) join(connID, name string, role engine.Role) (engine.Role, error) {
	already := s.state.Find(connID) != nil

	fallback := "Observer"
	if role.Scores() {
		fallback = fmt.Sprintf("Agent %d", s.state.Players()+1)
	}
	name = engine.NormalizeName(name, fallback)

	assigned, err := s.state.Admit(connID, name, role)
	switch {
	case errors.Is(err, engine.ErrFactionFull):
		s.sendTo(connID, types.MsgRoleAssigned, types.RoleAssigned{Error: types.ErrFactionFull})
		return "", err
	case errors.Is(err, engine.ErrRoomFull):
		s.sendTo(connID, types.MsgRoleAssigned, types.RoleAssigned{Error: types.ErrRoomFull})
		return "", err
	case err != nil:
		s.sendTo(connID, types.MsgError, types.Error{Message: err.Error()})
		return "", err
	}

	s.sendTo(connID, types.MsgRoleAssigned, types.RoleAssigned{Role: string(assigned)})
	if already {
		return assigned, nil
	}

	s.pub.Attach(connID)
	s.log.Info("joined",
		zap.String("conn", connID),
		zap.String("name", name),
		zap.String("role", string(assigned)),
		zap.Int("players", s.state.Players()))
	s.publishRoster()

	switch {
	case s.state.Phase == engine.PhaseRunning:
		// Late joiners catch up on the countdown.
		s.sendTo(connID, types.MsgMatchStart, types.MatchStart{RemainingTime: s.state.Remaining})
	case assigned.Scores() && s.state.ReadyToStart():
		s.startMatch()
	}
	return assigned, nil
}

func (s *Session) leave(connID string) {
	p, ok := s.state.Remove(connID)
	if !ok {
		return
	}
	s.pub.Detach(connID)
	s.log.Info("left", zap.String("conn", connID), zap.String("role", string(p.Role)))
	s.publishRoster()

	if p.Role.Scores() && s.state.Players() == 0 && s.state.Phase == engine.PhaseRunning {
		s.abandon()
	}
}

// abandon stops a running match that has no faction members left.
func (s *Session) abandon() {
	s.stopTasks()
	if s.opts.EndOnAbandon {
		s.broadcast(types.MsgMatchEnd, types.MatchEnd{Participants: snapshot(s.state.Scoreboard())})
	}
	s.state.Reset()
	s.log.Info("match abandoned", zap.Uint64("match", s.match), zap.Bool("ended", s.opts.EndOnAbandon))
}

func (s *Session) startMatch() {
	if !s.state.StartMatch() {
		return
	}
	s.stopTasks()
	s.match++

	s.log.Info("match started",
		zap.Uint64("match", s.match),
		zap.Int("duration", s.state.Remaining),
		zap.Int("players", s.state.Players()))
	s.broadcast(types.MsgMatchStart, types.MatchStart{RemainingTime: s.state.Remaining})
	s.publishRoster()

	s.clock = s.every(s.state.Rules.TickInterval, clockTick{match: s.match})
	s.spawn(s.match)
}

// reset ends the intermission after a finished match.
func (s *Session) reset(match uint64) {
	if match != s.match || s.state.Phase != engine.PhaseEnded {
		s.log.Debug("stale reset dropped", zap.Uint64("match", match))
		return
	}
	s.resetter.stop()
	s.resetter = nil
	s.state.Reset()
	s.publishRoster()

	if s.state.ReadyToStart() {
		s.startMatch()
	}
}
