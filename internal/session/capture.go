package session

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/cyberwar-backend/pkg/types"
)

// Lost races are not errors: the losing request is dropped without a reply.

func (s *Session) lock(itemID, connID string) {
	if !s.state.Lock(itemID, connID) {
		s.log.Debug("lock dropped", zap.String("item", itemID), zap.String("conn", connID))
		return
	}
	s.broadcast(types.MsgItemLocked, types.ItemLocked{ItemID: itemID})
}

func (s *Session) capture(itemID, connID string) {
	res, ok := s.state.Capture(itemID, connID)
	if !ok {
		s.log.Debug("capture dropped", zap.String("item", itemID), zap.String("conn", connID))
		return
	}
	s.broadcast(types.MsgItemCaptured, captured(res))
	s.publishRoster()
}
