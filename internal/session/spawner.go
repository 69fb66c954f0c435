package session

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/cyberwar-backend/internal/engine"
	"github.com/DoyleJ11/cyberwar-backend/pkg/types"
)

// spawn emits one batch and re-arms itself after a jittered delay while the
// match is running with faction members present. Otherwise the chain ends.
func (s *Session) spawn(match uint64) {
	if match != s.match || s.state.Phase != engine.PhaseRunning {
		s.log.Debug("stale spawn dropped", zap.Uint64("match", match))
		return
	}
	s.spawner.stop()
	s.spawner = nil

	for _, it := range s.state.SpawnBatch(s.rng, s.nextItemID) {
		s.broadcast(types.MsgItemSpawned, spawned(it))
	}

	if s.state.Players() == 0 {
		return
	}
	s.spawner = s.after(engine.SpawnDelay(s.rng, s.state.Rules), spawnDue{match: match})
}
