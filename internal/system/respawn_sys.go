package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/objectd/internal/core/system"
	"github.com/l1jgo/objectd/internal/world"
)

// RespawnSystem re-creates pool-mode spawns whose ledger epoch matured.
// The ledger is scanned every poll interval rather than every tick.
// Phase 3 (PostUpdate).
type RespawnSystem struct {
	shards  *Shards
	pools   *PoolManager
	clock   world.Clock
	poll    time.Duration
	elapsed time.Duration
	log     *zap.Logger
}

func NewRespawnSystem(shards *Shards, pools *PoolManager, clock world.Clock, poll time.Duration, log *zap.Logger) *RespawnSystem {
	return &RespawnSystem{shards: shards, pools: pools, clock: clock, poll: poll, log: log}
}

func (s *RespawnSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *RespawnSystem) Update(dt time.Duration) {
	s.elapsed += dt
	if s.elapsed < s.poll {
		return
	}
	s.elapsed = 0

	now := s.clock.Now()
	total := 0
	s.shards.Each(func(m *world.Map) {
		total += m.ProcessRespawns(now)
	})
	if s.pools != nil {
		total += s.pools.ProcessRespawns(now)
	}
	if total > 0 {
		s.log.Debug("spawns respawned", zap.Int("count", total))
	}
}
