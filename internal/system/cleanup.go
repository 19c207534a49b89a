package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/core/ecs"
	coresys "github.com/l1jgo/objectd/internal/core/system"
)

// CleanupSystem flushes the deferred runtime id destruction queue at tick
// end, after every map flushed its removals. Phase 6 (Cleanup).
type CleanupSystem struct {
	world *ecs.World
	log   *zap.Logger
}

func NewCleanupSystem(world *ecs.World, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{world: world, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	if n := s.world.Pending(); n > 0 {
		s.log.Debug("destroying object ids", zap.Int("count", n))
	}
	s.world.FlushDestroyQueue()
}
