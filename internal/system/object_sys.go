package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/objectd/internal/core/system"
	"github.com/l1jgo/objectd/internal/world"
)

// ObjectSystem ticks every object of every map. Phase 2 (Update).
type ObjectSystem struct {
	shards *Shards
	log    *zap.Logger
}

func NewObjectSystem(shards *Shards, log *zap.Logger) *ObjectSystem {
	return &ObjectSystem{shards: shards, log: log}
}

func (s *ObjectSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ObjectSystem) Update(dt time.Duration) {
	diff := dt.Milliseconds()
	s.shards.Each(func(m *world.Map) {
		start := time.Now()
		m.Update(diff)
		if took := time.Since(start); took > dt {
			s.log.Warn("map tick overran",
				zap.Uint32("map_id", m.ID()),
				zap.Int("objects", m.Count()),
				zap.Duration("took", took),
			)
		}
	})
}
