package system

import (
	"sort"

	"github.com/l1jgo/objectd/internal/world"
)

// Shards holds the maps simulated by this process.
type Shards struct {
	maps map[uint32]*world.Map
	ids  []uint32
}

func NewShards() *Shards {
	return &Shards{maps: make(map[uint32]*world.Map)}
}

// Add registers m; a map id already present is replaced.
func (s *Shards) Add(m *world.Map) {
	if _, ok := s.maps[m.ID()]; !ok {
		s.ids = append(s.ids, m.ID())
		sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })
	}
	s.maps[m.ID()] = m
}

func (s *Shards) Get(id uint32) *world.Map { return s.maps[id] }

// Each calls fn for every map in id order.
func (s *Shards) Each(fn func(m *world.Map)) {
	for _, id := range s.ids {
		fn(s.maps[id])
	}
}

func (s *Shards) Count() int { return len(s.ids) }
