package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// PoolMember is one candidate spawn of a pool. Chance is a percentage; members
// with zero chance share the remainder equally.
type PoolMember struct {
	SpawnID uint64  `yaml:"spawn_id"`
	Chance  float32 `yaml:"chance"`
}

// Pool limits how many of its members are spawned at once.
type Pool struct {
	ID       uint32       `yaml:"id"`
	Name     string       `yaml:"name"`
	MaxLimit int          `yaml:"max_limit"`
	Members  []PoolMember `yaml:"members"`
}

type poolFile struct {
	Pools []Pool `yaml:"pools"`
}

// PoolTable indexes pools by id and by member spawn.
type PoolTable struct {
	pools   map[uint32]*Pool
	bySpawn map[uint64]uint32
}

// LoadPoolTable loads object pools from a YAML file.
func LoadPoolTable(path string) (*PoolTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pool: %w", err)
	}
	var f poolFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse pool: %w", err)
	}
	return NewPoolTable(f.Pools...)
}

// NewPoolTable indexes pools; a spawn may belong to one pool only.
func NewPoolTable(pools ...Pool) (*PoolTable, error) {
	t := &PoolTable{
		pools:   make(map[uint32]*Pool, len(pools)),
		bySpawn: make(map[uint64]uint32),
	}
	for i := range pools {
		p := pools[i]
		if p.MaxLimit <= 0 {
			p.MaxLimit = 1
		}
		for _, m := range p.Members {
			if other, dup := t.bySpawn[m.SpawnID]; dup {
				return nil, fmt.Errorf("pool %d: spawn %d already in pool %d", p.ID, m.SpawnID, other)
			}
			t.bySpawn[m.SpawnID] = p.ID
		}
		t.pools[p.ID] = &p
	}
	return t, nil
}

// Get returns a pool by id, or nil if not found.
func (t *PoolTable) Get(id uint32) *Pool {
	return t.pools[id]
}

// PoolOf returns the pool id holding a spawn, 0 if it is not pooled.
func (t *PoolTable) PoolOf(spawnID uint64) uint32 {
	if t == nil {
		return 0
	}
	return t.bySpawn[spawnID]
}

func (t *PoolTable) Count() int {
	return len(t.pools)
}

// IDs returns the pool ids in ascending order.
func (t *PoolTable) IDs() []uint32 {
	if t == nil {
		return nil
	}
	ids := make([]uint32, 0, len(t.pools))
	for id := range t.pools {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
