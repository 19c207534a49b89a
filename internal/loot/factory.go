package loot

import (
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/core/ecs"
	"github.com/l1jgo/objectd/internal/data"
	"github.com/l1jgo/objectd/internal/world"
)

// Factory opens loot sessions rolled from a loot table.
type Factory struct {
	table  *data.LootTable
	rand   *rand.Rand
	actors world.ActorRegistry
	log    *zap.Logger
}

// NewFactory builds a factory. actors may be nil, which disables group rules.
func NewFactory(table *data.LootTable, r *rand.Rand, actors world.ActorRegistry, log *zap.Logger) *Factory {
	if table == nil {
		table = data.NewLootTable()
	}
	return &Factory{table: table, rand: r, actors: actors, log: log}
}

func (f *Factory) NewLootSession(obj ecs.EntityID) world.LootSession {
	return f.Open(obj)
}

// Open returns a new, empty session for obj.
func (f *Factory) Open(obj ecs.EntityID) *Session {
	return &Session{
		ID:      uuid.New(),
		Object:  obj,
		looters: make(map[world.ActorID]struct{}),
		f:       f,
	}
}
