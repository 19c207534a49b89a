package spatial

import (
	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/core/ecs"
	"github.com/l1jgo/objectd/internal/world"
)

type model struct {
	world.CollisionModel
	enabled bool
}

// CollisionIndex holds the collision models of every map's objects.
// Accessed only from the game loop goroutine, so it takes no locks.
type CollisionIndex struct {
	models map[ecs.EntityID]*model
	log    *zap.Logger
}

func NewCollisionIndex(log *zap.Logger) *CollisionIndex {
	return &CollisionIndex{models: make(map[ecs.EntityID]*model), log: log}
}

// InsertModel adds or replaces the model of an object. New models block.
func (c *CollisionIndex) InsertModel(m world.CollisionModel) {
	c.models[m.Object] = &model{CollisionModel: m, enabled: true}
}

func (c *CollisionIndex) RemoveModel(m world.CollisionModel) {
	delete(c.models, m.Object)
}

func (c *CollisionIndex) EnableCollision(m world.CollisionModel, enabled bool) {
	mod, ok := c.models[m.Object]
	if !ok {
		c.log.Debug("collision toggle for unknown model", zap.Uint64("object", uint64(m.Object)))
		return
	}
	mod.enabled = enabled
}

// Enabled reports whether obj has a model that currently blocks.
func (c *CollisionIndex) Enabled(obj ecs.EntityID) bool {
	mod, ok := c.models[obj]
	return ok && mod.enabled
}

func (c *CollisionIndex) Has(obj ecs.EntityID) bool {
	_, ok := c.models[obj]
	return ok
}

// Blocking returns the enabled models of a map whose footprint reaches within
// radius of p. The footprint is a sphere scaled by the model scale.
func (c *CollisionIndex) Blocking(mapID uint32, p world.Position, radius float32) []world.CollisionModel {
	var out []world.CollisionModel
	for _, mod := range c.models {
		if !mod.enabled || mod.MapID != mapID {
			continue
		}
		scale := mod.Scale
		if scale <= 0 {
			scale = 1
		}
		if mod.Pos.Dist(p) <= radius+scale {
			out = append(out, mod.CollisionModel)
		}
	}
	return out
}

func (c *CollisionIndex) Count() int { return len(c.models) }
