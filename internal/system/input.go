package system

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/core/ecs"
	coresys "github.com/l1jgo/objectd/internal/core/system"
	"github.com/l1jgo/objectd/internal/world"
)

// Request kinds.
const (
	RequestUse           = "use"
	RequestReleaseLoot   = "release_loot"
	RequestActivate      = "activate"
	RequestDamage        = "damage"
	RequestSummon        = "summon"
	RequestViewerPosture = "viewer_posture"
	RequestViewerDespawn = "viewer_despawn"
	RequestActorUpdate   = "actor_update"
	RequestActorLeave    = "actor_leave"
)

// Request is one actor interaction with an object, or an actor state
// change. The object is named by SpawnID when set, otherwise by its
// runtime id. For viewer requests Actor is the viewer.
type Request struct {
	Kind       string               `json:"kind"`
	MapID      uint32               `json:"map_id"`
	SpawnID    uint64               `json:"spawn_id,omitempty"`
	Object     ecs.EntityID         `json:"object,omitempty"`
	Actor      world.ActorID        `json:"actor"`
	Action     world.Action         `json:"action,omitempty"`
	Param      int32                `json:"param,omitempty"`
	Delta      int64                `json:"delta,omitempty"`  // damage: negative hurts
	Posture    world.GOState        `json:"posture"`          // viewer_posture
	TTLMs      int64                `json:"ttl_ms,omitempty"` // viewer overrides
	Entry      uint32               `json:"entry,omitempty"`  // summon
	Pos        world.Position       `json:"pos"`              // summon
	LifetimeMs int64                `json:"lifetime_ms,omitempty"`
	State      *world.ActorSnapshot `json:"state,omitempty"` // actor_update only
}

// InteractionSystem queues requests from other goroutines and applies them
// on the game loop. Phase 0 (Input).
type InteractionSystem struct {
	shards     *Shards
	actors     *world.State
	queue      chan Request
	maxPerTick int
	log        *zap.Logger
}

func NewInteractionSystem(shards *Shards, actors *world.State, queueSize, maxPerTick int, log *zap.Logger) *InteractionSystem {
	return &InteractionSystem{
		shards:     shards,
		actors:     actors,
		queue:      make(chan Request, queueSize),
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InteractionSystem) Phase() coresys.Phase { return coresys.PhaseInput }

// Submit queues r without blocking and reports whether it was accepted.
func (s *InteractionSystem) Submit(r Request) bool {
	select {
	case s.queue <- r:
		return true
	default:
		s.log.Warn("interaction queue full, request dropped",
			zap.String("kind", r.Kind),
			zap.Uint64("actor", uint64(r.Actor)),
		)
		return false
	}
}

// HandleMessage decodes a JSON request and submits it.
func (s *InteractionSystem) HandleMessage(data []byte) {
	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		s.log.Warn("malformed interaction request", zap.Error(err))
		return
	}
	s.Submit(r)
}

func (s *InteractionSystem) Update(_ time.Duration) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case r := <-s.queue:
			s.apply(r)
		default:
			return
		}
	}
}

func (s *InteractionSystem) apply(r Request) {
	switch r.Kind {
	case RequestActorUpdate:
		if r.State != nil && s.actors != nil {
			s.actors.Apply(*r.State)
		}
		return
	case RequestActorLeave:
		if s.actors != nil {
			s.actors.Remove(r.Actor)
		}
		return
	case RequestSummon:
		s.summon(r)
		return
	}
	o := s.resolve(r)
	if o == nil {
		s.log.Debug("interaction with unknown object",
			zap.String("kind", r.Kind),
			zap.Uint32("map_id", r.MapID),
			zap.Uint64("spawn_id", r.SpawnID),
		)
		return
	}
	switch r.Kind {
	case RequestUse:
		res := o.Use(r.Actor)
		s.log.Debug("object used",
			zap.Uint64("spawn_id", o.SpawnID()),
			zap.Uint32("entry", o.Entry()),
			zap.Uint64("actor", uint64(r.Actor)),
			zap.Stringer("result", res),
		)
	case RequestReleaseLoot:
		o.ReleaseLoot(r.Actor)
	case RequestActivate:
		o.ActivateObject(r.Action, r.Param, r.Actor)
	case RequestDamage:
		o.ModifyHealth(r.Delta, uint64(r.Actor))
	case RequestViewerPosture:
		o.SetPostureForViewer(r.Actor, r.Posture, time.Duration(r.TTLMs)*time.Millisecond)
	case RequestViewerDespawn:
		o.DespawnForViewer(r.Actor, time.Duration(r.TTLMs)*time.Millisecond)
	default:
		s.log.Warn("unknown interaction kind", zap.String("kind", r.Kind))
	}
}

func (s *InteractionSystem) summon(r Request) {
	m := s.shards.Get(r.MapID)
	if m == nil {
		s.log.Debug("summon on unknown map", zap.Uint32("map_id", r.MapID), zap.Uint32("entry", r.Entry))
		return
	}
	o, err := m.Summon(world.SummonParams{
		Entry:    r.Entry,
		Pos:      r.Pos,
		Owner:    r.Actor,
		SpellID:  uint32(r.Param),
		Lifetime: time.Duration(r.LifetimeMs) * time.Millisecond,
	})
	if err != nil {
		s.log.Warn("summon failed",
			zap.Uint32("map_id", r.MapID),
			zap.Uint32("entry", r.Entry),
			zap.Error(err),
		)
		return
	}
	s.log.Debug("object summoned", zap.Uint64("object", uint64(o.ID())), zap.Uint32("entry", r.Entry))
}

func (s *InteractionSystem) resolve(r Request) *world.GameObject {
	m := s.shards.Get(r.MapID)
	if m == nil {
		return nil
	}
	var o *world.GameObject
	if r.SpawnID != 0 {
		o = m.BySpawn(r.SpawnID)
	} else {
		o = m.Object(r.Object)
	}
	if o == nil || !o.InMap() {
		return nil
	}
	return o
}
