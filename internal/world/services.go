package world

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/core/ecs"
	"github.com/l1jgo/objectd/internal/core/event"
	"github.com/l1jgo/objectd/internal/data"
)

// SpawnStore is the persisted spawn record collection.
type SpawnStore interface {
	Read(spawnID uint64) (data.SpawnRecord, bool)
	Upsert(rec data.SpawnRecord)
	Delete(spawnID uint64)
}

// RespawnLedger holds absolute respawn epochs (unix seconds) per spawn.
// Writes are fire-and-forget.
type RespawnLedger interface {
	SaveRespawnTime(t data.SpawnType, spawnID uint64, entry uint32, epoch int64, gridHint uint32)
	RespawnTime(t data.SpawnType, spawnID uint64) int64
	RemoveRespawnTime(t data.SpawnType, spawnID uint64)
	// LinkedRespawnTime returns the respawn epoch of the master linked to
	// key, or 0 if the master is alive or no link exists.
	LinkedRespawnTime(key data.LinkKey) int64
}

// EffectSource is the caster of an effect: an actor when Actor is set,
// otherwise the object itself.
type EffectSource struct {
	Object ecs.EntityID
	Entry  uint32
	Actor  ActorID
	// OriginalCaster is credited for the effect when the object casts
	// on behalf of its owner.
	OriginalCaster ActorID
}

type EffectExecutor interface {
	CastEffect(src EffectSource, target ActorID, effectID uint32, args map[string]float64) bool
	HasEffectDefinition(effectID uint32) bool
}

// LootSession tracks the remaining loot of one object for one audience.
type LootSession interface {
	Fill(lootID uint32, actor ActorID, groupRules, money bool, modeMask uint16, difficulty uint8)
	IsFullyConsumed() bool
	GrantTo(actor ActorID)
}

type LootFactory interface {
	NewLootSession(obj ecs.EntityID) LootSession
}

// AIHook is the per-object script. The bool returns report whether the
// script consumed the event, in which case built-in handling is skipped.
type AIHook interface {
	OnLootStateChanged(state LootState, actor ActorID)
	OnStateChanged(state GOState)
	OnCapturePointAssaulted(actor ActorID) bool
	OnCapturePointUpdated(state CaptureState) bool
	Reset()
}

// AIFactory returns the hook for an object, or nil when none is attached.
type AIFactory interface {
	NewAI(obj *GameObject) AIHook
}

// CollisionModel is the line-of-sight footprint of an object.
type CollisionModel struct {
	Object    ecs.EntityID
	MapID     uint32
	DisplayID uint32
	Pos       Position
	Rot       Quat
	Scale     float32
}

type CollisionIndex interface {
	InsertModel(m CollisionModel)
	RemoveModel(m CollisionModel)
	EnableCollision(m CollisionModel, enabled bool)
}

// Audience addresses a publish: one viewer, or every viewer of the map
// when Viewer is zero.
type Audience struct {
	MapID  uint32
	Viewer ActorID
}

func (a Audience) Broadcast() bool { return a.Viewer == 0 }

// FieldUpdate carries the replicated values selected by Fields.
type FieldUpdate struct {
	Object       ecs.EntityID
	Entry        uint32
	Fields       FieldMask
	Flags        Flags
	DisplayID    uint32
	AnimProgress uint8
	CustomAnim   uint32
	SpellVisual  uint32
	State        GOState
	LootState    LootState
}

// Publisher delivers object changes to clients.
type Publisher interface {
	PublishChangedFields(to Audience, u FieldUpdate)
	PublishPostureChange(to Audience, obj ecs.EntityID, state GOState)
	PublishDespawnSignal(to Audience, obj ecs.EntityID)
	PublishVisibilityUpdate(to Audience, obj ecs.EntityID, visible bool)
}

// Actor is the read view of a unit the objects interact with.
type Actor interface {
	ID() ActorID
	Faction() Faction
	Level() int
	MapID() uint32
	Position() Position
	IsPlayer() bool
	IsAlive() bool
	InCombat() bool
}

// ActorRegistry resolves actors by identity. Objects never keep actor
// pointers across calls.
type ActorRegistry interface {
	Actor(id ActorID) (Actor, bool)
	NearbyActors(mapID uint32, pos Position, radius float32) []Actor
	// GroupMembers returns the group of id including id itself; an ungrouped
	// actor yields just itself.
	GroupMembers(id ActorID) []ActorID
	SameGroup(a, b ActorID) bool
}

// Interactions are the actor-side effects of using an object.
type Interactions interface {
	OpenGossip(actor ActorID, obj ecs.EntityID, gossipID uint32)
	Teleport(actor ActorID, dest data.Teleport)
	Sit(actor ActorID, seat Position, height float32)
	StartCinematic(actor ActorID, id uint32)
	FishEscaped(actor ActorID)
	GrantUseCredit(actor ActorID, entry uint32)
}

// PoolManager decides replacement for pooled spawns.
type PoolManager interface {
	PoolOf(spawnID uint64) uint32
	UpdatePool(poolID uint32, spawnID uint64)
}

type Clock interface {
	Now() time.Time
}

// SystemClock reads wall time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Tuning holds the timing constants of the lifecycle.
type Tuning struct {
	LinkedJitterMin time.Duration
	LinkedJitterMax time.Duration
	SelfLinkDelay   time.Duration
	BobberReady     time.Duration
	BombArmDelay    time.Duration
	TrapCooldown    time.Duration
}

// DefaultTuning mirrors the config defaults.
func DefaultTuning() Tuning {
	return Tuning{
		LinkedJitterMin: 5 * time.Second,
		LinkedJitterMax: time.Minute,
		SelfLinkDelay:   7 * 24 * time.Hour,
		BobberReady:     5 * time.Second,
		BombArmDelay:    10 * time.Second,
		TrapCooldown:    4 * time.Second,
	}
}

// Services is every dependency of the object lifecycle. One instance is
// shared by all maps of a process; nothing here is a process global.
type Services struct {
	Log       *zap.Logger
	Clock     Clock
	Rand      *rand.Rand
	IDs       *ecs.World
	Bus       *event.Bus
	Tuning    Tuning
	Templates *data.ObjectTable
	Groups    *data.SpawnGroupTable
	Links     *data.LinkedRespawnTable
	Kinds     *KindRegistry

	Spawns    SpawnStore
	Ledger    RespawnLedger
	Effects   EffectExecutor
	Loot      LootFactory
	AI        AIFactory
	Collision CollisionIndex
	Publisher Publisher
	Actors    ActorRegistry
	Interact  Interactions
	Pools     PoolManager
}

// withDefaults fills nil collaborators with no-op implementations.
func (s *Services) withDefaults() *Services {
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	if s.Clock == nil {
		s.Clock = SystemClock{}
	}
	if s.Rand == nil {
		s.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.IDs == nil {
		s.IDs = ecs.NewWorld()
	}
	if s.Templates == nil {
		s.Templates = data.NewObjectTable()
	}
	if s.Kinds == nil {
		s.Kinds = NewKindRegistry()
	}
	if s.Tuning == (Tuning{}) {
		s.Tuning = DefaultTuning()
	}
	if s.Spawns == nil {
		s.Spawns = nopSpawns{}
	}
	if s.Ledger == nil {
		s.Ledger = nopLedger{}
	}
	if s.Effects == nil {
		s.Effects = nopEffects{}
	}
	if s.Loot == nil {
		s.Loot = nopLootFactory{}
	}
	if s.AI == nil {
		s.AI = nopAIFactory{}
	}
	if s.Collision == nil {
		s.Collision = nopCollision{}
	}
	if s.Publisher == nil {
		s.Publisher = nopPublisher{}
	}
	if s.Actors == nil {
		s.Actors = nopActors{}
	}
	if s.Interact == nil {
		s.Interact = nopInteractions{}
	}
	if s.Pools == nil {
		s.Pools = nopPools{}
	}
	return s
}

func (s *Services) randRange(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(s.Rand.Int63n(int64(hi-lo)+1))
}
