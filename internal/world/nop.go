package world

import (
	"github.com/l1jgo/objectd/internal/core/ecs"
	"github.com/l1jgo/objectd/internal/data"
)

type nopSpawns struct{}

func (nopSpawns) Read(uint64) (data.SpawnRecord, bool) { return data.SpawnRecord{}, false }
func (nopSpawns) Upsert(data.SpawnRecord)              {}
func (nopSpawns) Delete(uint64)                        {}

type nopLedger struct{}

func (nopLedger) SaveRespawnTime(data.SpawnType, uint64, uint32, int64, uint32) {}
func (nopLedger) RespawnTime(data.SpawnType, uint64) int64                      { return 0 }
func (nopLedger) RemoveRespawnTime(data.SpawnType, uint64)                      {}
func (nopLedger) LinkedRespawnTime(data.LinkKey) int64                          { return 0 }

type nopEffects struct{}

func (nopEffects) CastEffect(EffectSource, ActorID, uint32, map[string]float64) bool { return false }
func (nopEffects) HasEffectDefinition(uint32) bool                                   { return false }

type nopLoot struct{}

func (nopLoot) Fill(uint32, ActorID, bool, bool, uint16, uint8) {}
func (nopLoot) IsFullyConsumed() bool                           { return true }
func (nopLoot) GrantTo(ActorID)                                 {}

type nopLootFactory struct{}

func (nopLootFactory) NewLootSession(ecs.EntityID) LootSession { return nopLoot{} }

type nopAIFactory struct{}

func (nopAIFactory) NewAI(*GameObject) AIHook { return nil }

type nopCollision struct{}

func (nopCollision) InsertModel(CollisionModel)           {}
func (nopCollision) RemoveModel(CollisionModel)           {}
func (nopCollision) EnableCollision(CollisionModel, bool) {}

type nopPublisher struct{}

func (nopPublisher) PublishChangedFields(Audience, FieldUpdate)           {}
func (nopPublisher) PublishPostureChange(Audience, ecs.EntityID, GOState) {}
func (nopPublisher) PublishDespawnSignal(Audience, ecs.EntityID)          {}
func (nopPublisher) PublishVisibilityUpdate(Audience, ecs.EntityID, bool) {}

type nopActors struct{}

func (nopActors) Actor(ActorID) (Actor, bool)                    { return nil, false }
func (nopActors) NearbyActors(uint32, Position, float32) []Actor { return nil }
func (nopActors) GroupMembers(id ActorID) []ActorID              { return []ActorID{id} }
func (nopActors) SameGroup(a, b ActorID) bool                    { return a == b }

type nopInteractions struct{}

func (nopInteractions) OpenGossip(ActorID, ecs.EntityID, uint32) {}
func (nopInteractions) Teleport(ActorID, data.Teleport)          {}
func (nopInteractions) Sit(ActorID, Position, float32)           {}
func (nopInteractions) StartCinematic(ActorID, uint32)           {}
func (nopInteractions) FishEscaped(ActorID)                      {}
func (nopInteractions) GrantUseCredit(ActorID, uint32)           {}

type nopPools struct{}

func (nopPools) PoolOf(uint64) uint32      { return 0 }
func (nopPools) UpdatePool(uint32, uint64) {}
