package world

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/core/ecs"
	"github.com/l1jgo/objectd/internal/data"
)

// GameObject is a map-placed interactive object. All fields are owned by
// the map goroutine; nothing outside Update, Use and the other exported
// methods mutates them.
type GameObject struct {
	id      ecs.EntityID
	spawnID uint64 // 0 = ephemeral
	tmpl    *data.ObjectTemplate
	group   *data.SpawnGroup
	info    *KindInfo
	m       *Map
	svc     *Services
	log     *zap.Logger

	pos        Position
	rot        Quat
	stationary Position // interaction/visibility anchor captured at creation

	owner       ActorID // weak; resolved through the actor registry
	spellID     uint32  // creating spell of a summoned object
	lootState   LootState
	lootActor   ActorID // actor that caused the last loot state change
	state       GOState
	prevState   GOState // posture a door/button returns to on reset
	flags       Flags
	displayID   uint32
	anim        uint8
	customAnim  uint32
	spellVisual uint32
	lootMode    uint16

	spawnedByDefault bool
	compat           bool
	respawnDelay     uint32 // seconds
	respawnEpoch     int64  // unix seconds, 0 = not scheduled
	despawnDelayMs   int64
	despawnRespawn   int64 // forced respawn seconds applied when the despawn delay fires
	cooldownMs       int64 // unix ms; meaning depends on kind
	restockEpoch     int64 // unix seconds
	useCount         uint32
	uniqueUsers      map[ActorID]struct{}
	payload          Payload
	viewers          map[ActorID]*viewerOverride

	loot         LootSession            // shared session
	personalLoot map[ActorID]LootSession // per-looter sessions, exclusive with loot

	linkedTrap ecs.EntityID
	ai         AIHook

	inMap   bool
	removed bool // queued for removal from the map
	model   bool // collision model inserted
}

// SummonParams describes an ephemeral object.
type SummonParams struct {
	Entry    uint32
	Pos      Position
	Rot      Quat
	Owner    ActorID
	SpellID  uint32
	Lifetime time.Duration // 0 = until despawned
}

// NewFromSpawn builds the object of a persisted spawn record. The result is
// not registered; the caller adds it to the map.
func NewFromSpawn(m *Map, spawnID uint64) (*GameObject, error) {
	svc := m.svc
	rec, ok := svc.Spawns.Read(spawnID)
	if !ok {
		svc.Log.Warn("spawn record missing", zap.Uint64("spawn_id", spawnID))
		return nil, ErrNoSpawnRecord
	}
	if rec.MapID != m.ID() {
		svc.Log.Error("spawn record on another map",
			zap.Uint64("spawn_id", spawnID), zap.Uint32("map_id", rec.MapID), zap.Uint32("shard_map", m.ID()))
		return nil, fmt.Errorf("%w: spawn %d belongs to map %d", ErrNotCreated, spawnID, rec.MapID)
	}

	rot := Quat{X: rec.Rotation[0], Y: rec.Rotation[1], Z: rec.Rotation[2], W: rec.Rotation[3]}
	state := StateReady
	if rec.Active {
		state = StateActive
	}
	o, err := create(m, rec.Entry, Position{X: rec.X, Y: rec.Y, Z: rec.Z, O: rec.O}, rot, state, rec.AnimProgress)
	if err != nil {
		return nil, err
	}
	o.spawnID = spawnID
	o.group = svc.Groups.For(&rec)
	o.compat = o.group.CompatibilityMode
	o.log = o.log.With(zap.Uint64("spawn_id", spawnID))

	now := o.now().Unix()
	if rec.SpawnedByDefault() {
		o.spawnedByDefault = true
		if !o.tmpl.IsDespawnable() {
			o.flags |= FlagNoDespawn
			o.respawnDelay = 0
			o.respawnEpoch = 0
		} else {
			o.respawnDelay = rec.RespawnDelaySeconds()
			o.respawnEpoch = svc.Ledger.RespawnTime(data.SpawnTypeGameObject, spawnID)
			if o.respawnEpoch != 0 && o.respawnEpoch <= now {
				o.respawnEpoch = 0
				svc.Ledger.RemoveRespawnTime(data.SpawnTypeGameObject, spawnID)
			}
		}
	} else {
		if !o.compat {
			o.log.Warn("spawn is not spawned by default but its group uses pool mode; using compatibility mode")
			o.compat = true
		}
		o.spawnedByDefault = false
		o.respawnDelay = rec.RespawnDelaySeconds()
		o.respawnEpoch = 0
	}
	o.createLinkedTrap()
	return o, nil
}

// Summon builds an ephemeral object owned by an actor or a spell.
func Summon(m *Map, p SummonParams) (*GameObject, error) {
	o, err := create(m, p.Entry, p.Pos, p.Rot, StateReady, 255)
	if err != nil {
		return nil, err
	}
	o.compat = true
	o.group = &data.SpawnGroup{Name: "summon", CompatibilityMode: true}
	o.spawnedByDefault = false
	o.spellID = p.SpellID
	if p.Owner != 0 {
		o.SetOwner(p.Owner)
	}
	o.SetRespawnTime(int64(p.Lifetime / time.Second))
	o.createLinkedTrap()
	return o, nil
}

func create(m *Map, entry uint32, pos Position, rot Quat, state GOState, anim uint8) (*GameObject, error) {
	svc := m.svc
	if !pos.Valid() {
		svc.Log.Error("gameobject position invalid",
			zap.Uint32("entry", entry), zap.Uint32("map_id", m.ID()),
			zap.Float32("x", pos.X), zap.Float32("y", pos.Y), zap.Float32("z", pos.Z))
		return nil, ErrInvalidPosition
	}
	tmpl := svc.Templates.Get(entry)
	if tmpl == nil {
		svc.Log.Error("gameobject template missing", zap.Uint32("entry", entry))
		return nil, ErrUnknownTemplate
	}
	if tmpl.Kind == data.KindMapObjTransport {
		svc.Log.Error("map object transport must be created by the transport manager", zap.Uint32("entry", entry))
		return nil, ErrManualCreate
	}
	if !tmpl.Kind.Known() {
		svc.Log.Error("gameobject kind unknown", zap.Uint32("entry", entry), zap.Stringer("kind", tmpl.Kind))
		return nil, ErrUnknownKind
	}
	if rot.IsZero() {
		rot = QuatFromOrientation(pos.O)
	}

	o := &GameObject{
		id:               svc.IDs.CreateEntity(),
		tmpl:             tmpl,
		info:             svc.Kinds.Info(tmpl.Kind),
		m:                m,
		svc:              svc,
		pos:              pos,
		rot:              rot,
		stationary:       pos,
		lootState:        LootNotReady,
		state:            state,
		prevState:        state,
		flags:            Flags(tmpl.Flags),
		displayID:        tmpl.DisplayID,
		anim:             anim,
		lootMode:         data.LootModeDefault,
		spawnedByDefault: true,
	}
	o.log = svc.Log.With(
		zap.Uint32("entry", entry),
		zap.String("kind", tmpl.Kind.String()),
		zap.Stringer("object", o.id),
	)
	o.payload = newPayload(tmpl, o.randUint32)
	o.hook("create", func() { o.info.Behavior.OnCreate(o) })
	o.ai = svc.AI.NewAI(o)
	return o, nil
}

func (o *GameObject) createLinkedTrap() {
	if o.tmpl.LinkedTrap == 0 {
		return
	}
	trapTmpl := o.svc.Templates.Get(o.tmpl.LinkedTrap)
	if trapTmpl == nil || trapTmpl.Kind != data.KindTrap {
		o.log.Warn("linked trap template missing or not a trap", zap.Uint32("linked_trap", o.tmpl.LinkedTrap))
		return
	}
	trap, err := create(o.m, o.tmpl.LinkedTrap, o.pos, o.rot, StateReady, 255)
	if err != nil {
		return
	}
	trap.compat = true
	trap.group = o.group
	trap.respawnDelay = 0
	o.linkedTrap = trap.id
	o.m.AddToMap(trap)
}

// --- identity & placement ---

func (o *GameObject) ID() ecs.EntityID               { return o.id }
func (o *GameObject) SpawnID() uint64                { return o.spawnID }
func (o *GameObject) Entry() uint32                  { return o.tmpl.Entry }
func (o *GameObject) Kind() data.Kind                { return o.tmpl.Kind }
func (o *GameObject) Template() *data.ObjectTemplate { return o.tmpl }
func (o *GameObject) MapID() uint32                  { return o.m.ID() }
func (o *GameObject) Map() *Map                      { return o.m }
func (o *GameObject) Position() Position             { return o.pos }
func (o *GameObject) Rotation() Quat                 { return o.rot }
func (o *GameObject) StationaryPosition() Position   { return o.stationary }
func (o *GameObject) SpellID() uint32                { return o.spellID }
func (o *GameObject) Compatibility() bool            { return o.compat }
func (o *GameObject) InMap() bool                    { return o.inMap && !o.removed }

// Relocate moves the object without touching its stationary anchor.
func (o *GameObject) Relocate(p Position) {
	if !p.Valid() {
		o.log.Warn("relocate to invalid position ignored")
		return
	}
	o.m.moveObject(o, o.pos, p)
	o.pos = p
}

// --- lifecycle fields ---

func (o *GameObject) LootState() LootState       { return o.lootState }
func (o *GameObject) LootActor() ActorID         { return o.lootActor }
func (o *GameObject) GoState() GOState           { return o.state }
func (o *GameObject) Flags() Flags               { return o.flags }
func (o *GameObject) DisplayID() uint32          { return o.displayID }
func (o *GameObject) AnimProgress() uint8        { return o.anim }
func (o *GameObject) LootMode() uint16           { return o.lootMode }
func (o *GameObject) SpawnedByDefault() bool     { return o.spawnedByDefault }
func (o *GameObject) RespawnDelay() uint32       { return o.respawnDelay }
func (o *GameObject) RespawnEpoch() int64        { return o.respawnEpoch }
func (o *GameObject) DespawnDelay() int64        { return o.despawnDelayMs }
func (o *GameObject) CooldownMs() int64          { return o.cooldownMs }
func (o *GameObject) UseCount() uint32           { return o.useCount }
func (o *GameObject) UniqueUseCount() int        { return len(o.uniqueUsers) }
func (o *GameObject) Payload() Payload           { return o.payload }
func (o *GameObject) LinkedTrapID() ecs.EntityID { return o.linkedTrap }

func (o *GameObject) SetLootMode(mode uint16)    { o.lootMode = mode }
func (o *GameObject) AddLootMode(mode uint16)    { o.lootMode |= mode }
func (o *GameObject) RemoveLootMode(mode uint16) { o.lootMode &^= mode }

// SetSpawnedByDefault changes the default visibility of a script-driven spawn.
func (o *GameObject) SetSpawnedByDefault(v bool) { o.spawnedByDefault = v }

// HasUniqueUser reports whether actor is one of the recorded participants.
func (o *GameObject) HasUniqueUser(actor ActorID) bool {
	_, ok := o.uniqueUsers[actor]
	return ok
}

func (o *GameObject) AddUse() { o.useCount++ }

// AddUniqueUse records a participant and counts the use.
func (o *GameObject) AddUniqueUse(actor ActorID) {
	if o.uniqueUsers == nil {
		o.uniqueUsers = make(map[ActorID]struct{})
	}
	o.AddUse()
	o.uniqueUsers[actor] = struct{}{}
}

func (o *GameObject) clearUsers() {
	o.uniqueUsers = nil
	o.useCount = 0
}

// --- ownership ---

// Owner resolves the owning actor. A missing owner reads as no owner.
func (o *GameObject) Owner() (Actor, bool) {
	if o.owner == 0 {
		return nil, false
	}
	return o.svc.Actors.Actor(o.owner)
}

func (o *GameObject) OwnerID() ActorID { return o.owner }

// SetOwner assigns the owning actor. Replacing one owner with another is
// refused and logged; clearing is always allowed.
func (o *GameObject) SetOwner(id ActorID) bool {
	if id != 0 && o.owner != 0 && o.owner != id {
		o.log.Error("gameobject already owned",
			zap.Uint64("owner", uint64(o.owner)), zap.Uint64("new_owner", uint64(id)))
		return false
	}
	o.owner = id
	if id != 0 {
		// owned objects despawn with their owner or delay
		o.spawnedByDefault = false
	}
	return true
}

// --- flags & posture ---

func (o *GameObject) SetFlag(f Flags) {
	if o.flags.Has(f) {
		return
	}
	o.flags |= f
	o.publishFields(o.broadcast(), FieldFlags)
}

func (o *GameObject) RemoveFlag(f Flags) {
	if o.flags&f == 0 {
		return
	}
	o.flags &^= f
	o.publishFields(o.broadcast(), FieldFlags)
}

func (o *GameObject) resetFlags() {
	f := Flags(o.tmpl.Flags)
	if o.flags.Has(FlagNoDespawn) {
		f |= FlagNoDespawn
	}
	if f != o.flags {
		o.flags = f
		o.publishFields(o.broadcast(), FieldFlags)
	}
}

// SetGoState changes the shared posture and broadcasts it.
func (o *GameObject) SetGoState(s GOState) {
	if o.state == s {
		return
	}
	o.state = s
	if o.ai != nil {
		o.ai.OnStateChanged(s)
	}
	if o.doorLike() {
		o.setCollision(s == StateReady)
	}
	if o.inMap {
		o.svc.Publisher.PublishPostureChange(o.broadcast(), o.id, s)
	}
}

func (o *GameObject) SetDisplayID(id uint32) {
	if o.displayID == id {
		return
	}
	if o.model {
		o.removeModel()
		o.displayID = id
		o.insertModel()
	} else {
		o.displayID = id
	}
	o.publishFields(o.broadcast(), FieldDisplayID)
}

func (o *GameObject) SetAnimProgress(p uint8) {
	if o.anim == p {
		return
	}
	o.anim = p
	o.publishFields(o.broadcast(), FieldAnimProgress)
}

func (o *GameObject) SetSpellVisual(id uint32) {
	if o.spellVisual == id {
		return
	}
	o.spellVisual = id
	o.publishFields(o.broadcast(), FieldSpellVisual)
}

// SendCustomAnim plays a one-shot animation for every viewer.
func (o *GameObject) SendCustomAnim(anim uint32) {
	o.customAnim = anim
	o.publishFields(o.broadcast(), FieldCustomAnim)
}

// SetLootState moves the lifecycle to s. actor is the unit responsible,
// 0 when none.
func (o *GameObject) SetLootState(s LootState, actor ActorID) {
	if !s.Valid() {
		o.log.Error("invalid loot state ignored", zap.Uint8("loot_state", uint8(s)))
		return
	}
	o.lootState = s
	o.lootActor = actor
	if o.ai != nil {
		o.ai.OnLootStateChanged(s, actor)
	}
	if o.tmpl.Kind == data.KindChest && s == LootActivated && o.tmpl.Chest != nil &&
		o.tmpl.Chest.RestockSeconds > 0 && o.restockEpoch == 0 {
		o.restockEpoch = o.now().Unix() + int64(o.tmpl.Chest.RestockSeconds)
	}
}

// --- removal ---

// Delete takes the object out of the simulation for good. Pooled spawns in
// compatibility mode hand the decision to the pool manager instead.
func (o *GameObject) Delete() {
	o.SetLootState(LootNotReady, 0)
	o.owner = 0
	if o.inMap {
		o.svc.Publisher.PublishDespawnSignal(o.broadcast(), o.id)
	}
	o.SetGoState(StateReady)
	o.resetFlags()

	var pool uint32
	if o.spawnID != 0 {
		pool = o.svc.Pools.PoolOf(o.spawnID)
	}
	if o.compat && pool != 0 {
		o.svc.Pools.UpdatePool(pool, o.spawnID)
		return
	}
	o.m.RemoveFromMap(o, true)
}

// DeleteFromDB drops the spawn record and its respawn time.
func (o *GameObject) DeleteFromDB() {
	if o.spawnID == 0 {
		return
	}
	o.svc.Ledger.RemoveRespawnTime(data.SpawnTypeGameObject, o.spawnID)
	o.svc.Spawns.Delete(o.spawnID)
	o.log.Info("spawn deleted from store")
}

// --- helpers ---

func (o *GameObject) now() time.Time { return o.svc.Clock.Now() }

func (o *GameObject) nowMs() int64 { return o.svc.Clock.Now().UnixMilli() }

func (o *GameObject) broadcast() Audience { return Audience{MapID: o.m.ID()} }

func (o *GameObject) viewer(v ActorID) Audience { return Audience{MapID: o.m.ID(), Viewer: v} }

func (o *GameObject) fieldUpdate(mask FieldMask) FieldUpdate {
	return FieldUpdate{
		Object:       o.id,
		Entry:        o.tmpl.Entry,
		Fields:       mask,
		Flags:        o.flags,
		DisplayID:    o.displayID,
		AnimProgress: o.anim,
		CustomAnim:   o.customAnim,
		SpellVisual:  o.spellVisual,
		State:        o.state,
		LootState:    o.lootState,
	}
}

func (o *GameObject) publishFields(to Audience, mask FieldMask) {
	if !o.inMap {
		return
	}
	o.svc.Publisher.PublishChangedFields(to, o.fieldUpdate(mask))
}

// updateDynamicFlagsForNearby re-sends per-viewer dynamic flags (lootable,
// interactable) to players around the object.
func (o *GameObject) updateDynamicFlagsForNearby() {
	o.updateDynamicFlagsWithin(visibilityRange)
}

func (o *GameObject) updateDynamicFlagsWithin(radius float32) {
	if !o.inMap {
		return
	}
	for _, a := range o.svc.Actors.NearbyActors(o.m.ID(), o.stationary, radius) {
		if a.IsPlayer() {
			o.svc.Publisher.PublishChangedFields(o.viewer(a.ID()), o.fieldUpdate(FieldDynamicFlags))
		}
	}
}

func (o *GameObject) collisionModel() CollisionModel {
	return CollisionModel{
		Object:    o.id,
		MapID:     o.m.ID(),
		DisplayID: o.displayID,
		Pos:       o.pos,
		Rot:       o.rot,
		Scale:     o.tmpl.Size,
	}
}

func (o *GameObject) randUint32(lo, hi uint32) uint32 {
	if hi <= lo {
		return lo
	}
	return lo + uint32(o.svc.Rand.Int63n(int64(hi-lo)+1))
}

// hook runs a kind callback. A panicking callback is logged and skipped;
// the object stays consistent and the callback runs again next time.
func (o *GameObject) hook(name string, fn func()) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			o.log.Error("kind hook panic recovered",
				zap.String("hook", name),
				zap.Stringer("loot_state", o.lootState),
				zap.Any("panic", rec),
			)
			ok = false
		}
	}()
	fn()
	return true
}
