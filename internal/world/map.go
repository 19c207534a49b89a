package world

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/core/ecs"
	"github.com/l1jgo/objectd/internal/core/event"
	"github.com/l1jgo/objectd/internal/data"
)

type removal struct {
	obj     *GameObject
	deleted bool
}

// Map is one simulation shard. Its objects are updated in registration
// order from a single goroutine; nothing in it is safe for concurrent use.
type Map struct {
	id         uint32
	svc        *Services
	log        *zap.Logger
	difficulty uint8

	objects []*GameObject // registration order
	byID    map[ecs.EntityID]*GameObject
	bySpawn map[uint64]*GameObject
	aoi     *AOIGrid
	removeQ []removal

	// known spawns of this map, live or waiting for a ledger respawn
	known map[uint64]struct{}
}

// NewMap creates an empty shard. Nil collaborators in svc are replaced by
// no-op implementations.
func NewMap(id uint32, svc *Services) *Map {
	svc.withDefaults()
	return &Map{
		id:      id,
		svc:     svc,
		log:     svc.Log.With(zap.Uint32("map_id", id)),
		byID:    make(map[ecs.EntityID]*GameObject),
		bySpawn: make(map[uint64]*GameObject),
		aoi:     NewAOIGrid(),
		known:   make(map[uint64]struct{}),
	}
}

func (m *Map) ID() uint32            { return m.id }
func (m *Map) Services() *Services   { return m.svc }
func (m *Map) Difficulty() uint8     { return m.difficulty }
func (m *Map) SetDifficulty(d uint8) { m.difficulty = d }
func (m *Map) Count() int            { return len(m.objects) }
func (m *Map) PendingRemovals() int  { return len(m.removeQ) }
func (m *Map) KnownSpawns() int      { return len(m.known) }

// Object returns a registered object by runtime id.
func (m *Map) Object(id ecs.EntityID) *GameObject {
	return m.byID[id]
}

// BySpawn returns the live object of a spawn, or nil.
func (m *Map) BySpawn(spawnID uint64) *GameObject {
	return m.bySpawn[spawnID]
}

// Objects returns the registered objects in registration order.
func (m *Map) Objects() []*GameObject {
	out := make([]*GameObject, len(m.objects))
	copy(out, m.objects)
	return out
}

// NearbyObjects returns the objects within radius of p.
func (m *Map) NearbyObjects(p Position, radius float32) []*GameObject {
	var out []*GameObject
	for _, id := range m.aoi.GetNearby(p, radius) {
		o := m.byID[id]
		if o != nil && o.pos.Dist(p) <= radius {
			out = append(out, o)
		}
	}
	return out
}

// AddToMap registers o and shows it. Re-adding a registered object only
// re-announces it, which is how respawned compatibility-mode objects
// become visible again.
func (m *Map) AddToMap(o *GameObject) {
	if o.m != m {
		m.log.Error("object added to a foreign map", zap.Uint32("object_map", o.m.ID()))
		return
	}
	if o.inMap {
		if o.removed {
			o.removed = false
			m.dropRemoval(o)
		}
		o.insertModel()
		m.svc.Publisher.PublishVisibilityUpdate(o.broadcast(), o.id, true)
		return
	}
	o.inMap = true
	m.objects = append(m.objects, o)
	m.byID[o.id] = o
	if o.spawnID != 0 {
		m.bySpawn[o.spawnID] = o
		m.known[o.spawnID] = struct{}{}
	}
	m.aoi.Add(o.id, o.pos)
	if o.IsSpawned() {
		o.insertModel()
		m.svc.Publisher.PublishVisibilityUpdate(o.broadcast(), o.id, true)
	}
}

// RemoveFromMap queues o for removal at the end of the tick. deleted marks
// a removal for good; otherwise the spawn waits for its ledger respawn.
func (m *Map) RemoveFromMap(o *GameObject, deleted bool) {
	if o.removed {
		return
	}
	o.removed = true
	m.removeQ = append(m.removeQ, removal{obj: o, deleted: deleted})
}

func (m *Map) dropRemoval(o *GameObject) {
	for i, r := range m.removeQ {
		if r.obj == o {
			m.removeQ = append(m.removeQ[:i], m.removeQ[i+1:]...)
			return
		}
	}
}

// Update ticks every registered object once, then flushes removals.
// Objects added during the tick are first updated on the next one.
func (m *Map) Update(diff int64) {
	n := len(m.objects)
	for i := 0; i < n; i++ {
		o := m.objects[i]
		if o.removed {
			continue
		}
		m.safeUpdate(o, diff)
	}
	m.FlushRemoveQueue()
}

func (m *Map) safeUpdate(o *GameObject, diff int64) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("object update panic recovered",
				zap.Uint32("entry", o.Entry()),
				zap.Uint64("spawn_id", o.spawnID),
				zap.Stringer("loot_state", o.lootState),
				zap.Any("panic", r),
			)
		}
	}()
	o.Update(diff)
}

// FlushRemoveQueue unregisters every queued object.
func (m *Map) FlushRemoveQueue() {
	if len(m.removeQ) == 0 {
		return
	}
	queue := m.removeQ
	m.removeQ = nil
	for _, r := range queue {
		o := r.obj
		if !o.inMap {
			continue
		}
		m.unregister(o)
		o.removeModel()
		m.svc.Publisher.PublishVisibilityUpdate(o.broadcast(), o.id, false)
		if r.deleted && o.spawnID != 0 {
			if o.group != nil && o.group.DespawnDeletes {
				o.DeleteFromDB()
				delete(m.known, o.spawnID)
			}
		}
		m.svc.IDs.MarkForDestruction(o.id)
		event.Emit(m.svc.Bus, event.ObjectRemoved{
			ObjectID: o.id,
			SpawnID:  o.spawnID,
			Entry:    o.tmpl.Entry,
			MapID:    m.id,
			Deleted:  r.deleted,
		})
	}
}

func (m *Map) unregister(o *GameObject) {
	o.inMap = false
	for i, x := range m.objects {
		if x == o {
			m.objects = append(m.objects[:i], m.objects[i+1:]...)
			break
		}
	}
	delete(m.byID, o.id)
	if o.spawnID != 0 && m.bySpawn[o.spawnID] == o {
		delete(m.bySpawn, o.spawnID)
	}
	m.aoi.Remove(o.id, o.pos)
}

func (m *Map) moveObject(o *GameObject, from, to Position) {
	if o.inMap {
		m.aoi.Move(o.id, from, to)
	}
}

// LoadSpawns creates the objects of every record placed on this map.
// Manual groups, pooled spawns and spawns still waiting for a pool-mode
// respawn are skipped. It returns how many objects were added.
func (m *Map) LoadSpawns(recs []data.SpawnRecord) int {
	now := m.svc.Clock.Now().Unix()
	added := 0
	for i := range recs {
		rec := &recs[i]
		if rec.MapID != m.id {
			continue
		}
		m.known[rec.SpawnID] = struct{}{}
		group := m.svc.Groups.For(rec)
		if group.ManualSpawn || m.svc.Pools.PoolOf(rec.SpawnID) != 0 {
			continue
		}
		if !group.CompatibilityMode && m.svc.Ledger.RespawnTime(data.SpawnTypeGameObject, rec.SpawnID) > now {
			continue
		}
		if _, err := m.SpawnObject(rec.SpawnID); err == nil {
			added++
		}
	}
	m.log.Info("spawns loaded", zap.Int("objects", added), zap.Int("known", len(m.known)))
	return added
}

// SpawnObject creates and registers the object of spawnID. A spawn that is
// already live is returned as is.
func (m *Map) SpawnObject(spawnID uint64) (*GameObject, error) {
	if o := m.bySpawn[spawnID]; o != nil && !o.removed {
		return o, nil
	}
	o, err := NewFromSpawn(m, spawnID)
	if err != nil {
		m.log.Warn("spawn not created", zap.Uint64("spawn_id", spawnID), zap.Error(err))
		return nil, err
	}
	m.AddToMap(o)
	return o, nil
}

// Summon creates and registers an ephemeral object.
func (m *Map) Summon(p SummonParams) (*GameObject, error) {
	o, err := Summon(m, p)
	if err != nil {
		return nil, err
	}
	m.AddToMap(o)
	return o, nil
}

// DespawnSpawn takes the live object of spawnID off the map without
// deleting its record. The pool manager uses it to rotate members.
func (m *Map) DespawnSpawn(spawnID uint64) bool {
	o := m.bySpawn[spawnID]
	if o == nil || o.removed {
		return false
	}
	m.RemoveFromMap(o, false)
	return true
}

// ProcessRespawns re-creates known spawns whose ledger epoch matured and
// that are not on the map. Pooled and manual spawns are left to their
// managers. A dead link master pushes the epoch back instead.
func (m *Map) ProcessRespawns(now time.Time) int {
	unix := now.Unix()
	spawned := 0
	for spawnID := range m.known {
		if o := m.bySpawn[spawnID]; o != nil && !o.removed {
			continue
		}
		epoch := m.svc.Ledger.RespawnTime(data.SpawnTypeGameObject, spawnID)
		if epoch == 0 || epoch > unix {
			continue
		}
		if m.svc.Pools.PoolOf(spawnID) != 0 {
			continue
		}
		if next, gated := m.linkedRespawn(spawnID, unix); gated {
			if rec, found := m.svc.Spawns.Read(spawnID); found {
				m.svc.Ledger.SaveRespawnTime(data.SpawnTypeGameObject, spawnID, rec.Entry, next,
					gridHint(Position{X: rec.X, Y: rec.Y}))
			}
			continue
		}
		m.svc.Ledger.RemoveRespawnTime(data.SpawnTypeGameObject, spawnID)
		if _, err := m.SpawnObject(spawnID); err == nil {
			spawned++
		}
	}
	return spawned
}

// --- collision ---

func (o *GameObject) insertModel() {
	if o.model || !o.info.Collides || o.displayID == 0 {
		return
	}
	o.svc.Collision.InsertModel(o.collisionModel())
	o.model = true
	if o.doorLike() {
		o.svc.Collision.EnableCollision(o.collisionModel(), o.state == StateReady)
	}
}

func (o *GameObject) doorLike() bool {
	return o.tmpl.Kind == data.KindDoor || o.tmpl.Kind == data.KindButton
}

func (o *GameObject) removeModel() {
	if !o.model {
		return
	}
	o.svc.Collision.RemoveModel(o.collisionModel())
	o.model = false
}

func (o *GameObject) setCollision(enabled bool) {
	if o.model {
		o.svc.Collision.EnableCollision(o.collisionModel(), enabled)
	}
}
