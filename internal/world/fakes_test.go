package world

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/l1jgo/objectd/internal/core/ecs"
	"github.com/l1jgo/objectd/internal/core/event"
	"github.com/l1jgo/objectd/internal/data"
)

const testMap = 1

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeActor struct {
	id      ActorID
	faction Faction
	level   int
	mapID   uint32
	pos     Position
	player  bool
	alive   bool
	combat  bool
}

func (a *fakeActor) ID() ActorID        { return a.id }
func (a *fakeActor) Faction() Faction   { return a.faction }
func (a *fakeActor) Level() int         { return a.level }
func (a *fakeActor) MapID() uint32      { return a.mapID }
func (a *fakeActor) Position() Position { return a.pos }
func (a *fakeActor) IsPlayer() bool     { return a.player }
func (a *fakeActor) IsAlive() bool      { return a.alive }
func (a *fakeActor) InCombat() bool     { return a.combat }

type fakeActors struct {
	actors map[ActorID]*fakeActor
	groups map[ActorID][]ActorID
}

func (r *fakeActors) Actor(id ActorID) (Actor, bool) {
	a, ok := r.actors[id]
	if !ok {
		return nil, false
	}
	return a, true
}

func (r *fakeActors) NearbyActors(mapID uint32, pos Position, radius float32) []Actor {
	var out []Actor
	for _, a := range r.actors {
		if a.mapID == mapID && a.pos.Dist(pos) <= radius {
			out = append(out, a)
		}
	}
	return out
}

func (r *fakeActors) GroupMembers(id ActorID) []ActorID {
	if g, ok := r.groups[id]; ok {
		return g
	}
	return []ActorID{id}
}

func (r *fakeActors) SameGroup(a, b ActorID) bool {
	if a == b {
		return true
	}
	for _, m := range r.groups[a] {
		if m == b {
			return true
		}
	}
	return false
}

// group puts every id into one group.
func (r *fakeActors) group(ids ...ActorID) {
	for _, id := range ids {
		r.groups[id] = ids
	}
}

type pubEvent struct {
	kind    string
	to      Audience
	obj     ecs.EntityID
	fields  FieldMask
	state   GOState
	visible bool
}

type recordingPublisher struct{ events []pubEvent }

func (p *recordingPublisher) PublishChangedFields(to Audience, u FieldUpdate) {
	p.events = append(p.events, pubEvent{kind: "fields", to: to, obj: u.Object, fields: u.Fields})
}

func (p *recordingPublisher) PublishPostureChange(to Audience, obj ecs.EntityID, s GOState) {
	p.events = append(p.events, pubEvent{kind: "posture", to: to, obj: obj, state: s})
}

func (p *recordingPublisher) PublishDespawnSignal(to Audience, obj ecs.EntityID) {
	p.events = append(p.events, pubEvent{kind: "despawn", to: to, obj: obj})
}

func (p *recordingPublisher) PublishVisibilityUpdate(to Audience, obj ecs.EntityID, visible bool) {
	p.events = append(p.events, pubEvent{kind: "visibility", to: to, obj: obj, visible: visible})
}

// count returns how many events of kind went to viewer (0 = broadcast).
func (p *recordingPublisher) count(kind string, viewer ActorID) int {
	n := 0
	for _, ev := range p.events {
		if ev.kind == kind && ev.to.Viewer == viewer {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) last(kind string) (pubEvent, bool) {
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].kind == kind {
			return p.events[i], true
		}
	}
	return pubEvent{}, false
}

func (p *recordingPublisher) reset() { p.events = nil }

type memLedger struct {
	epochs map[uint64]int64
	linked map[data.LinkKey]int64
	saves  int
}

func (l *memLedger) SaveRespawnTime(_ data.SpawnType, spawnID uint64, _ uint32, epoch int64, _ uint32) {
	l.epochs[spawnID] = epoch
	l.saves++
}

func (l *memLedger) RespawnTime(_ data.SpawnType, spawnID uint64) int64 { return l.epochs[spawnID] }

func (l *memLedger) RemoveRespawnTime(_ data.SpawnType, spawnID uint64) { delete(l.epochs, spawnID) }

func (l *memLedger) LinkedRespawnTime(key data.LinkKey) int64 { return l.linked[key] }

type memSpawns struct{ recs map[uint64]data.SpawnRecord }

func (s *memSpawns) Read(id uint64) (data.SpawnRecord, bool) {
	r, ok := s.recs[id]
	return r, ok
}

func (s *memSpawns) Upsert(rec data.SpawnRecord) { s.recs[rec.SpawnID] = rec }
func (s *memSpawns) Delete(id uint64)            { delete(s.recs, id) }

type castCall struct {
	src    EffectSource
	target ActorID
	effect uint32
}

type recordingEffects struct {
	known map[uint32]bool
	casts []castCall
}

func (e *recordingEffects) CastEffect(src EffectSource, target ActorID, id uint32, _ map[string]float64) bool {
	e.casts = append(e.casts, castCall{src: src, target: target, effect: id})
	return true
}

func (e *recordingEffects) HasEffectDefinition(id uint32) bool { return e.known[id] }

type fakeLoot struct {
	lootID         uint32
	grants         []ActorID
	consumed       bool
	consumeOnGrant bool
}

func (l *fakeLoot) Fill(lootID uint32, _ ActorID, _, _ bool, _ uint16, _ uint8) { l.lootID = lootID }
func (l *fakeLoot) IsFullyConsumed() bool                                       { return l.consumed }

func (l *fakeLoot) GrantTo(a ActorID) {
	l.grants = append(l.grants, a)
	if l.consumeOnGrant {
		l.consumed = true
	}
}

type fakeLootFactory struct {
	sessions       []*fakeLoot
	consumeOnGrant bool
}

func (f *fakeLootFactory) NewLootSession(ecs.EntityID) LootSession {
	s := &fakeLoot{consumeOnGrant: f.consumeOnGrant}
	f.sessions = append(f.sessions, s)
	return s
}

type recordingInteract struct {
	gossip     []uint32
	teleports  []data.Teleport
	seats      []Position
	cinematics []uint32
	escaped    []ActorID
	credits    []ActorID
}

func (r *recordingInteract) OpenGossip(_ ActorID, _ ecs.EntityID, id uint32) { r.gossip = append(r.gossip, id) }
func (r *recordingInteract) Teleport(_ ActorID, d data.Teleport)             { r.teleports = append(r.teleports, d) }
func (r *recordingInteract) Sit(_ ActorID, seat Position, _ float32)         { r.seats = append(r.seats, seat) }
func (r *recordingInteract) StartCinematic(_ ActorID, id uint32)             { r.cinematics = append(r.cinematics, id) }
func (r *recordingInteract) FishEscaped(a ActorID)                           { r.escaped = append(r.escaped, a) }
func (r *recordingInteract) GrantUseCredit(a ActorID, _ uint32)              { r.credits = append(r.credits, a) }

type fakePools struct {
	pools   map[uint64]uint32
	updates []uint64
}

func (p *fakePools) PoolOf(spawnID uint64) uint32 { return p.pools[spawnID] }

func (p *fakePools) UpdatePool(_ uint32, spawnID uint64) { p.updates = append(p.updates, spawnID) }

type fakeCollision struct {
	models  map[ecs.EntityID]bool
	enabled map[ecs.EntityID]bool
}

func (c *fakeCollision) InsertModel(m CollisionModel) {
	c.models[m.Object] = true
	c.enabled[m.Object] = true
}

func (c *fakeCollision) RemoveModel(m CollisionModel) {
	delete(c.models, m.Object)
	delete(c.enabled, m.Object)
}

func (c *fakeCollision) EnableCollision(m CollisionModel, enabled bool) { c.enabled[m.Object] = enabled }

type testEnv struct {
	t        *testing.T
	clock    *fakeClock
	actors   *fakeActors
	pub      *recordingPublisher
	ledger   *memLedger
	spawns   *memSpawns
	effects  *recordingEffects
	loot     *fakeLootFactory
	interact *recordingInteract
	pools    *fakePools
	coll     *fakeCollision
	bus      *event.Bus
	logs     *observer.ObservedLogs
	svc      *Services
	m        *Map
}

func newEnv(t *testing.T, templates ...data.ObjectTemplate) *testEnv {
	t.Helper()
	e := &testEnv{
		t:        t,
		clock:    &fakeClock{t: time.Unix(1_700_000_000, 0)},
		actors:   &fakeActors{actors: make(map[ActorID]*fakeActor), groups: make(map[ActorID][]ActorID)},
		pub:      &recordingPublisher{},
		ledger:   &memLedger{epochs: make(map[uint64]int64), linked: make(map[data.LinkKey]int64)},
		spawns:   &memSpawns{recs: make(map[uint64]data.SpawnRecord)},
		effects:  &recordingEffects{known: make(map[uint32]bool)},
		loot:     &fakeLootFactory{},
		interact: &recordingInteract{},
		pools:    &fakePools{pools: make(map[uint64]uint32)},
		coll:     &fakeCollision{models: make(map[ecs.EntityID]bool), enabled: make(map[ecs.EntityID]bool)},
		bus:      event.NewBus(),
	}
	core, logs := observer.New(zap.DebugLevel)
	e.logs = logs
	tuning := DefaultTuning()
	tuning.LinkedJitterMin = 10 * time.Second
	tuning.LinkedJitterMax = 10 * time.Second
	e.svc = &Services{
		Log:       zap.New(core),
		Clock:     e.clock,
		Rand:      rand.New(rand.NewSource(1)),
		Bus:       e.bus,
		Tuning:    tuning,
		Templates: data.NewObjectTable(templates...),
		Groups:    data.NewSpawnGroupTable(true),
		Links:     data.NewLinkedRespawnTable(),
		Spawns:    e.spawns,
		Ledger:    e.ledger,
		Effects:   e.effects,
		Loot:      e.loot,
		Collision: e.coll,
		Publisher: e.pub,
		Actors:    e.actors,
		Interact:  e.interact,
		Pools:     e.pools,
	}
	e.m = NewMap(testMap, e.svc)
	return e
}

// place stores rec and spawns its object.
func (e *testEnv) place(rec data.SpawnRecord) *GameObject {
	e.t.Helper()
	if rec.MapID == 0 {
		rec.MapID = testMap
	}
	e.spawns.recs[rec.SpawnID] = rec
	o, err := e.m.SpawnObject(rec.SpawnID)
	require.NoError(e.t, err)
	return o
}

func (e *testEnv) summon(p SummonParams) *GameObject {
	e.t.Helper()
	o, err := e.m.Summon(p)
	require.NoError(e.t, err)
	return o
}

// tick advances the clock by d and runs one map update.
func (e *testEnv) tick(d time.Duration) {
	e.clock.Advance(d)
	e.m.Update(d.Milliseconds())
}

func (e *testEnv) player(id ActorID, pos Position) *fakeActor {
	a := &fakeActor{id: id, faction: FactionA, level: 10, mapID: testMap, pos: pos, player: true, alive: true}
	e.actors.actors[id] = a
	return a
}

func (e *testEnv) unix() int64 { return e.clock.Now().Unix() }

// logged counts log entries with message msg.
func (e *testEnv) logged(msg string) int { return e.logs.FilterMessage(msg).Len() }
