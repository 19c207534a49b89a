package system

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/l1jgo/objectd/internal/config"
	"github.com/l1jgo/objectd/internal/core/ecs"
	"github.com/l1jgo/objectd/internal/core/event"
	"github.com/l1jgo/objectd/internal/data"
	"github.com/l1jgo/objectd/internal/persist"
	"github.com/l1jgo/objectd/internal/world"
)

const testMap = 1

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type nopSink struct{}

func (nopSink) Apply(context.Context, []persist.Op) error { return nil }

type env struct {
	clock  *fakeClock
	svc    *world.Services
	m      *world.Map
	shards *Shards
	spawns *persist.SpawnStore
	ledger *persist.RespawnLedger
	pools  *PoolManager
	actors *world.State
	logs   *observer.ObservedLogs
}

func newEnv(t *testing.T, pools []data.Pool, recs ...data.SpawnRecord) *env {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)
	w := persist.NewWriter(nopSink{}, config.PersistConfig{QueueSize: 256, WriteTimeout: time.Second}, log)
	e := &env{
		clock:  &fakeClock{t: time.Unix(1_700_000_000, 0)},
		shards: NewShards(),
		spawns: persist.NewSpawnStore(w, recs),
		ledger: persist.NewRespawnLedger(w, nil, nil),
		actors: world.NewState(),
		logs:   logs,
	}
	table, err := data.NewPoolTable(pools...)
	require.NoError(t, err)
	e.svc = &world.Services{
		Log:       log,
		Clock:     e.clock,
		Rand:      rand.New(rand.NewSource(1)),
		Bus:       event.NewBus(),
		Templates: data.NewObjectTable(data.ObjectTemplate{Entry: 5, Kind: data.KindGeneric, DisplayID: 1}),
		Spawns:    e.spawns,
		Ledger:    e.ledger,
		Actors:    e.actors,
	}
	e.pools = NewPoolManager(PoolDeps{
		Pools:  table,
		Shards: e.shards,
		Spawns: e.spawns,
		Ledger: e.ledger,
		Clock:  e.clock,
		Rand:   rand.New(rand.NewSource(2)),
		Log:    log,
	})
	e.svc.Pools = e.pools
	e.m = world.NewMap(testMap, e.svc)
	e.shards.Add(e.m)
	e.m.LoadSpawns(recs)
	return e
}

func spawnRec(id uint64) data.SpawnRecord {
	return data.SpawnRecord{SpawnID: id, Entry: 5, MapID: testMap, X: float32(id), RespawnDelay: 30}
}

func (e *env) live(spawnID uint64) bool {
	o := e.m.BySpawn(spawnID)
	return o != nil && o.InMap()
}

func (e *env) liveCount(ids ...uint64) int {
	n := 0
	for _, id := range ids {
		if e.live(id) {
			n++
		}
	}
	return n
}

func pool(id uint32, limit int, members ...uint64) data.Pool {
	p := data.Pool{ID: id, MaxLimit: limit}
	for _, m := range members {
		p.Members = append(p.Members, data.PoolMember{SpawnID: m})
	}
	return p
}

func TestPooledSpawnsWaitForPoolManager(t *testing.T) {
	e := newEnv(t, []data.Pool{pool(1, 2, 11, 12, 13)}, spawnRec(11), spawnRec(12), spawnRec(13), spawnRec(20))
	assert.Equal(t, 1, e.m.Count(), "only the unpooled spawn loads")

	assert.Equal(t, 2, e.pools.SpawnInitial(e.clock.Now()))
	assert.Equal(t, 2, e.liveCount(11, 12, 13))
	assert.Equal(t, uint32(1), e.pools.PoolOf(12))
	assert.Zero(t, e.pools.PoolOf(20))
}

func TestSpawnInitialSkipsPendingRespawns(t *testing.T) {
	e := newEnv(t, []data.Pool{pool(1, 3, 11, 12, 13)}, spawnRec(11), spawnRec(12), spawnRec(13))
	e.ledger.SaveRespawnTime(data.SpawnTypeGameObject, 13, 5, e.clock.Now().Add(time.Minute).Unix(), 0)

	assert.Equal(t, 2, e.pools.SpawnInitial(e.clock.Now()))
	assert.False(t, e.live(13))
}

func TestUpdatePoolRotatesMember(t *testing.T) {
	e := newEnv(t, []data.Pool{pool(1, 1, 11, 12)}, spawnRec(11), spawnRec(12))
	require.Equal(t, 1, e.pools.SpawnInitial(e.clock.Now()))

	current, other := uint64(11), uint64(12)
	if e.live(12) {
		current, other = other, current
	}
	e.pools.UpdatePool(1, current)
	assert.False(t, e.live(current))
	assert.True(t, e.live(other))

	e.m.FlushRemoveQueue()
	assert.Equal(t, 1, e.m.Count())
}

func TestUpdatePoolKeepsSoleMember(t *testing.T) {
	e := newEnv(t, []data.Pool{pool(1, 1, 11)}, spawnRec(11))
	require.Equal(t, 1, e.pools.SpawnInitial(e.clock.Now()))
	o := e.m.BySpawn(11)

	e.pools.UpdatePool(1, 11)
	assert.Same(t, o, e.m.BySpawn(11))
	assert.True(t, o.InMap())
	assert.Zero(t, e.m.PendingRemovals())
}

func TestUpdateOfUnknownPool(t *testing.T) {
	e := newEnv(t, nil, spawnRec(11))
	e.pools.UpdatePool(99, 11)
	assert.Equal(t, 1, e.logs.FilterMessage("update of unknown pool").Len())
	assert.True(t, e.live(11))
}

func TestPoolProcessRespawns(t *testing.T) {
	e := newEnv(t, []data.Pool{pool(1, 1, 11)}, spawnRec(11))
	e.ledger.SaveRespawnTime(data.SpawnTypeGameObject, 11, 5, e.clock.Now().Add(10*time.Second).Unix(), 0)
	require.Zero(t, e.pools.SpawnInitial(e.clock.Now()))

	assert.Zero(t, e.pools.ProcessRespawns(e.clock.Now()))
	e.clock.Advance(11 * time.Second)
	assert.Equal(t, 1, e.pools.ProcessRespawns(e.clock.Now()))
	assert.True(t, e.live(11))
	assert.Zero(t, e.ledger.RespawnTime(data.SpawnTypeGameObject, 11))
}

func TestRollHonorsChances(t *testing.T) {
	e := newEnv(t, nil)
	sure := []data.PoolMember{{SpawnID: 1, Chance: 100}, {SpawnID: 2}}
	for i := 0; i < 20; i++ {
		id, ok := e.pools.roll(sure)
		require.True(t, ok)
		assert.Equal(t, uint64(1), id)
	}

	equal := []data.PoolMember{{SpawnID: 3}, {SpawnID: 4}}
	for i := 0; i < 20; i++ {
		id, ok := e.pools.roll(equal)
		require.True(t, ok)
		assert.Contains(t, []uint64{3, 4}, id)
	}

	_, ok := e.pools.roll(nil)
	assert.False(t, ok)
}

func TestRespawnSystemPolls(t *testing.T) {
	e := newEnv(t, nil)
	rec := spawnRec(21)
	e.spawns.Upsert(rec)
	e.ledger.SaveRespawnTime(data.SpawnTypeGameObject, 21, 5, e.clock.Now().Add(5*time.Second).Unix(), 0)
	require.Zero(t, e.m.LoadSpawns([]data.SpawnRecord{rec}))

	sys := NewRespawnSystem(e.shards, e.pools, e.clock, time.Second, e.svc.Log)
	e.clock.Advance(6 * time.Second)
	sys.Update(500 * time.Millisecond)
	assert.False(t, e.live(21), "poll interval not reached")
	sys.Update(500 * time.Millisecond)
	assert.True(t, e.live(21))
}

func TestObjectSystemTicksEveryMap(t *testing.T) {
	e := newEnv(t, nil)
	second := world.NewMap(testMap+1, e.svc)
	e.shards.Add(second)

	a, err := e.m.Summon(world.SummonParams{Entry: 5})
	require.NoError(t, err)
	b, err := second.Summon(world.SummonParams{Entry: 5})
	require.NoError(t, err)

	NewObjectSystem(e.shards, e.svc.Log).Update(100 * time.Millisecond)
	assert.Equal(t, world.LootReady, a.LootState())
	assert.Equal(t, world.LootReady, b.LootState())
}

func TestShardsEachInIDOrder(t *testing.T) {
	s := NewShards()
	svc := &world.Services{}
	for _, id := range []uint32{7, 2, 5} {
		s.Add(world.NewMap(id, svc))
	}
	s.Add(world.NewMap(2, svc))

	var order []uint32
	s.Each(func(m *world.Map) { order = append(order, m.ID()) })
	assert.Equal(t, []uint32{2, 5, 7}, order)
	assert.Equal(t, 3, s.Count())
	assert.Nil(t, s.Get(9))
}

func TestInteractionSystem(t *testing.T) {
	e := newEnv(t, nil, spawnRec(11))
	sys := NewInteractionSystem(e.shards, world.NewState(), 3, 2, e.svc.Log)
	o := e.m.BySpawn(11)
	require.NotNil(t, o)

	assert.True(t, sys.Submit(Request{Kind: RequestActivate, MapID: testMap, SpawnID: 11, Action: world.ActionLock}))
	assert.True(t, sys.Submit(Request{Kind: "wave", MapID: testMap, SpawnID: 11}))
	assert.True(t, sys.Submit(Request{Kind: RequestActivate, MapID: testMap, Object: o.ID(), Action: world.ActionUnlock}))
	assert.False(t, sys.Submit(Request{Kind: RequestUse}), "queue is full")

	sys.Update(100 * time.Millisecond)
	assert.NotZero(t, o.Flags()&world.FlagLocked)
	assert.Equal(t, 1, e.logs.FilterMessage("unknown interaction kind").Len())

	sys.Update(100 * time.Millisecond)
	assert.Zero(t, o.Flags()&world.FlagLocked, "third request waits for the next tick")
}

func TestInteractionSystemDecodesMessages(t *testing.T) {
	e := newEnv(t, nil, spawnRec(11))
	sys := NewInteractionSystem(e.shards, e.actors, 8, 8, e.svc.Log)

	sys.HandleMessage([]byte(fmt.Sprintf(`{"kind":"activate","map_id":%d,"spawn_id":11,"action":%d}`, testMap, uint8(world.ActionLock))))
	sys.HandleMessage([]byte(`{"kind":`))
	sys.HandleMessage([]byte(`{"kind":"use","map_id":1,"spawn_id":404,"actor":3}`))
	sys.Update(100 * time.Millisecond)

	assert.NotZero(t, e.m.BySpawn(11).Flags()&world.FlagLocked)
	assert.Equal(t, 1, e.logs.FilterMessage("malformed interaction request").Len())
	assert.Equal(t, 1, e.logs.FilterMessage("interaction with unknown object").Len())
}

func TestInteractionSystemUseByTrackedActor(t *testing.T) {
	rec := spawnRec(11)
	rec.X = 0
	e := newEnv(t, nil, rec)
	sys := NewInteractionSystem(e.shards, e.actors, 8, 8, e.svc.Log)
	o := e.m.BySpawn(11)
	NewObjectSystem(e.shards, e.svc.Log).Update(100 * time.Millisecond)
	require.Equal(t, world.LootReady, o.LootState())

	sys.HandleMessage([]byte(`{"kind":"actor_update","state":{"id":3,"map_id":1,"x":1,"alive":true,"player":true}}`))
	sys.Submit(Request{Kind: RequestUse, MapID: testMap, SpawnID: 11, Actor: 3})
	sys.Update(100 * time.Millisecond)
	assert.Equal(t, 1, e.actors.Count())
	used := e.logs.FilterMessage("object used").AllUntimed()
	require.Len(t, used, 1)
	assert.Equal(t, "ok", used[0].ContextMap()["result"])

	sys.Submit(Request{Kind: RequestActorLeave, Actor: 3})
	sys.Update(100 * time.Millisecond)
	assert.Zero(t, e.actors.Count())
}

func TestInteractionSystemReachesSubMachines(t *testing.T) {
	e := newEnv(t, nil, spawnRec(11))
	e.svc.Templates = data.NewObjectTable(
		data.ObjectTemplate{Entry: 5, Kind: data.KindGeneric, DisplayID: 1},
		data.ObjectTemplate{Entry: 33, Kind: data.KindDestructibleBuilding, DisplayID: 330,
			Building: &data.BuildingData{MaxHealth: 20000}},
	)
	sys := NewInteractionSystem(e.shards, e.actors, 8, 8, e.svc.Log)

	sys.HandleMessage([]byte(`{"kind":"summon","map_id":1,"entry":33,"pos":{"x":40,"y":2}}`))
	sys.Submit(Request{Kind: RequestSummon, MapID: 9, Entry: 33})
	sys.Submit(Request{Kind: RequestSummon, MapID: testMap, Entry: 404, Pos: world.Position{X: 1}})
	sys.Update(100 * time.Millisecond)
	assert.Equal(t, 2, e.m.Count())
	assert.Equal(t, 1, e.logs.FilterMessage("summon on unknown map").Len())
	assert.Equal(t, 1, e.logs.FilterMessage("summon failed").Len())

	var gate *world.GameObject
	for _, o := range e.m.Objects() {
		if o.Entry() == 33 {
			gate = o
		}
	}
	require.NotNil(t, gate)
	b, ok := gate.Building()
	require.True(t, ok)

	sys.Submit(Request{Kind: RequestDamage, MapID: testMap, Object: gate.ID(), Actor: 7, Delta: -999999})
	sys.Update(100 * time.Millisecond)
	assert.Zero(t, b.Health)
	assert.Equal(t, world.BuildingDestroyed, b.State)

	sys.Submit(Request{Kind: RequestViewerPosture, MapID: testMap, SpawnID: 11, Actor: 3, Posture: world.StateActive, TTLMs: 5000})
	sys.Submit(Request{Kind: RequestViewerDespawn, MapID: testMap, SpawnID: 11, Actor: 4, TTLMs: 5000})
	sys.Update(100 * time.Millisecond)
	o := e.m.BySpawn(11)
	assert.Equal(t, world.StateActive, o.PostureFor(3))
	assert.Equal(t, world.StateReady, o.PostureFor(4))
	assert.False(t, o.IsVisibleTo(4))
	assert.True(t, o.IsVisibleTo(3))
}

func TestEventDispatchDeliversLastTick(t *testing.T) {
	bus := event.NewBus()
	var got []event.ObjectRemoved
	event.Subscribe(bus, func(ev event.ObjectRemoved) { got = append(got, ev) })
	sys := NewEventDispatchSystem(bus)

	event.Emit(bus, event.ObjectRemoved{SpawnID: 4})
	assert.Empty(t, got)
	sys.Update(100 * time.Millisecond)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(4), got[0].SpawnID)

	sys.Update(100 * time.Millisecond)
	assert.Len(t, got, 1)
}

func TestCleanupFlushesDestroyQueue(t *testing.T) {
	w := ecs.NewWorld()
	id := w.CreateEntity()
	w.MarkForDestruction(id)
	require.Equal(t, 1, w.Pending())

	NewCleanupSystem(w, zap.NewNop()).Update(100 * time.Millisecond)
	assert.Zero(t, w.Pending())
	assert.False(t, w.Alive(id))
}

type fakeQueue struct{ pending, dropped int }

func (q *fakeQueue) Pending() int { return q.pending }
func (q *fakeQueue) Dropped() int { return q.dropped }

type fakePurger struct {
	mu      sync.Mutex
	cutoffs []int64
	keep    []data.LinkKey
}

func (p *fakePurger) PurgeExpired(_ context.Context, cutoff int64, keep []data.LinkKey) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, cutoff)
	p.keep = keep
	return 2, nil
}

func TestPersistenceSystem(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	q := &fakeQueue{}
	purger := &fakePurger{}
	master := data.LinkKey{Type: data.SpawnTypeGameObject, SpawnID: 70}
	links := data.NewLinkedRespawnTable(data.LinkedRespawn{
		Spawn:  data.LinkKey{Type: data.SpawnTypeGameObject, SpawnID: 71},
		Master: master,
	})
	sys := NewPersistenceSystem(q, purger, links, clock, time.Second, time.Second, zap.New(core))

	sys.Update(500 * time.Millisecond)
	sys.Wait()
	assert.Empty(t, purger.cutoffs)

	q.dropped = 3
	sys.Update(500 * time.Millisecond)
	sys.Wait()
	assert.Equal(t, []int64{clock.Now().Unix() - 1}, purger.cutoffs)
	assert.Equal(t, []data.LinkKey{master}, purger.keep, "link masters survive the purge")
	assert.Equal(t, 1, logs.FilterMessage("persist writes lost since last save").Len())
	assert.Equal(t, 1, logs.FilterMessage("respawn ledger purged").Len())

	sys.Update(time.Second)
	sys.Wait()
	assert.Equal(t, 1, logs.FilterMessage("persist writes lost since last save").Len(), "only new drops are reported")
}
