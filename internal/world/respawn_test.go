package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/objectd/internal/data"
)

func consumableChest(entry uint32) data.ObjectTemplate {
	return data.ObjectTemplate{
		Entry: entry, Name: "strongbox", Kind: data.KindChest, DisplayID: 20, LootID: 5,
		Chest: &data.ChestData{Consumable: true},
	}
}

// lootOut opens the chest for actor and releases a fully consumed session.
func lootOut(t *testing.T, e *testEnv, o *GameObject, actor ActorID) {
	t.Helper()
	require.Equal(t, UseOK, o.Use(actor))
	require.NotEmpty(t, e.loot.sessions)
	e.loot.sessions[len(e.loot.sessions)-1].consumed = true
	o.ReleaseLoot(actor)
	require.Equal(t, LootJustDeactivated, o.LootState())
}

func TestCompatRespawnInPlace(t *testing.T) {
	e := newEnv(t, consumableChest(1))
	chest := e.place(data.SpawnRecord{SpawnID: 1, Entry: 1, RespawnDelay: 30})
	a := e.player(1, Position{X: 1})
	e.tick(100 * time.Millisecond)

	lootOut(t, e, chest, a.id)
	e.tick(100 * time.Millisecond)

	assert.True(t, chest.InMap(), "compatibility mode keeps the object registered")
	assert.False(t, chest.IsSpawned())
	assert.False(t, chest.IsVisibleTo(a.id))
	assert.False(t, e.coll.models[chest.ID()])
	assert.Equal(t, e.unix()+30, chest.RespawnEpoch())
	assert.Equal(t, chest.RespawnEpoch(), e.ledger.epochs[1])
	assert.Equal(t, UseIgnored, chest.Use(a.id))
	last, _ := e.pub.last("visibility")
	assert.False(t, last.visible)

	e.tick(31 * time.Second)
	assert.True(t, chest.IsSpawned())
	assert.True(t, chest.IsVisibleTo(a.id))
	assert.Zero(t, chest.RespawnEpoch())
	assert.Empty(t, e.ledger.epochs)
	assert.True(t, e.coll.models[chest.ID()])
	last, _ = e.pub.last("visibility")
	assert.True(t, last.visible)
	assert.Equal(t, UseOK, chest.Use(a.id))
}

func TestPoolModeRespawnRoundTrip(t *testing.T) {
	e := newEnv(t, consumableChest(1))
	e.svc.Groups = data.NewSpawnGroupTable(true, data.SpawnGroup{ID: 7, Name: "pool"})
	chest := e.place(data.SpawnRecord{SpawnID: 1, Entry: 1, RespawnDelay: 30, GroupID: 7})
	require.False(t, chest.Compatibility())
	a := e.player(1, Position{X: 1})
	e.tick(100 * time.Millisecond)

	lootOut(t, e, chest, a.id)
	e.tick(100 * time.Millisecond)

	assert.Nil(t, e.m.BySpawn(1), "pool mode removes the object")
	epoch := e.ledger.RespawnTime(data.SpawnTypeGameObject, 1)
	assert.Equal(t, e.unix()+30, epoch)
	assert.Equal(t, 1, e.m.KnownSpawns())

	assert.Zero(t, e.m.ProcessRespawns(e.clock.Now()))
	e.clock.Advance(30 * time.Second)
	assert.Equal(t, 1, e.m.ProcessRespawns(e.clock.Now()))
	respawned := e.m.BySpawn(1)
	require.NotNil(t, respawned)
	assert.True(t, respawned.IsSpawned())
	assert.Zero(t, e.ledger.RespawnTime(data.SpawnTypeGameObject, 1))
}

func TestLoadSpawnsSkipsPendingPoolRespawn(t *testing.T) {
	e := newEnv(t, consumableChest(1), genericTemplate(2))
	e.svc.Groups = data.NewSpawnGroupTable(true,
		data.SpawnGroup{ID: 7, Name: "pool"},
		data.SpawnGroup{ID: 8, Name: "event", CompatibilityMode: true, ManualSpawn: true},
	)
	recs := []data.SpawnRecord{
		{SpawnID: 1, Entry: 1, MapID: testMap, RespawnDelay: 30, GroupID: 7},
		{SpawnID: 2, Entry: 1, MapID: testMap, RespawnDelay: 30, GroupID: 7},
		{SpawnID: 3, Entry: 2, MapID: testMap, GroupID: 8},
		{SpawnID: 4, Entry: 2, MapID: testMap},
		{SpawnID: 5, Entry: 2, MapID: testMap + 1},
	}
	for _, r := range recs {
		e.spawns.recs[r.SpawnID] = r
	}
	e.ledger.epochs[2] = e.unix() + 60
	e.pools.pools[4] = 3

	assert.Equal(t, 1, e.m.LoadSpawns(recs))
	assert.NotNil(t, e.m.BySpawn(1))
	assert.Nil(t, e.m.BySpawn(2))
	assert.Nil(t, e.m.BySpawn(3))
	assert.Nil(t, e.m.BySpawn(4))
	assert.Equal(t, 4, e.m.KnownSpawns())

	e.clock.Advance(time.Minute)
	assert.Equal(t, 1, e.m.ProcessRespawns(e.clock.Now()))
	assert.NotNil(t, e.m.BySpawn(2))
}

func TestLinkedRespawnGatesCompatObject(t *testing.T) {
	e := newEnv(t, consumableChest(1))
	key := data.LinkKey{Type: data.SpawnTypeGameObject, SpawnID: 1}
	e.svc.Links = data.NewLinkedRespawnTable(data.LinkedRespawn{
		Spawn:  key,
		Master: data.LinkKey{Type: data.SpawnTypeCreature, SpawnID: 500},
	})
	chest := e.place(data.SpawnRecord{SpawnID: 1, Entry: 1, RespawnDelay: 30})
	a := e.player(1, Position{X: 1})
	e.tick(100 * time.Millisecond)
	lootOut(t, e, chest, a.id)
	e.tick(100 * time.Millisecond)

	masterEpoch := e.unix() + 120
	e.ledger.linked[key] = masterEpoch
	e.tick(31 * time.Second)

	assert.False(t, chest.IsSpawned(), "dead master holds the respawn")
	assert.Equal(t, masterEpoch+10, chest.RespawnEpoch())
	assert.Equal(t, masterEpoch+10, e.ledger.epochs[1])

	delete(e.ledger.linked, key)
	e.clock.Advance(2 * time.Minute)
	e.tick(100 * time.Millisecond)
	assert.True(t, chest.IsSpawned())
}

func TestSelfLinkedRespawnIsPushedBack(t *testing.T) {
	e := newEnv(t, consumableChest(1))
	e.svc.Groups = data.NewSpawnGroupTable(true, data.SpawnGroup{ID: 7, Name: "pool"})
	key := data.LinkKey{Type: data.SpawnTypeGameObject, SpawnID: 1}
	e.svc.Links = data.NewLinkedRespawnTable(data.LinkedRespawn{Spawn: key, Master: key})
	rec := data.SpawnRecord{SpawnID: 1, Entry: 1, MapID: testMap, RespawnDelay: 30, GroupID: 7}
	e.spawns.recs[1] = rec
	e.ledger.epochs[1] = e.unix() + 5
	e.ledger.linked[key] = e.unix() + 5

	assert.Zero(t, e.m.LoadSpawns([]data.SpawnRecord{rec}))
	e.clock.Advance(10 * time.Second)
	assert.Zero(t, e.m.ProcessRespawns(e.clock.Now()))
	assert.Equal(t, e.unix()+int64((7*24*time.Hour)/time.Second), e.ledger.epochs[1])
	assert.Equal(t, 1, e.logged("spawn links its respawn to itself"))
}

func TestSetRespawnTime(t *testing.T) {
	e := newEnv(t, genericTemplate(5))
	o := e.place(data.SpawnRecord{SpawnID: 1, Entry: 5, RespawnDelay: -60})
	require.False(t, o.IsSpawned())
	e.pub.reset()

	o.SetRespawnTime(45)
	assert.True(t, o.IsSpawned(), "a timer on a hidden spawn shows it")
	assert.Equal(t, uint32(45), o.RespawnDelay())
	assert.Equal(t, 1, e.pub.count("visibility", 0))

	o.SetRespawnTime(0)
	assert.Zero(t, o.RespawnEpoch())
	assert.Zero(t, o.RespawnDelay())
}

func TestSaveRespawnTimeRules(t *testing.T) {
	e := newEnv(t, genericTemplate(5))
	o := e.place(data.SpawnRecord{SpawnID: 1, Entry: 5, RespawnDelay: 60})

	o.SaveRespawnTime(0)
	assert.Zero(t, e.ledger.saves, "nothing scheduled")

	o.SaveRespawnTime(90)
	assert.Equal(t, e.unix()+90, e.ledger.epochs[1])

	s := e.summon(SummonParams{Entry: 5, Lifetime: time.Minute})
	s.SaveRespawnTime(90)
	assert.Equal(t, 1, e.ledger.saves, "ephemeral objects are never persisted")
}
