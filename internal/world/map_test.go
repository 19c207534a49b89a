package world

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/objectd/internal/core/ecs"
	"github.com/l1jgo/objectd/internal/core/event"
	"github.com/l1jgo/objectd/internal/data"
)

func TestAOIGrid(t *testing.T) {
	g := NewAOIGrid()
	g.Add(1, Position{X: 10, Y: 10})
	g.Add(2, Position{X: 150, Y: 10})
	g.Add(3, Position{X: 450, Y: 10})

	assert.ElementsMatch(t, []ecs.EntityID{1, 2}, g.GetNearby(Position{X: 20, Y: 20}, 50))
	assert.ElementsMatch(t, []ecs.EntityID{1, 2, 3}, g.GetNearby(Position{X: 20, Y: 20}, 450))

	g.Move(3, Position{X: 450, Y: 10}, Position{X: -20, Y: -20})
	assert.ElementsMatch(t, []ecs.EntityID{1, 2, 3}, g.GetNearby(Position{X: 20, Y: 20}, 50))

	g.Remove(1, Position{X: 10, Y: 10})
	g.Remove(9, Position{X: 10, Y: 10})
	assert.ElementsMatch(t, []ecs.EntityID{2, 3}, g.GetNearby(Position{X: 20, Y: 20}, 50))
}

func TestGridHintPacksCell(t *testing.T) {
	assert.Equal(t, uint32(1<<16|2), gridHint(Position{X: 150, Y: 250}))
	assert.Equal(t, uint32(0xFFFF<<16|0), gridHint(Position{X: -1, Y: 0}))
}

func TestNearbyObjectsFiltersByDistance(t *testing.T) {
	e := newEnv(t, genericTemplate(5))
	near := e.summon(SummonParams{Entry: 5, Pos: Position{X: 3}})
	e.summon(SummonParams{Entry: 5, Pos: Position{X: 40}})

	got := e.m.NearbyObjects(Position{}, 10)
	require.Len(t, got, 1)
	assert.Equal(t, near, got[0])

	near.Relocate(Position{X: 60})
	assert.Empty(t, e.m.NearbyObjects(Position{}, 10))
	assert.Equal(t, Position{X: 3}, near.StationaryPosition())

	near.Relocate(Position{X: float32(math.Inf(1))})
	assert.Equal(t, Position{X: 60}, near.Position())
}

func TestReAddCancelsPendingRemoval(t *testing.T) {
	e := newEnv(t, genericTemplate(5))
	o := e.summon(SummonParams{Entry: 5})

	e.m.RemoveFromMap(o, false)
	e.m.RemoveFromMap(o, false)
	assert.Equal(t, 1, e.m.PendingRemovals())
	assert.False(t, o.InMap())

	e.m.AddToMap(o)
	assert.Zero(t, e.m.PendingRemovals())
	assert.True(t, o.InMap())
	assert.Equal(t, 1, e.m.Count())

	e.tick(100 * time.Millisecond)
	assert.Equal(t, o, e.m.Object(o.ID()))
}

func TestFlushRemoveQueue(t *testing.T) {
	e := newEnv(t, genericTemplate(5))
	o := e.place(data.SpawnRecord{SpawnID: 4, Entry: 5})
	require.True(t, e.coll.models[o.ID()])

	e.m.RemoveFromMap(o, false)
	e.m.FlushRemoveQueue()
	assert.Zero(t, e.m.Count())
	assert.Nil(t, e.m.BySpawn(4))
	assert.False(t, e.coll.models[o.ID()])
	last, ok := e.pub.last("visibility")
	require.True(t, ok)
	assert.False(t, last.visible)

	assert.Equal(t, 1, e.svc.IDs.Pending())
	assert.Equal(t, 1, event.Pending[event.ObjectRemoved](e.bus))
	assert.Contains(t, e.spawns.recs, uint64(4), "a plain removal keeps the record")
}

func TestObjectsAddedDuringTickWaitForNextTick(t *testing.T) {
	e := newEnv(t, genericTemplate(5), data.ObjectTemplate{Entry: 6, Kind: data.KindGeneric, DisplayID: 1})
	spawner := &spawnOnTick{entry: 6}
	e.svc.Kinds.Register(KindInfo{Kind: data.KindGeneric, Behavior: spawner, UsableIn: MaskOf(LootReady)})
	e.summon(SummonParams{Entry: 5})

	e.tick(100 * time.Millisecond)
	require.Len(t, spawner.spawned, 1)
	child := spawner.spawned[0]
	assert.Equal(t, LootNotReady, child.LootState())

	e.tick(100 * time.Millisecond)
	assert.Equal(t, LootReady, child.LootState())
}

// spawnOnTick summons one object from the first object that ticks.
type spawnOnTick struct {
	baseBehavior
	entry   uint32
	spawned []*GameObject
}

func (s *spawnOnTick) OnTick(o *GameObject, _ int64) {
	if len(s.spawned) > 0 {
		return
	}
	child, err := o.Map().Summon(SummonParams{Entry: s.entry, Pos: o.Position()})
	if err == nil {
		s.spawned = append(s.spawned, child)
	}
}

func TestForeignMapAddIsRefused(t *testing.T) {
	e := newEnv(t, genericTemplate(5))
	other := NewMap(testMap+1, e.svc)
	o, err := Summon(e.m, SummonParams{Entry: 5})
	require.NoError(t, err)

	other.AddToMap(o)
	assert.Zero(t, other.Count())
	assert.Equal(t, 1, e.logged("object added to a foreign map"))

	_, err = e.m.Summon(SummonParams{Entry: 404})
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}
