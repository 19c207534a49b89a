package loot

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/l1jgo/objectd/internal/data"
	"github.com/l1jgo/objectd/internal/world"
)

type groups map[world.ActorID][]world.ActorID

func (g groups) Actor(world.ActorID) (world.Actor, bool)                    { return nil, false }
func (g groups) NearbyActors(uint32, world.Position, float32) []world.Actor { return nil }
func (g groups) SameGroup(a, b world.ActorID) bool                          { return a == b }

func (g groups) GroupMembers(id world.ActorID) []world.ActorID {
	if m, ok := g[id]; ok {
		return m
	}
	return []world.ActorID{id}
}

func chestLoot() *data.LootTable {
	return data.NewLootTable(data.LootEntry{
		LootID:   10,
		MoneyMin: 5,
		MoneyMax: 5,
		Items: []data.LootItem{
			{ItemID: 1, Min: 2, Max: 2, Chance: 1000000},
			{ItemID: 2, Chance: 0},
			{ItemID: 3, Chance: 1000000, Heroic: true},
			{ItemID: 4, Chance: 1000000, LootMode: 0x4},
		},
	})
}

func TestFillRollsByChanceModeAndDifficulty(t *testing.T) {
	f := NewFactory(chestLoot(), rand.New(rand.NewSource(1)), nil, zap.NewNop())

	s := f.Open(1)
	s.Fill(10, 7, false, true, data.LootModeDefault, 0)
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int32(1), items[0].ItemID)
	assert.Equal(t, 2, items[0].Count)
	assert.Equal(t, int64(5), s.Money())

	heroic := f.Open(1)
	heroic.Fill(10, 7, false, false, data.LootModeDefault|0x4, 1)
	assert.Len(t, heroic.Items(), 3)
	assert.Zero(t, heroic.Money(), "money only when requested")
	assert.NotEqual(t, s.ID, heroic.ID)
}

func TestTakeUntilConsumed(t *testing.T) {
	f := NewFactory(chestLoot(), rand.New(rand.NewSource(1)), nil, zap.NewNop())
	var ls world.LootSession = f.NewLootSession(1)
	s := ls.(*Session)
	s.Fill(10, 7, false, true, data.LootModeDefault, 0)

	_, err := s.Take(7, 0)
	assert.ErrorIs(t, err, ErrNotLooter)

	s.GrantTo(7)
	it, err := s.Take(7, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), it.ItemID)
	_, err = s.Take(7, 0)
	assert.ErrorIs(t, err, ErrTaken)
	_, err = s.Take(7, 5)
	assert.ErrorIs(t, err, ErrNoSlot)
	assert.False(t, s.IsFullyConsumed(), "money is left")

	m, err := s.TakeMoney(7)
	require.NoError(t, err)
	assert.Equal(t, int64(5), m)
	assert.True(t, s.IsFullyConsumed())
}

func TestGroupRulesGrantWholeGroup(t *testing.T) {
	f := NewFactory(chestLoot(), rand.New(rand.NewSource(1)), groups{7: {7, 8, 9}}, zap.NewNop())
	s := f.Open(1)
	s.Fill(10, 7, true, false, data.LootModeDefault, 0)
	s.GrantTo(7)
	assert.True(t, s.CanLoot(8))
	assert.True(t, s.CanLoot(9))
	assert.False(t, s.CanLoot(10))

	solo := f.Open(1)
	solo.Fill(10, 7, false, false, data.LootModeDefault, 0)
	solo.GrantTo(7)
	assert.False(t, solo.CanLoot(8))
}

func TestUnknownLootIDIsEmptyAndConsumed(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f := NewFactory(nil, rand.New(rand.NewSource(1)), nil, zap.New(core))
	s := f.Open(3)
	s.Fill(404, 7, false, true, data.LootModeDefault, 0)
	assert.Empty(t, s.Items())
	assert.True(t, s.IsFullyConsumed())
	assert.Equal(t, 1, logs.FilterMessage("loot id has no entries").Len())
}
