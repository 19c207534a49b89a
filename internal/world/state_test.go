package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTracksActors(t *testing.T) {
	s := NewState()
	s.Apply(ActorSnapshot{ID: 1, MapID: 1, X: 10, Player: true, Alive: true})
	s.Apply(ActorSnapshot{ID: 2, MapID: 1, X: 300})
	s.Apply(ActorSnapshot{})
	require.Equal(t, 2, s.Count())

	a, ok := s.Actor(1)
	require.True(t, ok)
	assert.True(t, a.IsPlayer())
	assert.Equal(t, Position{X: 10}, a.Position())

	near := s.NearbyActors(1, Position{}, 50)
	require.Len(t, near, 1)
	assert.Equal(t, ActorID(1), near[0].ID())

	s.Apply(ActorSnapshot{ID: 2, MapID: 1, X: 20})
	assert.Len(t, s.NearbyActors(1, Position{}, 50), 2)

	s.Apply(ActorSnapshot{ID: 2, MapID: 2, X: 20})
	assert.Len(t, s.NearbyActors(1, Position{}, 50), 1)
	assert.Len(t, s.NearbyActors(2, Position{}, 50), 1)

	s.Remove(1)
	s.Remove(9)
	_, ok = s.Actor(1)
	assert.False(t, ok)
	assert.Empty(t, s.NearbyActors(1, Position{}, 50))
}

func TestStateGroups(t *testing.T) {
	s := NewState()
	s.Apply(ActorSnapshot{ID: 1, Group: []ActorID{1, 2, 3}})
	s.Apply(ActorSnapshot{ID: 2})
	s.Apply(ActorSnapshot{ID: 3})

	assert.Equal(t, []ActorID{1, 2, 3}, s.GroupMembers(2))
	assert.True(t, s.SameGroup(2, 3))
	assert.Equal(t, []ActorID{4}, s.GroupMembers(4))
	assert.False(t, s.SameGroup(1, 4))

	s.Remove(1)
	assert.Equal(t, []ActorID{2, 3}, s.GroupMembers(3), "the next member leads")
	assert.True(t, s.SameGroup(2, 3))

	s.Remove(2)
	assert.Equal(t, []ActorID{3}, s.GroupMembers(3), "a group of one dissolves")
	assert.False(t, s.SameGroup(2, 3))
}

func TestGroupRejoin(t *testing.T) {
	g := newGroupTable()
	g.set([]ActorID{1, 2})
	g.set([]ActorID{3, 2, 4})

	assert.Equal(t, []ActorID{1}, g.members(1), "2 left the first group, which dissolved")
	assert.Equal(t, []ActorID{3, 2, 4}, g.members(2))

	g.set([]ActorID{3})
	assert.Equal(t, []ActorID{2}, g.members(2))
}
