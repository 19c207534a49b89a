package world

import (
	"github.com/l1jgo/objectd/internal/core/ecs"
)

// ActorSnapshot is the state the owning service reports for one actor.
type ActorSnapshot struct {
	ID      ActorID   `json:"id"`
	Faction Faction   `json:"faction"`
	Level   int       `json:"level"`
	MapID   uint32    `json:"map_id"`
	X       float32   `json:"x"`
	Y       float32   `json:"y"`
	Z       float32   `json:"z"`
	O       float32   `json:"o"`
	Player  bool      `json:"player"`
	Alive   bool      `json:"alive"`
	Combat  bool      `json:"combat"`
	Group   []ActorID `json:"group,omitempty"` // leader first; set only by the leader
}

type snapshotActor struct {
	s ActorSnapshot
}

func (a *snapshotActor) ID() ActorID      { return a.s.ID }
func (a *snapshotActor) Faction() Faction { return a.s.Faction }
func (a *snapshotActor) Level() int       { return a.s.Level }
func (a *snapshotActor) MapID() uint32    { return a.s.MapID }
func (a *snapshotActor) IsPlayer() bool   { return a.s.Player }
func (a *snapshotActor) IsAlive() bool    { return a.s.Alive }
func (a *snapshotActor) InCombat() bool   { return a.s.Combat }

func (a *snapshotActor) Position() Position {
	return Position{X: a.s.X, Y: a.s.Y, Z: a.s.Z, O: a.s.O}
}

// State is the ActorRegistry of this process: the last snapshot of every
// actor near the simulated maps. Game loop access only.
type State struct {
	actors map[ActorID]*snapshotActor
	aoi    map[uint32]*AOIGrid
	groups *groupTable
}

func NewState() *State {
	return &State{
		actors: make(map[ActorID]*snapshotActor),
		aoi:    make(map[uint32]*AOIGrid),
		groups: newGroupTable(),
	}
}

func (s *State) grid(mapID uint32) *AOIGrid {
	g := s.aoi[mapID]
	if g == nil {
		g = NewAOIGrid()
		s.aoi[mapID] = g
	}
	return g
}

// Apply stores a snapshot, moving the actor between cells and maps.
func (s *State) Apply(snap ActorSnapshot) {
	if snap.ID == 0 {
		return
	}
	key := ecs.EntityID(snap.ID)
	a, ok := s.actors[snap.ID]
	switch {
	case !ok:
		a = &snapshotActor{}
		s.actors[snap.ID] = a
		s.grid(snap.MapID).Add(key, Position{X: snap.X, Y: snap.Y})
	case a.s.MapID != snap.MapID:
		s.grid(a.s.MapID).Remove(key, a.Position())
		s.grid(snap.MapID).Add(key, Position{X: snap.X, Y: snap.Y})
	default:
		s.grid(snap.MapID).Move(key, a.Position(), Position{X: snap.X, Y: snap.Y})
	}
	a.s = snap
	if len(snap.Group) > 0 {
		s.groups.set(snap.Group)
	}
}

// Remove forgets an actor and takes it out of its group.
func (s *State) Remove(id ActorID) {
	a, ok := s.actors[id]
	if !ok {
		return
	}
	s.grid(a.s.MapID).Remove(ecs.EntityID(id), a.Position())
	delete(s.actors, id)
	s.groups.leave(id)
}

func (s *State) Count() int { return len(s.actors) }

func (s *State) Actor(id ActorID) (Actor, bool) {
	a, ok := s.actors[id]
	if !ok {
		return nil, false
	}
	return a, true
}

// NearbyActors returns the actors of mapID within radius of pos.
func (s *State) NearbyActors(mapID uint32, pos Position, radius float32) []Actor {
	g := s.aoi[mapID]
	if g == nil {
		return nil
	}
	var out []Actor
	for _, key := range g.GetNearby(pos, radius) {
		a := s.actors[ActorID(key)]
		if a != nil && a.Position().Dist(pos) <= radius {
			out = append(out, a)
		}
	}
	return out
}

func (s *State) GroupMembers(id ActorID) []ActorID { return s.groups.members(id) }

func (s *State) SameGroup(a, b ActorID) bool { return s.groups.same(a, b) }
