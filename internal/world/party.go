package world

// MaxGroupSize caps the members of one actor group.
const MaxGroupSize = 40

// groupTable tracks which actors share loot and use credit. A group is
// keyed by its leader; every member maps back to the leader.
type groupTable struct {
	groups   map[ActorID][]ActorID // leader -> members, leader first
	memberOf map[ActorID]ActorID   // member -> leader
}

func newGroupTable() *groupTable {
	return &groupTable{
		groups:   make(map[ActorID][]ActorID),
		memberOf: make(map[ActorID]ActorID),
	}
}

// set replaces the group led by members[0]. Members leave any group they
// were in before. Fewer than two members dissolves the group.
func (g *groupTable) set(members []ActorID) {
	if len(members) == 0 {
		return
	}
	leader := members[0]
	g.dissolve(leader)
	if len(members) < 2 {
		g.leave(leader)
		return
	}
	if len(members) > MaxGroupSize {
		members = members[:MaxGroupSize]
	}
	for _, id := range members {
		g.leave(id)
	}
	g.groups[leader] = append([]ActorID(nil), members...)
	for _, id := range members {
		g.memberOf[id] = leader
	}
}

// leave removes id from its group. A group left with one member dissolves.
func (g *groupTable) leave(id ActorID) {
	leader, ok := g.memberOf[id]
	if !ok {
		return
	}
	delete(g.memberOf, id)
	members := g.groups[leader]
	for i, m := range members {
		if m == id {
			members = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(members) < 2 {
		for _, m := range members {
			delete(g.memberOf, m)
		}
		delete(g.groups, leader)
		return
	}
	if leader == id {
		// the next member leads
		delete(g.groups, leader)
		leader = members[0]
		for _, m := range members {
			g.memberOf[m] = leader
		}
	}
	g.groups[leader] = members
}

func (g *groupTable) dissolve(leader ActorID) {
	for _, m := range g.groups[leader] {
		delete(g.memberOf, m)
	}
	delete(g.groups, leader)
}

// members returns the group of id, or just id when ungrouped.
func (g *groupTable) members(id ActorID) []ActorID {
	leader, ok := g.memberOf[id]
	if !ok {
		return []ActorID{id}
	}
	return append([]ActorID(nil), g.groups[leader]...)
}

func (g *groupTable) same(a, b ActorID) bool {
	if a == b {
		return true
	}
	la, ok := g.memberOf[a]
	if !ok {
		return false
	}
	lb, ok := g.memberOf[b]
	return ok && la == lb
}
