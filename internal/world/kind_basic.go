package world

import "math"

// doorBehavior serves doors; buttons embed it.
type doorBehavior struct{ baseBehavior }

func (doorBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	if o.lootState == LootActivated {
		if o.cooldownMs != 0 {
			return ignored()
		}
		// no auto close: a second use closes it again
		o.ResetDoorOrButton()
		return used()
	}
	o.UseDoorOrButton(0, false, a.ID())
	return used()
}

func (doorBehavior) OnActivated(o *GameObject) {
	if o.cooldownMs != 0 && o.nowMs() >= o.cooldownMs {
		o.ResetDoorOrButton()
	}
}

func (doorBehavior) OnReset(o *GameObject) {
	if o.state != o.prevState {
		o.RemoveFlag(FlagInUse)
		o.SetGoState(o.prevState)
	}
}

func (doorBehavior) OnRestock(o *GameObject) bool {
	o.SetLootState(LootReady, 0)
	return true
}

type buttonBehavior struct{ doorBehavior }

func (b buttonBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	if o.lootState == LootReady {
		o.triggerLinkedTrap(a.ID())
	}
	return b.doorBehavior.OnUse(o, a)
}

// gossipBehavior opens the template's gossip menu or text page.
type gossipBehavior struct{ baseBehavior }

func (gossipBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	if o.tmpl.GossipID != 0 {
		o.svc.Interact.OpenGossip(a.ID(), o.id, o.tmpl.GossipID)
	}
	return used()
}

type genericBehavior struct{ baseBehavior }

// spellBehavior casts the template spell on the user.
type spellBehavior struct{ baseBehavior }

func (spellBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	return UseOutcome{Result: UseOK, Effect: o.tmpl.SpellID}
}

type cameraBehavior struct{ baseBehavior }

func (cameraBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	if o.tmpl.GossipID != 0 {
		o.svc.Interact.StartCinematic(a.ID(), o.tmpl.GossipID)
	}
	return UseOutcome{Result: UseOK, Effect: o.tmpl.SpellID}
}

type spellFocusBehavior struct{ baseBehavior }

func (spellFocusBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	o.triggerLinkedTrap(a.ID())
	return used()
}

// spellCasterBehavior casts for every user until its charges run out.
type spellCasterBehavior struct{ baseBehavior }

func (spellCasterBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	if o.tmpl.PartyOnly {
		owner, ok := o.Owner()
		if !ok || !owner.IsPlayer() || !a.IsPlayer() || !o.svc.Actors.SameGroup(a.ID(), owner.ID()) {
			return ignored()
		}
	}
	o.AddUse()
	return UseOutcome{Result: UseOK, Effect: o.tmpl.SpellID}
}

// flagBehavior hands out the flag spell. Dropped flags go away once taken.
type flagBehavior struct {
	baseBehavior
	drop bool
}

func (f flagBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	if !a.IsPlayer() || !a.IsAlive() {
		return ignored()
	}
	if f.drop {
		o.SetLootState(LootJustDeactivated, a.ID())
	}
	return UseOutcome{Result: UseOK, Effect: o.tmpl.SpellID}
}

// chairBehavior seats the user on the nearest free slot. Slots lie on a
// line through the chair, orthogonal to its facing.
type chairBehavior struct{ baseBehavior }

func (chairBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	p, ok := o.Chair()
	if !ok || len(p.Slots) == 0 {
		return ignored()
	}
	size := o.tmpl.Size
	if size <= 0 {
		size = 1
	}
	orth := float64(o.pos.O) + math.Pi/2
	best := -1
	bestDist := visibilityRange
	var bestSeat Position
	for i, occupant := range p.Slots {
		rel := float64(size*float32(i)) - float64(size*float32(len(p.Slots)-1))/2
		seat := Position{
			X: o.pos.X + float32(rel*math.Cos(orth)),
			Y: o.pos.Y + float32(rel*math.Sin(orth)),
			Z: o.pos.Z,
			O: o.pos.O,
		}
		if occupant != 0 && occupant != a.ID() {
			if u, ok := o.svc.Actors.Actor(occupant); ok && u.Position().Dist2D(seat) < 0.1 {
				continue
			}
			p.Slots[i] = 0
		}
		if d := a.Position().Dist2D(seat); d <= bestDist {
			best, bestDist, bestSeat = i, d, seat
		}
	}
	if best < 0 {
		return ignored()
	}
	for i, occupant := range p.Slots {
		if occupant == a.ID() {
			p.Slots[i] = 0
		}
	}
	p.Slots[best] = a.ID()
	var height float32
	if o.tmpl.Chair != nil {
		height = o.tmpl.Chair.Height
	}
	o.svc.Interact.Sit(a.ID(), bestSeat, height)
	return used()
}
