package world

import "github.com/l1jgo/objectd/internal/data"

// fishingNodeBehavior is the bobber of a fishing cast. It belongs to the
// caster, splashes shortly before its lifetime ends and can only be reeled
// in by its owner.
type fishingNodeBehavior struct{ baseBehavior }

func (fishingNodeBehavior) OnArm(o *GameObject) bool {
	if o.respawnEpoch != 0 {
		readyAt := o.respawnEpoch - int64(o.svc.Tuning.BobberReady.Seconds())
		if o.now().Unix() < readyAt {
			return false
		}
	}
	if owner, ok := o.Owner(); ok && owner.IsPlayer() {
		o.SendCustomAnim(0)
	}
	return true
}

func (fishingNodeBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	if o.owner != a.ID() {
		return ignored()
	}
	if o.lootState != LootReady {
		// reeled in before the splash
		o.SetLootState(LootJustDeactivated, a.ID())
		o.svc.Interact.FishEscaped(a.ID())
		return used()
	}
	if hole := o.lookupFishingHole(); hole != nil {
		hole.openLoot(a.ID())
		o.SetLootState(LootJustDeactivated, a.ID())
		return used()
	}
	return o.openLoot(a.ID())
}

func (fishingNodeBehavior) OnReset(o *GameObject) {
	// the bobber lifetime ran out without a catch
	if owner, ok := o.Owner(); ok && owner.IsPlayer() {
		o.svc.Interact.FishEscaped(owner.ID())
	}
	o.SetLootState(LootJustDeactivated, 0)
}

// lookupFishingHole returns a spawned fishing hole whose radius covers the
// bobber.
func (o *GameObject) lookupFishingHole() *GameObject {
	for _, h := range o.m.NearbyObjects(o.pos, visibilityRange) {
		if h.Kind() != data.KindFishingHole || !h.IsSpawned() || h.removed {
			continue
		}
		var radius float32
		if h.tmpl.FishingHole != nil {
			radius = h.tmpl.FishingHole.Radius
		}
		if h.pos.Dist(o.pos) <= radius {
			return h
		}
	}
	return nil
}

// fishingHoleBehavior is a school that empties after a rolled number of
// loots and then respawns.
type fishingHoleBehavior struct{ baseBehavior }

func (fishingHoleBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	return o.openLoot(a.ID())
}

func (fishingHoleBehavior) OnReset(o *GameObject) {
	if p, ok := o.FishingHole(); ok && o.tmpl.FishingHole != nil {
		p.MaxOpens = o.randUint32(o.tmpl.FishingHole.MinOpens, o.tmpl.FishingHole.MaxOpens)
	}
}
