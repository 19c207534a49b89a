package world

import "time"

// Trap charge modes; 0 rearms after every shot.
const (
	trapSingle  = 1
	trapIsBomb  = 2
	secondsToMs = int64(time.Second / time.Millisecond)
)

type trapBehavior struct{ baseBehavior }

func (trapBehavior) OnArm(o *GameObject) bool {
	switch {
	case o.tmpl.TrapCharges() == trapIsBomb:
		o.cooldownMs = o.nowMs() + o.svc.Tuning.BombArmDelay.Milliseconds()
	default:
		if owner, ok := o.Owner(); ok && owner.InCombat() && o.tmpl.Trap != nil {
			o.cooldownMs = o.nowMs() + int64(o.tmpl.Trap.StartDelaySec)*secondsToMs
		}
	}
	return true
}

func (trapBehavior) OnReady(o *GameObject) {
	if o.nowMs() < o.cooldownMs {
		return
	}
	if o.tmpl.TrapCharges() == trapIsBomb {
		o.SetLootState(LootActivated, 0)
		return
	}
	if o.tmpl.Trap == nil || o.tmpl.Trap.Radius <= 0 {
		// only fired explicitly by its parent
		return
	}
	if target := o.acquireTrapTarget(o.tmpl.Trap.Radius); target != 0 {
		o.SetLootState(LootActivated, target)
	}
}

func (trapBehavior) OnActivated(o *GameObject) {
	if o.tmpl.TrapCharges() == trapIsBomb {
		o.castDeferred(0, 0, UseOutcome{Effect: o.tmpl.SpellID, ObjectCasts: true})
		o.SetLootState(LootJustDeactivated, 0)
		return
	}
	target, ok := o.svc.Actors.Actor(o.lootActor)
	if !ok || !target.IsAlive() {
		o.SetLootState(LootReady, 0)
		return
	}
	o.fireTrapAt(target.ID())
	if o.lootState == LootActivated {
		o.SetLootState(LootReady, 0)
	}
}

func (trapBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	o.fireTrapAt(a.ID())
	return used()
}

// fireTrapAt casts the trap effect on target and starts the cooldown.
// Single-charge traps deactivate.
func (o *GameObject) fireTrapAt(target ActorID) {
	o.castDeferred(0, target, UseOutcome{Effect: o.tmpl.SpellID, ObjectCasts: true})
	cooldown := o.svc.Tuning.TrapCooldown
	if o.tmpl.Trap != nil && o.tmpl.Trap.CooldownSec > 0 {
		cooldown = time.Duration(o.tmpl.Trap.CooldownSec) * time.Second
	}
	o.cooldownMs = o.nowMs() + cooldown.Milliseconds()
	if o.tmpl.TrapCharges() == trapSingle {
		o.SetLootState(LootJustDeactivated, target)
	}
}

// acquireTrapTarget picks the closest unit the trap should fire at: units
// hostile to the owner for owned traps, players for environmental ones.
func (o *GameObject) acquireTrapTarget(radius float32) ActorID {
	owner, owned := o.Owner()
	var best ActorID
	bestDist := radius
	for _, a := range o.svc.Actors.NearbyActors(o.m.ID(), o.pos, radius) {
		if !a.IsAlive() {
			continue
		}
		if owned {
			if a.ID() == owner.ID() || (owner.Faction() != FactionNeutral && a.Faction() == owner.Faction()) {
				continue
			}
		} else if !a.IsPlayer() {
			continue
		}
		if d := a.Position().Dist(o.pos); d <= bestDist {
			best, bestDist = a.ID(), d
		}
	}
	return best
}
