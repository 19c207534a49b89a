package world

import (
	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/core/event"
)

// gooberBehavior is a scripted switch: it records its users, credits them
// when it deactivates and optionally stays in use for its auto close time.
type gooberBehavior struct{ baseBehavior }

func (gooberBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	if o.tmpl.GossipID != 0 {
		o.svc.Interact.OpenGossip(a.ID(), o.id, o.tmpl.GossipID)
	}
	if g := o.tmpl.Goober; g != nil && g.Teleport != nil {
		o.svc.Interact.Teleport(a.ID(), *g.Teleport)
	}
	o.AddUniqueUse(a.ID())
	o.triggerLinkedTrap(a.ID())

	if closeMs := o.tmpl.AutoClose(); closeMs > 0 {
		o.SetFlag(FlagInUse)
		o.SetLootState(LootActivated, a.ID())
		if o.tmpl.Goober != nil && o.tmpl.Goober.CustomAnim {
			o.SendCustomAnim(uint32(o.anim))
		} else {
			o.SetGoState(StateActive)
		}
		o.cooldownMs = o.nowMs() + int64(closeMs)
	} else {
		o.SetLootState(LootJustDeactivated, a.ID())
	}
	return UseOutcome{Result: UseOK, Effect: o.tmpl.SpellID}
}

func (gooberBehavior) OnActivated(o *GameObject) {
	if o.nowMs() >= o.cooldownMs {
		o.RemoveFlag(FlagInUse)
		o.SetLootState(LootJustDeactivated, o.lootActor)
		o.cooldownMs = 0
	}
}

func (gooberBehavior) OnDeactivate(o *GameObject) {
	o.distributeUseCredit()
	if o.tmpl.LockID != 0 || o.tmpl.AutoClose() != 0 {
		o.SetGoState(StateReady)
	}
}

func (gooberBehavior) OnRestock(o *GameObject) bool {
	o.SetLootState(LootReady, 0)
	return true
}

// distributeUseCredit credits every recorded user, or the group of each
// when the goober grants group credit. The unit that deactivated the
// goober counts as a user when none were recorded.
func (o *GameObject) distributeUseCredit() {
	users := make([]ActorID, 0, len(o.uniqueUsers)+1)
	for u := range o.uniqueUsers {
		users = append(users, u)
	}
	if len(users) == 0 && o.lootActor != 0 {
		users = append(users, o.lootActor)
	}
	g := o.tmpl.Goober
	credited := make(map[ActorID]struct{}, len(users))
	for _, u := range users {
		members := []ActorID{u}
		if g != nil && g.GroupCredit {
			members = o.svc.Actors.GroupMembers(u)
		}
		for _, m := range members {
			if _, done := credited[m]; done {
				continue
			}
			credited[m] = struct{}{}
			o.svc.Interact.GrantUseCredit(m, o.tmpl.Entry)
			event.Emit(o.svc.Bus, event.UseCreditGranted{ObjectID: o.id, Entry: o.tmpl.Entry, ActorID: uint64(m)})
			if g != nil && g.CreditSpell != 0 {
				o.castDeferred(m, m, UseOutcome{Effect: g.CreditSpell})
			}
		}
	}
	if len(credited) > 0 {
		o.log.Debug("use credit granted", zap.Int("actors", len(credited)))
	}
}

// ritualBehavior gathers participants and fires once enough took part.
type ritualBehavior struct{ baseBehavior }

func (ritualBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	cfg := o.tmpl.Ritual
	p, ok := o.Ritual()
	if cfg == nil || !ok {
		o.log.Warn("ritual template has no ritual block")
		return ignored()
	}
	if !a.IsPlayer() {
		return ignored()
	}

	owner, owned := o.Owner()
	if !owned && p.Owner == 0 {
		p.Owner = a.ID()
	}
	var caster ActorID
	if owned {
		if !owner.IsPlayer() {
			return ignored()
		}
		if a.ID() != owner.ID() && !o.svc.Actors.SameGroup(a.ID(), owner.ID()) {
			return ignored()
		}
		caster = owner.ID()
	} else {
		if a.ID() != p.Owner && cfg.CastersGrouped && !o.svc.Actors.SameGroup(a.ID(), p.Owner) {
			return ignored()
		}
		caster = a.ID()
	}

	o.AddUniqueUse(a.ID())
	if cfg.AnimSpell != 0 {
		o.castDeferred(a.ID(), a.ID(), UseOutcome{Effect: cfg.AnimSpell})
	}
	if uint32(o.UniqueUseCount()) < cfg.Casters {
		return used()
	}

	if p.Owner != 0 {
		caster = p.Owner
	}
	if cfg.Persistent {
		p.Owner = 0
		o.clearUsers()
	} else {
		o.SetLootState(LootJustDeactivated, a.ID())
	}
	return UseOutcome{Result: UseOK, Effect: o.tmpl.SpellID, Caster: caster}
}

func (ritualBehavior) OnDeactivate(o *GameObject) {
	if p, ok := o.Ritual(); ok {
		p.Owner = 0
	}
}
