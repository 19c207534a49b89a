package world

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/data"
)

// LootSessionFor returns the session actor loots from, creating and filling
// it on first access. Personal-loot kinds hand every looter an own session
// and never create the shared one.
func (o *GameObject) LootSessionFor(actor ActorID) LootSession {
	if o.tmpl.LootID == 0 {
		return nil
	}
	groupRules, money := false, false
	if c := o.tmpl.Chest; c != nil {
		groupRules, money = c.GroupRules, c.Money
	}

	if o.personal() {
		if s, ok := o.personalLoot[actor]; ok {
			return s
		}
		s := o.svc.Loot.NewLootSession(o.id)
		s.Fill(o.tmpl.LootID, actor, false, money, o.lootMode, o.m.Difficulty())
		if o.personalLoot == nil {
			o.personalLoot = make(map[ActorID]LootSession)
		}
		o.personalLoot[actor] = s
		return s
	}

	if o.loot == nil {
		o.loot = o.svc.Loot.NewLootSession(o.id)
		o.loot.Fill(o.tmpl.LootID, actor, groupRules, money, o.lootMode, o.m.Difficulty())
	}
	return o.loot
}

// HasSharedLoot reports whether a shared session is open.
func (o *GameObject) HasSharedLoot() bool { return o.loot != nil }

// PersonalLootCount returns how many per-looter sessions are open.
func (o *GameObject) PersonalLootCount() int { return len(o.personalLoot) }

// openLoot starts looting for actor and marks the object in use.
func (o *GameObject) openLoot(actor ActorID) UseOutcome {
	s := o.LootSessionFor(actor)
	if s == nil {
		o.log.Warn("lootable object has no loot id")
		return ignored()
	}
	s.GrantTo(actor)
	if o.lootState == LootReady && !o.personal() {
		o.SetLootState(LootActivated, actor)
		if c := o.tmpl.Chest; c != nil && c.LootTimeoutMs > 0 {
			o.cooldownMs = o.nowMs() + int64(c.LootTimeoutMs)
		}
	}
	return used()
}

func (o *GameObject) clearLoot() {
	o.loot = nil
	o.personalLoot = nil
}

// ReleaseLoot resolves the object after actor closes its loot window.
func (o *GameObject) ReleaseLoot(actor ActorID) {
	var s LootSession
	if o.personal() {
		s = o.personalLoot[actor]
	} else {
		s = o.loot
	}
	if s == nil {
		return
	}
	consumed := s.IsFullyConsumed()

	switch o.tmpl.Kind {
	case data.KindFishingHole:
		o.AddUse()
		p, _ := o.FishingHole()
		o.loot = nil
		if p != nil && o.useCount >= p.MaxOpens {
			o.SetLootState(LootJustDeactivated, actor)
		} else {
			o.SetLootState(LootReady, actor)
		}
	case data.KindFishingNode:
		o.SetLootState(LootJustDeactivated, actor)
	case data.KindGatheringNode:
		if !consumed {
			return
		}
		delete(o.personalLoot, actor)
		ttl := time.Duration(o.respawnDelay) * time.Second
		if g := o.tmpl.Gathering; g != nil && g.ViewerRespawnSec > 0 {
			ttl = time.Duration(g.ViewerRespawnSec) * time.Second
		}
		o.DespawnForViewer(actor, ttl)
	default:
		if o.personal() {
			if consumed {
				delete(o.personalLoot, actor)
				o.DespawnForViewer(actor, time.Duration(o.respawnDelay)*time.Second)
			}
			return
		}
		if consumed || o.tmpl.IsDespawnAtAction() {
			o.SetLootState(LootJustDeactivated, actor)
			return
		}
		o.SetLootState(LootActivated, actor)
	}
	o.log.Debug("loot released", zap.Uint64("actor", uint64(actor)), zap.Bool("consumed", consumed))
}
