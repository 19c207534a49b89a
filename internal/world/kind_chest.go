package world

// chestBehavior loots, restocks in place or despawns once consumed.
type chestBehavior struct{ baseBehavior }

func (chestBehavior) OnArm(o *GameObject) bool {
	if o.restockEpoch > o.now().Unix() {
		return false
	}
	o.restockEpoch = 0
	o.clearLoot()
	o.updateDynamicFlagsForNearby()
	return true
}

func (chestBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	return o.openLoot(a.ID())
}

func (chestBehavior) OnActivated(o *GameObject) {
	if o.cooldownMs != 0 && o.nowMs() >= o.cooldownMs {
		o.cooldownMs = 0
		o.SetLootState(LootJustDeactivated, o.lootActor)
		return
	}
	c := o.tmpl.Chest
	if c == nil || c.Consumable || o.restockEpoch == 0 || o.now().Unix() < o.restockEpoch {
		return
	}
	// partially looted and the restock time passed
	o.restockEpoch = 0
	o.lootState = LootReady
	o.clearLoot()
	o.updateDynamicFlagsForNearby()
}

func (chestBehavior) OnRestock(o *GameObject) bool {
	if c := o.tmpl.Chest; c != nil && c.RestockSeconds > 0 {
		o.restockEpoch = o.now().Unix() + int64(c.RestockSeconds)
		o.SetLootState(LootNotReady, 0)
		o.updateDynamicFlagsForNearby()
		return true
	}
	o.SetLootState(LootReady, 0)
	return true
}

// gatheringBehavior is a node every looter gathers from once; it hides for
// that looter afterwards and stays live for the others.
type gatheringBehavior struct{ baseBehavior }

func (gatheringBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	return o.openLoot(a.ID())
}

func (gatheringBehavior) OnRestock(o *GameObject) bool {
	o.SetLootState(LootReady, 0)
	return true
}
