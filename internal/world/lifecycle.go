package world

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/data"
)

// Update advances the object by diff milliseconds. The map calls it once
// per tick. Order: despawn countdown, kind tick hook, viewer override sweep,
// loot state switch.
func (o *GameObject) Update(diff int64) {
	if o.removed {
		return
	}

	if o.despawnDelayMs > 0 {
		if o.despawnDelayMs > diff {
			o.despawnDelayMs -= diff
		} else {
			o.despawnDelayMs = 0
			o.despawnNow(o.despawnRespawn)
			if o.removed {
				return
			}
		}
	}
	if o.owner != 0 {
		if _, ok := o.Owner(); !ok {
			o.log.Debug("owner gone, despawning", zap.Uint64("owner", uint64(o.owner)))
			o.owner = 0
			o.despawnNow(0)
			if o.removed {
				return
			}
		}
	}

	o.hook("tick", func() { o.info.Behavior.OnTick(o, diff) })

	o.sweepViewers()

	switch o.lootState {
	case LootNotReady:
		if !o.arm() {
			return
		}
		fallthrough
	case LootReady:
		o.updateReady()
	case LootActivated:
		o.hook("activated", func() { o.info.Behavior.OnActivated(o) })
	case LootJustDeactivated:
		o.updateDeactivated()
	default:
		o.log.Error("loot state out of range, resetting", zap.Uint8("loot_state", uint8(o.lootState)))
		o.lootState = LootNotReady
	}
}

func (o *GameObject) arm() bool {
	ok := false
	if !o.hook("arm", func() { ok = o.info.Behavior.OnArm(o) }) || !ok {
		return false
	}
	if o.lootState != LootNotReady {
		// the kind resolved to another state itself
		return o.lootState == LootReady
	}
	o.lootState = LootReady
	return true
}

func (o *GameObject) updateReady() {
	now := o.now().Unix()
	if o.compat && o.respawnEpoch > 0 && o.respawnEpoch <= now {
		if o.spawnID != 0 {
			if epoch, gated := o.m.linkedRespawn(o.spawnID, now); gated {
				o.respawnEpoch = epoch
				o.SaveRespawnTime(0)
				return
			}
			o.svc.Ledger.RemoveRespawnTime(data.SpawnTypeGameObject, o.spawnID)
		}
		o.respawnEpoch = 0
		o.clearUsers()

		o.hook("reset", func() { o.info.Behavior.OnReset(o) })
		if o.lootState != LootReady || o.removed {
			return
		}
		if !o.spawnedByDefault {
			o.SetLootState(LootJustDeactivated, 0)
			return
		}
		if o.ai != nil {
			o.ai.Reset()
		}
		if pool := o.poolID(); pool != 0 {
			o.svc.Pools.UpdatePool(pool, o.spawnID)
		} else {
			o.m.AddToMap(o)
		}
	}

	if !o.compat && o.respawnEpoch > 0 {
		o.SaveRespawnTime(0)
	}

	if o.IsSpawned() {
		o.hook("ready", func() { o.info.Behavior.OnReady(o) })
		if o.lootState == LootReady {
			o.checkCharges()
		}
	}
}

func (o *GameObject) updateDeactivated() {
	if trap := o.LinkedTrap(); trap != nil {
		trap.DespawnOrUnsummon(0, 0)
	}
	o.hook("deactivate", func() { o.info.Behavior.OnDeactivate(o) })
	o.clearUsers()
	o.clearLoot()
	if o.removed {
		return
	}

	summonedExpired := (o.owner != 0 || o.spellID != 0) && o.respawnEpoch == 0
	if !o.tmpl.IsDespawnAtAction() && !summonedExpired {
		stay := false
		o.hook("restock", func() { stay = o.info.Behavior.OnRestock(o) })
		if stay {
			o.svc.Publisher.PublishVisibilityUpdate(o.broadcast(), o.id, o.IsSpawned())
			return
		}
	}
	if o.owner != 0 || o.spellID != 0 {
		o.SetRespawnTime(0)
		o.Delete()
		return
	}

	o.SetLootState(LootNotReady, 0)
	if o.tmpl.IsDespawnAtAction() || o.anim > 0 {
		o.svc.Publisher.PublishDespawnSignal(o.broadcast(), o.id)
		o.resetFlags()
	}

	if o.respawnDelay == 0 {
		return
	}
	if !o.spawnedByDefault {
		o.respawnEpoch = 0
		if o.spawnID != 0 {
			o.svc.Publisher.PublishVisibilityUpdate(o.broadcast(), o.id, false)
		} else {
			o.Delete()
		}
		return
	}

	o.respawnEpoch = o.now().Unix() + int64(o.respawnDelay)
	o.SaveRespawnTime(0)
	if !o.compat {
		o.m.RemoveFromMap(o, false)
		return
	}
	o.svc.Publisher.PublishVisibilityUpdate(o.broadcast(), o.id, false)
	o.removeModel()
}

// DespawnOrUnsummon despawns after delay, forcing a respawn delay when
// forceRespawn is positive. Repeated calls only ever shorten a pending delay.
func (o *GameObject) DespawnOrUnsummon(delay, forceRespawn time.Duration) {
	if delay > 0 {
		ms := delay.Milliseconds()
		if o.despawnDelayMs == 0 || o.despawnDelayMs > ms {
			o.despawnDelayMs = ms
			o.despawnRespawn = int64(forceRespawn / time.Second)
		}
		return
	}
	o.despawnNow(int64(forceRespawn / time.Second))
}

func (o *GameObject) despawnNow(forceRespawn int64) {
	o.despawnDelayMs = 0
	if o.spawnID != 0 {
		delay := forceRespawn
		if delay <= 0 {
			delay = int64(o.respawnDelay)
		}
		o.SaveRespawnTime(uint32(delay))
	}
	o.Delete()
}

// checkCharges deactivates a charge-bearing object whose use cap is reached.
func (o *GameObject) checkCharges() {
	if c := o.tmpl.UseCharges(); c > 0 && o.useCount >= c {
		o.useCount = 0
		o.SetLootState(LootJustDeactivated, o.lootActor)
	}
}

func (o *GameObject) poolID() uint32 {
	if o.spawnID == 0 {
		return 0
	}
	return o.svc.Pools.PoolOf(o.spawnID)
}

// LinkedTrap returns the trap spawned alongside the object, if still on the map.
func (o *GameObject) LinkedTrap() *GameObject {
	if o.linkedTrap.IsZero() {
		return nil
	}
	t := o.m.Object(o.linkedTrap)
	if t == nil {
		o.linkedTrap = 0
	}
	return t
}
