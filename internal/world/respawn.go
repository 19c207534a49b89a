package world

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/data"
)

// SaveRespawnTime persists the respawn epoch of a database-backed,
// spawned-by-default object. forceDelay > 0 persists now+forceDelay instead
// of the live epoch. Nothing is written when the live epoch is not in the
// future and no delay is forced.
func (o *GameObject) SaveRespawnTime(forceDelay uint32) {
	if o.spawnID == 0 || !o.spawnedByDefault {
		return
	}
	now := o.now().Unix()
	if forceDelay == 0 && o.respawnEpoch <= now {
		return
	}
	epoch := o.respawnEpoch
	if forceDelay > 0 {
		epoch = now + int64(forceDelay)
	}
	o.svc.Ledger.SaveRespawnTime(data.SpawnTypeGameObject, o.spawnID, o.tmpl.Entry, epoch, gridHint(o.pos))
}

// SetRespawnTime schedules a respawn seconds from now and makes it the new
// default delay. seconds <= 0 clears scheduling.
func (o *GameObject) SetRespawnTime(seconds int64) {
	if seconds <= 0 {
		o.respawnEpoch = 0
		o.respawnDelay = 0
		return
	}
	o.respawnEpoch = o.now().Unix() + seconds
	o.respawnDelay = uint32(seconds)
	if !o.spawnedByDefault && o.inMap {
		o.svc.Publisher.PublishVisibilityUpdate(o.broadcast(), o.id, true)
	}
}

// IsSpawned reports whether the object is currently part of the world for
// viewers. Exactly three field combinations count as spawned:
//   - no respawn delay: the object never leaves,
//   - a running timer on an object not spawned by default: a temporary summon,
//   - no timer on an object spawned by default: the resting state.
//
// A running timer on a default spawn means it waits for respawn; a dormant
// object not spawned by default waits for a trigger.
func (o *GameObject) IsSpawned() bool {
	return o.respawnDelay == 0 ||
		(o.respawnEpoch > 0 && !o.spawnedByDefault) ||
		(o.respawnEpoch == 0 && o.spawnedByDefault)
}

// linkedRespawn checks whether the respawn of spawnID is gated by a dead
// link master. When gated it returns the epoch to wait for instead.
func (m *Map) linkedRespawn(spawnID uint64, now int64) (int64, bool) {
	key := data.LinkKey{Type: data.SpawnTypeGameObject, SpawnID: spawnID}
	linked := m.svc.Ledger.LinkedRespawnTime(key)
	if linked == 0 {
		return 0, false
	}
	master, _ := m.svc.Links.Master(key)
	if master == key {
		m.log.Warn("spawn links its respawn to itself", zap.Uint64("spawn_id", spawnID))
		return now + int64(m.svc.Tuning.SelfLinkDelay/time.Second), true
	}
	base := now
	if linked > base {
		base = linked
	}
	jitter := m.svc.randRange(m.svc.Tuning.LinkedJitterMin, m.svc.Tuning.LinkedJitterMax)
	return base + int64(jitter/time.Second), true
}
