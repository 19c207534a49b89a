package world

import (
	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/core/event"
)

type buildingBehavior struct{ baseBehavior }

func (buildingBehavior) OnCreate(o *GameObject) {
	if p, ok := o.Building(); ok {
		o.anim = healthProgress(p.Health, p.MaxHealth)
	}
}

func healthProgress(health, maxHealth uint32) uint8 {
	if maxHealth == 0 {
		return 0
	}
	return uint8(uint64(health) * 255 / uint64(maxHealth))
}

// damagedThreshold is the health below which a building counts as damaged.
func (o *GameObject) damagedThreshold(p *Building) uint32 {
	if b := o.tmpl.Building; b != nil && b.DamagedThreshold > 0 {
		return b.DamagedThreshold
	}
	return p.MaxHealth / 2
}

// ModifyHealth applies delta to a building, clamped to [0, max]. The
// structural state changes only when health crosses into another bucket.
func (o *GameObject) ModifyHealth(delta int64, source uint64) {
	p, ok := o.Building()
	if !ok || p.MaxHealth == 0 || delta == 0 {
		return
	}
	if delta < 0 && p.Health == 0 {
		return
	}
	h := int64(p.Health) + delta
	switch {
	case h <= 0:
		p.Health = 0
	case h >= int64(p.MaxHealth):
		p.Health = p.MaxHealth
	default:
		p.Health = uint32(h)
	}
	o.SetAnimProgress(healthProgress(p.Health, p.MaxHealth))

	next := p.State
	switch {
	case p.Health == 0:
		next = BuildingDestroyed
	case p.Health < o.damagedThreshold(p):
		next = BuildingDamaged
	case p.Health == p.MaxHealth:
		next = BuildingIntact
	}
	if next == p.State {
		return
	}
	o.SetDestructibleState(next, source, false)
}

// SetDestructibleState forces a building into state. resetHealth also
// moves health to the canonical value of the bucket.
func (o *GameObject) SetDestructibleState(state DestructibleState, source uint64, resetHealth bool) {
	p, ok := o.Building()
	if !ok {
		o.log.Warn("destructible state on a non-building", zap.Stringer("state", state))
		return
	}
	b := o.tmpl.Building
	display := o.tmpl.DisplayID
	toggle, collide := true, true
	switch state {
	case BuildingIntact:
		o.RemoveFlag(FlagDamaged | FlagDestroyed)
		if resetHealth {
			p.Health = p.MaxHealth
		}
	case BuildingDamaged:
		o.RemoveFlag(FlagDestroyed)
		o.SetFlag(FlagDamaged)
		if b != nil && b.DamagedDisplayID != 0 {
			display = b.DamagedDisplayID
		}
		if resetHealth {
			p.Health = 1
			if t := o.damagedThreshold(p); t > 1 {
				p.Health = t - 1
			}
		}
		toggle = false
	case BuildingDestroyed:
		o.RemoveFlag(FlagDamaged)
		o.SetFlag(FlagDestroyed)
		if b != nil && b.DestroyedDisplayID != 0 {
			display = b.DestroyedDisplayID
		}
		if resetHealth {
			p.Health = 0
		}
		collide = false
	case BuildingRebuilding:
		o.RemoveFlag(FlagDamaged | FlagDestroyed)
		if b != nil && b.RebuildingDisplayID != 0 {
			display = b.RebuildingDisplayID
		}
		if resetHealth {
			p.Health = p.MaxHealth
		}
	default:
		o.log.Error("unknown destructible state", zap.Uint8("state", uint8(state)))
		return
	}
	p.State = state
	o.SetDisplayID(display)
	if toggle {
		// after the display swap, which re-inserts the model
		o.setCollision(collide)
	}
	if resetHealth {
		o.SetAnimProgress(healthProgress(p.Health, p.MaxHealth))
	}
	o.log.Debug("building state", zap.Stringer("state", state), zap.Uint32("health", p.Health))
	event.Emit(o.svc.Bus, event.BuildingStateChanged{
		ObjectID: o.id,
		Entry:    o.tmpl.Entry,
		MapID:    o.m.ID(),
		State:    uint8(state),
		SourceID: source,
	})
}
