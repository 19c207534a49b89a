package world

import (
	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/data"
)

// Use runs the interaction of actorID with the object. Rejections are
// reported through the result; Use never fails.
func (o *GameObject) Use(actorID ActorID) UseResult {
	actor, ok := o.svc.Actors.Actor(actorID)
	if !ok {
		o.log.Debug("use by unknown actor", zap.Uint64("actor", uint64(actorID)))
		return UseIgnored
	}
	if o.removed || !o.IsVisibleTo(actorID) {
		return UseIgnored
	}
	if o.info.UsableIn == 0 {
		return UseNotInteractable
	}
	if !o.info.UsableIn.has(o.lootState) {
		return UseIgnored
	}
	if actor.MapID() != o.m.ID() || actor.Position().Dist(o.stationary) > o.interactDistance() {
		return UseOutOfRange
	}
	if o.flags&(FlagLocked|FlagNotSelectable) != 0 || !o.meetsCondition(actor) {
		return UseConditionFailed
	}
	return o.runUse(actor)
}

// runUse runs the kind use handler for actor with no range, lock or
// condition gate.
func (o *GameObject) runUse(actor Actor) UseResult {
	out := ignored()
	if !o.hook("use", func() { out = o.info.Behavior.OnUse(o, actor) }) {
		return UseIgnored
	}
	if out.Result != UseOK {
		return out.Result
	}
	o.castDeferred(actor.ID(), actor.ID(), out)
	if o.lootState != LootJustDeactivated {
		o.checkCharges()
	}
	return UseOK
}

func (o *GameObject) meetsCondition(a Actor) bool {
	c := o.tmpl.Condition
	if c == nil {
		return true
	}
	if c.Faction != 0 && Faction(c.Faction) != a.Faction() {
		return false
	}
	return a.Level() >= c.MinLevel
}

// castDeferred resolves the effect a use handler returned.
func (o *GameObject) castDeferred(actor, target ActorID, out UseOutcome) {
	if out.Effect == 0 {
		return
	}
	if !o.svc.Effects.HasEffectDefinition(out.Effect) {
		o.log.Error("effect definition missing", zap.Uint32("effect_id", out.Effect))
		return
	}
	src := EffectSource{Object: o.id, Entry: o.tmpl.Entry, Actor: actor}
	switch {
	case out.ObjectCasts:
		src.Actor = 0
		src.OriginalCaster = o.owner
	case out.Caster != 0:
		if _, ok := o.svc.Actors.Actor(out.Caster); !ok {
			o.log.Debug("alternate caster gone", zap.Uint64("caster", uint64(out.Caster)))
			return
		}
		src.Actor = out.Caster
	}
	if !o.svc.Effects.CastEffect(src, target, out.Effect, nil) {
		o.log.Debug("effect cast failed", zap.Uint32("effect_id", out.Effect))
	}
}

// triggerLinkedTrap fires the linked trap at actor.
func (o *GameObject) triggerLinkedTrap(actor ActorID) {
	if trap := o.LinkedTrap(); trap != nil {
		trap.fireTrapAt(actor)
	}
}

// --- doors and buttons ---

// UseDoorOrButton swaps the posture and arms the auto reset. restoreMs 0
// takes the template auto close time.
func (o *GameObject) UseDoorOrButton(restoreMs uint32, alternative bool, actor ActorID) {
	if o.lootState != LootReady {
		return
	}
	if restoreMs == 0 {
		restoreMs = o.tmpl.AutoClose()
	}
	o.switchDoorOrButton(true, alternative)
	o.SetLootState(LootActivated, actor)
	if restoreMs > 0 {
		o.cooldownMs = o.nowMs() + int64(restoreMs)
	} else {
		o.cooldownMs = 0
	}
}

// ResetDoorOrButton returns a used door or button to its previous posture.
func (o *GameObject) ResetDoorOrButton() {
	if o.lootState == LootReady || o.lootState == LootJustDeactivated {
		return
	}
	o.RemoveFlag(FlagInUse)
	o.SetGoState(o.prevState)
	o.SetLootState(LootJustDeactivated, 0)
	o.cooldownMs = 0
}

func (o *GameObject) switchDoorOrButton(activate, alternative bool) {
	if activate {
		o.SetFlag(FlagInUse)
	} else {
		o.RemoveFlag(FlagInUse)
	}
	if o.state == StateReady {
		if alternative {
			o.SetGoState(StateDestroyed)
		} else {
			o.SetGoState(StateActive)
		}
		return
	}
	o.SetGoState(StateReady)
}

// --- activation from effects ---

// Action is an effect-driven activation code.
type Action uint8

const (
	ActionDisturb Action = iota
	ActionUnlock
	ActionLock
	ActionOpen
	ActionOpenAndUnlock
	ActionClose
	ActionToggleOpen
	ActionDestroy
	ActionRebuild
	ActionDespawn
	ActionMakeInert
	ActionMakeActive
	ActionCloseAndLock
	ActionGoToFloor
)

func (a Action) String() string {
	switch a {
	case ActionDisturb:
		return "disturb"
	case ActionUnlock:
		return "unlock"
	case ActionLock:
		return "lock"
	case ActionOpen:
		return "open"
	case ActionOpenAndUnlock:
		return "open_and_unlock"
	case ActionClose:
		return "close"
	case ActionToggleOpen:
		return "toggle_open"
	case ActionDestroy:
		return "destroy"
	case ActionRebuild:
		return "rebuild"
	case ActionDespawn:
		return "despawn"
	case ActionMakeInert:
		return "make_inert"
	case ActionMakeActive:
		return "make_active"
	case ActionCloseAndLock:
		return "close_and_lock"
	case ActionGoToFloor:
		return "go_to_floor"
	default:
		return "action(?)"
	}
}

// ActivateObject applies an effect-driven action. No distance checks apply.
// param is the floor index for ActionGoToFloor.
func (o *GameObject) ActivateObject(action Action, param int32, source ActorID) {
	o.log.Debug("activate object", zap.Stringer("action", action), zap.Uint64("source", uint64(source)))
	switch action {
	case ActionUnlock:
		o.RemoveFlag(FlagLocked)
	case ActionLock:
		o.SetFlag(FlagLocked)
	case ActionDisturb, ActionOpen:
		o.activateOpen(source)
	case ActionOpenAndUnlock:
		o.UseDoorOrButton(0, false, source)
		o.RemoveFlag(FlagLocked)
	case ActionClose:
		o.ResetDoorOrButton()
	case ActionRebuild:
		if o.tmpl.Kind == data.KindDestructibleBuilding {
			o.SetDestructibleState(BuildingRebuilding, uint64(source), true)
			return
		}
		o.ResetDoorOrButton()
	case ActionToggleOpen:
		if o.lootState == LootReady {
			o.UseDoorOrButton(0, false, source)
		} else {
			o.ResetDoorOrButton()
		}
	case ActionDestroy:
		if o.tmpl.Kind == data.KindDestructibleBuilding {
			o.SetDestructibleState(BuildingDestroyed, uint64(source), true)
			return
		}
		o.UseDoorOrButton(0, true, source)
	case ActionDespawn:
		o.DespawnOrUnsummon(0, 0)
	case ActionMakeInert:
		o.SetFlag(FlagNotSelectable)
	case ActionMakeActive:
		o.RemoveFlag(FlagNotSelectable)
	case ActionCloseAndLock:
		o.ResetDoorOrButton()
		o.SetFlag(FlagLocked)
	case ActionGoToFloor:
		o.GoToFloor(int(param))
	default:
		o.log.Error("unknown activation action", zap.Uint8("action", uint8(action)))
	}
}

// activateOpen uses the object on behalf of source regardless of range,
// lock and condition. Without a known source actor the posture is swapped
// directly.
func (o *GameObject) activateOpen(source ActorID) {
	if o.removed {
		return
	}
	if source != 0 {
		if actor, ok := o.svc.Actors.Actor(source); ok {
			o.runUse(actor)
			return
		}
	}
	o.UseDoorOrButton(0, false, source)
}
