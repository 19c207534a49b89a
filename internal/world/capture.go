package world

import (
	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/core/event"
)

type capturePointBehavior struct{ baseBehavior }

func (capturePointBehavior) OnUse(o *GameObject, a Actor) UseOutcome {
	if !o.AssaultCapturePoint(a.ID()) {
		return ignored()
	}
	return used()
}

// OnTick counts down a running assault and captures at zero.
func (capturePointBehavior) OnTick(o *GameObject, diff int64) {
	p, ok := o.CapturePoint()
	if !ok || p.AssaultTimerMs <= 0 {
		return
	}
	p.AssaultTimerMs -= diff
	if p.AssaultTimerMs > 0 {
		return
	}
	p.AssaultTimerMs = 0
	switch p.State {
	case CaptureContestedA:
		o.UpdateCapturePoint(CaptureCapturedA, FactionA)
	case CaptureContestedB:
		o.UpdateCapturePoint(CaptureCapturedB, FactionB)
	}
}

func contestedBy(f Faction) CaptureState {
	if f == FactionA {
		return CaptureContestedA
	}
	return CaptureContestedB
}

func capturedBy(f Faction) CaptureState {
	if f == FactionA {
		return CaptureCapturedA
	}
	return CaptureCapturedB
}

// holder returns the faction contesting or holding the point.
func (p *CapturePoint) holder() Faction {
	switch p.State {
	case CaptureContestedA, CaptureCapturedA:
		return FactionA
	case CaptureContestedB, CaptureCapturedB:
		return FactionB
	default:
		return FactionNeutral
	}
}

// CanInteractWithCapturePoint reports whether actorID may assault the
// point: anyone on a neutral point, otherwise only the other faction.
func (o *GameObject) CanInteractWithCapturePoint(actorID ActorID) bool {
	p, ok := o.CapturePoint()
	if !ok {
		return false
	}
	a, ok := o.svc.Actors.Actor(actorID)
	if !ok || !a.IsAlive() || a.Faction() == FactionNeutral {
		return false
	}
	if p.State == CaptureNeutral {
		return true
	}
	return p.holder() != a.Faction()
}

// AssaultCapturePoint starts an assault by actorID. A faction retaking a
// point it held last captures it at once.
func (o *GameObject) AssaultCapturePoint(actorID ActorID) bool {
	p, ok := o.CapturePoint()
	if !ok || !o.CanInteractWithCapturePoint(actorID) {
		return false
	}
	if o.ai != nil && o.ai.OnCapturePointAssaulted(actorID) {
		return true
	}
	a, _ := o.svc.Actors.Actor(actorID)
	team := a.Faction()

	if p.LastTeamCapture == team {
		p.AssaultTimerMs = 0
		o.UpdateCapturePoint(capturedBy(team), team)
		return true
	}
	var timeMs int64
	if o.tmpl.CapturePoint != nil {
		timeMs = int64(o.tmpl.CapturePoint.CaptureTimeMs)
	}
	if timeMs <= 0 {
		o.UpdateCapturePoint(capturedBy(team), team)
		return true
	}
	p.AssaultTimerMs = timeMs
	o.UpdateCapturePoint(contestedBy(team), team)
	return true
}

// UpdateCapturePoint moves the point to state on behalf of team, then
// broadcasts it unless the AI takes over.
func (o *GameObject) UpdateCapturePoint(state CaptureState, team Faction) {
	p, ok := o.CapturePoint()
	if !ok {
		return
	}
	p.State = state
	if state == CaptureCapturedA || state == CaptureCapturedB {
		p.LastTeamCapture = team
	}
	o.log.Debug("capture point state", zap.Stringer("state", state), zap.Stringer("team", team))
	if o.ai != nil && o.ai.OnCapturePointUpdated(state) {
		return
	}
	o.publishFields(o.broadcast(), FieldDynamicFlags|FieldSpellVisual)
	o.updateDynamicFlagsForCapture()
	event.Emit(o.svc.Bus, event.CapturePointChanged{
		ObjectID: o.id,
		Entry:    o.tmpl.Entry,
		MapID:    o.m.ID(),
		State:    uint8(state),
		Team:     uint8(team),
	})
}

func (o *GameObject) updateDynamicFlagsForCapture() {
	radius := visibilityRange
	if c := o.tmpl.CapturePoint; c != nil && c.Radius > 0 {
		radius = c.Radius
	}
	o.updateDynamicFlagsWithin(radius)
}
