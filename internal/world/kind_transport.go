package world

import "go.uber.org/zap"

// transportBehavior moves an elevator-like object along its path. It
// pauses at each stop frame when cycling, or halts at a requested floor.
type transportBehavior struct{ baseBehavior }

func (transportBehavior) OnCreate(o *GameObject) {
	if p, ok := o.Transport(); ok && p.PeriodMs > 0 {
		o.state = StateTransportActive
		o.prevState = StateTransportActive
		o.flags |= FlagTransport
	}
}

func (transportBehavior) OnTick(o *GameObject, diff int64) {
	p, ok := o.Transport()
	if !ok || p.PeriodMs == 0 || o.state != StateTransportActive {
		return
	}
	if p.PauseLeftMs > 0 {
		p.PauseLeftMs -= diff
		return
	}
	prev := p.PathProgressMs
	next := uint32((int64(prev) + diff) % int64(p.PeriodMs))
	stop := crossedStop(p.StopFrames, prev, next)
	if stop < 0 {
		p.PathProgressMs = next
		return
	}
	switch {
	case p.TargetStop == stop:
		p.PathProgressMs = p.StopFrames[stop]
		p.CurrentStop = stop
		p.TargetStop = -1
		o.SetGoState(StateTransportStopped)
	case p.TargetStop < 0:
		p.PathProgressMs = p.StopFrames[stop]
		p.CurrentStop = stop
		if o.tmpl.Transport != nil {
			p.PauseLeftMs = int64(o.tmpl.Transport.PauseMs)
		}
		if p.PauseLeftMs == 0 {
			// no pause: keep the overshoot
			p.PathProgressMs = next
		}
	default:
		p.PathProgressMs = next
	}
}

// crossedStop returns the index of the first stop frame in (prev, next],
// honouring wrap-around, or -1.
func crossedStop(stops []uint32, prev, next uint32) int {
	for i, s := range stops {
		if next >= prev {
			if s > prev && s <= next {
				return i
			}
		} else if s > prev || s <= next {
			return i
		}
	}
	return -1
}

// GoToFloor sends a stopped transport to stop frame floor.
func (o *GameObject) GoToFloor(floor int) {
	p, ok := o.Transport()
	if !ok {
		o.log.Warn("go to floor on a non-transport")
		return
	}
	if floor < 0 || floor >= len(p.StopFrames) {
		o.log.Warn("go to floor out of range", zap.Int("floor", floor), zap.Int("floors", len(p.StopFrames)))
		return
	}
	if o.state == StateTransportStopped && p.CurrentStop == floor {
		return
	}
	p.TargetStop = floor
	p.PauseLeftMs = 0
	o.SetGoState(StateTransportActive)
}
