package world

import "time"

// viewerOverride is a transient deviation from the shared state for one
// viewer.
type viewerOverride struct {
	validUntilMs int64
	despawned    bool
	hasPosture   bool
	posture      GOState
}

func (o *GameObject) override(v ActorID) *viewerOverride {
	if o.viewers == nil {
		o.viewers = make(map[ActorID]*viewerOverride)
	}
	ov := o.viewers[v]
	if ov == nil {
		ov = &viewerOverride{}
		o.viewers[v] = ov
	}
	return ov
}

// liveOverride returns the viewer's entry, expiring it first if its time
// is up.
func (o *GameObject) liveOverride(v ActorID) *viewerOverride {
	ov := o.viewers[v]
	if ov == nil {
		return nil
	}
	if ov.validUntilMs <= o.nowMs() {
		o.expireOverride(v, ov)
		return nil
	}
	return ov
}

// expireOverride drops an entry and re-sends what it hid to that viewer.
func (o *GameObject) expireOverride(v ActorID, ov *viewerOverride) {
	delete(o.viewers, v)
	if ov.despawned {
		o.svc.Publisher.PublishVisibilityUpdate(o.viewer(v), o.id, o.IsSpawned())
		return
	}
	if ov.hasPosture {
		o.svc.Publisher.PublishPostureChange(o.viewer(v), o.id, o.state)
	}
}

// DespawnForViewer hides the object from one viewer for ttl while it stays
// live for everyone else.
func (o *GameObject) DespawnForViewer(v ActorID, ttl time.Duration) {
	ov := o.override(v)
	ov.despawned = true
	ov.validUntilMs = o.nowMs() + ttl.Milliseconds()
	o.svc.Publisher.PublishDespawnSignal(o.viewer(v), o.id)
}

// SetPostureForViewer shows one viewer another posture for ttl without
// touching the shared one.
func (o *GameObject) SetPostureForViewer(v ActorID, s GOState, ttl time.Duration) {
	ov := o.override(v)
	ov.hasPosture = true
	ov.posture = s
	ov.validUntilMs = o.nowMs() + ttl.Milliseconds()
	o.svc.Publisher.PublishPostureChange(o.viewer(v), o.id, s)
}

// IsVisibleTo reports whether viewer v sees the object.
func (o *GameObject) IsVisibleTo(v ActorID) bool {
	if !o.IsSpawned() || !o.InMap() {
		return false
	}
	ov := o.liveOverride(v)
	return ov == nil || !ov.despawned
}

// PostureFor returns the posture viewer v sees.
func (o *GameObject) PostureFor(v ActorID) GOState {
	if ov := o.liveOverride(v); ov != nil && ov.hasPosture {
		return ov.posture
	}
	return o.state
}

// ViewerOverrides returns how many viewer entries are held, expired or not.
func (o *GameObject) ViewerOverrides() int { return len(o.viewers) }

func (o *GameObject) sweepViewers() {
	if len(o.viewers) == 0 {
		return
	}
	now := o.nowMs()
	for v, ov := range o.viewers {
		if ov.validUntilMs <= now {
			o.expireOverride(v, ov)
		}
	}
}
