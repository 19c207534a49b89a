package world

import "github.com/l1jgo/objectd/internal/data"

// Payload is the kind-specific state of an object. Exactly one concrete
// payload exists per object, chosen by its kind at creation.
type Payload interface {
	payloadKind() data.Kind
}

// CaptureState is the ownership state of a capture point.
type CaptureState uint8

const (
	CaptureNeutral CaptureState = iota
	CaptureContestedA
	CaptureContestedB
	CaptureCapturedA
	CaptureCapturedB
)

func (s CaptureState) String() string {
	switch s {
	case CaptureNeutral:
		return "neutral"
	case CaptureContestedA:
		return "contested_a"
	case CaptureContestedB:
		return "contested_b"
	case CaptureCapturedA:
		return "captured_a"
	case CaptureCapturedB:
		return "captured_b"
	default:
		return "capture_state(?)"
	}
}

type CapturePoint struct {
	State           CaptureState
	LastTeamCapture Faction
	AssaultTimerMs  int64
}

// DestructibleState is the structural bucket of a destructible building.
type DestructibleState uint8

const (
	BuildingIntact DestructibleState = iota
	BuildingDamaged
	BuildingDestroyed
	BuildingRebuilding
)

func (s DestructibleState) String() string {
	switch s {
	case BuildingIntact:
		return "intact"
	case BuildingDamaged:
		return "damaged"
	case BuildingDestroyed:
		return "destroyed"
	case BuildingRebuilding:
		return "rebuilding"
	default:
		return "destructible_state(?)"
	}
}

type Building struct {
	Health    uint32
	MaxHealth uint32
	State     DestructibleState
}

type FishingHole struct {
	MaxOpens uint32
}

// Transport advances along a looping path with optional stop frames.
type Transport struct {
	PathProgressMs uint32
	PeriodMs       uint32
	StopFrames     []uint32
	CurrentStop    int // index of the stop the transport rests at or last left
	TargetStop     int // -1 = cycle through every stop
	PauseLeftMs    int64
}

// Chair maps seat slot to the seated actor (0 = free).
type Chair struct {
	Slots []ActorID
}

type Trap struct {
	Charges uint32 // 0 = rearms, 1 = single use, 2 = bomb
}

type Ritual struct {
	Owner ActorID // participant who started an unowned ritual
}

func (*CapturePoint) payloadKind() data.Kind { return data.KindCapturePoint }
func (*Building) payloadKind() data.Kind     { return data.KindDestructibleBuilding }
func (*FishingHole) payloadKind() data.Kind  { return data.KindFishingHole }
func (*Transport) payloadKind() data.Kind    { return data.KindTransport }
func (*Chair) payloadKind() data.Kind        { return data.KindChair }
func (*Trap) payloadKind() data.Kind         { return data.KindTrap }
func (*Ritual) payloadKind() data.Kind       { return data.KindRitual }

// newPayload builds the payload of a kind, nil for kinds without one.
func newPayload(t *data.ObjectTemplate, rnd func(lo, hi uint32) uint32) Payload {
	switch t.Kind {
	case data.KindCapturePoint:
		return &CapturePoint{State: CaptureNeutral}
	case data.KindDestructibleBuilding:
		maxHealth := uint32(1)
		if t.Building != nil && t.Building.MaxHealth > 0 {
			maxHealth = t.Building.MaxHealth
		}
		return &Building{Health: maxHealth, MaxHealth: maxHealth, State: BuildingIntact}
	case data.KindFishingHole:
		p := &FishingHole{}
		if t.FishingHole != nil {
			p.MaxOpens = rnd(t.FishingHole.MinOpens, t.FishingHole.MaxOpens)
		}
		return p
	case data.KindTransport:
		p := &Transport{TargetStop: -1}
		if t.Transport != nil {
			p.PeriodMs = t.Transport.PeriodMs
			p.StopFrames = append([]uint32(nil), t.Transport.StopsMs...)
		}
		return p
	case data.KindChair:
		n := uint32(1)
		if t.Chair != nil && t.Chair.Slots > 0 {
			n = t.Chair.Slots
		}
		return &Chair{Slots: make([]ActorID, n)}
	case data.KindTrap:
		return &Trap{Charges: t.TrapCharges()}
	case data.KindRitual:
		return &Ritual{}
	default:
		return nil
	}
}

// Typed accessors return false under the wrong kind.

func (o *GameObject) CapturePoint() (*CapturePoint, bool) {
	p, ok := o.payload.(*CapturePoint)
	return p, ok
}

func (o *GameObject) Building() (*Building, bool) {
	p, ok := o.payload.(*Building)
	return p, ok
}

func (o *GameObject) FishingHole() (*FishingHole, bool) {
	p, ok := o.payload.(*FishingHole)
	return p, ok
}

func (o *GameObject) Transport() (*Transport, bool) {
	p, ok := o.payload.(*Transport)
	return p, ok
}

func (o *GameObject) Chair() (*Chair, bool) {
	p, ok := o.payload.(*Chair)
	return p, ok
}

func (o *GameObject) Trap() (*Trap, bool) {
	p, ok := o.payload.(*Trap)
	return p, ok
}

func (o *GameObject) Ritual() (*Ritual, bool) {
	p, ok := o.payload.(*Ritual)
	return p, ok
}
