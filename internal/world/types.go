package world

import (
	"errors"
	"fmt"
	"math"
)

// ActorID identifies a unit (player or creature) in the owning map's actor registry.
type ActorID uint64

// Faction is the capture-point team of an actor.
type Faction uint8

const (
	FactionNeutral Faction = 0
	FactionA       Faction = 1
	FactionB       Faction = 2
)

func (f Faction) String() string {
	switch f {
	case FactionA:
		return "A"
	case FactionB:
		return "B"
	default:
		return "neutral"
	}
}

// Position is a world placement. O is the facing in radians.
type Position struct {
	X, Y, Z, O float32
}

// Valid reports whether every coordinate is finite and within map bounds.
func (p Position) Valid() bool {
	for _, v := range [...]float32{p.X, p.Y, p.Z, p.O} {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	const bound = 17066.66
	return math.Abs(float64(p.X)) <= bound && math.Abs(float64(p.Y)) <= bound
}

// Dist2D returns the planar distance between two positions.
func (p Position) Dist2D(q Position) float32 {
	dx := float64(p.X - q.X)
	dy := float64(p.Y - q.Y)
	return float32(math.Sqrt(dx*dx + dy*dy))
}

// Dist returns the 3D distance between two positions.
func (p Position) Dist(q Position) float32 {
	dx := float64(p.X - q.X)
	dy := float64(p.Y - q.Y)
	dz := float64(p.Z - q.Z)
	return float32(math.Sqrt(dx*dx + dy*dy + dz*dz))
}

// Quat is an object rotation.
type Quat struct {
	X, Y, Z, W float32
}

// QuatFromOrientation builds the rotation for a plain facing.
func QuatFromOrientation(o float32) Quat {
	half := float64(o) / 2
	return Quat{Z: float32(math.Sin(half)), W: float32(math.Cos(half))}
}

func (q Quat) IsZero() bool { return q == Quat{} }

// LootState is the interaction lifecycle of an object.
type LootState uint8

const (
	LootNotReady LootState = iota
	LootReady
	LootActivated
	LootJustDeactivated
)

func (s LootState) String() string {
	switch s {
	case LootNotReady:
		return "not_ready"
	case LootReady:
		return "ready"
	case LootActivated:
		return "activated"
	case LootJustDeactivated:
		return "just_deactivated"
	default:
		return fmt.Sprintf("loot_state(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the four lifecycle states.
func (s LootState) Valid() bool { return s <= LootJustDeactivated }

type LootMask uint8

func MaskOf(states ...LootState) LootMask {
	var m LootMask
	for _, s := range states {
		m |= 1 << s
	}
	return m
}

func (m LootMask) has(s LootState) bool { return m&(1<<s) != 0 }

// GOState is the visible posture of an object (door open/closed, transport moving).
type GOState uint8

const (
	StateActive           GOState = 0 // open / in use
	StateReady            GOState = 1 // closed / idle
	StateDestroyed        GOState = 2 // alternative posture
	StateTransportActive  GOState = 24
	StateTransportStopped GOState = 25
)

func (s GOState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	case StateTransportActive:
		return "transport_active"
	case StateTransportStopped:
		return "transport_stopped"
	default:
		return fmt.Sprintf("go_state(%d)", uint8(s))
	}
}

// Flags are server-authoritative object flags mirrored to clients.
type Flags uint32

const (
	FlagInUse         Flags = 0x001
	FlagLocked        Flags = 0x002
	FlagInteractCond  Flags = 0x004 // interaction gated by a condition
	FlagTransport     Flags = 0x008
	FlagNotSelectable Flags = 0x010
	FlagNoDespawn     Flags = 0x020
	FlagDamaged       Flags = 0x200
	FlagDestroyed     Flags = 0x400
)

func (f Flags) Has(bits Flags) bool { return f&bits == bits }

// FieldMask selects which replicated fields changed in a FieldUpdate.
type FieldMask uint16

const (
	FieldFlags FieldMask = 1 << iota
	FieldDynamicFlags
	FieldDisplayID
	FieldAnimProgress
	FieldCustomAnim
	FieldSpellVisual
	FieldState
	FieldLootState
)

// UseResult is the outcome of an interaction attempt. None of them is an error.
type UseResult uint8

const (
	UseOK UseResult = iota
	UseIgnored
	UseOutOfRange
	UseConditionFailed
	UseNotInteractable
)

func (r UseResult) String() string {
	switch r {
	case UseOK:
		return "ok"
	case UseIgnored:
		return "ignored"
	case UseOutOfRange:
		return "out_of_range"
	case UseConditionFailed:
		return "condition_failed"
	case UseNotInteractable:
		return "not_interactable"
	default:
		return fmt.Sprintf("use_result(%d)", uint8(r))
	}
}

// Construction failures. The caller must not register an object when any
// of these is returned.
var (
	ErrNotCreated      = errors.New("gameobject not created")
	ErrInvalidPosition = fmt.Errorf("%w: invalid position", ErrNotCreated)
	ErrUnknownTemplate = fmt.Errorf("%w: unknown template", ErrNotCreated)
	ErrManualCreate    = fmt.Errorf("%w: kind is auto-created only", ErrNotCreated)
	ErrUnknownKind     = fmt.Errorf("%w: unknown kind", ErrNotCreated)
	ErrNoSpawnRecord   = fmt.Errorf("%w: spawn record not found", ErrNotCreated)
)
