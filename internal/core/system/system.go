package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain interaction requests
	PhasePreUpdate               // 1: process last tick's events
	PhaseUpdate                  // 2: object state machines
	PhasePostUpdate              // 3: ledger-driven respawns
	PhaseOutput                  // 4: publish to viewers
	PhasePersist                 // 5: write-behind flush
	PhaseCleanup                 // 6: destroy queued objects
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre_update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post_update"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
