package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordSystem struct {
	name  string
	phase Phase
	log   *[]string
	boom  bool
}

func (s *recordSystem) Phase() Phase { return s.phase }

func (s *recordSystem) Update(time.Duration) {
	*s.log = append(*s.log, s.name)
	if s.boom {
		panic("boom")
	}
}

func TestRunnerOrdersByPhaseAndIsolatesPanics(t *testing.T) {
	var log []string
	r := NewRunner(nil)
	r.Register(&recordSystem{name: "cleanup", phase: PhaseCleanup, log: &log})
	r.Register(&recordSystem{name: "objects", phase: PhaseUpdate, log: &log, boom: true})
	r.Register(&recordSystem{name: "events", phase: PhasePreUpdate, log: &log})
	r.Register(&recordSystem{name: "respawn", phase: PhaseUpdate, log: &log})

	assert.NotPanics(t, func() { r.Tick(200 * time.Millisecond) })
	assert.Equal(t, []string{"events", "objects", "respawn", "cleanup"}, log)

	log = log[:0]
	r.TickPhase(PhaseCleanup, 0)
	assert.Equal(t, []string{"cleanup"}, log)
}
