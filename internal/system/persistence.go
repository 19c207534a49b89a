package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/objectd/internal/core/system"
	"github.com/l1jgo/objectd/internal/data"
	"github.com/l1jgo/objectd/internal/world"
)

// WriteQueue is the write-behind queue as seen by the tick.
type WriteQueue interface {
	Pending() int
	Dropped() int
}

// Purger deletes ledger entries that matured before cutoff, except keep.
type Purger interface {
	PurgeExpired(ctx context.Context, cutoff int64, keep []data.LinkKey) (int64, error)
}

// PersistenceSystem reports write-behind health every save interval and
// purges long matured ledger entries off the game loop. Phase 5 (Persist).
type PersistenceSystem struct {
	queue    WriteQueue
	purger   Purger
	keep     []data.LinkKey
	clock    world.Clock
	interval time.Duration
	timeout  time.Duration
	elapsed  time.Duration
	dropped  int
	purging  chan struct{}
	log      *zap.Logger
}

// NewPersistenceSystem builds the system. Ledger entries of link masters
// are never purged, so dependents stay gated across restarts.
func NewPersistenceSystem(queue WriteQueue, purger Purger, links *data.LinkedRespawnTable, clock world.Clock, interval, timeout time.Duration, log *zap.Logger) *PersistenceSystem {
	return &PersistenceSystem{
		queue:    queue,
		purger:   purger,
		keep:     links.Masters(),
		clock:    clock,
		interval: interval,
		timeout:  timeout,
		purging:  make(chan struct{}, 1),
		log:      log,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(dt time.Duration) {
	s.elapsed += dt
	if s.elapsed < s.interval {
		return
	}
	s.elapsed = 0

	if d := s.queue.Dropped(); d > s.dropped {
		s.log.Error("persist writes lost since last save",
			zap.Int("dropped", d-s.dropped),
			zap.Int("pending", s.queue.Pending()),
		)
		s.dropped = d
	} else {
		s.log.Debug("persist queue", zap.Int("pending", s.queue.Pending()))
	}
	if s.purger != nil {
		s.purge(s.clock.Now().Add(-s.interval).Unix())
	}
}

// purge runs at most one purge at a time; a purge still running when the
// next interval comes is not doubled.
func (s *PersistenceSystem) purge(cutoff int64) {
	select {
	case s.purging <- struct{}{}:
	default:
		return
	}
	go func() {
		defer func() { <-s.purging }()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		n, err := s.purger.PurgeExpired(ctx, cutoff, s.keep)
		if err != nil {
			s.log.Error("purge respawn ledger", zap.Error(err))
			return
		}
		if n > 0 {
			s.log.Info("respawn ledger purged", zap.Int64("rows", n))
		}
	}()
}

// Wait blocks until a running purge finishes.
func (s *PersistenceSystem) Wait() {
	s.purging <- struct{}{}
	<-s.purging
}
