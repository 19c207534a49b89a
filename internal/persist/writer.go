package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/config"
	"github.com/l1jgo/objectd/internal/data"
)

type OpKind uint8

const (
	OpUpsertSpawn OpKind = iota
	OpDeleteSpawn
	OpSaveRespawn
	OpRemoveRespawn
)

func (k OpKind) String() string {
	switch k {
	case OpUpsertSpawn:
		return "upsert_spawn"
	case OpDeleteSpawn:
		return "delete_spawn"
	case OpSaveRespawn:
		return "save_respawn"
	case OpRemoveRespawn:
		return "remove_respawn"
	default:
		return fmt.Sprintf("op(%d)", uint8(k))
	}
}

// Op is one queued write. Spawn is set for spawn ops, Respawn for ledger ops.
type Op struct {
	Kind    OpKind
	Spawn   data.SpawnRecord
	Respawn RespawnRow
}

// Sink applies a batch of writes atomically.
type Sink interface {
	Apply(ctx context.Context, ops []Op) error
}

// Apply writes a batch in one transaction.
func (db *DB) Apply(ctx context.Context, ops []Op) error {
	return db.InTx(ctx, func(tx pgx.Tx) error {
		for i := range ops {
			if err := applyOp(ctx, tx, &ops[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyOp(ctx context.Context, ex execer, op *Op) error {
	switch op.Kind {
	case OpUpsertSpawn:
		return upsertSpawn(ctx, ex, &op.Spawn)
	case OpDeleteSpawn:
		return deleteSpawn(ctx, ex, op.Spawn.SpawnID)
	case OpSaveRespawn:
		return saveRespawn(ctx, ex, &op.Respawn)
	case OpRemoveRespawn:
		return removeRespawn(ctx, ex, op.Respawn.Type, op.Respawn.SpawnID)
	default:
		return fmt.Errorf("unknown op %s", op.Kind)
	}
}

// maxBatch bounds how many queued ops share one transaction.
const maxBatch = 256

// Writer is the write-behind queue between the game loop and the database.
// Enqueue never blocks; a full queue drops the op with an error log.
type Writer struct {
	sink    Sink
	log     *zap.Logger
	timeout time.Duration
	queue   chan Op

	mu      sync.Mutex
	closed  bool
	dropped int
	done    chan struct{}
}

func NewWriter(sink Sink, cfg config.PersistConfig, log *zap.Logger) *Writer {
	return &Writer{
		sink:    sink,
		log:     log,
		timeout: cfg.WriteTimeout,
		queue:   make(chan Op, cfg.QueueSize),
		done:    make(chan struct{}),
	}
}

// Enqueue hands op to the writer goroutine.
func (w *Writer) Enqueue(op Op) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.log.Warn("write after writer close dropped", zap.Stringer("op", op.Kind))
		return
	}
	select {
	case w.queue <- op:
	default:
		w.dropped++
		w.log.Error("persist queue full, write dropped",
			zap.Stringer("op", op.Kind),
			zap.Int("dropped", w.dropped),
		)
	}
}

// Dropped returns how many ops were lost to a full queue.
func (w *Writer) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Pending returns the number of queued ops.
func (w *Writer) Pending() int { return len(w.queue) }

// Run drains the queue until Close. Start it in its own goroutine.
func (w *Writer) Run() {
	defer close(w.done)
	batch := make([]Op, 0, maxBatch)
	for op := range w.queue {
		batch = append(batch[:0], op)
	fill:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-w.queue:
				if !ok {
					break fill
				}
				batch = append(batch, next)
			default:
				break fill
			}
		}
		w.flush(batch)
	}
}

func (w *Writer) flush(batch []Op) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.sink.Apply(ctx, batch); err != nil {
		w.log.Error("persist batch failed", zap.Int("ops", len(batch)), zap.Error(err))
	}
}

// Close stops accepting writes and waits until everything queued is applied.
func (w *Writer) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}
