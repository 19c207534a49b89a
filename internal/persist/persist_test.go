package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/l1jgo/objectd/internal/config"
	"github.com/l1jgo/objectd/internal/data"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]Op
	fail    error
}

func (s *recordingSink) Apply(_ context.Context, ops []Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]Op(nil), ops...))
	return s.fail
}

func (s *recordingSink) ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Op
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func newWriter(t *testing.T, sink Sink, queue int) (*Writer, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	w := NewWriter(sink, config.PersistConfig{QueueSize: queue, WriteTimeout: time.Second}, zap.New(core))
	return w, logs
}

func TestWriterAppliesInOrder(t *testing.T) {
	sink := &recordingSink{}
	w, _ := newWriter(t, sink, 16)
	go w.Run()

	w.Enqueue(Op{Kind: OpUpsertSpawn, Spawn: data.SpawnRecord{SpawnID: 1}})
	w.Enqueue(Op{Kind: OpSaveRespawn, Respawn: RespawnRow{SpawnID: 1, Epoch: 50}})
	w.Enqueue(Op{Kind: OpDeleteSpawn, Spawn: data.SpawnRecord{SpawnID: 1}})
	w.Close()

	ops := sink.ops()
	require.Len(t, ops, 3)
	assert.Equal(t, OpUpsertSpawn, ops[0].Kind)
	assert.Equal(t, OpSaveRespawn, ops[1].Kind)
	assert.Equal(t, OpDeleteSpawn, ops[2].Kind)
	assert.Zero(t, w.Pending())
}

func TestWriterDropsWhenFull(t *testing.T) {
	sink := &recordingSink{}
	w, logs := newWriter(t, sink, 1)

	w.Enqueue(Op{Kind: OpUpsertSpawn})
	w.Enqueue(Op{Kind: OpUpsertSpawn})
	assert.Equal(t, 1, w.Dropped())
	assert.Equal(t, 1, logs.FilterMessage("persist queue full, write dropped").Len())

	go w.Run()
	w.Close()
	assert.Len(t, sink.ops(), 1)

	w.Enqueue(Op{Kind: OpDeleteSpawn})
	assert.Equal(t, 1, logs.FilterMessage("write after writer close dropped").Len())
}

func TestWriterLogsFailedBatch(t *testing.T) {
	sink := &recordingSink{fail: errors.New("connection reset")}
	w, logs := newWriter(t, sink, 4)
	go w.Run()
	w.Enqueue(Op{Kind: OpRemoveRespawn})
	w.Close()
	assert.Equal(t, 1, logs.FilterMessage("persist batch failed").Len())
}

func TestSpawnStore(t *testing.T) {
	sink := &recordingSink{}
	w, _ := newWriter(t, sink, 16)
	s := NewSpawnStore(w, []data.SpawnRecord{
		{SpawnID: 9, MapID: 1},
		{SpawnID: 3, MapID: 1},
		{SpawnID: 4, MapID: 2},
	})
	assert.Equal(t, 3, s.Count())

	got := s.ForMap(1)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(3), got[0].SpawnID)
	assert.Equal(t, uint64(9), got[1].SpawnID)

	s.Upsert(data.SpawnRecord{SpawnID: 3, MapID: 1, Entry: 77})
	rec, ok := s.Read(3)
	require.True(t, ok)
	assert.Equal(t, uint32(77), rec.Entry)

	s.Delete(4)
	s.Delete(4)
	_, ok = s.Read(4)
	assert.False(t, ok)

	go w.Run()
	w.Close()
	ops := sink.ops()
	require.Len(t, ops, 2, "the second delete of a missing record writes nothing")
	assert.Equal(t, OpDeleteSpawn, ops[1].Kind)
	assert.Equal(t, uint64(4), ops[1].Spawn.SpawnID)
}

func TestRespawnLedger(t *testing.T) {
	sink := &recordingSink{}
	w, _ := newWriter(t, sink, 16)
	master := data.LinkKey{Type: data.SpawnTypeCreature, SpawnID: 100}
	child := data.LinkKey{Type: data.SpawnTypeGameObject, SpawnID: 5}
	links := data.NewLinkedRespawnTable(data.LinkedRespawn{Spawn: child, Master: master})
	l := NewRespawnLedger(w, links, []RespawnRow{{Type: data.SpawnTypeCreature, SpawnID: 100, Epoch: 900}})

	assert.Equal(t, int64(900), l.LinkedRespawnTime(child))
	assert.Zero(t, l.LinkedRespawnTime(master), "masters have no link of their own")

	l.SaveRespawnTime(data.SpawnTypeGameObject, 5, 12, 1000, 7)
	l.SaveRespawnTime(data.SpawnTypeGameObject, 5, 12, 1000, 7)
	assert.Equal(t, int64(1000), l.RespawnTime(data.SpawnTypeGameObject, 5))
	assert.Zero(t, l.RespawnTime(data.SpawnTypeCreature, 5), "namespaces are separate")

	l.RemoveRespawnTime(data.SpawnTypeCreature, 100)
	assert.Zero(t, l.LinkedRespawnTime(child), "a respawned master is alive")
	l.RemoveRespawnTime(data.SpawnTypeCreature, 100)
	assert.Equal(t, 1, l.Count())

	go w.Run()
	w.Close()
	ops := sink.ops()
	require.Len(t, ops, 2)
	assert.Equal(t, OpSaveRespawn, ops[0].Kind)
	assert.Equal(t, uint32(7), ops[0].Respawn.GridHint)
	assert.Equal(t, OpRemoveRespawn, ops[1].Kind)
}

func TestOpKindString(t *testing.T) {
	assert.Equal(t, "save_respawn", OpSaveRespawn.String())
	assert.Equal(t, "op(9)", OpKind(9).String())
}

type recordingExec struct {
	sql  []string
	args [][]any
}

func (e *recordingExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.sql = append(e.sql, sql)
	e.args = append(e.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestApplyOpRoutesByKind(t *testing.T) {
	ex := &recordingExec{}
	ctx := context.Background()
	ops := []Op{
		{Kind: OpUpsertSpawn, Spawn: data.SpawnRecord{SpawnID: 2, Entry: 5, MapID: 1, RespawnDelay: -30, AnimProgress: 255}},
		{Kind: OpDeleteSpawn, Spawn: data.SpawnRecord{SpawnID: 2}},
		{Kind: OpSaveRespawn, Respawn: RespawnRow{Type: data.SpawnTypeGameObject, SpawnID: 2, Epoch: 99, GridHint: 0xFFFF0001}},
		{Kind: OpRemoveRespawn, Respawn: RespawnRow{Type: data.SpawnTypeGameObject, SpawnID: 2}},
	}
	for i := range ops {
		require.NoError(t, applyOp(ctx, ex, &ops[i]))
	}
	require.Len(t, ex.sql, 4)
	assert.Contains(t, ex.sql[0], "ON CONFLICT (spawn_id) DO UPDATE")
	assert.Len(t, ex.args[0], 15)
	assert.Equal(t, int32(-30), ex.args[0][11])
	assert.Equal(t, int16(255), ex.args[0][12])
	assert.Contains(t, ex.sql[1], "DELETE FROM gameobject_spawn")
	assert.Contains(t, ex.sql[2], "INSERT INTO respawn_ledger")
	assert.Equal(t, int64(0xFFFF0001), ex.args[2][4])
	assert.Contains(t, ex.sql[3], "DELETE FROM respawn_ledger")

	assert.Error(t, applyOp(ctx, ex, &Op{Kind: OpKind(42)}))
}
