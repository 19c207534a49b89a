package persist

import (
	"sort"

	"github.com/l1jgo/objectd/internal/data"
)

// SpawnStore caches spawn records in memory and writes changes behind.
// Accessed only from the game loop goroutine, so it takes no locks.
type SpawnStore struct {
	recs map[uint64]data.SpawnRecord
	w    *Writer
}

// NewSpawnStore seeds the cache with recs.
func NewSpawnStore(w *Writer, recs []data.SpawnRecord) *SpawnStore {
	s := &SpawnStore{recs: make(map[uint64]data.SpawnRecord, len(recs)), w: w}
	for _, r := range recs {
		s.recs[r.SpawnID] = r
	}
	return s
}

func (s *SpawnStore) Read(spawnID uint64) (data.SpawnRecord, bool) {
	r, ok := s.recs[spawnID]
	return r, ok
}

func (s *SpawnStore) Upsert(rec data.SpawnRecord) {
	s.recs[rec.SpawnID] = rec
	s.w.Enqueue(Op{Kind: OpUpsertSpawn, Spawn: rec})
}

func (s *SpawnStore) Delete(spawnID uint64) {
	if _, ok := s.recs[spawnID]; !ok {
		return
	}
	delete(s.recs, spawnID)
	s.w.Enqueue(Op{Kind: OpDeleteSpawn, Spawn: data.SpawnRecord{SpawnID: spawnID}})
}

// ForMap returns the cached records of a map ordered by spawn id.
func (s *SpawnStore) ForMap(mapID uint32) []data.SpawnRecord {
	var out []data.SpawnRecord
	for _, r := range s.recs {
		if r.MapID == mapID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpawnID < out[j].SpawnID })
	return out
}

func (s *SpawnStore) Count() int { return len(s.recs) }

// RespawnLedger caches respawn epochs and writes changes behind. Links
// resolves linked respawn masters.
type RespawnLedger struct {
	rows  map[data.LinkKey]RespawnRow
	links *data.LinkedRespawnTable
	w     *Writer
}

// NewRespawnLedger seeds the ledger with rows.
func NewRespawnLedger(w *Writer, links *data.LinkedRespawnTable, rows []RespawnRow) *RespawnLedger {
	l := &RespawnLedger{rows: make(map[data.LinkKey]RespawnRow, len(rows)), links: links, w: w}
	for _, r := range rows {
		l.rows[r.key()] = r
	}
	return l
}

func (l *RespawnLedger) SaveRespawnTime(t data.SpawnType, spawnID uint64, entry uint32, epoch int64, gridHint uint32) {
	row := RespawnRow{Type: t, SpawnID: spawnID, Entry: entry, Epoch: epoch, GridHint: gridHint}
	if l.rows[row.key()] == row {
		return
	}
	l.rows[row.key()] = row
	l.w.Enqueue(Op{Kind: OpSaveRespawn, Respawn: row})
}

func (l *RespawnLedger) RespawnTime(t data.SpawnType, spawnID uint64) int64 {
	return l.rows[data.LinkKey{Type: t, SpawnID: spawnID}].Epoch
}

func (l *RespawnLedger) RemoveRespawnTime(t data.SpawnType, spawnID uint64) {
	k := data.LinkKey{Type: t, SpawnID: spawnID}
	if _, ok := l.rows[k]; !ok {
		return
	}
	delete(l.rows, k)
	l.w.Enqueue(Op{Kind: OpRemoveRespawn, Respawn: RespawnRow{Type: t, SpawnID: spawnID}})
}

// LinkedRespawnTime returns the pending epoch of key's link master. A master
// without a ledger entry is alive.
func (l *RespawnLedger) LinkedRespawnTime(key data.LinkKey) int64 {
	master, ok := l.links.Master(key)
	if !ok {
		return 0
	}
	return l.rows[master].Epoch
}

func (l *RespawnLedger) Count() int { return len(l.rows) }
