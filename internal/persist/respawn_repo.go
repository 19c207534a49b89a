package persist

import (
	"context"
	"fmt"

	"github.com/l1jgo/objectd/internal/data"
)

// RespawnRow is one ledger entry.
type RespawnRow struct {
	Type     data.SpawnType
	SpawnID  uint64
	Entry    uint32
	Epoch    int64 // unix seconds
	GridHint uint32
}

func (r RespawnRow) key() data.LinkKey {
	return data.LinkKey{Type: r.Type, SpawnID: r.SpawnID}
}

type RespawnRepo struct {
	db *DB
}

func NewRespawnRepo(db *DB) *RespawnRepo {
	return &RespawnRepo{db: db}
}

// LoadAll returns every ledger entry.
func (r *RespawnRepo) LoadAll(ctx context.Context) ([]RespawnRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT spawn_type, spawn_id, entry, respawn_epoch, grid_hint FROM respawn_ledger`,
	)
	if err != nil {
		return nil, fmt.Errorf("load respawn ledger: %w", err)
	}
	defer rows.Close()

	var result []RespawnRow
	for rows.Next() {
		var (
			typ                  int16
			spawnID, entry, hint int64
			row                  RespawnRow
		)
		if err := rows.Scan(&typ, &spawnID, &entry, &row.Epoch, &hint); err != nil {
			return nil, fmt.Errorf("scan respawn: %w", err)
		}
		row.Type = data.SpawnType(typ)
		row.SpawnID = uint64(spawnID)
		row.Entry = uint32(entry)
		row.GridHint = uint32(hint)
		result = append(result, row)
	}
	return result, rows.Err()
}

// PurgeExpired drops entries that matured before cutoff and returns how
// many were removed. Entries of keep are link masters whose pending epoch
// still gates their dependents, so they stay until removed explicitly.
func (r *RespawnRepo) PurgeExpired(ctx context.Context, cutoff int64, keep []data.LinkKey) (int64, error) {
	types, ids := linkKeyArrays(keep)
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM respawn_ledger
		 WHERE respawn_epoch < $1
		   AND (spawn_type, spawn_id) NOT IN (
		       SELECT t, id FROM unnest($2::smallint[], $3::bigint[]) AS k(t, id))`,
		cutoff, types, ids,
	)
	if err != nil {
		return 0, fmt.Errorf("purge respawn ledger: %w", err)
	}
	return tag.RowsAffected(), nil
}

func linkKeyArrays(keys []data.LinkKey) ([]int16, []int64) {
	types := make([]int16, len(keys))
	ids := make([]int64, len(keys))
	for i, k := range keys {
		types[i] = int16(k.Type)
		ids[i] = int64(k.SpawnID)
	}
	return types, ids
}

func saveRespawn(ctx context.Context, ex execer, row *RespawnRow) error {
	_, err := ex.Exec(ctx,
		`INSERT INTO respawn_ledger (spawn_type, spawn_id, entry, respawn_epoch, grid_hint)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (spawn_type, spawn_id) DO UPDATE SET
		     entry = EXCLUDED.entry,
		     respawn_epoch = EXCLUDED.respawn_epoch,
		     grid_hint = EXCLUDED.grid_hint`,
		int16(row.Type), int64(row.SpawnID), int64(row.Entry), row.Epoch, int64(row.GridHint),
	)
	if err != nil {
		return fmt.Errorf("save respawn %s/%d: %w", row.Type, row.SpawnID, err)
	}
	return nil
}

func removeRespawn(ctx context.Context, ex execer, t data.SpawnType, spawnID uint64) error {
	_, err := ex.Exec(ctx,
		`DELETE FROM respawn_ledger WHERE spawn_type = $1 AND spawn_id = $2`,
		int16(t), int64(spawnID),
	)
	if err != nil {
		return fmt.Errorf("remove respawn %s/%d: %w", t, spawnID, err)
	}
	return nil
}
