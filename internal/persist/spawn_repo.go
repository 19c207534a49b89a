package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/l1jgo/objectd/internal/data"
)

type SpawnRepo struct {
	db *DB
}

func NewSpawnRepo(db *DB) *SpawnRepo {
	return &SpawnRepo{db: db}
}

// LoadByMap returns the persisted spawns of a map ordered by spawn id.
func (r *SpawnRepo) LoadByMap(ctx context.Context, mapID uint32) ([]data.SpawnRecord, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT spawn_id, entry, map_id, x, y, z, o,
		        rot_x, rot_y, rot_z, rot_w,
		        respawn_delay, anim_progress, active, group_id
		 FROM gameobject_spawn
		 WHERE map_id = $1
		 ORDER BY spawn_id`, int64(mapID),
	)
	if err != nil {
		return nil, fmt.Errorf("load spawns map %d: %w", mapID, err)
	}
	defer rows.Close()

	var result []data.SpawnRecord
	for rows.Next() {
		var (
			rec           data.SpawnRecord
			spawnID       int64
			entry, mapCol int64
			groupID       int64
			anim          int16
		)
		if err := rows.Scan(&spawnID, &entry, &mapCol, &rec.X, &rec.Y, &rec.Z, &rec.O,
			&rec.Rotation[0], &rec.Rotation[1], &rec.Rotation[2], &rec.Rotation[3],
			&rec.RespawnDelay, &anim, &rec.Active, &groupID,
		); err != nil {
			return nil, fmt.Errorf("scan spawn: %w", err)
		}
		rec.SpawnID = uint64(spawnID)
		rec.Entry = uint32(entry)
		rec.MapID = uint32(mapCol)
		rec.GroupID = uint32(groupID)
		rec.AnimProgress = uint8(anim)
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Seed inserts records that do not exist yet and returns how many were new.
// Existing rows win so that runtime edits survive a restart.
func (r *SpawnRepo) Seed(ctx context.Context, recs []data.SpawnRecord) (int, error) {
	inserted := 0
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		for i := range recs {
			tag, err := tx.Exec(ctx, insertSpawnSQL+` ON CONFLICT (spawn_id) DO NOTHING`, spawnArgs(&recs[i])...)
			if err != nil {
				return fmt.Errorf("seed spawn %d: %w", recs[i].SpawnID, err)
			}
			inserted += int(tag.RowsAffected())
		}
		return nil
	})
	return inserted, err
}

const insertSpawnSQL = `INSERT INTO gameobject_spawn
	(spawn_id, entry, map_id, x, y, z, o, rot_x, rot_y, rot_z, rot_w,
	 respawn_delay, anim_progress, active, group_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

func spawnArgs(rec *data.SpawnRecord) []any {
	return []any{
		int64(rec.SpawnID), int64(rec.Entry), int64(rec.MapID),
		rec.X, rec.Y, rec.Z, rec.O,
		rec.Rotation[0], rec.Rotation[1], rec.Rotation[2], rec.Rotation[3],
		rec.RespawnDelay, int16(rec.AnimProgress), rec.Active, int64(rec.GroupID),
	}
}

func upsertSpawn(ctx context.Context, ex execer, rec *data.SpawnRecord) error {
	_, err := ex.Exec(ctx, insertSpawnSQL+`
	ON CONFLICT (spawn_id) DO UPDATE SET
		entry = EXCLUDED.entry, map_id = EXCLUDED.map_id,
		x = EXCLUDED.x, y = EXCLUDED.y, z = EXCLUDED.z, o = EXCLUDED.o,
		rot_x = EXCLUDED.rot_x, rot_y = EXCLUDED.rot_y,
		rot_z = EXCLUDED.rot_z, rot_w = EXCLUDED.rot_w,
		respawn_delay = EXCLUDED.respawn_delay,
		anim_progress = EXCLUDED.anim_progress,
		active = EXCLUDED.active, group_id = EXCLUDED.group_id`,
		spawnArgs(rec)...,
	)
	if err != nil {
		return fmt.Errorf("upsert spawn %d: %w", rec.SpawnID, err)
	}
	return nil
}

func deleteSpawn(ctx context.Context, ex execer, spawnID uint64) error {
	if _, err := ex.Exec(ctx, `DELETE FROM gameobject_spawn WHERE spawn_id = $1`, int64(spawnID)); err != nil {
		return fmt.Errorf("delete spawn %d: %w", spawnID, err)
	}
	return nil
}
