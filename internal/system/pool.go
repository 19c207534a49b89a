package system

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/data"
	"github.com/l1jgo/objectd/internal/world"
)

// PoolManager keeps at most MaxLimit members of each pool spawned and
// rotates members when one despawns. It implements world.PoolManager.
type PoolManager struct {
	pools  *data.PoolTable
	shards *Shards
	spawns world.SpawnStore
	ledger world.RespawnLedger
	clock  world.Clock
	rand   *rand.Rand
	log    *zap.Logger
}

// PoolDeps are the collaborators of a PoolManager.
type PoolDeps struct {
	Pools  *data.PoolTable
	Shards *Shards
	Spawns world.SpawnStore
	Ledger world.RespawnLedger
	Clock  world.Clock
	Rand   *rand.Rand
	Log    *zap.Logger
}

func NewPoolManager(d PoolDeps) *PoolManager {
	return &PoolManager{
		pools:  d.Pools,
		shards: d.Shards,
		spawns: d.Spawns,
		ledger: d.Ledger,
		clock:  d.Clock,
		rand:   d.Rand,
		log:    d.Log,
	}
}

func (p *PoolManager) PoolOf(spawnID uint64) uint32 {
	return p.pools.PoolOf(spawnID)
}

// UpdatePool is called when spawnID deactivates or is due back. It takes
// spawnID off its map and spawns another free member chosen by chance. With
// no other member free, spawnID itself is kept or re-created.
func (p *PoolManager) UpdatePool(poolID uint32, spawnID uint64) {
	pool := p.pools.Get(poolID)
	if pool == nil {
		p.log.Error("update of unknown pool", zap.Uint32("pool", poolID), zap.Uint64("spawn_id", spawnID))
		return
	}
	next, ok := p.roll(p.candidates(pool, p.clock.Now()))
	if !ok {
		next = spawnID
	}
	if next == spawnID {
		if o := p.live(spawnID); o != nil && o.IsSpawned() {
			o.Map().AddToMap(o)
			return
		}
	}
	if m := p.mapOf(spawnID); m != nil {
		m.DespawnSpawn(spawnID)
	}
	p.spawn(pool, next)
}

// SpawnInitial fills every pool up to its limit. Members still waiting for
// a ledger respawn are skipped. It returns how many objects were spawned.
func (p *PoolManager) SpawnInitial(now time.Time) int {
	spawned := 0
	for _, pool := range p.all() {
		spawned += p.fill(pool, now)
	}
	p.log.Info("pools spawned", zap.Int("pools", p.pools.Count()), zap.Int("objects", spawned))
	return spawned
}

// ProcessRespawns clears matured ledger entries of pooled spawns and refills
// their pools.
func (p *PoolManager) ProcessRespawns(now time.Time) int {
	spawned := 0
	unix := now.Unix()
	for _, pool := range p.all() {
		due := false
		for _, mem := range pool.Members {
			epoch := p.ledger.RespawnTime(data.SpawnTypeGameObject, mem.SpawnID)
			if epoch != 0 && epoch <= unix && p.live(mem.SpawnID) == nil {
				p.ledger.RemoveRespawnTime(data.SpawnTypeGameObject, mem.SpawnID)
				due = true
			}
		}
		if due {
			spawned += p.fill(pool, now)
		}
	}
	return spawned
}

func (p *PoolManager) fill(pool *data.Pool, now time.Time) int {
	spawned := 0
	for p.activeCount(pool) < pool.MaxLimit {
		next, ok := p.roll(p.candidates(pool, now))
		if !ok || !p.spawn(pool, next) {
			break
		}
		spawned++
	}
	return spawned
}

func (p *PoolManager) all() []*data.Pool {
	var out []*data.Pool
	for _, id := range p.pools.IDs() {
		out = append(out, p.pools.Get(id))
	}
	return out
}

// candidates returns the members that may be spawned next: not live, on a
// map of this process, and not waiting for a respawn at now.
func (p *PoolManager) candidates(pool *data.Pool, now time.Time) []data.PoolMember {
	var out []data.PoolMember
	for _, mem := range pool.Members {
		if p.live(mem.SpawnID) != nil || p.mapOf(mem.SpawnID) == nil {
			continue
		}
		if p.ledger.RespawnTime(data.SpawnTypeGameObject, mem.SpawnID) > now.Unix() {
			continue
		}
		out = append(out, mem)
	}
	return out
}

// roll picks a member: explicit chances first, then an equal share among
// members without a chance.
func (p *PoolManager) roll(members []data.PoolMember) (uint64, bool) {
	if len(members) == 0 {
		return 0, false
	}
	var explicit, equal []data.PoolMember
	var total float32
	for _, m := range members {
		if m.Chance > 0 {
			explicit = append(explicit, m)
			total += m.Chance
		} else {
			equal = append(equal, m)
		}
	}
	if len(explicit) > 0 {
		r := p.rand.Float32() * 100
		if len(equal) == 0 && total < 100 {
			r = p.rand.Float32() * total
		}
		for _, m := range explicit {
			if r < m.Chance {
				return m.SpawnID, true
			}
			r -= m.Chance
		}
	}
	if len(equal) == 0 {
		return explicit[len(explicit)-1].SpawnID, true
	}
	return equal[p.rand.Intn(len(equal))].SpawnID, true
}

func (p *PoolManager) spawn(pool *data.Pool, spawnID uint64) bool {
	m := p.mapOf(spawnID)
	if m == nil {
		return false
	}
	if _, err := m.SpawnObject(spawnID); err != nil {
		p.log.Warn("pool member not spawned",
			zap.Uint32("pool", pool.ID),
			zap.Uint64("spawn_id", spawnID),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (p *PoolManager) activeCount(pool *data.Pool) int {
	n := 0
	for _, mem := range pool.Members {
		if p.live(mem.SpawnID) != nil {
			n++
		}
	}
	return n
}

// live returns the on-map object of a spawn, or nil.
func (p *PoolManager) live(spawnID uint64) *world.GameObject {
	m := p.mapOf(spawnID)
	if m == nil {
		return nil
	}
	if o := m.BySpawn(spawnID); o != nil && o.InMap() {
		return o
	}
	return nil
}

func (p *PoolManager) mapOf(spawnID uint64) *world.Map {
	rec, ok := p.spawns.Read(spawnID)
	if !ok {
		return nil
	}
	return p.shards.Get(rec.MapID)
}
