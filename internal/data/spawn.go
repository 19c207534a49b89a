package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// SpawnType selects which ledger namespace a spawn id lives in.
type SpawnType uint8

const (
	SpawnTypeCreature   SpawnType = 0
	SpawnTypeGameObject SpawnType = 1
)

func (t SpawnType) String() string {
	switch t {
	case SpawnTypeCreature:
		return "creature"
	case SpawnTypeGameObject:
		return "gameobject"
	default:
		return fmt.Sprintf("spawn_type(%d)", uint8(t))
	}
}

// LinkKey identifies a spawn across ledger namespaces.
type LinkKey struct {
	Type    SpawnType `yaml:"type"`
	SpawnID uint64    `yaml:"spawn_id"`
}

func (k LinkKey) IsZero() bool { return k.SpawnID == 0 }

// SpawnRecord is one persisted object placement.
type SpawnRecord struct {
	SpawnID  uint64     `yaml:"spawn_id"`
	Entry    uint32     `yaml:"entry"`
	MapID    uint32     `yaml:"map_id"`
	X        float32    `yaml:"x"`
	Y        float32    `yaml:"y"`
	Z        float32    `yaml:"z"`
	O        float32    `yaml:"o"`
	Rotation [4]float32 `yaml:"rotation"` // quaternion x, y, z, w; zero = derive from O

	// RespawnDelay is sign-encoded: positive = spawned by default with that
	// delay in seconds, negative = not spawned by default, |value| delay.
	RespawnDelay int32  `yaml:"respawn_delay"`
	AnimProgress uint8  `yaml:"anim_progress"`
	Active       bool   `yaml:"active"` // spawn in the active posture (open door)
	GroupID      uint32 `yaml:"group_id"`
}

// SpawnedByDefault reports whether the object is visible without a trigger.
func (r *SpawnRecord) SpawnedByDefault() bool {
	return r.RespawnDelay >= 0
}

// RespawnDelaySeconds returns the unsigned respawn delay.
func (r *SpawnRecord) RespawnDelaySeconds() uint32 {
	if r.RespawnDelay < 0 {
		return uint32(-int64(r.RespawnDelay))
	}
	return uint32(r.RespawnDelay)
}

// EncodeRespawnDelay packs a delay and default-spawn flag into the signed form.
func EncodeRespawnDelay(seconds uint32, spawnedByDefault bool) int32 {
	if seconds > 1<<31-1 {
		seconds = 1<<31 - 1
	}
	if spawnedByDefault {
		return int32(seconds)
	}
	return -int32(seconds)
}

type spawnListFile struct {
	Spawns []SpawnRecord `yaml:"spawns"`
}

// SpawnTable holds seed spawn records, indexed by spawn id and map.
type SpawnTable struct {
	spawns map[uint64]*SpawnRecord
	byMap  map[uint32][]*SpawnRecord
}

// LoadSpawnTable loads seed spawns from a YAML file.
func LoadSpawnTable(path string) (*SpawnTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gameobject_spawn: %w", err)
	}
	var f spawnListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse gameobject_spawn: %w", err)
	}
	t := &SpawnTable{
		spawns: make(map[uint64]*SpawnRecord, len(f.Spawns)),
		byMap:  make(map[uint32][]*SpawnRecord),
	}
	for i := range f.Spawns {
		rec := &f.Spawns[i]
		if rec.SpawnID == 0 {
			return nil, fmt.Errorf("parse gameobject_spawn: entry %d has no spawn_id", rec.Entry)
		}
		if _, dup := t.spawns[rec.SpawnID]; dup {
			return nil, fmt.Errorf("parse gameobject_spawn: duplicate spawn_id %d", rec.SpawnID)
		}
		t.spawns[rec.SpawnID] = rec
		t.byMap[rec.MapID] = append(t.byMap[rec.MapID], rec)
	}
	return t, nil
}

// Get returns a spawn record by id, or nil if not found.
func (t *SpawnTable) Get(spawnID uint64) *SpawnRecord {
	return t.spawns[spawnID]
}

// ForMap returns the spawns placed on a map in file order.
func (t *SpawnTable) ForMap(mapID uint32) []*SpawnRecord {
	return t.byMap[mapID]
}

// All returns every spawn record.
func (t *SpawnTable) All() []SpawnRecord {
	out := make([]SpawnRecord, 0, len(t.spawns))
	for _, recs := range t.byMap {
		for _, r := range recs {
			out = append(out, *r)
		}
	}
	return out
}

func (t *SpawnTable) Count() int {
	return len(t.spawns)
}

// SpawnGroup carries the respawn policy shared by its member spawns.
type SpawnGroup struct {
	ID                uint32   `yaml:"id"`
	Name              string   `yaml:"name"`
	CompatibilityMode bool     `yaml:"compatibility_mode"` // per-object respawn timers
	ManualSpawn       bool     `yaml:"manual_spawn"`       // not spawned at map load
	DespawnDeletes    bool     `yaml:"despawn_deletes"`    // despawn removes the spawn record
	Members           []uint64 `yaml:"members"`
}

type spawnGroupFile struct {
	Groups []SpawnGroup `yaml:"spawn_groups"`
}

// SpawnGroupTable indexes spawn groups by id and by member spawn.
type SpawnGroupTable struct {
	groups   map[uint32]*SpawnGroup
	bySpawn  map[uint64]*SpawnGroup
	fallback SpawnGroup
}

// LoadSpawnGroupTable loads spawn groups from a YAML file. compatDefault is
// the mode applied to spawns that belong to no group.
func LoadSpawnGroupTable(path string, compatDefault bool) (*SpawnGroupTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn_group: %w", err)
	}
	var f spawnGroupFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawn_group: %w", err)
	}
	return NewSpawnGroupTable(compatDefault, f.Groups...), nil
}

// NewSpawnGroupTable indexes the given groups.
func NewSpawnGroupTable(compatDefault bool, groups ...SpawnGroup) *SpawnGroupTable {
	t := &SpawnGroupTable{
		groups:   make(map[uint32]*SpawnGroup, len(groups)),
		bySpawn:  make(map[uint64]*SpawnGroup),
		fallback: SpawnGroup{Name: "default", CompatibilityMode: compatDefault},
	}
	for i := range groups {
		g := groups[i]
		t.groups[g.ID] = &g
		for _, id := range g.Members {
			t.bySpawn[id] = &g
		}
	}
	return t
}

// Get returns a group by id, or nil if not found.
func (t *SpawnGroupTable) Get(id uint32) *SpawnGroup {
	return t.groups[id]
}

// For resolves the group of a spawn record: explicit group id first, then
// member lists, then the default group.
func (t *SpawnGroupTable) For(rec *SpawnRecord) *SpawnGroup {
	if t == nil {
		return &SpawnGroup{Name: "default"}
	}
	if rec != nil {
		if g, ok := t.groups[rec.GroupID]; ok && rec.GroupID != 0 {
			return g
		}
		if g, ok := t.bySpawn[rec.SpawnID]; ok {
			return g
		}
	}
	return &t.fallback
}

func (t *SpawnGroupTable) Count() int {
	return len(t.groups)
}

// LinkedRespawn gates one spawn's respawn on another's death.
type LinkedRespawn struct {
	Spawn  LinkKey `yaml:"spawn"`
	Master LinkKey `yaml:"master"`
}

type linkedRespawnFile struct {
	Links []LinkedRespawn `yaml:"linked_respawns"`
}

// LinkedRespawnTable maps a spawn to the master whose death gates it.
type LinkedRespawnTable struct {
	links map[LinkKey]LinkKey
}

// LoadLinkedRespawnTable loads linked respawn edges from a YAML file.
func LoadLinkedRespawnTable(path string) (*LinkedRespawnTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read linked_respawn: %w", err)
	}
	var f linkedRespawnFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse linked_respawn: %w", err)
	}
	return NewLinkedRespawnTable(f.Links...), nil
}

// NewLinkedRespawnTable indexes the given edges.
func NewLinkedRespawnTable(links ...LinkedRespawn) *LinkedRespawnTable {
	t := &LinkedRespawnTable{links: make(map[LinkKey]LinkKey, len(links))}
	for _, l := range links {
		t.links[l.Spawn] = l.Master
	}
	return t
}

// Master returns the link master of a spawn.
func (t *LinkedRespawnTable) Master(k LinkKey) (LinkKey, bool) {
	if t == nil {
		return LinkKey{}, false
	}
	m, ok := t.links[k]
	return m, ok
}

// Masters returns every distinct link master ordered by type then spawn id.
func (t *LinkedRespawnTable) Masters() []LinkKey {
	if t == nil {
		return nil
	}
	seen := make(map[LinkKey]struct{}, len(t.links))
	var out []LinkKey
	for _, m := range t.links {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].SpawnID < out[j].SpawnID
	})
	return out
}

func (t *LinkedRespawnTable) Count() int {
	if t == nil {
		return 0
	}
	return len(t.links)
}
