package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ObjectTemplate holds static data for a world object type loaded from YAML.
// Only the block matching Kind is meaningful; the others stay nil.
type ObjectTemplate struct {
	Entry          uint32  `yaml:"entry"`
	Name           string  `yaml:"name"`
	Kind           Kind    `yaml:"kind"`
	DisplayID      uint32  `yaml:"display_id"`
	Size           float32 `yaml:"size"`
	Flags          uint32  `yaml:"flags"`           // initial server flags
	InteractRadius float32 `yaml:"interact_radius"` // 0 = kind default
	AIName         string  `yaml:"ai_name"`         // Lua hook table, empty = no script

	SpellID         uint32 `yaml:"spell_id"`  // effect cast on use (goober, spell caster, trap, flag stand)
	LootID          uint32 `yaml:"loot_id"`   // chest, fishing node/hole, gathering node
	GossipID        uint32 `yaml:"gossip_id"` // gossip menu, page text or cinematic id
	LinkedTrap      uint32 `yaml:"linked_trap"`
	AutoCloseMs     uint32 `yaml:"auto_close_ms"`
	LockID          uint32 `yaml:"lock_id"`
	Charges         uint32 `yaml:"charges"` // spell caster / guard post use cap, 0 = unlimited
	PartyOnly       bool   `yaml:"party_only"`
	DespawnAtAction bool   `yaml:"despawn_at_action"`
	NoDespawn       bool   `yaml:"no_despawn"` // never despawns; spawn delay is ignored

	Condition    *Condition        `yaml:"condition,omitempty"`
	Chest        *ChestData        `yaml:"chest,omitempty"`
	Trap         *TrapData         `yaml:"trap,omitempty"`
	Chair        *ChairData        `yaml:"chair,omitempty"`
	Goober       *GooberData       `yaml:"goober,omitempty"`
	Ritual       *RitualData       `yaml:"ritual,omitempty"`
	FishingHole  *FishingHoleData  `yaml:"fishing_hole,omitempty"`
	CapturePoint *CapturePointData `yaml:"capture_point,omitempty"`
	Building     *BuildingData     `yaml:"building,omitempty"`
	Transport    *TransportData    `yaml:"transport,omitempty"`
	Gathering    *GatheringData    `yaml:"gathering,omitempty"`
}

// Condition gates who may interact with an object.
type Condition struct {
	Faction  uint8 `yaml:"faction"` // 0 = any
	MinLevel int   `yaml:"min_level"`
}

type ChestData struct {
	RestockSeconds uint32 `yaml:"restock_seconds"` // 0 = ready again right after looting
	Consumable     bool   `yaml:"consumable"`      // despawns once looted instead of restocking in place
	PersonalLoot   bool   `yaml:"personal_loot"`   // one session per looter
	LootTimeoutMs  uint32 `yaml:"loot_timeout_ms"` // deactivate an opened chest after this long
	GroupRules     bool   `yaml:"group_rules"`
	Money          bool   `yaml:"money"`
}

type TrapData struct {
	Radius        float32 `yaml:"radius"`
	Charges       uint32  `yaml:"charges"` // 0 = rearms, 1 = single use, 2 = bomb
	StartDelaySec uint32  `yaml:"start_delay_sec"`
	CooldownSec   uint32  `yaml:"cooldown_sec"`
	Stealthed     bool    `yaml:"stealthed"`
}

type ChairData struct {
	Slots  uint32  `yaml:"slots"`
	Height float32 `yaml:"height"`
}

type GooberData struct {
	CreditSpell uint32    `yaml:"credit_spell"` // cast on every credited actor when the goober deactivates
	GroupCredit bool      `yaml:"group_credit"`
	CustomAnim  bool      `yaml:"custom_anim"`
	Teleport    *Teleport `yaml:"teleport,omitempty"`
}

type Teleport struct {
	MapID       uint32  `yaml:"map_id"`
	X           float32 `yaml:"x"`
	Y           float32 `yaml:"y"`
	Z           float32 `yaml:"z"`
	Orientation float32 `yaml:"o"`
}

type RitualData struct {
	Casters        uint32 `yaml:"casters"` // unique participants required, including the owner
	AnimSpell      uint32 `yaml:"anim_spell"`
	CastersGrouped bool   `yaml:"casters_grouped"`
	Persistent     bool   `yaml:"persistent"` // reset instead of deactivating once complete
}

type FishingHoleData struct {
	Radius   float32 `yaml:"radius"`
	MinOpens uint32  `yaml:"min_opens"`
	MaxOpens uint32  `yaml:"max_opens"`
}

type CapturePointData struct {
	CaptureTimeMs uint32  `yaml:"capture_time_ms"`
	Radius        float32 `yaml:"radius"` // dynamic-flag refresh range
}

type BuildingData struct {
	MaxHealth           uint32 `yaml:"max_health"`
	DamagedThreshold    uint32 `yaml:"damaged_threshold"` // 0 = max_health / 2
	DamagedDisplayID    uint32 `yaml:"damaged_display_id"`
	DestroyedDisplayID  uint32 `yaml:"destroyed_display_id"`
	RebuildingDisplayID uint32 `yaml:"rebuilding_display_id"`
}

type TransportData struct {
	PeriodMs uint32   `yaml:"period_ms"`
	StopsMs  []uint32 `yaml:"stops_ms"` // path time of each stop frame, ascending
	PauseMs  uint32   `yaml:"pause_ms"`
}

type GatheringData struct {
	ViewerRespawnSec uint32 `yaml:"viewer_respawn_sec"` // how long the node stays hidden for one looter
}

// Radius returns the interaction radius, falling back to def.
func (t *ObjectTemplate) Radius(def float32) float32 {
	if t.InteractRadius > 0 {
		return t.InteractRadius
	}
	return def
}

// AutoClose returns the door/button/goober reset delay in milliseconds.
func (t *ObjectTemplate) AutoClose() uint32 {
	return t.AutoCloseMs
}

// TrapCharges returns the trap charge mode, 0 for non-traps.
func (t *ObjectTemplate) TrapCharges() uint32 {
	if t.Trap == nil {
		return 0
	}
	return t.Trap.Charges
}

// UseCharges returns the use cap for charge-bearing kinds (0 = unlimited).
func (t *ObjectTemplate) UseCharges() uint32 {
	switch t.Kind {
	case KindSpellCaster, KindGuardPost:
		return t.Charges
	default:
		return 0
	}
}

// IsDespawnAtAction reports whether a use or loot ends the object's life.
func (t *ObjectTemplate) IsDespawnAtAction() bool {
	if t.DespawnAtAction {
		return true
	}
	return t.Kind == KindChest && t.Chest != nil && t.Chest.Consumable
}

// IsDespawnable reports whether spawns of this template may despawn at all.
func (t *ObjectTemplate) IsDespawnable() bool {
	return !t.NoDespawn || t.IsDespawnAtAction()
}

type objectListFile struct {
	Objects []ObjectTemplate `yaml:"objects"`
}

// ObjectTable holds all object templates indexed by entry.
type ObjectTable struct {
	templates map[uint32]*ObjectTemplate
	unknown   []uint32
}

// LoadObjectTable loads object templates from a YAML file.
func LoadObjectTable(path string) (*ObjectTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gameobject_template: %w", err)
	}
	t, err := ParseObjectTable(raw)
	if err != nil {
		return nil, fmt.Errorf("parse gameobject_template: %w", err)
	}
	return t, nil
}

// ParseObjectTable decodes templates from YAML bytes.
func ParseObjectTable(raw []byte) (*ObjectTable, error) {
	var f objectListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	t := NewObjectTable(f.Objects...)
	return t, nil
}

// NewObjectTable indexes the given templates.
func NewObjectTable(templates ...ObjectTemplate) *ObjectTable {
	t := &ObjectTable{templates: make(map[uint32]*ObjectTemplate, len(templates))}
	for i := range templates {
		tmpl := templates[i]
		if !tmpl.Kind.Known() {
			t.unknown = append(t.unknown, tmpl.Entry)
		}
		t.templates[tmpl.Entry] = &tmpl
	}
	return t
}

// Get returns a template by entry, or nil if not found.
func (t *ObjectTable) Get(entry uint32) *ObjectTemplate {
	return t.templates[entry]
}

// Count returns the number of loaded templates.
func (t *ObjectTable) Count() int {
	return len(t.templates)
}

// UnknownKinds lists entries whose kind could not be resolved.
func (t *ObjectTable) UnknownKinds() []uint32 {
	return t.unknown
}
