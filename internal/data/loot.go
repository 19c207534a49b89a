package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LootModeDefault is the mode bit every object starts with.
const LootModeDefault uint16 = 0x1

// LootItem is one possible item in an object's loot.
type LootItem struct {
	ItemID    int32  `yaml:"item_id"`
	Min       int    `yaml:"min"`
	Max       int    `yaml:"max"`
	Chance    int    `yaml:"chance"`    // out of 1,000,000 (100% = 1000000)
	LootMode  uint16 `yaml:"loot_mode"` // 0 = LootModeDefault
	QuestOnly bool   `yaml:"quest_only"`
	Heroic    bool   `yaml:"heroic"` // only rolled in raised-difficulty maps
}

// LootEntry is the full loot definition for one loot id.
type LootEntry struct {
	LootID   uint32     `yaml:"loot_id"`
	MoneyMin int64      `yaml:"money_min"`
	MoneyMax int64      `yaml:"money_max"`
	Items    []LootItem `yaml:"items"`
}

type lootListFile struct {
	Loot []LootEntry `yaml:"loot"`
}

// LootTable holds object loot indexed by loot id.
type LootTable struct {
	entries map[uint32]*LootEntry
}

// Get returns the loot definition for an id, or nil if none defined.
func (t *LootTable) Get(lootID uint32) *LootEntry {
	return t.entries[lootID]
}

// Count returns the number of loot ids with entries.
func (t *LootTable) Count() int {
	return len(t.entries)
}

// LoadLootTable loads object loot data from a YAML file.
func LoadLootTable(path string) (*LootTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gameobject_loot: %w", err)
	}
	var f lootListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse gameobject_loot: %w", err)
	}
	return NewLootTable(f.Loot...), nil
}

// NewLootTable indexes the given loot entries.
func NewLootTable(entries ...LootEntry) *LootTable {
	t := &LootTable{entries: make(map[uint32]*LootEntry, len(entries))}
	for i := range entries {
		e := entries[i]
		for j := range e.Items {
			if e.Items[j].LootMode == 0 {
				e.Items[j].LootMode = LootModeDefault
			}
		}
		t.entries[e.LootID] = &e
	}
	return t
}
