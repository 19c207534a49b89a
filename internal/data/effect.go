package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EffectInfo describes a castable effect. Handler names the Lua function
// that resolves it; an empty handler means the effect only applies its
// built-in flags.
type EffectInfo struct {
	ID         uint32  `yaml:"id"`
	Name       string  `yaml:"name"`
	Handler    string  `yaml:"handler"`
	Range      float32 `yaml:"range"` // 0 = unlimited
	PlayerOnly bool    `yaml:"player_only"`
	Harmful    bool    `yaml:"harmful"`
}

type effectListFile struct {
	Effects []EffectInfo `yaml:"effects"`
}

// EffectTable holds effect definitions indexed by id.
type EffectTable struct {
	effects map[uint32]*EffectInfo
}

// LoadEffectTable loads effect definitions from a YAML file.
func LoadEffectTable(path string) (*EffectTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read effect_list: %w", err)
	}
	var f effectListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse effect_list: %w", err)
	}
	return NewEffectTable(f.Effects...), nil
}

// NewEffectTable indexes the given effects.
func NewEffectTable(effects ...EffectInfo) *EffectTable {
	t := &EffectTable{effects: make(map[uint32]*EffectInfo, len(effects))}
	for i := range effects {
		e := effects[i]
		t.effects[e.ID] = &e
	}
	return t
}

// Get returns an effect by id, or nil if not found.
func (t *EffectTable) Get(id uint32) *EffectInfo {
	return t.effects[id]
}

func (t *EffectTable) Count() int {
	return len(t.effects)
}
