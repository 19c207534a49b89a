package data

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the interaction category of a world object. Values match the
// client's object type ids so they can be stored verbatim in spawn tables.
type Kind uint8

const (
	KindDoor                 Kind = 0
	KindButton               Kind = 1
	KindQuestGiver           Kind = 2
	KindChest                Kind = 3
	KindBinder               Kind = 4
	KindGeneric              Kind = 5
	KindTrap                 Kind = 6
	KindChair                Kind = 7
	KindSpellFocus           Kind = 8
	KindText                 Kind = 9
	KindGoober               Kind = 10
	KindTransport            Kind = 11
	KindAreaDamage           Kind = 12
	KindCamera               Kind = 13
	KindMapObject            Kind = 14
	KindMapObjTransport      Kind = 15
	KindDuelArbiter          Kind = 16
	KindFishingNode          Kind = 17
	KindRitual               Kind = 18
	KindMailbox              Kind = 19
	KindGuardPost            Kind = 21
	KindSpellCaster          Kind = 22
	KindMeetingStone         Kind = 23
	KindFlagStand            Kind = 24
	KindFishingHole          Kind = 25
	KindFlagDrop             Kind = 26
	KindCapturePoint         Kind = 29
	KindDestructibleBuilding Kind = 33
	KindGatheringNode        Kind = 50

	KindUnknown Kind = 0xFF
)

var kindNames = map[Kind]string{
	KindDoor:                 "door",
	KindButton:               "button",
	KindQuestGiver:           "questgiver",
	KindChest:                "chest",
	KindBinder:               "binder",
	KindGeneric:              "generic",
	KindTrap:                 "trap",
	KindChair:                "chair",
	KindSpellFocus:           "spell_focus",
	KindText:                 "text",
	KindGoober:               "goober",
	KindTransport:            "transport",
	KindAreaDamage:           "area_damage",
	KindCamera:               "camera",
	KindMapObject:            "map_object",
	KindMapObjTransport:      "map_obj_transport",
	KindDuelArbiter:          "duel_arbiter",
	KindFishingNode:          "fishing_node",
	KindRitual:               "ritual",
	KindMailbox:              "mailbox",
	KindGuardPost:            "guard_post",
	KindSpellCaster:          "spell_caster",
	KindMeetingStone:         "meeting_stone",
	KindFlagStand:            "flag_stand",
	KindFishingHole:          "fishing_hole",
	KindFlagDrop:             "flag_drop",
	KindCapturePoint:         "capture_point",
	KindDestructibleBuilding: "destructible_building",
	KindGatheringNode:        "gathering_node",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Known reports whether k is one of the declared kinds.
func (k Kind) Known() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind resolves a kind by name or numeric id. Unknown names yield
// KindUnknown so a single bad template does not fail the whole table.
func ParseKind(s string) Kind {
	s = strings.ToLower(strings.TrimSpace(s))
	if k, ok := kindByName[s]; ok {
		return k
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && n >= 0 && n < 0xFF {
		if k := Kind(n); k.Known() {
			return k
		}
	}
	return KindUnknown
}

func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	*k = ParseKind(s)
	return nil
}

func (k Kind) MarshalYAML() (any, error) {
	return k.String(), nil
}
