package messaging

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/core/ecs"
	"github.com/l1jgo/objectd/internal/world"
)

// Conn is the publish half of a NATS connection.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Message is the JSON body sent to viewers. Only the fields of its Type are set.
type Message struct {
	Type   string `json:"type"`
	MapID  uint32 `json:"map_id"`
	Object uint64 `json:"object"`

	Entry        uint32   `json:"entry,omitempty"`
	Fields       []string `json:"fields,omitempty"`
	Flags        uint32   `json:"flags,omitempty"`
	DisplayID    uint32   `json:"display_id,omitempty"`
	AnimProgress uint8    `json:"anim_progress,omitempty"`
	CustomAnim   uint32   `json:"custom_anim,omitempty"`
	SpellVisual  uint32   `json:"spell_visual,omitempty"`
	State        string   `json:"state,omitempty"`
	LootState    string   `json:"loot_state,omitempty"`
	Visible      *bool    `json:"visible,omitempty"`
}

const (
	MsgFields     = "fields"
	MsgPosture    = "posture"
	MsgDespawn    = "despawn"
	MsgVisibility = "visibility"
)

// NatsPublisher delivers object changes to `<prefix>.viewer.<id>` for one
// viewer and `<prefix>.map.<id>` for a whole map.
type NatsPublisher struct {
	conn   Conn
	prefix string
	log    *zap.Logger
}

func NewNatsPublisher(conn Conn, prefix string, log *zap.Logger) *NatsPublisher {
	return &NatsPublisher{conn: conn, prefix: prefix, log: log}
}

// Subject returns the subject an audience listens on.
func (p *NatsPublisher) Subject(to world.Audience) string {
	if to.Broadcast() {
		return fmt.Sprintf("%s.map.%d", p.prefix, to.MapID)
	}
	return fmt.Sprintf("%s.viewer.%d", p.prefix, uint64(to.Viewer))
}

func (p *NatsPublisher) send(to world.Audience, msg Message) {
	msg.MapID = to.MapID
	body, err := json.Marshal(msg)
	if err != nil {
		p.log.Error("encode viewer message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	subject := p.Subject(to)
	if err := p.conn.Publish(subject, body); err != nil {
		p.log.Warn("publish viewer message failed",
			zap.String("subject", subject),
			zap.String("type", msg.Type),
			zap.Error(err),
		)
	}
}

func (p *NatsPublisher) PublishChangedFields(to world.Audience, u world.FieldUpdate) {
	p.send(to, Message{
		Type:         MsgFields,
		Object:       uint64(u.Object),
		Entry:        u.Entry,
		Fields:       fieldNames(u.Fields),
		Flags:        uint32(u.Flags),
		DisplayID:    u.DisplayID,
		AnimProgress: u.AnimProgress,
		CustomAnim:   u.CustomAnim,
		SpellVisual:  u.SpellVisual,
		State:        u.State.String(),
		LootState:    u.LootState.String(),
	})
}

func (p *NatsPublisher) PublishPostureChange(to world.Audience, obj ecs.EntityID, state world.GOState) {
	p.send(to, Message{Type: MsgPosture, Object: uint64(obj), State: state.String()})
}

func (p *NatsPublisher) PublishDespawnSignal(to world.Audience, obj ecs.EntityID) {
	p.send(to, Message{Type: MsgDespawn, Object: uint64(obj)})
}

func (p *NatsPublisher) PublishVisibilityUpdate(to world.Audience, obj ecs.EntityID, visible bool) {
	p.send(to, Message{Type: MsgVisibility, Object: uint64(obj), Visible: &visible})
}

var fieldBits = []struct {
	bit  world.FieldMask
	name string
}{
	{world.FieldFlags, "flags"},
	{world.FieldDynamicFlags, "dynamic_flags"},
	{world.FieldDisplayID, "display_id"},
	{world.FieldAnimProgress, "anim_progress"},
	{world.FieldCustomAnim, "custom_anim"},
	{world.FieldSpellVisual, "spell_visual"},
	{world.FieldState, "state"},
	{world.FieldLootState, "loot_state"},
}

func fieldNames(m world.FieldMask) []string {
	var out []string
	for _, f := range fieldBits {
		if m&f.bit != 0 {
			out = append(out, f.name)
		}
	}
	return out
}
