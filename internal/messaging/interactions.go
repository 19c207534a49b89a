package messaging

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/core/ecs"
	"github.com/l1jgo/objectd/internal/data"
	"github.com/l1jgo/objectd/internal/world"
)

// ActorMessage asks the service owning an actor to apply the side effect
// of an object use.
type ActorMessage struct {
	Type   string `json:"type"`
	Actor  uint64 `json:"actor"`
	Object uint64 `json:"object,omitempty"`

	GossipID  uint32  `json:"gossip_id,omitempty"`
	MapID     uint32  `json:"map_id,omitempty"`
	X         float32 `json:"x,omitempty"`
	Y         float32 `json:"y,omitempty"`
	Z         float32 `json:"z,omitempty"`
	O         float32 `json:"o,omitempty"`
	Height    float32 `json:"height,omitempty"`
	Cinematic uint32  `json:"cinematic,omitempty"`
	Entry     uint32  `json:"entry,omitempty"`
}

const (
	MsgGossip      = "gossip"
	MsgTeleport    = "teleport"
	MsgSit         = "sit"
	MsgCinematic   = "cinematic"
	MsgFishEscaped = "fish_escaped"
	MsgUseCredit   = "use_credit"
)

// NatsInteractions forwards actor side effects to `<prefix>.actor.<id>`.
type NatsInteractions struct {
	conn   Conn
	prefix string
	log    *zap.Logger
}

func NewNatsInteractions(conn Conn, prefix string, log *zap.Logger) *NatsInteractions {
	return &NatsInteractions{conn: conn, prefix: prefix, log: log}
}

func (n *NatsInteractions) Subject(actor world.ActorID) string {
	return fmt.Sprintf("%s.actor.%d", n.prefix, uint64(actor))
}

func (n *NatsInteractions) send(msg ActorMessage) {
	body, err := json.Marshal(msg)
	if err != nil {
		n.log.Error("encode actor message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	subject := n.Subject(world.ActorID(msg.Actor))
	if err := n.conn.Publish(subject, body); err != nil {
		n.log.Warn("publish actor message failed",
			zap.String("subject", subject),
			zap.String("type", msg.Type),
			zap.Error(err),
		)
	}
}

func (n *NatsInteractions) OpenGossip(actor world.ActorID, obj ecs.EntityID, gossipID uint32) {
	n.send(ActorMessage{Type: MsgGossip, Actor: uint64(actor), Object: uint64(obj), GossipID: gossipID})
}

func (n *NatsInteractions) Teleport(actor world.ActorID, dest data.Teleport) {
	n.send(ActorMessage{
		Type:  MsgTeleport,
		Actor: uint64(actor),
		MapID: dest.MapID,
		X:     dest.X,
		Y:     dest.Y,
		Z:     dest.Z,
		O:     dest.Orientation,
	})
}

func (n *NatsInteractions) Sit(actor world.ActorID, seat world.Position, height float32) {
	n.send(ActorMessage{Type: MsgSit, Actor: uint64(actor), X: seat.X, Y: seat.Y, Z: seat.Z, O: seat.O, Height: height})
}

func (n *NatsInteractions) StartCinematic(actor world.ActorID, id uint32) {
	n.send(ActorMessage{Type: MsgCinematic, Actor: uint64(actor), Cinematic: id})
}

func (n *NatsInteractions) FishEscaped(actor world.ActorID) {
	n.send(ActorMessage{Type: MsgFishEscaped, Actor: uint64(actor)})
}

func (n *NatsInteractions) GrantUseCredit(actor world.ActorID, entry uint32) {
	n.send(ActorMessage{Type: MsgUseCredit, Actor: uint64(actor), Entry: entry})
}
