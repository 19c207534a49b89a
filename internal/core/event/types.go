package event

import "github.com/l1jgo/objectd/internal/core/ecs"

// --- World object events (emitted during the object tick, readable next tick) ---

// CapturePointChanged is emitted whenever a capture point changes state.
// Subscribers: battleground scoring, world-state broadcasters.
type CapturePointChanged struct {
	ObjectID ecs.EntityID
	Entry    uint32
	MapID    uint32
	State    uint8 // world.CaptureState
	Team     uint8 // team that caused the change
}

// BuildingStateChanged is emitted when a destructible building crosses a
// health bucket or is forced into a state.
type BuildingStateChanged struct {
	ObjectID ecs.EntityID
	Entry    uint32
	MapID    uint32
	State    uint8 // world.DestructibleState
	SourceID uint64
}

// ObjectRemoved is emitted when an object leaves its map, either for good
// (Deleted) or to wait for a ledger-driven respawn.
type ObjectRemoved struct {
	ObjectID ecs.EntityID
	SpawnID  uint64
	Entry    uint32
	MapID    uint32
	Deleted  bool
}

// UseCreditGranted is emitted for each actor credited by a deactivating goober.
type UseCreditGranted struct {
	ObjectID ecs.EntityID
	Entry    uint32
	ActorID  uint64
}
