package world

import "github.com/l1jgo/objectd/internal/data"

// KindBehavior holds the kind-specific parts of the lifecycle. The core
// state machine calls these at fixed points; a behavior never re-enters
// Update.
type KindBehavior interface {
	OnCreate(o *GameObject)
	// OnTick runs every tick before the loot state switch.
	OnTick(o *GameObject, diff int64)
	// OnArm resolves NotReady. Returning false keeps the object waiting.
	OnArm(o *GameObject) bool
	// OnReset runs when a compatibility-mode respawn timer matures.
	OnReset(o *GameObject)
	// OnReady runs every tick a spawned object sits in Ready.
	OnReady(o *GameObject)
	OnActivated(o *GameObject)
	OnUse(o *GameObject, actor Actor) UseOutcome
	OnDeactivate(o *GameObject)
	// OnRestock decides whether a deactivated object stays in place instead
	// of despawning. It is only asked for objects that do not despawn at
	// action.
	OnRestock(o *GameObject) bool
}

// UseOutcome is what a kind use handler reports back to the core.
type UseOutcome struct {
	Result UseResult
	Effect uint32 // deferred effect, 0 = none
	// Caster overrides the acting unit as effect source.
	Caster ActorID
	// ObjectCasts makes the object itself the effect source.
	ObjectCasts bool
}

func used() UseOutcome { return UseOutcome{Result: UseOK} }

func ignored() UseOutcome { return UseOutcome{Result: UseIgnored} }

// baseBehavior is embedded by every kind and provides the defaults.
type baseBehavior struct{}

func (baseBehavior) OnCreate(*GameObject)                {}
func (baseBehavior) OnTick(*GameObject, int64)           {}
func (baseBehavior) OnArm(*GameObject) bool              { return true }
func (baseBehavior) OnReset(*GameObject)                 {}
func (baseBehavior) OnReady(*GameObject)                 {}
func (baseBehavior) OnActivated(*GameObject)             {}
func (baseBehavior) OnUse(*GameObject, Actor) UseOutcome { return used() }
func (baseBehavior) OnDeactivate(*GameObject)            {}
func (baseBehavior) OnRestock(*GameObject) bool          { return false }

// KindInfo is one row of the interaction type registry.
type KindInfo struct {
	Kind     data.Kind
	Distance float32 // default interaction distance
	Behavior KindBehavior
	UsableIn LootMask // loot states in which Use is accepted
	// Collides inserts a collision model while the object is on the map.
	Collides bool
	// PersonalLoot gives every looter an own session.
	PersonalLoot bool
}

// KindRegistry maps a kind to its row. It is built once at startup and
// read-only afterwards.
type KindRegistry struct {
	infos    map[data.Kind]*KindInfo
	fallback *KindInfo
}

const defaultInteractDistance = 5

// NewKindRegistry returns the registry with every built-in kind.
func NewKindRegistry() *KindRegistry {
	ready := MaskOf(LootReady)
	readyOrActive := MaskOf(LootReady, LootActivated)

	fallback := &KindInfo{Kind: data.KindUnknown, Distance: defaultInteractDistance, Behavior: genericBehavior{}}
	r := &KindRegistry{infos: make(map[data.Kind]*KindInfo), fallback: fallback}
	door := doorBehavior{}
	r.Register(KindInfo{Kind: data.KindDoor, Distance: 5, Behavior: door, UsableIn: readyOrActive, Collides: true})
	r.Register(KindInfo{Kind: data.KindButton, Distance: 5, Behavior: buttonBehavior{door}, UsableIn: readyOrActive, Collides: true})
	r.Register(KindInfo{Kind: data.KindQuestGiver, Distance: 5.5, Behavior: gossipBehavior{}, UsableIn: ready})
	r.Register(KindInfo{Kind: data.KindChest, Distance: 5, Behavior: chestBehavior{}, UsableIn: readyOrActive, Collides: true})
	r.Register(KindInfo{Kind: data.KindBinder, Distance: 10, Behavior: spellBehavior{}, UsableIn: ready})
	r.Register(KindInfo{Kind: data.KindGeneric, Distance: 5, Behavior: genericBehavior{}, UsableIn: ready, Collides: true})
	r.Register(KindInfo{Kind: data.KindTrap, Distance: 5, Behavior: trapBehavior{}, UsableIn: ready})
	r.Register(KindInfo{Kind: data.KindChair, Distance: 3, Behavior: chairBehavior{}, UsableIn: readyOrActive, Collides: true})
	r.Register(KindInfo{Kind: data.KindSpellFocus, Distance: 5, Behavior: spellFocusBehavior{}, UsableIn: ready})
	r.Register(KindInfo{Kind: data.KindText, Distance: 5.5, Behavior: gossipBehavior{}, UsableIn: ready})
	r.Register(KindInfo{Kind: data.KindGoober, Distance: 5, Behavior: gooberBehavior{}, UsableIn: ready, Collides: true})
	r.Register(KindInfo{Kind: data.KindTransport, Distance: 20, Behavior: transportBehavior{}, UsableIn: readyOrActive, Collides: true})
	r.Register(KindInfo{Kind: data.KindAreaDamage, Distance: 0, Behavior: genericBehavior{}})
	r.Register(KindInfo{Kind: data.KindCamera, Distance: 5, Behavior: cameraBehavior{}, UsableIn: ready})
	r.Register(KindInfo{Kind: data.KindMapObject, Distance: 5, Behavior: genericBehavior{}, Collides: true})
	r.Register(KindInfo{Kind: data.KindMapObjTransport, Distance: 20, Behavior: transportBehavior{}, Collides: true})
	r.Register(KindInfo{Kind: data.KindDuelArbiter, Distance: 5, Behavior: genericBehavior{}})
	r.Register(KindInfo{Kind: data.KindFishingNode, Distance: 100, Behavior: fishingNodeBehavior{}, UsableIn: MaskOf(LootNotReady, LootReady)})
	r.Register(KindInfo{Kind: data.KindRitual, Distance: 5, Behavior: ritualBehavior{}, UsableIn: ready})
	r.Register(KindInfo{Kind: data.KindMailbox, Distance: 10, Behavior: genericBehavior{}, UsableIn: ready})
	r.Register(KindInfo{Kind: data.KindGuardPost, Distance: 5, Behavior: spellCasterBehavior{}, UsableIn: ready})
	r.Register(KindInfo{Kind: data.KindSpellCaster, Distance: 5, Behavior: spellCasterBehavior{}, UsableIn: ready})
	r.Register(KindInfo{Kind: data.KindMeetingStone, Distance: 5, Behavior: genericBehavior{}, UsableIn: ready})
	r.Register(KindInfo{Kind: data.KindFlagStand, Distance: 5.5, Behavior: flagBehavior{}, UsableIn: ready})
	r.Register(KindInfo{Kind: data.KindFishingHole, Distance: 20, Behavior: fishingHoleBehavior{}, UsableIn: readyOrActive})
	r.Register(KindInfo{Kind: data.KindFlagDrop, Distance: 5.5, Behavior: flagBehavior{drop: true}, UsableIn: ready})
	r.Register(KindInfo{Kind: data.KindCapturePoint, Distance: 10, Behavior: capturePointBehavior{}, UsableIn: ready})
	r.Register(KindInfo{Kind: data.KindDestructibleBuilding, Distance: 5, Behavior: buildingBehavior{}, Collides: true})
	r.Register(KindInfo{Kind: data.KindGatheringNode, Distance: 5, Behavior: gatheringBehavior{}, UsableIn: ready, PersonalLoot: true})
	return r
}

// Register adds or replaces the row of a kind. Call it only during startup.
func (r *KindRegistry) Register(info KindInfo) {
	if info.Behavior == nil {
		info.Behavior = genericBehavior{}
	}
	r.infos[info.Kind] = &info
}

// Info returns the row of a kind, or a generic row for kinds without one.
func (r *KindRegistry) Info(k data.Kind) *KindInfo {
	if info, ok := r.infos[k]; ok {
		return info
	}
	return r.fallback
}

func (r *KindRegistry) Count() int { return len(r.infos) }

// interactDistance is the template radius or the kind default.
func (o *GameObject) interactDistance() float32 {
	return o.tmpl.Radius(o.info.Distance)
}

// personal reports whether loot is handed out per looter.
func (o *GameObject) personal() bool {
	if o.info.PersonalLoot {
		return true
	}
	return o.tmpl.Kind == data.KindChest && o.tmpl.Chest != nil && o.tmpl.Chest.PersonalLoot
}
