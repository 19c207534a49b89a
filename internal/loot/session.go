package loot

import (
	"errors"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/core/ecs"
	"github.com/l1jgo/objectd/internal/world"
)

var (
	ErrNotLooter = errors.New("loot: actor may not loot this session")
	ErrNoSlot    = errors.New("loot: no such slot")
	ErrTaken     = errors.New("loot: slot already taken")
)

// Item is one rolled stack.
type Item struct {
	ItemID    int32
	Count     int
	QuestOnly bool
	Taken     bool
}

// Session is the rolled loot of one object for one audience.
type Session struct {
	ID     uuid.UUID
	Object ecs.EntityID
	LootID uint32
	Owner  world.ActorID

	items      []Item
	money      int64
	groupRules bool
	looters    map[world.ActorID]struct{}

	f *Factory
}

// Fill rolls the loot of lootID. Items outside modeMask are skipped, as are
// heroic items on normal difficulty.
func (s *Session) Fill(lootID uint32, actor world.ActorID, groupRules, money bool, modeMask uint16, difficulty uint8) {
	s.LootID = lootID
	s.Owner = actor
	s.groupRules = groupRules
	s.items = s.items[:0]
	s.money = 0

	entry := s.f.table.Get(lootID)
	if entry == nil {
		s.f.log.Warn("loot id has no entries", zap.Uint32("loot_id", lootID), zap.Uint64("object", uint64(s.Object)))
		return
	}
	if money && entry.MoneyMax > 0 {
		s.money = entry.MoneyMin
		if entry.MoneyMax > entry.MoneyMin {
			s.money += s.f.rand.Int63n(entry.MoneyMax - entry.MoneyMin + 1)
		}
	}
	for _, it := range entry.Items {
		if it.LootMode&modeMask == 0 {
			continue
		}
		if it.Heroic && difficulty == 0 {
			continue
		}
		if it.Chance < 1000000 && s.f.rand.Intn(1000000) >= it.Chance {
			continue
		}
		s.items = append(s.items, Item{ItemID: it.ItemID, Count: rollCount(s.f.rand, it.Min, it.Max), QuestOnly: it.QuestOnly})
	}
}

func rollCount(r *rand.Rand, lo, hi int) int {
	if lo < 1 {
		lo = 1
	}
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

// GrantTo lets actor loot the session. With group rules the whole group of
// actor is granted at once.
func (s *Session) GrantTo(actor world.ActorID) {
	if s.groupRules && s.f.actors != nil {
		for _, m := range s.f.actors.GroupMembers(actor) {
			s.looters[m] = struct{}{}
		}
		return
	}
	s.looters[actor] = struct{}{}
}

// CanLoot reports whether actor was granted access.
func (s *Session) CanLoot(actor world.ActorID) bool {
	_, ok := s.looters[actor]
	return ok
}

// Items returns a copy of the rolled stacks.
func (s *Session) Items() []Item {
	return append([]Item(nil), s.items...)
}

func (s *Session) Money() int64 { return s.money }

// Take removes the stack at slot for actor.
func (s *Session) Take(actor world.ActorID, slot int) (Item, error) {
	if !s.CanLoot(actor) {
		return Item{}, ErrNotLooter
	}
	if slot < 0 || slot >= len(s.items) {
		return Item{}, ErrNoSlot
	}
	it := &s.items[slot]
	if it.Taken {
		return Item{}, ErrTaken
	}
	it.Taken = true
	return *it, nil
}

// TakeMoney hands all coins to actor and returns the amount.
func (s *Session) TakeMoney(actor world.ActorID) (int64, error) {
	if !s.CanLoot(actor) {
		return 0, ErrNotLooter
	}
	m := s.money
	s.money = 0
	return m, nil
}

// IsFullyConsumed reports whether every stack and all money were taken.
func (s *Session) IsFullyConsumed() bool {
	if s.money > 0 {
		return false
	}
	for _, it := range s.items {
		if !it.Taken {
			return false
		}
	}
	return true
}
