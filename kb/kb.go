package kb

import (
	"fmt"
	"sync"

	"github.com/signalsfoundry/unit-simulator/model"
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventUnitAdded EventType = iota
	EventUnitMoved
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type     EventType
	Unit     model.Unit     // copy of the unit after the change
	Previous model.Position // position before the change; zero for EventUnitAdded
}

// KnowledgeBase is an in-memory, thread-safe store of units that preserves
// insertion order.
type KnowledgeBase struct {
	mu sync.RWMutex

	units map[string]*model.Unit
	order []string

	subs   map[int]func(Event)
	nextID int
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		units: make(map[string]*model.Unit),
		subs:  make(map[int]func(Event)),
	}
}

// AddUnit adds a new unit. It returns an error if the ID already exists.
func (kb *KnowledgeBase) AddUnit(u *model.Unit) error {
	if u == nil {
		return fmt.Errorf("unit is nil")
	}
	kb.mu.Lock()
	if _, exists := kb.units[u.ID]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("unit with ID %q already exists", u.ID)
	}
	stored := *u
	kb.units[u.ID] = &stored
	kb.order = append(kb.order, u.ID)
	subs := kb.subscribers()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventUnitAdded, Unit: stored})
	return nil
}

// GetUnit returns a copy of the unit with the given ID.
func (kb *KnowledgeBase) GetUnit(id string) (model.Unit, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	u, ok := kb.units[id]
	if !ok {
		return model.Unit{}, false
	}
	return *u, true
}

// ListUnits returns copies of all units in insertion order.
func (kb *KnowledgeBase) ListUnits() []model.Unit {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.Unit, 0, len(kb.order))
	for _, id := range kb.order {
		res = append(res, *kb.units[id])
	}
	return res
}

// Len returns the number of stored units.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.order)
}

// UpdateUnit replaces the stored state of an existing unit and notifies
// subscribers. Identity and subtype are immutable and must match.
func (kb *KnowledgeBase) UpdateUnit(u model.Unit) error {
	kb.mu.Lock()
	cur, ok := kb.units[u.ID]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("unit with ID %q not found", u.ID)
	}
	if cur.Subtype != u.Subtype || cur.Category() != u.Category() {
		kb.mu.Unlock()
		return fmt.Errorf("unit %q: subtype and category are immutable", u.ID)
	}
	prev := cur.Position
	*cur = u
	event := Event{
		Type:     EventUnitMoved,
		Unit:     u,
		Previous: prev,
	}
	subs := kb.subscribers()
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	notify(subs, event)
	return nil
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextID
	kb.nextID++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}

// subscribers snapshots callbacks in registration order. Callers hold kb.mu.
func (kb *KnowledgeBase) subscribers() []func(Event) {
	res := make([]func(Event), 0, len(kb.subs))
	for id := 0; id < kb.nextID; id++ {
		if fn, ok := kb.subs[id]; ok {
			res = append(res, fn)
		}
	}
	return res
}

func notify(subs []func(Event), e Event) {
	for _, sub := range subs {
		sub(e)
	}
}
