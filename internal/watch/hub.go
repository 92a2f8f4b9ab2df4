package watch

import (
	"context"
	"sync"

	"projecttracker/pkg/metrics"

	"go.uber.org/zap"
)

// Scope filters change events the way a store query filters documents:
// empty fields match anything, set fields must match exactly.
type Scope struct {
	Collection  string
	OwnerID     string
	ProjectID   string
	MilestoneID string
	AssigneeID  string
}

func (s Scope) Matches(ev Event) bool {
	if s.Collection != "" && s.Collection != ev.Collection {
		return false
	}
	if s.OwnerID != "" && s.OwnerID != ev.OwnerID {
		return false
	}
	if s.ProjectID != "" && s.ProjectID != ev.ProjectID {
		return false
	}
	if s.MilestoneID != "" && s.MilestoneID != ev.MilestoneID {
		return false
	}
	if s.AssigneeID != "" && s.AssigneeID != ev.AssigneeID {
		return false
	}
	return true
}

// Subscription is a live listener handle. Cancel must be called when the
// subscriber's page unmounts or its scope changes; a subscription that is
// never cancelled keeps firing for the life of the hub.
type Subscription struct {
	hub   *Hub
	id    int
	scope Scope
}

func (s *Subscription) Cancel() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	delete(s.hub.subs, s.id)
	delete(s.hub.reload, s.id)
}

// Hub fans change events out to subscribers. Each matching subscriber's
// reload callback is invoked so it can re-run its query and rebuild its
// snapshot.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]*Subscription
	reload map[int]func(Event)
	nextID int
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]*Subscription),
		reload: make(map[int]func(Event)),
		logger: logger,
	}
}

// Subscribe registers a listener. The reload callback runs once per matching
// event, on the dispatching goroutine.
func (h *Hub) Subscribe(scope Scope, reload func(Event)) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{hub: h, id: h.nextID, scope: scope}
	h.subs[sub.id] = sub
	h.reload[sub.id] = reload

	h.logger.Debug("Subscription registered",
		zap.Int("subscription_id", sub.id),
		zap.String("collection", scope.Collection),
	)
	return sub
}

// Dispatch delivers an event to every matching subscriber.
func (h *Hub) Dispatch(ev Event) {
	h.mu.Lock()
	var callbacks []func(Event)
	for id, sub := range h.subs {
		if sub.scope.Matches(ev) {
			callbacks = append(callbacks, h.reload[id])
		}
	}
	h.mu.Unlock()

	for _, cb := range callbacks {
		cb(ev)
		metrics.IncrementSnapshotDelivered(ev.Collection)
	}
}

// LocalBus is an in-process Publisher that dispatches straight into a hub.
// Used in tests and when no broker is configured.
type LocalBus struct {
	Hub *Hub
}

func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	b.Hub.Dispatch(ev)
	return nil
}
