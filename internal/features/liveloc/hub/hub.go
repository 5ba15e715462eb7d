package hub

import (
	"errors"
	"sync"

	"delivery-tracker/internal/features/liveloc/domain"
)

// ErrSubscriptionLimit is returned when a subscriber tries to watch more
// orders than the configured cap allows.
var ErrSubscriptionLimit = errors.New("subscription limit reached")

// Subscriber is one consumer of location broadcasts, typically a websocket
// connection. Send must not block indefinitely; a failed Send drops the
// subscriber from every room it was in.
type Subscriber interface {
	Send(b domain.Broadcast) error
}

// Hub fans location broadcasts out to subscribers grouped by order id.
// Membership is process-local; each instance serves its own connections.
type Hub struct {
	mu               sync.RWMutex
	rooms            map[string]map[Subscriber]struct{}
	counts           map[Subscriber]int
	maxPerSubscriber int
}

// New creates a Hub. maxPerSubscriber caps how many orders a single
// subscriber may watch at once; zero or negative means unlimited.
func New(maxPerSubscriber int) *Hub {
	return &Hub{
		rooms:            map[string]map[Subscriber]struct{}{},
		counts:           map[Subscriber]int{},
		maxPerSubscriber: maxPerSubscriber,
	}
}

// Subscribe adds the subscriber to the order's room. Subscribing twice to the
// same order is a no-op and does not count against the cap.
func (h *Hub) Subscribe(orderID string, s Subscriber) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[orderID]
	if ok {
		if _, already := room[s]; already {
			return nil
		}
	}
	if h.maxPerSubscriber > 0 && h.counts[s] >= h.maxPerSubscriber {
		return ErrSubscriptionLimit
	}
	if !ok {
		room = map[Subscriber]struct{}{}
		h.rooms[orderID] = room
	}
	room[s] = struct{}{}
	h.counts[s]++
	return nil
}

// Unsubscribe removes the subscriber from the order's room.
func (h *Hub) Unsubscribe(orderID string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(orderID, s)
}

// Drop removes the subscriber from every room. Called when the underlying
// connection closes.
func (h *Hub) Drop(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for orderID, room := range h.rooms {
		if _, ok := room[s]; ok {
			h.removeLocked(orderID, s)
		}
	}
	delete(h.counts, s)
}

// Publish delivers the broadcast to every subscriber of the order and returns
// how many received it. Subscribers whose Send fails are dropped.
func (h *Hub) Publish(b domain.Broadcast) int {
	h.mu.RLock()
	room := h.rooms[b.OrderID]
	targets := make([]Subscriber, 0, len(room))
	for s := range room {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	delivered := 0
	var failed []Subscriber
	for _, s := range targets {
		if err := s.Send(b); err != nil {
			failed = append(failed, s)
			continue
		}
		delivered++
	}
	for _, s := range failed {
		h.Drop(s)
	}
	return delivered
}

func (h *Hub) removeLocked(orderID string, s Subscriber) {
	room, ok := h.rooms[orderID]
	if !ok {
		return
	}
	if _, member := room[s]; !member {
		return
	}
	delete(room, s)
	if len(room) == 0 {
		delete(h.rooms, orderID)
	}
	if h.counts[s] <= 1 {
		delete(h.counts, s)
	} else {
		h.counts[s]--
	}
}
