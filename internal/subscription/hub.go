// Package subscription fans committed writes back out to live subscribers.
// The store remains the single owner of durable state; subscribers only ever
// receive freshly derived snapshots, never incremental patches.
package subscription

import (
	"log"
	"sync"
)

// sendBuffer bounds how far a subscriber may fall behind before it is
// dropped instead of blocking the publisher.
const sendBuffer = 8

// Subscriber is one live feed of a single user's collection snapshots.
type Subscriber struct {
	userID string
	ch     chan []byte
	once   sync.Once
}

// Messages returns the channel snapshots arrive on. The channel is closed
// when the subscriber is dropped or the user is signed out.
func (s *Subscriber) Messages() <-chan []byte {
	return s.ch
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Hub tracks subscribers keyed by user id and broadcasts each user's
// snapshots to all of that user's connections.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers a feed for the given user.
func (h *Hub) Subscribe(userID string) *Subscriber {
	sub := &Subscriber{userID: userID, ch: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscriber]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	return sub
}

// Unsubscribe removes and closes a single feed.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[sub.userID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.userID)
		}
	}
	h.mu.Unlock()
	sub.close()
}

// Broadcast delivers a snapshot to every subscriber of the user. Writes are
// fire-and-forget: a subscriber that cannot keep up is dropped rather than
// blocking delivery to the others.
func (h *Hub) Broadcast(userID string, payload []byte) {
	h.mu.RLock()
	var stale []*Subscriber
	for sub := range h.subs[userID] {
		select {
		case sub.ch <- payload:
		default:
			stale = append(stale, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range stale {
		log.Printf("Dropping slow subscriber for user %s", userID)
		h.Unsubscribe(sub)
	}
}

// CloseUser tears down every feed for the user. Sign-out goes through here
// so no connection can keep addressing another session's data.
func (h *Hub) CloseUser(userID string) {
	h.mu.Lock()
	set := h.subs[userID]
	delete(h.subs, userID)
	h.mu.Unlock()

	for sub := range set {
		sub.close()
	}
}

// SubscriberCount reports the number of live feeds for a user.
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
