package notify

import (
	"context"
	"sync"

	"orphanadmin/internal/auth"
)

// Hub fan-outs notifications to active subscribers (SSE clients). A
// subscriber only sees notifications about its own actions, plus those with
// no actor.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]subscriber
	next   int
	buffer int
}

// NewHub initialises an empty hub. buffer is the per-subscriber queue length.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[int]subscriber), buffer: buffer}
}

type subscriber struct {
	user string
	ch   chan Notification
}

func (s subscriber) wants(n Notification) bool {
	return s.user == "" || n.Actor == "" || n.Actor == s.user
}

// Subscribe registers user as a subscriber and returns a channel which will
// receive notifications. An empty user receives everything. The channel is
// closed when ctx ends.
func (h *Hub) Subscribe(ctx context.Context, user string) <-chan Notification {
	ch := make(chan Notification, h.buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = subscriber{user: user, ch: ch}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Notify publishes n to the subscribers that want it, stamping the acting
// user from ctx.
func (h *Hub) Notify(ctx context.Context, n Notification) {
	if n.Actor == "" {
		if id, ok := auth.UserIDFromContext(ctx); ok {
			n.Actor = id
		}
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.wants(n) {
			continue
		}
		select {
		case sub.ch <- n:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
