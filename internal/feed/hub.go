// Package feed fans availability events out to in-process subscribers.
package feed

import (
	"sync"

	"go.uber.org/zap"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/pkg/logger"
)

// DefaultBufferSize is the per-subscriber channel capacity
const DefaultBufferSize = 64

type topic struct {
	venueID string
	sportID string
}

// Subscription receives events for one venue and sport until cancelled
type Subscription struct {
	Events <-chan domain.SlotEvent

	once   sync.Once
	cancel func()
}

// Cancel stops delivery and closes Events. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Hub delivers events without blocking the publisher. A subscriber whose
// buffer is full misses the event.
type Hub struct {
	mu         sync.RWMutex
	subs       map[topic]map[uint64]chan domain.SlotEvent
	nextID     uint64
	bufferSize int
	closed     bool
	log        *logger.Logger

	// OnDrop is called for every event a slow subscriber missed
	OnDrop func(event domain.SlotEvent)
}

// NewHub creates a hub with the given per-subscriber buffer
func NewHub(bufferSize int, log *logger.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		subs:       make(map[topic]map[uint64]chan domain.SlotEvent),
		bufferSize: bufferSize,
		log:        log,
	}
}

// Subscribe registers for events on (venueID, sportID)
func (h *Hub) Subscribe(venueID, sportID string) *Subscription {
	ch := make(chan domain.SlotEvent, h.bufferSize)
	key := topic{venueID: venueID, sportID: sportID}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return &Subscription{Events: ch, cancel: func() {}}
	}

	h.nextID++
	id := h.nextID
	if h.subs[key] == nil {
		h.subs[key] = make(map[uint64]chan domain.SlotEvent)
	}
	h.subs[key][id] = ch

	return &Subscription{
		Events: ch,
		cancel: func() { h.unsubscribe(key, id) },
	}
}

func (h *Hub) unsubscribe(key topic, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.subs[key]
	if !ok {
		return
	}
	if ch, ok := group[id]; ok {
		delete(group, id)
		close(ch)
	}
	if len(group) == 0 {
		delete(h.subs, key)
	}
}

// Publish delivers event to every subscriber of its venue and sport and
// returns how many received it
func (h *Hub) Publish(event domain.SlotEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, ch := range h.subs[topic{venueID: event.VenueID, sportID: event.SportID}] {
		select {
		case ch <- event:
			delivered++
		default:
			h.log.Warn("Dropping feed event for slow subscriber",
				zap.String("event_id", event.ID),
				zap.String("venue_id", event.VenueID),
				zap.String("sport_id", event.SportID),
			)
			if h.OnDrop != nil {
				h.OnDrop(event)
			}
		}
	}
	return delivered
}

// SubscriberCount returns the number of live subscriptions
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, group := range h.subs {
		n += len(group)
	}
	return n
}

// Close ends every subscription. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for key, group := range h.subs {
		for id, ch := range group {
			close(ch)
			delete(group, id)
		}
		delete(h.subs, key)
	}
}
