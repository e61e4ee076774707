package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Action identifies what happened to a record.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionApproved Action = "approved"
	ActionRejected Action = "rejected"
	ActionDeleted  Action = "deleted"
)

// RecordEvent is broadcast whenever a record changes. It carries just enough
// for subscribers to refresh their lists.
type RecordEvent struct {
	Action     Action    `json:"action"`
	RecordID   string    `json:"record_id"`
	RecordType string    `json:"record_type"`
	OwnerID    string    `json:"owner_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Filter selects which events a subscriber receives. Zero values match all.
type Filter struct {
	OwnerID    string
	RecordType string
	Status     string
}

func (f Filter) matches(event RecordEvent) bool {
	if f.OwnerID != "" && f.OwnerID != event.OwnerID {
		return false
	}
	if f.RecordType != "" && f.RecordType != event.RecordType {
		return false
	}
	if f.Status != "" && f.Status != event.Status {
		return false
	}
	return true
}

type subscriber struct {
	filter Filter
	ch     chan RecordEvent
}

// Hub is an in-process publish/subscribe fan-out for record changes. Slow
// subscribers drop events rather than blocking publishers.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
	logger zerolog.Logger
}

// NewHub constructs an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]*subscriber),
		logger: logger.With().Str("component", "events_hub").Logger(),
	}
}

// Subscribe registers a filtered listener. The returned function removes the
// subscription and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(filter Filter, buffer int) (<-chan RecordEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	sub := &subscriber{filter: filter, ch: make(chan RecordEvent, buffer)}
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}

	return sub.ch, unsubscribe
}

// Publish delivers the event to every matching subscriber without blocking.
func (h *Hub) Publish(event RecordEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if !sub.filter.matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			h.logger.Warn().
				Str("record_id", event.RecordID).
				Str("action", string(event.Action)).
				Msg("subscriber buffer full, event dropped")
		}
	}
}

// SubscriberCount reports the number of active subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
