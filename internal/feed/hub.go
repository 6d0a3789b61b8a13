// Package feed fans committed status changes out to live subscribers.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"busline/pkg/logger"

	"github.com/google/uuid"
)

type EntityKind string

const (
	EntityReservation EntityKind = "reservation"
	EntityTicket      EntityKind = "ticket"
)

// Event is one committed status change. Only the four public fields go on
// the wire; trip and rider ids are used for routing.
type Event struct {
	EntityKind EntityKind `json:"entity_kind"`
	EntityID   uuid.UUID  `json:"entity_id"`
	NewStatus  string     `json:"new_status"`
	Timestamp  time.Time  `json:"timestamp"`

	TripID  uuid.UUID `json:"-"`
	RiderID uuid.UUID `json:"-"`
}

// Publisher accepts events after their transaction has committed
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

func TripTopic(tripID uuid.UUID) string {
	return "trip:" + tripID.String()
}

func RiderTopic(riderID uuid.UUID) string {
	return "rider:" + riderID.String()
}

// Hub routes events to per-topic subscribers. Delivery is best effort: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Subscription]struct{}
	buffer  int
	log     *logger.Logger
	dropped atomic.Int64
}

func NewHub(buffer int, log *logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		log:    log,
	}
}

// Subscription receives events for one topic until closed
type Subscription struct {
	Topic  string
	Events <-chan Event

	ch   chan Event
	hub  *Hub
	once sync.Once
}

func (h *Hub) Subscribe(topic string) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{Topic: topic, Events: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Subscription]struct{})
	}
	h.topics[topic][sub] = struct{}{}
	return sub
}

// Close unsubscribes and closes the event channel. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.topics[s.Topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(h.topics, s.Topic)
			}
		}
		close(s.ch)
	})
}

// Publish delivers ev to the trip topic and, when set, the rider topic.
// It never blocks.
func (h *Hub) Publish(_ context.Context, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.deliver(TripTopic(ev.TripID), ev)
	if ev.RiderID != uuid.Nil {
		h.deliver(RiderTopic(ev.RiderID), ev)
	}
}

func (h *Hub) deliver(topic string, ev Event) {
	for sub := range h.topics[topic] {
		select {
		case sub.ch <- ev:
		default:
			h.dropped.Add(1)
			h.log.Warn("Feed subscriber buffer full, dropping event",
				slog.String("topic", topic),
				slog.String("entity_id", ev.EntityID.String()),
			)
		}
	}
}

// Subscribers counts live subscriptions on a topic
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Dropped counts events lost to full buffers since start
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
