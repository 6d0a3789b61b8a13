package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"busline/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func TestHubRoutesByTripAndRider(t *testing.T) {
	hub := NewHub(4, logger.Discard())
	trip, rider := uuid.New(), uuid.New()

	tripSub := hub.Subscribe(TripTopic(trip))
	riderSub := hub.Subscribe(RiderTopic(rider))
	otherSub := hub.Subscribe(TripTopic(uuid.New()))
	defer tripSub.Close()
	defer riderSub.Close()
	defer otherSub.Close()

	ev := Event{EntityKind: EntityReservation, EntityID: uuid.New(), NewStatus: "pending", TripID: trip, RiderID: rider}
	hub.Publish(context.Background(), ev)

	for _, sub := range []*Subscription{tripSub, riderSub} {
		select {
		case got := <-sub.Events:
			if got.EntityID != ev.EntityID {
				t.Fatalf("%s got %+v", sub.Topic, got)
			}
		default:
			t.Fatalf("%s received nothing", sub.Topic)
		}
	}
	select {
	case got := <-otherSub.Events:
		t.Fatalf("unrelated topic received %+v", got)
	default:
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(1, logger.Discard())
	trip := uuid.New()
	sub := hub.Subscribe(TripTopic(trip))
	defer sub.Close()

	for i := 0; i < 3; i++ {
		hub.Publish(context.Background(), Event{EntityID: uuid.New(), TripID: trip})
	}
	if hub.Dropped() != 2 {
		t.Fatalf("dropped = %d, want 2", hub.Dropped())
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	hub := NewHub(1, logger.Discard())
	topic := TripTopic(uuid.New())
	sub := hub.Subscribe(topic)

	sub.Close()
	sub.Close()

	if n := hub.Subscribers(topic); n != 0 {
		t.Fatalf("subscribers = %d after close", n)
	}
	if _, ok := <-sub.Events; ok {
		t.Fatal("channel still open")
	}
	// Publishing to a topic nobody listens on is a no-op.
	hub.Publish(context.Background(), Event{TripID: uuid.New()})
}

func TestEventWireFormat(t *testing.T) {
	ev := Event{EntityKind: EntityTicket, EntityID: uuid.New(), NewStatus: "confirmed", TripID: uuid.New(), RiderID: uuid.New()}
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatal(err)
	}
	if len(fields) != 4 {
		t.Fatalf("wire event has %d fields: %s", len(fields), raw)
	}
	for _, k := range []string{"entity_kind", "entity_id", "new_status", "timestamp"} {
		if _, ok := fields[k]; !ok {
			t.Fatalf("missing %s in %s", k, raw)
		}
	}
}

func TestStreamDeliversEvents(t *testing.T) {
	hub := NewHub(4, logger.Discard())
	trip := uuid.New()
	topic := TripTopic(trip)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stream(w, r, hub.Subscribe(topic), StreamConfig{PongWait: time.Second}, logger.Discard())
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers(topic) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	sent := Event{EntityKind: EntityTicket, EntityID: uuid.New(), NewStatus: "cancelled", Timestamp: time.Now().UTC(), TripID: trip}
	hub.Publish(context.Background(), sent)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.EntityID != sent.EntityID || got.NewStatus != "cancelled" || got.EntityKind != EntityTicket {
		t.Fatalf("got %+v", got)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.Subscribers(topic) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not released after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
