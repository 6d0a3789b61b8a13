package notifications

import (
	"encoding/json"
	"time"

	"busline/internal/bookings"
	"busline/internal/feed"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeSupervisorNotice MessageType = "SUPERVISOR_NOTICE"
	MessageTypeTransition       MessageType = "TRANSITION"
)

// NoticeMessage is a supervisor notice on the wire. It carries ids only.
type NoticeMessage struct {
	ID            uuid.UUID   `json:"id"`
	Type          MessageType `json:"type"`
	ReservationID uuid.UUID   `json:"reservation_id"`
	TripID        uuid.UUID   `json:"trip_id"`
	SupervisorID  uuid.UUID   `json:"supervisor_id"`
	CreatedAt     time.Time   `json:"created_at"`
}

// TransitionMessage is a committed status change on the wire. Unlike the
// feed's public form it keeps the routing ids so consumers can fan out.
type TransitionMessage struct {
	ID         uuid.UUID       `json:"id"`
	Type       MessageType     `json:"type"`
	EntityKind feed.EntityKind `json:"entity_kind"`
	EntityID   uuid.UUID       `json:"entity_id"`
	NewStatus  string          `json:"new_status"`
	Timestamp  time.Time       `json:"timestamp"`
	TripID     uuid.UUID       `json:"trip_id"`
	RiderID    uuid.UUID       `json:"rider_id"`
}

func NewNoticeMessage(n bookings.SupervisorNotice) *NoticeMessage {
	return &NoticeMessage{
		ID:            uuid.New(),
		Type:          MessageTypeSupervisorNotice,
		ReservationID: n.ReservationID,
		TripID:        n.TripID,
		SupervisorID:  n.SupervisorID,
		CreatedAt:     time.Now().UTC(),
	}
}

func (m *NoticeMessage) Notice() bookings.SupervisorNotice {
	return bookings.SupervisorNotice{
		ReservationID: m.ReservationID,
		TripID:        m.TripID,
		SupervisorID:  m.SupervisorID,
	}
}

// GetPartitionKey keeps a supervisor's notices in order
func (m *NoticeMessage) GetPartitionKey() string {
	return m.SupervisorID.String()
}

func (m *NoticeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NewTransitionMessage(ev feed.Event) *TransitionMessage {
	return &TransitionMessage{
		ID:         uuid.New(),
		Type:       MessageTypeTransition,
		EntityKind: ev.EntityKind,
		EntityID:   ev.EntityID,
		NewStatus:  ev.NewStatus,
		Timestamp:  ev.Timestamp,
		TripID:     ev.TripID,
		RiderID:    ev.RiderID,
	}
}

func (m *TransitionMessage) Event() feed.Event {
	return feed.Event{
		EntityKind: m.EntityKind,
		EntityID:   m.EntityID,
		NewStatus:  m.NewStatus,
		Timestamp:  m.Timestamp,
		TripID:     m.TripID,
		RiderID:    m.RiderID,
	}
}

// GetPartitionKey keeps one trip's transitions in commit order
func (m *TransitionMessage) GetPartitionKey() string {
	return m.TripID.String()
}

func (m *TransitionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
