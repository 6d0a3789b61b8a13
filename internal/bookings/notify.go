package bookings

import (
	"context"
	"time"

	"busline/internal/feed"

	"github.com/google/uuid"
)

// SupervisorNotice tells a supervisor a request is waiting. It never carries
// rider identity.
type SupervisorNotice struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	TripID        uuid.UUID `json:"trip_id"`
	SupervisorID  uuid.UUID `json:"supervisor_id"`
}

// Notifier delivers supervisor notices after the request has committed
type Notifier interface {
	NotifySupervisor(ctx context.Context, notice SupervisorNotice) error
}

func reservationEvent(r *Reservation, at time.Time) feed.Event {
	return feed.Event{
		EntityKind: feed.EntityReservation,
		EntityID:   r.ID,
		NewStatus:  r.Status.String(),
		Timestamp:  at,
		TripID:     r.TripID,
		RiderID:    r.RiderID,
	}
}

func ticketEvent(t *Ticket, at time.Time) feed.Event {
	return feed.Event{
		EntityKind: feed.EntityTicket,
		EntityID:   t.ID,
		NewStatus:  t.Status.String(),
		Timestamp:  at,
		TripID:     t.TripID,
		RiderID:    t.RiderID,
	}
}

// transitionedAt is the stamp of the reservation's current status
func (r *Reservation) transitionedAt() time.Time {
	switch {
	case r.Status == ReservationAccepted && r.AcceptedAt != nil:
		return *r.AcceptedAt
	case r.Status == ReservationRejected && r.RejectedAt != nil:
		return *r.RejectedAt
	case r.Status == ReservationCancelled && r.CancelledAt != nil:
		return *r.CancelledAt
	}
	return r.RequestedAt
}

func (t *Ticket) transitionedAt() time.Time {
	switch {
	case t.Status == TicketCompleted && t.CompletedAt != nil:
		return *t.CompletedAt
	case t.Status == TicketCancelled && t.CancelledAt != nil:
		return *t.CancelledAt
	}
	return t.IssuedAt
}
