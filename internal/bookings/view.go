package bookings

import (
	"encoding/json"
	"time"

	"busline/internal/trips"
	"busline/internal/users"

	"github.com/google/uuid"
)

// BoardingPointView is a stop as shown to a rider
type BoardingPointView struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Sequence int             `json:"sequence"`
	Location json.RawMessage `json:"location"` // GeoJSON Point
}

// ReservationView is a reservation as one particular actor may see it
type ReservationView struct {
	ID                 uuid.UUID           `json:"id"`
	TripID             uuid.UUID           `json:"trip_id"`
	Status             ReservationStatus   `json:"status"`
	RequestedAt        time.Time           `json:"requested_at"`
	AcceptedAt         *time.Time          `json:"accepted_at,omitempty"`
	RejectedAt         *time.Time          `json:"rejected_at,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	RejectionReason    string              `json:"rejection_reason,omitempty"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	CancelledBy        CancelledBy         `json:"cancelled_by,omitempty"`
	Rider              *users.Profile      `json:"rider,omitempty"`
	BoardingPoints     []BoardingPointView `json:"boarding_points,omitempty"`
}

// TicketView is a ticket as one particular actor may see it
type TicketView struct {
	ID            uuid.UUID          `json:"id"`
	ReservationID uuid.UUID          `json:"reservation_id"`
	TripID        uuid.UUID          `json:"trip_id"`
	BoardingPoint *BoardingPointView `json:"boarding_point,omitempty"`
	SeatCount     int                `json:"seat_count"`
	FarePerSeat   int64              `json:"fare_per_seat"`
	TotalFare     int64              `json:"total_fare"`
	SeatLabels    []string           `json:"seat_labels,omitempty"`
	Status        TicketStatus       `json:"status"`
	IssuedAt      time.Time          `json:"issued_at"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
	CancelledAt   *time.Time         `json:"cancelled_at,omitempty"`
	Rider         *users.Profile     `json:"rider,omitempty"`
}

type audience int

const (
	audienceNone audience = iota
	audienceRider
	audienceStaff
)

func audienceFor(actor Actor, riderID uuid.UUID, trip *trips.Trip) audience {
	switch {
	case actor.Role == users.RoleRider && actor.ID == riderID:
		return audienceRider
	case actor.supervises(trip), actor.ownsTrip(trip):
		return audienceStaff
	default:
		return audienceNone
	}
}

// needsRiderProfile reports whether projecting r for actor shows the rider
func needsRiderProfile(actor Actor, r *Reservation, trip *trips.Trip) bool {
	return audienceFor(actor, r.RiderID, trip) == audienceStaff && r.IsRevealed()
}

// needsBoardingPoints reports whether projecting r for actor lists stops
func needsBoardingPoints(actor Actor, r *Reservation, trip *trips.Trip) bool {
	return audienceFor(actor, r.RiderID, trip) == audienceRider && r.Status == ReservationAccepted
}

// ProjectReservation builds actor's view of r. The rider profile is shown to
// trip staff only once the reservation has been accepted; the stop list is
// shown to the rider only while it is accepted. rider and points may be nil
// when the caller knows they will not be shown.
func ProjectReservation(actor Actor, r *Reservation, trip *trips.Trip, rider *users.Profile, points []trips.BoardingPoint) (*ReservationView, error) {
	aud := audienceFor(actor, r.RiderID, trip)
	if aud == audienceNone {
		return nil, ErrNotAuthorized
	}

	view := &ReservationView{
		ID:                 r.ID,
		TripID:             r.TripID,
		Status:             r.Status,
		RequestedAt:        r.RequestedAt,
		AcceptedAt:         r.AcceptedAt,
		RejectedAt:         r.RejectedAt,
		CancelledAt:        r.CancelledAt,
		RejectionReason:    r.RejectionReason,
		CancellationReason: r.CancellationReason,
		CancelledBy:        r.CancelledBy,
	}

	switch aud {
	case audienceStaff:
		if r.IsRevealed() && rider != nil {
			p := *rider
			view.Rider = &p
		}
	case audienceRider:
		if r.Status == ReservationAccepted {
			for i := range points {
				pv, err := projectBoardingPoint(&points[i])
				if err != nil {
					return nil, err
				}
				view.BoardingPoints = append(view.BoardingPoints, *pv)
			}
		}
	}

	return view, nil
}

// ProjectTicket builds actor's view of t. Trip staff see the rider, since a
// ticket only exists for an accepted reservation.
func ProjectTicket(actor Actor, t *Ticket, trip *trips.Trip, rider *users.Profile, point *trips.BoardingPoint) (*TicketView, error) {
	aud := audienceFor(actor, t.RiderID, trip)
	if aud == audienceNone {
		return nil, ErrNotAuthorized
	}
	if err := t.VerifyFare(); err != nil {
		return nil, err
	}

	view := &TicketView{
		ID:            t.ID,
		ReservationID: t.ReservationID,
		TripID:        t.TripID,
		SeatCount:     t.SeatCount,
		FarePerSeat:   t.FarePerSeat,
		TotalFare:     t.TotalFare,
		SeatLabels:    t.Labels(),
		Status:        t.Status,
		IssuedAt:      t.IssuedAt,
		CompletedAt:   t.CompletedAt,
		CancelledAt:   t.CancelledAt,
	}
	if point != nil {
		pv, err := projectBoardingPoint(point)
		if err != nil {
			return nil, err
		}
		view.BoardingPoint = pv
	}
	if aud == audienceStaff && rider != nil {
		p := *rider
		view.Rider = &p
	}
	return view, nil
}

func projectBoardingPoint(bp *trips.BoardingPoint) (*BoardingPointView, error) {
	loc, err := bp.GeoJSON()
	if err != nil {
		return nil, err
	}
	return &BoardingPointView{ID: bp.ID, Name: bp.Name, Sequence: bp.Sequence, Location: loc}, nil
}
