package bookings

import (
	"context"
	"time"

	"busline/internal/ledger"
	"busline/internal/trips"

	"github.com/google/uuid"
)

// Store persists reservations and tickets. Every state change runs inside
// WithinTx; if fn returns an error nothing it did is kept.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	Reservation(ctx context.Context, id uuid.UUID) (*Reservation, error)
	Ticket(ctx context.Context, id uuid.UUID) (*Ticket, error)
	// TicketByReservation fails with ErrNotFound when none was issued
	TicketByReservation(ctx context.Context, reservationID uuid.UUID) (*Ticket, error)

	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, int64, error)
	ListTickets(ctx context.Context, filter TicketFilter) ([]Ticket, int64, error)
}

// Tx is one unit of work. Locks are taken in the order reservation, ticket,
// trip and held until the unit ends.
type Tx interface {
	LockReservation(ctx context.Context, id uuid.UUID) (*Reservation, error)
	LockTicket(ctx context.Context, id uuid.UUID) (*Ticket, error)
	// TicketForReservation locks and returns the reservation's ticket, or
	// ErrNotFound.
	TicketForReservation(ctx context.Context, reservationID uuid.UUID) (*Ticket, error)

	// InsertReservation fails with ErrDuplicatePending when the rider
	// already holds a pending reservation on the trip.
	InsertReservation(ctx context.Context, r *Reservation) error
	UpdateReservation(ctx context.Context, r *Reservation) error
	// InsertTicket fails with ErrAlreadyTicketed when the reservation
	// already has one.
	InsertTicket(ctx context.Context, t *Ticket) error
	UpdateTicket(ctx context.Context, t *Ticket) error

	// Trip reads the trip as of this unit of work
	Trip(ctx context.Context, id uuid.UUID) (*trips.Trip, error)
	Seats() ledger.Ledger
}

// ReservationFilter narrows reservation listings. Zero values match all.
type ReservationFilter struct {
	RiderID *uuid.UUID
	TripID  *uuid.UUID
	Status  ReservationStatus
	Page    int
	Limit   int
}

// TicketFilter narrows ticket listings. Limit 0 returns every match.
type TicketFilter struct {
	RiderID    *uuid.UUID
	TripIDs    []uuid.UUID
	Statuses   []TicketStatus
	IssuedFrom *time.Time
	IssuedTo   *time.Time
	Page       int
	Limit      int
}

func (f *ReservationFilter) normalize() {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
}

func (f *TicketFilter) normalize() {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit < 0 || f.Limit > 100 {
		f.Limit = 20
	}
}

func (f *TicketFilter) matches(t *Ticket) bool {
	if f.RiderID != nil && t.RiderID != *f.RiderID {
		return false
	}
	if len(f.TripIDs) > 0 && !containsID(f.TripIDs, t.TripID) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.IssuedFrom != nil && t.IssuedAt.Before(*f.IssuedFrom) {
		return false
	}
	if f.IssuedTo != nil && !t.IssuedAt.Before(*f.IssuedTo) {
		return false
	}
	return true
}

func (f *ReservationFilter) matches(r *Reservation) bool {
	if f.RiderID != nil && r.RiderID != *f.RiderID {
		return false
	}
	if f.TripID != nil && r.TripID != *f.TripID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
