// Package ledger is the single source of truth for a trip's remaining seats.
//
// Every implementation serializes debits and credits per trip and never lets
// the counter leave the [0, capacity] range. Different trips never contend.
package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrInsufficientSeats is an ordinary booking outcome: the trip is full.
	ErrInsufficientSeats = errors.New("insufficient seats")
	// ErrLedgerInconsistency means a credit would push the counter above
	// capacity. It only happens when a caller is broken.
	ErrLedgerInconsistency = errors.New("seat ledger inconsistency")
	ErrInvalidAmount       = errors.New("seat amount must be at least 1")
	ErrUnknownTrip         = errors.New("trip has no seat account")
)

// Balance is a point-in-time view of a trip's seat account
type Balance struct {
	TripID    uuid.UUID `json:"trip_id"`
	Capacity  int       `json:"capacity"`
	Remaining int       `json:"remaining"`
}

// Held returns the seats currently allocated to tickets
func (b Balance) Held() int {
	return b.Capacity - b.Remaining
}

// Ledger debits and credits seats on a trip
type Ledger interface {
	// Debit removes seats or fails with ErrInsufficientSeats leaving the
	// counter untouched.
	Debit(ctx context.Context, tripID uuid.UUID, seats int) error
	// Credit returns seats. Crediting past capacity fails with
	// ErrLedgerInconsistency and changes nothing.
	Credit(ctx context.Context, tripID uuid.UUID, seats int) error
	Balance(ctx context.Context, tripID uuid.UUID) (Balance, error)
}
