package bookings

import (
	"errors"

	"busline/internal/ledger"
)

var (
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrNotAuthorized        = errors.New("not authorized")
	ErrInvalidTrip          = errors.New("trip is unknown or inactive")
	ErrInvalidBoardingPoint = errors.New("boarding point is not on this trip")
	ErrInvalidSeatCount     = errors.New("invalid seat count")
	ErrInvalidSeatLabel     = errors.New("seat labels must not contain commas")
	ErrDuplicatePending     = errors.New("rider already has a pending reservation on this trip")
	ErrAlreadyTicketed      = errors.New("reservation already has a ticket")
	ErrNotFound             = errors.New("not found")
	ErrInvalidFilter        = errors.New("invalid listing filter")

	ErrInsufficientSeats   = ledger.ErrInsufficientSeats
	ErrLedgerInconsistency = ledger.ErrLedgerInconsistency
)
