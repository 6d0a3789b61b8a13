package bookings

// ReservationStatus is the lifecycle state of a booking request
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationAccepted  ReservationStatus = "accepted"
	ReservationRejected  ReservationStatus = "rejected"
	ReservationCancelled ReservationStatus = "cancelled"
)

// IsValid checks if the reservation status is valid
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationPending, ReservationAccepted, ReservationRejected, ReservationCancelled:
		return true
	}
	return false
}

func (s ReservationStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationRejected || s == ReservationCancelled
}

// CanTransitionTo encodes the legal reservation edges
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	switch s {
	case ReservationPending:
		return next == ReservationAccepted || next == ReservationRejected || next == ReservationCancelled
	case ReservationAccepted:
		return next == ReservationCancelled
	}
	return false
}

// TicketStatus is the lifecycle state of an issued ticket
type TicketStatus string

const (
	TicketConfirmed TicketStatus = "confirmed"
	TicketCompleted TicketStatus = "completed"
	TicketCancelled TicketStatus = "cancelled"
)

// IsValid checks if the ticket status is valid
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketConfirmed, TicketCompleted, TicketCancelled:
		return true
	}
	return false
}

func (s TicketStatus) String() string {
	return string(s)
}

// HoldsSeats reports whether a ticket in this status counts against capacity
func (s TicketStatus) HoldsSeats() bool {
	return s == TicketConfirmed || s == TicketCompleted
}

// CanTransitionTo encodes the legal ticket edges
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	return s == TicketConfirmed && (next == TicketCompleted || next == TicketCancelled)
}

// CancelledBy records which party cancelled a reservation
type CancelledBy string

const (
	CancelledByRider      CancelledBy = "rider"
	CancelledBySupervisor CancelledBy = "supervisor"
)

// SeatHoldingStatuses lists the ticket statuses that occupy seats
var SeatHoldingStatuses = []TicketStatus{TicketConfirmed, TicketCompleted}
