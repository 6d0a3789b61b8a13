package bookings

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reservation is a rider's request for seats on a trip. Rows are never
// deleted; cancellation and rejection are states.
type Reservation struct {
	ID                 uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RiderID            uuid.UUID         `gorm:"type:uuid;index;not null" json:"rider_id"`
	TripID             uuid.UUID         `gorm:"type:uuid;index;not null" json:"trip_id"`
	Status             ReservationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	RequestedAt        time.Time         `gorm:"not null" json:"requested_at"`
	AcceptedAt         *time.Time        `json:"accepted_at,omitempty"`
	RejectedAt         *time.Time        `json:"rejected_at,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	RejectionReason    string            `gorm:"type:text" json:"rejection_reason,omitempty"`
	CancellationReason string            `gorm:"type:text" json:"cancellation_reason,omitempty"`
	CancelledBy        CancelledBy       `gorm:"type:varchar(20)" json:"cancelled_by,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// TableName sets the table name for Reservation
func (Reservation) TableName() string {
	return "reservations"
}

// IsRevealed reports whether the rider's identity may be shown to the trip
// staff. It stays true after a later cancellation.
func (r *Reservation) IsRevealed() bool {
	return r.AcceptedAt != nil
}

// Ticket is the seat allocation derived from an accepted reservation. It is
// the only record that holds seats in the ledger.
type Ticket struct {
	ID              uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ReservationID   uuid.UUID    `gorm:"type:uuid;uniqueIndex;not null" json:"reservation_id"`
	TripID          uuid.UUID    `gorm:"type:uuid;index;not null" json:"trip_id"`
	RiderID         uuid.UUID    `gorm:"type:uuid;index;not null" json:"rider_id"`
	BoardingPointID uuid.UUID    `gorm:"type:uuid;not null" json:"boarding_point_id"`
	SeatCount       int          `gorm:"not null" json:"seat_count"`
	FarePerSeat     int64        `gorm:"not null" json:"fare_per_seat"`
	TotalFare       int64        `gorm:"not null" json:"total_fare"`
	SeatLabels      string       `gorm:"type:text" json:"seat_labels,omitempty"`
	Status          TicketStatus `gorm:"type:varchar(20);not null;default:'confirmed'" json:"status"`
	IssuedAt        time.Time    `gorm:"not null" json:"issued_at"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	CancelledAt     *time.Time   `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// TableName sets the table name for Ticket
func (Ticket) TableName() string {
	return "tickets"
}

// VerifyFare re-checks the stored total against seats times fare
func (t *Ticket) VerifyFare() error {
	if want := int64(t.SeatCount) * t.FarePerSeat; t.TotalFare != want {
		return fmt.Errorf("%w: ticket %s total fare %d, expected %d x %d = %d",
			ErrLedgerInconsistency, t.ID, t.TotalFare, t.SeatCount, t.FarePerSeat, want)
	}
	return nil
}

// Labels splits the seat label annotation
func (t *Ticket) Labels() []string {
	return splitLabels(t.SeatLabels)
}

func splitLabels(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			labels = append(labels, p)
		}
	}
	return labels
}
