package bookings

import "time"

// ReservationResponse is returned by the mutating reservation endpoints. The
// rider is never included; GET /reservations/:id gives the projected view.
type ReservationResponse struct {
	ID          string     `json:"id"`
	TripID      string     `json:"trip_id"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy string     `json:"cancelled_by,omitempty"`
}

type TicketResponse struct {
	ID            string     `json:"id"`
	ReservationID string     `json:"reservation_id"`
	TripID        string     `json:"trip_id"`
	SeatCount     int        `json:"seat_count"`
	FarePerSeat   int64      `json:"fare_per_seat"`
	TotalFare     int64      `json:"total_fare"`
	SeatLabels    []string   `json:"seat_labels,omitempty"`
	Status        string     `json:"status"`
	IssuedAt      time.Time  `json:"issued_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

func toReservationResponse(r *Reservation) ReservationResponse {
	return ReservationResponse{
		ID:          r.ID.String(),
		TripID:      r.TripID.String(),
		Status:      r.Status.String(),
		RequestedAt: r.RequestedAt,
		AcceptedAt:  r.AcceptedAt,
		RejectedAt:  r.RejectedAt,
		CancelledAt: r.CancelledAt,
		CancelledBy: string(r.CancelledBy),
	}
}

func toTicketResponse(t *Ticket) TicketResponse {
	return TicketResponse{
		ID:            t.ID.String(),
		ReservationID: t.ReservationID.String(),
		TripID:        t.TripID.String(),
		SeatCount:     t.SeatCount,
		FarePerSeat:   t.FarePerSeat,
		TotalFare:     t.TotalFare,
		SeatLabels:    t.Labels(),
		Status:        t.Status.String(),
		IssuedAt:      t.IssuedAt,
		CompletedAt:   t.CompletedAt,
		CancelledAt:   t.CancelledAt,
	}
}
