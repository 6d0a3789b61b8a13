package analytics

import (
	"time"

	"github.com/google/uuid"
)

// TicketTally is one trip's seat-holding tickets inside a report window
type TicketTally struct {
	TripID  uuid.UUID `json:"trip_id"`
	Tickets int       `json:"tickets"`
	Seats   int       `json:"seats"`
	Revenue int64     `json:"revenue"`
}

// TripSales is a trip's line in an owner's sales report
type TripSales struct {
	TripID        uuid.UUID `json:"trip_id"`
	BusNumber     string    `json:"bus_number"`
	Route         string    `json:"route"`
	DepartureTime time.Time `json:"departure_time"`
	Capacity      int       `json:"capacity"`
	Tickets       int       `json:"tickets"`
	SeatsSold     int       `json:"seats_sold"`
	Revenue       int64     `json:"revenue"`     // minor currency units
	LoadFactor    float64   `json:"load_factor"` // percent of capacity
}

// SalesReport totals an owner's seat-holding tickets issued in [From, To)
type SalesReport struct {
	OwnerID      uuid.UUID   `json:"owner_id"`
	From         time.Time   `json:"from"`
	To           time.Time   `json:"to"`
	Trips        []TripSales `json:"trips"`
	TotalTickets int         `json:"total_tickets"`
	TotalSeats   int         `json:"total_seats"`
	TotalRevenue int64       `json:"total_revenue"`
	GeneratedAt  time.Time   `json:"generated_at"`
}
