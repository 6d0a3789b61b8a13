package analytics

import (
	"context"
	"fmt"
	"time"

	"busline/internal/bookings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository tallies seat-holding tickets per trip
type Repository interface {
	TallyTickets(ctx context.Context, tripIDs []uuid.UUID, from, to time.Time) ([]TicketTally, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository aggregates in Postgres
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) TallyTickets(ctx context.Context, tripIDs []uuid.UUID, from, to time.Time) ([]TicketTally, error) {
	if len(tripIDs) == 0 {
		return nil, nil
	}

	var tallies []TicketTally
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			trip_id,
			COUNT(*) AS tickets,
			COALESCE(SUM(seat_count), 0) AS seats,
			COALESCE(SUM(total_fare), 0) AS revenue
		FROM tickets
		WHERE trip_id IN ? AND status IN ? AND issued_at >= ? AND issued_at < ?
		GROUP BY trip_id
	`, tripIDs, seatHoldingStatuses(), from, to).Scan(&tallies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to tally tickets: %w", err)
	}
	return tallies, nil
}

func seatHoldingStatuses() []string {
	out := make([]string, 0, len(bookings.SeatHoldingStatuses))
	for _, s := range bookings.SeatHoldingStatuses {
		out = append(out, s.String())
	}
	return out
}

type storeRepository struct {
	store bookings.Store
}

// NewStoreRepository aggregates over any booking store, for the memory
// driver.
func NewStoreRepository(store bookings.Store) Repository {
	return &storeRepository{store: store}
}

func (r *storeRepository) TallyTickets(ctx context.Context, tripIDs []uuid.UUID, from, to time.Time) ([]TicketTally, error) {
	if len(tripIDs) == 0 {
		return nil, nil
	}

	tickets, _, err := r.store.ListTickets(ctx, bookings.TicketFilter{
		TripIDs:    tripIDs,
		Statuses:   bookings.SeatHoldingStatuses,
		IssuedFrom: &from,
		IssuedTo:   &to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	byTrip := make(map[uuid.UUID]*TicketTally)
	var order []uuid.UUID
	for _, t := range tickets {
		tally, ok := byTrip[t.TripID]
		if !ok {
			tally = &TicketTally{TripID: t.TripID}
			byTrip[t.TripID] = tally
			order = append(order, t.TripID)
		}
		tally.Tickets++
		tally.Seats += t.SeatCount
		tally.Revenue += t.TotalFare
	}

	out := make([]TicketTally, 0, len(order))
	for _, id := range order {
		out = append(out, *byTrip[id])
	}
	return out, nil
}
