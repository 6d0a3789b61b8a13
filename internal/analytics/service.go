package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"busline/internal/shared/constants"
	"busline/internal/trips"
	"busline/pkg/cache"
	"busline/pkg/logger"

	"github.com/google/uuid"
)

var ErrInvalidRange = errors.New("report range must have from before to and span at most 366 days")

const maxReportSpan = 366 * 24 * time.Hour

// Service defines the analytics service interface
type Service interface {
	OwnerSales(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (*SalesReport, error)
}

type service struct {
	repo         Repository
	catalog      trips.Catalog
	cacheService cache.Service
	log          *logger.Logger
	now          func() time.Time
}

// NewService creates a new analytics service instance. cacheService may be
// nil.
func NewService(repo Repository, catalog trips.Catalog, cacheService cache.Service, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		repo:         repo,
		catalog:      catalog,
		cacheService: cacheService,
		log:          log,
		now:          time.Now,
	}
}

func (s *service) OwnerSales(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (*SalesReport, error) {
	from, to = from.UTC(), to.UTC()
	if !from.Before(to) || to.Sub(from) > maxReportSpan {
		return nil, ErrInvalidRange
	}

	cacheKey := constants.BuildOwnerSalesKey(ownerID.String(), from, to)

	// Try to get from cache first
	if s.cacheService != nil {
		var cached SalesReport
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	report, err := s.buildReport(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}

	// Cache the result
	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, report, constants.TTL_OWNER_SALES); err != nil {
			s.log.Warn("Failed to cache sales report", slog.String("key", cacheKey), slog.Any("error", err))
		}
	}

	return report, nil
}

func (s *service) buildReport(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (*SalesReport, error) {
	owned, err := s.catalog.ListOwnerTrips(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owner trips: %w", err)
	}

	report := &SalesReport{
		OwnerID:     ownerID,
		From:        from,
		To:          to,
		Trips:       make([]TripSales, 0, len(owned)),
		GeneratedAt: s.now().UTC(),
	}
	if len(owned) == 0 {
		return report, nil
	}

	ids := make([]uuid.UUID, 0, len(owned))
	for _, t := range owned {
		ids = append(ids, t.ID)
	}
	tallies, err := s.repo.TallyTickets(ctx, ids, from, to)
	if err != nil {
		return nil, err
	}
	byTrip := make(map[uuid.UUID]TicketTally, len(tallies))
	for _, t := range tallies {
		byTrip[t.TripID] = t
	}

	for _, trip := range owned {
		tally, sold := byTrip[trip.ID]
		if !sold {
			continue
		}
		line := TripSales{
			TripID:        trip.ID,
			BusNumber:     trip.BusNumber,
			Route:         trip.Route(),
			DepartureTime: trip.DepartureTime,
			Capacity:      trip.Capacity,
			Tickets:       tally.Tickets,
			SeatsSold:     tally.Seats,
			Revenue:       tally.Revenue,
		}
		if trip.Capacity > 0 {
			line.LoadFactor = float64(tally.Seats) / float64(trip.Capacity) * 100
		}
		report.Trips = append(report.Trips, line)
		report.TotalTickets += tally.Tickets
		report.TotalSeats += tally.Seats
		report.TotalRevenue += tally.Revenue
	}

	return report, nil
}
