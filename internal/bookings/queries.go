package bookings

import (
	"context"
	"errors"
	"log/slog"

	"busline/internal/trips"
	"busline/internal/users"

	"github.com/google/uuid"
)

// ListQuery is the caller-facing filter for listings
type ListQuery struct {
	Status string
	Page   int
	Limit  int
}

type ReservationPage struct {
	Items      []ReservationView `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

type TicketPage struct {
	Items      []TicketView `json:"items"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalPages int          `json:"total_pages"`
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 1
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func (s *service) GetReservation(ctx context.Context, actor Actor, id uuid.UUID) (*ReservationView, error) {
	r, err := s.store.Reservation(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ViewReservation(ctx, actor, r)
}

// ViewReservation projects r for actor, loading the rider profile and the
// stop list only when the projection will show them.
func (s *service) ViewReservation(ctx context.Context, actor Actor, r *Reservation) (*ReservationView, error) {
	trip, err := s.trip(ctx, r.TripID)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, actor, r, trip)
}

func (s *service) project(ctx context.Context, actor Actor, r *Reservation, trip *trips.Trip) (*ReservationView, error) {
	var (
		rider  *users.Profile
		points []trips.BoardingPoint
		err    error
	)
	if needsRiderProfile(actor, r, trip) {
		if rider, err = s.profile(ctx, r.RiderID); err != nil {
			return nil, err
		}
	}
	if needsBoardingPoints(actor, r, trip) {
		if points, err = s.catalog.ListBoardingPoints(ctx, r.TripID); err != nil {
			return nil, err
		}
	}
	return ProjectReservation(actor, r, trip, rider, points)
}

func (s *service) GetTicket(ctx context.Context, actor Actor, id uuid.UUID) (*TicketView, error) {
	t, err := s.store.Ticket(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ViewTicket(ctx, actor, t)
}

func (s *service) ViewTicket(ctx context.Context, actor Actor, t *Ticket) (*TicketView, error) {
	trip, err := s.trip(ctx, t.TripID)
	if err != nil {
		return nil, err
	}
	return s.projectTicket(ctx, actor, t, trip)
}

func (s *service) projectTicket(ctx context.Context, actor Actor, t *Ticket, trip *trips.Trip) (*TicketView, error) {
	aud := audienceFor(actor, t.RiderID, trip)
	if aud == audienceNone {
		return nil, ErrNotAuthorized
	}

	var rider *users.Profile
	if aud == audienceStaff {
		p, err := s.profile(ctx, t.RiderID)
		if err != nil {
			return nil, err
		}
		rider = p
	}

	point, err := s.catalog.GetBoardingPoint(ctx, t.TripID, t.BoardingPointID)
	if err != nil && !errors.Is(err, trips.ErrBoardingPointNotFound) {
		return nil, err
	}

	view, err := ProjectTicket(actor, t, trip, rider, point)
	if errors.Is(err, ErrLedgerInconsistency) {
		s.log.LogLedgerAlarm(ctx, t.TripID.String(), err, map[string]interface{}{
			"ticket_id": t.ID.String(),
		})
	}
	return view, err
}

// ListTripReservations is the supervisor's and owner's queue for a trip.
// Pending rows carry no rider identity.
func (s *service) ListTripReservations(ctx context.Context, actor Actor, tripID uuid.UUID, q ListQuery) (*ReservationPage, error) {
	trip, err := s.trip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !actor.supervises(trip) && !actor.ownsTrip(trip) {
		return nil, ErrNotAuthorized
	}

	filter := ReservationFilter{TripID: &tripID, Page: q.Page, Limit: q.Limit}
	if err := parseReservationStatus(q.Status, &filter); err != nil {
		return nil, err
	}

	return s.listReservations(ctx, actor, filter, map[uuid.UUID]*trips.Trip{tripID: trip})
}

func (s *service) ListRiderReservations(ctx context.Context, actor Actor, q ListQuery) (*ReservationPage, error) {
	if actor.Role != users.RoleRider {
		return nil, ErrNotAuthorized
	}

	filter := ReservationFilter{RiderID: &actor.ID, Page: q.Page, Limit: q.Limit}
	if err := parseReservationStatus(q.Status, &filter); err != nil {
		return nil, err
	}

	return s.listReservations(ctx, actor, filter, map[uuid.UUID]*trips.Trip{})
}

func (s *service) listReservations(ctx context.Context, actor Actor, filter ReservationFilter, tripCache map[uuid.UUID]*trips.Trip) (*ReservationPage, error) {
	filter.normalize()
	rows, total, err := s.store.ListReservations(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := &ReservationPage{
		Items:      make([]ReservationView, 0, len(rows)),
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages(total, filter.Limit),
	}
	for i := range rows {
		trip, ok := tripCache[rows[i].TripID]
		if !ok {
			if trip, err = s.trip(ctx, rows[i].TripID); err != nil {
				return nil, err
			}
			tripCache[rows[i].TripID] = trip
		}
		view, err := s.project(ctx, actor, &rows[i], trip)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, *view)
	}
	return out, nil
}

func (s *service) ListRiderTickets(ctx context.Context, actor Actor, q ListQuery) (*TicketPage, error) {
	if actor.Role != users.RoleRider {
		return nil, ErrNotAuthorized
	}

	filter := TicketFilter{RiderID: &actor.ID, Page: q.Page, Limit: q.Limit}
	if q.Status != "" {
		st := TicketStatus(q.Status)
		if !st.IsValid() {
			return nil, ErrInvalidFilter
		}
		filter.Statuses = []TicketStatus{st}
	}
	if filter.Limit == 0 {
		filter.Limit = 20
	}
	filter.normalize()

	rows, total, err := s.store.ListTickets(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := &TicketPage{
		Items:      make([]TicketView, 0, len(rows)),
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages(total, filter.Limit),
	}
	tripCache := map[uuid.UUID]*trips.Trip{}
	for i := range rows {
		trip, ok := tripCache[rows[i].TripID]
		if !ok {
			if trip, err = s.trip(ctx, rows[i].TripID); err != nil {
				return nil, err
			}
			tripCache[rows[i].TripID] = trip
		}
		view, err := s.projectTicket(ctx, actor, &rows[i], trip)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, *view)
	}
	return out, nil
}

func parseReservationStatus(raw string, filter *ReservationFilter) error {
	if raw == "" {
		return nil
	}
	st := ReservationStatus(raw)
	if !st.IsValid() {
		return ErrInvalidFilter
	}
	filter.Status = st
	return nil
}

func (s *service) trip(ctx context.Context, id uuid.UUID) (*trips.Trip, error) {
	trip, err := s.catalog.GetTrip(ctx, id)
	if err != nil {
		if errors.Is(err, trips.ErrTripNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return trip, nil
}

// profile tolerates a rider missing from the directory. The view then just
// has no profile.
func (s *service) profile(ctx context.Context, id uuid.UUID) (*users.Profile, error) {
	if s.directory == nil {
		return nil, nil
	}
	p, err := s.directory.Profile(ctx, id)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			s.log.Warn("Rider missing from directory", slog.String("rider_id", id.String()))
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}
