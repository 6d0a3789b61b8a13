package bookings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"busline/internal/feed"
	"busline/internal/ledger"
	"busline/internal/trips"
	"busline/internal/users"
	"busline/pkg/logger"

	"github.com/google/uuid"
)

// IssueTicketInput carries the rider's choices when converting an accepted
// reservation into a ticket
type IssueTicketInput struct {
	BoardingPointID uuid.UUID
	SeatCount       int
	SeatLabels      []string
}

// Service interface defines the reservation and ticket lifecycle
type Service interface {
	Request(ctx context.Context, actor Actor, tripID uuid.UUID) (*Reservation, error)
	Accept(ctx context.Context, actor Actor, reservationID uuid.UUID) (*Reservation, error)
	Reject(ctx context.Context, actor Actor, reservationID uuid.UUID, reason string) (*Reservation, error)
	Cancel(ctx context.Context, actor Actor, reservationID uuid.UUID, reason string) (*Reservation, error)

	IssueTicket(ctx context.Context, actor Actor, reservationID uuid.UUID, in IssueTicketInput) (*Ticket, error)
	CancelTicket(ctx context.Context, actor Actor, ticketID uuid.UUID) (*Ticket, error)
	CompleteTicket(ctx context.Context, actor Actor, ticketID uuid.UUID) (*Ticket, error)

	// Projected reads
	GetReservation(ctx context.Context, actor Actor, id uuid.UUID) (*ReservationView, error)
	ViewReservation(ctx context.Context, actor Actor, r *Reservation) (*ReservationView, error)
	GetTicket(ctx context.Context, actor Actor, id uuid.UUID) (*TicketView, error)
	ViewTicket(ctx context.Context, actor Actor, t *Ticket) (*TicketView, error)
	ListTripReservations(ctx context.Context, actor Actor, tripID uuid.UUID, q ListQuery) (*ReservationPage, error)
	ListRiderReservations(ctx context.Context, actor Actor, q ListQuery) (*ReservationPage, error)
	ListRiderTickets(ctx context.Context, actor Actor, q ListQuery) (*TicketPage, error)

	// WriteTicketPDF renders the owning rider's printout of a live ticket
	WriteTicketPDF(ctx context.Context, actor Actor, ticketID uuid.UUID, w io.Writer) error
}

type service struct {
	store     Store
	catalog   trips.Catalog
	directory users.Directory
	publisher feed.Publisher
	notifier  Notifier
	log       *logger.Logger
	now       func() time.Time
}

type Option func(*service)

// WithPublisher sends committed transitions to the change feed
func WithPublisher(p feed.Publisher) Option {
	return func(s *service) { s.publisher = p }
}

// WithNotifier sends supervisor notices for new requests
func WithNotifier(n Notifier) Option {
	return func(s *service) { s.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(store Store, catalog trips.Catalog, directory users.Directory, log *logger.Logger, opts ...Option) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	s := &service{
		store:     store,
		catalog:   catalog,
		directory: directory,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request creates a pending reservation. Capacity is not touched.
func (s *service) Request(ctx context.Context, actor Actor, tripID uuid.UUID) (*Reservation, error) {
	if actor.Role != users.RoleRider {
		return nil, ErrNotAuthorized
	}

	var (
		created      *Reservation
		supervisorID *uuid.UUID
	)
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		trip, err := tx.Trip(ctx, tripID)
		if err != nil {
			if errors.Is(err, trips.ErrTripNotFound) {
				return ErrInvalidTrip
			}
			return err
		}
		if !trip.IsActive {
			return ErrInvalidTrip
		}

		r := &Reservation{
			RiderID:     actor.ID,
			TripID:      tripID,
			Status:      ReservationPending,
			RequestedAt: s.now().UTC(),
		}
		if err := tx.InsertReservation(ctx, r); err != nil {
			return err
		}

		created = r
		supervisorID = trip.SupervisorID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.reservationCommitted(ctx, actor, created)

	if supervisorID != nil && s.notifier != nil {
		notice := SupervisorNotice{ReservationID: created.ID, TripID: created.TripID, SupervisorID: *supervisorID}
		if err := s.notifier.NotifySupervisor(ctx, notice); err != nil {
			s.log.Warn("Failed to notify supervisor",
				slog.String("reservation_id", created.ID.String()),
				slog.Any("error", err),
			)
		}
	}

	return created, nil
}

func (s *service) Accept(ctx context.Context, actor Actor, reservationID uuid.UUID) (*Reservation, error) {
	return s.decide(ctx, actor, reservationID, ReservationAccepted, "")
}

func (s *service) Reject(ctx context.Context, actor Actor, reservationID uuid.UUID, reason string) (*Reservation, error) {
	return s.decide(ctx, actor, reservationID, ReservationRejected, reason)
}

// decide applies the supervisor's accept or reject to a pending reservation
func (s *service) decide(ctx context.Context, actor Actor, reservationID uuid.UUID, next ReservationStatus, reason string) (*Reservation, error) {
	var updated *Reservation
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		r, err := tx.LockReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		trip, err := tx.Trip(ctx, r.TripID)
		if err != nil {
			return err
		}

		if !actor.supervises(trip) {
			return ErrNotAuthorized
		}
		if r.Status != ReservationPending {
			return ErrInvalidTransition
		}

		now := s.now().UTC()
		r.Status = next
		if next == ReservationAccepted {
			r.AcceptedAt = &now
		} else {
			r.RejectedAt = &now
			r.RejectionReason = strings.TrimSpace(reason)
		}
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}

		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.reservationCommitted(ctx, actor, updated)
	return updated, nil
}

// Cancel withdraws a pending or accepted reservation. A supervisor's cancel
// also cancels a confirmed ticket and returns its seats in the same unit.
func (s *service) Cancel(ctx context.Context, actor Actor, reservationID uuid.UUID, reason string) (*Reservation, error) {
	var (
		updated  *Reservation
		cascaded *Ticket
	)
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		r, err := tx.LockReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		trip, err := tx.Trip(ctx, r.TripID)
		if err != nil {
			return err
		}

		byRider := actor.owns(r)
		bySupervisor := actor.supervises(trip)
		if !byRider && !bySupervisor {
			return ErrNotAuthorized
		}
		if !r.Status.CanTransitionTo(ReservationCancelled) {
			return ErrInvalidTransition
		}

		tk, err := tx.TicketForReservation(ctx, r.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		now := s.now().UTC()
		if tk != nil {
			switch {
			case byRider && tk.Status.HoldsSeats():
				// The rider cancels the ticket first.
				return ErrInvalidTransition
			case tk.Status == TicketCompleted:
				return ErrInvalidTransition
			case tk.Status == TicketConfirmed:
				if err := s.credit(ctx, tx, tk); err != nil {
					return err
				}
				tk.Status = TicketCancelled
				tk.CancelledAt = &now
				if err := tx.UpdateTicket(ctx, tk); err != nil {
					return err
				}
				cascaded = tk
			}
		}

		r.Status = ReservationCancelled
		r.CancelledAt = &now
		r.CancellationReason = strings.TrimSpace(reason)
		if byRider {
			r.CancelledBy = CancelledByRider
		} else {
			r.CancelledBy = CancelledBySupervisor
		}
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}

		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cascaded != nil {
		s.ticketCommitted(ctx, cascaded)
	}
	s.reservationCommitted(ctx, actor, updated)
	return updated, nil
}

// IssueTicket converts an accepted reservation into a confirmed ticket. It
// is the only operation that debits the seat ledger.
func (s *service) IssueTicket(ctx context.Context, actor Actor, reservationID uuid.UUID, in IssueTicketInput) (*Ticket, error) {
	var issued *Ticket
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		r, err := tx.LockReservation(ctx, reservationID)
		if err != nil {
			return err
		}

		if !actor.owns(r) {
			return ErrNotAuthorized
		}
		if r.Status != ReservationAccepted {
			return ErrInvalidTransition
		}
		if _, err := tx.TicketForReservation(ctx, r.ID); err == nil {
			return ErrAlreadyTicketed
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		if _, err := s.catalog.GetBoardingPoint(ctx, r.TripID, in.BoardingPointID); err != nil {
			if errors.Is(err, trips.ErrBoardingPointNotFound) {
				return ErrInvalidBoardingPoint
			}
			return err
		}
		labels, err := cleanLabels(in.SeatLabels)
		if err != nil {
			return err
		}
		if in.SeatCount < 1 || (len(labels) > 0 && len(labels) != in.SeatCount) {
			return ErrInvalidSeatCount
		}

		if err := tx.Seats().Debit(ctx, r.TripID, in.SeatCount); err != nil {
			return s.ledgerError(ctx, r.TripID, err, map[string]interface{}{
				"reservation_id": r.ID.String(),
				"seats":          in.SeatCount,
			})
		}

		// Read after the debit so the fare comes from the locked row.
		trip, err := tx.Trip(ctx, r.TripID)
		if err != nil {
			return err
		}

		tk := &Ticket{
			ReservationID:   r.ID,
			TripID:          r.TripID,
			RiderID:         r.RiderID,
			BoardingPointID: in.BoardingPointID,
			SeatCount:       in.SeatCount,
			FarePerSeat:     trip.FarePerSeat,
			TotalFare:       int64(in.SeatCount) * trip.FarePerSeat,
			SeatLabels:      strings.Join(labels, ","),
			Status:          TicketConfirmed,
			IssuedAt:        s.now().UTC(),
		}
		if err := tx.InsertTicket(ctx, tk); err != nil {
			return err
		}

		issued = tk
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.LogTicketIssued(ctx, issued.ID.String(), issued.ReservationID.String(), issued.TripID.String(), issued.SeatCount)
	s.publish(ctx, ticketEvent(issued, issued.transitionedAt()))
	return issued, nil
}

// CancelTicket returns a confirmed ticket's seats. The reservation is left
// as it is.
func (s *service) CancelTicket(ctx context.Context, actor Actor, ticketID uuid.UUID) (*Ticket, error) {
	var updated *Ticket
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		tk, err := tx.LockTicket(ctx, ticketID)
		if err != nil {
			return err
		}

		if !actor.ownsTicket(tk) {
			return ErrNotAuthorized
		}
		if !tk.Status.CanTransitionTo(TicketCancelled) {
			return ErrInvalidTransition
		}

		if err := s.credit(ctx, tx, tk); err != nil {
			return err
		}

		now := s.now().UTC()
		tk.Status = TicketCancelled
		tk.CancelledAt = &now
		if err := tx.UpdateTicket(ctx, tk); err != nil {
			return err
		}

		updated = tk
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.ticketCommitted(ctx, updated)
	return updated, nil
}

// CompleteTicket marks a confirmed ticket as travelled. Seats stay held.
func (s *service) CompleteTicket(ctx context.Context, actor Actor, ticketID uuid.UUID) (*Ticket, error) {
	var updated *Ticket
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		tk, err := tx.LockTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		trip, err := tx.Trip(ctx, tk.TripID)
		if err != nil {
			return err
		}

		if !actor.supervises(trip) {
			return ErrNotAuthorized
		}
		if !tk.Status.CanTransitionTo(TicketCompleted) {
			return ErrInvalidTransition
		}

		now := s.now().UTC()
		tk.Status = TicketCompleted
		tk.CompletedAt = &now
		if err := tx.UpdateTicket(ctx, tk); err != nil {
			return err
		}

		updated = tk
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.ticketCommitted(ctx, updated)
	return updated, nil
}

func (s *service) credit(ctx context.Context, tx Tx, tk *Ticket) error {
	if err := tx.Seats().Credit(ctx, tk.TripID, tk.SeatCount); err != nil {
		return s.ledgerError(ctx, tk.TripID, err, map[string]interface{}{
			"ticket_id": tk.ID.String(),
			"seats":     tk.SeatCount,
		})
	}
	return nil
}

// ledgerError raises the alarm for invariant violations and passes ordinary
// outcomes such as a full trip through unchanged.
func (s *service) ledgerError(ctx context.Context, tripID uuid.UUID, err error, fields map[string]interface{}) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientSeats):
		return err
	case errors.Is(err, ledger.ErrLedgerInconsistency):
		s.log.LogLedgerAlarm(ctx, tripID.String(), err, fields)
		return err
	case errors.Is(err, ledger.ErrUnknownTrip):
		s.log.LogLedgerAlarm(ctx, tripID.String(), err, fields)
		return fmt.Errorf("%w: %v", ErrLedgerInconsistency, err)
	default:
		return err
	}
}

func (s *service) reservationCommitted(ctx context.Context, actor Actor, r *Reservation) {
	s.log.LogReservationTransition(ctx, r.ID.String(), r.TripID.String(), actor.ID.String(), r.Status.String())
	s.publish(ctx, reservationEvent(r, r.transitionedAt()))
}

func (s *service) ticketCommitted(ctx context.Context, t *Ticket) {
	s.log.LogTicketTransition(ctx, t.ID.String(), t.TripID.String(), t.Status.String(), t.SeatCount)
	s.publish(ctx, ticketEvent(t, t.transitionedAt()))
}

func (s *service) publish(ctx context.Context, ev feed.Event) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, ev)
	}
}

// cleanLabels trims and drops blank labels. Labels are stored comma joined,
// so a comma inside one would split it on the way back out.
func cleanLabels(raw []string) ([]string, error) {
	labels := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.Contains(l, ",") {
			return nil, ErrInvalidSeatLabel
		}
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return labels, nil
}
