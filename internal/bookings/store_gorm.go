package bookings

import (
	"context"
	"errors"
	"fmt"

	"busline/internal/ledger"
	"busline/internal/trips"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormStore keeps reservations and tickets in Postgres. The seat counter
// lives on the trips row and is moved by ledger.GormLedger on the same
// transaction handle.
//
// The connection must be opened with TranslateError so unique violations
// surface as gorm.ErrDuplicatedKey.
type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (s *gormStore) Reservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	var r Reservation
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, notFound(err, "reservation")
	}
	return &r, nil
}

func (s *gormStore) Ticket(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	var t Ticket
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, notFound(err, "ticket")
	}
	return &t, nil
}

func (s *gormStore) TicketByReservation(ctx context.Context, reservationID uuid.UUID) (*Ticket, error) {
	var t Ticket
	if err := s.db.WithContext(ctx).Where("reservation_id = ?", reservationID).First(&t).Error; err != nil {
		return nil, notFound(err, "ticket")
	}
	return &t, nil
}

func (s *gormStore) ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, int64, error) {
	filter.normalize()

	query := s.db.WithContext(ctx).Model(&Reservation{})
	if filter.RiderID != nil {
		query = query.Where("rider_id = ?", *filter.RiderID)
	}
	if filter.TripID != nil {
		query = query.Where("trip_id = ?", *filter.TripID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	var out []Reservation
	err := query.
		Order("requested_at DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}
	return out, total, nil
}

func (s *gormStore) ListTickets(ctx context.Context, filter TicketFilter) ([]Ticket, int64, error) {
	filter.normalize()

	query := s.db.WithContext(ctx).Model(&Ticket{})
	if filter.RiderID != nil {
		query = query.Where("rider_id = ?", *filter.RiderID)
	}
	if len(filter.TripIDs) > 0 {
		query = query.Where("trip_id IN ?", filter.TripIDs)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.IssuedFrom != nil {
		query = query.Where("issued_at >= ?", *filter.IssuedFrom)
	}
	if filter.IssuedTo != nil {
		query = query.Where("issued_at < ?", *filter.IssuedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tickets: %w", err)
	}

	query = query.Order("issued_at DESC")
	if filter.Limit > 0 {
		query = query.Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit)
	}

	var out []Ticket
	if err := query.Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list tickets: %w", err)
	}
	return out, total, nil
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) forUpdate(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *gormTx) LockReservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	var r Reservation
	if err := t.forUpdate(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, notFound(err, "reservation")
	}
	return &r, nil
}

func (t *gormTx) LockTicket(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	var tk Ticket
	if err := t.forUpdate(ctx).Where("id = ?", id).First(&tk).Error; err != nil {
		return nil, notFound(err, "ticket")
	}
	return &tk, nil
}

func (t *gormTx) TicketForReservation(ctx context.Context, reservationID uuid.UUID) (*Ticket, error) {
	var tk Ticket
	if err := t.forUpdate(ctx).Where("reservation_id = ?", reservationID).First(&tk).Error; err != nil {
		return nil, notFound(err, "ticket")
	}
	return &tk, nil
}

func (t *gormTx) InsertReservation(ctx context.Context, r *Reservation) error {
	if err := t.db.WithContext(ctx).Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicatePending
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (t *gormTx) UpdateReservation(ctx context.Context, r *Reservation) error {
	if err := t.db.WithContext(ctx).Save(r).Error; err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	return nil
}

func (t *gormTx) InsertTicket(ctx context.Context, tk *Ticket) error {
	if err := t.db.WithContext(ctx).Create(tk).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyTicketed
		}
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

func (t *gormTx) UpdateTicket(ctx context.Context, tk *Ticket) error {
	if err := t.db.WithContext(ctx).Save(tk).Error; err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	return nil
}

func (t *gormTx) Trip(ctx context.Context, id uuid.UUID) (*trips.Trip, error) {
	var trip trips.Trip
	if err := t.db.WithContext(ctx).Where("id = ?", id).First(&trip).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, trips.ErrTripNotFound
		}
		return nil, fmt.Errorf("failed to load trip: %w", err)
	}
	return &trip, nil
}

func (t *gormTx) Seats() ledger.Ledger {
	return ledger.NewGormLedger(t.db)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
