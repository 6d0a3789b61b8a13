package ledger

import (
	"context"
	"errors"
	"fmt"

	"busline/internal/trips"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLedger keeps the counter on the trips row. Each operation is one
// conditional UPDATE, so Postgres holds the row lock until the surrounding
// transaction ends and concurrent debits on the same trip queue behind it.
type GormLedger struct {
	db *gorm.DB
}

// NewGormLedger binds the ledger to a connection or, normally, to an open
// transaction handle.
func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) Debit(ctx context.Context, tripID uuid.UUID, seats int) error {
	if seats < 1 {
		return ErrInvalidAmount
	}

	res := l.db.WithContext(ctx).
		Model(&trips.Trip{}).
		Where("id = ? AND remaining_capacity >= ?", tripID, seats).
		Update("remaining_capacity", gorm.Expr("remaining_capacity - ?", seats))
	if res.Error != nil {
		return fmt.Errorf("failed to debit seats: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	// Nothing matched: either the trip is missing or it is full.
	if _, err := l.Balance(ctx, tripID); err != nil {
		return err
	}
	return ErrInsufficientSeats
}

func (l *GormLedger) Credit(ctx context.Context, tripID uuid.UUID, seats int) error {
	if seats < 1 {
		return ErrInvalidAmount
	}

	res := l.db.WithContext(ctx).
		Model(&trips.Trip{}).
		Where("id = ? AND remaining_capacity + ? <= capacity", tripID, seats).
		Update("remaining_capacity", gorm.Expr("remaining_capacity + ?", seats))
	if res.Error != nil {
		return fmt.Errorf("failed to credit seats: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	bal, err := l.Balance(ctx, tripID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: crediting %d seats to trip %s would exceed capacity %d (remaining %d)",
		ErrLedgerInconsistency, seats, tripID, bal.Capacity, bal.Remaining)
}

func (l *GormLedger) Balance(ctx context.Context, tripID uuid.UUID) (Balance, error) {
	var row struct {
		Capacity          int
		RemainingCapacity int
	}
	err := l.db.WithContext(ctx).
		Model(&trips.Trip{}).
		Select("capacity, remaining_capacity").
		Where("id = ?", tripID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Balance{}, ErrUnknownTrip
		}
		return Balance{}, fmt.Errorf("failed to read seat balance: %w", err)
	}

	return Balance{TripID: tripID, Capacity: row.Capacity, Remaining: row.RemainingCapacity}, nil
}
