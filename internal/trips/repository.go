package trips

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTripNotFound          = errors.New("trip not found")
	ErrBoardingPointNotFound = errors.New("boarding point not found")
)

// Catalog is the read side of trip management. Trips are created and edited
// elsewhere; this core only reads them (and the ledger writes the counter).
type Catalog interface {
	GetTrip(ctx context.Context, id uuid.UUID) (*Trip, error)
	ListBoardingPoints(ctx context.Context, tripID uuid.UUID) ([]BoardingPoint, error)
	// GetBoardingPoint fails with ErrBoardingPointNotFound when the point
	// does not exist or belongs to another trip.
	GetBoardingPoint(ctx context.Context, tripID, pointID uuid.UUID) (*BoardingPoint, error)
	ListOwnerTrips(ctx context.Context, ownerID uuid.UUID) ([]Trip, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Catalog {
	return &repository{db: db}
}

func (r *repository) GetTrip(ctx context.Context, id uuid.UUID) (*Trip, error) {
	var trip Trip
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&trip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("failed to load trip: %w", err)
	}
	return &trip, nil
}

func (r *repository) ListBoardingPoints(ctx context.Context, tripID uuid.UUID) ([]BoardingPoint, error) {
	var points []BoardingPoint
	err := r.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("sequence ASC").
		Find(&points).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list boarding points: %w", err)
	}
	return points, nil
}

func (r *repository) GetBoardingPoint(ctx context.Context, tripID, pointID uuid.UUID) (*BoardingPoint, error) {
	var point BoardingPoint
	err := r.db.WithContext(ctx).
		Where("id = ? AND trip_id = ?", pointID, tripID).
		First(&point).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBoardingPointNotFound
		}
		return nil, fmt.Errorf("failed to load boarding point: %w", err)
	}
	return &point, nil
}

func (r *repository) ListOwnerTrips(ctx context.Context, ownerID uuid.UUID) ([]Trip, error) {
	var trips []Trip
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("departure_time DESC").
		Find(&trips).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list owner trips: %w", err)
	}
	return trips, nil
}
