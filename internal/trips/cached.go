package trips

import (
	"context"
	"time"

	"busline/internal/shared/constants"
	"busline/pkg/cache"

	"github.com/google/uuid"
)

// cachedCatalog serves boarding point lists from Redis. Trips themselves are
// never cached: the active flag and the seat counter must be read fresh.
type cachedCatalog struct {
	Catalog
	cache cache.Service
	ttl   time.Duration
}

// NewCachedCatalog wraps a catalog with a cache-aside layer for stops
func NewCachedCatalog(inner Catalog, cacheService cache.Service, ttl time.Duration) Catalog {
	if cacheService == nil {
		return inner
	}
	if ttl <= 0 {
		ttl = constants.TTL_TRIP_BOARDING_POINTS
	}
	return &cachedCatalog{Catalog: inner, cache: cacheService, ttl: ttl}
}

func (c *cachedCatalog) ListBoardingPoints(ctx context.Context, tripID uuid.UUID) ([]BoardingPoint, error) {
	var points []BoardingPoint
	err := c.cache.GetOrSet(ctx, constants.BuildTripBoardingPointsKey(tripID.String()), c.ttl,
		func() (interface{}, error) {
			return c.Catalog.ListBoardingPoints(ctx, tripID)
		}, &points)
	if err != nil {
		return nil, err
	}
	return points, nil
}

func (c *cachedCatalog) GetBoardingPoint(ctx context.Context, tripID, pointID uuid.UUID) (*BoardingPoint, error) {
	points, err := c.ListBoardingPoints(ctx, tripID)
	if err != nil {
		return nil, err
	}
	for i := range points {
		if points[i].ID == pointID {
			return &points[i], nil
		}
	}
	return nil, ErrBoardingPointNotFound
}
