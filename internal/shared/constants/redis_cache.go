package constants

import (
	"fmt"
	"time"
)

// Redis Cache Configuration
// Pattern: busline:{module}:{operation}:{identifier}:{params?}
//
// Only catalog data that the seat ledger never reads is cached. Remaining
// capacity and reservation status are always read from the store.

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_STATIC_LONG    = 24 * time.Hour
	TTL_STATIC_SHORT   = 6 * time.Hour
	TTL_SEMI_STATIC    = 10 * time.Minute
	TTL_DYNAMIC_MEDIUM = 5 * time.Minute
	TTL_REALTIME_SHORT = 30 * time.Second
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "busline"
)

// ================== TRIPS MODULE ==================

const (
	CACHE_KEY_TRIP_BOARDING_POINTS = CACHE_PREFIX + ":trips:boarding_points:uuid:" // + trip-id
)

const (
	TTL_TRIP_BOARDING_POINTS = TTL_SEMI_STATIC
)

// ================== USERS MODULE ==================

const (
	CACHE_KEY_USER_PROFILE = CACHE_PREFIX + ":users:profile:uuid:" // + user-id
)

const (
	TTL_USER_PROFILE = TTL_STATIC_SHORT
)

// ================== ANALYTICS MODULE ==================

const (
	CACHE_KEY_OWNER_SALES = CACHE_PREFIX + ":analytics:sales:owner:" // + owner-id:from:X:to:Y
)

const (
	TTL_OWNER_SALES = TTL_DYNAMIC_MEDIUM
)

// ================== RATE LIMIT ==================

const (
	RATE_LIMIT_PREFIX = CACHE_PREFIX + ":ratelimit:" // + ip:type
)

// ================== KEY BUILDERS ==================

func BuildTripBoardingPointsKey(tripID string) string {
	return CACHE_KEY_TRIP_BOARDING_POINTS + tripID
}

func BuildUserProfileKey(userID string) string {
	return CACHE_KEY_USER_PROFILE + userID
}

func BuildOwnerSalesKey(ownerID string, from, to time.Time) string {
	return fmt.Sprintf("%s%s:from:%d:to:%d", CACHE_KEY_OWNER_SALES, ownerID, from.Unix(), to.Unix())
}

func BuildRateLimitKey(ip, limitType string) string {
	return RATE_LIMIT_PREFIX + ip + ":" + limitType
}
