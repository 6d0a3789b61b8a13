package trips

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// BusType classifies the coach running a trip
type BusType string

const (
	BusTypeAC        BusType = "AC"
	BusTypeNonAC     BusType = "Non-AC"
	BusTypeACSleeper BusType = "AC Sleeper"
)

func (b BusType) IsValid() bool {
	switch b {
	case BusTypeAC, BusTypeNonAC, BusTypeACSleeper:
		return true
	}
	return false
}

// Trip is a scheduled, capacity-bounded run. RemainingCapacity is written by
// the seat ledger only.
type Trip struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID           uuid.UUID  `gorm:"type:uuid;index;not null" json:"owner_id"`
	SupervisorID      *uuid.UUID `gorm:"type:uuid;index" json:"supervisor_id,omitempty"`
	BusNumber         string     `gorm:"type:varchar(20);not null" json:"bus_number"`
	RouteFrom         string     `gorm:"type:varchar(100);not null" json:"route_from"`
	RouteTo           string     `gorm:"type:varchar(100);not null" json:"route_to"`
	DepartureTime     time.Time  `gorm:"not null;index" json:"departure_time"`
	BusType           BusType    `gorm:"type:varchar(20);not null" json:"bus_type"`
	Capacity          int        `gorm:"not null" json:"capacity"`
	RemainingCapacity int        `gorm:"not null" json:"remaining_capacity"`
	FarePerSeat       int64      `gorm:"not null" json:"fare_per_seat"` // minor currency units
	IsActive          bool       `gorm:"not null" json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	BoardingPoints []BoardingPoint `gorm:"foreignKey:TripID;constraint:OnDelete:CASCADE;" json:"boarding_points,omitempty"`
}

// TableName sets the table name for Trip
func (Trip) TableName() string {
	return "trips"
}

// IsSupervisedBy reports whether userID is the trip's assigned supervisor
func (t *Trip) IsSupervisedBy(userID uuid.UUID) bool {
	return t.SupervisorID != nil && *t.SupervisorID == userID
}

// IsOwnedBy reports whether userID owns the fleet running the trip
func (t *Trip) IsOwnedBy(userID uuid.UUID) bool {
	return t.OwnerID == userID
}

// Route renders "from - to"
func (t *Trip) Route() string {
	return t.RouteFrom + " - " + t.RouteTo
}

// BoardingPoint is a stop where riders may join a trip
type BoardingPoint struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TripID    uuid.UUID `gorm:"type:uuid;index;not null" json:"trip_id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Latitude  float64   `gorm:"type:decimal(10,8);not null" json:"latitude"`
	Longitude float64   `gorm:"type:decimal(11,8);not null" json:"longitude"`
	Sequence  int       `gorm:"not null" json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName sets the table name for BoardingPoint
func (BoardingPoint) TableName() string {
	return "boarding_points"
}

// Validate checks the coordinates are on the globe
func (b *BoardingPoint) Validate() error {
	if b.Latitude < -90 || b.Latitude > 90 {
		return fmt.Errorf("latitude %f out of range", b.Latitude)
	}
	if b.Longitude < -180 || b.Longitude > 180 {
		return fmt.Errorf("longitude %f out of range", b.Longitude)
	}
	return nil
}

// Location returns the stop as a WGS84 point (x = longitude, y = latitude)
func (b *BoardingPoint) Location() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{b.Longitude, b.Latitude}).SetSRID(4326)
}

// GeoJSON encodes the stop location as a GeoJSON Point geometry
func (b *BoardingPoint) GeoJSON() (json.RawMessage, error) {
	data, err := geojson.Marshal(b.Location())
	if err != nil {
		return nil, fmt.Errorf("failed to encode boarding point %s: %w", b.ID, err)
	}
	return data, nil
}
