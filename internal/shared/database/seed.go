package database

import (
	"context"
	"fmt"
	"time"

	"busline/internal/trips"
	"busline/internal/users"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fixed ids so development tokens can be minted for the demo accounts
var (
	DemoOwnerID      = uuid.MustParse("0b6f5a7e-3c1d-4e2a-9f00-000000000001")
	DemoSupervisorID = uuid.MustParse("0b6f5a7e-3c1d-4e2a-9f00-000000000002")
	DemoRiderID      = uuid.MustParse("0b6f5a7e-3c1d-4e2a-9f00-000000000003")
	DemoRider2ID     = uuid.MustParse("0b6f5a7e-3c1d-4e2a-9f00-000000000004")
)

// TripFixture is a trip with its boarding points
type TripFixture struct {
	Trip   trips.Trip
	Points []trips.BoardingPoint
}

// Demo is the data loaded by the seeder and by the memory store at startup
type Demo struct {
	Users []users.User
	Trips []TripFixture
}

// DemoData builds the demo accounts and a few trips departing after now
func DemoData(now time.Time) Demo {
	supervisorID := DemoSupervisorID
	day := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	trip := func(bus, from, to string, depart time.Duration, busType trips.BusType, capacity int, fare int64, points ...trips.BoardingPoint) TripFixture {
		for i := range points {
			points[i].Sequence = i + 1
		}
		return TripFixture{
			Trip: trips.Trip{
				ID:                uuid.New(),
				OwnerID:           DemoOwnerID,
				SupervisorID:      &supervisorID,
				BusNumber:         bus,
				RouteFrom:         from,
				RouteTo:           to,
				DepartureTime:     day.Add(depart),
				BusType:           busType,
				Capacity:          capacity,
				RemainingCapacity: capacity,
				FarePerSeat:       fare,
				IsActive:          true,
			},
			Points: points,
		}
	}

	return Demo{
		Users: []users.User{
			{ID: DemoOwnerID, Name: "Kaveri Travels", Phone: "+918040001000", Role: users.RoleOwner},
			{ID: DemoSupervisorID, Name: "Ravi Kumar", Phone: "+919845000001", Role: users.RoleSupervisor},
			{ID: DemoRiderID, Name: "Ananya Rao", Phone: "+919880000011", Role: users.RoleRider},
			{ID: DemoRider2ID, Name: "Farhan Ali", Phone: "+919880000012", Role: users.RoleRider},
		},
		Trips: []TripFixture{
			trip("KA-01-F-4242", "Bengaluru", "Mysuru", 6*time.Hour+30*time.Minute, trips.BusTypeAC, 40, 45000,
				trips.BoardingPoint{Name: "Majestic", Latitude: 12.9767, Longitude: 77.5713},
				trips.BoardingPoint{Name: "Satellite Bus Stand", Latitude: 12.9536, Longitude: 77.5434},
				trips.BoardingPoint{Name: "Kengeri", Latitude: 12.9063, Longitude: 77.4829},
			),
			trip("KA-09-B-1180", "Mysuru", "Bengaluru", 17*time.Hour, trips.BusTypeNonAC, 52, 28000,
				trips.BoardingPoint{Name: "Mysuru Suburban Stand", Latitude: 12.3086, Longitude: 76.6531},
				trips.BoardingPoint{Name: "Mandya", Latitude: 12.5218, Longitude: 76.8951},
			),
			trip("KA-01-F-7310", "Bengaluru", "Mangaluru", 22*time.Hour, trips.BusTypeACSleeper, 30, 120000,
				trips.BoardingPoint{Name: "Anand Rao Circle", Latitude: 12.9822, Longitude: 77.5756},
				trips.BoardingPoint{Name: "Nelamangala", Latitude: 13.0977, Longitude: 77.3936},
			),
		},
	}
}

// Seed writes the demo data in one transaction
func Seed(ctx context.Context, db *gorm.DB, demo Demo) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range demo.Users {
			if err := tx.Create(&demo.Users[i]).Error; err != nil {
				return fmt.Errorf("failed to create user %s: %w", demo.Users[i].Name, err)
			}
		}
		for i := range demo.Trips {
			f := &demo.Trips[i]
			if err := tx.Create(&f.Trip).Error; err != nil {
				return fmt.Errorf("failed to create trip %s: %w", f.Trip.BusNumber, err)
			}
			for j := range f.Points {
				f.Points[j].TripID = f.Trip.ID
				if err := f.Points[j].Validate(); err != nil {
					return fmt.Errorf("invalid boarding point %s: %w", f.Points[j].Name, err)
				}
				if err := tx.Create(&f.Points[j]).Error; err != nil {
					return fmt.Errorf("failed to create boarding point %s: %w", f.Points[j].Name, err)
				}
			}
		}
		return nil
	})
}

// seedTables in reverse dependency order
var seedTables = []string{"tickets", "reservations", "boarding_points", "trips", "users"}

// Clean truncates every table the seeder writes to
func Clean(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range seedTables {
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}
