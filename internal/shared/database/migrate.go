package database

import (
	"fmt"

	"busline/internal/bookings"
	"busline/internal/trips"
	"busline/internal/users"

	"gorm.io/gorm"
)

// Migrate creates the uuid extension and the tables
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("failed to enable uuid-ossp: %w", err)
	}

	return db.AutoMigrate(
		&users.User{},
		&trips.Trip{},
		&trips.BoardingPoint{},
		&bookings.Reservation{},
		&bookings.Ticket{},
	)
}
