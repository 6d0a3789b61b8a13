package database

import (
	"fmt"

	"gorm.io/gorm"
)

// constraintStatements back the service-level invariants with the database.
// Each one is idempotent.
var constraintStatements = []struct {
	name string
	sql  string
}{
	{
		// at most one pending request per rider and trip
		name: "one pending reservation per rider and trip",
		sql:  `CREATE UNIQUE INDEX IF NOT EXISTS uniq_reservations_pending_rider_trip
			ON reservations (rider_id, trip_id) WHERE status = 'pending'`,
	},
	{
		name: "remaining capacity within bounds",
		sql:  `DO $$ BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_trips_remaining_capacity') THEN
				ALTER TABLE trips ADD CONSTRAINT chk_trips_remaining_capacity
					CHECK (remaining_capacity >= 0 AND remaining_capacity <= capacity);
			END IF;
		END $$`,
	},
	{
		name: "positive seat count",
		sql:  `DO $$ BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_tickets_seat_count') THEN
				ALTER TABLE tickets ADD CONSTRAINT chk_tickets_seat_count CHECK (seat_count > 0);
			END IF;
		END $$`,
	},
	{
		name: "tickets by trip and status",
		sql:  `CREATE INDEX IF NOT EXISTS idx_tickets_trip_status
			ON tickets (trip_id, status)`,
	},
	{
		name: "tickets by issue time",
		sql:  `CREATE INDEX IF NOT EXISTS idx_tickets_issued_at
			ON tickets (issued_at)`,
	},
}

// MigrateConstraints adds critical database constraints for concurrency control
func MigrateConstraints(db *gorm.DB) error {
	for _, c := range constraintStatements {
		if err := db.Exec(c.sql).Error; err != nil {
			return fmt.Errorf("failed to add constraint %q: %w", c.name, err)
		}
	}
	return nil
}
