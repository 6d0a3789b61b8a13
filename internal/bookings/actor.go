package bookings

import (
	"busline/internal/trips"
	"busline/internal/users"

	"github.com/google/uuid"
)

// Actor is the authenticated party performing an operation
type Actor struct {
	ID   uuid.UUID
	Role users.Role
}

func Rider(id uuid.UUID) Actor      { return Actor{ID: id, Role: users.RoleRider} }
func Supervisor(id uuid.UUID) Actor { return Actor{ID: id, Role: users.RoleSupervisor} }
func Owner(id uuid.UUID) Actor      { return Actor{ID: id, Role: users.RoleOwner} }

func (a Actor) owns(r *Reservation) bool {
	return a.Role == users.RoleRider && r.RiderID == a.ID
}

func (a Actor) ownsTicket(t *Ticket) bool {
	return a.Role == users.RoleRider && t.RiderID == a.ID
}

func (a Actor) supervises(trip *trips.Trip) bool {
	return a.Role == users.RoleSupervisor && trip.IsSupervisedBy(a.ID)
}

func (a Actor) ownsTrip(trip *trips.Trip) bool {
	return a.Role == users.RoleOwner && trip.IsOwnedBy(a.ID)
}
