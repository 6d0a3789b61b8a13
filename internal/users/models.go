package users

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleRider      Role = "RIDER"
	RoleSupervisor Role = "SUPERVISOR"
	RoleOwner      Role = "OWNER"
)

// User is the identity record kept alongside bookings. Accounts are created
// by the identity service; this module only reads them.
type User struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:uuid_generate_v4()"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null"`
	Phone     string    `json:"phone" gorm:"type:varchar(20)"`
	Role      Role      `json:"role" gorm:"type:varchar(20);not null;default:'RIDER'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is the part of a user other parties may see once a reservation
// has been accepted.
type Profile struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Phone: u.Phone}
}

func IsValidRole(role string) bool {
	switch Role(role) {
	case RoleRider, RoleSupervisor, RoleOwner:
		return true
	default:
		return false
	}
}
