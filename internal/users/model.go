package users

import (
	"time"

	"github.com/seregajade-png/analysis-beauty/internal/shared/auth"
)

// Roles.
const (
	RoleOwner   = "OWNER"
	RoleManager = "MANAGER"
	RoleAdmin   = "ADMIN"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	SalonName    string    `json:"salonName,omitempty"`
	ManagerID    string    `json:"managerId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SalonID identifies the salon a user works in: the managing user's id for
// administrators attached to a manager, the user's own id otherwise.
func (u User) SalonID() string {
	if u.ManagerID != "" {
		return u.ManagerID
	}
	return u.ID
}

// Identity is the session identity for u.
func (u User) Identity() auth.Identity {
	return auth.Identity{
		UserID:    u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		SalonName: u.SalonName,
	}
}

// ValidRole reports whether role is a known role.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleManager, RoleAdmin:
		return true
	}
	return false
}
