package service

import (
	"strings"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
)

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	UserID uuid.UUID
	Roles  []string
}

func (a Actor) HasRole(name string) bool {
	for _, r := range a.Roles {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

func (a Actor) IsAdmin() bool {
	return a.HasRole(domain.RoleSuperAdmin) || a.HasRole(domain.RoleAdmin)
}

// canActFor reports whether the actor may modify resources owned by userID.
func (a Actor) canActFor(userID uuid.UUID) bool {
	return a.UserID == userID || a.IsAdmin()
}
