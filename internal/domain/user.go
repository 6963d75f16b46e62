package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	Model
	Email                  string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash           string     `gorm:"size:1024;not null" json:"-"`
	FirstName              string     `gorm:"size:64;not null" json:"first_name"`
	LastName               string     `gorm:"size:64;not null" json:"last_name"`
	DateOfBirth            *time.Time `json:"date_of_birth,omitempty"`
	Title                  string     `gorm:"size:128" json:"title"`
	Description            string     `gorm:"size:1024" json:"description"`
	AcceptTerms            bool       `gorm:"not null;default:false" json:"accept_terms"`
	AcceptMarketing        bool       `gorm:"not null;default:false" json:"accept_marketing"`
	EmailConfirmed         bool       `gorm:"not null;default:false" json:"email_confirmed"`
	EmailConfirmedAt       *time.Time `json:"email_confirmed_at,omitempty"`
	ConfirmationMailFailed bool       `gorm:"not null;default:false" json:"confirmation_mail_failed"`
	AvatarKey              string     `gorm:"size:512" json:"-"`
	LastLoginAt            *time.Time `json:"last_login_at,omitempty"`

	GenderID uuid.UUID      `gorm:"type:uuid;not null;index" json:"gender_id"`
	Gender   *Gender        `gorm:"foreignKey:GenderID" json:"gender,omitempty"`
	StatusID uuid.UUID      `gorm:"type:uuid;not null;index" json:"status_id"`
	Status   *StatusAccount `gorm:"foreignKey:StatusID" json:"status,omitempty"`

	Roles       []Role       `gorm:"many2many:user_roles" json:"roles,omitempty"`
	Addresses   []Address    `gorm:"foreignKey:UserID" json:"addresses,omitempty"`
	Experiences []Experience `gorm:"foreignKey:UserID" json:"experiences,omitempty"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r.Name, name) {
			return true
		}
	}
	return false
}
