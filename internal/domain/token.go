package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the single live refresh credential of a user; login and password
// changes replace the row instead of appending a new one.
type RefreshToken struct {
	Model
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"-"`
	TokenHash string    `gorm:"size:128;not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

const (
	VerificationPurposeEmailConfirm  = "email_confirm"
	VerificationPurposePasswordReset = "password_reset"
)

type VerificationToken struct {
	Model
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_verification_user_purpose" json:"user_id"`
	Purpose   string     `gorm:"size:32;not null;index:idx_verification_user_purpose" json:"purpose"`
	TokenHash string     `gorm:"size:128;not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}
