package domain

import (
	"time"

	"github.com/google/uuid"
)

type Address struct {
	Model
	UserID  uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Street  string    `gorm:"size:128;not null" json:"street"`
	City    string    `gorm:"size:128;not null" json:"city"`
	State   string    `gorm:"size:128" json:"state"`
	Country string    `gorm:"size:128;not null" json:"country"`
	ZipCode string    `gorm:"size:16;not null" json:"zip_code"`
}

type Experience struct {
	Model
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string     `gorm:"size:128;not null" json:"title"`
	Description string     `gorm:"size:512" json:"description"`
	Institution string     `gorm:"size:128" json:"institution"`
	DateFrom    time.Time  `gorm:"not null" json:"date_from"`
	DateTo      *time.Time `json:"date_to,omitempty"`
}
