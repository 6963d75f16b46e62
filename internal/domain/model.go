package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model carries the identity and lifecycle columns shared by every stored entity.
// Rows are never hard-deleted; archiving stamps ArchivedAt.
type Model struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt  *time.Time `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`
	ArchivedAt *time.Time `gorm:"index" json:"archived_at,omitempty"`
}

func (m *Model) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (m *Model) IsArchived() bool {
	return m.ArchivedAt != nil
}

// Lookup is the shape shared by the small reference tables (genders, account statuses, slot types).
type Lookup struct {
	Model
	Name  string `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Color string `gorm:"size:16" json:"color"`
	Icon  string `gorm:"size:256" json:"icon"`
}

type Gender struct {
	Lookup
}

type StatusAccount struct {
	Lookup
}

func (StatusAccount) TableName() string { return "status_accounts" }

type TypeSlot struct {
	Lookup
}
