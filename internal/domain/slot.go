package domain

import (
	"time"

	"github.com/google/uuid"
)

type Slot struct {
	Model
	DateFrom    time.Time `gorm:"not null;index:idx_slots_teacher_window,priority:2" json:"date_from"`
	DateTo      time.Time `gorm:"not null;index:idx_slots_teacher_window,priority:3" json:"date_to"`
	Price       float64   `gorm:"type:numeric(18,2);not null;default:0" json:"price"`
	Description string    `gorm:"size:512" json:"description"`

	TeacherID uuid.UUID `gorm:"type:uuid;not null;index:idx_slots_teacher_window,priority:1" json:"teacher_id"`
	Teacher   *User     `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
	TypeID    uuid.UUID `gorm:"type:uuid;not null;index" json:"type_id"`
	Type      *TypeSlot `gorm:"foreignKey:TypeID" json:"type,omitempty"`
	Booking   *Booking  `gorm:"foreignKey:SlotID" json:"booking,omitempty"`
}

// Overlaps reports whether the half-open windows [from, to) intersect.
func (s *Slot) Overlaps(from, to time.Time) bool {
	return s.DateFrom.Before(to) && from.Before(s.DateTo)
}

type Booking struct {
	Model
	Title       string `gorm:"size:128;not null" json:"title"`
	Description string `gorm:"size:512" json:"description"`

	SlotID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookings_active_slot,where:archived_at IS NULL" json:"slot_id"`
	Slot      *Slot     `gorm:"foreignKey:SlotID" json:"slot,omitempty"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`
	Student   *User     `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

type Order struct {
	Model
	TotalAmount         float64 `gorm:"type:numeric(18,2);not null;default:0" json:"total_amount"`
	ReductionAmount     float64 `gorm:"type:numeric(18,2);not null;default:0" json:"reduction_amount"`
	ReductionPercentage float64 `gorm:"not null;default:0" json:"reduction_percentage"`

	StudentID uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`
	Student   *User     `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Bookings  []Booking `gorm:"foreignKey:OrderID" json:"bookings,omitempty"`
}

// AmountDue applies the percentage reduction first, then the flat one, never going below zero.
func (o *Order) AmountDue() float64 {
	due := o.TotalAmount - o.TotalAmount*o.ReductionPercentage/100 - o.ReductionAmount
	if due < 0 {
		return 0
	}
	return due
}
