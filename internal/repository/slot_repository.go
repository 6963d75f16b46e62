package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
)

const activeBookingExists = "EXISTS (SELECT 1 FROM bookings WHERE bookings.slot_id = slots.id AND bookings.archived_at IS NULL)"

type SlotRepository interface {
	Create(ctx context.Context, slot *domain.Slot) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Slot, error)
	List(ctx context.Context) ([]domain.Slot, error)
	Search(ctx context.Context, state TableState) (Page[domain.Slot], error)
	ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]domain.Slot, error)
	ListAvailable(ctx context.Context, now time.Time) ([]domain.Slot, error)
	// HasOverlap reports whether another active slot of the teacher intersects [from, to).
	HasOverlap(ctx context.Context, teacherID uuid.UUID, from, to time.Time, excludeID uuid.UUID) (bool, error)
	IsBooked(ctx context.Context, slotID uuid.UUID) (bool, error)
	// LockTeacherSchedule serializes schedule changes of one teacher inside a transaction.
	LockTeacherSchedule(ctx context.Context, teacherID uuid.UUID) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Archive(ctx context.Context, id uuid.UUID, at time.Time) error
}

type GormSlotRepository struct {
	db     *gorm.DB
	fields *FieldSet
}

func NewSlotRepository(db *gorm.DB) SlotRepository {
	return &GormSlotRepository{db: db, fields: mustFieldsOf(db, &domain.Slot{})}
}

func (r *GormSlotRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Type").Preload("Teacher").Preload("Booking", notArchived)
}

func (r *GormSlotRepository) Create(ctx context.Context, slot *domain.Slot) error {
	err := translate(conn(ctx, r.db).Omit(clause.Associations).Create(slot).Error, ErrSlotNotFound)
	recordOp(ctx, "slot", "create", err)
	return err
}

func (r *GormSlotRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Slot, error) {
	var slot domain.Slot
	err := translate(r.withDetails(notArchived(conn(ctx, r.db))).Where("id = ?", id).First(&slot).Error, ErrSlotNotFound)
	recordOp(ctx, "slot", "find_by_id", err)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *GormSlotRepository) List(ctx context.Context) ([]domain.Slot, error) {
	slots := []domain.Slot{}
	err := r.withDetails(notArchived(conn(ctx, r.db))).Order("date_from asc").Find(&slots).Error
	recordOp(ctx, "slot", "list", err)
	return slots, err
}

func (r *GormSlotRepository) Search(ctx context.Context, state TableState) (Page[domain.Slot], error) {
	page, err := FindPage[domain.Slot](ctx, conn(ctx, r.db), r.fields, state, PageQuery{
		Search:  ContainsAny("description"),
		Scopes:  []func(*gorm.DB) *gorm.DB{notArchived},
		Preload: func(db *gorm.DB) *gorm.DB { return db.Preload("Type").Preload("Teacher") },
	})
	recordOp(ctx, "slot", "search", err)
	return page, err
}

func (r *GormSlotRepository) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]domain.Slot, error) {
	slots := []domain.Slot{}
	err := r.withDetails(notArchived(conn(ctx, r.db))).
		Where("teacher_id = ?", teacherID).
		Order("date_from asc").
		Find(&slots).Error
	recordOp(ctx, "slot", "list_by_teacher", err)
	return slots, err
}

func (r *GormSlotRepository) ListAvailable(ctx context.Context, now time.Time) ([]domain.Slot, error) {
	slots := []domain.Slot{}
	err := notArchived(conn(ctx, r.db)).
		Preload("Type").Preload("Teacher").
		Where("date_from > ?", now).
		Where("NOT " + activeBookingExists).
		Order("date_from asc").
		Find(&slots).Error
	recordOp(ctx, "slot", "list_available", err)
	return slots, err
}

func (r *GormSlotRepository) HasOverlap(ctx context.Context, teacherID uuid.UUID, from, to time.Time, excludeID uuid.UUID) (bool, error) {
	var n int64
	q := notArchived(conn(ctx, r.db).Model(&domain.Slot{})).
		Where("teacher_id = ? AND date_from < ? AND date_to > ?", teacherID, to, from)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&n).Error
	recordOp(ctx, "slot", "has_overlap", err)
	return n > 0, err
}

func (r *GormSlotRepository) IsBooked(ctx context.Context, slotID uuid.UUID) (bool, error) {
	var n int64
	err := notArchived(conn(ctx, r.db).Model(&domain.Booking{})).Where("slot_id = ?", slotID).Count(&n).Error
	recordOp(ctx, "slot", "is_booked", err)
	return n > 0, err
}

func (r *GormSlotRepository) LockTeacherSchedule(ctx context.Context, teacherID uuid.UUID) error {
	var u domain.User
	err := conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").Where("id = ?", teacherID).First(&u).Error
	err = translate(err, ErrUserNotFound)
	recordOp(ctx, "slot", "lock_teacher", err)
	return err
}

func (r *GormSlotRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := notArchived(conn(ctx, r.db).Model(&domain.Slot{})).Where("id = ?", id).Updates(updates)
	err := translate(res.Error, ErrSlotNotFound)
	if err == nil && res.RowsAffected == 0 {
		err = ErrSlotNotFound
	}
	recordOp(ctx, "slot", "update", err)
	return err
}

func (r *GormSlotRepository) Archive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.Update(ctx, id, map[string]any{"archived_at": at})
}
