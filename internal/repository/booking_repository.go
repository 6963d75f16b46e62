package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]domain.Booking, error)
	Search(ctx context.Context, state TableState) (Page[domain.Booking], error)
	Archive(ctx context.Context, id uuid.UUID, at time.Time) error
	ArchiveByOrder(ctx context.Context, orderID uuid.UUID, at time.Time) error
}

type GormBookingRepository struct {
	db     *gorm.DB
	fields *FieldSet
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &GormBookingRepository{db: db, fields: mustFieldsOf(db, &domain.Booking{})}
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	err := translate(conn(ctx, r.db).Omit(clause.Associations).Create(booking).Error, ErrBookingNotFound)
	recordOp(ctx, "booking", "create", err)
	return err
}

func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking
	err := notArchived(conn(ctx, r.db)).Preload("Slot.Type").Preload("Slot.Teacher").
		Where("id = ?", id).First(&b).Error
	err = translate(err, ErrBookingNotFound)
	recordOp(ctx, "booking", "find_by_id", err)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormBookingRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]domain.Booking, error) {
	bookings := []domain.Booking{}
	err := notArchived(conn(ctx, r.db)).Preload("Slot.Type").Preload("Slot.Teacher").
		Where("student_id = ?", studentID).
		Order("created_at desc").
		Find(&bookings).Error
	recordOp(ctx, "booking", "list_by_student", err)
	return bookings, err
}

func (r *GormBookingRepository) Search(ctx context.Context, state TableState) (Page[domain.Booking], error) {
	page, err := FindPage[domain.Booking](ctx, conn(ctx, r.db), r.fields, state, PageQuery{
		Search:  ContainsAny("title", "description"),
		Scopes:  []func(*gorm.DB) *gorm.DB{notArchived},
		Preload: func(db *gorm.DB) *gorm.DB { return db.Preload("Slot").Preload("Student") },
	})
	recordOp(ctx, "booking", "search", err)
	return page, err
}

func (r *GormBookingRepository) Archive(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := notArchived(conn(ctx, r.db).Model(&domain.Booking{})).Where("id = ?", id).
		Updates(map[string]any{"archived_at": at, "updated_at": at})
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrBookingNotFound
	}
	recordOp(ctx, "booking", "archive", err)
	return err
}

func (r *GormBookingRepository) ArchiveByOrder(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	err := notArchived(conn(ctx, r.db).Model(&domain.Booking{})).Where("order_id = ?", orderID).
		Updates(map[string]any{"archived_at": at, "updated_at": at}).Error
	recordOp(ctx, "booking", "archive_by_order", err)
	return err
}
