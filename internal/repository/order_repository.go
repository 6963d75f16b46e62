package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
)

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]domain.Order, error)
	Search(ctx context.Context, state TableState) (Page[domain.Order], error)
	// BookedTotal sums the slot prices of the active bookings of an order.
	BookedTotal(ctx context.Context, orderID uuid.UUID) (float64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Archive(ctx context.Context, id uuid.UUID, at time.Time) error
}

type GormOrderRepository struct {
	db     *gorm.DB
	fields *FieldSet
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db, fields: mustFieldsOf(db, &domain.Order{})}
}

func (r *GormOrderRepository) withBookings(db *gorm.DB) *gorm.DB {
	return db.Preload("Bookings", notArchived).Preload("Bookings.Slot")
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	err := translate(conn(ctx, r.db).Omit(clause.Associations).Create(order).Error, ErrOrderNotFound)
	recordOp(ctx, "order", "create", err)
	return err
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	err := translate(r.withBookings(notArchived(conn(ctx, r.db))).Where("id = ?", id).First(&o).Error, ErrOrderNotFound)
	recordOp(ctx, "order", "find_by_id", err)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormOrderRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]domain.Order, error) {
	orders := []domain.Order{}
	err := r.withBookings(notArchived(conn(ctx, r.db))).
		Where("student_id = ?", studentID).
		Order("created_at desc").
		Find(&orders).Error
	recordOp(ctx, "order", "list_by_student", err)
	return orders, err
}

func (r *GormOrderRepository) Search(ctx context.Context, state TableState) (Page[domain.Order], error) {
	page, err := FindPage[domain.Order](ctx, conn(ctx, r.db), r.fields, state, PageQuery{
		Scopes:  []func(*gorm.DB) *gorm.DB{notArchived},
		Preload: func(db *gorm.DB) *gorm.DB { return db.Preload("Student") },
	})
	recordOp(ctx, "order", "search", err)
	return page, err
}

func (r *GormOrderRepository) BookedTotal(ctx context.Context, orderID uuid.UUID) (float64, error) {
	var total float64
	err := conn(ctx, r.db).Table("bookings").
		Select("COALESCE(SUM(slots.price), 0)").
		Joins("JOIN slots ON slots.id = bookings.slot_id").
		Where("bookings.order_id = ? AND bookings.archived_at IS NULL", orderID).
		Scan(&total).Error
	recordOp(ctx, "order", "booked_total", err)
	return total, err
}

func (r *GormOrderRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := notArchived(conn(ctx, r.db).Model(&domain.Order{})).Where("id = ?", id).Updates(updates)
	err := translate(res.Error, ErrOrderNotFound)
	if err == nil && res.RowsAffected == 0 {
		err = ErrOrderNotFound
	}
	recordOp(ctx, "order", "update", err)
	return err
}

func (r *GormOrderRepository) Archive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.Update(ctx, id, map[string]any{"archived_at": at})
}
