package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
)

// LookupRepository stores one of the small reference tables.
type LookupRepository[T any] interface {
	List(ctx context.Context) ([]T, error)
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Archive(ctx context.Context, id uuid.UUID, at time.Time) error
}

type GormLookupRepository[T any] struct {
	db     *gorm.DB
	entity string
}

func NewLookupRepository[T any](db *gorm.DB, entity string) LookupRepository[T] {
	return &GormLookupRepository[T]{db: db, entity: entity}
}

func NewGenderRepository(db *gorm.DB) LookupRepository[domain.Gender] {
	return NewLookupRepository[domain.Gender](db, "gender")
}

func NewStatusAccountRepository(db *gorm.DB) LookupRepository[domain.StatusAccount] {
	return NewLookupRepository[domain.StatusAccount](db, "status_account")
}

func NewTypeSlotRepository(db *gorm.DB) LookupRepository[domain.TypeSlot] {
	return NewLookupRepository[domain.TypeSlot](db, "type_slot")
}

func (r *GormLookupRepository[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	err := notArchived(conn(ctx, r.db).Model(new(T))).Order("name asc").Find(&items).Error
	recordOp(ctx, r.entity, "list", err)
	return items, err
}

func (r *GormLookupRepository[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	item := new(T)
	err := translate(notArchived(conn(ctx, r.db)).Where("id = ?", id).First(item).Error, ErrLookupNotFound)
	recordOp(ctx, r.entity, "find_by_id", err)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *GormLookupRepository[T]) Create(ctx context.Context, item *T) error {
	err := translate(conn(ctx, r.db).Create(item).Error, ErrLookupNotFound)
	recordOp(ctx, r.entity, "create", err)
	return err
}

func (r *GormLookupRepository[T]) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := notArchived(conn(ctx, r.db).Model(new(T))).Where("id = ?", id).Updates(updates)
	err := translate(res.Error, ErrLookupNotFound)
	if err == nil && res.RowsAffected == 0 {
		err = ErrLookupNotFound
	}
	recordOp(ctx, r.entity, "update", err)
	return err
}

func (r *GormLookupRepository[T]) Archive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.Update(ctx, id, map[string]any{"archived_at": at})
}
