package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
)

// OwnedRepository stores entries that belong to exactly one user, such as
// addresses and experiences. Every lookup is scoped to the owner.
type OwnedRepository[T any] interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]T, error)
	FindByID(ctx context.Context, userID, id uuid.UUID) (*T, error)
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, userID, id uuid.UUID, updates map[string]any) error
	Archive(ctx context.Context, userID, id uuid.UUID, at time.Time) error
}

type GormOwnedRepository[T any] struct {
	db       *gorm.DB
	entity   string
	order    string
	notFound error
}

func NewAddressRepository(db *gorm.DB) OwnedRepository[domain.Address] {
	return &GormOwnedRepository[domain.Address]{db: db, entity: "address", order: "created_at asc", notFound: ErrAddressNotFound}
}

func NewExperienceRepository(db *gorm.DB) OwnedRepository[domain.Experience] {
	return &GormOwnedRepository[domain.Experience]{db: db, entity: "experience", order: "date_from desc", notFound: ErrExperienceNotFound}
}

func (r *GormOwnedRepository[T]) ListByUser(ctx context.Context, userID uuid.UUID) ([]T, error) {
	items := []T{}
	err := notArchived(conn(ctx, r.db).Model(new(T))).Where("user_id = ?", userID).Order(r.order).Find(&items).Error
	recordOp(ctx, r.entity, "list_by_user", err)
	return items, err
}

func (r *GormOwnedRepository[T]) FindByID(ctx context.Context, userID, id uuid.UUID) (*T, error) {
	item := new(T)
	err := notArchived(conn(ctx, r.db)).Where("id = ? AND user_id = ?", id, userID).First(item).Error
	err = translate(err, r.notFound)
	recordOp(ctx, r.entity, "find_by_id", err)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *GormOwnedRepository[T]) Create(ctx context.Context, item *T) error {
	err := translate(conn(ctx, r.db).Create(item).Error, r.notFound)
	recordOp(ctx, r.entity, "create", err)
	return err
}

func (r *GormOwnedRepository[T]) Update(ctx context.Context, userID, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := notArchived(conn(ctx, r.db).Model(new(T))).Where("id = ? AND user_id = ?", id, userID).Updates(updates)
	err := translate(res.Error, r.notFound)
	if err == nil && res.RowsAffected == 0 {
		err = r.notFound
	}
	recordOp(ctx, r.entity, "update", err)
	return err
}

func (r *GormOwnedRepository[T]) Archive(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	return r.Update(ctx, userID, id, map[string]any{"archived_at": at})
}
