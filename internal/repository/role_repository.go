package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
)

type RoleRepository interface {
	List(ctx context.Context) ([]domain.Role, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Role, error)
	FindByName(ctx context.Context, name string) (*domain.Role, error)
	Create(ctx context.Context, role *domain.Role) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Archive(ctx context.Context, id uuid.UUID, at time.Time) error
}

type GormRoleRepository struct{ db *gorm.DB }

func NewRoleRepository(db *gorm.DB) RoleRepository { return &GormRoleRepository{db: db} }

func (r *GormRoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	var roles []domain.Role
	err := notArchived(conn(ctx, r.db)).Order("name asc").Find(&roles).Error
	recordOp(ctx, "role", "list", err)
	return roles, err
}

func (r *GormRoleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	var role domain.Role
	err := translate(notArchived(conn(ctx, r.db)).Where("id = ?", id).First(&role).Error, ErrRoleNotFound)
	recordOp(ctx, "role", "find_by_id", err)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// FindByName matches on the normalized name so lookups are case-insensitive.
func (r *GormRoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	err := notArchived(conn(ctx, r.db)).
		Where("normalized_name = ?", strings.ToUpper(strings.TrimSpace(name))).
		First(&role).Error
	err = translate(err, ErrRoleNotFound)
	recordOp(ctx, "role", "find_by_name", err)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *GormRoleRepository) Create(ctx context.Context, role *domain.Role) error {
	role.NormalizedName = strings.ToUpper(role.Name)
	err := translate(conn(ctx, r.db).Create(role).Error, ErrRoleNotFound)
	recordOp(ctx, "role", "create", err)
	return err
}

func (r *GormRoleRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if name, ok := updates["name"].(string); ok {
		updates["normalized_name"] = strings.ToUpper(name)
	}
	updates["updated_at"] = time.Now().UTC()
	res := notArchived(conn(ctx, r.db).Model(&domain.Role{})).Where("id = ?", id).Updates(updates)
	err := translate(res.Error, ErrRoleNotFound)
	if err == nil && res.RowsAffected == 0 {
		err = ErrRoleNotFound
	}
	recordOp(ctx, "role", "update", err)
	return err
}

func (r *GormRoleRepository) Archive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.Update(ctx, id, map[string]any{"archived_at": at})
}
