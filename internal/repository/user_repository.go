package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Search(ctx context.Context, state TableState) (Page[domain.User], error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Archive(ctx context.Context, id uuid.UUID, at time.Time) error
	SetRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error
	CountByRole(ctx context.Context, roleID uuid.UUID) (int64, error)
}

type GormUserRepository struct {
	db     *gorm.DB
	fields *FieldSet
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db, fields: mustFieldsOf(db, &domain.User{})}
}

func (r *GormUserRepository) withProfile(db *gorm.DB) *gorm.DB {
	return db.Preload("Roles", notArchived).Preload("Gender").Preload("Status")
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	err := translate(conn(ctx, r.db).Omit("Roles.*").Create(user).Error, ErrUserNotFound)
	recordOp(ctx, "user", "create", err)
	return err
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.withProfile(notArchived(conn(ctx, r.db))).
		Preload("Addresses", notArchived).
		Preload("Experiences", notArchived).
		Where("id = ?", id).First(&u).Error
	err = translate(err, ErrUserNotFound)
	recordOp(ctx, "user", "find_by_id", err)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.withProfile(notArchived(conn(ctx, r.db))).Where("email = ?", email).First(&u).Error
	err = translate(err, ErrUserNotFound)
	recordOp(ctx, "user", "find_by_email", err)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ExistsByEmail also sees archived accounts, their email stays reserved.
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&domain.User{}).Where("email = ?", email).Count(&n).Error
	recordOp(ctx, "user", "exists_by_email", err)
	return n > 0, err
}

func (r *GormUserRepository) Search(ctx context.Context, state TableState) (Page[domain.User], error) {
	page, err := FindPage[domain.User](ctx, conn(ctx, r.db), r.fields, state, PageQuery{
		Search:  ContainsAny("first_name || ' ' || last_name", "email"),
		Scopes:  []func(*gorm.DB) *gorm.DB{notArchived},
		Preload: r.withProfile,
	})
	recordOp(ctx, "user", "search", err)
	return page, err
}

func (r *GormUserRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := notArchived(conn(ctx, r.db).Model(&domain.User{})).Where("id = ?", id).Updates(updates)
	err := translate(res.Error, ErrUserNotFound)
	if err == nil && res.RowsAffected == 0 {
		err = ErrUserNotFound
	}
	recordOp(ctx, "user", "update", err)
	return err
}

func (r *GormUserRepository) Archive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.Update(ctx, id, map[string]any{"archived_at": at})
}

func (r *GormUserRepository) SetRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	db := conn(ctx, r.db)
	var roles []domain.Role
	if len(roleIDs) > 0 {
		if err := notArchived(db).Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
			recordOp(ctx, "user", "set_roles", err)
			return err
		}
		if len(roles) != len(roleIDs) {
			recordOp(ctx, "user", "set_roles", ErrRoleNotFound)
			return ErrRoleNotFound
		}
	}
	u := domain.User{Model: domain.Model{ID: userID}}
	err := db.Model(&u).Association("Roles").Replace(roles)
	recordOp(ctx, "user", "set_roles", err)
	return err
}

func (r *GormUserRepository) CountByRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Table("user_roles").
		Joins("JOIN users ON users.id = user_roles.user_id").
		Where("user_roles.role_id = ? AND users.archived_at IS NULL", roleID).
		Count(&n).Error
	recordOp(ctx, "user", "count_by_role", err)
	return n, err
}
