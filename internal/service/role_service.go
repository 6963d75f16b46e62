package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/config"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
)

type RoleService struct {
	roles     repository.RoleRepository
	users     repository.UserRepository
	protected map[uuid.UUID]struct{}
	now       func() time.Time
}

func NewRoleService(cfg *config.Config, roles repository.RoleRepository, users repository.UserRepository) *RoleService {
	return &RoleService{
		roles: roles,
		users: users,
		protected: map[uuid.UUID]struct{}{
			cfg.RoleSuperAdminID: {},
			cfg.RoleAdminID:      {},
			cfg.RoleTeacherID:    {},
			cfg.RoleStudentID:    {},
		},
		now: time.Now,
	}
}

func (s *RoleService) List(ctx context.Context) ([]domain.Role, error) {
	return s.roles.List(ctx)
}

func (s *RoleService) Get(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, ErrRoleNotFound)
	}
	return role, nil
}

func (s *RoleService) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	role, err := s.roles.FindByName(ctx, name)
	if err != nil {
		return nil, fromRepo(err, ErrRoleNotFound)
	}
	return role, nil
}

func (s *RoleService) Create(ctx context.Context, name string) (*domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(ErrValidation, "role name is required")
	}
	if err := s.ensureNameFree(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}
	role := &domain.Role{Name: name}
	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateRole
		}
		return nil, err
	}
	return role, nil
}

// Rename changes a custom role's name. Seeded roles keep their names because
// authorization checks refer to them.
func (s *RoleService) Rename(ctx context.Context, id uuid.UUID, name string) (*domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(ErrValidation, "role name is required")
	}
	if _, ok := s.protected[id]; ok {
		return nil, ErrProtectedRole
	}
	if err := s.ensureNameFree(ctx, name, id); err != nil {
		return nil, err
	}
	if err := s.roles.Update(ctx, id, map[string]any{"name": name}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateRole
		}
		return nil, fromRepo(err, ErrRoleNotFound)
	}
	return s.Get(ctx, id)
}

func (s *RoleService) Archive(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.protected[id]; ok {
		return ErrProtectedRole
	}
	if err := s.roles.Archive(ctx, id, s.now().UTC()); err != nil {
		return fromRepo(err, ErrRoleNotFound)
	}
	return nil
}

// CountUsers returns how many active users hold the role.
func (s *RoleService) CountUsers(ctx context.Context, id uuid.UUID) (int64, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return 0, err
	}
	return s.users.CountByRole(ctx, id)
}

func (s *RoleService) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.roles.FindByName(ctx, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == self:
		return nil
	default:
		return ErrDuplicateRole
	}
}
