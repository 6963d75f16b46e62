package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/config"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
)

type UserService struct {
	cfg      *config.Config
	tx       repository.Transactor
	users    repository.UserRepository
	genders  repository.LookupRepository[domain.Gender]
	statuses repository.LookupRepository[domain.StatusAccount]
	tokens   *TokenService
	storage  AvatarStorage
	logger   *slog.Logger
	now      func() time.Time
}

// UserProfile is a user as returned to clients, with a short lived avatar link.
type UserProfile struct {
	*domain.User
	AvatarURL string `json:"avatar_url,omitempty"`
}

type UpdateProfileInput struct {
	FirstName       *string
	LastName        *string
	DateOfBirth     *time.Time
	Title           *string
	Description     *string
	GenderID        *uuid.UUID
	AcceptMarketing *bool
}

func NewUserService(
	cfg *config.Config,
	tx repository.Transactor,
	users repository.UserRepository,
	genders repository.LookupRepository[domain.Gender],
	statuses repository.LookupRepository[domain.StatusAccount],
	tokens *TokenService,
	storage AvatarStorage,
	logger *slog.Logger,
) *UserService {
	if storage == nil {
		storage = DisabledAvatarStorage{}
	}
	return &UserService{
		cfg:      cfg,
		tx:       tx,
		users:    users,
		genders:  genders,
		statuses: statuses,
		tokens:   tokens,
		storage:  storage,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *UserService) Search(ctx context.Context, state repository.TableState) (repository.Page[domain.User], error) {
	return s.users.Search(ctx, state)
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, ErrUserNotFound)
	}
	return u, nil
}

func (s *UserService) Profile(ctx context.Context, id uuid.UUID) (*UserProfile, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, u), nil
}

func (s *UserService) profile(ctx context.Context, u *domain.User) *UserProfile {
	p := &UserProfile{User: u}
	if u.AvatarKey == "" {
		return p
	}
	link, err := s.storage.AvatarURL(ctx, u.AvatarKey)
	if err != nil {
		s.logger.WarnContext(ctx, "avatar link unavailable", "user_id", u.ID, "error", err)
		return p
	}
	p.AvatarURL = link
	return p
}

func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*UserProfile, error) {
	updates := map[string]any{}
	setText := func(column string, v *string, required bool) error {
		if v == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*v)
		if required && trimmed == "" {
			return errorf(ErrValidation, "%s must not be empty", column)
		}
		updates[column] = trimmed
		return nil
	}
	if err := setText("first_name", in.FirstName, true); err != nil {
		return nil, err
	}
	if err := setText("last_name", in.LastName, true); err != nil {
		return nil, err
	}
	if err := setText("title", in.Title, false); err != nil {
		return nil, err
	}
	if err := setText("description", in.Description, false); err != nil {
		return nil, err
	}
	if in.DateOfBirth != nil {
		if in.DateOfBirth.After(s.now()) {
			return nil, newError(ErrValidation, "date of birth must be in the past")
		}
		updates["date_of_birth"] = in.DateOfBirth.UTC()
	}
	if in.AcceptMarketing != nil {
		updates["accept_marketing"] = *in.AcceptMarketing
	}
	if in.GenderID != nil {
		if _, err := s.genders.FindByID(ctx, *in.GenderID); err != nil {
			return nil, fromRepo(err, ErrGenderNotFound)
		}
		updates["gender_id"] = *in.GenderID
	}
	if len(updates) > 0 {
		if err := s.users.Update(ctx, id, updates); err != nil {
			return nil, fromRepo(err, ErrUserNotFound)
		}
	}
	return s.Profile(ctx, id)
}

// Archive soft deletes the account and ends its session.
func (s *UserService) Archive(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Archive(ctx, id, s.now().UTC()); err != nil {
			return fromRepo(err, ErrUserNotFound)
		}
		return s.tokens.RevokeRefreshToken(ctx, id)
	})
}

func (s *UserService) SetRoles(ctx context.Context, id uuid.UUID, roleIDs []uuid.UUID) (*domain.User, error) {
	if len(roleIDs) == 0 {
		return nil, newError(ErrValidation, "at least one role is required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.users.SetRoles(ctx, id, roleIDs); err != nil {
		return nil, fromRepo(err, ErrRoleNotFound)
	}
	return s.Get(ctx, id)
}

// SetStatus moves an account between pending, confirmed and banned. Banning revokes
// the refresh token so the user cannot obtain new access tokens.
func (s *UserService) SetStatus(ctx context.Context, id, statusID uuid.UUID) (*domain.User, error) {
	if _, err := s.statuses.FindByID(ctx, statusID); err != nil {
		return nil, fromRepo(err, ErrStatusNotFound)
	}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, id, map[string]any{"status_id": statusID}); err != nil {
			return fromRepo(err, ErrUserNotFound)
		}
		if statusID == s.cfg.StatusBannedID {
			return s.tokens.RevokeRefreshToken(ctx, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// ReplaceAvatar stores the new picture first and removes the previous one afterwards.
func (s *UserService) ReplaceAvatar(ctx context.Context, id uuid.UUID, body io.Reader, size int64) (*UserProfile, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	key, err := s.storage.PutAvatar(ctx, id, body, size)
	if err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, id, map[string]any{"avatar_key": key}); err != nil {
		_ = s.storage.RemoveAvatar(ctx, id, key)
		return nil, fromRepo(err, ErrUserNotFound)
	}
	if u.AvatarKey != "" {
		if err := s.storage.RemoveAvatar(ctx, id, u.AvatarKey); err != nil {
			s.logger.WarnContext(ctx, "previous avatar not removed", "user_id", id, "error", err)
		}
	}
	return s.Profile(ctx, id)
}

func (s *UserService) DeleteAvatar(ctx context.Context, id uuid.UUID) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if u.AvatarKey == "" {
		return ErrAvatarNotFound
	}
	if err := s.storage.RemoveAvatar(ctx, id, u.AvatarKey); err != nil {
		return err
	}
	return fromRepo(s.users.Update(ctx, id, map[string]any{"avatar_key": ""}), ErrUserNotFound)
}
