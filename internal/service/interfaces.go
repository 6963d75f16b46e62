package service

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
)

type AuthServiceInterface interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, email, password, ip string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ConfirmEmail(ctx context.Context, userID uuid.UUID, token string) error
	ResendConfirmation(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email, ip string) (*PasswordResetTicket, error)
	ResetPassword(ctx context.Context, userID uuid.UUID, token, newPassword string) error
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) (*LoginResult, error)
}

type UserServiceInterface interface {
	Search(ctx context.Context, state repository.TableState) (repository.Page[domain.User], error)
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Profile(ctx context.Context, id uuid.UUID) (*UserProfile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*UserProfile, error)
	Archive(ctx context.Context, id uuid.UUID) error
	SetRoles(ctx context.Context, id uuid.UUID, roleIDs []uuid.UUID) (*domain.User, error)
	SetStatus(ctx context.Context, id, statusID uuid.UUID) (*domain.User, error)
	ReplaceAvatar(ctx context.Context, id uuid.UUID, body io.Reader, size int64) (*UserProfile, error)
	DeleteAvatar(ctx context.Context, id uuid.UUID) error
}

type ProfileServiceInterface interface {
	Addresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error)
	AddAddress(ctx context.Context, userID uuid.UUID, in AddressInput) (*domain.Address, error)
	UpdateAddress(ctx context.Context, userID, id uuid.UUID, in AddressInput) (*domain.Address, error)
	RemoveAddress(ctx context.Context, userID, id uuid.UUID) error
	Experiences(ctx context.Context, userID uuid.UUID) ([]domain.Experience, error)
	AddExperience(ctx context.Context, userID uuid.UUID, in ExperienceInput) (*domain.Experience, error)
	UpdateExperience(ctx context.Context, userID, id uuid.UUID, in ExperienceInput) (*domain.Experience, error)
	RemoveExperience(ctx context.Context, userID, id uuid.UUID) error
}

type RoleServiceInterface interface {
	List(ctx context.Context) ([]domain.Role, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	Create(ctx context.Context, name string) (*domain.Role, error)
	Rename(ctx context.Context, id uuid.UUID, name string) (*domain.Role, error)
	Archive(ctx context.Context, id uuid.UUID) error
	CountUsers(ctx context.Context, id uuid.UUID) (int64, error)
}

// LookupServiceInterface is satisfied by LookupService for genders, account
// statuses and slot types.
type LookupServiceInterface[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	Create(ctx context.Context, in LookupInput) (*T, error)
	Update(ctx context.Context, id uuid.UUID, in LookupInput) (*T, error)
	Archive(ctx context.Context, id uuid.UUID) error
}

type SlotServiceInterface interface {
	All(ctx context.Context) ([]domain.Slot, error)
	Search(ctx context.Context, state repository.TableState) (repository.Page[domain.Slot], error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Slot, error)
	ByTeacher(ctx context.Context, teacherID uuid.UUID) ([]domain.Slot, error)
	Available(ctx context.Context) ([]domain.Slot, error)
	Create(ctx context.Context, actor Actor, in SlotInput) (*domain.Slot, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, in SlotInput) (*domain.Slot, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type BookingServiceInterface interface {
	Create(ctx context.Context, actor Actor, in BookingInput) (*domain.Booking, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*domain.Booking, error)
	Mine(ctx context.Context, studentID uuid.UUID) ([]domain.Booking, error)
	Search(ctx context.Context, state repository.TableState) (repository.Page[domain.Booking], error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID) error
}

type OrderServiceInterface interface {
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*domain.Order, error)
	Mine(ctx context.Context, studentID uuid.UUID) ([]domain.Order, error)
	Search(ctx context.Context, state repository.TableState) (repository.Page[domain.Order], error)
	ApplyReduction(ctx context.Context, id uuid.UUID, in ReductionInput) (*domain.Order, error)
	Archive(ctx context.Context, actor Actor, id uuid.UUID) error
}

var (
	_ AuthServiceInterface                         = (*AuthService)(nil)
	_ UserServiceInterface                         = (*UserService)(nil)
	_ ProfileServiceInterface                      = (*ProfileService)(nil)
	_ RoleServiceInterface                         = (*RoleService)(nil)
	_ LookupServiceInterface[domain.Gender]        = (*LookupService[domain.Gender])(nil)
	_ LookupServiceInterface[domain.StatusAccount] = (*LookupService[domain.StatusAccount])(nil)
	_ LookupServiceInterface[domain.TypeSlot]      = (*LookupService[domain.TypeSlot])(nil)
	_ SlotServiceInterface                         = (*SlotService)(nil)
	_ BookingServiceInterface                      = (*BookingService)(nil)
	_ OrderServiceInterface                        = (*OrderService)(nil)
)
