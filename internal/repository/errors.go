package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")

	ErrUserNotFound              = fmt.Errorf("user %w", ErrNotFound)
	ErrRoleNotFound              = fmt.Errorf("role %w", ErrNotFound)
	ErrLookupNotFound            = fmt.Errorf("lookup %w", ErrNotFound)
	ErrAddressNotFound           = fmt.Errorf("address %w", ErrNotFound)
	ErrExperienceNotFound        = fmt.Errorf("experience %w", ErrNotFound)
	ErrSlotNotFound              = fmt.Errorf("slot %w", ErrNotFound)
	ErrBookingNotFound           = fmt.Errorf("booking %w", ErrNotFound)
	ErrOrderNotFound             = fmt.Errorf("order %w", ErrNotFound)
	ErrRefreshTokenNotFound      = fmt.Errorf("refresh token %w", ErrNotFound)
	ErrVerificationTokenNotFound = fmt.Errorf("verification token %w", ErrNotFound)
)
