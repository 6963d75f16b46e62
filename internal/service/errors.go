package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
)

// Error kinds. Every error returned by this package that is meant for the caller
// wraps exactly one of these; anything else is unexpected.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrTooManyRequests = errors.New("too many requests")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func errorf(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

var (
	ErrDuplicateEmail       = newError(ErrConflict, "email already registered")
	ErrAccountNotFound      = newError(ErrNotFound, "no account registered with this email")
	ErrInvalidCredentials   = newError(ErrUnauthorized, "invalid credentials")
	ErrAccountBanned        = newError(ErrUnauthorized, "account is banned")
	ErrEmailNotConfirmed    = newError(ErrUnauthorized, "email address not confirmed")
	ErrInvalidRefreshToken  = newError(ErrUnauthorized, "refresh token is invalid or expired")
	ErrInvalidVerifyToken   = newError(ErrValidation, "token is invalid or expired")
	ErrPasswordResetRequest = newError(ErrValidation, "unable to process password reset request")
	ErrWeakPassword         = newError(ErrValidation, "password does not meet policy requirements")
	ErrPasswordUnchanged    = newError(ErrValidation, "new password must differ from current password")
	ErrInvalidEmail         = newError(ErrValidation, "invalid email")

	ErrUserNotFound       = newError(ErrNotFound, "user not found")
	ErrRoleNotFound       = newError(ErrNotFound, "role not found")
	ErrGenderNotFound     = newError(ErrNotFound, "gender not found")
	ErrStatusNotFound     = newError(ErrNotFound, "status not found")
	ErrTypeSlotNotFound   = newError(ErrNotFound, "slot type not found")
	ErrAddressNotFound    = newError(ErrNotFound, "address not found")
	ErrExperienceNotFound = newError(ErrNotFound, "experience not found")
	ErrSlotNotFound       = newError(ErrNotFound, "slot not found")
	ErrBookingNotFound    = newError(ErrNotFound, "booking not found")
	ErrOrderNotFound      = newError(ErrNotFound, "order not found")
	ErrTeacherNotFound    = newError(ErrNotFound, "teacher not found")
	ErrAvatarNotFound     = newError(ErrNotFound, "avatar not found")

	ErrDuplicateRole      = newError(ErrConflict, "role name already exists")
	ErrDuplicateLookup    = newError(ErrConflict, "name already exists")
	ErrProtectedRole      = newError(ErrConflict, "built-in roles cannot be modified")
	ErrSlotOverlap        = newError(ErrConflict, "slot overlaps another slot of the same teacher")
	ErrSlotBooked         = newError(ErrConflict, "slot is already booked")
	ErrSlotInPast         = newError(ErrValidation, "slot has already started")
	ErrInvalidSlotWindow  = newError(ErrValidation, "slot end must be after its start")
	ErrNotATeacher        = newError(ErrValidation, "user does not hold the Teacher role")
	ErrInvalidReduction   = newError(ErrValidation, "reduction is out of bounds")
	ErrOrderOwnerMismatch = newError(ErrValidation, "order belongs to another student")

	ErrNotOwner = newError(ErrForbidden, "resource belongs to another user")
)

// RetryAfterError reports a cooldown imposed by the abuse guard.
type RetryAfterError struct {
	RetryAfter time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *RetryAfterError) Unwrap() error { return ErrTooManyRequests }

// fromRepo maps repository sentinels onto service errors.
func fromRepo(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrDuplicate):
		return newError(ErrConflict, "record already exists")
	default:
		return err
	}
}
