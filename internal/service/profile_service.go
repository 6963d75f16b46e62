package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
)

type AddressInput struct {
	Street  string
	City    string
	State   string
	Country string
	ZipCode string
}

type ExperienceInput struct {
	Title       string
	Description string
	Institution string
	DateFrom    time.Time
	DateTo      *time.Time
}

// ProfileService manages the addresses and experiences of the calling user.
type ProfileService struct {
	addresses   repository.OwnedRepository[domain.Address]
	experiences repository.OwnedRepository[domain.Experience]
	now         func() time.Time
}

func NewProfileService(addresses repository.OwnedRepository[domain.Address], experiences repository.OwnedRepository[domain.Experience]) *ProfileService {
	return &ProfileService{addresses: addresses, experiences: experiences, now: time.Now}
}

func (in AddressInput) normalize() (AddressInput, error) {
	in.Street = strings.TrimSpace(in.Street)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	in.Country = strings.TrimSpace(in.Country)
	in.ZipCode = strings.TrimSpace(in.ZipCode)
	if in.Street == "" || in.City == "" || in.Country == "" || in.ZipCode == "" {
		return in, newError(ErrValidation, "street, city, country and zip code are required")
	}
	return in, nil
}

func (in ExperienceInput) normalize(now time.Time) (ExperienceInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Institution = strings.TrimSpace(in.Institution)
	if in.Title == "" {
		return in, newError(ErrValidation, "title is required")
	}
	if in.DateFrom.IsZero() || in.DateFrom.After(now) {
		return in, newError(ErrValidation, "experience must start in the past")
	}
	if in.DateTo != nil && !in.DateTo.After(in.DateFrom) {
		return in, newError(ErrValidation, "experience end must be after its start")
	}
	return in, nil
}

func (s *ProfileService) Addresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	return s.addresses.ListByUser(ctx, userID)
}

func (s *ProfileService) AddAddress(ctx context.Context, userID uuid.UUID, in AddressInput) (*domain.Address, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	a := &domain.Address{
		UserID:  userID,
		Street:  in.Street,
		City:    in.City,
		State:   in.State,
		Country: in.Country,
		ZipCode: in.ZipCode,
	}
	if err := s.addresses.Create(ctx, a); err != nil {
		return nil, fromRepo(err, ErrAddressNotFound)
	}
	return a, nil
}

func (s *ProfileService) UpdateAddress(ctx context.Context, userID, id uuid.UUID, in AddressInput) (*domain.Address, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	err = s.addresses.Update(ctx, userID, id, map[string]any{
		"street":   in.Street,
		"city":     in.City,
		"state":    in.State,
		"country":  in.Country,
		"zip_code": in.ZipCode,
	})
	if err != nil {
		return nil, fromRepo(err, ErrAddressNotFound)
	}
	a, err := s.addresses.FindByID(ctx, userID, id)
	if err != nil {
		return nil, fromRepo(err, ErrAddressNotFound)
	}
	return a, nil
}

func (s *ProfileService) RemoveAddress(ctx context.Context, userID, id uuid.UUID) error {
	return fromRepo(s.addresses.Archive(ctx, userID, id, s.now().UTC()), ErrAddressNotFound)
}

func (s *ProfileService) Experiences(ctx context.Context, userID uuid.UUID) ([]domain.Experience, error) {
	return s.experiences.ListByUser(ctx, userID)
}

func (s *ProfileService) AddExperience(ctx context.Context, userID uuid.UUID, in ExperienceInput) (*domain.Experience, error) {
	in, err := in.normalize(s.now())
	if err != nil {
		return nil, err
	}
	e := &domain.Experience{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Institution: in.Institution,
		DateFrom:    in.DateFrom.UTC(),
		DateTo:      utcPtr(in.DateTo),
	}
	if err := s.experiences.Create(ctx, e); err != nil {
		return nil, fromRepo(err, ErrExperienceNotFound)
	}
	return e, nil
}

func (s *ProfileService) UpdateExperience(ctx context.Context, userID, id uuid.UUID, in ExperienceInput) (*domain.Experience, error) {
	in, err := in.normalize(s.now())
	if err != nil {
		return nil, err
	}
	err = s.experiences.Update(ctx, userID, id, map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"institution": in.Institution,
		"date_from":   in.DateFrom.UTC(),
		"date_to":     utcPtr(in.DateTo),
	})
	if err != nil {
		return nil, fromRepo(err, ErrExperienceNotFound)
	}
	e, err := s.experiences.FindByID(ctx, userID, id)
	if err != nil {
		return nil, fromRepo(err, ErrExperienceNotFound)
	}
	return e, nil
}

func (s *ProfileService) RemoveExperience(ctx context.Context, userID, id uuid.UUID) error {
	return fromRepo(s.experiences.Archive(ctx, userID, id, s.now().UTC()), ErrExperienceNotFound)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
