package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
)

type SlotInput struct {
	DateFrom    time.Time
	DateTo      time.Time
	TypeID      uuid.UUID
	Price       float64
	Description string
	// TeacherID defaults to the actor. Only admins may schedule for someone else.
	TeacherID uuid.UUID
}

type SlotService struct {
	tx        repository.Transactor
	slots     repository.SlotRepository
	users     repository.UserRepository
	typeSlots repository.LookupRepository[domain.TypeSlot]
	logger    *slog.Logger
	now       func() time.Time
}

func NewSlotService(
	tx repository.Transactor,
	slots repository.SlotRepository,
	users repository.UserRepository,
	typeSlots repository.LookupRepository[domain.TypeSlot],
	logger *slog.Logger,
) *SlotService {
	return &SlotService{tx: tx, slots: slots, users: users, typeSlots: typeSlots, logger: logger, now: time.Now}
}

func (s *SlotService) All(ctx context.Context) ([]domain.Slot, error) {
	return s.slots.List(ctx)
}

func (s *SlotService) Search(ctx context.Context, state repository.TableState) (repository.Page[domain.Slot], error) {
	return s.slots.Search(ctx, state)
}

func (s *SlotService) Get(ctx context.Context, id uuid.UUID) (*domain.Slot, error) {
	slot, err := s.slots.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, ErrSlotNotFound)
	}
	return slot, nil
}

func (s *SlotService) ByTeacher(ctx context.Context, teacherID uuid.UUID) ([]domain.Slot, error) {
	if _, err := s.users.FindByID(ctx, teacherID); err != nil {
		return nil, fromRepo(err, ErrTeacherNotFound)
	}
	return s.slots.ListByTeacher(ctx, teacherID)
}

// Available lists active future slots without an active booking.
func (s *SlotService) Available(ctx context.Context) ([]domain.Slot, error) {
	return s.slots.ListAvailable(ctx, s.now().UTC())
}

func (s *SlotService) Create(ctx context.Context, actor Actor, in SlotInput) (*domain.Slot, error) {
	if in.TeacherID == uuid.Nil {
		in.TeacherID = actor.UserID
	}
	if !actor.canActFor(in.TeacherID) {
		return nil, ErrNotOwner
	}
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	if err := s.requireTeacher(ctx, in.TeacherID); err != nil {
		return nil, err
	}

	slot := &domain.Slot{
		DateFrom:    in.DateFrom,
		DateTo:      in.DateTo,
		Price:       in.Price,
		Description: in.Description,
		TeacherID:   in.TeacherID,
		TypeID:      in.TypeID,
	}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.lockAndCheckOverlap(ctx, in.TeacherID, in.DateFrom, in.DateTo, uuid.Nil); err != nil {
			return err
		}
		return fromRepo(s.slots.Create(ctx, slot), ErrSlotNotFound)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "slot created", "slot_id", slot.ID, "teacher_id", slot.TeacherID, "actor_id", actor.UserID)
	return s.Get(ctx, slot.ID)
}

// Update rewrites the window, type, price and description. The teacher of a slot never changes.
func (s *SlotService) Update(ctx context.Context, actor Actor, id uuid.UUID, in SlotInput) (*domain.Slot, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canActFor(current.TeacherID) {
		return nil, ErrNotOwner
	}
	in.TeacherID = current.TeacherID
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.lockAndCheckOverlap(ctx, current.TeacherID, in.DateFrom, in.DateTo, id); err != nil {
			return err
		}
		if err := s.ensureNotBooked(ctx, id); err != nil {
			return err
		}
		return fromRepo(s.slots.Update(ctx, id, map[string]any{
			"date_from":   in.DateFrom,
			"date_to":     in.DateTo,
			"type_id":     in.TypeID,
			"price":       in.Price,
			"description": in.Description,
		}), ErrSlotNotFound)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *SlotService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.canActFor(current.TeacherID) {
		return ErrNotOwner
	}
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.slots.LockTeacherSchedule(ctx, current.TeacherID); err != nil {
			return fromRepo(err, ErrTeacherNotFound)
		}
		if err := s.ensureNotBooked(ctx, id); err != nil {
			return err
		}
		return fromRepo(s.slots.Archive(ctx, id, s.now().UTC()), ErrSlotNotFound)
	})
}

func (s *SlotService) validate(ctx context.Context, in *SlotInput) error {
	in.Description = strings.TrimSpace(in.Description)
	in.DateFrom = in.DateFrom.UTC()
	in.DateTo = in.DateTo.UTC()
	if in.DateFrom.IsZero() || !in.DateTo.After(in.DateFrom) {
		return ErrInvalidSlotWindow
	}
	if !in.DateFrom.After(s.now()) {
		return ErrSlotInPast
	}
	if in.Price < 0 {
		return newError(ErrValidation, "price must not be negative")
	}
	if _, err := s.typeSlots.FindByID(ctx, in.TypeID); err != nil {
		return fromRepo(err, ErrTypeSlotNotFound)
	}
	return nil
}

func (s *SlotService) requireTeacher(ctx context.Context, teacherID uuid.UUID) error {
	teacher, err := s.users.FindByID(ctx, teacherID)
	if err != nil {
		return fromRepo(err, ErrTeacherNotFound)
	}
	if !teacher.HasRole(domain.RoleTeacher) {
		return ErrNotATeacher
	}
	return nil
}

// lockAndCheckOverlap must run inside a transaction; the teacher row lock keeps two
// concurrent writers from both passing the overlap check.
func (s *SlotService) lockAndCheckOverlap(ctx context.Context, teacherID uuid.UUID, from, to time.Time, excludeID uuid.UUID) error {
	if err := s.slots.LockTeacherSchedule(ctx, teacherID); err != nil {
		return fromRepo(err, ErrTeacherNotFound)
	}
	overlap, err := s.slots.HasOverlap(ctx, teacherID, from, to, excludeID)
	if err != nil {
		return err
	}
	if overlap {
		observability.RecordSchedulingConflict(ctx, "overlap")
		s.logger.InfoContext(ctx, "slot rejected", "reason", "overlap", "teacher_id", teacherID)
		return ErrSlotOverlap
	}
	return nil
}

func (s *SlotService) ensureNotBooked(ctx context.Context, id uuid.UUID) error {
	booked, err := s.slots.IsBooked(ctx, id)
	if err != nil {
		return err
	}
	if booked {
		observability.RecordSchedulingConflict(ctx, "booked")
		return ErrSlotBooked
	}
	return nil
}
