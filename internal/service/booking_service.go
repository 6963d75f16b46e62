package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
)

type BookingInput struct {
	SlotID      uuid.UUID
	Title       string
	Description string
	// OrderID attaches the booking to an existing order of the same student.
	// A new order is opened when it is nil.
	OrderID *uuid.UUID
}

type BookingService struct {
	tx       repository.Transactor
	bookings repository.BookingRepository
	slots    repository.SlotRepository
	orders   repository.OrderRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewBookingService(
	tx repository.Transactor,
	bookings repository.BookingRepository,
	slots repository.SlotRepository,
	orders repository.OrderRepository,
	logger *slog.Logger,
) *BookingService {
	return &BookingService{tx: tx, bookings: bookings, slots: slots, orders: orders, logger: logger, now: time.Now}
}

func (s *BookingService) Create(ctx context.Context, actor Actor, in BookingInput) (booking *domain.Booking, err error) {
	defer func() { observability.RecordBookingEvent(ctx, "create", outcomeOf(err)) }()

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return nil, newError(ErrValidation, "title is required")
	}

	created := &domain.Booking{
		Title:       in.Title,
		Description: in.Description,
		SlotID:      in.SlotID,
		StudentID:   actor.UserID,
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		slot, err := s.slots.FindByID(ctx, in.SlotID)
		if err != nil {
			return fromRepo(err, ErrSlotNotFound)
		}
		if !slot.DateFrom.After(s.now()) {
			return ErrSlotInPast
		}
		booked, err := s.slots.IsBooked(ctx, slot.ID)
		if err != nil {
			return err
		}
		if booked {
			return ErrSlotBooked
		}

		orderID, err := s.resolveOrder(ctx, actor, in.OrderID)
		if err != nil {
			return err
		}
		created.OrderID = orderID
		if err := s.bookings.Create(ctx, created); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrSlotBooked
			}
			return err
		}
		_, err = recomputeOrderTotal(ctx, s.orders, orderID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrSlotBooked) {
			observability.RecordSchedulingConflict(ctx, "double_booking")
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "booking created", "booking_id", created.ID, "slot_id", created.SlotID, "order_id", created.OrderID)
	booking, err = s.bookings.FindByID(ctx, created.ID)
	return booking, fromRepo(err, ErrBookingNotFound)
}

func (s *BookingService) resolveOrder(ctx context.Context, actor Actor, orderID *uuid.UUID) (uuid.UUID, error) {
	if orderID == nil || *orderID == uuid.Nil {
		order := &domain.Order{StudentID: actor.UserID}
		if err := s.orders.Create(ctx, order); err != nil {
			return uuid.Nil, err
		}
		return order.ID, nil
	}
	order, err := s.orders.FindByID(ctx, *orderID)
	if err != nil {
		return uuid.Nil, fromRepo(err, ErrOrderNotFound)
	}
	if order.StudentID != actor.UserID {
		return uuid.Nil, ErrOrderOwnerMismatch
	}
	return order.ID, nil
}

// Get returns a booking to its student, to the teacher of its slot and to admins.
func (s *BookingService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*domain.Booking, error) {
	b, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, ErrBookingNotFound)
	}
	if actor.canActFor(b.StudentID) || (b.Slot != nil && b.Slot.TeacherID == actor.UserID) {
		return b, nil
	}
	return nil, ErrNotOwner
}

func (s *BookingService) Mine(ctx context.Context, studentID uuid.UUID) ([]domain.Booking, error) {
	return s.bookings.ListByStudent(ctx, studentID)
}

func (s *BookingService) Search(ctx context.Context, state repository.TableState) (repository.Page[domain.Booking], error) {
	return s.bookings.Search(ctx, state)
}

// Cancel archives the booking, which frees its slot, and recomputes the order total.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (err error) {
	defer func() { observability.RecordBookingEvent(ctx, "cancel", outcomeOf(err)) }()

	b, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return fromRepo(err, ErrBookingNotFound)
	}
	if !actor.canActFor(b.StudentID) {
		return ErrNotOwner
	}
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.bookings.Archive(ctx, id, s.now().UTC()); err != nil {
			return fromRepo(err, ErrBookingNotFound)
		}
		_, err := recomputeOrderTotal(ctx, s.orders, b.OrderID)
		return err
	})
}
